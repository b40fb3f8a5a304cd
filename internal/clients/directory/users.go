package directory

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/vartik/vartikgpt/internal/models"
	"github.com/vartik/vartikgpt/internal/utils"
)

// GetUserByExternalID returns NOT_FOUND when the identity has never signed in.
func (cl *Client) GetUserByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	const op = "Directory.GetUserByExternalID"
	if externalID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "external id is required", nil)
	}
	var u models.User
	raw, err := cl.do(ctx, call{op: op, method: http.MethodGet, path: "/User/unique/" + seg(externalID)}, &u)
	if err != nil {
		return nil, err
	}
	if isEmptyBody(raw) {
		return nil, utils.E(utils.CodeNotFound, op, "not found", nil)
	}
	return &u, nil
}

// createUserReply covers both shapes the directory answers with: {id,...} and {user:{id,...}}.
type createUserReply struct {
	models.User
	Nested *models.User `json:"user"`
}

func (cl *Client) CreateUser(ctx context.Context, u models.User) (*models.User, error) {
	const op = "Directory.CreateUser"
	body := map[string]any{
		"name":          u.Name,
		"uniqueAzureId": u.UniqueAzureID,
		"departmentId":  u.DepartmentID,
	}
	raw, err := cl.do(ctx, call{op: op, method: http.MethodPost, path: "/User", body: body}, nil)
	if err != nil {
		return nil, err
	}
	var reply createUserReply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return nil, utils.Protocol(op, "unexpected directory response", err)
	}
	created := reply.User
	if created.ID == 0 && reply.Nested != nil {
		created = *reply.Nested
	}
	if created.ID == 0 {
		return nil, utils.Protocol(op, "created user has no id", nil)
	}
	if created.UniqueAzureID == "" {
		created.UniqueAzureID = u.UniqueAzureID
	}
	if created.Name == "" {
		created.Name = u.Name
	}
	if created.DepartmentID == 0 {
		created.DepartmentID = u.DepartmentID
	}
	return &created, nil
}

package directory

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/vartik/vartikgpt/internal/models"
	"github.com/vartik/vartikgpt/internal/utils"
)

func (cl *Client) ListDepartments(ctx context.Context) ([]models.Department, error) {
	out := []models.Department{}
	_, err := cl.do(ctx, call{op: "Directory.ListDepartments", method: http.MethodGet, path: "/Department"}, &out)
	return out, err
}

func (cl *Client) GetDepartment(ctx context.Context, id int64) (*models.Department, error) {
	const op = "Directory.GetDepartment"
	var d models.Department
	raw, err := cl.do(ctx, call{op: op, method: http.MethodGet, path: "/Department/" + idSeg(id)}, &d)
	if err != nil {
		return nil, err
	}
	if isEmptyBody(raw) {
		return nil, utils.E(utils.CodeNotFound, op, "not found", nil)
	}
	if d.ID == 0 {
		d.ID = id
	}
	return &d, nil
}

func (cl *Client) CreateDepartment(ctx context.Context, d models.Department) (*models.Department, error) {
	const op = "Directory.CreateDepartment"
	out := d
	body := map[string]any{"name": d.Name, "categoryId": d.CategoryID}
	if _, err := cl.do(ctx, call{op: op, method: http.MethodPost, path: "/Department", body: body}, &out); err != nil {
		return nil, err
	}
	if out.ID == 0 {
		return nil, utils.Protocol(op, "created department has no id", nil)
	}
	return &out, nil
}

func (cl *Client) DeleteDepartment(ctx context.Context, id int64) error {
	_, err := cl.do(ctx, call{op: "Directory.DeleteDepartment", method: http.MethodDelete, path: "/Department/" + idSeg(id)}, nil)
	return err
}

// DepartmentIDByCategory returns NOT_FOUND when no department references the category. The
// directory answers that case with 200 and an empty or null body.
func (cl *Client) DepartmentIDByCategory(ctx context.Context, categoryID int64) (int64, error) {
	const op = "Directory.DepartmentIDByCategory"
	raw, err := cl.do(ctx, call{op: op, method: http.MethodGet, path: "/Department/GetDepartmentIdByCategoryId/" + idSeg(categoryID)}, nil)
	if err != nil {
		return 0, err
	}
	if isEmptyBody(raw) {
		return 0, utils.E(utils.CodeNotFound, op, "not found", nil)
	}

	var reply struct {
		DepartmentID int64 `json:"departmentId"`
	}
	if err := json.Unmarshal(raw, &reply); err != nil {
		// some deployments answer with a bare id
		var bare int64
		if berr := json.Unmarshal(raw, &bare); berr != nil {
			return 0, utils.Protocol(op, "unexpected directory response", err)
		}
		reply.DepartmentID = bare
	}
	if reply.DepartmentID == 0 {
		return 0, utils.E(utils.CodeNotFound, op, "not found", nil)
	}
	return reply.DepartmentID, nil
}

func (cl *Client) ListCategories(ctx context.Context) ([]models.Category, error) {
	out := []models.Category{}
	_, err := cl.do(ctx, call{op: "Directory.ListCategories", method: http.MethodGet, path: "/Category"}, &out)
	return out, err
}

// SearchCategories returns an empty slice when nothing matches.
func (cl *Client) SearchCategories(ctx context.Context, name string) ([]models.Category, error) {
	out := []models.Category{}
	_, err := cl.do(ctx, call{
		op:     "Directory.SearchCategories",
		method: http.MethodGet,
		path:   "/Category/search",
		query:  map[string]string{"name": name},
	}, &out)
	if utils.IsCode(err, utils.CodeNotFound) {
		return []models.Category{}, nil
	}
	return out, err
}

func (cl *Client) CreateCategory(ctx context.Context, c models.Category) (*models.Category, error) {
	const op = "Directory.CreateCategory"
	out := c
	body := map[string]any{"name": c.Name, "promptFile": c.PromptFile}
	if _, err := cl.do(ctx, call{op: op, method: http.MethodPost, path: "/Category", body: body}, &out); err != nil {
		return nil, err
	}
	if out.ID == 0 {
		return nil, utils.Protocol(op, "created category has no id", nil)
	}
	return &out, nil
}

func (cl *Client) DeleteCategory(ctx context.Context, id int64) error {
	_, err := cl.do(ctx, call{op: "Directory.DeleteCategory", method: http.MethodDelete, path: "/Category/" + idSeg(id)}, nil)
	return err
}

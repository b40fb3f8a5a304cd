package directory

import (
	"context"
	"net/http"

	"github.com/vartik/vartikgpt/internal/models"
)

// RegisterVectorStore returns CONFLICT when the (index, type, department) triple already exists.
func (cl *Client) RegisterVectorStore(ctx context.Context, r models.VectorStoreRegistration) (*models.VectorStoreRegistration, error) {
	body := map[string]any{
		"VectorIndex":  r.VectorIndex,
		"Type":         r.Type,
		"DepartmentId": r.DepartmentID,
	}
	out := r
	if _, err := cl.do(ctx, call{op: "Directory.RegisterVectorStore", method: http.MethodPost, path: "/VectorStore", body: body}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (cl *Client) DeregisterVectorStore(ctx context.Context, index, storeType string) error {
	_, err := cl.do(ctx, call{
		op:     "Directory.DeregisterVectorStore",
		method: http.MethodDelete,
		path:   "/VectorStore/DeleteByVectorIndex/" + seg(index) + "/" + seg(storeType),
	}, nil)
	return err
}

func (cl *Client) RegistrationsFor(ctx context.Context, storeType string, departmentID int64) ([]models.VectorStoreRegistration, error) {
	out := []models.VectorStoreRegistration{}
	_, err := cl.do(ctx, call{
		op:     "Directory.RegistrationsFor",
		method: http.MethodGet,
		path:   "/VectorStore/GetByTypeAndDepartmentId",
		query:  map[string]string{"type": storeType, "departmentId": idSeg(departmentID)},
	}, &out)
	return out, err
}

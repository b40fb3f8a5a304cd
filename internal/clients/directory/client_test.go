package directory

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vartik/vartikgpt/internal/logger"
	"github.com/vartik/vartikgpt/internal/models"
	"github.com/vartik/vartikgpt/internal/utils"
)

func newTestClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/api", 2*time.Second, logger.Discard())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestGetUserByExternalID(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/User/unique/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "oid-1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": 7, "name": "Ana", "uniqueAzureId": "oid-1", "departmentId": 3})
	})
	cl := newTestClient(t, mux)

	u, err := cl.GetUserByExternalID(context.Background(), "oid-1")
	require.NoError(t, err)
	assert.Equal(t, int64(7), u.ID)
	assert.Equal(t, int64(3), u.DepartmentID)

	_, err = cl.GetUserByExternalID(context.Background(), "oid-2")
	assert.True(t, utils.IsCode(err, utils.CodeNotFound))
}

func TestCreateUser_BothReplyShapes(t *testing.T) {
	nested := false
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/User", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "oid-1", body["uniqueAzureId"])
		if nested {
			writeJSON(w, http.StatusCreated, map[string]any{"user": map[string]any{"id": 9}})
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"id": 8})
	})
	cl := newTestClient(t, mux)
	in := models.User{Name: "Ana", UniqueAzureID: "oid-1", DepartmentID: 3}

	u, err := cl.CreateUser(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, int64(8), u.ID)

	nested = true
	u, err = cl.CreateUser(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, int64(9), u.ID)
	assert.Equal(t, "oid-1", u.UniqueAzureID)
	assert.Equal(t, int64(3), u.DepartmentID)
}

func TestCreateSession_FormatsTempAndTokens(t *testing.T) {
	var got map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/Sessions", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusOK, got)
	})
	cl := newTestClient(t, mux)

	s, err := cl.CreateSession(context.Background(), models.Session{UserID: 1, Temp: 0.66, MaxTokens: 9000})
	require.NoError(t, err)

	assert.Equal(t, "0.7", got["temp"])
	assert.Equal(t, float64(models.MaxTokensLimit), got["maxTokens"])
	assert.NotEmpty(t, got["sessionId"])
	assert.Equal(t, got["sessionId"], s.SessionID)
}

func TestRotateSessionID(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /api/Sessions/UpdateSessionIdByUserId/{id}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "7", r.PathValue("id"))
		writeJSON(w, http.StatusOK, map[string]string{"sessionId": "s-new"})
	})
	cl := newTestClient(t, mux)

	sid, err := cl.RotateSessionID(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "s-new", sid)
}

func TestGetSessionByUserID_NotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/Sessions/GetSessionByUserId/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	cl := newTestClient(t, mux)

	_, err := cl.GetSessionByUserID(context.Background(), 7)
	assert.True(t, utils.IsCode(err, utils.CodeNotFound))
}

func TestListChatBySession_ToleratesDirectoryDates(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/ChatHistory/session/{sid}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[{"sessionId":"s1","userId":7,"role":"User","message":"hi",
			"updatedDateTime":"2024-05-01T10:00:00.1234567","cachingEnabled":true,"routingEnabled":"false"}]`)
	})
	cl := newTestClient(t, mux)

	msgs, err := cl.ListChatBySession(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, 2024, msgs[0].UpdatedDateTime.Year())
	assert.True(t, bool(msgs[0].CachingEnabled))
	assert.False(t, bool(msgs[0].RoutingEnabled))
}

func TestDepartmentIDByCategory(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/Department/GetDepartmentIdByCategoryId/{id}", func(w http.ResponseWriter, r *http.Request) {
		switch r.PathValue("id") {
		case "1":
			writeJSON(w, http.StatusOK, map[string]int{"departmentId": 4})
		case "2":
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, "null")
		default:
			w.WriteHeader(http.StatusOK)
		}
	})
	cl := newTestClient(t, mux)
	ctx := context.Background()

	id, err := cl.DepartmentIDByCategory(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(4), id)

	_, err = cl.DepartmentIDByCategory(ctx, 2)
	assert.True(t, utils.IsCode(err, utils.CodeNotFound))

	_, err = cl.DepartmentIDByCategory(ctx, 3)
	assert.True(t, utils.IsCode(err, utils.CodeNotFound))
}

func TestSearchCategories_PassesName(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/Category/search", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("name") == "Finance & Ops" {
			writeJSON(w, http.StatusOK, []models.Category{{ID: 5, Name: "Finance & Ops"}})
			return
		}
		writeJSON(w, http.StatusOK, []models.Category{})
	})
	cl := newTestClient(t, mux)

	cats, err := cl.SearchCategories(context.Background(), "Finance & Ops")
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, int64(5), cats[0].ID)
}

func TestRegisterVectorStore_Conflict(t *testing.T) {
	var body map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/VectorStore", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusConflict)
	})
	cl := newTestClient(t, mux)

	_, err := cl.RegisterVectorStore(context.Background(), models.VectorStoreRegistration{VectorIndex: "docs", Type: "Qdrant", DepartmentID: 2})
	assert.True(t, utils.IsCode(err, utils.CodeConflict))
	assert.Equal(t, "docs", body["VectorIndex"])
	assert.Equal(t, "Qdrant", body["Type"])
}

func TestServerFaultAndNetworkFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/Department", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	cl := newTestClient(t, mux)

	_, err := cl.ListDepartments(context.Background())
	assert.True(t, utils.IsCode(err, utils.CodeServerFault))

	dead := New("http://127.0.0.1:1/api", 500*time.Millisecond, logger.Discard())
	_, err = dead.ListDepartments(context.Background())
	assert.True(t, utils.IsCode(err, utils.CodeNetworkFailure))
}

func TestListDepartments_BadShapeIsProtocolMismatch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/Department", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, "<html>maintenance</html>")
	})
	cl := newTestClient(t, mux)

	_, err := cl.ListDepartments(context.Background())
	assert.True(t, utils.IsCode(err, utils.CodeProtocolMismatch))
}

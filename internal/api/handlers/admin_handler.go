package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/vartik/vartikgpt/internal/models"
	"github.com/vartik/vartikgpt/internal/repositories"
	"github.com/vartik/vartikgpt/internal/services"
	"github.com/vartik/vartikgpt/internal/utils"
)

type DepartmentHandler struct {
	svc services.DepartmentService
}

func NewDepartmentHandler(svc services.DepartmentService) *DepartmentHandler {
	return &DepartmentHandler{svc: svc}
}

type CreateDepartmentRequest struct {
	Name       string `json:"name" binding:"required"`
	PromptFile string `json:"promptFile"`
}

func (h *DepartmentHandler) List(c *gin.Context) {
	cat, err := h.svc.Catalog(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cat)
}

func (h *DepartmentHandler) Create(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	var req CreateDepartmentRequest
	if !bindJSON(c, "DepartmentHandler.Create", &req) {
		return
	}
	dep, err := h.svc.Create(c.Request.Context(), owner, req.Name, req.PromptFile)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dep)
}

// Delete needs ?confirm=true.
func (h *DepartmentHandler) Delete(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(c, utils.E(utils.CodeInvalidArgument, "DepartmentHandler.Delete", "invalid department id", err))
		return
	}
	confirmed, _ := strconv.ParseBool(c.Query("confirm"))

	res, err := h.svc.Delete(c.Request.Context(), owner, id, confirmed)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(phasedStatus(res.Deleted), res)
}

type IndexHandler struct {
	svc services.VectorIndexService
}

func NewIndexHandler(svc services.VectorIndexService) *IndexHandler {
	return &IndexHandler{svc: svc}
}

func (h *IndexHandler) List(c *gin.Context) {
	names, err := h.svc.List(c.Request.Context(), c.Query("store"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"store": c.Query("store"), "indexes": names})
}

func (h *IndexHandler) Create(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	var spec models.IndexSpec
	if !bindJSON(c, "IndexHandler.Create", &spec) {
		return
	}
	res, err := h.svc.Create(c.Request.Context(), owner, spec)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(phasedStatus(res.Created), res)
}

func (h *IndexHandler) Delete(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	res, err := h.svc.Delete(c.Request.Context(), owner, c.Param("store"), c.Param("name"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(phasedStatus(res.Deleted), res)
}

// phasedStatus is 200 when the main effect happened and 207 when the phases only partly succeeded.
func phasedStatus(done bool) int {
	if done {
		return http.StatusOK
	}
	return http.StatusMultiStatus
}

type AuditHandler struct {
	repo repositories.AuditRepository
}

func NewAuditHandler(repo repositories.AuditRepository) *AuditHandler {
	return &AuditHandler{repo: repo}
}

func (h *AuditHandler) List(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 || limit > 500 {
		limit = 50
	}
	recs, err := h.repo.List(c.Request.Context(), limit)
	if err != nil {
		writeError(c, utils.E(utils.CodeUnavailable, "AuditHandler.List", "audit ledger unavailable", err))
		return
	}
	if recs == nil {
		recs = []models.AuditRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"records": recs})
}

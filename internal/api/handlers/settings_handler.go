package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vartik/vartikgpt/internal/api/middleware"
	"github.com/vartik/vartikgpt/internal/models"
	"github.com/vartik/vartikgpt/internal/services"
)

type SettingsHandler struct {
	svc services.SettingsService
}

func NewSettingsHandler(svc services.SettingsService) *SettingsHandler {
	return &SettingsHandler{svc: svc}
}

func (h *SettingsHandler) Get(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	view, err := h.svc.Load(c.Request.Context(), owner)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *SettingsHandler) Patch(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	var patch services.SettingsPatch
	if !bindJSON(c, "SettingsHandler.Patch", &patch) {
		return
	}
	res, err := h.svc.Edit(c.Request.Context(), owner, patch)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *SettingsHandler) Indexes(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	d, err := h.svc.DiscoverIndexes(c.Request.Context(), owner, c.Query("store"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *SettingsHandler) Save(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	fd, err := h.svc.Save(c.Request.Context(), owner)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"formData": fd})
}

func (h *SettingsHandler) SaveParameters(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	fd, err := h.svc.SaveParameters(c.Request.Context(), owner)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"formData": fd})
}

func (h *SettingsHandler) Tabs(c *gin.Context) {
	if _, ok := requireOwner(c); !ok {
		return
	}
	dep := c.GetString(middleware.KeyDepartment)
	c.JSON(http.StatusOK, gin.H{
		"tabs":    models.SettingsTabs(dep),
		"isAdmin": models.IsAdminDepartment(dep),
	})
}

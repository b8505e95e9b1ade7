package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	httpapi "github.com/4ndr33w/projecthub-backend/internal/api/http"
	"github.com/4ndr33w/projecthub-backend/internal/projects/domain"
)

type createReq struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       []byte `json:"image"`
	AdminID     string `json:"admin_id"`
	Status      string `json:"status"`
}

func (h *Handler) create(c *gin.Context) {
	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	project, err := h.svc.Create(c.Request.Context(), domain.CreateProjectRequest{
		Name:        req.Name,
		Description: req.Description,
		Image:       req.Image,
		AdminID:     req.AdminID,
		Status:      domain.Status(req.Status),
	})
	if err != nil {
		httpapi.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"ok": true, "project": project})
}

// listByAdmin serves GET /projects?admin_id=… with fully aggregated
// projects. The future resolves on the worker pool; the handler only waits.
func (h *Handler) listByAdmin(c *gin.Context) {
	adminID := strings.TrimSpace(c.Query("admin_id"))
	if adminID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "admin_id query parameter is required"})
		return
	}

	aggs, err := h.agg.GetProjectsByAdmin(c.Request.Context(), adminID).Wait(c.Request.Context())
	if err != nil {
		httpapi.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "projects": aggs})
}

func (h *Handler) listByUser(c *gin.Context) {
	aggs, err := h.agg.GetProjectsByUser(c.Request.Context(), c.Param("id")).Wait(c.Request.Context())
	if err != nil {
		httpapi.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "projects": aggs})
}

func (h *Handler) get(c *gin.Context) {
	agg, err := h.agg.GetProjectByID(c.Request.Context(), c.Param("id")).Wait(c.Request.Context())
	if err != nil {
		httpapi.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": agg})
}

type updateReq struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       []byte `json:"image"`
	Status      string `json:"status"`
}

func (h *Handler) update(c *gin.Context) {
	var req updateReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	project, err := h.svc.Update(c.Request.Context(), c.Param("id"), domain.UpdateProjectRequest{
		Name:        req.Name,
		Description: req.Description,
		Image:       req.Image,
		Status:      domain.Status(req.Status),
	})
	if err != nil {
		httpapi.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "project": project})
}

func (h *Handler) delete(c *gin.Context) {
	removed, err := h.svc.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		httpapi.Error(c, err)
		return
	}
	if !removed {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "project not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type addMemberReq struct {
	UserID string `json:"user_id"`
}

func (h *Handler) addMember(c *gin.Context) {
	var req addMemberReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.UserID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	agg, err := h.agg.AddUserToProject(c.Request.Context(), req.UserID, c.Param("id")).Wait(c.Request.Context())
	if err != nil {
		httpapi.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": agg})
}

func (h *Handler) removeMember(c *gin.Context) {
	agg, err := h.agg.RemoveUserFromProject(c.Request.Context(), c.Param("user_id"), c.Param("id")).Wait(c.Request.Context())
	if err != nil {
		httpapi.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": agg})
}

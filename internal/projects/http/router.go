package http

import (
	"github.com/gin-gonic/gin"

	"github.com/4ndr33w/projecthub-backend/internal/projects/service"
)

type Handler struct {
	svc *service.ProjectService
	agg *service.AggregationService
}

func Register(rg *gin.RouterGroup, svc *service.ProjectService, agg *service.AggregationService) {
	h := &Handler{svc: svc, agg: agg}

	rg.POST("", h.create)
	rg.GET("", h.listByAdmin)
	rg.GET("/:id", h.get)
	rg.PUT("/:id", h.update)
	rg.DELETE("/:id", h.delete)

	rg.POST("/:id/members", h.addMember)
	rg.DELETE("/:id/members/:user_id", h.removeMember)
}

// RegisterUserSubroutes mounts the project views that hang off a user, e.g.
// GET /users/:id/projects.
func RegisterUserSubroutes(users *gin.RouterGroup, agg *service.AggregationService) {
	h := &Handler{agg: agg}
	users.GET("/:id/projects", h.listByUser)
}

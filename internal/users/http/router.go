package http

import (
	"github.com/gin-gonic/gin"

	"github.com/4ndr33w/projecthub-backend/internal/users/service"
)

type Handler struct {
	svc *service.UserService
}

func Register(rg *gin.RouterGroup, svc *service.UserService) {
	h := &Handler{svc: svc}

	rg.POST("", h.create)
	rg.GET("/:id", h.get)
	rg.PUT("/:id", h.update)
	rg.DELETE("/:id", h.delete)
	rg.POST("/:id/verify-password", h.verifyPassword)
}

package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/4ndr33w/projecthub-backend/internal/apperr"
)

// Error translates the closed error taxonomy into an HTTP response. Unknown
// errors deliberately leak no detail.
func Error(c *gin.Context, err error) {
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": err.Error()})
	case apperr.KindAlreadyExists:
		c.JSON(http.StatusConflict, gin.H{"ok": false, "error": err.Error()})
	case apperr.KindInvalidOperation:
		c.JSON(http.StatusUnprocessableEntity, gin.H{"ok": false, "error": err.Error()})
	case apperr.KindPersistence, apperr.KindMapping:
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "storage failure"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "internal error"})
	}
}

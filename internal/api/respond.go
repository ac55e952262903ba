package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"familytree/internal/service/errs"
	"familytree/pkg/rbac"
)

// respondError maps service-layer errors onto HTTP status codes.
func respondError(c *gin.Context, err error) {
	var vErr *errs.ValidationError
	if errors.As(err, &vErr) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "validation failed",
			"fields": vErr.Fields,
		})
		return
	}

	var permErr *rbac.PermissionDeniedError
	if errors.As(err, &permErr) {
		c.JSON(http.StatusForbidden, gin.H{"error": permErr.Error()})
		return
	}

	switch {
	case errors.Is(err, errs.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, errs.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// actorFrom rebuilds the caller identity stored by AuthMiddleware.
func actorFrom(c *gin.Context) (string, string, bool) {
	userID, ok := c.Get("user_id")
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return "", "", false
	}
	role, _ := c.Get("role")
	uid, _ := userID.(string)
	r, _ := role.(string)
	return uid, r, true
}

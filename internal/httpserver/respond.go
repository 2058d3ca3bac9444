package httpserver

import (
	"errors"
	"net/http"

	"tortaskeia-api/internal/domain"

	"github.com/gin-gonic/gin"
)

// writeError maps domain errors onto HTTP status codes. Unrecognized errors
// become opaque 500s so internals never leak.
func writeError(c *gin.Context, err error) {
	var capErr *domain.CapacityError
	if errors.As(err, &capErr) {
		c.JSON(http.StatusConflict, gin.H{
			"error":     capErr.Error(),
			"day":       capErr.Day.Format("2006-01-02"),
			"remaining": capErr.Remaining,
		})
		return
	}

	var gwErr *domain.GatewayError
	if errors.As(err, &gwErr) {
		c.JSON(http.StatusBadGateway, gin.H{"error": "payment gateway error"})
		return
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, domain.ErrAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": "already exists"})
	case errors.Is(err, domain.ErrIdentityRequired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "login or X-Session-ID header required"})
	case errors.Is(err, domain.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
	case errors.Is(err, domain.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
	case errors.Is(err, domain.ErrEmptyCart),
		errors.Is(err, domain.ErrInvalidCustomItem),
		errors.Is(err, domain.ErrInvalidRange):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrAlreadyProcessed),
		errors.Is(err, domain.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrGatewayUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "payment gateway not configured"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

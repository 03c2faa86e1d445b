package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	domainerr "github.com/amirhossein-jamali/wallet-gateway/internal/domain/error"
	coreport "github.com/amirhossein-jamali/wallet-gateway/internal/domain/port/core"
	"github.com/amirhossein-jamali/wallet-gateway/internal/infrastructure/adapter/api/dto"
)

// ErrorHandler middleware recovers from panics and returns the error envelope
func ErrorHandler(logger coreport.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("Panic recovered in API request", map[string]any{
					"error":      err,
					"path":       c.Request.URL.Path,
					"method":     c.Request.Method,
					"client_ip":  c.ClientIP(),
					"request_id": c.GetHeader("X-Request-ID"),
					"user_agent": c.Request.UserAgent(),
				})

				c.AbortWithStatusJSON(http.StatusInternalServerError, dto.ProviderResponse{
					Status: "ERROR",
					Error:  "Internal server error",
					Code:   domainerr.ErrorCode(domainerr.ErrInternalServer),
				})
			}
		}()

		c.Next()
	}
}

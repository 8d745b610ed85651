package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joshu-sajeev/destinations/common"
	"github.com/joshu-sajeev/destinations/internal/logger"
)

func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err

		var apiErr common.APIError
		if errors.As(err, &apiErr) {
			status := apiErr.Status
			if status == 0 {
				status = http.StatusInternalServerError
			}
			if status >= http.StatusInternalServerError {
				logger.FromGin(c).Error().Err(err).Int("status", status).Msg("request failed")
			}
			c.JSON(status, apiErr)
			return
		}

		logger.FromGin(c).Error().Err(err).Int("status", http.StatusInternalServerError).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/joshu-sajeev/destinations/common"
)

var validate = validator.New()

// Bind decodes the JSON body into dest and validates it. On failure the error
// is recorded on c and false is returned.
func Bind[T any](c *gin.Context, dest *T) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		c.Error(common.APIError{
			Status:  http.StatusBadRequest,
			Code:    common.CodeInvalidInput,
			Message: "invalid json: " + err.Error(),
		})
		return false
	}

	if err := validate.Struct(dest); err != nil {
		c.Error(common.APIError{
			Status:  http.StatusBadRequest,
			Code:    common.CodeInvalidInput,
			Message: "validation failed",
			Fields:  common.FormatValidationErrors(err),
		})
		return false
	}

	return true
}

package v1

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/desofme/bank/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// resultResponse writes the envelope with its own code as the HTTP status.
func resultResponse[T any](c *gin.Context, res domain.Result[T]) {
	c.JSON(res.Code, res)
}

func validationErrorResponse(c *gin.Context, err error) {
	response := ValidationErrorStruct{
		ErrorCode:    ValidationErrorCode,
		ErrorMessage: "Validation error",
	}

	var verr validator.ValidationErrors
	if errors.As(err, &verr) {
		out := make([]ValidationError, len(verr))
		for i, ferr := range verr {
			out[i] = ValidationError{ferr.Field(), msgForTag(ferr.Tag(), ferr.Param())}
		}
		response.Errors = out
	} else {
		response.ErrorMessage = "Malformed request body"
	}

	c.AbortWithStatusJSON(http.StatusBadRequest, response)
}

func msgForTag(tag string, value string) string {
	switch tag {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "min":
		return fmt.Sprintf("Minimum length is %v", value)
	case "max":
		return fmt.Sprintf("Maximum length is %v", value)
	case "maxbytes":
		return fmt.Sprintf("Maximum length is %v bytes", value)
	case "pin":
		return "Pin must contain only latin letters and digits"
	}
	return tag
}

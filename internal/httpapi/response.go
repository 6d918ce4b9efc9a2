package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"callcenter-api/internal/apperr"
	"callcenter-api/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Envelope is the body of every JSON response.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

const internalErrorMessage = "Internal server error"

func init() {
	// Report json names in validation messages.
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return f.Name
		})
	}
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

func created(c *gin.Context, message string, data any) {
	c.JSON(http.StatusCreated, Envelope{Success: true, Message: message, Data: data})
}

func okMessage(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, Envelope{Success: true, Message: message, Data: data})
}

func statusOf(k apperr.Kind) int {
	switch k {
	case apperr.KindValidation, apperr.KindConflict, apperr.KindNoEligibleAgents:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as an envelope. Persistence failures are logged with the
// request logger and reported with a generic message only.
func fail(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := statusOf(kind)
	msg := apperr.MessageOf(err)
	if status == http.StatusInternalServerError {
		logger.FromGin(c).Error("request failed", "kind", string(kind), "err", err)
		msg = internalErrorMessage
	}
	c.AbortWithStatusJSON(status, Envelope{Success: false, Message: msg})
}

// bindJSON decodes the body into dst and writes a 400 on failure.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		fail(c, apperr.Validation(bindingMessage(err)))
		return false
	}
	return true
}

func bindQuery(c *gin.Context, dst any) bool {
	if err := c.ShouldBindQuery(dst); err != nil {
		fail(c, apperr.Validation(bindingMessage(err)))
		return false
	}
	return true
}

func bindingMessage(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		fe := ve[0]
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			return field + " is required"
		case "oneof":
			return fmt.Sprintf("%s must be one of %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
		case "min":
			return fmt.Sprintf("%s must be at least %s", field, fe.Param())
		case "gte":
			return fmt.Sprintf("%s must be %s or more", field, fe.Param())
		case "email":
			return field + " must be a valid email"
		default:
			return field + " is invalid"
		}
	}
	if errors.Is(err, io.EOF) {
		return "Request body is required"
	}
	return "Invalid JSON body"
}

// paramID parses a positive integer path parameter.
func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		fail(c, apperr.Validation("Invalid "+name))
		return 0, false
	}
	return id, true
}

func queryID(c *gin.Context, name string) (int64, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		fail(c, apperr.Validation("Invalid "+name))
		return 0, false
	}
	return id, true
}

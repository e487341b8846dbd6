package apierrors

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/justsurfingit/jobtracker/internal/logger"
)

const sanitizedMessage = "internal server error"

// Body is the wire shape of every error response.
type Body struct {
	Error        string            `json:"error"`
	Code         Code              `json:"code"`
	FieldErrors  map[string]string `json:"fieldErrors,omitempty"`
	RetryAfterMs int64             `json:"retryAfterMs,omitempty"`
	Details      string            `json:"details,omitempty"`
}

// Respond aborts the request with err. Internal failures are logged with full
// detail; in release mode the caller only sees a generic message.
func Respond(c *gin.Context, err error) {
	apiErr := As(err)
	body := Body{
		Error:       apiErr.Message,
		Code:        apiErr.Code,
		FieldErrors: apiErr.Fields,
	}

	if apiErr.Code == CodeTooManyRequests {
		body.RetryAfterMs = apiErr.RetryAfter.Milliseconds()
		secs := int64(math.Ceil(apiErr.RetryAfter.Seconds()))
		c.Header("Retry-After", strconv.FormatInt(secs, 10))
	}

	if apiErr.Code == CodeInternal {
		logger.FromContext(c).Errorw("request failed", "error", err)
		if gin.Mode() == gin.ReleaseMode {
			body.Error = sanitizedMessage
		} else if apiErr.Err != nil {
			body.Details = apiErr.Err.Error()
		}
	}

	c.AbortWithStatusJSON(apiErr.Code.Status(), body)
}

// FromBinding converts a gin binding failure into BAD_REQUEST, flattening
// validator errors into a field-error map.
func FromBinding(err error) *Error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return BadRequest("invalid request body: " + err.Error())
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[jsonFieldName(fe)] = fieldMessage(fe)
	}
	return &Error{Code: CodeBadRequest, Message: "validation failed", Fields: fields}
}

func jsonFieldName(fe validator.FieldError) string {
	name := fe.Field()
	if name == "" {
		return fe.StructField()
	}
	return strings.ToLower(name[:1]) + name[1:]
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	case "url":
		return "must be a valid URL"
	case "uuid":
		return "must be a valid identifier"
	default:
		return "is invalid (" + fe.Tag() + ")"
	}
}

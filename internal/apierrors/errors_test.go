package apierrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func respondWith(t *testing.T, err error) (*httptest.ResponseRecorder, Body) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	Respond(c, err)

	var body Body
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestCodeStatus(t *testing.T) {
	cases := map[Code]int{
		CodeUnauthorized:    http.StatusUnauthorized,
		CodeForbidden:       http.StatusForbidden,
		CodeNotFound:        http.StatusNotFound,
		CodeTooManyRequests: http.StatusTooManyRequests,
		CodeBadRequest:      http.StatusBadRequest,
		CodeInternal:        http.StatusInternalServerError,
	}
	for code, status := range cases {
		assert.Equal(t, status, code.Status(), string(code))
	}
}

func TestRespond(t *testing.T) {
	t.Run("forbidden", func(t *testing.T) {
		w, body := respondWith(t, Forbidden(""))
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, CodeForbidden, body.Code)
		assert.Equal(t, "access denied", body.Error)
	})

	t.Run("wrapped errors keep their code", func(t *testing.T) {
		w, body := respondWith(t, fmt.Errorf("loading profile: %w", NotFound("profile")))
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "profile not found", body.Error)
	})

	t.Run("too many requests carries retry hint", func(t *testing.T) {
		w, body := respondWith(t, TooManyRequests(1500*time.Millisecond))
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, int64(1500), body.RetryAfterMs)
		assert.Equal(t, "2", w.Header().Get("Retry-After"))
	})

	t.Run("unknown errors are internal with details outside release mode", func(t *testing.T) {
		w, body := respondWith(t, Internal("load jobs", errors.New("connection refused")))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "failed to load jobs", body.Error)
		assert.Equal(t, "connection refused", body.Details)
	})

	t.Run("release mode sanitizes internal errors", func(t *testing.T) {
		gin.SetMode(gin.ReleaseMode)
		defer gin.SetMode(gin.TestMode)

		_, body := respondWith(t, errors.New("pq: password authentication failed"))
		assert.Equal(t, sanitizedMessage, body.Error)
		assert.Empty(t, body.Details)
		assert.Equal(t, CodeInternal, body.Code)
	})
}

type signupForm struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

func TestFromBinding(t *testing.T) {
	t.Run("flattens validation errors", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"nope","password":"short"}`))
		c.Request.Header.Set("Content-Type", "application/json")

		var form signupForm
		err := c.ShouldBindJSON(&form)
		require.Error(t, err)

		apiErr := FromBinding(err)
		assert.Equal(t, CodeBadRequest, apiErr.Code)
		assert.Equal(t, "must be a valid email address", apiErr.Fields["email"])
		assert.Equal(t, "must be at least 8", apiErr.Fields["password"])
	})

	t.Run("malformed json has no field errors", func(t *testing.T) {
		apiErr := FromBinding(errors.New("unexpected EOF"))
		assert.Equal(t, CodeBadRequest, apiErr.Code)
		assert.Nil(t, apiErr.Fields)
	})
}

func TestHasCode(t *testing.T) {
	assert.True(t, HasCode(fmt.Errorf("x: %w", Unauthorized("")), CodeUnauthorized))
	assert.False(t, HasCode(errors.New("plain"), CodeUnauthorized))
}

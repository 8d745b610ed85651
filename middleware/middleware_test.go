package middleware

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
	"github.com/joshu-sajeev/destinations/common"
	"github.com/joshu-sajeev/destinations/internal/logger"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   map[string]any
	}{
		{
			name:       "api error with code and fields",
			err:        common.APIError{Status: http.StatusBadRequest, Code: common.CodeInvalidLookup, Message: "bad lookup", Fields: map[string]any{"traits": "failed required"}},
			wantStatus: http.StatusBadRequest,
			wantBody:   map[string]any{"error": "bad lookup", "code": "Invalid lookup", "fields": map[string]any{"traits": "failed required"}},
		},
		{
			name:       "wrapped api error",
			err:        fmt.Errorf("perform: %w", common.Errf(http.StatusNotFound, "delivery not found")),
			wantStatus: http.StatusNotFound,
			wantBody:   map[string]any{"error": "delivery not found"},
		},
		{
			name:       "plain error",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   map[string]any{"error": "boom"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(ErrorHandler())
			r.GET("/", func(c *gin.Context) {
				c.Error(tt.err)
			})

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantBody, body)
		})
	}
}

func TestErrorHandler_LogsServerErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantLog bool
	}{
		{name: "plain error", err: errors.New("boom"), wantLog: true},
		{name: "upstream 5xx", err: common.NewIntegrationError("boom", common.CodeUpstream, http.StatusBadGateway), wantLog: true},
		{name: "client error", err: common.Errf(http.StatusBadRequest, "boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf strings.Builder
			r := gin.New()
			r.Use(logger.Middleware(zerolog.New(&buf)), ErrorHandler())
			r.GET("/", func(c *gin.Context) {
				c.Error(tt.err)
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(logger.HeaderRequestID, "req-9")
			r.ServeHTTP(httptest.NewRecorder(), req)

			if tt.wantLog {
				assert.Contains(t, buf.String(), `"message":"request failed"`)
				assert.Contains(t, buf.String(), `"error":"boom"`)
				assert.Contains(t, buf.String(), `"request_id":"req-9"`)
			} else {
				assert.NotContains(t, buf.String(), "request failed")
			}
		})
	}
}

func TestBind(t *testing.T) {
	type request struct {
		Name  string `json:"name" validate:"required"`
		Count int    `json:"count" validate:"gte=0"`
	}

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantFields map[string]any
	}{
		{name: "valid", body: `{"name":"a","count":1}`, wantStatus: http.StatusOK},
		{name: "malformed", body: `{`, wantStatus: http.StatusBadRequest},
		{
			name:       "invalid",
			body:       `{"count":-1}`,
			wantStatus: http.StatusBadRequest,
			wantFields: map[string]any{"Name": "failed required", "Count": "failed gte"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(ErrorHandler())
			r.POST("/", func(c *gin.Context) {
				var req request
				if !Bind(c, &req) {
					return
				}
				c.JSON(http.StatusOK, req)
			})

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body)))

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantFields != nil {
				var body struct {
					Code   string         `json:"code"`
					Fields map[string]any `json:"fields"`
				}
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				assert.Equal(t, common.CodeInvalidInput, body.Code)
				assert.Equal(t, tt.wantFields, body.Fields)
			}
		})
	}
}

func TestTimeoutMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(TimeoutMiddleware(50 * time.Millisecond))

	var hasDeadline bool
	var remaining time.Duration
	r.GET("/", func(c *gin.Context) {
		var deadline time.Time
		deadline, hasDeadline = c.Request.Context().Deadline()
		remaining = time.Until(deadline)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, hasDeadline)
	assert.LessOrEqual(t, remaining, 50*time.Millisecond)
}

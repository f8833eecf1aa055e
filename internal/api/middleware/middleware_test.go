package middleware

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"transcribe4all/internal/api/errors"
	apperrors "transcribe4all/internal/app/errors"
)

type observed struct {
	method, route, code string
}

type recordingObserver struct {
	mu    sync.Mutex
	calls []observed
}

func (o *recordingObserver) ObserveHTTP(method, route, code string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, observed{method, route, code})
}

type nameRequest struct {
	Name  string `json:"name" binding:"required"`
	Limit int    `json:"limit" binding:"omitempty,max=10"`
}

func (r *nameRequest) Validate() error {
	if strings.Contains(r.Name, "..") {
		return errors.NewValidationError("bad name", map[string]string{"name": "must not contain .."})
	}
	return nil
}

func newRouter(obs HTTPObserver) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), StructuredLogging(zap.NewNop(), obs), ErrorHandler(zap.NewNop()))
	r.POST("/names", func(c *gin.Context) {
		var req nameRequest
		if err := ValidateRequest(c, &req); err != nil {
			HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"name": req.Name})
	})
	r.GET("/missing", func(c *gin.Context) {
		HandleError(c, apperrors.Kind(apperrors.ErrInputNotFound, stderrors.New("open x.wav")))
	})
	r.GET("/boom", func(c *gin.Context) {
		panic("boom")
	})
	return r
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errors.APIError {
	t.Helper()
	var apiErr errors.APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr))
	return apiErr
}

func TestRequestID(t *testing.T) {
	r := newRouter(nil)

	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
	assert.Equal(t, "abc-123", decodeError(t, w).RequestID)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestValidateRequest(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		field  string
	}{
		{"valid", `{"name":"files/a"}`, http.StatusOK, ""},
		{"missing name", `{}`, http.StatusUnprocessableEntity, "name"},
		{"too large", `{"name":"a","limit":11}`, http.StatusUnprocessableEntity, "limit"},
		{"bad json", `{`, http.StatusUnprocessableEntity, "request"},
		{"domain rule", `{"name":"../a"}`, http.StatusUnprocessableEntity, "name"},
	}

	r := newRouter(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/names", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.field != "" {
				apiErr := decodeError(t, w)
				assert.Equal(t, errors.KindValidation, apiErr.Kind)
				assert.Contains(t, apiErr.Details, tt.field)
			}
		})
	}
}

func TestErrorHandler(t *testing.T) {
	r := newRouter(nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "input_not_found", decodeError(t, w).Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, errors.KindInternal, decodeError(t, w).Kind)
}

func TestStructuredLogging_ObservesRoutes(t *testing.T) {
	obs := &recordingObserver{}
	r := newRouter(obs)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	require.Len(t, obs.calls, 2)
	assert.Equal(t, observed{"GET", "/missing", "404"}, obs.calls[0])
	assert.Equal(t, observed{"GET", "unmatched", "404"}, obs.calls[1])
}

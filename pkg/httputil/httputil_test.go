package httputil

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sta4152/datahub/pkg/observability"
)

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteSuccess(rec, map[string]int{"aspects": 2}))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"aspects": 2}`, rec.Body.String())
}

func TestWriteErrors(t *testing.T) {
	tests := []struct {
		name   string
		write  func(w http.ResponseWriter)
		status int
		body   string
	}{
		{
			name:   "bad request",
			write:  func(w http.ResponseWriter) { WriteBadRequest(w, "invalid JSON") },
			status: http.StatusBadRequest,
			body:   `{"error": "invalid JSON"}`,
		},
		{
			name:   "not found",
			write:  func(w http.ResponseWriter) { WriteNotFoundError(w, "aspect x not found") },
			status: http.StatusNotFound,
			body:   `{"error": "aspect x not found"}`,
		},
		{
			name:   "unavailable",
			write:  func(w http.ResponseWriter) { WriteServiceUnavailable(w, "no snapshot") },
			status: http.StatusServiceUnavailable,
			body:   `{"error": "no snapshot"}`,
		},
		{
			name:   "internal",
			write:  func(w http.ResponseWriter) { WriteInternalError(w, errors.New("boom")) },
			status: http.StatusInternalServerError,
			body:   `{"error": "boom"}`,
		},
		{
			name: "detailed",
			write: func(w http.ResponseWriter) {
				WriteDetailedError(w, http.StatusUnprocessableEntity, errors.New("invalid"), map[string]string{"kind": "parse"})
			},
			status: http.StatusUnprocessableEntity,
			body:   `{"error": "invalid", "details": {"kind": "parse"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.write(rec)
			assert.Equal(t, tt.status, rec.Code)
			assert.JSONEq(t, tt.body, rec.Body.String())
		})
	}
}

func TestParseJSONOrError(t *testing.T) {
	var dest struct{ Name string }

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"Name": "a"}`))
	assert.True(t, ParseJSONOrError(rec, req, &dest))
	assert.Equal(t, "a", dest.Name)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
	assert.False(t, ParseJSONOrError(rec, req, &dest))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestParsePathString(t *testing.T) {
	req := mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"name": "ownership"})
	name, ok := ParsePathStringOrError(httptest.NewRecorder(), req, "name")
	assert.True(t, ok)
	assert.Equal(t, "ownership", name)

	rec := httptest.NewRecorder()
	_, ok = ParsePathStringOrError(rec, httptest.NewRequest(http.MethodGet, "/", nil), "name")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestParseQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?fieldName=a,b&fieldName=c&fieldName=&verbose=true", nil)
	assert.Equal(t, []string{"a", "b", "c"}, ParseQueryList(req, "fieldName"))
	assert.Empty(t, ParseQueryList(req, "missing"))

	v, err := ParseQueryBool(req, "verbose", false)
	require.NoError(t, err)
	assert.True(t, v)

	v, err = ParseQueryBool(req, "missing", true)
	require.NoError(t, err)
	assert.True(t, v)

	bad := httptest.NewRequest(http.MethodGet, "/?verbose=maybe", nil)
	_, err = ParseQueryBool(bad, "verbose", false)
	assert.Error(t, err)
}

func TestMiddlewareChain(t *testing.T) {
	var buf bytes.Buffer
	logger := observability.NewLogger(observability.InfoLevel, &buf)

	var seenID string
	handler := Chain(
		RequestIDMiddleware(logger),
		LoggingMiddleware,
		RecoveryMiddleware,
	)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = observability.GetRequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/aspects", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "req-42", seenID)
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "HTTP request", entry["msg"])
	assert.Equal(t, "req-42", entry["request_id"])
	assert.Equal(t, float64(http.StatusTeapot), entry["status"])
}

func TestRequestIDGenerated(t *testing.T) {
	handler := RequestIDMiddleware(observability.NewLogger(observability.InfoLevel, &bytes.Buffer{}))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}),
	)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, rec.Header().Get("X-Request-ID"), 36)
}

func TestRecoveryMiddleware(t *testing.T) {
	handler := RecoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(observability.WithLogger(req.Context(), observability.NewLogger(observability.InfoLevel, &bytes.Buffer{})))
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error": "internal server error"}`, rec.Body.String())
}

func TestMaxBytesMiddleware(t *testing.T) {
	handler := MaxBytesMiddleware(4)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var v interface{}
		if !ParseJSONOrError(w, r, &v) {
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"too": "long"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

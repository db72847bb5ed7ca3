package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sta4152/datahub/pkg/httputil"
	"github.com/sta4152/datahub/pkg/observability"
	"github.com/sta4152/datahub/pkg/registry"
	"github.com/sta4152/datahub/pkg/storage"
	"github.com/sta4152/datahub/pkg/storage/sqlstore"
)

const profileJSON = `{
  "type": "record",
  "name": "CorpUserProfile",
  "namespace": "com.example",
  "Aspect": {"name": "corpUserProfile"},
  "fields": [
    {"name": "profile", "type": {"type": "record", "name": "Profile", "fields": [
      {"name": "email", "type": "string", "Searchable": {"fieldType": "KEYWORD"}}
    ]}},
    {"name": "tags", "type": {"type": "array", "items": "string"}, "Searchable": {"/*": {"fieldName": "tags", "fieldType": "KEYWORD", "addToFilters": true}}}
  ]
}`

const duplicateJSON = `{
  "type": "record", "name": "Dup", "Aspect": {"name": "dup"},
  "fields": [
    {"name": "a", "type": {"type": "record", "name": "A", "fields": [{"name": "name", "type": "string", "Searchable": {}}]}},
    {"name": "b", "type": {"type": "record", "name": "B", "fields": [{"name": "name", "type": "string", "Searchable": {}}]}}
  ]
}`

type staticSource struct {
	mu   sync.Mutex
	docs []registry.Document
	err  error
}

func (s *staticSource) Documents(context.Context) ([]registry.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.docs, s.err
}

func (s *staticSource) String() string { return "static" }

type testServer struct {
	server   *Server
	registry *registry.Registry
	source   *staticSource
}

func newTestServer(t *testing.T, load bool, store storage.SpecStore) *testServer {
	t.Helper()

	logger := observability.NewLogger(observability.ErrorLevel, &bytes.Buffer{})
	promRegistry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(promRegistry)

	src := &staticSource{docs: []registry.Document{{Name: "profile.json", Content: []byte(profileJSON)}}}
	reg, err := registry.New(registry.Options{Source: src, Store: store, Metrics: metrics, Logger: logger})
	require.NoError(t, err)
	if load {
		_, err := reg.Load(context.Background(), registry.TriggerStartup)
		require.NoError(t, err)
	}

	health := observability.NewHealthChecker("test")
	health.Register("registry", true, reg.Ready)

	return &testServer{
		server: NewServer(reg, Options{
			Store:           store,
			Metrics:         metrics,
			MetricsRegistry: promRegistry,
			Health:          health,
			Logger:          logger,
		}),
		registry: reg,
		source:   src,
	}
}

func (ts *testServer) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	ts.server.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestListAspects(t *testing.T) {
	ts := newTestServer(t, true, nil)

	rec := ts.do(t, http.MethodGet, "/api/v1/aspects", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[ListAspectsResponse](t, rec)
	assert.Equal(t, ts.registry.Snapshot().ID, resp.SnapshotID)
	require.Len(t, resp.Aspects, 1)
	assert.Equal(t, AspectSummary{
		Name:       "corpUserProfile",
		SchemaName: "com.example.CorpUserProfile",
		Source:     "profile.json",
		FieldCount: 2,
	}, resp.Aspects[0])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestGetAspect(t *testing.T) {
	ts := newTestServer(t, true, nil)

	rec := ts.do(t, http.MethodGet, "/api/v1/aspects/corpUserProfile", "")
	require.Equal(t, http.StatusOK, rec.Code)
	aspect := decode[storage.AspectRecord](t, rec)
	require.Len(t, aspect.Fields, 2)
	assert.Equal(t, "/profile/email", aspect.Fields[0].Path)
	assert.Equal(t, "email", aspect.Fields[0].FieldName)
	assert.Equal(t, "/tags/*", aspect.Fields[1].Path)
	assert.Equal(t, "tags", aspect.Fields[1].FieldName)

	rec = ts.do(t, http.MethodGet, "/api/v1/aspects/corpUserProfile/searchable-fields", "")
	require.Equal(t, http.StatusOK, rec.Code)
	fields := decode[FieldsResponse](t, rec)
	assert.Len(t, fields.Fields, 2)

	rec = ts.do(t, http.MethodGet, "/api/v1/aspects/unknown", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNoSnapshot(t *testing.T) {
	ts := newTestServer(t, false, nil)

	for _, target := range []string{"/api/v1/aspects", "/api/v1/aspects/x", "/api/v1/snapshot", "/api/v1/searchable-fields?fieldName=email"} {
		rec := ts.do(t, http.MethodGet, target, "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, target)
	}

	rec := ts.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestFindFieldsFromSnapshot(t *testing.T) {
	ts := newTestServer(t, true, nil)

	rec := ts.do(t, http.MethodGet, "/api/v1/searchable-fields?fieldName=tags,missing", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[FieldsResponse](t, rec)
	require.Len(t, resp.Fields, 1)
	assert.Equal(t, "/tags/*", resp.Fields[0].Path)

	rec = ts.do(t, http.MethodGet, "/api/v1/searchable-fields?fieldName=tags&fieldName=email&filterable=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decode[FieldsResponse](t, rec)
	require.Len(t, resp.Fields, 1)
	assert.Equal(t, "tags", resp.Fields[0].FieldName)

	rec = ts.do(t, http.MethodGet, "/api/v1/searchable-fields", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/searchable-fields?fieldName=tags&filterable=maybe", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFindFieldsFromStore(t *testing.T) {
	store, err := sqlstore.Open(context.Background(), sqlstore.Config{Dialect: sqlstore.SQLite, DSN: ":memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ts := newTestServer(t, true, store)

	rec := ts.do(t, http.MethodGet, "/api/v1/searchable-fields?fieldName=email", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[FieldsResponse](t, rec)
	require.Len(t, resp.Fields, 1)
	assert.Equal(t, "corpUserProfile", resp.Fields[0].Aspect)
	assert.Equal(t, "/profile/email", resp.Fields[0].Path)

	rec = ts.do(t, http.MethodGet, "/api/v1/searchable-fields?fieldName=none", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"fields": []}`, rec.Body.String())
}

func TestSnapshotAndReload(t *testing.T) {
	ts := newTestServer(t, true, nil)
	first := ts.registry.Snapshot()

	rec := ts.do(t, http.MethodGet, "/api/v1/snapshot", "")
	require.Equal(t, http.StatusOK, rec.Code)
	info := decode[SnapshotInfo](t, rec)
	assert.Equal(t, first.ID, info.ID)
	assert.Equal(t, 1, info.Aspects)
	assert.Equal(t, 2, info.Fields)
	assert.Equal(t, "static", info.Source)

	ts.source.mu.Lock()
	ts.source.docs = append(ts.source.docs, registry.Document{Name: "dup.json", Content: []byte(duplicateJSON)})
	ts.source.mu.Unlock()

	rec = ts.do(t, http.MethodPost, "/api/v1/reload", "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	errResp := decode[httputil.ErrorResponse](t, rec)
	assert.Equal(t, "duplicate_name", errResp.Details["kind"])
	assert.Equal(t, "/b/name", errResp.Details["path"])
	assert.Same(t, first, ts.registry.Snapshot())

	ts.source.mu.Lock()
	ts.source.err = errors.New("source offline")
	ts.source.mu.Unlock()
	rec = ts.do(t, http.MethodPost, "/api/v1/reload", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestValidate(t *testing.T) {
	ts := newTestServer(t, false, nil)

	body, err := json.Marshal(ValidateRequest{Documents: []ValidateDocument{{Name: "profile.json", Content: profileJSON}}})
	require.NoError(t, err)

	rec := ts.do(t, http.MethodPost, "/api/v1/validate", string(body))
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[ValidateResponse](t, rec)
	assert.True(t, resp.Valid)
	require.Len(t, resp.Aspects, 1)
	assert.Len(t, resp.Aspects[0].Fields, 2)

	// validation never changes the served snapshot
	assert.Nil(t, ts.registry.Snapshot())
}

func TestValidateErrors(t *testing.T) {
	ts := newTestServer(t, false, nil)

	dup, err := json.Marshal(ValidateRequest{Documents: []ValidateDocument{{Name: "dup.json", Content: duplicateJSON}}})
	require.NoError(t, err)

	tests := []struct {
		name   string
		body   string
		status int
		kind   string
	}{
		{name: "malformed JSON", body: `{`, status: http.StatusBadRequest},
		{name: "no documents", body: `{"documents": []}`, status: http.StatusBadRequest},
		{name: "missing content", body: `{"documents": [{"name": "a.json"}]}`, status: http.StatusBadRequest},
		{name: "bad document", body: `{"documents": [{"name": "a.json", "content": "{not json"}]}`, status: http.StatusBadRequest},
		{name: "duplicate field name", body: string(dup), status: http.StatusUnprocessableEntity, kind: "duplicate_name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/api/v1/validate", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.kind != "" {
				resp := decode[httputil.ErrorResponse](t, rec)
				assert.Equal(t, tt.kind, resp.Details["kind"])
				assert.Contains(t, resp.Error, "Entity has multiple searchable fields with the same field name name")
			}
		})
	}
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t, true, nil)

	rec := ts.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	ts.do(t, http.MethodGet, "/api/v1/aspects", "")
	rec = ts.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `datahub_http_requests_total{method="GET",route="/api/v1/aspects",status="200"} 1`)
	assert.Contains(t, rec.Body.String(), "datahub_aspects_loaded 1")
}

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/sta4152/datahub/pkg/httputil"
	"github.com/sta4152/datahub/pkg/models"
	"github.com/sta4152/datahub/pkg/observability"
	"github.com/sta4152/datahub/pkg/registry"
	"github.com/sta4152/datahub/pkg/storage"
)

// snapshotOrError returns the served snapshot, writing 503 when there is none
func (s *Server) snapshotOrError(w http.ResponseWriter) (*storage.SnapshotRecord, bool) {
	snapshot := s.registry.Snapshot()
	if snapshot == nil {
		httputil.WriteServiceUnavailable(w, registry.ErrNoSnapshot.Error())
		return nil, false
	}
	return snapshot, true
}

func (s *Server) listAspects(w http.ResponseWriter, r *http.Request) {
	snapshot, ok := s.snapshotOrError(w)
	if !ok {
		return
	}

	resp := ListAspectsResponse{
		SnapshotID: snapshot.ID,
		Aspects:    make([]AspectSummary, 0, len(snapshot.Aspects)),
	}
	for _, a := range snapshot.Aspects {
		resp.Aspects = append(resp.Aspects, AspectSummary{
			Name:       a.Name,
			SchemaName: a.SchemaName,
			Source:     a.Source,
			FieldCount: len(a.Fields),
		})
	}
	httputil.WriteSuccess(w, resp)
}

func (s *Server) aspectOrError(w http.ResponseWriter, r *http.Request) (*storage.AspectRecord, bool) {
	name, ok := httputil.ParsePathStringOrError(w, r, "name")
	if !ok {
		return nil, false
	}
	aspect, err := s.registry.Aspect(name)
	switch {
	case errors.Is(err, registry.ErrNoSnapshot):
		httputil.WriteServiceUnavailable(w, err.Error())
		return nil, false
	case errors.Is(err, storage.ErrNotFound):
		httputil.WriteNotFoundError(w, fmt.Sprintf("aspect %s not found", name))
		return nil, false
	case err != nil:
		httputil.WriteInternalError(w, err)
		return nil, false
	}
	return aspect, true
}

func (s *Server) getAspect(w http.ResponseWriter, r *http.Request) {
	aspect, ok := s.aspectOrError(w, r)
	if !ok {
		return
	}
	httputil.WriteSuccess(w, aspect)
}

func (s *Server) getAspectFields(w http.ResponseWriter, r *http.Request) {
	aspect, ok := s.aspectOrError(w, r)
	if !ok {
		return
	}
	httputil.WriteSuccess(w, FieldsResponse{Fields: aspect.Fields})
}

// findFields looks fields up by index name in the store when one is
// configured, and in the served snapshot otherwise. filterable=true keeps only
// fields added to filters.
func (s *Server) findFields(w http.ResponseWriter, r *http.Request) {
	names := httputil.ParseQueryList(r, "fieldName")
	if len(names) == 0 {
		httputil.WriteBadRequest(w, "missing query parameter: fieldName")
		return
	}
	filterable, err := httputil.ParseQueryBool(r, "filterable", false)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	if s.store != nil {
		fields, err := s.store.SearchableFieldsByName(r.Context(), names)
		if err != nil {
			observability.FromContext(r.Context()).WithError(err).Error("Field lookup failed")
			httputil.WriteInternalError(w, fmt.Errorf("failed to look up searchable fields"))
			return
		}
		httputil.WriteSuccess(w, FieldsResponse{Fields: filterFields(fields, filterable)})
		return
	}

	snapshot, ok := s.snapshotOrError(w)
	if !ok {
		return
	}
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}
	fields := []storage.FieldRecord{}
	for _, a := range snapshot.Aspects {
		for _, f := range a.Fields {
			if wanted[f.FieldName] && (!filterable || f.Annotation.AddToFilters) {
				fields = append(fields, f)
			}
		}
	}
	httputil.WriteSuccess(w, FieldsResponse{Fields: fields})
}

func (s *Server) getSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshot, ok := s.snapshotOrError(w)
	if !ok {
		return
	}
	httputil.WriteSuccess(w, newSnapshotInfo(snapshot, s.registry.Source().String()))
}

func (s *Server) reload(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.registry.Load(r.Context(), registry.TriggerManual)
	if err != nil {
		writeBuildError(w, err, http.StatusInternalServerError)
		return
	}
	httputil.WriteSuccess(w, newSnapshotInfo(snapshot, s.registry.Source().String()))
}

func (s *Server) validateDocuments(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			details := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				details[fe.Namespace()] = fe.Tag()
			}
			httputil.WriteDetailedError(w, http.StatusBadRequest, fmt.Errorf("invalid validate request"), details)
			return
		}
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	docs := make([]registry.Document, 0, len(req.Documents))
	for _, d := range req.Documents {
		docs = append(docs, registry.Document{Name: d.Name, Content: []byte(d.Content)})
	}

	snapshot, err := registry.BuildSnapshot(r.Context(), docs, registry.BuildOptions{})
	if err != nil {
		writeBuildError(w, err, http.StatusBadRequest)
		return
	}
	httputil.WriteSuccess(w, ValidateResponse{
		Valid:    true,
		Digest:   snapshot.Digest,
		Aspects:  snapshot.Aspects,
		Warnings: snapshot.Warnings,
	})
}

// writeBuildError maps model validation failures to 422 and any other build
// failure to status
func writeBuildError(w http.ResponseWriter, err error, status int) {
	if mve, ok := models.AsModelValidationError(err); ok {
		httputil.WriteDetailedError(w, http.StatusUnprocessableEntity, err, map[string]string{
			"kind":    mve.Kind.String(),
			"path":    mve.Path.String(),
			"message": mve.Message,
		})
		return
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		httputil.WriteErrorMessage(w, http.StatusGatewayTimeout, err.Error())
		return
	}
	httputil.WriteError(w, status, err)
}

func filterFields(fields []storage.FieldRecord, filterable bool) []storage.FieldRecord {
	out := make([]storage.FieldRecord, 0, len(fields))
	for _, f := range fields {
		if !filterable || f.Annotation.AddToFilters {
			out = append(out, f)
		}
	}
	return out
}

package api

import (
	"time"

	"github.com/sta4152/datahub/pkg/storage"
)

// AspectSummary is one entry of the aspect listing
type AspectSummary struct {
	Name       string `json:"name"`
	SchemaName string `json:"schemaName"`
	Source     string `json:"source,omitempty"`
	FieldCount int    `json:"fieldCount"`
}

// ListAspectsResponse is returned by GET /api/v1/aspects
type ListAspectsResponse struct {
	SnapshotID string          `json:"snapshotId"`
	Aspects    []AspectSummary `json:"aspects"`
}

// SnapshotInfo describes the served snapshot
type SnapshotInfo struct {
	ID       string    `json:"id"`
	Digest   string    `json:"digest"`
	LoadedAt time.Time `json:"loadedAt"`
	Aspects  int       `json:"aspects"`
	Fields   int       `json:"fields"`
	Warnings []string  `json:"warnings,omitempty"`
	Source   string    `json:"source,omitempty"`
}

// FieldsResponse lists searchable fields
type FieldsResponse struct {
	Fields []storage.FieldRecord `json:"fields"`
}

// ValidateDocument is one schema document of a validate request
type ValidateDocument struct {
	Name    string `json:"name" validate:"required"`
	Content string `json:"content" validate:"required"`
}

// ValidateRequest is the body of POST /api/v1/validate
type ValidateRequest struct {
	Documents []ValidateDocument `json:"documents" validate:"required,min=1,dive"`
}

// ValidateResponse reports the aspects the documents would produce
type ValidateResponse struct {
	Valid    bool                   `json:"valid"`
	Digest   string                 `json:"digest"`
	Aspects  []storage.AspectRecord `json:"aspects"`
	Warnings []string               `json:"warnings,omitempty"`
}

func newSnapshotInfo(s *storage.SnapshotRecord, source string) SnapshotInfo {
	return SnapshotInfo{
		ID:       s.ID,
		Digest:   s.Digest,
		LoadedAt: s.LoadedAt,
		Aspects:  len(s.Aspects),
		Fields:   s.FieldCount(),
		Warnings: s.Warnings,
		Source:   source,
	}
}

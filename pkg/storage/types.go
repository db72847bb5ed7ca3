package storage

import (
	"time"

	"github.com/sta4152/datahub/pkg/annotation"
	"github.com/sta4152/datahub/pkg/models"
)

// SnapshotRecord is the persisted form of one registry load
type SnapshotRecord struct {
	ID       string         `json:"id"`
	Digest   string         `json:"digest"`
	LoadedAt time.Time      `json:"loadedAt"`
	Aspects  []AspectRecord `json:"aspects"`
	Warnings []string       `json:"warnings,omitempty"`
}

// AspectRecord is the persisted form of a models.AspectSpec
type AspectRecord struct {
	Name       string        `json:"name"`
	SchemaName string        `json:"schemaName"`
	Source     string        `json:"source,omitempty"`
	Fields     []FieldRecord `json:"searchableFields"`
	Warnings   []string      `json:"warnings,omitempty"`
}

// FieldRecord is the persisted form of a models.SearchableFieldSpec
type FieldRecord struct {
	Aspect     string                          `json:"aspect,omitempty"`
	Path       string                          `json:"path"`
	FieldName  string                          `json:"fieldName"`
	SchemaType string                          `json:"schemaType"`
	Annotation annotation.SearchableAnnotation `json:"searchableAnnotation"`
}

// NewAspectRecord flattens spec into a record. source names the document the
// aspect was declared in.
func NewAspectRecord(spec *models.AspectSpec, source string) *AspectRecord {
	specs := spec.SearchableFieldSpecs()
	record := &AspectRecord{
		Name:       spec.Name(),
		SchemaName: spec.PegasusSchema().FullName(),
		Source:     source,
		Fields:     make([]FieldRecord, 0, len(specs)),
		Warnings:   spec.Warnings(),
	}
	for _, fs := range specs {
		schemaType := ""
		if s := fs.PegasusSchema(); s != nil {
			schemaType = s.Type().String()
		}
		record.Fields = append(record.Fields, FieldRecord{
			Aspect:     spec.Name(),
			Path:       fs.Path().String(),
			FieldName:  fs.FieldName(),
			SchemaType: schemaType,
			Annotation: *fs.SearchableAnnotation(),
		})
	}
	return record
}

// Field returns the field at path, if any
func (r *AspectRecord) Field(path string) (FieldRecord, bool) {
	for _, f := range r.Fields {
		if f.Path == path {
			return f, true
		}
	}
	return FieldRecord{}, false
}

// FieldCount returns the number of fields across all aspects
func (s *SnapshotRecord) FieldCount() int {
	n := 0
	for _, a := range s.Aspects {
		n += len(a.Fields)
	}
	return n
}

// Aspect returns the aspect named name, if any
func (s *SnapshotRecord) Aspect(name string) (*AspectRecord, bool) {
	for i := range s.Aspects {
		if s.Aspects[i].Name == name {
			return &s.Aspects[i], true
		}
	}
	return nil, false
}

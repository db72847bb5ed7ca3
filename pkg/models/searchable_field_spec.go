package models

import (
	"encoding/json"

	"github.com/sta4152/datahub/pkg/annotation"
	"github.com/sta4152/datahub/pkg/schema"
)

// SearchableFieldSpec is a field selected for search indexing
type SearchableFieldSpec struct {
	path       schema.Path
	annotation *annotation.SearchableAnnotation
	schema     schema.DataSchema
}

// NewSearchableFieldSpec creates a spec for the node at path
func NewSearchableFieldSpec(path schema.Path, a *annotation.SearchableAnnotation, s schema.DataSchema) *SearchableFieldSpec {
	return &SearchableFieldSpec{path: path, annotation: a, schema: s}
}

// Path returns the location of the field in its aspect
func (s *SearchableFieldSpec) Path() schema.Path { return s.path }

// SearchableAnnotation returns the parsed annotation
func (s *SearchableFieldSpec) SearchableAnnotation() *annotation.SearchableAnnotation {
	return s.annotation
}

// PegasusSchema returns the dereferenced schema of the annotated node
func (s *SearchableFieldSpec) PegasusSchema() schema.DataSchema { return s.schema }

// FieldName returns the name the field is indexed under
func (s *SearchableFieldSpec) FieldName() string {
	return s.annotation.FieldName
}

type searchableFieldSpecJSON struct {
	Path       string                           `json:"path"`
	FieldName  string                           `json:"fieldName"`
	SchemaType string                           `json:"schemaType"`
	Annotation *annotation.SearchableAnnotation `json:"searchableAnnotation"`
}

// MarshalJSON implements json.Marshaler
func (s *SearchableFieldSpec) MarshalJSON() ([]byte, error) {
	schemaType := ""
	if s.schema != nil {
		schemaType = s.schema.Type().String()
	}
	return json.Marshal(searchableFieldSpecJSON{
		Path:       s.path.String(),
		FieldName:  s.FieldName(),
		SchemaType: schemaType,
		Annotation: s.annotation,
	})
}

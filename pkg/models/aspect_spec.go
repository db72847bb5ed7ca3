package models

import (
	"encoding/json"
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/sta4152/datahub/pkg/schema"
)

// AspectAnnotationName is the record property that names an aspect
const AspectAnnotationName = "Aspect"

// AspectSpec is the searchable model of one aspect record
type AspectSpec struct {
	name                 string
	schema               *schema.RecordSchema
	searchableFieldSpecs []*SearchableFieldSpec
	warnings             []string
}

// BuildAspectSpec resolves record and extracts its searchable fields
func BuildAspectSpec(record *schema.RecordSchema) (*AspectSpec, error) {
	if record == nil {
		return nil, fmt.Errorf("cannot build aspect spec from nil record")
	}
	name, err := AspectName(record)
	if err != nil {
		return nil, err
	}

	res, err := schema.Resolve(record)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve aspect %s: %w", name, err)
	}

	specs, err := extractResolved(res.Root)
	if err != nil {
		return nil, fmt.Errorf("aspect %s: %w", name, err)
	}

	return &AspectSpec{
		name:                 name,
		schema:               record,
		searchableFieldSpecs: specs,
		warnings:             res.Warnings,
	}, nil
}

// AspectName returns the aspect name declared by the record's Aspect property,
// or the record name with a lower-case first letter when there is none.
func AspectName(record *schema.RecordSchema) (string, error) {
	switch v := record.Props[AspectAnnotationName].(type) {
	case nil:
		return lowerFirst(record.Name), nil
	case string:
		if v == "" {
			return "", fmt.Errorf("record %s: empty @%s name", record.FullName(), AspectAnnotationName)
		}
		return v, nil
	case map[string]any:
		name, _ := v["name"].(string)
		if name == "" {
			return "", fmt.Errorf("record %s: @%s requires a name", record.FullName(), AspectAnnotationName)
		}
		return name, nil
	default:
		return "", fmt.Errorf("record %s: invalid @%s value %v", record.FullName(), AspectAnnotationName, v)
	}
}

// IsAspect reports whether the record declares an Aspect property
func IsAspect(record *schema.RecordSchema) bool {
	_, ok := record.Props[AspectAnnotationName]
	return ok
}

// Name returns the aspect name
func (a *AspectSpec) Name() string { return a.name }

// PegasusSchema returns the aspect record as declared
func (a *AspectSpec) PegasusSchema() *schema.RecordSchema { return a.schema }

// SearchableFieldSpecs returns the searchable fields in pre-order
func (a *AspectSpec) SearchableFieldSpecs() []*SearchableFieldSpec {
	out := make([]*SearchableFieldSpec, len(a.searchableFieldSpecs))
	copy(out, a.searchableFieldSpecs)
	return out
}

// SearchableFieldSpecMap indexes the searchable fields by path
func (a *AspectSpec) SearchableFieldSpecMap() map[string]*SearchableFieldSpec {
	out := make(map[string]*SearchableFieldSpec, len(a.searchableFieldSpecs))
	for _, spec := range a.searchableFieldSpecs {
		out[spec.Path().String()] = spec
	}
	return out
}

// Warnings returns the resolution warnings, such as overrides that matched no field
func (a *AspectSpec) Warnings() []string {
	out := make([]string, len(a.warnings))
	copy(out, a.warnings)
	return out
}

// MarshalJSON implements json.Marshaler
func (a *AspectSpec) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name             string                 `json:"name"`
		SchemaName       string                 `json:"schemaName"`
		SearchableFields []*SearchableFieldSpec `json:"searchableFields"`
		Warnings         []string               `json:"warnings,omitempty"`
	}{
		Name:             a.name,
		SchemaName:       a.schema.FullName(),
		SearchableFields: a.searchableFieldSpecs,
		Warnings:         a.warnings,
	})
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}

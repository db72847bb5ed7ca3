// Package annotation parses the Searchable schema annotation.
package annotation

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/sta4152/datahub/pkg/schema"
)

// SearchableAnnotationName is the property key carrying the annotation
const SearchableAnnotationName = "Searchable"

// FieldType is the index mapping of a searchable field
type FieldType string

const (
	FieldTypeKeyword      FieldType = "KEYWORD"
	FieldTypeText         FieldType = "TEXT"
	FieldTypeTextPartial  FieldType = "TEXT_PARTIAL"
	FieldTypeBrowsePath   FieldType = "BROWSE_PATH"
	FieldTypeURN          FieldType = "URN"
	FieldTypeURNPartial   FieldType = "URN_PARTIAL"
	FieldTypeBoolean      FieldType = "BOOLEAN"
	FieldTypeCount        FieldType = "COUNT"
	FieldTypeDatetime     FieldType = "DATETIME"
	FieldTypeObject       FieldType = "OBJECT"
	FieldTypeBrowsePathV2 FieldType = "BROWSE_PATH_V2"
	FieldTypeWordGram     FieldType = "WORD_GRAM"
	FieldTypeDouble       FieldType = "DOUBLE"
)

var fieldTypes = []FieldType{
	FieldTypeKeyword, FieldTypeText, FieldTypeTextPartial, FieldTypeBrowsePath,
	FieldTypeURN, FieldTypeURNPartial, FieldTypeBoolean, FieldTypeCount,
	FieldTypeDatetime, FieldTypeObject, FieldTypeBrowsePathV2, FieldTypeWordGram,
	FieldTypeDouble,
}

// FieldTypes returns every supported field type
func FieldTypes() []FieldType {
	out := make([]FieldType, len(fieldTypes))
	copy(out, fieldTypes)
	return out
}

// ParseFieldType parses a field type name, ignoring case
func ParseFieldType(s string) (FieldType, error) {
	for _, ft := range fieldTypes {
		if strings.EqualFold(string(ft), s) {
			return ft, nil
		}
	}
	return "", fmt.Errorf("unknown field type %q", s)
}

// ErrNoFieldName is returned when the value sets no fieldName and the caller
// passed no default
var ErrNoFieldName = errors.New("Missing or empty fieldName")

// SearchableAnnotation describes how a field is indexed for search
type SearchableAnnotation struct {
	FieldName             string             `json:"fieldName"`
	FieldType             FieldType          `json:"fieldType"`
	QueryByDefault        bool               `json:"queryByDefault"`
	EnableAutocomplete    bool               `json:"enableAutocomplete"`
	AddToFilters          bool               `json:"addToFilters"`
	AddHasValuesToFilters bool               `json:"addHasValuesToFilters"`
	FilterNameOverride    string             `json:"filterNameOverride,omitempty"`
	HasValuesFieldName    string             `json:"hasValuesFieldName,omitempty"`
	NumValuesFieldName    string             `json:"numValuesFieldName,omitempty"`
	BoostScore            float64            `json:"boostScore"`
	WeightsPerFieldValue  map[string]float64 `json:"weightsPerFieldValue,omitempty"`
	FieldNameAliases      []string           `json:"fieldNameAliases,omitempty"`
}

// FilterName returns the filter name override, or the field name
func (a *SearchableAnnotation) FilterName() string {
	if a.FilterNameOverride != "" {
		return a.FilterNameOverride
	}
	return a.FieldName
}

// ParseSearchableAnnotation parses a raw annotation value declared on a node of
// type typ. fieldName is used unless the value overrides it. context names the
// declaration site in error messages.
func ParseSearchableAnnotation(value any, fieldName string, typ schema.Type, context string) (*SearchableAnnotation, error) {
	m, ok := asMap(value)
	if !ok {
		return nil, invalid(context, "Invalid value type provided (Expected Map)")
	}

	a := &SearchableAnnotation{
		FieldName:             fieldName,
		AddHasValuesToFilters: true,
		BoostScore:            1.0,
	}

	if v, ok := m["fieldName"]; ok {
		s, ok := v.(string)
		if !ok {
			return nil, invalidKey(context, "fieldName", "string")
		}
		if s == "" {
			return nil, invalid(context, "Missing or empty fieldName")
		}
		a.FieldName = s
	} else if a.FieldName == "" {
		return nil, fmt.Errorf("Failed to validate @%s annotation declared at %s: %w", SearchableAnnotationName, context, ErrNoFieldName)
	}

	a.FieldType = defaultFieldType(typ)
	if v, ok := m["fieldType"]; ok {
		s, ok := v.(string)
		if !ok {
			return nil, invalidKey(context, "fieldType", "string")
		}
		ft, err := ParseFieldType(s)
		if err != nil {
			return nil, invalid(context, fmt.Sprintf("Invalid field type %s provided (Expected one of %s)", s, fieldTypeList()))
		}
		a.FieldType = ft
	}
	if err := checkCompatible(a.FieldType, typ); err != nil {
		return nil, invalid(context, err.Error())
	}

	a.QueryByDefault = defaultQueryByDefault(a.FieldType)
	for _, opt := range []struct {
		key string
		dst *bool
	}{
		{"queryByDefault", &a.QueryByDefault},
		{"enableAutocomplete", &a.EnableAutocomplete},
		{"addToFilters", &a.AddToFilters},
		{"addHasValuesToFilters", &a.AddHasValuesToFilters},
	} {
		if v, ok := m[opt.key]; ok {
			b, ok := v.(bool)
			if !ok {
				return nil, invalidKey(context, opt.key, "boolean")
			}
			*opt.dst = b
		}
	}

	for _, opt := range []struct {
		key string
		dst *string
	}{
		{"filterNameOverride", &a.FilterNameOverride},
		{"hasValuesFieldName", &a.HasValuesFieldName},
		{"numValuesFieldName", &a.NumValuesFieldName},
	} {
		if v, ok := m[opt.key]; ok {
			s, ok := v.(string)
			if !ok {
				return nil, invalidKey(context, opt.key, "string")
			}
			*opt.dst = s
		}
	}

	if v, ok := m["boostScore"]; ok {
		f, ok := toFloat(v)
		if !ok {
			return nil, invalidKey(context, "boostScore", "number")
		}
		if f < 0 {
			return nil, invalid(context, fmt.Sprintf("boostScore must not be negative, got %v", f))
		}
		a.BoostScore = f
	}

	if v, ok := m["weightsPerFieldValue"]; ok {
		weights, err := parseWeights(v, context)
		if err != nil {
			return nil, err
		}
		a.WeightsPerFieldValue = weights
	}

	if v, ok := m["fieldNameAliases"]; ok {
		aliases, err := parseAliases(v, context)
		if err != nil {
			return nil, err
		}
		a.FieldNameAliases = aliases
	}

	return a, nil
}

func defaultFieldType(typ schema.Type) FieldType {
	switch typ {
	case schema.TypeInt, schema.TypeFloat:
		return FieldTypeCount
	// map-typed fields are rejected before parsing during extraction; direct
	// callers still get the keyword default
	case schema.TypeMap:
		return FieldTypeKeyword
	default:
		return FieldTypeText
	}
}

// parseWeights accepts decoded maps and typed Go maps of numbers. Keys are
// visited in sorted order so the first bad weight reported is stable.
func parseWeights(v any, context string) (map[string]float64, error) {
	switch t := v.(type) {
	case map[string]float64:
		out := make(map[string]float64, len(t))
		for k, w := range t {
			out[k] = w
		}
		return out, nil
	case map[string]int:
		out := make(map[string]float64, len(t))
		for k, w := range t {
			out[k] = float64(w)
		}
		return out, nil
	}

	weights, ok := asMap(v)
	if !ok {
		return nil, invalidKey(context, "weightsPerFieldValue", "map")
	}
	keys := make([]string, 0, len(weights))
	for k := range weights {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]float64, len(weights))
	for _, k := range keys {
		f, ok := toFloat(weights[k])
		if !ok {
			return nil, invalidKey(context, "weightsPerFieldValue."+k, "number")
		}
		out[k] = f
	}
	return out, nil
}

func parseAliases(v any, context string) ([]string, error) {
	switch t := v.(type) {
	case []string:
		if len(t) == 0 {
			return nil, nil
		}
		out := make([]string, len(t))
		copy(out, t)
		return out, nil
	case []any:
		var out []string
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, invalidKey(context, "fieldNameAliases", "list of strings")
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, invalidKey(context, "fieldNameAliases", "list of strings")
	}
}

func defaultQueryByDefault(ft FieldType) bool {
	switch ft {
	case FieldTypeText, FieldTypeTextPartial, FieldTypeWordGram, FieldTypeURN, FieldTypeURNPartial:
		return true
	default:
		return false
	}
}

func checkCompatible(ft FieldType, typ schema.Type) error {
	switch ft {
	case FieldTypeBoolean:
		if typ != schema.TypeBoolean {
			return fmt.Errorf("field type BOOLEAN requires a boolean field, got %s", typ)
		}
	case FieldTypeCount, FieldTypeDouble:
		if !typ.IsNumeric() {
			return fmt.Errorf("field type %s requires a numeric field, got %s", ft, typ)
		}
	case FieldTypeDatetime:
		if typ != schema.TypeInt && typ != schema.TypeLong {
			return fmt.Errorf("field type DATETIME requires an int or long field, got %s", typ)
		}
	}
	return nil
}

func fieldTypeList() string {
	names := make([]string, len(fieldTypes))
	for i, ft := range fieldTypes {
		names[i] = string(ft)
	}
	return strings.Join(names, ", ")
}

func invalid(context, reason string) error {
	return fmt.Errorf("Failed to validate @%s annotation declared at %s: %s", SearchableAnnotationName, context, reason)
}

func invalidKey(context, key, expected string) error {
	return invalid(context, fmt.Sprintf("Invalid type for %s (Expected %s)", key, expected))
}

func asMap(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	default:
		return nil, false
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

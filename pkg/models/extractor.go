package models

import (
	"errors"

	"github.com/sta4152/datahub/pkg/annotation"
	"github.com/sta4152/datahub/pkg/schema"
	"github.com/sta4152/datahub/pkg/schema/traverse"
)

// SearchableFieldSpecs accumulates the specs of one traversal, keyed by field name
type SearchableFieldSpecs struct {
	specs      []*SearchableFieldSpec
	fieldPaths map[string]schema.Path
	indexes    map[string]int
}

// NewSearchableFieldSpecs creates an empty accumulator
func NewSearchableFieldSpecs() *SearchableFieldSpecs {
	return &SearchableFieldSpecs{
		fieldPaths: make(map[string]schema.Path),
		indexes:    make(map[string]int),
	}
}

// Add registers spec under its field name. A name already registered at another
// path is a KindDuplicateName error. A name registered at the same path is
// replaced in place, keeping its position.
func (s *SearchableFieldSpecs) Add(spec *SearchableFieldSpec) error {
	name := spec.FieldName()
	if existing, ok := s.fieldPaths[name]; ok {
		if !existing.Equal(spec.Path()) {
			return newValidationError(KindDuplicateName, spec.Path(),
				"Entity has multiple searchable fields with the same field name %s", name)
		}
		s.specs[s.indexes[name]] = spec
		return nil
	}

	s.fieldPaths[name] = spec.Path()
	s.indexes[name] = len(s.specs)
	s.specs = append(s.specs, spec)
	return nil
}

// Specs returns the specs in discovery order
func (s *SearchableFieldSpecs) Specs() []*SearchableFieldSpec {
	out := make([]*SearchableFieldSpec, len(s.specs))
	copy(out, s.specs)
	return out
}

// Len returns the number of specs
func (s *SearchableFieldSpecs) Len() int {
	return len(s.specs)
}

// Get returns the spec registered under fieldName
func (s *SearchableFieldSpecs) Get(fieldName string) (*SearchableFieldSpec, bool) {
	i, ok := s.indexes[fieldName]
	if !ok {
		return nil, false
	}
	return s.specs[i], true
}

// SearchableFieldSpecExtractor collects the Searchable fields of a resolved
// schema tree. Use a new extractor for every walk.
type SearchableFieldSpecExtractor struct {
	specs *SearchableFieldSpecs
}

var _ traverse.Visitor = (*SearchableFieldSpecExtractor)(nil)

// NewSearchableFieldSpecExtractor creates an extractor
func NewSearchableFieldSpecExtractor() *SearchableFieldSpecExtractor {
	return &SearchableFieldSpecExtractor{specs: NewSearchableFieldSpecs()}
}

// Specs returns the specs found so far, in pre-order
func (e *SearchableFieldSpecExtractor) Specs() []*SearchableFieldSpec {
	return e.specs.Specs()
}

// PreVisit validates the annotation declared on the enclosing field and
// extracts the one resolved onto the current node.
func (e *SearchableFieldSpecExtractor) PreVisit(ctx *traverse.Context) error {
	field := ctx.EnclosingField()
	if field == nil {
		return nil
	}

	current := ctx.CurrentSchema()
	path := ctx.Path()

	if raw, ok := field.Properties()[annotation.SearchableAnnotationName]; ok && raw != nil {
		if err := validateDeclaration(current, raw, path); err != nil {
			return err
		}
	}

	resolved, ok := resolvedProperties(current)[annotation.SearchableAnnotationName]
	if !ok || resolved == nil {
		return nil
	}

	typ := current.Type()
	if typ.IsComplex() && typ != schema.TypeEnum {
		return newValidationError(KindTypeIncompatible, path, "Invalid @Searchable Annotation at %s", path)
	}

	return e.extract(resolved, current, path)
}

// PostVisit does nothing
func (e *SearchableFieldSpecExtractor) PostVisit(*traverse.Context) error {
	return nil
}

// InitialVisitorContext returns nil; the extractor keeps no per-branch state
func (e *SearchableFieldSpecExtractor) InitialVisitorContext() traverse.VisitorContext {
	return nil
}

// TraversalResult reports a successful walk
func (e *SearchableFieldSpecExtractor) TraversalResult() *traverse.Result {
	return &traverse.Result{Success: true}
}

func (e *SearchableFieldSpecExtractor) extract(value any, current schema.DataSchema, path schema.Path) error {
	fieldName, _ := schemaFieldName(path)
	a, err := annotation.ParseSearchableAnnotation(value, fieldName, current.Type(), path.String())
	if errors.Is(err, annotation.ErrNoFieldName) {
		return newValidationError(KindInvalidPath, path,
			"Unable to derive a searchable field name from path %s", path)
	}
	if err != nil {
		return &ModelValidationError{Kind: KindParse, Path: path, Message: err.Error(), Err: err}
	}

	return e.specs.Add(NewSearchableFieldSpec(path, a, current))
}

// validateDeclaration checks the annotation as declared on a field. On primitive
// and enum fields it is checked once resolved; elsewhere it must be a map of
// overrides keyed by separator-prefixed sub-paths.
func validateDeclaration(current schema.DataSchema, raw any, path schema.Path) error {
	typ := current.Type()
	if typ.IsPrimitive() || typ == schema.TypeEnum {
		return nil
	}

	m, ok := raw.(map[string]any)
	if !ok {
		return newValidationError(KindPlacement, path,
			"Failed to validate @%s annotation declared inside %s: Invalid value type provided (Expected Map)",
			annotation.SearchableAnnotationName, path)
	}
	if _, ok := schema.OverrideMap(m); !ok {
		return newValidationError(KindPlacement, path,
			"Invalid @Searchable Annotation at %s. Annotation placed on invalid field of type %s. Must be placed on primitive field.",
			path, typ)
	}
	return nil
}

func resolvedProperties(s schema.DataSchema) map[string]any {
	if resolved := s.ResolvedProperties(); len(resolved) > 0 {
		return resolved
	}
	return s.Properties()
}

// schemaFieldName derives the default field name from the last path segment,
// skipping one trailing wildcard. ok is false when no name can be derived.
func schemaFieldName(path schema.Path) (string, bool) {
	segments := path.Segments()
	name := ""
	switch n := len(segments); {
	case n > 0 && segments[n-1] != schema.Wildcard:
		name = segments[n-1]
	case n > 1:
		name = segments[n-2]
	}
	if name == "" || name == schema.Wildcard {
		return "", false
	}
	return name, true
}

// ExtractSearchableFieldSpecs resolves the tree rooted at root and returns its
// searchable field specs in pre-order.
func ExtractSearchableFieldSpecs(root schema.DataSchema) ([]*SearchableFieldSpec, error) {
	res, err := schema.Resolve(root)
	if err != nil {
		return nil, err
	}
	return extractResolved(res.Root)
}

func extractResolved(root schema.DataSchema) ([]*SearchableFieldSpec, error) {
	extractor := NewSearchableFieldSpecExtractor()
	if _, err := traverse.Walk(root, extractor); err != nil {
		return nil, err
	}
	return extractor.Specs(), nil
}

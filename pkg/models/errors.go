package models

import (
	"errors"
	"fmt"

	"github.com/sta4152/datahub/pkg/schema"
)

// Kind classifies a model validation failure
type Kind int

const (
	// KindPlacement: the annotation is declared on a field whose type cannot carry it.
	KindPlacement Kind = iota
	// KindTypeIncompatible: the resolved annotation lands on a complex non-enum node.
	KindTypeIncompatible
	// KindParse: the annotation value is malformed.
	KindParse
	// KindDuplicateName: two paths produce the same searchable field name.
	KindDuplicateName
	// KindInvalidPath: no field name can be derived from the path.
	KindInvalidPath
)

func (k Kind) String() string {
	switch k {
	case KindPlacement:
		return "placement"
	case KindTypeIncompatible:
		return "type_incompatible"
	case KindParse:
		return "parse"
	case KindDuplicateName:
		return "duplicate_name"
	case KindInvalidPath:
		return "invalid_path"
	default:
		return "unknown"
	}
}

var (
	// ErrModelValidation matches every ModelValidationError
	ErrModelValidation = errors.New("model validation failed")

	ErrPlacement        = errors.New("invalid annotation placement")
	ErrTypeIncompatible = errors.New("annotation incompatible with field type")
	ErrParse            = errors.New("invalid annotation value")
	ErrDuplicateName    = errors.New("duplicate searchable field name")
	ErrInvalidPath      = errors.New("invalid searchable field path")
)

var kindErrors = map[Kind]error{
	KindPlacement:        ErrPlacement,
	KindTypeIncompatible: ErrTypeIncompatible,
	KindParse:            ErrParse,
	KindDuplicateName:    ErrDuplicateName,
	KindInvalidPath:      ErrInvalidPath,
}

// ModelValidationError reports an entity model that violates the Searchable
// annotation rules. It is always fatal for the model being built.
type ModelValidationError struct {
	Kind    Kind
	Path    schema.Path
	Message string
	// Err is the underlying cause, if any. Message already includes its text.
	Err error
}

func (e *ModelValidationError) Error() string {
	return e.Message
}

func (e *ModelValidationError) Unwrap() error {
	return e.Err
}

// Is matches ErrModelValidation and the sentinel of the error's kind
func (e *ModelValidationError) Is(target error) bool {
	if target == ErrModelValidation {
		return true
	}
	sentinel, ok := kindErrors[e.Kind]
	return ok && target == sentinel
}

func newValidationError(kind Kind, path schema.Path, format string, args ...any) *ModelValidationError {
	return &ModelValidationError{
		Kind:    kind,
		Path:    path,
		Message: fmt.Sprintf(format, args...),
	}
}

// AsModelValidationError unwraps err to a ModelValidationError
func AsModelValidationError(err error) (*ModelValidationError, bool) {
	var mve *ModelValidationError
	if errors.As(err, &mve) {
		return mve, true
	}
	return nil, false
}

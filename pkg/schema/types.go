package schema

import (
	"strings"
)

// Type identifies the kind of a schema node
type Type int

const (
	TypeNull Type = iota
	TypeBoolean
	TypeInt
	TypeLong
	TypeFloat
	TypeDouble
	TypeBytes
	TypeString
	TypeRecord
	TypeEnum
	TypeArray
	TypeMap
	TypeUnion
	TypeFixed
	TypeTypeRef
)

var typeNames = []string{
	"NULL", "BOOLEAN", "INT", "LONG", "FLOAT", "DOUBLE", "BYTES", "STRING",
	"RECORD", "ENUM", "ARRAY", "MAP", "UNION", "FIXED", "TYPEREF",
}

func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return "UNKNOWN"
	}
	return typeNames[t]
}

// IsPrimitive reports whether t is a scalar type
func (t Type) IsPrimitive() bool {
	return t >= TypeNull && t <= TypeString
}

// IsComplex reports whether t is a named or structural type
func (t Type) IsComplex() bool {
	return t >= TypeRecord && t <= TypeTypeRef
}

// IsNumeric reports whether t is one of the numeric primitives
func (t Type) IsNumeric() bool {
	switch t {
	case TypeInt, TypeLong, TypeFloat, TypeDouble:
		return true
	default:
		return false
	}
}

// ParsePrimitiveType maps a primitive type name ("string", "long", ...) to its Type
func ParsePrimitiveType(name string) (Type, bool) {
	for t := TypeNull; t <= TypeString; t++ {
		if strings.EqualFold(typeNames[t], name) {
			return t, true
		}
	}
	return TypeNull, false
}

// DataSchema is a node of a schema tree
type DataSchema interface {
	// Type returns the node's own type (TYPEREF for references).
	Type() Type
	// Dereferenced follows typeref indirection to the concrete schema.
	Dereferenced() DataSchema
	// Properties returns the metadata declared on the schema definition itself.
	Properties() map[string]any
	// ResolvedProperties returns declared properties merged with inherited and
	// override properties. It is only populated on trees returned by Resolve.
	ResolvedProperties() map[string]any
}

// DereferencedType returns the type of the concrete schema behind s
func DereferencedType(s DataSchema) Type {
	return s.Dereferenced().Type()
}

// Annotated carries the declared and resolved properties of a schema node
type Annotated struct {
	Props    map[string]any
	resolved map[string]any
}

// Properties returns the declared properties
func (a *Annotated) Properties() map[string]any {
	return a.Props
}

// ResolvedProperties returns the resolved properties
func (a *Annotated) ResolvedProperties() map[string]any {
	return a.resolved
}

// SetResolvedProperties replaces the resolved properties
func (a *Annotated) SetResolvedProperties(props map[string]any) {
	a.resolved = props
}

// PrimitiveSchema is a scalar schema
type PrimitiveSchema struct {
	Annotated
	typ Type
}

// NewPrimitive creates a primitive schema of type t
func NewPrimitive(t Type) *PrimitiveSchema {
	return &PrimitiveSchema{typ: t}
}

func (s *PrimitiveSchema) Type() Type               { return s.typ }
func (s *PrimitiveSchema) Dereferenced() DataSchema { return s }

// QualifiedName is the name and namespace of a named schema
type QualifiedName struct {
	Name      string
	Namespace string
}

// FullName returns namespace.name, or name when there is no namespace
func (n QualifiedName) FullName() string {
	if n.Namespace == "" || strings.Contains(n.Name, ".") {
		return n.Name
	}
	return n.Namespace + "." + n.Name
}

// RecordSchema is a named structure of fields
type RecordSchema struct {
	Annotated
	QualifiedName
	Doc    string
	Fields []*Field
}

// NewRecord creates a record schema
func NewRecord(fullName string, fields ...*Field) *RecordSchema {
	return &RecordSchema{QualifiedName: splitName(fullName), Fields: fields}
}

func (s *RecordSchema) Type() Type               { return TypeRecord }
func (s *RecordSchema) Dereferenced() DataSchema { return s }

// Field returns the field with the given name
func (s *RecordSchema) Field(name string) (*Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// Field is a named member of a record
type Field struct {
	Name     string
	Doc      string
	Type     DataSchema
	Optional bool
	Props    map[string]any
}

// NewField creates a record field
func NewField(name string, typ DataSchema, props map[string]any) *Field {
	return &Field{Name: name, Type: typ, Props: props}
}

// Properties returns the properties declared on the field itself
func (f *Field) Properties() map[string]any {
	return f.Props
}

// EnumSchema is a named set of symbols
type EnumSchema struct {
	Annotated
	QualifiedName
	Doc     string
	Symbols []string
}

// NewEnum creates an enum schema
func NewEnum(fullName string, symbols ...string) *EnumSchema {
	return &EnumSchema{QualifiedName: splitName(fullName), Symbols: symbols}
}

func (s *EnumSchema) Type() Type               { return TypeEnum }
func (s *EnumSchema) Dereferenced() DataSchema { return s }

// ArraySchema is a homogeneous list
type ArraySchema struct {
	Annotated
	Items DataSchema
}

// NewArray creates an array schema
func NewArray(items DataSchema) *ArraySchema {
	return &ArraySchema{Items: items}
}

func (s *ArraySchema) Type() Type               { return TypeArray }
func (s *ArraySchema) Dereferenced() DataSchema { return s }

// MapSchema is a string-keyed map
type MapSchema struct {
	Annotated
	Values DataSchema
}

// NewMap creates a map schema
func NewMap(values DataSchema) *MapSchema {
	return &MapSchema{Values: values}
}

func (s *MapSchema) Type() Type               { return TypeMap }
func (s *MapSchema) Dereferenced() DataSchema { return s }

// UnionMember is one branch of a union
type UnionMember struct {
	Alias string
	Type  DataSchema
}

// Key identifies the member inside its union: the alias when set, otherwise the
// member type's name.
func (m *UnionMember) Key() string {
	if m.Alias != "" {
		return m.Alias
	}
	return memberKey(m.Type)
}

// UnionSchema is a tagged choice between member types
type UnionSchema struct {
	Annotated
	Members []*UnionMember
}

// NewUnion creates an unaliased union of the given types
func NewUnion(types ...DataSchema) *UnionSchema {
	members := make([]*UnionMember, 0, len(types))
	for _, t := range types {
		members = append(members, &UnionMember{Type: t})
	}
	return &UnionSchema{Members: members}
}

func (s *UnionSchema) Type() Type               { return TypeUnion }
func (s *UnionSchema) Dereferenced() DataSchema { return s }

// FixedSchema is a named fixed-size byte sequence
type FixedSchema struct {
	Annotated
	QualifiedName
	Size int
}

func (s *FixedSchema) Type() Type               { return TypeFixed }
func (s *FixedSchema) Dereferenced() DataSchema { return s }

// TypeRefSchema is a named alias of another schema. Properties declared on a
// typeref are inherited by every field that uses it.
type TypeRefSchema struct {
	Annotated
	QualifiedName
	Doc string
	Ref DataSchema
}

// NewTypeRef creates a typeref schema
func NewTypeRef(fullName string, ref DataSchema) *TypeRefSchema {
	return &TypeRefSchema{QualifiedName: splitName(fullName), Ref: ref}
}

func (s *TypeRefSchema) Type() Type { return TypeTypeRef }

// Dereferenced follows the reference chain to the first non-typeref schema
func (s *TypeRefSchema) Dereferenced() DataSchema {
	var cur DataSchema = s
	for i := 0; i < maxTypeRefDepth; i++ {
		tr, ok := cur.(*TypeRefSchema)
		if !ok {
			return cur
		}
		if tr.Ref == nil {
			return tr
		}
		cur = tr.Ref
	}
	return cur
}

// maxTypeRefDepth bounds typeref chains; the decoder rejects cycles before this.
const maxTypeRefDepth = 64

func splitName(fullName string) QualifiedName {
	i := strings.LastIndex(fullName, ".")
	if i < 0 {
		return QualifiedName{Name: fullName}
	}
	return QualifiedName{Name: fullName[i+1:], Namespace: fullName[:i]}
}

func memberKey(s DataSchema) string {
	switch t := s.(type) {
	case *RecordSchema:
		return t.FullName()
	case *EnumSchema:
		return t.FullName()
	case *FixedSchema:
		return t.FullName()
	case *TypeRefSchema:
		return t.FullName()
	case nil:
		return ""
	default:
		return strings.ToLower(s.Type().String())
	}
}

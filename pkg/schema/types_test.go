package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypeClassification(t *testing.T) {
	tests := []struct {
		typ       Type
		primitive bool
		numeric   bool
	}{
		{TypeBoolean, true, false},
		{TypeInt, true, true},
		{TypeLong, true, true},
		{TypeFloat, true, true},
		{TypeDouble, true, true},
		{TypeString, true, false},
		{TypeRecord, false, false},
		{TypeEnum, false, false},
		{TypeArray, false, false},
		{TypeTypeRef, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			assert.Equal(t, tt.primitive, tt.typ.IsPrimitive())
			assert.Equal(t, !tt.primitive, tt.typ.IsComplex())
			assert.Equal(t, tt.numeric, tt.typ.IsNumeric())
		})
	}
	assert.Equal(t, "UNKNOWN", Type(99).String())
}

func TestParsePrimitiveType(t *testing.T) {
	typ, ok := ParsePrimitiveType("long")
	assert.True(t, ok)
	assert.Equal(t, TypeLong, typ)

	_, ok = ParsePrimitiveType("record")
	assert.False(t, ok)
}

func TestQualifiedName(t *testing.T) {
	rec := NewRecord("com.example.Dataset")
	assert.Equal(t, "Dataset", rec.Name)
	assert.Equal(t, "com.example", rec.Namespace)
	assert.Equal(t, "com.example.Dataset", rec.FullName())
	assert.Equal(t, "Plain", NewEnum("Plain").FullName())
}

func TestTypeRefDereferenced(t *testing.T) {
	str := NewPrimitive(TypeString)
	inner := NewTypeRef("com.example.Urn", str)
	outer := NewTypeRef("com.example.DatasetUrn", inner)

	assert.Same(t, str, outer.Dereferenced())
	assert.Equal(t, TypeTypeRef, outer.Type())
	assert.Equal(t, TypeString, DereferencedType(outer))
}

func TestUnionMemberKey(t *testing.T) {
	union := NewUnion(NewPrimitive(TypeString), NewRecord("com.example.Owner"))
	union.Members = append(union.Members, &UnionMember{Alias: "custom", Type: NewPrimitive(TypeInt)})

	assert.Equal(t, "string", union.Members[0].Key())
	assert.Equal(t, "com.example.Owner", union.Members[1].Key())
	assert.Equal(t, "custom", union.Members[2].Key())
}

func TestRecordField(t *testing.T) {
	rec := NewRecord("Dataset", NewField("name", NewPrimitive(TypeString), nil))

	f, ok := rec.Field("name")
	assert.True(t, ok)
	assert.Equal(t, "name", f.Name)

	_, ok = rec.Field("missing")
	assert.False(t, ok)
}

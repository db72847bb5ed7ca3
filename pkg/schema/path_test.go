package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathString(t *testing.T) {
	tests := []struct {
		name string
		path Path
		want string
	}{
		{name: "root", path: NewPath(), want: "/"},
		{name: "single", path: NewPath("address"), want: "/address"},
		{name: "nested", path: NewPath("profile", "email"), want: "/profile/email"},
		{name: "wildcard", path: NewPath("tags", Wildcard), want: "/tags/*"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.path.String())
			assert.True(t, ParsePath(tt.want).Equal(tt.path))
		})
	}
}

func TestPathAppendDoesNotAlias(t *testing.T) {
	base := NewPath("a")
	left := base.Append("b")
	right := base.Append("c")

	assert.Equal(t, "/a", base.String())
	assert.Equal(t, "/a/b", left.String())
	assert.Equal(t, "/a/c", right.String())
}

func TestPathAccessors(t *testing.T) {
	p := ParsePath("//tags/*/")

	assert.Equal(t, 2, p.Len())
	assert.Equal(t, Wildcard, p.Last())
	assert.Equal(t, []string{"tags", "*"}, p.Segments())
	assert.False(t, p.IsRoot())
	assert.True(t, NewPath().IsRoot())
	assert.Equal(t, "", NewPath().Last())
	assert.False(t, p.Equal(NewPath("tags")))
}

func TestPathText(t *testing.T) {
	text, err := NewPath("a", "b").MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "/a/b", string(text))

	var p Path
	require.NoError(t, p.UnmarshalText([]byte("/x/y")))
	assert.Equal(t, []string{"x", "y"}, p.Segments())
}

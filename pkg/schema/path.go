package schema

import (
	"strings"
)

const (
	// Separator separates path segments in the string form of a Path.
	Separator = '/'
	// Wildcard is the segment standing for any element of an array or map.
	Wildcard = "*"
)

// Path addresses a node from the schema root: record field names, Wildcard for
// collection elements and member keys for unions. A Path is immutable.
type Path struct {
	segments []string
}

// NewPath creates a path from segments
func NewPath(segments ...string) Path {
	if len(segments) == 0 {
		return Path{}
	}
	cp := make([]string, len(segments))
	copy(cp, segments)
	return Path{segments: cp}
}

// ParsePath parses the string form produced by Path.String. Empty segments are dropped.
func ParsePath(s string) Path {
	parts := strings.Split(s, string(Separator))
	segments := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" {
			segments = append(segments, part)
		}
	}
	return Path{segments: segments}
}

// Append returns a new path with segments added to the end
func (p Path) Append(segments ...string) Path {
	cp := make([]string, 0, len(p.segments)+len(segments))
	cp = append(cp, p.segments...)
	cp = append(cp, segments...)
	return Path{segments: cp}
}

// Segments returns a copy of the path segments
func (p Path) Segments() []string {
	cp := make([]string, len(p.segments))
	copy(cp, p.segments)
	return cp
}

// Len returns the number of segments
func (p Path) Len() int {
	return len(p.segments)
}

// IsRoot reports whether the path has no segments
func (p Path) IsRoot() bool {
	return len(p.segments) == 0
}

// Last returns the final segment, or "" for the root
func (p Path) Last() string {
	if len(p.segments) == 0 {
		return ""
	}
	return p.segments[len(p.segments)-1]
}

// Equal reports whether both paths have the same segments
func (p Path) Equal(other Path) bool {
	if len(p.segments) != len(other.segments) {
		return false
	}
	for i := range p.segments {
		if p.segments[i] != other.segments[i] {
			return false
		}
	}
	return true
}

// String renders the path as /a/b/*; the root renders as /
func (p Path) String() string {
	if len(p.segments) == 0 {
		return string(Separator)
	}
	var b strings.Builder
	for _, seg := range p.segments {
		b.WriteByte(Separator)
		b.WriteString(seg)
	}
	return b.String()
}

// MarshalText implements encoding.TextMarshaler
func (p Path) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (p *Path) UnmarshalText(text []byte) error {
	*p = ParsePath(string(text))
	return nil
}

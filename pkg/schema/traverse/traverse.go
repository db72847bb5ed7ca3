// Package traverse walks schema trees and reports each node to a Visitor.
package traverse

import (
	"github.com/sta4152/datahub/pkg/schema"
)

// Order selects when a visitor sees a node relative to its children
type Order int

const (
	PreOrder Order = iota
	PostOrder
)

func (o Order) String() string {
	if o == PostOrder {
		return "post-order"
	}
	return "pre-order"
}

// VisitorContext is opaque per-visitor state carried through a walk
type VisitorContext interface{}

// Visitor receives schema nodes during a walk. A non-nil error from either
// entry point stops the walk and is returned by Walk unchanged.
type Visitor interface {
	PreVisit(ctx *Context) error
	PostVisit(ctx *Context) error
	InitialVisitorContext() VisitorContext
	TraversalResult() *Result
}

// Diagnostic is a non-fatal message attached to a path
type Diagnostic struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Diagnostics collects non-fatal messages during a walk
type Diagnostics struct {
	items []Diagnostic
}

// Add records a diagnostic
func (d *Diagnostics) Add(path schema.Path, message string) {
	d.items = append(d.items, Diagnostic{Path: path.String(), Message: message})
}

// Items returns the recorded diagnostics in insertion order
func (d *Diagnostics) Items() []Diagnostic {
	out := make([]Diagnostic, len(d.items))
	copy(out, d.items)
	return out
}

// Result summarizes a walk
type Result struct {
	Success     bool         `json:"success"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// Context describes the node being visited
type Context struct {
	enclosingField *schema.Field
	current        schema.DataSchema
	path           schema.Path
	order          Order
	visitorContext VisitorContext
	diagnostics    *Diagnostics
}

// NewContext creates a context for a single node. Walk builds these itself;
// it is exported for visitors that are driven directly.
func NewContext(field *schema.Field, current schema.DataSchema, path schema.Path) *Context {
	if current != nil {
		current = current.Dereferenced()
	}
	return &Context{
		enclosingField: field,
		current:        current,
		path:           path,
		diagnostics:    &Diagnostics{},
	}
}

// EnclosingField returns the record field the node belongs to, or nil for the root
func (c *Context) EnclosingField() *schema.Field { return c.enclosingField }

// CurrentSchema returns the dereferenced node
func (c *Context) CurrentSchema() schema.DataSchema { return c.current }

// Path returns the node's path from the root
func (c *Context) Path() schema.Path { return c.path }

// Order returns the phase the visitor is being called in
func (c *Context) Order() Order { return c.order }

// VisitorContext returns the state set by the visitor, if any
func (c *Context) VisitorContext() VisitorContext { return c.visitorContext }

// SetVisitorContext replaces the visitor state for this node's children
func (c *Context) SetVisitorContext(vc VisitorContext) { c.visitorContext = vc }

// Diagnostics returns the walk's diagnostics collector
func (c *Context) Diagnostics() *Diagnostics { return c.diagnostics }

package traverse

import (
	"fmt"

	"github.com/sta4152/datahub/pkg/schema"
)

// Walk visits root and its descendants depth-first. Every node gets PreVisit
// before its children and PostVisit after them. Record fields are entered in
// declaration order; array items and map values use the Wildcard segment and
// keep the enclosing field; union members are addressed by member key. A record
// already on the current branch is visited but not descended into.
//
// The walk stops at the first error returned by the visitor. Otherwise the
// visitor's TraversalResult is returned, with the walk's diagnostics appended.
func Walk(root schema.DataSchema, v Visitor) (*Result, error) {
	if root == nil {
		return nil, fmt.Errorf("traverse: nil root schema")
	}
	if v == nil {
		return nil, fmt.Errorf("traverse: nil visitor")
	}

	w := &walker{
		visitor:     v,
		diagnostics: &Diagnostics{},
		onBranch:    make(map[string]int),
	}
	if err := w.visit(nil, root, schema.NewPath(), v.InitialVisitorContext()); err != nil {
		return nil, err
	}

	result := v.TraversalResult()
	if result == nil {
		result = &Result{Success: true}
	}
	result.Diagnostics = append(result.Diagnostics, w.diagnostics.Items()...)
	return result, nil
}

type walker struct {
	visitor     Visitor
	diagnostics *Diagnostics
	// records on the current branch, by full name
	onBranch map[string]int
}

func (w *walker) visit(field *schema.Field, node schema.DataSchema, path schema.Path, vc VisitorContext) error {
	if node == nil {
		return fmt.Errorf("traverse: missing schema at %s", path)
	}
	current := node.Dereferenced()
	ctx := &Context{
		enclosingField: field,
		current:        current,
		path:           path,
		order:          PreOrder,
		visitorContext: vc,
		diagnostics:    w.diagnostics,
	}
	if err := w.visitor.PreVisit(ctx); err != nil {
		return err
	}

	if err := w.children(field, current, path, ctx.visitorContext); err != nil {
		return err
	}

	ctx.order = PostOrder
	return w.visitor.PostVisit(ctx)
}

func (w *walker) children(field *schema.Field, current schema.DataSchema, path schema.Path, vc VisitorContext) error {
	switch t := current.(type) {
	case *schema.RecordSchema:
		name := t.FullName()
		if w.onBranch[name] > 0 {
			return nil
		}
		w.onBranch[name]++
		defer func() { w.onBranch[name]-- }()

		for _, f := range t.Fields {
			if err := w.visit(f, f.Type, path.Append(f.Name), vc); err != nil {
				return err
			}
		}
	case *schema.ArraySchema:
		return w.visit(field, t.Items, path.Append(schema.Wildcard), vc)
	case *schema.MapSchema:
		return w.visit(field, t.Values, path.Append(schema.Wildcard), vc)
	case *schema.UnionSchema:
		for _, m := range t.Members {
			if err := w.visit(field, m.Type, path.Append(m.Key()), vc); err != nil {
				return err
			}
		}
	}
	return nil
}

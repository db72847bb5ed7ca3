package schema

import (
	"fmt"
	"sort"
	"strings"
)

// Resolution is a resolved copy of a schema tree
type Resolution struct {
	// Root is the resolved tree. Typerefs are replaced by their dereferenced
	// schemas and every node carries its resolved properties.
	Root DataSchema
	// Warnings lists override paths that did not match any node.
	Warnings []string
}

// Resolve copies the tree rooted at root and computes the resolved properties of
// every node. For each property key the value is taken from, in increasing
// precedence: typerefs (innermost first), the enclosing field's declaration, and
// overrides pushed down by ancestors. On complex non-enum nodes a value that is a
// map of separator-prefixed paths is not kept but pushed down as overrides to the
// nodes it addresses. The input tree is not modified.
func Resolve(root DataSchema) (*Resolution, error) {
	if root == nil {
		return nil, fmt.Errorf("schema: cannot resolve nil schema")
	}

	r := &resolver{
		pending:  make(map[string]map[string]any),
		consumed: make(map[string]bool),
		onBranch: make(map[*RecordSchema]bool),
	}

	out, err := r.node(root, NewPath(), nil)
	if err != nil {
		return nil, err
	}

	return &Resolution{Root: out, Warnings: r.warnings()}, nil
}

type resolver struct {
	pending  map[string]map[string]any
	consumed map[string]bool
	onBranch map[*RecordSchema]bool
}

// node resolves s as reached at path p. declared holds the properties of the
// enclosing field when s is a field's type.
func (r *resolver) node(s DataSchema, p Path, declared map[string]any) (DataSchema, error) {
	if s == nil {
		return nil, fmt.Errorf("schema: missing type at %s", p)
	}

	var refs []*TypeRefSchema
	target := s
	for {
		tr, ok := target.(*TypeRefSchema)
		if !ok {
			break
		}
		if tr.Ref == nil {
			return nil, fmt.Errorf("schema: typeref %s at %s has no referenced type", tr.FullName(), p)
		}
		if len(refs) >= maxTypeRefDepth {
			return nil, fmt.Errorf("schema: typeref chain too deep at %s", p)
		}
		refs = append(refs, tr)
		target = tr.Ref
	}

	candidate := make(map[string]any)
	for i := len(refs) - 1; i >= 0; i-- {
		merge(candidate, refs[i].Props)
	}
	merge(candidate, declared)
	key := p.String()
	if overrides, ok := r.pending[key]; ok {
		merge(candidate, overrides)
		r.consumed[key] = true
	}

	expand := target.Type().IsComplex() && target.Type() != TypeEnum
	resolved := make(map[string]any, len(candidate))
	for name, value := range candidate {
		if expand {
			if overrides, ok := OverrideMap(value); ok {
				r.push(p, name, overrides)
				continue
			}
		}
		resolved[name] = value
	}

	out, err := r.clone(target, p)
	if err != nil {
		return nil, err
	}
	out.SetResolvedProperties(resolved)
	return out, nil
}

// resolvable is a cloned node whose resolved properties can be assigned
type resolvable interface {
	DataSchema
	SetResolvedProperties(map[string]any)
}

func (r *resolver) clone(s DataSchema, p Path) (resolvable, error) {
	switch t := s.(type) {
	case *PrimitiveSchema:
		cp := *t
		return &cp, nil
	case *EnumSchema:
		cp := *t
		return &cp, nil
	case *FixedSchema:
		cp := *t
		return &cp, nil
	case *RecordSchema:
		cp := *t
		if r.onBranch[t] {
			// recursive reference: keep the fields unresolved
			return &cp, nil
		}
		r.onBranch[t] = true
		defer delete(r.onBranch, t)

		cp.Fields = make([]*Field, 0, len(t.Fields))
		for _, f := range t.Fields {
			child, err := r.node(f.Type, p.Append(f.Name), f.Props)
			if err != nil {
				return nil, err
			}
			cp.Fields = append(cp.Fields, &Field{
				Name:     f.Name,
				Doc:      f.Doc,
				Type:     child,
				Optional: f.Optional,
				Props:    f.Props,
			})
		}
		return &cp, nil
	case *ArraySchema:
		items, err := r.node(t.Items, p.Append(Wildcard), nil)
		if err != nil {
			return nil, err
		}
		return &ArraySchema{Annotated: Annotated{Props: t.Props}, Items: items}, nil
	case *MapSchema:
		values, err := r.node(t.Values, p.Append(Wildcard), nil)
		if err != nil {
			return nil, err
		}
		return &MapSchema{Annotated: Annotated{Props: t.Props}, Values: values}, nil
	case *UnionSchema:
		members := make([]*UnionMember, 0, len(t.Members))
		for _, m := range t.Members {
			key := m.Key()
			child, err := r.node(m.Type, p.Append(key), nil)
			if err != nil {
				return nil, err
			}
			// typeref members keep their key once replaced by the referenced schema
			alias := m.Alias
			if alias == "" && memberKey(child) != key {
				alias = key
			}
			members = append(members, &UnionMember{Alias: alias, Type: child})
		}
		return &UnionSchema{Annotated: Annotated{Props: t.Props}, Members: members}, nil
	default:
		return nil, fmt.Errorf("schema: unsupported schema %T at %s", s, p)
	}
}

// push records overrides addressed relative to p. Overrides already pending
// for a target came from an ancestor and win.
func (r *resolver) push(p Path, name string, overrides map[string]any) {
	for sub, value := range overrides {
		target := ParsePath(p.String() + sub).String()
		props, ok := r.pending[target]
		if !ok {
			props = make(map[string]any)
			r.pending[target] = props
		}
		if _, exists := props[name]; !exists {
			props[name] = value
		}
	}
}

func (r *resolver) warnings() []string {
	var out []string
	for target, props := range r.pending {
		if r.consumed[target] {
			continue
		}
		for name := range props {
			out = append(out, fmt.Sprintf("@%s override at %s does not match any field", name, target))
		}
	}
	sort.Strings(out)
	return out
}

// OverrideMap reports whether v is a non-empty map whose keys all start with
// the path separator, and returns it.
func OverrideMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	if !ok || len(m) == 0 {
		return nil, false
	}
	for k := range m {
		if !strings.HasPrefix(k, string(Separator)) {
			return nil, false
		}
	}
	return m, true
}

func merge(dst, src map[string]any) {
	for k, v := range src {
		dst[k] = v
	}
}

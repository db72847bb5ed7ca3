package schema

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Definition is a top-level schema decoded from one document
type Definition struct {
	Source string
	Schema DataSchema
}

// Decoder decodes JSON or YAML schema documents. Named types may reference
// definitions from any document added to the same decoder.
//
// A document holds one named schema:
//
//	{"type": "record", "name": "Dataset", "namespace": "com.example",
//	 "fields": [{"name": "tags", "type": {"type": "array", "items": "string"},
//	             "Searchable": {"/*": {"fieldType": "KEYWORD"}}}]}
//
// Unions are lists of member types; a member may be {"alias": "a", "type": T}.
// Keys that are not part of the schema grammar are kept as properties.
type Decoder struct {
	defs    map[string]*rawDefinition
	roots   []*rawDefinition
	decoded map[string]DataSchema
}

type rawDefinition struct {
	source    string
	fullName  string
	namespace string
	node      map[string]any
}

var reservedKeys = map[string]map[string]bool{
	"record":  keySet("type", "name", "namespace", "doc", "fields", "aliases", "include"),
	"enum":    keySet("type", "name", "namespace", "doc", "symbols", "symbolDocs", "aliases"),
	"typeref": keySet("type", "name", "namespace", "doc", "ref", "aliases"),
	"fixed":   keySet("type", "name", "namespace", "doc", "size", "aliases"),
	"array":   keySet("type", "items"),
	"map":     keySet("type", "values"),
	"field":   keySet("name", "type", "doc", "optional", "default", "aliases", "order"),
}

// NewDecoder creates an empty decoder
func NewDecoder() *Decoder {
	return &Decoder{
		defs:    make(map[string]*rawDefinition),
		decoded: make(map[string]DataSchema),
	}
}

// Add registers a document. Its named definitions, including ones declared
// inline, become visible to every document of the decoder.
func (d *Decoder) Add(source string, content []byte) error {
	var doc any
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return fmt.Errorf("failed to parse %s: %w", source, err)
	}
	node, ok := normalize(doc).(map[string]any)
	if !ok {
		return fmt.Errorf("%s: document must be a named schema object", source)
	}
	kind, _ := node["type"].(string)
	if _, named := namedKinds[kind]; !named {
		return fmt.Errorf("%s: document must declare a record, enum, typeref or fixed schema, got %q", source, kind)
	}

	var found []*rawDefinition
	if err := d.scan(source, node, "", &found); err != nil {
		return err
	}
	for _, def := range found {
		if prev, exists := d.defs[def.fullName]; exists {
			return fmt.Errorf("%s: %s is already defined in %s", source, def.fullName, prev.source)
		}
	}
	for _, def := range found {
		d.defs[def.fullName] = def
	}
	d.roots = append(d.roots, found[0])
	return nil
}

// DecodeAll decodes the top-level schema of every added document, in the order
// the documents were added.
func (d *Decoder) DecodeAll() ([]Definition, error) {
	out := make([]Definition, 0, len(d.roots))
	for _, root := range d.roots {
		s, err := d.named(root.fullName)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", root.source, err)
		}
		out = append(out, Definition{Source: root.source, Schema: s})
	}
	return out, nil
}

// Decode decodes the named schema with the given full name
func (d *Decoder) Decode(fullName string) (DataSchema, error) {
	return d.named(fullName)
}

// Names returns the full names of all registered definitions, sorted
func (d *Decoder) Names() []string {
	names := make([]string, 0, len(d.defs))
	for name := range d.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var namedKinds = map[string]struct{}{
	"record": {}, "enum": {}, "typeref": {}, "fixed": {},
}

// scan collects the named definitions declared in v, outermost first
func (d *Decoder) scan(source string, v any, ns string, found *[]*rawDefinition) error {
	switch t := v.(type) {
	case []any:
		for _, member := range t {
			if m, ok := member.(map[string]any); ok {
				if _, aliased := m["alias"]; aliased {
					member = m["type"]
				}
			}
			if err := d.scan(source, member, ns, found); err != nil {
				return err
			}
		}
	case map[string]any:
		kind, ok := t["type"].(string)
		if !ok {
			return d.scan(source, t["type"], ns, found)
		}
		if _, named := namedKinds[kind]; named {
			def, err := newRawDefinition(source, t, ns)
			if err != nil {
				return err
			}
			*found = append(*found, def)
			ns = def.namespace
		}
		switch kind {
		case "record":
			fields, _ := t["fields"].([]any)
			for _, f := range fields {
				fm, ok := f.(map[string]any)
				if !ok {
					continue
				}
				if err := d.scan(source, fm["type"], ns, found); err != nil {
					return err
				}
			}
		case "typeref":
			return d.scan(source, t["ref"], ns, found)
		case "array":
			return d.scan(source, t["items"], ns, found)
		case "map":
			return d.scan(source, t["values"], ns, found)
		}
	}
	return nil
}

func newRawDefinition(source string, node map[string]any, ns string) (*rawDefinition, error) {
	name, _ := node["name"].(string)
	if name == "" {
		return nil, fmt.Errorf("%s: %s schema without a name", source, node["type"])
	}
	if explicit, ok := node["namespace"].(string); ok {
		ns = explicit
	}
	qn := QualifiedName{Name: name, Namespace: ns}
	if strings.Contains(name, ".") {
		qn = splitName(name)
	}
	return &rawDefinition{
		source:    source,
		fullName:  qn.FullName(),
		namespace: qn.Namespace,
		node:      node,
	}, nil
}

func (d *Decoder) named(fullName string) (DataSchema, error) {
	if s, ok := d.decoded[fullName]; ok {
		return s, nil
	}
	def, ok := d.defs[fullName]
	if !ok {
		return nil, fmt.Errorf("unknown type %s", fullName)
	}

	qn := splitName(def.fullName)
	doc, _ := def.node["doc"].(string)
	kind, _ := def.node["type"].(string)

	switch kind {
	case "record":
		rec := &RecordSchema{QualifiedName: qn, Doc: doc}
		rec.Props = properties(def.node, reservedKeys["record"])
		// registered before its fields so self references resolve
		d.decoded[fullName] = rec
		fields, err := d.fields(def)
		if err != nil {
			delete(d.decoded, fullName)
			return nil, err
		}
		rec.Fields = fields
		return rec, nil
	case "enum":
		symbols, err := stringList(def.node["symbols"])
		if err != nil {
			return nil, fmt.Errorf("enum %s: symbols: %w", fullName, err)
		}
		enum := &EnumSchema{QualifiedName: qn, Doc: doc, Symbols: symbols}
		enum.Props = properties(def.node, reservedKeys["enum"])
		d.decoded[fullName] = enum
		return enum, nil
	case "fixed":
		size, ok := toInt(def.node["size"])
		if !ok || size < 0 {
			return nil, fmt.Errorf("fixed %s: size must be a non-negative integer", fullName)
		}
		fixed := &FixedSchema{QualifiedName: qn, Size: size}
		fixed.Props = properties(def.node, reservedKeys["fixed"])
		d.decoded[fullName] = fixed
		return fixed, nil
	case "typeref":
		tr := &TypeRefSchema{QualifiedName: qn, Doc: doc}
		tr.Props = properties(def.node, reservedKeys["typeref"])
		d.decoded[fullName] = tr
		ref, err := d.decodeType(def.node["ref"], def.namespace)
		if err != nil {
			delete(d.decoded, fullName)
			return nil, fmt.Errorf("typeref %s: %w", fullName, err)
		}
		tr.Ref = ref
		// a reference still pending further up leaves a nil Ref at the end of the chain
		if end, ok := tr.Dereferenced().(*TypeRefSchema); ok && end.Ref != nil {
			delete(d.decoded, fullName)
			return nil, fmt.Errorf("typeref cycle through %s", fullName)
		}
		return tr, nil
	default:
		return nil, fmt.Errorf("%s: unsupported named type %q", fullName, kind)
	}
}

func (d *Decoder) fields(def *rawDefinition) ([]*Field, error) {
	raw, ok := def.node["fields"].([]any)
	if !ok && def.node["fields"] != nil {
		return nil, fmt.Errorf("record %s: fields must be a list", def.fullName)
	}
	fields := make([]*Field, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for i, entry := range raw {
		fm, ok := entry.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("record %s: field %d must be an object", def.fullName, i)
		}
		name, _ := fm["name"].(string)
		if name == "" {
			return nil, fmt.Errorf("record %s: field %d has no name", def.fullName, i)
		}
		if seen[name] {
			return nil, fmt.Errorf("record %s: duplicate field %s", def.fullName, name)
		}
		seen[name] = true

		typ, err := d.decodeType(fm["type"], def.namespace)
		if err != nil {
			return nil, fmt.Errorf("record %s: field %s: %w", def.fullName, name, err)
		}
		doc, _ := fm["doc"].(string)
		optional, _ := fm["optional"].(bool)
		fields = append(fields, &Field{
			Name:     name,
			Doc:      doc,
			Type:     typ,
			Optional: optional,
			Props:    properties(fm, reservedKeys["field"]),
		})
	}
	return fields, nil
}

func (d *Decoder) decodeType(v any, ns string) (DataSchema, error) {
	switch t := v.(type) {
	case nil:
		return nil, fmt.Errorf("missing type")
	case string:
		if prim, ok := ParsePrimitiveType(t); ok {
			return NewPrimitive(prim), nil
		}
		return d.reference(t, ns)
	case []any:
		union := &UnionSchema{}
		for i, member := range t {
			alias := ""
			if m, ok := member.(map[string]any); ok {
				if a, aliased := m["alias"]; aliased {
					alias, _ = a.(string)
					if alias == "" {
						return nil, fmt.Errorf("union member %d: alias must be a non-empty string", i)
					}
					member = m["type"]
				}
			}
			typ, err := d.decodeType(member, ns)
			if err != nil {
				return nil, fmt.Errorf("union member %d: %w", i, err)
			}
			union.Members = append(union.Members, &UnionMember{Alias: alias, Type: typ})
		}
		return union, nil
	case map[string]any:
		kind, ok := t["type"].(string)
		if !ok {
			return d.decodeType(t["type"], ns)
		}
		switch kind {
		case "record", "enum", "typeref", "fixed":
			def, err := newRawDefinition("", t, ns)
			if err != nil {
				return nil, err
			}
			return d.named(def.fullName)
		case "array":
			items, err := d.decodeType(t["items"], ns)
			if err != nil {
				return nil, fmt.Errorf("array items: %w", err)
			}
			arr := NewArray(items)
			arr.Props = properties(t, reservedKeys["array"])
			return arr, nil
		case "map":
			values, err := d.decodeType(t["values"], ns)
			if err != nil {
				return nil, fmt.Errorf("map values: %w", err)
			}
			m := NewMap(values)
			m.Props = properties(t, reservedKeys["map"])
			return m, nil
		default:
			prim, ok := ParsePrimitiveType(kind)
			if !ok {
				return d.reference(kind, ns)
			}
			p := NewPrimitive(prim)
			p.Props = properties(t, keySet("type"))
			return p, nil
		}
	default:
		return nil, fmt.Errorf("invalid type declaration %v", v)
	}
}

// reference resolves a type name against the enclosing namespace first
func (d *Decoder) reference(name, ns string) (DataSchema, error) {
	if !strings.Contains(name, ".") && ns != "" {
		if _, ok := d.defs[ns+"."+name]; ok {
			return d.named(ns + "." + name)
		}
	}
	return d.named(name)
}

func properties(node map[string]any, reserved map[string]bool) map[string]any {
	var props map[string]any
	for k, v := range node {
		if reserved[k] {
			continue
		}
		if props == nil {
			props = make(map[string]any)
		}
		props[k] = v
	}
	return props
}

// normalize converts the map[any]any values some YAML documents produce into
// map[string]any, recursively.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = normalize(val)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalize(val)
		}
		return out
	case []any:
		for i, val := range t {
			t[i] = normalize(val)
		}
		return t
	default:
		return v
	}
}

func stringList(v any) ([]string, error) {
	if v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected a list of strings")
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("expected a list of strings")
		}
		out = append(out, s)
	}
	return out, nil
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}

func keySet(keys ...string) map[string]bool {
	set := make(map[string]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	return set
}

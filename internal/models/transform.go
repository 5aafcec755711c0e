package models

import (
	"fmt"

	"youtrack-client/internal/config"
)

// Transformer turns decoded YouTrack JSON into records. Nested objects that
// carry a known $type marker become records of the mapped kind; everything
// else keeps its shape.
type Transformer struct {
	mappings config.Mappings
	registry *Registry
}

// NewTransformer creates a transformer over the given mapping table and registry
func NewTransformer(mappings config.Mappings, registry *Registry) *Transformer {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Transformer{
		mappings: mappings,
		registry: registry,
	}
}

// Mappings returns the mapping table the transformer was built with
func (t *Transformer) Mappings() config.Mappings {
	return t.mappings
}

// KindFor returns the record kind the named entity materializes into
func (t *Transformer) KindFor(entity string) (Kind, error) {
	m, ok := t.mappings.Lookup(entity)
	if !ok {
		return Kind{}, fmt.Errorf("no mapping configured for entity %q", entity)
	}
	k, ok := t.registry.Lookup(m.Kind())
	if !ok {
		return Kind{}, fmt.Errorf("entity %q maps to unknown kind %q", entity, m.Kind())
	}
	return k, nil
}

// Transform walks a decoded JSON value. Objects with a resolvable $type
// marker become *Record, other objects and arrays are walked recursively,
// scalars are returned unchanged.
func (t *Transformer) Transform(v interface{}) interface{} {
	switch val := v.(type) {
	case Object:
		return t.transformObject(val)
	case []interface{}:
		return t.transformList(val)
	default:
		return v
	}
}

func (t *Transformer) transformObject(obj Object) interface{} {
	if kind, ok := t.markerKind(obj); ok {
		return t.Wrap(kind, obj)
	}
	return t.transformFields(obj)
}

// markerKind resolves the $type marker of obj. Unknown markers are not an
// error; the object is then treated as a plain one.
func (t *Transformer) markerKind(obj Object) (Kind, bool) {
	marker, ok := obj[FieldType].(string)
	if !ok || marker == "" {
		return Kind{}, false
	}
	m, ok := t.mappings.Resolve(marker)
	if !ok {
		return Kind{}, false
	}
	return t.registry.Lookup(m.Kind())
}

func (t *Transformer) transformFields(obj Object) Object {
	out := make(Object, len(obj))
	for k, v := range obj {
		out[k] = t.Transform(v)
	}
	return out
}

func (t *Transformer) transformList(list []interface{}) []interface{} {
	out := make([]interface{}, len(list))
	for i, v := range list {
		out[i] = t.Transform(v)
	}
	return out
}

// Wrap builds a record of the given kind from a raw object:
// the raw id is kept as $id, id is replaced by the kind's identifier field,
// nested values are transformed, the kind's reshape hook runs and
// denylisted fields are dropped.
func (t *Transformer) Wrap(kind Kind, raw Object) *Record {
	data := make(Object, len(raw)+1)
	for k, v := range raw {
		data[k] = v
	}
	data[FieldOriginalID] = raw[FieldID]
	data[FieldID] = raw[kind.idField()]

	fields := t.transformFields(data)
	if kind.Reshape != nil {
		fields = kind.Reshape(fields)
	}
	for _, name := range kind.remove() {
		delete(fields, name)
	}

	return &Record{kind: kind.Name, fields: fields}
}

// WrapAll wraps every element of a decoded JSON array. Elements that are
// not objects are wrapped as empty objects.
func (t *Transformer) WrapAll(kind Kind, list []interface{}) []*Record {
	records := make([]*Record, 0, len(list))
	for _, item := range list {
		obj, _ := item.(Object)
		records = append(records, t.Wrap(kind, obj))
	}
	return records
}

package models

import (
	"encoding/json"
	"fmt"
)

// Field names with special meaning on every record
const (
	FieldID         = "id"
	FieldOriginalID = "$id"
	FieldType       = "$type"
)

// Object is a decoded JSON object
type Object = map[string]interface{}

// Record is a typed projection of a remote YouTrack entity. Its fields are
// already transformed, reshaped and stripped of denylisted keys. A Record is
// never modified after construction: accessors hand out copies of nested
// objects and lists.
type Record struct {
	kind   string
	fields Object
}

// Kind returns the record kind name, e.g. "issue"
func (r *Record) Kind() string {
	return r.kind
}

// Get returns the named field. Unknown names report ok=false.
func (r *Record) Get(name string) (interface{}, bool) {
	v, ok := r.fields[name]
	return detach(v), ok
}

// String returns the named field formatted as a string, or "" when absent
func (r *Record) String(name string) string {
	v, ok := r.fields[name]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// ID returns the normalized identifier
func (r *Record) ID() string {
	return r.String(FieldID)
}

// OriginalID returns the identifier as sent by YouTrack before normalization
func (r *Record) OriginalID() string {
	return r.String(FieldOriginalID)
}

// Fields returns a copy of the record fields. Nested records are shared.
func (r *Record) Fields() Object {
	return detach(r.fields).(Object)
}

// Plain returns the record as JSON-native values with nested records
// expanded into plain objects.
func (r *Record) Plain() Object {
	return Plain(r.fields).(Object)
}

// MarshalJSON emits the record fields
func (r *Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.fields)
}

// detach copies objects and lists, keeping nested records as they are
func detach(v interface{}) interface{} {
	switch val := v.(type) {
	case Object:
		out := make(Object, len(val))
		for k, item := range val {
			out[k] = detach(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = detach(item)
		}
		return out
	case []*Record:
		out := make([]*Record, len(val))
		copy(out, val)
		return out
	default:
		return v
	}
}

// Plain converts a transformed value back to JSON-native values
func Plain(v interface{}) interface{} {
	switch val := v.(type) {
	case *Record:
		return val.Plain()
	case Object:
		out := make(Object, len(val))
		for k, item := range val {
			out[k] = Plain(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = Plain(item)
		}
		return out
	case []*Record:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = item.Plain()
		}
		return out
	default:
		return v
	}
}

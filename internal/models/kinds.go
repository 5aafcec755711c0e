package models

import (
	"fmt"
	"sort"

	"youtrack-client/internal/config"
)

// ReshapeFunc rewrites the transformed fields of a record before denylisted
// fields are dropped. It may modify and return its argument.
type ReshapeFunc func(fields Object) Object

// Kind describes how raw YouTrack objects become records
type Kind struct {
	Name    string
	IDField string
	Remove  []string
	Reshape ReshapeFunc
}

func (k Kind) idField() string {
	if k.IDField == "" {
		return FieldID
	}
	return k.IDField
}

func (k Kind) remove() []string {
	if k.Remove == nil {
		return []string{FieldType}
	}
	return k.Remove
}

// Registry maps kind names to their construction rules
type Registry struct {
	kinds map[string]Kind
}

// NewRegistry returns a registry holding every built-in kind
func NewRegistry() *Registry {
	r := &Registry{kinds: make(map[string]Kind)}

	for _, name := range []string{
		config.EntityOrganization,
		config.EntityProject,
		config.EntityArticle,
		config.EntityAttachment,
		config.EntityAgile,
		config.EntityProjectTimeTrackingSettings,
		config.EntityUser,
	} {
		r.Register(Kind{Name: name})
	}

	r.Register(Kind{
		Name:    config.EntityIssue,
		IDField: "idReadable",
		Reshape: CollapseCustomFields,
	})

	return r
}

// Register adds or replaces a kind
func (r *Registry) Register(k Kind) {
	r.kinds[k.Name] = k
}

// Lookup returns the kind registered under name
func (r *Registry) Lookup(name string) (Kind, bool) {
	k, ok := r.kinds[name]
	return k, ok
}

// Names returns registered kind names in sorted order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.kinds))
	for name := range r.kinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CollapseCustomFields replaces the customFields list of an issue with a
// "custom" object keyed by custom field name. Issues without customFields
// get an empty "custom" object.
func CollapseCustomFields(fields Object) Object {
	custom := Object{}

	if list, ok := fields["customFields"].([]interface{}); ok {
		for _, entry := range list {
			name, ok := lookupName(entry)
			if !ok {
				continue
			}
			custom[name] = entry
		}
	}

	delete(fields, "customFields")
	fields["custom"] = custom
	return fields
}

func lookupName(entry interface{}) (string, bool) {
	var v interface{}
	switch e := entry.(type) {
	case Object:
		v = e["name"]
	case *Record:
		v, _ = e.Get("name")
	default:
		return "", false
	}

	switch name := v.(type) {
	case string:
		return name, true
	case nil:
		return "", false
	default:
		return fmt.Sprint(name), true
	}
}

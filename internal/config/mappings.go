package config

import (
	"sort"
	"strings"
	"unicode"
)

// Entity names of the built-in mapping table
const (
	EntityOrganization                = "organization"
	EntityProject                     = "project"
	EntityArticle                     = "article"
	EntityAttachment                  = "attachment"
	EntityAgile                       = "agile"
	EntityIssue                       = "issue"
	EntityProjectTimeTrackingSettings = "projectTimeTrackingSettings"
	EntityUser                        = "user"
)

// EntityMapping describes which remote fields to request for an entity and
// which record kind to materialize results into. Field strings use
// YouTrack's field-selection syntax and are sent verbatim.
type EntityMapping struct {
	Name         string
	Fields       string
	DetailFields string
	Type         string
}

// Detail returns the single-record field list, falling back to Fields
func (m EntityMapping) Detail() string {
	if m.DetailFields != "" {
		return m.DetailFields
	}
	return m.Fields
}

// Kind returns the record kind this entity materializes into
func (m EntityMapping) Kind() string {
	if m.Type != "" {
		return m.Type
	}
	return m.Name
}

// Mappings is an immutable table of entity mappings keyed by entity name
type Mappings struct {
	entries map[string]EntityMapping
}

// NewMappings builds a table from the given entries. Later entries replace
// earlier ones with the same name.
func NewMappings(entries ...EntityMapping) Mappings {
	m := Mappings{entries: make(map[string]EntityMapping, len(entries))}
	for _, e := range entries {
		m.entries[e.Name] = e
	}
	return m
}

// DefaultMappings returns the built-in mapping table
func DefaultMappings() Mappings {
	return NewMappings(
		EntityMapping{
			Name:   EntityOrganization,
			Fields: "id,name",
		},
		EntityMapping{
			Name:   EntityProject,
			Fields: "id,shortName,name,organization(id),iconUrl",
		},
		EntityMapping{
			Name:   EntityArticle,
			Fields: "id,idReadable,summary,project(shortName),childArticles(id),parentArticle(id),ordinal",
			DetailFields: "created,updated,id,idReadable,reporter(name),summary,project(shortName),content," +
				"childArticles(id),parentArticle(id),ordinal",
		},
		EntityMapping{
			Name:   EntityAttachment,
			Fields: "id,name,created,updated,size,mimeType,extension,url",
		},
		EntityMapping{
			Name:   EntityAgile,
			Fields: "id,name,projects(id,shortName)",
			DetailFields: "id,name,columnSettings(field(id,name)" +
				",columns(presentation,isResolved,ordinal,fieldValues(id,name)))",
		},
		EntityMapping{
			Name: EntityIssue,
			Fields: "id,idReadable,created,resolved,summary" +
				",customFields(id,name,value(id,name,localizedName,presentation))" +
				",projectFields(id)",
			DetailFields: "id,idReadable,created,resolved,summary,description,usesMarkdown" +
				",customFields(id,name,value(id,name,localizedName,presentation))" +
				",comments(author(name,avatarUrl),attachments(name,url,thumbnailURL),created,text,usesMarkdown)" +
				",attachments(name,url,thumbnailURL)",
		},
		EntityMapping{
			Name: EntityProjectTimeTrackingSettings,
			Fields: "enabled,estimate(field(id,name,localizedName),emptyFieldText)" +
				",timeSpent(field(id,name,localizedName),emptyFieldText)" +
				",workItemTypes(name)",
		},
		EntityMapping{
			Name:   EntityUser,
			Fields: "id,fullName,avatarUrl",
		},
	)
}

// Lookup returns the mapping registered under name
func (m Mappings) Lookup(name string) (EntityMapping, bool) {
	e, ok := m.entries[name]
	return e, ok
}

// With returns a copy of the table with e added or replaced
func (m Mappings) With(e EntityMapping) Mappings {
	out := Mappings{entries: make(map[string]EntityMapping, len(m.entries)+1)}
	for k, v := range m.entries {
		out.entries[k] = v
	}
	out.entries[e.Name] = e
	return out
}

// Names returns the entity names in sorted order
func (m Mappings) Names() []string {
	names := make([]string, 0, len(m.entries))
	for name := range m.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve finds the mapping for a discriminant marker as sent by YouTrack,
// e.g. "ProjectTimeTrackingSettings" resolves to projectTimeTrackingSettings.
func (m Mappings) Resolve(marker string) (EntityMapping, bool) {
	key := CamelCase(marker)
	if key == "" {
		return EntityMapping{}, false
	}
	if e, ok := m.entries[key]; ok {
		return e, true
	}
	for name, e := range m.entries {
		if strings.EqualFold(name, key) {
			return e, true
		}
	}
	return EntityMapping{}, false
}

// CamelCase converts "ProjectTimeTrackingSettings", "project_time" or
// "project-time" to lower camel case.
func CamelCase(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool {
		return r == '_' || r == '-' || unicode.IsSpace(r)
	})

	var b strings.Builder
	for i, w := range words {
		runes := []rune(w)
		if i == 0 {
			runes[0] = unicode.ToLower(runes[0])
		} else {
			runes[0] = unicode.ToUpper(runes[0])
		}
		b.WriteString(string(runes))
	}
	return b.String()
}

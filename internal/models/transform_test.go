package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"youtrack-client/internal/config"
)

func newTestTransformer() *Transformer {
	return NewTransformer(config.DefaultMappings(), NewRegistry())
}

func decode(t *testing.T, s string) interface{} {
	t.Helper()
	var v interface{}
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return v
}

func TestTransform_KnownMarkerBecomesRecord(t *testing.T) {
	tr := newTestTransformer()

	tests := []struct {
		name     string
		input    string
		wantKind string
	}{
		{name: "project", input: `{"$type":"Project","id":"0-1","name":"Demo"}`, wantKind: "project"},
		{name: "user", input: `{"$type":"User","id":"1-1","fullName":"Ann"}`, wantKind: "user"},
		{name: "issue", input: `{"$type":"Issue","id":"2-1","idReadable":"DM-1"}`, wantKind: "issue"},
		{
			name:     "time tracking settings",
			input:    `{"$type":"ProjectTimeTrackingSettings","id":"x","enabled":true}`,
			wantKind: "projectTimeTrackingSettings",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tr.Transform(decode(t, tt.input))

			record, ok := got.(*Record)
			require.True(t, ok, "expected *Record, got %T", got)
			assert.Equal(t, tt.wantKind, record.Kind())

			_, hasMarker := record.Get(FieldType)
			assert.False(t, hasMarker)

			out, err := json.Marshal(record)
			require.NoError(t, err)
			assert.NotContains(t, string(out), `"$type"`)
		})
	}
}

func TestTransform_UnknownMarkerStaysPlain(t *testing.T) {
	tr := newTestTransformer()

	got := tr.Transform(decode(t, `{
		"$type": "SingleEnumIssueCustomField",
		"name": "Priority",
		"value": {"$type": "User", "id": "1-2", "fullName": "Bob"}
	}`))

	obj, ok := got.(Object)
	require.True(t, ok, "expected plain object, got %T", got)
	assert.Equal(t, "SingleEnumIssueCustomField", obj[FieldType])
	assert.Equal(t, "Priority", obj["name"])

	user, ok := obj["value"].(*Record)
	require.True(t, ok, "nested known marker should still be wrapped")
	assert.Equal(t, "user", user.Kind())
	assert.Equal(t, "Bob", user.String("fullName"))
}

func TestTransform_NoMarker(t *testing.T) {
	tr := newTestTransformer()

	tests := []struct {
		name  string
		input string
	}{
		{name: "missing marker", input: `{"name":"x","nested":{"a":1}}`},
		{name: "empty marker", input: `{"$type":"","name":"x"}`},
		{name: "non-string marker", input: `{"$type":42,"name":"x"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := decode(t, tt.input)
			got := tr.Transform(input)
			assert.Equal(t, input, got)
		})
	}
}

func TestTransform_ArraysAndScalars(t *testing.T) {
	tr := newTestTransformer()

	got := tr.Transform(decode(t, `[
		{"$type":"User","id":"1-1"},
		[{"$type":"Project","id":"0-1"}],
		"text",
		3,
		null,
		true
	]`))

	list, ok := got.([]interface{})
	require.True(t, ok)
	require.Len(t, list, 6)

	assert.IsType(t, &Record{}, list[0])

	inner, ok := list[1].([]interface{})
	require.True(t, ok)
	assert.IsType(t, &Record{}, inner[0])

	assert.Equal(t, "text", list[2])
	assert.Equal(t, float64(3), list[3])
	assert.Nil(t, list[4])
	assert.Equal(t, true, list[5])
}

func TestTransform_DoesNotMutateInput(t *testing.T) {
	tr := newTestTransformer()
	input := decode(t, `{"owner":{"$type":"User","id":"1-1"}}`).(Object)

	tr.Transform(input)

	owner := input["owner"].(Object)
	assert.Equal(t, "User", owner[FieldType])
}

func TestTransform_CustomMappingType(t *testing.T) {
	mappings := config.DefaultMappings().With(config.EntityMapping{
		Name:   "savedQuery",
		Fields: "id,name",
		Type:   config.EntityUser,
	})
	tr := NewTransformer(mappings, NewRegistry())

	got := tr.Transform(decode(t, `{"$type":"SavedQuery","id":"5-1"}`))
	record, ok := got.(*Record)
	require.True(t, ok)
	assert.Equal(t, config.EntityUser, record.Kind())
}

func TestWrap_IdentifierRewrite(t *testing.T) {
	tr := newTestTransformer()
	kind, err := tr.KindFor(config.EntityIssue)
	require.NoError(t, err)

	record := tr.Wrap(kind, Object{"id": "A", "idReadable": "B"})

	assert.Equal(t, "B", record.ID())
	assert.Equal(t, "A", record.OriginalID())
}

func TestWrap_DefaultIdentifier(t *testing.T) {
	tr := newTestTransformer()
	kind, err := tr.KindFor(config.EntityProject)
	require.NoError(t, err)

	record := tr.Wrap(kind, Object{"id": "0-1", "$type": "Project"})

	assert.Equal(t, "0-1", record.ID())
	assert.Equal(t, "0-1", record.OriginalID())
	_, ok := record.Get(FieldType)
	assert.False(t, ok)
}

func TestWrap_MissingIdentifierField(t *testing.T) {
	tr := newTestTransformer()
	kind, err := tr.KindFor(config.EntityIssue)
	require.NoError(t, err)

	record := tr.Wrap(kind, Object{"id": "2-1"})

	v, ok := record.Get(FieldID)
	assert.True(t, ok)
	assert.Nil(t, v)
	assert.Equal(t, "", record.ID())
	assert.Equal(t, "2-1", record.OriginalID())
}

func TestWrap_CustomDenylist(t *testing.T) {
	registry := NewRegistry()
	registry.Register(Kind{Name: config.EntityUser, Remove: []string{FieldType, "avatarUrl"}})
	tr := NewTransformer(config.DefaultMappings(), registry)

	kind, err := tr.KindFor(config.EntityUser)
	require.NoError(t, err)
	record := tr.Wrap(kind, Object{"id": "1-1", "$type": "User", "avatarUrl": "/a.png", "fullName": "Ann"})

	_, ok := record.Get("avatarUrl")
	assert.False(t, ok)
	_, ok = record.Get(FieldType)
	assert.False(t, ok)
	assert.Equal(t, "Ann", record.String("fullName"))
}

func TestKindFor_Errors(t *testing.T) {
	mappings := config.DefaultMappings().With(config.EntityMapping{Name: "broken", Fields: "id", Type: "nothing"})
	tr := NewTransformer(mappings, NewRegistry())

	_, err := tr.KindFor("missing")
	assert.Error(t, err)

	_, err = tr.KindFor("broken")
	assert.Error(t, err)
}

func TestWrapAll(t *testing.T) {
	tr := newTestTransformer()
	kind, err := tr.KindFor(config.EntityIssue)
	require.NoError(t, err)

	records := tr.WrapAll(kind, decode(t, `[
		{"id":"2-1","idReadable":"DM-1"},
		{"id":"2-2","idReadable":"DM-2"}
	]`).([]interface{}))

	require.Len(t, records, 2)
	assert.Equal(t, "DM-1", records[0].ID())
	assert.Equal(t, "DM-2", records[1].ID())
}

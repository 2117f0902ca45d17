package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupingDocument_UnmarshalVersionShapes(t *testing.T) {
	tests := []struct {
		name        string
		payload     string
		wantVersion string
		wantNil     bool
	}{
		{name: "quoted string", payload: `{"version": "1.0", "groups": []}`, wantVersion: "1.0"},
		{name: "bare number", payload: `{"version": 1.0, "groups": []}`, wantVersion: "1"},
		{name: "higher version", payload: `{"version": "2.5", "groups": []}`, wantVersion: "2.5"},
		{name: "missing version", payload: `{"groups": []}`, wantNil: true},
		{name: "garbage version", payload: `{"version": "latest", "groups": []}`, wantNil: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var doc GroupingDocument
			require.NoError(t, json.Unmarshal([]byte(tt.payload), &doc))

			if tt.wantNil {
				assert.Nil(t, doc.Version)
				return
			}
			require.NotNil(t, doc.Version)
			assert.Equal(t, tt.wantVersion, doc.Version.Original())
		})
	}
}

func TestGroupingDocument_UnmarshalGroups(t *testing.T) {
	payload := `{
		"version": "1.0",
		"groups": [
			{"id": "alice@x.com", "emails": ["alice@x.com", "asmith@x.com"], "display_name": "Alice"}
		]
	}`

	var doc GroupingDocument
	require.NoError(t, json.Unmarshal([]byte(payload), &doc))

	require.Len(t, doc.Groups, 1)
	assert.Equal(t, "alice@x.com", doc.Groups[0].ID)
	assert.Equal(t, []string{"alice@x.com", "asmith@x.com"}, doc.Groups[0].Emails)
	assert.Equal(t, "Alice", doc.Groups[0].DisplayName)
}

func TestGroupingDocument_MarshalWritesCurrentVersion(t *testing.T) {
	data, err := json.Marshal(GroupingDocument{})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "1.0", decoded["version"])
	// nil groups marshal as an empty array, not null
	assert.Equal(t, []any{}, decoded["groups"])
}

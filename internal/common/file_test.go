package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type feedDocument struct {
	Version    string            `json:"version"`
	Connectors map[string]string `json:"connectors"`
}

func TestReadDataToInterface_JSON(t *testing.T) {
	data := []byte(`{"version": "1.0", "connectors": {"corp": "okta"}}`)

	decoded, err := ReadDataToInterface(data, feedDocument{})
	require.NoError(t, err)

	assert.Equal(t, "1.0", decoded.Version)
	assert.Equal(t, map[string]string{"corp": "okta"}, decoded.Connectors)
}

func TestReadDataToInterface_JSONWithLeadingWhitespace(t *testing.T) {
	data := []byte("\n\t {\"version\": \"1.0\"}")

	decoded, err := ReadDataToInterface(data, feedDocument{})
	require.NoError(t, err)
	assert.Equal(t, "1.0", decoded.Version)
}

func TestReadDataToInterface_YAML(t *testing.T) {
	data := []byte("version: \"1.0\"\nconnectors:\n  corp: okta\n")

	decoded, err := ReadDataToInterface(data, feedDocument{})
	require.NoError(t, err)

	assert.Equal(t, "1.0", decoded.Version)
	assert.Equal(t, map[string]string{"corp": "okta"}, decoded.Connectors)
}

func TestReadDataToInterface_Empty(t *testing.T) {
	_, err := ReadDataToInterface([]byte("   \n"), feedDocument{})
	assert.Error(t, err)
}

func TestReadDataToInterface_Malformed(t *testing.T) {
	_, err := ReadDataToInterface([]byte(`{"version": `), feedDocument{})
	assert.Error(t, err)
}

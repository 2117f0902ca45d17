package models

import (
	"encoding/json"

	"github.com/hashicorp/go-version"
)

/*
name: corp-okta
description: Corporate Okta org
connector: okta
config:

	org_url: https://example.okta.com
	api_token: "00a..."

enabled: true
*/
type ConnectorDefinition struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Connector   string       `json:"connector"`        // e.g. okta, slack, ldap
	Config      *BasicConfig `json:"config,omitempty"` // Connector-specific configuration
	Enabled     bool         `json:"enabled"`
}

func (d *ConnectorDefinition) GetConfig() *BasicConfig {
	return d.Config
}

// ConnectorDefinitions is a collection of connector configurations loaded
// from the config file, an external file or directory, a URL, or inline data.
type ConnectorDefinitions struct {
	Version    *version.Version               `yaml:"version" json:"version"`
	Connectors map[string]ConnectorDefinition `yaml:"connectors" json:"connectors"`
}

// UnmarshalJSON accepts the version field as a string or number.
func (d *ConnectorDefinitions) UnmarshalJSON(data []byte) error {
	type Alias ConnectorDefinitions
	aux := &struct {
		Version any `json:"version"`
		*Alias
	}{
		Alias: (*Alias)(d),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	parsedVersion, err := version.NewVersion(coerceVersionString(aux.Version))
	if err != nil {
		return err
	}

	d.Version = parsedVersion

	return nil
}

// UnmarshalYAML accepts the version field as a string or number.
func (d *ConnectorDefinitions) UnmarshalYAML(unmarshal func(any) error) error {
	type Alias ConnectorDefinitions
	aux := &struct {
		Version any `yaml:"version"`
		*Alias
	}{
		Alias: (*Alias)(d),
	}

	if err := unmarshal(&aux); err != nil {
		return err
	}

	parsedVersion, err := version.NewVersion(coerceVersionString(aux.Version))
	if err != nil {
		return err
	}

	d.Version = parsedVersion

	return nil
}

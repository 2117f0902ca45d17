package config

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-version"
	"github.com/sirupsen/logrus"

	"github.com/idsweep-io/idsweep/internal/connectors"
	"github.com/idsweep-io/idsweep/internal/models"

	// Load modules
	_ "github.com/idsweep-io/idsweep/internal/connectors/awsidentity"
	_ "github.com/idsweep-io/idsweep/internal/connectors/entra"
	_ "github.com/idsweep-io/idsweep/internal/connectors/gworkspace"
	_ "github.com/idsweep-io/idsweep/internal/connectors/hrfeed"
	_ "github.com/idsweep-io/idsweep/internal/connectors/ldap"
	_ "github.com/idsweep-io/idsweep/internal/connectors/okta"
	_ "github.com/idsweep-io/idsweep/internal/connectors/radius"
	_ "github.com/idsweep-io/idsweep/internal/connectors/rest"
	_ "github.com/idsweep-io/idsweep/internal/connectors/slack"
)

// LoadConnectorDefinitions loads connector definitions from the configured
// sources and filters them down to the enabled ones.
func (c *Config) LoadConnectorDefinitions() (map[string]models.ConnectorDefinition, error) {

	foundConnectors := []*models.ConnectorDefinitions{}

	if c.Connectors.IsExternal() {

		importedConnectors, err := loadDataFromSource(
			c.Connectors.Path,
			c.Connectors.URL,
			c.Connectors.Data,
			c.GetConnectorFetchTimeout(),
		)

		if err != nil {
			logrus.WithError(err).Errorln("Failed to load connectors data")
			return nil, fmt.Errorf("failed to load connectors data: %w", err)
		}

		foundConnectors = importedConnectors

	}

	if len(c.Connectors.Definitions) > 0 {
		// Add connectors defined directly in config
		logrus.Debugln("Adding connectors defined directly in config: ", len(c.Connectors.Definitions))

		defaultVersion := version.Must(version.NewVersion("1.0"))

		for connectorKey, connector := range c.Connectors.Definitions {
			foundConnectors = append(foundConnectors, &models.ConnectorDefinitions{
				Version: defaultVersion,
				Connectors: map[string]models.ConnectorDefinition{
					connectorKey: connector,
				},
			})
		}
	}

	return processConnectorDefinitions(foundConnectors), nil
}

// processConnectorDefinitions processes raw definition documents and returns
// the enabled connectors keyed by definition name
func processConnectorDefinitions(foundConnectors []*models.ConnectorDefinitions) map[string]models.ConnectorDefinition {
	defs := make(map[string]models.ConnectorDefinition)
	logrus.Debugln("Processing loaded connectors: ", len(foundConnectors))

	for _, document := range foundConnectors {
		for connectorKey, def := range document.Connectors {
			if !shouldIncludeConnector(connectorKey, def, defs) {
				continue
			}

			if len(def.Name) == 0 {
				def.Name = connectorKey
			}

			defs[connectorKey] = def
			logrus.Infoln("Found connector:", connectorKey, "of type", def.Connector)
		}
	}

	return defs
}

// shouldIncludeConnector determines if a definition should be included in the
// final list
func shouldIncludeConnector(connectorKey string, def models.ConnectorDefinition, existingDefs map[string]models.ConnectorDefinition) bool {
	if !def.Enabled {
		logrus.Infoln("Connector disabled (not marked as enabled):", connectorKey)
		return false
	}

	if _, exists := existingDefs[connectorKey]; exists {
		logrus.Warningln("Duplicate connector key found, skipping:", connectorKey)
		return false
	}

	return true
}

// BuildConnectors returns one initialized instance of every registered
// connector type. Definitions supply per-type configuration; registered types
// with no definition still get an instance so they can report themselves as
// unavailable rather than silently vanishing.
func (c *Config) BuildConnectors() ([]models.Connector, error) {

	defs, err := c.LoadConnectorDefinitions()
	if err != nil {
		return nil, err
	}

	configByID := make(map[string]*models.BasicConfig)
	for connectorKey, def := range defs {
		target := strings.ToLower(def.Connector)
		if len(target) == 0 {
			target = strings.ToLower(connectorKey)
		}
		configByID[target] = def.GetConfig()
	}

	return connectors.GetAllConnectors(configByID), nil
}

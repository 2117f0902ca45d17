package connectors

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/idsweep-io/idsweep/internal/models"
	"github.com/sirupsen/logrus"
)

var (
	registry      = make(map[string]models.Connector)
	registryMutex sync.RWMutex
)

// Register adds a connector template to the registry. Connector packages call
// this from init. Registering an id that already exists replaces the previous
// template.
func Register(name string, connector models.Connector) {
	name = strings.ToLower(name)
	registryMutex.Lock()
	defer registryMutex.Unlock()
	registry[name] = connector
}

// CreateInstance returns a new, uninitialized instance of the named
// connector, built by reflection from the registered template's type.
func CreateInstance(name string) (models.Connector, error) {
	name = strings.ToLower(name)
	registryMutex.RLock()
	template, exists := registry[name]
	registryMutex.RUnlock()
	if !exists {
		return nil, fmt.Errorf("connector not registered: %s", name)
	}

	connectorType := reflect.TypeOf(template)
	if connectorType.Kind() == reflect.Pointer {
		connectorType = connectorType.Elem()
	}
	newInstance := reflect.New(connectorType)
	return newInstance.Interface().(models.Connector), nil
}

// GetConnector builds exactly one connector instance bound to the given
// configuration. Unknown ids fail; initialization failures are returned to
// the caller.
func GetConnector(name string, config *models.BasicConfig) (models.Connector, error) {
	instance, err := CreateInstance(name)
	if err != nil {
		return nil, err
	}
	if err := instance.Initialize(config); err != nil {
		return nil, fmt.Errorf("failed to initialize connector %s: %w", name, err)
	}
	return instance, nil
}

// GetAllConnectors builds one instance of every registered connector, passing
// each its own slice of the per-connector configuration map. A missing slice
// is a nil config, which connectors surface through their own ValidateConfig.
// Connectors that fail to initialize are logged and skipped.
func GetAllConnectors(configByID map[string]*models.BasicConfig) []models.Connector {
	ids := ListConnectorIDs()
	instances := make([]models.Connector, 0, len(ids))
	for _, id := range ids {
		instance, err := GetConnector(id, configByID[id])
		if err != nil {
			logrus.WithError(err).WithField("connector", id).Warn("Skipping connector that failed to initialize")
			continue
		}
		instances = append(instances, instance)
	}
	return instances
}

// ListConnectorIDs returns the registered connector ids in sorted order.
func ListConnectorIDs() []string {
	registryMutex.RLock()
	defer registryMutex.RUnlock()
	return slices.Sorted(maps.Keys(registry))
}

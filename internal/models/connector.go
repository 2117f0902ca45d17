package models

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrNotSupported marks a capability a connector does not implement. The
// aggregation engine excludes such connectors from the operation silently;
// it is never a user-facing failure.
var ErrNotSupported = errors.New("not supported")

// ErrInvalidConfig marks a connector whose configuration is missing or
// malformed. The connector refuses to query its source and is treated as
// unavailable for the operation.
var ErrInvalidConfig = errors.New("invalid configuration")

type ConnectorCapability string

const (
	// CapabilityExistence is the required capability: answer whether a single
	// identifier exists in the source.
	CapabilityExistence ConnectorCapability = "existence"
	// CapabilityEnumeration means the connector can list every identifier it
	// knows about.
	CapabilityEnumeration ConnectorCapability = "enumeration"
	// CapabilityDetails means the connector can return a structured attribute
	// record for an identifier.
	CapabilityDetails ConnectorCapability = "details"
)

func GetCapabilityFromString(capability string) (ConnectorCapability, error) {
	switch strings.ToLower(capability) {
	case string(CapabilityExistence):
		return CapabilityExistence, nil
	case string(CapabilityEnumeration):
		return CapabilityEnumeration, nil
	case string(CapabilityDetails):
		return CapabilityDetails, nil
	default:
		return "", fmt.Errorf("unknown capability: %s", capability)
	}
}

// Connector is the uniform contract over one identity source. Implementations
// are constructed fresh per request through the registry and must not share
// mutable state across instances beyond caches that are safe to rebuild.
//
// CheckUser reports whether the identifier resolves to an existing, active
// principal. "Not found" is (false, nil); errors are reserved for source-level
// failures such as authentication, network or configuration problems.
//
// ListUsers and GetUserDetails are optional. Connectors without the matching
// capability return ErrNotSupported so callers can distinguish "cannot" from
// "failed".
type Connector interface {
	Initialize(config *BasicConfig) error

	GetConnectorID() string
	GetDisplayName() string
	GetConfig() *BasicConfig

	GetCapabilities() []ConnectorCapability
	HasCapability(capability ConnectorCapability) bool
	HasAnyCapability(capabilities ...ConnectorCapability) bool

	// ValidateConfig is a pure predicate over the bound configuration. It is
	// checked before any network operation; a connector whose config fails
	// validation refuses to perform its check rather than guess.
	ValidateConfig() error

	CheckUser(ctx context.Context, identifier string) (bool, error)
	ListUsers(ctx context.Context) ([]string, error)
	GetUserDetails(ctx context.Context, identifier string) (*UserDetails, error)
}

// BaseConnector carries the identity, capability set and bound configuration
// shared by every connector implementation. Concrete connectors embed it and
// install it from their Initialize.
type BaseConnector struct {
	id           string
	displayName  string
	config       *BasicConfig
	capabilities []ConnectorCapability
}

func NewBaseConnector(id string, displayName string, config *BasicConfig, capabilities ...ConnectorCapability) *BaseConnector {
	return &BaseConnector{
		id:           id,
		displayName:  displayName,
		config:       config,
		capabilities: capabilities,
	}
}

func (b *BaseConnector) GetConnectorID() string {
	return b.id
}

func (b *BaseConnector) GetDisplayName() string {
	return b.displayName
}

func (b *BaseConnector) GetConfig() *BasicConfig {
	return b.config
}

func (b *BaseConnector) GetCapabilities() []ConnectorCapability {
	return b.capabilities
}

func (b *BaseConnector) HasCapability(capability ConnectorCapability) bool {
	return slices.Contains(b.capabilities, capability)
}

func (b *BaseConnector) HasAnyCapability(capabilities ...ConnectorCapability) bool {
	return slices.ContainsFunc(capabilities, b.HasCapability)
}

// ValidateConfig accepts any configuration. Connectors with required fields
// override it.
func (b *BaseConnector) ValidateConfig() error {
	return nil
}

// ListUsers is the default for connectors without enumeration support.
func (b *BaseConnector) ListUsers(ctx context.Context) ([]string, error) {
	return nil, ErrNotSupported
}

// GetUserDetails is the default for connectors without detail support. The
// engine falls back to CheckUser and reports bare existence in that case.
func (b *BaseConnector) GetUserDetails(ctx context.Context, identifier string) (*UserDetails, error) {
	return nil, ErrNotSupported
}

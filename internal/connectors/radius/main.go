package radius

import (
	"context"
	"fmt"
	"time"

	"layeh.com/radius"
	"layeh.com/radius/rfc2865"

	"github.com/idsweep-io/idsweep/internal/connectors"
	"github.com/idsweep-io/idsweep/internal/models"
)

const ConnectorID = "radius"

// radiusConnector probes a RADIUS server with an Access-Request carrying a
// deliberately wrong password. An Access-Accept proves the account exists.
// A reject is reported as absent even though most servers answer identically
// for wrong passwords and unknown users, so only accepts are authoritative.
type radiusConnector struct {
	*models.BaseConnector

	server        string
	secret        string
	probePassword string
	nasIdentifier string
	timeout       time.Duration
}

func (c *radiusConnector) Initialize(config *models.BasicConfig) error {
	c.BaseConnector = models.NewBaseConnector(ConnectorID, "RADIUS", config,
		models.CapabilityExistence,
	)

	c.server, _ = config.GetString("server")
	c.secret, _ = config.GetString("secret")
	c.probePassword, _ = config.GetString("probe_password")
	c.nasIdentifier = config.GetStringWithDefault("nas_identifier", "idsweep")
	c.timeout = config.GetDurationWithDefault("timeout", 5*time.Second)

	return nil
}

func (c *radiusConnector) ValidateConfig() error {
	if len(c.server) == 0 {
		return fmt.Errorf("%w: server is required", models.ErrInvalidConfig)
	}
	if len(c.secret) == 0 {
		return fmt.Errorf("%w: secret is required", models.ErrInvalidConfig)
	}
	if len(c.probePassword) == 0 {
		return fmt.Errorf("%w: probe_password is required", models.ErrInvalidConfig)
	}
	return nil
}

func (c *radiusConnector) CheckUser(ctx context.Context, identifier string) (bool, error) {
	if err := c.ValidateConfig(); err != nil {
		return false, err
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	packet := radius.New(radius.CodeAccessRequest, []byte(c.secret))
	if err := rfc2865.UserName_SetString(packet, identifier); err != nil {
		return false, fmt.Errorf("failed to build request: %w", err)
	}
	if err := rfc2865.UserPassword_SetString(packet, c.probePassword); err != nil {
		return false, fmt.Errorf("failed to build request: %w", err)
	}
	if err := rfc2865.NASIdentifier_SetString(packet, c.nasIdentifier); err != nil {
		return false, fmt.Errorf("failed to build request: %w", err)
	}

	response, err := radius.Exchange(ctx, packet, c.server)
	if err != nil {
		return false, fmt.Errorf("exchange with %s failed: %w", c.server, err)
	}
	return response.Code == radius.CodeAccessAccept, nil
}

func init() {
	connectors.Register(ConnectorID, &radiusConnector{})
}

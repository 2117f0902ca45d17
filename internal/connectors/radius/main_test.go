package radius

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"layeh.com/radius"
	"layeh.com/radius/rfc2865"

	"github.com/idsweep-io/idsweep/internal/models"
)

func startServer(t *testing.T, handler radius.HandlerFunc, secret string) string {
	t.Helper()

	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	server := &radius.PacketServer{
		Handler:      handler,
		SecretSource: radius.StaticSecretSource([]byte(secret)),
	}
	go func() {
		_ = server.Serve(conn)
	}()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	})

	return conn.LocalAddr().String()
}

func newRadiusConnector(t *testing.T, config models.BasicConfig) *radiusConnector {
	t.Helper()
	connector := &radiusConnector{}
	require.NoError(t, connector.Initialize(&config))
	return connector
}

func TestCheckUser_AcceptMeansPresent(t *testing.T) {
	var (
		mu          sync.Mutex
		gotUser     string
		gotPassword string
		gotNAS      string
	)

	addr := startServer(t, func(w radius.ResponseWriter, r *radius.Request) {
		username := rfc2865.UserName_GetString(r.Packet)

		mu.Lock()
		gotUser = username
		gotPassword = rfc2865.UserPassword_GetString(r.Packet)
		gotNAS = rfc2865.NASIdentifier_GetString(r.Packet)
		mu.Unlock()

		code := radius.CodeAccessReject
		if username == "alice" {
			code = radius.CodeAccessAccept
		}
		_ = w.Write(r.Response(code))
	}, "testing123")

	connector := newRadiusConnector(t, models.BasicConfig{
		"server":         addr,
		"secret":         "testing123",
		"probe_password": "wrong-on-purpose",
	})

	found, err := connector.CheckUser(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, found)

	mu.Lock()
	assert.Equal(t, "alice", gotUser)
	assert.Equal(t, "wrong-on-purpose", gotPassword)
	assert.Equal(t, "idsweep", gotNAS)
	mu.Unlock()
}

func TestCheckUser_RejectMeansAbsent(t *testing.T) {
	addr := startServer(t, func(w radius.ResponseWriter, r *radius.Request) {
		_ = w.Write(r.Response(radius.CodeAccessReject))
	}, "testing123")

	connector := newRadiusConnector(t, models.BasicConfig{
		"server":         addr,
		"secret":         "testing123",
		"probe_password": "probe",
	})

	found, err := connector.CheckUser(context.Background(), "nobody")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCheckUser_UnresponsiveServer(t *testing.T) {
	addr := startServer(t, func(w radius.ResponseWriter, r *radius.Request) {
		// swallow the request so the exchange runs into its deadline
	}, "testing123")

	connector := newRadiusConnector(t, models.BasicConfig{
		"server":         addr,
		"secret":         "testing123",
		"probe_password": "probe",
		"timeout":        "150ms",
	})

	_, err := connector.CheckUser(context.Background(), "alice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exchange")
}

func TestValidateConfig_RequiredFields(t *testing.T) {
	tests := []struct {
		name   string
		config models.BasicConfig
	}{
		{name: "missing server", config: models.BasicConfig{"secret": "s", "probe_password": "p"}},
		{name: "missing secret", config: models.BasicConfig{"server": "127.0.0.1:1812", "probe_password": "p"}},
		{name: "missing probe password", config: models.BasicConfig{"server": "127.0.0.1:1812", "secret": "s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			connector := newRadiusConnector(t, tt.config)
			assert.ErrorIs(t, connector.ValidateConfig(), models.ErrInvalidConfig)

			_, err := connector.CheckUser(context.Background(), "alice")
			assert.ErrorIs(t, err, models.ErrInvalidConfig)
		})
	}
}

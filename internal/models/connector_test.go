package models

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetCapabilityFromString(t *testing.T) {
	tests := []struct {
		input   string
		want    ConnectorCapability
		wantErr bool
	}{
		{input: "existence", want: CapabilityExistence},
		{input: "Enumeration", want: CapabilityEnumeration},
		{input: "DETAILS", want: CapabilityDetails},
		{input: "telepathy", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			capability, err := GetCapabilityFromString(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, capability)
		})
	}
}

func TestBaseConnector_Capabilities(t *testing.T) {
	base := NewBaseConnector("test", "Test", &BasicConfig{}, CapabilityExistence, CapabilityEnumeration)

	assert.Equal(t, "test", base.GetConnectorID())
	assert.Equal(t, "Test", base.GetDisplayName())
	assert.True(t, base.HasCapability(CapabilityExistence))
	assert.False(t, base.HasCapability(CapabilityDetails))
	assert.True(t, base.HasAnyCapability(CapabilityDetails, CapabilityEnumeration))
	assert.False(t, base.HasAnyCapability(CapabilityDetails))
}

func TestBaseConnector_OptionalOperationsDefaults(t *testing.T) {
	base := NewBaseConnector("test", "Test", &BasicConfig{}, CapabilityExistence)

	_, err := base.ListUsers(context.Background())
	assert.ErrorIs(t, err, ErrNotSupported)

	_, err = base.GetUserDetails(context.Background(), "alice@x.com")
	assert.ErrorIs(t, err, ErrNotSupported)

	assert.NoError(t, base.ValidateConfig())
}

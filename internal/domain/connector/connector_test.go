package connector

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConnector(t *testing.T) {
	orgID := uuid.New()

	t.Run("creates active connector with valid config", func(t *testing.T) {
		conn, err := NewConnector(orgID, VendorStripe, "Stripe prod", map[string]string{
			"api_key": "sk_live_abc",
		})

		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, conn.ID)
		assert.Equal(t, ConnectorStatusActive, conn.Status)
		assert.Equal(t, "STRIPE.CONNECTOR.CONFIG.v1", conn.SmartCode.String())
		assert.True(t, conn.IsActive())
	})

	t.Run("reports all missing fields at once", func(t *testing.T) {
		_, err := NewConnector(orgID, VendorShopify, "Shop", map[string]string{
			"api_key": "key",
		})

		require.Error(t, err)
		var cfgErr *ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, VendorShopify, cfgErr.Vendor)
		assert.Equal(t, []string{"api_secret", "shop_domain"}, cfgErr.MissingFields)
	})

	t.Run("rejects unknown vendor", func(t *testing.T) {
		_, err := NewConnector(orgID, VendorCode("fax_machine"), "Fax", nil)
		assert.ErrorIs(t, err, ErrUnknownVendor)
	})

	t.Run("rejects nil org", func(t *testing.T) {
		_, err := NewConnector(uuid.Nil, VendorStripe, "Stripe", map[string]string{"api_key": "k"})
		assert.ErrorIs(t, err, ErrInvalidOrgID)
	})

	t.Run("rejects empty name", func(t *testing.T) {
		_, err := NewConnector(orgID, VendorStripe, "  ", map[string]string{"api_key": "k"})
		assert.ErrorIs(t, err, ErrInvalidConnectorName)
	})
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		vendor  VendorCode
		config  map[string]string
		missing []string
	}{
		{
			name:    "complete config",
			vendor:  VendorSalesforce,
			config:  map[string]string{"client_id": "a", "client_secret": "b", "instance_url": "c"},
			missing: nil,
		},
		{
			name:    "blank values count as missing",
			vendor:  VendorSalesforce,
			config:  map[string]string{"client_id": "a", "client_secret": "  ", "instance_url": ""},
			missing: []string{"client_secret", "instance_url"},
		},
		{
			name:    "nil config misses everything",
			vendor:  VendorHubspot,
			config:  nil,
			missing: []string{"client_id", "client_secret"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.missing, ValidateConfig(tt.vendor, tt.config))
		})
	}
}

func TestConnectorCapabilities(t *testing.T) {
	conn, err := NewConnector(uuid.New(), VendorQuickbooks, "QB", map[string]string{
		"client_id": "a", "client_secret": "b", "realm_id": "c",
	})
	require.NoError(t, err)

	assert.True(t, conn.HasCapability(ResourceInvoices))
	assert.True(t, conn.HasCapability(ResourcePayments))
	assert.False(t, conn.HasCapability(ResourceProducts))
}

func TestConnectorStatusTransitions(t *testing.T) {
	conn, err := NewConnector(uuid.New(), VendorStripe, "Stripe", map[string]string{"api_key": "k"})
	require.NoError(t, err)

	conn.Disable()
	assert.Equal(t, ConnectorStatusDisabled, conn.Status)
	assert.False(t, conn.IsActive())

	conn.Enable()
	assert.True(t, conn.IsActive())
}

func TestGetVendorConfig(t *testing.T) {
	d, err := GetVendorConfig(VendorXero)
	require.NoError(t, err)
	assert.Equal(t, AuthTypeOAuth2, d.AuthType)
	assert.Contains(t, d.RequiredFields, "tenant_id")

	_, err = GetVendorConfig(VendorCode("nope"))
	assert.ErrorIs(t, err, ErrUnknownVendor)
}

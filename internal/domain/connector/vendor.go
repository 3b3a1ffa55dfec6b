package connector

import "errors"

// ---------------------------------------------------------------------------
// Vendor Types
// ---------------------------------------------------------------------------

// VendorCode identifies an external vendor supported by the registry
type VendorCode string

const (
	// VendorSalesforce represents the Salesforce CRM
	VendorSalesforce VendorCode = "salesforce"
	// VendorHubspot represents the HubSpot CRM
	VendorHubspot VendorCode = "hubspot"
	// VendorQuickbooks represents QuickBooks accounting
	VendorQuickbooks VendorCode = "quickbooks"
	// VendorXero represents Xero accounting
	VendorXero VendorCode = "xero"
	// VendorShopify represents the Shopify e-commerce platform
	VendorShopify VendorCode = "shopify"
	// VendorStripe represents the Stripe payment platform
	VendorStripe VendorCode = "stripe"
)

// IsValid returns true if the vendor code is known to the registry
func (c VendorCode) IsValid() bool {
	_, ok := vendorCatalog[c]
	return ok
}

// String returns the string representation of VendorCode
func (c VendorCode) String() string {
	return string(c)
}

// AuthType represents how a vendor authenticates API calls
type AuthType string

const (
	// AuthTypeOAuth2 indicates OAuth 2.0 token authentication
	AuthTypeOAuth2 AuthType = "oauth2"
	// AuthTypeAPIKey indicates static API key authentication
	AuthTypeAPIKey AuthType = "api_key"
)

// IsValid returns true if the auth type is valid
func (t AuthType) IsValid() bool {
	switch t {
	case AuthTypeOAuth2, AuthTypeAPIKey:
		return true
	default:
		return false
	}
}

// ResourceType is a logical entity type a connector can fetch or push
type ResourceType string

const (
	ResourceContacts  ResourceType = "contacts"
	ResourceCompanies ResourceType = "companies"
	ResourceInvoices  ResourceType = "invoices"
	ResourcePayments  ResourceType = "payments"
	ResourceProducts  ResourceType = "products"
	ResourceOrders    ResourceType = "orders"
	ResourceCustomers ResourceType = "customers"
)

// String returns the string representation of ResourceType
func (r ResourceType) String() string {
	return string(r)
}

// IsValid reports whether the resource type is one of the known kinds
func (r ResourceType) IsValid() bool {
	switch r {
	case ResourceContacts, ResourceCompanies, ResourceInvoices,
		ResourcePayments, ResourceProducts, ResourceOrders, ResourceCustomers:
		return true
	}
	return false
}

// ---------------------------------------------------------------------------
// VendorDescriptor
// ---------------------------------------------------------------------------

// VendorDescriptor holds the static capability metadata for one vendor:
// which auth type it uses, which connection configuration fields are
// mandatory, the default API endpoint template, and which resource types
// its connectors can fetch and push.
type VendorDescriptor struct {
	// Code is the vendor identifier
	Code VendorCode
	// Name is the display name of the vendor
	Name string
	// AuthType is how the vendor authenticates
	AuthType AuthType
	// RequiredFields are the config keys that must be present to connect
	RequiredFields []string
	// DefaultEndpoint is the endpoint template for API calls
	DefaultEndpoint string
	// Capabilities are the resource types connectors for this vendor support
	Capabilities []ResourceType
}

// HasCapability returns true if the vendor supports the given resource type
func (d *VendorDescriptor) HasCapability(resource ResourceType) bool {
	for _, c := range d.Capabilities {
		if c == resource {
			return true
		}
	}
	return false
}

// vendorCatalog is the static registry of supported vendors.
var vendorCatalog = map[VendorCode]VendorDescriptor{
	VendorSalesforce: {
		Code:            VendorSalesforce,
		Name:            "Salesforce",
		AuthType:        AuthTypeOAuth2,
		RequiredFields:  []string{"client_id", "client_secret", "instance_url"},
		DefaultEndpoint: "https://{instance}.salesforce.com/services/data/v58.0",
		Capabilities:    []ResourceType{ResourceContacts, ResourceCompanies, ResourceOrders},
	},
	VendorHubspot: {
		Code:            VendorHubspot,
		Name:            "HubSpot",
		AuthType:        AuthTypeOAuth2,
		RequiredFields:  []string{"client_id", "client_secret"},
		DefaultEndpoint: "https://api.hubapi.com",
		Capabilities:    []ResourceType{ResourceContacts, ResourceCompanies},
	},
	VendorQuickbooks: {
		Code:            VendorQuickbooks,
		Name:            "QuickBooks Online",
		AuthType:        AuthTypeOAuth2,
		RequiredFields:  []string{"client_id", "client_secret", "realm_id"},
		DefaultEndpoint: "https://quickbooks.api.intuit.com/v3/company/{realm}",
		Capabilities:    []ResourceType{ResourceInvoices, ResourcePayments, ResourceCustomers},
	},
	VendorXero: {
		Code:            VendorXero,
		Name:            "Xero",
		AuthType:        AuthTypeOAuth2,
		RequiredFields:  []string{"client_id", "client_secret", "tenant_id"},
		DefaultEndpoint: "https://api.xero.com/api.xro/2.0",
		Capabilities:    []ResourceType{ResourceInvoices, ResourcePayments, ResourceContacts},
	},
	VendorShopify: {
		Code:            VendorShopify,
		Name:            "Shopify",
		AuthType:        AuthTypeAPIKey,
		RequiredFields:  []string{"api_key", "api_secret", "shop_domain"},
		DefaultEndpoint: "https://{shop}.myshopify.com/admin/api/2024-01",
		Capabilities:    []ResourceType{ResourceProducts, ResourceOrders, ResourceCustomers},
	},
	VendorStripe: {
		Code:            VendorStripe,
		Name:            "Stripe",
		AuthType:        AuthTypeAPIKey,
		RequiredFields:  []string{"api_key"},
		DefaultEndpoint: "https://api.stripe.com/v1",
		Capabilities:    []ResourceType{ResourcePayments, ResourceCustomers, ResourceInvoices},
	},
}

// ErrUnknownVendor indicates the vendor code is not in the catalog
var ErrUnknownVendor = errors.New("connector: unknown vendor")

// GetVendorConfig returns the static descriptor for a vendor
func GetVendorConfig(code VendorCode) (VendorDescriptor, error) {
	descriptor, ok := vendorCatalog[code]
	if !ok {
		return VendorDescriptor{}, ErrUnknownVendor
	}
	return descriptor, nil
}

// ListVendors returns all vendor descriptors in the catalog
func ListVendors() []VendorDescriptor {
	vendors := make([]VendorDescriptor, 0, len(vendorCatalog))
	for _, d := range vendorCatalog {
		vendors = append(vendors, d)
	}
	return vendors
}

package connectors

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/syncbridge/backend/internal/domain/connector"
	syncdomain "github.com/syncbridge/backend/internal/domain/sync"
)

// ErrVendorNotSupported indicates no adapter factory is registered for a vendor
var ErrVendorNotSupported = errors.New("connectors: no adapter registered for vendor")

// AdapterFactory builds a transport adapter bound to one connector's
// vendor credentials
type AdapterFactory func(conn *connector.Connector) (syncdomain.Connector, error)

// Registry resolves transport adapters by vendor code. Factories are
// registered at startup; Get is safe for concurrent use afterwards.
type Registry struct {
	mu        sync.RWMutex
	factories map[connector.VendorCode]AdapterFactory
}

// NewRegistry creates an empty adapter registry
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[connector.VendorCode]AdapterFactory),
	}
}

// NewDefaultRegistry creates a registry with the REST adapter registered
// for every vendor in the catalog
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	for _, descriptor := range connector.ListVendors() {
		r.Register(descriptor.Code, NewRESTAdapter)
	}
	return r
}

// Register binds an adapter factory to a vendor code, replacing any
// previous registration
func (r *Registry) Register(vendor connector.VendorCode, factory AdapterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[vendor] = factory
}

// Get returns the adapter bound to the connector's vendor and config
func (r *Registry) Get(ctx context.Context, conn *connector.Connector) (syncdomain.Connector, error) {
	r.mu.RLock()
	factory, ok := r.factories[conn.Vendor]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrVendorNotSupported, conn.Vendor)
	}
	return factory(conn)
}

var _ syncdomain.ConnectorProvider = (*Registry)(nil)

package connectors

import (
	"context"
	"sync"

	"github.com/syncbridge/backend/internal/domain/connector"
	"github.com/syncbridge/backend/internal/domain/mapping"
	syncdomain "github.com/syncbridge/backend/internal/domain/sync"
)

// MemoryAdapter is an in-process transport holding records per resource
// type. It backs local development and integration tests where no real
// vendor API is reachable.
type MemoryAdapter struct {
	mu      sync.RWMutex
	records map[connector.ResourceType][]mapping.Record
	pushed  map[connector.ResourceType][]mapping.Record
}

// NewMemoryAdapter creates an empty in-memory adapter
func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{
		records: make(map[connector.ResourceType][]mapping.Record),
		pushed:  make(map[connector.ResourceType][]mapping.Record),
	}
}

// Seed replaces the fetchable dataset for a resource type
func (a *MemoryAdapter) Seed(resource connector.ResourceType, records []mapping.Record) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records[resource] = records
}

// Fetch returns a copy of the seeded dataset for a resource type
func (a *MemoryAdapter) Fetch(ctx context.Context, resource connector.ResourceType) ([]mapping.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]mapping.Record, len(a.records[resource]))
	copy(out, a.records[resource])
	return out, nil
}

// Push appends the record to the resource's received list
func (a *MemoryAdapter) Push(ctx context.Context, resource connector.ResourceType, record mapping.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.pushed[resource] = append(a.pushed[resource], record)
	return nil
}

// Pushed returns the records received for a resource type
func (a *MemoryAdapter) Pushed(resource connector.ResourceType) []mapping.Record {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]mapping.Record, len(a.pushed[resource]))
	copy(out, a.pushed[resource])
	return out
}

var _ syncdomain.Connector = (*MemoryAdapter)(nil)

package sync

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/syncbridge/backend/internal/domain/connector"
	"github.com/syncbridge/backend/internal/domain/mapping"
)

// Connector is the transport port to one external vendor system. Concrete
// vendor adapters (CRM, accounting, payment APIs) implement it in the
// infrastructure layer; the engine only ever sees this interface.
type Connector interface {
	// Fetch retrieves the raw source dataset for a resource type
	Fetch(ctx context.Context, resource connector.ResourceType) ([]mapping.Record, error)

	// Push writes one mapped record to the vendor
	Push(ctx context.Context, resource connector.ResourceType, record mapping.Record) error
}

// ConnectorProvider resolves the transport adapter for a registered connector
type ConnectorProvider interface {
	// Get returns the adapter bound to the connector's vendor and config
	Get(ctx context.Context, conn *connector.Connector) (Connector, error)
}

// RunLocker serializes run execution per job so overlapping triggers (manual
// during scheduled) cannot interleave stat updates. The TTL guards against
// locks leaked by crashed processes.
type RunLocker interface {
	// TryLock acquires the job's run lock; false means a run holds it already
	TryLock(ctx context.Context, jobID uuid.UUID, ttl time.Duration) (bool, error)

	// Unlock releases the job's run lock
	Unlock(ctx context.Context, jobID uuid.UUID) error
}

package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/syncbridge/backend/internal/domain/connector"
	"github.com/syncbridge/backend/internal/domain/shared"
)

const entityTypeConnector = "connector"

// GormConnectorRepository implements connector.Repository on top of the
// entity store.
type GormConnectorRepository struct {
	store shared.EntityStore
}

// NewGormConnectorRepository creates a new GormConnectorRepository
func NewGormConnectorRepository(db *gorm.DB) *GormConnectorRepository {
	return &GormConnectorRepository{store: NewGormEntityStore(db)}
}

// Save creates or updates a connector
func (r *GormConnectorRepository) Save(ctx context.Context, conn *connector.Connector) error {
	configJSON, err := encodeJSON(conn.Config)
	if err != nil {
		return err
	}

	return r.store.Atomically(ctx, func(s shared.EntityStore) error {
		if err := s.UpsertEntity(ctx, shared.Entity{
			ID:        conn.ID,
			OrgID:     conn.OrgID,
			Type:      entityTypeConnector,
			Name:      conn.Name,
			SmartCode: conn.SmartCode,
			CreatedAt: conn.CreatedAt,
		}); err != nil {
			return err
		}
		if err := s.SetField(ctx, conn.ID, "vendor", conn.Vendor.String(), fieldTypeText); err != nil {
			return err
		}
		if err := s.SetField(ctx, conn.ID, "status", conn.Status.String(), fieldTypeText); err != nil {
			return err
		}
		return s.SetField(ctx, conn.ID, "config", configJSON, fieldTypeJSON)
	})
}

// FindByID finds a connector by its ID
func (r *GormConnectorRepository) FindByID(ctx context.Context, id uuid.UUID) (*connector.Connector, error) {
	entity, err := r.store.GetEntity(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrEntityNotFound) {
			return nil, connector.ErrConnectorNotFound
		}
		return nil, err
	}
	if entity.Type != entityTypeConnector {
		return nil, connector.ErrConnectorNotFound
	}
	return r.hydrate(ctx, entity)
}

// FindAll lists all connectors for an organization, oldest first
func (r *GormConnectorRepository) FindAll(ctx context.Context, orgID uuid.UUID) ([]connector.Connector, error) {
	entities, err := r.store.ListEntities(ctx, orgID, shared.EntityFilter{
		Type:      entityTypeConnector,
		Ascending: true,
	})
	if err != nil {
		return nil, err
	}

	connectors := make([]connector.Connector, 0, len(entities))
	for i := range entities {
		conn, err := r.hydrate(ctx, &entities[i])
		if err != nil {
			return nil, err
		}
		connectors = append(connectors, *conn)
	}
	return connectors, nil
}

// Delete removes a connector
func (r *GormConnectorRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.store.DeleteEntity(ctx, id); err != nil {
		if errors.Is(err, shared.ErrEntityNotFound) {
			return connector.ErrConnectorNotFound
		}
		return err
	}
	return nil
}

// hydrate rebuilds the domain aggregate from the entity and its fields
func (r *GormConnectorRepository) hydrate(ctx context.Context, entity *shared.Entity) (*connector.Connector, error) {
	fieldList, err := r.store.ListFields(ctx, entity.ID)
	if err != nil {
		return nil, err
	}
	fields := shared.FieldMap(fieldList)

	var config map[string]string
	if raw, ok := fields["config"]; ok {
		if err := decodeJSON(raw, &config); err != nil {
			return nil, err
		}
	}

	status := connector.ConnectorStatus(fields["status"])
	if !status.IsValid() {
		status = connector.ConnectorStatusDisabled
	}

	return &connector.Connector{
		ID:        entity.ID,
		OrgID:     entity.OrgID,
		Vendor:    connector.VendorCode(fields["vendor"]),
		Name:      entity.Name,
		Config:    config,
		Status:    status,
		SmartCode: entity.SmartCode,
		CreatedAt: entity.CreatedAt,
		UpdatedAt: latest(entity.UpdatedAt, entity.CreatedAt),
	}, nil
}

func latest(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

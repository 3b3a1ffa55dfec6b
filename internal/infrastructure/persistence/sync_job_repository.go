package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/syncbridge/backend/internal/domain/shared"
	syncdomain "github.com/syncbridge/backend/internal/domain/sync"
)

const entityTypeSyncJob = "sync_job"

// jobDefinition is the JSON payload holding everything about a job except its
// run statistics, which live in their own field row so RecordRun can update
// them independently.
type jobDefinition struct {
	SourceConnectorID uuid.UUID              `json:"source_connector_id"`
	TargetConnectorID uuid.UUID              `json:"target_connector_id"`
	MappingID         uuid.UUID              `json:"mapping_id"`
	SyncType          syncdomain.SyncType    `json:"sync_type"`
	Direction         syncdomain.Direction   `json:"direction"`
	Schedule          syncdomain.Schedule    `json:"schedule"`
	Options           syncdomain.SyncOptions `json:"options"`
	IsActive          bool                   `json:"is_active"`
}

// GormSyncJobRepository implements syncdomain.JobRepository on top of the
// entity store.
type GormSyncJobRepository struct {
	store shared.EntityStore
}

// NewGormSyncJobRepository creates a new GormSyncJobRepository
func NewGormSyncJobRepository(db *gorm.DB) *GormSyncJobRepository {
	return &GormSyncJobRepository{store: NewGormEntityStore(db)}
}

// Save creates or updates a job
func (r *GormSyncJobRepository) Save(ctx context.Context, job *syncdomain.SyncJob) error {
	definitionJSON, err := encodeJSON(jobDefinition{
		SourceConnectorID: job.SourceConnectorID,
		TargetConnectorID: job.TargetConnectorID,
		MappingID:         job.MappingID,
		SyncType:          job.SyncType,
		Direction:         job.Direction,
		Schedule:          job.Schedule,
		Options:           job.Options,
		IsActive:          job.IsActive,
	})
	if err != nil {
		return err
	}
	statsJSON, err := encodeJSON(job.Stats)
	if err != nil {
		return err
	}

	return r.store.Atomically(ctx, func(s shared.EntityStore) error {
		if err := s.UpsertEntity(ctx, shared.Entity{
			ID:        job.ID,
			OrgID:     job.OrgID,
			Type:      entityTypeSyncJob,
			Name:      job.Name,
			SmartCode: job.SmartCode,
			CreatedAt: job.CreatedAt,
		}); err != nil {
			return err
		}
		if err := s.SetField(ctx, job.ID, "definition", definitionJSON, fieldTypeJSON); err != nil {
			return err
		}
		return s.SetField(ctx, job.ID, "stats", statsJSON, fieldTypeJSON)
	})
}

// FindByID finds a job by its ID
func (r *GormSyncJobRepository) FindByID(ctx context.Context, id uuid.UUID) (*syncdomain.SyncJob, error) {
	entity, err := r.store.GetEntity(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrEntityNotFound) {
			return nil, syncdomain.ErrJobNotFound
		}
		return nil, err
	}
	if entity.Type != entityTypeSyncJob {
		return nil, syncdomain.ErrJobNotFound
	}
	return r.hydrate(ctx, entity)
}

// FindAll lists all jobs for an organization, oldest first
func (r *GormSyncJobRepository) FindAll(ctx context.Context, orgID uuid.UUID) ([]syncdomain.SyncJob, error) {
	return r.list(ctx, orgID)
}

// FindActive lists active jobs across all organizations. Activation lives
// inside the definition JSON, so the filter happens after hydration.
func (r *GormSyncJobRepository) FindActive(ctx context.Context) ([]syncdomain.SyncJob, error) {
	jobs, err := r.list(ctx, uuid.Nil)
	if err != nil {
		return nil, err
	}

	active := make([]syncdomain.SyncJob, 0, len(jobs))
	for _, job := range jobs {
		if job.IsActive {
			active = append(active, job)
		}
	}
	return active, nil
}

func (r *GormSyncJobRepository) list(ctx context.Context, orgID uuid.UUID) ([]syncdomain.SyncJob, error) {
	entities, err := r.store.ListEntities(ctx, orgID, shared.EntityFilter{
		Type:      entityTypeSyncJob,
		Ascending: true,
	})
	if err != nil {
		return nil, err
	}

	jobs := make([]syncdomain.SyncJob, 0, len(entities))
	for i := range entities {
		job, err := r.hydrate(ctx, &entities[i])
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, nil
}

// recordRunMaxAttempts bounds the compare-and-swap retry loop
const recordRunMaxAttempts = 5

// RecordRun folds one completed run into the job's stats. The write is a
// compare-and-swap on the stats field row: the update only lands when the
// value is still the one that was read, so concurrent finalizations retry
// instead of losing counts.
func (r *GormSyncJobRepository) RecordRun(ctx context.Context, jobID uuid.UUID, status syncdomain.RunStatus, at time.Time) error {
	for attempt := 0; attempt < recordRunMaxAttempts; attempt++ {
		fieldList, err := r.store.ListFields(ctx, jobID)
		if err != nil {
			return err
		}
		raw, ok := shared.FieldMap(fieldList)["stats"]
		if !ok {
			return syncdomain.ErrJobNotFound
		}

		var stats syncdomain.JobStats
		if err := decodeJSON(raw, &stats); err != nil {
			return err
		}
		stats.Record(status, at)

		statsJSON, err := encodeJSON(stats)
		if err != nil {
			return err
		}
		swapped, err := r.store.CompareAndSwapField(ctx, jobID, "stats", raw, statsJSON)
		if err != nil {
			return err
		}
		if swapped {
			return nil
		}
		// Lost the race; reread and retry.
	}
	return fmt.Errorf("persistence: job %s stats update contended %d times", jobID, recordRunMaxAttempts)
}

// Delete removes a job
func (r *GormSyncJobRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.store.DeleteEntity(ctx, id); err != nil {
		if errors.Is(err, shared.ErrEntityNotFound) {
			return syncdomain.ErrJobNotFound
		}
		return err
	}
	return nil
}

func (r *GormSyncJobRepository) hydrate(ctx context.Context, entity *shared.Entity) (*syncdomain.SyncJob, error) {
	fieldList, err := r.store.ListFields(ctx, entity.ID)
	if err != nil {
		return nil, err
	}
	fields := shared.FieldMap(fieldList)

	var definition jobDefinition
	if raw, ok := fields["definition"]; ok {
		if err := decodeJSON(raw, &definition); err != nil {
			return nil, err
		}
	}
	var stats syncdomain.JobStats
	if raw, ok := fields["stats"]; ok {
		if err := decodeJSON(raw, &stats); err != nil {
			return nil, err
		}
	}

	return &syncdomain.SyncJob{
		ID:                entity.ID,
		OrgID:             entity.OrgID,
		Name:              entity.Name,
		SourceConnectorID: definition.SourceConnectorID,
		TargetConnectorID: definition.TargetConnectorID,
		MappingID:         definition.MappingID,
		SyncType:          definition.SyncType,
		Direction:         definition.Direction,
		Schedule:          definition.Schedule,
		Options:           definition.Options,
		IsActive:          definition.IsActive,
		Stats:             stats,
		SmartCode:         entity.SmartCode,
		CreatedAt:         entity.CreatedAt,
		UpdatedAt:         entity.UpdatedAt,
	}, nil
}

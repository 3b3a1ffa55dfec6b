package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/syncbridge/backend/internal/domain/shared"
	syncdomain "github.com/syncbridge/backend/internal/domain/sync"
)

const entityTypeSyncRun = "sync_run"

// runPayload is the JSON payload holding a run's counters and error list
type runPayload struct {
	Status           syncdomain.RunStatus     `json:"status"`
	StartTime        time.Time                `json:"start_time"`
	EndTime          *time.Time               `json:"end_time,omitempty"`
	RecordsProcessed int                      `json:"records_processed"`
	RecordsSynced    int                      `json:"records_synced"`
	RecordsFailed    int                      `json:"records_failed"`
	Errors           []syncdomain.RecordError `json:"errors,omitempty"`
}

// GormSyncRunRepository implements syncdomain.RunRepository on top of the
// entity store.
type GormSyncRunRepository struct {
	store shared.EntityStore
}

// NewGormSyncRunRepository creates a new GormSyncRunRepository
func NewGormSyncRunRepository(db *gorm.DB) *GormSyncRunRepository {
	return &GormSyncRunRepository{store: NewGormEntityStore(db)}
}

// Save creates or updates a run record. The run status is stored as the
// entity name so the listing shows it without hydrating the payload.
func (r *GormSyncRunRepository) Save(ctx context.Context, run *syncdomain.SyncRun) error {
	payloadJSON, err := encodeJSON(runPayload{
		Status:           run.Status,
		StartTime:        run.StartTime,
		EndTime:          run.EndTime,
		RecordsProcessed: run.RecordsProcessed,
		RecordsSynced:    run.RecordsSynced,
		RecordsFailed:    run.RecordsFailed,
		Errors:           run.Errors,
	})
	if err != nil {
		return err
	}

	return r.store.Atomically(ctx, func(s shared.EntityStore) error {
		if err := s.UpsertEntity(ctx, shared.Entity{
			ID:        run.ID,
			OrgID:     run.OrgID,
			Type:      entityTypeSyncRun,
			Name:      run.Status.String(),
			SmartCode: run.SmartCode,
			CreatedAt: run.StartTime,
		}); err != nil {
			return err
		}
		if err := s.SetField(ctx, run.ID, "job_id", run.JobID.String(), fieldTypeText); err != nil {
			return err
		}
		return s.SetField(ctx, run.ID, "payload", payloadJSON, fieldTypeJSON)
	})
}

// FindByID finds a run by its ID
func (r *GormSyncRunRepository) FindByID(ctx context.Context, id uuid.UUID) (*syncdomain.SyncRun, error) {
	entity, err := r.store.GetEntity(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrEntityNotFound) {
			return nil, syncdomain.ErrRunNotFound
		}
		return nil, err
	}
	if entity.Type != entityTypeSyncRun {
		return nil, syncdomain.ErrRunNotFound
	}
	return r.hydrate(ctx, entity)
}

// FindByJob lists runs for a job, newest first
func (r *GormSyncRunRepository) FindByJob(ctx context.Context, jobID uuid.UUID, limit int) ([]syncdomain.SyncRun, error) {
	entities, err := r.store.FindByFieldValue(ctx, entityTypeSyncRun, "job_id", jobID.String(), limit)
	if err != nil {
		return nil, err
	}

	runs := make([]syncdomain.SyncRun, 0, len(entities))
	for i := range entities {
		run, err := r.hydrate(ctx, &entities[i])
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, nil
}

func (r *GormSyncRunRepository) hydrate(ctx context.Context, entity *shared.Entity) (*syncdomain.SyncRun, error) {
	fieldList, err := r.store.ListFields(ctx, entity.ID)
	if err != nil {
		return nil, err
	}
	fields := shared.FieldMap(fieldList)

	jobID, err := uuid.Parse(fields["job_id"])
	if err != nil {
		return nil, syncdomain.ErrRunNotFound
	}

	var payload runPayload
	if raw, ok := fields["payload"]; ok {
		if err := decodeJSON(raw, &payload); err != nil {
			return nil, err
		}
	}

	return &syncdomain.SyncRun{
		ID:               entity.ID,
		JobID:            jobID,
		OrgID:            entity.OrgID,
		Status:           payload.Status,
		StartTime:        payload.StartTime,
		EndTime:          payload.EndTime,
		RecordsProcessed: payload.RecordsProcessed,
		RecordsSynced:    payload.RecordsSynced,
		RecordsFailed:    payload.RecordsFailed,
		Errors:           payload.Errors,
		SmartCode:        entity.SmartCode,
	}, nil
}

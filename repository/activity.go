// Package repository holds Bun-backed persistence for the auth module.
package repository

import (
	"context"
	"time"

	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	auth "github.com/mindbox-quickstart/staff-auth"
)

// ActivityModel is the Bun model for auth activity records.
type ActivityModel struct {
	bun.BaseModel `bun:"table:auth_activity"`

	ID         uuid.UUID      `bun:"id,pk,type:uuid"`
	SubjectID  string         `bun:"subject_id,notnull"`
	EventType  string         `bun:"event_type,notnull"`
	Email      string         `bun:"email,notnull"`
	Metadata   map[string]any `bun:"metadata,type:jsonb"`
	OccurredAt time.Time      `bun:"occurred_at,notnull"`
	CreatedAt  time.Time      `bun:"created_at,default:current_timestamp"`
}

// ActivityRepository implements auth.ActivitySink using Bun. Events for the
// same email share a stable subject ID, so an account's history can be
// queried without storing the raw address as the key.
type ActivityRepository struct {
	db *bun.DB
}

// NewActivityRepository creates a new repository.
func NewActivityRepository(db *bun.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// CreateTable provisions the backing table.
func (r *ActivityRepository) CreateTable(ctx context.Context) error {
	_, err := r.db.NewCreateTable().
		Model((*ActivityModel)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

// Record implements auth.ActivitySink.
func (r *ActivityRepository) Record(ctx context.Context, event auth.ActivityEvent) error {
	model := &ActivityModel{
		ID:         uuid.New(),
		SubjectID:  subjectID(event.Email),
		EventType:  string(event.EventType),
		Email:      event.Email,
		Metadata:   event.Metadata,
		OccurredAt: event.OccurredAt,
	}

	if model.OccurredAt.IsZero() {
		model.OccurredAt = time.Now()
	}

	_, err := r.db.NewInsert().
		Model(model).
		Exec(ctx)

	return err
}

// FindByEmail returns the activity trail for a staff member, newest first.
func (r *ActivityRepository) FindByEmail(ctx context.Context, email string, limit int) ([]*ActivityModel, error) {
	if limit <= 0 {
		limit = 50
	}

	var models []*ActivityModel
	err := r.db.NewSelect().
		Model(&models).
		Where("subject_id = ?", subjectID(email)).
		Order("occurred_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return models, nil
}

func subjectID(email string) string {
	if id, err := hashid.NewUUID(email); err == nil {
		return id.String()
	}
	return email
}

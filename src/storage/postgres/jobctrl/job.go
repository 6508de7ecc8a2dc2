package jobctrl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"alphogen/src/core/job"
)

// jobRow is the persistence shape of a job. provider_job_id is the join
// key for webhook reconciliation and must stay unique.
type jobRow struct {
	ID            string  `gorm:"primaryKey"`
	UserID        string  `gorm:"not null;index"`
	Prompt        string  `gorm:"not null"`
	Status        string  `gorm:"not null"`
	Progress      int     `gorm:"not null"`
	ProviderJobID *string `gorm:"uniqueIndex"`
	ResultKey     *string
	ErrorMessage  *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (jobRow) TableName() string {
	return "jobs"
}

// Repository is the durable job store backed by PostgreSQL
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) (*Repository, error) {
	if err := db.AutoMigrate(&jobRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate jobs table: %v", err)
	}
	return &Repository{db: db}, nil
}

var _ job.Repository = (*Repository)(nil)

func (r *Repository) Insert(ctx context.Context, j *job.Job) error {
	row := toRow(j)
	result := r.db.WithContext(ctx).Create(row)
	if result.Error != nil {
		return fmt.Errorf("failed to insert job: %v", result.Error)
	}
	j.CreatedAt = row.CreatedAt
	j.UpdatedAt = row.UpdatedAt
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*job.Job, error) {
	return r.getOne(ctx, "id = ?", id)
}

func (r *Repository) GetByIDForUser(ctx context.Context, id, userID string) (*job.Job, error) {
	return r.getOne(ctx, "id = ? AND user_id = ?", id, userID)
}

func (r *Repository) GetByProviderJobID(ctx context.Context, providerJobID string) (*job.Job, error) {
	return r.getOne(ctx, "provider_job_id = ?", providerJobID)
}

func (r *Repository) getOne(ctx context.Context, query string, args ...interface{}) (*job.Job, error) {
	var row jobRow
	result := r.db.WithContext(ctx).Where(query, args...).First(&row)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job: %v", result.Error)
	}
	return toDomain(&row), nil
}

func (r *Repository) List(ctx context.Context) ([]job.Job, error) {
	return r.list(r.db.WithContext(ctx))
}

func (r *Repository) ListForUser(ctx context.Context, userID string) ([]job.Job, error) {
	return r.list(r.db.WithContext(ctx).Where("user_id = ?", userID))
}

func (r *Repository) list(tx *gorm.DB) ([]job.Job, error) {
	var rows []jobRow
	result := tx.Order("created_at DESC").Find(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list jobs: %v", result.Error)
	}

	jobs := make([]job.Job, 0, len(rows))
	for i := range rows {
		jobs = append(jobs, *toDomain(&rows[i]))
	}
	return jobs, nil
}

func (r *Repository) Update(ctx context.Context, id string, u job.Update) error {
	fields := map[string]interface{}{}
	if u.Status != nil {
		fields["status"] = string(*u.Status)
	}
	if u.Progress != nil {
		fields["progress"] = *u.Progress
	}
	if u.ProviderJobID != nil {
		fields["provider_job_id"] = *u.ProviderJobID
	}
	if u.ResultKey != nil {
		fields["result_key"] = *u.ResultKey
	}
	if u.ErrorMessage != nil {
		fields["error_message"] = *u.ErrorMessage
	}
	if len(fields) == 0 {
		return nil
	}

	result := r.db.WithContext(ctx).Model(&jobRow{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return fmt.Errorf("failed to update job: %v", result.Error)
	}
	if result.RowsAffected == 0 {
		return job.ErrNotFound
	}
	return nil
}

func toRow(j *job.Job) *jobRow {
	return &jobRow{
		ID:            j.ID,
		UserID:        j.UserID,
		Prompt:        j.Prompt,
		Status:        string(j.Status),
		Progress:      j.Progress,
		ProviderJobID: j.ProviderJobID,
		ResultKey:     j.ResultKey,
		ErrorMessage:  j.ErrorMessage,
		CreatedAt:     j.CreatedAt,
		UpdatedAt:     j.UpdatedAt,
	}
}

func toDomain(row *jobRow) *job.Job {
	return &job.Job{
		ID:            row.ID,
		UserID:        row.UserID,
		Prompt:        row.Prompt,
		Status:        job.Status(row.Status),
		Progress:      row.Progress,
		ProviderJobID: row.ProviderJobID,
		ResultKey:     row.ResultKey,
		ErrorMessage:  row.ErrorMessage,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
}

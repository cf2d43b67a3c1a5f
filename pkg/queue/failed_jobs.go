package queue

import (
	"context"
	"sync"
	"time"

	"gorm.io/gorm"
)

// FailedJob is a job that exhausted its retries or could not be decoded.
type FailedJob struct {
	ID       uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	JobType  string    `gorm:"size:255;not null;index" json:"job_type"`
	Payload  string    `gorm:"type:text;not null" json:"payload"`
	Error    string    `gorm:"type:text" json:"error"`
	Attempts int       `gorm:"not null" json:"attempts"`
	FailedAt time.Time `gorm:"not null" json:"failed_at"`
}

func (FailedJob) TableName() string { return "failed_jobs" }

// FailedStore records failed jobs.
type FailedStore interface {
	Save(ctx context.Context, j FailedJob) error
	List(ctx context.Context) ([]FailedJob, error)
}

type memoryFailedStore struct {
	mu   sync.Mutex
	jobs []FailedJob
}

func (s *memoryFailedStore) Save(_ context.Context, j FailedJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j.ID = uint(len(s.jobs) + 1)
	s.jobs = append(s.jobs, j)
	return nil
}

func (s *memoryFailedStore) List(context.Context) ([]FailedJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]FailedJob(nil), s.jobs...), nil
}

// DBFailedStore persists failed jobs in the failed_jobs table.
type DBFailedStore struct {
	db *gorm.DB
}

// NewDBFailedStore creates the failed_jobs table if needed.
func NewDBFailedStore(db *gorm.DB) (*DBFailedStore, error) {
	if err := db.AutoMigrate(&FailedJob{}); err != nil {
		return nil, err
	}
	return &DBFailedStore{db: db}, nil
}

func (s *DBFailedStore) Save(ctx context.Context, j FailedJob) error {
	return s.db.WithContext(ctx).Create(&j).Error
}

func (s *DBFailedStore) List(ctx context.Context) ([]FailedJob, error) {
	var jobs []FailedJob
	err := s.db.WithContext(ctx).Order("id desc").Limit(500).Find(&jobs).Error
	return jobs, err
}

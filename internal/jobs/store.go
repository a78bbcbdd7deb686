package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DefaultListLimit caps [Store.List] when no positive limit is given.
const DefaultListLimit = 50

var (
	// ErrNotFound is returned for unknown job ids and for jobs without a
	// finished result.
	ErrNotFound = errors.New("jobs: not found")

	errStoreNil = errors.New("jobs: store is nil")
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusPending Status = "pending"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Job is one uploaded file and its correction result.
type Job struct {
	ID           string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	OriginalName string    `json:"original_name"`
	InputPath    string    `json:"-"`
	OutputPath   string    `json:"-"`
	Strength     float64   `json:"strength"`
	ScaleType    string    `json:"scale_type"`
	RootNote     string    `json:"root_note"`
	Status       Status    `gorm:"type:varchar(16);index:idx_job_status" json:"status"`
	Error        string    `json:"error,omitempty"`
	SampleRate   int       `json:"sample_rate"`
	DurationMs   int64     `json:"duration_ms"`
	Frames       int       `json:"frames"`
	VoicedFrames int       `json:"voiced_frames"`
	CreatedAt    time.Time `gorm:"index:idx_job_created" json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ProcessedName is the download file name of the job's result.
func (j Job) ProcessedName() string { return j.ID + "_autotuned.wav" }

// Store persists jobs in SQLite through gorm.
type Store struct {
	db  *gorm.DB
	sql *sql.DB
}

// Open opens or creates the job database at dbPath, creating its directory
// when needed.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("jobs: creating db dir: %w", err)
		}
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("jobs: opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("jobs: getting sql.DB from gorm: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&Job{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("jobs: auto migrate: %w", err)
	}

	return &Store{db: db, sql: sqlDB}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil || s.sql == nil {
		return nil
	}
	return s.sql.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.sql == nil {
		return errStoreNil
	}
	return s.sql.PingContext(ctx)
}

// Create inserts a new job.
func (s *Store) Create(ctx context.Context, j *Job) error {
	if s == nil || s.db == nil {
		return errStoreNil
	}
	if err := s.db.WithContext(ctx).Create(j).Error; err != nil {
		return fmt.Errorf("jobs: creating job %s: %w", j.ID, err)
	}
	return nil
}

// Update writes all fields of an existing job.
func (s *Store) Update(ctx context.Context, j *Job) error {
	if s == nil || s.db == nil {
		return errStoreNil
	}
	res := s.db.WithContext(ctx).Model(j).Select("*").Omit("ID", "CreatedAt").Updates(j)
	if res.Error != nil {
		return fmt.Errorf("jobs: updating job %s: %w", j.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("jobs: updating job %s: %w", j.ID, ErrNotFound)
	}
	return nil
}

// Get loads one job by id.
func (s *Store) Get(ctx context.Context, id string) (Job, error) {
	if s == nil || s.db == nil {
		return Job{}, errStoreNil
	}

	var j Job
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&j).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Job{}, fmt.Errorf("jobs: job %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Job{}, fmt.Errorf("jobs: querying job %s: %w", id, err)
	}
	return j, nil
}

// List returns the most recent jobs, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Job, error) {
	if s == nil || s.db == nil {
		return nil, errStoreNil
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}

	var out []Job
	if err := s.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("jobs: listing jobs: %w", err)
	}
	return out, nil
}

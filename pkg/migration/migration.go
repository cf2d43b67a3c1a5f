// Package migration runs versioned schema migrations and records them in a
// tracking table.
//
// Register migrations from init() in database/migrations:
//
//	func init() {
//	    migration.Register("20260301000000_create_orders", &CreateOrders{})
//	}
//
// Run from the CLI:
//
//	shopkart migrate             // run all pending
//	shopkart migrate:rollback    // roll back the last batch
//	shopkart migrate:status
package migration

import (
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/shopkart/pkg/logger"
)

// Migration is implemented by every migration.
type Migration interface {
	Up(db *gorm.DB) error
	Down(db *gorm.DB) error
}

type migrationRecord struct {
	ID    uint      `gorm:"primaryKey;autoIncrement"`
	Name  string    `gorm:"uniqueIndex;size:255;not null"`
	Batch int       `gorm:"not null"`
	RunAt time.Time `gorm:"autoCreateTime"`
}

func (migrationRecord) TableName() string { return "schema_migrations" }

type entry struct {
	name string
	m    Migration
}

var registry []entry

// Register adds a migration to the global registry. name should start with a
// sortable timestamp.
func Register(name string, m Migration) {
	registry = append(registry, entry{name: name, m: m})
}

// StatusRow is one line of Status output.
type StatusRow struct {
	Name  string
	Ran   bool
	Batch int
}

// Runner executes and tracks migrations.
type Runner struct {
	db      *gorm.DB
	entries []entry
}

// New creates a Runner over the globally registered migrations.
func New(db *gorm.DB) *Runner {
	entries := append([]entry(nil), registry...)
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].name < entries[j].name })
	return &Runner{db: db, entries: entries}
}

func (r *Runner) ensureTable() error {
	return r.db.AutoMigrate(&migrationRecord{})
}

func (r *Runner) ran() (map[string]migrationRecord, error) {
	if err := r.ensureTable(); err != nil {
		return nil, fmt.Errorf("migration: ensure table: %w", err)
	}
	var records []migrationRecord
	if err := r.db.Find(&records).Error; err != nil {
		return nil, err
	}
	out := make(map[string]migrationRecord, len(records))
	for _, rec := range records {
		out[rec.Name] = rec
	}
	return out, nil
}

// Run applies every pending migration as one batch and returns the names
// applied. Each migration commits together with its tracking row.
func (r *Runner) Run() ([]string, error) {
	done, err := r.ran()
	if err != nil {
		return nil, err
	}

	batch := r.lastBatch() + 1
	var applied []string
	for _, e := range r.entries {
		if _, ok := done[e.name]; ok {
			continue
		}
		logger.Info("migration: running", "name", e.name, "batch", batch)
		err := r.db.Transaction(func(tx *gorm.DB) error {
			if err := e.m.Up(tx); err != nil {
				return err
			}
			return tx.Create(&migrationRecord{Name: e.name, Batch: batch}).Error
		})
		if err != nil {
			return applied, fmt.Errorf("migration: %s up: %w", e.name, err)
		}
		applied = append(applied, e.name)
	}
	return applied, nil
}

// Rollback reverses the most recent batch, newest first.
func (r *Runner) Rollback() ([]string, error) {
	if err := r.ensureTable(); err != nil {
		return nil, err
	}
	last := r.lastBatch()
	if last == 0 {
		return nil, nil
	}

	var records []migrationRecord
	if err := r.db.Where("batch = ?", last).Order("id desc").Find(&records).Error; err != nil {
		return nil, err
	}

	byName := make(map[string]Migration, len(r.entries))
	for _, e := range r.entries {
		byName[e.name] = e.m
	}

	var reverted []string
	for _, rec := range records {
		m, ok := byName[rec.Name]
		if !ok {
			return reverted, fmt.Errorf("migration: cannot roll back %s: not registered", rec.Name)
		}
		logger.Info("migration: rolling back", "name", rec.Name)
		err := r.db.Transaction(func(tx *gorm.DB) error {
			if err := m.Down(tx); err != nil {
				return err
			}
			return tx.Delete(&rec).Error
		})
		if err != nil {
			return reverted, fmt.Errorf("migration: %s down: %w", rec.Name, err)
		}
		reverted = append(reverted, rec.Name)
	}
	return reverted, nil
}

// Status reports every registered migration and whether it has run.
func (r *Runner) Status() ([]StatusRow, error) {
	done, err := r.ran()
	if err != nil {
		return nil, err
	}
	rows := make([]StatusRow, 0, len(r.entries))
	for _, e := range r.entries {
		rec, ok := done[e.name]
		rows = append(rows, StatusRow{Name: e.name, Ran: ok, Batch: rec.Batch})
	}
	return rows, nil
}

func (r *Runner) lastBatch() int {
	var max struct{ Max int }
	r.db.Model(&migrationRecord{}).Select("COALESCE(MAX(batch), 0) as max").Scan(&max)
	return max.Max
}

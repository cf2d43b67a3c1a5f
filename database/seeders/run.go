// Package seeders holds demo data loaders. Seeders register themselves
// from init and run in registration order via `shopkart seed`. Each must be
// safe to run twice.
package seeders

import (
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/shopkart/pkg/logger"
)

type SeederFunc func(db *gorm.DB) error

type seeder struct {
	name string
	fn   SeederFunc
}

var (
	mu       sync.Mutex
	registry []seeder
)

func Register(name string, fn SeederFunc) {
	mu.Lock()
	defer mu.Unlock()
	registry = append(registry, seeder{name: name, fn: fn})
}

// RunAll runs every registered seeder and stops at the first failure.
func RunAll(db *gorm.DB) error {
	mu.Lock()
	current := append([]seeder(nil), registry...)
	mu.Unlock()

	for _, s := range current {
		start := time.Now()
		if err := s.fn(db); err != nil {
			return fmt.Errorf("seeder %q: %w", s.name, err)
		}
		logger.Info("seeded", "seeder", s.name, "duration", time.Since(start).String())
	}
	return nil
}

// Package repositories is the persistence layer. Every repository is bound
// to a *gorm.DB which is either the base connection or an open transaction;
// Store.Tx hands out transaction-bound repositories so a unit of work never
// mixes the two.
package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/shopkart/pkg/apperr"
)

// Store groups the repositories over one *gorm.DB.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for health checks and migrations.
func (s *Store) DB() *gorm.DB { return s.db }

// Tx runs fn inside a transaction. fn must only use the Store it is given.
func (s *Store) Tx(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

func (s *Store) Users() *UserRepository       { return &UserRepository{db: s.db} }
func (s *Store) Shops() *ShopRepository       { return &ShopRepository{db: s.db} }
func (s *Store) Products() *ProductRepository { return &ProductRepository{db: s.db} }
func (s *Store) Offers() *OfferRepository     { return &OfferRepository{db: s.db} }
func (s *Store) Orders() *OrderRepository     { return &OrderRepository{db: s.db} }
func (s *Store) Reviews() *ReviewRepository   { return &ReviewRepository{db: s.db} }

// notFound converts gorm's missing-row error into apperr.NotFound.
func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.New(apperr.NotFound, "%s not found", what)
	}
	return err
}

package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shashiranjanraj/shopkart/app/models"
	"github.com/shashiranjanraj/shopkart/pkg/orm"
)

// UserRepository handles database operations for User.
type UserRepository struct {
	db *gorm.DB
}

// FindByID looks up a user by primary key.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, notFound(err, "user")
	}
	return &u, nil
}

// FindByExternalID looks up a user by identity-provider subject.
func (r *UserRepository) FindByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).Where("external_id = ?", externalID).First(&u).Error; err != nil {
		return nil, notFound(err, "user")
	}
	return &u, nil
}

// InsertIfAbsent creates u unless a user with the same external ID exists,
// then returns the stored row. created reports whether u was inserted.
// Concurrent first sign-ins converge on a single row.
func (r *UserRepository) InsertIfAbsent(ctx context.Context, u *models.User) (stored *models.User, created bool, err error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "external_id"}}, DoNothing: true}).
		Create(u)
	if res.Error != nil {
		return nil, false, res.Error
	}
	stored, err = r.FindByExternalID(ctx, u.ExternalID)
	return stored, res.RowsAffected == 1, err
}

// TouchLogin refreshes the profile fields the identity provider owns.
func (r *UserRepository) TouchLogin(ctx context.Context, id, name, email, picture string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(map[string]any{
		"name":          name,
		"email":         email,
		"picture":       picture,
		"last_login_at": at,
	}).Error
}

func (r *UserRepository) SetRoles(ctx context.Context, id string, roles models.RoleSet) error {
	return r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("roles", roles).Error
}

func (r *UserRepository) SetActive(ctx context.Context, id string, active bool) error {
	return r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("active", active).Error
}

// List pages through users, optionally restricted to a role.
func (r *UserRepository) List(ctx context.Context, role models.Role, page, perPage int) ([]models.User, orm.Pagination, error) {
	q := r.db.WithContext(ctx).Model(&models.User{})
	if role != "" {
		q = q.Where("roles LIKE ?", "%"+string(role)+"%")
	}
	var users []models.User
	p, err := orm.Paginate(q, page, perPage, "created_at desc", &users)
	return users, p, err
}

// CountByRole returns how many users hold each role.
func (r *UserRepository) CountByRole(ctx context.Context) (map[models.Role]int64, error) {
	out := map[models.Role]int64{}
	for _, role := range []models.Role{models.RoleCustomer, models.RoleMerchant, models.RoleAdmin} {
		var n int64
		if err := r.db.WithContext(ctx).Model(&models.User{}).
			Where("roles LIKE ?", "%"+string(role)+"%").Count(&n).Error; err != nil {
			return nil, err
		}
		out[role] = n
	}
	return out, nil
}

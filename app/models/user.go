package models

import (
	"database/sql/driver"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Role is a capability granted to a user.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleMerchant Role = "merchant"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleMerchant, RoleAdmin:
		return true
	}
	return false
}

// RoleSet is a user's roles, stored as a sorted comma-separated column.
type RoleSet []Role

// NewRoleSet builds a deduplicated, sorted set, dropping unknown names.
func NewRoleSet(names ...string) RoleSet {
	seen := map[Role]bool{}
	var out RoleSet
	for _, n := range names {
		r := Role(strings.ToLower(strings.TrimSpace(n)))
		if r.Valid() && !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Has reports whether the set contains r.
func (s RoleSet) Has(r Role) bool {
	for _, v := range s {
		if v == r {
			return true
		}
	}
	return false
}

// With returns a copy of s that also contains r.
func (s RoleSet) With(r Role) RoleSet {
	names := make([]string, 0, len(s)+1)
	for _, v := range s {
		names = append(names, string(v))
	}
	return NewRoleSet(append(names, string(r))...)
}

func (s RoleSet) Strings() []string {
	out := make([]string, len(s))
	for i, r := range s {
		out[i] = string(r)
	}
	return out
}

func (s RoleSet) Value() (driver.Value, error) {
	return strings.Join(s.Strings(), ","), nil
}

func (s *RoleSet) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*s = nil
	case string:
		*s = NewRoleSet(strings.Split(v, ",")...)
	case []byte:
		*s = NewRoleSet(strings.Split(string(v), ",")...)
	default:
		return fmt.Errorf("models: cannot scan %T into RoleSet", src)
	}
	return nil
}

// User is created on first sign-in and never hard-deleted.
type User struct {
	Base
	ExternalID  string     `gorm:"size:191;not null;uniqueIndex" json:"-"`
	Name        string     `gorm:"size:255" json:"name"`
	Email       string     `gorm:"size:255;index" json:"email"`
	Picture     string     `gorm:"size:512" json:"picture,omitempty"`
	Roles       RoleSet    `gorm:"size:64" json:"roles"`
	Active      bool       `gorm:"not null" json:"active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

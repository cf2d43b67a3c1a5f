package auth

import "context"

const (
	RoleCustomer = "customer"
	RoleMerchant = "merchant"
	RoleAdmin    = "admin"
)

// Principal is the authenticated actor behind a request.
type Principal struct {
	UserID  string
	Email   string
	Roles   []string
	ShopIDs []string
}

func (p *Principal) HasRole(role string) bool {
	if p == nil {
		return false
	}
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (p *Principal) IsAdmin() bool { return p.HasRole(RoleAdmin) }

// OwnsShop reports whether shopID is one of the principal's shops.
func (p *Principal) OwnsShop(shopID string) bool {
	if p == nil {
		return false
	}
	for _, id := range p.ShopIDs {
		if id == shopID {
			return true
		}
	}
	return false
}

type principalKey struct{}

// WithPrincipal stores p on ctx.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal stored by the auth middleware.
func PrincipalFrom(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}

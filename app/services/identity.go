package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shashiranjanraj/shopkart/app/models"
	"github.com/shashiranjanraj/shopkart/app/repositories"
	"github.com/shashiranjanraj/shopkart/config"
	"github.com/shashiranjanraj/shopkart/pkg/apperr"
	"github.com/shashiranjanraj/shopkart/pkg/auth"
	outbound "github.com/shashiranjanraj/shopkart/pkg/http"
	"github.com/shashiranjanraj/shopkart/pkg/logger"
	"github.com/shashiranjanraj/shopkart/pkg/orm"
)

// Userinfo is the identity provider's profile for an access token.
type Userinfo struct {
	Subject       string `json:"sub"`
	ID            string `json:"id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

func (u Userinfo) subject() string {
	if u.Subject != "" {
		return u.Subject
	}
	return u.ID
}

// Session is a signed-in user and the local token to present on later calls.
type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
	Created   bool         `json:"created"`
}

// IdentityService maps identity-provider users to local users and
// resolves request principals.
type IdentityService struct {
	store *repositories.Store
	now   func() time.Time
}

func NewIdentityService(store *repositories.Store) *IdentityService {
	return &IdentityService{store: store, now: time.Now}
}

// SignIn verifies providerToken with the identity provider, creates the
// local user on first sight and issues a session token.
func (s *IdentityService) SignIn(ctx context.Context, providerToken string) (*Session, error) {
	providerToken = strings.TrimSpace(providerToken)
	if providerToken == "" {
		return nil, apperr.New(apperr.Unauthenticated, "missing provider token")
	}

	info, err := s.fetchUserinfo(ctx, providerToken)
	if err != nil {
		return nil, err
	}

	roles := models.NewRoleSet(config.NewUserRoles()...)
	if isAdminEmail(info.Email) {
		roles = roles.With(models.RoleAdmin)
	}
	user, created, err := s.store.Users().InsertIfAbsent(ctx, &models.User{
		ExternalID: info.subject(),
		Name:       info.Name,
		Email:      info.Email,
		Picture:    info.Picture,
		Roles:      roles,
		Active:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("identity: upsert user: %w", err)
	}
	if !user.Active {
		return nil, apperr.New(apperr.Forbidden, "account is deactivated")
	}

	now := s.now().UTC()
	if err := s.store.Users().TouchLogin(ctx, user.ID, info.Name, info.Email, info.Picture, now); err != nil {
		return nil, fmt.Errorf("identity: touch login: %w", err)
	}
	user.Name, user.Email, user.Picture, user.LastLoginAt = info.Name, info.Email, info.Picture, &now

	token, expires, err := auth.IssueToken(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	logger.WithCtx(ctx).Info("user signed in", "user_id", user.ID, "created", created, "roles", user.Roles.Strings())
	return &Session{Token: token, ExpiresAt: expires, User: user, Created: created}, nil
}

func (s *IdentityService) fetchUserinfo(ctx context.Context, token string) (*Userinfo, error) {
	resp, err := outbound.Get(ctx, config.IdentityUserinfoURL()).
		Bearer(token).
		Timeout(5*time.Second).
		Retry(2, 200*time.Millisecond).
		Send()
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "identity provider unreachable")
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, apperr.New(apperr.Unauthenticated, "provider token rejected")
	case !resp.OK():
		return nil, apperr.Wrap(apperr.Internal, resp.Throw(), "identity provider error")
	}

	var info Userinfo
	if err := resp.JSON(&info); err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "identity provider returned an invalid profile")
	}
	if info.subject() == "" {
		return nil, apperr.New(apperr.Unauthenticated, "provider token has no subject")
	}
	return &info, nil
}

func isAdminEmail(email string) bool {
	if email == "" {
		return false
	}
	for _, e := range config.AdminEmails() {
		if strings.EqualFold(e, email) {
			return true
		}
	}
	return false
}

// Resolve turns validated token claims into the request principal. An
// empty role set is legal and yields a principal with no roles.
func (s *IdentityService) Resolve(ctx context.Context, claims *auth.Claims) (*auth.Principal, error) {
	if claims == nil || claims.UserID() == "" {
		return nil, apperr.New(apperr.Unauthenticated, "missing token")
	}
	user, err := s.store.Users().FindByID(ctx, claims.UserID())
	if err != nil {
		if apperr.KindOf(err) == apperr.NotFound {
			return nil, apperr.New(apperr.Unauthenticated, "unknown user")
		}
		return nil, err
	}
	if !user.Active {
		return nil, apperr.New(apperr.Forbidden, "account is deactivated")
	}

	p := &auth.Principal{UserID: user.ID, Email: user.Email, Roles: user.Roles.Strings()}
	if user.Roles.Has(models.RoleMerchant) {
		ids, err := s.store.Shops().IDsOwnedBy(ctx, user.ID)
		if err != nil {
			return nil, fmt.Errorf("identity: load shops: %w", err)
		}
		p.ShopIDs = ids
	}
	return p, nil
}

// Me returns the user behind the principal.
func (s *IdentityService) Me(ctx context.Context, p *auth.Principal) (*models.User, error) {
	if p == nil {
		return nil, apperr.New(apperr.Unauthenticated, "not signed in")
	}
	return s.store.Users().FindByID(ctx, p.UserID)
}

func (s *IdentityService) ListUsers(ctx context.Context, role models.Role, page, perPage int) ([]models.User, orm.Pagination, error) {
	if role != "" && !role.Valid() {
		return nil, orm.Pagination{}, apperr.Invalid(map[string]string{"role": fmt.Sprintf("Unknown role %q.", role)})
	}
	return s.store.Users().List(ctx, role, page, perPage)
}

// SetRoles replaces a user's role set. Unknown role names are rejected.
func (s *IdentityService) SetRoles(ctx context.Context, userID string, names []string) (*models.User, error) {
	for _, n := range names {
		if !models.Role(strings.ToLower(strings.TrimSpace(n))).Valid() {
			return nil, apperr.Invalid(map[string]string{"roles": fmt.Sprintf("Unknown role %q.", n)})
		}
	}
	if _, err := s.store.Users().FindByID(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.store.Users().SetRoles(ctx, userID, models.NewRoleSet(names...)); err != nil {
		return nil, fmt.Errorf("identity: set roles: %w", err)
	}
	logger.WithCtx(ctx).Info("user roles changed", "user_id", userID, "roles", names)
	return s.store.Users().FindByID(ctx, userID)
}

// SetActive activates or deactivates a user. Users are never deleted.
func (s *IdentityService) SetActive(ctx context.Context, userID string, active bool) (*models.User, error) {
	if _, err := s.store.Users().FindByID(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.store.Users().SetActive(ctx, userID, active); err != nil {
		return nil, fmt.Errorf("identity: set active: %w", err)
	}
	logger.WithCtx(ctx).Info("user activation changed", "user_id", userID, "active", active)
	return s.store.Users().FindByID(ctx, userID)
}

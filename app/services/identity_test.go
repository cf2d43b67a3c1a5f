package services

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/shopkart/app/models"
	"github.com/shashiranjanraj/shopkart/app/repositories"
	"github.com/shashiranjanraj/shopkart/app/testsupport"
	"github.com/shashiranjanraj/shopkart/config"
	"github.com/shashiranjanraj/shopkart/pkg/apperr"
	"github.com/shashiranjanraj/shopkart/pkg/auth"
	outbound "github.com/shashiranjanraj/shopkart/pkg/http"
	"github.com/shashiranjanraj/shopkart/pkg/testkit"
)

const userinfoURL = "https://idp.test/userinfo"

func mockProvider(t *testing.T, status int, profile any) {
	t.Helper()
	body, err := json.Marshal(profile)
	require.NoError(t, err)

	config.Set("IDP_USERINFO_URL", userinfoURL)
	outbound.DefaultClient.Transport = testkit.NewMockTransport(&testkit.Scenario{
		HTTPMocks:    []testkit.HTTPMock{{MatchURL: userinfoURL, Status: status, Body: body}},
		RequireMocks: true,
	})
	t.Cleanup(func() {
		outbound.ResetTransport()
		config.Unset("IDP_USERINFO_URL")
	})
}

func TestSignInCreatesUserOnce(t *testing.T) {
	db := testsupport.NewDB(t)
	svc := NewIdentityService(repositories.NewStore(db))
	mockProvider(t, http.StatusOK, Userinfo{Subject: "g-1", Email: "ada@example.com", Name: "Ada"})
	ctx := context.Background()

	first, err := svc.SignIn(ctx, "provider-token")
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, "ada@example.com", first.User.Email)
	assert.True(t, first.User.Roles.Has(models.RoleCustomer))
	assert.False(t, first.User.Roles.Has(models.RoleAdmin))

	claims, err := auth.ValidateToken(first.Token)
	require.NoError(t, err)
	assert.Equal(t, first.User.ID, claims.UserID())

	again, err := svc.SignIn(ctx, "provider-token")
	require.NoError(t, err)
	assert.False(t, again.Created)
	assert.Equal(t, first.User.ID, again.User.ID)
	assert.EqualValues(t, 1, testsupport.Count(t, db, &models.User{}))
}

func TestSignInGrantsAdminByEmail(t *testing.T) {
	config.Set("ADMIN_EMAILS", "root@example.com")
	t.Cleanup(func() { config.Unset("ADMIN_EMAILS") })

	svc := NewIdentityService(repositories.NewStore(testsupport.NewDB(t)))
	mockProvider(t, http.StatusOK, Userinfo{ID: "g-2", Email: "ROOT@example.com"})

	s, err := svc.SignIn(context.Background(), "tok")
	require.NoError(t, err)
	assert.True(t, s.User.Roles.Has(models.RoleAdmin))
}

func TestSignInRejectedToken(t *testing.T) {
	svc := NewIdentityService(repositories.NewStore(testsupport.NewDB(t)))
	mockProvider(t, http.StatusUnauthorized, map[string]string{"error": "invalid_token"})

	_, err := svc.SignIn(context.Background(), "expired")
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

	_, err = svc.SignIn(context.Background(), "  ")
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}

func TestResolvePrincipal(t *testing.T) {
	db := testsupport.NewDB(t)
	svc := NewIdentityService(repositories.NewStore(db))
	ctx := context.Background()

	merchant := testsupport.User(t, db, models.RoleMerchant)
	shop := testsupport.Shop(t, db, merchant.ID)
	token, _, err := auth.IssueToken(merchant.ID, merchant.Email)
	require.NoError(t, err)
	claims, err := auth.ValidateToken(token)
	require.NoError(t, err)

	p, err := svc.Resolve(ctx, claims)
	require.NoError(t, err)
	assert.Equal(t, merchant.ID, p.UserID)
	assert.Equal(t, []string{shop.ID}, p.ShopIDs)
	assert.True(t, p.OwnsShop(shop.ID))

	_, err = svc.SetActive(ctx, merchant.ID, false)
	require.NoError(t, err)
	_, err = svc.Resolve(ctx, claims)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestSetRoles(t *testing.T) {
	db := testsupport.NewDB(t)
	svc := NewIdentityService(repositories.NewStore(db))
	u := testsupport.User(t, db, models.RoleCustomer)
	ctx := context.Background()

	updated, err := svc.SetRoles(ctx, u.ID, []string{"customer", "merchant"})
	require.NoError(t, err)
	assert.True(t, updated.Roles.Has(models.RoleMerchant))

	_, err = svc.SetRoles(ctx, u.ID, []string{"wizard"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.SetRoles(ctx, "missing", []string{"customer"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

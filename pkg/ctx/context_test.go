package ctx_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/shopkart/pkg/apperr"
	"github.com/shashiranjanraj/shopkart/pkg/auth"
	appctx "github.com/shashiranjanraj/shopkart/pkg/ctx"
)

func serve(req *http.Request, h appctx.HandlerFunc) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	appctx.Wrap(h)(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestSuccessEnvelope(t *testing.T) {
	rec := serve(httptest.NewRequest(http.MethodGet, "/", nil), func(c *appctx.Context) {
		c.Success(map[string]any{"id": "o-1"})
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.EqualValues(t, 200, body["status"])
	assert.Equal(t, "o-1", body["data"].(map[string]any)["id"])
}

func TestBindJSONValid(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Asha","rating":4}`))
	rec := serve(req, func(c *appctx.Context) {
		var input struct {
			Name   string `json:"name"   validate:"required"`
			Rating int    `json:"rating" validate:"required,between=1,5"`
		}
		require.True(t, c.BindJSON(&input))
		assert.Equal(t, 4, input.Rating)
		c.Success(nil)
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBindJSONValidationFailure(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"rating":9}`))
	rec := serve(req, func(c *appctx.Context) {
		var input struct {
			Rating int `json:"rating" validate:"required,between=1,5"`
		}
		assert.False(t, c.BindJSON(&input))
	})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "validation_error", body["code"])
	assert.Contains(t, body["errors"], "rating")
}

func TestBindJSONMalformed(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{not json`))
	rec := serve(req, func(c *appctx.Context) {
		var input struct{}
		assert.False(t, c.BindJSON(&input))
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFailMapsKinds(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{apperr.New(apperr.StaleOrderVersion, "order changed"), http.StatusConflict, "stale_order_version"},
		{apperr.New(apperr.NotFound, "order not found"), http.StatusNotFound, "not_found"},
		{apperr.New(apperr.EmptyCart, "no items"), http.StatusUnprocessableEntity, "empty_cart"},
		{errors.New("disk on fire"), http.StatusInternalServerError, "internal"},
	}
	for _, tc := range cases {
		rec := serve(httptest.NewRequest(http.MethodGet, "/", nil), func(c *appctx.Context) {
			c.Fail(tc.err)
		})
		assert.Equal(t, tc.status, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, tc.code, body["code"])
	}
}

func TestFailHidesInternalDetail(t *testing.T) {
	rec := serve(httptest.NewRequest(http.MethodGet, "/", nil), func(c *appctx.Context) {
		c.Fail(errors.New("dsn=postgres://secret"))
	})
	assert.NotContains(t, rec.Body.String(), "secret")
}

func TestPrincipalAndPage(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?page=3&per_page=500", nil)
	p := &auth.Principal{UserID: "u-1", Roles: []string{auth.RoleCustomer}}
	req = req.WithContext(auth.WithPrincipal(req.Context(), p))

	serve(req, func(c *appctx.Context) {
		assert.Equal(t, "u-1", c.Principal().UserID)
		page, per := c.Page()
		assert.Equal(t, 3, page)
		assert.Equal(t, 100, per)
	})

	serve(httptest.NewRequest(http.MethodGet, "/", nil), func(c *appctx.Context) {
		assert.Nil(t, c.Principal())
	})
}

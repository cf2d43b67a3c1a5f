package graphql

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/shopkart/app/models"
	"github.com/shashiranjanraj/shopkart/app/repositories"
	"github.com/shashiranjanraj/shopkart/app/services"
	"github.com/shashiranjanraj/shopkart/app/testsupport"
	gql "github.com/shashiranjanraj/shopkart/pkg/graphql"
)

func TestCatalogQuery(t *testing.T) {
	db := testsupport.NewDB(t)
	owner := testsupport.User(t, db, models.RoleMerchant)
	shop := testsupport.Shop(t, db, owner.ID)
	p := testsupport.Product(t, db, shop.ID, "mango", "45.5", 9)
	testsupport.Offer(t, db, shop.ID, &p.ID, models.DiscountPercentage, "10")
	testsupport.Shop(t, db, owner.ID, func(s *models.Shop) { s.Status = models.ShopPending })

	schema, err := NewCatalogSchema(services.NewCatalogService(repositories.NewStore(db), nil))
	require.NoError(t, err)

	body, _ := json.Marshal(gql.Request{Query: `{
		shops { id name deliveryFee offers { scope value productId } products { name variants { price stock } } }
	}`})
	rec := httptest.NewRecorder()
	gql.Handler(schema)(rec, httptest.NewRequest(http.MethodPost, "/graphql", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		Data struct {
			Shops []struct {
				ID          string `json:"id"`
				DeliveryFee string `json:"deliveryFee"`
				Offers      []struct {
					Scope     string `json:"scope"`
					Value     string `json:"value"`
					ProductID string `json:"productId"`
				} `json:"offers"`
				Products []struct {
					Name     string `json:"name"`
					Variants []struct {
						Price string `json:"price"`
						Stock int    `json:"stock"`
					} `json:"variants"`
				} `json:"products"`
			} `json:"shops"`
		} `json:"data"`
		Errors []any `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Empty(t, out.Errors)
	require.Len(t, out.Data.Shops, 1)

	s := out.Data.Shops[0]
	assert.Equal(t, shop.ID, s.ID)
	assert.Equal(t, "0.00", s.DeliveryFee)
	require.Len(t, s.Offers, 1)
	assert.Equal(t, "product", s.Offers[0].Scope)
	assert.Equal(t, p.ID, s.Offers[0].ProductID)
	require.Len(t, s.Products, 1)
	assert.Equal(t, "45.50", s.Products[0].Variants[0].Price)
	assert.Equal(t, 9, s.Products[0].Variants[0].Stock)
}

func TestHandlerRejectsEmptyQuery(t *testing.T) {
	db := testsupport.NewDB(t)
	schema, err := NewCatalogSchema(services.NewCatalogService(repositories.NewStore(db), nil))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	gql.Handler(schema)(rec, httptest.NewRequest(http.MethodPost, "/graphql", bytes.NewReader([]byte(`{}`))))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

package seeders_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/shopkart/app/models"
	"github.com/shashiranjanraj/shopkart/app/testsupport"
	"github.com/shashiranjanraj/shopkart/database/seeders"
)

func TestSeedDemoIsIdempotent(t *testing.T) {
	db := testsupport.NewDB(t)

	require.NoError(t, seeders.SeedDemo(db))
	require.NoError(t, seeders.SeedDemo(db))

	assert.EqualValues(t, 3, testsupport.Count(t, db, &models.User{}))
	assert.EqualValues(t, 1, testsupport.Count(t, db, &models.Shop{}))
	assert.EqualValues(t, 2, testsupport.Count(t, db, &models.Product{}))
	assert.EqualValues(t, 2, testsupport.Count(t, db, &models.Variant{}))
	assert.EqualValues(t, 1, testsupport.Count(t, db, &models.Offer{}))

	var shop models.Shop
	require.NoError(t, db.First(&shop).Error)
	assert.Equal(t, models.ShopApproved, shop.Status)
}

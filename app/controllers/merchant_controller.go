package controllers

import (
	"net/http"

	"github.com/shashiranjanraj/shopkart/app/services"
	"github.com/shashiranjanraj/shopkart/pkg/ctx"
)

const maxImageBytes = 8 << 20

// MerchantController serves the shop owner console under /merchant.
type MerchantController struct {
	catalog   *services.CatalogService
	dashboard *services.DashboardService
}

func NewMerchantController(catalog *services.CatalogService, dashboard *services.DashboardService) *MerchantController {
	return &MerchantController{catalog: catalog, dashboard: dashboard}
}

func (mc *MerchantController) Dashboard(c *ctx.Context) {
	d, err := mc.dashboard.Merchant(c.Context(), c.Principal())
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(d)
}

func (mc *MerchantController) Shops(c *ctx.Context) {
	page, perPage := c.Page()
	shops, p, err := mc.catalog.MyShops(c.Context(), c.Principal(), page, perPage)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Paginated(shops, p)
}

func (mc *MerchantController) CreateShop(c *ctx.Context) {
	var in services.ShopInput
	if !c.BindJSON(&in) {
		return
	}
	shop, err := mc.catalog.CreateShop(c.Context(), c.Principal(), in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Created(shop)
}

func (mc *MerchantController) UpdateShop(c *ctx.Context) {
	var in services.ShopInput
	if !c.BindJSON(&in) {
		return
	}
	shop, err := mc.catalog.UpdateShop(c.Context(), c.Principal(), c.Param("id"), in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(shop)
}

// SetHours toggles is_open and accepting_orders.
func (mc *MerchantController) SetHours(c *ctx.Context) {
	var in services.ShopHoursInput
	if !c.BindJSON(&in) {
		return
	}
	shop, err := mc.catalog.SetHours(c.Context(), c.Principal(), c.Param("id"), in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(shop)
}

func (mc *MerchantController) CreateProduct(c *ctx.Context) {
	var in services.ProductInput
	if !c.BindJSON(&in) {
		return
	}
	product, err := mc.catalog.CreateProduct(c.Context(), c.Principal(), c.Param("id"), in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Created(product)
}

func (mc *MerchantController) UpdateProduct(c *ctx.Context) {
	var in services.ProductInput
	if !c.BindJSON(&in) {
		return
	}
	product, err := mc.catalog.UpdateProduct(c.Context(), c.Principal(), c.Param("id"), in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(product)
}

// UploadImage accepts a multipart "image" field.
func (mc *MerchantController) UploadImage(c *ctx.Context) {
	c.R.Body = http.MaxBytesReader(c.W, c.R.Body, maxImageBytes)
	if err := c.R.ParseMultipartForm(maxImageBytes); err != nil {
		c.ValidationError(map[string]string{"image": "The upload must be a multipart form under 8 MB."})
		return
	}
	file, header, err := c.R.FormFile("image")
	if err != nil {
		c.ValidationError(map[string]string{"image": "The image field is required."})
		return
	}
	defer file.Close()

	img, err := mc.catalog.AddImage(c.Context(), c.Principal(), c.Param("id"), header.Header.Get("Content-Type"), file)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Created(img)
}

func (mc *MerchantController) Offers(c *ctx.Context) {
	offers, err := mc.catalog.ListOffers(c.Context(), c.Principal(), c.Param("id"))
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(offers)
}

func (mc *MerchantController) CreateOffer(c *ctx.Context) {
	var in services.OfferInput
	if !c.BindJSON(&in) {
		return
	}
	offer, err := mc.catalog.CreateOffer(c.Context(), c.Principal(), c.Param("id"), in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Created(offer)
}

func (mc *MerchantController) UpdateOffer(c *ctx.Context) {
	var in services.OfferInput
	if !c.BindJSON(&in) {
		return
	}
	offer, err := mc.catalog.UpdateOffer(c.Context(), c.Principal(), c.Param("id"), in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(offer)
}

func (mc *MerchantController) DeleteOffer(c *ctx.Context) {
	if err := mc.catalog.DeleteOffer(c.Context(), c.Principal(), c.Param("id")); err != nil {
		c.Fail(err)
		return
	}
	c.NoContent()
}

// RetireProduct answers DELETE /merchant/products/{id}. The product is
// deactivated, not removed.
func (mc *MerchantController) RetireProduct(c *ctx.Context) {
	product, err := mc.catalog.RetireProduct(c.Context(), c.Principal(), c.Param("id"))
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(product)
}

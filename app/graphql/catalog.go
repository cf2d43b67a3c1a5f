// Package graphql exposes the public catalog as a read-only GraphQL schema.
package graphql

import (
	"github.com/graphql-go/graphql"
	"github.com/shopspring/decimal"

	"github.com/shashiranjanraj/shopkart/app/models"
	"github.com/shashiranjanraj/shopkart/app/repositories"
	"github.com/shashiranjanraj/shopkart/app/services"
	"github.com/shashiranjanraj/shopkart/pkg/auth"
	gql "github.com/shashiranjanraj/shopkart/pkg/graphql"
)

func money(get func(src any) decimal.Decimal) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (any, error) { return get(p.Source).StringFixed(2), nil }
}

func viewer(p graphql.ResolveParams) *auth.Principal {
	if p.Context == nil {
		return nil
	}
	v, _ := auth.PrincipalFrom(p.Context)
	return v
}

func str(p graphql.ResolveParams, name string) string {
	s, _ := p.Args[name].(string)
	return s
}

func integer(p graphql.ResolveParams, name string, def int) int {
	if n, ok := p.Args[name].(int); ok {
		return n
	}
	return def
}

func variantType() *graphql.Object {
	v := func(src any) *models.Variant { return src.(*models.Variant) }
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Variant",
		Fields: graphql.Fields{
			"id":    &graphql.Field{Type: graphql.ID, Resolve: func(p graphql.ResolveParams) (any, error) { return v(p.Source).ID, nil }},
			"name":  &graphql.Field{Type: graphql.String, Resolve: func(p graphql.ResolveParams) (any, error) { return v(p.Source).Name, nil }},
			"sku":   &graphql.Field{Type: graphql.String, Resolve: func(p graphql.ResolveParams) (any, error) { return v(p.Source).SKU, nil }},
			"mrp":   &graphql.Field{Type: graphql.String, Resolve: money(func(s any) decimal.Decimal { return v(s).MRP })},
			"price": &graphql.Field{Type: graphql.String, Resolve: money(func(s any) decimal.Decimal { return v(s).Price })},
			"stock": &graphql.Field{Type: graphql.Int, Resolve: func(p graphql.ResolveParams) (any, error) { return v(p.Source).Stock, nil }},
		},
	})
}

func offerType() *graphql.Object {
	o := func(src any) *models.Offer { return src.(*models.Offer) }
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Offer",
		Fields: graphql.Fields{
			"id":           &graphql.Field{Type: graphql.ID, Resolve: func(p graphql.ResolveParams) (any, error) { return o(p.Source).ID, nil }},
			"name":         &graphql.Field{Type: graphql.String, Resolve: func(p graphql.ResolveParams) (any, error) { return o(p.Source).Name, nil }},
			"scope":        &graphql.Field{Type: graphql.String, Resolve: func(p graphql.ResolveParams) (any, error) { return string(o(p.Source).Scope()), nil }},
			"productId": &graphql.Field{Type: graphql.ID, Resolve: func(p graphql.ResolveParams) (any, error) {
				if id := o(p.Source).ProductID; id != nil {
					return *id, nil
				}
				return nil, nil
			}},
			"discountType": &graphql.Field{Type: graphql.String, Resolve: func(p graphql.ResolveParams) (any, error) { return string(o(p.Source).DiscountType), nil }},
			"value":        &graphql.Field{Type: graphql.String, Resolve: money(func(s any) decimal.Decimal { return o(s).Value })},
			"validFrom":    &graphql.Field{Type: graphql.DateTime, Resolve: func(p graphql.ResolveParams) (any, error) { return o(p.Source).ValidFrom, nil }},
			"validTill":    &graphql.Field{Type: graphql.DateTime, Resolve: func(p graphql.ResolveParams) (any, error) { return o(p.Source).ValidTill, nil }},
		},
	})
}

func productType(variant *graphql.Object) *graphql.Object {
	pr := func(src any) *models.Product { return src.(*models.Product) }
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Product",
		Fields: graphql.Fields{
			"id":           &graphql.Field{Type: graphql.ID, Resolve: func(p graphql.ResolveParams) (any, error) { return pr(p.Source).ID, nil }},
			"shopId":       &graphql.Field{Type: graphql.ID, Resolve: func(p graphql.ResolveParams) (any, error) { return pr(p.Source).ShopID, nil }},
			"name":         &graphql.Field{Type: graphql.String, Resolve: func(p graphql.ResolveParams) (any, error) { return pr(p.Source).Name, nil }},
			"description":  &graphql.Field{Type: graphql.String, Resolve: func(p graphql.ResolveParams) (any, error) { return pr(p.Source).Description, nil }},
			"category":     &graphql.Field{Type: graphql.String, Resolve: func(p graphql.ResolveParams) (any, error) { return pr(p.Source).Category, nil }},
			"rating":       &graphql.Field{Type: graphql.Float, Resolve: func(p graphql.ResolveParams) (any, error) { return pr(p.Source).Rating, nil }},
			"totalReviews": &graphql.Field{Type: graphql.Int, Resolve: func(p graphql.ResolveParams) (any, error) { return pr(p.Source).TotalReviews, nil }},
			"variants": &graphql.Field{
				Type: graphql.NewList(variant),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					vs := pr(p.Source).Variants
					out := make([]*models.Variant, len(vs))
					for i := range vs {
						out[i] = &vs[i]
					}
					return out, nil
				},
			},
		},
	})
}

func pointers[T any](in []T) []*T {
	out := make([]*T, len(in))
	for i := range in {
		out[i] = &in[i]
	}
	return out
}

func shopType(catalog *services.CatalogService, product, offer *graphql.Object) *graphql.Object {
	s := func(src any) *models.Shop { return src.(*models.Shop) }
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Shop",
		Fields: graphql.Fields{
			"id":              &graphql.Field{Type: graphql.ID, Resolve: func(p graphql.ResolveParams) (any, error) { return s(p.Source).ID, nil }},
			"name":            &graphql.Field{Type: graphql.String, Resolve: func(p graphql.ResolveParams) (any, error) { return s(p.Source).Name, nil }},
			"description":     &graphql.Field{Type: graphql.String, Resolve: func(p graphql.ResolveParams) (any, error) { return s(p.Source).Description, nil }},
			"category":        &graphql.Field{Type: graphql.String, Resolve: func(p graphql.ResolveParams) (any, error) { return s(p.Source).Category, nil }},
			"address":         &graphql.Field{Type: graphql.String, Resolve: func(p graphql.ResolveParams) (any, error) { return s(p.Source).Address, nil }},
			"isOpen":          &graphql.Field{Type: graphql.Boolean, Resolve: func(p graphql.ResolveParams) (any, error) { return s(p.Source).IsOpen, nil }},
			"acceptingOrders": &graphql.Field{Type: graphql.Boolean, Resolve: func(p graphql.ResolveParams) (any, error) { return s(p.Source).AcceptingOrders, nil }},
			"deliveryFee":     &graphql.Field{Type: graphql.String, Resolve: money(func(x any) decimal.Decimal { return s(x).DeliveryFee })},
			"minimumOrder":    &graphql.Field{Type: graphql.String, Resolve: money(func(x any) decimal.Decimal { return s(x).MinimumOrder })},
			"rating":          &graphql.Field{Type: graphql.Float, Resolve: func(p graphql.ResolveParams) (any, error) { return s(p.Source).Rating, nil }},
			"totalReviews":    &graphql.Field{Type: graphql.Int, Resolve: func(p graphql.ResolveParams) (any, error) { return s(p.Source).TotalReviews, nil }},
			"offers": &graphql.Field{
				Type: graphql.NewList(offer),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					offers, err := catalog.CurrentOffers(p.Context, s(p.Source).ID)
					if err != nil {
						return nil, err
					}
					return pointers(offers), nil
				},
			},
			"products": &graphql.Field{
				Type: graphql.NewList(product),
				Args: graphql.FieldConfigArgument{
					"search":  &graphql.ArgumentConfig{Type: graphql.String},
					"page":    &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 1},
					"perPage": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					products, _, err := catalog.ListProducts(p.Context, s(p.Source).ID, viewer(p), services.ProductQuery{
						Search:  str(p, "search"),
						Page:    integer(p, "page", 1),
						PerPage: integer(p, "perPage", 20),
					})
					if err != nil {
						return nil, err
					}
					return pointers(products), nil
				},
			},
		},
	})
}

// NewCatalogSchema builds the catalog schema over catalog.
func NewCatalogSchema(catalog *services.CatalogService) (graphql.Schema, error) {
	variant := variantType()
	offer := offerType()
	product := productType(variant)
	shop := shopType(catalog, product, offer)

	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"shops": &graphql.Field{
				Type: graphql.NewList(shop),
				Args: graphql.FieldConfigArgument{
					"category": &graphql.ArgumentConfig{Type: graphql.String},
					"search":   &graphql.ArgumentConfig{Type: graphql.String},
					"openOnly": &graphql.ArgumentConfig{Type: graphql.Boolean, DefaultValue: false},
					"sort":     &graphql.ArgumentConfig{Type: graphql.String},
					"page":     &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 1},
					"perPage":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					open, _ := p.Args["openOnly"].(bool)
					shops, _, err := catalog.ListShops(p.Context, services.ShopQuery{
						Category: str(p, "category"),
						Search:   str(p, "search"),
						OpenOnly: open,
						Sort:     repositories.ShopSort(str(p, "sort")),
						Page:     integer(p, "page", 1),
						PerPage:  integer(p, "perPage", 20),
					})
					if err != nil {
						return nil, err
					}
					return pointers(shops), nil
				},
			},
			"shop": &graphql.Field{
				Type: shop,
				Args: graphql.FieldConfigArgument{"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)}},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					d, err := catalog.GetShop(p.Context, str(p, "id"), viewer(p))
					if err != nil {
						return nil, err
					}
					return d.Shop, nil
				},
			},
			"product": &graphql.Field{
				Type: product,
				Args: graphql.FieldConfigArgument{"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)}},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return catalog.GetProduct(p.Context, str(p, "id"), viewer(p))
				},
			},
		},
	})
	return gql.NewSchema(query)
}

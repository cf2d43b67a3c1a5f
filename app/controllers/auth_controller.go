package controllers

import (
	"github.com/shashiranjanraj/shopkart/app/services"
	"github.com/shashiranjanraj/shopkart/pkg/ctx"
)

type AuthController struct {
	identity *services.IdentityService
}

func NewAuthController(identity *services.IdentityService) *AuthController {
	return &AuthController{identity: identity}
}

type signInRequest struct {
	AccessToken string `json:"access_token" validate:"required"`
}

// SignIn exchanges an identity-provider access token for a session token.
func (a *AuthController) SignIn(c *ctx.Context) {
	var in signInRequest
	if !c.BindJSON(&in) {
		return
	}
	session, err := a.identity.SignIn(c.Context(), in.AccessToken)
	if err != nil {
		c.Fail(err)
		return
	}
	if session.Created {
		c.Created(session)
		return
	}
	c.Success(session)
}

func (a *AuthController) Me(c *ctx.Context) {
	user, err := a.identity.Me(c.Context(), c.Principal())
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(map[string]any{
		"user":     user,
		"shop_ids": c.Principal().ShopIDs,
	})
}

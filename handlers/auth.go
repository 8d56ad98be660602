package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Nerzal/gocloak/v13"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/kova98/liveticker.api/data"
)

// TokenIntrospector is the part of the Keycloak client the auth handler needs.
type TokenIntrospector interface {
	DecodeAccessToken(ctx context.Context, accessToken, realm string) (*jwt.Token, *jwt.MapClaims, error)
	GetUserInfo(ctx context.Context, accessToken, realm string) (*gocloak.UserInfo, error)
}

type AuthHandler struct {
	keycloak TokenIntrospector
	realm    string
}

func NewAuthHandler(keycloak TokenIntrospector, realm string) *AuthHandler {
	return &AuthHandler{
		keycloak: keycloak,
		realm:    realm,
	}
}

// GetUser resolves the editor behind a bearer token.
func (h *AuthHandler) GetUser(ctx context.Context, authHeader string) Result {
	if authHeader == "" {
		return Unauthorized("Missing authorization header")
	}

	res := h.getUserFromAuthHeader(ctx, authHeader)
	if res.Code != http.StatusOK {
		return res
	}
	userInfo := res.Body.(gocloak.UserInfo)

	if userInfo.Sub == nil {
		return Unauthorized("User not found")
	}
	id, err := uuid.Parse(*userInfo.Sub)
	if err != nil {
		slog.Error("Failed to parse user ID from Keycloak", "sub", *userInfo.Sub, "error", err)
		return InternalError(err, "Failed to parse user ID from Keycloak")
	}

	email := gocloak.PString(userInfo.Email)
	// If preferred_username is empty, use the part before the @ in the email
	name := gocloak.PString(userInfo.PreferredUsername)
	if name == "" {
		name = strings.Split(email, "@")[0]
	}

	user := data.User{
		ID:          id,
		Name:        name,
		DisplayName: gocloak.PString(userInfo.Name),
		Email:       email,
		Avatar:      gocloak.PString(userInfo.Picture),
	}

	return Ok(user)
}

func (h *AuthHandler) getUserFromAuthHeader(ctx context.Context, authHeader string) Result {
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return Unauthorized("Invalid authorization header format")
	}
	authHeader = strings.TrimPrefix(authHeader, "Bearer ")

	// Validate the token
	_, _, err := h.keycloak.DecodeAccessToken(ctx, authHeader, h.realm)
	if err != nil {
		return Unauthorized("Invalid token")
	}

	userInfo, err := h.keycloak.GetUserInfo(ctx, authHeader, h.realm)
	if err != nil {
		return InternalError(err, "Failed to get user info")
	}

	if userInfo == nil {
		return Unauthorized("User not found")
	}

	return Ok(*userInfo)
}

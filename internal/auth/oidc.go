package auth

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

type idClaims struct {
	Name              string   `json:"name"`
	PreferredUsername string   `json:"preferred_username"`
	Email             string   `json:"email"`
	Roles             []string `json:"roles"`
	Groups            []string `json:"groups"`
	RealmAccess       struct {
		Roles []string `json:"roles"`
	} `json:"realm_access"`
}

func (c idClaims) displayName() string {
	for _, candidate := range []string{c.Name, c.PreferredUsername, c.Email} {
		if strings.TrimSpace(candidate) != "" {
			return strings.TrimSpace(candidate)
		}
	}
	return ""
}

func (c idClaims) roles() []string {
	out := append([]string{}, c.RealmAccess.Roles...)
	out = append(out, c.Roles...)
	return append(out, c.Groups...)
}

// Login redirects to the identity provider. The state is a signed token
// carrying the nonce and the page to return to.
func (m *Manager) Login(w http.ResponseWriter, r *http.Request) {
	if !m.Interactive() {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	nonce := uuid.NewString()
	state, err := m.codec.encodeState(nonce, safeReturn(r.URL.Query().Get("return_to")))
	if err != nil {
		m.logger.Error("sign login state", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, m.oauth.AuthCodeURL(state, oidc.Nonce(nonce)), http.StatusFound)
}

// Callback exchanges the authorization code, verifies the ID token and
// starts the session.
func (m *Manager) Callback(w http.ResponseWriter, r *http.Request) {
	if !m.Interactive() {
		http.NotFound(w, r)
		return
	}
	query := r.URL.Query()
	if providerErr := query.Get("error"); providerErr != "" {
		m.logger.Warn("login refused by provider", zap.String("error", providerErr), zap.String("description", query.Get("error_description")))
		http.Error(w, "Login failed.", http.StatusUnauthorized)
		return
	}
	state, err := m.codec.decodeState(query.Get("state"))
	if err != nil {
		http.Error(w, "Invalid login state.", http.StatusBadRequest)
		return
	}
	code := query.Get("code")
	if code == "" {
		http.Error(w, "Missing authorization code.", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	if m.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)
	}
	token, err := m.oauth.Exchange(ctx, code)
	if err != nil {
		m.logger.Warn("code exchange failed", zap.Error(err))
		http.Error(w, "Login failed.", http.StatusUnauthorized)
		return
	}
	rawID, ok := token.Extra("id_token").(string)
	if !ok || rawID == "" {
		http.Error(w, "Login failed.", http.StatusUnauthorized)
		return
	}
	idToken, err := m.verifier.Verify(ctx, rawID)
	if err != nil {
		m.logger.Warn("id token rejected", zap.Error(err))
		http.Error(w, "Login failed.", http.StatusUnauthorized)
		return
	}
	if idToken.Nonce != state.Nonce {
		http.Error(w, "Login failed.", http.StatusUnauthorized)
		return
	}
	var claims idClaims
	if err := idToken.Claims(&claims); err != nil {
		http.Error(w, "Login failed.", http.StatusUnauthorized)
		return
	}
	roles := claims.roles()
	if required := m.cfg.RequiredRole; required != "" && !slices.Contains(roles, required) {
		m.logger.Warn("login without required role", zap.String("subject", idToken.Subject), zap.String("role", required))
		http.Error(w, "You are not allowed to administer the configuration.", http.StatusForbidden)
		return
	}

	_, err = m.start(w, Session{
		Subject:     idToken.Subject,
		Name:        claims.displayName(),
		AccessToken: token.AccessToken,
		Roles:       roles,
		ExpiresAt:   token.Expiry,
	})
	if err != nil {
		m.logger.Error("start session", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	m.logger.Info("operator logged in", zap.String("subject", idToken.Subject))
	http.Redirect(w, r, safeReturn(state.ReturnTo), http.StatusFound)
}

// Logout clears the session cookie.
func (m *Manager) Logout(w http.ResponseWriter, r *http.Request) {
	m.clear(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

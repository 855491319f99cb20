package auth

import (
	"errors"
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

const (
	sessionAudience = "configadmin-session"
	stateAudience   = "configadmin-state"
	tokenIssuer     = "configadmin"
	stateTTL        = 5 * time.Minute
)

// Session is the signed cookie content of a console operator.
type Session struct {
	Subject     string
	Name        string
	AccessToken string
	CSRF        string
	Roles       []string
	ExpiresAt   time.Time
}

// DisplayName is shown in the navigation bar.
func (s Session) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Subject
}

type sessionClaims struct {
	Name        string   `json:"name,omitempty"`
	AccessToken string   `json:"at,omitempty"`
	CSRF        string   `json:"csrf"`
	Roles       []string `json:"roles,omitempty"`
	jwtlib.RegisteredClaims
}

type stateClaims struct {
	Nonce    string `json:"nonce"`
	ReturnTo string `json:"return_to,omitempty"`
	jwtlib.RegisteredClaims
}

// codec signs sessions and login states as HS256 tokens.
type codec struct {
	secret []byte
	now    func() time.Time
}

func (c codec) sign(claims jwtlib.Claims) (string, error) {
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

func (c codec) parse(raw string, claims jwtlib.Claims, audience string) error {
	_, err := jwtlib.ParseWithClaims(raw, claims, func(*jwtlib.Token) (any, error) {
		return c.secret, nil
	},
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithAudience(audience),
		jwtlib.WithIssuer(tokenIssuer),
		jwtlib.WithExpirationRequired(),
		jwtlib.WithTimeFunc(c.now),
	)
	return err
}

func (c codec) encodeSession(s Session) (string, error) {
	return c.sign(sessionClaims{
		Name:        s.Name,
		AccessToken: s.AccessToken,
		CSRF:        s.CSRF,
		Roles:       s.Roles,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   s.Subject,
			Audience:  jwtlib.ClaimStrings{sessionAudience},
			IssuedAt:  jwtlib.NewNumericDate(c.now()),
			ExpiresAt: jwtlib.NewNumericDate(s.ExpiresAt),
		},
	})
}

func (c codec) decodeSession(raw string) (Session, error) {
	var claims sessionClaims
	if err := c.parse(raw, &claims, sessionAudience); err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrNoSession, err)
	}
	if claims.CSRF == "" {
		return Session{}, fmt.Errorf("%w: missing csrf token", ErrNoSession)
	}
	return Session{
		Subject:     claims.Subject,
		Name:        claims.Name,
		AccessToken: claims.AccessToken,
		CSRF:        claims.CSRF,
		Roles:       claims.Roles,
		ExpiresAt:   claims.ExpiresAt.Time,
	}, nil
}

func (c codec) encodeState(nonce, returnTo string) (string, error) {
	return c.sign(stateClaims{
		Nonce:    nonce,
		ReturnTo: returnTo,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Issuer:    tokenIssuer,
			Audience:  jwtlib.ClaimStrings{stateAudience},
			ExpiresAt: jwtlib.NewNumericDate(c.now().Add(stateTTL)),
		},
	})
}

func (c codec) decodeState(raw string) (stateClaims, error) {
	var claims stateClaims
	if err := c.parse(raw, &claims, stateAudience); err != nil {
		return claims, fmt.Errorf("auth: invalid state: %w", err)
	}
	if claims.Nonce == "" {
		return claims, errors.New("auth: invalid state: missing nonce")
	}
	return claims, nil
}

// Package auth authenticates console operators and provides the bearer token
// forwarded to the configuration API.
//
// Modes:
//   - none: no token is sent.
//   - static: a fixed token from the settings.
//   - client_credentials: a token obtained by the console itself.
//   - oidc: operators log in with the identity provider and their own
//     access token is forwarded.
//
// Every mode issues a signed session cookie carrying the CSRF token checked
// on form posts.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/goliatone/go-configadmin/internal/config"
	"github.com/goliatone/go-configadmin/pkg/configapi"
	"github.com/goliatone/go-configadmin/pkg/render"
)

var (
	ErrNoSession = errors.New("auth: no session")
	ErrCSRF      = errors.New("auth: csrf token mismatch")
	ErrForbidden = errors.New("auth: required role missing")
)

const (
	SessionCookie = "configadmin_session"
	CSRFHeader    = "X-CSRF-Token"

	anonymousSubject = "operator"
)

type Option func(*Manager)

// WithProvider skips OIDC discovery and uses the given endpoint and
// verifier.
func WithProvider(endpoint oauth2.Endpoint, verifier *oidc.IDTokenVerifier) Option {
	return func(m *Manager) {
		m.endpoint = &endpoint
		m.verifier = verifier
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithSecureCookies marks cookies Secure, for consoles served over https.
func WithSecureCookies(secure bool) Option {
	return func(m *Manager) {
		m.secure = secure
	}
}

// WithHTTPClient is used for discovery and token calls.
func WithHTTPClient(client *http.Client) Option {
	return func(m *Manager) {
		m.httpClient = client
	}
}

// Manager implements the configured mode.
type Manager struct {
	cfg        config.AuthConfig
	codec      codec
	tokens     oauth2.TokenSource
	oauth      *oauth2.Config
	endpoint   *oauth2.Endpoint
	verifier   *oidc.IDTokenVerifier
	httpClient *http.Client
	logger     *zap.Logger
	secure     bool
	ttl        time.Duration
}

// New prepares the mode. OIDC discovery runs here unless WithProvider is
// given.
func New(ctx context.Context, cfg config.AuthConfig, options ...Option) (*Manager, error) {
	m := &Manager{
		cfg:    cfg,
		logger: zap.NewNop(),
		ttl:    cfg.SessionTTL,
	}
	for _, opt := range options {
		if opt != nil {
			opt(m)
		}
	}
	if m.ttl <= 0 {
		m.ttl = 8 * time.Hour
	}

	secret := []byte(cfg.SessionSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("auth: session secret: %w", err)
		}
	}
	m.codec = codec{secret: secret, now: time.Now}

	if m.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)
	}

	switch cfg.Mode {
	case config.AuthNone, "":
	case config.AuthStatic:
		m.tokens = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token, TokenType: "Bearer"})
	case config.AuthClientCredentials:
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       cfg.Scopes,
		}
		m.tokens = cc.TokenSource(context.WithoutCancel(ctx))
	case config.AuthOIDC:
		if m.endpoint == nil {
			provider, err := oidc.NewProvider(ctx, cfg.Issuer)
			if err != nil {
				return nil, fmt.Errorf("auth: discover %s: %w", cfg.Issuer, err)
			}
			endpoint := provider.Endpoint()
			m.endpoint = &endpoint
			m.verifier = provider.Verifier(&oidc.Config{ClientID: cfg.ClientID})
		}
		scopes := cfg.Scopes
		if !slices.Contains(scopes, oidc.ScopeOpenID) {
			scopes = append([]string{oidc.ScopeOpenID}, scopes...)
		}
		m.oauth = &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     *m.endpoint,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
		}
	default:
		return nil, fmt.Errorf("auth: unknown mode %q", cfg.Mode)
	}
	return m, nil
}

func (m *Manager) Mode() string { return m.cfg.Mode }

// Interactive reports whether operators log in through the provider.
func (m *Manager) Interactive() bool { return m.cfg.Mode == config.AuthOIDC }

// TokenSource feeds configapi in the static and client_credentials modes.
func (m *Manager) TokenSource() oauth2.TokenSource { return m.tokens }

type sessionKey struct{}

// WithSession stores s in ctx.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFromContext returns the session stored by Require.
func SessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok
}

// Require loads the session, forwards its access token to configapi and
// checks the CSRF token of unsafe methods. Without a valid session, OIDC
// consoles redirect page loads to /login; other modes start an anonymous
// session.
func (m *Manager) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := m.load(r)
		if err != nil {
			if m.Interactive() {
				if r.Method == http.MethodGet || r.Method == http.MethodHead {
					target := "/login?return_to=" + url.QueryEscape(r.URL.RequestURI())
					http.Redirect(w, r, target, http.StatusFound)
					return
				}
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			session, err = m.start(w, Session{Subject: anonymousSubject})
			if err != nil {
				m.logger.Error("start session", zap.Error(err))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
		}

		if !isSafeMethod(r.Method) {
			if err := checkCSRF(r, session); err != nil {
				m.logger.Warn("rejected form post", zap.String("path", r.URL.Path), zap.Error(err))
				http.Error(w, "Invalid or missing CSRF token.", http.StatusForbidden)
				return
			}
		}

		ctx := WithSession(r.Context(), session)
		if session.AccessToken != "" {
			ctx = configapi.WithToken(ctx, session.AccessToken)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Manager) load(r *http.Request) (Session, error) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return Session{}, ErrNoSession
	}
	session, err := m.codec.decodeSession(cookie.Value)
	if err != nil {
		return Session{}, err
	}
	if m.Interactive() && session.AccessToken == "" {
		return Session{}, ErrNoSession
	}
	return session, nil
}

// start signs s with a fresh CSRF token and sets the cookie.
func (m *Manager) start(w http.ResponseWriter, s Session) (Session, error) {
	s.CSRF = uuid.NewString()
	limit := m.codec.now().Add(m.ttl)
	if s.ExpiresAt.IsZero() || s.ExpiresAt.After(limit) {
		s.ExpiresAt = limit
	}
	value, err := m.codec.encodeSession(s)
	if err != nil {
		return Session{}, err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    value,
		Path:     "/",
		Expires:  s.ExpiresAt,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return s, nil
}

func (m *Manager) clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func checkCSRF(r *http.Request, s Session) error {
	token := r.Header.Get(CSRFHeader)
	if token == "" {
		token = r.PostFormValue(render.CSRFFieldName)
	}
	if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(s.CSRF)) != 1 {
		return ErrCSRF
	}
	return nil
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// safeReturn keeps redirects on this host.
func safeReturn(target string) string {
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return "/"
	}
	return target
}

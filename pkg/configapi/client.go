// Package configapi is the HTTP client of the functional configuration API:
// GET {base}/{profile}, PUT {base}/{profile} and GET {base}/history/{profile}.
// Every request carries a bearer token, taken from the request context first
// and from the client's token source otherwise.
package configapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/goliatone/go-configadmin/pkg/functional"
)

const (
	DefaultBaseURL = "http://localhost:8888/api/v1/config"
	DefaultProfile = "dev"

	DefaultConfigurationPath = "/{profile}"
	DefaultHistoryPath       = "/history/{profile}"
)

// Operation names reported to observers and in errors.
const (
	OpGetConfiguration = "get_configuration"
	OpPutConfiguration = "put_configuration"
	OpGetHistory       = "get_history"
)

// ErrUnauthorized marks 401/403 responses.
var ErrUnauthorized = errors.New("configapi: unauthorized")

// APIError describes a non-2xx response.
type APIError struct {
	Op     string
	Status int
	Body   string
	err    error
}

func (e *APIError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("configapi: %s: status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("configapi: %s: status %d: %s", e.Op, e.Status, body)
}

func (e *APIError) Unwrap() error { return e.err }

// Message returns the response body when the API sent a textual result such
// as "Configuration update failed".
func (e *APIError) Message() string {
	return strings.TrimSpace(e.Body)
}

// Observer receives one call per request with its outcome.
type Observer interface {
	ObserveRequest(op string, status int, duration time.Duration, err error)
}

// ObserverFunc adapts a function into an Observer.
type ObserverFunc func(op string, status int, duration time.Duration, err error)

func (fn ObserverFunc) ObserveRequest(op string, status int, duration time.Duration, err error) {
	fn(op, status, duration, err)
}

// Option configures a Client.
type Option func(*Client)

func WithBaseURL(base string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimRight(strings.TrimSpace(base), "/"); trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

func WithProfile(profile string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(profile); trimmed != "" {
			c.profile = trimmed
		}
	}
}

// WithPaths overrides the configuration and history path templates. Empty
// values keep the defaults. "{profile}" is substituted.
func WithPaths(configuration, history string) Option {
	return func(c *Client) {
		if strings.TrimSpace(configuration) != "" {
			c.configurationPath = strings.TrimSpace(configuration)
		}
		if strings.TrimSpace(history) != "" {
			c.historyPath = strings.TrimSpace(history)
		}
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithTokenSource supplies tokens for requests whose context carries none.
func WithTokenSource(source oauth2.TokenSource) Option {
	return func(c *Client) {
		c.tokens = source
	}
}

func WithObserver(observer Observer) Option {
	return func(c *Client) {
		c.observer = observer
	}
}

// Client talks to the configuration API for one profile.
type Client struct {
	baseURL           string
	profile           string
	configurationPath string
	historyPath       string
	http              *http.Client
	tokens            oauth2.TokenSource
	observer          Observer
}

func New(options ...Option) *Client {
	c := &Client{
		baseURL:           DefaultBaseURL,
		profile:           DefaultProfile,
		configurationPath: DefaultConfigurationPath,
		historyPath:       DefaultHistoryPath,
		http:              &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

func (c *Client) Profile() string { return c.profile }

// ConfigurationURL is the GET/PUT endpoint of the profile.
func (c *Client) ConfigurationURL() string {
	return c.baseURL + c.expand(c.configurationPath)
}

func (c *Client) HistoryURL() string {
	return c.baseURL + c.expand(c.historyPath)
}

func (c *Client) expand(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return strings.ReplaceAll(path, "{profile}", c.profile)
}

// GetConfiguration fetches the current configuration.
func (c *Client) GetConfiguration(ctx context.Context) (functional.FunctionalConfiguration, error) {
	var cfg functional.FunctionalConfiguration
	body, err := c.do(ctx, OpGetConfiguration, http.MethodGet, c.ConfigurationURL(), nil)
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(body, &cfg); err != nil {
		return cfg, fmt.Errorf("configapi: %s: decode: %w", OpGetConfiguration, err)
	}
	return cfg, nil
}

// PutConfiguration sends the new configuration and returns the API's textual
// result ("Configuration updated", "Nothing to update", ...).
func (c *Client) PutConfiguration(ctx context.Context, cfg functional.FunctionalConfiguration) (string, error) {
	payload, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("configapi: %s: encode: %w", OpPutConfiguration, err)
	}
	body, err := c.do(ctx, OpPutConfiguration, http.MethodPut, c.ConfigurationURL(), payload)
	if err != nil {
		return "", err
	}
	return decodeText(body), nil
}

// GetHistory fetches the change history, newest first as served.
func (c *Client) GetHistory(ctx context.Context) ([]functional.HistoryEntry, error) {
	body, err := c.do(ctx, OpGetHistory, http.MethodGet, c.HistoryURL(), nil)
	if err != nil {
		return nil, err
	}
	var entries []functional.HistoryEntry
	if len(bytes.TrimSpace(body)) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("configapi: %s: decode: %w", OpGetHistory, err)
	}
	return entries, nil
}

func (c *Client) do(ctx context.Context, op, method, url string, payload []byte) ([]byte, error) {
	start := time.Now()
	status := 0
	body, err := func() ([]byte, error) {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return nil, fmt.Errorf("configapi: %s: build request: %w", op, err)
		}
		req.Header.Set("Accept", "application/json, text/plain")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		token, err := c.token(ctx)
		if err != nil {
			return nil, fmt.Errorf("configapi: %s: token: %w", op, err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("configapi: %s: %w", op, err)
		}
		defer resp.Body.Close()
		status = resp.StatusCode

		body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
		if err != nil {
			return nil, fmt.Errorf("configapi: %s: read body: %w", op, err)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			apiErr := &APIError{Op: op, Status: resp.StatusCode, Body: decodeText(body)}
			if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
				apiErr.err = ErrUnauthorized
			}
			return nil, apiErr
		}
		return body, nil
	}()
	if c.observer != nil {
		c.observer.ObserveRequest(op, status, time.Since(start), err)
	}
	return body, err
}

func (c *Client) token(ctx context.Context) (string, error) {
	if token := TokenFromContext(ctx); token != "" {
		return token, nil
	}
	if c.tokens == nil {
		return "", nil
	}
	tok, err := c.tokens.Token()
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

// decodeText unwraps a JSON string body when the API quoted its result.
func decodeText(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 1 && trimmed[0] == '"' {
		var text string
		if err := json.Unmarshal(trimmed, &text); err == nil {
			return text
		}
	}
	return string(trimmed)
}

type tokenKey struct{}

// WithToken returns a context whose requests use token as bearer.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, strings.TrimSpace(token))
}

// TokenFromContext returns the bearer token stored by WithToken.
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

// IsUpdateFailure reports whether err is the API refusing an update with
// "Configuration update failed".
func IsUpdateFailure(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Message() == functional.ResultUpdateFailed
}

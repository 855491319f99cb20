// Package config loads the console settings from a YAML file, an optional
// .env file and CONFIGADMIN_* environment variables, in that order of
// precedence (environment wins).
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	theme "github.com/goliatone/go-theme"
)

// Auth modes.
const (
	AuthNone              = "none"
	AuthStatic            = "static"
	AuthClientCredentials = "client_credentials"
	AuthOIDC              = "oidc"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CONFIGADMIN_"

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	API        APIConfig        `yaml:"api"`
	Auth       AuthConfig       `yaml:"auth"`
	Submission SubmissionConfig `yaml:"submission"`
	Redis      RedisConfig      `yaml:"redis"`
	NATS       NATSConfig       `yaml:"nats"`
	Theme      ThemeConfig      `yaml:"theme"`
	Form       FormConfig       `yaml:"form"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr" validate:"required"`
	PublicURL       string        `yaml:"public_url" validate:"omitempty,url"`
	TemplatesDir    string        `yaml:"templates_dir"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gte=0"`
}

type APIConfig struct {
	BaseURL           string        `yaml:"base_url" validate:"required,url"`
	Profile           string        `yaml:"profile" validate:"required"`
	ConfigurationPath string        `yaml:"configuration_path"`
	HistoryPath       string        `yaml:"history_path"`
	Timeout           time.Duration `yaml:"timeout" validate:"gt=0"`
}

type AuthConfig struct {
	Mode          string        `yaml:"mode" validate:"oneof=none static client_credentials oidc"`
	Token         string        `yaml:"token"`
	Issuer        string        `yaml:"issuer" validate:"omitempty,url"`
	ClientID      string        `yaml:"client_id"`
	ClientSecret  string        `yaml:"client_secret"`
	TokenURL      string        `yaml:"token_url" validate:"omitempty,url"`
	RedirectURL   string        `yaml:"redirect_url" validate:"omitempty,url"`
	Scopes        []string      `yaml:"scopes"`
	SessionSecret string        `yaml:"session_secret"`
	SessionTTL    time.Duration `yaml:"session_ttl" validate:"gte=0"`
	RequiredRole  string        `yaml:"required_role"`
}

type SubmissionConfig struct {
	ResultDelay time.Duration `yaml:"result_delay" validate:"gte=0"`
	TTL         time.Duration `yaml:"ttl" validate:"gt=0"`
	Timeout     time.Duration `yaml:"timeout" validate:"gt=0"`
}

// RedisConfig enables the shared submission store when Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db" validate:"gte=0"`
	Prefix   string `yaml:"prefix"`
}

// NATSConfig enables update events when URL is set.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject" validate:"required_with=URL"`
}

type ThemeConfig struct {
	Name       string                       `yaml:"name"`
	Variant    string                       `yaml:"variant"`
	Tokens     map[string]string            `yaml:"tokens"`
	Variants   map[string]map[string]string `yaml:"variants"`
	Stylesheet string                       `yaml:"stylesheet"`
	Prefix     string                       `yaml:"assets_prefix"`
}

type FormConfig struct {
	// OpenAPISource is a file path or URL replacing the embedded description.
	OpenAPISource string `yaml:"openapi_source"`
	// Labels override field labels by dotted field path.
	Labels map[string]string `yaml:"labels"`
}

// Defaults returns the settings used when nothing is configured.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		API: APIConfig{
			BaseURL: "http://localhost:8888/api/v1/config",
			Profile: "dev",
			Timeout: 30 * time.Second,
		},
		Auth: AuthConfig{
			Mode:       AuthNone,
			Scopes:     []string{"openid", "profile", "email"},
			SessionTTL: 8 * time.Hour,
		},
		Submission: SubmissionConfig{
			ResultDelay: 2 * time.Second,
			TTL:         15 * time.Minute,
			Timeout:     30 * time.Second,
		},
		Redis: RedisConfig{Prefix: "configadmin:submission:"},
		NATS:  NATSConfig{Subject: "configadmin.configuration.updated"},
		Theme: ThemeConfig{Name: "default", Prefix: "/assets"},
	}
}

// Load reads path (optional), then the env files (".env" when none is given,
// missing files are skipped), then the environment, and validates the result.
func Load(path string, envFiles ...string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := decodeYAML(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("config: load %s: %w", file, err)
		}
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func decodeYAML(data []byte, cfg *Config) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	return decoder.Decode(cfg)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks field constraints and the settings each auth mode needs.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			messages := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				messages = append(messages, describe(fe))
			}
			return fmt.Errorf("config: %s", strings.Join(messages, "; "))
		}
		return fmt.Errorf("config: %w", err)
	}
	return c.Auth.validateMode()
}

func describe(fe validator.FieldError) string {
	key := fe.Namespace()
	if _, rest, ok := strings.Cut(key, "."); ok {
		key = rest
	}
	switch fe.Tag() {
	case "required", "required_with":
		return key + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", key, fe.Param())
	case "url":
		return key + " must be a URL"
	default:
		return fmt.Sprintf("%s fails %s %s", key, fe.Tag(), fe.Param())
	}
}

func (a AuthConfig) validateMode() error {
	var missing []string
	need := func(value, key string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, key)
		}
	}
	switch a.Mode {
	case AuthStatic:
		need(a.Token, "auth.token")
	case AuthClientCredentials:
		need(a.TokenURL, "auth.token_url")
		need(a.ClientID, "auth.client_id")
		need(a.ClientSecret, "auth.client_secret")
	case AuthOIDC:
		need(a.Issuer, "auth.issuer")
		need(a.ClientID, "auth.client_id")
		need(a.ClientSecret, "auth.client_secret")
		need(a.RedirectURL, "auth.redirect_url")
		need(a.SessionSecret, "auth.session_secret")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: auth mode %s requires %s", a.Mode, strings.Join(missing, ", "))
	}
	if a.Mode == AuthOIDC && len(a.SessionSecret) < 32 {
		return fmt.Errorf("config: auth.session_secret must be at least 32 bytes")
	}
	return nil
}

// Manifest turns the theme settings into a go-theme manifest with the
// stylesheet registered under assetKey.
func (t ThemeConfig) Manifest(assetKey string) *theme.Manifest {
	manifest := &theme.Manifest{
		Name:    t.Name,
		Version: "1.0.0",
		Tokens:  copyTokens(t.Tokens),
		Assets:  theme.Assets{Prefix: t.Prefix},
	}
	if t.Stylesheet != "" {
		manifest.Assets.Files = map[string]string{assetKey: t.Stylesheet}
	}
	if len(t.Variants) > 0 {
		manifest.Variants = make(map[string]theme.Variant, len(t.Variants))
		for name, tokens := range t.Variants {
			manifest.Variants[name] = theme.Variant{Tokens: copyTokens(tokens)}
		}
	}
	return manifest
}

func copyTokens(tokens map[string]string) map[string]string {
	if len(tokens) == 0 {
		return nil
	}
	out := make(map[string]string, len(tokens))
	for k, v := range tokens {
		out[k] = v
	}
	return out
}

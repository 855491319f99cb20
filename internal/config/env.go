package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type binding struct {
	key string
	set func(*Config, string) error
}

func text(target func(*Config) *string) func(*Config, string) error {
	return func(cfg *Config, value string) error {
		*target(cfg) = value
		return nil
	}
}

func duration(target func(*Config) *time.Duration) func(*Config, string) error {
	return func(cfg *Config, value string) error {
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		*target(cfg) = d
		return nil
	}
}

var bindings = []binding{
	{"ADDR", text(func(c *Config) *string { return &c.Server.Addr })},
	{"PUBLIC_URL", text(func(c *Config) *string { return &c.Server.PublicURL })},
	{"TEMPLATES_DIR", text(func(c *Config) *string { return &c.Server.TemplatesDir })},
	{"SHUTDOWN_TIMEOUT", duration(func(c *Config) *time.Duration { return &c.Server.ShutdownTimeout })},

	{"API_BASE_URL", text(func(c *Config) *string { return &c.API.BaseURL })},
	{"PROFILE", text(func(c *Config) *string { return &c.API.Profile })},
	{"API_CONFIGURATION_PATH", text(func(c *Config) *string { return &c.API.ConfigurationPath })},
	{"API_HISTORY_PATH", text(func(c *Config) *string { return &c.API.HistoryPath })},
	{"API_TIMEOUT", duration(func(c *Config) *time.Duration { return &c.API.Timeout })},

	{"AUTH_MODE", text(func(c *Config) *string { return &c.Auth.Mode })},
	{"AUTH_TOKEN", text(func(c *Config) *string { return &c.Auth.Token })},
	{"OIDC_ISSUER", text(func(c *Config) *string { return &c.Auth.Issuer })},
	{"OIDC_CLIENT_ID", text(func(c *Config) *string { return &c.Auth.ClientID })},
	{"OIDC_CLIENT_SECRET", text(func(c *Config) *string { return &c.Auth.ClientSecret })},
	{"OIDC_REDIRECT_URL", text(func(c *Config) *string { return &c.Auth.RedirectURL })},
	{"OIDC_SCOPES", func(c *Config, value string) error {
		c.Auth.Scopes = splitList(value)
		return nil
	}},
	{"TOKEN_URL", text(func(c *Config) *string { return &c.Auth.TokenURL })},
	{"SESSION_SECRET", text(func(c *Config) *string { return &c.Auth.SessionSecret })},
	{"SESSION_TTL", duration(func(c *Config) *time.Duration { return &c.Auth.SessionTTL })},
	{"REQUIRED_ROLE", text(func(c *Config) *string { return &c.Auth.RequiredRole })},

	{"RESULT_DELAY", duration(func(c *Config) *time.Duration { return &c.Submission.ResultDelay })},
	{"SUBMISSION_TTL", duration(func(c *Config) *time.Duration { return &c.Submission.TTL })},
	{"SUBMISSION_TIMEOUT", duration(func(c *Config) *time.Duration { return &c.Submission.Timeout })},

	{"REDIS_ADDR", text(func(c *Config) *string { return &c.Redis.Addr })},
	{"REDIS_PASSWORD", text(func(c *Config) *string { return &c.Redis.Password })},
	{"REDIS_DB", func(c *Config, value string) error {
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		c.Redis.DB = n
		return nil
	}},

	{"NATS_URL", text(func(c *Config) *string { return &c.NATS.URL })},
	{"NATS_SUBJECT", text(func(c *Config) *string { return &c.NATS.Subject })},

	{"THEME_VARIANT", text(func(c *Config) *string { return &c.Theme.Variant })},
	{"THEME_STYLESHEET", text(func(c *Config) *string { return &c.Theme.Stylesheet })},

	{"OPENAPI_SOURCE", text(func(c *Config) *string { return &c.Form.OpenAPISource })},
}

// EnvKeys lists the supported environment variables.
func EnvKeys() []string {
	keys := make([]string, 0, len(bindings))
	for _, b := range bindings {
		keys = append(keys, EnvPrefix+b.key)
	}
	return keys
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	for _, b := range bindings {
		value, ok := lookup(EnvPrefix + b.key)
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if err := b.set(cfg, value); err != nil {
			return fmt.Errorf("config: %s%s: %w", EnvPrefix, b.key, err)
		}
	}
	return nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

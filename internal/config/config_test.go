package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.Profile != "dev" || cfg.API.BaseURL != "http://localhost:8888/api/v1/config" {
		t.Fatalf("unexpected api defaults: %+v", cfg.API)
	}
	if cfg.Submission.ResultDelay != 2*time.Second {
		t.Fatalf("unexpected result delay %s", cfg.Submission.ResultDelay)
	}
	if cfg.Auth.Mode != AuthNone {
		t.Fatalf("unexpected auth mode %q", cfg.Auth.Mode)
	}
}

func TestLoadFileThenEnvironment(t *testing.T) {
	path := writeFile(t, "configadmin.yaml", `
server:
  addr: ":9090"
api:
  base_url: https://config.example.org/api/v1/config
  profile: int
  timeout: 5s
submission:
  result_delay: 500ms
theme:
  tokens:
    brand: "#004494"
`)
	t.Setenv("CONFIGADMIN_PROFILE", "prod")
	t.Setenv("CONFIGADMIN_OIDC_SCOPES", "openid, roles")

	cfg, err := Load(path, filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":9090" || cfg.API.Timeout != 5*time.Second || cfg.Submission.ResultDelay != 500*time.Millisecond {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.API.Profile != "prod" {
		t.Fatalf("environment must win over the file, got %q", cfg.API.Profile)
	}
	if diff := cmp.Diff([]string{"openid", "roles"}, cfg.Auth.Scopes); diff != "" {
		t.Fatalf("scopes mismatch (-want +got):\n%s", diff)
	}
	if cfg.Submission.TTL != 15*time.Minute {
		t.Fatalf("defaults must survive partial files, got %s", cfg.Submission.TTL)
	}
}

func TestLoadEnvFile(t *testing.T) {
	t.Cleanup(func() { _ = os.Unsetenv("CONFIGADMIN_REDIS_ADDR") })
	envFile := writeFile(t, "test.env", "CONFIGADMIN_REDIS_ADDR=localhost:6379\n")

	cfg, err := Load("", envFile)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Redis.Addr != "localhost:6379" {
		t.Fatalf("expected redis addr from env file, got %q", cfg.Redis.Addr)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeFile(t, "configadmin.yaml", "api:\n  profil: dev\n")
	if _, err := Load(path, filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Fatalf("expected unknown key error")
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("CONFIGADMIN_RESULT_DELAY", "soon")
	_, err := Load("", filepath.Join(t.TempDir(), "missing.env"))
	if err == nil || !strings.Contains(err.Error(), "CONFIGADMIN_RESULT_DELAY") {
		t.Fatalf("expected duration error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown mode", func(c *Config) { c.Auth.Mode = "ldap" }, "auth.mode must be one of"},
		{"bad base url", func(c *Config) { c.API.BaseURL = "not a url" }, "api.base_url must be a URL"},
		{"missing profile", func(c *Config) { c.API.Profile = "" }, "api.profile is required"},
		{"static without token", func(c *Config) { c.Auth.Mode = AuthStatic }, "auth.token"},
		{"oidc without settings", func(c *Config) { c.Auth.Mode = AuthOIDC }, "auth.issuer, auth.client_id"},
		{"short session secret", func(c *Config) {
			c.Auth = AuthConfig{
				Mode: AuthOIDC, Issuer: "https://id.example.org", ClientID: "console", ClientSecret: "s",
				RedirectURL: "https://console.example.org/auth/callback", SessionSecret: "short",
			}
		}, "at least 32 bytes"},
		{"nats without subject", func(c *Config) { c.NATS = NATSConfig{URL: "nats://localhost:4222"} }, "nats.subject is required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Defaults()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}

	if err := Defaults().Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestThemeManifest(t *testing.T) {
	manifest := ThemeConfig{
		Name:       "ops",
		Tokens:     map[string]string{"brand": "#123456"},
		Variants:   map[string]map[string]string{"dark": {"brand": "#000000"}},
		Stylesheet: "ops.css",
		Prefix:     "/assets/themes",
	}.Manifest("admin.stylesheet")

	if manifest.Assets.Files["admin.stylesheet"] != "ops.css" || manifest.Assets.Prefix != "/assets/themes" {
		t.Fatalf("unexpected assets %+v", manifest.Assets)
	}
	if manifest.Variants["dark"].Tokens["brand"] != "#000000" {
		t.Fatalf("unexpected variants %+v", manifest.Variants)
	}
}

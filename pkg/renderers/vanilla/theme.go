package vanilla

import (
	"path"
	"strings"

	theme "github.com/goliatone/go-theme"
)

// ThemeStylesheetKey is the asset key a theme uses to replace admin.css.
const ThemeStylesheetKey = "admin.stylesheet"

// ThemeConfig flattens a manifest and one of its variants into the renderer
// configuration: variant tokens override base tokens, every token becomes a
// "--name" CSS variable and asset keys resolve under the manifest prefix.
func ThemeConfig(manifest *theme.Manifest, variant string) *theme.RendererConfig {
	if manifest == nil {
		return nil
	}
	cfg := &theme.RendererConfig{
		Theme:    manifest.Name,
		Variant:  variant,
		Tokens:   map[string]string{},
		CSSVars:  map[string]string{},
		Partials: map[string]string{},
	}

	files := map[string]string{}
	prefix := manifest.Assets.Prefix
	merge := func(tokens, templates map[string]string, assets theme.Assets) {
		for key, value := range tokens {
			cfg.Tokens[key] = value
		}
		for key, value := range templates {
			cfg.Partials[key] = value
		}
		for key, value := range assets.Files {
			files[key] = value
		}
		if assets.Prefix != "" {
			prefix = assets.Prefix
		}
	}
	merge(manifest.Tokens, manifest.Templates, manifest.Assets)
	if v, ok := manifest.Variants[variant]; ok {
		merge(v.Tokens, v.Templates, v.Assets)
	}

	for key, value := range cfg.Tokens {
		cfg.CSSVars["--"+strings.TrimPrefix(key, "--")] = value
	}
	cfg.AssetURL = func(key string) string {
		file, ok := files[key]
		if !ok || file == "" {
			return ""
		}
		if strings.HasPrefix(file, "/") || strings.Contains(file, "://") {
			return file
		}
		return path.Join("/", prefix, file)
	}
	return cfg
}

func themeContext(cfg *theme.RendererConfig, assetsPrefix string) map[string]any {
	stylesheet := path.Join("/", assetsPrefix, StylesheetName)
	out := map[string]any{"stylesheet": stylesheet}
	if cfg == nil {
		return out
	}
	if cfg.AssetURL != nil {
		if url := cfg.AssetURL(ThemeStylesheetKey); url != "" {
			out["stylesheet"] = url
		}
	}
	if len(cfg.CSSVars) > 0 {
		out["css_vars"] = cfg.CSSVars
	}
	out["name"] = cfg.Theme
	out["variant"] = cfg.Variant
	return out
}

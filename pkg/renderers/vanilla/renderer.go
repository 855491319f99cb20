// Package vanilla renders the console pages and the configuration form as
// server-side HTML with embedded pongo2 templates. The form needs no
// JavaScript: inputs post dotted field paths that render.DecodeForm reads
// back.
package vanilla

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-configadmin/pkg/model"
	"github.com/goliatone/go-configadmin/pkg/render"
	rendertemplate "github.com/goliatone/go-configadmin/pkg/render/template"
	"github.com/goliatone/go-configadmin/pkg/render/template/gotemplate"
)

// Page names accepted by RenderPage.
const (
	PageHome          = "home"
	PageAbout         = "about"
	PageConfiguration = "configuration"
	PageEdit          = "edit"
	PageHistory       = "history"
	PageSubmission    = "submission"
	PageError         = "error"
)

const (
	defaultAction       = "/configuration"
	defaultCancelAction = "/configuration/cancel"
	defaultAssetsPrefix = "/assets"
)

type Option func(*config)

type config struct {
	templateFS       fs.FS
	templateDir      string
	templateRenderer rendertemplate.TemplateRenderer
	theme            *theme.RendererConfig
	assetsPrefix     string
	cancelAction     string
	policy           *bluemonday.Policy
}

// WithTemplatesFS supplies an alternate template bundle via fs.FS.
func WithTemplatesFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.templateFS = files
	}
}

// WithTemplatesDir loads templates from a directory on disk first, falling
// back to the embedded bundle for pages the directory does not override.
func WithTemplatesDir(path string) Option {
	return func(cfg *config) {
		cfg.templateDir = strings.TrimSpace(path)
	}
}

// WithTemplateRenderer injects a custom template renderer implementation.
func WithTemplateRenderer(renderer rendertemplate.TemplateRenderer) Option {
	return func(cfg *config) {
		if renderer != nil {
			cfg.templateRenderer = renderer
		}
	}
}

// WithTheme applies theme tokens as CSS variables and lets the theme supply
// its own stylesheet.
func WithTheme(themeCfg *theme.RendererConfig) Option {
	return func(cfg *config) {
		cfg.theme = themeCfg
	}
}

// WithAssetsPrefix sets the URL prefix the server mounts AssetsFS under.
func WithAssetsPrefix(prefix string) Option {
	return func(cfg *config) {
		if trimmed := strings.TrimSpace(prefix); trimmed != "" {
			cfg.assetsPrefix = trimmed
		}
	}
}

// WithSanitizer replaces the policy applied to history messages.
func WithSanitizer(policy *bluemonday.Policy) Option {
	return func(cfg *config) {
		if policy != nil {
			cfg.policy = policy
		}
	}
}

// Renderer renders the configuration form (render.Renderer) and full pages.
type Renderer struct {
	templates    rendertemplate.TemplateRenderer
	theme        *theme.RendererConfig
	assetsPrefix string
	cancelAction string
}

var _ render.Renderer = (*Renderer)(nil)

// New constructs the renderer applying any provided options.
func New(options ...Option) (*Renderer, error) {
	cfg := config{
		templateFS:   TemplatesFS(),
		assetsPrefix: defaultAssetsPrefix,
		cancelAction: defaultCancelAction,
		policy:       bluemonday.StrictPolicy(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.templateDir != "" {
		if _, err := os.Stat(cfg.templateDir); err != nil {
			return nil, fmt.Errorf("vanilla renderer: templates dir: %w", err)
		}
	}

	renderer := cfg.templateRenderer
	if renderer == nil {
		engineOptions := []gotemplate.Option{
			gotemplate.WithFS(cfg.templateFS),
			gotemplate.WithFilters(map[string]gotemplate.FilterFunc{
				"sanitize": sanitizeFilter(cfg.policy),
			}),
		}
		if cfg.templateDir != "" {
			engineOptions = append(engineOptions, gotemplate.WithBaseDir(cfg.templateDir))
		}
		engine, err := gotemplate.New(engineOptions...)
		if err != nil {
			return nil, fmt.Errorf("vanilla renderer: configure template renderer: %w", err)
		}
		renderer = engine
	}

	return &Renderer{
		templates:    renderer,
		theme:        cfg.theme,
		assetsPrefix: cfg.assetsPrefix,
		cancelAction: cfg.cancelAction,
	}, nil
}

func (r *Renderer) Name() string {
	return "html"
}

func (r *Renderer) ContentType() string {
	return "text/html; charset=utf-8"
}

// Render produces the form fragment: inputs when editable, a definition list
// of values when options.ReadOnly is set.
func (r *Renderer) Render(_ context.Context, form model.FormModel, options render.RenderOptions) ([]byte, error) {
	if r.templates == nil {
		return nil, fmt.Errorf("vanilla renderer: template renderer is nil")
	}

	action := options.Action
	if action == "" {
		action = defaultAction
	}
	result, err := r.templates.RenderTemplate("form", map[string]any{
		"data": map[string]any{
			"read_only":     options.ReadOnly,
			"method":        http.MethodPost,
			"action":        action,
			"cancel_action": r.cancelAction,
			"hidden":        render.SortedHiddenFields(options.Hidden),
			"form_errors":   options.FormErrors,
			"nodes":         buildNodes(form, options),
			"classes":       chromeClasses(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("vanilla renderer: render form: %w", err)
	}
	return []byte(result), nil
}

// Notice is a page level message.
type Notice struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

// Notice levels.
const (
	NoticeInfo    = "info"
	NoticeSuccess = "success"
	NoticeError   = "error"
)

// Page carries the layout data shared by every page plus the page specific
// Data the template reads as "data".
type Page struct {
	Title   string
	Active  string
	Profile string
	User    string
	CSRF    string
	Notices []Notice
	Data    map[string]any
}

// RenderPage writes the named page.
func (r *Renderer) RenderPage(w io.Writer, name string, page Page) error {
	if r.templates == nil {
		return fmt.Errorf("vanilla renderer: template renderer is nil")
	}
	data := page.Data
	if data == nil {
		data = map[string]any{}
	}
	notices := make([]any, 0, len(page.Notices))
	for _, notice := range page.Notices {
		notices = append(notices, map[string]any{"level": notice.Level, "text": notice.Text})
	}
	_, err := r.templates.RenderTemplate(name, map[string]any{
		"page": map[string]any{
			"title":   page.Title,
			"active":  page.Active,
			"profile": page.Profile,
			"user":    page.User,
			"csrf":    page.CSRF,
			"notices": notices,
		},
		"theme": themeContext(r.theme, r.assetsPrefix),
		"data":  data,
	}, w)
	if err != nil {
		return fmt.Errorf("vanilla renderer: render page %q: %w", name, err)
	}
	return nil
}

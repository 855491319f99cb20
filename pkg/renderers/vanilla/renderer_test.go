package vanilla_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-configadmin/pkg/functional"
	"github.com/goliatone/go-configadmin/pkg/render"
	"github.com/goliatone/go-configadmin/pkg/renderers/vanilla"
	"github.com/goliatone/go-configadmin/pkg/testsupport"
)

func newRenderer(t *testing.T, options ...vanilla.Option) *vanilla.Renderer {
	t.Helper()
	renderer, err := vanilla.New(options...)
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	return renderer
}

func sampleValues(t *testing.T) map[string]any {
	t.Helper()
	values, err := functional.ToValues(testsupport.SampleConfiguration())
	if err != nil {
		t.Fatalf("ToValues: %v", err)
	}
	return values
}

func assertContains(t *testing.T, out string, fragments ...string) {
	t.Helper()
	for _, fragment := range fragments {
		if !strings.Contains(out, fragment) {
			t.Fatalf("expected output to contain %q\n%s", fragment, out)
		}
	}
}

func TestRenderEditableForm(t *testing.T) {
	renderer := newRenderer(t)
	if renderer.Name() != "html" {
		t.Fatalf("unexpected name %q", renderer.Name())
	}

	out, err := renderer.Render(context.Background(), testsupport.UpdateForm(t), render.RenderOptions{
		Values:     sampleValues(t),
		Hidden:     render.MergeHiddenFields(nil, render.CSRFToken("csrf-123")),
		Errors:     map[string][]string{"proximityTracing.ble.p0": {"P0 must be at least -127."}},
		FormErrors: []string{"Nothing to update"},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	html := string(out)

	assertContains(t, html,
		`<form method="POST" action="/configuration" class="ca-form" novalidate>`,
		`<input type="hidden" name="_csrf" value="csrf-123">`,
		`name="proximityTracing.ble.p0" value="-66" step="1" min="-127"`,
		`name="proximityTracing.ble.delta" value="39, 27, 23, 21, 20, 15"`,
		`name="proximityTracing.r0" value="0.0071" step="0.0001"`,
		`name="proximityTracing.ble.signalCalibrationPerModel.1.model" value="IPHONE"`,
		`list="ca-proximityTracing-ble-signalCalibrationPerModel-0-model-options"`,
		`<legend>New entry</legend>`,
		`name="proximityTracing.ble.signalCalibrationPerModel.2.model" value=""`,
		`<li>P0 must be at least -127.</li>`,
		`aria-describedby="ca-proximityTracing-ble-p0-errors"`,
		`<li>Nothing to update</li>`,
		`formaction="/configuration/cancel"`,
		`<legend>Account management</legend>`,
	)
	if strings.Index(html, "Account management") > strings.Index(html, "Proximity tracing") {
		t.Fatalf("expected sections in declared order")
	}
}

func TestRenderReadOnly(t *testing.T) {
	renderer := newRenderer(t)
	out, err := renderer.Render(context.Background(), testsupport.UpdateForm(t), render.RenderOptions{
		Values:   sampleValues(t),
		ReadOnly: true,
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	html := string(out)
	if strings.Contains(html, "<input") || strings.Contains(html, "<form") {
		t.Fatalf("read only output must not contain inputs\n%s", html)
	}
	if strings.Contains(html, "New entry") {
		t.Fatalf("read only output must not offer a blank entry")
	}
	assertContains(t, html,
		`<span class="ca-label">Application autonomy</span>`,
		`<span class="ca-value">50</span>`,
		`<legend>#2</legend>`,
	)
}

func TestRenderConfigurationPageWithHistory(t *testing.T) {
	renderer := newRenderer(t)
	form, err := renderer.Render(context.Background(), testsupport.UpdateForm(t), render.RenderOptions{Values: sampleValues(t), ReadOnly: true})
	if err != nil {
		t.Fatalf("render form: %v", err)
	}

	history := vanilla.HistoryView([]functional.HistoryEntry{
		{Message: "Raised <b>p0</b> & delta", Date: functional.Date{Time: time.Date(2020, 6, 1, 14, 5, 0, 0, time.UTC)}},
		{Message: "<script>alert(1)</script>kept"},
	})

	var buf bytes.Buffer
	err = renderer.RenderPage(&buf, vanilla.PageConfiguration, vanilla.Page{
		Title:   "Configuration",
		Active:  "configuration",
		Profile: "dev",
		User:    "Ada",
		CSRF:    "csrf-123",
		Notices: []vanilla.Notice{{Level: vanilla.NoticeError, Text: "History is unavailable."}},
		Data:    map[string]any{"form_html": string(form), "history": history},
	})
	if err != nil {
		t.Fatalf("render page: %v", err)
	}
	html := buf.String()

	assertContains(t, html,
		`<a href="/configuration" class="is-active" aria-current="page">Configuration</a>`,
		`<title>Configuration | Administration fonctionnelle</title>`,
		`<link rel="stylesheet" href="/assets/admin.css">`,
		`<span class="ca-user">Ada</span>`,
		`role="alert">History is unavailable.</p>`,
		`<summary>Monday, June 1, 2020, 2:05 PM</summary>`,
		`<pre>Raised p0 &amp; delta</pre>`,
		`<summary>undefined date</summary>`,
		`<span class="ca-value">50</span>`,
		`href="/configuration/edit">Edit</a>`,
	)
	if strings.Contains(html, "<script>") || strings.Contains(html, "<b>p0</b>") {
		t.Fatalf("history messages must be sanitised\n%s", html)
	}
}

func TestRenderSubmissionStates(t *testing.T) {
	renderer := newRenderer(t)
	renderState := func(state, message string) string {
		var buf bytes.Buffer
		err := renderer.RenderPage(&buf, vanilla.PageSubmission, vanilla.Page{
			Title: "Request submitted",
			Data: map[string]any{
				"submission": map[string]any{
					"state":   state,
					"message": message,
					"changes": []map[string]any{{"key": "proximityTracing.ble.p0", "current": "-66", "new": "-60"}},
				},
				"refresh_seconds": 1,
				"close_url":       "/configuration/edit?submission=abc",
			},
		})
		if err != nil {
			t.Fatalf("render %s: %v", state, err)
		}
		return buf.String()
	}

	waiting := renderState("waiting", "")
	assertContains(t, waiting, `<meta http-equiv="refresh" content="1">`, `<h3>Loading...</h3>`, `<code>proximityTracing.ble.p0</code>`)

	succeeded := renderState("succeeded", functional.ResultUpdated)
	assertContains(t, succeeded, `<p>Configuration updated</p>`, `<a class="ca-button ca-button-success" href="/">OK !</a>`)
	if strings.Contains(succeeded, "http-equiv") {
		t.Fatalf("finished submissions must not refresh")
	}

	failed := renderState("failed", functional.ResultUpdateFailed)
	assertContains(t, failed, `<h3>Failed !</h3>`, `<p>Configuration update failed</p>`, `href="/configuration/edit?submission=abc">Close</a>`)
}

func TestThemeConfigDrivesLayout(t *testing.T) {
	manifest := &theme.Manifest{
		Name:    "ops",
		Version: "1.0.0",
		Tokens:  map[string]string{"brand": "#123456", "accent": "teal"},
		Assets: theme.Assets{
			Prefix: "/assets/themes/ops",
			Files:  map[string]string{vanilla.ThemeStylesheetKey: "ops.css"},
		},
		Variants: map[string]theme.Variant{
			"dark": {Tokens: map[string]string{"brand": "#000000"}},
		},
	}
	cfg := vanilla.ThemeConfig(manifest, "dark")
	if cfg.CSSVars["--brand"] != "#000000" || cfg.CSSVars["--accent"] != "teal" {
		t.Fatalf("unexpected css vars %v", cfg.CSSVars)
	}
	if got := cfg.AssetURL(vanilla.ThemeStylesheetKey); got != "/assets/themes/ops/ops.css" {
		t.Fatalf("unexpected stylesheet url %q", got)
	}
	if cfg.AssetURL("missing") != "" {
		t.Fatalf("expected empty url for unknown asset")
	}

	renderer := newRenderer(t, vanilla.WithTheme(cfg))
	var buf bytes.Buffer
	if err := renderer.RenderPage(&buf, vanilla.PageHome, vanilla.Page{Title: "Home", Active: "home", Profile: "prod"}); err != nil {
		t.Fatalf("render home: %v", err)
	}
	assertContains(t, buf.String(),
		`style="--accent: teal; --brand: #000000;"`,
		`href="/assets/themes/ops/ops.css"`,
		`Profile <strong>prod</strong>`,
	)
	if strings.Contains(buf.String(), "Log out") {
		t.Fatalf("anonymous pages must not show the logout form")
	}
}

func TestRenderErrorPage(t *testing.T) {
	renderer := newRenderer(t)
	var buf bytes.Buffer
	err := renderer.RenderPage(&buf, vanilla.PageError, vanilla.Page{
		Title: "Error",
		Data:  map[string]any{"status": 502, "status_text": "Bad Gateway", "message": "The configuration API is unavailable."},
	})
	if err != nil {
		t.Fatalf("render error page: %v", err)
	}
	assertContains(t, buf.String(), `<h1>502 Bad Gateway</h1>`, `The configuration API is unavailable.`)
}

func TestAssetsFSServesStylesheet(t *testing.T) {
	f, err := vanilla.AssetsFS().Open(vanilla.StylesheetName)
	if err != nil {
		t.Fatalf("open stylesheet: %v", err)
	}
	_ = f.Close()
}

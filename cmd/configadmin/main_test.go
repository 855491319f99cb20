package main

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-configadmin/pkg/functional"
	"github.com/goliatone/go-configadmin/pkg/renderers/tui"
	"github.com/goliatone/go-configadmin/pkg/testsupport"
)

// answers accepts every default except the scripted inputs and confirms,
// which are used once each.
type answers struct {
	inputs   map[string]string
	confirms map[string]bool
}

func (d *answers) Input(_ context.Context, cfg tui.InputConfig) (string, error) {
	if answer, ok := d.inputs[cfg.Message]; ok {
		delete(d.inputs, cfg.Message)
		return answer, nil
	}
	return cfg.Default, nil
}

func (d *answers) Confirm(_ context.Context, cfg tui.ConfirmConfig) (bool, error) {
	if answer, ok := d.confirms[cfg.Message]; ok {
		delete(d.confirms, cfg.Message)
		return answer, nil
	}
	return cfg.Default, nil
}

func (d *answers) Select(_ context.Context, cfg tui.SelectConfig) (int, error) {
	return cfg.DefaultIndex, nil
}

func (d *answers) Info(context.Context, string) error { return nil }

type cli struct {
	api    *testsupport.FakeConfigAPI
	dir    string
	config string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	api := testsupport.NewFakeConfigAPI(t, "dev", testsupport.SampleConfiguration())
	dir := t.TempDir()
	path := filepath.Join(dir, "configadmin.yaml")
	settings := "api:\n  base_url: " + api.URL() + "\n  profile: dev\n"
	if err := os.WriteFile(path, []byte(settings), 0o644); err != nil {
		t.Fatalf("write settings: %v", err)
	}
	return &cli{api: api, dir: dir, config: path}
}

func (c *cli) run(t *testing.T, prompts tui.PromptDriver, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	a := newApp(&out, &errOut)
	a.prompts = prompts
	cmd := newRootCmd(a)
	cmd.SetArgs(append([]string{"--config", c.config}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (c *cli) writeDocument(t *testing.T, name string, cfg functional.FunctionalConfiguration) string {
	t.Helper()
	var (
		data []byte
		err  error
	)
	if strings.HasSuffix(name, ".json") {
		data, err = functional.ToJSON(cfg)
	} else {
		data, err = functional.ToYAML(cfg)
	}
	if err != nil {
		t.Fatalf("encode %s: %v", name, err)
	}
	path := filepath.Join(c.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestShowFormats(t *testing.T) {
	c := newCLI(t)

	for _, format := range []string{"yaml", "json"} {
		out, err := c.run(t, nil, "show", "--format", format)
		if err != nil {
			t.Fatalf("show %s: %v", format, err)
		}
		got, err := functional.ParseDocument([]byte(out), format)
		if err != nil {
			t.Fatalf("parse %s output: %v\n%s", format, err, out)
		}
		if diff := cmp.Diff(testsupport.SampleConfiguration(), got); diff != "" {
			t.Fatalf("show %s mismatch (-want +got):\n%s", format, diff)
		}
	}

	out, err := c.run(t, nil, "show")
	if err != nil {
		t.Fatalf("show text: %v", err)
	}
	for _, want := range []string{"P0: -66", "Application autonomy: 50"} {
		if !strings.Contains(out, want) {
			t.Fatalf("text output missing %q:\n%s", want, out)
		}
	}

	if _, err := c.run(t, nil, "show", "--format", "xml"); err == nil {
		t.Fatalf("expected unknown format error")
	}
}

func TestHistory(t *testing.T) {
	c := newCLI(t)

	out, err := c.run(t, nil, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, "No changes recorded.") {
		t.Fatalf("empty history output: %q", out)
	}

	date, err := functional.ParseDate("2020-05-02T10:30:00")
	if err != nil {
		t.Fatalf("parse date: %v", err)
	}
	c.api.SetHistory(functional.HistoryEntry{Message: "p0: -70 -> -66\nappAutonomy: 40 -> 50", Date: date})
	out, err = c.run(t, nil, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	want := functional.FormatDate(date) + "\n    p0: -70 -> -66\n    appAutonomy: 40 -> 50\n"
	if out != want {
		t.Fatalf("history output mismatch (-want +got):\n%s", cmp.Diff(want, out))
	}

	c.api.FailHistory(http.StatusInternalServerError)
	if _, err := c.run(t, nil, "history"); err == nil {
		t.Fatalf("expected history failure")
	}
}

func TestValidate(t *testing.T) {
	c := newCLI(t)

	good := c.writeDocument(t, "good.yaml", testsupport.SampleConfiguration())
	out, err := c.run(t, nil, "validate", good)
	if err != nil {
		t.Fatalf("validate good: %v\n%s", err, out)
	}
	if !strings.Contains(out, "is valid.") {
		t.Fatalf("unexpected output: %q", out)
	}

	bad := testsupport.SampleConfiguration()
	bad.ProximityTracing.Ble.P0 = functional.Int(-200)
	path := c.writeDocument(t, "bad.json", bad)
	out, err = c.run(t, nil, "validate", path)
	if err == nil {
		t.Fatalf("expected validation failure")
	}
	if !strings.Contains(out, "proximityTracing.ble.p0: ") {
		t.Fatalf("issue not listed:\n%s", out)
	}

	if _, err := c.run(t, nil, "validate", filepath.Join(c.dir, "missing.yaml")); err == nil {
		t.Fatalf("expected missing file error")
	}
}

func TestApply(t *testing.T) {
	c := newCLI(t)
	next := testsupport.SampleConfiguration()
	next.ProximityTracing.Ble.P0 = functional.Int(-60)
	path := c.writeDocument(t, "next.yaml", next)

	out, err := c.run(t, nil, "apply", "--dry-run", path)
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if !strings.Contains(out, "proximityTracing.ble.p0") || !strings.Contains(out, "Dry run, nothing sent.") {
		t.Fatalf("dry run output:\n%s", out)
	}
	if got := c.api.Count(http.MethodPut); got != 0 {
		t.Fatalf("dry run sent %d PUT(s)", got)
	}

	out, err = c.run(t, nil, "apply", path)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !strings.Contains(out, functional.ResultUpdated) {
		t.Fatalf("apply output:\n%s", out)
	}
	if got := *c.api.Configuration().ProximityTracing.Ble.P0; got != -60 {
		t.Fatalf("stored p0 = %d", got)
	}

	out, err = c.run(t, nil, "apply", path)
	if err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if !strings.Contains(out, functional.ResultNothingToUpdate) {
		t.Fatalf("second apply output:\n%s", out)
	}
	if got := c.api.Count(http.MethodPut); got != 1 {
		t.Fatalf("expected 1 PUT, got %d", got)
	}
}

func TestApplyReportsRejectedUpdate(t *testing.T) {
	c := newCLI(t)
	c.api.RespondToPut(http.StatusBadRequest, functional.ResultUpdateFailed)
	next := testsupport.SampleConfiguration()
	next.ProximityTracing.Ble.P0 = functional.Int(-60)

	_, err := c.run(t, nil, "apply", c.writeDocument(t, "next.json", next))
	if err == nil || err.Error() != functional.ResultUpdateFailed {
		t.Fatalf("expected %q, got %v", functional.ResultUpdateFailed, err)
	}
}

func TestEditSendsConfirmedChanges(t *testing.T) {
	c := newCLI(t)
	prompts := &answers{
		inputs:   map[string]string{"P0": "-60"},
		confirms: map[string]bool{"Send 1 change(s) to profile dev?": true},
	}

	out, err := c.run(t, prompts, "edit")
	if err != nil {
		t.Fatalf("edit: %v\n%s", err, out)
	}
	if !strings.Contains(out, "proximityTracing.ble.p0") || !strings.Contains(out, functional.ResultUpdated) {
		t.Fatalf("edit output:\n%s", out)
	}
	if got := *c.api.Configuration().ProximityTracing.Ble.P0; got != -60 {
		t.Fatalf("stored p0 = %d", got)
	}
}

func TestEditWithoutConfirmationSendsNothing(t *testing.T) {
	c := newCLI(t)
	prompts := &answers{inputs: map[string]string{"P0": "-60"}}

	out, err := c.run(t, prompts, "edit")
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if !strings.Contains(out, "Nothing sent.") {
		t.Fatalf("edit output:\n%s", out)
	}
	if got := c.api.Count(http.MethodPut); got != 0 {
		t.Fatalf("expected no PUT, got %d", got)
	}
}

func TestEditWithoutChanges(t *testing.T) {
	c := newCLI(t)

	out, err := c.run(t, &answers{}, "edit")
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if !strings.Contains(out, functional.ResultNothingToUpdate) {
		t.Fatalf("edit output:\n%s", out)
	}
}

func TestOIDCModeNeedsToken(t *testing.T) {
	c := newCLI(t)
	settings := "api:\n  base_url: " + c.api.URL() + "\n  profile: dev\nauth:\n  mode: oidc\n  issuer: https://issuer.example\n  client_id: console\n  client_secret: secret\n  redirect_url: https://console.example/auth/callback\n  session_secret: 0123456789abcdef0123456789abcdef\n"
	if err := os.WriteFile(c.config, []byte(settings), 0o644); err != nil {
		t.Fatalf("write settings: %v", err)
	}

	_, err := c.run(t, nil, "show")
	if err == nil || !strings.Contains(err.Error(), "auth.token") {
		t.Fatalf("expected auth.token error, got %v", err)
	}
}

package openapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-configadmin/pkg/model"
)

func loadUpdateForm(t *testing.T, options ...BuilderOption) model.FormModel {
	t.Helper()
	form, err := LoadForm(context.Background(), NewLoader(), DefaultSource(), UpdateOperationID, options...)
	if err != nil {
		t.Fatalf("LoadForm: %v", err)
	}
	return form
}

func TestDefaultDocumentOperations(t *testing.T) {
	ops, err := NewParser().Operations(context.Background(), DefaultDocument())
	if err != nil {
		t.Fatalf("Operations: %v", err)
	}
	want := map[string]string{
		"getConfiguration":        "GET /{profile}",
		"updateConfiguration":     "PUT /{profile}",
		"getConfigurationHistory": "GET /history/{profile}",
	}
	got := map[string]string{}
	for id, op := range ops {
		got[id] = op.Method + " " + op.Path
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("operations mismatch (-want +got):\n%s", diff)
	}
	if !ops["updateConfiguration"].HasResponse("500") {
		t.Fatalf("expected update failure response to be recorded")
	}
}

func TestBuildOrdersTopLevelSections(t *testing.T) {
	form := loadUpdateForm(t)

	if form.Method != "PUT" || form.Endpoint != "/{profile}" {
		t.Fatalf("unexpected operation binding %s %s", form.Method, form.Endpoint)
	}
	var names []string
	for _, field := range form.Fields {
		names = append(names, field.Name)
	}
	if diff := cmp.Diff([]string{"accountManagement", "proximityTracing"}, names); diff != "" {
		t.Fatalf("top level order mismatch (-want +got):\n%s", diff)
	}

	pt, ok := form.Lookup("proximityTracing")
	if !ok {
		t.Fatalf("proximityTracing missing")
	}
	names = nil
	for _, field := range pt.Nested {
		names = append(names, field.Name)
	}
	if diff := cmp.Diff([]string{"app", "ble", "riskThreshold", "rssi1m", "mu0", "r0"}, names); diff != "" {
		t.Fatalf("proximity tracing order mismatch (-want +got):\n%s", diff)
	}
	if pt.Metadata[model.MetadataSection] != "Proximity tracing" {
		t.Fatalf("expected section metadata, got %v", pt.Metadata)
	}
}

func TestBuildNumericRulesAndCrossField(t *testing.T) {
	form := loadUpdateForm(t)

	p0, ok := form.Lookup("proximityTracing.ble.p0")
	if !ok {
		t.Fatalf("p0 missing")
	}
	want := []model.ValidationRule{
		{Kind: model.ValidationRuleMin, Params: map[string]string{"value": "-127"}},
		{Kind: model.ValidationRuleMax, Params: map[string]string{"value": "0"}},
	}
	if diff := cmp.Diff(want, p0.Validations); diff != "" {
		t.Fatalf("p0 rules mismatch (-want +got):\n%s", diff)
	}
	if !p0.Required || p0.Type != model.FieldTypeInteger || p0.Label != "P0" {
		t.Fatalf("unexpected p0 field %+v", p0)
	}

	low, _ := form.Lookup("proximityTracing.ble.riskSeuilLow")
	rule, ok := low.Rule(model.ValidationRuleLTE)
	if !ok || rule.Params["field"] != "riskSeuilMax" {
		t.Fatalf("expected lte rule on riskSeuilLow, got %+v", low.Validations)
	}
	if low.Metadata[model.MetadataInputStep] != "0.1" {
		t.Fatalf("expected step metadata, got %v", low.Metadata)
	}

	twin, _ := form.Lookup("proximityTracing.ble.twin")
	if twin.Required {
		t.Fatalf("twin must be optional")
	}
}

func TestBuildCalibrationArray(t *testing.T) {
	form := loadUpdateForm(t)

	model0, ok := form.Lookup("proximityTracing.ble.signalCalibrationPerModel.0.model")
	if !ok {
		t.Fatalf("calibration model field missing")
	}
	if diff := cmp.Diff([]any{"ANDROID", "IPHONE"}, model0.Enum); diff != "" {
		t.Fatalf("enum mismatch (-want +got):\n%s", diff)
	}
	wantMeta := map[string]string{
		model.MetadataEnumMessage:     "Model name must be Android or Iphone.",
		model.MetadataCaseInsensitive: "true",
	}
	if diff := cmp.Diff(wantMeta, model0.Metadata); diff != "" {
		t.Fatalf("metadata mismatch (-want +got):\n%s", diff)
	}

	delta, _ := form.Lookup("proximityTracing.ble.delta")
	if delta.Type != model.FieldTypeArray || delta.Items == nil || delta.Items.Type != model.FieldTypeInteger {
		t.Fatalf("unexpected delta field %+v", delta)
	}
}

func TestBuildAppliesLabelOverrides(t *testing.T) {
	form := loadUpdateForm(t, WithDecorators(model.LabelOverrides(map[string]string{
		"proximityTracing.ble.p0":                               "Reference power",
		"proximityTracing.ble.signalCalibrationPerModel.model": "Device model",
	})))

	p0, _ := form.Lookup("proximityTracing.ble.p0")
	if p0.Label != "Reference power" {
		t.Fatalf("expected overridden label, got %q", p0.Label)
	}
	modelField, _ := form.Lookup("proximityTracing.ble.signalCalibrationPerModel.0.model")
	if modelField.Label != "Device model" {
		t.Fatalf("expected overridden item label, got %q", modelField.Label)
	}
}

func TestLoadFormUnknownOperation(t *testing.T) {
	_, err := LoadForm(context.Background(), nil, nil, "deleteEverything")
	if err == nil {
		t.Fatalf("expected error for unknown operation")
	}
}

const minimalDocument = `openapi: 3.0.3
info: {title: t, version: "1"}
paths:
  /things:
    post:
      operationId: createThing
      requestBody:
        content:
          application/json:
            schema:
              type: object
              required: [name]
              properties:
                name: {type: string, minLength: 2, maxLength: 8, pattern: "^[a-z]+$"}
                zeta: {type: boolean}
      responses:
        "201": {description: created}
`

func TestLoaderSources(t *testing.T) {
	ctx := context.Background()

	dir := t.TempDir()
	path := filepath.Join(dir, "api.yaml")
	if err := os.WriteFile(path, []byte(minimalDocument), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(minimalDocument))
	}))
	defer server.Close()

	urlSource, err := ParseSource(server.URL + "/api.yaml")
	if err != nil {
		t.Fatalf("ParseSource: %v", err)
	}
	fileSource, err := ParseSource(path)
	if err != nil {
		t.Fatalf("ParseSource: %v", err)
	}

	cases := map[string]struct {
		loader *Loader
		src    Source
	}{
		"file": {loader: NewLoader(), src: fileSource},
		"fs":   {loader: NewLoader(WithFileSystem(fstest.MapFS{"api.yaml": {Data: []byte(minimalDocument)}})), src: SourceFromFS("api.yaml")},
		"url":  {loader: NewLoader(WithHTTPClient(server.Client())), src: urlSource},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			form, err := LoadForm(ctx, tc.loader, tc.src, "createThing")
			if err != nil {
				t.Fatalf("LoadForm: %v", err)
			}
			want := []model.Field{
				{
					Name: "name", Type: model.FieldTypeString, Required: true, Label: "Name",
					Validations: []model.ValidationRule{
						{Kind: model.ValidationRuleMinLength, Params: map[string]string{"value": "2"}},
						{Kind: model.ValidationRuleMaxLength, Params: map[string]string{"value": "8"}},
						{Kind: model.ValidationRulePattern, Params: map[string]string{"pattern": "^[a-z]+$"}},
					},
				},
				{Name: "zeta", Type: model.FieldTypeBoolean, Label: "Zeta"},
			}
			if diff := cmp.Diff(want, form.Fields); diff != "" {
				t.Fatalf("fields mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoaderRejectsURLWithoutClient(t *testing.T) {
	src, err := SourceFromURL("https://example.com/api.yaml")
	if err != nil {
		t.Fatalf("SourceFromURL: %v", err)
	}
	if _, err := NewLoader().Load(context.Background(), src); err == nil {
		t.Fatalf("expected http disabled error")
	}
}

package render_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/goliatone/go-configadmin/pkg/model"
	"github.com/goliatone/go-configadmin/pkg/render"
)

func calibrationForm() model.FormModel {
	return model.FormModel{
		Fields: []model.Field{
			{
				Name: "accountManagement", Type: model.FieldTypeObject, Label: "Account management",
				Nested: []model.Field{
					{Name: "appAutonomy", Type: model.FieldTypeInteger, Label: "Application autonomy"},
				},
			},
			{
				Name: "ble", Type: model.FieldTypeObject, Label: "BLE",
				Nested: []model.Field{
					{Name: "p0", Type: model.FieldTypeInteger, Label: "P0"},
					{
						Name: "delta", Type: model.FieldTypeArray, Label: "Delta",
						Items: &model.Field{Name: "delta", Type: model.FieldTypeInteger, Label: "Delta"},
					},
					{
						Name: "signalCalibrationPerModel", Type: model.FieldTypeArray, Label: "Signal calibration",
						Items: &model.Field{
							Name: "signalCalibrationPerModel", Type: model.FieldTypeObject,
							Nested: []model.Field{
								{Name: "model", Type: model.FieldTypeString, Label: "Model name"},
								{Name: "emissionGain", Type: model.FieldTypeInteger, Label: "Emission gain"},
							},
						},
					},
					{Name: "enabled", Type: model.FieldTypeBoolean, Label: "Enabled"},
				},
			},
		},
	}
}

func TestMapErrorPayloadPaths(t *testing.T) {
	payload := map[string][]string{
		"/body/accountManagement/appAutonomy":    {"Autonomy too low"},
		"ble.signalCalibrationPerModel[1].model": {"Unknown model"},
		"configuration.ble.p0":                   {"P0 out of range", " P0 out of range "},
		"$.ble.delta[02]":                        {"Delta entry invalid"},
		"ble.unknownField":                       {"Falls back to parent"},
		"non_field_errors":                       {"Form level error"},
		"request/somethingElse":                  {"Unmapped"},
		"":                                       {"Configuration update failed"},
	}

	mapped := render.MapErrorPayload(calibrationForm(), payload)

	wantFields := map[string][]string{
		"accountManagement.appAutonomy":         {"Autonomy too low"},
		"ble.signalCalibrationPerModel.1.model": {"Unknown model"},
		"ble.p0":                                {"P0 out of range"},
		"ble.delta.2":                           {"Delta entry invalid"},
		"ble":                                   {"Falls back to parent"},
	}
	if diff := cmp.Diff(wantFields, mapped.Fields); diff != "" {
		t.Fatalf("field errors mismatch (-want +got):\n%s", diff)
	}

	wantForm := []string{"Configuration update failed", "Form level error", "Unmapped"}
	if diff := cmp.Diff(wantForm, mapped.Form, cmpopts.SortSlices(func(a, b string) bool { return a < b })); diff != "" {
		t.Fatalf("form errors mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeErrorPayload(t *testing.T) {
	cases := map[string]struct {
		body string
		want map[string][]string
	}{
		"plain text": {
			body: "Configuration update failed",
			want: map[string][]string{"": {"Configuration update failed"}},
		},
		"json string": {
			body: `"Configuration update failed"`,
			want: map[string][]string{"": {"Configuration update failed"}},
		},
		"spring": {
			body: `{"status":400,"error":"Bad Request","message":"Validation failed","errors":[{"field":"ble.p0","defaultMessage":"must be less than or equal to 0"}]}`,
			want: map[string][]string{
				"":       {"Validation failed"},
				"ble.p0": {"must be less than or equal to 0"},
			},
		},
		"path map": {
			body: `{"errors":{"ble.p0":["too high"]}}`,
			want: map[string][]string{"ble.p0": {"too high"}},
		},
		"empty": {body: "  ", want: nil},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if diff := cmp.Diff(tc.want, render.DecodeErrorPayload([]byte(tc.body))); diff != "" {
				t.Fatalf("payload mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMergeFormErrors(t *testing.T) {
	merged := render.MergeFormErrors([]string{" First ", "Second"}, "Second", "third", "  ")
	want := []string{"First", "Second", "third"}

	if diff := cmp.Diff(want, merged); diff != "" {
		t.Fatalf("merged form errors mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeFieldErrors(t *testing.T) {
	merged := render.MergeFieldErrors(
		map[string][]string{"ble.p0": {"Please provide a valid P0."}},
		map[string][]string{"ble.p0": {"Please provide a valid P0."}, "ble.b": {" "}},
		nil,
	)
	want := map[string][]string{"ble.p0": {"Please provide a valid P0."}}
	if diff := cmp.Diff(want, merged); diff != "" {
		t.Fatalf("merged field errors mismatch (-want +got):\n%s", diff)
	}
	if render.MergeFieldErrors() != nil {
		t.Fatalf("expected nil for no input")
	}
}

package functional

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func sampleConfiguration() FunctionalConfiguration {
	return FunctionalConfiguration{
		AccountManagement: &AccountManagement{
			AppAutonomy:             Int(50),
			MaxSimultaneousRegister: Int(3000),
		},
		ProximityTracing: &ProximityTracing{
			App: &App{CheckStatusFrequency: Int(24), DataRetentionPeriod: Int(14)},
			Ble: &Ble{
				SimultaneousContacts: Int(10),
				SignalCalibrationPerModel: []SignalCalibration{
					{Model: "ANDROID", EmissionGain: Int(-5), ReceptionGain: Int(2)},
				},
				Delta:            []int{39, 27, 23},
				P0:               Int(-66),
				RiskThresholdLow: Float(0.2),
				RiskThresholdMax: Float(0.8),
			},
			RiskThreshold: Float(15.5),
			R0:            Float(0.0071),
		},
	}
}

func TestToValuesKeepsIntegersAndOmitsAbsentFields(t *testing.T) {
	values, err := ToValues(sampleConfiguration())
	if err != nil {
		t.Fatalf("ToValues: %v", err)
	}

	pt := values["proximityTracing"].(map[string]any)
	ble := pt["ble"].(map[string]any)
	if got := ble["p0"]; got != json.Number("-66") {
		t.Fatalf("expected p0 json.Number(-66), got %#v", got)
	}
	if _, ok := ble["twin"]; ok {
		t.Fatalf("absent twin must not appear in values")
	}
	if _, ok := pt["mu0"]; ok {
		t.Fatalf("absent mu0 must not appear in values")
	}
}

func TestFromValuesRoundTripsSample(t *testing.T) {
	original := sampleConfiguration()
	values, err := ToValues(original)
	if err != nil {
		t.Fatalf("ToValues: %v", err)
	}
	restored, err := FromValues(values)
	if err != nil {
		t.Fatalf("FromValues: %v", err)
	}
	if diff := cmp.Diff(original, restored); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestFromValuesRejectsUnknownKeys(t *testing.T) {
	_, err := FromValues(map[string]any{"accountManagement": map[string]any{"bogus": 1}})
	if err == nil {
		t.Fatalf("expected unknown key error")
	}
}

func TestDiffReportsChangedLeavesSorted(t *testing.T) {
	current := sampleConfiguration()
	next := sampleConfiguration()
	next.ProximityTracing.Ble.P0 = Int(-70)
	next.ProximityTracing.Ble.Delta = []int{40, 27, 23}
	next.ProximityTracing.Ble.SignalCalibrationPerModel[0].Model = "IPHONE"
	next.ProximityTracing.Mu0 = Int(2)

	changes, err := Diff(current, next)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}

	want := []Change{
		{Key: "proximityTracing.ble.delta", CurrentValue: []any{int64(39), int64(27), int64(23)}, NewValue: []any{int64(40), int64(27), int64(23)}},
		{Key: "proximityTracing.ble.p0", CurrentValue: int64(-66), NewValue: int64(-70)},
		{Key: "proximityTracing.ble.signalCalibrationPerModel.0.model", CurrentValue: "ANDROID", NewValue: "IPHONE"},
		{Key: "proximityTracing.mu0", CurrentValue: nil, NewValue: int64(2)},
	}
	if diff := cmp.Diff(want, changes); diff != "" {
		t.Fatalf("changes mismatch (-want +got):\n%s", diff)
	}
}

func TestDiffEmptyWhenUnchanged(t *testing.T) {
	changes, err := Diff(sampleConfiguration(), sampleConfiguration())
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if len(changes) != 0 {
		t.Fatalf("expected no changes, got %+v", changes)
	}
}

func TestParseDocumentDetectsFormat(t *testing.T) {
	yamlDoc, err := ToYAML(sampleConfiguration())
	if err != nil {
		t.Fatalf("ToYAML: %v", err)
	}
	if !strings.Contains(string(yamlDoc), "riskSeuilLow: 0.2") {
		t.Fatalf("expected wire names in yaml, got:\n%s", yamlDoc)
	}

	fromYAML, err := ParseDocument(yamlDoc, "")
	if err != nil {
		t.Fatalf("ParseDocument yaml: %v", err)
	}
	if diff := cmp.Diff(sampleConfiguration(), fromYAML); diff != "" {
		t.Fatalf("yaml mismatch (-want +got):\n%s", diff)
	}

	fromJSON, err := ParseDocument([]byte(`{"accountManagement":{"appAutonomy":7}}`), "")
	if err != nil {
		t.Fatalf("ParseDocument json: %v", err)
	}
	if got := *fromJSON.AccountManagement.AppAutonomy; got != 7 {
		t.Fatalf("expected appAutonomy 7, got %d", got)
	}
}

func TestParseDocumentErrors(t *testing.T) {
	cases := map[string]struct {
		data   string
		format string
	}{
		"empty":          {data: "  ", format: ""},
		"unknown format": {data: "{}", format: "toml"},
		"unknown key":    {data: "proximityTracing:\n  nope: 1\n", format: "yaml"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseDocument([]byte(tc.data), tc.format); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestHistoryDateDecoding(t *testing.T) {
	payload := `[
		{"message":"iso","date":"2020-06-01T14:05:09.123"},
		{"message":"array","date":[2020,6,1,14,5]},
		{"message":"zoned","date":"2020-06-01T14:05:09Z"},
		{"message":"missing"}
	]`
	var entries []HistoryEntry
	if err := json.Unmarshal([]byte(payload), &entries); err != nil {
		t.Fatalf("decode history: %v", err)
	}

	want := []string{
		"Monday, June 1, 2020, 2:05 PM",
		"Monday, June 1, 2020, 2:05 PM",
		"Monday, June 1, 2020, 2:05 PM",
		UndefinedDate,
	}
	var got []string
	for _, entry := range entries {
		got = append(got, FormatDate(entry.Date))
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("formatted dates mismatch (-want +got):\n%s", diff)
	}
}

func TestParseDateRejectsGarbage(t *testing.T) {
	if _, err := ParseDate("yesterday"); err == nil {
		t.Fatalf("expected error")
	}
	d, err := ParseDate("2021-01-02")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if !d.Equal(time.Date(2021, 1, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date %v", d.Time)
	}
}

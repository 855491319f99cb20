package testsupport

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/goliatone/go-configadmin/pkg/functional"
	"github.com/goliatone/go-configadmin/pkg/model"
	"github.com/goliatone/go-configadmin/pkg/openapi"
)

// SampleConfiguration is a complete, valid functional configuration used by
// handler and CLI tests.
func SampleConfiguration() functional.FunctionalConfiguration {
	return functional.FunctionalConfiguration{
		AccountManagement: &functional.AccountManagement{
			AppAutonomy:             functional.Int(50),
			MaxSimultaneousRegister: functional.Int(3000),
		},
		ProximityTracing: &functional.ProximityTracing{
			App: &functional.App{CheckStatusFrequency: functional.Int(24), DataRetentionPeriod: functional.Int(14)},
			Ble: &functional.Ble{
				SimultaneousContacts: functional.Int(10),
				SignalCalibrationPerModel: []functional.SignalCalibration{
					{Model: "ANDROID", EmissionGain: functional.Int(-5), ReceptionGain: functional.Int(2)},
					{Model: "IPHONE", EmissionGain: functional.Int(3), ReceptionGain: functional.Int(-1)},
				},
				TWin:             functional.Int(120),
				TOverlap:         functional.Int(60),
				Delta:            []int{39, 27, 23, 21, 20, 15},
				P0:               functional.Int(-66),
				MinSampling:      functional.Int(2),
				A:                functional.Int(10),
				B:                functional.Int(11),
				MaxSampleSize:    functional.Int(1000),
				RiskThresholdLow: functional.Float(0.2),
				RiskThresholdMax: functional.Float(0.8),
				RiskMin:          functional.Int(0),
				RiskMax:          functional.Int(1),
				DThreshold:       functional.Int(15),
				RSSIThreshold:    functional.Int(-35),
				G0Tx:             functional.Int(-17),
				TagPeaks:         functional.Int(2),
				TagCalib:         functional.Int(3),
			},
			RiskThreshold: functional.Float(15.5),
			RSSI1m:        functional.Int(-40),
			Mu0:           functional.Int(9),
			R0:            functional.Float(0.0071),
		},
	}
}

// UpdateForm builds the form model of the embedded API description.
func UpdateForm(t *testing.T) model.FormModel {
	t.Helper()
	form, err := openapi.LoadForm(context.Background(), nil, nil, openapi.UpdateOperationID)
	if err != nil {
		t.Fatalf("load update form: %v", err)
	}
	return form
}

// CaptureTemplateOutput executes a render function that writes to an io.Writer,
// returning both the string result and the writer contents.
func CaptureTemplateOutput(t *testing.T, render func(io.Writer) (string, error)) (string, string) {
	t.Helper()

	var buf bytes.Buffer
	out, err := render(&buf)
	if err != nil {
		t.Fatalf("render template: %v", err)
	}

	return out, buf.String()
}

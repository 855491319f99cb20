package render

// RenderOptions describe per-request data renderers use to customise their
// output without mutating the form model.
type RenderOptions struct {
	// Method overrides the HTTP method declared by the form model. HTML
	// renderers post with POST and never emit PUT.
	Method string
	// Action is the URL the form posts to.
	Action string
	// Values pre-populates controls. It holds the nested map produced by
	// functional.ToValues or DecodeForm.
	Values map[string]any
	// Errors surfaces validation feedback keyed by dotted field path
	// ("proximityTracing.ble.signalCalibrationPerModel.0.model").
	Errors map[string][]string
	// FormErrors are messages not bound to a field.
	FormErrors []string
	// Hidden fields emitted inside the form, such as the CSRF token.
	Hidden map[string]string
	// ReadOnly renders values as text instead of inputs.
	ReadOnly bool
}

package model

import "strings"

// Decorator enriches a form model with additional metadata after the canonical
// OpenAPI-derived structure has been built.
type Decorator interface {
	Decorate(*FormModel) error
}

// DecoratorFunc adapts a function into a Decorator.
type DecoratorFunc func(*FormModel) error

// Decorate calls the underlying function.
func (fn DecoratorFunc) Decorate(form *FormModel) error {
	return fn(form)
}

// LabelOverrides returns a decorator replacing field labels keyed by dotted
// path. Paths inside arrays of objects use the item field path without an
// index ("proximityTracing.ble.signalCalibrationPerModel.model").
func LabelOverrides(labels map[string]string) Decorator {
	return DecoratorFunc(func(form *FormModel) error {
		if form == nil || len(labels) == 0 {
			return nil
		}
		applyLabels(form.Fields, "", labels)
		return nil
	})
}

func applyLabels(fields []Field, prefix string, labels map[string]string) {
	for i := range fields {
		path := JoinPath(prefix, fields[i].Name)
		if label, ok := labels[path]; ok && strings.TrimSpace(label) != "" {
			fields[i].Label = strings.TrimSpace(label)
		}
		if len(fields[i].Nested) > 0 {
			applyLabels(fields[i].Nested, path, labels)
		}
		if fields[i].Items != nil && len(fields[i].Items.Nested) > 0 {
			applyLabels(fields[i].Items.Nested, path, labels)
		}
	}
}

// Package tui edits a configuration in the terminal. It walks the form model
// section by section, offers the current value of every field as the default
// answer and asks again for fields that fail validation.
package tui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/goliatone/go-configadmin/pkg/model"
	"github.com/goliatone/go-configadmin/pkg/render"
	"github.com/goliatone/go-configadmin/pkg/validation"
)

const (
	defaultMaxRounds = 3
	noneOption       = "(none)"
)

// Editor prompts for every field of a form.
type Editor struct {
	driver    PromptDriver
	out       io.Writer
	theme     Theme
	maxRounds int
}

var _ render.Renderer = (*Editor)(nil)

func New(options ...Option) (*Editor, error) {
	e := &Editor{
		theme:     Theme{ErrorPrefix: "! "},
		maxRounds: defaultMaxRounds,
	}
	for _, opt := range options {
		if opt != nil {
			opt(e)
		}
	}
	if e.driver == nil {
		e.driver = NewSurveyDriver(e.out)
	}
	return e, nil
}

func (e *Editor) Name() string { return "tui" }

func (e *Editor) ContentType() string { return "application/json" }

// Render runs Edit with options.Values as defaults and returns the collected
// values as JSON.
func (e *Editor) Render(ctx context.Context, form model.FormModel, options render.RenderOptions) ([]byte, error) {
	values, err := e.Edit(ctx, form, options.Values, options.Errors)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(values, "", "  ")
}

// Edit prompts for every field and returns the edited copy of current. Known
// errors are shown next to their field on the first pass.
func (e *Editor) Edit(ctx context.Context, form model.FormModel, current map[string]any, errs map[string][]string) (map[string]any, error) {
	state := NewState(current, errs)
	if err := e.fields(ctx, state, form.Fields, ""); err != nil {
		return nil, err
	}

	for round := 0; ; round++ {
		result := validation.Validate(form, state.Values())
		if result.Valid {
			return state.Values(), nil
		}
		if round >= e.maxRounds {
			return state.Values(), fmt.Errorf("%w: %s", ErrStillInvalid, result.Issues[0].Message)
		}
		if err := e.info(ctx, fmt.Sprintf("%d field(s) need attention.", len(result.FieldErrors()))); err != nil {
			return nil, err
		}
		for path, messages := range result.FieldErrors() {
			state.SetErrors(path, messages)
		}
		asked := map[string]bool{}
		for _, issue := range result.Issues {
			if asked[issue.Path] {
				continue
			}
			asked[issue.Path] = true
			field, ok := form.Lookup(issue.Path)
			if !ok || field.Type == model.FieldTypeObject || isObjectArray(field) {
				continue
			}
			if err := e.leaf(ctx, state, field, issue.Path); err != nil {
				return nil, err
			}
		}
	}
}

// Confirm asks a yes/no question through the editor's driver.
func (e *Editor) Confirm(ctx context.Context, message string, def bool) (bool, error) {
	return e.driver.Confirm(ctx, ConfirmConfig{Message: message, Default: def})
}

// Info prints a line through the editor's driver.
func (e *Editor) Info(ctx context.Context, message string) error {
	return e.info(ctx, message)
}

func (e *Editor) info(ctx context.Context, message string) error {
	return e.driver.Info(ctx, e.theme.InfoPrefix+message)
}

func (e *Editor) fields(ctx context.Context, state *State, fields []model.Field, prefix string) error {
	for _, field := range fields {
		path := model.JoinPath(prefix, field.Name)
		var err error
		switch {
		case field.Type == model.FieldTypeObject:
			if err = e.info(ctx, "== "+field.Label+" =="); err == nil {
				err = e.fields(ctx, state, field.Nested, path)
			}
		case isObjectArray(field):
			err = e.rows(ctx, state, field, path)
		default:
			err = e.leaf(ctx, state, field, path)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// rows asks whether to keep each existing entry, prompts the kept ones and
// then offers to append new entries.
func (e *Editor) rows(ctx context.Context, state *State, field model.Field, path string) error {
	value, _ := state.GetValue(path)
	items, _ := value.([]any)

	kept := make([]any, 0, len(items))
	for idx, item := range items {
		keep, err := e.driver.Confirm(ctx, ConfirmConfig{
			Message: fmt.Sprintf("Keep %s #%d%s?", field.Label, idx+1, rowSummary(item)),
			Default: true,
		})
		if err != nil {
			return err
		}
		if keep {
			kept = append(kept, item)
		}
	}
	if err := state.SetValue(path, kept); err != nil {
		return err
	}
	for idx := range kept {
		if err := e.info(ctx, fmt.Sprintf("-- %s #%d --", field.Label, idx+1)); err != nil {
			return err
		}
		if err := e.fields(ctx, state, field.Items.Nested, model.JoinPath(path, strconv.Itoa(idx))); err != nil {
			return err
		}
	}

	for {
		add, err := e.driver.Confirm(ctx, ConfirmConfig{Message: fmt.Sprintf("Add a %s entry?", field.Label)})
		if err != nil {
			return err
		}
		if !add {
			break
		}
		idx := len(kept)
		kept = append(kept, map[string]any{})
		if err := state.SetValue(path, kept); err != nil {
			return err
		}
		if err := e.fields(ctx, state, field.Items.Nested, model.JoinPath(path, strconv.Itoa(idx))); err != nil {
			return err
		}
		// Prompts may have replaced the row maps.
		value, _ := state.GetValue(path)
		kept, _ = value.([]any)
	}

	if len(kept) == 0 {
		state.DeleteValue(path)
	}
	return nil
}

func (e *Editor) leaf(ctx context.Context, state *State, field model.Field, path string) error {
	for _, message := range state.ErrorsFor(path) {
		if err := e.driver.Info(ctx, e.theme.ErrorPrefix+message); err != nil {
			return err
		}
	}
	state.SetErrors(path, nil)

	current, _ := state.GetValue(path)
	switch {
	case field.Type == model.FieldTypeBoolean:
		def, _ := validation.BoolValue(current)
		answer, err := e.driver.Confirm(ctx, ConfirmConfig{Message: field.Label, Default: def, Help: field.Description})
		if err != nil {
			return err
		}
		return state.SetValue(path, answer)

	case len(field.Enum) > 0 && field.Metadata[model.MetadataCaseInsensitive] != "true":
		options, def := enumChoices(field, render.FormatValue(current))
		idx, err := e.driver.Select(ctx, SelectConfig{Message: field.Label, Options: options, DefaultIndex: def, Help: field.Description})
		if err != nil {
			return err
		}
		if idx < 0 || idx >= len(options) || options[idx] == noneOption {
			state.DeleteValue(path)
			return nil
		}
		return state.SetValue(path, options[idx])
	}

	raw, err := e.driver.Input(ctx, InputConfig{
		Message:   field.Label,
		Default:   render.FormatValue(current),
		Help:      inputHelp(field),
		Validator: func(answer string) error { _, _, err := parseAnswer(field, answer); return err },
	})
	if err != nil {
		return err
	}
	value, present, err := parseAnswer(field, raw)
	if err != nil {
		// Drivers without inline validation land here; the value is
		// reported again by the validation round.
		state.SetErrors(path, []string{err.Error()})
	}
	if !present {
		state.DeleteValue(path)
		return nil
	}
	return state.SetValue(path, value)
}

// parseAnswer decodes one answer the way posted form values are decoded and
// applies the field's own rules. Cross-field rules run once every field is
// known.
func parseAnswer(field model.Field, raw string) (any, bool, error) {
	single := model.FormModel{Fields: []model.Field{field}}
	values, errs := render.DecodeForm(single, url.Values{field.Name: {raw}})
	value, present := values[field.Name]
	if messages := errs[field.Name]; len(messages) > 0 {
		return value, present, errors.New(messages[0])
	}
	if field.Type == model.FieldTypeBoolean {
		return value, present, nil
	}
	if result := validation.Validate(single, values); !result.Valid {
		return value, present, errors.New(result.Issues[0].Message)
	}
	return value, present, nil
}

func enumChoices(field model.Field, current string) ([]string, int) {
	options := make([]string, 0, len(field.Enum)+1)
	if !field.Required {
		options = append(options, noneOption)
	}
	def := 0
	for _, value := range field.Enum {
		text := render.FormatValue(value)
		if text == current {
			def = len(options)
		}
		options = append(options, text)
	}
	return options, def
}

func inputHelp(field model.Field) string {
	help := field.Description
	if field.Type == model.FieldTypeArray {
		help = strings.TrimSpace(help + " Comma separated, for example 1, 2, 3.")
	}
	if len(field.Enum) > 0 {
		options := make([]string, 0, len(field.Enum))
		for _, value := range field.Enum {
			options = append(options, render.FormatValue(value))
		}
		help = strings.TrimSpace(help + " One of " + strings.Join(options, ", ") + ".")
	}
	return help
}

func rowSummary(item any) string {
	row, _ := item.(map[string]any)
	for _, value := range row {
		if text, ok := value.(string); ok && text != "" {
			return " (" + text + ")"
		}
	}
	return ""
}

func isObjectArray(field model.Field) bool {
	return field.Type == model.FieldTypeArray && field.Items != nil && field.Items.Type == model.FieldTypeObject
}

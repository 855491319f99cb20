// Package validation evaluates form values against the rules carried by a
// model.FormModel. Failures are returned as data so renderers can show them
// inline next to each field.
package validation

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/goliatone/go-configadmin/pkg/model"
)

// Issue represents a validation error located by dotted field path.
type Issue struct {
	Path    string `json:"path"`
	Field   string `json:"field,omitempty"`
	Rule    string `json:"rule,omitempty"`
	Message string `json:"message"`
}

// Result captures validation outcomes.
type Result struct {
	Valid  bool    `json:"valid"`
	Issues []Issue `json:"issues,omitempty"`
}

// Rule identifiers reported in Issue.Rule besides the model.ValidationRule*
// kinds.
const (
	RuleRequired = "required"
	RuleType     = "type"
	RuleEnum     = "enum"
)

// FieldErrors groups issue messages by path, the shape render.RenderOptions
// expects.
func (r Result) FieldErrors() map[string][]string {
	if len(r.Issues) == 0 {
		return nil
	}
	out := make(map[string][]string, len(r.Issues))
	for _, issue := range r.Issues {
		out[issue.Path] = append(out[issue.Path], issue.Message)
	}
	return out
}

// Validate checks values against the form. Values follow the nested map shape
// produced by functional.ToValues and render.DecodeForm.
func Validate(form model.FormModel, values map[string]any) Result {
	v := &validator{}
	v.object(form.Fields, "", values)
	sort.SliceStable(v.issues, func(i, j int) bool { return v.issues[i].Path < v.issues[j].Path })
	return Result{Valid: len(v.issues) == 0, Issues: v.issues}
}

type validator struct {
	issues []Issue
}

func (v *validator) add(path string, field model.Field, rule, message string) {
	v.issues = append(v.issues, Issue{Path: path, Field: field.Name, Rule: rule, Message: message})
}

func (v *validator) object(fields []model.Field, prefix string, values map[string]any) {
	for _, field := range fields {
		path := model.JoinPath(prefix, field.Name)
		value, present := values[field.Name]
		if !present || value == nil {
			if field.Type == model.FieldTypeObject {
				if field.Required {
					v.object(field.Nested, path, map[string]any{})
				}
				continue
			}
			if field.Required {
				v.add(path, field, RuleRequired, requiredMessage(field))
			}
			continue
		}
		v.value(field, path, value)
		if field.Type != model.FieldTypeObject && field.Type != model.FieldTypeArray {
			v.crossField(field, fields, path, values)
		}
	}
}

func (v *validator) value(field model.Field, path string, value any) {
	switch field.Type {
	case model.FieldTypeObject:
		nested, ok := value.(map[string]any)
		if !ok {
			v.add(path, field, RuleType, requiredMessage(field))
			return
		}
		v.object(field.Nested, path, nested)
	case model.FieldTypeArray:
		items, ok := value.([]any)
		if !ok {
			v.add(path, field, RuleType, requiredMessage(field))
			return
		}
		if field.Items == nil {
			return
		}
		for idx, item := range items {
			v.value(*field.Items, model.JoinPath(path, strconv.Itoa(idx)), item)
		}
	case model.FieldTypeInteger, model.FieldTypeNumber:
		v.number(field, path, value)
	case model.FieldTypeBoolean:
		if _, ok := BoolValue(value); !ok {
			v.add(path, field, RuleType, requiredMessage(field))
		}
	default:
		v.text(field, path, value)
	}
}

func (v *validator) number(field model.Field, path string, value any) {
	if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
		if field.Required {
			v.add(path, field, RuleRequired, requiredMessage(field))
		}
		return
	}
	number, ok := NumberValue(value)
	if !ok || (field.Type == model.FieldTypeInteger && number != math.Trunc(number)) {
		v.add(path, field, RuleType, requiredMessage(field))
		return
	}
	for _, rule := range field.Validations {
		bound, err := strconv.ParseFloat(rule.Params["value"], 64)
		switch rule.Kind {
		case model.ValidationRuleMin:
			if err == nil && number < bound {
				v.add(path, field, rule.Kind, fmt.Sprintf("%s must be at least %s.", field.Label, rule.Params["value"]))
			}
		case model.ValidationRuleMax:
			if err == nil && number > bound {
				v.add(path, field, rule.Kind, fmt.Sprintf("%s can't be greater than %s.", field.Label, rule.Params["value"]))
			}
		}
	}
	v.enum(field, path, value)
}

func (v *validator) text(field model.Field, path string, value any) {
	text := fmt.Sprint(value)
	if strings.TrimSpace(text) == "" {
		if field.Required {
			v.add(path, field, RuleRequired, requiredMessage(field))
		}
		return
	}
	length := len([]rune(text))
	for _, rule := range field.Validations {
		switch rule.Kind {
		case model.ValidationRuleMinLength:
			if n, err := strconv.Atoi(rule.Params["value"]); err == nil && length < n {
				v.add(path, field, rule.Kind, fmt.Sprintf("%s must be at least %d characters.", field.Label, n))
			}
		case model.ValidationRuleMaxLength:
			if n, err := strconv.Atoi(rule.Params["value"]); err == nil && length > n {
				v.add(path, field, rule.Kind, fmt.Sprintf("%s must be at most %d characters.", field.Label, n))
			}
		case model.ValidationRulePattern:
			re, err := regexp.Compile(rule.Params["pattern"])
			if err == nil && !re.MatchString(text) {
				v.add(path, field, rule.Kind, fmt.Sprintf("%s has an invalid format.", field.Label))
			}
		}
	}
	v.enum(field, path, value)
}

func (v *validator) enum(field model.Field, path string, value any) {
	if len(field.Enum) == 0 {
		return
	}
	text := strings.TrimSpace(fmt.Sprint(value))
	fold := field.Metadata[model.MetadataCaseInsensitive] == "true"
	for _, option := range field.Enum {
		candidate := fmt.Sprint(option)
		if candidate == text || (fold && strings.EqualFold(candidate, text)) {
			return
		}
	}
	message := field.Metadata[model.MetadataEnumMessage]
	if message == "" {
		options := make([]string, 0, len(field.Enum))
		for _, option := range field.Enum {
			options = append(options, fmt.Sprint(option))
		}
		message = fmt.Sprintf("%s must be one of %s.", field.Label, strings.Join(options, ", "))
	}
	v.add(path, field, RuleEnum, message)
}

func (v *validator) crossField(field model.Field, siblings []model.Field, path string, values map[string]any) {
	rule, ok := field.Rule(model.ValidationRuleLTE)
	if !ok {
		return
	}
	otherName := rule.Params["field"]
	current, ok := NumberValue(values[field.Name])
	if !ok {
		return
	}
	other, ok := NumberValue(values[otherName])
	if !ok || current <= other {
		return
	}
	otherLabel := otherName
	for _, sibling := range siblings {
		if sibling.Name == otherName {
			otherLabel = sibling.Label
			break
		}
	}
	v.add(path, field, rule.Kind, fmt.Sprintf("%s must not exceed %s.", field.Label, otherLabel))
}

func requiredMessage(field model.Field) string {
	return fmt.Sprintf("Please provide a valid %s.", field.Label)
}

// NumberValue converts decoded JSON, YAML or form values to float64.
func NumberValue(value any) (float64, bool) {
	switch typed := value.(type) {
	case json.Number:
		f, err := typed.Float64()
		return f, err == nil
	case float64:
		return typed, true
	case float32:
		return float64(typed), true
	case int:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case int32:
		return float64(typed), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(typed), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// BoolValue converts decoded or posted values to bool.
func BoolValue(value any) (bool, bool) {
	switch typed := value.(type) {
	case bool:
		return typed, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(typed))
		return b, err == nil
	default:
		return false, false
	}
}

package openapi

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/goliatone/go-configadmin/pkg/model"
)

const (
	extensionOrder           = "x-formgen-order"
	extensionSection         = "x-formgen-section"
	extensionLTE             = "x-formgen-lte"
	extensionEnumMessage     = "x-formgen-enum-message"
	extensionCaseInsensitive = "x-formgen-case-insensitive"
	extensionStep            = "x-formgen-step"
)

// BuilderOption customises form model construction.
type BuilderOption func(*Builder)

// WithLabeler replaces model.DefaultLabeler for fields without a title.
func WithLabeler(labeler func(string) string) BuilderOption {
	return func(b *Builder) {
		if labeler != nil {
			b.labeler = labeler
		}
	}
}

// WithDecorators appends decorators run after the model is built.
func WithDecorators(decorators ...model.Decorator) BuilderOption {
	return func(b *Builder) {
		b.decorators = append(b.decorators, decorators...)
	}
}

// Builder converts OpenAPI operations into form models.
type Builder struct {
	labeler    func(string) string
	decorators []model.Decorator
}

func NewBuilder(options ...BuilderOption) *Builder {
	b := &Builder{labeler: model.DefaultLabeler}
	for _, opt := range options {
		opt(b)
	}
	return b
}

// Build transforms an operation request body into a FormModel.
func (b *Builder) Build(op Operation) (model.FormModel, error) {
	if op.RequestBody.Type != "object" && len(op.RequestBody.Properties) == 0 {
		return model.FormModel{}, fmt.Errorf("openapi builder: operation %q has no object request body", op.ID)
	}

	form := model.FormModel{
		OperationID: op.ID,
		Endpoint:    op.Path,
		Method:      strings.ToUpper(op.Method),
		Summary:     op.Summary,
		Description: op.Description,
	}

	fields, err := b.objectFields("", op.RequestBody)
	if err != nil {
		return model.FormModel{}, err
	}
	form.Fields = fields

	for _, decorator := range b.decorators {
		if decorator == nil {
			continue
		}
		if err := decorator.Decorate(&form); err != nil {
			return model.FormModel{}, fmt.Errorf("openapi builder: decorate %q: %w", op.ID, err)
		}
	}
	return form, nil
}

func (b *Builder) objectFields(path string, schema Schema) ([]model.Field, error) {
	required := make(map[string]struct{}, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = struct{}{}
	}

	fields := make([]model.Field, 0, len(schema.Properties))
	for _, name := range propertyOrder(schema) {
		_, isRequired := required[name]
		field, err := b.field(model.JoinPath(path, name), name, schema.Properties[name], isRequired)
		if err != nil {
			return nil, err
		}
		fields = append(fields, field)
	}
	return fields, nil
}

func (b *Builder) field(path, name string, schema Schema, required bool) (model.Field, error) {
	field := model.Field{
		Name:        name,
		Format:      schema.Format,
		Required:    required,
		Label:       strings.TrimSpace(schema.Title),
		Description: schema.Description,
	}
	if field.Label == "" {
		field.Label = b.labeler(name)
	}
	applyExtensions(&field, schema.Extensions)

	switch schema.Type {
	case "object", "":
		if len(schema.Properties) == 0 && schema.Type == "" {
			return model.Field{}, fmt.Errorf("openapi builder: field %q has no type", path)
		}
		field.Type = model.FieldTypeObject
		nested, err := b.objectFields(path, schema)
		if err != nil {
			return model.Field{}, err
		}
		field.Nested = nested
	case "array":
		if schema.Items == nil {
			return model.Field{}, fmt.Errorf("openapi builder: array field %q missing items", path)
		}
		field.Type = model.FieldTypeArray
		item, err := b.field(path, name, *schema.Items, false)
		if err != nil {
			return model.Field{}, err
		}
		field.Items = &item
	case "integer", "number", "string", "boolean":
		field.Type = model.FieldType(schema.Type)
		if len(schema.Enum) > 0 {
			field.Enum = append([]any(nil), schema.Enum...)
		}
		field.Validations = append(field.Validations, validationRules(schema)...)
	default:
		return model.Field{}, fmt.Errorf("openapi builder: field %q has unsupported type %q", path, schema.Type)
	}
	return field, nil
}

func validationRules(schema Schema) []model.ValidationRule {
	var rules []model.ValidationRule
	if schema.Minimum != nil {
		rules = append(rules, valueRule(model.ValidationRuleMin, formatFloat(*schema.Minimum)))
	}
	if schema.Maximum != nil {
		rules = append(rules, valueRule(model.ValidationRuleMax, formatFloat(*schema.Maximum)))
	}
	if schema.MinLength != nil {
		rules = append(rules, valueRule(model.ValidationRuleMinLength, strconv.Itoa(*schema.MinLength)))
	}
	if schema.MaxLength != nil {
		rules = append(rules, valueRule(model.ValidationRuleMaxLength, strconv.Itoa(*schema.MaxLength)))
	}
	if schema.Pattern != "" {
		rules = append(rules, model.ValidationRule{
			Kind:   model.ValidationRulePattern,
			Params: map[string]string{"pattern": schema.Pattern},
		})
	}
	if sibling, ok := schema.Extensions[extensionLTE].(string); ok && strings.TrimSpace(sibling) != "" {
		rules = append(rules, model.ValidationRule{
			Kind:   model.ValidationRuleLTE,
			Params: map[string]string{"field": strings.TrimSpace(sibling)},
		})
	}
	return rules
}

func valueRule(kind, value string) model.ValidationRule {
	return model.ValidationRule{Kind: kind, Params: map[string]string{"value": value}}
}

func applyExtensions(field *model.Field, extensions map[string]any) {
	set := func(key, value string) {
		if value == "" {
			return
		}
		if field.Metadata == nil {
			field.Metadata = make(map[string]string)
		}
		field.Metadata[key] = value
	}
	if value, ok := extensions[extensionSection].(string); ok {
		set(model.MetadataSection, strings.TrimSpace(value))
	}
	if value, ok := extensions[extensionEnumMessage].(string); ok {
		set(model.MetadataEnumMessage, strings.TrimSpace(value))
	}
	if value, ok := extensions[extensionCaseInsensitive].(bool); ok && value {
		set(model.MetadataCaseInsensitive, "true")
	}
	switch value := extensions[extensionStep].(type) {
	case string:
		set(model.MetadataInputStep, strings.TrimSpace(value))
	case float64:
		set(model.MetadataInputStep, formatFloat(value))
	}
}

// propertyOrder lists x-formgen-order entries first, then remaining
// properties alphabetically.
func propertyOrder(schema Schema) []string {
	seen := make(map[string]struct{}, len(schema.Properties))
	ordered := make([]string, 0, len(schema.Properties))
	if raw, ok := schema.Extensions[extensionOrder].([]any); ok {
		for _, item := range raw {
			name, ok := item.(string)
			if !ok {
				continue
			}
			if _, exists := schema.Properties[name]; !exists {
				continue
			}
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			ordered = append(ordered, name)
		}
	}
	var rest []string
	for name := range schema.Properties {
		if _, ok := seen[name]; !ok {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(ordered, rest...)
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// LoadForm loads src, parses it and builds the form of operationID.
func LoadForm(ctx context.Context, loader *Loader, src Source, operationID string, options ...BuilderOption) (model.FormModel, error) {
	if loader == nil {
		loader = NewLoader()
	}
	if src == nil {
		src = DefaultSource()
	}
	doc, err := loader.Load(ctx, src)
	if err != nil {
		return model.FormModel{}, err
	}
	operations, err := NewParser().Operations(ctx, doc)
	if err != nil {
		return model.FormModel{}, err
	}
	op, ok := operations[operationID]
	if !ok {
		return model.FormModel{}, fmt.Errorf("openapi: operation %q not found in %s", operationID, doc.Location())
	}
	return NewBuilder(options...).Build(op)
}

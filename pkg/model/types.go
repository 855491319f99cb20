package model

import "strings"

// FieldType is the simplified enum for form-friendly field kinds.
type FieldType string

const (
	FieldTypeString  FieldType = "string"
	FieldTypeInteger FieldType = "integer"
	FieldTypeNumber  FieldType = "number"
	FieldTypeBoolean FieldType = "boolean"
	FieldTypeArray   FieldType = "array"
	FieldTypeObject  FieldType = "object"
)

const (
	ValidationRuleMin       = "min"
	ValidationRuleMax       = "max"
	ValidationRuleMinLength = "minLength"
	ValidationRuleMaxLength = "maxLength"
	ValidationRulePattern   = "pattern"
	// ValidationRuleLTE compares the field with a sibling field. The sibling
	// name lives in Params["field"].
	ValidationRuleLTE = "lte"
)

// Metadata keys populated from x-formgen extensions.
const (
	MetadataSection         = "section"
	MetadataEnumMessage     = "enum.message"
	MetadataCaseInsensitive = "enum.caseInsensitive"
	MetadataInputStep       = "input.step"
)

// ValidationRule represents a single validation constraint applied to a field.
// Numeric bounds and length limits encode their threshold in Params["value"]
// while pattern rules preserve the original expression in Params["pattern"].
type ValidationRule struct {
	Kind   string            `json:"kind"`
	Params map[string]string `json:"params,omitempty"`
}

// Field models an individual input inside a generated form.
type Field struct {
	Name        string            `json:"name"`
	Type        FieldType         `json:"type"`
	Format      string            `json:"format,omitempty"`
	Required    bool              `json:"required"`
	Label       string            `json:"label,omitempty"`
	Description string            `json:"description,omitempty"`
	Enum        []any             `json:"enum,omitempty"`
	Nested      []Field           `json:"nested,omitempty"`
	Items       *Field            `json:"items,omitempty"`
	Validations []ValidationRule  `json:"validations,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Rule returns the first validation rule of the given kind.
func (f Field) Rule(kind string) (ValidationRule, bool) {
	for _, rule := range f.Validations {
		if rule.Kind == kind {
			return rule, true
		}
	}
	return ValidationRule{}, false
}

// FormModel is the top-level representation renderers consume.
type FormModel struct {
	OperationID string            `json:"operationId"`
	Endpoint    string            `json:"endpoint"`
	Method      string            `json:"method"`
	Summary     string            `json:"summary,omitempty"`
	Description string            `json:"description,omitempty"`
	Fields      []Field           `json:"fields"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Lookup resolves a dotted path ("proximityTracing.ble.p0") to its field.
// Numeric segments step into array items.
func (f FormModel) Lookup(path string) (Field, bool) {
	segments := strings.Split(strings.TrimSpace(path), ".")
	fields := f.Fields
	var current *Field
	for _, segment := range segments {
		if segment == "" {
			return Field{}, false
		}
		if current != nil && current.Type == FieldTypeArray && isIndex(segment) {
			if current.Items == nil {
				return Field{}, false
			}
			current = current.Items
			fields = current.Nested
			continue
		}
		found := false
		for i := range fields {
			if fields[i].Name == segment {
				current = &fields[i]
				fields = current.Nested
				found = true
				break
			}
		}
		if !found {
			return Field{}, false
		}
	}
	if current == nil {
		return Field{}, false
	}
	return *current, true
}

// Walk visits every leaf field (non-object, non-array-of-object) together with
// its dotted path template. Array items are reported with a "*" placeholder.
func (f FormModel) Walk(fn func(path string, field Field)) {
	walkFields(f.Fields, "", fn)
}

func walkFields(fields []Field, prefix string, fn func(string, Field)) {
	for _, field := range fields {
		path := JoinPath(prefix, field.Name)
		switch {
		case field.Type == FieldTypeObject:
			walkFields(field.Nested, path, fn)
		case field.Type == FieldTypeArray && field.Items != nil && field.Items.Type == FieldTypeObject:
			walkFields(field.Items.Nested, path+".*", fn)
		default:
			fn(path, field)
		}
	}
}

// JoinPath joins two dotted path fragments.
func JoinPath(parent, child string) string {
	parent = strings.TrimSpace(parent)
	child = strings.TrimSpace(child)
	if parent == "" {
		return child
	}
	if child == "" {
		return parent
	}
	return parent + "." + child
}

func isIndex(segment string) bool {
	if segment == "" {
		return false
	}
	for _, r := range segment {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

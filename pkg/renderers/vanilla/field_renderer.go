package vanilla

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-configadmin/pkg/model"
	"github.com/goliatone/go-configadmin/pkg/render"
	"github.com/goliatone/go-configadmin/pkg/validation"
)

// Node kinds emitted by buildNodes. Groups and items open a fieldset that the
// matching end node closes, which keeps the template free of recursion.
const (
	nodeGroup = "group"
	nodeItem  = "item"
	nodeEnd   = "end"
	nodeField = "field"
)

type option struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	Selected bool   `json:"selected"`
}

type node struct {
	Kind        string   `json:"kind"`
	Path        string   `json:"path,omitempty"`
	ID          string   `json:"id,omitempty"`
	Class       string   `json:"class,omitempty"`
	Label       string   `json:"label,omitempty"`
	Description string   `json:"description,omitempty"`
	Input       string   `json:"input,omitempty"`
	Value       string   `json:"value,omitempty"`
	Checked     bool     `json:"checked,omitempty"`
	Step        string   `json:"step,omitempty"`
	Min         string   `json:"min,omitempty"`
	Max         string   `json:"max,omitempty"`
	Placeholder string   `json:"placeholder,omitempty"`
	Required    bool     `json:"required,omitempty"`
	Options     []option `json:"options,omitempty"`
	Errors      []string `json:"errors,omitempty"`
	Depth       int      `json:"depth"`
}

type nodeBuilder struct {
	options render.RenderOptions
	nodes   []node
}

func buildNodes(form model.FormModel, options render.RenderOptions) []node {
	b := &nodeBuilder{options: options}
	b.fields(form.Fields, "", 0)
	return b.nodes
}

func (b *nodeBuilder) fields(fields []model.Field, prefix string, depth int) {
	for _, field := range fields {
		path := model.JoinPath(prefix, field.Name)
		switch {
		case field.Type == model.FieldTypeObject:
			b.open(nodeGroup, path, field.Label, field.Description, groupClass(depth), depth)
			b.fields(field.Nested, path, depth+1)
			b.close()
		case field.Type == model.FieldTypeArray && field.Items != nil && field.Items.Type == model.FieldTypeObject:
			b.rows(field, path, depth)
		default:
			b.nodes = append(b.nodes, b.leaf(field, path, depth))
		}
	}
}

// rows renders one fieldset per existing entry. Editable forms get a trailing
// blank entry; clearing every input of an entry removes it on submit.
func (b *nodeBuilder) rows(field model.Field, path string, depth int) {
	description := field.Description
	if !b.options.ReadOnly {
		description = strings.TrimSpace(description + " Clear every input of an entry to remove it.")
	}
	b.open(nodeGroup, path, field.Label, description, groupClass(depth), depth)

	value, _ := render.ValueAt(b.options.Values, path)
	items, _ := value.([]any)
	count := len(items)
	if !b.options.ReadOnly {
		count++
	}
	for idx := 0; idx < count; idx++ {
		label := fmt.Sprintf("#%d", idx+1)
		if idx == len(items) {
			label = "New entry"
		}
		itemPath := model.JoinPath(path, strconv.Itoa(idx))
		b.open(nodeItem, itemPath, label, "", string(ClassItem), depth+1)
		b.fields(field.Items.Nested, itemPath, depth+2)
		b.close()
	}
	b.close()
}

func (b *nodeBuilder) open(kind, path, label, description, class string, depth int) {
	b.nodes = append(b.nodes, node{
		Kind:        kind,
		Path:        path,
		ID:          controlID(path),
		Class:       class,
		Label:       label,
		Description: description,
		Errors:      b.options.Errors[path],
		Depth:       depth,
	})
}

func (b *nodeBuilder) close() {
	b.nodes = append(b.nodes, node{Kind: nodeEnd})
}

func (b *nodeBuilder) leaf(field model.Field, path string, depth int) node {
	value, _ := render.ValueAt(b.options.Values, path)
	n := node{
		Kind:        nodeField,
		Path:        path,
		ID:          controlID(path),
		Class:       string(ClassField),
		Label:       field.Label,
		Description: field.Description,
		Value:       render.FormatValue(value),
		Required:    field.Required,
		Errors:      b.options.Errors[path],
		Depth:       depth,
	}
	if b.options.ReadOnly {
		return n
	}

	switch field.Type {
	case model.FieldTypeInteger, model.FieldTypeNumber:
		n.Input = "number"
		n.Step = numberStep(field)
		if rule, ok := field.Rule(model.ValidationRuleMin); ok {
			n.Min = rule.Params["value"]
		}
		if rule, ok := field.Rule(model.ValidationRuleMax); ok {
			n.Max = rule.Params["value"]
		}
	case model.FieldTypeBoolean:
		n.Input = "checkbox"
		n.Checked, _ = validation.BoolValue(value)
	case model.FieldTypeArray:
		n.Input = "text"
		n.Placeholder = "1, 2, 3"
	default:
		n.Input = "text"
		if len(field.Enum) > 0 {
			n.Options = enumOptions(field, n.Value)
			if field.Metadata[model.MetadataCaseInsensitive] == "true" {
				n.Input = "datalist"
			} else {
				n.Input = "select"
			}
		}
	}
	return n
}

func numberStep(field model.Field) string {
	if step := strings.TrimSpace(field.Metadata[model.MetadataInputStep]); step != "" {
		return step
	}
	if field.Type == model.FieldTypeInteger {
		return "1"
	}
	return "any"
}

// enumOptions lists the allowed values. A current value outside the enum is
// kept as an option so the select does not silently change it.
func enumOptions(field model.Field, current string) []option {
	options := make([]option, 0, len(field.Enum)+2)
	if !field.Required {
		options = append(options, option{Value: "", Label: "", Selected: current == ""})
	}
	found := current == ""
	for _, value := range field.Enum {
		text := render.FormatValue(value)
		selected := text == current
		found = found || selected
		options = append(options, option{Value: text, Label: text, Selected: selected})
	}
	if !found {
		options = append(options, option{Value: current, Label: current, Selected: true})
	}
	return options
}

package render

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-configadmin/pkg/model"
)

// TextRenderer lists every field as an indented "label: value" line. The CLI
// uses it for `show --format text`.
type TextRenderer struct{}

func (TextRenderer) Name() string { return "text" }

func (TextRenderer) ContentType() string { return "text/plain; charset=utf-8" }

func (r TextRenderer) Render(_ context.Context, form model.FormModel, options RenderOptions) ([]byte, error) {
	var buf bytes.Buffer
	writeTextFields(&buf, form.Fields, "", options, 0)
	for _, message := range options.FormErrors {
		fmt.Fprintf(&buf, "! %s\n", message)
	}
	return buf.Bytes(), nil
}

func writeTextFields(buf *bytes.Buffer, fields []model.Field, prefix string, options RenderOptions, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, field := range fields {
		path := model.JoinPath(prefix, field.Name)
		switch {
		case field.Type == model.FieldTypeObject:
			fmt.Fprintf(buf, "%s%s\n", indent, field.Label)
			writeTextFields(buf, field.Nested, path, options, depth+1)
		case field.Type == model.FieldTypeArray && field.Items != nil && field.Items.Type == model.FieldTypeObject:
			fmt.Fprintf(buf, "%s%s\n", indent, field.Label)
			rows, _ := ValueAt(options.Values, path)
			items, _ := rows.([]any)
			for idx := range items {
				fmt.Fprintf(buf, "%s  #%d\n", indent, idx+1)
				writeTextFields(buf, field.Items.Nested, model.JoinPath(path, strconv.Itoa(idx)), options, depth+2)
			}
		default:
			value, _ := ValueAt(options.Values, path)
			if text := FormatValue(value); text != "" {
				fmt.Fprintf(buf, "%s%s: %s\n", indent, field.Label, text)
			} else {
				fmt.Fprintf(buf, "%s%s:\n", indent, field.Label)
			}
		}
		for _, message := range options.Errors[path] {
			fmt.Fprintf(buf, "%s  ! %s\n", indent, message)
		}
	}
}

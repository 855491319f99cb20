package render

import (
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/goliatone/go-configadmin/pkg/model"
)

// ValueAt resolves a dotted path inside a nested value map. Numeric segments
// index arrays.
func ValueAt(values map[string]any, path string) (any, bool) {
	var current any = values
	for _, segment := range strings.Split(path, ".") {
		switch typed := current.(type) {
		case map[string]any:
			next, ok := typed[segment]
			if !ok {
				return nil, false
			}
			current = next
		case []any:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(typed) {
				return nil, false
			}
			current = typed[idx]
		default:
			return nil, false
		}
	}
	return current, true
}

// FormatValue renders a leaf value the way inputs display it: integers
// without a fraction, scalar lists comma separated, absent values empty.
func FormatValue(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case json.Number:
		return typed.String()
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(typed), 'f', -1, 32)
	case []any:
		parts := make([]string, 0, len(typed))
		for _, item := range typed {
			parts = append(parts, FormatValue(item))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(typed)
	}
}

// DecodeForm converts posted form values keyed by dotted paths into the
// nested value map described by form. Blank inputs are omitted, rows of
// object arrays whose inputs are all blank are dropped, and scalar arrays are
// read from a single comma separated input. Values that fail to parse are
// kept as typed so the form re-renders them, and reported in the returned
// error map.
func DecodeForm(form model.FormModel, posted url.Values) (map[string]any, map[string][]string) {
	d := decoder{posted: posted, errors: map[string][]string{}}
	values := d.object(form.Fields, "")
	return values, MergeFieldErrors(d.errors)
}

type decoder struct {
	posted url.Values
	errors map[string][]string
}

func (d *decoder) object(fields []model.Field, prefix string) map[string]any {
	out := make(map[string]any)
	for _, field := range fields {
		path := model.JoinPath(prefix, field.Name)
		switch field.Type {
		case model.FieldTypeObject:
			if nested := d.object(field.Nested, path); len(nested) > 0 {
				out[field.Name] = nested
			}
		case model.FieldTypeArray:
			if value, ok := d.array(field, path); ok {
				out[field.Name] = value
			}
		default:
			if value, ok := d.scalar(field, path, d.posted.Get(path)); ok {
				out[field.Name] = value
			}
		}
	}
	return out
}

func (d *decoder) array(field model.Field, path string) (any, bool) {
	if field.Items == nil {
		return nil, false
	}
	if field.Items.Type != model.FieldTypeObject {
		raw := strings.TrimSpace(d.posted.Get(path))
		if raw == "" {
			return nil, false
		}
		var items []any
		failed := false
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			value, ok := d.scalar(*field.Items, path, part)
			if !ok {
				continue
			}
			if _, isText := value.(string); isText && field.Items.Type != model.FieldTypeString {
				failed = true
			}
			items = append(items, value)
		}
		if failed {
			// The raw text is kept so the input shows what was typed.
			return raw, true
		}
		return items, len(items) > 0
	}

	var items []any
	for _, idx := range d.indexes(path) {
		rowPath := model.JoinPath(path, strconv.Itoa(idx))
		if d.blankRow(rowPath) {
			continue
		}
		items = append(items, d.object(field.Items.Nested, rowPath))
	}
	return items, len(items) > 0
}

// indexes lists the row numbers posted under path, ascending.
func (d *decoder) indexes(path string) []int {
	prefix := path + "."
	seen := map[int]struct{}{}
	for key := range d.posted {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		rest := strings.TrimPrefix(key, prefix)
		head, _, _ := strings.Cut(rest, ".")
		if idx, err := strconv.Atoi(head); err == nil && idx >= 0 {
			seen[idx] = struct{}{}
		}
	}
	out := make([]int, 0, len(seen))
	for idx := range seen {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

func (d *decoder) blankRow(rowPath string) bool {
	prefix := rowPath + "."
	for key, values := range d.posted {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		for _, value := range values {
			if strings.TrimSpace(value) != "" {
				return false
			}
		}
	}
	return true
}

func (d *decoder) scalar(field model.Field, path, raw string) (any, bool) {
	raw = strings.TrimSpace(raw)
	switch field.Type {
	case model.FieldTypeBoolean:
		if raw == "" {
			return false, true
		}
		switch strings.ToLower(raw) {
		case "on", "true", "1", "yes":
			return true, true
		case "off", "false", "0", "no":
			return false, true
		}
	case model.FieldTypeInteger:
		if raw == "" {
			return nil, false
		}
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return n, true
		}
	case model.FieldTypeNumber:
		if raw == "" {
			return nil, false
		}
		if f, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return f, true
		}
	default:
		if raw == "" {
			return nil, false
		}
		return raw, true
	}
	d.errors[path] = append(d.errors[path], fmt.Sprintf("Please provide a valid %s.", field.Label))
	return raw, true
}

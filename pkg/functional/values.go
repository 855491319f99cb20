package functional

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ToValues converts the configuration into the nested map shape renderers and
// the validator work with. Numbers are kept as json.Number so integers render
// without a fractional part.
func ToValues(cfg FunctionalConfiguration) (map[string]any, error) {
	payload, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("functional: encode configuration: %w", err)
	}
	decoder := json.NewDecoder(bytes.NewReader(payload))
	decoder.UseNumber()
	values := map[string]any{}
	if err := decoder.Decode(&values); err != nil {
		return nil, fmt.Errorf("functional: decode values: %w", err)
	}
	return values, nil
}

// FromValues builds a configuration from a nested value map. Unknown keys are
// rejected.
func FromValues(values map[string]any) (FunctionalConfiguration, error) {
	var cfg FunctionalConfiguration
	payload, err := json.Marshal(values)
	if err != nil {
		return cfg, fmt.Errorf("functional: encode values: %w", err)
	}
	decoder := json.NewDecoder(bytes.NewReader(payload))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("functional: decode configuration: %w", err)
	}
	return cfg, nil
}

// Diff lists the leaves whose value differs between current and next, sorted
// by dotted key. Scalar arrays (delta) compare as a whole; object arrays are
// compared per index.
func Diff(current, next FunctionalConfiguration) ([]Change, error) {
	left, err := ToValues(current)
	if err != nil {
		return nil, err
	}
	right, err := ToValues(next)
	if err != nil {
		return nil, err
	}

	before := map[string]any{}
	after := map[string]any{}
	flatten("", left, before)
	flatten("", right, after)

	keys := map[string]struct{}{}
	for key := range before {
		keys[key] = struct{}{}
	}
	for key := range after {
		keys[key] = struct{}{}
	}

	var changes []Change
	for key := range keys {
		a, b := before[key], after[key]
		if equalLeaf(a, b) {
			continue
		}
		changes = append(changes, Change{Key: key, CurrentValue: plain(a), NewValue: plain(b)})
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Key < changes[j].Key })
	return changes, nil
}

func flatten(prefix string, value any, out map[string]any) {
	switch typed := value.(type) {
	case map[string]any:
		for key, child := range typed {
			flatten(joinKey(prefix, key), child, out)
		}
	case []any:
		if !containsObjects(typed) {
			out[prefix] = typed
			return
		}
		for idx, child := range typed {
			flatten(joinKey(prefix, strconv.Itoa(idx)), child, out)
		}
	default:
		out[prefix] = value
	}
}

func containsObjects(items []any) bool {
	for _, item := range items {
		if _, ok := item.(map[string]any); ok {
			return true
		}
	}
	return false
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func equalLeaf(a, b any) bool {
	return reflect.DeepEqual(plain(a), plain(b))
}

// plain converts json.Number leaves into int64 or float64 so diffs print and
// compare naturally.
func plain(value any) any {
	switch typed := value.(type) {
	case json.Number:
		if i, err := typed.Int64(); err == nil {
			return i
		}
		if f, err := typed.Float64(); err == nil {
			return f
		}
		return typed.String()
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = plain(item)
		}
		return out
	default:
		return value
	}
}

// ToYAML renders the configuration as YAML, the format the configuration
// service persists.
func ToYAML(cfg FunctionalConfiguration) ([]byte, error) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(cfg); err != nil {
		return nil, fmt.Errorf("functional: encode yaml: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("functional: encode yaml: %w", err)
	}
	return buf.Bytes(), nil
}

// ToJSON renders the configuration as indented JSON.
func ToJSON(cfg FunctionalConfiguration) ([]byte, error) {
	payload, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("functional: encode json: %w", err)
	}
	return append(payload, '\n'), nil
}

// ParseDocument decodes a configuration document. Format is "json", "yaml" or
// empty to detect from the first non-blank byte. Unknown keys are rejected.
func ParseDocument(data []byte, format string) (FunctionalConfiguration, error) {
	var cfg FunctionalConfiguration
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return cfg, fmt.Errorf("functional: empty document")
	}

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "":
		if trimmed[0] == '{' {
			return parseJSON(trimmed)
		}
		return parseYAML(trimmed)
	case "json":
		return parseJSON(trimmed)
	case "yaml", "yml":
		return parseYAML(trimmed)
	default:
		return cfg, fmt.Errorf("functional: unsupported document format %q", format)
	}
}

func parseJSON(data []byte) (FunctionalConfiguration, error) {
	var cfg FunctionalConfiguration
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("functional: parse json: %w", err)
	}
	return cfg, nil
}

func parseYAML(data []byte) (FunctionalConfiguration, error) {
	var cfg FunctionalConfiguration
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("functional: parse yaml: %w", err)
	}
	return cfg, nil
}

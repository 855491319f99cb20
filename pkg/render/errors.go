package render

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/goliatone/go-configadmin/pkg/model"
)

// ErrorMapping splits an error payload into field-level and form-level
// messages keyed by the dotted field paths used throughout the render
// pipeline.
type ErrorMapping struct {
	Fields map[string][]string
	Form   []string
}

// MergeFormErrors concatenates form-level messages, trimming whitespace and
// removing duplicates while preserving order.
func MergeFormErrors(existing []string, extras ...string) []string {
	combined := make([]string, 0, len(existing)+len(extras))
	combined = append(combined, existing...)
	combined = append(combined, extras...)
	return normalizeMessages(combined)
}

// MergeFieldErrors combines several path keyed error maps. Duplicate messages
// on the same path collapse.
func MergeFieldErrors(sets ...map[string][]string) map[string][]string {
	out := make(map[string][]string)
	for _, set := range sets {
		for path, messages := range set {
			out[path] = append(out[path], messages...)
		}
	}
	for path, messages := range out {
		normalized := normalizeMessages(messages)
		if len(normalized) == 0 {
			delete(out, path)
			continue
		}
		out[path] = normalized
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// DecodeErrorPayload extracts path keyed messages from an API error body.
// It understands Spring style bodies ({"message": ..., "errors": [{"field":
// ..., "defaultMessage": ...}]}) and map style bodies ({"errors": {"path":
// ["msg"]}}). Anything else is returned as a single form-level message under
// the empty key.
func DecodeErrorPayload(body []byte) map[string][]string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return nil
	}

	var text string
	if err := json.Unmarshal([]byte(trimmed), &text); err == nil {
		return map[string][]string{"": {text}}
	}

	var envelope struct {
		Message string          `json:"message"`
		Error   string          `json:"error"`
		Errors  json.RawMessage `json:"errors"`
	}
	if err := json.Unmarshal([]byte(trimmed), &envelope); err != nil {
		return map[string][]string{"": {trimmed}}
	}

	out := make(map[string][]string)
	var list []struct {
		Field          string `json:"field"`
		Path           string `json:"path"`
		DefaultMessage string `json:"defaultMessage"`
		Message        string `json:"message"`
	}
	var byPath map[string][]string
	switch {
	case len(envelope.Errors) == 0:
	case json.Unmarshal(envelope.Errors, &list) == nil:
		for _, item := range list {
			path := firstNonEmpty(item.Field, item.Path)
			message := firstNonEmpty(item.DefaultMessage, item.Message)
			if message != "" {
				out[path] = append(out[path], message)
			}
		}
	case json.Unmarshal(envelope.Errors, &byPath) == nil:
		for path, messages := range byPath {
			out[path] = append(out[path], messages...)
		}
	}
	if message := firstNonEmpty(envelope.Message, envelope.Error); message != "" {
		out[""] = append(out[""], message)
	}
	if len(out) == 0 {
		return map[string][]string{"": {trimmed}}
	}
	return out
}

// MapErrorPayload normalises error payload paths (dotted, bracketed or JSON
// pointer) onto the form's fields. Array indexes are kept so messages land on
// the right row. Unknown paths become form-level errors so messages are not
// lost.
func MapErrorPayload(form model.FormModel, payload map[string][]string) ErrorMapping {
	mapping := ErrorMapping{Fields: make(map[string][]string)}

	for rawPath, messages := range payload {
		normalized := normalizeMessages(messages)
		if len(normalized) == 0 {
			continue
		}
		mapped := mapErrorPath(form, rawPath)
		if mapped == "" {
			mapping.Form = append(mapping.Form, normalized...)
			continue
		}
		mapping.Fields[mapped] = append(mapping.Fields[mapped], normalized...)
	}

	if len(mapping.Fields) == 0 {
		mapping.Fields = nil
	}
	mapping.Form = normalizeMessages(mapping.Form)
	return mapping
}

func normalizeMessages(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}
	out := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))
	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func mapErrorPath(form model.FormModel, raw string) string {
	if isFormLevelKey(raw) {
		return ""
	}
	segments := dropWrapperSegments(parsePathSegments(raw))
	for end := len(segments); end > 0; end-- {
		candidate := strings.Join(segments[:end], ".")
		if _, ok := form.Lookup(candidate); ok {
			return candidate
		}
	}
	return ""
}

func parsePathSegments(path string) []string {
	clean := strings.TrimSpace(path)
	for strings.HasPrefix(clean, "#") || strings.HasPrefix(clean, "/") || strings.HasPrefix(clean, ".") || strings.HasPrefix(clean, "$") {
		clean = clean[1:]
	}
	replacer := strings.NewReplacer("[", ".", "]", "")
	clean = strings.Trim(replacer.Replace(clean), "./")
	if clean == "" {
		return nil
	}

	parts := strings.FieldsFunc(clean, func(r rune) bool { return r == '.' || r == '/' })
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		segment := strings.TrimSpace(part)
		if segment == "" {
			continue
		}
		segment = strings.ReplaceAll(segment, "~1", "/")
		segment = strings.ReplaceAll(segment, "~0", "~")
		if _, err := strconv.Atoi(segment); err == nil {
			segment = strings.TrimLeft(segment, "0")
			if segment == "" {
				segment = "0"
			}
		}
		out = append(out, segment)
	}
	return out
}

func dropWrapperSegments(segments []string) []string {
	out := segments
	for len(out) > 0 {
		switch strings.ToLower(out[0]) {
		case "body", "request", "payload", "data", "configuration", "functionalconfiguration":
			out = out[1:]
			continue
		}
		break
	}
	return out
}

func isFormLevelKey(key string) bool {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "", ".", "/", "#", "$", "form", "global", "__all__", "non_field_errors":
		return true
	default:
		return false
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-configadmin/pkg/render"
)

// State tracks the values collected so far keyed by dotted paths, together
// with the errors still attached to them.
type State struct {
	values map[string]any
	errors map[string][]string
}

// NewState seeds the state with a deep copy of prefill.
func NewState(prefill map[string]any, errs map[string][]string) *State {
	values, _ := deepCopy(prefill).(map[string]any)
	if values == nil {
		values = make(map[string]any)
	}
	errors := make(map[string][]string, len(errs))
	for path, messages := range errs {
		errors[path] = append([]string(nil), messages...)
	}
	return &State{values: values, errors: errors}
}

// Values returns the current value map (mutable).
func (s *State) Values() map[string]any {
	if s == nil {
		return nil
	}
	return s.values
}

// ErrorsFor returns the errors attached to a dotted path.
func (s *State) ErrorsFor(path string) []string {
	if s == nil {
		return nil
	}
	return s.errors[path]
}

// SetErrors replaces the errors of path; nil clears them.
func (s *State) SetErrors(path string, messages []string) {
	if len(messages) == 0 {
		delete(s.errors, path)
		return
	}
	s.errors[path] = messages
}

// GetValue resolves a dotted path into the values map.
func (s *State) GetValue(path string) (any, bool) {
	if s == nil || path == "" {
		return nil, false
	}
	return render.ValueAt(s.values, path)
}

// SetValue writes a value using a dotted path, creating intermediate maps and
// slices as needed. Numeric segments index slices.
func (s *State) SetValue(path string, value any) error {
	if s == nil {
		return fmt.Errorf("tui: state is nil")
	}
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("tui: empty path")
	}
	updated, err := setPath(s.values, strings.Split(path, "."), value)
	if err != nil {
		return fmt.Errorf("tui: set %q: %w", path, err)
	}
	s.values = updated.(map[string]any)
	return nil
}

// DeleteValue removes the key addressed by path. Slice elements are left in
// place.
func (s *State) DeleteValue(path string) {
	if s == nil {
		return
	}
	cut := strings.LastIndex(path, ".")
	if cut < 0 {
		delete(s.values, path)
		return
	}
	container, found := render.ValueAt(s.values, path[:cut])
	if !found {
		return
	}
	if m, isMap := container.(map[string]any); isMap {
		delete(m, path[cut+1:])
	}
}

func setPath(container any, segments []string, value any) (any, error) {
	if len(segments) == 0 {
		return value, nil
	}
	segment := segments[0]

	if idx, err := strconv.Atoi(segment); err == nil {
		if idx < 0 {
			return nil, fmt.Errorf("negative index %d", idx)
		}
		list, ok := container.([]any)
		if container != nil && !ok {
			return nil, fmt.Errorf("segment %q indexes a %T", segment, container)
		}
		for len(list) <= idx {
			list = append(list, nil)
		}
		child, err := setPath(list[idx], segments[1:], value)
		if err != nil {
			return nil, err
		}
		list[idx] = child
		return list, nil
	}

	m, ok := container.(map[string]any)
	if container != nil && !ok {
		return nil, fmt.Errorf("segment %q reads a %T", segment, container)
	}
	if m == nil {
		m = make(map[string]any)
	}
	child, err := setPath(m[segment], segments[1:], value)
	if err != nil {
		return nil, err
	}
	m[segment] = child
	return m, nil
}

func deepCopy(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		clone := make(map[string]any, len(typed))
		for k, v := range typed {
			clone[k] = deepCopy(v)
		}
		return clone
	case []any:
		clone := make([]any, len(typed))
		for i, v := range typed {
			clone[i] = deepCopy(v)
		}
		return clone
	default:
		return typed
	}
}

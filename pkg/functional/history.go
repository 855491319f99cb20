package functional

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// HistoryDateLayout is the human format used for history summaries.
const HistoryDateLayout = "Monday, January 2, 2006, 3:04 PM"

// UndefinedDate is printed when an entry carries no usable timestamp.
const UndefinedDate = "undefined date"

// HistoryEntry is one element of GET {base}/history/{profile}.
type HistoryEntry struct {
	Message string `json:"message" yaml:"message"`
	Date    Date   `json:"date" yaml:"date"`
}

// Date wraps the entry timestamp. The API serialises local date-times either
// as ISO strings without a zone or as [year, month, day, hour, minute, ...]
// arrays; both decode here. A zero Date means the value was absent.
type Date struct {
	time.Time
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDate parses the textual forms accepted by Date.
func ParseDate(value string) (Date, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Date{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return Date{Time: t}, nil
		}
	}
	return Date{}, fmt.Errorf("functional: parse date %q", value)
}

func (d *Date) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*d = Date{}
		return nil
	}
	if data[0] == '[' {
		var parts []int
		if err := json.Unmarshal(data, &parts); err != nil {
			return fmt.Errorf("functional: decode date array: %w", err)
		}
		parsed, err := dateFromParts(parts)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("functional: decode date: %w", err)
	}
	parsed, err := ParseDate(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format("2006-01-02T15:04:05"))
}

func (d Date) MarshalYAML() (any, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.Format("2006-01-02T15:04:05"), nil
}

func (d *Date) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.SequenceNode {
		var parts []int
		if err := node.Decode(&parts); err != nil {
			return fmt.Errorf("functional: decode date array: %w", err)
		}
		parsed, err := dateFromParts(parts)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	}
	parsed, err := ParseDate(node.Value)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func dateFromParts(parts []int) (Date, error) {
	if len(parts) < 3 {
		return Date{}, fmt.Errorf("functional: date array needs at least 3 parts, got %d", len(parts))
	}
	values := make([]int, 7)
	copy(values, parts)
	t := time.Date(values[0], time.Month(values[1]), values[2], values[3], values[4], values[5], values[6], time.UTC)
	return Date{Time: t}, nil
}

// FormatDate renders the date for history summaries.
func FormatDate(d Date) string {
	if d.IsZero() {
		return UndefinedDate
	}
	return d.Format(HistoryDateLayout)
}

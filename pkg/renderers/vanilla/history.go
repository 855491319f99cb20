package vanilla

import (
	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-configadmin/pkg/functional"
)

// HistoryItem is one history entry ready for display.
type HistoryItem struct {
	Date    string `json:"date"`
	Message string `json:"message"`
}

// HistoryView formats entries in the order the API served them.
func HistoryView(entries []functional.HistoryEntry) []HistoryItem {
	items := make([]HistoryItem, 0, len(entries))
	for _, entry := range entries {
		items = append(items, HistoryItem{
			Date:    functional.FormatDate(entry.Date),
			Message: entry.Message,
		})
	}
	return items
}

// sanitizeFilter strips markup from messages written by other operators.
// The policy output is already escaped text.
func sanitizeFilter(policy *bluemonday.Policy) func(any, any) (any, error) {
	return func(input any, _ any) (any, error) {
		text, _ := input.(string)
		return policy.Sanitize(text), nil
	}
}

package vanilla

import "strings"

// controlID derives a stable element id from a dotted field path.
func controlID(path string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return ""
	}
	return "ca-" + strings.ReplaceAll(trimmed, ".", "-")
}

func groupClass(depth int) string {
	if depth == 0 {
		return string(ClassGroup) + " ca-section"
	}
	return string(ClassGroup)
}

package model

import (
	"regexp"
	"strings"
)

var splitWordsPattern = regexp.MustCompile(`[_\-\s]+`)

// DefaultLabeler converts a field name into a human-friendly label. It splits
// on underscores/dashes and camelCase boundaries, then capitalises the first
// word only ("riskThresholdLow" -> "Risk threshold low").
func DefaultLabeler(name string) string {
	if name == "" {
		return ""
	}

	words := splitWordsPattern.Split(name, -1)
	var segments []string
	for _, word := range words {
		if word == "" {
			continue
		}
		segments = append(segments, strings.Fields(splitCamel(word))...)
	}
	for i, segment := range segments {
		if i == 0 {
			segments[i] = upperFirst(segment)
			continue
		}
		if !isAcronym(segment) {
			segments[i] = strings.ToLower(segment)
		}
	}
	return strings.TrimSpace(strings.Join(segments, " "))
}

func splitCamel(input string) string {
	var out strings.Builder
	for i, r := range input {
		if i > 0 && isBoundary(input, i, r) {
			out.WriteRune(' ')
		}
		out.WriteRune(r)
	}
	return out.String()
}

func isBoundary(input string, index int, r rune) bool {
	prev := rune(input[index-1])
	if isLower(prev) && isUpper(r) {
		return true
	}
	if isLetter(prev) && isDigit(r) {
		return true
	}
	// "RSSIThreshold": split before the last capital of an acronym run.
	if isUpper(prev) && isUpper(r) && index+1 < len(input) && isLower(rune(input[index+1])) {
		return true
	}
	return false
}

func isUpper(r rune) bool  { return r >= 'A' && r <= 'Z' }
func isLower(r rune) bool  { return r >= 'a' && r <= 'z' }
func isDigit(r rune) bool  { return r >= '0' && r <= '9' }
func isLetter(r rune) bool { return isUpper(r) || isLower(r) }

func isAcronym(word string) bool {
	if len(word) < 2 {
		return false
	}
	for _, r := range word {
		if !isUpper(r) && !isDigit(r) {
			return false
		}
	}
	return true
}

func upperFirst(word string) string {
	if word == "" {
		return ""
	}
	if isAcronym(word) {
		return word
	}
	lower := strings.ToLower(word)
	return strings.ToUpper(lower[:1]) + lower[1:]
}

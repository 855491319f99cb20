package tui

import "io"

// Theme holds the prefixes printed before informational and error lines.
type Theme struct {
	InfoPrefix  string
	ErrorPrefix string
}

// Option configures the editor.
type Option func(*Editor)

// WithPromptDriver overrides the prompt driver used by the editor.
func WithPromptDriver(driver PromptDriver) Option {
	return func(e *Editor) {
		if driver != nil {
			e.driver = driver
		}
	}
}

// WithOutput sends informational lines of the default driver to w.
func WithOutput(w io.Writer) Option {
	return func(e *Editor) {
		e.out = w
	}
}

// WithTheme applies optional message prefixes.
func WithTheme(theme Theme) Option {
	return func(e *Editor) {
		e.theme = theme
	}
}

// WithMaxRounds bounds how many times invalid fields are asked again after
// the first pass.
func WithMaxRounds(rounds int) Option {
	return func(e *Editor) {
		if rounds > 0 {
			e.maxRounds = rounds
		}
	}
}

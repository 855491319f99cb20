package vanilla

// ChromeClass is a typed identifier for the CSS classes the templates rely
// on. admin.css styles these names.
type ChromeClass string

const (
	ClassForm        ChromeClass = "ca-form"
	ClassGroup       ChromeClass = "ca-group"
	ClassItem        ChromeClass = "ca-group ca-group-item"
	ClassField       ChromeClass = "ca-field"
	ClassActions     ChromeClass = "ca-actions"
	ClassFormErrors  ChromeClass = "ca-form-errors"
	ClassFieldErrors ChromeClass = "ca-field-errors"
)

func chromeClasses() map[string]string {
	return map[string]string{
		"form":         string(ClassForm),
		"actions":      string(ClassActions),
		"errors":       string(ClassFormErrors),
		"field_errors": string(ClassFieldErrors),
	}
}

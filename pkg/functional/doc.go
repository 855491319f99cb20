// Package functional models the functional configuration document served by
// the configuration API, its change history, and the conversions the console
// needs: nested value maps for forms, leaf diffs, and YAML/JSON documents.
package functional

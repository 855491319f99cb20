// Package template defines the template engine contract the HTML views
// render through. The pongo2 implementation lives in the gotemplate
// subpackage.
package template

// Package model defines the typed form model consumed by renderers and the
// validator. Builders in pkg/openapi return the types defined here.
// Validation rules expose canonical identifiers (min/max, minLength/maxLength,
// pattern, lte) with string parameters so renderers can map numeric bounds
// onto HTML attributes and the validator can evaluate them without
// re-reading the schema. Schema extensions under the `x-formgen` namespace
// flow into Field metadata (section, enum message, case folding).
package model

// Package openapi loads the OpenAPI description of the configuration API and
// turns the request body of an operation into a model.FormModel. Loading and
// parsing go through kin-openapi; callers only see the Document, Operation and
// Schema wrappers defined here.
//
// The description of the functional configuration API ships embedded
// (DefaultDocument) and can be replaced by a file or URL at runtime.
package openapi

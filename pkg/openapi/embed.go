package openapi

import "embed"

// DefaultDocumentName is the embedded description of the configuration API.
const DefaultDocumentName = "functional-config.openapi.yaml"

// UpdateOperationID is the operation whose request body drives the editor.
const UpdateOperationID = "updateConfiguration"

//go:embed functional-config.openapi.yaml
var embedded embed.FS

// DefaultSource points at the embedded description.
func DefaultSource() Source {
	return SourceFromFS(DefaultDocumentName)
}

// DefaultDocument returns the embedded description.
func DefaultDocument() Document {
	raw, err := embedded.ReadFile(DefaultDocumentName)
	if err != nil {
		panic(err)
	}
	return MustNewDocument(DefaultSource(), raw)
}

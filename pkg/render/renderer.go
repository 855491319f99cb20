package render

import (
	"context"

	"github.com/goliatone/go-configadmin/pkg/model"
)

// Renderer converts a FormModel and its values into a byte representation
// (an HTML form fragment, a plain text listing).
type Renderer interface {
	Name() string
	ContentType() string
	Render(ctx context.Context, form model.FormModel, options RenderOptions) ([]byte, error)
}

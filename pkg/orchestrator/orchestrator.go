package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/goliatone/go-configadmin/pkg/model"
	"github.com/goliatone/go-configadmin/pkg/openapi"
	"github.com/goliatone/go-configadmin/pkg/render"
)

const defaultRendererName = "html"

// Option customises the orchestrator configuration.
type Option func(*Orchestrator)

// WithLoader injects a custom OpenAPI loader.
func WithLoader(loader *openapi.Loader) Option {
	return func(o *Orchestrator) {
		if loader != nil {
			o.loader = loader
		}
	}
}

// WithSource points at the OpenAPI description. Defaults to the embedded one.
func WithSource(src openapi.Source) Option {
	return func(o *Orchestrator) {
		if src != nil {
			o.source = src
		}
	}
}

// WithOperation selects the operation whose request body becomes the form.
func WithOperation(operationID string) Option {
	return func(o *Orchestrator) {
		if operationID != "" {
			o.operationID = operationID
		}
	}
}

// WithUIDecorators registers decorators run against the form model once it
// is built.
func WithUIDecorators(decorators ...model.Decorator) Option {
	return func(o *Orchestrator) {
		if len(decorators) == 0 {
			return
		}
		o.builderOptions = append(o.builderOptions, openapi.WithDecorators(decorators...))
	}
}

// WithLabels overrides field labels by dotted path.
func WithLabels(labels map[string]string) Option {
	return func(o *Orchestrator) {
		if len(labels) == 0 {
			return
		}
		o.builderOptions = append(o.builderOptions, openapi.WithDecorators(model.LabelOverrides(labels)))
	}
}

// WithRegistry injects a renderer registry.
func WithRegistry(registry *render.Registry) Option {
	return func(o *Orchestrator) {
		o.registry = registry
	}
}

// WithDefaultRenderer overrides the renderer used when a request omits an
// explicit Renderer field.
func WithDefaultRenderer(name string) Option {
	return func(o *Orchestrator) {
		o.defaultRenderer = name
	}
}

// Orchestrator turns the API description into a form model once and renders
// it on demand. The server and the CLI share one instance.
type Orchestrator struct {
	loader          *openapi.Loader
	source          openapi.Source
	operationID     string
	builderOptions  []openapi.BuilderOption
	registry        *render.Registry
	defaultRenderer string

	mu   sync.Mutex
	form *model.FormModel
}

// New constructs an Orchestrator. Without options it reads the embedded
// description and renders with the "html" renderer.
func New(options ...Option) *Orchestrator {
	o := &Orchestrator{
		source:          openapi.DefaultSource(),
		operationID:     openapi.UpdateOperationID,
		defaultRenderer: defaultRendererName,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(o)
	}
	if o.loader == nil {
		o.loader = openapi.NewLoader()
	}
	return o
}

// Form returns the form model, building it on first use. Failed builds are
// retried on the next call.
func (o *Orchestrator) Form(ctx context.Context) (model.FormModel, error) {
	if ctx == nil {
		return model.FormModel{}, errors.New("orchestrator: context is required")
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.form != nil {
		return *o.form, nil
	}
	form, err := openapi.LoadForm(ctx, o.loader, o.source, o.operationID, o.builderOptions...)
	if err != nil {
		return model.FormModel{}, fmt.Errorf("orchestrator: build form model: %w", err)
	}
	o.form = &form
	return form, nil
}

// Request describes one rendering of the form.
type Request struct {
	// Renderer names the renderer to use. If empty, the orchestrator falls back
	// to the configured default renderer.
	Renderer string

	// RenderOptions carries values, errors and hidden fields for this
	// rendering.
	RenderOptions render.RenderOptions
}

// Generate renders the form with the requested renderer.
func (o *Orchestrator) Generate(ctx context.Context, req Request) ([]byte, error) {
	form, err := o.Form(ctx)
	if err != nil {
		return nil, err
	}
	renderer, err := o.Renderer(req.Renderer)
	if err != nil {
		return nil, err
	}
	output, err := renderer.Render(ctx, form, req.RenderOptions)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: render output: %w", err)
	}
	return output, nil
}

// Renderer resolves name, or the default renderer when name is empty.
func (o *Orchestrator) Renderer(name string) (render.Renderer, error) {
	if o.registry == nil {
		return nil, errors.New("orchestrator: renderer registry is nil")
	}
	target := name
	if target == "" {
		target = o.defaultRenderer
	}
	renderer, err := o.registry.Get(target)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: %w", err)
	}
	return renderer, nil
}

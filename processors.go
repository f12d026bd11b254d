package framepipe

import "context"

// funcProcessor adapts a function into a Processor.
type funcProcessor struct {
	name string
	fn   func(ctx context.Context, in []*FrameBuffer) ([]*FrameBuffer, error)
}

// ProcessorFunc wraps fn into a Processor with the given name. Destroy
// is a no-op - the function owns no resources.
func ProcessorFunc(name string, fn func(ctx context.Context, in []*FrameBuffer) ([]*FrameBuffer, error)) Processor {
	return &funcProcessor{name: name, fn: fn}
}

func (p *funcProcessor) Name() string { return p.name }

func (p *funcProcessor) Process(ctx context.Context, in []*FrameBuffer) ([]*FrameBuffer, error) {
	return p.fn(ctx, in)
}

func (p *funcProcessor) Destroy(context.Context) error { return nil }

// Passthrough returns a no-op stage that forwards its input unchanged.
// Useful as a chain placeholder and in tests.
func Passthrough() Processor {
	return ProcessorFunc("passthrough", func(_ context.Context, in []*FrameBuffer) ([]*FrameBuffer, error) {
		return in, nil
	})
}

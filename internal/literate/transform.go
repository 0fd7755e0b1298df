package literate

import (
	"context"

	"github.com/agentflare-ai/mdbook-lit/internal/syntax"
)

// BodyFunc is the name of the function whose body is rendered.
const BodyFunc = "body"

// Parser turns a source file into a module.
type Parser interface {
	Parse(ctx context.Context, name string, src []byte) (*syntax.Module, error)
}

// TransformModule parses src and renders the first top-level function named
// body. ok is false when the module has no such function.
func TransformModule(ctx context.Context, p Parser, name string, src []byte, opts Options) (text string, ok bool, err error) {
	mod, err := p.Parse(ctx, name, src)
	if err != nil {
		return "", false, Wrap(KindParse, name, err)
	}
	text, ok, err = RenderModule(mod, opts)
	if err != nil {
		return "", false, Wrap(KindStructural, name, err)
	}
	return text, ok, nil
}

// RenderModule renders the first top-level function of mod named body.
func RenderModule(mod *syntax.Module, opts Options) (string, bool, error) {
	fn, ok := mod.Func(BodyFunc)
	if !ok {
		return "", false, nil
	}
	text, err := Render(mod.Tree, fn.Body, opts)
	if err != nil {
		return "", false, err
	}
	return text, true, nil
}

// Package literate renders the body of a literate source function as
// Markdown. Plain comments become prose; statements, nested declarations and
// doc comments are shown inside fenced code blocks.
package literate

import (
	"strings"

	"github.com/agentflare-ai/mdbook-lit/internal/syntax"
)

const fence = "```"

// Options control the code fences.
type Options struct {
	// Lang is the info string of opening fences, e.g. "rust".
	Lang string
	// NoVerify marks fences as not to be compiled or tested (",ignore").
	NoVerify bool
}

func (o Options) openFence() string {
	info := o.Lang
	if o.NoVerify {
		if info == "" {
			info = "ignore"
		} else {
			info += ",ignore"
		}
	}
	return "\n\n" + fence + info + "\n"
}

// Render extracts the function body node body and renders it.
func Render(tree *syntax.Tree, body syntax.ID, opts Options) (string, error) {
	b, err := Extract(tree, body)
	if err != nil {
		return "", err
	}
	return RenderBody(tree, b, opts), nil
}

// RenderBody renders an extracted body. It is total: every element sequence
// has a rendering, and an empty one renders to a single newline.
func RenderBody(tree *syntax.Tree, body Body, opts Options) string {
	r := &renderer{tree: tree, prefix: body.Prefix, open: opts.openFence()}
	for _, id := range body.Elems {
		r.element(id)
	}
	if r.inCode {
		r.out.WriteString("\n" + fence)
	}
	r.out.WriteByte('\n')
	return r.out.String()
}

type renderer struct {
	tree   *syntax.Tree
	prefix string
	open   string

	inCode bool
	// pending holds the newlines seen since the last emitted element.
	pending string
	out     strings.Builder
}

func (r *renderer) element(id syntax.ID) {
	e := r.tree.At(id)
	switch e.Kind {
	case syntax.KindWhitespace:
		r.pending = strings.Repeat("\n", e.Newlines)
	case syntax.KindComment:
		if e.Comment.Doc {
			r.code()
			r.out.WriteString(stripLines(r.tree.Text(id), r.prefix))
		} else {
			r.prose()
			r.out.WriteString(NormalizeComment(r.tree.Text(id), e.Comment, r.prefix))
		}
		r.pending = ""
	case syntax.KindNode:
		r.node(e)
	default:
		r.code()
		r.out.WriteString(stripLines(r.tree.Text(id), r.prefix))
		r.pending = ""
	}
}

// node classifies only the trivia leading the node; from its first
// substantive child on, the node is opaque code.
func (r *renderer) node(e *syntax.Element) {
	children := e.Children
	i := 0
	for ; i < len(children) && r.tree.IsTrivia(children[i]); i++ {
		r.element(children[i])
	}
	if i < len(children) {
		r.code()
		start := r.tree.At(children[i]).Span.Start
		r.out.WriteString(stripLines(r.tree.Source()[start:e.Span.End], r.prefix))
	}
	r.pending = ""
}

func (r *renderer) code() {
	if r.inCode {
		r.out.WriteString(r.pending)
		return
	}
	r.out.WriteString(r.open)
	r.inCode = true
}

func (r *renderer) prose() {
	if !r.inCode {
		r.out.WriteString(r.pending)
		return
	}
	r.out.WriteString("\n" + fence + "\n\n")
	r.inCode = false
}

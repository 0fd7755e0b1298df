// Package rust parses Rust chapters with tree-sitter into a full-fidelity
// syntax tree.
package rust

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	tsrust "github.com/smacker/go-tree-sitter/rust"

	"github.com/agentflare-ai/mdbook-lit/internal/syntax"
)

// Parser implements the Rust front-end. The zero value is ready to use and
// safe for concurrent calls; each Parse builds its own tree-sitter parser.
type Parser struct{}

// New returns a Rust parser.
func New() *Parser { return &Parser{} }

// Name returns "rust".
func (*Parser) Name() string { return "rust" }

// Extensions returns [".rs"].
func (*Parser) Extensions() []string { return []string{".rs"} }

// FenceLang returns the info string used for Rust code fences.
func (*Parser) FenceLang() string { return "rust" }

// Parse builds a module from Rust source. Every ERROR or MISSING node is
// reported in one *syntax.ParseError.
func (*Parser) Parse(ctx context.Context, name string, src []byte) (*syntax.Module, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(tsrust.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		var diags []syntax.Diagnostic
		collectDiagnostics(root, src, &diags)
		return nil, &syntax.ParseError{File: name, Diagnostics: diags}
	}

	b := &builder{src: src, tree: syntax.NewTree(string(src))}
	mod := &syntax.Module{Tree: b.tree}
	b.build(root)
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		switch child.Type() {
		case "function_item", "function_signature_item":
			fn := syntax.Func{Name: b.fieldText(child, "name"), Public: isPublic(child, src), Body: syntax.NoID}
			if body := child.ChildByFieldName("body"); body != nil {
				fn.Body = b.ids[key(body)]
			}
			mod.Funcs = append(mod.Funcs, fn)
		case "mod_item":
			mod.Mods = append(mod.Mods, syntax.Mod{
				Name:   b.fieldText(child, "name"),
				Public: isPublic(child, src),
				Inline: child.ChildByFieldName("body") != nil,
			})
		}
	}
	return mod, nil
}

func collectDiagnostics(n *sitter.Node, src []byte, diags *[]syntax.Diagnostic) {
	switch {
	case n.IsMissing():
		*diags = append(*diags, diagnostic(n, "missing "+n.Type()))
		return
	case n.Type() == "ERROR":
		text := n.Content(src)
		if len(text) > 32 {
			text = text[:32] + "..."
		}
		*diags = append(*diags, diagnostic(n, fmt.Sprintf("syntax error near %q", text)))
		return
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if child := n.Child(i); child.HasError() || child.IsMissing() {
			collectDiagnostics(child, src, diags)
		}
	}
}

func diagnostic(n *sitter.Node, msg string) syntax.Diagnostic {
	p := n.StartPoint()
	return syntax.Diagnostic{Line: int(p.Row) + 1, Column: int(p.Column) + 1, Msg: msg}
}

func isPublic(n *sitter.Node, src []byte) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.Type() == "visibility_modifier" {
			return strings.HasPrefix(child.Content(src), "pub")
		}
	}
	return false
}

type nodeKey struct {
	start, end uint32
	typ        string
}

func key(n *sitter.Node) nodeKey {
	return nodeKey{start: n.StartByte(), end: n.EndByte(), typ: n.Type()}
}

type builder struct {
	src  []byte
	tree *syntax.Tree
	// ids maps tree-sitter nodes to the elements built for them.
	ids map[nodeKey]syntax.ID
}

func (b *builder) fieldText(n *sitter.Node, field string) string {
	if f := n.ChildByFieldName(field); f != nil {
		return f.Content(b.src)
	}
	return ""
}

func (b *builder) build(n *sitter.Node) syntax.ID {
	if b.ids == nil {
		b.ids = make(map[nodeKey]syntax.ID)
	}
	var id syntax.ID
	switch {
	case isComment(n):
		id = b.comment(n)
	case n.ChildCount() == 0:
		id = b.tree.AddToken(n.Type(), span(n.StartByte(), n.EndByte()))
	default:
		id = b.tree.AddNode(n.Type(), b.children(n))
		// A node always covers its own text, even around leading or
		// trailing children that were reshaped.
		e := b.tree.At(id)
		e.Span = span(n.StartByte(), n.EndByte())
	}
	b.ids[key(n)] = id
	return id
}

func (b *builder) children(n *sitter.Node) []syntax.ID {
	var ids []syntax.ID
	cursor := n.StartByte()
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.StartByte() < cursor {
			continue
		}
		if gap := b.tree.AddGap(span(cursor, child.StartByte())); gap != syntax.NoID {
			ids = append(ids, gap)
		}
		id := b.build(child)
		ids = append(ids, id)
		cursor = uint32(b.tree.At(id).Span.End)
	}
	if gap := b.tree.AddGap(span(cursor, n.EndByte())); gap != syntax.NoID {
		ids = append(ids, gap)
	}
	if attachesTrivia[n.Type()] {
		ids = b.attach(b.foldAttributes(ids))
	}
	return ids
}

func (b *builder) comment(n *sitter.Node) syntax.ID {
	start, end := n.StartByte(), n.EndByte()
	text := string(b.src[start:end])
	// Line comments never own the newline that ends them.
	trimmed := strings.TrimRight(text, "\r\n")
	if strings.HasPrefix(text, "//") {
		end = start + uint32(len(trimmed))
	}
	return b.tree.AddComment(span(start, end), classify(trimmed))
}

func isComment(n *sitter.Node) bool {
	switch n.Type() {
	case "line_comment", "block_comment", "comment":
		return true
	}
	return false
}

// classify decides the comment's shape and whether its marker makes it a doc
// comment.
func classify(text string) syntax.Comment {
	switch {
	case strings.HasPrefix(text, "////"):
		return syntax.Comment{Shape: syntax.ShapeLine, Marker: 2}
	case strings.HasPrefix(text, "///"), strings.HasPrefix(text, "//!"):
		return syntax.Comment{Shape: syntax.ShapeLine, Doc: true, Marker: 3}
	case strings.HasPrefix(text, "//"):
		return syntax.Comment{Shape: syntax.ShapeLine, Marker: 2}
	case strings.HasPrefix(text, "/**/"), strings.HasPrefix(text, "/***"):
		return syntax.Comment{Shape: syntax.ShapeBlock, Marker: 2}
	case strings.HasPrefix(text, "/**"), strings.HasPrefix(text, "/*!"):
		return syntax.Comment{Shape: syntax.ShapeBlock, Doc: true, Marker: 3}
	default:
		return syntax.Comment{Shape: syntax.ShapeBlock, Marker: 2}
	}
}

func span(start, end uint32) syntax.Span {
	return syntax.Span{Start: int(start), End: int(end)}
}

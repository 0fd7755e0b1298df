package rust

import "github.com/agentflare-ai/mdbook-lit/internal/syntax"

// attachesTrivia lists the containers whose items own the comments directly
// above them.
var attachesTrivia = map[string]bool{
	"block":            true,
	"declaration_list": true,
	"source_file":      true,
}

var items = map[string]bool{
	"function_item":            true,
	"function_signature_item":  true,
	"struct_item":              true,
	"enum_item":                true,
	"union_item":               true,
	"trait_item":               true,
	"impl_item":                true,
	"mod_item":                 true,
	"const_item":               true,
	"static_item":              true,
	"type_item":                true,
	"macro_definition":         true,
	"use_declaration":          true,
	"extern_crate_declaration": true,
	"foreign_mod_item":         true,
	"associated_type":          true,
}

// foldAttributes moves each run of outer attributes, with the trivia between
// them, into the node they decorate. Comments after an attribute are then
// inside the item and stay code.
func (b *builder) foldAttributes(ids []syntax.ID) []syntax.ID {
	out := make([]syntax.ID, 0, len(ids))
	for _, id := range ids {
		e := b.tree.At(id)
		if e.Kind != syntax.KindNode || e.Type == "attribute_item" {
			out = append(out, id)
			continue
		}
		if first := attributeRun(b.tree, out); first < len(out) {
			b.tree.Prepend(id, append([]syntax.ID(nil), out[first:]...))
			out = out[:first]
		}
		out = append(out, id)
	}
	return out
}

// attributeRun returns where the attributes and trivia ending ids begin, or
// len(ids) when no attribute directly precedes the end.
func attributeRun(tree *syntax.Tree, ids []syntax.ID) int {
	first := len(ids)
	for i := len(ids) - 1; i >= 0; i-- {
		e := tree.At(ids[i])
		switch {
		case e.Kind == syntax.KindNode && e.Type == "attribute_item":
			first = i
		case e.Kind == syntax.KindComment, e.Kind == syntax.KindWhitespace:
		default:
			return first
		}
	}
	return first
}

// attach moves the comments directly above each item into the item's node.
// A blank line between a comment and the item keeps the comment outside.
func (b *builder) attach(ids []syntax.ID) []syntax.ID {
	out := make([]syntax.ID, 0, len(ids))
	for _, id := range ids {
		e := b.tree.At(id)
		if e.Kind != syntax.KindNode || !items[e.Type] {
			out = append(out, id)
			continue
		}
		n := leadingTrivia(b.tree, out)
		if n == 0 {
			out = append(out, id)
			continue
		}
		cut := len(out) - n
		b.tree.Prepend(id, append([]syntax.ID(nil), out[cut:]...))
		out = append(out[:cut], id)
	}
	return out
}

// leadingTrivia counts how many trailing entries of ids are attachable: a run
// of comments separated by single line breaks, starting with a comment.
func leadingTrivia(tree *syntax.Tree, ids []syntax.ID) int {
	n := 0
scan:
	for i := len(ids) - 1; i >= 0; i-- {
		e := tree.At(ids[i])
		switch {
		case e.Kind == syntax.KindComment:
			n = len(ids) - i
		case e.Kind == syntax.KindWhitespace && e.Newlines < 2:
		default:
			break scan
		}
	}
	return n
}

package rust

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/agentflare-ai/mdbook-lit/internal/syntax"
)

const chapter = `//! Crate docs.

pub mod chapter1;
mod private;
pub mod inline {
    pub fn body() {}
}

pub fn body() {
    // Prose.
    let x = 1;
}

fn ignore_me();
`

func parse(t *testing.T, src string) *syntax.Module {
	t.Helper()
	mod, err := New().Parse(context.Background(), "lib.rs", []byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return mod
}

func TestParseItems(t *testing.T) {
	mod := parse(t, chapter)

	wantMods := []syntax.Mod{
		{Name: "chapter1", Public: true},
		{Name: "private"},
		{Name: "inline", Public: true, Inline: true},
	}
	if diff := cmp.Diff(wantMods, mod.Mods); diff != "" {
		t.Fatalf("mods mismatch (-want +got):\n%s", diff)
	}

	if len(mod.Funcs) != 2 {
		t.Fatalf("got %d funcs, want 2", len(mod.Funcs))
	}
	body, ok := mod.Func("body")
	if !ok || !body.Public {
		t.Fatalf("body = %+v, %v", body, ok)
	}
	if got := mod.Tree.Text(body.Body); got != "{\n    // Prose.\n    let x = 1;\n}" {
		t.Fatalf("body text = %q", got)
	}
	if _, ok := mod.Func("ignore_me"); ok {
		t.Fatalf("a function without a body must not be found")
	}
}

func TestParseKeepsEveryByte(t *testing.T) {
	mod := parse(t, chapter)
	body, _ := mod.Func("body")
	var text string
	for _, id := range mod.Tree.At(body.Body).Children {
		text += mod.Tree.Text(id)
	}
	if want := mod.Tree.Text(body.Body); text != want {
		t.Fatalf("children cover %q, want %q", text, want)
	}
}

func TestCommentsAttachToItems(t *testing.T) {
	src := `fn body() {
    // Describes helper.
    /// Helper docs.
    fn helper() {}

    // Detached by a blank line.

    struct S;
    // Trailing.
}
`
	mod := parse(t, src)
	body, _ := mod.Func("body")
	tree := mod.Tree

	var kinds []string
	for _, id := range tree.At(body.Body).Children {
		e := tree.At(id)
		label := e.Kind.String()
		if e.Kind == syntax.KindNode {
			label = e.Type
		}
		kinds = append(kinds, label)
	}
	want := []string{
		"token", "whitespace", "function_item", "whitespace", "comment",
		"whitespace", "struct_item", "whitespace", "comment", "whitespace", "token",
	}
	if diff := cmp.Diff(want, kinds); diff != "" {
		t.Fatalf("block layout mismatch (-want +got):\n%s", diff)
	}

	helper := tree.At(tree.At(body.Body).Children[2])
	first := tree.At(helper.Children[0])
	if first.Kind != syntax.KindComment || first.Comment.Doc {
		t.Fatalf("first child of helper = %+v, want plain comment", first)
	}
	doc := tree.At(helper.Children[2])
	if doc.Kind != syntax.KindComment || !doc.Comment.Doc {
		t.Fatalf("third child of helper = %+v, want doc comment", doc)
	}
}

func TestAttributesStayWithTheirItem(t *testing.T) {
	src := `fn body() {
    // Outer.
    #[derive(Debug)]
    // inner note
    struct S;
    #[allow(unused)]
    let x = 1;
}
`
	mod := parse(t, src)
	body, _ := mod.Func("body")
	tree := mod.Tree

	var kinds []string
	for _, id := range tree.At(body.Body).Children {
		e := tree.At(id)
		label := e.Kind.String()
		if e.Kind == syntax.KindNode {
			label = e.Type
		}
		kinds = append(kinds, label)
	}
	want := []string{"token", "whitespace", "struct_item", "whitespace", "let_declaration", "whitespace", "token"}
	if diff := cmp.Diff(want, kinds); diff != "" {
		t.Fatalf("block layout mismatch (-want +got):\n%s", diff)
	}

	item := tree.At(tree.At(body.Body).Children[2])
	var inner []string
	for _, id := range item.Children[:5] {
		e := tree.At(id)
		label := e.Kind.String()
		if e.Kind == syntax.KindNode {
			label = e.Type
		}
		inner = append(inner, label)
	}
	wantInner := []string{"comment", "whitespace", "attribute_item", "whitespace", "comment"}
	if diff := cmp.Diff(wantInner, inner); diff != "" {
		t.Fatalf("struct_item children mismatch (-want +got):\n%s", diff)
	}
	if got := tree.Text(tree.At(body.Body).Children[4]); got != "#[allow(unused)]\n    let x = 1;" {
		t.Fatalf("let_declaration text = %q", got)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		text string
		want syntax.Comment
	}{
		{"// plain", syntax.Comment{Shape: syntax.ShapeLine, Marker: 2}},
		{"/// outer doc", syntax.Comment{Shape: syntax.ShapeLine, Doc: true, Marker: 3}},
		{"//! inner doc", syntax.Comment{Shape: syntax.ShapeLine, Doc: true, Marker: 3}},
		{"//// banner", syntax.Comment{Shape: syntax.ShapeLine, Marker: 2}},
		{"/* plain */", syntax.Comment{Shape: syntax.ShapeBlock, Marker: 2}},
		{"/** doc */", syntax.Comment{Shape: syntax.ShapeBlock, Doc: true, Marker: 3}},
		{"/*! inner */", syntax.Comment{Shape: syntax.ShapeBlock, Doc: true, Marker: 3}},
		{"/**/", syntax.Comment{Shape: syntax.ShapeBlock, Marker: 2}},
		{"/*** stars */", syntax.Comment{Shape: syntax.ShapeBlock, Marker: 2}},
	}
	for _, tt := range tests {
		if got := classify(tt.text); got != tt.want {
			t.Errorf("classify(%q) = %+v, want %+v", tt.text, got, tt.want)
		}
	}
}

func TestLineCommentsDoNotOwnNewlines(t *testing.T) {
	mod := parse(t, "fn body() {\r\n    /// doc\r\n    // plain\r\n}\r\n")
	tree := mod.Tree
	for i := 0; i < tree.Len(); i++ {
		id := syntax.ID(i)
		if tree.Kind(id) != syntax.KindComment {
			continue
		}
		text := tree.Text(id)
		if last := text[len(text)-1]; last == '\n' || last == '\r' {
			t.Fatalf("comment %q owns its line break", text)
		}
	}
}

func TestParseErrorAggregates(t *testing.T) {
	_, err := New().Parse(context.Background(), "broken.rs", []byte("fn body( {\n    let = ;\n"))
	var pe *syntax.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *syntax.ParseError, got %v", err)
	}
	if pe.File != "broken.rs" || len(pe.Diagnostics) == 0 {
		t.Fatalf("unexpected parse error %+v", pe)
	}
	for _, d := range pe.Diagnostics {
		if d.Line < 1 || d.Column < 1 {
			t.Fatalf("diagnostic without position: %+v", d)
		}
	}
}

func TestParseIsReentrant(t *testing.T) {
	p := New()
	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = p.Parse(context.Background(), "lib.rs", []byte(chapter))
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			t.Fatalf("Parse: %v", err)
		}
	}
}

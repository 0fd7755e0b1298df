package syntax

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestAddGap(t *testing.T) {
	tree := NewTree("a \n\n b")
	if id := tree.AddGap(Span{Start: 1, End: 1}); id != NoID {
		t.Fatalf("empty gap = %d, want NoID", id)
	}
	ws := tree.AddGap(Span{Start: 1, End: 5})
	if e := tree.At(ws); e.Kind != KindWhitespace || e.Newlines != 2 {
		t.Fatalf("blank gap = %+v, want whitespace with 2 newlines", e)
	}
	tok := tree.AddGap(Span{Start: 0, End: 2})
	if e := tree.At(tok); e.Kind != KindToken || e.Type != "gap" {
		t.Fatalf("text gap = %+v, want gap token", e)
	}
}

func TestPrepend(t *testing.T) {
	tree := NewTree("// c\nfn f() {}")
	c := tree.AddComment(Span{Start: 0, End: 4}, Comment{Marker: 2})
	ws := tree.AddWhitespace(Span{Start: 4, End: 5})
	kw := tree.AddToken("fn", Span{Start: 5, End: 7})
	rest := tree.AddToken("rest", Span{Start: 7, End: 14})
	item := tree.AddNode("function_item", []ID{kw, rest})

	tree.Prepend(item, nil)
	if got := tree.Text(item); got != "fn f() {}" {
		t.Fatalf("Prepend(nil) changed the node to %q", got)
	}

	tree.Prepend(item, []ID{c, ws})
	if got := tree.Text(item); got != "// c\nfn f() {}" {
		t.Fatalf("text = %q", got)
	}
	if diff := cmp.Diff([]ID{c, ws, kw, rest}, tree.At(item).Children); diff != "" {
		t.Fatalf("children mismatch (-want +got):\n%s", diff)
	}
	if !tree.IsTrivia(c) || !tree.IsTrivia(ws) || tree.IsTrivia(kw) {
		t.Fatalf("trivia classification is wrong")
	}
}

func TestAddNodeWithoutChildren(t *testing.T) {
	tree := NewTree("x")
	id := tree.AddNode("block", nil)
	if got := tree.Text(id); got != "" {
		t.Fatalf("empty node text = %q", got)
	}
}

func TestIsBlank(t *testing.T) {
	for s, want := range map[string]bool{
		"":       true,
		" \t\r\n": true,
		" x ":    false,
		"\u00a0": false,
	} {
		if got := IsBlank(s); got != want {
			t.Errorf("IsBlank(%q) = %v, want %v", s, got, want)
		}
	}
}

func TestParseErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *ParseError
		want string
	}{
		{"empty", &ParseError{}, "syntax error"},
		{"file only", &ParseError{File: "a.rs"}, "a.rs: syntax error"},
		{
			"joined",
			&ParseError{File: "a.rs", Diagnostics: []Diagnostic{
				{Line: 1, Column: 4, Msg: "expected ')'"},
				{Msg: "missing item"},
			}},
			"a.rs: 1:4: expected ')'; missing item",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Fatalf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestModuleFuncSkipsDeclarations(t *testing.T) {
	m := &Module{Funcs: []Func{
		{Name: "body", Body: NoID},
		{Name: "body", Body: 3},
		{Name: "body", Body: 7},
	}}
	f, ok := m.Func("body")
	if !ok || f.Body != 3 {
		t.Fatalf("Func(body) = %+v, %v; want the first with a body", f, ok)
	}
	if _, ok := m.Func("missing"); ok {
		t.Fatalf("Func(missing) reported a match")
	}
}

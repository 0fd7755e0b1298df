// Package syntax holds the full-fidelity element tree produced by the source
// front-ends: an arena of nodes and tokens addressed by ID, each borrowing a
// span of the original source text.
package syntax

import "strings"

// Kind is the closed set of element variants.
type Kind uint8

const (
	// KindNode is a compound construct with its own children.
	KindNode Kind = iota + 1
	// KindToken is any substantive token: keyword, identifier, punctuation, literal.
	KindToken
	// KindComment is a comment token.
	KindComment
	// KindWhitespace is a run of spaces, tabs and newlines.
	KindWhitespace
)

func (k Kind) String() string {
	switch k {
	case KindNode:
		return "node"
	case KindToken:
		return "token"
	case KindComment:
		return "comment"
	case KindWhitespace:
		return "whitespace"
	default:
		return "invalid"
	}
}

// Shape distinguishes line comments from block comments.
type Shape uint8

const (
	ShapeLine Shape = iota
	ShapeBlock
)

// Comment describes a comment token. It is decided by the front-end from the
// comment's marker when the token is created.
type Comment struct {
	Shape Shape
	// Doc reports whether the marker binds the comment to the code that
	// follows it, so it is rendered as code rather than prose.
	Doc bool
	// Marker is the byte length of the introducing marker ("//", "///", "/*!").
	Marker int
}

// ID addresses an element in a Tree.
type ID int32

// NoID is the zero value for absent elements.
const NoID ID = -1

// Span is a half-open byte range of the tree's source.
type Span struct {
	Start, End int
}

// Len returns the number of bytes covered by the span.
func (s Span) Len() int { return s.End - s.Start }

// Element is one entry of the arena.
type Element struct {
	Kind Kind
	Span Span
	// Type is the grammar-specific label of the element ("block",
	// "function_item", "DeclStmt"). It is informational only.
	Type     string
	Children []ID
	Comment  Comment
	Newlines int
}

// Tree is an arena of elements over one source text.
type Tree struct {
	src   string
	elems []Element
}

// NewTree returns an empty arena over src.
func NewTree(src string) *Tree {
	return &Tree{src: src}
}

// Source returns the text the tree was built from.
func (t *Tree) Source() string { return t.src }

// Len returns the number of elements in the arena.
func (t *Tree) Len() int { return len(t.elems) }

// At returns the element stored under id.
func (t *Tree) At(id ID) *Element { return &t.elems[id] }

// Text returns the source text covered by id.
func (t *Tree) Text(id ID) string {
	s := t.elems[id].Span
	return t.src[s.Start:s.End]
}

// Kind returns the kind of id.
func (t *Tree) Kind(id ID) Kind { return t.elems[id].Kind }

// IsTrivia reports whether id is a comment or whitespace token.
func (t *Tree) IsTrivia(id ID) bool {
	k := t.elems[id].Kind
	return k == KindComment || k == KindWhitespace
}

func (t *Tree) add(e Element) ID {
	t.elems = append(t.elems, e)
	return ID(len(t.elems) - 1)
}

// AddNode appends a node spanning its children. A node without children
// covers the empty span at 0.
func (t *Tree) AddNode(typ string, children []ID) ID {
	var span Span
	if len(children) > 0 {
		span = Span{Start: t.elems[children[0]].Span.Start, End: t.elems[children[len(children)-1]].Span.End}
	}
	return t.add(Element{Kind: KindNode, Span: span, Type: typ, Children: children})
}

// AddToken appends a substantive token.
func (t *Tree) AddToken(typ string, span Span) ID {
	return t.add(Element{Kind: KindToken, Span: span, Type: typ})
}

// AddComment appends a comment token.
func (t *Tree) AddComment(span Span, c Comment) ID {
	return t.add(Element{Kind: KindComment, Span: span, Type: "comment", Comment: c})
}

// AddWhitespace appends a whitespace token and records its newline count.
func (t *Tree) AddWhitespace(span Span) ID {
	n := strings.Count(t.src[span.Start:span.End], "\n")
	return t.add(Element{Kind: KindWhitespace, Span: span, Type: "whitespace", Newlines: n})
}

// AddGap appends the text between two siblings that no grammar rule claimed.
// Blank text becomes whitespace, anything else a substantive token. An empty
// gap adds nothing and returns NoID.
func (t *Tree) AddGap(span Span) ID {
	if span.Len() <= 0 {
		return NoID
	}
	if IsBlank(t.src[span.Start:span.End]) {
		return t.AddWhitespace(span)
	}
	return t.AddToken("gap", span)
}

// Prepend moves leading trivia into node id, widening its span.
func (t *Tree) Prepend(id ID, leading []ID) {
	if len(leading) == 0 {
		return
	}
	e := &t.elems[id]
	children := make([]ID, 0, len(leading)+len(e.Children))
	children = append(children, leading...)
	e.Children = append(children, e.Children...)
	e.Span.Start = t.elems[leading[0]].Span.Start
}

// IsBlank reports whether s holds only spaces, tabs, carriage returns and newlines.
func IsBlank(s string) bool {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\r', '\n', '\f', '\v':
		default:
			return false
		}
	}
	return true
}

// Package golang parses Go chapters with go/parser and go/scanner into a
// full-fidelity syntax tree.
package golang

import (
	"context"
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/scanner"
	"go/token"
	"strings"

	"github.com/agentflare-ai/mdbook-lit/internal/syntax"
)

// Parser implements the Go front-end. It holds no state between calls.
type Parser struct{}

// New returns a Go parser.
func New() *Parser { return &Parser{} }

// Name returns "go".
func (*Parser) Name() string { return "go" }

// Extensions returns [".go"].
func (*Parser) Extensions() []string { return []string{".go"} }

// FenceLang returns the info string used for Go code fences.
func (*Parser) FenceLang() string { return "go" }

// Parse builds a module from Go source. All parser errors are reported in one
// *syntax.ParseError.
func (*Parser) Parse(ctx context.Context, name string, src []byte) (*syntax.Module, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, name, src, parser.ParseComments|parser.AllErrors)
	if err != nil {
		var list scanner.ErrorList
		if errors.As(err, &list) {
			return nil, parseError(name, list)
		}
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}

	b := &builder{
		src:  src,
		file: fset.File(file.Pos()),
		tree: syntax.NewTree(string(src)),
	}
	b.scan()

	mod := &syntax.Module{Tree: b.tree}
	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Recv != nil {
			continue
		}
		f := syntax.Func{Name: fn.Name.Name, Public: fn.Name.IsExported(), Body: syntax.NoID}
		if fn.Body != nil {
			f.Body = b.block(fn.Body)
		}
		mod.Funcs = append(mod.Funcs, f)
	}
	return mod, nil
}

func parseError(name string, list scanner.ErrorList) *syntax.ParseError {
	pe := &syntax.ParseError{File: name}
	for _, e := range list {
		pe.Diagnostics = append(pe.Diagnostics, syntax.Diagnostic{
			Line:   e.Pos.Line,
			Column: e.Pos.Column,
			Msg:    e.Msg,
		})
	}
	return pe
}

// lexeme is one scanned token with its byte range in the source.
type lexeme struct {
	start, end int
	tok        token.Token
}

type builder struct {
	src  []byte
	file *token.File
	tree *syntax.Tree
	lex  []lexeme
}

func (b *builder) scan() {
	var s scanner.Scanner
	s.Init(b.file, b.src, nil, scanner.ScanComments)
	for {
		pos, tok, lit := s.Scan()
		if tok == token.EOF {
			return
		}
		// Automatically inserted semicolons have no source text.
		if tok == token.SEMICOLON && lit != ";" {
			continue
		}
		start := b.file.Offset(pos)
		b.lex = append(b.lex, lexeme{start: start, end: b.end(start, tok, lit), tok: tok})
	}
}

// end finds where the token starting at start stops. The scanner drops
// carriage returns from comments and raw strings, so those are measured on
// the source itself.
func (b *builder) end(start int, tok token.Token, lit string) int {
	rest := string(b.src[start:])
	switch {
	case tok == token.COMMENT && strings.HasPrefix(rest, "//"):
		if i := strings.IndexByte(rest, '\n'); i >= 0 {
			return start + len(strings.TrimSuffix(rest[:i], "\r"))
		}
		return len(b.src)
	case tok == token.COMMENT:
		if i := strings.Index(rest[2:], "*/"); i >= 0 {
			return start + 2 + i + 2
		}
		return len(b.src)
	case tok == token.STRING && strings.HasPrefix(rest, "`"):
		if i := strings.IndexByte(rest[1:], '`'); i >= 0 {
			return start + 1 + i + 1
		}
		return len(b.src)
	case lit != "":
		return start + len(lit)
	default:
		return start + len(tok.String())
	}
}

// block builds the node for a function body: its braces, its statements as
// nodes and the comments and separators between them as tokens.
func (b *builder) block(body *ast.BlockStmt) syntax.ID {
	lbrace := b.file.Offset(body.Lbrace)
	rbrace := b.file.Offset(body.Rbrace)

	var units []syntax.Span
	for _, stmt := range body.List {
		if empty, ok := stmt.(*ast.EmptyStmt); ok && empty.Implicit {
			continue
		}
		start := stmt.Pos()
		if doc := leadingDoc(stmt); doc != nil {
			start = doc.Pos()
		}
		u := syntax.Span{Start: b.file.Offset(start), End: b.stmtEnd(stmt)}
		if u.Len() > 0 {
			units = append(units, u)
		}
	}

	children := []syntax.ID{b.tree.AddToken("{", syntax.Span{Start: lbrace, End: lbrace + 1})}
	children = append(children, b.sequence(lbrace+1, rbrace, units)...)
	children = append(children, b.tree.AddToken("}", syntax.Span{Start: rbrace, End: rbrace + 1}))
	return b.tree.AddNode("BlockStmt", children)
}

// stmtEnd returns the offset just past stmt. AST positions undercount raw
// strings that contained carriage returns, so the last lexeme decides.
func (b *builder) stmtEnd(stmt ast.Stmt) int {
	end := b.file.Offset(stmt.End())
	if j := b.lexemeAt(end) - 1; j >= 0 && b.lex[j].end > end {
		end = b.lex[j].end
	}
	return end
}

// leadingDoc returns the doc comment of a declaration statement.
func leadingDoc(stmt ast.Stmt) *ast.CommentGroup {
	ds, ok := stmt.(*ast.DeclStmt)
	if !ok {
		return nil
	}
	if gd, ok := ds.Decl.(*ast.GenDecl); ok {
		return gd.Doc
	}
	return nil
}

// sequence lays out the source between start and end. Each unit becomes one
// node; lexemes outside units become tokens; the gaps become whitespace.
func (b *builder) sequence(start, end int, units []syntax.Span) []syntax.ID {
	var ids []syntax.ID
	add := func(id syntax.ID) {
		if id != syntax.NoID {
			ids = append(ids, id)
		}
	}
	cursor := start
	i := b.lexemeAt(start)
	for i < len(b.lex) && b.lex[i].start < end {
		if len(units) > 0 && b.lex[i].start >= units[0].Start {
			u := units[0]
			units = units[1:]
			add(b.tree.AddGap(syntax.Span{Start: cursor, End: u.Start}))
			add(b.tree.AddNode("Stmt", b.sequence(u.Start, u.End, nil)))
			cursor = u.End
			for i < len(b.lex) && b.lex[i].start < cursor {
				i++
			}
			continue
		}
		lx := b.lex[i]
		add(b.tree.AddGap(syntax.Span{Start: cursor, End: lx.start}))
		add(b.token(lx))
		cursor = lx.end
		i++
	}
	add(b.tree.AddGap(syntax.Span{Start: cursor, End: end}))
	return ids
}

func (b *builder) lexemeAt(offset int) int {
	lo, hi := 0, len(b.lex)
	for lo < hi {
		mid := (lo + hi) / 2
		if b.lex[mid].start < offset {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

func (b *builder) token(lx lexeme) syntax.ID {
	span := syntax.Span{Start: lx.start, End: lx.end}
	if lx.tok != token.COMMENT {
		return b.tree.AddToken(lx.tok.String(), span)
	}
	text := string(b.src[lx.start:lx.end])
	c := syntax.Comment{Shape: syntax.ShapeLine, Marker: 2}
	if strings.HasPrefix(text, "/*") {
		c.Shape = syntax.ShapeBlock
	}
	c.Doc = isDirective(text)
	return b.tree.AddComment(span, c)
}

// isDirective reports whether a comment is a tool directive such as
// //go:noinline or //nolint:errcheck. Go has no doc-comment marker, so
// directives are the comments bound to the code that follows them.
func isDirective(c string) bool {
	if !strings.HasPrefix(c, "//") {
		return false
	}
	c = c[2:]
	for _, word := range []string{"line ", "extern ", "export "} {
		if strings.HasPrefix(c, word) {
			return true
		}
	}
	colon := strings.Index(c, ":")
	if colon <= 0 || colon+1 >= len(c) {
		return false
	}
	for i := 0; i <= colon+1; i++ {
		if i == colon {
			continue
		}
		ch := c[i]
		if !('a' <= ch && ch <= 'z' || '0' <= ch && ch <= '9') {
			return false
		}
	}
	return true
}

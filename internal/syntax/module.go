package syntax

import (
	"fmt"
	"strings"
)

// Module is a parsed source file.
type Module struct {
	Tree  *Tree
	Funcs []Func
	Mods  []Mod
}

// Func is a top-level function of a module.
type Func struct {
	Name   string
	Public bool
	// Body is the block node including its braces, or NoID for a function
	// declared without a body.
	Body ID
}

// Mod is a top-level nested module declaration.
type Mod struct {
	Name   string
	Public bool
	// Inline modules carry their items in the same file.
	Inline bool
}

// Func returns the first top-level function called name that has a body.
func (m *Module) Func(name string) (Func, bool) {
	for _, f := range m.Funcs {
		if f.Name == name && f.Body != NoID {
			return f, true
		}
	}
	return Func{}, false
}

// Diagnostic is a single parser complaint.
type Diagnostic struct {
	Line   int
	Column int
	Msg    string
}

func (d Diagnostic) String() string {
	if d.Line == 0 {
		return d.Msg
	}
	return fmt.Sprintf("%d:%d: %s", d.Line, d.Column, d.Msg)
}

// ParseError aggregates every diagnostic reported while parsing one file.
type ParseError struct {
	File        string
	Diagnostics []Diagnostic
}

func (e *ParseError) Error() string {
	msgs := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		msgs[i] = d.String()
	}
	text := strings.Join(msgs, "; ")
	if text == "" {
		text = "syntax error"
	}
	if e.File == "" {
		return text
	}
	return e.File + ": " + text
}

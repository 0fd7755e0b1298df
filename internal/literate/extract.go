package literate

import (
	"fmt"
	"strings"

	"github.com/agentflare-ai/mdbook-lit/internal/syntax"
)

// Body is a function body with its braces removed.
type Body struct {
	Elems []syntax.ID
	// Prefix is the indentation shared by every non-blank line of the body.
	Prefix string
}

// Extract strips the braces of the block node body and computes the shared
// indentation prefix of what remains.
func Extract(tree *syntax.Tree, body syntax.ID) (Body, error) {
	children := tree.At(body).Children
	if err := expectToken(tree, children, 0, "{"); err != nil {
		return Body{}, err
	}
	if err := expectToken(tree, children, len(children)-1, "}"); err != nil {
		return Body{}, err
	}
	elems := children[1 : len(children)-1]

	var text strings.Builder
	for _, id := range elems {
		text.WriteString(tree.Text(id))
	}
	prefix := sharedIndent(text.String())

	if len(elems) > 0 && tree.Kind(elems[0]) == syntax.KindWhitespace {
		elems = elems[1:]
	}
	return Body{Elems: elems, Prefix: prefix}, nil
}

func expectToken(tree *syntax.Tree, children []syntax.ID, i int, want string) error {
	if i < 0 || i >= len(children) || len(children) < 2 {
		return &Error{Kind: KindStructural, Err: fmt.Errorf("%w: missing %q", ErrStructural, want)}
	}
	id := children[i]
	if tree.Kind(id) != syntax.KindToken || tree.Text(id) != want {
		return &Error{Kind: KindStructural, Err: fmt.Errorf("%w: want %q, got %s %q", ErrStructural, want, tree.Kind(id), tree.Text(id))}
	}
	return nil
}

func sharedIndent(text string) string {
	var (
		prefix string
		seen   bool
	)
	for _, line := range strings.Split(text, "\n") {
		ws, ok := indentOf(strings.TrimSuffix(line, "\r"))
		if !ok {
			continue
		}
		if !seen {
			prefix, seen = ws, true
			continue
		}
		prefix = commonPrefix(prefix, ws)
	}
	return prefix
}

// indentOf returns the leading run of spaces and tabs of line. Lines with no
// other character have no indentation to offer.
func indentOf(line string) (string, bool) {
	i := strings.IndexFunc(line, func(r rune) bool { return r != ' ' && r != '\t' })
	if i < 0 {
		return "", false
	}
	return line[:i], true
}

func commonPrefix(a, b string) string {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return a[:i]
		}
	}
	return a[:n]
}

func stripLines(text, prefix string) string {
	if prefix == "" || !strings.Contains(text, prefix) {
		return text
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimPrefix(line, prefix)
	}
	return strings.Join(lines, "\n")
}

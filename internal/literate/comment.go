package literate

import (
	"strings"

	"github.com/agentflare-ai/mdbook-lit/internal/syntax"
)

// NormalizeComment turns the raw text of a plain comment into prose: the
// marker goes, block comments lose their closing "*/", the first line loses one
// leading space and later lines lose the shared indentation prefix.
func NormalizeComment(raw string, c syntax.Comment, prefix string) string {
	text := raw
	if c.Marker <= len(text) {
		text = text[c.Marker:]
	}
	if c.Shape == syntax.ShapeBlock {
		text = strings.TrimSuffix(text, "*/")
	}

	first, rest, multi := strings.Cut(text, "\n")
	var out strings.Builder
	out.WriteString(strings.TrimPrefix(first, " "))
	if !multi {
		return out.String()
	}
	for _, line := range strings.Split(rest, "\n") {
		out.WriteByte('\n')
		out.WriteString(strings.TrimPrefix(line, prefix))
	}
	return out.String()
}

package build

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/agentflare-ai/mdbook-lit/internal/literate"
)

const summaryFile = "SUMMARY.md"

// writePage creates path with its parent directories and writes text to it.
func writePage(file, text string) (err error) {
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return &literate.Error{Kind: literate.KindIO, Path: file, Err: err}
	}
	f, err := os.Create(file)
	if err != nil {
		return &literate.Error{Kind: literate.KindIO, Path: file, Err: err}
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = &literate.Error{Kind: literate.KindIO, Path: file, Err: cerr}
		}
	}()

	w := bufio.NewWriter(f)
	if _, err := w.WriteString(text); err != nil {
		return &literate.Error{Kind: literate.KindIO, Path: file, Err: err}
	}
	if err := w.Flush(); err != nil {
		return &literate.Error{Kind: literate.KindIO, Path: file, Err: err}
	}
	return nil
}

type tocEntry struct {
	title string
	link  string
}

// buildSummary lays out an mdBook SUMMARY.md. Pages nest by directory; a
// mod.md page sits at the level of its directory.
func buildSummary(entries []tocEntry) []byte {
	var buf bytes.Buffer
	buf.WriteString("# Summary\n\n")
	for _, entry := range entries {
		depth := strings.Count(entry.link, "/")
		if depth > 0 && path.Base(entry.link) == "mod.md" {
			depth--
		}
		fmt.Fprintf(&buf, "%s- [%s](%s)\n", strings.Repeat("    ", depth), entry.title, entry.link)
	}
	return buf.Bytes()
}

// pageTitle returns the text of the first ATX heading outside code fences of
// a rendered page, or the file name without extension.
func pageTitle(markdown, rel string) string {
	inFence := false
	for _, line := range strings.Split(markdown, "\n") {
		if strings.HasPrefix(line, "```") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		rest := strings.TrimLeft(line, "#")
		level := len(line) - len(rest)
		if level < 1 || level > 6 || !strings.HasPrefix(rest, " ") {
			continue
		}
		if title := strings.TrimSpace(rest); title != "" {
			return title
		}
	}
	base := path.Base(filepath.ToSlash(rel))
	return strings.TrimSuffix(base, path.Ext(base))
}

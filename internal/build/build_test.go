package build

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/agentflare-ai/mdbook-lit/internal/config"
	"github.com/agentflare-ai/mdbook-lit/internal/lang"
	"github.com/agentflare-ai/mdbook-lit/internal/literate"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// copyTree copies testdata/<name> into a fresh directory.
func copyTree(t *testing.T, name string) string {
	t.Helper()
	src := filepath.Join("testdata", name)
	dst := t.TempDir()
	err := filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0o644)
	})
	require.NoError(t, err)
	return dst
}

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

func newBuilder(t *testing.T, srcDir string) *Builder {
	cfg := config.DefaultConfig()
	cfg.SourceDir = srcDir
	cfg.OutDir = filepath.Join(t.TempDir(), "out")
	return &Builder{Config: cfg, Registry: lang.Default(), Logger: zaptest.NewLogger(t)}
}

func readPage(t *testing.T, b *Builder, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(b.Config.OutDir, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

func TestBuildRustBook(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	b := newBuilder(t, filepath.Join(copyTree(t, "rustbook"), "src"))
	b.Logger = zap.New(core)

	res, err := b.Build(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"lib.md", "chapter1.md", "chapter2.md", "chapter2/section.md"}, res.Pages)
	require.Equal(t, []string{"appendix/mod.rs"}, res.Skipped)

	require.Equal(t, "# Introduction\n\nStart here.\n", readPage(t, b, "lib.md"))
	require.Equal(t, "# Chapter 1\n\n"+
		"Any function called `body` will have its body converted to Markdown:\n\n"+
		"- Non-doc comments are interpreted as Markdown\n\n"+
		"```rust\nprintln!(\"Anything else is interpreted as Rust code\");\n```\n\n"+
		"- Any other top level items are ignored.\n", readPage(t, b, "chapter1.md"))
	require.Equal(t, "# Chapter 2\n\n```rust\nlet answer = 42;\n```\n", readPage(t, b, "chapter2.md"))
	require.Equal(t, "## A section\n\n```rust\n/// Documented.\nfn helper() {}\n```\n", readPage(t, b, "chapter2/section.md"))

	require.Equal(t, "# Summary\n\n"+
		"- [Introduction](lib.md)\n"+
		"- [Chapter 1](chapter1.md)\n"+
		"- [Chapter 2](chapter2.md)\n"+
		"    - [A section](chapter2/section.md)\n", readPage(t, b, summaryFile))

	require.NoFileExists(t, filepath.Join(b.Config.OutDir, "appendix", "mod.md"))
	require.Equal(t, 1, logs.FilterMessage("skipping inline module").Len())
}

func TestBuildNonRecursive(t *testing.T) {
	b := newBuilder(t, filepath.Join(copyTree(t, "rustbook"), "src"))
	b.Config.Recursive = false
	b.Config.Summary = false

	res, err := b.Build(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"lib.md"}, res.Pages)
	require.NoFileExists(t, filepath.Join(b.Config.OutDir, summaryFile))
}

func TestBuildFenceOptions(t *testing.T) {
	b := newBuilder(t, filepath.Join(copyTree(t, "rustbook"), "src"))
	b.Config.Fence = config.FenceConfig{Lang: "rust2021", NoVerify: true}

	_, err := b.Build(context.Background())
	require.NoError(t, err)
	require.Contains(t, readPage(t, b, "chapter2.md"), "```rust2021,ignore\n")
}

func TestBuildIsIdempotent(t *testing.T) {
	b := newBuilder(t, filepath.Join(copyTree(t, "rustbook"), "src"))
	_, err := b.Build(context.Background())
	require.NoError(t, err)
	first := readPage(t, b, "chapter1.md")

	_, err = b.Build(context.Background())
	require.NoError(t, err)
	require.Equal(t, first, readPage(t, b, "chapter1.md"))
}

func TestBuildMissingModule(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"lib.rs": "pub mod gone;\n\npub fn body() {}\n"})

	_, err := newBuilder(t, dir).Build(context.Background())
	require.Error(t, err)
	require.True(t, errors.Is(err, os.ErrNotExist))
	require.Equal(t, literate.KindIO, literate.KindOf(err))
	require.ErrorContains(t, err, "gone.rs")
}

func TestBuildCollectsEveryFailure(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"lib.rs":   "pub mod a;\npub mod b;\npub mod c;\n",
		"a.rs":     "pub fn body( {\n",
		"b/mod.rs": "pub fn body() {\n    let = ;\n}\n",
		"c.rs":     "pub fn body() {\n    // fine\n}\n",
	})

	_, err := newBuilder(t, dir).Build(context.Background())
	require.Error(t, err)
	require.ErrorContains(t, err, "a.rs")
	require.ErrorContains(t, err, "b/mod.rs")
	require.NotContains(t, err.Error(), "\n")
	require.Equal(t, literate.KindParse, literate.KindOf(err))
}

func TestBuildRequiresDirectories(t *testing.T) {
	b := &Builder{Config: config.DefaultConfig(), Registry: lang.Default()}
	_, err := b.Build(context.Background())
	require.Equal(t, literate.KindEnvironment, literate.KindOf(err))
}

const introGo = `package gobook

func body() {
	// # Intro
	x := 1
	_ = x
}
`

const partGo = `package part

func body() {
	// # Part
}
`

func TestBuildGoBook(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"go.mod":       "module example.com/gobook\n\ngo 1.21\n",
		"intro.go":     introGo,
		"helper.go":    "package gobook\n\nfunc helper() {}\n",
		"part/part.go": partGo,
	})
	b := newBuilder(t, dir)
	b.Config.Root = "."

	res, err := b.Build(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"intro.md", "part/part.md"}, res.Pages)
	require.Equal(t, []string{"helper.go"}, res.Skipped)
	require.Equal(t, "# Intro\n\n```go\nx := 1\n_ = x\n```\n", readPage(t, b, "intro.md"))
	require.Equal(t, "# Part\n", readPage(t, b, "part/part.md"))
}

func TestModuleFile(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"a.rs":        "",
		"b/mod.rs":    "",
		"a/c.rs":      "",
		"b/d/mod.rs":  "",
		"bin/main.rs": "",
		"bin/e.rs":    "",
	})
	b := newBuilder(t, dir)
	tests := []struct {
		parent, name, want string
	}{
		{"lib.rs", "a", "a.rs"},
		{"lib.rs", "b", "b/mod.rs"},
		{"a.rs", "c", "a/c.rs"},
		{"b/mod.rs", "d", "b/d/mod.rs"},
		{"bin/main.rs", "e", "bin/e.rs"},
	}
	for _, tt := range tests {
		got, err := b.moduleFile(tt.parent, tt.name)
		require.NoError(t, err, "%s -> %s", tt.parent, tt.name)
		require.Equal(t, tt.want, got)
	}
}

func TestBuildPatterns(t *testing.T) {
	require.Equal(t, []string{"."}, buildPatterns("", false))
	require.Equal(t, []string{"./..."}, buildPatterns(".", true))
	require.Equal(t, []string{"./book/..."}, buildPatterns("./book", true))
	require.Equal(t, []string{"./book/..."}, buildPatterns("./book/", true))
	require.Equal(t, []string{"./x/..."}, buildPatterns("./x/...", true))
}

func TestPageTitle(t *testing.T) {
	require.Equal(t, "Title", pageTitle("\n\n```rust\n#[derive(Debug)]\n```\n\n## Title\n", "a.rs"))
	require.Equal(t, "chapter", pageTitle("#hashtag\n", "src/chapter.rs"))
}

func TestWatchRebuildsOnChange(t *testing.T) {
	src := filepath.Join(copyTree(t, "rustbook"), "src")
	b := newBuilder(t, src)
	b.Config.Watch.Debounce = "20ms"

	ctx, cancel := context.WithCancel(context.Background())
	builds := make(chan error, 16)
	done := make(chan error, 1)
	go func() {
		done <- b.Watch(ctx, func(_ *Result, err error) { builds <- err })
	}()

	select {
	case err := <-builds:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for the first build")
	}

	writeFiles(t, src, map[string]string{
		"chapter2.rs": "pub mod section;\n\npub fn body() {\n    // # Chapter Two\n}\n",
	})
	// A single save may reach the watcher as several events; wait until a
	// build has picked up the new content.
	deadline := time.After(10 * time.Second)
	for {
		select {
		case err := <-builds:
			require.NoError(t, err)
		case <-deadline:
			t.Fatal("timed out waiting for a rebuild")
		}
		if data, err := os.ReadFile(filepath.Join(b.Config.OutDir, "chapter2.md")); err == nil && string(data) == "# Chapter Two\n" {
			break
		}
	}

	cancel()
	require.NoError(t, <-done)
}

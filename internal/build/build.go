// Package build renders a whole tree of literate sources into a directory of
// Markdown pages, the way a Cargo build script or `mdbook-lit build` does.
package build

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/agentflare-ai/mdbook-lit/internal/config"
	"github.com/agentflare-ai/mdbook-lit/internal/lang"
	"github.com/agentflare-ai/mdbook-lit/internal/literate"
	"github.com/agentflare-ai/mdbook-lit/internal/syntax"
)

// Builder renders the sources under Config.SourceDir into Config.OutDir.
type Builder struct {
	Config   *config.Config
	Registry *lang.Registry
	Logger   *zap.Logger
}

// page is one source file of the book.
type page struct {
	// rel is the path below the source directory.
	rel string
	fe  lang.Frontend
	// mod is set when discovery already parsed the file.
	mod *syntax.Module
}

// Result lists what a build produced.
type Result struct {
	// Pages are the written Markdown files, relative to the output directory.
	Pages []string
	// Skipped are the sources without a body function.
	Skipped []string
}

// Build discovers every page, renders them concurrently and writes the
// Markdown files. Every page failure is reported in the joined error.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	if err := b.Config.Validate(); err != nil {
		return nil, err
	}
	pages, err := b.discover(ctx)
	if err != nil {
		return nil, err
	}

	rendered := make([]*string, len(pages))
	errs := make([]error, len(pages))
	var g errgroup.Group
	g.SetLimit(b.jobs())
	for i, pg := range pages {
		g.Go(func() error {
			text, ok, err := b.render(ctx, pg)
			if err != nil {
				errs[i] = err
				return nil
			}
			if !ok {
				b.logger().Debug("no body function", zap.String("source", pg.rel))
				return nil
			}
			if err := writePage(b.outPath(pg.rel), text); err != nil {
				errs[i] = err
				return nil
			}
			rendered[i] = &text
			b.logger().Debug("wrote page", zap.String("source", pg.rel))
			return nil
		})
	}
	_ = g.Wait()

	res := &Result{}
	var entries []tocEntry
	for i, pg := range pages {
		switch {
		case errs[i] != nil:
		case rendered[i] == nil:
			res.Skipped = append(res.Skipped, pg.rel)
		default:
			link := pageLink(pg.rel)
			res.Pages = append(res.Pages, link)
			entries = append(entries, tocEntry{title: pageTitle(*rendered[i], pg.rel), link: link})
		}
	}
	if err := literate.Join(errs...); err != nil {
		return res, err
	}
	if b.Config.Summary && len(entries) > 0 {
		if err := writePage(filepath.Join(b.Config.OutDir, summaryFile), string(buildSummary(entries))); err != nil {
			return res, err
		}
	}
	b.logger().Info("book built",
		zap.String("out", b.Config.OutDir),
		zap.Int("pages", len(res.Pages)),
		zap.Int("skipped", len(res.Skipped)))
	return res, nil
}

func (b *Builder) render(ctx context.Context, pg page) (string, bool, error) {
	opts := literate.Options{Lang: pg.fe.FenceLang(), NoVerify: b.Config.Fence.NoVerify}
	if b.Config.Fence.Lang != "" {
		opts.Lang = b.Config.Fence.Lang
	}
	if pg.mod != nil {
		text, ok, err := literate.RenderModule(pg.mod, opts)
		return text, ok, literate.Wrap(literate.KindStructural, pg.rel, err)
	}
	src, err := os.ReadFile(filepath.Join(b.Config.SourceDir, pg.rel))
	if err != nil {
		return "", false, &literate.Error{Kind: literate.KindIO, Path: pg.rel, Err: err}
	}
	return literate.TransformModule(ctx, pg.fe, pg.rel, src, opts)
}

// outPath maps a source path to its page: chapter1.rs becomes chapter1.md.
func (b *Builder) outPath(rel string) string {
	return filepath.Join(b.Config.OutDir, filepath.FromSlash(pageLink(rel)))
}

func pageLink(rel string) string {
	rel = filepath.ToSlash(rel)
	return strings.TrimSuffix(rel, filepath.Ext(rel)) + ".md"
}

func (b *Builder) logger() *zap.Logger {
	if b.Logger == nil {
		return zap.NewNop()
	}
	return b.Logger
}

func (b *Builder) jobs() int {
	if b.Config.Jobs > 0 {
		return b.Config.Jobs
	}
	return runtime.GOMAXPROCS(0)
}

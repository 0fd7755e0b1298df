package book

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/mod/semver"
	"golang.org/x/sync/errgroup"

	"github.com/agentflare-ai/mdbook-lit/internal/lang"
	"github.com/agentflare-ai/mdbook-lit/internal/literate"
)

// SupportedVersion is the mdBook release line the protocol types follow.
const SupportedVersion = "v0.4"

// DefaultName is the key of the preprocessor table in book.toml.
const DefaultName = "lit"

// Settings are read from [preprocessor.<name>] in book.toml.
type Settings struct {
	FenceLang string `json:"fence-lang"`
	NoVerify  bool   `json:"no-verify"`
}

// Preprocessor renders the literate chapters of a book.
type Preprocessor struct {
	Registry *lang.Registry
	Logger   *zap.Logger
	// Name selects the book.toml table holding Settings. Empty means "lit".
	Name string
	// Jobs bounds concurrent chapter renders. Zero means GOMAXPROCS.
	Jobs int
}

// Run reads the [context, book] pair from r and writes the rendered book to
// w. Chapter failures are collected; when any occurred nothing is written.
func (p *Preprocessor) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	bctx, b, err := ParseInput(r)
	if err != nil {
		return err
	}
	p.checkVersion(bctx.MdbookVersion)
	settings, err := p.settings(bctx)
	if err != nil {
		return err
	}
	if err := p.Process(ctx, b, settings); err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(b); err != nil {
		return &literate.Error{Kind: literate.KindIO, Err: fmt.Errorf("write book: %w", err)}
	}
	return nil
}

// ParseInput decodes the preprocessor input.
func ParseInput(r io.Reader) (*Context, *Book, error) {
	var pair []json.RawMessage
	if err := json.NewDecoder(r).Decode(&pair); err != nil {
		return nil, nil, fmt.Errorf("read preprocessor input: %w", err)
	}
	if len(pair) != 2 {
		return nil, nil, fmt.Errorf("read preprocessor input: expected [context, book], got %d elements", len(pair))
	}
	var c Context
	if err := json.Unmarshal(pair[0], &c); err != nil {
		return nil, nil, fmt.Errorf("read preprocessor context: %w", err)
	}
	var b Book
	if err := json.Unmarshal(pair[1], &b); err != nil {
		return nil, nil, fmt.Errorf("read book: %w", err)
	}
	return &c, &b, nil
}

// Process replaces the content of every chapter that has a body function.
func (p *Preprocessor) Process(ctx context.Context, b *Book, settings Settings) error {
	chapters := Chapters(b.Sections)
	rendered := make([]*string, len(chapters))
	errs := make([]error, len(chapters))

	var g errgroup.Group
	g.SetLimit(p.jobs())
	for i, ch := range chapters {
		if ch.Path == nil {
			continue
		}
		fe, ok := p.Registry.ForPath(*ch.Path)
		if !ok {
			continue
		}
		g.Go(func() error {
			opts := literate.Options{Lang: fe.FenceLang(), NoVerify: settings.NoVerify}
			if settings.FenceLang != "" {
				opts.Lang = settings.FenceLang
			}
			text, ok, err := literate.TransformModule(ctx, fe, *ch.Path, []byte(ch.Content), opts)
			switch {
			case err != nil:
				errs[i] = err
			case ok:
				rendered[i] = &text
				p.logger().Debug("rendered chapter", zap.String("path", *ch.Path))
			default:
				p.logger().Debug("chapter has no body function", zap.String("path", *ch.Path))
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := literate.Join(errs...); err != nil {
		return err
	}
	for i, text := range rendered {
		if text != nil {
			chapters[i].Content = *text
		}
	}
	return nil
}

func (p *Preprocessor) settings(c *Context) (Settings, error) {
	var cfg struct {
		Preprocessor map[string]json.RawMessage `json:"preprocessor"`
	}
	if len(c.Config) == 0 {
		return Settings{}, nil
	}
	if err := json.Unmarshal(c.Config, &cfg); err != nil {
		return Settings{}, fmt.Errorf("read book config: %w", err)
	}
	name := p.Name
	if name == "" {
		name = DefaultName
	}
	var s Settings
	raw, ok := cfg.Preprocessor[name]
	if !ok {
		return s, nil
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return Settings{}, fmt.Errorf("read [preprocessor.%s]: %w", name, err)
	}
	return s, nil
}

func (p *Preprocessor) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}

func (p *Preprocessor) jobs() int {
	if p.Jobs > 0 {
		return p.Jobs
	}
	return runtime.GOMAXPROCS(0)
}

// checkVersion logs when mdBook is outside the SupportedVersion line. The
// book is still processed: the protocol types have been stable across
// releases.
func (p *Preprocessor) checkVersion(version string) {
	v := "v" + version
	switch {
	case !semver.IsValid(v):
		p.logger().Error("mdBook version is not valid semver",
			zap.String("mdbook_version", version),
			zap.String("supported", SupportedVersion))
	case semver.MajorMinor(v) != SupportedVersion:
		p.logger().Warn("mdBook version does not match the supported release line",
			zap.String("mdbook_version", version),
			zap.String("supported", SupportedVersion))
	}
}

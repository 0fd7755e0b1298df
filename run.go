package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/glamour"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/agentflare-ai/mdbook-lit/internal/book"
	"github.com/agentflare-ai/mdbook-lit/internal/build"
	"github.com/agentflare-ai/mdbook-lit/internal/config"
	"github.com/agentflare-ai/mdbook-lit/internal/lang"
	"github.com/agentflare-ai/mdbook-lit/internal/literate"
	"github.com/agentflare-ai/mdbook-lit/internal/logging"
)

type options struct {
	verbose bool

	// render
	outputPath string
	preview    bool
	fenceLang  string
	noVerify   bool

	// build
	configPath string
	srcDir     string
	outDir     string
	root       string
	recursive  bool
	jobs       int
	watch      bool

	// init
	force bool
}

type cliApp struct {
	argv     []string
	stdin    io.Reader
	stdout   io.Writer
	stderr   io.Writer
	getenv   func(string) string
	registry *lang.Registry
	logger   *zap.Logger
	opts     options
}

// usageError reports an argument shape the CLI does not accept. The usage
// text has already been written when it is returned.
type usageError struct {
	args []string
}

func (e *usageError) Error() string {
	return "invalid arguments: " + strings.Join(e.args, " ")
}

const usageText = `Invalid arguments: %s

Usage:
    mdbook-lit
    mdbook-lit supports [OUTPUT_FORMAT]
    mdbook-lit render FILE [-o OUT] [--preview]
    mdbook-lit build [--config FILE] [--src DIR] [--out DIR] [--watch]
    mdbook-lit init [--config FILE] [--force]

Run "mdbook-lit --help" for every command and flag.
`

func run(ctx context.Context, argv []string, stdin io.Reader, stdout, stderr io.Writer) error {
	app := &cliApp{
		argv:     argv,
		stdin:    stdin,
		stdout:   stdout,
		stderr:   stderr,
		getenv:   os.Getenv,
		registry: lang.Default(),
	}
	cmd := newRootCmd(app)
	if argv == nil {
		argv = []string{}
	}
	cmd.SetArgs(argv)
	err := cmd.ExecuteContext(ctx)
	var usage *usageError
	if errors.As(err, &usage) {
		fmt.Fprintf(stderr, usageText, strings.Join(usage.args, " "))
	}
	return err
}

func (app *cliApp) initLogger(level zapcore.Level) {
	app.logger = logging.New(app.stderr, level, app.opts.verbose)
}

// preprocess runs the mdBook preprocessor protocol on stdin and stdout.
func (app *cliApp) preprocess(ctx context.Context) error {
	p := &book.Preprocessor{Registry: app.registry, Logger: app.logger}
	return p.Run(ctx, app.stdin, app.stdout)
}

// render renders a single source file.
func (app *cliApp) render(ctx context.Context, path string) error {
	opts := app.opts
	if opts.preview && opts.outputPath != "" {
		return errors.New("--preview cannot be combined with -o")
	}
	fe, ok := app.registry.ForPath(path)
	if !ok {
		return fmt.Errorf("%s: unsupported source (known extensions: %s)", path, strings.Join(app.registry.Extensions(), ", "))
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return &literate.Error{Kind: literate.KindIO, Path: path, Err: err}
	}
	lo := literate.Options{Lang: fe.FenceLang(), NoVerify: opts.noVerify}
	if opts.fenceLang != "" {
		lo.Lang = opts.fenceLang
	}
	text, ok, err := literate.TransformModule(ctx, fe, path, src, lo)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s: no top-level function named %s", path, literate.BodyFunc)
	}
	if opts.preview {
		return app.preview(text)
	}
	return writeOutput(opts.outputPath, path, app.stdout, []byte(text))
}

func (app *cliApp) preview(markdown string) error {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return fmt.Errorf("preview: %w", err)
	}
	out, err := r.Render(markdown)
	if err != nil {
		return fmt.Errorf("preview: %w", err)
	}
	_, err = io.WriteString(app.stdout, out)
	return err
}

func (app *cliApp) configPath() string {
	if app.opts.configPath != "" {
		return app.opts.configPath
	}
	return config.FileName
}

// loadConfig reads the build configuration and applies the flags the user
// set, then the Cargo build-script environment.
func (app *cliApp) loadConfig(changed func(string) bool) (*config.Config, error) {
	cfg, err := config.Load(app.configPath())
	if err != nil {
		return nil, err
	}
	app.applyFlags(cfg, changed)
	cfg.ApplyEnv(app.getenv)
	return cfg, nil
}

func (app *cliApp) applyFlags(cfg *config.Config, changed func(string) bool) {
	opts := app.opts
	if changed("src") {
		cfg.SourceDir = opts.srcDir
	}
	if changed("out") {
		cfg.OutDir = opts.outDir
	}
	if changed("root") {
		cfg.Root = opts.root
	}
	if changed("recursive") {
		cfg.Recursive = opts.recursive
	}
	if changed("jobs") {
		cfg.Jobs = opts.jobs
	}
	if changed("fence-lang") {
		cfg.Fence.Lang = opts.fenceLang
	}
	if changed("no-verify") {
		cfg.Fence.NoVerify = opts.noVerify
	}
}

// writeConfig writes a configuration file from the defaults and the flags
// the user set. The Cargo environment is not recorded.
func (app *cliApp) writeConfig(changed func(string) bool) error {
	path := app.configPath()
	if !app.opts.force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}
	cfg := config.DefaultConfig()
	// Zero means one job per CPU of the machine running the build.
	cfg.Jobs = 0
	app.applyFlags(cfg, changed)
	if err := cfg.Save(path); err != nil {
		return &literate.Error{Kind: literate.KindIO, Path: path, Err: err}
	}
	app.logger.Info("wrote configuration", zap.String("path", path))
	return nil
}

// build renders a whole source tree into the output directory.
func (app *cliApp) build(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	lvl, _ := cfg.Level()
	app.initLogger(lvl)
	b := &build.Builder{Config: cfg, Registry: app.registry, Logger: app.logger}

	if !app.opts.watch {
		_, err := b.Build(ctx)
		return err
	}
	return b.Watch(ctx, func(_ *build.Result, err error) {
		if err != nil {
			app.logger.Error("build failed", zap.Error(err))
		}
	})
}

// docsDir is where gen-docs writes when no directory is given: a cli/
// folder inside the book's sources.
func (app *cliApp) docsDir() (string, error) {
	cfg, err := config.Load(app.configPath())
	if err != nil {
		return "", err
	}
	cfg.ApplyEnv(app.getenv)
	if cfg.SourceDir == "" {
		return "", &literate.Error{
			Kind: literate.KindEnvironment,
			Err:  errors.New("no directory given and no source directory configured"),
		}
	}
	return filepath.Join(cfg.SourceDir, "cli"), nil
}

// summaryLines lists the generated reference pages in SUMMARY.md syntax,
// linked relative to the directory above dir.
func summaryLines(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var lines []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ".md" {
			continue
		}
		title := strings.ReplaceAll(strings.TrimSuffix(name, ".md"), "_", " ")
		link := filepath.ToSlash(filepath.Join(filepath.Base(dir), name))
		lines = append(lines, fmt.Sprintf("- [%s](%s)", title, link))
	}
	return lines, nil
}

// writeOutput writes a rendered page to stdout, to the file path, or into the
// directory path as <source stem>.md.
func writeOutput(path, source string, stdout io.Writer, data []byte) error {
	if path == "" || path == "-" {
		_, err := stdout.Write(data)
		return err
	}
	if strings.HasSuffix(path, "/") || strings.HasSuffix(path, string(filepath.Separator)) || isDir(path) {
		stem := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
		path = filepath.Join(path, stem+".md")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &literate.Error{Kind: literate.KindIO, Path: path, Err: err}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &literate.Error{Kind: literate.KindIO, Path: path, Err: err}
	}
	return nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

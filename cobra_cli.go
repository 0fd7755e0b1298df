package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	cobradoc "github.com/spf13/cobra/doc"
	"github.com/spf13/pflag"
	"go.uber.org/zap/zapcore"

	"github.com/agentflare-ai/mdbook-lit/internal/config"
	"github.com/agentflare-ai/mdbook-lit/internal/literate"
)

const rootLongDesc = `
mdbook-lit turns source files into book chapters. The body of a top-level
function named body becomes Markdown: its comments are the prose, everything
else lands in fenced code blocks. Rust (.rs) and Go (.go) sources are
supported.

Run without arguments it is an mdBook preprocessor. Add it to book.toml:

  [preprocessor.lit]
  command = "mdbook-lit"
  fence-lang = "rust"   # optional info string override
  no-verify = false     # mark fences ",ignore" for mdbook test

It can also render a single file (render) or a whole source tree into a
directory of pages (build), which is what a Cargo build script needs.
`

func newRootCmd(app *cliApp) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "mdbook-lit",
		Short:         "Render literate Rust and Go sources as mdBook chapters",
		Long:          strings.TrimSpace(rootLongDesc),
		Args:          noArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			app.initLogger(zapcore.InfoLevel)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = app.logger.Sync()
		},
	}
	cmd.DisableAutoGenTag = true
	cmd.Version = Version
	cmd.SetIn(app.stdin)
	cmd.SetOut(app.stdout)
	cmd.SetErr(app.stderr)
	cmd.CompletionOptions.DisableDefaultCmd = true
	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return &usageError{args: app.argv}
	})

	cmd.PersistentFlags().BoolVarP(&app.opts.verbose, "verbose", "v", false, "log debug output to stderr")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return app.preprocess(cmd.Context())
	}

	cmd.AddCommand(newSupportsCmd())
	cmd.AddCommand(newRenderCmd(app))
	cmd.AddCommand(newBuildCmd(app))
	cmd.AddCommand(newInitCmd(app))
	cmd.AddCommand(newCompletionCmd())
	cmd.AddCommand(newDocsCmd(app))
	return cmd
}

func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return &usageError{args: args}
	}
	return nil
}

func newSupportsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "supports [OUTPUT_FORMAT]",
		Short: "Report that every mdBook renderer is supported",
		Long: strings.TrimSpace(`
mdBook asks every preprocessor whether it supports the active renderer before
running it. The rendered chapters are plain Markdown, so the answer is always
yes (exit status 0).
`),
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return &usageError{args: append([]string{"supports"}, args...)}
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
	}
}

func newRenderCmd(app *cliApp) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render FILE",
		Short: "Render one source file as Markdown",
		Long: strings.TrimSpace(`
Render the body function of FILE and print the Markdown, or write it to the
file named by -o. --preview shows the page formatted for the terminal instead.

Example:

  mdbook-lit render src/chapter1.rs -o book/chapter1.md
`),
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := cmd.Flags()
	flags.StringVarP(&app.opts.outputPath, "output", "o", "", "write Markdown to FILE, or into DIR as <name>.md, instead of stdout")
	flags.BoolVar(&app.opts.preview, "preview", false, "render the Markdown for the terminal")
	flags.StringVar(&app.opts.fenceLang, "fence-lang", "", "info string of code fences (default: source language)")
	flags.BoolVar(&app.opts.noVerify, "no-verify", false, `append ",ignore" to code fences`)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return app.render(cmd.Context(), args[0])
	}
	return cmd
}

func newBuildCmd(app *cliApp) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Render a source tree into a directory of Markdown pages",
		Long: strings.TrimSpace(`
Render every page of a book. Rust books start at the root file (lib.rs) and
follow public out-of-line modules; any other root is a Go package pattern.

Settings come from litbook.yaml when present; flags override them. Unset
directories fall back to $CARGO_MANIFEST_DIR/src and $OUT_DIR/rust-book, so a
Cargo build script can simply run:

  mdbook-lit build
`),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := cmd.Flags()
	addConfigFlags(flags, &app.opts)
	flags.BoolVarP(&app.opts.watch, "watch", "w", false, "rebuild when sources change")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := app.loadConfig(cmd.Flags().Changed)
		if err != nil {
			return err
		}
		return app.build(cmd.Context(), cfg)
	}
	return cmd
}

// addConfigFlags registers the flags that override litbook.yaml.
func addConfigFlags(flags *pflag.FlagSet, opts *options) {
	flags.StringVar(&opts.configPath, "config", "", "configuration file (default "+config.FileName+")")
	flags.StringVar(&opts.srcDir, "src", "", "source directory")
	flags.StringVar(&opts.outDir, "out", "", "output directory")
	flags.StringVar(&opts.root, "root", "", `root file of a Rust book, or a Go package pattern (default "lib.rs")`)
	flags.BoolVar(&opts.recursive, "recursive", true, "follow nested modules and packages")
	flags.IntVarP(&opts.jobs, "jobs", "j", 0, "pages rendered concurrently (default: number of CPUs)")
	flags.StringVar(&opts.fenceLang, "fence-lang", "", "info string of code fences (default: source language)")
	flags.BoolVar(&opts.noVerify, "no-verify", false, `append ",ignore" to code fences`)
}

func newInitCmd(app *cliApp) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a " + config.FileName + " for the build command",
		Long: strings.TrimSpace(`
Write the build configuration with its defaults, overridden by the flags
given. An existing file is kept unless --force is set.

Example:

  mdbook-lit init --src src --out book/src --root lib.rs
`),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := cmd.Flags()
	addConfigFlags(flags, &app.opts)
	flags.BoolVar(&app.opts.force, "force", false, "overwrite an existing configuration file")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return app.writeConfig(cmd.Flags().Changed)
	}
	return cmd
}

var completions = map[string]func(root *cobra.Command, w io.Writer) error{
	"bash":       func(root *cobra.Command, w io.Writer) error { return root.GenBashCompletionV2(w, true) },
	"zsh":        func(root *cobra.Command, w io.Writer) error { return root.GenZshCompletion(w) },
	"fish":       func(root *cobra.Command, w io.Writer) error { return root.GenFishCompletion(w, true) },
	"powershell": func(root *cobra.Command, w io.Writer) error { return root.GenPowerShellCompletionWithDesc(w) },
}

func newCompletionCmd() *cobra.Command {
	shells := make([]string, 0, len(completions))
	for shell := range completions {
		shells = append(shells, shell)
	}
	sort.Strings(shells)

	return &cobra.Command{
		Use:   "completion SHELL",
		Short: "Generate shell completion scripts",
		Long: strings.TrimSpace(`
Print the completion script for SHELL (` + strings.Join(shells, ", ") + `).
Book authors usually install it once next to mdbook's own:

  mdbook-lit completion bash > ~/.local/share/bash-completion/completions/mdbook-lit
  mdbook-lit completion fish > ~/.config/fish/completions/mdbook-lit.fish
`),
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs:             shells,
		SilenceUsage:          true,
		SilenceErrors:         true,
		DisableFlagsInUseLine: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return completions[args[0]](cmd.Root(), cmd.OutOrStdout())
		},
	}
}

const docsHeader = "<!-- Generated by mdbook-lit gen-docs. Do not edit. -->\n\n"

func newDocsCmd(app *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "gen-docs [DIR]",
		Short: "Generate the CLI reference as book chapters",
		Long: strings.TrimSpace(`
Write one Markdown page per command into DIR and print the matching
SUMMARY.md entries. Without DIR the pages go to cli/ inside the book's
source directory (source_dir in ` + config.FileName + `, or
$CARGO_MANIFEST_DIR/src).

Example:

  mdbook-lit gen-docs book/src/cli >> book/src/SUMMARY.md
`),
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var target string
			if len(args) == 1 {
				target = args[0]
			} else {
				dir, err := app.docsDir()
				if err != nil {
					return err
				}
				target = dir
			}
			if err := os.MkdirAll(target, 0o755); err != nil {
				return &literate.Error{Kind: literate.KindIO, Path: target, Err: err}
			}
			prepend := func(string) string { return docsHeader }
			link := func(name string) string { return name }
			if err := cobradoc.GenMarkdownTreeCustom(cmd.Root(), target, prepend, link); err != nil {
				return err
			}
			lines, err := summaryLines(target)
			if err != nil {
				return err
			}
			for _, line := range lines {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}
}

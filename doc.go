// # mdbook-lit
//
// `mdbook-lit` turns source files into book chapters. Inside a top-level
// function named `body`, ordinary comments become the prose of the chapter and
// everything else is printed as fenced code, so a chapter is a program that
// compiles and a page that reads well at the same time.
//
// Rust (`.rs`) and Go (`.go`) chapters are supported. Rust sources are parsed
// with tree-sitter; Go sources with the standard `go/parser`.
//
// Key capabilities:
//
//   - act as an mdBook preprocessor: every chapter whose path ends in a
//     supported extension and that defines `body` is replaced by its rendering.
//   - keep doc comments (`///`, `//!`, `/** */`, `/*! */`) and Go directives
//     with the code they describe instead of turning them into prose.
//   - strip the indentation shared by the whole body, so prose and code start
//     at column zero.
//   - render a single file to stdout, a file, or a terminal preview.
//   - build a whole source tree into a directory of pages plus a
//     `SUMMARY.md`, following Rust modules or Go packages, optionally
//     rebuilding on every change.
//
// ## Usage
//
//	mdbook-lit                                # preprocessor mode (stdin/stdout)
//	mdbook-lit supports html                  # always exits 0
//	mdbook-lit render src/chapter1.rs         # print Markdown
//	mdbook-lit render src/chapter1.rs -o chapter1.md
//	mdbook-lit render --preview src/chapter1.rs
//	mdbook-lit build --src src --out book/src --watch
//
// ## A chapter
//
//	pub fn body() {
//	    // # Chapter 1
//	    //
//	    // Any function called `body` will have its body converted to Markdown.
//	    println!("Anything else is interpreted as Rust code");
//	}
//
// renders as
//
//	# Chapter 1
//
//	Any function called `body` will have its body converted to Markdown.
//
//	```rust
//	println!("Anything else is interpreted as Rust code");
//	```
//
// ## mdBook
//
// Register the preprocessor in `book.toml`:
//
//	[preprocessor.lit]
//	command = "mdbook-lit"
//	fence-lang = "rust"   # optional, defaults to the source language
//	no-verify = true      # optional, emits ```rust,ignore fences
//
// and list the source files in `SUMMARY.md` as if they were Markdown pages.
//
// ## Build mode
//
// `build` reads `litbook.yaml` when it exists:
//
//	source_dir: src
//	out_dir: book/src
//	root: lib.rs        # a Rust root file, or a Go package pattern such as "."
//	recursive: true
//	jobs: 8
//	summary: true
//	fence:
//	  lang: rust
//	  no_verify: false
//	watch:
//	  debounce: 200ms
//	logging:
//	  level: info
//
// Flags override the file. When no directories are configured the Cargo
// build-script variables are used: sources from `$CARGO_MANIFEST_DIR/src`,
// pages into `$OUT_DIR/rust-book`.
//
// ## Shell Completion
//
//	mdbook-lit completion bash        # bash
//	mdbook-lit completion zsh         # zsh
//	mdbook-lit completion fish | source
//	mdbook-lit completion powershell | Out-String | Invoke-Expression
//
// ## CLI Docs
//
//	mdbook-lit gen-docs ./docs/cli
//
// Every command becomes its own Markdown file under the provided directory.
package main

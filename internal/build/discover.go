package build

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/tools/go/packages"

	"github.com/agentflare-ai/mdbook-lit/internal/literate"
)

// discover lists the pages of the book. A root naming a Rust file starts a
// module walk; any other root is a Go package pattern.
func (b *Builder) discover(ctx context.Context) ([]page, error) {
	root := strings.TrimSpace(b.Config.Root)
	if fe, ok := b.Registry.ForPath(root); ok && fe.Name() == "rust" {
		return b.discoverModules(ctx, filepath.ToSlash(root))
	}
	return b.discoverPackages(ctx, root)
}

// discoverModules walks the module tree rooted at root. Out-of-line public
// modules are followed when the build is recursive.
func (b *Builder) discoverModules(ctx context.Context, root string) ([]page, error) {
	fe, _ := b.Registry.ForPath(root)
	var (
		pages []page
		errs  []error
		seen  = make(map[string]bool)
	)
	var walk func(rel string)
	walk = func(rel string) {
		if seen[rel] {
			return
		}
		seen[rel] = true

		src, err := os.ReadFile(filepath.Join(b.Config.SourceDir, filepath.FromSlash(rel)))
		if err != nil {
			errs = append(errs, &literate.Error{Kind: literate.KindIO, Path: rel, Err: err})
			return
		}
		mod, err := fe.Parse(ctx, rel, src)
		if err != nil {
			errs = append(errs, literate.Wrap(literate.KindParse, rel, err))
			return
		}
		pages = append(pages, page{rel: rel, fe: fe, mod: mod})
		if !b.Config.Recursive {
			return
		}
		for _, m := range mod.Mods {
			if !m.Public {
				continue
			}
			if m.Inline {
				b.logger().Info("skipping inline module", zap.String("source", rel), zap.String("module", m.Name))
				continue
			}
			child, err := b.moduleFile(rel, m.Name)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			walk(child)
		}
	}
	walk(root)
	return pages, literate.Join(errs...)
}

// moduleFile resolves `mod name;` declared in parent. lib.rs, main.rs and
// mod.rs own their directory; any other x.rs owns x/.
func (b *Builder) moduleFile(parent, name string) (string, error) {
	dir := path.Dir(parent)
	switch base := path.Base(parent); base {
	case "lib.rs", "main.rs", "mod.rs":
	default:
		dir = path.Join(dir, strings.TrimSuffix(base, path.Ext(base)))
	}
	candidates := []string{
		path.Join(dir, name+".rs"),
		path.Join(dir, name, "mod.rs"),
	}
	for _, c := range candidates {
		if _, err := os.Stat(filepath.Join(b.Config.SourceDir, filepath.FromSlash(c))); err == nil {
			return c, nil
		}
	}
	return "", &literate.Error{
		Kind: literate.KindIO,
		Path: parent,
		Err:  fmt.Errorf("module %s: neither %s nor %s exists: %w", name, candidates[0], candidates[1], os.ErrNotExist),
	}
}

// discoverPackages lists every Go file of the packages matched by root below
// the source directory.
func (b *Builder) discoverPackages(ctx context.Context, root string) ([]page, error) {
	fe, ok := b.Registry.ByName("go")
	if !ok {
		return nil, errors.New("no front-end for Go sources")
	}
	pkgs, err := loadPackageTree(ctx, b.Config.SourceDir, buildPatterns(root, b.Config.Recursive))
	if err != nil {
		return nil, &literate.Error{Kind: literate.KindEnvironment, Path: b.Config.SourceDir, Err: err}
	}
	base, err := realPath(b.Config.SourceDir)
	if err != nil {
		return nil, &literate.Error{Kind: literate.KindIO, Path: b.Config.SourceDir, Err: err}
	}

	seen := make(map[string]bool)
	var pages []page
	for _, pkg := range pkgs {
		for _, file := range pkg.GoFiles {
			if resolved, err := realPath(file); err == nil {
				file = resolved
			}
			rel, err := filepath.Rel(base, file)
			if err != nil || strings.HasPrefix(rel, "..") {
				b.logger().Debug("skipping file outside the source directory", zap.String("file", file))
				continue
			}
			rel = filepath.ToSlash(rel)
			if seen[rel] {
				continue
			}
			seen[rel] = true
			pages = append(pages, page{rel: rel, fe: fe})
		}
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].rel < pages[j].rel })
	return pages, nil
}

func loadPackageTree(ctx context.Context, dir string, patterns []string) ([]*packages.Package, error) {
	cfg := &packages.Config{
		Context: ctx,
		Dir:     dir,
		Mode:    packages.NeedName | packages.NeedFiles,
	}
	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, err
	}
	for _, pkg := range pkgs {
		if len(pkg.Errors) > 0 {
			return nil, fmt.Errorf("%s", pkg.Errors[0])
		}
	}
	sort.Slice(pkgs, func(i, j int) bool {
		return pkgs[i].PkgPath < pkgs[j].PkgPath
	})
	return pkgs, nil
}

// realPath returns the absolute path of p with symlinks resolved, so paths
// reported by the go command compare equal to the configured directory.
func realPath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

func buildPatterns(root string, recursive bool) []string {
	if root == "" {
		root = "."
	}
	root = filepath.ToSlash(root)
	if !recursive || strings.Contains(root, "...") {
		return []string{root}
	}
	switch {
	case root == ".":
		return []string{"./..."}
	case strings.HasSuffix(root, "/"):
		return []string{root + "..."}
	default:
		return []string{root + "/..."}
	}
}

package build

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch builds once, then rebuilds whenever a source file changes until ctx
// is done. Bursts of events within the configured debounce window cause a
// single rebuild. onBuild receives the outcome of every build.
func (b *Builder) Watch(ctx context.Context, onBuild func(*Result, error)) error {
	if err := b.Config.Validate(); err != nil {
		return err
	}
	debounce, err := b.Config.DebounceDuration()
	if err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := b.addTree(watcher, b.Config.SourceDir); err != nil {
		return err
	}
	b.logger().Info("watching", zap.String("dir", b.Config.SourceDir), zap.Duration("debounce", debounce))

	onBuild(b.Build(ctx))

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !b.ignored(event.Name) {
					if err := b.addTree(watcher, event.Name); err != nil {
						b.logger().Warn("cannot watch directory", zap.String("dir", event.Name), zap.Error(err))
					}
				}
			}
			if !b.relevant(event) {
				continue
			}
			b.logger().Debug("source changed", zap.String("file", event.Name), zap.Stringer("op", event.Op))
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			b.logger().Warn("watch error", zap.Error(err))

		case <-fire:
			fire = nil
			onBuild(b.Build(ctx))
		}
	}
}

// addTree watches dir and every directory below it except the output
// directory and hidden directories.
func (b *Builder) addTree(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != dir && (strings.HasPrefix(d.Name(), ".") || b.ignored(p)) {
			return filepath.SkipDir
		}
		return w.Add(p)
	})
}

// ignored reports whether p lies inside the output directory.
func (b *Builder) ignored(p string) bool {
	out, err := filepath.Abs(b.Config.OutDir)
	if err != nil {
		return false
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(out, abs)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (b *Builder) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	if b.ignored(event.Name) {
		return false
	}
	_, ok := b.Registry.ForPath(event.Name)
	return ok
}

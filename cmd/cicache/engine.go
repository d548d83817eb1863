package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/raphi011/cicache/internal/archive"
	"github.com/raphi011/cicache/internal/cache"
	"github.com/raphi011/cicache/internal/config"
	"github.com/raphi011/cicache/internal/log"
	"github.com/raphi011/cicache/internal/ui/progress"
)

// engineConfig maps the loaded configuration onto the engine settings.
func engineConfig(cfg *config.Config) cache.Config {
	return cache.Config{
		Enabled:          cfg.Enabled,
		SkipFailure:      cfg.SkipFailure,
		ConcurrencyLimit: cfg.Concurrency,
		Root:             cfg.Dirs.Cache,
	}
}

func newEngine(cfg *config.Config, opts ...cache.Option) *cache.Engine {
	tool := cfg.Tool()
	return cache.New(
		engineConfig(cfg),
		archive.NewWriter(tool),
		archive.NewReader(tool, cfg.SkipFailure),
		opts...,
	)
}

// interactive reports whether progress should be drawn on stderr.
func interactive(cmd *cobra.Command) bool {
	if log.FromContext(cmd.Context()).IsVerbose() {
		return false
	}
	f, ok := cmd.ErrOrStderr().(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// progressUI is the progress display of one save or restore. While it owns
// the terminal line, ctx carries a logger that only prints warnings.
// Off a terminal ctx is the command context and nothing is drawn.
type progressUI struct {
	ctx  context.Context
	opt  cache.Option
	stop func()
}

func newSaveProgress(cmd *cobra.Command, key string, total int) progressUI {
	ctx := cmd.Context()
	if !interactive(cmd) {
		return progressUI{ctx: ctx, opt: cache.WithProgress(func(int, int) {}), stop: func() {}}
	}

	l := log.FromContext(ctx)
	bar := progress.NewBar(cmd.ErrOrStderr(), total, "Saving "+key)
	bar.Start()
	return progressUI{
		ctx:  log.WithLogger(ctx, log.New(l.Writer(), false, true)),
		opt:  cache.WithProgress(bar.SetProgress),
		stop: bar.Stop,
	}
}

func newRestoreProgress(cmd *cobra.Command, key string) progressUI {
	ctx := cmd.Context()
	if !interactive(cmd) {
		return progressUI{ctx: ctx, opt: cache.WithProgress(func(int, int) {}), stop: func() {}}
	}

	l := log.FromContext(ctx)
	sp := progress.NewSpinner(cmd.ErrOrStderr(), "Looking up "+key)
	sp.Start()
	return progressUI{
		ctx: log.WithLogger(ctx, log.New(l.Writer(), false, true)),
		opt: cache.WithProgress(func(done, total int) {
			sp.UpdateMessage(fmt.Sprintf("Restored %s archives", progress.Counter(done, total)))
		}),
		stop: sp.Stop,
	}
}

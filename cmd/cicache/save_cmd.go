package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/raphi011/cicache/internal/cache"
	"github.com/raphi011/cicache/internal/config"
	"github.com/raphi011/cicache/internal/log"
	"github.com/raphi011/cicache/internal/resolve"
	"github.com/raphi011/cicache/internal/state"
)

func newSaveCmd() *cobra.Command {
	var (
		paths       []string
		key         string
		skipFailure bool
		concurrency int
		strict      bool
	)

	cmd := &cobra.Command{
		Use:     "save",
		Short:   "Save paths as a cache entry",
		GroupID: GroupCache,
		Args:    cobra.NoArgs,
		Long: `Archive every --path into the branch cache under the key.

The key defaults to the primary key of the preceding "cicache restore".
Nothing is saved when that restore hit the key exactly.

Paths are one per line or repeated flags. Lines starting with # are
ignored, ~/ expands to $HOME, ** globs are supported and a leading !
excludes matches.

Failures are reported as warnings and do not fail the step unless --strict
is given.`,
		Example: `  cicache save --path ~/.cache/go-build --path ~/go/pkg/mod
  cicache save --key deps-abc --path 'node_modules' --path '!node_modules/.cache'
  cicache save --path "$(printf '%s\n' dist '**/target')"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := *config.FromContext(ctx)
			l := log.FromContext(ctx)

			if cmd.Flags().Changed("skip-failure") {
				cfg.SkipFailure = skipFailure
			}
			if cmd.Flags().Changed("concurrency") {
				cfg.Concurrency = concurrency
			}

			err := runSave(cmd, &cfg, key, paths)
			if err == nil {
				return nil
			}
			if strict {
				return err
			}
			l.Warnf("%v", err)
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&paths, "path", "p", nil, "Path or glob to cache, repeatable or newline separated")
	cmd.Flags().StringVarP(&key, "key", "k", "", "Cache key (default: primary key from restore)")
	cmd.Flags().BoolVar(&skipFailure, "skip-failure", false, "Continue when an archive fails")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "j", config.DefaultConcurrency, "Archives written in parallel")
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail the command on errors instead of warning")
	cmd.MarkFlagRequired("path")

	return cmd
}

// errNoKey reports that neither --key nor a prior restore provided a key.
var errNoKey = errors.New("error retrieving key from state")

func runSave(cmd *cobra.Command, cfg *config.Config, key string, rawPaths []string) error {
	ctx := cmd.Context()
	l := log.FromContext(ctx)

	if !cfg.Enabled {
		l.Warnf("%s", cache.DisabledMessage)
		return nil
	}
	if cfg.Concurrency < 1 {
		return errors.New("--concurrency must be at least 1")
	}

	st, err := state.New(state.DefaultDir(cfg.StateDir)).Load(ctx)
	if err != nil {
		l.Warnf("Failed to read state: %v", err)
	}
	if key == "" {
		key = st.PrimaryKey
	}
	if key == "" {
		return errNoKey
	}

	if cache.IsExactKeyMatch(key, st.MatchedKey) {
		l.Printf("Cache hit occurred on the primary key %s, not saving cache.\n", key)
		return nil
	}

	var lines []string
	for _, p := range rawPaths {
		lines = append(lines, resolve.SplitLines(p)...)
	}
	patterns, err := resolve.ParsePaths(config.WorkDirFromContext(ctx), lines)
	if err != nil {
		return err
	}
	resolved, err := resolve.Resolve(ctx, patterns)
	if err != nil {
		return err
	}

	ui := newSaveProgress(cmd, key, len(resolved))
	n, err := newEngine(cfg, ui.opt).Save(ui.ctx, resolved, key)
	ui.stop()
	if err != nil {
		return err
	}

	l.Printf("Cache saved with key: %s (%d archive%s)\n", key, n, plural(n))
	return nil
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/raphi011/cicache/internal/cache"
	"github.com/raphi011/cicache/internal/config"
	"github.com/raphi011/cicache/internal/log"
	"github.com/raphi011/cicache/internal/output"
	"github.com/raphi011/cicache/internal/resolve"
	"github.com/raphi011/cicache/internal/state"
)

// Step output names.
const (
	outputCacheHit        = "cache-hit"
	outputCacheMatchedKey = "cache-matched-key"
)

func newRestoreCmd() *cobra.Command {
	var (
		key         string
		restoreKeys []string
		lookupOnly  bool
		failOnMiss  bool
		skipFailure bool
	)

	cmd := &cobra.Command{
		Use:     "restore",
		Short:   "Restore a cache entry",
		GroupID: GroupCache,
		Args:    cobra.NoArgs,
		Long: `Restore the cache entry for --key, falling back to each --restore-keys
entry in order.

For every key the cache roots are searched in order (branch, main branch,
default branch) and the first root holding the key wins. The primary key is
remembered so a later "cicache save" in the same job can reuse it.

Step outputs:
  cache-hit          true when the restored key matches --key exactly
  cache-matched-key  the key that was restored`,
		Example: `  cicache restore --key deps-$(sha256sum go.sum | cut -c1-16)
  cicache restore --key deps-abc --restore-keys deps-   # fall back to any deps entry
  cicache restore --key deps-abc --lookup-only          # only check for an entry`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := *config.FromContext(ctx)
			l := log.FromContext(ctx)
			out := output.FromContext(ctx)

			if cmd.Flags().Changed("skip-failure") {
				cfg.SkipFailure = skipFailure
			}
			if !cfg.Enabled {
				l.Warnf("%s", cache.DisabledMessage)
				return nil
			}

			var fallbacks []string
			for _, k := range restoreKeys {
				fallbacks = append(fallbacks, resolve.SplitLines(k)...)
			}

			store := state.New(state.DefaultDir(cfg.StateDir))
			if err := store.Update(ctx, func(s *state.State) {
				s.PrimaryKey = key
				s.MatchedKey = ""
			}); err != nil {
				l.Warnf("Failed to save state: %v", err)
			}

			ui := newRestoreProgress(cmd, key)
			matched, err := newEngine(&cfg, ui.opt).Restore(ui.ctx, key, fallbacks, cfg.Roots(), cache.CopyOptions{LookupOnly: lookupOnly})
			ui.stop()
			if err != nil {
				return err
			}

			if matched == "" {
				if failOnMiss {
					return fmt.Errorf("failed to restore cache entry. Exiting as fail-on-cache-miss is set. Input key: %s", key)
				}
				l.Printf("Cache not found for input keys: %s\n", strings.Join(append([]string{key}, fallbacks...), ", "))
				return out.SetOutput(outputCacheHit, "false")
			}

			if err := store.Update(ctx, func(s *state.State) { s.MatchedKey = matched }); err != nil {
				l.Warnf("Failed to save state: %v", err)
			}

			if err := out.SetOutput(outputCacheHit, strconv.FormatBool(cache.IsExactKeyMatch(key, matched))); err != nil {
				return err
			}
			if err := out.SetOutput(outputCacheMatchedKey, matched); err != nil {
				return err
			}

			if lookupOnly {
				l.Printf("Cache found and can be restored from key: %s\n", matched)
			} else {
				l.Printf("Cache restored from key: %s\n", matched)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&key, "key", "k", "", "Primary cache key")
	cmd.Flags().StringArrayVar(&restoreKeys, "restore-keys", nil, "Fallback key, repeatable or newline separated")
	cmd.Flags().BoolVar(&lookupOnly, "lookup-only", false, "Check for an entry without restoring it")
	cmd.Flags().BoolVar(&failOnMiss, "fail-on-cache-miss", false, "Fail when no entry is found")
	cmd.Flags().BoolVar(&skipFailure, "skip-failure", false, "Continue when an archive fails to extract")
	cmd.MarkFlagRequired("key")

	return cmd
}

package main

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/raphi011/cicache/internal/config"
	"github.com/raphi011/cicache/internal/keystore"
	"github.com/raphi011/cicache/internal/log"
	"github.com/raphi011/cicache/internal/output"
	"github.com/raphi011/cicache/internal/ui/static"
)

func newListCmd() *cobra.Command {
	var (
		jsonOutput bool
		sortBy     string
	)

	cmd := &cobra.Command{
		Use:     "list [filter]",
		Short:   "List cache entries",
		Aliases: []string{"ls"},
		GroupID: GroupCache,
		Args:    cobra.MaximumNArgs(1),
		Long: `List cache entries across all cache roots.

The optional filter fuzzy-matches keys, so "npmlin" finds "npm-linux-abc".
Entries are listed per root in restore order.`,
		Example: `  cicache list                 # All entries
  cicache list npm             # Entries whose key matches "npm"
  cicache list --sort updated  # Most recently written first
  cicache list --json          # Output as JSON`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := config.FromContext(ctx)
			l := log.FromContext(ctx)
			out := output.FromContext(ctx)

			var entries []keystore.Entry
			for _, root := range cfg.Roots() {
				found, err := keystore.Entries(ctx, root)
				if err != nil {
					l.Warnf("%s: %v", root, err)
					continue
				}
				entries = append(entries, found...)
			}
			l.Debug("listing cache entries", "roots", len(cfg.Roots()), "entries", len(entries))

			if len(args) == 1 {
				entries = keystore.Filter(entries, args[0])
			}
			sortEntries(entries, sortBy)

			if jsonOutput {
				if entries == nil {
					entries = []keystore.Entry{}
				}
				enc := json.NewEncoder(out.Writer())
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}

			if len(entries) == 0 {
				out.Println("No cache entries found")
				return nil
			}

			now := time.Now()
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, static.EntryTableRow(e, now))
			}
			out.Print(static.RenderTable(static.EntryHeaders, rows))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().StringVarP(&sortBy, "sort", "s", "", "Sort by: key, size, updated")
	cmd.RegisterFlagCompletionFunc("sort", cobra.FixedCompletions(
		[]string{"key", "size", "updated"}, cobra.ShellCompDirectiveNoFileComp))

	return cmd
}

// sortEntries orders entries in place. Without a sort field the order of
// the roots (and the fuzzy ranking, when filtered) is kept.
func sortEntries(entries []keystore.Entry, by string) {
	switch by {
	case "key":
		sort.SliceStable(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	case "size":
		sort.SliceStable(entries, func(i, j int) bool { return entries[i].Size > entries[j].Size })
	case "updated":
		sort.SliceStable(entries, func(i, j int) bool { return entries[i].Updated.After(entries[j].Updated) })
	}
}

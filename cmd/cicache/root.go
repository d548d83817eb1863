package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/colorprofile"
	"github.com/spf13/cobra"

	"github.com/raphi011/cicache/internal/config"
	"github.com/raphi011/cicache/internal/log"
	"github.com/raphi011/cicache/internal/output"
)

// Command group IDs for organizing help output
const (
	GroupCache  = "cache"
	GroupConfig = "config"
)

// skipConfigAnnotation marks commands that must run with a broken config.
const skipConfigAnnotation = "cicache/skip-config"

// outputFileEnv names the file step outputs are appended to.
const outputFileEnv = "GITHUB_OUTPUT"

// rootOptions holds the global flags.
type rootOptions struct {
	verbose    bool
	quiet      bool
	configFile string
}

func newRootCmd() *cobra.Command {
	var opts rootOptions

	cmd := &cobra.Command{
		Use:   "cicache",
		Short: "Local build cache for CI runners",
		Long: `cicache saves build artifacts (dependency directories, build outputs)
into a cache volume shared between CI jobs and restores them by key.

Entries are looked up in the branch cache first, then the main-branch and
default-branch caches. Saves always go to the branch cache.`,
		SilenceUsage:               true,
		SilenceErrors:              true,
		SuggestionsMinimumDistance: 2,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "completion" || cmd.Name() == "__complete" || cmd.Name() == "help" {
				return nil
			}
			return opts.setup(cmd)
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Show tar commands being executed")
	cmd.PersistentFlags().BoolVarP(&opts.quiet, "quiet", "q", false, "Only print warnings and errors")
	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "Config file (default ~/.config/cicache/config.toml)")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	cmd.Version = versionString()
	cmd.SetVersionTemplate("{{.Version}}\n")

	cmd.AddGroup(
		&cobra.Group{ID: GroupCache, Title: "Cache Commands:"},
		&cobra.Group{ID: GroupConfig, Title: "Configuration Commands:"},
	)

	cmd.AddCommand(newRestoreCmd())
	cmd.AddCommand(newSaveCmd())
	cmd.AddCommand(newListCmd())

	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newCompletionCmd())

	return cmd
}

// setup loads the configuration and attaches logger, printer and config
// to the command context.
func (o *rootOptions) setup(cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	workDir := config.WorkDirFromContext(ctx)

	// Both streams are downsampled so CI logs carry no escape codes.
	logger := log.New(colorprofile.NewWriter(cmd.ErrOrStderr(), os.Environ()), o.verbose, o.quiet)
	stdout := colorprofile.NewWriter(cmd.OutOrStdout(), os.Environ())
	ctx = log.WithLogger(ctx, logger)
	ctx = output.WithPrinter(ctx, output.New(stdout, os.Getenv(outputFileEnv)))

	path := o.configFile
	if path == "" {
		// No home directory means no global config file.
		path, _ = config.Path()
	}

	cfg, err := config.LoadFrom(path, workDir)
	if err != nil {
		if _, skip := cmd.Annotations[skipConfigAnnotation]; !skip {
			return err
		}
		logger.Warnf("%v", err)
	}

	ctx = config.WithConfig(ctx, &cfg)
	ctx = config.WithWorkDir(ctx, workDir)
	cmd.SetContext(ctx)
	return nil
}

// Execute runs the root command with a signal-aware context.
func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "cicache:", err)
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Run 'cicache -h' for help")
		cancel()
		os.Exit(1)
	}
}

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/raphi011/cicache/internal/config"
	"github.com/raphi011/cicache/internal/output"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "config",
		Short:   "Manage configuration",
		Aliases: []string{"cfg"},
		GroupID: GroupConfig,
		Long: `Manage cicache configuration.

Global config: ~/.config/cicache/config.toml
Local config:  .cicache.toml (in the working directory)

Environment variables (CICACHE_*) override both files.`,
		Example: `  cicache config init          # Create default global config
  cicache config init --local  # Create local project config
  cicache config show          # Show effective config`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var (
		force  bool
		stdout bool
		local  bool
	)

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create default config file",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		Long: `Create default config file.

Without flags, creates the global config at ~/.config/cicache/config.toml
(or the path given with --config).
With --local, creates .cicache.toml in the current directory.`,
		Example: `  cicache config init           # Create global config
  cicache config init --local   # Create local project config
  cicache config init -f        # Overwrite existing config
  cicache config init -s        # Print config to stdout`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := output.FromContext(ctx)

			content := config.DefaultConfig()
			if local {
				content = config.DefaultLocalConfig()
			}
			if stdout {
				out.Print(content)
				return nil
			}

			if local {
				path := filepath.Join(config.WorkDirFromContext(ctx), config.LocalConfigFileName)
				if !force {
					if _, err := os.Stat(path); err == nil {
						return fmt.Errorf("local config already exists: %s (use -f to overwrite)", path)
					}
				}
				if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
					return err
				}
				out.Printf("Created local config: %s\n", path)
				return nil
			}

			path, err := cmd.Flags().GetString("config")
			if err != nil || path == "" {
				if path, err = config.Path(); err != nil {
					return err
				}
			}
			if err := config.InitAt(path, force); err != nil {
				return fmt.Errorf("%w (use -f to overwrite)", err)
			}
			out.Printf("Created config file: %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing config")
	cmd.Flags().BoolVarP(&stdout, "stdout", "s", false, "Print config to stdout")
	cmd.Flags().BoolVar(&local, "local", false, "Create .cicache.toml instead of global config")

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Args:  cobra.NoArgs,
		Long: `Show the effective configuration after merging the global file,
the local .cicache.toml and CICACHE_* environment variables.`,
		Example: `  cicache config show         # Show config as TOML
  cicache config show --json  # Output as JSON`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := config.FromContext(ctx)
			out := output.FromContext(ctx)

			if jsonOutput {
				enc := json.NewEncoder(out.Writer())
				enc.SetIndent("", "  ")
				return enc.Encode(cfg)
			}

			localPath := filepath.Join(config.WorkDirFromContext(ctx), config.LocalConfigFileName)
			if _, err := os.Stat(localPath); err == nil {
				out.Printf("# local config: %s\n", localPath)
			} else {
				out.Printf("# local config: (none)\n")
			}
			return toml.NewEncoder(out.Writer()).Encode(cfg)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

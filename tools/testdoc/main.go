// Command testdoc generates markdown documentation from cicache test
// functions and their Scenario/Expected doc comments.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "testdoc:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		rootDir         string
		outputFile      string
		integrationOnly bool
	)

	cmd := &cobra.Command{
		Use:          "testdoc",
		Short:        "Generate markdown test documentation",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			absRoot, err := filepath.Abs(rootDir)
			if err != nil {
				return fmt.Errorf("resolve root: %w", err)
			}

			packages, err := ParseTestFiles(absRoot, integrationOnly)
			if err != nil {
				return fmt.Errorf("parse test files: %w", err)
			}

			if err := os.MkdirAll(filepath.Dir(outputFile), 0o755); err != nil {
				return err
			}
			f, err := os.Create(outputFile)
			if err != nil {
				return err
			}
			defer f.Close()

			if err := RenderMarkdown(f, packages); err != nil {
				return fmt.Errorf("render: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Generated %s with %d packages\n", outputFile, len(packages))
			return nil
		},
	}

	cmd.Flags().StringVar(&rootDir, "root", ".", "Directory to scan for test files")
	cmd.Flags().StringVarP(&outputFile, "out", "o", "docs/TESTS.md", "Output markdown file")
	cmd.Flags().BoolVar(&integrationOnly, "integration", false, "Only include *_integration_test.go files")

	return cmd
}

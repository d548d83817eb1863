package main

import (
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
	"time"
)

// commandPrefixes maps test name prefixes to the command they cover.
var commandPrefixes = map[string]string{
	"Restore":     "cicache restore",
	"RestoreSave": "cicache restore",
	"Save":        "cicache save",
	"List":        "cicache list",
	"Config":      "cicache config",
	"ConfigInit":  "cicache config",
	"ConfigShow":  "cicache config",
	"Disabled":    "feature gate",
	"Engine":      "engine",
}

var anchorStrip = regexp.MustCompile(`[^a-z0-9-]`)

// RenderMarkdown writes the test documentation for packages to w.
func RenderMarkdown(w io.Writer, packages []TestPackage) error {
	byCommand := make(map[string][]TestFunc)
	for _, pkg := range packages {
		for _, file := range pkg.Files {
			for _, test := range file.Tests {
				c := commandOf(test.Name)
				byCommand[c] = append(byCommand[c], test)
			}
		}
	}

	commands := make([]string, 0, len(byCommand))
	for c := range byCommand {
		commands = append(commands, c)
	}
	sort.Strings(commands)

	fmt.Fprintf(w, "# Test Documentation\n\n")
	fmt.Fprintf(w, "Generated: %s\n\n", time.Now().Format(time.DateOnly))

	fmt.Fprintf(w, "## Summary\n\n| Command | Tests |\n|---------|-------|\n")
	total := 0
	for _, c := range commands {
		fmt.Fprintf(w, "| [%s](#%s) | %d |\n", c, anchor(c), len(byCommand[c]))
		total += len(byCommand[c])
	}
	fmt.Fprintf(w, "| **Total** | **%d** |\n\n", total)

	for _, c := range commands {
		fmt.Fprintf(w, "## %s\n\n| Test | Scenario | Expected |\n|------|----------|----------|\n", c)
		for _, test := range byCommand[c] {
			scenario, expected := test.Scenario, test.Expected
			if scenario == "" {
				scenario = summary(test.Doc, test.Name)
			}
			if test.IsTable {
				scenario += " _(table)_"
			}
			fmt.Fprintf(w, "| `%s` | %s | %s |\n", test.Name, cell(scenario), cell(expected))
		}
		fmt.Fprintln(w)
	}
	return nil
}

// commandOf maps TestRestore_FallbackKeys to "cicache restore" using the
// part before the first underscore.
func commandOf(testName string) string {
	prefix, _, _ := strings.Cut(strings.TrimPrefix(testName, "Test"), "_")
	if c, ok := commandPrefixes[prefix]; ok {
		return c
	}
	return strings.ToLower(prefix)
}

// summary returns the first doc line without the leading test name.
func summary(doc, testName string) string {
	for _, line := range strings.Split(doc, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), testName+" "))
		if line != "" {
			return strings.ToUpper(line[:1]) + line[1:]
		}
	}
	return "_No documentation_"
}

func cell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func anchor(s string) string {
	return anchorStrip.ReplaceAllString(strings.ReplaceAll(strings.ToLower(s), " ", "-"), "")
}

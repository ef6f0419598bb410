package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/steveyegge/agentscan/internal/patterns"
	"github.com/steveyegge/agentscan/internal/types"
)

var frameworksCmd = &cobra.Command{
	Use:   "frameworks",
	Short: "List the agent frameworks agentscan detects",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		listFrameworks(os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(frameworksCmd)
}

func listFrameworks(w io.Writer) {
	cyan := color.New(color.FgCyan).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	sets := patterns.All()
	fmt.Fprintf(w, "%d supported frameworks:\n\n", len(sets))
	for _, set := range sets {
		fmt.Fprintf(w, "%s %s\n", cyan(set.Framework), gray("("+set.DisplayName+")"))
		fmt.Fprintf(w, "  Languages:    %s\n", languageNames(set.Languages))
		fmt.Fprintf(w, "  Patterns:     %d import, %d instantiation\n", len(set.Imports), len(set.Instantiations))
		if len(set.ConfigFiles) > 0 {
			fmt.Fprintf(w, "  Config files: %s\n", strings.Join(set.ConfigFiles, ", "))
		}
		if len(set.Dependencies) > 0 {
			fmt.Fprintf(w, "  Packages:     %s\n", strings.Join(set.Dependencies, ", "))
		}
	}
}

func languageNames(langs []types.Language) string {
	out := make([]string, len(langs))
	for i, l := range langs {
		out[i] = string(l)
	}
	return strings.Join(out, ", ")
}

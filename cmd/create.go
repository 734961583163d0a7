package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mdflow/mdflow/internal/adapters"
)

var createDriver string
var createInteractive bool

var createCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Scaffold a new agent markdown file from a built-in template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		driver := createDriver
		if driver == "" {
			driver = "claude"
		}
		if !strings.HasSuffix(name, ".md") {
			marker := driver
			if createInteractive {
				marker = "i." + driver
			}
			name = fmt.Sprintf("%s.%s.md", name, marker)
		}
		if _, err := os.Stat(name); err == nil {
			return fmt.Errorf("%s already exists", name)
		}
		content := scaffoldTemplate(driver)
		if err := os.WriteFile(name, []byte(content), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", name)
		return nil
	},
}

func init() {
	known := make([]string, 0, 6)
	for _, n := range []string{"claude", "codex", "gemini", "copilot", "droid", "opencode"} {
		known = append(known, n)
	}
	sort.Strings(known)
	createCmd.Flags().StringVar(&createDriver, "driver", "claude",
		"downstream driver this agent targets ("+strings.Join(known, ", ")+")")
	createCmd.Flags().BoolVar(&createInteractive, "interactive", false,
		"scaffold as an interactive-mode agent (adds the .i. filename marker)")
}

// scaffoldTemplate returns a minimal but runnable agent file body for
// driver: front matter declaring one bound variable and a positional
// mapping, and a body that uses the bound variable, mirroring the shape
// the adapter registry already expects at render time.
func scaffoldTemplate(driver string) string {
	a := adapters.For(driver)
	var sb strings.Builder
	sb.WriteString("---\n")
	sb.WriteString("$1: topic\n")
	sb.WriteString("_topic: the weather\n")
	sb.WriteString("---\n")
	fmt.Fprintf(&sb, "<!-- scaffolded for %s; edit freely -->\n\n", a.Name())
	sb.WriteString("Write a short note about {{ _topic }}.\n")
	return sb.String()
}

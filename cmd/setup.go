package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var setupForce bool

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Write ~/.mdflow/config.yaml with defaults, if one doesn't already exist",
	RunE: func(cmd *cobra.Command, args []string) error {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolving home directory: %w", err)
		}
		dir := filepath.Join(home, ".mdflow")
		path := filepath.Join(dir, "config.yaml")

		if _, err := os.Stat(path); err == nil && !setupForce {
			fmt.Fprintf(cmd.OutOrStdout(), "%s already exists; pass --force to overwrite\n", path)
		} else {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("creating %s: %w", dir, err)
			}
			data, err := yaml.Marshal(defaultUserConfig())
			if err != nil {
				return fmt.Errorf("marshalling default config: %w", err)
			}
			header := "# mdflow user config — lowest-but-one cascade layer, overridden by\n" +
				"# project config and front matter. See SPEC_FULL.md for the full schema.\n\n"
			if err := os.WriteFile(path, append([]byte(header), data...), 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		}

		pathDir := filepath.Join(dir, "bin")
		fmt.Fprintf(cmd.OutOrStdout(),
			"\nTo run project-local agents by bare name, add %s to your PATH, e.g.:\n\n    export PATH=\"%s:$PATH\"\n",
			pathDir, pathDir)
		return nil
	},
}

func init() {
	setupCmd.Flags().BoolVar(&setupForce, "force", false, "overwrite an existing config file")
}

// defaultUserConfig is the starting user-global config: top-level
// concurrency and context_window settings and a per-driver commands map.
// config.Load merges all three layers' keys, but only the commands map is
// read when running an agent; the top-level concurrency and
// context_window entries are not consulted.
func defaultUserConfig() map[string]any {
	return map[string]any{
		"concurrency":    10,
		"context_window": 128000,
		"commands":       map[string]any{},
	}
}

package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

var logsFollow bool

var logsCmd = &cobra.Command{
	Use:   "logs [agent-slug]",
	Short: "List per-agent debug logs, or tail a named one",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolving home directory: %w", err)
		}
		logsDir := filepath.Join(home, ".mdflow", "logs")

		if len(args) == 0 {
			return listAgentSlugs(cmd, logsDir)
		}
		path := filepath.Join(logsDir, args[0], "debug.log")
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("no log for agent slug %q", args[0])
		}
		if logsFollow {
			return followFile(cmd, path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		fmt.Fprint(cmd.OutOrStdout(), string(data))
		return nil
	},
}

func init() {
	logsCmd.Flags().BoolVar(&logsFollow, "follow", false, "keep streaming new log lines as they're written")
}

func listAgentSlugs(cmd *cobra.Command, logsDir string) error {
	entries, err := os.ReadDir(logsDir)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Fprintln(cmd.OutOrStdout(), "no agent logs yet")
			return nil
		}
		return fmt.Errorf("reading %s: %w", logsDir, err)
	}
	var slugs []string
	for _, e := range entries {
		if e.IsDir() {
			slugs = append(slugs, e.Name())
		}
	}
	sort.Strings(slugs)
	for _, s := range slugs {
		fmt.Fprintln(cmd.OutOrStdout(), s)
	}
	return nil
}

// followFile prints path's existing content, then streams appended
// writes until the watcher closes or reports an error, or the process is
// interrupted (Ctrl-C).
func followFile(cmd *cobra.Command, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	if _, err := io.Copy(cmd.OutOrStdout(), f); err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(path), err)
	}

	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Name != path || ev.Op&fsnotify.Write == 0 {
				continue
			}
			io.Copy(cmd.OutOrStdout(), f)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}

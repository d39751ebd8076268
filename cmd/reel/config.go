package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mmcdole/reel/internal/adapter"
	"github.com/mmcdole/reel/internal/library"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := adapter.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		source := adapter.ConfigFileUsed()
		if source == "" {
			source = "defaults (no config.yaml found in " + adapter.ConfigDir() + ")"
		}
		fmt.Println("Config:  " + source)
		fmt.Println("Library: " + library.DefaultPaths(cfg.Library.Root).DataRoot)
		fmt.Println()

		values := cfg.Values()
		keys := lo.Keys(values)
		sort.Strings(keys)

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"Key", "Value"})
		for _, key := range keys {
			t.AppendRow(table.Row{key, fmt.Sprint(values[key])})
		}
		t.Render()
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the effective configuration to config.yaml",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := adapter.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := adapter.SaveConfig(cfg); err != nil {
			return err
		}
		fmt.Println("Wrote " + filepath.Join(adapter.ConfigDir(), "config.yaml"))
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
}

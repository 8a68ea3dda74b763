package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jward/baseliner"
)

func newCacheCmd(g *globalFlags) *cobra.Command {
	var path string
	cache := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or prune a result cache",
		Long:  "List, forget or clear the per-file results stored by scan --cache.",
	}
	cache.PersistentFlags().StringVar(&path, "cache", "", "path of the SQLite result cache (required)")
	_ = cache.MarkPersistentFlagRequired("cache")

	// open refuses to create a cache that does not exist yet.
	open := func() (*baseliner.Store, error) {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("cache not found: %s", path)
		}
		return baseliner.OpenCache(path)
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List the files with cached results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open()
			if err != nil {
				return outputError(cmd, g, "cache list", err)
			}
			defer s.Close()
			paths, err := s.Paths()
			if err != nil {
				return outputError(cmd, g, "cache list", err)
			}
			return outputResult(cmd, g, CLIResult{Command: "cache list", Results: nonNil(paths)})
		},
	}

	forget := &cobra.Command{
		Use:   "forget <file>...",
		Short: "Drop the cached results of files (paths relative to the scan root)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open()
			if err != nil {
				return outputError(cmd, g, "cache forget", err)
			}
			defer s.Close()
			if err := s.Forget(args...); err != nil {
				return outputError(cmd, g, "cache forget", err)
			}
			return outputResult(cmd, g, CLIResult{Command: "cache forget", Results: CLICacheChange{Removed: args}})
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Drop every cached result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open()
			if err != nil {
				return outputError(cmd, g, "cache clear", err)
			}
			defer s.Close()
			paths, err := s.Paths()
			if err != nil {
				return outputError(cmd, g, "cache clear", err)
			}
			if err := s.Clear(); err != nil {
				return outputError(cmd, g, "cache clear", err)
			}
			return outputResult(cmd, g, CLIResult{Command: "cache clear", Results: CLICacheChange{Removed: nonNil(paths)}})
		},
	}

	cache.AddCommand(list, forget, clearCmd)
	return cache
}

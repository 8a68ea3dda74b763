package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jward/baseliner/internal/compat"
)

func newFeaturesCmd(g *globalFlags) *cobra.Command {
	var tablePath string
	features := &cobra.Command{
		Use:   "features",
		Short: "Browse the compatibility table",
		Long:  "Search, list and inspect the features baseliner knows about.",
	}
	features.PersistentFlags().StringVar(&tablePath, "features", "", "path of a TOML feature table replacing the embedded one")

	open := func() (*compat.Database, error) {
		if tablePath != "" {
			return loadFeatureTable(tablePath)
		}
		return compat.Load()
	}

	search := &cobra.Command{
		Use:   "search <text>",
		Short: "Find features by id, name, description or key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := open()
			if err != nil {
				return outputError(cmd, g, "features search", err)
			}
			found := db.Search(args[0])
			if found == nil {
				found = []compat.FeatureInfo{}
			}
			return outputResult(cmd, g, CLIResult{Command: "features search", Results: found})
		},
	}

	group := &cobra.Command{
		Use:   "group [name]",
		Short: "List groups, or the features of one group",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := open()
			if err != nil {
				return outputError(cmd, g, "features group", err)
			}
			if len(args) == 0 {
				return outputResult(cmd, g, CLIResult{Command: "features group", Results: db.Groups()})
			}
			found := db.ByGroup(args[0])
			if len(found) == 0 {
				return outputError(cmd, g, "features group", fmt.Errorf("unknown group %q", args[0]))
			}
			return outputResult(cmd, g, CLIResult{Command: "features group", Results: found})
		},
	}

	show := &cobra.Command{
		Use:   "show <key|id>",
		Short: "Show one feature by detection key or feature id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := open()
			if err != nil {
				return outputError(cmd, g, "features show", err)
			}
			f, ok := findFeature(db, args[0])
			if !ok {
				return outputError(cmd, g, "features show", fmt.Errorf("unknown feature %q", args[0]))
			}
			return outputResult(cmd, g, CLIResult{Command: "features show", Results: f})
		},
	}

	features.AddCommand(search, group, show)
	return features
}

// findFeature resolves a detection key first, then a feature id.
func findFeature(db *compat.Database, ref string) (compat.FeatureInfo, bool) {
	if f, ok := db.Lookup(ref); ok {
		return f, true
	}
	for _, f := range db.Search(ref) {
		if f.ID == ref {
			return f, true
		}
	}
	return compat.FeatureInfo{}, false
}

func newVersionCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version and feature table revision",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := compat.Load()
			if err != nil {
				return outputError(cmd, g, "version", err)
			}
			return outputResult(cmd, g, CLIResult{
				Command: "version",
				Results: CLIVersion{Version: version, Table: db.Version(), Features: db.Len()},
			})
		},
	}
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// version is overridden at build time via -ldflags "-X main.version=...".
var version = "dev"

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	format  string
	noColor bool
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "baseliner",
		Short:         "Check web sources against Baseline browser compatibility",
		Long:          "Baseliner scans CSS, JavaScript, TypeScript and HTML for web-platform features and reports them by Baseline tier.",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if g.noColor {
				color.NoColor = true
			}
			return validateFormat(g.format)
		},
		// No Run: prints help by default.
	}
	root.PersistentFlags().StringVar(&g.format, "format", "text", "output format: json|text")
	root.PersistentFlags().BoolVar(&g.noColor, "no-color", false, "disable coloured text output")

	root.AddCommand(newScanCmd(g))
	root.AddCommand(newFeaturesCmd(g))
	root.AddCommand(newCacheCmd(g))
	root.AddCommand(newVersionCmd(g))
	return root
}

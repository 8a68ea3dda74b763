package main

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jward/baseliner"
	"github.com/jward/baseliner/internal/compat"
)

var (
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow)
	infoColor    = color.New(color.FgCyan)
	dimColor     = color.New(color.Faint)
)

func severityColor(s baseliner.Severity) *color.Color {
	switch s {
	case "error":
		return errorColor
	case "warning":
		return warningColor
	default:
		return infoColor
	}
}

// formatScanText prints one line per issue followed by a summary. Columns are
// padded before colouring, so escape sequences do not skew the alignment.
func formatScanText(w io.Writer, res *baseliner.ScanResult) {
	if len(res.Issues) > 0 {
		locs := make([]string, len(res.Issues))
		locWidth, sevWidth := 0, 0
		for i, is := range res.Issues {
			locs[i] = fmt.Sprintf("%s:%d:%d", is.File, is.Line, is.Column)
			locWidth = max(locWidth, len(locs[i]))
			sevWidth = max(sevWidth, len(is.Severity))
		}
		indent := strings.Repeat(" ", locWidth+2+sevWidth+2)
		for i, is := range res.Issues {
			sev := fmt.Sprintf("%-*s", sevWidth, is.Severity)
			fmt.Fprintf(w, "%-*s  %s  %s\n", locWidth, locs[i], severityColor(is.Severity).Sprint(sev), is.Message)
			if is.Suggestion != "" {
				fmt.Fprintf(w, "%s%s\n", indent, dimColor.Sprint(is.Suggestion))
			}
		}
		fmt.Fprintln(w)
	}

	s := res.Summary
	fmt.Fprintf(w, "%d issues (%s, %s, %s) in %d of %d files\n",
		s.Total,
		errorColor.Sprintf("%d errors", s.Errors),
		warningColor.Sprintf("%d warnings", s.Warnings),
		infoColor.Sprintf("%d info", s.Info),
		res.Files.WithIssues, res.Files.Scanned)
	if res.CacheHits > 0 {
		fmt.Fprintf(w, "%d files from cache\n", res.CacheHits)
	}
	if len(res.Warnings) > 0 {
		fmt.Fprintf(w, "%d analysis problems:\n", len(res.Warnings))
		for _, warn := range res.Warnings {
			fmt.Fprintf(w, "  %s [%s] %s\n", warn.File, warn.Kind, warn.Message)
		}
	}
}

// formatFeaturesText formats features as aligned columns.
func formatFeaturesText(w io.Writer, features []compat.FeatureInfo) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTIER\tGROUP\tNAME")
	for _, f := range features {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.ID, f.Tier, f.Group, f.Name)
	}
	tw.Flush()
}

// formatFeatureText prints every field of one feature.
func formatFeatureText(w io.Writer, f compat.FeatureInfo) {
	fmt.Fprintf(w, "Feature: %s (%s)\n", f.Name, f.ID)
	fmt.Fprintf(w, "Tier: %s\n", f.Tier.Label())
	if f.Group != "" {
		fmt.Fprintf(w, "Group: %s\n", f.Group)
	}
	if f.Description != "" {
		fmt.Fprintf(w, "Description: %s\n", f.Description)
	}
	if f.LowDate != "" {
		fmt.Fprintf(w, "Newly available since: %s\n", f.LowDate)
	}
	if f.HighDate != "" {
		fmt.Fprintf(w, "Widely available since: %s\n", f.HighDate)
	}
	if len(f.Support) > 0 {
		fmt.Fprintln(w, "Support:")
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, browser := range slices.Sorted(maps.Keys(f.Support)) {
			fmt.Fprintf(tw, "  %s\t%s\n", browser, f.Support[browser])
		}
		tw.Flush()
	}
	fmt.Fprintf(w, "Keys: %s\n", strings.Join(f.Keys, ", "))
}

// outputResultText dispatches to the text formatter for the result type.
func outputResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case *baseliner.ScanResult:
		formatScanText(w, v)
	case []compat.FeatureInfo:
		formatFeaturesText(w, v)
	case compat.FeatureInfo:
		formatFeatureText(w, v)
	case []string:
		for _, s := range v {
			fmt.Fprintln(w, s)
		}
	case CLICacheChange:
		fmt.Fprintf(w, "removed %d cached files\n", len(v.Removed))
	case CLIVersion:
		fmt.Fprintf(w, "baseliner %s (feature table %s, %d features)\n", v.Version, v.Table, v.Features)
	case nil:
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	return nil
}

// outputResult writes result to the command's stdout in the selected format.
func outputResult(cmd *cobra.Command, g *globalFlags, result CLIResult) error {
	if g.format == "text" {
		return outputResultText(cmd.OutOrStdout(), result)
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr.
func outputError(cmd *cobra.Command, g *globalFlags, command string, err error) error {
	errorHandled = true
	if g.format == "text" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err)
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	_ = enc.Encode(CLIResult{Command: command, Error: err.Error()})
	return err
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}

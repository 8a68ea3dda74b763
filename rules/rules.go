// Package rules embeds the default detector scripts run after the structural
// analyzers. See internal/runtime for the globals available to them.
package rules

import "embed"

// FS holds css/, javascript/ and html/ rule scripts.
//
//go:embed css javascript html
var FS embed.FS

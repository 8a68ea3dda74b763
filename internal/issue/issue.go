// Package issue builds the uniform Issue value reported for every detected
// feature, regardless of which analyzer found it.
package issue

import (
	"fmt"
	"sort"

	"github.com/jward/baseliner/internal/compat"
)

// Type names the surface language an issue was found in.
type Type string

const (
	TypeCSS        Type = "css"
	TypeJavaScript Type = "javascript"
	TypeHTML       Type = "html"
)

// Severity is derived from the tier snapshot.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Issue is one detected feature at one source location. Issues are plain
// values: they carry a snapshot of the tier at detection time and are never
// updated afterwards.
type Issue struct {
	Type       Type        `json:"type"`
	Feature    string      `json:"feature"`
	FeatureID  string      `json:"featureId"`
	Key        string      `json:"key"`
	Property   string      `json:"property,omitempty"`
	Value      string      `json:"value,omitempty"`
	Tier       compat.Tier `json:"tier"`
	Severity   Severity    `json:"severity"`
	Message    string      `json:"message"`
	Suggestion string      `json:"suggestion,omitempty"`
	AutoFix    string      `json:"autoFix,omitempty"`
	File       string      `json:"file"`
	Line       int         `json:"line"`
	Column     int         `json:"column"`
}

// Input is everything the factory needs to build an Issue.
type Input struct {
	Type     Type
	Key      string
	Feature  compat.FeatureInfo
	Property string
	Value    string
	File     string
	Line     int
	Column   int
}

// New builds an Issue. It is a pure function of its input.
func New(in Input) Issue {
	label := in.Feature.Name
	if label == "" {
		label = in.Feature.ID
	}
	fix := fixes[in.Feature.ID]
	return Issue{
		Type:       in.Type,
		Feature:    label,
		FeatureID:  in.Feature.ID,
		Key:        in.Key,
		Property:   in.Property,
		Value:      in.Value,
		Tier:       in.Feature.Tier,
		Severity:   SeverityFor(in.Feature.Tier),
		Message:    Message(in.Type, label, in.Feature.Tier),
		Suggestion: fix.suggestion,
		AutoFix:    fix.autoFix,
		File:       in.File,
		Line:       in.Line,
		Column:     in.Column,
	}
}

// SeverityFor maps a tier to the severity of issues reported for it.
func SeverityFor(t compat.Tier) Severity {
	switch t {
	case compat.Limited:
		return SeverityError
	case compat.NewlyAvailable:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

var kindNames = map[Type]string{
	TypeCSS:        "CSS feature",
	TypeJavaScript: "JavaScript API",
	TypeHTML:       "HTML feature",
}

// Message renders the fixed message template for (type, feature, tier).
func Message(typ Type, feature string, t compat.Tier) string {
	kind, ok := kindNames[typ]
	if !ok {
		kind = "Feature"
	}
	var phrase string
	switch t {
	case compat.Limited:
		phrase = "has limited availability and is not supported in all major browsers"
	case compat.NewlyAvailable:
		phrase = "is newly available in Baseline and may not work in older browser versions"
	default:
		phrase = "is widely available in Baseline"
	}
	return fmt.Sprintf("%s %q %s.", kind, feature, phrase)
}

// Sort orders issues by file, line, column and key. Parallel scans keep
// visitation order already; Sort is for callers that want a canonical order
// independent of how the file list was produced.
func Sort(issues []Issue) {
	sort.SliceStable(issues, func(i, j int) bool {
		a, b := issues[i], issues[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Column != b.Column {
			return a.Column < b.Column
		}
		return a.Key < b.Key
	})
}

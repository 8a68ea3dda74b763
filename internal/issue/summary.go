package issue

import "github.com/jward/baseliner/internal/compat"

// TierCounts counts issues per tier snapshot.
type TierCounts struct {
	Limited int `json:"limited"`
	Newly   int `json:"newly"`
	Widely  int `json:"widely"`
}

// Summary aggregates an issue list.
type Summary struct {
	Total    int        `json:"total"`
	Errors   int        `json:"errors"`
	Warnings int        `json:"warnings"`
	Info     int        `json:"info"`
	ByTier   TierCounts `json:"byTier"`
}

// Summarize derives every count from issues. There are no running counters
// anywhere else; call this again whenever the list changes.
func Summarize(issues []Issue) Summary {
	return Summary{
		Total:    len(issues),
		Errors:   Count(issues, func(i Issue) bool { return i.Severity == SeverityError }),
		Warnings: Count(issues, func(i Issue) bool { return i.Severity == SeverityWarning }),
		Info:     Count(issues, func(i Issue) bool { return i.Severity == SeverityInfo }),
		ByTier: TierCounts{
			Limited: Count(issues, func(i Issue) bool { return i.Tier == compat.Limited }),
			Newly:   Count(issues, func(i Issue) bool { return i.Tier == compat.NewlyAvailable }),
			Widely:  Count(issues, func(i Issue) bool { return i.Tier == compat.WidelyAvailable }),
		},
	}
}

// Count returns how many issues satisfy pred.
func Count(issues []Issue, pred func(Issue) bool) int {
	n := 0
	for _, i := range issues {
		if pred(i) {
			n++
		}
	}
	return n
}

// Files returns the distinct files in issues, in first-seen order.
func Files(issues []Issue) []string {
	seen := make(map[string]bool)
	var out []string
	for _, i := range issues {
		if !seen[i.File] {
			seen[i.File] = true
			out = append(out, i.File)
		}
	}
	return out
}

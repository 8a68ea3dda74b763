package baseliner

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Golden test format.
type goldenFile struct {
	Level  BaselineLevel `json:"level"`
	Issues []goldenIssue `json:"issues"`
	// Absent lists keys that must not be reported at this level.
	Absent []string `json:"absent,omitempty"`
}

type goldenIssue struct {
	Key  string `json:"key"`
	File string `json:"file"`
	Line int    `json:"line"`
	Col  int    `json:"col"`
}

// TestGolden walks testdata/{language}/ directories and scans every case
// that has a golden.json and a src/ directory.
func TestGolden(t *testing.T) {
	langDirs, err := os.ReadDir("testdata")
	if err != nil {
		t.Skip("no testdata directory found")
	}

	e, err := New()
	require.NoError(t, err)

	for _, langDir := range langDirs {
		if !langDir.IsDir() {
			continue
		}
		lang := langDir.Name()
		langRoot := filepath.Join("testdata", lang)
		cases, err := os.ReadDir(langRoot)
		if err != nil {
			continue
		}

		for _, c := range cases {
			if !c.IsDir() {
				continue
			}
			testDir := filepath.Join(langRoot, c.Name())
			goldenPath := filepath.Join(testDir, "golden.json")
			srcDir := filepath.Join(testDir, "src")

			if _, err := os.Stat(goldenPath); err != nil {
				continue
			}
			if _, err := os.Stat(srcDir); err != nil {
				continue
			}

			t.Run(lang+"/"+c.Name(), func(t *testing.T) {
				runGoldenTest(t, e, srcDir, goldenPath)
			})
		}
	}
}

func runGoldenTest(t *testing.T, e *Engine, srcDir, goldenPath string) {
	t.Helper()

	goldenData, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	var golden goldenFile
	require.NoError(t, json.Unmarshal(goldenData, &golden))

	res, err := e.Scan(context.Background(), srcDir, ScanOptions{Level: golden.Level})
	require.NoError(t, err)
	require.Empty(t, res.Warnings)

	type site struct {
		Key  string
		File string
		Line int
		Col  int
	}
	actual := make(map[site]bool)
	reported := make(map[string]bool)
	for _, is := range res.Issues {
		actual[site{is.Key, is.File, is.Line, is.Column}] = true
		reported[is.Key] = true
	}

	for _, exp := range golden.Issues {
		key := site{exp.Key, exp.File, exp.Line, exp.Col}
		assert.True(t, actual[key], "missing issue: %+v (got %d issues)", exp, len(res.Issues))
	}
	for _, k := range golden.Absent {
		assert.False(t, reported[k], "unexpected issue for %s", k)
	}
}

// Package baseliner scans CSS, JavaScript, TypeScript and HTML sources for
// web-platform features and classifies each one by its Baseline tier:
// limited, newly available or widely available.
//
// # Pipeline
//
// A scan runs in three steps:
//
//  1. Discover: walk the root, skipping symlinks and directories matched by
//     an exclude pattern, and keep files matched by an include pattern.
//  2. Analyze: parse each file with tree-sitter, walk the tree with the
//     language's detector, then run the Risor rule scripts for that
//     language. Every detected feature key is looked up in the
//     compatibility table and turned into an [Issue] unless the configured
//     [BaselineLevel] considers its tier safe.
//  3. Aggregate: concatenate per-file issues in visitation order and derive
//     the [Summary] from them.
//
// # Usage
//
//	e, err := baseliner.New()
//	if err != nil { ... }
//
//	res, err := e.Scan(ctx, "web/", baseliner.ScanOptions{
//		Level: baseliner.LevelNewly,
//	})
//	for _, is := range res.Issues {
//		fmt.Printf("%s:%d:%d %s\n", is.File, is.Line, is.Column, is.Message)
//	}
//
// Per-file failures (unreadable files, syntax errors, failing rule scripts)
// never abort a scan; they are reported as [Warning] values and the file
// contributes no issues, or only the issues found before the failure.
//
// # Levels
//
//   - [LevelLimited] reports only features that are not yet Baseline.
//   - [LevelNewly] also reports newly available features.
//   - [LevelWidely] reports everything, widely available features as info.
//
// # Rules
//
// Rule scripts add detections on top of the built-in detectors. The
// defaults are embedded from the rules package; [WithRulesDir] and
// [WithRulesFS] replace them and [WithoutRules] disables them. See the
// internal/runtime package for the globals a script receives.
//
// # Caching
//
// [WithCache] stores per-file results in SQLite, keyed by path, content
// hash, table version, level and a hash of the rule scripts. Files that
// produced warnings are never cached.
package baseliner

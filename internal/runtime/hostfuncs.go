package runtime

import (
	"context"
	"log/slog"

	"github.com/risor-io/risor/object"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/baseliner/internal/syntax"
)

// detectionSink collects report() calls for one script run.
type detectionSink struct {
	detections []Detection
}

// nodeArg unwraps a proxied *sitter.Node argument.
func nodeArg(fn string, arg object.Object) (*sitter.Node, *object.Error) {
	proxy, ok := arg.(*object.Proxy)
	if !ok {
		return nil, object.Errorf("%s: expected proxy (Node), got %s", fn, arg.Type())
	}
	node, ok := proxy.Interface().(*sitter.Node)
	if !ok || node == nil {
		return nil, object.Errorf("%s: expected *sitter.Node, got %T", fn, proxy.Interface())
	}
	return node, nil
}

// makeQueryFn creates the "query" host function bound to one file's tree.
//
// query(pattern) → []map[string]Node
// query(pattern, node) → same, restricted to node's subtree
//
// Each map has capture names as keys and proxied Nodes as values.
func makeQueryFn(tree *syntax.Tree) *object.Builtin {
	return object.NewBuiltin("query", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 && len(args) != 2 {
			return object.NewArgsRangeError("query", 1, 2, len(args))
		}

		patternStr, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("query: pattern must be a string, got %s", args[0].Type())
		}

		if tree.Raw == nil {
			return object.Errorf("query: tree already closed")
		}
		node := tree.Raw.RootNode()
		if len(args) == 2 {
			n, errObj := nodeArg("query", args[1])
			if errObj != nil {
				return errObj
			}
			node = n
		}

		q, err := sitter.NewQuery([]byte(patternStr.Value()), tree.Grammar)
		if err != nil {
			return object.Errorf("query: invalid pattern: %v", err)
		}
		defer q.Close()

		cursor := sitter.NewQueryCursor()
		defer cursor.Close()
		cursor.Exec(q, node)

		results := []object.Object{}
		for {
			match, ok := cursor.NextMatch()
			if !ok {
				break
			}
			match = cursor.FilterPredicates(match, tree.Source)

			matchMap := make(map[string]object.Object)
			for _, capture := range match.Captures {
				name := q.CaptureNameForId(capture.Index)
				nodeP, err := object.NewProxy(capture.Node)
				if err != nil {
					return object.Errorf("query: proxy error for capture %q: %v", name, err)
				}
				matchMap[name] = nodeP
			}
			results = append(results, object.NewMap(matchMap))
		}
		return object.NewList(results)
	})
}

// makeNodeTextFn creates the "node_text" host function.
//
// node_text(node) → string
//
// Exists because Risor's proxy system cannot convert strings to []byte
// for node.Content([]byte).
func makeNodeTextFn(src []byte) *object.Builtin {
	return object.NewBuiltin("node_text", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("node_text", 1, len(args))
		}
		node, errObj := nodeArg("node_text", args[0])
		if errObj != nil {
			return errObj
		}
		return object.NewString(node.Content(src))
	})
}

// makeReportFn creates the "report" host function.
//
// report(key, node) → nil
//
// Records a feature key at the node's start position.
func makeReportFn(sink *detectionSink) *object.Builtin {
	return object.NewBuiltin("report", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("report", 2, len(args))
		}
		key, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("report: key must be a string, got %s", args[0].Type())
		}
		if key.Value() == "" {
			return object.Errorf("report: empty key")
		}
		node, errObj := nodeArg("report", args[1])
		if errObj != nil {
			return errObj
		}
		line, col := syntax.Position(node.StartPoint())
		sink.detections = append(sink.detections, Detection{Key: key.Value(), Line: line, Column: col})
		return object.Nil
	})
}

// logObject provides log.Info/Warn/Error methods for Risor scripts.
type logObject struct {
	logger *slog.Logger
}

func (l *logObject) Info(msg string) {
	l.logger.Info(msg, "source", "rule")
}

func (l *logObject) Warn(msg string) {
	l.logger.Warn(msg, "source", "rule")
}

func (l *logObject) Error(msg string) {
	l.logger.Error(msg, "source", "rule")
}

package analyzer

import (
	"github.com/jward/baseliner/internal/syntax"
)

// Script reports the dotted API path of every resolvable call, construction
// and member access in JavaScript and TypeScript.
type Script struct{}

func (Script) Detect(root *syntax.Node, r *Reporter) {
	syntax.Walk(root, func(n *syntax.Node) bool {
		switch n.Kind {
		case "call_expression", "new_expression":
		case "member_expression":
			// A callee resolves to the same path as its call, which reports it.
			if n.Field == "function" || n.Field == "constructor" {
				return true
			}
		default:
			return true
		}
		if path, ok := syntax.ResolvePath(n, ScriptShapes); ok {
			r.Report(path, n, "", "")
		}
		return true
	})
}

// ScriptShapes adapts the JavaScript and TypeScript grammars to the path
// resolver.
func ScriptShapes(n *syntax.Node) syntax.Shape {
	switch n.Kind {
	case "call_expression":
		return syntax.Call{Callee: n.Child("function")}
	case "new_expression":
		return syntax.Call{Callee: n.Child("constructor")}
	case "member_expression":
		prop := n.Child("property")
		if prop == nil || prop.Kind != "property_identifier" {
			return syntax.Other{}
		}
		return syntax.Member{Object: n.Child("object"), Property: prop.Text}
	case "identifier":
		return syntax.Identifier{Name: n.Text}
	}
	return syntax.Other{}
}

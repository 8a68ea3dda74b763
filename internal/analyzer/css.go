package analyzer

import (
	"strings"

	"github.com/jward/baseliner/internal/syntax"
)

// CSS reports css.properties.<property> and css.properties.<property>.<value>
// for every declaration. Regions the grammar could not parse, such as newer
// selector or at-rule syntax, are skipped.
type CSS struct{}

func (CSS) Detect(root *syntax.Node, r *Reporter) {
	syntax.Walk(root, func(n *syntax.Node) bool {
		if n.Kind == errorKind {
			return false
		}
		if n.Kind != "declaration" {
			return true
		}
		prop := n.FirstOfKind("property_name")
		if prop == nil {
			return false
		}
		name := strings.ToLower(prop.Text)
		if strings.HasPrefix(name, "--") {
			return false
		}
		value := DeclarationValue(n)
		if n.FirstOfKind(errorKind) != nil {
			value = ""
		}

		r.Report("css.properties."+name, n, name, value)
		if value != "" {
			r.Report("css.properties."+name+"."+value, n, name, value)
		}
		return false
	})
}

// DeclarationValue normalizes a declaration's value into the form used in
// lookup keys. Each named value node yields one token and tokens are joined
// with a single space:
//
//	call_expression  its function name only: calc(100% - 10px) → calc
//	string_value     source text, whitespace collapsed
//	anything else    lower-cased source text, whitespace collapsed
//
// The property name, !important and comments are not part of the value.
func DeclarationValue(decl *syntax.Node) string {
	var tokens []string
	for _, c := range decl.Children {
		var tok string
		switch c.Kind {
		case "property_name", "important", "comment", errorKind:
			continue
		case "call_expression":
			if fn := c.FirstOfKind("function_name"); fn != nil {
				tok = strings.ToLower(fn.Text)
			}
		case "string_value":
			tok = collapse(c.Text)
		default:
			tok = strings.ToLower(collapse(c.Text))
		}
		if tok != "" {
			tokens = append(tokens, tok)
		}
	}
	return strings.Join(tokens, " ")
}

// cssRecovered reports whether a declaration survived outside the tree's
// ERROR subtrees.
func cssRecovered(root *syntax.Node) bool {
	if root == nil || root.Kind == errorKind {
		return false
	}
	found := false
	syntax.Walk(root, func(n *syntax.Node) bool {
		if found || n.Kind == errorKind {
			return false
		}
		if n.Kind == "declaration" {
			found = true
			return false
		}
		return true
	})
	return found
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

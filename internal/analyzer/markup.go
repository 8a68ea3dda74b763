package analyzer

import (
	"strings"

	"github.com/jward/baseliner/internal/syntax"
)

// Markup reports each element's tag name and every <tag>.<attribute> pair.
// Both are lower-cased and located at the element's start tag.
type Markup struct{}

func (Markup) Detect(root *syntax.Node, r *Reporter) {
	syntax.Walk(root, func(n *syntax.Node) bool {
		switch n.Kind {
		case "element", "script_element", "style_element":
		default:
			return true
		}
		tag := n.FirstOfKind("start_tag")
		if tag == nil {
			tag = n.FirstOfKind("self_closing_tag")
		}
		if tag == nil {
			return true
		}
		nameNode := tag.FirstOfKind("tag_name")
		if nameNode == nil {
			return true
		}
		name := strings.ToLower(nameNode.Text)
		r.Report(name, tag, "", "")

		for _, attr := range tag.Children {
			if attr.Kind != "attribute" {
				continue
			}
			an := attr.FirstOfKind("attribute_name")
			if an == nil {
				continue
			}
			attrName := strings.ToLower(an.Text)
			r.Report(name+"."+attrName, tag, attrName, attributeValue(attr))
		}
		return true
	})
}

func attributeValue(attr *syntax.Node) string {
	if v := attr.FirstOfKind("attribute_value"); v != nil {
		return v.Text
	}
	if q := attr.FirstOfKind("quoted_attribute_value"); q != nil {
		if v := q.FirstOfKind("attribute_value"); v != nil {
			return v.Text
		}
	}
	return ""
}

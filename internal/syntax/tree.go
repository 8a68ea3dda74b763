// Package syntax turns tree-sitter parse trees into a small uniform node tree
// that analyzers walk without knowing the parser's native node types.
//
// A Node is built once per file. Only named tree-sitter nodes are kept;
// punctuation and keywords are dropped. Node text shares the memory of one
// source string.
package syntax

import (
	"context"
	"fmt"
	"math"

	"fortio.org/safecast"
	sitter "github.com/smacker/go-tree-sitter"
)

// Node is one named syntax node.
type Node struct {
	Kind     string
	Field    string // field name in the parent, "" if none
	Text     string
	Line     int // 1-based
	Column   int // 1-based, in bytes
	Children []*Node
}

// Child returns the first child stored under field, or nil.
func (n *Node) Child(field string) *Node {
	for _, c := range n.Children {
		if c.Field == field {
			return c
		}
	}
	return nil
}

// FirstOfKind returns the first direct child of the given kind, or nil.
func (n *Node) FirstOfKind(kind string) *Node {
	for _, c := range n.Children {
		if c.Kind == kind {
			return c
		}
	}
	return nil
}

// Walk visits n and its descendants depth-first in source order. Returning
// false from fn skips the node's children.
func Walk(n *Node, fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.Children {
		Walk(c, fn)
	}
}

// Tree is a parsed file: the uniform root plus the tree-sitter tree it was
// built from, which rule scripts query directly.
type Tree struct {
	Lang     Language
	Source   []byte
	Root     *Node
	Raw      *sitter.Tree
	Grammar  *sitter.Language
	HasError bool
}

// Close releases the tree-sitter tree.
func (t *Tree) Close() {
	if t != nil && t.Raw != nil {
		t.Raw.Close()
		t.Raw = nil
	}
}

// Parse parses src with the grammar for lang and builds the uniform tree.
// Syntax errors do not fail the parse; they are reported through HasError so
// each analyzer can apply its own tolerance.
func Parse(ctx context.Context, lang Language, src []byte) (*Tree, error) {
	grammar, ok := Grammar(lang)
	if !ok {
		return nil, fmt.Errorf("syntax: unsupported language %q", lang)
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(grammar)

	raw, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("syntax: parse %s: %w", lang, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("syntax: parse %s: no tree", lang)
	}

	root := raw.RootNode()
	return &Tree{
		Lang:     lang,
		Source:   src,
		Root:     Build(root, src),
		Raw:      raw,
		Grammar:  grammar,
		HasError: root.HasError(),
	}, nil
}

// Build converts a tree-sitter subtree into uniform nodes.
func Build(root *sitter.Node, src []byte) *Node {
	text := string(src)
	c := sitter.NewTreeCursor(root)
	defer c.Close()
	return build(c, text)
}

func build(c *sitter.TreeCursor, text string) *Node {
	n := c.CurrentNode()
	out := newNode(n, c.CurrentFieldName(), text)
	if c.GoToFirstChild() {
		for {
			if c.CurrentNode().IsNamed() {
				out.Children = append(out.Children, build(c, text))
			}
			if !c.GoToNextSibling() {
				break
			}
		}
		c.GoToParent()
	}
	return out
}

func newNode(n *sitter.Node, field, text string) *Node {
	line, col := Position(n.StartPoint())
	start, end := toInt(n.StartByte()), toInt(n.EndByte())
	end = min(end, len(text))
	start = min(start, end)
	return &Node{
		Kind:   n.Type(),
		Field:  field,
		Text:   text[start:end],
		Line:   line,
		Column: col,
	}
}

// Position converts a zero-based tree-sitter point to 1-based line/column.
func Position(p sitter.Point) (line, col int) {
	return toInt(p.Row) + 1, toInt(p.Column) + 1
}

func toInt(v uint32) int {
	n, err := safecast.Conv[int](v)
	if err != nil {
		return math.MaxInt
	}
	return n
}

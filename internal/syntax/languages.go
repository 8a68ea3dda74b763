package syntax

import (
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/css"
	"github.com/smacker/go-tree-sitter/html"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	ts "github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Language is a tree-sitter grammar name.
type Language string

const (
	CSS        Language = "css"
	JavaScript Language = "javascript"
	TypeScript Language = "typescript"
	TSX        Language = "tsx"
	HTML       Language = "html"
)

// extToLanguage maps file extensions to grammars. JSX is handled by the
// JavaScript grammar.
var extToLanguage = map[string]Language{
	".css":  CSS,
	".js":   JavaScript,
	".jsx":  JavaScript,
	".mjs":  JavaScript,
	".cjs":  JavaScript,
	".ts":   TypeScript,
	".mts":  TypeScript,
	".cts":  TypeScript,
	".tsx":  TSX,
	".html": HTML,
	".htm":  HTML,
}

// langToGrammar is initialised lazily; the grammars are cgo objects.
var (
	langToGrammar map[Language]*sitter.Language
	grammarsOnce  sync.Once
)

func initGrammars() {
	grammarsOnce.Do(func() {
		langToGrammar = map[Language]*sitter.Language{
			CSS:        css.GetLanguage(),
			JavaScript: javascript.GetLanguage(),
			TypeScript: ts.GetLanguage(),
			TSX:        tsx.GetLanguage(),
			HTML:       html.GetLanguage(),
		}
	})
}

// LanguageForFile returns the grammar for a path based on its extension.
// Returns ("", false) if the extension is not recognized.
func LanguageForFile(path string) (Language, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	lang, ok := extToLanguage[ext]
	return lang, ok
}

// Grammar returns the tree-sitter Language for a grammar name.
func Grammar(lang Language) (*sitter.Language, bool) {
	initGrammars()
	l, ok := langToGrammar[lang]
	return l, ok
}

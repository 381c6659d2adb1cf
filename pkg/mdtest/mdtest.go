// Package mdtest extracts compiler test cases from Markdown documents.
//
// A case starts at a heading of the form "Test: <name>". Inside a case,
// a fenced code block with language "fn" supplies the source program,
// and fences with one of the expectation languages supply what a
// pipeline stage must produce for it:
//
//	tokens          the bracketed token list
//	ast             the indented tree dump
//	ir              the IR text
//	resolve-errors  one "[Kind] name: message" line per diagnostic
//	type-errors     one "[Kind] message" line per diagnostic
package mdtest

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Expectation is one assertion fence in document order.
type Expectation struct {
	Kind    string // tokens | ast | ir | resolve-errors | type-errors
	Content string
}

// Case is one named test extracted from a document.
type Case struct {
	Name         string
	Source       string
	Expectations []Expectation
}

const sourceFence = "fn"

var expectationFences = map[string]bool{
	"tokens":         true,
	"ast":            true,
	"ir":             true,
	"resolve-errors": true,
	"type-errors":    true,
}

// ExtractCases parses a Markdown document and returns its test cases.
func ExtractCases(source []byte) ([]Case, error) {
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(source))

	var cases []Case
	var current *Case

	finish := func() error {
		if current == nil {
			return nil
		}
		if current.Source == "" {
			return fmt.Errorf("test '%s' has no %s fence", current.Name, sourceFence)
		}
		cases = append(cases, *current)
		current = nil
		return nil
	}

	err := ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n := node.(type) {
		case *ast.Heading:
			heading := headingText(n, source)
			if strings.HasPrefix(heading, "Test: ") {
				if err := finish(); err != nil {
					return ast.WalkStop, err
				}
				current = &Case{Name: strings.TrimPrefix(heading, "Test: ")}
			}
		case *ast.FencedCodeBlock:
			lang := string(n.Language(source))
			if lang == "" {
				return ast.WalkContinue, nil
			}
			if lang != sourceFence && !expectationFences[lang] {
				return ast.WalkStop, fmt.Errorf("unknown fence language '%s'", lang)
			}
			if current == nil {
				return ast.WalkStop, fmt.Errorf("%s fence found outside of a test case", lang)
			}
			content := fenceContent(n, source)
			if lang == sourceFence {
				if current.Source != "" {
					return ast.WalkStop, fmt.Errorf("multiple %s fences in test '%s'", sourceFence, current.Name)
				}
				current.Source = content
				return ast.WalkContinue, nil
			}
			current.Expectations = append(current.Expectations, Expectation{
				Kind:    lang,
				Content: strings.TrimRight(content, "\n"),
			})
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}
	if err := finish(); err != nil {
		return nil, err
	}
	return cases, nil
}

func headingText(n *ast.Heading, source []byte) string {
	var b strings.Builder
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		if t, ok := child.(*ast.Text); ok {
			b.Write(t.Segment.Value(source))
		}
	}
	return b.String()
}

func fenceContent(n *ast.FencedCodeBlock, source []byte) string {
	var b strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(source))
	}
	return b.String()
}

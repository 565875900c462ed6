package readme

import (
	"bytes"
	"fmt"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// Renderer converts extension README markdown into sanitized HTML.
type Renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// New creates a renderer. headingOffset shifts every markdown heading down
// by that many levels so a README's "# Title" does not compete with the
// surrounding page structure.
func New(headingOffset int) *Renderer {
	md := goldmark.New(
		goldmark.WithExtensions(extension.Strikethrough),
		goldmark.WithParserOptions(
			parser.WithASTTransformers(
				util.Prioritized(&headingShifter{offset: headingOffset}, 100),
			),
		),
	)

	// Baseline safe tag set plus headings and images.
	policy := bluemonday.UGCPolicy()
	policy.AllowElements("h1", "h2", "h3", "h4", "h5", "h6")
	policy.AllowImages()

	return &Renderer{md: md, policy: policy}
}

// Render compiles markdown to HTML and sanitizes the result.
func (r *Renderer) Render(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("failed to compile readme: %w", err)
	}
	return r.policy.Sanitize(buf.String()), nil
}

// headingShifter bumps heading levels by a fixed offset, clamped at h6.
type headingShifter struct {
	offset int
}

func (s *headingShifter) Transform(doc *ast.Document, reader text.Reader, pc parser.Context) {
	if s.offset == 0 {
		return
	}
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if heading, ok := n.(*ast.Heading); ok && entering {
			level := heading.Level + s.offset
			if level > 6 {
				level = 6
			}
			heading.Level = level
		}
		return ast.WalkContinue, nil
	})
}

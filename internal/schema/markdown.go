package schema

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var md = goldmark.New()

// RenderHTML renders a structured text blob as HTML.
func RenderHTML(blob string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(blob), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}

// StripMarkup strips the markdown markers from a structured text blob, leaving
// one paragraph per block separated by blank lines. Used to feed structured
// case documents to the chunker.
func StripMarkup(blob string) string {
	src := []byte(blob)
	doc := md.Parser().Parse(text.NewReader(src))

	var blocks []string
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if t := blockText(n, src); t != "" {
			blocks = append(blocks, t)
		}
	}
	return strings.Join(blocks, "\n\n")
}

func blockText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	switch n.Kind() {
	case ast.KindCodeBlock, ast.KindFencedCodeBlock:
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			buf.Write(seg.Value(src))
		}
		return strings.TrimSpace(buf.String())
	}
	if n.Type() == ast.TypeBlock && n.FirstChild() != nil && n.FirstChild().Type() == ast.TypeBlock {
		// Container block (list, blockquote): flatten its children.
		var parts []string
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			if t := blockText(c, src); t != "" {
				parts = append(parts, t)
			}
		}
		return strings.Join(parts, "\n")
	}
	writeInline(&buf, n, src)
	return strings.TrimSpace(buf.String())
}

func writeInline(buf *bytes.Buffer, n ast.Node, src []byte) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Value(src))
			if t.HardLineBreak() {
				buf.WriteByte('\n')
			} else if t.SoftLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(t.Value)
		default:
			writeInline(buf, c, src)
		}
	}
}

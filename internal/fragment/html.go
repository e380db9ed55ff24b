package fragment

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// FromHTML parses an HTML page and flattens its <body> into fragments in
// document order. Every element yields one fragment; a span inside a
// paragraph is listed in the paragraph's Spans and also appears as its own
// fragment after the paragraph.
func FromHTML(r io.Reader) ([]Fragment, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	root := findBody(doc)
	if root == nil {
		root = doc
	}
	return Flatten(root), nil
}

// Flatten walks n in pre-order and returns a fragment for every element below it.
func Flatten(n *html.Node) []Fragment {
	var out []Fragment
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if skipElement(n.Data) {
				return
			}
			out = append(out, fromNode(n))
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c)
	}
	return out
}

func fromNode(n *html.Node) Fragment {
	f := Fragment{
		Kind:  KindForTag(n.Data),
		Tag:   n.Data,
		ID:    attr(n, "id"),
		Style: ParseStyle(attr(n, "style"), attr(n, "class")),
		Text:  TextContent(n),
	}
	if f.Kind == KindParagraph {
		f.Spans = descendantSpans(n)
	}
	return f
}

func descendantSpans(n *html.Node) []Fragment {
	var spans []Fragment
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.Data == "span" {
				spans = append(spans, Fragment{
					Kind:  KindSpan,
					Tag:   c.Data,
					ID:    attr(c, "id"),
					Style: ParseStyle(attr(c, "style"), attr(c, "class")),
					Text:  TextContent(c),
				})
			}
			walk(c)
		}
	}
	walk(n)
	return spans
}

// TextContent returns the text below n with runs of whitespace collapsed to
// single spaces.
func TextContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		if n.Type == html.ElementNode {
			if skipElement(n.Data) {
				return
			}
			if n.Data == "br" {
				buf.WriteByte(' ')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.Join(strings.Fields(buf.String()), " ")
}

func skipElement(tag string) bool {
	switch tag {
	case "script", "style", "noscript", "template":
		return true
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}

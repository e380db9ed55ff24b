// Package fragment models the flattened content stream of a case page: every
// element of the page in document order, with its tag kind, inline style hints
// and text. No nesting is modeled except the spans a paragraph contains.
package fragment

import (
	"slices"
	"strings"
)

// Kind is the coarse tag category of a fragment.
type Kind int

const (
	KindOther Kind = iota
	KindParagraph
	KindSpan
	KindHeading
)

func (k Kind) String() string {
	switch k {
	case KindParagraph:
		return "paragraph"
	case KindSpan:
		return "span"
	case KindHeading:
		return "heading"
	default:
		return "other"
	}
}

// KindForTag maps an HTML tag name to its fragment kind.
func KindForTag(tag string) Kind {
	switch strings.ToLower(tag) {
	case "p":
		return KindParagraph
	case "span":
		return KindSpan
	case "h1", "h2", "h3", "h4", "h5", "h6":
		return KindHeading
	}
	return KindOther
}

// Fragment is one element of the content stream.
type Fragment struct {
	Kind  Kind
	Tag   string
	ID    string
	Style Style
	Text  string // whitespace-collapsed text content

	// Spans holds the <span> descendants of a paragraph, in document order.
	Spans []Fragment
}

// Empty reports whether the fragment has no text after trimming.
func (f Fragment) Empty() bool {
	return strings.TrimSpace(f.Text) == ""
}

// FirstSpan returns the first nested span matching pred.
func (f Fragment) FirstSpan(pred func(Fragment) bool) (Fragment, bool) {
	for _, s := range f.Spans {
		if pred(s) {
			return s, true
		}
	}
	return Fragment{}, false
}

// Style is the parsed style descriptor of an element: its inline CSS
// declarations and its class list.
type Style struct {
	Decls   map[string]string // property -> value, both lower-cased, value without spaces
	Order   []string          // properties in declaration order
	Classes []string
}

// ParseStyle parses an inline style attribute and a class attribute.
func ParseStyle(style, class string) Style {
	s := Style{Classes: strings.Fields(class)}
	for _, decl := range strings.Split(style, ";") {
		prop, val, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		prop = strings.ToLower(strings.TrimSpace(prop))
		if prop == "" {
			continue
		}
		if s.Decls == nil {
			s.Decls = make(map[string]string)
		}
		if _, seen := s.Decls[prop]; !seen {
			s.Order = append(s.Order, prop)
		}
		s.Decls[prop] = normalizeValue(val)
	}
	return s
}

// HasProperty reports whether the property is declared.
func (s Style) HasProperty(prop string) bool {
	_, ok := s.Decls[strings.ToLower(prop)]
	return ok
}

// Property returns the normalized value of a declared property.
func (s Style) Property(prop string) string {
	return s.Decls[strings.ToLower(prop)]
}

// Background reports whether the element's background is the given color.
func (s Style) Background(color string) bool {
	if color == "" {
		return false
	}
	c := normalizeValue(color)
	return strings.Contains(s.Decls["background-color"], c) || strings.Contains(s.Decls["background"], c)
}

// Color reports whether the element's foreground color is the given color.
func (s Style) Color(color string) bool {
	if color == "" {
		return false
	}
	return strings.Contains(s.Decls["color"], normalizeValue(color))
}

// HasClass reports whether the class list contains name.
func (s Style) HasClass(name string) bool {
	return slices.Contains(s.Classes, name)
}

func normalizeValue(v string) string {
	v = strings.ToLower(v)
	v = strings.ReplaceAll(v, "!important", "")
	return strings.Join(strings.Fields(v), "")
}

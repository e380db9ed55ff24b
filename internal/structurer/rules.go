package structurer

import (
	"strings"

	"github.com/dgallion1/rticorpus/internal/fragment"
	"github.com/dgallion1/rticorpus/internal/schema"
)

// state is what the rules may look at besides the fragment itself.
type state struct {
	titleSeen  bool
	expectDate bool // true until the first paragraph or span after the title
}

// rule classifies one fragment. Rules are tried in order and the first whose
// Match returns true emits the lines for the fragment.
type rule struct {
	Name  string
	Match func(st *state, f fragment.Fragment) bool
	Emit  func(st *state, f fragment.Fragment) []schema.Line
}

// classificationRules returns the classification table for a vocabulary. The first rule is
// always the title rule.
func classificationRules(v Vocabulary) []rule {
	isSubHeadingSpan := func(s fragment.Fragment) bool {
		return !s.Empty() && s.Style.Color(v.SubHeadingColor)
	}
	isDateSpan := func(s fragment.Fragment) bool {
		return !s.Empty() && s.Style.HasClass(v.DateClass) && s.Style.Background(v.DateBackground)
	}

	return []rule{
		{
			Name: "title",
			Match: func(st *state, f fragment.Fragment) bool {
				return !st.titleSeen && f.Kind == fragment.KindHeading && f.Style.Background(v.TitleBackground)
			},
			Emit: func(st *state, f fragment.Fragment) []schema.Line {
				st.titleSeen = true
				st.expectDate = true
				return []schema.Line{{Kind: schema.Heading, Text: f.Text}}
			},
		},
		{
			Name: "date",
			Match: func(st *state, f fragment.Fragment) bool {
				if !st.expectDate {
					return false
				}
				switch f.Kind {
				case fragment.KindSpan:
					return isDateSpan(f)
				case fragment.KindParagraph:
					_, ok := f.FirstSpan(isDateSpan)
					return ok
				}
				return false
			},
			// Traversal resumes after the date span, so loose text of an
			// enclosing paragraph is dropped. Spans after it still arrive as
			// their own fragments.
			Emit: func(st *state, f fragment.Fragment) []schema.Line {
				if f.Kind == fragment.KindSpan {
					return []schema.Line{{Kind: schema.DateStamp, Text: f.Text}}
				}
				span, _ := f.FirstSpan(isDateSpan)
				return []schema.Line{{Kind: schema.DateStamp, Text: span.Text}}
			},
		},
		{
			Name: "subheading",
			Match: func(st *state, f fragment.Fragment) bool {
				if f.Kind != fragment.KindParagraph {
					return false
				}
				_, ok := f.FirstSpan(isSubHeadingSpan)
				return ok
			},
			Emit: func(st *state, f fragment.Fragment) []schema.Line {
				span, _ := f.FirstSpan(isSubHeadingSpan)
				return splitOff(schema.SubHeading, span.Text, f.Text)
			},
		},
		{
			Name: "indented",
			Match: func(st *state, f fragment.Fragment) bool {
				return f.Kind == fragment.KindParagraph && f.Style.HasProperty(v.IndentProperty)
			},
			Emit: func(st *state, f fragment.Fragment) []schema.Line {
				return []schema.Line{{Kind: schema.IndentedText, Text: f.Text}}
			},
		},
		{
			Name: "paragraph",
			Match: func(st *state, f fragment.Fragment) bool {
				return f.Kind == fragment.KindParagraph
			},
			Emit: func(st *state, f fragment.Fragment) []schema.Line {
				return []schema.Line{{Kind: schema.PlainText, Text: f.Text}}
			},
		},
		{
			Name: "speaker",
			Match: func(st *state, f fragment.Fragment) bool {
				return f.Kind == fragment.KindSpan && f.Style.Color(v.SpeakerColor)
			},
			Emit: func(st *state, f fragment.Fragment) []schema.Line {
				return []schema.Line{{Kind: schema.SpeakerLine, Text: f.Text}}
			},
		},
	}
}

// splitOff emits the span text as a line of kind k, followed by the rest of
// the paragraph with the first occurrence of the span text removed.
func splitOff(k schema.LineKind, spanText, paraText string) []schema.Line {
	lines := []schema.Line{{Kind: k, Text: spanText}}
	rest := strings.Join(strings.Fields(strings.Replace(paraText, spanText, "", 1)), " ")
	if rest != "" {
		lines = append(lines, schema.Line{Kind: schema.PlainText, Text: rest})
	}
	return lines
}

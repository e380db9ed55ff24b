package schema

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLine_Render(t *testing.T) {
	tests := []struct {
		line Line
		want string
	}{
		{Line{Heading, "Q"}, "# Q"},
		{Line{DateStamp, "01 Jan 2020"}, "**Date**: 01 Jan 2020"},
		{Line{SubHeading, "Background"}, "## Background"},
		{Line{SpeakerLine, "Appellant"}, "**Appellant**"},
		{Line{IndentedText, "quoted"}, "  quoted"},
		{Line{PlainText, "para"}, "para"},
	}
	for _, tt := range tests {
		t.Run(tt.line.Kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.line.Render())
		})
	}
}

func TestDocument_String(t *testing.T) {
	doc := Document{Lines: []Line{
		{Heading, "Title"},
		{PlainText, "a\r\nb"},
		{PlainText, "   "},
		{IndentedText, "col1\tcol2"},
	}}
	assert.Equal(t, "# Title\n\na\nb\n\n  col1 col2", doc.String())
}

func TestDocument_Validate(t *testing.T) {
	ok := Document{Lines: []Line{{Heading, "T"}, {PlainText, "x"}}}
	require.NoError(t, ok.Validate())
	assert.Equal(t, "T", ok.Title())

	late := Document{Lines: []Line{{PlainText, "x"}, {Heading, "T"}}}
	assert.ErrorIs(t, late.Validate(), ErrHeadingNotFirst)
	assert.Equal(t, "", late.Title())

	twice := Document{Lines: []Line{{Heading, "T"}, {Heading, "U"}}}
	assert.ErrorIs(t, twice.Validate(), ErrMultipleHeadings)

	blank := Document{Lines: []Line{{Heading, "T"}, {PlainText, " "}}}
	assert.ErrorIs(t, blank.Validate(), ErrBlankLine)

	assert.ErrorIs(t, Document{}.Validate(), ErrEmptyDocument)
}

func TestParseText_Scenario(t *testing.T) {
	p := NewParser(DefaultAnchors())
	rec, err := p.ParseText("# Q1\n\nBackground\n\nBG text here\n\nView of CIC\n\nHolding text\n\nCitation: 2020")
	require.NoError(t, err)
	assert.Equal(t, CaseRecord{
		Instruction: "Q1\n\nBackground:\nBG text here",
		Response:    "Holding text",
	}, rec)
}

func TestParseText_NoCitationRunsToEnd(t *testing.T) {
	p := NewParser(Anchors{})
	rec, err := p.ParseText("# Q\n\nBackground\n\nbg\n\nView of CIC\n\nheld one\n\nheld two\n")
	require.NoError(t, err)
	assert.Equal(t, "held one\n\nheld two", rec.Response)
}

func TestParseText_SubHeadingAnchors(t *testing.T) {
	blob := "# Can minutes be disclosed?\n\n**Date**: 12 March 2019\n\n## Background\n\nThe appellant asked for minutes.\n\n" +
		"**Respondent**\n\n## View of CIC\n\nThe minutes must be disclosed.\n\nCitation: X v. Y"
	rec, err := NewParser(DefaultAnchors()).ParseText(blob)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(rec.Instruction, "Can minutes be disclosed?"))
	assert.Contains(t, rec.Instruction, "Background:")
	assert.Equal(t, "Can minutes be disclosed?\n\nBackground:\nThe appellant asked for minutes.\n\n**Respondent**\n\n##", rec.Instruction)
	assert.Equal(t, "The minutes must be disclosed.", rec.Response)
}

func TestParseText_TrimsWhitespaceOnly(t *testing.T) {
	p := NewParser(DefaultAnchors())
	tests := []struct {
		name, blob, background, holding string
	}{
		{
			name:       "heading marker before holding anchor",
			blob:       "# Q\n\n## Background\n\nBG text\n\n## View of CIC\n\nheld",
			background: "BG text\n\n##",
			holding:    "held",
		},
		{
			name:       "colon after background anchor",
			blob:       "# Q\nBackground: the appellant asked.\nView of CIC: granted.",
			background: ": the appellant asked.",
			holding:    ": granted.",
		},
		{
			name:       "emphasis-only lines kept",
			blob:       "# Q\n\nBackground\n\n**\n\nbg\n\n**\n\nView of CIC\n\n \t held \n\n",
			background: "**\n\nbg\n\n**",
			holding:    "held",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := p.ParseText(tt.blob)
			require.NoError(t, err)
			assert.Equal(t, "Q\n\nBackground:\n"+tt.background, rec.Instruction)
			assert.Equal(t, tt.holding, rec.Response)
		})
	}
}

func TestParseText_MissingHolding(t *testing.T) {
	blob := "# Q\n\nBackground\n\nsome background that never ends"
	_, err := NewParser(DefaultAnchors()).ParseText(blob)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingAnchor))

	var se *SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "View of CIC", se.Anchor)
	assert.Equal(t, blob, se.Snippet)
}

func TestParseText_MissingBackground(t *testing.T) {
	_, err := NewParser(DefaultAnchors()).ParseText("# Q\n\nView of CIC\n\nheld")
	var se *SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "Background", se.Anchor)
}

func TestParseText_MissingTitle(t *testing.T) {
	_, err := NewParser(DefaultAnchors()).ParseText("\nBackground\n\nbg\n\nView of CIC\n\nheld")
	var se *SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "title", se.Anchor)
}

func TestParseText_SnippetTruncated(t *testing.T) {
	blob := "# Q\n\n" + strings.Repeat("x", 500)
	_, err := NewParser(DefaultAnchors()).ParseText(blob)
	var se *SchemaError
	require.ErrorAs(t, err, &se)
	assert.Len(t, []rune(se.Snippet), SnippetLen)
}

// Sections containing an anchor string verbatim are cut at the first
// occurrence. This is the accepted behavior, not a bug.
func TestParseText_FirstOccurrenceTruncates(t *testing.T) {
	blob := "# Q\n\nBackground\n\nThe PIO relied on the View of CIC in an earlier case.\n\nView of CIC\n\nheld"
	rec, err := NewParser(DefaultAnchors()).ParseText(blob)
	require.NoError(t, err)
	assert.Equal(t, "Q\n\nBackground:\nThe PIO relied on the", rec.Instruction)
	assert.Equal(t, "in an earlier case.\n\nView of CIC\n\nheld", rec.Response)
}

func TestParse_Document(t *testing.T) {
	doc := Document{Lines: []Line{
		{Heading, "Q1"},
		{SubHeading, "Background"},
		{PlainText, "BG text here"},
		{SubHeading, "View of CIC"},
		{PlainText, "Holding text"},
		{PlainText, "Citation: 2020"},
	}}
	rec, err := NewParser(DefaultAnchors()).Parse(doc)
	require.NoError(t, err)
	assert.Equal(t, "Q1\n\nBackground:\nBG text here\n\n##", rec.Instruction)
	assert.Equal(t, "Holding text", rec.Response)
}

func TestNewParser_CustomAnchors(t *testing.T) {
	p := NewParser(Anchors{Holding: "View of SIC"})
	assert.Equal(t, "Background", p.Anchors().Background)
	rec, err := p.ParseText("# Q\n\nBackground\n\nbg\n\nView of SIC\n\nheld")
	require.NoError(t, err)
	assert.Equal(t, "held", rec.Response)
}

func TestStripMarkup(t *testing.T) {
	blob := "# Title\n\n**Date**: 1 May 2020\n\n## Background\n\nplain para\n\n**Appellant**\n\n  indented quote"
	got := StripMarkup(blob)
	assert.Equal(t, "Title\n\nDate: 1 May 2020\n\nBackground\n\nplain para\n\nAppellant\n\nindented quote", got)
}

func TestRenderHTML(t *testing.T) {
	out, err := RenderHTML("# Title\n\n## Background\n\n**Appellant**")
	require.NoError(t, err)
	assert.Contains(t, out, "<h1>Title</h1>")
	assert.Contains(t, out, "<h2>Background</h2>")
	assert.Contains(t, out, "<strong>Appellant</strong>")
}

func TestLineKind_MarshalText(t *testing.T) {
	b, err := SpeakerLine.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "speaker", string(b))
	assert.Equal(t, "LineKind(42)", LineKind(42).String())
}

package fragment

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStyle(t *testing.T) {
	s := ParseStyle("Background-Color: #FFCC00 ; color:#0000FF;margin-left: 40px", "innerArticle_span  other")

	assert.True(t, s.Background("#ffcc00"))
	assert.True(t, s.Color("#0000ff"))
	assert.False(t, s.Color("#ff0000"))
	assert.True(t, s.HasProperty("margin-left"))
	assert.Equal(t, "40px", s.Property("margin-left"))
	assert.True(t, s.HasClass("innerArticle_span"))
	assert.Equal(t, []string{"background-color", "color", "margin-left"}, s.Order)
}

func TestParseStyle_BackgroundIsNotColor(t *testing.T) {
	s := ParseStyle("background-color:#ff0000", "")
	assert.False(t, s.Color("#ff0000"))
	assert.True(t, s.Background("#ff0000"))
}

func TestParseStyle_Empty(t *testing.T) {
	s := ParseStyle("", "")
	assert.False(t, s.Background("#ffcc00"))
	assert.False(t, s.HasProperty("margin-left"))
	assert.False(t, s.Background(""))
}

func TestFromHTML_DocumentOrder(t *testing.T) {
	page := `<html><head><style>p{}</style></head><body>
<div id="wrap">
  <h1 style="background-color:#FFCC00">Is a file noting disclosable?</h1>
  <p><span style="color:#ff0000">Background</span> The appellant   sought
  copies.</p>
  <p style="margin-left:40px">Quoted <b>text</b></p>
  <script>var x = 1;</script>
  <div id="article-end"></div>
</div>
</body></html>`

	frags, err := FromHTML(strings.NewReader(page))
	require.NoError(t, err)

	var tags []string
	for _, f := range frags {
		tags = append(tags, f.Tag)
	}
	assert.Equal(t, []string{"div", "h1", "p", "span", "p", "b", "div"}, tags)

	h1 := frags[1]
	assert.Equal(t, KindHeading, h1.Kind)
	assert.Equal(t, "Is a file noting disclosable?", h1.Text)

	p := frags[2]
	assert.Equal(t, KindParagraph, p.Kind)
	assert.Equal(t, "Background The appellant sought copies.", p.Text)
	require.Len(t, p.Spans, 1)
	assert.Equal(t, "Background", p.Spans[0].Text)
	assert.True(t, p.Spans[0].Style.Color("#FF0000"))

	assert.Equal(t, "Quoted text", frags[4].Text)
	assert.True(t, frags[4].Style.HasProperty("margin-left"))
	assert.Equal(t, "article-end", frags[6].ID)
}

func TestFromHTML_NoBody(t *testing.T) {
	frags, err := FromHTML(strings.NewReader(`<p>only</p>`))
	require.NoError(t, err)
	require.NotEmpty(t, frags)
	assert.Equal(t, "only", frags[0].Text)
}

func TestFragment_Empty(t *testing.T) {
	assert.True(t, Fragment{Text: "  \n "}.Empty())
	assert.False(t, Fragment{Text: "x"}.Empty())
}

func TestKindForTag(t *testing.T) {
	assert.Equal(t, KindParagraph, KindForTag("P"))
	assert.Equal(t, KindSpan, KindForTag("span"))
	assert.Equal(t, KindHeading, KindForTag("h3"))
	assert.Equal(t, KindOther, KindForTag("div"))
	assert.Equal(t, "paragraph", KindParagraph.String())
}

package structurer

// Vocabulary names the style hints that carry meaning on a case page.
type Vocabulary struct {
	TitleBackground string `toml:"title_background"`
	DateClass       string `toml:"date_class"`
	DateBackground  string `toml:"date_background"`
	SubHeadingColor string `toml:"subheading_color"`
	SpeakerColor    string `toml:"speaker_color"`
	IndentProperty  string `toml:"indent_property"`
	SentinelID      string `toml:"sentinel_id"`
}

// DefaultVocabulary matches the markup of rtifoundationofindia.com case pages.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		TitleBackground: "#FFCC00",
		DateClass:       "innerArticle_span",
		DateBackground:  "#FFCC00",
		SubHeadingColor: "#ff0000",
		SpeakerColor:    "#0000ff",
		IndentProperty:  "margin-left",
		SentinelID:      "article-end",
	}
}

// withDefaults fills empty fields from DefaultVocabulary.
func (v Vocabulary) withDefaults() Vocabulary {
	d := DefaultVocabulary()
	if v.TitleBackground == "" {
		v.TitleBackground = d.TitleBackground
	}
	if v.DateClass == "" {
		v.DateClass = d.DateClass
	}
	if v.DateBackground == "" {
		v.DateBackground = d.DateBackground
	}
	if v.SubHeadingColor == "" {
		v.SubHeadingColor = d.SubHeadingColor
	}
	if v.SpeakerColor == "" {
		v.SpeakerColor = d.SpeakerColor
	}
	if v.IndentProperty == "" {
		v.IndentProperty = d.IndentProperty
	}
	if v.SentinelID == "" {
		v.SentinelID = d.SentinelID
	}
	return v
}

// Package schema defines the intermediate case-document schema shared by the
// structurer and the record parser, its legacy text serialization, and the
// anchor-based parser that turns it into instruction/response records.
package schema

import (
	"errors"
	"fmt"
	"strings"
)

// LineKind tags one line of a structured case document.
type LineKind int

const (
	PlainText LineKind = iota
	Heading
	DateStamp
	SubHeading
	SpeakerLine
	IndentedText
)

var kindNames = map[LineKind]string{
	PlainText:    "plain",
	Heading:      "heading",
	DateStamp:    "date",
	SubHeading:   "subheading",
	SpeakerLine:  "speaker",
	IndentedText: "indented",
}

func (k LineKind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("LineKind(%d)", int(k))
}

// MarshalText lets line kinds appear by name in JSON output.
func (k LineKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Line is one classified line of a case document.
type Line struct {
	Kind LineKind `json:"kind"`
	Text string   `json:"text"`
}

// Render returns the line in its markdown-like text form.
func (l Line) Render() string {
	switch l.Kind {
	case Heading:
		return "# " + l.Text
	case DateStamp:
		return "**Date**: " + l.Text
	case SubHeading:
		return "## " + l.Text
	case SpeakerLine:
		return "**" + l.Text + "**"
	case IndentedText:
		return "  " + l.Text
	default:
		return l.Text
	}
}

// Document is the structured form of one source page.
type Document struct {
	Source string `json:"source"`
	Lines  []Line `json:"lines"`
}

var (
	ErrHeadingNotFirst  = errors.New("heading is not the first line")
	ErrMultipleHeadings = errors.New("more than one heading")
	ErrBlankLine        = errors.New("blank line")
	ErrEmptyDocument    = errors.New("document has no lines")
)

// Validate checks the document invariants: a single heading in first
// position and no blank lines.
func (d Document) Validate() error {
	if len(d.Lines) == 0 {
		return ErrEmptyDocument
	}
	for i, l := range d.Lines {
		if strings.TrimSpace(l.Text) == "" {
			return fmt.Errorf("line %d: %w", i, ErrBlankLine)
		}
		if l.Kind != Heading {
			continue
		}
		if i != 0 {
			if d.Lines[0].Kind == Heading {
				return fmt.Errorf("line %d: %w", i, ErrMultipleHeadings)
			}
			return fmt.Errorf("line %d: %w", i, ErrHeadingNotFirst)
		}
	}
	return nil
}

// Title returns the heading text, or "" if the document has none.
func (d Document) Title() string {
	if len(d.Lines) > 0 && d.Lines[0].Kind == Heading {
		return d.Lines[0].Text
	}
	return ""
}

// String serializes the document to the legacy text form consumed by Parse:
// rendered non-blank lines separated by a blank line, carriage returns
// removed and tabs turned into spaces.
func (d Document) String() string {
	rendered := make([]string, 0, len(d.Lines))
	for _, l := range d.Lines {
		r := l.Render()
		if strings.TrimSpace(r) == "" {
			continue
		}
		rendered = append(rendered, r)
	}
	text := strings.Join(rendered, "\n\n")
	text = strings.ReplaceAll(text, "\r", "")
	return strings.ReplaceAll(text, "\t", " ")
}

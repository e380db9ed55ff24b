package schema

import (
	"errors"
	"fmt"
	"strings"
)

// Anchors are the literal strings that delimit the sections of a structured
// case document. Changing them breaks every document already produced.
type Anchors struct {
	Background string `toml:"background" json:"background"`
	Holding    string `toml:"holding" json:"holding"`
	Citation   string `toml:"citation" json:"citation"`
}

// DefaultAnchors returns the anchors used by RTI case pages.
func DefaultAnchors() Anchors {
	return Anchors{
		Background: "Background",
		Holding:    "View of CIC",
		Citation:   "Citation:",
	}
}

// CaseRecord is one instruction/response training pair.
type CaseRecord struct {
	Instruction string `json:"instruction"`
	Response    string `json:"response"`
}

// NewCaseRecord assembles a record from its three sections.
func NewCaseRecord(question, background, holding string) CaseRecord {
	return CaseRecord{
		Instruction: question + "\n\nBackground:\n" + background,
		Response:    holding,
	}
}

// SnippetLen is how much of a rejected input is kept for diagnosis.
const SnippetLen = 200

// ErrMissingAnchor is matched by every SchemaError.
var ErrMissingAnchor = errors.New("missing anchor")

// SchemaError reports a structured document that lacks a required section.
type SchemaError struct {
	Anchor  string
	Snippet string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("missing anchor %q (input: %q)", e.Anchor, e.Snippet)
}

func (e *SchemaError) Unwrap() error { return ErrMissingAnchor }

// Parser splits structured case documents into records.
type Parser struct {
	anchors Anchors
}

// NewParser returns a parser using the given anchors. Empty anchor fields
// fall back to the defaults.
func NewParser(a Anchors) *Parser {
	def := DefaultAnchors()
	if a.Background == "" {
		a.Background = def.Background
	}
	if a.Holding == "" {
		a.Holding = def.Holding
	}
	if a.Citation == "" {
		a.Citation = def.Citation
	}
	return &Parser{anchors: a}
}

// Anchors returns the anchors in use.
func (p *Parser) Anchors() Anchors { return p.anchors }

// Parse extracts a record from a structured document via its text form.
func (p *Parser) Parse(doc Document) (CaseRecord, error) {
	return p.ParseText(doc.String())
}

// ParseText extracts the question, background and holding from a structured
// text blob. Every anchor match is a first occurrence: a section that itself
// contains an anchor string is cut short at it. Sections are trimmed of
// surrounding whitespace only, so markup around an anchor (the "## " of a
// sub-heading, a ":" after the anchor) stays in the section text.
func (p *Parser) ParseText(text string) (CaseRecord, error) {
	first, _, _ := strings.Cut(text, "\n")
	question := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(first), "# "))
	if question == "" {
		return CaseRecord{}, p.missing("title", text)
	}

	_, afterBackground, ok := strings.Cut(text, p.anchors.Background)
	if !ok {
		return CaseRecord{}, p.missing(p.anchors.Background, text)
	}
	background, afterHolding, ok := strings.Cut(afterBackground, p.anchors.Holding)
	if !ok {
		return CaseRecord{}, p.missing(p.anchors.Holding, text)
	}
	holding, _, _ := strings.Cut(afterHolding, p.anchors.Citation)

	return NewCaseRecord(question, strings.TrimSpace(background), strings.TrimSpace(holding)), nil
}

func (p *Parser) missing(anchor, text string) error {
	return &SchemaError{Anchor: anchor, Snippet: Snippet(text)}
}

// Snippet returns the first SnippetLen characters of s.
func Snippet(s string) string {
	r := []rune(s)
	if len(r) <= SnippetLen {
		return s
	}
	return string(r[:SnippetLen])
}

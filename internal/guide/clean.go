package guide

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// DefaultFooter matches the running footer of the RTI guide.
var DefaultFooter = regexp.MustCompile(`^\d+ Guide on Right to Information Act,? 2005$`)

var (
	pageMarkerRe     = regexp.MustCompile(`^===== Page \d+( \[text layer\])? =====$`)
	pageSeparatorRe  = regexp.MustCompile(`=+ Page \d+ =+`)
	pageNumberRe     = regexp.MustCompile(`^\d+$`)
	trailingNumberRe = regexp.MustCompile(`\s+\d+$`)
	sectionHeaderRe  = regexp.MustCompile(`^\d+\.\s+[A-Za-z]`)
	questionRe       = regexp.MustCompile(`^(\d+\.\d+\.)\s+(.*)`)
)

// Clean drops page markers, footers and page numbers line by line and
// removes empty lines. A nil footer uses DefaultFooter.
func Clean(text string, footer *regexp.Regexp) string {
	if footer == nil {
		footer = DefaultFooter
	}
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if pageMarkerRe.MatchString(line) || footer.MatchString(line) || pageNumberRe.MatchString(line) {
			continue
		}
		line = trailingNumberRe.ReplaceAllString(line, "")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// FAQ is one numbered question with its answer.
type FAQ struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// ExtractFAQs finds numbered questions ("1.2. ...") and collects the lines
// after each as its answer. Section headers ("3. Fees") and lines before the
// first question are dropped.
func ExtractFAQs(text string) []FAQ {
	var (
		faqs    []FAQ
		current *FAQ
		answer  []string
	)
	flush := func() {
		if current != nil {
			current.Answer = strings.Join(answer, " ")
			faqs = append(faqs, *current)
		}
		answer = nil
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || pageSeparatorRe.MatchString(line) {
			continue
		}
		if sectionHeaderRe.MatchString(line) {
			continue
		}
		if m := questionRe.FindStringSubmatch(line); m != nil {
			flush()
			current = &FAQ{Question: strings.TrimSpace(m[2])}
			continue
		}
		if current != nil {
			answer = append(answer, line)
		}
	}
	flush()
	return faqs
}

// WriteFAQCSV writes faqs with a Question,Answer header.
func WriteFAQCSV(w io.Writer, faqs []FAQ) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Question", "Answer"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, f := range faqs {
		if err := cw.Write([]string{f.Question, f.Answer}); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

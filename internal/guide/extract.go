// Package guide turns RTI guide and FAQ documents into clean text.
package guide

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/fumiama/go-docx"
	pdflib "github.com/ledongthuc/pdf"
)

// ErrUnsupported is returned for files that are not PDF, DOCX or text.
var ErrUnsupported = errors.New("unsupported file extension")

// Extractor pulls raw text out of guide documents.
type Extractor struct {
	// FallbackPdftotext retries with pdftotext -layout when the Go PDF
	// reader fails.
	FallbackPdftotext bool
}

// ExtractFile reads the document at path, choosing the format by extension.
func (e *Extractor) ExtractFile(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".pdf":
		return e.ExtractPDF(ctx, data)
	case ".docx":
		return ExtractDOCX(data)
	case ".txt":
		return string(data), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupported, ext)
	}
}

// ExtractPDF returns the text of every page, each followed by a newline.
func (e *Extractor) ExtractPDF(ctx context.Context, data []byte) (string, error) {
	text, err := extractPDFText(data)
	if err != nil && e.FallbackPdftotext {
		text, err = extractPdftotext(ctx, data)
	}
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	return text, nil
}

func extractPDFText(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty pdf content")
	}
	reader, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var buf strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		buf.WriteString(text)
		buf.WriteString("\n")
	}
	return buf.String(), nil
}

// pdftotext separates pages with form feeds.
func extractPdftotext(ctx context.Context, data []byte) (string, error) {
	tmp, err := os.CreateTemp("", "rticorpus-pdf-*.pdf")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	out, err := exec.CommandContext(ctx, "pdftotext", "-layout", tmpPath, "-").Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w", err)
	}
	return strings.ReplaceAll(string(out), "\f", "\n"), nil
}

// ExtractDOCX returns the paragraph texts of a .docx file joined by newlines.
func ExtractDOCX(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty docx content")
	}
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("parse docx: %w", err)
	}

	var lines []string
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		lines = append(lines, paragraphText(para))
	}
	return strings.Join(lines, "\n"), nil
}

func paragraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}

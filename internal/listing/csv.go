package listing

import (
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
)

var csvHeader = []string{"Date", "Summary", "Link", "Page"}

// WriteCSV writes entries with a Date,Summary,Link,Page header.
func WriteCSV(w io.Writer, entries []Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, e := range entries {
		if err := cw.Write([]string{e.Date, e.Summary, e.Link, strconv.Itoa(e.Page)}); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV reads entries written by WriteCSV. Columns are located by header
// name; only Link is required.
func ReadCSV(r io.Reader) ([]Entry, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	col := make(map[string]int)
	for i, h := range records[0] {
		col[strings.TrimPrefix(strings.TrimSpace(h), "\ufeff")] = i
	}
	linkCol, ok := col["Link"]
	if !ok {
		return nil, fmt.Errorf("parse csv: missing Link column")
	}
	get := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	entries := make([]Entry, 0, len(records)-1)
	for _, row := range records[1:] {
		if linkCol >= len(row) {
			continue
		}
		e := Entry{
			Date:    get(row, "Date"),
			Summary: get(row, "Summary"),
			Link:    row[linkCol],
		}
		if p := get(row, "Page"); p != "" {
			if n, err := strconv.Atoi(p); err == nil {
				e.Page = n
			}
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Scraped pairs a listing entry with the structured text of its case page.
// Content is empty when the page could not be structured.
type Scraped struct {
	Entry
	Content string
}

// WriteContentCSV writes scraped entries with their content, its length and a
// Success/Failed status column.
func WriteContentCSV(w io.Writer, rows []Scraped) error {
	cw := csv.NewWriter(w)
	header := append(slices.Clone(csvHeader), "Content", "Content_Length", "Scrape_Status")
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range rows {
		status := "Success"
		if r.Content == "" {
			status = "Failed"
		}
		rec := []string{
			r.Date, r.Summary, r.Link, strconv.Itoa(r.Page),
			r.Content, strconv.Itoa(len(r.Content)), status,
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Package listing reads the paginated case index of the RTI Foundation site.
package listing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/dgallion1/rticorpus/internal/fragment"
)

// Placeholders for values missing from an entry.
const (
	NoDate    = "No date"
	NoSummary = "No summary"
	NoLink    = "No link"
)

// ErrNoEntries is returned when a page has no case entries.
var ErrNoEntries = errors.New("no case entries on page")

var (
	contentBlockSel = cascadia.MustCompile("div#content_listing_block")
	tableSel        = cascadia.MustCompile("table")
	entrySel        = cascadia.MustCompile("td:has(span.date_cls)")
	dateSel         = cascadia.MustCompile("span.date_cls")
	summarySel      = cascadia.MustCompile("span.display1_teaser > a")
)

// Entry is one case on a listing page.
type Entry struct {
	Date    string `json:"date"`
	Summary string `json:"summary"`
	Link    string `json:"link"`
	Page    int    `json:"page"`
}

// HasLink reports whether the entry points at a case page.
func (e Entry) HasLink() bool { return e.Link != "" && e.Link != NoLink }

// PageURL returns the URL of listing page n.
func PageURL(base string, n int) string {
	return strings.TrimRight(base, "/") + "/?page=" + strings.Repeat("0%2C", 18) + strconv.Itoa(n)
}

// Parse extracts the entries of one listing page. Relative links are resolved
// against base.
func Parse(r io.Reader, base string, page int) ([]Entry, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse listing page %d: %w", page, err)
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	block := cascadia.Query(root, contentBlockSel)
	if block == nil {
		return nil, fmt.Errorf("%w: page %d: content block not found", ErrNoEntries, page)
	}
	table := cascadia.Query(block, tableSel)
	if table == nil {
		return nil, fmt.Errorf("%w: page %d: table not found", ErrNoEntries, page)
	}
	cells := cascadia.QueryAll(table, entrySel)
	if len(cells) == 0 {
		return nil, fmt.Errorf("%w: page %d", ErrNoEntries, page)
	}

	entries := make([]Entry, 0, len(cells))
	for _, td := range cells {
		e := Entry{Date: NoDate, Summary: NoSummary, Link: NoLink, Page: page}
		if d := cascadia.Query(td, dateSel); d != nil {
			e.Date = fragment.TextContent(d)
		}
		if a := cascadia.Query(td, summarySel); a != nil {
			e.Summary = fragment.TextContent(a)
			if href, ok := attr(a, "href"); ok {
				e.Link = resolve(baseURL, href)
			}
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func resolve(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return base.String() + href
	}
	return base.ResolveReference(ref).String()
}

// Getter fetches a page body.
type Getter interface {
	GetWithRetry(ctx context.Context, url string) ([]byte, error)
}

// Crawler walks a range of listing pages.
type Crawler struct {
	Getter Getter
	Base   string
	// Wait is called between pages. It should honor ctx.
	Wait func(ctx context.Context) error
	Log  *slog.Logger
}

// Crawl fetches pages start..end inclusive. Pages that fail to download or
// have no entries are logged and skipped; only context cancellation stops
// the walk early.
func (c *Crawler) Crawl(ctx context.Context, start, end int) ([]Entry, error) {
	log := c.Log
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	var all []Entry
	for page := start; page <= end; page++ {
		if page > start && c.Wait != nil {
			if err := c.Wait(ctx); err != nil {
				return all, err
			}
		}
		if err := ctx.Err(); err != nil {
			return all, err
		}

		u := PageURL(c.Base, page)
		body, err := c.Getter.GetWithRetry(ctx, u)
		if err != nil {
			if ctx.Err() != nil {
				return all, ctx.Err()
			}
			log.Warn("listing page fetch failed", "page", page, "error", err)
			continue
		}
		entries, err := Parse(bytes.NewReader(body), c.Base, page)
		if err != nil {
			log.Warn("listing page skipped", "page", page, "error", err)
			continue
		}
		log.Info("processed listing page", "page", page, "entries", len(entries))
		all = append(all, entries...)
	}
	return all, nil
}

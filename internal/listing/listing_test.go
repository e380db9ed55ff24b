package listing

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const base = "https://www.rtifoundationofindia.com"

const listingPage = `<html><body>
<div id="content_listing_block">
<table>
<tr>
<td>
  <span class="date_cls">12 Jan 2020</span>
  <span class="display1_teaser"><a href="/are-file-notings-disclosable">Are file
    notings disclosable?</a></span>
</td>
<td><span class="date_cls">13 Jan 2020</span></td>
<td><span class="display1_teaser"><a href="/no-date">Not an entry</a></span></td>
<td>
  <span class="date_cls">14 Jan 2020</span>
  <span class="display1_teaser"><a>No href</a></span>
</td>
</tr>
</table>
</div>
</body></html>`

func TestPageURL(t *testing.T) {
	want := base + "/?page=0%2C0%2C0%2C0%2C0%2C0%2C0%2C0%2C0%2C0%2C0%2C0%2C0%2C0%2C0%2C0%2C0%2C0%2C7"
	assert.Equal(t, want, PageURL(base, 7))
	assert.Equal(t, want, PageURL(base+"/", 7))
}

func TestParse(t *testing.T) {
	entries, err := Parse(strings.NewReader(listingPage), base, 3)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, Entry{
		Date:    "12 Jan 2020",
		Summary: "Are file notings disclosable?",
		Link:    base + "/are-file-notings-disclosable",
		Page:    3,
	}, entries[0])
	assert.True(t, entries[0].HasLink())

	assert.Equal(t, Entry{Date: "13 Jan 2020", Summary: NoSummary, Link: NoLink, Page: 3}, entries[1])
	assert.False(t, entries[1].HasLink())

	assert.Equal(t, "No href", entries[2].Summary)
	assert.Equal(t, NoLink, entries[2].Link)
}

func TestParse_NoEntries(t *testing.T) {
	pages := map[string]string{
		"no block":   `<html><body><table><tr><td><span class="date_cls">x</span></td></tr></table></body></html>`,
		"no table":   `<html><body><div id="content_listing_block"><p>empty</p></div></body></html>`,
		"no entries": `<html><body><div id="content_listing_block"><table><tr><td>x</td></tr></table></div></body></html>`,
	}
	for name, page := range pages {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(page), base, 0)
			assert.ErrorIs(t, err, ErrNoEntries)
		})
	}
}

type fakeGetter struct {
	pages map[string]string
	calls []string
}

func (f *fakeGetter) GetWithRetry(_ context.Context, url string) ([]byte, error) {
	f.calls = append(f.calls, url)
	body, ok := f.pages[url]
	if !ok {
		return nil, errors.New("not found")
	}
	return []byte(body), nil
}

func TestCrawl_SkipsBadPages(t *testing.T) {
	g := &fakeGetter{pages: map[string]string{
		PageURL(base, 0): listingPage,
		PageURL(base, 1): `<html><body>maintenance</body></html>`,
		PageURL(base, 3): listingPage,
	}}
	waits := 0
	c := &Crawler{Getter: g, Base: base, Wait: func(context.Context) error { waits++; return nil }}

	entries, err := c.Crawl(context.Background(), 0, 3)
	require.NoError(t, err)
	assert.Len(t, entries, 6)
	assert.Equal(t, 3, entries[5].Page)
	assert.Len(t, g.calls, 4)
	assert.Equal(t, 3, waits)
}

func TestCrawl_Cancelled(t *testing.T) {
	g := &fakeGetter{pages: map[string]string{PageURL(base, 0): listingPage}}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Crawler{Getter: g, Base: base, Wait: func(ctx context.Context) error {
		cancel()
		return ctx.Err()
	}}

	entries, err := c.Crawl(ctx, 0, 5)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, entries, 3)
}

func TestCSVRoundTrip(t *testing.T) {
	entries, err := Parse(strings.NewReader(listingPage), base, 2)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, entries))
	assert.True(t, strings.HasPrefix(buf.String(), "Date,Summary,Link,Page\n"))

	got, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, entries, got)
}

func TestReadCSV_HeaderOrder(t *testing.T) {
	in := "\ufeffLink,Page,Extra\nhttps://x/a,4,foo\nhttps://x/b,,bar\n"
	got, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []Entry{{Link: "https://x/a", Page: 4}, {Link: "https://x/b"}}, got)

	_, err = ReadCSV(strings.NewReader("Date,Summary\na,b\n"))
	assert.Error(t, err)
}

func TestWriteContentCSV(t *testing.T) {
	rows := []Scraped{
		{Entry: Entry{Date: "1 May 2020", Summary: "s", Link: "https://x/a", Page: 0}, Content: "# Q\n\nBody, with comma"},
		{Entry: Entry{Date: NoDate, Summary: NoSummary, Link: "https://x/b", Page: 1}},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteContentCSV(&buf, rows))

	lines := strings.SplitN(buf.String(), "\n", 2)
	assert.Equal(t, "Date,Summary,Link,Page,Content,Content_Length,Scrape_Status", lines[0])
	assert.Contains(t, buf.String(), `"# Q`)
	assert.Contains(t, buf.String(), ",21,Success\n")
	assert.True(t, strings.HasSuffix(buf.String(), ",0,Failed\n"))

	// The entry columns still read back.
	got, err := ReadCSV(&buf)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, rows[1].Entry, got[1])
}

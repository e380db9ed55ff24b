package store

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/rticorpus/internal/chunker"
	"github.com/dgallion1/rticorpus/internal/embed"
	"github.com/dgallion1/rticorpus/internal/schema"
)

func newTestStore(t *testing.T) *SQLite {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "sub", "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveCase_Upsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveCase(ctx, Case{Source: "https://x/b", Structured: "# B", Status: CaseStructured}))
	require.NoError(t, s.SaveCase(ctx, Case{Source: "https://x/a", Status: CaseSkipped, Error: "title fragment not found"}))
	require.NoError(t, s.SaveCase(ctx, Case{
		Source: "https://x/b", Structured: "# B", Instruction: "B\n\nBackground:\nbg", Response: "held", Status: CaseParsed,
	}))

	all, err := s.Cases(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "https://x/a", all[0].Source)
	assert.Equal(t, "title fragment not found", all[0].Error)
	assert.Equal(t, CaseParsed, all[1].Status)
	assert.Equal(t, "held", all[1].Response)
	assert.False(t, all[1].UpdatedAt.IsZero())

	parsed, err := s.Cases(ctx, CaseParsed)
	require.NoError(t, err)
	require.Len(t, parsed, 1)
	assert.Equal(t, "https://x/b", parsed[0].Source)
}

func TestSaveRecords(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	records := []embed.Record{
		{SourceFile: "guide.txt", ChunkIndex: 1, Text: "second", Vector: []float32{0.5, -1}},
		{SourceFile: "guide.txt", ChunkIndex: 0, Text: "first", Vector: []float32{1, 2}},
		{SourceFile: "cases.csv", ChunkIndex: 0, Text: "unembedded"},
	}
	require.NoError(t, s.SaveRecords(ctx, records))

	got, err := s.ListRecords(ctx, "")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "cases.csv", got[0].SourceFile)
	assert.Nil(t, got[0].Vector)
	assert.Equal(t, embed.Record{SourceFile: "guide.txt", ChunkIndex: 0, Text: "first", Vector: []float32{1, 2}}, got[1])

	require.NoError(t, s.SaveRecords(ctx, []embed.Record{{SourceFile: "guide.txt", ChunkIndex: 1, Text: "replaced", Vector: []float32{3}}}))
	guide, err := s.ListRecords(ctx, "guide.txt")
	require.NoError(t, err)
	require.Len(t, guide, 2)
	assert.Equal(t, "replaced", guide[1].Text)
	assert.Equal(t, []float32{3}, guide[1].Vector)
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.db")
	ctx := context.Background()

	s, err := Open(ctx, path, nil)
	require.NoError(t, err)
	require.NoError(t, s.SaveCase(ctx, Case{Source: "a", Status: CaseParsed}))
	require.NoError(t, s.Close())

	s, err = Open(ctx, path, nil)
	require.NoError(t, err)
	defer s.Close()
	cases, err := s.Cases(ctx, "")
	require.NoError(t, err)
	assert.Len(t, cases, 1)
}

func TestJSONL_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf)
	require.NoError(t, w.WriteText("# Q <b>\n\nBackground"))
	require.NoError(t, w.Write(schema.CaseRecord{Instruction: "Q", Response: "R"}))
	require.NoError(t, w.Flush())
	assert.Equal(t, 2, w.Count())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, `{"text":"# Q <b>\n\nBackground"}`, lines[0])
	assert.Equal(t, `{"instruction":"Q","response":"R"}`, lines[1])

	texts, err := ReadJSONL[TextLine](strings.NewReader(lines[0] + "\n\n"))
	require.NoError(t, err)
	assert.Equal(t, []TextLine{{Text: "# Q <b>\n\nBackground"}}, texts)
}

func TestReadJSONL_Chunks(t *testing.T) {
	in := `{"source_file":"a.txt","chunk_index":0,"text":"x y"}
{"source_file":"a.txt","chunk_index":1,"text":"y z"}
`
	chunks, err := ReadJSONL[chunker.Chunk](strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []chunker.Chunk{{Source: "a.txt", Index: 0, Text: "x y"}, {Source: "a.txt", Index: 1, Text: "y z"}}, chunks)
}

func TestReadJSONL_Malformed(t *testing.T) {
	_, err := ReadJSONL[TextLine](strings.NewReader("{\"text\":\"ok\"}\nnot json\n"))
	assert.ErrorContains(t, err, "line 2")
}

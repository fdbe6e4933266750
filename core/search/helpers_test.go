package search

import (
	"strings"
	"testing"

	"github.com/kestrelsearch/kestrel/core/index"
	"github.com/kestrelsearch/kestrel/core/store"
)

// textDoc builds a single-field document with whitespace-tokenized
// text, standing in for the analyzer external collaborator the way
// the CLI's bulk loader does.
func textDoc(fields ...[2]string) *index.Document {
	doc := &index.Document{}
	for _, kv := range fields {
		name, value := kv[0], kv[1]
		words := strings.Fields(value)
		tokens := make([]index.Token, len(words))
		pos := 0
		for i, w := range words {
			tokens[i] = index.Token{Text: w, PositionIncr: 1, StartOffset: pos, EndOffset: pos + len(w)}
			pos += len(w) + 1
		}
		doc.Add(index.NewTextField(name, value, tokens))
	}
	return doc
}

// buildReader indexes docs (each a set of field/value pairs) into a
// fresh RAMDirectory and returns a DirectoryReader over the committed
// result.
func buildReader(t *testing.T, docs ...[][2]string) *index.DirectoryReader {
	t.Helper()
	dir := store.NewRAMDirectory()
	cfg := index.NewIndexWriterConfig(index.WithMergeScheduler(index.NoMergeScheduler))
	w, err := index.Open(dir, cfg)
	if err != nil {
		t.Fatalf("index.Open: %v", err)
	}
	for _, fields := range docs {
		if err := w.AddDocument(textDoc(fields...)); err != nil {
			t.Fatalf("AddDocument: %v", err)
		}
	}
	if err := w.Commit(nil); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := w.Close(true); err != nil {
		t.Fatalf("Close: %v", err)
	}
	reader, err := index.OpenDirectoryReader(dir)
	if err != nil {
		t.Fatalf("OpenDirectoryReader: %v", err)
	}
	t.Cleanup(func() { reader.Close() })
	return reader
}

func collectDocs(t *testing.T, s *Searcher, q Query) []ScoreDoc {
	t.Helper()
	c := NewTopDocsCollector(10)
	if err := s.Search(q, c); err != nil {
		t.Fatalf("Search: %v", err)
	}
	return c.TopDocs().ScoreDocs
}

func docIDs(sds []ScoreDoc) map[int]bool {
	out := make(map[int]bool, len(sds))
	for _, sd := range sds {
		out[sd.Doc] = true
	}
	return out
}

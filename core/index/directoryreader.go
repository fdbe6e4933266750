package index

import (
	"sort"

	"github.com/kestrelsearch/kestrel/core/kerrors"
	"github.com/kestrelsearch/kestrel/core/store"
)

// DirectoryReader is a consistent, point-in-time view across every
// segment named by one commit point. It maps a global docID to the
// owning SegmentReader and a local docID by cumulative maxDoc offsets,
// the same scheme Lucene's MultiSegmentReader uses.
type DirectoryReader struct {
	dir      store.Directory
	commit   *IndexCommit
	readers  []*SegmentReader
	starts   []int // starts[i] = first global docID served by readers[i]
	maxDoc   int
	numDocs  int
}

// OpenDirectoryReader opens every segment named by the directory's
// current (highest-generation) commit point.
func OpenDirectoryReader(dir store.Directory) (*DirectoryReader, error) {
	if _, found, err := FindHighestGeneration(dir); err != nil {
		return nil, err
	} else if !found {
		return nil, kerrors.NewIOError(nil, "no segments_N file found")
	}
	infos, err := ReadSegmentInfos(dir)
	if err != nil {
		return nil, err
	}
	return openAt(dir, infos)
}

// OpenDirectoryReaderAtCommit opens a specific, possibly older, commit
// point, e.g. one pinned by SnapshotDeletionPolicy.
func OpenDirectoryReaderAtCommit(commit *IndexCommit) (*DirectoryReader, error) {
	return openAt(commit.Dir, commit.SegInfos)
}

func openAt(dir store.Directory, infos *SegmentInfos) (*DirectoryReader, error) {
	r := &DirectoryReader{
		dir:    dir,
		commit: &IndexCommit{Dir: dir, SegInfos: infos},
	}
	start := 0
	for _, sci := range infos.Segments {
		sr, err := OpenSegmentReader(sci)
		if err != nil {
			for _, opened := range r.readers {
				opened.Close()
			}
			return nil, err
		}
		r.readers = append(r.readers, sr)
		r.starts = append(r.starts, start)
		start += sr.MaxDoc()
		r.numDocs += sr.NumDocs()
	}
	r.maxDoc = start
	return r, nil
}

// MaxDoc is the total doc count across every segment, including deleted docs.
func (r *DirectoryReader) MaxDoc() int { return r.maxDoc }

// NumDocs is the total live (non-deleted) document count.
func (r *DirectoryReader) NumDocs() int { return r.numDocs }

// NumDeletedDocs is MaxDoc - NumDocs.
func (r *DirectoryReader) NumDeletedDocs() int { return r.maxDoc - r.numDocs }

// readerIndex returns the index of the segment owning global docID.
func (r *DirectoryReader) readerIndex(docID int) int {
	i := sort.Search(len(r.starts), func(i int) bool { return r.starts[i] > docID }) - 1
	if i < 0 {
		i = 0
	}
	return i
}

// IsDeleted reports whether global docID has been deleted.
func (r *DirectoryReader) IsDeleted(docID int) bool {
	i := r.readerIndex(docID)
	return r.readers[i].IsDeleted(docID - r.starts[i])
}

// Document retrieves global docID's stored fields.
func (r *DirectoryReader) Document(docID int) (map[string][]byte, error) {
	i := r.readerIndex(docID)
	return r.readers[i].Document(docID - r.starts[i])
}

// Leaves returns every segment reader together with its global docID
// base, for callers (e.g. search.Weight) that need to iterate per-segment.
type ReaderSlice struct {
	Reader *SegmentReader
	Start  int
}

func (r *DirectoryReader) Leaves() []ReaderSlice {
	out := make([]ReaderSlice, len(r.readers))
	for i, sr := range r.readers {
		out[i] = ReaderSlice{Reader: sr, Start: r.starts[i]}
	}
	return out
}

// DocFreq returns the total number of live docs containing t across
// every segment, the quantity Similarity.idf needs.
func (r *DirectoryReader) DocFreq(t Term) int {
	total := 0
	for _, sr := range r.readers {
		if !sr.Info.HasDeletions() {
			total += sr.DocFreq(t)
			continue
		}
		pe, found, err := sr.Postings(t)
		if err != nil || !found {
			continue
		}
		for doc, err := pe.NextDoc(); err == nil && doc != NoMoreDocs; doc, err = pe.NextDoc() {
			if !sr.IsDeleted(doc) {
				total++
			}
		}
	}
	return total
}

// IsCurrent reports whether dir's latest commit point is still the
// generation this reader was opened from; if false, Reopen will do real work.
func (r *DirectoryReader) IsCurrent() (bool, error) {
	gen, found, err := FindHighestGeneration(r.dir)
	if err != nil {
		return false, err
	}
	if !found {
		return r.commit.SegInfos.Generation == 0, nil
	}
	return gen == r.commit.SegInfos.Generation, nil
}

// Reopen returns a new DirectoryReader reflecting the directory's
// current commit point. Per spec, the old reader remains valid and
// must still be Closed by its owner; segments common to both readers
// are reopened independently (no segment-level sharing in this
// implementation, trading some memory for a much simpler lifetime model).
func (r *DirectoryReader) Reopen() (*DirectoryReader, error) {
	current, err := r.IsCurrent()
	if err != nil {
		return nil, err
	}
	if current {
		return r, nil
	}
	return OpenDirectoryReader(r.dir)
}

// Commit exposes the commit point this reader was opened from, so
// callers can pin it via a DeletionPolicy (e.g. SnapshotDeletionPolicy).
func (r *DirectoryReader) Commit() *IndexCommit { return r.commit }

func (r *DirectoryReader) Close() error {
	var firstErr error
	for _, sr := range r.readers {
		if err := sr.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

package index

import (
	"sort"

	"github.com/kestrelsearch/kestrel/core/store"
)

// mergeSegments folds readers (already open, oldest first) into one
// new segment named newSegmentName inside dir, producing live-docs
// remapping, stored fields, norms, and postings in separate passes over
// the source readers. It does not decide compound-file-ness or touch
// SegmentInfos; the caller (IndexWriter) wires the result in.
func mergeSegments(dir store.Directory, newSegmentName string, readers []*SegmentReader) (*SegmentInfo, error) {
	mergedFieldInfos := NewFieldInfos()
	for _, r := range readers {
		for _, fi := range r.FieldInfos().List() {
			mergedFieldInfos.AddOrGet(fi.Name, fi.Indexed, fi.TermVector, fi.OmitNorms)
		}
	}

	// docMap[i][localDocID] = new global docID within the merged
	// segment, or -1 if that doc was deleted and is being dropped.
	docMap := make([][]int, len(readers))
	newDocCount := 0
	for i, r := range readers {
		m := make([]int, r.MaxDoc())
		for local := 0; local < r.MaxDoc(); local++ {
			if r.IsDeleted(local) {
				m[local] = -1
				continue
			}
			m[local] = newDocCount
			newDocCount++
		}
		docMap[i] = m
	}

	if err := mergeStoredFields(dir, newSegmentName, readers, docMap, newDocCount); err != nil {
		return nil, err
	}
	if err := mergeNorms(dir, newSegmentName, readers, docMap, mergedFieldInfos, newDocCount); err != nil {
		return nil, err
	}
	if err := writeFieldInfos(dir, newSegmentName, mergedFieldInfos); err != nil {
		return nil, err
	}
	if err := mergePostings(dir, newSegmentName, readers, docMap); err != nil {
		return nil, err
	}

	info := NewSegmentInfo(dir, newSegmentName, newDocCount)
	files := []string{
		fnmFileName(newSegmentName),
		fdtFileName(newSegmentName), fdxFileName(newSegmentName),
		tisFileName(newSegmentName), frqFileName(newSegmentName), prxFileName(newSegmentName),
	}
	if dir.FileExists(nrmFileName(newSegmentName)) {
		files = append(files, nrmFileName(newSegmentName))
	}
	info.SetFiles(files)
	return info, nil
}

func mergeStoredFields(dir store.Directory, segment string, readers []*SegmentReader, docMap [][]int, total int) error {
	docs := make([]*Document, 0, total)
	for i, r := range readers {
		for local := 0; local < r.MaxDoc(); local++ {
			if docMap[i][local] < 0 {
				continue
			}
			fields, err := r.Document(local)
			if err != nil {
				return err
			}
			doc := &Document{}
			for name, value := range fields {
				doc.Add(Field{Name: name, StoredValue: value})
			}
			docs = append(docs, doc)
		}
	}
	return writeStoredFields(dir, segment, docs)
}

func mergeNorms(dir store.Directory, segment string, readers []*SegmentReader, docMap [][]int, fis *FieldInfos, total int) error {
	merged := make(map[string][]byte)
	for _, fi := range fis.List() {
		if !fi.HasNorms {
			continue
		}
		merged[fi.Name] = make([]byte, total)
	}
	for i, r := range readers {
		for _, fi := range fis.List() {
			if !fi.HasNorms {
				continue
			}
			src := r.Norms(fi.Name)
			dst := merged[fi.Name]
			for local := 0; local < r.MaxDoc(); local++ {
				newID := docMap[i][local]
				if newID < 0 {
					continue
				}
				if local < len(src) {
					dst[newID] = src[local]
				}
			}
		}
	}
	return writeNorms(dir, segment, fis, total, merged)
}

func mergePostings(dir store.Directory, segment string, readers []*SegmentReader, docMap [][]int) error {
	allTerms := make(map[Term]bool)
	for _, r := range readers {
		for _, t := range r.Terms() {
			allTerms[t] = true
		}
	}
	terms := make([]Term, 0, len(allTerms))
	for t := range allTerms {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool { return terms[i].Less(terms[j]) })

	merged := make([]*termPostings, 0, len(terms))
	for _, t := range terms {
		tp := &termPostings{Term: t}
		for i, r := range readers {
			pe, found, err := r.Postings(t)
			if err != nil {
				return err
			}
			if !found {
				continue
			}
			for {
				d, err := pe.NextDoc()
				if err != nil {
					return err
				}
				if d == NoMoreDocs {
					break
				}
				newID := docMap[i][d]
				if newID < 0 {
					// Deleted doc: still must drain its positions so
					// the stream stays aligned for the next NextDoc.
					for p := 0; p < pe.Freq(); p++ {
						if _, err := pe.NextPosition(); err != nil {
							return err
						}
					}
					continue
				}
				var positions []int
				freq := pe.Freq()
				if pe.hasPosns {
					positions = make([]int, freq)
					for p := 0; p < freq; p++ {
						pos, err := pe.NextPosition()
						if err != nil {
							return err
						}
						positions[p] = pos
					}
				}
				tp.Docs = append(tp.Docs, postingDoc{DocID: newID, Freq: freq, Positions: positions})
			}
		}
		if len(tp.Docs) > 0 {
			sort.Slice(tp.Docs, func(i, j int) bool { return tp.Docs[i].DocID < tp.Docs[j].DocID })
			merged = append(merged, tp)
		}
	}
	return writePostings(dir, segment, merged)
}

package index

import (
	"github.com/kestrelsearch/kestrel/core/kerrors"
	"github.com/kestrelsearch/kestrel/core/store"
)

// compoundFileFormatCurrent is the post-3.0 format sentinel: negative,
// distinguishing it from the legacy format whose first VInt was the
// (always non-negative) entry count. Values are classified by sign
// (negative: current format; otherwise legacy), matching the best-effort legacy-detection
// rule carried over from the original format.
const compoundFileFormatCurrent int32 = -1

type cfsEntry struct {
	offset int64
	name   string
}

// CompoundFileWriter assembles a segment's sub-files into a single
// ".cfs" file: a table of contents (format sentinel, entry count,
// then offset+name pairs) followed by the concatenated sub-file
// bytes in table order.
type CompoundFileWriter struct {
	dir     store.Directory
	name    string
	entries []cfsEntry
	data    [][]byte
}

// NewCompoundFileWriter prepares a writer that will produce name (a
// ".cfs" file) in dir once Close is called.
func NewCompoundFileWriter(dir store.Directory, name string) *CompoundFileWriter {
	return &CompoundFileWriter{dir: dir, name: name}
}

// AddFile stages subFileName's full contents (already written
// elsewhere in dir) for inclusion in the compound file.
func (w *CompoundFileWriter) AddFile(subFileName string) error {
	in, err := w.dir.OpenInput(subFileName, 0)
	if err != nil {
		return err
	}
	defer in.Close()
	buf := make([]byte, in.Length())
	if len(buf) > 0 {
		if err := in.ReadBytes(buf, false); err != nil {
			return err
		}
	}
	w.data = append(w.data, buf)
	w.entries = append(w.entries, cfsEntry{name: subFileName})
	return nil
}

// Close computes offsets, writes the table of contents, then the
// concatenated sub-file bytes, and removes the now-redundant
// standalone sub-files.
func (w *CompoundFileWriter) Close() error {
	var offset int64
	for i := range w.entries {
		w.entries[i].offset = offset
		offset += int64(len(w.data[i]))
	}

	out, err := w.dir.CreateOutput(w.name)
	if err != nil {
		return err
	}
	if err := out.WriteVInt(compoundFileFormatCurrent); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.WriteVInt(int32(len(w.entries))); err != nil {
		_ = out.Close()
		return err
	}
	for _, e := range w.entries {
		if err := out.WriteLong(e.offset); err != nil {
			_ = out.Close()
			return err
		}
		if err := out.WriteString(e.name); err != nil {
			_ = out.Close()
			return err
		}
	}
	for _, d := range w.data {
		if err := out.WriteBytes(d); err != nil {
			_ = out.Close()
			return err
		}
	}
	if err := out.Close(); err != nil {
		return err
	}
	for _, e := range w.entries {
		_ = w.dir.DeleteFile(e.name)
	}
	return nil
}

// CompoundFileReader opens a ".cfs" file's table of contents and
// hands out bounded sub-views of it.
type CompoundFileReader struct {
	dir     store.Directory
	input   store.IndexInput
	entries map[string]cfsEntry
	order   []string
	total   int64
}

// OpenCompoundFileReader reads name's table of contents eagerly.
func OpenCompoundFileReader(dir store.Directory, name string) (*CompoundFileReader, error) {
	in, err := dir.OpenInput(name, 0)
	if err != nil {
		return nil, err
	}
	total, err := dir.FileLength(name)
	if err != nil {
		in.Close()
		return nil, err
	}
	format, err := in.ReadVInt()
	if err != nil {
		in.Close()
		return nil, kerrors.NewCorruptIndexError(err, "cfs format")
	}
	if format >= 0 {
		// Legacy (pre-3.1) format: the value just read was itself the
		// entry count, and sub-file names carried a segment-name
		// prefix that must be canonicalized away on read. Preserved as
		// best-effort per the source's own ambiguity note: a post-3.0
		// file's first VInt is always negative, but an old file
		// without the sentinel could coincidentally look negative too.
		return readLegacyCompoundFile(dir, name, in, total, format)
	}
	count, err := in.ReadVInt()
	if err != nil {
		in.Close()
		return nil, kerrors.NewCorruptIndexError(err, "cfs entry count")
	}
	r := &CompoundFileReader{dir: dir, input: in, entries: make(map[string]cfsEntry, count), total: total}
	for i := int32(0); i < count; i++ {
		offset, err := in.ReadLong()
		if err != nil {
			in.Close()
			return nil, kerrors.NewCorruptIndexError(err, "cfs entry offset")
		}
		subName, err := in.ReadString()
		if err != nil {
			in.Close()
			return nil, kerrors.NewCorruptIndexError(err, "cfs entry name")
		}
		r.entries[subName] = cfsEntry{offset: offset, name: subName}
		r.order = append(r.order, subName)
	}
	return r, nil
}

func readLegacyCompoundFile(dir store.Directory, name string, in store.IndexInput, total int64, entryCount int32) (*CompoundFileReader, error) {
	r := &CompoundFileReader{dir: dir, input: in, entries: make(map[string]cfsEntry, entryCount), total: total}
	for i := int32(0); i < entryCount; i++ {
		offset, err := in.ReadLong()
		if err != nil {
			in.Close()
			return nil, kerrors.NewCorruptIndexError(err, "legacy cfs entry offset")
		}
		subName, err := in.ReadString()
		if err != nil {
			in.Close()
			return nil, kerrors.NewCorruptIndexError(err, "legacy cfs entry name")
		}
		subName = canonicalizeLegacyName(subName)
		r.entries[subName] = cfsEntry{offset: offset, name: subName}
		r.order = append(r.order, subName)
	}
	return r, nil
}

// canonicalizeLegacyName strips a "_<segment>" prefix from pre-3.1
// compound file entries, matching the stated canonicalization-on-read rule.
func canonicalizeLegacyName(subName string) string {
	for i := 0; i < len(subName); i++ {
		if subName[i] == '.' {
			return subName[i:]
		}
	}
	return subName
}

// Length returns the byte length of subFileName as recorded in the table of contents.
func (r *CompoundFileReader) Length(subFileName string) (int64, error) {
	e, ok := r.entries[subFileName]
	if !ok {
		return 0, kerrors.NewCorruptIndexError(nil, "no such sub-file: "+subFileName)
	}
	return r.boundOf(e), nil
}

func (r *CompoundFileReader) boundOf(e cfsEntry) int64 {
	next := r.total
	for _, n := range r.order {
		other := r.entries[n]
		if other.offset > e.offset && other.offset < next {
			next = other.offset
		}
	}
	return next - e.offset
}

// OpenSubInput returns a CSIndexInput: a bounded [offset, offset+length)
// view of a cloned parent input, with its own buffer and position.
func (r *CompoundFileReader) OpenSubInput(subFileName string) (store.IndexInput, error) {
	e, ok := r.entries[subFileName]
	if !ok {
		return nil, kerrors.NewCorruptIndexError(nil, "no such sub-file: "+subFileName)
	}
	length := r.boundOf(e)
	return newCSIndexInput(r.input.Clone(), e.offset, length), nil
}

// Files returns every sub-file name recorded in the table of contents.
func (r *CompoundFileReader) Files() []string { return append([]string(nil), r.order...) }

func (r *CompoundFileReader) Close() error { return r.input.Close() }

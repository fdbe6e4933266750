package index

import (
	"github.com/kestrelsearch/kestrel/core/kerrors"
	"github.com/kestrelsearch/kestrel/core/store"
)

func fdtFileName(segment string) string { return "_" + segment + ".fdt" }
func fdxFileName(segment string) string { return "_" + segment + ".fdx" }

// writeStoredFields persists, per document, the (field name, value)
// pairs marked as stored, in .fdt, with a parallel .fdx recording
// each document's byte offset into .fdt for random access.
func writeStoredFields(dir store.Directory, segment string, docs []*Document) error {
	fdt, err := dir.CreateOutput(fdtFileName(segment))
	if err != nil {
		return err
	}
	fdx, err := dir.CreateOutput(fdxFileName(segment))
	if err != nil {
		fdt.Close()
		return err
	}
	defer fdx.Close()
	defer fdt.Close()

	for _, doc := range docs {
		if err := fdx.WriteLong(fdt.FilePointer()); err != nil {
			return err
		}
		stored := make([]Field, 0, len(doc.Fields))
		for _, f := range doc.Fields {
			if f.StoredValue != nil {
				stored = append(stored, f)
			}
		}
		if err := fdt.WriteVInt(int32(len(stored))); err != nil {
			return err
		}
		for _, f := range stored {
			if err := fdt.WriteString(f.Name); err != nil {
				return err
			}
			if err := fdt.WriteVInt(int32(len(f.StoredValue))); err != nil {
				return err
			}
			if err := fdt.WriteBytes(f.StoredValue); err != nil {
				return err
			}
		}
	}
	return nil
}

// StoredFieldsReader retrieves a document's stored fields by local docId.
type StoredFieldsReader struct {
	fdt store.IndexInput
	fdx store.IndexInput
}

func openStoredFieldsReader(dir store.Directory, segment string) (*StoredFieldsReader, error) {
	fdt, err := dir.OpenInput(fdtFileName(segment), 0)
	if err != nil {
		return nil, kerrors.NewCorruptIndexError(err, "open .fdt")
	}
	fdx, err := dir.OpenInput(fdxFileName(segment), 0)
	if err != nil {
		fdt.Close()
		return nil, kerrors.NewCorruptIndexError(err, "open .fdx")
	}
	return &StoredFieldsReader{fdt: fdt, fdx: fdx}, nil
}

// Document returns the stored (name -> value) pairs for local docId.
func (r *StoredFieldsReader) Document(docID int) (map[string][]byte, error) {
	if err := r.fdx.Seek(int64(docID) * 8); err != nil {
		return nil, err
	}
	offset, err := r.fdx.ReadLong()
	if err != nil {
		return nil, kerrors.NewCorruptIndexError(err, "fdx offset")
	}
	if err := r.fdt.Seek(offset); err != nil {
		return nil, err
	}
	count, err := r.fdt.ReadVInt()
	if err != nil {
		return nil, kerrors.NewCorruptIndexError(err, "fdt field count")
	}
	out := make(map[string][]byte, count)
	for i := int32(0); i < count; i++ {
		name, err := r.fdt.ReadString()
		if err != nil {
			return nil, err
		}
		n, err := r.fdt.ReadVInt()
		if err != nil {
			return nil, err
		}
		buf := make([]byte, n)
		if n > 0 {
			if err := r.fdt.ReadBytes(buf, true); err != nil {
				return nil, err
			}
		}
		out[name] = buf
	}
	return out, nil
}

func (r *StoredFieldsReader) Close() error {
	err1 := r.fdt.Close()
	err2 := r.fdx.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

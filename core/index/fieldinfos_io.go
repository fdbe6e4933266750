package index

import (
	"github.com/kestrelsearch/kestrel/core/kerrors"
	"github.com/kestrelsearch/kestrel/core/store"
)

// fnmFileName returns the "_<name>.fnm" field-infos file name.
func fnmFileName(segment string) string { return "_" + segment + ".fnm" }

// writeFieldInfos persists fis to the segment's .fnm file.
func writeFieldInfos(dir store.Directory, segment string, fis *FieldInfos) error {
	out, err := dir.CreateOutput(fnmFileName(segment))
	if err != nil {
		return err
	}
	defer out.Close()
	list := fis.List()
	if err := out.WriteVInt(int32(len(list))); err != nil {
		return err
	}
	for _, fi := range list {
		if err := out.WriteString(fi.Name); err != nil {
			return err
		}
		flags := byte(0)
		if fi.Indexed {
			flags |= 1
		}
		if fi.HasNorms {
			flags |= 2
		}
		if fi.OmitNorms {
			flags |= 4
		}
		if err := out.WriteByte(flags); err != nil {
			return err
		}
		if err := out.WriteByte(byte(fi.TermVector)); err != nil {
			return err
		}
	}
	return nil
}

// readFieldInfos loads a segment's .fnm file.
func readFieldInfos(dir store.Directory, segment string) (*FieldInfos, error) {
	in, err := dir.OpenInput(fnmFileName(segment), 0)
	if err != nil {
		return nil, kerrors.NewCorruptIndexError(err, "open .fnm")
	}
	defer in.Close()
	count, err := in.ReadVInt()
	if err != nil {
		return nil, kerrors.NewCorruptIndexError(err, "fnm count")
	}
	fis := NewFieldInfos()
	for i := int32(0); i < count; i++ {
		name, err := in.ReadString()
		if err != nil {
			return nil, kerrors.NewCorruptIndexError(err, "fnm name")
		}
		flags, err := in.ReadByte()
		if err != nil {
			return nil, kerrors.NewCorruptIndexError(err, "fnm flags")
		}
		tv, err := in.ReadByte()
		if err != nil {
			return nil, kerrors.NewCorruptIndexError(err, "fnm term vector")
		}
		fi := &FieldInfo{
			Name:       name,
			Number:     int(i),
			Indexed:    flags&1 != 0,
			HasNorms:   flags&2 != 0,
			OmitNorms:  flags&4 != 0,
			TermVector: TermVectorOption(tv),
		}
		fis.byName[name] = fi
		fis.ordered = append(fis.ordered, fi)
	}
	return fis, nil
}

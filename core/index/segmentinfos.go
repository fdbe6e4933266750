package index

import (
	"sort"
	"strconv"
	"strings"

	"github.com/kestrelsearch/kestrel/core/kerrors"
	"github.com/kestrelsearch/kestrel/core/store"
)

const (
	segmentsFilePrefix = "segments_"
	segmentInfosMagic  = int32(0x3fd76c17)
)

// SegmentInfos is the ordered list of segments forming one commit
// point, plus the generation number that names its segments_N file
// and any user-supplied commit data.
type SegmentInfos struct {
	Segments   []*SegmentCommitInfo
	Generation int64
	Version    int64
	UserData   map[string]string
}

// NewSegmentInfos creates an empty, generation-0 commit point (the
// state of a brand-new, never-committed Directory).
func NewSegmentInfos() *SegmentInfos {
	return &SegmentInfos{UserData: make(map[string]string)}
}

// SegmentsFileName returns the "segments_<gen>" name for this
// generation, base-36 encoded per the file naming convention.
func (sis *SegmentInfos) SegmentsFileName() string {
	return segmentsFilePrefix + strconv.FormatInt(sis.Generation, 36)
}

// Clone returns a deep-enough copy: the SegmentCommitInfo slice is
// copied (each entry cloned), so mutating the clone's per-commit
// delete state never affects the original.
func (sis *SegmentInfos) Clone() *SegmentInfos {
	out := &SegmentInfos{
		Generation: sis.Generation,
		Version:    sis.Version,
		UserData:   make(map[string]string, len(sis.UserData)),
		Segments:   make([]*SegmentCommitInfo, len(sis.Segments)),
	}
	for k, v := range sis.UserData {
		out.UserData[k] = v
	}
	for i, s := range sis.Segments {
		out.Segments[i] = s.Clone()
	}
	return out
}

// FindHighestGeneration scans dir for the highest-numbered well-formed
// segments_N file, per the recovery rule in §6: "recovery picks the
// highest well-formed segments_N". Partial/corrupt candidates are
// skipped rather than failing the scan outright.
func FindHighestGeneration(dir store.Directory) (int64, bool, error) {
	names, err := dir.ListAll()
	if err != nil {
		return 0, false, err
	}
	best := int64(-1)
	found := false
	for _, name := range names {
		if !strings.HasPrefix(name, segmentsFilePrefix) {
			continue
		}
		genStr := name[len(segmentsFilePrefix):]
		gen, err := strconv.ParseInt(genStr, 36, 64)
		if err != nil {
			continue
		}
		if ok, _ := segmentsFileIsWellFormed(dir, name); ok && gen > best {
			best = gen
			found = true
		}
	}
	return best, found, nil
}

func segmentsFileIsWellFormed(dir store.Directory, name string) (bool, error) {
	in, err := dir.OpenInput(name, 0)
	if err != nil {
		return false, nil
	}
	defer in.Close()
	magic, err := in.ReadInt()
	if err != nil || magic != segmentInfosMagic {
		return false, nil
	}
	return true, nil
}

// ReadSegmentInfos loads the commit point at the highest well-formed
// generation, or returns a fresh empty SegmentInfos if the directory
// has never been committed to.
func ReadSegmentInfos(dir store.Directory) (*SegmentInfos, error) {
	gen, found, err := FindHighestGeneration(dir)
	if err != nil {
		return nil, err
	}
	if !found {
		return NewSegmentInfos(), nil
	}
	return readSegmentInfosGeneration(dir, gen)
}

func readSegmentInfosGeneration(dir store.Directory, gen int64) (*SegmentInfos, error) {
	name := segmentsFilePrefix + strconv.FormatInt(gen, 36)
	in, err := dir.OpenInput(name, 0)
	if err != nil {
		return nil, kerrors.NewCorruptIndexError(err, "open "+name)
	}
	defer in.Close()

	magic, err := in.ReadInt()
	if err != nil || magic != segmentInfosMagic {
		return nil, kerrors.NewCorruptIndexError(err, "bad segments file magic")
	}
	version, err := in.ReadLong()
	if err != nil {
		return nil, kerrors.NewCorruptIndexError(err, "version")
	}
	segCount, err := in.ReadVInt()
	if err != nil {
		return nil, kerrors.NewCorruptIndexError(err, "segment count")
	}
	sis := &SegmentInfos{Generation: gen, Version: version, UserData: make(map[string]string)}
	for i := int32(0); i < segCount; i++ {
		segName, err := in.ReadString()
		if err != nil {
			return nil, kerrors.NewCorruptIndexError(err, "segment name")
		}
		docCount, err := in.ReadVInt()
		if err != nil {
			return nil, kerrors.NewCorruptIndexError(err, "doc count")
		}
		isCFS, err := in.ReadByte()
		if err != nil {
			return nil, kerrors.NewCorruptIndexError(err, "cfs flag")
		}
		delGen, err := in.ReadLong()
		if err != nil {
			return nil, kerrors.NewCorruptIndexError(err, "del gen")
		}
		delCount, err := in.ReadVInt()
		if err != nil {
			return nil, kerrors.NewCorruptIndexError(err, "del count")
		}
		fileCount, err := in.ReadVInt()
		if err != nil {
			return nil, kerrors.NewCorruptIndexError(err, "file count")
		}
		files := make([]string, fileCount)
		for j := int32(0); j < fileCount; j++ {
			f, err := in.ReadString()
			if err != nil {
				return nil, kerrors.NewCorruptIndexError(err, "file name")
			}
			files[j] = f
		}
		info := NewSegmentInfo(dir, segName, int(docCount))
		info.IsCompoundFile = isCFS != 0
		info.SetFiles(files)
		sci := NewSegmentCommitInfo(info)
		sci.delGen = delGen
		sci.delCount = int(delCount)
		if delGen != -1 {
			sci.nextWriteDelGen = delGen + 1
		}
		sis.Segments = append(sis.Segments, sci)
	}
	userDataCount, err := in.ReadVInt()
	if err != nil {
		return nil, kerrors.NewCorruptIndexError(err, "user data count")
	}
	for i := int32(0); i < userDataCount; i++ {
		k, err := in.ReadString()
		if err != nil {
			return nil, err
		}
		v, err := in.ReadString()
		if err != nil {
			return nil, err
		}
		sis.UserData[k] = v
	}
	return sis, nil
}

// ListCommits returns every well-formed commit point currently on
// disk, oldest generation first, for DeletionPolicy.OnInit and
// snapshot reattachment. A generation whose segments_N file fails to
// parse is skipped rather than failing the whole scan.
func ListCommits(dir store.Directory) ([]*IndexCommit, error) {
	names, err := dir.ListAll()
	if err != nil {
		return nil, err
	}
	var gens []int64
	for _, name := range names {
		if !strings.HasPrefix(name, segmentsFilePrefix) {
			continue
		}
		gen, err := strconv.ParseInt(name[len(segmentsFilePrefix):], 36, 64)
		if err != nil {
			continue
		}
		if ok, _ := segmentsFileIsWellFormed(dir, name); ok {
			gens = append(gens, gen)
		}
	}
	sort.Slice(gens, func(i, j int) bool { return gens[i] < gens[j] })
	commits := make([]*IndexCommit, 0, len(gens))
	for _, gen := range gens {
		sis, err := readSegmentInfosGeneration(dir, gen)
		if err != nil {
			continue
		}
		commits = append(commits, &IndexCommit{Dir: dir, SegInfos: sis})
	}
	return commits, nil
}

// Write persists this commit point as a new, higher-generation
// segments_N file: written to a temp name, synced, then renamed into
// place, per the atomic commit protocol in §4.1.
func (sis *SegmentInfos) Write(dir store.Directory) error {
	sis.Generation++
	sis.Version++
	tmpName := sis.SegmentsFileName() + ".tmp"
	out, err := dir.CreateOutput(tmpName)
	if err != nil {
		return kerrors.NewIOError(err, "create "+tmpName)
	}

	writeErr := func() error {
		if err := out.WriteInt(segmentInfosMagic); err != nil {
			return err
		}
		if err := out.WriteLong(sis.Version); err != nil {
			return err
		}
		if err := out.WriteVInt(int32(len(sis.Segments))); err != nil {
			return err
		}
		for _, sci := range sis.Segments {
			if err := out.WriteString(sci.Info.Name); err != nil {
				return err
			}
			if err := out.WriteVInt(int32(sci.Info.DocCount)); err != nil {
				return err
			}
			cfs := byte(0)
			if sci.Info.IsCompoundFile {
				cfs = 1
			}
			if err := out.WriteByte(cfs); err != nil {
				return err
			}
			if err := out.WriteLong(sci.delGen); err != nil {
				return err
			}
			if err := out.WriteVInt(int32(sci.delCount)); err != nil {
				return err
			}
			files := sci.Info.Files()
			if err := out.WriteVInt(int32(len(files))); err != nil {
				return err
			}
			for _, f := range files {
				if err := out.WriteString(f); err != nil {
					return err
				}
			}
		}
		if err := out.WriteVInt(int32(len(sis.UserData))); err != nil {
			return err
		}
		for k, v := range sis.UserData {
			if err := out.WriteString(k); err != nil {
				return err
			}
			if err := out.WriteString(v); err != nil {
				return err
			}
		}
		return nil
	}()
	closeErr := out.Close()
	if writeErr != nil {
		_ = dir.DeleteFile(tmpName)
		return kerrors.NewIOError(writeErr, "write segment infos")
	}
	if closeErr != nil {
		return kerrors.NewIOError(closeErr, "close segment infos")
	}
	if err := dir.Sync([]string{tmpName}); err != nil {
		return err
	}
	finalName := sis.SegmentsFileName()
	if err := dir.Rename(tmpName, finalName); err != nil {
		return kerrors.NewIOError(err, "rename into place")
	}
	return nil
}

// IndexCommit is a point-in-time snapshot of a segments_N file plus
// the set of files it references. Its lifecycle runs from writer
// commit to deletion-policy-approved removal.
type IndexCommit struct {
	Dir       store.Directory
	SegInfos  *SegmentInfos
	deleted   bool
	onDelete  func(*IndexCommit)
}

// SegmentsFileName returns this commit's segments_N name.
func (c *IndexCommit) SegmentsFileName() string { return c.SegInfos.SegmentsFileName() }

// Files returns every file this commit references.
func (c *IndexCommit) Files() []string {
	files := []string{c.SegmentsFileName()}
	for _, sci := range c.SegInfos.Segments {
		files = append(files, sci.Files()...)
	}
	return files
}

// Generation returns this commit's generation number.
func (c *IndexCommit) Generation() int64 { return c.SegInfos.Generation }

// UserData returns the commit data supplied to IndexWriter.Commit.
func (c *IndexCommit) UserData() map[string]string { return c.SegInfos.UserData }

// IsDeleted reports whether DeleteCommit has already been invoked.
func (c *IndexCommit) IsDeleted() bool { return c.deleted }

// DeleteCommit marks this commit for physical file removal. Only
// files unreferenced by any surviving commit are actually unlinked;
// the writer performs that reconciliation.
func (c *IndexCommit) DeleteCommit() {
	if c.deleted {
		return
	}
	c.deleted = true
	if c.onDelete != nil {
		c.onDelete(c)
	}
}

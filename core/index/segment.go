package index

import (
	"fmt"
	"strconv"

	"github.com/kestrelsearch/kestrel/core/store"
)

// SegmentInfo is the immutable-after-flush description of one
// segment: its generated name, document count, owning Directory, and
// whether it is stored as a compound file.
type SegmentInfo struct {
	Dir            store.Directory
	Name           string
	DocCount       int
	IsCompoundFile bool
	Diagnostics    map[string]string
	files          []string
}

// NewSegmentInfo records a freshly flushed segment.
func NewSegmentInfo(dir store.Directory, name string, docCount int) *SegmentInfo {
	return &SegmentInfo{
		Dir:         dir,
		Name:        name,
		DocCount:    docCount,
		Diagnostics: make(map[string]string),
	}
}

// SetFiles replaces the set of files this segment is known to own.
func (si *SegmentInfo) SetFiles(files []string) { si.files = files }

// Files returns every file this segment currently owns (not including
// per-commit live-docs files, which SegmentCommitInfo.Files adds).
func (si *SegmentInfo) Files() []string { return si.files }

func (si *SegmentInfo) String() string {
	return fmt.Sprintf("%s(docs=%d%s)", si.Name, si.DocCount, si.compoundSuffix())
}

func (si *SegmentInfo) compoundSuffix() string {
	if si.IsCompoundFile {
		return ",cfs"
	}
	return ""
}

// SegmentCommitInfo embeds a read-only SegmentInfo and adds the
// per-commit bookkeeping: how many of its docs are deleted as of this
// commit, and the generation number of the live-docs (.del) file that
// records them.
type SegmentCommitInfo struct {
	Info *SegmentInfo

	delCount        int
	delGen          int64 // -1 means "no deletions yet"
	nextWriteDelGen int64

	sizeInBytes int64 // -1 means "needs recompute"

	// BufferedUpdatesGen is in-RAM-only writer bookkeeping; it is
	// never persisted to the Directory.
	BufferedUpdatesGen int64
}

// NewSegmentCommitInfo wraps info with fresh (no-deletions) per-commit state.
func NewSegmentCommitInfo(info *SegmentInfo) *SegmentCommitInfo {
	return &SegmentCommitInfo{
		Info:            info,
		delGen:          -1,
		nextWriteDelGen: 1,
		sizeInBytes:     -1,
	}
}

// DelGen returns the generation of the currently-visible live-docs
// file, or -1 if the segment has no deletions yet.
func (sci *SegmentCommitInfo) DelGen() int64 { return sci.delGen }

// DelCount returns how many of the segment's docs are deleted as of this commit.
func (sci *SegmentCommitInfo) DelCount() int { return sci.delCount }

// HasDeletions reports whether any doc in this segment is deleted at this commit.
func (sci *SegmentCommitInfo) HasDeletions() bool { return sci.delGen != -1 }

// delFileName returns the name of the live-docs file for the given
// generation, following the "_<name>_<n>.del" convention.
func (sci *SegmentCommitInfo) delFileName(gen int64) string {
	return fmt.Sprintf("_%s_%s.del", sci.Info.Name, strconv.FormatInt(gen, 36))
}

// AdvanceDelGen records that a new live-docs file was successfully
// written, making it the current one and bumping nextWriteDelGen past it.
func (sci *SegmentCommitInfo) AdvanceDelGen(delCount int) {
	sci.delGen = sci.nextWriteDelGen
	sci.nextWriteDelGen = sci.delGen + 1
	sci.delCount = delCount
	sci.sizeInBytes = -1
}

// SizeInBytes returns the total size of every file this segment
// commit references, the Directory lengths summed on first call and
// cached thereafter until invalidated by AdvanceDelGen.
func (sci *SegmentCommitInfo) SizeInBytes() (int64, error) {
	if sci.sizeInBytes == -1 {
		var sum int64
		for _, name := range sci.Files() {
			n, err := sci.Info.Dir.FileLength(name)
			if err != nil {
				return 0, err
			}
			sum += n
		}
		sci.sizeInBytes = sum
	}
	return sci.sizeInBytes, nil
}

// Files returns every file in use by this segment at this commit:
// the wrapped SegmentInfo's files plus the current live-docs file, if any.
func (sci *SegmentCommitInfo) Files() []string {
	files := append([]string(nil), sci.Info.Files()...)
	if sci.HasDeletions() {
		files = append(files, sci.delFileName(sci.delGen))
	}
	return files
}

func (sci *SegmentCommitInfo) Clone() *SegmentCommitInfo {
	return &SegmentCommitInfo{
		Info:            sci.Info,
		delCount:        sci.delCount,
		delGen:          sci.delGen,
		nextWriteDelGen: sci.nextWriteDelGen,
		sizeInBytes:     sci.sizeInBytes,
	}
}

func (sci *SegmentCommitInfo) String() string {
	s := sci.Info.String()
	if sci.delGen != -1 {
		s = fmt.Sprintf("%s:delGen=%d", s, sci.delGen)
	}
	return s
}

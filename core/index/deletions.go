package index

import (
	"strconv"

	"github.com/kestrelsearch/kestrel/core/util"
)

// writeLiveDocsDeletions persists deleted (bit set = deleted) as a new
// "_<segment>_<gen>.del" file, choosing whichever on-disk encoding
// BitVector.WriteTo picks as shorter.
func writeLiveDocsDeletions(sci *SegmentCommitInfo, deleted *util.BitVector, gen int64) error {
	name := "_" + sci.Info.Name + "_" + strconv.FormatInt(gen, 36) + ".del"
	out, err := sci.Info.Dir.CreateOutput(name)
	if err != nil {
		return err
	}
	defer out.Close()
	return deleted.WriteTo(out)
}

// readLiveDocsDeletions loads the deleted-docs bitmap at the given
// generation, or nil if the segment has no deletions (gen == -1).
func readLiveDocsDeletions(sci *SegmentCommitInfo, gen int64) (*util.BitVector, error) {
	if gen == -1 {
		return nil, nil
	}
	name := "_" + sci.Info.Name + "_" + strconv.FormatInt(gen, 36) + ".del"
	in, err := sci.Info.Dir.OpenInput(name, 0)
	if err != nil {
		return nil, err
	}
	defer in.Close()
	return util.ReadBitVector(in)
}

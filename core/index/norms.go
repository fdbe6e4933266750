package index

import (
	"math"

	"github.com/kestrelsearch/kestrel/core/kerrors"
	"github.com/kestrelsearch/kestrel/core/store"
)

// Norms are encoded as a single byte combining a 3-bit exponent and
// 5-bit mantissa (an 8-bit float), decoded through a precomputed
// 256-entry table shared process-wide so scoring never repeats the
// floating-point expansion per document.
const (
	normNumMantissaBits = 5
	normMantissaMask    = (1 << normNumMantissaBits) - 1
	normMantissaShift   = 52 - normNumMantissaBits
	normExponent        = 63 - normNumMantissaBits
)

var normDecodeTable [256]float32

func init() {
	for i := 0; i < 256; i++ {
		normDecodeTable[i] = float32(sortableByteToFloatBits(byte(i)))
	}
}

func sortableByteToFloatBits(b byte) float64 {
	bits := uint64(b)
	if bits == 0 {
		return 0
	}
	mantissa := bits & normMantissaMask
	exponent := bits >> normNumMantissaBits
	rawBits := (exponent + 1023 - (normNumMantissaBits - 1)) << 52
	rawBits |= mantissa << normMantissaShift
	return math.Float64frombits(rawBits)
}

// EncodeNormByte compresses a positive float (length-norm x boost) to
// a single byte using the engine's 8-bit mantissa/exponent scheme.
func EncodeNormByte(f float32) byte {
	if f < 0 {
		f = 0
	}
	if f == 0 {
		return 0
	}
	bits := math.Float64bits(float64(f))
	mantissa := uint8((bits >> normMantissaShift) & normMantissaMask)
	exponent := int64((bits>>52)&0x7ff) - 1023 + normNumMantissaBits - 1
	if exponent < 0 {
		return 0
	}
	if exponent > 0xff>>normNumMantissaBits {
		return 0xff
	}
	return byte(exponent)<<normNumMantissaBits | mantissa
}

// DecodeNormByte expands a stored norm byte back to a float, via the
// shared decode table.
func DecodeNormByte(b byte) float32 { return normDecodeTable[b] }

// Similarity is the subset of scoring behavior the index layer itself
// depends on: computing the stored norm byte at flush time. The
// richer scoring contract (tf/idf/queryNorm/coord) lives in the
// search package, which depends on index rather than the reverse;
// search.DefaultSimilarity computes the same norm via these same
// EncodeNormByte/DecodeNormByte functions to stay consistent with
// what was written here.
type Similarity interface {
	ComputeNorm(numTokens int, boost float32) byte
}

// DefaultSimilarity is the classic TF-IDF length norm: boost / sqrt(numTokens).
type DefaultSimilarity struct{}

func (DefaultSimilarity) ComputeNorm(numTokens int, boost float32) byte {
	if numTokens == 0 {
		return EncodeNormByte(0)
	}
	return EncodeNormByte(boost * float32(1/math.Sqrt(float64(numTokens))))
}

func nrmFileName(segment string) string { return "_" + segment + ".nrm" }

// writeNorms persists one byte per doc per field that HasNorms, in
// field-then-doc order.
func writeNorms(dir store.Directory, segment string, fis *FieldInfos, docCount int, norms map[string][]byte) error {
	hasAny := false
	for _, fi := range fis.List() {
		if fi.HasNorms {
			hasAny = true
			break
		}
	}
	if !hasAny {
		return nil
	}
	out, err := dir.CreateOutput(nrmFileName(segment))
	if err != nil {
		return err
	}
	defer out.Close()
	for _, fi := range fis.List() {
		if !fi.HasNorms {
			continue
		}
		fieldNorms := norms[fi.Name]
		for doc := 0; doc < docCount; doc++ {
			b := byte(0)
			if doc < len(fieldNorms) {
				b = fieldNorms[doc]
			}
			if err := out.WriteByte(b); err != nil {
				return err
			}
		}
	}
	return nil
}

// readNorms loads the per-field norm byte arrays for a segment with
// docCount documents; fields with omit-norms have no entry.
func readNorms(dir store.Directory, segment string, fis *FieldInfos, docCount int) (map[string][]byte, error) {
	out := make(map[string][]byte)
	hasAny := false
	for _, fi := range fis.List() {
		if fi.HasNorms {
			hasAny = true
		}
	}
	if !hasAny {
		return out, nil
	}
	in, err := dir.OpenInput(nrmFileName(segment), 0)
	if err != nil {
		return nil, kerrors.NewCorruptIndexError(err, "open .nrm")
	}
	defer in.Close()
	for _, fi := range fis.List() {
		if !fi.HasNorms {
			continue
		}
		buf := make([]byte, docCount)
		if docCount > 0 {
			if err := in.ReadBytes(buf, true); err != nil {
				return nil, kerrors.NewCorruptIndexError(err, "read norms")
			}
		}
		out[fi.Name] = buf
	}
	return out, nil
}

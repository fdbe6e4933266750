package search

import (
	"sort"

	"github.com/kestrelsearch/kestrel/core/index"
)

// StringIndex maps every doc in a segment to an ordinal into a sorted
// set of that field's distinct stored values, the structure sorted
// range filters and faceting both want: O(1) doc->ordinal lookup and a
// shared, deduplicated value list.
type StringIndex struct {
	Values []string // sorted distinct values
	Order  []int    // Order[doc] = index into Values, or -1 if unstored
}

// FieldCache lazily builds and memoizes StringIndex per (segment,
// field), since building it requires walking every stored document
// once, an expensive enough operation to want amortized across repeated queries.
type FieldCache struct {
	cache map[*index.SegmentReader]map[string]*StringIndex
}

func NewFieldCache() *FieldCache {
	return &FieldCache{cache: make(map[*index.SegmentReader]map[string]*StringIndex)}
}

// StringIndexFor returns (building if needed) the StringIndex for
// field in reader.
func (c *FieldCache) StringIndexFor(reader *index.SegmentReader, field string) (*StringIndex, error) {
	byField, ok := c.cache[reader]
	if !ok {
		byField = make(map[string]*StringIndex)
		c.cache[reader] = byField
	}
	if si, ok := byField[field]; ok {
		return si, nil
	}

	maxDoc := reader.MaxDoc()
	raw := make([]string, maxDoc)
	seen := make(map[string]bool)
	for doc := 0; doc < maxDoc; doc++ {
		fields, err := reader.Document(doc)
		if err != nil {
			return nil, err
		}
		if v, ok := fields[field]; ok {
			raw[doc] = string(v)
			seen[string(v)] = true
		} else {
			raw[doc] = ""
		}
	}
	values := make([]string, 0, len(seen))
	for v := range seen {
		values = append(values, v)
	}
	sort.Strings(values)

	order := make([]int, maxDoc)
	for doc, v := range raw {
		if v == "" {
			if _, present := seen[""]; !present {
				order[doc] = -1
				continue
			}
		}
		order[doc] = sort.SearchStrings(values, v)
	}
	si := &StringIndex{Values: values, Order: order}
	byField[field] = si
	return si, nil
}

// FieldCacheRangeFilter keeps only docs whose field value falls within
// [Lower, Upper], each bound optionally exclusive.
type FieldCacheRangeFilter struct {
	Field                    string
	Lower, Upper             string
	IncludeLower, IncludeUpper bool
	cache                    *FieldCache
}

func NewFieldCacheRangeFilter(cache *FieldCache, field, lower, upper string, includeLower, includeUpper bool) *FieldCacheRangeFilter {
	return &FieldCacheRangeFilter{Field: field, Lower: lower, Upper: upper, IncludeLower: includeLower, IncludeUpper: includeUpper, cache: cache}
}

// Accept reports whether doc's field value falls within the filter's
// range. Exclusive bounds at the ordinal boundary are approximated by
// nudging the ordinal search window by one rather than perturbing the
// float value itself, sidestepping the ULP-nudging ambiguity a
// numeric range filter would otherwise have to resolve for ±∞ bounds.
func (f *FieldCacheRangeFilter) Accept(reader *index.SegmentReader, doc int) (bool, error) {
	si, err := f.cache.StringIndexFor(reader, f.Field)
	if err != nil {
		return false, err
	}
	if doc < 0 || doc >= len(si.Order) {
		return false, nil
	}
	ord := si.Order[doc]
	if ord < 0 {
		return false, nil
	}
	lowOrd := sort.SearchStrings(si.Values, f.Lower)
	if !f.IncludeLower {
		for lowOrd < len(si.Values) && si.Values[lowOrd] == f.Lower {
			lowOrd++
		}
	}
	highOrd := sort.SearchStrings(si.Values, f.Upper)
	if f.IncludeUpper {
		for highOrd < len(si.Values) && si.Values[highOrd] == f.Upper {
			highOrd++
		}
		highOrd--
	} else {
		highOrd--
	}
	return ord >= lowOrd && ord <= highOrd, nil
}

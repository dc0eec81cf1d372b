// Package valuelabel decodes Stata value-label sets: the code->string
// tables a variable's value_label_name points into. This is a side
// channel off the main decode path (§4.2 of the format leaves value
// labels informational, not part of next_chunk's output), exposed by
// dtareader.Reader.ValueLabels() for callers that want display strings.
package valuelabel

import (
	"hash/fnv"
	"sort"

	"github.com/relab/bbhash"

	"github.com/korenmiklos/stata-dta/internal/dtaerr"
)

// Set is one value-label table: a mapping from integer codes to display
// strings, looked up through a minimal perfect hash the way the teacher's
// prefix index resolves strings to positions in pkg/format/mphf.go.
type Set struct {
	name  string
	mph   *bbhash.BBHash2
	codes []int32
	texts []string
}

// Name returns the value-label set's name, as referenced by
// dtameta.Variable.ValueLabelName.
func (s *Set) Name() string { return s.name }

// Len returns the number of code/text pairs in the set.
func (s *Set) Len() int { return len(s.codes) }

// Lookup returns the display string for code, or ok=false if code has no
// label in this set.
func (s *Set) Lookup(code int32) (string, bool) {
	if len(s.codes) == 0 {
		return "", false
	}
	if s.mph == nil {
		// Degenerate single-entry set: bbhash isn't built for one key.
		if s.codes[0] == code {
			return s.texts[0], true
		}
		return "", false
	}
	pos := s.mph.Find(hashCode(code))
	if pos == 0 {
		return "", false
	}
	idx := pos - 1
	if idx >= uint64(len(s.codes)) || s.codes[idx] != code {
		return "", false
	}
	return s.texts[idx], true
}

func hashCode(code int32) uint64 {
	h := fnv.New64a()
	h.Write([]byte{byte(code), byte(code >> 8), byte(code >> 16), byte(code >> 24)})
	return h.Sum64()
}

// buildSet constructs a Set from parallel code/text slices, building a
// bbhash minimal perfect hash over the codes when there's more than one.
func buildSet(name string, codes []int32, texts []string) (*Set, error) {
	if len(codes) <= 1 {
		return &Set{name: name, codes: codes, texts: texts}, nil
	}
	keys := make([]uint64, len(codes))
	for i, c := range codes {
		keys[i] = hashCode(c)
	}
	mph, err := bbhash.New(keys, bbhash.Gamma(2.0))
	if err != nil {
		return nil, dtaerr.At("value_label_table", 0, err)
	}

	orderedCodes := make([]int32, len(codes))
	orderedTexts := make([]string, len(texts))
	for i, c := range codes {
		pos := mph.Find(keys[i])
		if pos == 0 {
			return nil, dtaerr.At("value_label_table", 0, dtaerr.ErrInvalidFormat)
		}
		orderedCodes[pos-1] = c
		orderedTexts[pos-1] = texts[i]
	}

	return &Set{name: name, mph: mph, codes: orderedCodes, texts: orderedTexts}, nil
}

// Table is the collection of every value-label set a file defines, keyed
// by set name for Reader.ValueLabels() and variable resolution.
type Table struct {
	sets map[string]*Set
}

// Get returns the named set, or ok=false if the file defines no such set.
func (t *Table) Get(name string) (*Set, bool) {
	if t == nil {
		return nil, false
	}
	s, ok := t.sets[name]
	return s, ok
}

// Names returns every set name in the table, sorted for stable output.
func (t *Table) Names() []string {
	if t == nil {
		return nil
	}
	names := make([]string, 0, len(t.sets))
	for n := range t.sets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

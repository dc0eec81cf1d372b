package dtaheader

import (
	"github.com/korenmiklos/stata-dta/internal/byteio"
	"github.com/korenmiklos/stata-dta/internal/dtaerr"
)

// ExpectLiteral reads len(lit) bytes and fails with ErrInvalidFormat unless
// they equal lit exactly. Used for the fixed ASCII tag literals that frame
// the ≥117 dialect ("<stata_dta>", "</header>", etc).
func ExpectLiteral(r *byteio.Reader, lit string) error {
	b, err := r.ReadFixed(len(lit))
	if err != nil {
		return err
	}
	if string(b) != lit {
		return dtaerr.At(lit, r.Position()-int64(len(lit)), dtaerr.ErrInvalidFormat)
	}
	return nil
}

// ExpectOpenTag reads "<name>".
func ExpectOpenTag(r *byteio.Reader, name string) error {
	return ExpectLiteral(r, "<"+name+">")
}

// ExpectCloseTag reads "</name>".
func ExpectCloseTag(r *byteio.Reader, name string) error {
	return ExpectLiteral(r, "</"+name+">")
}

// TagRange is the byte range of a tag's interior content, [Start, End),
// exclusive of the surrounding "<name>"/"</name>" literals.
type TagRange struct {
	Start, End int64
}

// ScanTags pre-indexes every top-level (non-nested at scan depth) tag in
// [r.Position(), r.Position()+limit) into a name -> TagRange map, per the
// spec's recommendation to replace "read 500 bytes and find" with a single
// bounded linear scan. Its caller in internal/dtameta uses it to find the
// end of the characteristics section, whose size is not known from the
// metadata already read; that window starts at the characteristics
// section and may run on into the row-data region after it, whose
// arbitrary binary content can contain '<' bytes. The row-data region
// itself is located by exact byte count (see internal/dtadata), not by
// this scan.
func ScanTags(r *byteio.Reader, limit int64) (map[string]TagRange, error) {
	start := r.Position()
	end := start + limit
	if fsize := r.Size(); end > fsize {
		end = fsize
	}
	window, err := r.ReadFixed(int(end - start))
	if err != nil {
		return nil, err
	}
	// restore cursor: ScanTags is a lookahead, callers reposition explicitly.
	if err := r.Seek(start); err != nil {
		return nil, err
	}

	type openTag struct {
		name       string
		contentPos int64
	}
	var stack []openTag
	result := make(map[string]TagRange)

	i := 0
	for i < len(window) {
		if window[i] != '<' {
			i++
			continue
		}
		closeIdx := indexByteFrom(window, i, '>')
		if closeIdx < 0 {
			break
		}
		tag := string(window[i+1 : closeIdx])
		if len(tag) > 0 && tag[0] == '/' {
			name := tag[1:]
			if len(stack) > 0 && stack[len(stack)-1].name == name {
				top := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				result[name] = TagRange{Start: start + top.contentPos, End: start + int64(i)}
			}
		} else if isTagName(tag) {
			stack = append(stack, openTag{name: tag, contentPos: int64(closeIdx + 1)})
		}
		i = closeIdx + 1
	}
	return result, nil
}

func indexByteFrom(b []byte, from int, c byte) int {
	for i := from; i < len(b); i++ {
		if b[i] == c {
			return i
		}
	}
	return -1
}

// isTagName is a conservative check that a bracketed run of bytes looks
// like one of the format's ASCII tag names, so stray '<'/'>' bytes inside
// numeric fields (rare, but the header window may include them) don't
// desynchronize the scan.
func isTagName(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		ok := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_'
		if !ok {
			return false
		}
	}
	return true
}

package engine

import "github.com/catgraph/catquery/internal/stream"

// Subtract implements NOT (A minus B): sorts both operands and
// merge-walks them, streaming the ids of A that do not occur in B,
// de-duplicated, in [offset, offset+size).
//
// Unlike List and Intersect, no OUTOF marker is emitted. The reference
// server never computed one for this operator, and nothing in the
// wire protocol asks the client to expect one here; this is
// reproduced as-is rather than "fixed" to match the other operators.
func Subtract(bufA, bufB []int32, offset, size int, w *stream.Writer) {
	sortInt32(bufA)
	sortInt32(bufB)

	outstart := offset
	outend := offset + size

	n := 0
	have := false
	var last int32
	i1 := 0
	for i0 := 0; i0 < len(bufA); i0++ {
		v := bufA[i0]
		for i1 < len(bufB) && bufB[i1] < v {
			i1++
		}
		if i1 < len(bufB) && bufB[i1] == v {
			continue
		}
		if have && v == last {
			continue
		}
		have = true
		last = v

		n++
		if n <= outstart {
			continue
		}
		if n > outend {
			break
		}
		w.Emit(v)
	}
	w.Flush()
}

package engine

import "github.com/catgraph/catquery/internal/stream"

// List implements LIST (traverse-unique): sorts buf ascending and
// streams the distinct ids in [offset, offset+size), then emits the
// exact OUTOF count of distinct ids in the full (unbounded) result.
func List(buf []int32, offset, size int, w *stream.Writer) {
	sortInt32(buf)

	outstart := offset
	outend := offset + size

	n := 0
	have := false
	var last int32
	for _, v := range buf {
		if have && v == last {
			continue
		}
		have = true
		last = v
		n++
		if n <= outstart {
			continue
		}
		if n <= outend {
			w.Emit(v)
		}
	}
	w.Flush()
	w.Outof(n)
}

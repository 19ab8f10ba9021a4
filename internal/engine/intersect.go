package engine

import (
	"sort"

	"github.com/catgraph/catquery/internal/stream"
	"github.com/catgraph/catquery/pkg/collections"
)

// bsearchThreshold is the operand-size cutoff above which Intersect
// switches from the sort-merge strategy to the bsearch-with-deletion
// strategy (spec §4.4).
const bsearchThreshold = 1_000_000

// Intersect implements AND over bufA and bufB, choosing the sort-merge
// or bsearch strategy by operand size, emitting ids in [offset,
// offset+size) and a final (exact or estimated) OUTOF marker.
func Intersect(bufA, bufB []int32, offset, size int, w *stream.Writer) {
	if len(bufA) == 0 || len(bufB) == 0 {
		w.Outof(0)
		return
	}

	if len(bufA) > bsearchThreshold || len(bufB) > bsearchThreshold {
		intersectBsearch(bufA, bufB, offset, size, w)
		return
	}
	intersectSortMerge(bufA, bufB, offset, size, w)
}

// intersectSortMerge sorts both operands and merge-walks them, emitting
// each id present in both, de-duplicated. OUTOF is estimated by
// extrapolating the fraction of each side consumed when the output
// window closed.
func intersectSortMerge(bufA, bufB []int32, offset, size int, w *stream.Writer) {
	sortInt32(bufA)
	sortInt32(bufB)

	outstart := offset
	outend := offset + size

	n := 0
	i0, i1 := 0, 0
	have := false
	var last int32
	for i0 < len(bufA) && i1 < len(bufB) {
		switch {
		case bufA[i0] < bufB[i1]:
			i0++
		case bufA[i0] > bufB[i1]:
			i1++
		default:
			r := bufA[i0]
			if !have || r != last {
				n++
				if n > outstart {
					w.Emit(r)
				}
				if n >= outend {
					have = true
					last = r
					goto done
				}
			}
			have = true
			last = r
			i0++
			i1++
		}
	}
done:
	w.Flush()

	est1 := n + n*(len(bufA)+1)/(i0+1)
	est2 := n + n*(len(bufB)+1)/(i1+1)
	if est1 < est2 {
		w.Outof(est1)
	} else {
		w.Outof(est2)
	}
}

// intersectBsearch sorts the smaller operand and binary-searches it for
// each element of the larger one, deleting matched entries from the
// smaller side in place so repeated large-side values cannot rematch
// the same small-side entry. OUTOF is estimated from the fraction of
// the large side walked.
func intersectBsearch(bufA, bufB []int32, offset, size int, w *stream.Writer) {
	small, large := bufA, bufB
	if len(bufB) < len(bufA) {
		small, large = bufB, bufA
	}

	// small is mutated by the deletion logic below and must never alias
	// the caller's buffer. A pooled scratch slice avoids a fresh
	// allocation on every large AND request.
	scratch := collections.GetInt32Slice()
	defer collections.PutInt32Slice(scratch)
	*scratch = append((*scratch)[:0], small...)
	small = *scratch
	sortInt32(small)
	live := len(small)

	outstart := offset
	outend := offset + size

	n := 0
	i := 0
	for ; i < len(large); i++ {
		j := sort.Search(live, func(k int) bool { return small[k] >= large[i] })
		if j >= live || small[j] != large[i] {
			continue
		}

		n++
		if n > outstart {
			w.Emit(large[i])
		}
		if n >= outend {
			break
		}

		// Delete every occurrence of this value from small in one
		// shot (not just the matched cell): large may repeat the same
		// value, and AND emits each match at most once, so the whole
		// equal-run is collapsed onto an adjacent still-live value. If
		// no adjacent live value exists, small is wholly exhausted.
		v := small[j]
		lo, hi := j, j
		for lo > 0 && small[lo-1] == v {
			lo--
		}
		for hi < live-1 && small[hi+1] == v {
			hi++
		}
		switch {
		case hi+1 < live:
			r := small[hi+1]
			for k := lo; k <= hi; k++ {
				small[k] = r
			}
		case lo > 0:
			r := small[lo-1]
			for k := lo; k <= hi; k++ {
				small[k] = r
			}
		default:
			live = 0
		}
	}
	w.Flush()

	est := n + n*(len(large)+1)/(i+1)
	w.Outof(est)
}

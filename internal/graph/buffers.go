package graph

import "github.com/catgraph/catquery/pkg/collections"

// initialBufferCapacity is the starting capacity of each result buffer,
// per spec: 100,000 entries.
const initialBufferCapacity = 100_000

// Buffers holds the two worker-owned intermediate file-id sequences and
// the visitation mask used by traversal and path search. A single
// Buffers is reused across jobs by the compute worker; Reset* methods
// bring it back to a clean state between phases without reallocating
// the backing arrays unless growth is required. The mask is a
// VersionedBitset so ClearMask is an O(1) version bump rather than an
// O(n) sweep between every LIST/AND/NOT/PATH phase.
type Buffers struct {
	a, b []int32
	mask *collections.VersionedBitset
}

// NewBuffers allocates a Buffers sized for a graph with n entities.
func NewBuffers(n int) *Buffers {
	return &Buffers{
		a:    make([]int32, 0, initialBufferCapacity),
		b:    make([]int32, 0, initialBufferCapacity),
		mask: collections.NewVersionedBitset(n),
	}
}

// Slot selects buffer 0 (A) or 1 (B) by discriminator.
func (bufs *Buffers) Slot(which int) []int32 {
	if which == 0 {
		return bufs.a
	}
	return bufs.b
}

// Append appends v to the selected buffer, growing it through Go's
// append when it is full. Existing contents are preserved across
// growth; the growth factor is the runtime's, not a strict doubling.
func (bufs *Buffers) Append(which int, v int32) {
	if which == 0 {
		bufs.a = append(bufs.a, v)
	} else {
		bufs.b = append(bufs.b, v)
	}
}

// AppendAll appends a run of values to the selected buffer.
func (bufs *Buffers) AppendAll(which int, vs []int32) {
	if which == 0 {
		bufs.a = append(bufs.a, vs...)
	} else {
		bufs.b = append(bufs.b, vs...)
	}
}

// Len returns the current logical size of the selected buffer.
func (bufs *Buffers) Len(which int) int {
	if which == 0 {
		return len(bufs.a)
	}
	return len(bufs.b)
}

// ResetCounts truncates both buffers to length 0 without shrinking their
// backing capacity, mirroring the reference's fnumA = fnumB = 0 at the
// start of each job.
func (bufs *Buffers) ResetCounts() {
	bufs.a = bufs.a[:0]
	bufs.b = bufs.b[:0]
}

// ClearMask resets the visitation mask. Must be called before any
// traversal or path-search phase that relies on it.
func (bufs *Buffers) ClearMask() {
	bufs.mask.Reset()
}

// Visited reports whether id has been marked in the mask.
func (bufs *Buffers) Visited(id int) bool {
	return bufs.mask.Test(id)
}

// Mark marks id as visited.
func (bufs *Buffers) Mark(id int) {
	bufs.mask.Set(id)
}

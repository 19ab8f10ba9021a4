// Package graph holds the immutable category/file graph and the
// worker-owned scratch buffers used while answering a single query.
package graph

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Store is the flat-array representation of the category graph described
// by the on-disk cat/tree blobs. It never mutates after Load returns.
//
// For an entity id i in [0, N):
//   - cat[i] >= 0 means i is a category, and cat[i] is an offset into tree.
//   - cat[i] <  0 means i is a file (no outgoing edges).
//
// For a category with offset c:
//
//	tree[c]        = cend, the end of the subcategory range (exclusive)
//	tree[c+1]      = fend, the end of the file range (exclusive)
//	tree[c+2:cend] = subcategory ids
//	tree[cend:fend]= file ids
type Store struct {
	cat  []int32
	tree []int32
}

// New wraps already-decoded cat/tree arrays. Exposed for tests; production
// code should use Load.
func New(cat, tree []int32) *Store {
	return &Store{cat: cat, tree: tree}
}

// Load reads the two little-endian int32 blobs from r1 (cat) and r2
// (tree) and builds a Store. A truncated or malformed blob is a fatal
// load error per the spec: the caller is expected to abort startup.
func Load(r1, r2 io.Reader) (*Store, error) {
	cat, err := readInt32s(r1)
	if err != nil {
		return nil, fmt.Errorf("graph: reading cat blob: %w", err)
	}
	tree, err := readInt32s(r2)
	if err != nil {
		return nil, fmt.Errorf("graph: reading tree blob: %w", err)
	}
	return &Store{cat: cat, tree: tree}, nil
}

func readInt32s(r io.Reader) ([]int32, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("blob length %d is not a multiple of 4", len(raw))
	}
	out := make([]int32, len(raw)/4)
	for i := range out {
		out[i] = int32(binary.LittleEndian.Uint32(raw[i*4 : i*4+4]))
	}
	return out, nil
}

// N is the number of entities (categories and files) in the graph.
func (s *Store) N() int {
	return len(s.cat)
}

// Valid reports whether id names an entity in [0, N).
func (s *Store) Valid(id int) bool {
	return id >= 0 && id < len(s.cat)
}

// IsCategory reports whether id is a category.
func (s *Store) IsCategory(id int) bool {
	return s.Valid(id) && s.cat[id] >= 0
}

// IsFile reports whether id is a file.
func (s *Store) IsFile(id int) bool {
	return s.Valid(id) && s.cat[id] < 0
}

// Children returns the subcategory id range and the file id range
// contained directly in category id. Panics if id is not a category;
// callers must check IsCategory first.
func (s *Store) Children(id int) (subcats, files []int32) {
	c := s.cat[id]
	cend := s.tree[c]
	fend := s.tree[c+1]
	return s.tree[c+2 : cend], s.tree[cend:fend]
}

// ContainsFile reports whether category id directly contains file fid
// (not transitively — used by the path finder's file-target match rule).
func (s *Store) ContainsFile(id int, fid int32) bool {
	_, files := s.Children(id)
	for _, f := range files {
		if f == fid {
			return true
		}
	}
	return false
}

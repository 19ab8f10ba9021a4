package engine

import (
	"github.com/catgraph/catquery/internal/graph"
	"github.com/catgraph/catquery/internal/stream"
)

// Path implements PATH (C5): a bounded depth-first search for a route
// from c1 down into its subtree to c2, where c2 matches either a
// category id encountered along the route or a file directly
// contained in a category on that route.
//
// This is depth-first, not breadth-first: it returns the first route
// the traversal order happens to find, which need not be the shortest
// one. The reference server searches this way; callers should not
// assume path minimality.
func Path(store *graph.Store, bufs *graph.Buffers, c1, c2 int32, w *stream.Writer) {
	history := make([]int32, 0, MaxDepth)
	if !pathSearch(store, bufs, c1, c2, 0, &history) {
		w.NoPath()
		return
	}
	for _, id := range history {
		w.Emit(id)
	}
	w.Flush()
}

// pathSearch walks the subcategory tree rooted at id looking for
// target. The match check runs before id is marked visited, so the
// start node is still eligible to match; marking happens after, so a
// node already on the current route is never revisited by a sibling
// branch. A true return short-circuits every enclosing call as soon as
// one child reports success.
func pathSearch(store *graph.Store, bufs *graph.Buffers, id, target int32, depth int, history *[]int32) bool {
	if depth >= MaxDepth || bufs.Visited(int(id)) {
		return false
	}

	*history = append(*history, id)

	if id == target || store.ContainsFile(int(id), target) {
		bufs.Mark(int(id))
		return true
	}
	bufs.Mark(int(id))

	if store.IsCategory(int(id)) {
		subs, _ := store.Children(int(id))
		for _, s := range subs {
			if pathSearch(store, bufs, s, target, depth+1, history) {
				return true
			}
		}
	}

	*history = (*history)[:len(*history)-1]
	return false
}

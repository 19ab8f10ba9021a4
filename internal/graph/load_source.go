package graph

import (
	"context"
	"fmt"

	"github.com/catgraph/catquery/internal/storage"
)

// LoadFromStorage loads the cat/tree blobs through a storage.Storage
// backend (local disk or COS) rather than assuming the caller already
// holds open file handles. This is the pluggable byte source the
// engine's Load never had to care about in the reference server, which
// only ever read two local files.
func LoadFromStorage(ctx context.Context, st storage.Storage, catKey, treeKey string) (*Store, error) {
	catR, err := st.Download(ctx, catKey)
	if err != nil {
		return nil, fmt.Errorf("graph: downloading %s: %w", catKey, err)
	}
	defer catR.Close()

	treeR, err := st.Download(ctx, treeKey)
	if err != nil {
		return nil, fmt.Errorf("graph: downloading %s: %w", treeKey, err)
	}
	defer treeR.Close()

	return Load(catR, treeR)
}

// Command catgraphd serves the category/file graph query API described
// by the LIST/AND/NOT/PATH request protocol.
package main

import "github.com/catgraph/catquery/cmd/catgraphd/cmd"

func main() {
	cmd.Execute()
}

package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/catgraph/catquery/internal/graph"
	"github.com/catgraph/catquery/internal/queue"
	"github.com/catgraph/catquery/internal/storage"
	"github.com/catgraph/catquery/internal/stream"
	"github.com/catgraph/catquery/pkg/config"
)

var (
	queryServer string
	queryC1     int32
	queryC2     int32
	queryAction string
	queryD1     int
	queryD2     int
	queryOffset int
	querySize   int
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Run a single LIST/AND/NOT/PATH query",
	Long: `query runs one LIST/AND/NOT/PATH request and prints the streamed
reply frames to stdout.

With --server it sends the request to a running catgraphd instance over
HTTP. Without it, query loads the graph named by the config file itself
(the same cat/tree blobs serve would load) and answers the request
in-process against a throwaway one-job queue, for scripting against a
graph file with no server running.`,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)

	queryCmd.Flags().StringVar(&queryServer, "server", "", "Base URL of a running catgraphd instance, e.g. http://localhost:8080 (omit to query a local graph file)")
	queryCmd.Flags().Int32Var(&queryC1, "c1", 0, "First category id (required)")
	queryCmd.Flags().Int32Var(&queryC2, "c2", 0, "Second category id (defaults to c1, i.e. plain LIST)")
	queryCmd.Flags().StringVar(&queryAction, "a", "", "Action: list, and, not, or path (defaults per c1/c2, as intake does)")
	queryCmd.Flags().IntVar(&queryD1, "d1", -1, "Reserved depth cap for c1's subtree")
	queryCmd.Flags().IntVar(&queryD2, "d2", -1, "Reserved depth cap for c2's subtree")
	queryCmd.Flags().IntVar(&queryOffset, "o", 0, "Result window offset")
	queryCmd.Flags().IntVar(&querySize, "s", 100, "Result window size")
	queryCmd.MarkFlagRequired("c1")

	binName := BinName()
	queryCmd.Example = `  # LIST against a running server
  ` + binName + ` query --server http://localhost:8080 --c1 42

  # AND two categories against a local graph file, no server needed
  ` + binName + ` query -c ./config.yaml --c1 42 --c2 7 --a and`
}

func runQuery(cmd *cobra.Command, args []string) error {
	c2Set := cmd.Flags().Changed("c2")
	if queryServer != "" {
		return queryRemote(queryServer, c2Set)
	}
	return queryLocal(c2Set)
}

// queryRemote sends the request to a running server's /query endpoint
// and copies the streamed reply lines to stdout as they arrive. c2 is
// only sent when the caller actually passed --c2, so the server's own
// intake.Parse applies its usual c1==c2 default rather than this
// command silently hard-coding it.
func queryRemote(base string, c2Set bool) error {
	u, err := url.Parse(base)
	if err != nil {
		return fmt.Errorf("invalid --server URL: %w", err)
	}
	u.Path = "/query"

	q := u.Query()
	q.Set("c1", strconv.FormatInt(int64(queryC1), 10))
	if c2Set {
		q.Set("c2", strconv.FormatInt(int64(queryC2), 10))
	}
	if queryAction != "" {
		q.Set("a", queryAction)
	}
	q.Set("d1", strconv.Itoa(queryD1))
	q.Set("d2", strconv.Itoa(queryD2))
	q.Set("o", strconv.Itoa(queryOffset))
	q.Set("s", strconv.Itoa(querySize))
	u.RawQuery = q.Encode()

	resp, err := http.Get(u.String())
	if err != nil {
		return fmt.Errorf("querying %s: %w", u.String(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %s: %s", resp.Status, body)
	}

	_, err = io.Copy(os.Stdout, resp.Body)
	return err
}

// queryLocal loads the graph named by the config file directly and
// answers the request against a throwaway queue with exactly one
// worker job, with no HTTP server involved.
func queryLocal(c2Set bool) error {
	log := GetLogger()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx := context.Background()

	st, err := storage.NewStorage(&cfg.Storage)
	if err != nil {
		return fmt.Errorf("initializing storage backend: %w", err)
	}

	store, err := graph.LoadFromStorage(ctx, st, cfg.Graph.CatFile, cfg.Graph.TreeFile)
	if err != nil {
		return fmt.Errorf("loading graph: %w", err)
	}

	if !store.IsCategory(int(queryC1)) {
		return fmt.Errorf("c1 must be a category")
	}

	c2 := queryC1
	if c2Set {
		c2 = queryC2
	}
	kind, err := classifyAction(queryAction, queryC1, c2)
	if err != nil {
		return err
	}
	if kind != queue.KindPath && !store.IsCategory(int(c2)) {
		return fmt.Errorf("c2 must be a category")
	}

	bufs := graph.NewBuffers(store.N())
	q := queue.New(store, bufs, log)
	q.Start()
	defer q.Stop()

	ch := stream.NewIOChannel(os.Stdout)
	writer := stream.NewWriter(ch)

	job, err := q.Submit(ctx, queryC1, c2, queryD1, queryD2, queryOffset, querySize, kind, writer)
	if err != nil {
		return fmt.Errorf("submitting query: %w", err)
	}
	<-job.Done()
	return nil
}

// classifyAction mirrors internal/intake.Parse's action-defaulting
// rule for the subset query needs: explicit actions pass through,
// otherwise c1==c2 defaults to LIST and c1!=c2 defaults to AND.
func classifyAction(action string, c1, c2 int32) (queue.Kind, error) {
	if action == "" {
		if c1 != c2 {
			action = "and"
		} else {
			action = "list"
		}
	}
	switch action {
	case "list":
		return queue.KindList, nil
	case "and":
		return queue.KindAnd, nil
	case "not":
		return queue.KindNot, nil
	case "path":
		if c1 == c2 {
			return 0, fmt.Errorf("path requires c1 != c2")
		}
		return queue.KindPath, nil
	default:
		return 0, fmt.Errorf("unknown action: %s", action)
	}
}

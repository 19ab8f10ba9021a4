// Package intake parses and validates the request parameters of C8,
// classifying a request into the job kind the queue understands.
// Rejections are synchronous: an invalid request never reaches the
// queue.
package intake

import (
	"strconv"

	"github.com/catgraph/catquery/internal/graph"
	"github.com/catgraph/catquery/internal/queue"
	"github.com/catgraph/catquery/pkg/errors"
)

// defaultOffset and defaultSize are C8's paging defaults.
const (
	defaultOffset = 0
	defaultSize   = 100
	unsetDepth    = -1
)

// Params is the map-like accessor intake expects from the transport:
// present/absent query-style key/value pairs, independent of whether
// they arrived over HTTP query string or a socket handshake payload.
type Params interface {
	Get(key string) (value string, ok bool)
}

// Request is the validated, fully-defaulted result of Parse, ready to
// hand to queue.Submit.
type Request struct {
	C1, C2       int32
	D1, D2       int
	Offset, Size int
	Kind         queue.Kind
}

// Parse reads c1, c2, a, d1, d2, o, s from p, validates them against
// store, and classifies the request into a job kind. Any failure is
// returned as an *errors.AppError with errors.CodeInvalidInput; the
// caller must not enqueue a job for a rejected request.
func Parse(store *graph.Store, p Params) (Request, error) {
	var req Request

	c1, ok := p.Get("c1")
	if !ok {
		return req, errors.New(errors.CodeInvalidInput, "c1 is required")
	}
	c1v, err := parseID(c1)
	if err != nil {
		return req, errors.Wrap(errors.CodeInvalidInput, "c1 is not an integer", err)
	}
	if !store.Valid(int(c1v)) {
		return req, errors.New(errors.CodeInvalidInput, "c1 is out of range")
	}
	if !store.IsCategory(int(c1v)) {
		return req, errors.New(errors.CodeInvalidInput, "c1 must be a category")
	}
	req.C1 = c1v
	req.C2 = c1v

	if c2, ok := p.Get("c2"); ok {
		c2v, err := parseID(c2)
		if err != nil {
			return req, errors.Wrap(errors.CodeInvalidInput, "c2 is not an integer", err)
		}
		if !store.Valid(int(c2v)) {
			return req, errors.New(errors.CodeInvalidInput, "c2 is out of range")
		}
		req.C2 = c2v
	}

	action, hasAction := p.Get("a")
	if !hasAction {
		if req.C1 != req.C2 {
			action = "and"
		} else {
			action = "list"
		}
	}
	switch action {
	case "and":
		req.Kind = queue.KindAnd
	case "not":
		req.Kind = queue.KindNot
	case "list":
		req.Kind = queue.KindList
	case "path":
		if req.C1 == req.C2 {
			return req, errors.New(errors.CodeInvalidInput, "path requires c1 != c2")
		}
		req.Kind = queue.KindPath
	default:
		return req, errors.New(errors.CodeInvalidInput, "unknown action: "+action)
	}

	// c2 is a category precondition for every kind but PATH: AND/NOT
	// walk it through Children exactly like c1, and LIST's implicit
	// c2==c1 inherits the check above. PATH's c2 is a legitimate file
	// target (the path finder's "reached a file" terminal case), so it
	// is exempt.
	if req.Kind != queue.KindPath && !store.IsCategory(int(req.C2)) {
		return req, errors.New(errors.CodeInvalidInput, "c2 must be a category")
	}

	req.D1 = intParamOr(p, "d1", unsetDepth)
	req.D2 = intParamOr(p, "d2", unsetDepth)
	req.Offset = intParamOr(p, "o", defaultOffset)
	req.Size = intParamOr(p, "s", defaultSize)

	return req, nil
}

func parseID(s string) (int32, error) {
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, strconv.ErrRange
	}
	return int32(v), nil
}

func intParamOr(p Params, key string, fallback int) int {
	s, ok := p.Get(key)
	if !ok {
		return fallback
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return v
}

package http

import (
	"context"

	"golang.org/x/sync/singleflight"
)

var reportGroup singleflight.Group

// coalesce runs fn once for concurrent callers sharing key. Results are not kept
// after the call returns. Keys carry the ledger version, so a request made after
// a commit never joins a computation started before it.
func coalesce(ctx context.Context, key string, fn func() (any, error)) (any, error, bool) {
	resultChan := reportGroup.DoChan(key, fn)
	select {
	case <-ctx.Done():
		return nil, ctx.Err(), false
	case res := <-resultChan:
		return res.Val, res.Err, res.Shared
	}
}

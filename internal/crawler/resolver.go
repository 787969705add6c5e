// Package crawler implements the crawl orchestrator: per entity kind, serve
// the cached record when it is complete, otherwise fetch the document,
// extract it and persist the result before answering.
package crawler

import (
	"context"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"github.com/mohe2015/tucant/internal/database"
	"github.com/mohe2015/tucant/internal/logger"
	"github.com/mohe2015/tucant/internal/tucanurl"
)

// Fetcher retrieves one authenticated document per call. Implemented by
// fetcher.Fetcher; the returned string is the URL that was fetched.
type Fetcher interface {
	Fetch(ctx context.Context, p tucanurl.Program) (*goquery.Document, string, error)
}

// Resolver drives the cached-or-fetch state machine for every entity kind.
// The store and the fetcher are injected so isolated resolvers can run
// against separate sessions and separate databases.
type Resolver struct {
	store   *database.Store
	fetcher Fetcher
	log     logger.Interface
}

// NewResolver creates a resolver over the given store and fetcher.
func NewResolver(store *database.Store, fetcher Fetcher, log logger.Interface) *Resolver {
	return &Resolver{
		store:   store,
		fetcher: fetcher,
		log:     log,
	}
}

// opLog returns a logger scoped to one resolve operation. Every operation
// gets its own id so interleaved concurrent crawls stay separable in the
// log stream.
func (r *Resolver) opLog(operation string) logger.Interface {
	return r.log.With("operation", operation, "op_id", uuid.NewString())
}

// Package sync orchestrates one full catalog synchronization run: listing
// scrape, identity resolution, metadata enrichment, showtime crawl and
// database reconciliation.
package sync

import (
	"errors"

	"github.com/ldesmet/cinesync/internal/fetcher"
)

// ErrBlocked marks a run aborted because a source answered HTTP 403 on every
// attempt.
var ErrBlocked = errors.New("source blocked the crawler")

// IsBlocked reports whether err represents the transient blocked condition,
// either the sentinel or a raw 403 status error anywhere in the chain.
func IsBlocked(err error) bool {
	if errors.Is(err, ErrBlocked) {
		return true
	}
	var statusErr *fetcher.StatusError
	return errors.As(err, &statusErr) && statusErr.IsForbidden()
}

// Package fetcher defines the HTTP fetch contract shared by the scraping
// clients and its error taxonomy.
package fetcher

import (
	"context"
	"fmt"
	"net/http"
)

// Response is the result of a single GET against an external source.
type Response struct {
	URL        string
	StatusCode int
	Body       []byte
}

// Getter fetches a URL once. Implementations return a *StatusError when the
// request completed but the source answered with a non-success status, and a
// plain error for transport-level failures.
type Getter interface {
	Get(ctx context.Context, url string) (Response, error)
}

// StatusError reports a non-success HTTP status from an external source.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
}

// IsForbidden reports whether the status signals the transient blocking
// condition the whole pipeline retries on.
func (e *StatusError) IsForbidden() bool {
	return e.StatusCode == http.StatusForbidden
}

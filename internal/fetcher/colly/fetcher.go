// Package collyfetcher implements fetcher.Getter using gocolly.
package collyfetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/ldesmet/cinesync/internal/fetcher"
)

// Config controls collector behavior.
type Config struct {
	Timeout time.Duration
}

// Fetcher executes single-shot GETs through a Colly collector with a
// browser-profile header set on every request.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	c := colly.NewCollector(colly.Async(false))
	c.AllowURLRevisit = true
	c.IgnoreRobotsTxt = true
	c.ParseHTTPErrorResponse = true
	c.WithTransport(newHTTPTransport())

	return &Fetcher{
		cfg:           cfg,
		baseCollector: c,
	}
}

// Get executes a single HTTP GET and returns the body plus status.
// A non-success status surfaces as a *fetcher.StatusError alongside the
// response; transport failures surface as plain errors.
func (f *Fetcher) Get(ctx context.Context, url string) (fetcher.Response, error) {
	var (
		result   fetcher.Response
		fetchErr error
	)

	collector := f.buildCollector(&result, &fetchErr)

	visitErr := f.runCollector(ctx, collector, url)
	if ctx.Err() != nil {
		return fetcher.Response{}, fmt.Errorf("fetch canceled: %w", ctx.Err())
	}

	var statusErr *fetcher.StatusError
	if errors.As(fetchErr, &statusErr) {
		return result, fetchErr
	}
	if fetchErr != nil {
		return fetcher.Response{}, fmt.Errorf("fetch %s: %w", url, fetchErr)
	}
	if visitErr != nil {
		return fetcher.Response{}, fmt.Errorf("visit %s: %w", url, visitErr)
	}
	return result, nil
}

func (f *Fetcher) buildCollector(result *fetcher.Response, fetchErr *error) *colly.Collector {
	collector := f.baseCollector.Clone()
	collector.AllowURLRevisit = true
	collector.IgnoreRobotsTxt = true
	collector.ParseHTTPErrorResponse = true
	timeout := f.cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	collector.SetRequestTimeout(timeout)

	collector.OnRequest(func(r *colly.Request) {
		for key, values := range browserHeaders() {
			for _, v := range values {
				r.Headers.Set(key, v)
			}
		}
	})

	collector.OnResponse(func(r *colly.Response) {
		*result = fetcher.Response{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Body:       append([]byte(nil), r.Body...),
		}
	})

	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			*result = fetcher.Response{
				URL:        r.Request.URL.String(),
				StatusCode: r.StatusCode,
				Body:       append([]byte(nil), r.Body...),
			}
			*fetchErr = &fetcher.StatusError{URL: r.Request.URL.String(), StatusCode: r.StatusCode}
			return
		}
		*fetchErr = err
	})

	return collector
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, url string) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}

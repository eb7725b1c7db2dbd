package pageinsight

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/bryanwahyu/seo-aio-audit/internal/domain/audit"
)

const (
	maxRedirects    = 5
	maxResponseBody = 10 << 20
	userAgent       = "SEOAIOAuditBot/1.0"
)

var (
	errTooManyRedirects = errors.New("too many redirects")
	errBlockedRedirect  = errors.New("redirect to non-http(s) scheme blocked")
	// ErrUpstreamStatus is returned when the page answers with a 4xx/5xx.
	ErrUpstreamStatus = errors.New("page returned an error status")
)

// Reader fetches a page and extracts its content. It implements
// audit.PageReader.
type Reader struct {
	client *http.Client
}

// NewReader returns a Reader whose transport refuses private and reserved
// addresses and validates every redirect.
func NewReader() *Reader {
	return NewReaderWithClient(&http.Client{
		Timeout: 15 * time.Second,
		Transport: &http.Transport{
			DialContext:         safeDialer().DialContext,
			MaxConnsPerHost:     10,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
		CheckRedirect: safeRedirectPolicy,
	})
}

// NewReaderWithClient uses c as is, for tests against local servers.
func NewReaderWithClient(c *http.Client) *Reader {
	return &Reader{client: c}
}

func safeRedirectPolicy(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("%w: stopped after %d", errTooManyRedirects, maxRedirects)
	}
	if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
		return fmt.Errorf("%w: %s", errBlockedRedirect, req.URL.Scheme)
	}
	return nil
}

// Read implements audit.PageReader.
func (r *Reader) Read(ctx context.Context, target string) (*audit.PageContent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("%w: %d", ErrUpstreamStatus, resp.StatusCode)
	}

	// final URL after redirects, so relative logo links resolve correctly
	base := resp.Request.URL
	if base == nil {
		if base, err = url.Parse(target); err != nil {
			return nil, err
		}
	}
	return Parse(io.LimitReader(resp.Body, maxResponseBody), base)
}

// Package fetcher issues authenticated document fetches against the portal.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/semaphore"

	"github.com/mohe2015/tucant/internal/domain"
	"github.com/mohe2015/tucant/internal/logger"
	"github.com/mohe2015/tucant/internal/tucanurl"
)

// sessionCookie is the cookie name carrying the portal session id.
const sessionCookie = "cnsc"

// timeoutHeading is the literal h1 text of the portal's session-timeout
// page. The portal answers 200 OK for expired sessions; this heading is the
// only reliable marker.
const timeoutHeading = "Timeout!"

// maxResponseBodyBytes limits the size of fetched page responses.
const maxResponseBodyBytes = 10 * 1024 * 1024 // 10 MB

// ErrSessionExpired is returned when a fetched document is the portal's
// session-timeout page. It is fatal to the session: callers must
// re-authenticate, never retry the fetch.
var ErrSessionExpired = errors.New("tucan session expired")

// Fetcher performs one authenticated GET per logical document fetch.
// Outbound concurrency is capped by a process-wide weighted semaphore shared
// by every operation using this fetcher; excess callers queue on the permit
// instead of being rejected.
type Fetcher struct {
	client  *http.Client
	baseURL string
	permits *semaphore.Weighted
	session domain.Session
	log     logger.Interface
}

// New creates a fetcher for one session. permits must be the process-wide
// fetch semaphore; base is the portal origin without trailing slash.
func New(client *http.Client, base string, permits *semaphore.Weighted, session domain.Session, log logger.Interface) *Fetcher {
	return &Fetcher{
		client:  client,
		baseURL: strings.TrimRight(base, "/"),
		permits: permits,
		session: session,
		log:     log,
	}
}

// Fetch retrieves the document addressed by the program and returns it
// parsed, together with the URL that was fetched (for error context).
func (f *Fetcher) Fetch(ctx context.Context, p tucanurl.Program) (*goquery.Document, string, error) {
	pageURL := f.baseURL + tucanurl.Encode(p, f.session.Nr)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, pageURL, fmt.Errorf("build request for %s: %w", pageURL, err)
	}
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: f.session.ID})

	if err := f.permits.Acquire(ctx, 1); err != nil {
		return nil, pageURL, fmt.Errorf("acquire fetch permit: %w", err)
	}
	body, err := f.doFetch(req)
	f.permits.Release(1)
	if err != nil {
		return nil, pageURL, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, pageURL, fmt.Errorf("parse document %s: %w", pageURL, err)
	}

	if hasTimeoutHeading(doc) {
		f.log.Warn("session timeout page received", "url", pageURL)
		return nil, pageURL, ErrSessionExpired
	}

	f.log.Debug("fetched document", "url", pageURL, "bytes", len(body))
	return doc, pageURL, nil
}

// doFetch performs the HTTP round trip and reads the body while the fetch
// permit is held.
func (f *Fetcher) doFetch(req *http.Request) (string, error) {
	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", req.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: unexpected status %d", req.URL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
	if err != nil {
		return "", fmt.Errorf("read body of %s: %w", req.URL, err)
	}
	return string(body), nil
}

// hasTimeoutHeading reports whether any h1 carries the session-timeout text.
func hasTimeoutHeading(doc *goquery.Document) bool {
	found := false
	doc.Find("h1").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if strings.TrimSpace(sel.Text()) == timeoutHeading {
			found = true
			return false
		}
		return true
	})
	return found
}

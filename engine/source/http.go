package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/WessleyAI/wessley-marketplace/engine/domain"
	"github.com/WessleyAI/wessley-marketplace/pkg/fn"
)

// DefaultMaxPages caps CollectAll when no limit is configured.
const DefaultMaxPages = 20

// maxBody bounds a single response page.
const maxBody = 16 << 20

// HTTPError is a non-2xx response from the listing endpoint.
type HTTPError struct {
	StatusCode int
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("source: GET %s: status %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// IsTransient reports whether err is worth another attempt: network
// failures, 5xx responses and 429. Cancellation and decode errors are not.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var he *HTTPError
	if errors.As(err, &he) {
		return he.StatusCode >= 500 || he.StatusCode == http.StatusTooManyRequests
	}
	var ne net.Error
	return errors.As(err, &ne)
}

// HTTPSource pages through a listing endpoint.
type HTTPSource struct {
	endpoint *url.URL
	client   *http.Client
	limiter  *rate.Limiter
	retry    fn.RetryOpts
	maxPages int
	log      *slog.Logger
}

// HTTPOption configures an HTTPSource.
type HTTPOption func(*HTTPSource)

// WithHTTPClient replaces the default instrumented client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(s *HTTPSource) { s.client = c }
}

// WithRateLimit paces outgoing requests.
func WithRateLimit(every time.Duration, burst int) HTTPOption {
	return func(s *HTTPSource) { s.limiter = rate.NewLimiter(rate.Every(every), burst) }
}

// WithRetry sets the per-request retry policy. Retryable defaults to
// IsTransient when left nil.
func WithRetry(opts fn.RetryOpts) HTTPOption {
	return func(s *HTTPSource) { s.retry = opts }
}

// WithMaxPages caps how many pages CollectAll follows.
func WithMaxPages(n int) HTTPOption {
	return func(s *HTTPSource) { s.maxPages = n }
}

// WithHTTPLogger sets the logger.
func WithHTTPLogger(l *slog.Logger) HTTPOption {
	return func(s *HTTPSource) { s.log = l }
}

// NewHTTPSource creates a source for the listing endpoint at rawURL.
func NewHTTPSource(rawURL string, opts ...HTTPOption) (*HTTPSource, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("source: endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("source: endpoint %q: scheme must be http or https", rawURL)
	}
	s := &HTTPSource{
		endpoint: u,
		client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		limiter:  rate.NewLimiter(rate.Every(200*time.Millisecond), 5),
		retry:    fn.DefaultRetry,
		maxPages: DefaultMaxPages,
		log:      slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.retry.Retryable == nil {
		s.retry.Retryable = IsTransient
	}
	if s.maxPages <= 0 {
		s.maxPages = DefaultMaxPages
	}
	return s, nil
}

// FetchPage requests one page for q, retrying transient failures within
// the configured attempt budget.
func (s *HTTPSource) FetchPage(ctx context.Context, q Query) (Batch, error) {
	opts := s.retry
	opts.OnRetry = func(attempt int, err error) {
		s.log.Warn("source: retrying page", "page", max(1, q.Page), "attempt", attempt, "err", err)
	}
	return fn.Retry(ctx, opts, func(ctx context.Context) fn.Result[Batch] {
		if err := s.limiter.Wait(ctx); err != nil {
			return fn.Err[Batch](err)
		}
		return fn.FromPair(s.get(ctx, q))
	}).Unwrap()
}

func (s *HTTPSource) get(ctx context.Context, q Query) (Batch, error) {
	u := *s.endpoint
	vals := u.Query()
	for k, vs := range q.Values() {
		vals[k] = vs
	}
	u.RawQuery = vals.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Batch{}, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := s.client.Do(req)
	if err != nil {
		return Batch{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return Batch{}, &HTTPError{StatusCode: resp.StatusCode, URL: s.endpoint.String()}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return Batch{}, fmt.Errorf("source: read body: %w", err)
	}
	return DecodeVehicles(body)
}

// CollectAll follows pages from q.Page until the server's hints say there
// are no more, a page comes back empty, or the page cap is reached. With no
// hints at all only the first page is fetched. Random orderings are a
// single page.
func (s *HTTPSource) CollectAll(ctx context.Context, q Query) ([]domain.RawVehicle, error) {
	page := max(1, q.Page)
	var (
		all       []domain.RawVehicle
		malformed int
	)
	for n := 0; n < s.maxPages; n++ {
		b, err := s.FetchPage(ctx, q.WithPage(page))
		if err != nil {
			return nil, err
		}
		all = append(all, b.Vehicles...)
		malformed += b.Malformed
		if q.Random || len(b.Vehicles) == 0 || !more(b, page) {
			break
		}
		page++
	}
	if malformed > 0 {
		s.log.Warn("source: skipped malformed elements", "count", malformed)
	}
	return all, nil
}

func more(b Batch, page int) bool {
	if b.HasMore != nil {
		return *b.HasMore
	}
	return b.TotalPages > page
}

// Load implements Loader.
func (s *HTTPSource) Load(ctx context.Context, q Query) ([]domain.RawVehicle, error) {
	return s.CollectAll(ctx, q)
}

package usecase

import (
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"AttackDash/internal/service/upstream"
	xhttp "AttackDash/pkg/http"
	"AttackDash/pkg/logger"
	"AttackDash/pkg/metrics"
)

type roundTripper func(*http.Request) (*http.Response, error)

func (f roundTripper) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func newResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

// countingTransport counts requests per URL path.
type countingTransport struct {
	mu    sync.Mutex
	calls map[string]int
	total atomic.Int32
	next  roundTripper
}

func newCountingTransport(next roundTripper) *countingTransport {
	return &countingTransport{calls: map[string]int{}, next: next}
}

func (c *countingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	c.mu.Lock()
	c.calls[r.URL.Path]++
	c.mu.Unlock()
	c.total.Add(1)
	return c.next(r)
}

func (c *countingTransport) count(path string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[path]
}

func newTestSource(name string, rt http.RoundTripper) *upstream.Source {
	return upstream.New(upstream.Settings{
		Name:             name,
		BaseURL:          "http://" + name,
		Timeout:          time.Second,
		FailureThreshold: 100,
	}, logger.Nop(), metrics.Noop{}, xhttp.WithTransport(rt))
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// honourCancel fails a request whose context is already done, like a real
// transport would.
func honourCancel(next roundTripper) roundTripper {
	return func(r *http.Request) (*http.Response, error) {
		if err := r.Context().Err(); err != nil {
			return nil, err
		}
		return next(r)
	}
}

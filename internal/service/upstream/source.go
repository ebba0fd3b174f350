package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	domrepo "AttackDash/internal/domain/repository"
	xhttp "AttackDash/pkg/http"
	"AttackDash/pkg/jsonx"
	"AttackDash/pkg/logger"

	gobreaker "github.com/sony/gobreaker/v2"
)

// Fetch outcomes recorded per request.
const (
	OutcomeOK        = "ok"
	OutcomeStatus    = "status"
	OutcomeTransport = "transport"
	OutcomeParse     = "parse"
	OutcomeRejected  = "rejected"
)

// Settings describes one upstream HTTP source.
type Settings struct {
	Name             string
	BaseURL          string
	Timeout          time.Duration
	Headers          map[string]string
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

// Source is the shared fetch boundary of every upstream: one HTTP client,
// one circuit breaker, and logging plus metrics for each failure class.
type Source struct {
	name    string
	baseURL string
	client  *xhttp.Client
	cb      *gobreaker.CircuitBreaker[[]byte]
	metrics domrepo.Metrics
	log     *logger.Logger
}

// New builds a Source. Extra client options are applied after the defaults
// derived from s, so tests can swap the transport.
func New(s Settings, log *logger.Logger, m domrepo.Metrics, opts ...xhttp.ClientOption) *Source {
	if s.FailureThreshold == 0 {
		s.FailureThreshold = 5
	}
	if s.OpenTimeout <= 0 {
		s.OpenTimeout = 30 * time.Second
	}

	clientOpts := []xhttp.ClientOption{xhttp.WithTimeout(s.Timeout)}
	for k, v := range s.Headers {
		clientOpts = append(clientOpts, xhttp.WithHeader(k, v))
	}
	clientOpts = append(clientOpts, opts...)

	log = log.With(logger.String("source", s.Name))
	m.RecordBreakerState(s.Name, stateToFloat(gobreaker.StateClosed))

	threshold := s.FailureThreshold
	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: 1,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state change",
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
			m.RecordBreakerState(name, stateToFloat(to))
		},
	})

	return &Source{
		name:    s.Name,
		baseURL: s.BaseURL,
		client:  xhttp.NewClient(clientOpts...),
		cb:      cb,
		metrics: m,
		log:     log,
	}
}

// Name returns the source identity used in logs and metrics.
func (s *Source) Name() string {
	return s.name
}

// GetJSON issues a GET for path under the base URL and parses the body.
// Every failure is logged here; callers only map the error to a default.
func (s *Source) GetJSON(ctx context.Context, path string, query url.Values) (jsonx.Node, error) {
	start := time.Now()
	s.log.Info("upstream request", logger.String("path", path), logger.String("query", query.Encode()))

	body, err := s.cb.Execute(func() ([]byte, error) {
		return s.client.Get(ctx, s.baseURL+path, query)
	})
	if err != nil {
		s.metrics.RecordFetch(s.name, s.classify(path, err), time.Since(start).Seconds())
		return jsonx.Node{}, err
	}

	doc, err := jsonx.Parse(body)
	if err != nil {
		s.log.Error("upstream body is not valid json",
			logger.String("path", path),
			logger.String("body", xhttp.Truncate(string(body), 200)),
			logger.Error(err),
		)
		s.metrics.RecordFetch(s.name, OutcomeParse, time.Since(start).Seconds())
		return jsonx.Node{}, fmt.Errorf("%s: parse body: %w", s.name, err)
	}

	s.metrics.RecordFetch(s.name, OutcomeOK, time.Since(start).Seconds())
	return doc, nil
}

func (s *Source) classify(path string, err error) string {
	var se *xhttp.StatusError
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		s.log.Warn("upstream request rejected", logger.String("path", path), logger.Error(err))
		return OutcomeRejected
	case errors.As(err, &se):
		s.log.Warn("upstream returned non-success status",
			logger.String("path", path),
			logger.Int("status", se.StatusCode),
			logger.String("body", xhttp.Truncate(se.Body, 200)),
		)
		return OutcomeStatus
	default:
		s.log.Error("upstream request failed", logger.String("path", path), logger.Error(err))
		return OutcomeTransport
	}
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

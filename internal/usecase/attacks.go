package usecase

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"AttackDash/internal/domain/models"
	domrepo "AttackDash/internal/domain/repository"
	"AttackDash/internal/service/upstream"
	xhttp "AttackDash/pkg/http"
	"AttackDash/pkg/jsonx"
	"AttackDash/pkg/logger"
	"AttackDash/pkg/util"

	"golang.org/x/sync/errgroup"
)

const (
	lokiQueryPath      = "/loki/api/v1/query"
	lokiQueryRangePath = "/loki/api/v1/query_range"
	maxRecentAttacks   = 500
)

var (
	srcIPPattern   = regexp.MustCompile(`SRC=(\d+\.\d+\.\d+\.\d+)`)
	dstPortPattern = regexp.MustCompile(`DPT=(\d+)`)
)

// AttackTelemetry turns firewall log counts from Loki into dashboard views.
// Queries are detached from the caller's cancellation; the per-source client
// timeout bounds them.
type AttackTelemetry struct {
	src     *upstream.Source
	job     string
	loc     *time.Location
	metrics domrepo.Metrics
	log     *logger.Logger
}

// NewAttackTelemetry creates the aggregator for streams labelled job.
func NewAttackTelemetry(src *upstream.Source, job string, loc *time.Location, m domrepo.Metrics, log *logger.Logger) *AttackTelemetry {
	if loc == nil {
		loc = time.Local
	}
	return &AttackTelemetry{src: src, job: job, loc: loc, metrics: m, log: log}
}

func (a *AttackTelemetry) selector() string {
	return fmt.Sprintf(`{job=%q}`, a.job)
}

func (a *AttackTelemetry) breakdownQuery(window string) string {
	return fmt.Sprintf("sum by (country, country_code, latitude, longitude) (count_over_time(%s [%s]))", a.selector(), window)
}

// GetAttackStats runs the hourly breakdown, previous-hour total and 24h total
// concurrently. A failed query leaves its fields at zero.
func (a *AttackTelemetry) GetAttackStats(ctx context.Context) models.AttackStats {
	ctx = context.WithoutCancel(ctx)
	var (
		cities   []models.CountryAttackCount
		previous int
		total    int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cities = a.queryBreakdown(gctx, "1h")
		return nil
	})
	g.Go(func() error {
		previous = a.queryTotal(gctx, fmt.Sprintf("sum(count_over_time(%s [1h] offset 1h))", a.selector()))
		return nil
	})
	g.Go(func() error {
		total = a.queryTotal(gctx, fmt.Sprintf("sum(count_over_time(%s [24h]))", a.selector()))
		return nil
	})
	_ = g.Wait()

	stats := models.AttackStats{
		TotalAttacks:        total,
		AttacksPreviousHour: previous,
		MapMarkers:          sortByCount(cities),
		CountryBreakdown:    sortByCount(AggregateByCountry(cities)),
	}
	stats.TotalCountries = len(stats.CountryBreakdown)
	for _, c := range stats.CountryBreakdown {
		stats.AttacksLastHour += c.Count
	}
	if len(stats.CountryBreakdown) > 0 {
		top := stats.CountryBreakdown[0]
		stats.TopCountry = top.Country
		stats.TopCountryCount = top.Count
	}

	a.metrics.RecordAttacks(stats.AttacksLastHour, stats.AttacksPreviousHour)
	return stats
}

// GetAttacksByCountry aggregates the breakdown over timeRange ("1h", "24h").
// An invalid range yields an empty result without querying.
func (a *AttackTelemetry) GetAttacksByCountry(ctx context.Context, timeRange string) []models.CountryAttackCount {
	if !xhttp.IsTimeRange(timeRange) {
		a.log.Warn("rejected attack time range", logger.String("range", timeRange))
		return []models.CountryAttackCount{}
	}
	ctx = context.WithoutCancel(ctx)
	return sortByCount(AggregateByCountry(a.queryBreakdown(ctx, timeRange)))
}

// GetRecentAttacks returns up to limit log lines, newest first.
func (a *AttackTelemetry) GetRecentAttacks(ctx context.Context, limit int) []models.RecentAttack {
	if limit <= 0 {
		limit = 10
	}
	limit = min(limit, maxRecentAttacks)
	ctx = context.WithoutCancel(ctx)

	doc, err := a.src.GetJSON(ctx, lokiQueryRangePath, url.Values{
		"query": {a.selector()},
		"limit": {strconv.Itoa(limit)},
	})
	if err != nil {
		return []models.RecentAttack{}
	}

	attacks := ParseRecentAttacks(doc, a.loc)
	if len(attacks) > limit {
		attacks = attacks[:limit]
	}
	return attacks
}

func (a *AttackTelemetry) queryBreakdown(ctx context.Context, window string) []models.CountryAttackCount {
	doc, err := a.src.GetJSON(ctx, lokiQueryPath, url.Values{"query": {a.breakdownQuery(window)}})
	if err != nil {
		return nil
	}
	return ParseCountryBreakdown(doc)
}

func (a *AttackTelemetry) queryTotal(ctx context.Context, query string) int {
	doc, err := a.src.GetJSON(ctx, lokiQueryPath, url.Values{"query": {query}})
	if err != nil {
		return 0
	}
	return ParseTotalCount(doc)
}

// ParseCountryBreakdown reads one row per metric of an instant query result.
// Missing labels fall back to "Unknown", "XX" and 0.
func ParseCountryBreakdown(doc jsonx.Node) []models.CountryAttackCount {
	results := doc.Path("data", "result").Items()
	rows := make([]models.CountryAttackCount, 0, len(results))
	for _, item := range results {
		metric := item.Get("metric")
		rows = append(rows, models.CountryAttackCount{
			Country:     displayCountry(metric.Get("country").StringOr("Unknown")),
			CountryCode: metric.Get("country_code").StringOr("XX"),
			Count:       max(item.Get("value").At(1).IntOr(0), 0),
			Latitude:    metric.Get("latitude").FloatOr(0),
			Longitude:   metric.Get("longitude").FloatOr(0),
		})
	}
	return rows
}

// ParseTotalCount reads the single value of a sum() instant query.
func ParseTotalCount(doc jsonx.Node) int {
	return max(doc.Path("data", "result").At(0).Get("value").At(1).IntOr(0), 0)
}

// ParseRecentAttacks flattens every stream's lines into attacks sorted newest first.
func ParseRecentAttacks(doc jsonx.Node, loc *time.Location) []models.RecentAttack {
	var attacks []models.RecentAttack
	for _, stream := range doc.Path("data", "result").Items() {
		labels := stream.Get("stream")
		country := displayCountry(labels.Get("country").StringOr("Unknown"))
		code := labels.Get("country_code").StringOr("XX")
		lat := labels.Get("latitude").FloatOr(0)
		lon := labels.Get("longitude").FloatOr(0)

		for _, v := range stream.Get("values").Items() {
			ip, port := ExtractConnection(v.At(1).StringOr(""))
			attacks = append(attacks, models.RecentAttack{
				Timestamp:       util.FromNanosTruncated(v.At(0).Int64Or(0), loc),
				Country:         country,
				CountryCode:     code,
				SourceIP:        ip,
				DestinationPort: port,
				Latitude:        lat,
				Longitude:       lon,
			})
		}
	}

	sort.SliceStable(attacks, func(i, j int) bool {
		return attacks[i].Timestamp.After(attacks[j].Timestamp)
	})
	if attacks == nil {
		attacks = []models.RecentAttack{}
	}
	return attacks
}

// ExtractConnection pulls SRC= and DPT= out of a firewall log line. A missing
// source is nil; a missing or oversized port is 0.
func ExtractConnection(line string) (*string, int) {
	var ip *string
	if m := srcIPPattern.FindStringSubmatch(line); m != nil {
		s := m[1]
		ip = &s
	}
	port := 0
	if m := dstPortPattern.FindStringSubmatch(line); m != nil {
		if p, err := strconv.Atoi(m[1]); err == nil {
			port = p
		}
	}
	return ip, port
}

// AggregateByCountry merges rows sharing a country code, in first-seen order.
// The name comes from the first row, the count is the sum, and the coordinates
// come from the row with the highest count (the earliest on ties).
func AggregateByCountry(rows []models.CountryAttackCount) []models.CountryAttackCount {
	index := make(map[string]int, len(rows))
	best := make([]int, 0, len(rows))
	out := make([]models.CountryAttackCount, 0, len(rows))

	for _, r := range rows {
		i, ok := index[r.CountryCode]
		if !ok {
			index[r.CountryCode] = len(out)
			out = append(out, r)
			best = append(best, r.Count)
			continue
		}
		out[i].Count += r.Count
		if r.Count > best[i] {
			best[i] = r.Count
			out[i].Latitude = r.Latitude
			out[i].Longitude = r.Longitude
		}
	}
	return out
}

// sortByCount returns rows ordered by descending count; equal counts keep their order.
func sortByCount(rows []models.CountryAttackCount) []models.CountryAttackCount {
	out := make([]models.CountryAttackCount, len(rows))
	copy(out, rows)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

func displayCountry(name string) string {
	return strings.ReplaceAll(name, "_", " ")
}

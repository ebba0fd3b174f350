package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewWithRegisterer(reg)

	r.RecordFetch("loki", "ok", 0.2)
	r.RecordFetch("loki", "ok", 0.1)
	r.RecordFetch("loki", "status", 0.1)
	r.RecordCache("quote", true)
	r.RecordCache("quote", false)
	r.RecordCache("quote", false)
	r.RecordAttacks(120, 80)

	if got := testutil.ToFloat64(r.upstreamRequests.WithLabelValues("loki", "ok")); got != 2 {
		t.Fatalf("loki ok = %v", got)
	}
	if got := testutil.ToFloat64(r.cacheLookups.WithLabelValues("quote", "miss")); got != 2 {
		t.Fatalf("quote miss = %v", got)
	}
	if got := testutil.ToFloat64(r.attacksLastHour); got != 120 {
		t.Fatalf("last hour = %v", got)
	}
}

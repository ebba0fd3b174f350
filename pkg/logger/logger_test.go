package logger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type capturePublisher struct {
	mu      sync.Mutex
	topic   string
	batches [][]AggregatedLogEntry
}

func (p *capturePublisher) PublishMessage(_ context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topic = topic
	p.batches = append(p.batches, payload.([]AggregatedLogEntry))
	return nil
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New(&Config{Level: "loud", Output: "stdout"}); err == nil {
		t.Fatalf("expected error for invalid level")
	}
}

func TestCollectorDeduplicatesErrors(t *testing.T) {
	pub := &capturePublisher{}
	l := Nop()
	l.AddCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 10, Topic: "attackdash.logs", Publisher: pub})

	for i := 0; i < 3; i++ {
		l.Error("loki query failed", String("source", "loki"), Error(errors.New("timeout")))
	}
	l.Error("yahoo chart failed", String("source", "yahoo"))
	l.Warn("not collected")

	if got := l.collector.Pending(); got != 2 {
		t.Fatalf("pending = %d, want 2", got)
	}

	l.RemoveCollector()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if pub.topic != "attackdash.logs" {
		t.Fatalf("topic = %q", pub.topic)
	}
	if len(pub.batches) != 1 || len(pub.batches[0]) != 2 {
		t.Fatalf("unexpected batches: %+v", pub.batches)
	}
	for _, e := range pub.batches[0] {
		if e.Message == "loki query failed" && e.Count != 3 {
			t.Fatalf("loki entry count = %d, want 3", e.Count)
		}
	}
}

func TestErrorFieldNil(t *testing.T) {
	k, v := Error(nil).GetKeyValue()
	if k != "error" || v != nil {
		t.Fatalf("unexpected %q=%v", k, v)
	}
}

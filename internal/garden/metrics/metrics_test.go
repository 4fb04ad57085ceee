package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordWrite(t *testing.T) {
	Register()
	Register()

	before := testutil.ToFloat64(itemWrites.WithLabelValues("insert", "true"))
	RecordWrite("insert", true)
	after := testutil.ToFloat64(itemWrites.WithLabelValues("insert", "true"))
	if after-before != 1 {
		t.Fatalf("expected counter to grow by 1, got %v -> %v", before, after)
	}
}

func TestSubscriberGauge(t *testing.T) {
	start := testutil.ToFloat64(realtimeSubscribers)
	SubscriberAdded()
	SubscriberAdded()
	SubscriberRemoved()
	if got := testutil.ToFloat64(realtimeSubscribers) - start; got != 1 {
		t.Fatalf("expected gauge delta 1, got %v", got)
	}
}

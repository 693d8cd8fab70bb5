package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/onnwee/chat-replay/chatsync"
)

func TestInitIdempotent(t *testing.T) {
	Init()
	first := CacheHits
	Init()
	if CacheHits != first {
		t.Fatal("Init re-registered metrics")
	}
	if HTTPRequests == nil || TranscriptLoadDuration == nil || ReplayStreams == nil {
		t.Fatal("metrics not initialized")
	}
}

func TestCounterHelpers(t *testing.T) {
	Init()

	before := testutil.ToFloat64(CacheHits)
	CacheHit()
	if got := testutil.ToFloat64(CacheHits); got != before+1 {
		t.Errorf("cache hits = %v, want %v", got, before+1)
	}

	before = testutil.ToFloat64(ChatMessagesDeleted)
	RecordDeleted(3)
	RecordDeleted(0)
	if got := testutil.ToFloat64(ChatMessagesDeleted); got != before+3 {
		t.Errorf("deleted = %v, want %v", got, before+3)
	}

	before = testutil.ToFloat64(HTTPRequests.WithLabelValues("GET", "404"))
	RecordHTTP("GET", 404)
	if got := testutil.ToFloat64(HTTPRequests.WithLabelValues("GET", "404")); got != before+1 {
		t.Errorf("http requests = %v, want %v", got, before+1)
	}
}

func TestStreamOpenedGauge(t *testing.T) {
	Init()
	base := testutil.ToFloat64(ReplayStreams)
	done := StreamOpened()
	if got := testutil.ToFloat64(ReplayStreams); got != base+1 {
		t.Fatalf("streams = %v, want %v", got, base+1)
	}
	done()
	if got := testutil.ToFloat64(ReplayStreams); got != base {
		t.Fatalf("streams = %v after close, want %v", got, base)
	}
}

func TestSyncObserverCountsTransitions(t *testing.T) {
	Init()
	obs := SyncObserver(nil)
	scrolls := testutil.ToFloat64(SyncScrolls)
	manual := testutil.ToFloat64(SyncManualOverrides)
	resets := testutil.ToFloat64(SyncResets)

	obs.Scrolled(12, 3)
	obs.StateChanged(chatsync.Auto, chatsync.Manual)
	obs.StateChanged(chatsync.Manual, chatsync.Auto)

	if got := testutil.ToFloat64(SyncScrolls); got != scrolls+1 {
		t.Errorf("scrolls = %v, want %v", got, scrolls+1)
	}
	if got := testutil.ToFloat64(SyncManualOverrides); got != manual+1 {
		t.Errorf("manual overrides = %v, want %v", got, manual+1)
	}
	if got := testutil.ToFloat64(SyncResets); got != resets+1 {
		t.Errorf("resets = %v, want %v", got, resets+1)
	}
}

func TestTimeFuncRecordsObservation(t *testing.T) {
	h := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "test_duration_seconds",
		Help:    "Test duration",
		Buckets: prometheus.DefBuckets,
	})
	executed := false
	d := TimeFunc(h, func() {
		time.Sleep(10 * time.Millisecond)
		executed = true
	})
	if !executed {
		t.Error("TimeFunc did not execute provided function")
	}
	if d < 10*time.Millisecond {
		t.Errorf("duration = %v, want >= 10ms", d)
	}
	if n := testutil.CollectAndCount(h); n != 1 {
		t.Errorf("collected %d metrics, want 1", n)
	}
	// nil observer is allowed
	TimeFunc(nil, func() {})
}

func TestCorrelation(t *testing.T) {
	ctx := context.Background()
	if GetCorrelation(ctx) != "" {
		t.Fatal("expected empty correlation id")
	}
	ctx = WithCorrelation(ctx, "abc")
	if got := GetCorrelation(ctx); got != "abc" {
		t.Fatalf("GetCorrelation = %q", got)
	}
	if LoggerWithCorr(ctx) == nil {
		t.Fatal("nil logger")
	}
}

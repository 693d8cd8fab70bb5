// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/onnwee/chat-replay/chatsync"
)

var (
	once sync.Once

	// Counters
	ChatMessagesRecorded prometheus.Counter
	ChatMessagesDeleted  prometheus.Counter
	CacheHits            prometheus.Counter
	CacheMisses          prometheus.Counter
	SyncScrolls          prometheus.Counter
	SyncManualOverrides  prometheus.Counter
	SyncResets           prometheus.Counter
	HTTPRequests         *prometheus.CounterVec

	// Histograms (seconds)
	TranscriptLoadDuration prometheus.Observer

	// Gauges
	ReplayStreams prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		ChatMessagesRecorded = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_messages_recorded_total", Help: "Number of chat messages persisted by the recorder"})
		ChatMessagesDeleted = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_messages_deleted_total", Help: "Number of chat messages marked deleted by moderation"})
		CacheHits = promauto.NewCounter(prometheus.CounterOpts{Name: "archive_cache_hits_total", Help: "Transcript cache hits"})
		CacheMisses = promauto.NewCounter(prometheus.CounterOpts{Name: "archive_cache_misses_total", Help: "Transcript cache misses"})
		SyncScrolls = promauto.NewCounter(prometheus.CounterOpts{Name: "chatsync_scrolls_total", Help: "Automatic chat pane scrolls"})
		SyncManualOverrides = promauto.NewCounter(prometheus.CounterOpts{Name: "chatsync_manual_overrides_total", Help: "Transitions from auto to manual scrolling"})
		SyncResets = promauto.NewCounter(prometheus.CounterOpts{Name: "chatsync_resets_total", Help: "Transitions from manual back to auto scrolling"})
		HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{Name: "http_requests_total", Help: "HTTP requests by method and status code"}, []string{"method", "code"})
		TranscriptLoadDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "archive_transcript_load_duration_seconds", Help: "Time to assemble a transcript", Buckets: prometheus.DefBuckets})
		ReplayStreams = promauto.NewGauge(prometheus.GaugeOpts{Name: "chat_replay_streams", Help: "Open server-sent chat replay streams"})
	})
}

func inc(c prometheus.Counter) {
	if c != nil {
		c.Inc()
	}
}

// CacheHit counts a transcript cache hit.
func CacheHit() { inc(CacheHits) }

// CacheMiss counts a transcript cache miss.
func CacheMiss() { inc(CacheMisses) }

// RecordChatMessage counts one persisted chat message.
func RecordChatMessage() { inc(ChatMessagesRecorded) }

// RecordDeleted counts messages hidden by moderation.
func RecordDeleted(n int64) {
	if ChatMessagesDeleted != nil && n > 0 {
		ChatMessagesDeleted.Add(float64(n))
	}
}

// RecordHTTP counts a served request.
func RecordHTTP(method string, code int) {
	if HTTPRequests != nil {
		HTTPRequests.WithLabelValues(method, strconv.Itoa(code)).Inc()
	}
}

// StreamOpened tracks an SSE replay stream; call the returned func when it closes.
func StreamOpened() func() {
	if ReplayStreams == nil {
		return func() {}
	}
	ReplayStreams.Inc()
	return ReplayStreams.Dec
}

// SyncObserver returns a chatsync observer that feeds the sync counters and
// logs state transitions at debug level.
func SyncObserver(logger *slog.Logger) chatsync.Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return chatsync.Observer{
		Scrolled: func(target float64, index int) {
			inc(SyncScrolls)
		},
		StateChanged: func(from, to chatsync.State) {
			switch to {
			case chatsync.Manual:
				inc(SyncManualOverrides)
			case chatsync.Auto:
				inc(SyncResets)
			}
			logger.Debug("scroll state changed", slog.String("from", from.String()), slog.String("to", to.String()), slog.String("component", "chatsync"))
		},
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	v := ctx.Value(corrKey)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}

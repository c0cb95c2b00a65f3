package middleware

import (
	"net/http"
	"strings"
	"sync/atomic"
)

// MetricsCollector counts requests, error responses and open event streams.
type MetricsCollector struct {
	requestCount  atomic.Int64
	errorCount    atomic.Int64
	activeStreams atomic.Int64
}

func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{}
}

func (mc *MetricsCollector) Requests() int64      { return mc.requestCount.Load() }
func (mc *MetricsCollector) Errors() int64        { return mc.errorCount.Load() }
func (mc *MetricsCollector) ActiveStreams() int64 { return mc.activeStreams.Load() }

func (mc *MetricsCollector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mc.requestCount.Add(1)

		if strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
			mc.activeStreams.Add(1)
			defer mc.activeStreams.Add(-1)
		}

		rw := newResponseWriter(w)
		next.ServeHTTP(rw, r)

		if rw.statusCode >= 400 {
			mc.errorCount.Add(1)
		}
	})
}

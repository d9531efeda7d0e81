package main

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/minagishl/nostro/internal/relay"
)

// HTTP metrics
var (
	httpRequestsTotal atomic.Int64
	httpErrorsTotal   atomic.Int64
)

var serverStartTime = time.Now()

// metricsHandler serves Prometheus-compatible metrics
func (a *app) metricsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	fmt.Fprintf(w, "# HELP nostro_build_info Build and configuration information\n")
	fmt.Fprintf(w, "# TYPE nostro_build_info gauge\n")
	fmt.Fprintf(w, "nostro_build_info{cache_backend=%q,go_version=%q} 1\n\n", a.cacheBackendType, runtime.Version())

	fmt.Fprintf(w, "# HELP process_uptime_seconds Time since process started\n")
	fmt.Fprintf(w, "# TYPE process_uptime_seconds gauge\n")
	fmt.Fprintf(w, "process_uptime_seconds %.0f\n\n", time.Since(serverStartTime).Seconds())

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	fmt.Fprintf(w, "# HELP go_goroutines Number of active goroutines\n")
	fmt.Fprintf(w, "# TYPE go_goroutines gauge\n")
	fmt.Fprintf(w, "go_goroutines %d\n\n", runtime.NumGoroutine())

	fmt.Fprintf(w, "# HELP go_memstats_alloc_bytes Currently allocated memory in bytes\n")
	fmt.Fprintf(w, "# TYPE go_memstats_alloc_bytes gauge\n")
	fmt.Fprintf(w, "go_memstats_alloc_bytes %d\n\n", memStats.Alloc)

	fmt.Fprintf(w, "# HELP http_requests_total Total number of HTTP requests\n")
	fmt.Fprintf(w, "# TYPE http_requests_total counter\n")
	fmt.Fprintf(w, "http_requests_total %d\n\n", httpRequestsTotal.Load())

	fmt.Fprintf(w, "# HELP http_errors_total Total number of HTTP 5xx errors\n")
	fmt.Fprintf(w, "# TYPE http_errors_total counter\n")
	fmt.Fprintf(w, "http_errors_total %d\n\n", httpErrorsTotal.Load())

	fmt.Fprintf(w, "# HELP nostro_relay_connections_active Number of active relay connections\n")
	fmt.Fprintf(w, "# TYPE nostro_relay_connections_active gauge\n")
	fmt.Fprintf(w, "nostro_relay_connections_active %d\n\n", a.pool.ActiveConnections())

	fmt.Fprintf(w, "# HELP nostro_events_dropped_total Events dropped due to full channels\n")
	fmt.Fprintf(w, "# TYPE nostro_events_dropped_total counter\n")
	fmt.Fprintf(w, "nostro_events_dropped_total %d\n\n", relay.DroppedEvents())

	fmt.Fprintf(w, "# HELP nostro_events_published_total Per-relay publish writes attempted\n")
	fmt.Fprintf(w, "# TYPE nostro_events_published_total counter\n")
	fmt.Fprintf(w, "nostro_events_published_total %d\n", relay.PublishedEvents())
}

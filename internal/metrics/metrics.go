package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	scriptsCompiled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cutscene_scripts_compiled_total",
		Help: "Scripts compiled by source and outcome",
	}, []string{"source", "outcome"}) // outcome=success|failure

	scriptLines = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cutscene_script_lines",
		Help:    "Number of lines per compiled script",
		Buckets: prometheus.ExponentialBuckets(4, 2, 8),
	})

	rehearsalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cutscene_rehearsals_total",
		Help: "Rehearsals processed by outcome",
	}, []string{"outcome"})

	rehearsalDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cutscene_rehearsal_clip_seconds",
		Help:    "Clip duration of rehearsed scripts",
		Buckets: prometheus.LinearBuckets(5, 5, 12),
	})

	rehearsalProcessing = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cutscene_rehearsal_processing_seconds",
		Help:    "Wall time spent simulating a rehearsal",
		Buckets: prometheus.DefBuckets,
	})

	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cutscene_rehearsal_queue_depth",
		Help: "Pending rehearsal requests at last poll",
	})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cutscene_http_requests_total",
		Help: "HTTP requests by method and status",
	}, []string{"method", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cutscene_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})
)

func outcome(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

// ObserveCompile records one script compilation
func ObserveCompile(source string, lines int, ok bool) {
	scriptsCompiled.WithLabelValues(source, outcome(ok)).Inc()
	if ok {
		scriptLines.Observe(float64(lines))
	}
}

// ObserveRehearsal records one finished rehearsal
func ObserveRehearsal(clipSeconds float64, took time.Duration, ok bool) {
	rehearsalsTotal.WithLabelValues(outcome(ok)).Inc()
	rehearsalProcessing.Observe(took.Seconds())
	if ok {
		rehearsalDuration.Observe(clipSeconds)
	}
}

func SetQueueDepth(n int64) {
	queueDepth.Set(float64(n))
}

// ObserveHTTP records one served request
func ObserveHTTP(method string, status int, took time.Duration) {
	httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method).Observe(took.Seconds())
}

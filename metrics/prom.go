package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PasteCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pastebin_paste_created_total",
			Help: "no. of pastes created",
		},
		[]string{"protected"},
	)
	PasteRetrieved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pastebin_paste_retrieved_total",
		Help: "no. of pastes served with content",
	})
	PasswordPrompts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pastebin_password_prompts_total",
		Help: "no. of reads answered with a password prompt",
	})
	PasteNotFound = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pastebin_paste_not_found_total",
		Help: "no. of reads for unknown paste ids",
	})
	ValidationRejects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pastebin_validation_rejects_total",
		Help: "no. of create requests rejected for empty content",
	})
	IDCollisions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pastebin_id_collisions_total",
		Help: "no. of inserts that hit an existing paste id",
	})
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pastebin_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pastebin_rate_limit_hits_total",
			Help: "no. of rate limit violations",
		},
		[]string{"endpoint"},
	)
)

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	EmailsSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "presale_emails_sent_total",
			Help: "Total queue emails delivered",
		},
	)

	EmailsFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "presale_emails_failed_total",
			Help: "Total queue emails marked failed",
		},
	)

	QueueClaimed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "presale_queue_claimed_total",
			Help: "Total queue rows claimed by worker invocations",
		},
	)

	PublicRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "presale_public_requests_total",
			Help: "Public API requests by endpoint and version",
		},
		[]string{"endpoint", "version"},
	)

	RateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "presale_public_rate_limited_total",
			Help: "Public API requests rejected by the rate limiter",
		},
	)
)

func Init() {
	prometheus.MustRegister(EmailsSent, EmailsFailed, QueueClaimed, PublicRequests, RateLimited)
}

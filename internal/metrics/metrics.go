package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "luna_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "luna_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	SessionsStartedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "luna_voice_sessions_started_total",
			Help: "Total number of voice sessions started",
		},
		[]string{"type"},
	)

	SessionsClosedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "luna_voice_sessions_closed_total",
			Help: "Total number of voice sessions reaching a terminal state",
		},
		[]string{"status"},
	)

	MinutesBilledTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "luna_minutes_billed_total",
			Help: "Total minutes debited from wallets",
		},
	)

	ClampedDebitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "luna_clamped_debits_total",
			Help: "Debits reduced because the wallet balance was lower than requested",
		},
	)

	CreditsAppliedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "luna_credits_applied_total",
			Help: "Total purchase credits applied to wallets",
		},
	)

	DuplicateCreditsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "luna_duplicate_credits_total",
			Help: "Credits skipped because the payment reference was already in the ledger",
		},
	)

	WebhooksDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "luna_webhooks_dropped_total",
			Help: "Payment webhooks dropped without crediting",
		},
		[]string{"reason"},
	)

	TokenRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "luna_voice_token_requests_total",
			Help: "Ephemeral credential requests to the realtime voice provider",
		},
		[]string{"status"},
	)

	NotificationsQueuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "luna_notifications_queued_total",
			Help: "Notifications pushed to the outbound queue",
		},
		[]string{"kind"},
	)

	NotificationQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "luna_notification_queue_length",
			Help: "Current length of the notification queue",
		},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordSessionStarted(sessionType string) {
	SessionsStartedTotal.WithLabelValues(sessionType).Inc()
}

func RecordSessionClosed(status string, minutesBilled int) {
	SessionsClosedTotal.WithLabelValues(status).Inc()
	MinutesBilledTotal.Add(float64(minutesBilled))
}

func RecordClampedDebit() {
	ClampedDebitsTotal.Inc()
}

func RecordCreditApplied() {
	CreditsAppliedTotal.Inc()
}

func RecordDuplicateCredit() {
	DuplicateCreditsTotal.Inc()
}

func RecordWebhookDropped(reason string) {
	WebhooksDroppedTotal.WithLabelValues(reason).Inc()
}

func RecordTokenRequest(status string) {
	TokenRequestsTotal.WithLabelValues(status).Inc()
}

func RecordNotificationQueued(kind string) {
	NotificationsQueuedTotal.WithLabelValues(kind).Inc()
}

// Package metrics exposes the Prometheus counters the supervisor, mailbox
// processor, and dispatch pipeline update on every poll cycle, grounded on
// the teacher's promauto usage for cache instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PollTicks counts each completed poll cycle, labeled by server and mailbox.
	PollTicks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mailgate_poll_ticks_total",
		Help: "Number of mailbox poll cycles completed.",
	}, []string{"server", "mailbox"})

	// MessagesDispatched counts messages that reached a terminal outcome,
	// labeled by outcome (ok, rejected, skipped).
	MessagesDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mailgate_messages_dispatched_total",
		Help: "Number of messages processed by the dispatch pipeline.",
	}, []string{"server", "mailbox", "outcome"})

	// Reconnects counts IMAP reconnect attempts, labeled by server and result.
	Reconnects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mailgate_reconnects_total",
		Help: "Number of IMAP reconnect attempts.",
	}, []string{"server", "result"})

	// SpamRejections counts messages rejected by the spam gate.
	SpamRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mailgate_spam_rejections_total",
		Help: "Number of messages rejected by the spam gate.",
	}, []string{"server"})

	// DispatchDuration tracks end-to-end per-message dispatch latency.
	DispatchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mailgate_dispatch_duration_seconds",
		Help:    "Latency of a single message's dispatch pipeline run.",
		Buckets: prometheus.DefBuckets,
	}, []string{"server", "outcome"})

	// ActiveConnections reports the current count of supervisors in the
	// connected state.
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mailgate_active_connections",
		Help: "Number of IMAP connections currently established.",
	})
)

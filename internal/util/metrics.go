package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "shop_sessions_connected",
		Help: "Number of currently connected client sessions",
	})

	SessionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shop_sessions_total",
		Help: "Total number of accepted client connections",
	})

	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shop_requests_total",
		Help: "Total number of handled requests",
	}, []string{"action", "status"})

	CheckoutsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shop_checkouts_total",
		Help: "Total number of checkout attempts",
	}, []string{"outcome"})

	CheckoutLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "shop_checkout_latency_seconds",
		Help:    "Latency of checkout processing",
		Buckets: prometheus.DefBuckets,
	})

	BroadcastEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shop_broadcast_events_total",
		Help: "Total number of stock update events fanned out",
	})

	BroadcastDropsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shop_broadcast_drops_total",
		Help: "Total number of sessions pruned during broadcast delivery",
	})

	ProtocolErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shop_protocol_errors_total",
		Help: "Total number of undecodable client messages",
	})

	IdleTimeoutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shop_idle_timeouts_total",
		Help: "Total number of connections closed by idle timeout",
	})
)

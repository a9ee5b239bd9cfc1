package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsDispatched counts chain events by kind and outcome (applied, duplicate, failed)
	EventsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asset_syncer_events_dispatched_total",
			Help: "Total number of chain events dispatched to handlers",
		},
		[]string{"kind", "result"},
	)

	// LastDeliveredBlock tracks the block the listener last delivered
	LastDeliveredBlock = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "asset_syncer_last_delivered_block",
			Help: "Block number of the most recent log delivered to the listener",
		},
	)

	// EventsHeld counts events that exhausted their retries and pinned the cursor for a replay
	EventsHeld = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "asset_syncer_events_held_total",
			Help: "Total number of events whose dispatch failed transiently and was scheduled for replay",
		},
	)

	// GatewayFailovers counts endpoint switches performed by the chain gateway
	GatewayFailovers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asset_syncer_gateway_failovers_total",
			Help: "Total number of times the gateway acquired a new endpoint",
		},
		[]string{"endpoint"},
	)

	// GatewayConnectionErrors counts acquisitions that exhausted every endpoint
	GatewayConnectionErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "asset_syncer_gateway_connection_errors_total",
			Help: "Total number of connection attempts that exhausted every endpoint",
		},
	)

	// SubscriptionReconnects counts subscription drops followed by a reconnect
	SubscriptionReconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "asset_syncer_subscription_reconnects_total",
			Help: "Total number of log subscription reconnects",
		},
	)

	// RecoveryItems counts cold-start items by outcome (created, skipped, failed)
	RecoveryItems = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asset_syncer_recovery_items_total",
			Help: "Total number of assets visited by cold-start recovery",
		},
		[]string{"result"},
	)

	// HolderRebuildDuration tracks the duration of a full holder rebuild
	HolderRebuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "asset_syncer_holder_rebuild_duration_seconds",
			Help:    "Holder rebuild duration in seconds",
			Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300},
		},
	)

	// ReconcileIssues tracks issues found by the most recent validation, by severity
	ReconcileIssues = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "asset_syncer_reconcile_issues",
			Help: "Issues found by the most recent validation run",
		},
		[]string{"severity"},
	)

	// ReconcileRepairs counts cache fields overwritten by repair
	ReconcileRepairs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asset_syncer_reconcile_repairs_total",
			Help: "Total number of cached fields overwritten by repair",
		},
		[]string{"field"},
	)

	// AssetQueueDepth tracks tasks waiting in the per-asset queue
	AssetQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "asset_syncer_asset_queue_depth",
			Help: "Tasks waiting in the per-asset serialization queue",
		},
	)
)

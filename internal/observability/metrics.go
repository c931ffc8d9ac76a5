// Package observability provides metrics and tracing.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReactionToggles counts reaction toggles by target type and outcome.
	ReactionToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pressroom_reaction_toggles_total",
		Help: "Reaction toggles by target type and resulting action",
	}, []string{"target_type", "action"})

	// SubtreeDeletions counts subtree deletes by root kind.
	SubtreeDeletions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pressroom_subtree_deletions_total",
		Help: "Subtree deletions by root kind",
	}, []string{"kind"})

	// SubtreeRowsDeleted counts rows removed by subtree deletes per entity.
	SubtreeRowsDeleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pressroom_subtree_rows_deleted_total",
		Help: "Rows removed by subtree deletions per entity",
	}, []string{"entity"})

	// FeedEventsPublished counts thread feed events by type.
	FeedEventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pressroom_feed_events_published_total",
		Help: "Thread feed events published by type",
	}, []string{"type"})

	// FeedDrops counts feed events not delivered to a subscriber.
	FeedDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pressroom_feed_drops_total",
		Help: "Thread feed events dropped per reason",
	}, []string{"reason"})

	// FeedSubscribers is the number of live feed subscriptions on this instance.
	FeedSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pressroom_feed_subscribers",
		Help: "Active thread feed subscriptions",
	})

	// WebSocketConnectionsTotal is the gauge of open websocket connections.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pressroom_websocket_connections",
		Help: "Open websocket connections",
	})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pressroom_websocket_backpressure_drops_total",
		Help: "WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})

	// CacheLookups counts cache-aside lookups by key family and result.
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pressroom_cache_lookups_total",
		Help: "Cache lookups by key family and result",
	}, []string{"family", "result"})
)

// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/BaSui01/crewflow/events"
)

// Collector turns the orchestration event stream into Prometheus metrics.
type Collector struct {
	// Run metrics
	runsTotal   *prometheus.CounterVec
	runDuration prometheus.Histogram

	// Task metrics
	tasksStarted  prometheus.Counter
	taskOutcomes  *prometheus.CounterVec
	taskDuration  *prometheus.HistogramVec
	escalations   prometheus.Counter
	eventsDropped prometheus.Gauge

	// Delegation and review metrics
	delegationOffers    prometheus.Counter
	delegationDecisions *prometheus.CounterVec
	reviewDecisions     *prometheus.CounterVec

	// Supervisor metrics
	activeAgents    prometheus.Gauge
	heartbeatMisses *prometheus.CounterVec
	agentRestarts   prometheus.Counter

	logger *zap.Logger

	mu       sync.Mutex
	started  map[string]time.Time // task id -> task_started timestamp
	runStart map[string]time.Time // run id -> run_started timestamp
}

// NewCollector registers the crewflow metric vectors under a namespace.
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{
		logger:   logger.With(zap.String("component", "metrics")),
		started:  make(map[string]time.Time),
		runStart: make(map[string]time.Time),
	}

	c.runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of crew runs",
		},
		[]string{"result"},
	)

	c.runDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Crew run duration in seconds",
			Buckets:   []float64{1, 5, 15, 60, 300, 900, 3600},
		},
	)

	c.tasksStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_started_total",
			Help:      "Total number of task executions started",
		},
	)

	c.taskOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_outcomes_total",
			Help:      "Terminal task outcomes by status",
		},
		[]string{"status"},
	)

	c.taskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "Task duration from start to terminal status in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		},
		[]string{"status"},
	)

	c.escalations = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "escalations_total",
			Help:      "Total number of escalations raised",
		},
	)

	c.eventsDropped = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "events_dropped",
			Help:      "Events dropped from the bounded outbound stream",
		},
	)

	c.delegationOffers = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delegation_offers_total",
			Help:      "Total number of delegation offers made",
		},
	)

	c.delegationDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delegation_decisions_total",
			Help:      "Delegation resolutions by decision",
		},
		[]string{"decision"},
	)

	c.reviewDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "review_decisions_total",
			Help:      "Review gate decisions by verdict",
		},
		[]string{"decision"},
	)

	c.activeAgents = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_agents",
			Help:      "Agent instances currently holding a concurrency slot",
		},
	)

	c.heartbeatMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "heartbeat_misses_total",
			Help:      "Missed heartbeats by member",
		},
		[]string{"member_id"},
	)

	c.agentRestarts = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agent_restarts_total",
			Help:      "Total number of agent instance restarts",
		},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// ObserveEvent records one orchestration event. Unknown event types are
// ignored so the collector stays forward compatible with new events.
func (c *Collector) ObserveEvent(ev events.Event) {
	switch ev.Type {
	case events.TypeRunStarted:
		c.mu.Lock()
		c.runStart[ev.RunID] = ev.Timestamp
		c.mu.Unlock()

	case events.TypeRunFinished:
		result := "failure"
		if success, ok := ev.Fields["success"].(bool); ok && success {
			result = "success"
		}
		c.runsTotal.WithLabelValues(result).Inc()
		c.mu.Lock()
		if start, ok := c.runStart[ev.RunID]; ok {
			delete(c.runStart, ev.RunID)
			c.runDuration.Observe(ev.Timestamp.Sub(start).Seconds())
		}
		c.mu.Unlock()

	case events.TypeTaskStarted:
		c.tasksStarted.Inc()
		c.mu.Lock()
		c.started[ev.TaskID] = ev.Timestamp
		c.mu.Unlock()

	case events.TypeTaskCompleted:
		c.recordOutcome(ev, "completed")

	case events.TypeTaskFailed:
		status := "failed"
		if s, ok := ev.Fields["status"].(string); ok && s != "" {
			status = s
		}
		c.recordOutcome(ev, status)

	case events.TypeEscalationRaised:
		c.escalations.Inc()

	case events.TypeDelegationRequested:
		c.delegationOffers.Inc()

	case events.TypeDelegationResolved:
		c.delegationDecisions.WithLabelValues(ev.Detail).Inc()

	case events.TypeReviewDecision:
		c.reviewDecisions.WithLabelValues(ev.Detail).Inc()

	case events.TypeHeartbeatMissed:
		c.heartbeatMisses.WithLabelValues(ev.MemberID).Inc()

	case events.TypeAgentRestarted:
		c.agentRestarts.Inc()
	}
}

func (c *Collector) recordOutcome(ev events.Event, status string) {
	c.taskOutcomes.WithLabelValues(status).Inc()
	c.mu.Lock()
	start, ok := c.started[ev.TaskID]
	if ok {
		delete(c.started, ev.TaskID)
	}
	c.mu.Unlock()
	if ok {
		c.taskDuration.WithLabelValues(status).Observe(ev.Timestamp.Sub(start).Seconds())
	}
}

// Watch drains an event stream until it closes or the context ends.
func (c *Collector) Watch(ctx context.Context, stream <-chan events.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-stream:
			if !ok {
				return
			}
			c.ObserveEvent(ev)
		}
	}
}

// RecordActiveAgents records the supervisor's current slot usage.
func (c *Collector) RecordActiveAgents(n int) {
	c.activeAgents.Set(float64(n))
}

// RecordDroppedEvents records how many events fell off the outbound stream.
func (c *Collector) RecordDroppedEvents(n int64) {
	c.eventsDropped.Set(float64(n))
}

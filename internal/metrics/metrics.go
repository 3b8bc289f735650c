// Package metrics exposes Prometheus collectors for trace graph activity:
// node registrations, backward passes and operator call outcomes.
//
// A nil *Collector is valid and records nothing, so packages can accept an
// optional collector without guarding every call site.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for operator calls.
const (
	OutcomeOK             = "ok"
	OutcomeExecutionError = "execution_error"
	OutcomeMissingInputs  = "missing_inputs"
	OutcomeBindError      = "bind_error"
)

// Collector groups the counters shared by one application instance.
type Collector struct {
	nodesRegistered *prometheus.CounterVec
	backwardPasses  prometheus.Counter
	backwardNodes   prometheus.Counter
	operatorCalls   *prometheus.CounterVec
}

// New creates a collector and registers it with reg.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		nodesRegistered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tracegrid",
			Name:      "nodes_registered_total",
			Help:      "Trace nodes registered, by node kind.",
		}, []string{"kind"}),
		backwardPasses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tracegrid",
			Name:      "backward_passes_total",
			Help:      "Completed backward feedback propagations.",
		}),
		backwardNodes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tracegrid",
			Name:      "backward_nodes_visited_total",
			Help:      "Message nodes visited by backward propagations.",
		}),
		operatorCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tracegrid",
			Name:      "operator_calls_total",
			Help:      "Traced operator calls, by operator and outcome.",
		}, []string{"operator", "outcome"}),
	}
	reg.MustRegister(c.nodesRegistered, c.backwardPasses, c.backwardNodes, c.operatorCalls)
	return c
}

// NodeRegistered counts one registered node of the given kind.
func (c *Collector) NodeRegistered(kind string) {
	if c == nil {
		return
	}
	c.nodesRegistered.WithLabelValues(kind).Inc()
}

// BackwardPass counts one finished backward call that visited n message nodes.
func (c *Collector) BackwardPass(visited int) {
	if c == nil {
		return
	}
	c.backwardPasses.Inc()
	c.backwardNodes.Add(float64(visited))
}

// OperatorCall counts one operator invocation.
func (c *Collector) OperatorCall(operator, outcome string) {
	if c == nil {
		return
	}
	c.operatorCalls.WithLabelValues(operator, outcome).Inc()
}

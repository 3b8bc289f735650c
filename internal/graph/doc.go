// Package graph is the trace graph: the registry of nodes produced while a
// program runs, the node data model, and the backward engine that carries
// feedback from an output to every node it was computed from.
//
// # Why Graph Package Exists
//
// Ordinary function calls are recorded as vertices of a directed acyclic
// graph so that feedback (text, scores, error reports) can be propagated
// backwards through an execution, the way reverse-mode differentiation
// propagates gradients. Optimizers then read the feedback that reached
// trainable parameters and propose new values for them.
//
// # Architecture
//
//	┌──────────────────────────────┐
//	│            Graph             │
//	│  registry: name -> []*Node   │
//	│  used-node tracking stack    │
//	│  tracing toggle, scopes      │
//	└──────────────┬───────────────┘
//	               │ owns
//	               ▼
//	┌──────────────────────────────┐      ┌──────────────────────┐
//	│             Node             │◀─────│      Propagator       │
//	│  data (cty.Value), level     │      │  GraphPropagator      │
//	│  parents/children, feedback  │      │  SumPropagator        │
//	│  parameter/expandable deps   │      └──────────────────────┘
//	└──────────────────────────────┘
//
// **Graph**: an explicit session object. Open returns it together with a
// context carrying it; Close ends its lifecycle. Names are unique within one
// graph and have the form `scope/base:index`.
//
// **Node**: one struct with a Kind. Value nodes wrap plain data, parameter
// nodes are the only nodes an optimizer may overwrite, message nodes are
// produced by operator calls and own their named inputs, exception nodes are
// message nodes describing a failed call.
//
// **Backward**: a max-level-first traversal. Levels only grow along edges,
// so when a node is popped every child that could still send it feedback
// has already been processed.
//
// # Lifecycle
//
//  1. **Open:** a graph is created per independent run
//  2. **Forward:** operators register message nodes and edges
//  3. **Backward:** feedback flows from an output to the parameters
//  4. **Update:** an optimizer overwrites parameter data in place
//  5. **Clear/Close:** the registry is dropped between episodes
//
// # Thread-Safety
//
// The registry is guarded by a mutex. Tracking, feedback and backward
// traversal are single-goroutine: run independent forward passes on
// separate graphs.
package graph

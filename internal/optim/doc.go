// Package optim connects traced parameters to an external proposer.
//
// An Optimizer owns a set of parameter nodes. After a backward pass it
// summarizes the feedback those parameters received, hands the problem to
// a Proposer (typically an LLM client living outside this module) and
// writes the proposed values back. Only trainable parameters are ever
// changed; projections may rewrite or reject a proposal first.
package optim

// Package sim provides the core agent-based modeling runtime: the model
// base with its seeded random stream, agent contracts, and the activation
// schedulers that drive agents each step.
package sim

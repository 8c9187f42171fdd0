package sim

// Agent is the minimal contract for anything driven by a scheduler.
type Agent interface {
	// ID returns the unique identifier assigned by the model.
	ID() int64
	// Step advances the agent by one activation.
	Step()
}

// Advancer is implemented by agents that stage their state changes during
// Step and apply them in Advance. SimultaneousActivation calls Step on every
// agent before calling Advance on any of them.
type Advancer interface {
	Agent
	Advance()
}

// StagedAgent is implemented by agents that participate in staged
// activation. RunStage is called once per configured stage, in stage order.
type StagedAgent interface {
	Agent
	RunStage(stage string)
}

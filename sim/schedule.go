package sim

// Scheduler activates agents each model step and tracks simulated time.
type Scheduler interface {
	// Add registers an agent for activation. Adding an agent with an ID
	// already present replaces the previous registration in place.
	Add(agent Agent)
	// Remove drops the agent with the given ID. Removing an unknown ID is
	// a no-op.
	Remove(id int64)
	// Step activates all registered agents once.
	Step()
	// Steps returns the number of completed scheduler steps.
	Steps() int
	// Time returns the simulated time, which may advance in fractional
	// increments under staged activation.
	Time() float64
	// AgentCount returns the number of registered agents.
	AgentCount() int
	// Agents returns a snapshot of registered agents in activation order.
	Agents() []Agent
}

// BaseScheduler activates agents in the order they were added.
type BaseScheduler struct {
	model  *Model
	steps  int
	time   float64
	order  []int64
	agents map[int64]Agent
}

// NewBaseScheduler creates a scheduler that activates agents in insertion
// order.
func NewBaseScheduler(model *Model) *BaseScheduler {
	return &BaseScheduler{model: model, agents: make(map[int64]Agent)}
}

// Add registers an agent for activation.
func (s *BaseScheduler) Add(agent Agent) {
	if agent == nil {
		return
	}
	id := agent.ID()
	if _, ok := s.agents[id]; !ok {
		s.order = append(s.order, id)
	}
	s.agents[id] = agent
}

// Remove drops the agent with the given ID.
func (s *BaseScheduler) Remove(id int64) {
	if _, ok := s.agents[id]; !ok {
		return
	}
	delete(s.agents, id)
	for i, got := range s.order {
		if got == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Step activates all agents in insertion order. Agents removed mid-step are
// skipped; agents added mid-step activate on the next step.
func (s *BaseScheduler) Step() {
	for _, agent := range s.Agents() {
		if _, ok := s.agents[agent.ID()]; !ok {
			continue
		}
		agent.Step()
	}
	s.steps++
	s.time++
}

// Steps returns the number of completed steps.
func (s *BaseScheduler) Steps() int { return s.steps }

// Time returns the simulated time.
func (s *BaseScheduler) Time() float64 { return s.time }

// AgentCount returns the number of registered agents.
func (s *BaseScheduler) AgentCount() int { return len(s.agents) }

// Agents returns a snapshot of registered agents in activation order.
func (s *BaseScheduler) Agents() []Agent {
	snapshot := make([]Agent, 0, len(s.order))
	for _, id := range s.order {
		if agent, ok := s.agents[id]; ok {
			snapshot = append(snapshot, agent)
		}
	}
	return snapshot
}

// RandomActivation activates all agents once per step in an order shuffled
// by the model's random stream.
type RandomActivation struct {
	BaseScheduler
}

// NewRandomActivation creates a scheduler that shuffles activation order
// each step.
func NewRandomActivation(model *Model) *RandomActivation {
	return &RandomActivation{BaseScheduler{model: model, agents: make(map[int64]Agent)}}
}

// Step activates all agents once in shuffled order.
func (s *RandomActivation) Step() {
	agents := s.Agents()
	s.model.Rand.Shuffle(len(agents), func(i, j int) {
		agents[i], agents[j] = agents[j], agents[i]
	})
	for _, agent := range agents {
		if _, ok := s.agents[agent.ID()]; !ok {
			continue
		}
		agent.Step()
	}
	s.steps++
	s.time++
}

// SimultaneousActivation steps all agents, then advances all agents, so
// every agent observes the same pre-step state.
type SimultaneousActivation struct {
	BaseScheduler
}

// NewSimultaneousActivation creates a two-phase step/advance scheduler.
func NewSimultaneousActivation(model *Model) *SimultaneousActivation {
	return &SimultaneousActivation{BaseScheduler{model: model, agents: make(map[int64]Agent)}}
}

// Step runs the step phase for every agent, then the advance phase for every
// agent implementing Advancer.
func (s *SimultaneousActivation) Step() {
	agents := s.Agents()
	for _, agent := range agents {
		agent.Step()
	}
	for _, agent := range agents {
		if _, ok := s.agents[agent.ID()]; !ok {
			continue
		}
		if advancer, ok := agent.(Advancer); ok {
			advancer.Advance()
		}
	}
	s.steps++
	s.time++
}

// Stage names one activation phase of a StagedActivation scheduler.
type Stage struct {
	// Name is passed to each agent's RunStage.
	Name string
}

// StagedActivation activates agents in named stages. Every agent runs a
// stage before any agent runs the next one. Time advances by 1/len(stages)
// per stage so a full pass over all stages advances time by one.
type StagedActivation struct {
	BaseScheduler
	stages       []Stage
	shuffle      bool
	shuffleEach  bool
	stagedOrder  []Agent
	orderStepped bool
}

// NewStagedActivation creates a staged scheduler. When shuffle is true the
// activation order is shuffled once per step; when shuffleBetweenStages is
// also true it is reshuffled before every stage.
func NewStagedActivation(model *Model, stages []Stage, shuffle, shuffleBetweenStages bool) *StagedActivation {
	return &StagedActivation{
		BaseScheduler: BaseScheduler{model: model, agents: make(map[int64]Agent)},
		stages:        stages,
		shuffle:       shuffle,
		shuffleEach:   shuffleBetweenStages,
	}
}

// Step runs every configured stage across all agents.
func (s *StagedActivation) Step() {
	if len(s.stages) == 0 {
		s.steps++
		s.time++
		return
	}

	agents := s.Agents()
	if s.shuffle {
		s.model.Rand.Shuffle(len(agents), func(i, j int) {
			agents[i], agents[j] = agents[j], agents[i]
		})
	}

	increment := 1.0 / float64(len(s.stages))
	for _, stage := range s.stages {
		for _, agent := range agents {
			if _, ok := s.agents[agent.ID()]; !ok {
				continue
			}
			if staged, ok := agent.(StagedAgent); ok {
				staged.RunStage(stage.Name)
			}
		}
		if s.shuffleEach {
			s.model.Rand.Shuffle(len(agents), func(i, j int) {
				agents[i], agents[j] = agents[j], agents[i]
			})
		}
		s.time += increment
	}
	s.steps++
}

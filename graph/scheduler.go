package graph

// Activation is the result of evaluating whether a pending node may run.
type Activation int

const (
	// NotReady means at least one producer has not settled yet.
	NotReady Activation = iota
	// Pass means the node should execute.
	Pass
	// Skip means the node is gated off for this run.
	Skip
)

func (a Activation) String() string {
	switch a {
	case Pass:
		return "pass"
	case Skip:
		return "skip"
	}
	return "not-ready"
}

type nodeState int

const (
	statePending nodeState = iota
	stateExecuted
	stateSkipped
)

// Skip reasons reported in node_skipped events and step records.
const (
	SkipConditionFalse   = "condition is false"
	SkipConditionSkipped = "condition producer was skipped"
	SkipProducersSkipped = "all producers were skipped"
)

// scheduler tracks per-node settlement for one run and decides which node
// runs next. Nodes are considered in graph insertion order; a node becomes
// eligible once every producer feeding it has settled.
type scheduler struct {
	g        *Graph
	order    []string
	state    map[string]nodeState
	incoming map[string][]Edge
}

func newScheduler(g *Graph, order []string) *scheduler {
	s := &scheduler{
		g:        g,
		order:    order,
		state:    make(map[string]nodeState, len(order)),
		incoming: make(map[string][]Edge, len(order)),
	}
	for _, id := range order {
		s.incoming[id] = g.Incoming(id)
	}
	return s
}

// activation evaluates a pending node. The reason is set for Skip.
func (s *scheduler) activation(id string) (Activation, string) {
	edges := s.incoming[id]
	for _, e := range edges {
		if s.state[e.Source] == statePending {
			return NotReady, ""
		}
	}
	if len(edges) == 0 {
		return Pass, ""
	}

	n, _ := s.g.Node(id)
	allSkipped := true
	for _, e := range edges {
		producerSkipped := s.state[e.Source] == stateSkipped
		if !producerSkipped {
			allSkipped = false
		}
		h, ok := n.Handle(e.TargetHandle)
		if !ok || !h.Condition {
			continue
		}
		if producerSkipped {
			return Skip, SkipConditionSkipped
		}
	}
	if allSkipped {
		return Skip, SkipProducersSkipped
	}

	// Condition values are read after propagation so the last feeding edge
	// decides.
	for _, e := range edges {
		h, ok := n.Handle(e.TargetHandle)
		if ok && h.Condition && !Truthy(h.Value) {
			return Skip, SkipConditionFalse
		}
	}
	return Pass, ""
}

// next returns the first pending node, in insertion order, whose activation
// is not NotReady. ok is false when no node can make progress.
func (s *scheduler) next() (id string, act Activation, reason string, ok bool) {
	for _, id := range s.order {
		if s.state[id] != statePending {
			continue
		}
		if act, reason := s.activation(id); act != NotReady {
			return id, act, reason, true
		}
	}
	return "", NotReady, "", false
}

// pending reports how many nodes have not settled.
func (s *scheduler) pending() int {
	count := 0
	for _, id := range s.order {
		if s.state[id] == statePending {
			count++
		}
	}
	return count
}

func (s *scheduler) markExecuted(id string) { s.state[id] = stateExecuted }
func (s *scheduler) markSkipped(id string)  { s.state[id] = stateSkipped }

// propagate copies every output value of the executed node along its
// outgoing edges. Edges are visited in creation order.
func (s *scheduler) propagate(source *Node) {
	for _, e := range s.g.Outgoing(source.ID) {
		target, ok := s.g.Node(e.Target)
		if !ok {
			continue
		}
		target.Set(e.TargetHandle, source.Value(e.SourceHandle))
	}
}

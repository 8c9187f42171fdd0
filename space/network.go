package space

import (
	"fmt"
	"sort"
)

// Network places agents on the nodes of an undirected graph. Each node
// holds zero or more agents.
type Network struct {
	adj       map[int]map[int]struct{}
	nodeOrder []int
	content   map[int][]Agent
	positions map[int64]int
}

// NewNetwork creates an empty network.
func NewNetwork() *Network {
	return &Network{
		adj:       make(map[int]map[int]struct{}),
		content:   make(map[int][]Agent),
		positions: make(map[int64]int),
	}
}

// AddNode registers a node. Adding an existing node is a no-op.
func (n *Network) AddNode(node int) {
	if _, ok := n.adj[node]; ok {
		return
	}
	n.adj[node] = make(map[int]struct{})
	n.nodeOrder = append(n.nodeOrder, node)
}

// AddEdge connects two nodes, creating them when missing.
func (n *Network) AddEdge(a, b int) {
	n.AddNode(a)
	n.AddNode(b)
	n.adj[a][b] = struct{}{}
	n.adj[b][a] = struct{}{}
}

// Nodes returns all nodes in insertion order.
func (n *Network) Nodes() []int {
	out := make([]int, len(n.nodeOrder))
	copy(out, n.nodeOrder)
	return out
}

// NodeCount returns the number of nodes.
func (n *Network) NodeCount() int { return len(n.adj) }

// Neighbors returns the nodes adjacent to node in ascending order.
func (n *Network) Neighbors(node int, includeCenter bool) ([]int, error) {
	edges, ok := n.adj[node]
	if !ok {
		return nil, fmt.Errorf("node %d does not exist", node)
	}
	out := make([]int, 0, len(edges)+1)
	for adjacent := range edges {
		out = append(out, adjacent)
	}
	sort.Ints(out)
	if includeCenter {
		out = append(out, node)
	}
	return out, nil
}

// PlaceAgent puts an agent on a node.
func (n *Network) PlaceAgent(agent Agent, node int) error {
	if agent == nil {
		return fmt.Errorf("agent is required")
	}
	if _, ok := n.adj[node]; !ok {
		return fmt.Errorf("node %d does not exist", node)
	}
	if _, ok := n.positions[agent.ID()]; ok {
		return fmt.Errorf("agent %d is already placed", agent.ID())
	}
	n.content[node] = append(n.content[node], agent)
	n.positions[agent.ID()] = node
	return nil
}

// MoveAgent relocates a placed agent to another node.
func (n *Network) MoveAgent(agent Agent, node int) error {
	if agent == nil {
		return fmt.Errorf("agent is required")
	}
	current, ok := n.positions[agent.ID()]
	if !ok {
		return fmt.Errorf("move agent %d: %w", agent.ID(), ErrNotPlaced)
	}
	if _, ok := n.adj[node]; !ok {
		return fmt.Errorf("node %d does not exist", node)
	}
	n.removeFromNode(agent, current)
	n.content[node] = append(n.content[node], agent)
	n.positions[agent.ID()] = node
	return nil
}

// RemoveAgent takes an agent off the network.
func (n *Network) RemoveAgent(agent Agent) error {
	if agent == nil {
		return fmt.Errorf("agent is required")
	}
	node, ok := n.positions[agent.ID()]
	if !ok {
		return fmt.Errorf("remove agent %d: %w", agent.ID(), ErrNotPlaced)
	}
	n.removeFromNode(agent, node)
	delete(n.positions, agent.ID())
	return nil
}

func (n *Network) removeFromNode(agent Agent, node int) {
	contents := n.content[node]
	for i, got := range contents {
		if got.ID() == agent.ID() {
			n.content[node] = append(contents[:i], contents[i+1:]...)
			break
		}
	}
	if len(n.content[node]) == 0 {
		delete(n.content, node)
	}
}

// PositionOf returns the agent's node, if placed.
func (n *Network) PositionOf(agent Agent) (int, bool) {
	if agent == nil {
		return 0, false
	}
	node, ok := n.positions[agent.ID()]
	return node, ok
}

// NodeContents returns the agents on a node.
func (n *Network) NodeContents(node int) ([]Agent, error) {
	if _, ok := n.adj[node]; !ok {
		return nil, fmt.Errorf("node %d does not exist", node)
	}
	contents := n.content[node]
	out := make([]Agent, len(contents))
	copy(out, contents)
	return out, nil
}

// IsNodeEmpty reports whether a node holds no agents.
func (n *Network) IsNodeEmpty(node int) bool {
	return len(n.content[node]) == 0
}

// AllContents returns every placed agent, visiting nodes in insertion order.
func (n *Network) AllContents() []Agent {
	var out []Agent
	for _, node := range n.nodeOrder {
		out = append(out, n.content[node]...)
	}
	return out
}

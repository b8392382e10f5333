package sim

import (
	"fmt"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Identity types
type (
	LinkID     string
	NodeID     string
	PersonID   string
	VehicleID  string
	FacilityID string
)

// Node is a network vertex. InLinks and OutLinks keep insertion order so that
// any choice made over them is deterministic.
type Node struct {
	ID       NodeID
	Coord    orb.Point
	InLinks  []*Link
	OutLinks []*Link
}

// Link is a directed road segment.
type Link struct {
	ID        LinkID
	From      *Node
	To        *Node
	Length    float64 // meters
	FreeSpeed float64 // meters per second
	Capacity  float64 // vehicles per hour
	Lanes     float64
}

// FreeSpeedTravelTime returns the time needed to traverse the link at free speed.
func (l *Link) FreeSpeedTravelTime() float64 {
	return l.Length / l.FreeSpeed
}

// Coord returns the midpoint of the link.
func (l *Link) Coord() orb.Point {
	return orb.Point{
		(l.From.Coord[0] + l.To.Coord[0]) / 2,
		(l.From.Coord[1] + l.To.Coord[1]) / 2,
	}
}

// Distance returns the euclidean distance between two coordinates.
func Distance(a, b orb.Point) float64 {
	return planar.Distance(a, b)
}

// Network is the road graph.
type Network struct {
	nodes     map[NodeID]*Node
	links     map[LinkID]*Link
	nodeOrder []NodeID
	linkOrder []LinkID
}

// NewNetwork creates an empty network.
func NewNetwork() *Network {
	return &Network{
		nodes: make(map[NodeID]*Node),
		links: make(map[LinkID]*Link),
	}
}

// AddNode adds a node to the network.
func (n *Network) AddNode(id NodeID, coord orb.Point) (*Node, error) {
	if id == "" {
		return nil, fmt.Errorf("node id must not be empty")
	}
	if _, exists := n.nodes[id]; exists {
		return nil, fmt.Errorf("node %s already exists", id)
	}
	node := &Node{ID: id, Coord: coord}
	n.nodes[id] = node
	n.nodeOrder = append(n.nodeOrder, id)
	return node, nil
}

// AddLink adds a directed link between two existing nodes.
func (n *Network) AddLink(id LinkID, from, to NodeID, length, freeSpeed, capacity, lanes float64) (*Link, error) {
	if id == "" {
		return nil, fmt.Errorf("link id must not be empty")
	}
	if _, exists := n.links[id]; exists {
		return nil, fmt.Errorf("link %s already exists", id)
	}
	fromNode, ok := n.nodes[from]
	if !ok {
		return nil, fmt.Errorf("link %s: unknown from-node %s", id, from)
	}
	toNode, ok := n.nodes[to]
	if !ok {
		return nil, fmt.Errorf("link %s: unknown to-node %s", id, to)
	}
	if length <= 0 {
		return nil, fmt.Errorf("link %s: length must be > 0, got %v", id, length)
	}
	if freeSpeed <= 0 {
		return nil, fmt.Errorf("link %s: free speed must be > 0, got %v", id, freeSpeed)
	}
	if capacity <= 0 {
		return nil, fmt.Errorf("link %s: capacity must be > 0, got %v", id, capacity)
	}
	if lanes <= 0 {
		lanes = 1
	}
	link := &Link{
		ID:        id,
		From:      fromNode,
		To:        toNode,
		Length:    length,
		FreeSpeed: freeSpeed,
		Capacity:  capacity,
		Lanes:     lanes,
	}
	fromNode.OutLinks = append(fromNode.OutLinks, link)
	toNode.InLinks = append(toNode.InLinks, link)
	n.links[id] = link
	n.linkOrder = append(n.linkOrder, id)
	return link, nil
}

// Link returns the link with the given id, or nil.
func (n *Network) Link(id LinkID) *Link {
	return n.links[id]
}

// Node returns the node with the given id, or nil.
func (n *Network) Node(id NodeID) *Node {
	return n.nodes[id]
}

// LinkIDs returns all link ids in insertion order.
func (n *Network) LinkIDs() []LinkID {
	out := make([]LinkID, len(n.linkOrder))
	copy(out, n.linkOrder)
	return out
}

// NodeIDs returns all node ids in insertion order.
func (n *Network) NodeIDs() []NodeID {
	out := make([]NodeID, len(n.nodeOrder))
	copy(out, n.nodeOrder)
	return out
}

// NumLinks returns the number of links.
func (n *Network) NumLinks() int { return len(n.links) }

// NumNodes returns the number of nodes.
func (n *Network) NumNodes() int { return len(n.nodes) }

// SortedLinkIDs returns the given ids sorted lexicographically.
func SortedLinkIDs(ids map[LinkID]int) []LinkID {
	out := make([]LinkID, 0, len(ids))
	for id := range ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

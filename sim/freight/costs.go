package freight

import (
	"math"
	"sync"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/mobsim/mobsim/sim"
)

// Costs are travel times and costs between links. Travel starts at the end of
// from and ends at the end of to.
type Costs interface {
	TransportTime(from, to sim.LinkID, departure float64) float64
	TransportCost(from, to sim.LinkID, departure float64) float64
}

// NetworkCosts computes free-flow least-cost paths on a gonum graph of the
// network. Shortest-path trees are computed once per source node and cached.
// Safe for concurrent use.
type NetworkCosts struct {
	net           *sim.Network
	costPerSecond float64
	costPerMeter  float64

	g      *simple.WeightedDirectedGraph
	nodeID map[sim.NodeID]int64
	// edges holds the cheapest link between two nodes.
	edges map[[2]int64]*sim.Link

	mu    sync.Mutex
	trees map[int64]path.Shortest
}

// NewNetworkCosts builds the cost graph of net. Negative cost rates are
// clamped to zero since shortest paths need non-negative link costs.
func NewNetworkCosts(net *sim.Network, costPerSecond, costPerMeter float64) *NetworkCosts {
	if costPerSecond < 0 || costPerMeter < 0 {
		logrus.Warnf("Freight: negative cost rates (%v/s, %v/m) clamped to 0", costPerSecond, costPerMeter)
		costPerSecond = math.Max(0, costPerSecond)
		costPerMeter = math.Max(0, costPerMeter)
	}
	c := &NetworkCosts{
		net:           net,
		costPerSecond: costPerSecond,
		costPerMeter:  costPerMeter,
		g:             simple.NewWeightedDirectedGraph(0, math.Inf(1)),
		nodeID:        make(map[sim.NodeID]int64, net.NumNodes()),
		edges:         make(map[[2]int64]*sim.Link),
		trees:         make(map[int64]path.Shortest),
	}
	for i, id := range net.NodeIDs() {
		c.nodeID[id] = int64(i)
		c.g.AddNode(simple.Node(int64(i)))
	}
	for _, id := range net.LinkIDs() {
		l := net.Link(id)
		from, to := c.nodeID[l.From.ID], c.nodeID[l.To.ID]
		if from == to {
			continue
		}
		key := [2]int64{from, to}
		if cur, ok := c.edges[key]; ok && c.linkCost(cur) <= c.linkCost(l) {
			continue
		}
		c.edges[key] = l
		c.g.SetWeightedEdge(c.g.NewWeightedEdge(simple.Node(from), simple.Node(to), c.linkCost(l)))
	}
	return c
}

func (c *NetworkCosts) linkCost(l *sim.Link) float64 {
	return l.FreeSpeedTravelTime()*c.costPerSecond + l.Length*c.costPerMeter
}

func (c *NetworkCosts) tree(source int64) path.Shortest {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.trees[source]
	if !ok {
		t = path.DijkstraFrom(simple.Node(source), c.g)
		c.trees[source] = t
	}
	return t
}

// nodes returns the node path between the links, or nil if to is unreachable.
func (c *NetworkCosts) nodes(from, to sim.LinkID) ([]graph.Node, *sim.Link, bool) {
	fromLink, toLink := c.net.Link(from), c.net.Link(to)
	if fromLink == nil || toLink == nil {
		return nil, nil, false
	}
	if from == to {
		return nil, toLink, true
	}
	src, dst := c.nodeID[fromLink.To.ID], c.nodeID[toLink.From.ID]
	if src == dst {
		return nil, toLink, true
	}
	nodes, weight := c.tree(src).To(dst)
	if len(nodes) == 0 || math.IsInf(weight, 1) {
		return nil, toLink, false
	}
	return nodes, toLink, true
}

// TransportTime implements Costs. Unreachable links take +Inf.
func (c *NetworkCosts) TransportTime(from, to sim.LinkID, _ float64) float64 {
	nodes, toLink, ok := c.nodes(from, to)
	if !ok {
		return math.Inf(1)
	}
	if from == to {
		return 0
	}
	total := toLink.FreeSpeedTravelTime()
	for i := 1; i < len(nodes); i++ {
		total += c.edges[[2]int64{nodes[i-1].ID(), nodes[i].ID()}].FreeSpeedTravelTime()
	}
	return total
}

// TransportCost implements Costs. Unreachable links cost +Inf.
func (c *NetworkCosts) TransportCost(from, to sim.LinkID, _ float64) float64 {
	nodes, toLink, ok := c.nodes(from, to)
	if !ok {
		return math.Inf(1)
	}
	if from == to {
		return 0
	}
	total := c.linkCost(toLink)
	for i := 1; i < len(nodes); i++ {
		total += c.linkCost(c.edges[[2]int64{nodes[i-1].ID(), nodes[i].ID()}])
	}
	return total
}

package router

import (
	"container/heap"
	"errors"
	"fmt"

	"github.com/mobsim/mobsim/sim"
)

// ErrNoPath is returned when the destination cannot be reached.
var ErrNoPath = errors.New("no path")

// Path is a sequence of links between two nodes.
type Path struct {
	Links      []*sim.Link
	TravelTime float64
	Cost       float64
}

// LinkIDs returns the ids of the path's links.
func (p *Path) LinkIDs() []sim.LinkID {
	out := make([]sim.LinkID, len(p.Links))
	for i, l := range p.Links {
		out[i] = l.ID
	}
	return out
}

// Distance returns the summed length of the path's links.
func (p *Path) Distance() float64 {
	d := 0.0
	for _, l := range p.Links {
		d += l.Length
	}
	return d
}

// Dijkstra finds time-dependent least-cost paths. Links whose travel time or
// cost is impassable are skipped. Each call allocates its own search state, so
// a Dijkstra is safe for concurrent use if its travel time and disutility are.
type Dijkstra struct {
	net *sim.Network
	tt  TravelTime
	td  TravelDisutility
	// node index for deterministic tie-breaking
	order map[sim.NodeID]int
}

// NewDijkstra creates a least-cost path calculator.
func NewDijkstra(net *sim.Network, tt TravelTime, td TravelDisutility) *Dijkstra {
	order := make(map[sim.NodeID]int, net.NumNodes())
	for i, id := range net.NodeIDs() {
		order[id] = i
	}
	return &Dijkstra{net: net, tt: tt, td: td, order: order}
}

type nodeLabel struct {
	cost   float64
	time   float64
	via    *sim.Link
	closed bool
}

type pqItem struct {
	node *sim.Node
	cost float64
	idx  int
}

type pq []pqItem

func (q pq) Len() int { return len(q) }
func (q pq) Less(i, j int) bool {
	if q[i].cost != q[j].cost {
		return q[i].cost < q[j].cost
	}
	return q[i].idx < q[j].idx
}
func (q pq) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *pq) Push(x interface{}) { *q = append(*q, x.(pqItem)) }
func (q *pq) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// CalcLeastCostPath returns the least-cost path from one node to another,
// departing at time.
func (d *Dijkstra) CalcLeastCostPath(from, to *sim.Node, time float64, person *sim.Person) (*Path, error) {
	labels := map[sim.NodeID]*nodeLabel{from.ID: {cost: 0, time: time}}
	queue := &pq{{node: from, cost: 0, idx: d.order[from.ID]}}

	for queue.Len() > 0 {
		item := heap.Pop(queue).(pqItem)
		label := labels[item.node.ID]
		if label.closed {
			continue
		}
		label.closed = true
		if item.node == to {
			break
		}
		for _, l := range item.node.OutLinks {
			tt := d.tt.LinkTravelTime(l, label.time, person)
			if Impassable(tt) {
				continue
			}
			c := d.td.LinkTravelDisutility(l, label.time, person)
			if Impassable(c) {
				continue
			}
			next := labels[l.To.ID]
			cost := label.cost + c
			if next == nil {
				next = &nodeLabel{cost: cost, time: label.time + tt, via: l}
				labels[l.To.ID] = next
			} else if next.closed || cost >= next.cost {
				continue
			} else {
				next.cost, next.time, next.via = cost, label.time+tt, l
			}
			heap.Push(queue, pqItem{node: l.To, cost: cost, idx: d.order[l.To.ID]})
		}
	}

	end, ok := labels[to.ID]
	if !ok || !end.closed {
		return nil, fmt.Errorf("from node %s to node %s: %w", from.ID, to.ID, ErrNoPath)
	}
	var links []*sim.Link
	for n := to; n != from; {
		l := labels[n.ID].via
		links = append(links, l)
		n = l.From
	}
	for i, j := 0, len(links)-1; i < j; i, j = i+1, j-1 {
		links[i], links[j] = links[j], links[i]
	}
	return &Path{Links: links, TravelTime: end.time - time, Cost: end.cost}, nil
}

// LinkPath returns the links to drive after leaving from until and including
// to. It is empty when from and to are the same link.
func (d *Dijkstra) LinkPath(from, to *sim.Link, time float64, person *sim.Person) ([]sim.LinkID, *Path, error) {
	if from == to {
		return nil, &Path{}, nil
	}
	path, err := d.CalcLeastCostPath(from.To, to.From, time, person)
	if err != nil {
		return nil, nil, err
	}
	return append(path.LinkIDs(), to.ID), path, nil
}

package qsim

import "container/heap"

type timedAgent struct {
	time  float64
	seq   uint64
	agent *Agent
}

// agentHeap orders agents by time, then by insertion sequence.
type agentHeap struct {
	items []timedAgent
	seq   uint64
}

func newAgentHeap() *agentHeap {
	h := &agentHeap{items: make([]timedAgent, 0)}
	heap.Init(h)
	return h
}

// Len implements heap.Interface
func (h *agentHeap) Len() int { return len(h.items) }

// Less implements heap.Interface with deterministic ordering
func (h *agentHeap) Less(i, j int) bool {
	if h.items[i].time != h.items[j].time {
		return h.items[i].time < h.items[j].time
	}
	return h.items[i].seq < h.items[j].seq
}

// Swap implements heap.Interface
func (h *agentHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

// Push implements heap.Interface
func (h *agentHeap) Push(x interface{}) { h.items = append(h.items, x.(timedAgent)) }

// Pop implements heap.Interface
func (h *agentHeap) Pop() interface{} {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[0 : n-1]
	return item
}

// schedule adds an agent due at time t.
func (h *agentHeap) schedule(t float64, a *Agent) {
	h.seq++
	heap.Push(h, timedAgent{time: t, seq: h.seq, agent: a})
}

// popDue removes and returns the next agent due at or before now, or nil.
func (h *agentHeap) popDue(now float64) *Agent {
	if h.Len() == 0 || h.items[0].time > now {
		return nil
	}
	return heap.Pop(h).(timedAgent).agent
}

// drain removes and returns all agents in order.
func (h *agentHeap) drain() []*Agent {
	out := make([]*Agent, 0, h.Len())
	for h.Len() > 0 {
		out = append(out, heap.Pop(h).(timedAgent).agent)
	}
	return out
}

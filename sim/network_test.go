package sim

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newLineNetwork builds n1 -> n2 -> n3 with links l1, l2 and back link l2r.
func newLineNetwork(t *testing.T) *Network {
	t.Helper()
	net := NewNetwork()
	_, err := net.AddNode("n1", orb.Point{0, 0})
	require.NoError(t, err)
	_, err = net.AddNode("n2", orb.Point{100, 0})
	require.NoError(t, err)
	_, err = net.AddNode("n3", orb.Point{200, 0})
	require.NoError(t, err)
	_, err = net.AddLink("l1", "n1", "n2", 100, 10, 3600, 1)
	require.NoError(t, err)
	_, err = net.AddLink("l2", "n2", "n3", 100, 10, 3600, 1)
	require.NoError(t, err)
	_, err = net.AddLink("l2r", "n3", "n2", 100, 10, 3600, 0)
	require.NoError(t, err)
	return net
}

func TestNetwork_AddLink_WiresNodes(t *testing.T) {
	net := newLineNetwork(t)

	n2 := net.Node("n2")
	require.NotNil(t, n2)
	assert.Len(t, n2.InLinks, 2)
	assert.Len(t, n2.OutLinks, 1)
	assert.Equal(t, []LinkID{"l1", "l2", "l2r"}, net.LinkIDs())
	assert.Equal(t, []NodeID{"n1", "n2", "n3"}, net.NodeIDs())
	assert.Equal(t, 1.0, net.Link("l2r").Lanes, "non-positive lanes default to 1")
}

func TestNetwork_AddLink_Errors(t *testing.T) {
	net := newLineNetwork(t)
	tests := []struct {
		name string
		id   LinkID
		from NodeID
		len  float64
		spd  float64
		cap  float64
	}{
		{"duplicate", "l1", "n1", 1, 1, 1},
		{"empty id", "", "n1", 1, 1, 1},
		{"unknown node", "x", "nope", 1, 1, 1},
		{"zero length", "x", "n1", 0, 1, 1},
		{"zero speed", "x", "n1", 1, 0, 1},
		{"zero capacity", "x", "n1", 1, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := net.AddLink(tt.id, tt.from, "n2", tt.len, tt.spd, tt.cap, 1)
			assert.Error(t, err)
		})
	}
}

func TestNetwork_AddNode_Duplicate(t *testing.T) {
	net := newLineNetwork(t)
	_, err := net.AddNode("n1", orb.Point{})
	assert.Error(t, err)
}

func TestLink_CoordAndTravelTime(t *testing.T) {
	net := newLineNetwork(t)
	l := net.Link("l2")
	assert.Equal(t, orb.Point{150, 0}, l.Coord())
	assert.Equal(t, 10.0, l.FreeSpeedTravelTime())
	assert.InDelta(t, 100.0, Distance(net.Node("n1").Coord, net.Node("n2").Coord), 1e-9)
}

func TestSortedLinkIDs(t *testing.T) {
	got := SortedLinkIDs(map[LinkID]int{"b": 1, "a": 2, "c": 0})
	assert.Equal(t, []LinkID{"a", "b", "c"}, got)
}

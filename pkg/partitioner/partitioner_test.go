package partitioner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ringkeep/ringnode/pkg/model"
)

func ring3() Ring {
	return NewRing([]model.Node{
		{IP: "10.0.0.2", Position: 1, Range: model.TokenRange{Start: 100, End: 200}},
		{IP: "10.0.0.1", Position: 0, Range: model.TokenRange{Start: 0, End: 100}},
		{IP: "10.0.0.3", Position: 2, Range: model.TokenRange{Start: 200, End: 0}},
	})
}

func TestHashKeyDeterministic(t *testing.T) {
	a := HashKey("user-42")
	b := HashKey("user-42")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, HashKey("user-43"))
}

func TestNewRingSortsByPosition(t *testing.T) {
	r := ring3()
	nodes := r.Nodes()
	require.Len(t, nodes, 3)
	assert.Equal(t, "10.0.0.1", nodes[0].IP)
	assert.Equal(t, "10.0.0.2", nodes[1].IP)
	assert.Equal(t, "10.0.0.3", nodes[2].IP)
}

func TestOwner(t *testing.T) {
	r := ring3()

	owner, err := r.Owner(50)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", owner.IP)

	owner, err = r.Owner(150)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.2", owner.IP)

	// wraps around the top of the ring
	owner, err = r.Owner(250)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.3", owner.IP)
}

func TestOwnerEmptyRing(t *testing.T) {
	_, err := Ring{}.Owner(1)
	assert.Error(t, err)
}

func TestReplicaSetWalksClockwise(t *testing.T) {
	r := ring3()

	set, err := r.ReplicaSet(50, 2)
	require.NoError(t, err)
	require.Len(t, set, 2)
	assert.Equal(t, "10.0.0.1", set[0].IP)
	assert.Equal(t, "10.0.0.2", set[1].IP)
}

func TestReplicaSetWrapsAroundRing(t *testing.T) {
	r := ring3()

	set, err := r.ReplicaSet(250, 3)
	require.NoError(t, err)
	require.Len(t, set, 3)
	assert.Equal(t, "10.0.0.3", set[0].IP)
	assert.Equal(t, "10.0.0.1", set[1].IP)
	assert.Equal(t, "10.0.0.2", set[2].IP)
}

func TestReplicaSetClampsToRingSize(t *testing.T) {
	r := ring3()

	set, err := r.ReplicaSet(50, 10)
	require.NoError(t, err)
	assert.Len(t, set, 3)
}

func TestReplicaSetEmptyRing(t *testing.T) {
	_, err := Ring{}.ReplicaSet(1, 3)
	assert.Error(t, err)
}

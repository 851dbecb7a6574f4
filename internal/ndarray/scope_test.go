package ndarray

import (
	"errors"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zachgk/djl/internal/tensor"
)

func newRoot(t *testing.T, engine string) *mockManager {
	t.Helper()
	root, err := newMockSystem(engine).newChild("root", tensor.CPU())
	require.NoError(t, err)
	return root
}

func TestCloseIsIdempotent(t *testing.T) {
	root := newRoot(t, "idem")
	_, err := root.newChild("child", tensor.CPU())
	require.NoError(t, err)

	require.NoError(t, root.Close())
	events := root.events.list()
	require.NoError(t, root.Close())

	assert.False(t, root.IsOpen())
	assert.Equal(t, events, root.events.list())
}

func TestCloseIsPostOrder(t *testing.T) {
	root := newRoot(t, "order")
	mid, err := root.newChild("mid", tensor.CPU())
	require.NoError(t, err)
	leaf, err := mid.newChild("leaf", tensor.CPU())
	require.NoError(t, err)

	a, err := Zeros(leaf, tensor.Shape{2}, tensor.Float32)
	require.NoError(t, err)
	a.SetName("a")

	require.NoError(t, root.Close())
	assert.Equal(t, []string{"free a", "release leaf", "release mid", "release root"}, root.events.list())
	assert.False(t, leaf.IsOpen())
	assert.False(t, mid.IsOpen())
}

func TestCloseContinuesPastFailures(t *testing.T) {
	root := newRoot(t, "besteffort")
	bad := &failingResource{id: "bad"}
	require.NoError(t, root.Attach(bad.id, bad))

	a, err := Zeros(root, tensor.Shape{1}, tensor.Int32)
	require.NoError(t, err)
	sub, err := root.NewSubManager(tensor.CPU())
	require.NoError(t, err)

	err = root.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "native free failed")

	assert.True(t, bad.closed)
	assert.False(t, a.IsOpen())
	assert.False(t, sub.IsOpen())
	assert.Contains(t, root.events.list(), "release root")
}

func TestSystemManagerIsInert(t *testing.T) {
	sys := newMockSystem("inert")
	a, err := sys.Create([]float32{1}, tensor.Shape{1}, tensor.Float32)
	require.NoError(t, err)

	assert.NoError(t, sys.Close())
	assert.True(t, sys.IsOpen())
	assert.Nil(t, sys.Parent())
	assert.Equal(t, 0, sys.NumChildren())

	// Arrays of the system manager are not tracked, so they stay usable.
	got, err := ToSlice[float32](a)
	require.NoError(t, err)
	assert.Equal(t, []float32{1}, got)
}

func TestAccessAfterCloseFails(t *testing.T) {
	root := newRoot(t, "access")
	sub, err := root.NewSubManager(tensor.CPU())
	require.NoError(t, err)
	a, err := FromSlice(sub, []float32{1, 2, 3}, tensor.Shape{3})
	require.NoError(t, err)

	require.NoError(t, root.Close())

	_, err = a.ToBytes()
	assert.True(t, errors.Is(err, ErrClosed))
	assert.True(t, errors.Is(a.Set(make([]byte, 12)), ErrClosed))

	_, err = Zeros(sub, tensor.Shape{1}, tensor.Float32)
	assert.True(t, errors.Is(err, ErrClosed))
	_, err = sub.NewSubManager(tensor.CPU())
	assert.True(t, errors.Is(err, ErrClosed))
}

func TestScenarioSubManagerRelease(t *testing.T) {
	r := newRoot(t, "scenario")
	a, err := Zeros(r, tensor.Shape{1, 3, 224, 224}, tensor.Float32)
	require.NoError(t, err)
	s, err := r.NewSubManager(tensor.CPU())
	require.NoError(t, err)
	b, err := Zeros(s, tensor.Shape{1, 1000}, tensor.Float32)
	require.NoError(t, err)

	require.NoError(t, s.Close())
	assert.False(t, b.IsOpen())
	_, err = b.ToBytes()
	assert.ErrorIs(t, err, ErrClosed)

	assert.True(t, a.IsOpen())
	data, err := a.ToBytes()
	require.NoError(t, err)
	assert.Len(t, data, 1*3*224*224*4)

	require.NoError(t, r.Close())
	assert.False(t, a.IsOpen())
	_, err = a.ToBytes()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestClosedSubManagerLeavesParent(t *testing.T) {
	root := newRoot(t, "detach")
	sub, err := root.NewSubManager(tensor.GPU(1))
	require.NoError(t, err)
	assert.Equal(t, 1, root.NumChildren())
	assert.Equal(t, tensor.GPU(1), sub.Device())
	assert.Equal(t, Manager(root), sub.Parent())

	require.NoError(t, sub.Close())
	assert.Equal(t, 0, root.NumChildren())
	assert.True(t, root.IsOpen())
	require.NoError(t, root.Close())
}

func TestReattachMovesOwnership(t *testing.T) {
	root := newRoot(t, "reparent")
	first, err := root.NewSubManager(tensor.CPU())
	require.NoError(t, err)
	second, err := root.NewSubManager(tensor.CPU())
	require.NoError(t, err)

	a, err := Ones(first, tensor.Shape{2, 2}, tensor.Float64)
	require.NoError(t, err)
	require.NoError(t, a.Attach(second))
	assert.Equal(t, second, a.Manager())

	require.NoError(t, first.Close())
	assert.True(t, a.IsOpen())

	require.NoError(t, second.Close())
	assert.False(t, a.IsOpen())
	require.NoError(t, root.Close())
}

func TestWeakParentDoesNotOwn(t *testing.T) {
	sys := newMockSystem("weak")
	root, err := sys.newChild("root", tensor.CPU())
	require.NoError(t, err)
	child, err := root.newChild("child", tensor.CPU())
	require.NoError(t, err)

	assert.Equal(t, Manager(root), child.Parent())
	require.NoError(t, root.Close())
	runtime.KeepAlive(root)
}

func TestLiveManagerGauge(t *testing.T) {
	before := LiveManagers("gauge")
	root := newRoot(t, "gauge")
	_, err := root.NewSubManager(tensor.CPU())
	require.NoError(t, err)
	assert.Equal(t, before+2, LiveManagers("gauge"))

	_, err = Zeros(root, tensor.Shape{4}, tensor.Uint8)
	require.NoError(t, err)
	assert.Equal(t, 1, LiveArrays("gauge"))

	require.NoError(t, root.Close())
	assert.Equal(t, before, LiveManagers("gauge"))
	assert.Equal(t, 0, LiveArrays("gauge"))
}

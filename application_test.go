package blackhole

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGridScene(t *testing.T) {
	b := NewBatcher()
	require.NoError(t, GridScene{N: 10, Radius: 0.05, Resolution: 16}.Populate(b))
	require.Equal(t, 100, b.Len())

	first, ok := b.Record("10 0 0")
	require.True(t, ok)
	assert.Equal(t, Vec2{-0.5, -0.5}, first.Vertices[0].Pos)
	assert.Equal(t, Vec3{0, 0, 1}, first.Vertices[0].Color)

	last, ok := b.Record("10 9 9")
	require.True(t, ok)
	assert.InDelta(t, 0.175, last.Vertices[0].Pos[0], 1e-6)
	assert.InDelta(t, 0.175, last.Vertices[0].Pos[1], 1e-6)

	vertexSize, indexSize := b.Layout()
	assert.Equal(t, uint64(100*17*VertexStride), vertexSize)
	assert.Equal(t, uint64(100*48*IndexStride), indexSize)
}

func TestBodiesScene(t *testing.T) {
	s := BodiesScene{
		Resolution: 8,
		Bodies: []BodyConfig{
			{Kind: "square", Size: 0.5, Color: [3]float32{1, 0, 0}},
			{Kind: "sphere", X: 0.2, Y: 0.2, Size: 0.05},
			{Kind: "sphere", Size: 0.1, Resolution: 4},
		},
	}
	b := NewBatcher()
	require.NoError(t, s.Populate(b))
	assert.Equal(t, []string{"square 0", "sphere 1", "sphere 2"}, keys(b.Records()))

	r, _ := b.Record("sphere 1")
	assert.Len(t, r.Vertices, 9)
	r, _ = b.Record("sphere 2")
	assert.Len(t, r.Vertices, 5)
	r, _ = b.Record("square 0")
	assert.Equal(t, Vec3{1, 0, 0}, r.Vertices[0].Color)
}

func TestBodiesSceneUnknownKind(t *testing.T) {
	err := BodiesScene{Bodies: []BodyConfig{{Kind: "triangle", Size: 1}}}.Populate(NewBatcher())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSetup))
}

func TestSceneFor(t *testing.T) {
	cfg := DefaultConfig()
	grid, ok := SceneFor(cfg).(GridScene)
	require.True(t, ok)
	assert.Equal(t, 10, grid.N)
	assert.Equal(t, cfg.SphereResolution, grid.Resolution)

	cfg.Bodies = []BodyConfig{{Kind: "square", Size: 1}}
	_, ok = SceneFor(cfg).(BodiesScene)
	assert.True(t, ok)
}

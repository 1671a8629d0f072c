package blackhole

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
)

// memAllocator backs every buffer with a Go byte slice.
type memAllocator struct {
	memory    map[*Buffer][]byte
	usage     map[*Buffer]vk.BufferUsageFlagBits
	live      int
	mapped    int
	copies    int
	failAfter int // fail NewBuffer once this many buffers exist, 0 disables
	failCopy  bool
}

func newMemAllocator() *memAllocator {
	return &memAllocator{
		memory: make(map[*Buffer][]byte),
		usage:  make(map[*Buffer]vk.BufferUsageFlagBits),
	}
}

func (m *memAllocator) NewBuffer(size uint64, usage vk.BufferUsageFlagBits,
	props vk.MemoryPropertyFlagBits) (*Buffer, error) {

	if m.failAfter > 0 && len(m.memory) >= m.failAfter {
		return nil, errors.Wrap(ErrNoMemoryType, "fake")
	}
	b := &Buffer{Size: size}
	m.memory[b] = make([]byte, size)
	m.usage[b] = usage
	m.live++
	b.destroy = func() { m.live-- }
	return b, nil
}

func (m *memAllocator) Map(b *Buffer) ([]byte, error) {
	m.mapped++
	return m.memory[b], nil
}

func (m *memAllocator) Unmap(b *Buffer) {
	m.mapped--
}

func (m *memAllocator) CopyAndWait(copies []BufferCopy) error {
	if m.failCopy {
		return errors.New("queue lost")
	}
	for _, c := range copies {
		copy(m.memory[c.Dst][:c.Size], m.memory[c.Src][:c.Size])
		m.copies++
	}
	return nil
}

func TestBatcherOffsetsArePacked(t *testing.T) {
	b := NewBatcher()
	require.NoError(t, b.RegisterBody("a", NewSquare(0, 0, 0.5, Vec3{1, 0, 0})))
	require.NoError(t, b.RegisterBody("b", NewSphere(0, 0, 0.1, Vec3{0, 1, 0}, 7)))
	require.NoError(t, b.RegisterBody("c", NewSquare(0.3, 0.3, 0.1, Vec3{0, 0, 1})))

	var vertexTotal, indexTotal uint64
	for _, r := range b.Records() {
		assert.Equal(t, vertexTotal, r.VertexOffset, r.Key)
		assert.Equal(t, indexTotal, r.IndexOffset, r.Key)
		vertexTotal += r.VertexBytes()
		indexTotal += r.IndexBytes()
	}
	vertexSize, indexSize := b.Layout()
	assert.Equal(t, vertexTotal, vertexSize)
	assert.Equal(t, indexTotal, indexSize)
	assert.Equal(t, []string{"a", "b", "c"}, keys(b.Records()))
}

func TestBatcherRejectsDuplicateKey(t *testing.T) {
	b := NewBatcher()
	require.NoError(t, b.RegisterBody("sq", NewSquare(0, 0, 1, Vec3{})))
	err := b.RegisterBody("sq", NewSquare(1, 1, 1, Vec3{}))
	require.Error(t, err)
	assert.Equal(t, 1, b.Len())

	vertexSize, _ := b.Layout()
	assert.Equal(t, uint64(4*VertexStride), vertexSize)
}

func TestBatcherRejectsMalformedGeometry(t *testing.T) {
	tri := []Vertex{{}, {}, {}}
	cases := []struct {
		name     string
		vertices []Vertex
		indices  []uint32
	}{
		{"no indices", tri, nil},
		{"no vertices", nil, []uint32{0, 1, 2}},
		{"empty", nil, nil},
		{"index past vertices", tri, []uint32{0, 1, 99}},
		{"index one past the end", tri, []uint32{0, 1, 3}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			b := NewBatcher()
			require.Error(t, b.Register("mesh", c.vertices, c.indices))
			assert.Zero(t, b.Len())
			vertexSize, indexSize := b.Layout()
			assert.Zero(t, vertexSize)
			assert.Zero(t, indexSize)

			buffers, err := b.Upload(newMemAllocator())
			require.NoError(t, err)
			assert.True(t, buffers.Empty())
			assert.Zero(t, buffers.VertexSize)
		})
	}
}

func TestBatcherSealedAfterUpload(t *testing.T) {
	b := NewBatcher()
	require.NoError(t, b.RegisterBody("a", NewSquare(0, 0, 0.5, Vec3{1, 0, 0})))

	alloc := newMemAllocator()
	buffers, err := b.Upload(alloc)
	require.NoError(t, err)

	assert.Error(t, b.RegisterBody("b", NewSquare(0.5, 0.5, 0.1, Vec3{0, 1, 0})))
	assert.Equal(t, 1, b.Len())
	vertexSize, indexSize := b.Layout()
	assert.Equal(t, buffers.VertexSize, vertexSize)
	assert.Equal(t, buffers.IndexSize, indexSize)

	_, err = b.Upload(alloc)
	assert.Error(t, err)
	assert.Equal(t, 2, alloc.live, "second upload allocates nothing")
}

func TestBatcherSquareThenSphere(t *testing.T) {
	const n = 64
	b := NewBatcher()
	require.NoError(t, b.RegisterBody("square", NewSquare(0, 0, 0.5, Vec3{1, 0, 0})))
	require.NoError(t, b.RegisterBody("sphere", NewSphere(0.2, 0.2, 0.05, Vec3{0, 0, 1}, n)))

	alloc := newMemAllocator()
	buffers, err := b.Upload(alloc)
	require.NoError(t, err)

	assert.Equal(t, uint64((4+n+1)*VertexStride), buffers.VertexSize)
	assert.Equal(t, uint64((6+3*n)*IndexStride), buffers.IndexSize)
	assert.Equal(t, buffers.VertexSize, buffers.Vertex.Size)
	assert.Equal(t, buffers.IndexSize, buffers.Index.Size)

	square, ok := b.Record("square")
	require.True(t, ok)
	sphere, ok := b.Record("sphere")
	require.True(t, ok)
	assert.Less(t, square.VertexOffset, sphere.VertexOffset)
	assert.Less(t, square.IndexOffset, sphere.IndexOffset)
	assert.Equal(t, uint32(6), sphere.FirstIndex())
	assert.Equal(t, int32(4), sphere.BaseVertex())
}

func TestBatcherUploadRoundTrip(t *testing.T) {
	b := NewBatcher()
	bodies := []RigidBody{
		NewSphere(-0.5, 0.5, 0.2, Vec3{0.1, 0.2, 0.3}, 12),
		NewSquare(0.25, -0.25, 0.125, Vec3{1, 1, 0}),
		NewSphere(0, 0, 0.05, Vec3{0, 0, 1}, 3),
	}
	for i, body := range bodies {
		require.NoError(t, b.RegisterBody(string(rune('a'+i)), body))
	}

	alloc := newMemAllocator()
	buffers, err := b.Upload(alloc)
	require.NoError(t, err)
	assert.Equal(t, 2, alloc.copies)
	assert.Zero(t, alloc.mapped)
	// Only the two device-local buffers survive the upload.
	assert.Equal(t, 2, alloc.live)
	assert.Equal(t, vk.BufferUsageVertexBufferBit|vk.BufferUsageTransferDstBit, alloc.usage[buffers.Vertex])
	assert.Equal(t, vk.BufferUsageIndexBufferBit|vk.BufferUsageTransferDstBit, alloc.usage[buffers.Index])

	vertexMem := alloc.memory[buffers.Vertex]
	indexMem := alloc.memory[buffers.Index]
	for i, r := range b.Records() {
		want := bodies[i]
		got := vertexMem[r.VertexOffset : r.VertexOffset+r.VertexBytes()]
		assert.Equal(t, vertexBytes(want.Vertices), got, r.Key)
		got = indexMem[r.IndexOffset : r.IndexOffset+r.IndexBytes()]
		assert.Equal(t, indexBytes(want.Indices), got, r.Key)
	}

	buffers.Destroy()
	assert.Zero(t, alloc.live)
}

func TestBatcherUploadEmpty(t *testing.T) {
	alloc := newMemAllocator()
	buffers, err := NewBatcher().Upload(alloc)
	require.NoError(t, err)
	assert.True(t, buffers.Empty())
	assert.Zero(t, alloc.live)
	buffers.Destroy()
}

func TestBatcherUploadFailures(t *testing.T) {
	b := NewBatcher()
	require.NoError(t, b.RegisterBody("sq", NewSquare(0, 0, 1, Vec3{1, 1, 1})))

	alloc := newMemAllocator()
	alloc.failAfter = 3
	_, err := b.Upload(alloc)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransfer))
	assert.True(t, errors.Is(err, ErrNoMemoryType))
	assert.Zero(t, alloc.live)

	b = NewBatcher()
	require.NoError(t, b.RegisterBody("sq", NewSquare(0, 0, 1, Vec3{1, 1, 1})))
	alloc = newMemAllocator()
	alloc.failCopy = true
	_, err = b.Upload(alloc)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransfer))
	assert.Zero(t, alloc.live)
}

func keys(records []*GeometryRecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.Key)
	}
	return out
}

package blackhole

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// GeometryRecord is one registered mesh and its byte offsets inside the
// shared buffers.
type GeometryRecord struct {
	Key      string
	Vertices []Vertex
	Indices  []uint32

	VertexOffset uint64
	IndexOffset  uint64
}

func (r *GeometryRecord) VertexBytes() uint64 { return uint64(len(r.Vertices) * VertexStride) }
func (r *GeometryRecord) IndexBytes() uint64  { return uint64(len(r.Indices) * IndexStride) }

// FirstIndex is the index buffer position of the record's first index.
func (r *GeometryRecord) FirstIndex() uint32 {
	return uint32(r.IndexOffset / uint64(IndexStride))
}

// BaseVertex is added to every index of the record when drawing.
func (r *GeometryRecord) BaseVertex() int32 {
	return int32(r.VertexOffset / uint64(VertexStride))
}

// SharedGeometryBuffers holds all registered geometry in two device-local buffers.
type SharedGeometryBuffers struct {
	Vertex *Buffer
	Index  *Buffer

	VertexSize uint64
	IndexSize  uint64
}

// Empty reports whether there is nothing to bind.
func (s *SharedGeometryBuffers) Empty() bool {
	return s == nil || s.IndexSize == 0
}

func (s *SharedGeometryBuffers) Destroy() {
	if s == nil {
		return
	}
	s.Index.Destroy()
	s.Vertex.Destroy()
}

// Batcher packs geometry into shared buffers in registration order.
type Batcher struct {
	records []*GeometryRecord
	keys    map[string]int

	vertexSize uint64
	indexSize  uint64
	// sealed is set by Upload; records are immutable from then on.
	sealed bool
}

func NewBatcher() *Batcher {
	return &Batcher{keys: make(map[string]int)}
}

// Register appends a mesh under key. Offsets are assigned immediately as the
// running totals of everything registered before. A mesh needs at least one
// vertex and one index, and every index must address one of its own vertices.
func (b *Batcher) Register(key string, vertices []Vertex, indices []uint32) error {
	if b.sealed {
		return errors.Errorf("geometry %q registered after upload", key)
	}
	if _, ok := b.keys[key]; ok {
		return errors.Errorf("geometry %q already registered", key)
	}
	if len(vertices) == 0 || len(indices) == 0 {
		return errors.Errorf("geometry %q has %d vertices and %d indices", key, len(vertices), len(indices))
	}
	for i, idx := range indices {
		if int(idx) >= len(vertices) {
			return errors.Errorf("geometry %q: index %d at %d is past its %d vertices", key, idx, i, len(vertices))
		}
	}
	rec := &GeometryRecord{
		Key:          key,
		Vertices:     vertices,
		Indices:      indices,
		VertexOffset: b.vertexSize,
		IndexOffset:  b.indexSize,
	}
	b.vertexSize += rec.VertexBytes()
	b.indexSize += rec.IndexBytes()
	b.keys[key] = len(b.records)
	b.records = append(b.records, rec)
	return nil
}

func (b *Batcher) RegisterBody(key string, body RigidBody) error {
	return b.Register(key, body.Vertices, body.Indices)
}

// Layout returns the total vertex and index buffer sizes in bytes.
func (b *Batcher) Layout() (vertexSize, indexSize uint64) {
	return b.vertexSize, b.indexSize
}

// Records lists the registered geometry in insertion order.
func (b *Batcher) Records() []*GeometryRecord {
	return b.records
}

func (b *Batcher) Record(key string) (*GeometryRecord, bool) {
	i, ok := b.keys[key]
	if !ok {
		return nil, false
	}
	return b.records[i], true
}

func (b *Batcher) Len() int {
	return len(b.records)
}

// Upload copies every record into fresh device-local buffers through host
// visible staging buffers. It returns only after the copy has completed on the
// GPU; the staging buffers are gone by then. A batcher uploads once: the
// call seals it, also when the upload fails.
func (b *Batcher) Upload(alloc Allocator) (*SharedGeometryBuffers, error) {
	if b.sealed {
		return nil, errors.New("geometry already uploaded")
	}
	b.sealed = true

	out := &SharedGeometryBuffers{VertexSize: b.vertexSize, IndexSize: b.indexSize}
	if len(b.records) == 0 {
		return out, nil
	}

	vertexStaging, err := b.stage(alloc, b.vertexSize, func(dst []byte, r *GeometryRecord) {
		copy(dst[r.VertexOffset:], vertexBytes(r.Vertices))
	})
	if err != nil {
		return nil, errors.Wrap(err, "stage vertices")
	}
	defer vertexStaging.Destroy()

	indexStaging, err := b.stage(alloc, b.indexSize, func(dst []byte, r *GeometryRecord) {
		copy(dst[r.IndexOffset:], indexBytes(r.Indices))
	})
	if err != nil {
		return nil, errors.Wrap(err, "stage indices")
	}
	defer indexStaging.Destroy()

	out.Vertex, err = alloc.NewBuffer(b.vertexSize,
		vk.BufferUsageVertexBufferBit|vk.BufferUsageTransferDstBit,
		vk.MemoryPropertyDeviceLocalBit)
	if err != nil {
		return nil, errors.Wrap(classify(err, ErrTransfer), "create vertex buffer")
	}
	out.Index, err = alloc.NewBuffer(b.indexSize,
		vk.BufferUsageIndexBufferBit|vk.BufferUsageTransferDstBit,
		vk.MemoryPropertyDeviceLocalBit)
	if err != nil {
		out.Vertex.Destroy()
		return nil, errors.Wrap(classify(err, ErrTransfer), "create index buffer")
	}

	err = alloc.CopyAndWait([]BufferCopy{
		{Src: vertexStaging, Dst: out.Vertex, Size: b.vertexSize},
		{Src: indexStaging, Dst: out.Index, Size: b.indexSize},
	})
	if err != nil {
		out.Destroy()
		return nil, errors.Wrap(classify(err, ErrTransfer), "copy geometry")
	}
	return out, nil
}

func (b *Batcher) stage(alloc Allocator, size uint64, fill func([]byte, *GeometryRecord)) (*Buffer, error) {
	staging, err := alloc.NewBuffer(size, vk.BufferUsageTransferSrcBit,
		vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit)
	if err != nil {
		return nil, classify(err, ErrTransfer)
	}
	data, err := alloc.Map(staging)
	if err != nil {
		staging.Destroy()
		return nil, classify(err, ErrTransfer)
	}
	for _, r := range b.records {
		fill(data, r)
	}
	alloc.Unmap(staging)
	return staging, nil
}

package blackhole

import (
	"unsafe"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// Buffer pairs a vk.Buffer with the memory bound to it. Destroy releases both
// and is safe to call more than once.
type Buffer struct {
	Handle vk.Buffer
	Memory vk.DeviceMemory
	Size   uint64

	destroy func()
}

func (b *Buffer) Destroy() {
	if b == nil || b.destroy == nil {
		return
	}
	b.destroy()
	b.destroy = nil
}

// BufferCopy is one whole-buffer copy recorded on the transfer context.
type BufferCopy struct {
	Src  *Buffer
	Dst  *Buffer
	Size uint64
}

// Allocator creates buffers and moves bytes into them.
type Allocator interface {
	// NewBuffer creates a buffer of size bytes backed by memory with props.
	NewBuffer(size uint64, usage vk.BufferUsageFlagBits, props vk.MemoryPropertyFlagBits) (*Buffer, error)
	// Map exposes a host-visible buffer as a byte slice until Unmap.
	Map(b *Buffer) ([]byte, error)
	Unmap(b *Buffer)
	// CopyAndWait records copies, submits them and blocks until the GPU finished.
	CopyAndWait(copies []BufferCopy) error
}

// FindRequiredMemoryType returns the first memory type allowed by typeBits
// whose flags include every bit of required.
func FindRequiredMemoryType(props vk.PhysicalDeviceMemoryProperties, typeBits uint32,
	required vk.MemoryPropertyFlagBits) (uint32, bool) {

	count := props.MemoryTypeCount
	if count > vk.MaxMemoryTypes {
		count = vk.MaxMemoryTypes
	}
	want := vk.MemoryPropertyFlags(required)
	for i := uint32(0); i < count; i++ {
		if typeBits&(1<<i) == 0 {
			continue
		}
		props.MemoryTypes[i].Deref()
		if props.MemoryTypes[i].PropertyFlags&want == want {
			return i, true
		}
	}
	return 0, false
}

// deviceAllocator is the Allocator backed by the logical device. Copies go
// through the dedicated transfer context.
type deviceAllocator struct {
	ctx      *Context
	transfer *TransferContext
}

func newDeviceAllocator(ctx *Context, transfer *TransferContext) *deviceAllocator {
	return &deviceAllocator{ctx: ctx, transfer: transfer}
}

func (a *deviceAllocator) NewBuffer(size uint64, usage vk.BufferUsageFlagBits,
	props vk.MemoryPropertyFlagBits) (*Buffer, error) {

	device := a.ctx.Device()
	var buffer vk.Buffer
	ret := vk.CreateBuffer(device, &vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       vk.BufferUsageFlags(usage),
		SharingMode: vk.SharingModeExclusive,
	}, nil, &buffer)
	if isError(ret) {
		return nil, errors.Wrap(classify(NewError(ret), ErrTransfer), "create buffer")
	}

	var req vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(device, buffer, &req)
	req.Deref()

	typeIndex, ok := FindRequiredMemoryType(a.ctx.MemoryProperties(), req.MemoryTypeBits, props)
	if !ok {
		vk.DestroyBuffer(device, buffer, nil)
		return nil, errors.Wrapf(ErrNoMemoryType, "buffer of %d bytes with properties %#x", size, uint32(props))
	}

	var memory vk.DeviceMemory
	ret = vk.AllocateMemory(device, &vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  req.Size,
		MemoryTypeIndex: typeIndex,
	}, nil, &memory)
	if isError(ret) {
		vk.DestroyBuffer(device, buffer, nil)
		return nil, errors.Wrap(classify(NewError(ret), ErrTransfer), "allocate buffer memory")
	}

	ret = vk.BindBufferMemory(device, buffer, memory, 0)
	if isError(ret) {
		vk.FreeMemory(device, memory, nil)
		vk.DestroyBuffer(device, buffer, nil)
		return nil, errors.Wrap(classify(NewError(ret), ErrTransfer), "bind buffer memory")
	}

	b := &Buffer{Handle: buffer, Memory: memory, Size: size}
	b.destroy = func() {
		vk.DestroyBuffer(device, buffer, nil)
		vk.FreeMemory(device, memory, nil)
	}
	return b, nil
}

func (a *deviceAllocator) Map(b *Buffer) ([]byte, error) {
	var data unsafe.Pointer
	ret := vk.MapMemory(a.ctx.Device(), b.Memory, 0, vk.DeviceSize(b.Size), 0, &data)
	if isError(ret) {
		return nil, errors.Wrap(classify(NewError(ret), ErrTransfer), "map buffer memory")
	}
	return unsafe.Slice((*byte)(data), int(b.Size)), nil
}

func (a *deviceAllocator) Unmap(b *Buffer) {
	vk.UnmapMemory(a.ctx.Device(), b.Memory)
}

func (a *deviceAllocator) CopyAndWait(copies []BufferCopy) error {
	if len(copies) == 0 {
		return nil
	}
	cmd, err := a.transfer.Begin()
	if err != nil {
		return err
	}
	for _, c := range copies {
		vk.CmdCopyBuffer(cmd, c.Src.Handle, c.Dst.Handle, 1, []vk.BufferCopy{{
			SrcOffset: 0,
			DstOffset: 0,
			Size:      vk.DeviceSize(c.Size),
		}})
	}
	return a.transfer.SubmitAndWait()
}

package blackhole

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// CommandPool owns a resettable command pool on one queue family.
type CommandPool struct {
	device vk.Device
	pool   vk.CommandPool
}

func NewCommandPool(device vk.Device, familyIndex uint32) (*CommandPool, error) {
	var pool vk.CommandPool
	ret := vk.CreateCommandPool(device, &vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: familyIndex,
		// ResetCommandBufferBit allows command buffers to be reset individually.
		Flags: vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}, nil, &pool)
	if err := setupErr(ret, "create command pool"); err != nil {
		return nil, err
	}
	return &CommandPool{device: device, pool: pool}, nil
}

// Allocate returns count primary command buffers.
func (c *CommandPool) Allocate(count int) ([]vk.CommandBuffer, error) {
	buffers := make([]vk.CommandBuffer, count)
	ret := vk.AllocateCommandBuffers(c.device, &vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        c.pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: uint32(count),
	}, buffers)
	if err := setupErr(ret, "allocate command buffers"); err != nil {
		return nil, err
	}
	return buffers, nil
}

func (c *CommandPool) Free(buffers []vk.CommandBuffer) {
	if len(buffers) == 0 {
		return
	}
	vk.FreeCommandBuffers(c.device, c.pool, uint32(len(buffers)), buffers)
}

func (c *CommandPool) Destroy() {
	if c.pool == vk.NullCommandPool {
		return
	}
	vk.DestroyCommandPool(c.device, c.pool, nil)
	c.pool = vk.NullCommandPool
}

// TransferContext is a one-shot command buffer reserved for host to device
// copies, kept apart from the per-frame rendering buffers.
type TransferContext struct {
	device vk.Device
	queue  vk.Queue
	pool   *CommandPool
	cmd    vk.CommandBuffer
	fence  vk.Fence
}

func NewTransferContext(ctx *Context, pool *CommandPool) (*TransferContext, error) {
	buffers, err := pool.Allocate(1)
	if err != nil {
		return nil, err
	}
	var fence vk.Fence
	ret := vk.CreateFence(ctx.Device(), &vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}, nil, &fence)
	if err := setupErr(ret, "create transfer fence"); err != nil {
		pool.Free(buffers)
		return nil, err
	}
	return &TransferContext{
		device: ctx.Device(),
		queue:  ctx.GraphicsQueue(),
		pool:   pool,
		cmd:    buffers[0],
		fence:  fence,
	}, nil
}

// Begin resets the transfer command buffer and opens it for recording.
func (t *TransferContext) Begin() (vk.CommandBuffer, error) {
	if ret := vk.ResetCommandBuffer(t.cmd, 0); isError(ret) {
		return nil, errors.Wrap(classify(NewError(ret), ErrTransfer), "reset transfer command buffer")
	}
	ret := vk.BeginCommandBuffer(t.cmd, &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	})
	if isError(ret) {
		return nil, errors.Wrap(classify(NewError(ret), ErrTransfer), "begin transfer command buffer")
	}
	return t.cmd, nil
}

// SubmitAndWait closes the recording, submits it and blocks until it retired.
func (t *TransferContext) SubmitAndWait() error {
	if ret := vk.EndCommandBuffer(t.cmd); isError(ret) {
		return errors.Wrap(classify(NewError(ret), ErrTransfer), "end transfer command buffer")
	}
	fences := []vk.Fence{t.fence}
	if ret := vk.ResetFences(t.device, 1, fences); isError(ret) {
		return errors.Wrap(classify(NewError(ret), ErrTransfer), "reset transfer fence")
	}
	ret := vk.QueueSubmit(t.queue, 1, []vk.SubmitInfo{{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{t.cmd},
	}}, t.fence)
	if isError(ret) {
		return errors.Wrap(classify(NewError(ret), ErrTransfer), "submit transfer")
	}
	if ret := vk.WaitForFences(t.device, 1, fences, vk.True, vk.MaxUint64); isError(ret) {
		return errors.Wrap(classify(NewError(ret), ErrTransfer), "wait for transfer")
	}
	return nil
}

func (t *TransferContext) Destroy() {
	if t.fence != vk.NullFence {
		vk.DestroyFence(t.device, t.fence, nil)
		t.fence = vk.NullFence
	}
	if t.cmd != nil {
		t.pool.Free([]vk.CommandBuffer{t.cmd})
		t.cmd = nil
	}
}

package blackhole

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// PresentStatus is the outcome of acquiring or presenting a swapchain image.
type PresentStatus int

const (
	PresentOK PresentStatus = iota
	// PresentSuboptimal still works but no longer matches the surface exactly.
	PresentSuboptimal
	// PresentOutOfDate can no longer be used with the surface.
	PresentOutOfDate
)

func (s PresentStatus) String() string {
	switch s {
	case PresentOK:
		return "ok"
	case PresentSuboptimal:
		return "suboptimal"
	case PresentOutOfDate:
		return "out of date"
	}
	return "unknown"
}

// presentStatus separates stale-surface results from real failures.
func presentStatus(ret vk.Result) (PresentStatus, error) {
	switch ret {
	case vk.Success:
		return PresentOK, nil
	case vk.Suboptimal:
		return PresentSuboptimal, nil
	case vk.ErrorOutOfDate:
		return PresentOutOfDate, nil
	}
	return PresentOK, NewError(ret)
}

// FrameDevice is the GPU side of the frame loop. Slots index the per-frame
// command buffer and sync objects.
type FrameDevice interface {
	// WaitForSlot blocks until the previous submission of slot retired.
	WaitForSlot(slot int) error
	// AcquireImage requests the next presentable image, signalling the slot's
	// image-available semaphore.
	AcquireImage(slot int) (uint32, PresentStatus, error)
	// ResetSlot unsignals the slot's fence.
	ResetSlot(slot int) error
	// Record re-records the slot's command buffer to draw into image.
	Record(slot int, image uint32) error
	// Submit queues the slot's command buffer, signalling its fence on completion.
	Submit(slot int) error
	Present(slot int, image uint32) (PresentStatus, error)
	// RecreateSwapchain reports whether the swapchain was actually rebuilt.
	RecreateSwapchain() (bool, error)
}

// SlotState tracks where a frame slot is in its cycle.
type SlotState int

const (
	SlotIdle SlotState = iota
	SlotAcquiring
	SlotRecording
	SlotSubmitted
	SlotPresenting
)

func (s SlotState) String() string {
	switch s {
	case SlotIdle:
		return "idle"
	case SlotAcquiring:
		return "acquiring"
	case SlotRecording:
		return "recording"
	case SlotSubmitted:
		return "submitted"
	case SlotPresenting:
		return "presenting"
	}
	return "unknown"
}

// FrameStats counts frame loop outcomes.
type FrameStats struct {
	Presented uint64
	Aborted   uint64
	Recreated uint64
}

// FrameScheduler drives up to frames submissions ahead of the GPU, rotating
// through the slots of dev.
type FrameScheduler struct {
	dev    FrameDevice
	win    Window
	log    *Logger
	frames int
	limit  uint64

	current int
	states  []SlotState
	stats   FrameStats
}

func NewFrameScheduler(dev FrameDevice, win Window, frames int, log *Logger) *FrameScheduler {
	if frames < 1 {
		frames = 1
	}
	return &FrameScheduler{
		dev:    dev,
		win:    win,
		log:    log,
		frames: frames,
		states: make([]SlotState, frames),
	}
}

// Current is the slot the next DrawFrame will use.
func (s *FrameScheduler) Current() int { return s.current }

func (s *FrameScheduler) State(slot int) SlotState { return s.states[slot] }

func (s *FrameScheduler) Stats() FrameStats { return s.stats }

// SetFrameLimit makes Run return after n presented frames; 0 removes the limit.
func (s *FrameScheduler) SetFrameLimit(n uint64) { s.limit = n }

// DrawFrame renders and presents one frame. A stale surface on acquire aborts
// the frame before anything is submitted and leaves the slot untouched for
// the next attempt.
func (s *FrameScheduler) DrawFrame() error {
	f := s.current

	if err := s.dev.WaitForSlot(f); err != nil {
		return errors.Wrapf(err, "frame slot %d", f)
	}
	s.states[f] = SlotAcquiring

	image, status, err := s.dev.AcquireImage(f)
	if err != nil {
		s.states[f] = SlotIdle
		return errors.Wrap(classify(err, ErrSetup), "acquire image")
	}
	if status == PresentOutOfDate {
		s.states[f] = SlotIdle
		s.stats.Aborted++
		return s.recreate()
	}

	s.states[f] = SlotRecording
	if err := s.dev.ResetSlot(f); err != nil {
		return err
	}
	if err := s.dev.Record(f, image); err != nil {
		return errors.Wrapf(err, "record frame slot %d", f)
	}
	if err := s.dev.Submit(f); err != nil {
		return errors.Wrapf(err, "submit frame slot %d", f)
	}
	s.states[f] = SlotSubmitted

	status, err = s.dev.Present(f, image)
	if err != nil {
		return errors.Wrap(classify(err, ErrSetup), "present")
	}
	// Stays here until the next wait on this slot sees its fence.
	s.states[f] = SlotPresenting
	s.stats.Presented++

	s.current = (f + 1) % s.frames

	if status != PresentOK || s.win.Resized() {
		s.win.ClearResized()
		return s.recreate()
	}
	return nil
}

func (s *FrameScheduler) recreate() error {
	rebuilt, err := s.dev.RecreateSwapchain()
	if err != nil {
		return errors.Wrap(err, "recreate swapchain")
	}
	if rebuilt {
		s.stats.Recreated++
	}
	return nil
}

// Run polls window events and draws frames until the window closes or the
// frame limit is reached.
func (s *FrameScheduler) Run() error {
	for !s.win.ShouldClose() && (s.limit == 0 || s.stats.Presented < s.limit) {
		s.win.PollEvents()
		if err := s.DrawFrame(); err != nil {
			return err
		}
	}
	s.log.Infof("frame loop done: %d presented, %d aborted, %d swapchain recreations",
		s.stats.Presented, s.stats.Aborted, s.stats.Recreated)
	return nil
}

// vulkanFrameDevice is the FrameDevice that renders the uploaded geometry.
type vulkanFrameDevice struct {
	ctx        *Context
	win        Window
	swapchain  *Swapchain
	renderPass vk.RenderPass
	pipeline   *Pipeline
	sync       *FrameSync
	commands   []vk.CommandBuffer
	geometry   *SharedGeometryBuffers
	records    []*GeometryRecord
	clear      [4]float32
}

func (d *vulkanFrameDevice) WaitForSlot(slot int) error {
	return d.sync.Wait(slot)
}

func (d *vulkanFrameDevice) AcquireImage(slot int) (uint32, PresentStatus, error) {
	var image uint32
	ret := vk.AcquireNextImage(d.ctx.Device(), d.swapchain.Handle(), vk.MaxUint64,
		d.sync.ImageAvailable[slot], vk.NullFence, &image)
	status, err := presentStatus(ret)
	return image, status, err
}

func (d *vulkanFrameDevice) ResetSlot(slot int) error {
	return d.sync.Reset(slot)
}

func (d *vulkanFrameDevice) Record(slot int, image uint32) error {
	cmd := d.commands[slot]
	if ret := vk.ResetCommandBuffer(cmd, 0); isError(ret) {
		return NewError(ret)
	}
	ret := vk.BeginCommandBuffer(cmd, &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
	})
	if isError(ret) {
		return NewError(ret)
	}

	extent := d.swapchain.Extent
	vk.CmdBeginRenderPass(cmd, &vk.RenderPassBeginInfo{
		SType:           vk.StructureTypeRenderPassBeginInfo,
		RenderPass:      d.renderPass,
		Framebuffer:     d.swapchain.Framebuffer(image),
		RenderArea:      fullScissor(extent),
		ClearValueCount: 1,
		PClearValues:    []vk.ClearValue{vk.NewClearValue(d.clear[:])},
	}, vk.SubpassContentsInline)

	vk.CmdBindPipeline(cmd, vk.PipelineBindPointGraphics, d.pipeline.Handle)
	vk.CmdSetViewport(cmd, 0, 1, []vk.Viewport{fullViewport(extent)})
	vk.CmdSetScissor(cmd, 0, 1, []vk.Rect2D{fullScissor(extent)})

	if !d.geometry.Empty() {
		vk.CmdBindVertexBuffers(cmd, 0, 1, []vk.Buffer{d.geometry.Vertex.Handle}, []vk.DeviceSize{0})
		vk.CmdBindIndexBuffer(cmd, d.geometry.Index.Handle, 0, vk.IndexTypeUint32)
		for _, r := range d.records {
			if len(r.Indices) == 0 {
				continue
			}
			vk.CmdDrawIndexed(cmd, uint32(len(r.Indices)), 1, r.FirstIndex(), r.BaseVertex(), 0)
		}
	}

	vk.CmdEndRenderPass(cmd)
	return NewError(vk.EndCommandBuffer(cmd))
}

func (d *vulkanFrameDevice) Submit(slot int) error {
	ret := vk.QueueSubmit(d.ctx.GraphicsQueue(), 1, []vk.SubmitInfo{{
		SType:              vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{d.sync.ImageAvailable[slot]},
		PWaitDstStageMask: []vk.PipelineStageFlags{
			vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{d.commands[slot]},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{d.sync.RenderFinished[slot]},
	}}, d.sync.InFlight[slot])
	return NewError(ret)
}

func (d *vulkanFrameDevice) Present(slot int, image uint32) (PresentStatus, error) {
	ret := vk.QueuePresent(d.ctx.PresentQueue(), &vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{d.sync.RenderFinished[slot]},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{d.swapchain.Handle()},
		PImageIndices:      []uint32{image},
	})
	return presentStatus(ret)
}

func (d *vulkanFrameDevice) RecreateSwapchain() (bool, error) {
	return d.swapchain.Recreate(d.win)
}

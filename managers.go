package blackhole

import vk "github.com/vulkan-go/vulkan"

// FrameSync holds one image-available semaphore, one render-finished
// semaphore and one in-flight fence per frame slot. Fences start signaled so
// the first wait on every slot returns at once.
type FrameSync struct {
	device vk.Device

	ImageAvailable []vk.Semaphore
	RenderFinished []vk.Semaphore
	InFlight       []vk.Fence
}

func NewFrameSync(device vk.Device, frames int) (*FrameSync, error) {
	s := &FrameSync{device: device}
	for i := 0; i < frames; i++ {
		available, err := newSemaphore(device)
		if err != nil {
			s.Destroy()
			return nil, err
		}
		s.ImageAvailable = append(s.ImageAvailable, available)

		finished, err := newSemaphore(device)
		if err != nil {
			s.Destroy()
			return nil, err
		}
		s.RenderFinished = append(s.RenderFinished, finished)

		var fence vk.Fence
		ret := vk.CreateFence(device, &vk.FenceCreateInfo{
			SType: vk.StructureTypeFenceCreateInfo,
			Flags: vk.FenceCreateFlags(vk.FenceCreateSignaledBit),
		}, nil, &fence)
		if err := setupErr(ret, "create in-flight fence"); err != nil {
			s.Destroy()
			return nil, err
		}
		s.InFlight = append(s.InFlight, fence)
	}
	return s, nil
}

func newSemaphore(device vk.Device) (vk.Semaphore, error) {
	var sem vk.Semaphore
	ret := vk.CreateSemaphore(device, &vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}, nil, &sem)
	if err := setupErr(ret, "create semaphore"); err != nil {
		return vk.NullSemaphore, err
	}
	return sem, nil
}

// Wait blocks until the fence of slot has signaled.
func (s *FrameSync) Wait(slot int) error {
	ret := vk.WaitForFences(s.device, 1, s.InFlight[slot:slot+1], vk.True, vk.MaxUint64)
	return setupErr(ret, "wait for in-flight fence")
}

// Reset returns the fence of slot to unsignaled.
func (s *FrameSync) Reset(slot int) error {
	ret := vk.ResetFences(s.device, 1, s.InFlight[slot:slot+1])
	return setupErr(ret, "reset in-flight fence")
}

// Destroy releases every sync object. The device must be idle.
func (s *FrameSync) Destroy() {
	for _, f := range s.InFlight {
		vk.DestroyFence(s.device, f, nil)
	}
	for _, sem := range s.RenderFinished {
		vk.DestroySemaphore(s.device, sem, nil)
	}
	for _, sem := range s.ImageAvailable {
		vk.DestroySemaphore(s.device, sem, nil)
	}
	s.InFlight, s.RenderFinished, s.ImageAvailable = nil, nil, nil
}

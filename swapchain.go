package blackhole

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// SwapchainSupport is what a surface offers on one physical device.
type SwapchainSupport struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

// Adequate reports whether at least one format and one present mode exist.
func (s SwapchainSupport) Adequate() bool {
	return len(s.Formats) > 0 && len(s.PresentModes) > 0
}

func querySwapchainSupport(gpu vk.PhysicalDevice, surface vk.Surface) (SwapchainSupport, error) {
	var s SwapchainSupport
	ret := vk.GetPhysicalDeviceSurfaceCapabilities(gpu, surface, &s.Capabilities)
	if isError(ret) {
		return s, errors.Wrap(NewError(ret), "query surface capabilities")
	}
	s.Capabilities.Deref()
	s.Capabilities.CurrentExtent.Deref()
	s.Capabilities.MinImageExtent.Deref()
	s.Capabilities.MaxImageExtent.Deref()

	var formatCount uint32
	vk.GetPhysicalDeviceSurfaceFormats(gpu, surface, &formatCount, nil)
	if formatCount > 0 {
		s.Formats = make([]vk.SurfaceFormat, formatCount)
		vk.GetPhysicalDeviceSurfaceFormats(gpu, surface, &formatCount, s.Formats)
		for i := range s.Formats {
			s.Formats[i].Deref()
		}
	}

	var modeCount uint32
	vk.GetPhysicalDeviceSurfacePresentModes(gpu, surface, &modeCount, nil)
	if modeCount > 0 {
		s.PresentModes = make([]vk.PresentMode, modeCount)
		vk.GetPhysicalDeviceSurfacePresentModes(gpu, surface, &modeCount, s.PresentModes)
	}
	return s, nil
}

// chooseSurfaceFormat prefers 8-bit BGRA in sRGB, else the first format listed.
func chooseSurfaceFormat(formats []vk.SurfaceFormat) vk.SurfaceFormat {
	for _, f := range formats {
		if f.Format == vk.FormatB8g8r8a8Srgb && f.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return f
		}
	}
	if len(formats) == 0 {
		return vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear}
	}
	return formats[0]
}

// choosePresentMode prefers mailbox; FIFO is always available.
func choosePresentMode(modes []vk.PresentMode) vk.PresentMode {
	for _, m := range modes {
		if m == vk.PresentModeMailbox {
			return m
		}
	}
	return vk.PresentModeFifo
}

// chooseExtent uses the surface's current extent when it is defined and the
// framebuffer size, clamped to the supported range, otherwise.
func chooseExtent(caps vk.SurfaceCapabilities, width, height int) vk.Extent2D {
	if caps.CurrentExtent.Width != vk.MaxUint32 {
		return caps.CurrentExtent
	}
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return clampExtent(
		vk.Extent2D{Width: uint32(width), Height: uint32(height)},
		caps.MinImageExtent, caps.MaxImageExtent,
	)
}

// chooseImageCount asks for one image more than the minimum, capped by the
// maximum when the surface has one.
func chooseImageCount(caps vk.SurfaceCapabilities) uint32 {
	count := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && count > caps.MaxImageCount {
		count = caps.MaxImageCount
	}
	return count
}

// chooseSharingMode shares images between two queue families concurrently
// instead of transferring ownership.
func chooseSharingMode(q QueueFamilyIndices) (vk.SharingMode, []uint32) {
	if q.Shared() {
		return vk.SharingModeExclusive, nil
	}
	return vk.SharingModeConcurrent, []uint32{q.GraphicsFamily, q.PresentFamily}
}

func choosePreTransform(caps vk.SurfaceCapabilities) vk.SurfaceTransformFlagBits {
	if vk.SurfaceTransformFlagBits(caps.SupportedTransforms)&vk.SurfaceTransformIdentityBit != 0 {
		return vk.SurfaceTransformIdentityBit
	}
	return caps.CurrentTransform
}

func chooseCompositeAlpha(caps vk.SurfaceCapabilities) vk.CompositeAlphaFlagBits {
	for _, bit := range []vk.CompositeAlphaFlagBits{
		vk.CompositeAlphaOpaqueBit,
		vk.CompositeAlphaPreMultipliedBit,
		vk.CompositeAlphaPostMultipliedBit,
		vk.CompositeAlphaInheritBit,
	} {
		if caps.SupportedCompositeAlpha&vk.CompositeAlphaFlags(bit) != 0 {
			return bit
		}
	}
	return vk.CompositeAlphaOpaqueBit
}

// ChooseSurfaceFormat picks the format the swapchain of ctx will use, so the
// render pass can be created before the swapchain.
func ChooseSurfaceFormat(ctx *Context) (vk.SurfaceFormat, error) {
	support, err := querySwapchainSupport(ctx.PhysicalDevice(), ctx.Surface())
	if err != nil {
		return vk.SurfaceFormat{}, classify(err, ErrSetup)
	}
	return chooseSurfaceFormat(support.Formats), nil
}

// Swapchain owns the presentable images together with their views and
// framebuffers. It is only ever rebuilt as a whole.
type Swapchain struct {
	ctx        *Context
	renderPass vk.RenderPass

	handle       vk.Swapchain
	images       []vk.Image
	views        []vk.ImageView
	framebuffers []vk.Framebuffer

	Format vk.SurfaceFormat
	Extent vk.Extent2D
}

// NewSwapchain creates the swapchain for the window's current size along with
// framebuffers compatible with rp.
func NewSwapchain(ctx *Context, win Window, rp vk.RenderPass) (*Swapchain, error) {
	s := &Swapchain{ctx: ctx, renderPass: rp}
	if err := s.create(win); err != nil {
		s.Destroy()
		return nil, err
	}
	return s, nil
}

func (s *Swapchain) Handle() vk.Swapchain { return s.handle }

func (s *Swapchain) ImageCount() int { return len(s.images) }

func (s *Swapchain) Framebuffer(i uint32) vk.Framebuffer { return s.framebuffers[i] }

// waitDrawable blocks on window events while the framebuffer is 0x0. It
// reports false when the window was closed meanwhile.
func waitDrawable(win Window) bool {
	width, height := win.FramebufferSize()
	for width == 0 || height == 0 {
		win.WaitEvents()
		if win.ShouldClose() {
			return false
		}
		width, height = win.FramebufferSize()
	}
	return true
}

// Recreate waits out a minimised window and for the device to go idle, then
// replaces the swapchain and everything derived from it. It reports false,
// leaving the swapchain as it was, when the window closed while minimised.
func (s *Swapchain) Recreate(win Window) (bool, error) {
	if !waitDrawable(win) {
		return false, nil
	}
	if ret := vk.DeviceWaitIdle(s.ctx.Device()); isError(ret) {
		return false, setupErr(ret, "wait for device idle")
	}
	s.destroyFramebuffers()
	s.destroyViews()
	if err := s.create(win); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Swapchain) create(win Window) error {
	device := s.ctx.Device()
	support, err := querySwapchainSupport(s.ctx.PhysicalDevice(), s.ctx.Surface())
	if err != nil {
		return classify(err, ErrSetup)
	}
	if !support.Adequate() {
		return errors.Wrap(ErrSetup, "surface has no formats or present modes")
	}
	caps := support.Capabilities
	width, height := win.FramebufferSize()

	s.Format = chooseSurfaceFormat(support.Formats)
	s.Extent = chooseExtent(caps, width, height)
	sharing, families := chooseSharingMode(s.ctx.Families())

	old := s.handle
	var handle vk.Swapchain
	ret := vk.CreateSwapchain(device, &vk.SwapchainCreateInfo{
		SType:                 vk.StructureTypeSwapchainCreateInfo,
		Surface:               s.ctx.Surface(),
		MinImageCount:         chooseImageCount(caps),
		ImageFormat:           s.Format.Format,
		ImageColorSpace:       s.Format.ColorSpace,
		ImageExtent:           s.Extent,
		ImageArrayLayers:      1,
		ImageUsage:            vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageSharingMode:      sharing,
		QueueFamilyIndexCount: uint32(len(families)),
		PQueueFamilyIndices:   families,
		PreTransform:          choosePreTransform(caps),
		CompositeAlpha:        chooseCompositeAlpha(caps),
		PresentMode:           choosePresentMode(support.PresentModes),
		Clipped:               vk.True,
		OldSwapchain:          old,
	}, nil, &handle)
	if err := setupErr(ret, "create swapchain"); err != nil {
		return err
	}
	if old != vk.NullSwapchain {
		vk.DestroySwapchain(device, old, nil)
	}
	s.handle = handle

	var count uint32
	ret = vk.GetSwapchainImages(device, s.handle, &count, nil)
	if err := setupErr(ret, "get swapchain images"); err != nil {
		return err
	}
	s.images = make([]vk.Image, count)
	ret = vk.GetSwapchainImages(device, s.handle, &count, s.images)
	if err := setupErr(ret, "get swapchain images"); err != nil {
		return err
	}

	for _, image := range s.images {
		view, err := newColorImageView(device, image, s.Format.Format)
		if err != nil {
			return err
		}
		s.views = append(s.views, view)
	}
	for _, view := range s.views {
		var fb vk.Framebuffer
		ret := vk.CreateFramebuffer(device, &vk.FramebufferCreateInfo{
			SType:           vk.StructureTypeFramebufferCreateInfo,
			RenderPass:      s.renderPass,
			AttachmentCount: 1,
			PAttachments:    []vk.ImageView{view},
			Width:           s.Extent.Width,
			Height:          s.Extent.Height,
			Layers:          1,
		}, nil, &fb)
		if err := setupErr(ret, "create framebuffer"); err != nil {
			return err
		}
		s.framebuffers = append(s.framebuffers, fb)
	}
	return nil
}

func (s *Swapchain) destroyFramebuffers() {
	for _, fb := range s.framebuffers {
		vk.DestroyFramebuffer(s.ctx.Device(), fb, nil)
	}
	s.framebuffers = nil
}

func (s *Swapchain) destroyViews() {
	for _, view := range s.views {
		vk.DestroyImageView(s.ctx.Device(), view, nil)
	}
	s.views = nil
	s.images = nil
}

// Destroy releases framebuffers, views and the swapchain, in that order.
func (s *Swapchain) Destroy() {
	s.destroyFramebuffers()
	s.destroyViews()
	if s.handle != vk.NullSwapchain {
		vk.DestroySwapchain(s.ctx.Device(), s.handle, nil)
		s.handle = vk.NullSwapchain
	}
}

package blackhole

import (
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// Engine wires the renderer together: window, instance, device, swapchain,
// pipeline, uploaded geometry and the frame loop. Everything it creates is
// released in reverse creation order by Destroy.
type Engine struct {
	cfg   Config
	log   *Logger
	scene Scene

	rel     releaser
	glfwUp  bool
	display *Display
	ctx     *Context
	sched   *FrameScheduler
}

// NewEngine validates cfg. Nothing touches the window system or the GPU
// before Run.
func NewEngine(cfg Config, log *Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(classify(err, ErrSetup), "config")
	}
	return &Engine{cfg: cfg, log: log, scene: SceneFor(cfg)}, nil
}

// Run sets everything up, draws until the window closes and waits for the
// GPU to go idle. Destroy must be called afterwards, also when Run fails.
func (e *Engine) Run() error {
	if err := e.setup(); err != nil {
		return err
	}
	loopErr := e.sched.Run()
	if err := e.ctx.WaitIdle(); err != nil && loopErr == nil {
		return err
	}
	return loopErr
}

func (e *Engine) setup() error {
	if err := glfw.Init(); err != nil {
		return errors.Wrap(classify(err, ErrSetup), "init glfw")
	}
	e.glfwUp = true
	vk.SetGetInstanceProcAddr(glfw.GetVulkanGetInstanceProcAddress())
	if err := vk.Init(); err != nil {
		return errors.Wrap(classify(err, ErrSetup), "init vulkan loader")
	}

	display, err := NewDisplay(e.cfg.Width, e.cfg.Height, e.cfg.Title)
	if err != nil {
		return err
	}
	e.display = display
	e.rel.push(display.Destroy)

	icfg := InstanceConfig{AppName: e.cfg.Title, Extensions: display.RequiredExtensions()}
	if e.cfg.Validation {
		icfg.Layers = e.cfg.ValidationLayers
	}
	inst, err := NewInstance(icfg, e.log)
	if err != nil {
		return err
	}
	e.rel.push(inst.Destroy)

	surface, err := display.CreateSurface(inst.Handle())
	if err != nil {
		return err
	}
	ctx, err := SelectDevice(inst, surface, e.cfg.DeviceConfig(), e.log)
	if err != nil {
		return err
	}
	e.ctx = ctx
	e.rel.push(ctx.Destroy)
	fam := ctx.Families()
	e.log.Infof("graphics family %d, present family %d", fam.GraphicsFamily, fam.PresentFamily)

	format, err := ChooseSurfaceFormat(ctx)
	if err != nil {
		return err
	}
	renderPass, err := NewRenderPass(ctx.Device(), format.Format)
	if err != nil {
		return err
	}
	e.rel.push(func() { vk.DestroyRenderPass(ctx.Device(), renderPass, nil) })

	swapchain, err := NewSwapchain(ctx, display, renderPass)
	if err != nil {
		return err
	}
	e.rel.push(swapchain.Destroy)
	e.log.Infof("swapchain: %d images, %dx%d", swapchain.ImageCount(),
		swapchain.Extent.Width, swapchain.Extent.Height)

	pipeline, err := e.buildPipeline(renderPass)
	if err != nil {
		return err
	}
	e.rel.push(pipeline.Destroy)

	pool, err := NewCommandPool(ctx.Device(), fam.GraphicsFamily)
	if err != nil {
		return err
	}
	e.rel.push(pool.Destroy)

	geometry, records, err := e.uploadScene(pool)
	if err != nil {
		return err
	}
	e.rel.push(geometry.Destroy)

	sync, err := NewFrameSync(ctx.Device(), e.cfg.FramesInFlight)
	if err != nil {
		return err
	}
	e.rel.push(sync.Destroy)

	commands, err := pool.Allocate(e.cfg.FramesInFlight)
	if err != nil {
		return err
	}
	e.rel.push(func() { pool.Free(commands) })

	dev := &vulkanFrameDevice{
		ctx:        ctx,
		win:        display,
		swapchain:  swapchain,
		renderPass: renderPass,
		pipeline:   pipeline,
		sync:       sync,
		commands:   commands,
		geometry:   geometry,
		records:    records,
		clear:      e.cfg.ClearColor,
	}
	e.sched = NewFrameScheduler(dev, display, e.cfg.FramesInFlight, e.log)
	e.sched.SetFrameLimit(e.cfg.MaxFrames)
	return nil
}

func (e *Engine) buildPipeline(rp vk.RenderPass) (*Pipeline, error) {
	vert, err := LoadShader(e.cfg.VertexShader, vk.ShaderStageVertexBit)
	if err != nil {
		return nil, err
	}
	frag, err := LoadShader(e.cfg.FragmentShader, vk.ShaderStageFragmentBit)
	if err != nil {
		return nil, err
	}
	return NewPipelineBuilder(vert, frag).Build(e.ctx.Device(), rp)
}

// uploadScene fills a batcher from the scene and moves it to device-local
// memory. The transfer context only lives for the upload.
func (e *Engine) uploadScene(pool *CommandPool) (*SharedGeometryBuffers, []*GeometryRecord, error) {
	batcher := NewBatcher()
	if err := e.scene.Populate(batcher); err != nil {
		return nil, nil, err
	}
	vertexSize, indexSize := batcher.Layout()
	e.log.Infof("uploading %d bodies: %d vertex bytes, %d index bytes", batcher.Len(), vertexSize, indexSize)

	transfer, err := NewTransferContext(e.ctx, pool)
	if err != nil {
		return nil, nil, err
	}
	defer transfer.Destroy()

	geometry, err := batcher.Upload(newDeviceAllocator(e.ctx, transfer))
	if err != nil {
		return nil, nil, err
	}
	return geometry, batcher.Records(), nil
}

// Stats reports the frame loop counters; zero before Run.
func (e *Engine) Stats() FrameStats {
	if e.sched == nil {
		return FrameStats{}
	}
	return e.sched.Stats()
}

// Destroy waits for the device and releases everything Run created. It is
// safe to call after a failed or partial Run.
func (e *Engine) Destroy() {
	if e.ctx != nil {
		if err := e.ctx.WaitIdle(); err != nil {
			e.log.Warnf("teardown: %v", err)
		}
	}
	e.rel.release()
	e.ctx = nil
	e.display = nil
	if e.glfwUp {
		glfw.Terminate()
		e.glfwUp = false
	}
}

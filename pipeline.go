package blackhole

import (
	vk "github.com/vulkan-go/vulkan"
)

// Pipeline is a graphics pipeline and the layout it was built with.
type Pipeline struct {
	device vk.Device
	Handle vk.Pipeline
	Layout vk.PipelineLayout
}

func (p *Pipeline) Destroy() {
	if p == nil {
		return
	}
	if p.Handle != vk.NullPipeline {
		vk.DestroyPipeline(p.device, p.Handle, nil)
		p.Handle = vk.NullPipeline
	}
	if p.Layout != vk.NullPipelineLayout {
		vk.DestroyPipelineLayout(p.device, p.Layout, nil)
		p.Layout = vk.NullPipelineLayout
	}
}

// PipelineBuilder collects the fixed-function state for the 2D pipeline.
// Viewport and scissor are dynamic so the pipeline survives swapchain
// recreation.
type PipelineBuilder struct {
	stages        []ShaderSource
	vertexInput   vk.PipelineVertexInputStateCreateInfo
	inputAssembly vk.PipelineInputAssemblyStateCreateInfo
	rasterizer    vk.PipelineRasterizationStateCreateInfo
	multisampling vk.PipelineMultisampleStateCreateInfo
	colorBlend    vk.PipelineColorBlendAttachmentState
	dynamic       []vk.DynamicState
}

// NewPipelineBuilder prepares triangle-list state for Vertex input and the
// given shader stages.
func NewPipelineBuilder(stages ...ShaderSource) *PipelineBuilder {
	bindings := []vk.VertexInputBindingDescription{vertexBindingDescription()}
	attributes := vertexAttributeDescriptions()

	return &PipelineBuilder{
		stages: stages,
		vertexInput: vk.PipelineVertexInputStateCreateInfo{
			SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
			VertexBindingDescriptionCount:   uint32(len(bindings)),
			PVertexBindingDescriptions:      bindings,
			VertexAttributeDescriptionCount: uint32(len(attributes)),
			PVertexAttributeDescriptions:    attributes,
		},
		inputAssembly: vk.PipelineInputAssemblyStateCreateInfo{
			SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
			Topology:               vk.PrimitiveTopologyTriangleList,
			PrimitiveRestartEnable: vk.False,
		},
		rasterizer: vk.PipelineRasterizationStateCreateInfo{
			SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
			DepthClampEnable:        vk.False,
			RasterizerDiscardEnable: vk.False,
			PolygonMode:             vk.PolygonModeFill,
			CullMode:                vk.CullModeFlags(vk.CullModeNone),
			FrontFace:               vk.FrontFaceClockwise,
			DepthBiasEnable:         vk.False,
			LineWidth:               1.0,
		},
		multisampling: vk.PipelineMultisampleStateCreateInfo{
			SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
			RasterizationSamples: vk.SampleCount1Bit,
			SampleShadingEnable:  vk.False,
			MinSampleShading:     1.0,
		},
		colorBlend: vk.PipelineColorBlendAttachmentState{
			ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit | vk.ColorComponentGBit |
				vk.ColorComponentBBit | vk.ColorComponentABit),
			BlendEnable: vk.False,
		},
		dynamic: []vk.DynamicState{vk.DynamicStateViewport, vk.DynamicStateScissor},
	}
}

// Build creates shader modules, an empty pipeline layout and the pipeline for
// subpass 0 of rp. Shader modules are released before returning.
func (b *PipelineBuilder) Build(device vk.Device, rp vk.RenderPass) (*Pipeline, error) {
	var modules []vk.ShaderModule
	defer func() {
		for _, m := range modules {
			vk.DestroyShaderModule(device, m, nil)
		}
	}()

	stages := make([]vk.PipelineShaderStageCreateInfo, 0, len(b.stages))
	for _, src := range b.stages {
		module, err := newShaderModule(device, src.Code)
		if err != nil {
			return nil, err
		}
		modules = append(modules, module)
		stages = append(stages, vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  src.Stage,
			Module: module,
			PName:  safeString("main"),
		})
	}

	p := &Pipeline{device: device}
	ret := vk.CreatePipelineLayout(device, &vk.PipelineLayoutCreateInfo{
		SType: vk.StructureTypePipelineLayoutCreateInfo,
	}, nil, &p.Layout)
	if err := setupErr(ret, "create pipeline layout"); err != nil {
		return nil, err
	}

	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}
	blendState := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{b.colorBlend},
	}
	dynamicState := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(b.dynamic)),
		PDynamicStates:    b.dynamic,
	}

	pipelines := make([]vk.Pipeline, 1)
	ret = vk.CreateGraphicsPipelines(device, nil, 1, []vk.GraphicsPipelineCreateInfo{{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &b.vertexInput,
		PInputAssemblyState: &b.inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &b.rasterizer,
		PMultisampleState:   &b.multisampling,
		PColorBlendState:    &blendState,
		PDynamicState:       &dynamicState,
		Layout:              p.Layout,
		RenderPass:          rp,
		Subpass:             0,
		BasePipelineIndex:   -1,
	}}, nil, pipelines)
	if err := setupErr(ret, "create graphics pipeline"); err != nil {
		p.Destroy()
		return nil, err
	}
	p.Handle = pipelines[0]
	return p, nil
}

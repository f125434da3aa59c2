package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/vkdemo/engine/core"
)

const shaderEntryPoint = "main"

// VulkanPipeline holds the fixed graphics pipeline and its layout.
type VulkanPipeline struct {
	Handle         vk.Pipeline
	PipelineLayout vk.PipelineLayout
}

// checkShaderModules asks the driver to accept both blobs and destroys the
// modules straight away. Nothing is registered with the arena.
func checkShaderModules(api API, device vk.Device, vertCode, fragCode []byte) error {
	vertModule, err := api.CreateShaderModule(device, vertCode)
	if err != nil {
		return errors.Wrap(err, "vertex shader rejected")
	}
	api.DestroyShaderModule(device, vertModule)

	fragModule, err := api.CreateShaderModule(device, fragCode)
	if err != nil {
		return errors.Wrap(err, "fragment shader rejected")
	}
	api.DestroyShaderModule(device, fragModule)
	return nil
}

// createGraphicsPipeline builds the layout and pipeline from two SPIR-V
// blobs and registers both with the arena. Shader modules live only for the
// duration of the call.
func createGraphicsPipeline(api API, device vk.Device, renderpass *VulkanRenderpass, vertCode, fragCode []byte, arena *Arena, logger core.Logger) (*VulkanPipeline, error) {
	vertModule, err := api.CreateShaderModule(device, vertCode)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create vertex shader module")
	}
	defer api.DestroyShaderModule(device, vertModule)

	fragModule, err := api.CreateShaderModule(device, fragCode)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fragment shader module")
	}
	defer api.DestroyShaderModule(device, fragModule)

	stages := []vk.PipelineShaderStageCreateInfo{
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageVertexBit,
			Module: vertModule,
			PName:  VulkanSafeString(shaderEntryPoint),
		},
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageFragmentBit,
			Module: fragModule,
			PName:  VulkanSafeString(shaderEntryPoint),
		},
	}

	// Geometry is generated in the vertex shader.
	vertexInputInfo := vk.PipelineVertexInputStateCreateInfo{
		SType: vk.StructureTypePipelineVertexInputStateCreateInfo,
	}

	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               vk.PrimitiveTopologyTriangleList,
		PrimitiveRestartEnable: vk.False,
	}

	// Viewport and scissor are set per frame.
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	// Rasterizer
	rasterizerCreateInfo := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             vk.PolygonModeFill,
		LineWidth:               1.0,
		CullMode:                vk.CullModeFlags(vk.CullModeBackBit),
		FrontFace:               vk.FrontFaceClockwise,
		DepthBiasEnable:         vk.False,
	}

	// Multisampling.
	multisamplingCreateInfo := vk.PipelineMultisampleStateCreateInfo{
		SType:                 vk.StructureTypePipelineMultisampleStateCreateInfo,
		SampleShadingEnable:   vk.False,
		RasterizationSamples:  vk.SampleCount1Bit,
		MinSampleShading:      1.0,
		AlphaToCoverageEnable: vk.False,
		AlphaToOneEnable:      vk.False,
	}

	colorBlendAttachmentState := vk.PipelineColorBlendAttachmentState{
		BlendEnable: vk.False,
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit) |
			vk.ColorComponentFlags(vk.ColorComponentGBit) |
			vk.ColorComponentFlags(vk.ColorComponentBBit) |
			vk.ColorComponentFlags(vk.ColorComponentABit),
	}

	colorBlendStateCreateInfo := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{colorBlendAttachmentState},
	}

	// Dynamic state
	dynamicStates := []vk.DynamicState{
		vk.DynamicStateViewport,
		vk.DynamicStateScissor,
	}
	dynamicStateCreateInfo := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	pipelineLayoutCreateInfo := vk.PipelineLayoutCreateInfo{
		SType: vk.StructureTypePipelineLayoutCreateInfo,
	}
	layout, err := api.CreatePipelineLayout(device, &pipelineLayoutCreateInfo)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create pipeline layout")
	}
	arena.Push("pipeline layout", func() { api.DestroyPipelineLayout(device, layout) })

	pipelineCreateInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInputInfo,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizerCreateInfo,
		PMultisampleState:   &multisamplingCreateInfo,
		PColorBlendState:    &colorBlendStateCreateInfo,
		PDynamicState:       &dynamicStateCreateInfo,
		Layout:              layout,
		RenderPass:          renderpass.Handle,
		Subpass:             0,
		BasePipelineHandle:  vk.NullPipeline,
		BasePipelineIndex:   -1,
	}

	handle, err := api.CreateGraphicsPipeline(device, &pipelineCreateInfo)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create graphics pipeline")
	}
	arena.Push("graphics pipeline", func() { api.DestroyPipeline(device, handle) })

	logger.Debug("Graphics pipeline created!")
	return &VulkanPipeline{
		Handle:         handle,
		PipelineLayout: layout,
	}, nil
}

func (pipeline *VulkanPipeline) Bind(api API, commandBuffer *VulkanCommandBuffer) {
	api.CmdBindPipeline(commandBuffer.Handle, pipeline.Handle)
}

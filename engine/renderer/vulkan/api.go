package vulkan

import (
	vk "github.com/goki/vulkan"
)

// PhysicalDevice is a selectable GPU as reported by the driver. It is never
// owned by the context; the handle stays valid for the lifetime of the instance.
type PhysicalDevice struct {
	Handle        vk.PhysicalDevice
	Name          string
	Type          vk.PhysicalDeviceType
	APIVersion    uint32
	DriverVersion uint32
}

// SurfaceProvider is the platform side of the context: the window system that
// knows which instance extensions it needs and how to build a surface.
type SurfaceProvider interface {
	RequiredInstanceExtensions() []string
	CreateSurface(instance vk.Instance) (vk.Surface, error)
	// FramebufferSize returns the drawable size in pixels.
	FramebufferSize() (width, height int)
}

// API is the set of Vulkan entry points the device context drives. Every call
// that produces a VkResult returns a *ResultError for anything but VK_SUCCESS,
// so callers never see raw result codes.
type API interface {
	// Instance
	InstanceLayers() ([]string, error)
	CreateInstance(info *vk.InstanceCreateInfo) (vk.Instance, error)
	DestroyInstance(instance vk.Instance)
	CreateDebugReportCallback(instance vk.Instance, info *vk.DebugReportCallbackCreateInfo) (vk.DebugReportCallback, error)
	DestroyDebugReportCallback(instance vk.Instance, callback vk.DebugReportCallback)
	DestroySurface(instance vk.Instance, surface vk.Surface)

	// Physical devices
	PhysicalDevices(instance vk.Instance) ([]*PhysicalDevice, error)
	QueueFamilies(pd *PhysicalDevice) []vk.QueueFamilyProperties
	SurfaceSupport(pd *PhysicalDevice, family uint32, surface vk.Surface) (bool, error)
	DeviceExtensions(pd *PhysicalDevice) ([]string, error)
	SurfaceCapabilities(pd *PhysicalDevice, surface vk.Surface) (vk.SurfaceCapabilities, error)
	SurfaceFormats(pd *PhysicalDevice, surface vk.Surface) ([]vk.SurfaceFormat, error)
	SurfacePresentModes(pd *PhysicalDevice, surface vk.Surface) ([]vk.PresentMode, error)

	// Logical device
	CreateDevice(pd *PhysicalDevice, info *vk.DeviceCreateInfo) (vk.Device, error)
	DestroyDevice(device vk.Device)
	DeviceQueue(device vk.Device, family uint32) vk.Queue
	DeviceWaitIdle(device vk.Device) error

	// Swapchain
	CreateSwapchain(device vk.Device, info *vk.SwapchainCreateInfo) (vk.Swapchain, error)
	DestroySwapchain(device vk.Device, swapchain vk.Swapchain)
	SwapchainImages(device vk.Device, swapchain vk.Swapchain) ([]vk.Image, error)
	CreateImageView(device vk.Device, info *vk.ImageViewCreateInfo) (vk.ImageView, error)
	DestroyImageView(device vk.Device, view vk.ImageView)

	// Pipeline
	CreateRenderPass(device vk.Device, info *vk.RenderPassCreateInfo) (vk.RenderPass, error)
	DestroyRenderPass(device vk.Device, renderPass vk.RenderPass)
	CreateShaderModule(device vk.Device, code []byte) (vk.ShaderModule, error)
	DestroyShaderModule(device vk.Device, module vk.ShaderModule)
	CreatePipelineLayout(device vk.Device, info *vk.PipelineLayoutCreateInfo) (vk.PipelineLayout, error)
	DestroyPipelineLayout(device vk.Device, layout vk.PipelineLayout)
	CreateGraphicsPipeline(device vk.Device, info *vk.GraphicsPipelineCreateInfo) (vk.Pipeline, error)
	DestroyPipeline(device vk.Device, pipeline vk.Pipeline)
	CreateFramebuffer(device vk.Device, info *vk.FramebufferCreateInfo) (vk.Framebuffer, error)
	DestroyFramebuffer(device vk.Device, framebuffer vk.Framebuffer)

	// Commands
	CreateCommandPool(device vk.Device, info *vk.CommandPoolCreateInfo) (vk.CommandPool, error)
	DestroyCommandPool(device vk.Device, pool vk.CommandPool)
	AllocateCommandBuffer(device vk.Device, info *vk.CommandBufferAllocateInfo) (vk.CommandBuffer, error)
	FreeCommandBuffer(device vk.Device, pool vk.CommandPool, buffer vk.CommandBuffer)
	ResetCommandBuffer(buffer vk.CommandBuffer) error
	BeginCommandBuffer(buffer vk.CommandBuffer, info *vk.CommandBufferBeginInfo) error
	EndCommandBuffer(buffer vk.CommandBuffer) error
	CmdBeginRenderPass(buffer vk.CommandBuffer, info *vk.RenderPassBeginInfo)
	CmdEndRenderPass(buffer vk.CommandBuffer)
	CmdBindPipeline(buffer vk.CommandBuffer, pipeline vk.Pipeline)
	CmdSetViewport(buffer vk.CommandBuffer, viewport vk.Viewport)
	CmdSetScissor(buffer vk.CommandBuffer, scissor vk.Rect2D)
	CmdDraw(buffer vk.CommandBuffer, vertexCount, instanceCount, firstVertex, firstInstance uint32)

	// Synchronization
	CreateSemaphore(device vk.Device) (vk.Semaphore, error)
	DestroySemaphore(device vk.Device, semaphore vk.Semaphore)
	CreateFence(device vk.Device, signaled bool) (vk.Fence, error)
	DestroyFence(device vk.Device, fence vk.Fence)
	WaitForFence(device vk.Device, fence vk.Fence, timeoutNs uint64) error
	ResetFence(device vk.Device, fence vk.Fence) error

	// Frame
	// AcquireNextImage returns the image index together with a suboptimal
	// ResultError when the image is usable but the swapchain should be rebuilt.
	AcquireNextImage(device vk.Device, swapchain vk.Swapchain, timeoutNs uint64, semaphore vk.Semaphore) (uint32, error)
	QueueSubmit(queue vk.Queue, info *vk.SubmitInfo, fence vk.Fence) error
	QueuePresent(queue vk.Queue, info *vk.PresentInfo) error
}

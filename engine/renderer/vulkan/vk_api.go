package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
)

// vulkanAPI forwards every call to the goki/vulkan binding.
type vulkanAPI struct {
	// TODO: custom allocator.
	allocator *vk.AllocationCallbacks
}

// NewVulkanAPI loads the Vulkan loader through the platform's
// vkGetInstanceProcAddr (glfw.GetVulkanGetInstanceProcAddress on desktop).
func NewVulkanAPI(procAddr unsafe.Pointer) (API, error) {
	if procAddr == nil {
		return nil, errors.New("GetInstanceProcAddress is nil")
	}
	vk.SetGetInstanceProcAddr(procAddr)
	if err := vk.Init(); err != nil {
		return nil, errors.Wrap(err, "failed to initialize vk")
	}
	return &vulkanAPI{allocator: nil}, nil
}

func (a *vulkanAPI) InstanceLayers() ([]string, error) {
	var count uint32
	if err := checkResult("vkEnumerateInstanceLayerProperties", vk.EnumerateInstanceLayerProperties(&count, nil)); err != nil {
		return nil, err
	}
	layers := make([]vk.LayerProperties, count)
	if err := checkResult("vkEnumerateInstanceLayerProperties", vk.EnumerateInstanceLayerProperties(&count, layers)); err != nil {
		return nil, err
	}
	names := make([]string, 0, count)
	for i := range layers[:count] {
		layers[i].Deref()
		names = append(names, VulkanCString(layers[i].LayerName[:]))
	}
	return names, nil
}

func (a *vulkanAPI) CreateInstance(info *vk.InstanceCreateInfo) (vk.Instance, error) {
	var instance vk.Instance
	if err := checkResult("vkCreateInstance", vk.CreateInstance(info, a.allocator, &instance)); err != nil {
		return nil, err
	}
	if err := vk.InitInstance(instance); err != nil {
		vk.DestroyInstance(instance, a.allocator)
		return nil, errors.Wrap(err, "failed to load instance functions")
	}
	return instance, nil
}

func (a *vulkanAPI) DestroyInstance(instance vk.Instance) {
	vk.DestroyInstance(instance, a.allocator)
}

func (a *vulkanAPI) CreateDebugReportCallback(instance vk.Instance, info *vk.DebugReportCallbackCreateInfo) (vk.DebugReportCallback, error) {
	var callback vk.DebugReportCallback
	if err := checkResult("vkCreateDebugReportCallbackEXT", vk.CreateDebugReportCallback(instance, info, a.allocator, &callback)); err != nil {
		return vk.NullDebugReportCallback, err
	}
	return callback, nil
}

func (a *vulkanAPI) DestroyDebugReportCallback(instance vk.Instance, callback vk.DebugReportCallback) {
	vk.DestroyDebugReportCallback(instance, callback, a.allocator)
}

func (a *vulkanAPI) DestroySurface(instance vk.Instance, surface vk.Surface) {
	vk.DestroySurface(instance, surface, a.allocator)
}

func (a *vulkanAPI) PhysicalDevices(instance vk.Instance) ([]*PhysicalDevice, error) {
	var count uint32
	if err := checkResult("vkEnumeratePhysicalDevices", vk.EnumeratePhysicalDevices(instance, &count, nil)); err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	handles := make([]vk.PhysicalDevice, count)
	if err := checkResult("vkEnumeratePhysicalDevices", vk.EnumeratePhysicalDevices(instance, &count, handles)); err != nil {
		return nil, err
	}

	devices := make([]*PhysicalDevice, 0, count)
	for _, h := range handles[:count] {
		var properties vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(h, &properties)
		properties.Deref()
		devices = append(devices, &PhysicalDevice{
			Handle:        h,
			Name:          VulkanCString(properties.DeviceName[:]),
			Type:          properties.DeviceType,
			APIVersion:    properties.ApiVersion,
			DriverVersion: properties.DriverVersion,
		})
	}
	return devices, nil
}

func (a *vulkanAPI) QueueFamilies(pd *PhysicalDevice) []vk.QueueFamilyProperties {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(pd.Handle, &count, nil)
	families := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(pd.Handle, &count, families)
	for i := range families {
		families[i].Deref()
	}
	return families[:count]
}

func (a *vulkanAPI) SurfaceSupport(pd *PhysicalDevice, family uint32, surface vk.Surface) (bool, error) {
	var supportsPresent vk.Bool32 = vk.False
	if err := checkResult("vkGetPhysicalDeviceSurfaceSupportKHR", vk.GetPhysicalDeviceSurfaceSupport(pd.Handle, family, surface, &supportsPresent)); err != nil {
		return false, err
	}
	return supportsPresent == vk.True, nil
}

func (a *vulkanAPI) DeviceExtensions(pd *PhysicalDevice) ([]string, error) {
	var count uint32
	if err := checkResult("vkEnumerateDeviceExtensionProperties", vk.EnumerateDeviceExtensionProperties(pd.Handle, "", &count, nil)); err != nil {
		return nil, err
	}
	extensions := make([]vk.ExtensionProperties, count)
	if err := checkResult("vkEnumerateDeviceExtensionProperties", vk.EnumerateDeviceExtensionProperties(pd.Handle, "", &count, extensions)); err != nil {
		return nil, err
	}
	names := make([]string, 0, count)
	for i := range extensions[:count] {
		extensions[i].Deref()
		names = append(names, VulkanCString(extensions[i].ExtensionName[:]))
	}
	return names, nil
}

func (a *vulkanAPI) SurfaceCapabilities(pd *PhysicalDevice, surface vk.Surface) (vk.SurfaceCapabilities, error) {
	var caps vk.SurfaceCapabilities
	if err := checkResult("vkGetPhysicalDeviceSurfaceCapabilitiesKHR", vk.GetPhysicalDeviceSurfaceCapabilities(pd.Handle, surface, &caps)); err != nil {
		return caps, err
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()
	return caps, nil
}

func (a *vulkanAPI) SurfaceFormats(pd *PhysicalDevice, surface vk.Surface) ([]vk.SurfaceFormat, error) {
	var count uint32
	if err := checkResult("vkGetPhysicalDeviceSurfaceFormatsKHR", vk.GetPhysicalDeviceSurfaceFormats(pd.Handle, surface, &count, nil)); err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	formats := make([]vk.SurfaceFormat, count)
	if err := checkResult("vkGetPhysicalDeviceSurfaceFormatsKHR", vk.GetPhysicalDeviceSurfaceFormats(pd.Handle, surface, &count, formats)); err != nil {
		return nil, err
	}
	for i := range formats {
		formats[i].Deref()
	}
	return formats[:count], nil
}

func (a *vulkanAPI) SurfacePresentModes(pd *PhysicalDevice, surface vk.Surface) ([]vk.PresentMode, error) {
	var count uint32
	if err := checkResult("vkGetPhysicalDeviceSurfacePresentModesKHR", vk.GetPhysicalDeviceSurfacePresentModes(pd.Handle, surface, &count, nil)); err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	modes := make([]vk.PresentMode, count)
	if err := checkResult("vkGetPhysicalDeviceSurfacePresentModesKHR", vk.GetPhysicalDeviceSurfacePresentModes(pd.Handle, surface, &count, modes)); err != nil {
		return nil, err
	}
	return modes[:count], nil
}

func (a *vulkanAPI) CreateDevice(pd *PhysicalDevice, info *vk.DeviceCreateInfo) (vk.Device, error) {
	var device vk.Device
	if err := checkResult("vkCreateDevice", vk.CreateDevice(pd.Handle, info, a.allocator, &device)); err != nil {
		return nil, err
	}
	return device, nil
}

func (a *vulkanAPI) DestroyDevice(device vk.Device) {
	vk.DestroyDevice(device, a.allocator)
}

func (a *vulkanAPI) DeviceQueue(device vk.Device, family uint32) vk.Queue {
	var queue vk.Queue
	vk.GetDeviceQueue(device, family, 0, &queue)
	return queue
}

func (a *vulkanAPI) DeviceWaitIdle(device vk.Device) error {
	return checkResult("vkDeviceWaitIdle", vk.DeviceWaitIdle(device))
}

func (a *vulkanAPI) CreateSwapchain(device vk.Device, info *vk.SwapchainCreateInfo) (vk.Swapchain, error) {
	var swapchain vk.Swapchain
	if err := checkResult("vkCreateSwapchainKHR", vk.CreateSwapchain(device, info, a.allocator, &swapchain)); err != nil {
		return vk.NullSwapchain, err
	}
	return swapchain, nil
}

func (a *vulkanAPI) DestroySwapchain(device vk.Device, swapchain vk.Swapchain) {
	vk.DestroySwapchain(device, swapchain, a.allocator)
}

func (a *vulkanAPI) SwapchainImages(device vk.Device, swapchain vk.Swapchain) ([]vk.Image, error) {
	var count uint32
	if err := checkResult("vkGetSwapchainImagesKHR", vk.GetSwapchainImages(device, swapchain, &count, nil)); err != nil {
		return nil, err
	}
	images := make([]vk.Image, count)
	if err := checkResult("vkGetSwapchainImagesKHR", vk.GetSwapchainImages(device, swapchain, &count, images)); err != nil {
		return nil, err
	}
	return images[:count], nil
}

func (a *vulkanAPI) CreateImageView(device vk.Device, info *vk.ImageViewCreateInfo) (vk.ImageView, error) {
	var view vk.ImageView
	if err := checkResult("vkCreateImageView", vk.CreateImageView(device, info, a.allocator, &view)); err != nil {
		return vk.NullImageView, err
	}
	return view, nil
}

func (a *vulkanAPI) DestroyImageView(device vk.Device, view vk.ImageView) {
	vk.DestroyImageView(device, view, a.allocator)
}

func (a *vulkanAPI) CreateRenderPass(device vk.Device, info *vk.RenderPassCreateInfo) (vk.RenderPass, error) {
	var renderPass vk.RenderPass
	if err := checkResult("vkCreateRenderPass", vk.CreateRenderPass(device, info, a.allocator, &renderPass)); err != nil {
		return vk.NullRenderPass, err
	}
	return renderPass, nil
}

func (a *vulkanAPI) DestroyRenderPass(device vk.Device, renderPass vk.RenderPass) {
	vk.DestroyRenderPass(device, renderPass, a.allocator)
}

func (a *vulkanAPI) CreateShaderModule(device vk.Device, code []byte) (vk.ShaderModule, error) {
	info := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(code)),
		PCode:    bytesToBytecode(code),
	}
	var module vk.ShaderModule
	if err := checkResult("vkCreateShaderModule", vk.CreateShaderModule(device, &info, a.allocator, &module)); err != nil {
		return vk.NullShaderModule, err
	}
	return module, nil
}

func (a *vulkanAPI) DestroyShaderModule(device vk.Device, module vk.ShaderModule) {
	vk.DestroyShaderModule(device, module, a.allocator)
}

func (a *vulkanAPI) CreatePipelineLayout(device vk.Device, info *vk.PipelineLayoutCreateInfo) (vk.PipelineLayout, error) {
	var layout vk.PipelineLayout
	if err := checkResult("vkCreatePipelineLayout", vk.CreatePipelineLayout(device, info, a.allocator, &layout)); err != nil {
		return vk.NullPipelineLayout, err
	}
	return layout, nil
}

func (a *vulkanAPI) DestroyPipelineLayout(device vk.Device, layout vk.PipelineLayout) {
	vk.DestroyPipelineLayout(device, layout, a.allocator)
}

func (a *vulkanAPI) CreateGraphicsPipeline(device vk.Device, info *vk.GraphicsPipelineCreateInfo) (vk.Pipeline, error) {
	pipelines := make([]vk.Pipeline, 1)
	res := vk.CreateGraphicsPipelines(device, vk.NullPipelineCache, 1, []vk.GraphicsPipelineCreateInfo{*info}, a.allocator, pipelines)
	if err := checkResult("vkCreateGraphicsPipelines", res); err != nil {
		return vk.NullPipeline, err
	}
	return pipelines[0], nil
}

func (a *vulkanAPI) DestroyPipeline(device vk.Device, pipeline vk.Pipeline) {
	vk.DestroyPipeline(device, pipeline, a.allocator)
}

func (a *vulkanAPI) CreateFramebuffer(device vk.Device, info *vk.FramebufferCreateInfo) (vk.Framebuffer, error) {
	var framebuffer vk.Framebuffer
	if err := checkResult("vkCreateFramebuffer", vk.CreateFramebuffer(device, info, a.allocator, &framebuffer)); err != nil {
		return vk.NullFramebuffer, err
	}
	return framebuffer, nil
}

func (a *vulkanAPI) DestroyFramebuffer(device vk.Device, framebuffer vk.Framebuffer) {
	vk.DestroyFramebuffer(device, framebuffer, a.allocator)
}

func (a *vulkanAPI) CreateCommandPool(device vk.Device, info *vk.CommandPoolCreateInfo) (vk.CommandPool, error) {
	var pool vk.CommandPool
	if err := checkResult("vkCreateCommandPool", vk.CreateCommandPool(device, info, a.allocator, &pool)); err != nil {
		return vk.NullCommandPool, err
	}
	return pool, nil
}

func (a *vulkanAPI) DestroyCommandPool(device vk.Device, pool vk.CommandPool) {
	vk.DestroyCommandPool(device, pool, a.allocator)
}

func (a *vulkanAPI) AllocateCommandBuffer(device vk.Device, info *vk.CommandBufferAllocateInfo) (vk.CommandBuffer, error) {
	buffers := make([]vk.CommandBuffer, 1)
	if err := checkResult("vkAllocateCommandBuffers", vk.AllocateCommandBuffers(device, info, buffers)); err != nil {
		return nil, err
	}
	return buffers[0], nil
}

func (a *vulkanAPI) FreeCommandBuffer(device vk.Device, pool vk.CommandPool, buffer vk.CommandBuffer) {
	vk.FreeCommandBuffers(device, pool, 1, []vk.CommandBuffer{buffer})
}

func (a *vulkanAPI) ResetCommandBuffer(buffer vk.CommandBuffer) error {
	return checkResult("vkResetCommandBuffer", vk.ResetCommandBuffer(buffer, 0))
}

func (a *vulkanAPI) BeginCommandBuffer(buffer vk.CommandBuffer, info *vk.CommandBufferBeginInfo) error {
	return checkResult("vkBeginCommandBuffer", vk.BeginCommandBuffer(buffer, info))
}

func (a *vulkanAPI) EndCommandBuffer(buffer vk.CommandBuffer) error {
	return checkResult("vkEndCommandBuffer", vk.EndCommandBuffer(buffer))
}

func (a *vulkanAPI) CmdBeginRenderPass(buffer vk.CommandBuffer, info *vk.RenderPassBeginInfo) {
	vk.CmdBeginRenderPass(buffer, info, vk.SubpassContentsInline)
}

func (a *vulkanAPI) CmdEndRenderPass(buffer vk.CommandBuffer) {
	vk.CmdEndRenderPass(buffer)
}

func (a *vulkanAPI) CmdBindPipeline(buffer vk.CommandBuffer, pipeline vk.Pipeline) {
	vk.CmdBindPipeline(buffer, vk.PipelineBindPointGraphics, pipeline)
}

func (a *vulkanAPI) CmdSetViewport(buffer vk.CommandBuffer, viewport vk.Viewport) {
	vk.CmdSetViewport(buffer, 0, 1, []vk.Viewport{viewport})
}

func (a *vulkanAPI) CmdSetScissor(buffer vk.CommandBuffer, scissor vk.Rect2D) {
	vk.CmdSetScissor(buffer, 0, 1, []vk.Rect2D{scissor})
}

func (a *vulkanAPI) CmdDraw(buffer vk.CommandBuffer, vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	vk.CmdDraw(buffer, vertexCount, instanceCount, firstVertex, firstInstance)
}

func (a *vulkanAPI) CreateSemaphore(device vk.Device) (vk.Semaphore, error) {
	info := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	var semaphore vk.Semaphore
	if err := checkResult("vkCreateSemaphore", vk.CreateSemaphore(device, &info, a.allocator, &semaphore)); err != nil {
		return vk.NullSemaphore, err
	}
	return semaphore, nil
}

func (a *vulkanAPI) DestroySemaphore(device vk.Device, semaphore vk.Semaphore) {
	vk.DestroySemaphore(device, semaphore, a.allocator)
}

func (a *vulkanAPI) CreateFence(device vk.Device, signaled bool) (vk.Fence, error) {
	info := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if signaled {
		info.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	var fence vk.Fence
	if err := checkResult("vkCreateFence", vk.CreateFence(device, &info, a.allocator, &fence)); err != nil {
		return vk.NullFence, err
	}
	return fence, nil
}

func (a *vulkanAPI) DestroyFence(device vk.Device, fence vk.Fence) {
	vk.DestroyFence(device, fence, a.allocator)
}

func (a *vulkanAPI) WaitForFence(device vk.Device, fence vk.Fence, timeoutNs uint64) error {
	return checkResult("vkWaitForFences", vk.WaitForFences(device, 1, []vk.Fence{fence}, vk.True, timeoutNs))
}

func (a *vulkanAPI) ResetFence(device vk.Device, fence vk.Fence) error {
	return checkResult("vkResetFences", vk.ResetFences(device, 1, []vk.Fence{fence}))
}

func (a *vulkanAPI) AcquireNextImage(device vk.Device, swapchain vk.Swapchain, timeoutNs uint64, semaphore vk.Semaphore) (uint32, error) {
	var index uint32
	res := vk.AcquireNextImage(device, swapchain, timeoutNs, semaphore, vk.NullFence, &index)
	return index, checkResult("vkAcquireNextImageKHR", res)
}

func (a *vulkanAPI) QueueSubmit(queue vk.Queue, info *vk.SubmitInfo, fence vk.Fence) error {
	return checkResult("vkQueueSubmit", vk.QueueSubmit(queue, 1, []vk.SubmitInfo{*info}, fence))
}

func (a *vulkanAPI) QueuePresent(queue vk.Queue, info *vk.PresentInfo) error {
	return checkResult("vkQueuePresentKHR", vk.QueuePresent(queue, info))
}

package vulkan

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	vk "github.com/goki/vulkan"
)

// fakeDevice is one physical device as seen by fakeAPI.
type fakeDevice struct {
	pd         *PhysicalDevice
	families   []vk.QueueFamilyProperties
	present    map[uint32]bool
	extensions []string
	caps       vk.SurfaceCapabilities
	formats    []vk.SurfaceFormat
	modes      []vk.PresentMode
}

// fakeAPI records every call and tracks live objects as a stack, so any
// destroy that is not the most recent live creation is reported.
type fakeAPI struct {
	devices []*fakeDevice
	layers  []string
	images  int

	failOn         map[string]error
	failOnce       map[string]error
	acquireResults []error
	presentResults []error

	// onPresent runs inside QueuePresent before the result is returned.
	onPresent func()

	calls      []string
	live       []string
	violations []string
	modules    int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		devices:  []*fakeDevice{newFakeDevice("gpu0")},
		layers:   []string{validationLayerName},
		images:   3,
		failOn:   map[string]error{},
		failOnce: map[string]error{},
	}
}

func newFakeDevice(name string) *fakeDevice {
	return &fakeDevice{
		pd: &PhysicalDevice{
			Name:          name,
			Type:          vk.PhysicalDeviceTypeDiscreteGpu,
			APIVersion:    uint32(vk.MakeVersion(1, 3, 0)),
			DriverVersion: uint32(vk.MakeVersion(1, 0, 0)),
		},
		families:   []vk.QueueFamilyProperties{{QueueFlags: vk.QueueFlags(vk.QueueGraphicsBit), QueueCount: 1}},
		present:    map[uint32]bool{0: true},
		extensions: []string{swapchainExtensionName},
		caps:       fakeCaps(800, 600),
		formats:    []vk.SurfaceFormat{{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear}},
		modes:      []vk.PresentMode{vk.PresentModeFifo},
	}
}

func fakeCaps(width, height uint32) vk.SurfaceCapabilities {
	return vk.SurfaceCapabilities{
		MinImageCount:  2,
		MaxImageCount:  0,
		CurrentExtent:  vk.Extent2D{Width: width, Height: height},
		MinImageExtent: vk.Extent2D{Width: 1, Height: 1},
		MaxImageExtent: vk.Extent2D{Width: 4096, Height: 4096},
	}
}

func (f *fakeAPI) device(pd *PhysicalDevice) *fakeDevice {
	for _, d := range f.devices {
		if d.pd.Name == pd.Name {
			return d
		}
	}
	panic("unknown physical device " + pd.Name)
}

func (f *fakeAPI) record(call string) {
	f.calls = append(f.calls, call)
}

func (f *fakeAPI) create(kind string) error {
	f.record("create " + kind)
	if err, ok := f.failOnce[kind]; ok {
		delete(f.failOnce, kind)
		return err
	}
	if err, ok := f.failOn[kind]; ok {
		return err
	}
	f.live = append(f.live, kind)
	return nil
}

func (f *fakeAPI) destroy(kind string) {
	f.record("destroy " + kind)
	if len(f.live) == 0 {
		f.violations = append(f.violations, "destroy "+kind+" with nothing live")
		return
	}
	top := f.live[len(f.live)-1]
	if top != kind {
		f.violations = append(f.violations, "destroy "+kind+" while "+top+" is newest")
		return
	}
	f.live = f.live[:len(f.live)-1]
}

func (f *fakeAPI) count(call string) int {
	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (f *fakeAPI) indexOf(call string, from int) int {
	for i := from; i < len(f.calls); i++ {
		if f.calls[i] == call {
			return i
		}
	}
	return -1
}

func (f *fakeAPI) InstanceLayers() ([]string, error) {
	f.record("InstanceLayers")
	return f.layers, nil
}

func (f *fakeAPI) CreateInstance(info *vk.InstanceCreateInfo) (vk.Instance, error) {
	return nil, f.create("instance")
}

func (f *fakeAPI) DestroyInstance(instance vk.Instance) { f.destroy("instance") }

func (f *fakeAPI) CreateDebugReportCallback(instance vk.Instance, info *vk.DebugReportCallbackCreateInfo) (vk.DebugReportCallback, error) {
	return vk.NullDebugReportCallback, f.create("debug callback")
}

func (f *fakeAPI) DestroyDebugReportCallback(instance vk.Instance, callback vk.DebugReportCallback) {
	f.destroy("debug callback")
}

func (f *fakeAPI) DestroySurface(instance vk.Instance, surface vk.Surface) { f.destroy("surface") }

func (f *fakeAPI) PhysicalDevices(instance vk.Instance) ([]*PhysicalDevice, error) {
	f.record("PhysicalDevices")
	out := make([]*PhysicalDevice, 0, len(f.devices))
	for _, d := range f.devices {
		out = append(out, d.pd)
	}
	return out, nil
}

func (f *fakeAPI) QueueFamilies(pd *PhysicalDevice) []vk.QueueFamilyProperties {
	return f.device(pd).families
}

func (f *fakeAPI) SurfaceSupport(pd *PhysicalDevice, family uint32, surface vk.Surface) (bool, error) {
	return f.device(pd).present[family], nil
}

func (f *fakeAPI) DeviceExtensions(pd *PhysicalDevice) ([]string, error) {
	return f.device(pd).extensions, nil
}

func (f *fakeAPI) SurfaceCapabilities(pd *PhysicalDevice, surface vk.Surface) (vk.SurfaceCapabilities, error) {
	f.record("SurfaceCapabilities")
	return f.device(pd).caps, nil
}

func (f *fakeAPI) SurfaceFormats(pd *PhysicalDevice, surface vk.Surface) ([]vk.SurfaceFormat, error) {
	return f.device(pd).formats, nil
}

func (f *fakeAPI) SurfacePresentModes(pd *PhysicalDevice, surface vk.Surface) ([]vk.PresentMode, error) {
	return f.device(pd).modes, nil
}

func (f *fakeAPI) CreateDevice(pd *PhysicalDevice, info *vk.DeviceCreateInfo) (vk.Device, error) {
	return nil, f.create("device")
}

func (f *fakeAPI) DestroyDevice(device vk.Device) { f.destroy("device") }

func (f *fakeAPI) DeviceQueue(device vk.Device, family uint32) vk.Queue { return nil }

func (f *fakeAPI) DeviceWaitIdle(device vk.Device) error {
	f.record("DeviceWaitIdle")
	return nil
}

func (f *fakeAPI) CreateSwapchain(device vk.Device, info *vk.SwapchainCreateInfo) (vk.Swapchain, error) {
	return vk.NullSwapchain, f.create("swapchain")
}

func (f *fakeAPI) DestroySwapchain(device vk.Device, swapchain vk.Swapchain) { f.destroy("swapchain") }

func (f *fakeAPI) SwapchainImages(device vk.Device, swapchain vk.Swapchain) ([]vk.Image, error) {
	return make([]vk.Image, f.images), nil
}

func (f *fakeAPI) CreateImageView(device vk.Device, info *vk.ImageViewCreateInfo) (vk.ImageView, error) {
	return vk.NullImageView, f.create("image view")
}

func (f *fakeAPI) DestroyImageView(device vk.Device, view vk.ImageView) { f.destroy("image view") }

func (f *fakeAPI) CreateRenderPass(device vk.Device, info *vk.RenderPassCreateInfo) (vk.RenderPass, error) {
	return vk.NullRenderPass, f.create("render pass")
}

func (f *fakeAPI) DestroyRenderPass(device vk.Device, renderPass vk.RenderPass) {
	f.destroy("render pass")
}

// Shader modules are transient and counted apart from the live stack.
func (f *fakeAPI) CreateShaderModule(device vk.Device, code []byte) (vk.ShaderModule, error) {
	f.record("create shader module")
	if err, ok := f.failOn["shader module"]; ok {
		return vk.NullShaderModule, err
	}
	f.modules++
	return vk.NullShaderModule, nil
}

func (f *fakeAPI) DestroyShaderModule(device vk.Device, module vk.ShaderModule) {
	f.record("destroy shader module")
	f.modules--
}

func (f *fakeAPI) CreatePipelineLayout(device vk.Device, info *vk.PipelineLayoutCreateInfo) (vk.PipelineLayout, error) {
	return vk.NullPipelineLayout, f.create("pipeline layout")
}

func (f *fakeAPI) DestroyPipelineLayout(device vk.Device, layout vk.PipelineLayout) {
	f.destroy("pipeline layout")
}

func (f *fakeAPI) CreateGraphicsPipeline(device vk.Device, info *vk.GraphicsPipelineCreateInfo) (vk.Pipeline, error) {
	return vk.NullPipeline, f.create("pipeline")
}

func (f *fakeAPI) DestroyPipeline(device vk.Device, pipeline vk.Pipeline) { f.destroy("pipeline") }

func (f *fakeAPI) CreateFramebuffer(device vk.Device, info *vk.FramebufferCreateInfo) (vk.Framebuffer, error) {
	return vk.NullFramebuffer, f.create("framebuffer")
}

func (f *fakeAPI) DestroyFramebuffer(device vk.Device, framebuffer vk.Framebuffer) {
	f.destroy("framebuffer")
}

func (f *fakeAPI) CreateCommandPool(device vk.Device, info *vk.CommandPoolCreateInfo) (vk.CommandPool, error) {
	return vk.NullCommandPool, f.create("command pool")
}

func (f *fakeAPI) DestroyCommandPool(device vk.Device, pool vk.CommandPool) {
	f.destroy("command pool")
}

func (f *fakeAPI) AllocateCommandBuffer(device vk.Device, info *vk.CommandBufferAllocateInfo) (vk.CommandBuffer, error) {
	return nil, f.create("command buffer")
}

func (f *fakeAPI) FreeCommandBuffer(device vk.Device, pool vk.CommandPool, buffer vk.CommandBuffer) {
	f.destroy("command buffer")
}

func (f *fakeAPI) ResetCommandBuffer(buffer vk.CommandBuffer) error {
	f.record("ResetCommandBuffer")
	return nil
}

func (f *fakeAPI) BeginCommandBuffer(buffer vk.CommandBuffer, info *vk.CommandBufferBeginInfo) error {
	f.record("BeginCommandBuffer")
	return nil
}

func (f *fakeAPI) EndCommandBuffer(buffer vk.CommandBuffer) error {
	f.record("EndCommandBuffer")
	return nil
}

func (f *fakeAPI) CmdBeginRenderPass(buffer vk.CommandBuffer, info *vk.RenderPassBeginInfo) {
	f.record("CmdBeginRenderPass")
}

func (f *fakeAPI) CmdEndRenderPass(buffer vk.CommandBuffer) { f.record("CmdEndRenderPass") }

func (f *fakeAPI) CmdBindPipeline(buffer vk.CommandBuffer, pipeline vk.Pipeline) {
	f.record("CmdBindPipeline")
}

func (f *fakeAPI) CmdSetViewport(buffer vk.CommandBuffer, viewport vk.Viewport) {
	f.record("CmdSetViewport")
}

func (f *fakeAPI) CmdSetScissor(buffer vk.CommandBuffer, scissor vk.Rect2D) {
	f.record("CmdSetScissor")
}

func (f *fakeAPI) CmdDraw(buffer vk.CommandBuffer, vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	f.record("CmdDraw")
}

func (f *fakeAPI) CreateSemaphore(device vk.Device) (vk.Semaphore, error) {
	return vk.NullSemaphore, f.create("semaphore")
}

func (f *fakeAPI) DestroySemaphore(device vk.Device, semaphore vk.Semaphore) {
	f.destroy("semaphore")
}

func (f *fakeAPI) CreateFence(device vk.Device, signaled bool) (vk.Fence, error) {
	return vk.NullFence, f.create("fence")
}

func (f *fakeAPI) DestroyFence(device vk.Device, fence vk.Fence) { f.destroy("fence") }

func (f *fakeAPI) WaitForFence(device vk.Device, fence vk.Fence, timeoutNs uint64) error {
	f.record("WaitForFence")
	return nil
}

func (f *fakeAPI) ResetFence(device vk.Device, fence vk.Fence) error {
	f.record("ResetFence")
	return nil
}

func (f *fakeAPI) AcquireNextImage(device vk.Device, swapchain vk.Swapchain, timeoutNs uint64, semaphore vk.Semaphore) (uint32, error) {
	f.record("AcquireNextImage")
	if len(f.acquireResults) > 0 {
		err := f.acquireResults[0]
		f.acquireResults = f.acquireResults[1:]
		return 0, err
	}
	return 0, nil
}

func (f *fakeAPI) QueueSubmit(queue vk.Queue, info *vk.SubmitInfo, fence vk.Fence) error {
	f.record("QueueSubmit")
	return nil
}

func (f *fakeAPI) QueuePresent(queue vk.Queue, info *vk.PresentInfo) error {
	f.record("QueuePresent")
	if f.onPresent != nil {
		f.onPresent()
	}
	if len(f.presentResults) > 0 {
		err := f.presentResults[0]
		f.presentResults = f.presentResults[1:]
		return err
	}
	return nil
}

type fakeProvider struct {
	api           *fakeAPI
	width, height int
	surfaceErr    error
}

func (p *fakeProvider) RequiredInstanceExtensions() []string {
	return []string{"VK_KHR_surface"}
}

func (p *fakeProvider) CreateSurface(instance vk.Instance) (vk.Surface, error) {
	if p.surfaceErr != nil {
		p.api.record("create surface")
		return vk.NullSurface, p.surfaceErr
	}
	return vk.NullSurface, p.api.create("surface")
}

func (p *fakeProvider) FramebufferSize() (int, int) {
	return p.width, p.height
}

// testConfig writes two one-word shader blobs into a temp dir.
func testConfig(t *testing.T) Config {
	t.Helper()
	dir := t.TempDir()
	spirv := []byte{0x03, 0x02, 0x23, 0x07}
	vert := filepath.Join(dir, "vert.spv")
	frag := filepath.Join(dir, "frag.spv")
	for _, p := range []string{vert, frag} {
		if err := os.WriteFile(p, spirv, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return Config{
		ApplicationName:    "test",
		EnableValidation:   true,
		VertexShaderPath:   vert,
		FragmentShaderPath: frag,
		ClearColor:         [4]float32{0, 0, 0, 1},
	}
}

func newTestContext(t *testing.T, api *fakeAPI) *Context {
	t.Helper()
	ctx, err := New(api, &fakeProvider{api: api, width: 800, height: 600}, nil, testConfig(t))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return ctx
}

func (f *fakeAPI) creates(from int) []string {
	var out []string
	for _, c := range f.calls[from:] {
		if strings.HasPrefix(c, "create ") && c != "create shader module" {
			out = append(out, strings.TrimPrefix(c, "create "))
		}
	}
	return out
}

func (f *fakeAPI) destroys(from int) []string {
	var out []string
	for _, c := range f.calls[from:] {
		if strings.HasPrefix(c, "destroy ") && c != "destroy shader module" {
			out = append(out, strings.TrimPrefix(c, "destroy "))
		}
	}
	return out
}

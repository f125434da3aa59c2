package vulkan

import (
	"bytes"
	"runtime"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/vkdemo/engine/assets"
	"github.com/spaghettifunk/vkdemo/engine/core"
)

const (
	validationLayerName                = "VK_LAYER_KHRONOS_validation"
	debugReportExtensionName           = "VK_EXT_debug_report"
	portabilityEnumerationExtension    = "VK_KHR_portability_enumeration"
	physicalDeviceProperties2Extension = "VK_KHR_get_physical_device_properties2"
)

// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
const instanceCreateEnumeratePortability = 0x00000001

type Config struct {
	ApplicationName    string
	EngineName         string
	EnableValidation   bool
	VertexShaderPath   string
	FragmentShaderPath string
	ClearColor         [4]float32
	// DeviceExtensions defaults to VK_KHR_swapchain.
	DeviceExtensions []string
}

func (c Config) withDefaults() Config {
	if c.ApplicationName == "" {
		c.ApplicationName = "vulkan_demo"
	}
	if c.EngineName == "" {
		c.EngineName = "No Engine"
	}
	if len(c.DeviceExtensions) == 0 {
		c.DeviceExtensions = []string{swapchainExtensionName}
	}
	return c
}

// Context is the device context: instance, surface, device, the pipeline
// tier, the swapchain tier and the frame driver. It is driven from a single
// thread.
type Context struct {
	id       uuid.UUID
	api      API
	provider SurfaceProvider
	logger   core.Logger
	config   Config
	arena    *Arena

	instance       vk.Instance
	debugCallback  vk.DebugReportCallback
	surface        vk.Surface
	physicalDevice *PhysicalDevice
	indices        QueueFamilyIndices
	device         vk.Device
	graphicsQueue  vk.Queue
	presentQueue   vk.Queue

	frame *FrameDriver

	// arena depths below the pipeline and swapchain tiers.
	pipelineMark  int
	swapchainMark int

	format     vk.SurfaceFormat
	renderpass *VulkanRenderpass
	// SPIR-V the current pipeline was built from.
	vertCode []byte
	fragCode []byte
	pipeline   *VulkanPipeline
	swapchain  *Swapchain

	reloadPending bool
	destroyed     bool
}

// New runs the whole creation chain. On failure everything created so far is
// released and a *core.InitError naming the failed stage is returned.
func New(api API, provider SurfaceProvider, logger core.Logger, config Config) (*Context, error) {
	if logger == nil {
		logger = core.NopLogger()
	}
	id := uuid.New()
	c := &Context{
		id:       id,
		api:      api,
		provider: provider,
		logger:   logger.With("ctx", id.String()),
		config:   config.withDefaults(),
	}
	c.arena = NewArena(c.logger)

	if err := c.initialize(); err != nil {
		c.logger.Error("Vulkan context initialization failed.", "err", err)
		c.arena.ReleaseAll()
		return nil, err
	}
	c.logger.Info("Vulkan context initialized.", "objects", c.arena.Len())
	return c, nil
}

func (c *Context) initialize() error {
	if err := c.createInstance(); err != nil {
		return core.NewInitError(core.StageInstance, err)
	}

	if c.config.EnableValidation {
		if err := c.createDebugCallback(); err != nil {
			return core.NewInitError(core.StageDebugMessenger, err)
		}
	}

	c.logger.Debug("Creating Vulkan surface...")
	surface, err := c.provider.CreateSurface(c.instance)
	if err != nil {
		return core.NewInitError(core.StageSurface, err)
	}
	c.surface = surface
	instance := c.instance
	c.arena.Push("surface", func() { c.api.DestroySurface(instance, surface) })

	pd, indices, support, err := SelectPhysicalDevice(c.api, c.instance, c.surface, c.config.DeviceExtensions, c.logger)
	if err != nil {
		return core.NewInitError(core.StagePhysicalDevice, err)
	}
	c.physicalDevice = pd
	c.indices = indices

	device, err := createLogicalDevice(c.api, pd, indices, c.config.DeviceExtensions, c.logger)
	if err != nil {
		return core.NewInitError(core.StageLogicalDevice, err)
	}
	c.device = device
	c.arena.Push("device", func() { c.api.DestroyDevice(device) })

	// Get queues.
	c.graphicsQueue = c.api.DeviceQueue(device, *indices.Graphics)
	c.presentQueue = c.api.DeviceQueue(device, *indices.Present)
	c.logger.Debug("Queues obtained.")

	if c.frame, err = newFrameDriver(c.api, device, *indices.Graphics, c.arena, c.logger); err != nil {
		return initError(err)
	}

	vertCode, fragCode, err := c.loadShaders()
	if err != nil {
		return core.NewInitError(core.StagePipeline, err)
	}
	c.pipelineMark = c.arena.Mark()
	if err := c.buildPipelineTier(ChooseSurfaceFormat(support.Formats), vertCode, fragCode); err != nil {
		return initError(err)
	}

	c.swapchainMark = c.arena.Mark()
	if err := c.buildSwapchainTier(support); err != nil {
		if errors.Is(err, core.ErrSwapchainBooting) {
			c.logger.Info("Surface has no area yet, deferring swapchain creation.")
			c.frame.markStale()
			return nil
		}
		return initError(err)
	}
	return nil
}

func (c *Context) createInstance() error {
	// Setup Vulkan instance.
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 3, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		EngineVersion:      uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(c.config.ApplicationName),
		PEngineName:        VulkanSafeString(c.config.EngineName),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	// Obtain a list of required extensions
	requiredExtensions := append([]string(nil), c.provider.RequiredInstanceExtensions()...)
	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions, portabilityEnumerationExtension, physicalDeviceProperties2Extension)
		createInfo.Flags |= instanceCreateEnumeratePortability
	}

	var requiredLayers []string
	if c.config.EnableValidation {
		requiredExtensions = append(requiredExtensions, debugReportExtensionName)

		c.logger.Info("Validation layers enabled. Enumerating...")
		available, err := c.api.InstanceLayers()
		if err != nil {
			return err
		}
		requiredLayers = []string{validationLayerName}
		if missing := MissingExtensions(requiredLayers, available); len(missing) > 0 {
			return errors.Wrapf(core.ErrValidationLayerMissing, "%v", missing)
		}
		c.logger.Info("All required validation layers are present.")
	}
	requiredExtensions = dedupe(requiredExtensions)
	c.logger.Debug("Required extensions.", "extensions", requiredExtensions)

	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(requiredExtensions)
	createInfo.EnabledLayerCount = uint32(len(requiredLayers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(requiredLayers)

	instance, err := c.api.CreateInstance(&createInfo)
	if err != nil {
		return err
	}
	c.instance = instance
	c.arena.Push("instance", func() { c.api.DestroyInstance(instance) })
	c.logger.Info("Vulkan Instance created.")
	return nil
}

func (c *Context) createDebugCallback() error {
	c.logger.Debug("Creating Vulkan debugger...")
	debugCreateInfo := vk.DebugReportCallbackCreateInfo{
		SType: vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags: vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit |
			vk.DebugReportPerformanceWarningBit | vk.DebugReportInformationBit),
		PfnCallback: c.debugReport,
	}
	callback, err := c.api.CreateDebugReportCallback(c.instance, &debugCreateInfo)
	if err != nil {
		return err
	}
	c.debugCallback = callback
	instance := c.instance
	c.arena.Push("debug callback", func() { c.api.DestroyDebugReportCallback(instance, callback) })
	c.logger.Debug("Vulkan debugger created.")
	return nil
}

func (c *Context) debugReport(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	c.logger.Log(debugReportLevel(flags), pMessage, "layer", pLayerPrefix, "code", messageCode)
	return vk.Bool32(vk.False)
}

func debugReportLevel(flags vk.DebugReportFlags) core.LogLevel {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		return core.ErrorLevel
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit|vk.DebugReportPerformanceWarningBit) != 0:
		return core.WarnLevel
	default:
		return core.DebugLevel
	}
}

// buildPipelineTier creates the render pass and graphics pipeline for format.
func (c *Context) buildPipelineTier(format vk.SurfaceFormat, vertCode, fragCode []byte) error {
	renderpass, err := createRenderPass(c.api, c.device, format.Format, c.config.ClearColor)
	if err != nil {
		return atStage(core.StageRenderPass, err)
	}
	device := c.device
	c.arena.Push("render pass", func() { c.api.DestroyRenderPass(device, renderpass.Handle) })

	pipeline, err := createGraphicsPipeline(c.api, c.device, renderpass, vertCode, fragCode, c.arena, c.logger)
	if err != nil {
		return atStage(core.StagePipeline, err)
	}

	c.format = format
	c.vertCode, c.fragCode = vertCode, fragCode
	c.renderpass = renderpass
	c.pipeline = pipeline
	return nil
}

// buildSwapchainTier creates the swapchain, its views and one framebuffer per view.
func (c *Context) buildSwapchainTier(support SwapchainSupport) error {
	width, height := c.provider.FramebufferSize()
	swapchain, err := createSwapchain(c.api, c.device, c.surface, support, c.format, c.indices, width, height, c.arena, c.logger)
	if err != nil {
		return err
	}
	if err := createFramebuffers(c.api, c.device, c.renderpass, swapchain, c.arena); err != nil {
		return err
	}
	c.swapchain = swapchain
	return nil
}

func (c *Context) loadShaders() ([]byte, []byte, error) {
	vertCode, err := assets.ReadShaderBinary(c.config.VertexShaderPath)
	if err != nil {
		return nil, nil, err
	}
	fragCode, err := assets.ReadShaderBinary(c.config.FragmentShaderPath)
	if err != nil {
		return nil, nil, err
	}
	return vertCode, fragCode, nil
}

// rebuild recreates the swapchain tier, and the pipeline tier as well when
// the surface format changed or a shader reload is pending. A zero-area
// surface returns core.ErrSwapchainBooting and leaves everything in place.
func (c *Context) rebuild() error {
	if err := c.api.DeviceWaitIdle(c.device); err != nil {
		return errors.Wrap(err, "failed to wait for device before rebuild")
	}

	support, err := QuerySwapchainSupport(c.api, c.physicalDevice, c.surface)
	if err != nil {
		return errors.Wrap(err, "failed to requery swapchain support")
	}
	if !support.Adequate() {
		return errors.Wrap(core.ErrSurfaceLost, "surface reports no formats or present modes")
	}
	width, height := c.provider.FramebufferSize()
	if extent := ChooseExtent(support.Capabilities, width, height); extent.Width == 0 || extent.Height == 0 {
		return core.ErrSwapchainBooting
	}

	format := ChooseSurfaceFormat(support.Formats)
	vertCode, fragCode := c.vertCode, c.fragCode
	reloaded := false
	if c.reloadPending {
		c.reloadPending = false
		if v, f, err := c.loadReload(); err != nil {
			// Keep the running pipeline when the new blobs are unusable.
			c.logger.Warn("Shader reload failed, keeping current pipeline.", "err", err)
		} else {
			vertCode, fragCode, reloaded = v, f, true
		}
	}

	if reloaded || !sameFormat(format, c.format) {
		c.logger.Info("Rebuilding pipeline tier.", "format", format.Format, "reload", reloaded)
		if err := c.rebuildPipelineTier(format, vertCode, fragCode); err != nil {
			return rebuildError(err)
		}
	} else {
		c.arena.ReleaseTo(c.swapchainMark)
		c.swapchain = nil
	}

	c.logger.Debug("Rebuilding swapchain tier.")
	if err := c.buildSwapchainTier(support); err != nil {
		if errors.Is(err, core.ErrSwapchainBooting) {
			return err
		}
		return rebuildError(err)
	}
	return nil
}

// loadReload reads the shader files and has the driver check them before
// anything running is released.
func (c *Context) loadReload() ([]byte, []byte, error) {
	vertCode, fragCode, err := c.loadShaders()
	if err != nil {
		return nil, nil, err
	}
	if err := checkShaderModules(c.api, c.device, vertCode, fragCode); err != nil {
		return nil, nil, err
	}
	return vertCode, fragCode, nil
}

// rebuildPipelineTier replaces the render pass and pipeline. When new shader
// code fails to build, it falls back to the code of the previous pipeline.
func (c *Context) rebuildPipelineTier(format vk.SurfaceFormat, vertCode, fragCode []byte) error {
	previousVert, previousFrag := c.vertCode, c.fragCode
	c.arena.ReleaseTo(c.pipelineMark)
	c.swapchain, c.pipeline, c.renderpass = nil, nil, nil

	err := c.buildPipelineTier(format, vertCode, fragCode)
	if err != nil && (!bytes.Equal(vertCode, previousVert) || !bytes.Equal(fragCode, previousFrag)) {
		c.logger.Warn("Pipeline from reloaded shaders failed, restoring previous shaders.", "err", err)
		c.arena.ReleaseTo(c.pipelineMark)
		err = c.buildPipelineTier(format, previousVert, previousFrag)
	}
	if err != nil {
		return err
	}
	c.swapchainMark = c.arena.Mark()
	return nil
}

// DrawFrame renders one frame, rebuilding first if the context is stale.
// Out-of-date surfaces and zero-area windows are not errors.
func (c *Context) DrawFrame() error {
	if c.destroyed {
		return errors.New("draw on destroyed context")
	}
	if c.frame.State() == FrameStale || c.swapchain == nil {
		if err := c.rebuild(); err != nil {
			if errors.Is(err, core.ErrSwapchainBooting) {
				c.frame.markStale()
				return nil
			}
			return err
		}
		c.frame.state = FrameIdle
	}

	return c.frame.draw(frameTargets{
		graphicsQueue: c.graphicsQueue,
		presentQueue:  c.presentQueue,
		swapchain:     c.swapchain,
		renderpass:    c.renderpass,
		pipeline:      c.pipeline,
	})
}

// Invalidate marks the swapchain stale, typically after a resize.
func (c *Context) Invalidate() {
	if c.destroyed {
		return
	}
	c.frame.markStale()
}

// ReloadShaders rebuilds the pipeline from disk before the next frame.
func (c *Context) ReloadShaders() {
	if c.destroyed {
		return
	}
	c.reloadPending = true
	c.frame.markStale()
}

func (c *Context) WaitIdle() error {
	if c.destroyed {
		return nil
	}
	return c.api.DeviceWaitIdle(c.device)
}

// Destroy drains the device and releases every object in reverse creation
// order. It is safe to call more than once.
func (c *Context) Destroy() error {
	if c.destroyed {
		return nil
	}
	c.destroyed = true

	err := c.api.DeviceWaitIdle(c.device)
	if err != nil {
		c.logger.Error("vkDeviceWaitIdle failed during shutdown.", "err", err)
	}
	c.arena.ReleaseAll()
	c.swapchain, c.pipeline, c.renderpass = nil, nil, nil
	c.logger.Info("Vulkan context destroyed.")
	return err
}

func (c *Context) ID() string {
	return c.id.String()
}

func (c *Context) State() FrameState {
	return c.frame.State()
}

func (c *Context) FrameNumber() uint64 {
	return c.frame.FrameNumber()
}

// Extent is the current swapchain size, zero while the surface has no area.
func (c *Context) Extent() vk.Extent2D {
	if c.swapchain == nil {
		return vk.Extent2D{}
	}
	return c.swapchain.Extent
}

func sameFormat(a, b vk.SurfaceFormat) bool {
	return a.Format == b.Format && a.ColorSpace == b.ColorSpace
}

func dedupe(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := names[:0]
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

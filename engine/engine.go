package engine

import (
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/spaghettifunk/vkdemo/engine/assets"
	"github.com/spaghettifunk/vkdemo/engine/core"
	"github.com/spaghettifunk/vkdemo/engine/platform"
	"github.com/spaghettifunk/vkdemo/engine/renderer/vulkan"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
	// Engine released everything
	EngineStageShutdown
)

// How long a suspended loop sleeps in the event queue before checking for quit.
const suspendedWait = 100 * time.Millisecond

// Window is the part of the platform the frame loop drives.
type Window interface {
	PollEvents()
	WaitEvents(timeout time.Duration)
	ShouldClose() bool
	FramebufferSize() (int, int)
	Shutdown() error
}

// Renderer is the part of the Vulkan context the frame loop drives.
type Renderer interface {
	DrawFrame() error
	Invalidate()
	ReloadShaders()
	Destroy() error
}

type Engine struct {
	config       *ApplicationConfig
	logger       core.Logger
	events       *core.EventBus
	currentStage Stage
	isRunning    atomic.Bool
	isSuspended  bool

	window        Window
	renderer      Renderer
	watcher       *assets.ShaderWatcher
	shaderChanges <-chan string
	// startPlatform opens the window and the renderer. Replaced in tests.
	startPlatform func() (Window, Renderer, error)

	width   uint32
	height  uint32
	clock   *core.Clock
	metrics *core.Metrics
}

func New(config *ApplicationConfig, logger core.Logger) (*Engine, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = core.NopLogger()
	}
	e := &Engine{
		config:       config,
		logger:       logger,
		events:       core.NewEventBus(),
		currentStage: EngineStageUninitialized,
		clock:        core.NewClock(),
		metrics:      core.NewMetrics(),
		width:        config.StartWidth,
		height:       config.StartHeight,
	}
	e.startPlatform = e.startVulkan
	return e, nil
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing

	e.events.Register(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)
	e.events.Register(core.EVENT_CODE_KEY_PRESSED, e, e.onKey)
	e.events.Register(core.EVENT_CODE_RESIZED, e, e.onResized)
	e.events.Register(core.EVENT_CODE_SHADER_CHANGED, e, e.onShaderChanged)

	window, renderer, err := e.startPlatform()
	if err != nil {
		return err
	}
	e.window = window
	e.renderer = renderer

	if e.config.HotReloadShaders {
		watcher, err := assets.NewShaderWatcher(e.logger, e.config.VertexShader, e.config.FragmentShader)
		if err != nil {
			// The demo still runs without hot reload.
			e.logger.Warn("Shader hot reload disabled.", "err", err)
		} else {
			e.watcher = watcher
			e.shaderChanges = watcher.Changes()
		}
	}

	w, h := e.window.FramebufferSize()
	e.width, e.height = uint32(max(w, 0)), uint32(max(h, 0))
	e.isSuspended = e.width == 0 || e.height == 0

	e.isRunning.Store(true)
	e.currentStage = EngineStageInitialized
	return nil
}

func (e *Engine) startVulkan() (Window, Renderer, error) {
	p := platform.New(e.events, e.logger)
	if err := p.Startup(platform.WindowConfig{
		Title:     e.config.Name,
		X:         e.config.StartPosX,
		Y:         e.config.StartPosY,
		Width:     e.config.StartWidth,
		Height:    e.config.StartHeight,
		Resizable: e.config.Resizable,
	}); err != nil {
		return nil, nil, err
	}

	api, err := vulkan.NewVulkanAPI(p.InstanceProcAddr())
	if err != nil {
		_ = p.Shutdown()
		return nil, nil, err
	}
	ctx, err := vulkan.New(api, p, e.logger, vulkan.Config{
		ApplicationName:    e.config.Name,
		EnableValidation:   e.config.EnableValidation,
		VertexShaderPath:   e.config.VertexShader,
		FragmentShaderPath: e.config.FragmentShader,
		ClearColor:         e.config.ClearColor,
	})
	if err != nil {
		_ = p.Shutdown()
		return nil, nil, err
	}
	return p, ctx, nil
}

// Run drives frames until the window closes, a quit is requested or a frame
// fails fatally.
func (e *Engine) Run() error {
	if e.currentStage != EngineStageInitialized {
		return errors.New("engine is not initialized")
	}
	e.currentStage = EngineStageRunning
	e.clock.Start()
	e.clock.Update()
	lastLog := e.clock.Elapsed()
	logInterval := time.Duration(e.config.FPSLogInterval * float64(time.Second))

	for e.isRunning.Load() {
		e.window.PollEvents()
		if e.window.ShouldClose() {
			e.logger.Info("Window closed, shutting down.")
			break
		}
		e.drainShaderChanges()

		if e.isSuspended {
			e.window.WaitEvents(suspendedWait)
			continue
		}

		e.clock.Update()
		frameStart := e.clock.Elapsed()

		if err := e.renderer.DrawFrame(); err != nil {
			if core.IsFatal(err) {
				e.logger.Error("Frame failed, shutting down.", "err", err)
				e.isRunning.Store(false)
				return err
			}
			e.logger.Warn("Frame skipped.", "err", err)
		}

		e.clock.Update()
		now := e.clock.Elapsed()
		e.metrics.Update(now - frameStart)

		if logInterval > 0 && now-lastLog >= logInterval {
			fps, frameMS := e.metrics.Frame()
			e.logger.Info("Frame metrics.", "fps", fps, "frame_ms", frameMS)
			lastLog = now
		}
	}
	e.isRunning.Store(false)
	return nil
}

// RequestQuit asks the loop to stop after the current frame. Safe to call from
// any goroutine.
func (e *Engine) RequestQuit() {
	e.isRunning.Store(false)
}

func (e *Engine) Shutdown() error {
	if e.currentStage == EngineStageShutdown {
		return nil
	}
	e.currentStage = EngineStageShuttingDown

	var errs []error
	if e.watcher != nil {
		if err := e.watcher.Close(); err != nil {
			errs = append(errs, err)
		}
		e.watcher = nil
		e.shaderChanges = nil
	}
	if e.renderer != nil {
		if err := e.renderer.Destroy(); err != nil {
			errs = append(errs, err)
		}
	}
	e.events.Shutdown()
	if e.window != nil {
		if err := e.window.Shutdown(); err != nil {
			errs = append(errs, err)
		}
	}
	e.currentStage = EngineStageShutdown
	e.clock.Stop()

	if len(errs) > 0 {
		return errors.Wrapf(errs[0], "shutdown (%d errors)", len(errs))
	}
	return nil
}

func (e *Engine) Stage() Stage {
	return e.currentStage
}

// GetFramebufferSize returns the width and height (in this order)
// of the application framebuffer.
func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}

func (e *Engine) drainShaderChanges() {
	for {
		select {
		case path, ok := <-e.shaderChanges:
			if !ok {
				e.shaderChanges = nil
				return
			}
			e.events.Fire(e, core.EventContext{Code: core.EVENT_CODE_SHADER_CHANGED, Path: path})
		default:
			return
		}
	}
}

func (e *Engine) onEvent(sender interface{}, listener interface{}, context core.EventContext) bool {
	switch context.Code {
	case core.EVENT_CODE_APPLICATION_QUIT:
		e.logger.Info("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.isRunning.Store(false)
		return true
	}
	return false
}

func (e *Engine) onKey(sender interface{}, listener interface{}, context core.EventContext) bool {
	if context.Key == core.KEY_ESCAPE {
		// NOTE: Technically firing an event to itself, but there may be other listeners.
		e.events.Fire(e, core.EventContext{Code: core.EVENT_CODE_APPLICATION_QUIT})
		// Block anything else from processing this.
		return true
	}
	return false
}

func (e *Engine) onResized(sender interface{}, listener interface{}, context core.EventContext) bool {
	// Check if different. If so, trigger a resize.
	if context.Width == e.width && context.Height == e.height {
		return false
	}
	e.width = context.Width
	e.height = context.Height
	e.logger.Debug("Window resized.", "width", e.width, "height", e.height)

	if e.width == 0 || e.height == 0 {
		e.logger.Info("Window minimized, suspending application.")
		e.isSuspended = true
		return true
	}
	if e.isSuspended {
		e.logger.Info("Window restored, resuming application.")
		e.isSuspended = false
	}
	if e.config.Resizable && e.renderer != nil {
		e.renderer.Invalidate()
	}
	return false
}

func (e *Engine) onShaderChanged(sender interface{}, listener interface{}, context core.EventContext) bool {
	e.logger.Info("Shader changed, reloading pipeline.", "path", context.Path)
	if e.renderer != nil {
		e.renderer.ReloadShaders()
	}
	return true
}

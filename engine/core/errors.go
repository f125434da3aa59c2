package core

import (
	"errors"
	"fmt"
)

var (
	ErrSwapchainBooting       = errors.New("swapchain resized or recreated, booting")
	ErrSwapchainOutOfDate     = errors.New("swapchain out of date")
	ErrSwapchainSuboptimal    = errors.New("swapchain suboptimal")
	ErrSurfaceLost            = errors.New("surface lost")
	ErrDeviceLost             = errors.New("device lost")
	ErrOutOfMemory            = errors.New("out of memory")
	ErrNoVulkanDevice         = errors.New("no devices which support Vulkan were found")
	ErrNoSuitableDevice       = errors.New("no physical device meets the requirements")
	ErrValidationLayerMissing = errors.New("validation layers requested, but not available")
	ErrEmptyShader            = errors.New("shader binary is empty")
	ErrUnknown                = errors.New("unknown")
)

// InitStage names one step of the device context creation chain.
type InitStage string

const (
	StageInstance       InitStage = "instance"
	StageDebugMessenger InitStage = "debug messenger"
	StageSurface        InitStage = "surface"
	StagePhysicalDevice InitStage = "physical device"
	StageLogicalDevice  InitStage = "logical device"
	StageCommandPool    InitStage = "command pool"
	StageCommandBuffer  InitStage = "command buffer"
	StageSyncObjects    InitStage = "sync objects"
	StageRenderPass     InitStage = "render pass"
	StagePipeline       InitStage = "graphics pipeline"
	StageSwapchain      InitStage = "swapchain"
	StageImageViews     InitStage = "image views"
	StageFramebuffers   InitStage = "framebuffers"
)

// InitError reports which creation step failed. Everything created before the
// failing step has already been released when an InitError is returned.
type InitError struct {
	Stage InitStage
	Err   error
}

func NewInitError(stage InitStage, err error) *InitError {
	return &InitError{Stage: stage, Err: err}
}

func (e *InitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("init failed: %s", e.Stage)
	}
	return fmt.Sprintf("init failed: %s: %v", e.Stage, e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err must stop the frame loop. Out-of-date and
// suboptimal swapchains are recoverable, everything else is not.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrSwapchainOutOfDate) &&
		!errors.Is(err, ErrSwapchainSuboptimal) &&
		!errors.Is(err, ErrSwapchainBooting)
}

package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/vkdemo/engine/core"
)

// ResultError is a non-success VkResult returned by the call named in Op.
type ResultError struct {
	Op     string
	Result vk.Result
}

func (e *ResultError) Error() string {
	if VulkanResultIsSuccess(e.Result) {
		return e.Op + " returned " + VulkanResultString(e.Result)
	}
	return e.Op + " failed: " + VulkanResultString(e.Result)
}

// Is maps result codes onto the engine's sentinel errors so callers can branch
// with errors.Is without knowing about VkResult.
func (e *ResultError) Is(target error) bool {
	switch target {
	case core.ErrSwapchainOutOfDate:
		return e.Result == vk.ErrorOutOfDate
	case core.ErrSwapchainSuboptimal:
		return e.Result == vk.Suboptimal
	case core.ErrDeviceLost:
		return e.Result == vk.ErrorDeviceLost
	case core.ErrSurfaceLost:
		return e.Result == vk.ErrorSurfaceLost
	case core.ErrOutOfMemory:
		return e.Result == vk.ErrorOutOfHostMemory || e.Result == vk.ErrorOutOfDeviceMemory
	}
	return false
}

// checkResult turns anything but VK_SUCCESS into a *ResultError.
func checkResult(op string, res vk.Result) error {
	if res == vk.Success {
		return nil
	}
	return &ResultError{Op: op, Result: res}
}

// stageError tags a creation failure with the step that produced it. The same
// builders run at init and on rebuild, so the caller decides how to report it.
type stageError struct {
	stage core.InitStage
	err   error
}

func atStage(stage core.InitStage, err error) error {
	return &stageError{stage: stage, err: err}
}

func (e *stageError) Error() string {
	return string(e.stage) + ": " + e.err.Error()
}

func (e *stageError) Unwrap() error {
	return e.err
}

// initError reports a creation failure from the init chain as *core.InitError.
func initError(err error) error {
	var se *stageError
	if errors.As(err, &se) {
		return core.NewInitError(se.stage, se.err)
	}
	return err
}

// rebuildError reports a creation failure from a runtime rebuild.
func rebuildError(err error) error {
	var se *stageError
	if errors.As(err, &se) {
		return errors.Wrapf(se.err, "rebuild %s", se.stage)
	}
	return errors.Wrap(err, "rebuild")
}

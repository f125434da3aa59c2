package vulkan

import (
	"math"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/vkdemo/engine/core"
)

type FrameState int

const (
	FrameIdle FrameState = iota
	FrameAcquiring
	FrameRecording
	FrameSubmitted
	FramePresenting
	// FrameStale means the swapchain no longer matches the surface and must
	// be rebuilt before the next frame.
	FrameStale
)

func (s FrameState) String() string {
	switch s {
	case FrameIdle:
		return "idle"
	case FrameAcquiring:
		return "acquiring"
	case FrameRecording:
		return "recording"
	case FrameSubmitted:
		return "submitted"
	case FramePresenting:
		return "presenting"
	case FrameStale:
		return "stale"
	default:
		return "unknown"
	}
}

// FrameDriver owns the command pool, the single command buffer and the sync
// primitives, and runs one frame at a time.
type FrameDriver struct {
	api    API
	device vk.Device
	logger core.Logger

	pool           vk.CommandPool
	commandBuffer  *VulkanCommandBuffer
	imageAvailable vk.Semaphore
	renderFinished vk.Semaphore
	inFlight       *VulkanFence

	state       FrameState
	frameNumber uint64
}

// frameTargets are the per-tier objects a frame renders with.
type frameTargets struct {
	graphicsQueue vk.Queue
	presentQueue  vk.Queue
	swapchain     *Swapchain
	renderpass    *VulkanRenderpass
	pipeline      *VulkanPipeline
}

// newFrameDriver creates the command pool on the graphics family, one primary
// command buffer, two semaphores and a signaled fence.
func newFrameDriver(api API, device vk.Device, graphicsFamily uint32, arena *Arena, logger core.Logger) (*FrameDriver, error) {
	fd := &FrameDriver{
		api:    api,
		device: device,
		logger: logger,
		state:  FrameIdle,
	}

	// Create command pool for graphics queue.
	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: graphicsFamily,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	pool, err := api.CreateCommandPool(device, &poolCreateInfo)
	if err != nil {
		return nil, atStage(core.StageCommandPool, err)
	}
	fd.pool = pool
	arena.Push("command pool", func() { api.DestroyCommandPool(device, pool) })
	logger.Debug("Graphics command pool created.")

	commandBuffer, err := NewVulkanCommandBuffer(api, device, pool)
	if err != nil {
		return nil, atStage(core.StageCommandBuffer, err)
	}
	fd.commandBuffer = commandBuffer
	arena.Push("command buffer", func() { commandBuffer.Free(api, device, pool) })

	if fd.imageAvailable, err = api.CreateSemaphore(device); err != nil {
		return nil, atStage(core.StageSyncObjects, err)
	}
	imageAvailable := fd.imageAvailable
	arena.Push("image available semaphore", func() { api.DestroySemaphore(device, imageAvailable) })

	if fd.renderFinished, err = api.CreateSemaphore(device); err != nil {
		return nil, atStage(core.StageSyncObjects, err)
	}
	renderFinished := fd.renderFinished
	arena.Push("render finished semaphore", func() { api.DestroySemaphore(device, renderFinished) })

	// Created signaled so the first frame does not block.
	if fd.inFlight, err = NewFence(api, device, true); err != nil {
		return nil, atStage(core.StageSyncObjects, err)
	}
	inFlight := fd.inFlight
	arena.Push("in-flight fence", func() { inFlight.Destroy(api, device) })

	return fd, nil
}

func (fd *FrameDriver) State() FrameState {
	return fd.state
}

func (fd *FrameDriver) FrameNumber() uint64 {
	return fd.frameNumber
}

func (fd *FrameDriver) markStale() {
	fd.state = FrameStale
}

// draw runs one acquire/record/submit/present cycle. Out-of-date and
// suboptimal results leave the driver Stale and return nil; anything else is
// returned wrapped with the frame number.
func (fd *FrameDriver) draw(t frameTargets) error {
	fd.frameNumber++

	// Wait for the previous frame to complete. The fence being free will allow this one to move on.
	fd.state = FrameAcquiring
	if err := fd.inFlight.Wait(fd.api, fd.device, math.MaxUint64); err != nil {
		return fd.fail(err)
	}

	imageIndex, err := fd.api.AcquireNextImage(fd.device, t.swapchain.Handle, math.MaxUint64, fd.imageAvailable)
	suboptimal := false
	switch {
	case err == nil:
	case errors.Is(err, core.ErrSwapchainOutOfDate):
		// Trigger swapchain recreation, then boot out of the frame. The
		// fence stays signaled because it was not reset.
		fd.logger.Debug("Swapchain out of date on acquire, skipping frame.", "frame", fd.frameNumber)
		fd.state = FrameStale
		return nil
	case errors.Is(err, core.ErrSwapchainSuboptimal):
		suboptimal = true
	default:
		return fd.fail(err)
	}
	if int(imageIndex) >= len(t.swapchain.Framebuffers) {
		return fd.fail(errors.Errorf("acquired image %d but only %d framebuffers exist", imageIndex, len(t.swapchain.Framebuffers)))
	}

	// Reset the fence for use on this frame.
	if err := fd.inFlight.Reset(fd.api, fd.device); err != nil {
		return fd.fail(err)
	}

	fd.state = FrameRecording
	if err := fd.record(t, imageIndex); err != nil {
		return fd.fail(err)
	}

	if err := fd.submit(t.graphicsQueue); err != nil {
		return fd.fail(err)
	}
	fd.state = FrameSubmitted

	err = fd.present(t.presentQueue, t.swapchain, imageIndex)
	switch {
	case err == nil:
	case errors.Is(err, core.ErrSwapchainOutOfDate), errors.Is(err, core.ErrSwapchainSuboptimal):
		// Swapchain is out of date, suboptimal or a framebuffer resize has occurred. Trigger swapchain recreation.
		fd.logger.Debug("Swapchain needs recreation after present.", "frame", fd.frameNumber, "err", err)
		fd.state = FrameStale
		return nil
	default:
		return fd.fail(err)
	}

	if suboptimal {
		fd.state = FrameStale
		return nil
	}
	fd.state = FrameIdle
	return nil
}

func (fd *FrameDriver) record(t frameTargets, imageIndex uint32) error {
	commandBuffer := fd.commandBuffer
	if err := commandBuffer.Reset(fd.api); err != nil {
		return err
	}
	if err := commandBuffer.Begin(fd.api, false); err != nil {
		return err
	}

	extent := t.swapchain.Extent
	t.renderpass.Begin(fd.api, commandBuffer, t.swapchain.Framebuffers[imageIndex], extent)
	t.pipeline.Bind(fd.api, commandBuffer)

	// Dynamic state
	fd.api.CmdSetViewport(commandBuffer.Handle, vk.Viewport{
		X:        0.0,
		Y:        0.0,
		Width:    float32(extent.Width),
		Height:   float32(extent.Height),
		MinDepth: 0.0,
		MaxDepth: 1.0,
	})
	fd.api.CmdSetScissor(commandBuffer.Handle, vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: extent,
	})

	fd.api.CmdDraw(commandBuffer.Handle, 3, 1, 0, 0)

	t.renderpass.End(fd.api, commandBuffer)
	return commandBuffer.End(fd.api)
}

func (fd *FrameDriver) submit(queue vk.Queue) error {
	submitInfo := vk.SubmitInfo{
		SType: vk.StructureTypeSubmitInfo,

		// Wait semaphore ensures that the operation cannot begin until the image is available.
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{fd.imageAvailable},
		PWaitDstStageMask:  []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},

		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{fd.commandBuffer.Handle},

		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{fd.renderFinished},
	}
	if err := fd.api.QueueSubmit(queue, &submitInfo, fd.inFlight.Handle); err != nil {
		return err
	}
	fd.commandBuffer.UpdateSubmitted()
	return nil
}

func (fd *FrameDriver) present(queue vk.Queue, swapchain *Swapchain, imageIndex uint32) error {
	if fd.state != FrameSubmitted {
		return errors.Errorf("cannot present in state %s", fd.state)
	}
	fd.state = FramePresenting
	// Return the image to the swapchain for presentation.
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{fd.renderFinished},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{swapchain.Handle},
		PImageIndices:      []uint32{imageIndex},
	}
	return fd.api.QueuePresent(queue, &presentInfo)
}

func (fd *FrameDriver) fail(err error) error {
	return errors.Wrapf(err, "frame %d", fd.frameNumber)
}

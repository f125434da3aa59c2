package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
)

type VulkanFence struct {
	Handle     vk.Fence
	IsSignaled bool
}

func NewFence(api API, device vk.Device, createSignaled bool) (*VulkanFence, error) {
	handle, err := api.CreateFence(device, createSignaled)
	if err != nil {
		return nil, err
	}
	return &VulkanFence{
		Handle: handle,
		// Make sure to signal the fence if required.
		IsSignaled: createSignaled,
	}, nil
}

func (vf *VulkanFence) Destroy(api API, device vk.Device) {
	api.DestroyFence(device, vf.Handle)
	vf.Handle = vk.NullFence
	vf.IsSignaled = false
}

// Wait blocks until the GPU signals the fence. The call always reaches the
// driver so the host never trusts a stale IsSignaled.
func (vf *VulkanFence) Wait(api API, device vk.Device, timeoutNs uint64) error {
	if err := api.WaitForFence(device, vf.Handle, timeoutNs); err != nil {
		return errors.Wrap(err, "vk_fence_wait")
	}
	vf.IsSignaled = true
	return nil
}

// Reset unsignals the fence. Resetting a fence that was never observed
// signaled would let the next Wait block forever, so it is refused.
func (vf *VulkanFence) Reset(api API, device vk.Device) error {
	if !vf.IsSignaled {
		return errors.New("vk_fence_reset: fence is not signaled")
	}
	if err := api.ResetFence(device, vf.Handle); err != nil {
		return errors.Wrap(err, "vk_fence_reset")
	}
	vf.IsSignaled = false
	return nil
}

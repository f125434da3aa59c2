package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkdemo/engine/core"
)

// createFramebuffers builds one framebuffer per swapchain view, all sharing
// renderpass, and stores them on the swapchain.
func createFramebuffers(api API, device vk.Device, renderpass *VulkanRenderpass, swapchain *Swapchain, arena *Arena) error {
	swapchain.Framebuffers = make([]vk.Framebuffer, 0, len(swapchain.Views))
	for i, view := range swapchain.Views {
		framebufferCreateInfo := vk.FramebufferCreateInfo{
			SType:           vk.StructureTypeFramebufferCreateInfo,
			RenderPass:      renderpass.Handle,
			AttachmentCount: 1,
			PAttachments:    []vk.ImageView{view},
			Width:           swapchain.Extent.Width,
			Height:          swapchain.Extent.Height,
			Layers:          1,
		}

		framebuffer, err := api.CreateFramebuffer(device, &framebufferCreateInfo)
		if err != nil {
			return atStage(core.StageFramebuffers, err)
		}
		swapchain.Framebuffers = append(swapchain.Framebuffers, framebuffer)
		arena.Push(fmt.Sprintf("framebuffer %d", i), func() { api.DestroyFramebuffer(device, framebuffer) })
	}
	return nil
}

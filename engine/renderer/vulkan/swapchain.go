package vulkan

import (
	"fmt"
	"math"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkdemo/engine/core"
	kmath "github.com/spaghettifunk/vkdemo/engine/math"
)

type Swapchain struct {
	Handle      vk.Swapchain
	Format      vk.SurfaceFormat
	Extent      vk.Extent2D
	PresentMode vk.PresentMode
	Images      []vk.Image
	Views       []vk.ImageView

	// framebuffers used for on-screen rendering, one per view.
	Framebuffers []vk.Framebuffer
}

// ChooseSurfaceFormat prefers B8G8R8A8_SRGB with the sRGB non-linear color
// space and falls back to the first reported format.
func ChooseSurfaceFormat(formats []vk.SurfaceFormat) vk.SurfaceFormat {
	for _, format := range formats {
		// Preferred formats
		if format.Format == vk.FormatB8g8r8a8Srgb && format.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return format
		}
	}
	if len(formats) == 0 {
		return vk.SurfaceFormat{}
	}
	return formats[0]
}

// ChoosePresentMode prefers MAILBOX. FIFO is always available.
func ChoosePresentMode(modes []vk.PresentMode) vk.PresentMode {
	for _, mode := range modes {
		if mode == vk.PresentModeMailbox {
			return mode
		}
	}
	return vk.PresentModeFifo
}

// ChooseExtent uses the surface's current extent unless the surface leaves it
// undefined (MaxUint32), in which case the framebuffer size is clamped into
// the allowed range.
func ChooseExtent(caps vk.SurfaceCapabilities, fbWidth, fbHeight int) vk.Extent2D {
	if caps.CurrentExtent.Width != math.MaxUint32 {
		return caps.CurrentExtent
	}
	// Clamp to the value allowed by the GPU.
	return vk.Extent2D{
		Width:  kmath.Clamp(uint32(max(fbWidth, 0)), caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: kmath.Clamp(uint32(max(fbHeight, 0)), caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
}

// ChooseImageCount asks for one image more than the minimum. A maximum of
// zero means unbounded.
func ChooseImageCount(caps vk.SurfaceCapabilities) uint32 {
	imageCount := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && imageCount > caps.MaxImageCount {
		imageCount = caps.MaxImageCount
	}
	return imageCount
}

// ChooseSharingMode shares images concurrently when graphics and present
// live in different families.
func ChooseSharingMode(indices QueueFamilyIndices) (vk.SharingMode, []uint32) {
	if *indices.Graphics != *indices.Present {
		return vk.SharingModeConcurrent, []uint32{*indices.Graphics, *indices.Present}
	}
	return vk.SharingModeExclusive, nil
}

// createSwapchain builds the swapchain and one view per image, registering
// both with the arena. A zero-area extent returns core.ErrSwapchainBooting
// without creating anything.
func createSwapchain(api API, device vk.Device, surface vk.Surface, support SwapchainSupport, format vk.SurfaceFormat, indices QueueFamilyIndices, fbWidth, fbHeight int, arena *Arena, logger core.Logger) (*Swapchain, error) {
	extent := ChooseExtent(support.Capabilities, fbWidth, fbHeight)
	if extent.Width == 0 || extent.Height == 0 {
		return nil, core.ErrSwapchainBooting
	}

	swapchain := &Swapchain{
		Format:      format,
		Extent:      extent,
		PresentMode: ChoosePresentMode(support.PresentModes),
	}

	sharingMode, familyIndices := ChooseSharingMode(indices)
	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:                 vk.StructureTypeSwapchainCreateInfo,
		Surface:               surface,
		MinImageCount:         ChooseImageCount(support.Capabilities),
		ImageFormat:           format.Format,
		ImageColorSpace:       format.ColorSpace,
		ImageExtent:           extent,
		ImageArrayLayers:      1,
		ImageUsage:            vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageSharingMode:      sharingMode,
		QueueFamilyIndexCount: uint32(len(familyIndices)),
		PQueueFamilyIndices:   familyIndices,
		PreTransform:          support.Capabilities.CurrentTransform,
		CompositeAlpha:        vk.CompositeAlphaOpaqueBit,
		PresentMode:           swapchain.PresentMode,
		Clipped:               vk.True,
		OldSwapchain:          vk.NullSwapchain,
	}

	handle, err := api.CreateSwapchain(device, &swapchainCreateInfo)
	if err != nil {
		return nil, atStage(core.StageSwapchain, err)
	}
	swapchain.Handle = handle
	arena.Push("swapchain", func() { api.DestroySwapchain(device, handle) })

	images, err := api.SwapchainImages(device, handle)
	if err != nil {
		return nil, atStage(core.StageSwapchain, err)
	}
	swapchain.Images = images

	swapchain.Views = make([]vk.ImageView, 0, len(images))
	for i, image := range images {
		view, err := createImageView(api, device, image, format.Format)
		if err != nil {
			return nil, atStage(core.StageImageViews, err)
		}
		swapchain.Views = append(swapchain.Views, view)
		arena.Push(fmt.Sprintf("image view %d", i), func() { api.DestroyImageView(device, view) })
	}

	logger.Info("Swapchain created.",
		"width", extent.Width,
		"height", extent.Height,
		"images", len(images),
		"present_mode", presentModeString(swapchain.PresentMode),
	)
	return swapchain, nil
}

func createImageView(api API, device vk.Device, image vk.Image, format vk.Format) (vk.ImageView, error) {
	viewCreateInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
	return api.CreateImageView(device, &viewCreateInfo)
}

func presentModeString(mode vk.PresentMode) string {
	switch mode {
	case vk.PresentModeImmediate:
		return "immediate"
	case vk.PresentModeMailbox:
		return "mailbox"
	case vk.PresentModeFifo:
		return "fifo"
	case vk.PresentModeFifoRelaxed:
		return "fifo_relaxed"
	default:
		return "unknown"
	}
}

package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/vkdemo/engine/core"
)

const (
	swapchainExtensionName         = "VK_KHR_swapchain"
	portabilitySubsetExtensionName = "VK_KHR_portability_subset"
)

// QueueFamilyIndices holds the families chosen for graphics and presentation.
// A nil index means no family has been found yet.
type QueueFamilyIndices struct {
	Graphics *uint32
	Present  *uint32
}

func (q QueueFamilyIndices) IsComplete() bool {
	return q.Graphics != nil && q.Present != nil
}

// Unique returns the distinct family indices, graphics first.
func (q QueueFamilyIndices) Unique() []uint32 {
	if !q.IsComplete() {
		return nil
	}
	if *q.Graphics == *q.Present {
		return []uint32{*q.Graphics}
	}
	return []uint32{*q.Graphics, *q.Present}
}

// FindQueueFamilies records the first family with the graphics bit and the
// first family able to present, stopping as soon as both are known.
func FindQueueFamilies(families []vk.QueueFamilyProperties, presentSupport func(family uint32) (bool, error)) (QueueFamilyIndices, error) {
	var indices QueueFamilyIndices
	for i := range families {
		family := uint32(i)
		if indices.Graphics == nil && families[i].QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
			indices.Graphics = &family
		}
		if indices.Present == nil {
			supported, err := presentSupport(family)
			if err != nil {
				return indices, err
			}
			if supported {
				indices.Present = &family
			}
		}
		if indices.IsComplete() {
			break
		}
	}
	return indices, nil
}

// MissingExtensions returns the required names absent from available, in
// the order they were required.
func MissingExtensions(required, available []string) []string {
	have := make(map[string]struct{}, len(available))
	for _, name := range available {
		have[trimNull(name)] = struct{}{}
	}
	var missing []string
	for _, name := range required {
		if _, ok := have[trimNull(name)]; !ok {
			missing = append(missing, trimNull(name))
		}
	}
	return missing
}

func trimNull(s string) string {
	for len(s) > 0 && s[len(s)-1] == endChar {
		s = s[:len(s)-1]
	}
	return s
}

type SwapchainSupport struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

// Adequate reports whether the surface offers at least one format and one present mode.
func (s SwapchainSupport) Adequate() bool {
	return len(s.Formats) > 0 && len(s.PresentModes) > 0
}

func QuerySwapchainSupport(api API, pd *PhysicalDevice, surface vk.Surface) (SwapchainSupport, error) {
	var support SwapchainSupport
	var err error
	if support.Capabilities, err = api.SurfaceCapabilities(pd, surface); err != nil {
		return support, err
	}
	if support.Formats, err = api.SurfaceFormats(pd, surface); err != nil {
		return support, err
	}
	if support.PresentModes, err = api.SurfacePresentModes(pd, surface); err != nil {
		return support, err
	}
	return support, nil
}

// SelectPhysicalDevice returns the first enumerated device that has complete
// queue families, every required extension and an adequate swapchain.
func SelectPhysicalDevice(api API, instance vk.Instance, surface vk.Surface, requiredExtensions []string, logger core.Logger) (*PhysicalDevice, QueueFamilyIndices, SwapchainSupport, error) {
	devices, err := api.PhysicalDevices(instance)
	if err != nil {
		return nil, QueueFamilyIndices{}, SwapchainSupport{}, err
	}
	if len(devices) == 0 {
		logger.Error("No devices which support Vulkan were found.")
		return nil, QueueFamilyIndices{}, SwapchainSupport{}, core.ErrNoVulkanDevice
	}

	for _, pd := range devices {
		indices, support, ok, err := deviceMeetsRequirements(api, pd, surface, requiredExtensions, logger)
		if err != nil {
			return nil, QueueFamilyIndices{}, SwapchainSupport{}, errors.Wrapf(err, "failed to evaluate device '%s'", pd.Name)
		}
		if !ok {
			continue
		}
		logDeviceInfo(logger, pd, indices)
		return pd, indices, support, nil
	}

	logger.Error("No physical devices were found which meet the requirements.")
	return nil, QueueFamilyIndices{}, SwapchainSupport{}, core.ErrNoSuitableDevice
}

func deviceMeetsRequirements(api API, pd *PhysicalDevice, surface vk.Surface, requiredExtensions []string, logger core.Logger) (QueueFamilyIndices, SwapchainSupport, bool, error) {
	indices, err := FindQueueFamilies(api.QueueFamilies(pd), func(family uint32) (bool, error) {
		return api.SurfaceSupport(pd, family, surface)
	})
	if err != nil {
		return indices, SwapchainSupport{}, false, err
	}
	if !indices.IsComplete() {
		logger.Info("Device lacks a graphics or present queue, skipping.", "device", pd.Name)
		return indices, SwapchainSupport{}, false, nil
	}

	available, err := api.DeviceExtensions(pd)
	if err != nil {
		return indices, SwapchainSupport{}, false, err
	}
	if missing := MissingExtensions(requiredExtensions, available); len(missing) > 0 {
		logger.Info("Required extension not found, skipping device.", "device", pd.Name, "missing", missing)
		return indices, SwapchainSupport{}, false, nil
	}

	support, err := QuerySwapchainSupport(api, pd, surface)
	if err != nil {
		return indices, support, false, err
	}
	if !support.Adequate() {
		logger.Info("Required swapchain support not present, skipping device.", "device", pd.Name)
		return indices, support, false, nil
	}
	return indices, support, true, nil
}

func logDeviceInfo(logger core.Logger, pd *PhysicalDevice, indices QueueFamilyIndices) {
	logger.Info("Selected device.",
		"name", pd.Name,
		"type", deviceTypeString(pd.Type),
		"driver", versionString(pd.DriverVersion),
		"api", versionString(pd.APIVersion),
	)
	logger.Debug("Queue families.", "graphics", *indices.Graphics, "present", *indices.Present)
}

func deviceTypeString(t vk.PhysicalDeviceType) string {
	switch t {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return "Integrated"
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return "Discrete"
	case vk.PhysicalDeviceTypeVirtualGpu:
		return "Virtual"
	case vk.PhysicalDeviceTypeCpu:
		return "CPU"
	default:
		return "Unknown"
	}
}

func versionString(v uint32) string {
	return fmt.Sprintf("%d.%d.%d", v>>22, (v>>12)&0x3ff, v&0xfff)
}

// createLogicalDevice creates the device with one queue per distinct family.
// VK_KHR_portability_subset is enabled whenever the device reports it.
func createLogicalDevice(api API, pd *PhysicalDevice, indices QueueFamilyIndices, requiredExtensions []string, logger core.Logger) (vk.Device, error) {
	logger.Info("Creating logical device...")

	// NOTE: Do not create additional queues for shared indices.
	families := indices.Unique()
	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, len(families))
	for i, family := range families {
		queueCreateInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: family,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}

	available, err := api.DeviceExtensions(pd)
	if err != nil {
		return nil, err
	}
	extensionNames := append([]string(nil), requiredExtensions...)
	if len(MissingExtensions([]string{portabilitySubsetExtensionName}, available)) == 0 {
		logger.Info("Adding required extension.", "extension", portabilitySubsetExtensionName)
		extensionNames = append(extensionNames, portabilitySubsetExtensionName)
	}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{{}},
		EnabledExtensionCount:   uint32(len(extensionNames)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensionNames),
	}

	device, err := api.CreateDevice(pd, &deviceCreateInfo)
	if err != nil {
		return nil, err
	}
	logger.Info("Logical device created.")
	return device, nil
}

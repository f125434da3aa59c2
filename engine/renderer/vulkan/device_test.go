package vulkan

import (
	"errors"
	"reflect"
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkdemo/engine/core"
)

func TestFindQueueFamilies(t *testing.T) {
	families := []vk.QueueFamilyProperties{
		{QueueFlags: vk.QueueFlags(vk.QueueTransferBit)},
		{QueueFlags: vk.QueueFlags(vk.QueueComputeBit)},
		{QueueFlags: vk.QueueFlags(vk.QueueGraphicsBit)},
		{QueueFlags: vk.QueueFlags(vk.QueueGraphicsBit)},
	}
	present := map[uint32]bool{0: true, 3: true}
	var asked []uint32

	indices, err := FindQueueFamilies(families, func(family uint32) (bool, error) {
		asked = append(asked, family)
		return present[family], nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if !indices.IsComplete() {
		t.Fatal("IsComplete() = false")
	}
	if *indices.Graphics != 2 || *indices.Present != 0 {
		t.Errorf("graphics = %d, present = %d, want 2 and 0", *indices.Graphics, *indices.Present)
	}
	if !reflect.DeepEqual(asked, []uint32{0}) {
		t.Errorf("present support queried for %v, want only family 0", asked)
	}
	if got := indices.Unique(); !reflect.DeepEqual(got, []uint32{2, 0}) {
		t.Errorf("Unique() = %v", got)
	}
}

func TestFindQueueFamiliesIncomplete(t *testing.T) {
	families := []vk.QueueFamilyProperties{{QueueFlags: vk.QueueFlags(vk.QueueComputeBit)}}
	indices, err := FindQueueFamilies(families, func(uint32) (bool, error) { return true, nil })
	if err != nil {
		t.Fatal(err)
	}
	if indices.IsComplete() {
		t.Error("IsComplete() = true without a graphics family")
	}
	if indices.Unique() != nil {
		t.Error("Unique() on incomplete indices should be nil")
	}

	boom := errors.New("boom")
	if _, err := FindQueueFamilies(families, func(uint32) (bool, error) { return false, boom }); !errors.Is(err, boom) {
		t.Errorf("error = %v, want %v", err, boom)
	}
}

func TestMissingExtensions(t *testing.T) {
	tests := []struct {
		name      string
		required  []string
		available []string
		want      []string
	}{
		{"all present", []string{"VK_KHR_swapchain"}, []string{"VK_KHR_maintenance1", "VK_KHR_swapchain"}, nil},
		{"null terminated", []string{"VK_KHR_swapchain\x00"}, []string{"VK_KHR_swapchain"}, nil},
		{"missing", []string{"VK_KHR_swapchain", "VK_KHR_ray_query"}, []string{"VK_KHR_swapchain"}, []string{"VK_KHR_ray_query"}},
		{"nothing available", []string{"VK_KHR_swapchain"}, nil, []string{"VK_KHR_swapchain"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MissingExtensions(tt.required, tt.available); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("MissingExtensions() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSelectPhysicalDeviceFirstFit(t *testing.T) {
	api := newFakeAPI()
	noExt := newFakeDevice("no-swapchain")
	noExt.extensions = nil
	noPresent := newFakeDevice("no-present")
	noPresent.present = nil
	noFormats := newFakeDevice("no-formats")
	noFormats.formats = nil
	api.devices = []*fakeDevice{noExt, noPresent, noFormats, newFakeDevice("first-fit"), newFakeDevice("second-fit")}

	pd, indices, support, err := SelectPhysicalDevice(api, nil, vk.NullSurface, []string{swapchainExtensionName}, core.NopLogger())
	if err != nil {
		t.Fatalf("SelectPhysicalDevice() error = %v", err)
	}
	if pd.Name != "first-fit" {
		t.Errorf("selected %q, want first-fit", pd.Name)
	}
	if !indices.IsComplete() {
		t.Error("indices incomplete")
	}
	if !support.Adequate() {
		t.Error("support not adequate")
	}
}

func TestSelectPhysicalDeviceNoneQualifies(t *testing.T) {
	api := newFakeAPI()
	d := newFakeDevice("no-modes")
	d.modes = nil
	api.devices = []*fakeDevice{d}

	_, _, _, err := SelectPhysicalDevice(api, nil, vk.NullSurface, []string{swapchainExtensionName}, core.NopLogger())
	if !errors.Is(err, core.ErrNoSuitableDevice) {
		t.Fatalf("error = %v, want ErrNoSuitableDevice", err)
	}

	api.devices = nil
	_, _, _, err = SelectPhysicalDevice(api, nil, vk.NullSurface, []string{swapchainExtensionName}, core.NopLogger())
	if !errors.Is(err, core.ErrNoVulkanDevice) {
		t.Fatalf("error = %v, want ErrNoVulkanDevice", err)
	}
}

func TestVersionString(t *testing.T) {
	if got := versionString(uint32(vk.MakeVersion(1, 3, 250))); got != "1.3.250" {
		t.Errorf("versionString() = %q", got)
	}
	if got := deviceTypeString(vk.PhysicalDeviceTypeDiscreteGpu); got != "Discrete" {
		t.Errorf("deviceTypeString() = %q", got)
	}
}

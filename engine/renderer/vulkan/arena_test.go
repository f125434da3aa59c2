package vulkan

import (
	"reflect"
	"testing"
)

func TestArenaReleasesInReverse(t *testing.T) {
	var released []string
	a := NewArena(nil)
	for _, name := range []string{"instance", "surface", "device", "render pass", "swapchain", "framebuffer"} {
		name := name
		a.Push(name, func() { released = append(released, name) })
	}
	a.Push("ignored", nil)
	if a.Len() != 6 {
		t.Fatalf("Len() = %d, want 6", a.Len())
	}

	a.ReleaseAll()
	want := []string{"framebuffer", "swapchain", "render pass", "device", "surface", "instance"}
	if !reflect.DeepEqual(released, want) {
		t.Errorf("released %v, want %v", released, want)
	}
	if a.Len() != 0 {
		t.Errorf("Len() after ReleaseAll = %d", a.Len())
	}
}

func TestArenaReleaseToMark(t *testing.T) {
	var released []string
	push := func(a *Arena, name string) {
		a.Push(name, func() { released = append(released, name) })
	}

	a := NewArena(nil)
	push(a, "device")
	pipelineMark := a.Mark()
	push(a, "pipeline")
	swapchainMark := a.Mark()
	push(a, "swapchain")
	push(a, "framebuffer")

	a.ReleaseTo(swapchainMark)
	if !reflect.DeepEqual(released, []string{"framebuffer", "swapchain"}) {
		t.Fatalf("swapchain tier released %v", released)
	}
	if got := a.Names(); !reflect.DeepEqual(got, []string{"device", "pipeline"}) {
		t.Fatalf("Names() = %v", got)
	}

	push(a, "swapchain 2")
	released = nil
	a.ReleaseTo(pipelineMark)
	if !reflect.DeepEqual(released, []string{"swapchain 2", "pipeline"}) {
		t.Fatalf("pipeline tier released %v", released)
	}

	// A mark above the current depth is a no-op.
	released = nil
	a.ReleaseTo(10)
	if len(released) != 0 {
		t.Errorf("ReleaseTo above depth released %v", released)
	}
}

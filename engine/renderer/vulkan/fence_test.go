package vulkan

import (
	"testing"
)

func TestFenceResetRequiresWait(t *testing.T) {
	api := newFakeAPI()
	fence, err := NewFence(api, nil, false)
	if err != nil {
		t.Fatal(err)
	}
	if err := fence.Reset(api, nil); err == nil {
		t.Fatal("Reset() on an unsignaled fence succeeded")
	}
	if api.count("ResetFence") != 0 {
		t.Fatal("ResetFence reached the driver")
	}

	if err := fence.Wait(api, nil, 1); err != nil {
		t.Fatal(err)
	}
	if !fence.IsSignaled {
		t.Fatal("IsSignaled = false after Wait")
	}
	if err := fence.Reset(api, nil); err != nil {
		t.Fatal(err)
	}
	if fence.IsSignaled {
		t.Error("IsSignaled = true after Reset")
	}

	fence.Destroy(api, nil)
	if len(api.live) != 0 {
		t.Errorf("live = %v", api.live)
	}
}

func TestFenceWaitAlwaysReachesDriver(t *testing.T) {
	api := newFakeAPI()
	fence, err := NewFence(api, nil, true)
	if err != nil {
		t.Fatal(err)
	}
	if !fence.IsSignaled {
		t.Fatal("fence created signaled reports unsignaled")
	}
	_ = fence.Wait(api, nil, 1)
	_ = fence.Wait(api, nil, 1)
	if n := api.count("WaitForFence"); n != 2 {
		t.Errorf("WaitForFence called %d times, want 2", n)
	}
}

func TestCommandBufferStates(t *testing.T) {
	api := newFakeAPI()
	cb, err := NewVulkanCommandBuffer(api, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if cb.State != COMMAND_BUFFER_STATE_READY {
		t.Fatalf("State = %d, want ready", cb.State)
	}
	if err := cb.Begin(api, true); err != nil {
		t.Fatal(err)
	}
	if err := cb.Begin(api, true); err == nil {
		t.Error("Begin() while recording succeeded")
	}
	if err := cb.End(api); err != nil {
		t.Fatal(err)
	}
	cb.UpdateSubmitted()
	if cb.State != COMMAND_BUFFER_STATE_SUBMITTED {
		t.Errorf("State = %d, want submitted", cb.State)
	}
	if err := cb.Reset(api); err != nil {
		t.Fatal(err)
	}
	if cb.State != COMMAND_BUFFER_STATE_READY {
		t.Errorf("State = %d after Reset, want ready", cb.State)
	}
	cb.Free(api, nil, nil)
	if cb.State != COMMAND_BUFFER_STATE_NOT_ALLOCATED {
		t.Errorf("State = %d after Free", cb.State)
	}
}

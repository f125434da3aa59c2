package core

// System internal event codes.
type SystemEventCode uint16

const (
	// Shuts the application down on the next frame.
	EVENT_CODE_APPLICATION_QUIT SystemEventCode = 0x01
	// Keyboard key pressed. Key holds the platform key code.
	EVENT_CODE_KEY_PRESSED SystemEventCode = 0x02
	// Keyboard key released. Key holds the platform key code.
	EVENT_CODE_KEY_RELEASED SystemEventCode = 0x03
	// Framebuffer resized by the OS. Width and Height hold the new size in pixels.
	EVENT_CODE_RESIZED SystemEventCode = 0x08
	// A watched shader binary changed on disk. Path holds the file.
	EVENT_CODE_SHADER_CHANGED SystemEventCode = 0x09
)

// Key codes carried in EventContext.Key follow the GLFW values.
const (
	KEY_ESCAPE = 256
)

type EventContext struct {
	Code   SystemEventCode
	Key    int
	Width  uint32
	Height uint32
	Path   string
}

// Should return true if handled.
type FnOnEvent func(sender interface{}, listener interface{}, context EventContext) bool

type registeredEvent struct {
	listener interface{}
	callback FnOnEvent
}

// EventBus dispatches events to listeners registered per code. It is not safe
// for concurrent use; everything fires from the main loop.
type EventBus struct {
	registered map[SystemEventCode][]*registeredEvent
}

func NewEventBus() *EventBus {
	return &EventBus{
		registered: make(map[SystemEventCode][]*registeredEvent),
	}
}

// Register listens for events sent with the provided code. A listener may only
// be registered once per code; duplicates return false.
func (b *EventBus) Register(code SystemEventCode, listener interface{}, onEvent FnOnEvent) bool {
	for _, e := range b.registered[code] {
		if e.listener == listener {
			return false
		}
	}
	b.registered[code] = append(b.registered[code], &registeredEvent{
		listener: listener,
		callback: onEvent,
	})
	return true
}

// Unregister stops the listener from receiving the code. Returns false if it was
// never registered.
func (b *EventBus) Unregister(code SystemEventCode, listener interface{}) bool {
	events := b.registered[code]
	for i, e := range events {
		if e.listener == listener {
			b.registered[code] = append(events[:i], events[i+1:]...)
			return true
		}
	}
	return false
}

// Fire sends the event to listeners in registration order. The first one that
// returns true stops the dispatch.
func (b *EventBus) Fire(sender interface{}, context EventContext) bool {
	for _, e := range b.registered[context.Code] {
		if e.callback(sender, e.listener, context) {
			return true
		}
	}
	return false
}

// Shutdown drops every registration.
func (b *EventBus) Shutdown() {
	b.registered = make(map[SystemEventCode][]*registeredEvent)
}

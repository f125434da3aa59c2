package vulkan

import (
	"github.com/spaghettifunk/vkdemo/engine/core"
)

type releaser struct {
	name    string
	release func()
}

// Arena owns every Vulkan object the context creates. Objects are pushed in
// creation order and released in exact reverse order, either down to a mark
// (one tier) or all the way.
type Arena struct {
	stack  []releaser
	logger core.Logger
}

func NewArena(logger core.Logger) *Arena {
	if logger == nil {
		logger = core.NopLogger()
	}
	return &Arena{logger: logger}
}

// Push registers release as the destructor for name. A nil release is ignored.
func (a *Arena) Push(name string, release func()) {
	if release == nil {
		return
	}
	a.stack = append(a.stack, releaser{name: name, release: release})
}

// Mark returns the current depth, to be passed to ReleaseTo later.
func (a *Arena) Mark() int {
	return len(a.stack)
}

// ReleaseTo pops and releases everything pushed after mark.
func (a *Arena) ReleaseTo(mark int) {
	if mark < 0 {
		mark = 0
	}
	for len(a.stack) > mark {
		top := a.stack[len(a.stack)-1]
		a.stack = a.stack[:len(a.stack)-1]
		a.logger.Debug("releasing", "object", top.name)
		top.release()
	}
}

func (a *Arena) ReleaseAll() {
	a.ReleaseTo(0)
}

func (a *Arena) Len() int {
	return len(a.stack)
}

// Names lists the owned objects bottom-up.
func (a *Arena) Names() []string {
	names := make([]string, len(a.stack))
	for i, r := range a.stack {
		names[i] = r.name
	}
	return names
}

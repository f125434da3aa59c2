package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spaghettifunk/vkdemo/engine/core"
)

func TestDefaultConfigIsValid(t *testing.T) {
	c := DefaultConfig()
	if err := c.Validate(); err != nil {
		t.Fatal(err)
	}
	if c.Name != "vulkan_demo" || c.StartWidth != 1000 || c.StartHeight != 800 {
		t.Errorf("defaults = %q %dx%d", c.Name, c.StartWidth, c.StartHeight)
	}
	if c.Resizable || !c.EnableValidation {
		t.Errorf("resizable=%v validation=%v", c.Resizable, c.EnableValidation)
	}
	if c.Level() != core.InfoLevel {
		t.Errorf("Level() = %v", c.Level())
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	c, err := LoadConfig(filepath.Join(t.TempDir(), "vkdemo.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if c.Name != DefaultConfig().Name {
		t.Errorf("Name = %q", c.Name)
	}
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vkdemo.toml")
	data := `
name = "triangle"
start_width = 640
resizable = true
log_level = "debug"
clear_color = [0.1, 0.2, 0.3, 1.0]
hot_reload_shaders = true
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.Name != "triangle" || c.StartWidth != 640 || !c.Resizable || !c.HotReloadShaders {
		t.Errorf("config = %+v", c)
	}
	if c.StartHeight != 800 {
		t.Errorf("StartHeight = %d, want default 800", c.StartHeight)
	}
	if c.ClearColor != [4]float32{0.1, 0.2, 0.3, 1.0} {
		t.Errorf("ClearColor = %v", c.ClearColor)
	}
	if c.Level() != core.DebugLevel {
		t.Errorf("Level() = %v", c.Level())
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"zero width", "start_width = 0"},
		{"empty name", `name = ""`},
		{"empty shader", `vertex_shader = ""`},
		{"bad level", `log_level = "verbose"`},
		{"negative interval", "fps_log_interval = -1.0"},
		{"malformed", "start_width = "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "vkdemo.toml")
			if err := os.WriteFile(path, []byte(tt.data), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadConfig(path); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

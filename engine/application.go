package engine

import (
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/vkdemo/engine/core"
)

type ApplicationConfig struct {
	// The application name used in windowing and as the Vulkan application name.
	Name string `toml:"name"`
	// Window starting position x axis, if applicable.
	StartPosX uint32 `toml:"start_pos_x"`
	// Window starting position y axis, if applicable.
	StartPosY uint32 `toml:"start_pos_y"`
	// Window starting width, if applicable.
	StartWidth uint32 `toml:"start_width"`
	// Window starting height, if applicable.
	StartHeight uint32 `toml:"start_height"`
	// Resizable lets framebuffer resizes invalidate the swapchain.
	Resizable bool   `toml:"resizable"`
	LogLevel  string `toml:"log_level"`

	EnableValidation bool       `toml:"enable_validation"`
	VertexShader     string     `toml:"vertex_shader"`
	FragmentShader   string     `toml:"fragment_shader"`
	ClearColor       [4]float32 `toml:"clear_color"`
	HotReloadShaders bool       `toml:"hot_reload_shaders"`
	// Seconds between FPS log lines. Zero disables them.
	FPSLogInterval float64 `toml:"fps_log_interval"`
}

func DefaultConfig() *ApplicationConfig {
	return &ApplicationConfig{
		Name:             "vulkan_demo",
		StartPosX:        100,
		StartPosY:        100,
		StartWidth:       1000,
		StartHeight:      800,
		Resizable:        false,
		LogLevel:         "info",
		EnableValidation: true,
		VertexShader:     "shaders/vert.spv",
		FragmentShader:   "shaders/frag.spv",
		ClearColor:       [4]float32{0, 0, 0, 1},
		HotReloadShaders: false,
		FPSLogInterval:   5,
	}
}

// LoadConfig decodes the TOML file at path over DefaultConfig. A missing file
// yields the defaults.
func LoadConfig(path string) (*ApplicationConfig, error) {
	config := DefaultConfig()
	if path == "" {
		return config, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return config, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config %s", path)
	}
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, errors.Wrapf(err, "failed to decode config %s", path)
	}
	if err := config.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config %s", path)
	}
	return config, nil
}

func (c *ApplicationConfig) Validate() error {
	if c.Name == "" {
		return errors.New("name must not be empty")
	}
	if c.StartWidth == 0 || c.StartHeight == 0 {
		return errors.Errorf("window size %dx%d must be non-zero", c.StartWidth, c.StartHeight)
	}
	if c.VertexShader == "" || c.FragmentShader == "" {
		return errors.New("vertex_shader and fragment_shader must be set")
	}
	if _, err := core.ParseLogLevel(c.LogLevel); err != nil {
		return errors.Wrapf(err, "log_level %q", c.LogLevel)
	}
	if c.FPSLogInterval < 0 {
		return errors.Errorf("fps_log_interval %v must not be negative", c.FPSLogInterval)
	}
	return nil
}

// Level returns the parsed log level. Validate must have passed.
func (c *ApplicationConfig) Level() core.LogLevel {
	level, err := core.ParseLogLevel(c.LogLevel)
	if err != nil {
		return core.InfoLevel
	}
	return level
}

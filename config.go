package blackhole

import (
	"io"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

const (
	// MaxFramesInFlight bounds the per-frame resource sets the scheduler allocates.
	MaxFramesInFlight = 8
	// MinSphereResolution is the smallest rim that still encloses an area.
	MinSphereResolution = 3
)

// BodyConfig describes one rigid body of a configured scene.
type BodyConfig struct {
	Kind       string     `toml:"kind"` // "sphere" or "square"
	X          float32    `toml:"x"`
	Y          float32    `toml:"y"`
	Size       float32    `toml:"size"` // radius for spheres, half length for squares
	Color      [3]float32 `toml:"color"`
	Resolution int        `toml:"resolution"`
}

// Config carries everything the engine is constructed with. Keys absent from a
// config file keep their DefaultConfig values.
type Config struct {
	Title            string       `toml:"title"`
	Width            int          `toml:"width"`
	Height           int          `toml:"height"`
	FramesInFlight   int          `toml:"frames_in_flight"`
	MaxFrames        uint64       `toml:"max_frames"` // 0 runs until the window closes
	Validation       bool         `toml:"validation"`
	ValidationLayers []string     `toml:"validation_layers"`
	DeviceExtensions []string     `toml:"device_extensions"`
	VertexShader     string       `toml:"vertex_shader"`
	FragmentShader   string       `toml:"fragment_shader"`
	SphereResolution int          `toml:"sphere_resolution"`
	ClearColor       [4]float32   `toml:"clear_color"`
	LogFile          string       `toml:"log_file"`
	Bodies           []BodyConfig `toml:"bodies"`
}

// DefaultConfig mirrors the stock circle grid demo.
func DefaultConfig() Config {
	return Config{
		Title:            "Vulkan Engine working!",
		Width:            800,
		Height:           800,
		FramesInFlight:   2,
		ValidationLayers: []string{"VK_LAYER_KHRONOS_validation"},
		DeviceExtensions: []string{"VK_KHR_swapchain"},
		VertexShader:     "shaders/vert.spv",
		FragmentShader:   "shaders/frag.spv",
		SphereResolution: 10000,
		ClearColor:       [4]float32{0, 0, 0, 1},
	}
}

// LoadConfig reads a TOML file on top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "open config")
	}
	defer f.Close()
	return DecodeConfig(f)
}

// DecodeConfig reads TOML from r on top of DefaultConfig. Unknown keys are rejected.
func DecodeConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "decode config")
	}
	return cfg, cfg.Validate()
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch {
	case c.Width <= 0 || c.Height <= 0:
		return errors.Errorf("window size must be positive, got %dx%d", c.Width, c.Height)
	case c.FramesInFlight < 1 || c.FramesInFlight > MaxFramesInFlight:
		return errors.Errorf("frames_in_flight must be in [1,%d], got %d", MaxFramesInFlight, c.FramesInFlight)
	case c.SphereResolution < MinSphereResolution:
		return errors.Errorf("sphere_resolution must be at least %d, got %d", MinSphereResolution, c.SphereResolution)
	case c.VertexShader == "" || c.FragmentShader == "":
		return errors.New("both vertex_shader and fragment_shader must be set")
	case c.Validation && len(c.ValidationLayers) == 0:
		return errors.New("validation requested without validation_layers")
	}
	if found, _ := checkExisting(c.DeviceExtensions, []string{swapchainExtension}); len(found) == 0 {
		return errors.Errorf("device_extensions must include %s", swapchainExtension)
	}
	for i, b := range c.Bodies {
		if b.Kind != "sphere" && b.Kind != "square" {
			return errors.Errorf("bodies[%d]: unknown kind %q", i, b.Kind)
		}
		if b.Size <= 0 {
			return errors.Errorf("bodies[%d]: size must be positive", i)
		}
		if b.Kind == "sphere" && b.Resolution != 0 && b.Resolution < MinSphereResolution {
			return errors.Errorf("bodies[%d]: resolution must be at least %d", i, MinSphereResolution)
		}
	}
	return nil
}

// DeviceConfig is the slice of Config the device selector consumes.
func (c Config) DeviceConfig() DeviceConfig {
	dc := DeviceConfig{Extensions: c.DeviceExtensions}
	if c.Validation {
		dc.ValidationLayers = c.ValidationLayers
	}
	return dc
}

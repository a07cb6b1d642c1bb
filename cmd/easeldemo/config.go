package main

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/gogpu/easel"
)

// config is the TOML scene description consumed by the render command.
// Every field has a usable default, so an empty (or absent) file renders
// the built-in demo scene.
type config struct {
	// Width and Height are the canvas dimensions in pixels.
	Width  int `toml:"width"`
	Height int `toml:"height"`

	// Backend names a device backend; empty means best available.
	Backend string `toml:"backend"`

	// Accelerate asks for device blend offload when the backend has it.
	Accelerate bool `toml:"accelerate"`

	// Background is the backdrop color as a hex string.
	Background string `toml:"background"`

	// BaseImage optionally names an image file scaled into the backdrop.
	BaseImage string `toml:"base_image"`

	// Modes lists the modes to activate. Empty means all four.
	Modes []string `toml:"modes"`

	Transform transformConfig       `toml:"transform"`
	Strokes   []strokeConfig        `toml:"stroke"`
	Mode      map[string]modeConfig `toml:"mode"`
}

// transformConfig is the view transform applied at presentation.
type transformConfig struct {
	Zoom     float64 `toml:"zoom"`
	PanX     float64 `toml:"pan_x"`
	PanY     float64 `toml:"pan_y"`
	Rotation float64 `toml:"rotation"`
}

// strokeConfig is one scripted gesture: a straight drag from From to To
// delivered as Started / Continued×Steps / Ended events.
type strokeConfig struct {
	// Mode restricts the stroke to one mode. Empty fans out to every
	// active mode, which is the engine's normal dispatch.
	Mode     string     `toml:"mode"`
	From     [2]float64 `toml:"from"`
	To       [2]float64 `toml:"to"`
	Steps    int        `toml:"steps"`
	Pressure float64    `toml:"pressure"`
}

// modeConfig carries optional per-mode layer settings.
type modeConfig struct {
	Opacity *float64 `toml:"opacity"`
	Visible *bool    `toml:"visible"`
}

func defaultConfig() config {
	return config{
		Width:      800,
		Height:     600,
		Background: "#ffffff",
		Transform:  transformConfig{Zoom: 1},
		Strokes:    demoStrokes(),
	}
}

// demoStrokes is the built-in scene: one diagonal stroke per mode so all
// four compositing operators are visible in a single image. Coordinates
// assume the default 800x600 canvas.
func demoStrokes() []strokeConfig {
	return []strokeConfig{
		{Mode: "freehand", From: [2]float64{80, 120}, To: [2]float64{720, 210}, Steps: 32, Pressure: 0.9},
		{Mode: "parametric", From: [2]float64{120, 300}, To: [2]float64{680, 270}, Steps: 32, Pressure: 0.7},
		{Mode: "scripted", From: [2]float64{160, 420}, To: [2]float64{640, 360}, Steps: 32, Pressure: 0.8},
		{Mode: "growth", From: [2]float64{80, 510}, To: [2]float64{720, 480}, Steps: 32, Pressure: 0.6},
	}
}

// loadConfig reads a TOML scene file over the defaults. An empty path
// returns the defaults untouched.
func loadConfig(path string) (config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	// A file that names its own strokes replaces the demo scene.
	cfg.Strokes = nil
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", path, err)
	}

	if cfg.Width <= 0 || cfg.Height <= 0 {
		return cfg, fmt.Errorf("invalid canvas size %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.Transform.Zoom == 0 {
		cfg.Transform.Zoom = 1
	}
	return cfg, nil
}

// activeModes resolves the configured mode names. Empty means all modes.
func (c config) activeModes() ([]easel.Mode, error) {
	if len(c.Modes) == 0 {
		return []easel.Mode{easel.Freehand, easel.Parametric, easel.Scripted, easel.Growth}, nil
	}
	modes := make([]easel.Mode, 0, len(c.Modes))
	for _, name := range c.Modes {
		m, err := easel.ParseMode(name)
		if err != nil {
			return nil, err
		}
		modes = append(modes, m)
	}
	return modes, nil
}

// viewTransform converts the config transform to an engine transform.
func (c config) viewTransform() easel.Transform {
	return easel.Transform{
		Zoom:     c.Transform.Zoom,
		PanX:     c.Transform.PanX,
		PanY:     c.Transform.PanY,
		Rotation: c.Transform.Rotation,
	}
}

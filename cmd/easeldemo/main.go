// Command easeldemo exercises the easel compositing engine from the
// command line: render a scripted scene to a PNG, benchmark repeated
// frames, or list the registered device backends.
package main

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/disintegration/imaging"
	"github.com/spf13/cobra"

	"github.com/gogpu/easel"
	"github.com/gogpu/easel/device"

	// Register the wgpu backend; the registry falls back to software
	// when no adapter is present.
	_ "github.com/gogpu/easel/device/wgpu"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	var verbose bool

	root := &cobra.Command{
		Use:          "easeldemo",
		Short:        "Exercise the easel multi-mode compositing engine",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				easel.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
					Level: slog.LevelDebug,
				})))
			}
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newRenderCmd())
	root.AddCommand(newBenchCmd())
	root.AddCommand(newBackendsCmd())

	return root.Execute()
}

func newRenderCmd() *cobra.Command {
	var (
		configPath string
		output     string
		backend    string
		width      int
		height     int
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a scripted scene to an image file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("width") {
				cfg.Width = width
			}
			if cmd.Flags().Changed("height") {
				cfg.Height = height
			}
			if cmd.Flags().Changed("backend") {
				cfg.Backend = backend
			}

			eng, active, err := buildEngine(cfg)
			if err != nil {
				return err
			}
			defer eng.Destroy()

			for i, s := range cfg.Strokes {
				if err := playStroke(eng, s, active); err != nil {
					return fmt.Errorf("stroke %d: %w", i+1, err)
				}
			}
			if err := eng.RenderFrame(); err != nil {
				return err
			}

			img, err := eng.Snapshot()
			if err != nil {
				return err
			}
			if err := imaging.Save(img, output); err != nil {
				return fmt.Errorf("saving %s: %w", output, err)
			}

			m := eng.Metrics()
			fmt.Fprintf(cmd.OutOrStdout(), "rendered %dx%d on %s to %s (composite %v)\n",
				cfg.Width, cfg.Height, m.Backend, output, m.CompositeDuration.Round(time.Microsecond))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "TOML scene description")
	cmd.Flags().StringVarP(&output, "output", "o", "easel.png", "output image path")
	cmd.Flags().StringVar(&backend, "backend", "", "device backend (default: best available)")
	cmd.Flags().IntVar(&width, "width", 0, "canvas width, overrides config")
	cmd.Flags().IntVar(&height, "height", 0, "canvas height, overrides config")
	return cmd
}

func newBenchCmd() *cobra.Command {
	var (
		frames     int
		width      int
		height     int
		backend    string
		accelerate bool
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Render repeated frames and print engine metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := []easel.Option{
				easel.WithTargetFPS(0),
				easel.WithActiveModes(easel.Freehand, easel.Parametric, easel.Scripted, easel.Growth),
				easel.WithAcceleration(accelerate),
			}
			if backend != "" {
				opts = append(opts, easel.WithBackend(backend))
			}
			eng, err := easel.New(width, height, opts...)
			if err != nil {
				return err
			}
			defer eng.Destroy()

			// Drag a gesture across the canvas so every frame has fresh
			// layer content to flush and composite.
			eng.HandleInteraction(easel.PointerEvent{Pos: easel.Pt(0, float64(height)/2), Pressure: 0.9}, easel.Started)
			start := time.Now()
			for i := range frames {
				t := float64(i) / float64(frames)
				pos := easel.Pt(t*float64(width), (0.5+0.4*math.Sin(t*8*math.Pi))*float64(height))
				eng.HandleInteraction(easel.PointerEvent{Pos: pos, Pressure: 0.9}, easel.Continued)
				if err := eng.RenderFrame(); err != nil {
					return err
				}
			}
			elapsed := time.Since(start)
			eng.HandleInteraction(easel.PointerEvent{Pos: easel.Pt(float64(width), float64(height)/2), Pressure: 0.9}, easel.Ended)

			m := eng.Metrics()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "backend:    %s\n", m.Backend)
			fmt.Fprintf(out, "frames:     %d in %v (%.1f fps)\n",
				m.FrameCount, elapsed.Round(time.Millisecond), float64(frames)/elapsed.Seconds())
			fmt.Fprintf(out, "last frame: %v (composite %v)\n",
				m.LastFrameDuration.Round(time.Microsecond), m.CompositeDuration.Round(time.Microsecond))
			return nil
		},
	}

	cmd.Flags().IntVarP(&frames, "frames", "n", 120, "number of frames to render")
	cmd.Flags().IntVar(&width, "width", 800, "canvas width")
	cmd.Flags().IntVar(&height, "height", 600, "canvas height")
	cmd.Flags().StringVar(&backend, "backend", "", "device backend (default: best available)")
	cmd.Flags().BoolVar(&accelerate, "accelerate", false, "enable device blend offload")
	return cmd
}

func newBackendsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List registered device backends",
		RunE: func(cmd *cobra.Command, args []string) error {
			available := make(map[string]bool)
			for _, name := range device.Available() {
				available[name] = true
			}
			out := cmd.OutOrStdout()
			for _, name := range device.List() {
				status := "unavailable"
				if available[name] {
					status = "available"
				}
				fmt.Fprintf(out, "%-10s %s\n", name, status)
			}
			return nil
		},
	}
}

// buildEngine constructs an engine from the scene config and returns the
// resolved active mode set alongside it.
func buildEngine(cfg config) (*easel.Engine, []easel.Mode, error) {
	active, err := cfg.activeModes()
	if err != nil {
		return nil, nil, err
	}

	opts := []easel.Option{
		easel.WithTargetFPS(0),
		easel.WithBackground(easel.Hex(cfg.Background)),
		easel.WithAcceleration(cfg.Accelerate),
		easel.WithActiveModes(active...),
	}
	if cfg.Backend != "" {
		opts = append(opts, easel.WithBackend(cfg.Backend))
	}

	eng, err := easel.New(cfg.Width, cfg.Height, opts...)
	if err != nil {
		return nil, nil, err
	}

	if cfg.BaseImage != "" {
		img, err := imaging.Open(cfg.BaseImage)
		if err != nil {
			eng.Destroy()
			return nil, nil, fmt.Errorf("loading base image: %w", err)
		}
		if err := eng.SetBaseImage(img); err != nil {
			eng.Destroy()
			return nil, nil, err
		}
	}

	for name, mc := range cfg.Mode {
		m, err := easel.ParseMode(name)
		if err != nil {
			eng.Destroy()
			return nil, nil, err
		}
		if mc.Opacity != nil {
			eng.SetModeOpacity(m, *mc.Opacity)
		}
		if mc.Visible != nil {
			eng.SetModeVisibility(m, *mc.Visible)
		}
	}

	eng.SetTransform(cfg.viewTransform())
	return eng, active, nil
}

// playStroke delivers one scripted gesture to the engine. A stroke that
// names a mode is dispatched to that mode alone; the configured active
// set is restored afterwards.
func playStroke(eng *easel.Engine, s strokeConfig, active []easel.Mode) error {
	if s.Mode != "" {
		m, err := easel.ParseMode(s.Mode)
		if err != nil {
			return err
		}
		eng.DeactivateModes(active...)
		eng.ActivateModes(m)
		defer eng.ActivateModes(active...)
	}

	steps := s.Steps
	if steps < 1 {
		steps = 1
	}
	pressure := s.Pressure
	if pressure == 0 {
		pressure = 0.8
	}
	from := easel.Pt(s.From[0], s.From[1])
	to := easel.Pt(s.To[0], s.To[1])

	eng.HandleInteraction(easel.PointerEvent{Pos: from, Pressure: pressure}, easel.Started)
	for i := 1; i <= steps; i++ {
		pos := from.Lerp(to, float64(i)/float64(steps))
		eng.HandleInteraction(easel.PointerEvent{Pos: pos, Pressure: pressure}, easel.Continued)
	}
	eng.HandleInteraction(easel.PointerEvent{Pos: to, Pressure: pressure}, easel.Ended)
	return nil
}

// Package easel provides a multi-mode compositing canvas engine for Go.
//
// # Overview
//
// easel manages four independent drawing modes (Freehand, Parametric,
// Scripted, Growth), each painting into its own isolated render target.
// Every frame the engine composites the mode layers over a persistent
// backdrop in a fixed order, each layer with its own blend mode and
// opacity, so the modes never observe or clobber each other's pixels.
//
// # Quick Start
//
//	import "github.com/gogpu/easel"
//
//	eng, err := easel.New(800, 600,
//		easel.WithActiveModes(easel.Freehand, easel.Scripted),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer eng.Destroy()
//
//	// Pointer input fans out to every active mode.
//	eng.HandleInteraction(easel.PointerEvent{Pos: easel.Pt(120, 80), Pressure: 0.8}, easel.Started)
//	eng.HandleInteraction(easel.PointerEvent{Pos: easel.Pt(240, 160), Pressure: 0.8}, easel.Continued)
//	eng.HandleInteraction(easel.PointerEvent{Pos: easel.Pt(240, 160)}, easel.Ended)
//
//	img, _ := eng.Snapshot()
//
// # Architecture
//
// The engine is organized into:
//   - Public API: Engine, Mode, ModeEngine, PointerEvent, Transform
//   - Layer store: one render target per mode plus a backdrop target
//   - Compositor: deterministic full-frame blend in fixed mode order
//   - Router: fans pointer input out to every active mode's engine
//   - Scheduler: ticker-driven frame loop with stop-then-destroy ordering
//   - Devices: device/ abstracts render target allocation (software,
//     shared host context, wgpu compute)
//
// # Coordinate System
//
// Uses standard computer graphics coordinates:
//   - Origin (0,0) at top-left
//   - X increases right
//   - Y increases down
//   - Angles in radians
//
// Pointer events arrive in view coordinates and are mapped into canvas
// pixels through the inverse of the view transform before dispatch.
//
// # Determinism
//
// Compositing is recomputed from the layer contents on every frame, so
// rendering the same inputs twice yields bit-identical output. The view
// transform and interaction feedback are applied at presentation only
// and never modify layer pixels.
package easel

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0-alpha.1"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0

	// VersionPrerelease is the prerelease identifier
	VersionPrerelease = "alpha.1"
)

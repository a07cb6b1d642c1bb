package easel

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/gogpu/gpucontext"
	xdraw "golang.org/x/image/draw"

	"github.com/gogpu/easel/device"
	"github.com/gogpu/easel/internal/blend"
)

// Engine errors.
var (
	// ErrEngineClosed is returned when operations are attempted on a
	// destroyed engine.
	ErrEngineClosed = errors.New("easel: engine is closed")

	// ErrInvalidDimensions is returned when width or height is invalid
	// or exceeds what the device can allocate.
	ErrInvalidDimensions = errors.New("easel: invalid dimensions")
)

// PerformanceMetrics is a snapshot of engine health, safe to read from
// any goroutine via [Engine.Metrics].
type PerformanceMetrics struct {
	// FPS is the instantaneous frame rate measured between consecutive
	// frames. Zero until two frames have run.
	FPS float64

	// ActiveModeCount is how many modes currently receive input.
	ActiveModeCount int

	// ActiveInteractionCount is how many modes have a gesture in
	// progress.
	ActiveInteractionCount int

	// FrameCount is the total number of frames rendered.
	FrameCount uint64

	// LastFrameDuration is how long the most recent full frame took.
	LastFrameDuration time.Duration

	// CompositeDuration is the blend-pass portion of the last frame.
	CompositeDuration time.Duration

	// Backend is the device backend name.
	Backend string
}

// Engine is the compositing canvas. It owns one isolated layer per mode
// plus a persistent backdrop, fans pointer input out to every active
// mode, and recomposites the layers in fixed mode order each frame.
//
// All methods are safe for concurrent use: the engine serializes public
// operations and scheduler ticks on one mutex, so mode engines and the
// compositor always observe a consistent layer set.
type Engine struct {
	mu sync.Mutex

	width, height int
	dev           device.Device
	ownsDevice    bool

	layers *LayerSet
	comp   *compositor
	router *interactionRouter

	background RGBA
	transform  Transform
	viewMat    Matrix
	invViewMat Matrix

	// baseSrc is the retained backdrop source image; the backdrop is
	// re-derived from it after a resize.
	baseSrc image.Image

	sched *frameScheduler

	// presentDirty is set whenever anything that feeds the presented
	// frame changes. Scheduled ticks skip cleanly when it is unset and
	// no gesture is animating feedback.
	presentDirty bool

	frameCount    uint64
	lastFrame     time.Duration
	lastComposite time.Duration

	accelerate bool
	closed     bool
}

// New creates an engine with a width×height canvas.
//
// The device backend comes from the registry (best available first)
// unless [WithBackend] names one or [WithDevice] injects one. If no
// backend can be acquired the error wraps
// [device.ErrNoBackendAvailable]; callers can detect that case with
// errors.Is and fall back to a degraded presentation path. Any failure
// to allocate or verify the render targets themselves is fatal.
//
// Unless [WithTargetFPS] says otherwise, the engine starts its frame
// scheduler at 60 fps immediately.
func New(width, height int, opts ...Option) (*Engine, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: width=%d, height=%d (both must be > 0)", ErrInvalidDimensions, width, height)
	}

	o := defaultEngineOptions()
	for _, opt := range opts {
		opt(&o)
	}

	dev, owns, err := acquireDevice(&o)
	if err != nil {
		return nil, err
	}

	if max := dev.Capabilities().MaxTargetSize; max > 0 && (width > max || height > max) {
		if owns {
			_ = dev.Close()
		}
		return nil, fmt.Errorf("%w: %dx%d exceeds device limit %d", ErrInvalidDimensions, width, height, max)
	}

	engines := o.engines
	for m := Mode(0); m < NumModes; m++ {
		if engines[m] == nil {
			engines[m] = defaultStampEngine(m)
		}
	}

	ls, err := newLayerSet(dev, width, height, o.background)
	if err != nil {
		if owns {
			_ = dev.Close()
		}
		return nil, err
	}

	comp, err := newCompositor(dev, width, height, o.accelerate)
	if err != nil {
		ls.destroy()
		if owns {
			_ = dev.Close()
		}
		return nil, err
	}

	e := &Engine{
		width:        width,
		height:       height,
		dev:          dev,
		ownsDevice:   owns,
		layers:       ls,
		comp:         comp,
		router:       newInteractionRouter(engines),
		background:   o.background,
		transform:    DefaultTransform(),
		viewMat:      Identity(),
		invViewMat:   Identity(),
		sched:        newFrameScheduler(o.targetFPS),
		presentDirty: true,
		accelerate:   o.accelerate,
	}

	for _, m := range o.activeModes {
		e.router.setActive(m, true, e.layers)
	}

	Logger().Info("engine created",
		"backend", dev.Name(),
		"width", width, "height", height,
		"fps", o.targetFPS,
		"offload", comp.blender != nil)

	e.sched.start(e.tick)
	return e, nil
}

// acquireDevice resolves the backend per the options: an injected device
// is used as-is (and stays caller-owned), otherwise the registry picks.
func acquireDevice(o *engineOptions) (device.Device, bool, error) {
	if o.device != nil {
		return o.device, false, nil
	}

	acquire := device.Acquire
	byName := device.AcquireByName
	if o.registry != nil {
		acquire = o.registry.Acquire
		byName = o.registry.AcquireByName
	}

	if o.backend != "" {
		d, err := byName(o.backend)
		if err != nil {
			return nil, false, fmt.Errorf("easel: acquiring %q backend: %w", o.backend, err)
		}
		return d, true, nil
	}

	d, err := acquire()
	if err != nil {
		return nil, false, fmt.Errorf("easel: acquiring device: %w", err)
	}
	return d, true, nil
}

// tick is the scheduler callback: render one frame if anything changed.
// An engaged gesture forces rendering so the feedback ripple animates.
func (e *Engine) tick(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.sched.noteTick(now)
	if !e.presentDirty && e.router.engagedCount() == 0 {
		return
	}
	if err := e.renderLocked(now); err != nil {
		Logger().Warn("frame render failed", "error", err)
	}
}

// renderLocked runs one full frame: mirror dirty layers to the device,
// recomposite, apply the view transform, draw feedback, and push the
// result to the presentation target. Caller holds e.mu.
func (e *Engine) renderLocked(now time.Time) error {
	start := time.Now()

	if err := e.layers.flush(); err != nil {
		return err
	}

	compStart := time.Now()
	if err := e.comp.composite(e.layers); err != nil {
		return err
	}
	e.lastComposite = time.Since(compStart)

	e.comp.applyView(e.viewMat)
	renderFeedback(e.comp.view, &e.router.current, e.viewMat, now)

	if err := e.comp.push(); err != nil {
		return err
	}

	e.presentDirty = false
	e.frameCount++
	e.lastFrame = time.Since(start)
	return nil
}

// RenderFrame renders one frame immediately, regardless of dirty state.
// Use it to drive the engine manually when the scheduler is disabled
// ([WithTargetFPS] 0).
func (e *Engine) RenderFrame() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrEngineClosed
	}
	now := time.Now()
	e.sched.noteTick(now)
	return e.renderLocked(now)
}

// HandleInteraction routes one pointer event to every active mode and
// returns the modes that were touched, in dispatch order. The event
// position is in view coordinates; it is mapped into canvas pixels
// through the inverse view transform before dispatch.
//
// Events that do not fit a mode's gesture state (a Continued or Ended
// with nothing in progress) are dropped for that mode without side
// effects. On a closed engine the call is a no-op returning nil.
func (e *Engine) HandleInteraction(ev PointerEvent, kind InteractionKind) []Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}

	ts := ev.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	p := e.invViewMat.TransformPoint(ev.Pos)

	touched := e.router.handle(kind, p, clamp01(ev.Pressure), ts, e.layers)
	if len(touched) > 0 {
		e.presentDirty = true
	}
	return touched
}

// ActivateModes marks modes active: they receive pointer input and their
// layers become visible. Layer contents are untouched, so reactivating a
// mode brings its previous pixels back.
func (e *Engine) ActivateModes(modes ...Mode) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	for _, m := range modes {
		if !m.Valid() {
			continue
		}
		e.router.setActive(m, true, e.layers)
		e.layers.layer(m).visible = true
	}
	e.presentDirty = true
}

// DeactivateModes marks modes inactive: they stop receiving input and
// their layers are hidden. A gesture in progress on the mode is finished
// first. Layer contents are never destroyed.
func (e *Engine) DeactivateModes(modes ...Mode) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	for _, m := range modes {
		if !m.Valid() {
			continue
		}
		e.router.setActive(m, false, e.layers)
		e.layers.layer(m).visible = false
	}
	e.presentDirty = true
}

// ActiveModes returns the currently active modes in mode order.
func (e *Engine) ActiveModes() []Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	var modes []Mode
	for m := Mode(0); m < NumModes; m++ {
		if e.router.active[m] {
			modes = append(modes, m)
		}
	}
	return modes
}

// SetModeOpacity sets a mode's compositing opacity. Values outside
// [0, 1] are clamped. Invalid modes are ignored.
func (e *Engine) SetModeOpacity(m Mode, opacity float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || !m.Valid() {
		return
	}
	opacity = clamp01(opacity)
	l := e.layers.layer(m)
	if l.opacity == opacity {
		return
	}
	l.opacity = opacity
	e.presentDirty = true
}

// SetModeVisibility toggles a mode's layer in the composite without
// affecting input dispatch or layer contents.
func (e *Engine) SetModeVisibility(m Mode, visible bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || !m.Valid() {
		return
	}
	l := e.layers.layer(m)
	if l.visible == visible {
		return
	}
	l.visible = visible
	e.presentDirty = true
}

// SetTransform replaces the view transform. The transform applies at
// presentation only: layer pixels and compositing are untouched, and
// pointer events are mapped through the inverse so painting stays
// anchored to canvas content under pan and zoom.
func (e *Engine) SetTransform(t Transform) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	t = t.normalize()
	if t == e.transform {
		return
	}
	e.transform = t
	e.viewMat = t.Matrix()
	e.invViewMat = e.viewMat.Invert()
	e.presentDirty = true
}

// ViewTransform returns the current view transform.
func (e *Engine) ViewTransform() Transform {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.transform
}

// SetBaseImage replaces the persistent backdrop with img, scaled to the
// canvas. The source is retained so the backdrop survives resizes by
// re-scaling; pass nil to restore the plain background color.
func (e *Engine) SetBaseImage(img image.Image) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrEngineClosed
	}
	e.baseSrc = img
	e.rebuildBackdropLocked()
	return nil
}

// rebuildBackdropLocked re-derives the backdrop pixels from the
// background color and the retained source image at the current canvas
// size. Caller holds e.mu.
func (e *Engine) rebuildBackdropLocked() {
	base := e.layers.base
	base.pix.Clear(e.background)
	if e.baseSrc != nil {
		scaled := image.NewRGBA(image.Rect(0, 0, e.width, e.height))
		xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), e.baseSrc, e.baseSrc.Bounds(), xdraw.Src, nil)
		blend.Composite(base.pix.Data(), scaled.Pix, blend.Over, 1)
	}
	base.dirty = true
	e.presentDirty = true
}

// Resize recreates every render target at the new size. Layer pixel
// contents are NOT preserved: resize is destroy-then-create, and the
// backdrop is re-derived from its retained source. Per-mode opacity,
// visibility, and gesture state carry over.
//
// A target allocation failure mid-resize is fatal: the engine closes
// rather than continue with a partial layer set.
func (e *Engine) Resize(width, height int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrEngineClosed
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: width=%d, height=%d (both must be > 0)", ErrInvalidDimensions, width, height)
	}
	if width == e.width && height == e.height {
		return nil
	}
	if max := e.dev.Capabilities().MaxTargetSize; max > 0 && (width > max || height > max) {
		return fmt.Errorf("%w: %dx%d exceeds device limit %d", ErrInvalidDimensions, width, height, max)
	}

	// Settings survive the swap; pixels do not.
	var opacity [NumModes]float64
	var visible [NumModes]bool
	for m := Mode(0); m < NumModes; m++ {
		l := e.layers.layer(m)
		opacity[m], visible[m] = l.opacity, l.visible
	}

	e.layers.destroy()
	e.comp.destroy()

	ls, err := newLayerSet(e.dev, width, height, e.background)
	if err != nil {
		return e.failLocked(err)
	}
	comp, err := newCompositor(e.dev, width, height, e.accelerate)
	if err != nil {
		ls.destroy()
		return e.failLocked(err)
	}

	e.layers = ls
	e.comp = comp
	e.width, e.height = width, height
	for m := Mode(0); m < NumModes; m++ {
		l := e.layers.layer(m)
		l.opacity, l.visible = opacity[m], visible[m]
	}
	e.rebuildBackdropLocked()

	Logger().Debug("resized", "width", width, "height", height)
	return nil
}

// failLocked transitions the engine to closed after an unrecoverable
// mid-life failure. The old targets are already gone by the time it is
// called. The scheduler keeps ticking no-ops on the closed flag until
// Destroy stops it; stopping here would deadlock against a tick waiting
// on e.mu.
func (e *Engine) failLocked(err error) error {
	e.closed = true
	if e.ownsDevice {
		_ = e.dev.Close()
	}
	Logger().Warn("engine disabled", "error", err)
	return err
}

// ReadPixels returns the most recently presented frame as premultiplied
// RGBA bytes, read back from the device. When stepping manually, call
// [Engine.RenderFrame] first.
func (e *Engine) ReadPixels() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrEngineClosed
	}
	return e.comp.readPixels()
}

// Snapshot returns the most recently presented frame as an image.
func (e *Engine) Snapshot() (*image.RGBA, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrEngineClosed
	}
	pix, err := e.comp.readPixels()
	if err != nil {
		return nil, err
	}
	img := image.NewRGBA(image.Rect(0, 0, e.width, e.height))
	copy(img.Pix, pix)
	return img, nil
}

// PresentTo renders any pending changes and draws the frame into a host
// application's drawing context at (x, y). It requires a backend whose
// targets can present (the shared backend); others return
// [device.ErrPresentNotSupported].
func (e *Engine) PresentTo(dc gpucontext.TextureDrawer, x, y float32) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrEngineClosed
	}
	if e.presentDirty || e.router.engagedCount() > 0 {
		if err := e.renderLocked(time.Now()); err != nil {
			return err
		}
	}
	p, ok := e.comp.target.(device.FramePresenter)
	if !ok {
		return device.ErrPresentNotSupported
	}
	return p.PresentTo(dc, x, y)
}

// Metrics returns a snapshot of engine health.
func (e *Engine) Metrics() PerformanceMetrics {
	e.mu.Lock()
	defer e.mu.Unlock()
	return PerformanceMetrics{
		FPS:                    e.sched.fps(),
		ActiveModeCount:        e.router.activeCount(),
		ActiveInteractionCount: e.router.engagedCount(),
		FrameCount:             e.frameCount,
		LastFrameDuration:      e.lastFrame,
		CompositeDuration:      e.lastComposite,
		Backend:                e.dev.Name(),
	}
}

// Size returns the canvas dimensions in pixels.
func (e *Engine) Size() (width, height int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.width, e.height
}

// Backend returns the device backend name.
func (e *Engine) Backend() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dev.Name()
}

// Destroy stops the frame scheduler, waits for any in-flight frame, then
// releases every render target and, if the engine acquired its own
// device, closes it. Injected devices stay open; the caller owns them.
//
// Destroy is idempotent. All other operations on a destroyed engine
// return ErrEngineClosed or no-op.
func (e *Engine) Destroy() error {
	// Stop first: no frame may be in flight when targets are released.
	e.sched.stop()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true

	e.layers.destroy()
	e.comp.destroy()
	if e.ownsDevice {
		if err := e.dev.Close(); err != nil {
			Logger().Warn("device close failed", "error", err)
		}
	}

	Logger().Debug("engine destroyed", "frames", e.frameCount)
	return nil
}

package easel

// Zoom limits. A zoom of zero would collapse the view matrix into a
// non-invertible transform, so SetTransform clamps into this range.
const (
	minZoom = 0.01
	maxZoom = 100.0
)

// Transform describes the view transform applied at presentation time.
// It never affects layer contents or compositing: layers live in canvas
// pixels, and the transform only maps the composited frame onto the
// output. Pointer events travel the opposite direction through the
// inverse transform before they reach the modes.
type Transform struct {
	// Zoom is the uniform scale factor. Clamped to [0.01, 100].
	Zoom float64
	// PanX and PanY translate the canvas in output pixels.
	PanX, PanY float64
	// Rotation is the view rotation in radians around the canvas origin.
	Rotation float64
}

// DefaultTransform returns the identity view: zoom 1, no pan, no rotation.
func DefaultTransform() Transform {
	return Transform{Zoom: 1}
}

// normalize clamps the transform's zoom into its valid range.
func (t Transform) normalize() Transform {
	if t.Zoom < minZoom {
		t.Zoom = minZoom
	}
	if t.Zoom > maxZoom {
		t.Zoom = maxZoom
	}
	return t
}

// Matrix returns the canvas-to-view matrix: scale and rotation around
// the canvas origin, then translation.
func (t Transform) Matrix() Matrix {
	t = t.normalize()
	m := Scale(t.Zoom, t.Zoom)
	if t.Rotation != 0 {
		m = Rotate(t.Rotation).Multiply(m)
	}
	return Translate(t.PanX, t.PanY).Multiply(m)
}

// IsIdentity reports whether the transform leaves the view unchanged.
func (t Transform) IsIdentity() bool {
	return t.Zoom == 1 && t.PanX == 0 && t.PanY == 0 && t.Rotation == 0
}

// resampleView fills dst by sampling src through the inverse of the
// view matrix (nearest neighbor). Pixels that fall outside the canvas
// stay transparent.
func resampleView(dst, src *Pixmap, view Matrix) {
	inv := view.Invert()
	sw, sh := src.width, src.height
	for y := 0; y < dst.height; y++ {
		row := y * dst.width * 4
		for x := 0; x < dst.width; x++ {
			sp := inv.TransformPoint(Pt(float64(x)+0.5, float64(y)+0.5))
			sx, sy := int(sp.X), int(sp.Y)
			di := row + x*4
			if sx < 0 || sx >= sw || sy < 0 || sy >= sh || sp.X < 0 || sp.Y < 0 {
				dst.data[di+0] = 0
				dst.data[di+1] = 0
				dst.data[di+2] = 0
				dst.data[di+3] = 0
				continue
			}
			si := (sy*sw + sx) * 4
			dst.data[di+0] = src.data[si+0]
			dst.data[di+1] = src.data[si+1]
			dst.data[di+2] = src.data[si+2]
			dst.data[di+3] = src.data[si+3]
		}
	}
}

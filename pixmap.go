package easel

import (
	"image"
	"image/color"
)

// Pixmap represents a rectangular pixel buffer.
// Pixels are stored as premultiplied RGBA, 4 bytes per pixel, which is
// the layout the compositor and the device targets consume directly.
type Pixmap struct {
	width  int
	height int
	data   []uint8
}

// NewPixmap creates a new pixmap with the given dimensions.
func NewPixmap(width, height int) *Pixmap {
	return &Pixmap{
		width:  width,
		height: height,
		data:   make([]uint8, width*height*4),
	}
}

// Width returns the width of the pixmap.
func (p *Pixmap) Width() int {
	return p.width
}

// Height returns the height of the pixmap.
func (p *Pixmap) Height() int {
	return p.height
}

// Data returns the raw pixel data (premultiplied RGBA format).
func (p *Pixmap) Data() []uint8 {
	return p.data
}

// SetPixel sets the color of a single pixel, replacing its contents.
// The color is premultiplied on write.
func (p *Pixmap) SetPixel(x, y int, c RGBA) {
	if x < 0 || x >= p.width || y < 0 || y >= p.height {
		return
	}
	i := (y*p.width + x) * 4
	p.data[i+0] = uint8(clamp255(c.R * c.A * 255))
	p.data[i+1] = uint8(clamp255(c.G * c.A * 255))
	p.data[i+2] = uint8(clamp255(c.B * c.A * 255))
	p.data[i+3] = uint8(clamp255(c.A * 255))
}

// GetPixel returns the straight (unpremultiplied) color of a single pixel.
func (p *Pixmap) GetPixel(x, y int) RGBA {
	if x < 0 || x >= p.width || y < 0 || y >= p.height {
		return Transparent
	}
	i := (y*p.width + x) * 4
	pm := RGBA{
		R: float64(p.data[i+0]) / 255,
		G: float64(p.data[i+1]) / 255,
		B: float64(p.data[i+2]) / 255,
		A: float64(p.data[i+3]) / 255,
	}
	return pm.Unpremultiply()
}

// BlendPixel composites the color over the pixel (source-over), scaling
// the source alpha by coverage. Coverage outside [0, 1] is clamped; a
// fully transparent result of the scaling is a no-op.
func (p *Pixmap) BlendPixel(x, y int, c RGBA, coverage float64) {
	if x < 0 || x >= p.width || y < 0 || y >= p.height {
		return
	}
	if coverage <= 0 {
		return
	}
	if coverage > 1 {
		coverage = 1
	}
	sa := c.A * coverage
	if sa <= 0 {
		return
	}
	sr := c.R * sa
	sg := c.G * sa
	sb := c.B * sa
	inv := 1 - sa

	i := (y*p.width + x) * 4
	p.data[i+0] = uint8(clamp255((sr + float64(p.data[i+0])/255*inv) * 255))
	p.data[i+1] = uint8(clamp255((sg + float64(p.data[i+1])/255*inv) * 255))
	p.data[i+2] = uint8(clamp255((sb + float64(p.data[i+2])/255*inv) * 255))
	p.data[i+3] = uint8(clamp255((sa + float64(p.data[i+3])/255*inv) * 255))
}

// Clear fills the entire pixmap with a color.
func (p *Pixmap) Clear(c RGBA) {
	r := uint8(clamp255(c.R * c.A * 255))
	g := uint8(clamp255(c.G * c.A * 255))
	b := uint8(clamp255(c.B * c.A * 255))
	a := uint8(clamp255(c.A * 255))

	for i := 0; i < len(p.data); i += 4 {
		p.data[i+0] = r
		p.data[i+1] = g
		p.data[i+2] = b
		p.data[i+3] = a
	}
}

// CopyFrom copies the pixel contents of src into p.
// The pixmaps must have identical dimensions; mismatched sizes are a no-op.
func (p *Pixmap) CopyFrom(src *Pixmap) {
	if src == nil || src.width != p.width || src.height != p.height {
		return
	}
	copy(p.data, src.data)
}

// Clone returns a deep copy of the pixmap.
func (p *Pixmap) Clone() *Pixmap {
	c := NewPixmap(p.width, p.height)
	copy(c.data, p.data)
	return c
}

// ToImage converts the pixmap to an image.RGBA.
// image.RGBA is alpha-premultiplied, matching the pixmap's storage, so
// this is a direct copy.
func (p *Pixmap) ToImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, p.width, p.height))
	copy(img.Pix, p.data)
	return img
}

// At implements the image.Image interface.
func (p *Pixmap) At(x, y int) color.Color {
	if x < 0 || x >= p.width || y < 0 || y >= p.height {
		return color.RGBA{}
	}
	i := (y*p.width + x) * 4
	return color.RGBA{
		R: p.data[i+0],
		G: p.data[i+1],
		B: p.data[i+2],
		A: p.data[i+3],
	}
}

// Bounds implements the image.Image interface.
func (p *Pixmap) Bounds() image.Rectangle {
	return image.Rect(0, 0, p.width, p.height)
}

// ColorModel implements the image.Image interface.
func (p *Pixmap) ColorModel() color.Model {
	return color.RGBAModel
}

// Package blend implements the per-mode compositing math used when flattening
// layers onto the presentation target.
//
// All operations work on premultiplied alpha channels in the range 0-255,
// following the WebGPU convention. The separable modes follow the W3C
// Compositing and Blending Level 1 formula
//
//	Result = (1-Sa)*D + (1-Da)*S + Sa*Da*B(Sc, Dc)
//
// where B operates on unmultiplied channels.
//
// References:
//   - Porter-Duff: "Compositing Digital Images" (1984)
//   - W3C Compositing and Blending Level 1: https://www.w3.org/TR/compositing-1/
package blend

// Mode identifies a compositing rule. The zero value is Over.
type Mode uint8

const (
	// Over is standard alpha compositing: S + D*(1-Sa).
	Over Mode = iota
	// Multiply darkens: B(Cb, Cs) = Cb*Cs.
	Multiply
	// Screen lightens: B(Cb, Cs) = 1 - (1-Cb)*(1-Cs).
	Screen
	// Overlay multiplies or screens depending on the backdrop channel.
	Overlay

	// NumModes is the number of compositing rules; useful for sizing
	// per-mode lookup arrays.
	NumModes
)

// Func is the signature for blend operations. All values are premultiplied
// alpha, 0-255. sr..sa are the source channels, dr..da the destination.
type Func func(sr, sg, sb, sa, dr, dg, db, da byte) (r, g, b, a byte)

// ForMode returns the blend function for the given mode.
// Unknown modes fall back to Over.
func ForMode(mode Mode) Func {
	switch mode {
	case Over:
		return blendOver
	case Multiply:
		return blendMultiply
	case Screen:
		return blendScreen
	case Overlay:
		return blendOverlay
	default:
		return blendOver
	}
}

// Composite blends src onto dst in place, pixel by pixel. Both slices must be
// premultiplied RGBA of equal length (a multiple of 4). opacity scales every
// source channel before blending; values outside [0,1] are clamped.
//
// Fully transparent source pixels are skipped: every mode defined here leaves
// the destination unchanged for Sa=0, and premultiplied storage guarantees
// the color channels are zero whenever alpha is.
func Composite(dst, src []byte, mode Mode, opacity float64) {
	if len(dst) != len(src) {
		return
	}
	if opacity <= 0 {
		return
	}
	if opacity > 1 {
		opacity = 1
	}
	op := byte(opacity*255 + 0.5)
	f := ForMode(mode)

	for i := 0; i+3 < len(src); i += 4 {
		sr, sg, sb, sa := src[i], src[i+1], src[i+2], src[i+3]
		if op < 255 {
			sr = mulDiv255(sr, op)
			sg = mulDiv255(sg, op)
			sb = mulDiv255(sb, op)
			sa = mulDiv255(sa, op)
		}
		if sa == 0 {
			continue
		}
		dst[i], dst[i+1], dst[i+2], dst[i+3] =
			f(sr, sg, sb, sa, dst[i], dst[i+1], dst[i+2], dst[i+3])
	}
}

// blendOver composites source over destination.
// Formula: S + D * (1 - Sa)
func blendOver(sr, sg, sb, sa, dr, dg, db, da byte) (byte, byte, byte, byte) {
	invSa := 255 - sa
	return addDiv255(sr, mulDiv255(dr, invSa)),
		addDiv255(sg, mulDiv255(dg, invSa)),
		addDiv255(sb, mulDiv255(db, invSa)),
		addDiv255(sa, mulDiv255(da, invSa))
}

// blendMultiply multiplies unmultiplied channels.
// Formula: B(Cb, Cs) = Cb * Cs
func blendMultiply(sr, sg, sb, sa, dr, dg, db, da byte) (byte, byte, byte, byte) {
	return separable(sr, sg, sb, sa, dr, dg, db, da, mulDiv255)
}

// blendScreen is the inverse of multiply and always lightens.
// Formula: B(Cb, Cs) = 1 - (1-Cb) * (1-Cs)
func blendScreen(sr, sg, sb, sa, dr, dg, db, da byte) (byte, byte, byte, byte) {
	return separable(sr, sg, sb, sa, dr, dg, db, da, screenChan)
}

// blendOverlay multiplies dark backdrops and screens light ones.
// Formula: B(Cb, Cs) = Cb < 0.5 ? 2*Cb*Cs : 1 - 2*(1-Cb)*(1-Cs)
func blendOverlay(sr, sg, sb, sa, dr, dg, db, da byte) (byte, byte, byte, byte) {
	return separable(sr, sg, sb, sa, dr, dg, db, da, overlayChan)
}

func screenChan(s, d byte) byte {
	return 255 - mulDiv255(255-s, 255-d)
}

func overlayChan(s, d byte) byte {
	// d < 128 keeps 2*d inside a byte; the else branch keeps 2*(255-d) inside.
	if d < 128 {
		return mulDiv255(2*d, s)
	}
	return 255 - mulDiv255(2*(255-d), 255-s)
}

// separable applies a per-channel blend function B to unmultiplied channels
// and recombines with the standard compositing formula
// (1-Sa)*D + (1-Da)*S + Sa*Da*B(Sc, Dc).
func separable(sr, sg, sb, sa, dr, dg, db, da byte, blendChan func(s, d byte) byte) (byte, byte, byte, byte) {
	if sa == 0 {
		return dr, dg, db, da
	}
	if da == 0 {
		return sr, sg, sb, sa
	}

	// Unpremultiply: color = alpha * unmultiplied, so unmultiplied = color/alpha.
	sur := byte((uint16(sr) * 255) / uint16(sa))
	sug := byte((uint16(sg) * 255) / uint16(sa))
	sub := byte((uint16(sb) * 255) / uint16(sa))
	dur := byte((uint16(dr) * 255) / uint16(da))
	dug := byte((uint16(dg) * 255) / uint16(da))
	dub := byte((uint16(db) * 255) / uint16(da))

	br := blendChan(sur, dur)
	bg := blendChan(sug, dug)
	bb := blendChan(sub, dub)

	invSa := 255 - sa
	invDa := 255 - da
	saDa := mulDiv255(sa, da)

	outR := addDiv255(addDiv255(mulDiv255(dr, invSa), mulDiv255(sr, invDa)), mulDiv255(saDa, br))
	outG := addDiv255(addDiv255(mulDiv255(dg, invSa), mulDiv255(sg, invDa)), mulDiv255(saDa, bg))
	outB := addDiv255(addDiv255(mulDiv255(db, invSa), mulDiv255(sb, invDa)), mulDiv255(saDa, bb))
	outA := addDiv255(sa, mulDiv255(da, invSa))

	return outR, outG, outB, outA
}

// mulDiv255 multiplies two byte values and divides by 255 with rounding.
// Formula: (a * b + 127) / 255
func mulDiv255(a, b byte) byte {
	return byte((uint16(a)*uint16(b) + 127) / 255)
}

// addDiv255 adds two byte values, clamping to 255.
func addDiv255(a, b byte) byte {
	sum := uint16(a) + uint16(b)
	if sum > 255 {
		return 255
	}
	return byte(sum)
}

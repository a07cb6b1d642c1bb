package blend

import (
	"bytes"
	"testing"
)

// TestMulDiv255 tests the rounding multiply helper.
func TestMulDiv255(t *testing.T) {
	tests := []struct {
		name string
		a, b byte
		want byte
	}{
		{"0 * 0", 0, 0, 0},
		{"255 * 255", 255, 255, 255},
		{"255 * 0", 255, 0, 0},
		{"255 * 128", 255, 128, 128},
		{"128 * 128", 128, 128, 64},
		{"1 * 255", 1, 255, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mulDiv255(tt.a, tt.b)
			if got != tt.want {
				t.Errorf("mulDiv255(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

// TestBlendOver tests standard alpha compositing.
func TestBlendOver(t *testing.T) {
	tests := []struct {
		name           string
		sr, sg, sb, sa byte
		dr, dg, db, da byte
		wr, wg, wb, wa byte
	}{
		{
			"opaque source replaces",
			255, 0, 0, 255,
			0, 255, 0, 255,
			255, 0, 0, 255,
		},
		{
			"transparent source keeps destination",
			0, 0, 0, 0,
			0, 255, 0, 255,
			0, 255, 0, 255,
		},
		{
			"half alpha over opaque",
			128, 0, 0, 128, // premultiplied 50% red
			0, 0, 0, 255,
			128, 0, 0, 255,
		},
		{
			"half over half accumulates alpha",
			128, 0, 0, 128,
			0, 128, 0, 128,
			128, 64, 0, 192, // 128 + 128*(1-0.5) ≈ 192
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, g, b, a := blendOver(tt.sr, tt.sg, tt.sb, tt.sa, tt.dr, tt.dg, tt.db, tt.da)
			if r != tt.wr || g != tt.wg || b != tt.wb || a != tt.wa {
				t.Errorf("blendOver() = (%d, %d, %d, %d), want (%d, %d, %d, %d)",
					r, g, b, a, tt.wr, tt.wg, tt.wb, tt.wa)
			}
		})
	}
}

// TestBlendMultiply tests the multiply mode against known values.
func TestBlendMultiply(t *testing.T) {
	tests := []struct {
		name           string
		sr, sg, sb, sa byte
		dr, dg, db, da byte
		wr, wg, wb, wa byte
	}{
		{
			"white times white",
			255, 255, 255, 255,
			255, 255, 255, 255,
			255, 255, 255, 255,
		},
		{
			"black darkens everything",
			0, 0, 0, 255,
			255, 255, 255, 255,
			0, 0, 0, 255,
		},
		{
			"gray times gray",
			128, 128, 128, 255,
			128, 128, 128, 255,
			64, 64, 64, 255,
		},
		{
			"transparent source keeps destination",
			0, 0, 0, 0,
			255, 255, 255, 255,
			255, 255, 255, 255,
		},
		{
			"opaque source over empty destination",
			40, 80, 120, 255,
			0, 0, 0, 0,
			40, 80, 120, 255,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, g, b, a := blendMultiply(tt.sr, tt.sg, tt.sb, tt.sa, tt.dr, tt.dg, tt.db, tt.da)
			if r != tt.wr || g != tt.wg || b != tt.wb || a != tt.wa {
				t.Errorf("blendMultiply() = (%d, %d, %d, %d), want (%d, %d, %d, %d)",
					r, g, b, a, tt.wr, tt.wg, tt.wb, tt.wa)
			}
		})
	}
}

// TestBlendScreen tests that screen lightens and black is neutral.
func TestBlendScreen(t *testing.T) {
	tests := []struct {
		name           string
		sr, sg, sb, sa byte
		dr, dg, db, da byte
		wr, wg, wb, wa byte
	}{
		{
			"black source is neutral",
			0, 0, 0, 255,
			100, 150, 200, 255,
			100, 150, 200, 255,
		},
		{
			"white source saturates",
			255, 255, 255, 255,
			100, 150, 200, 255,
			255, 255, 255, 255,
		},
		{
			"gray over gray",
			128, 128, 128, 255,
			128, 128, 128, 255,
			192, 192, 192, 255, // 1-(1-0.502)^2 ≈ 0.752
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, g, b, a := blendScreen(tt.sr, tt.sg, tt.sb, tt.sa, tt.dr, tt.dg, tt.db, tt.da)
			if r != tt.wr || g != tt.wg || b != tt.wb || a != tt.wa {
				t.Errorf("blendScreen() = (%d, %d, %d, %d), want (%d, %d, %d, %d)",
					r, g, b, a, tt.wr, tt.wg, tt.wb, tt.wa)
			}
		})
	}
}

// TestBlendOverlay tests both halves of the piecewise overlay formula.
func TestBlendOverlay(t *testing.T) {
	tests := []struct {
		name           string
		sr, sg, sb, sa byte
		dr, dg, db, da byte
		wr, wg, wb, wa byte
	}{
		{
			"dark backdrop multiplies",
			255, 255, 255, 255,
			64, 64, 64, 255,
			128, 128, 128, 255, // 2*0.25*1.0 = 0.5
		},
		{
			"light backdrop screens",
			0, 0, 0, 255,
			192, 192, 192, 255,
			129, 129, 129, 255, // 1-2*(1-0.753)*(1-0) ≈ 0.506
		},
		{
			"black backdrop stays black",
			128, 128, 128, 255,
			0, 0, 0, 255,
			0, 0, 0, 255,
		},
		{
			"white backdrop stays white",
			128, 128, 128, 255,
			255, 255, 255, 255,
			255, 255, 255, 255,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, g, b, a := blendOverlay(tt.sr, tt.sg, tt.sb, tt.sa, tt.dr, tt.dg, tt.db, tt.da)
			if r != tt.wr || g != tt.wg || b != tt.wb || a != tt.wa {
				t.Errorf("blendOverlay() = (%d, %d, %d, %d), want (%d, %d, %d, %d)",
					r, g, b, a, tt.wr, tt.wg, tt.wb, tt.wa)
			}
		})
	}
}

// TestOverlayChanBounds exercises the byte-overflow boundary of the piecewise
// overlay channel function.
func TestOverlayChanBounds(t *testing.T) {
	// d=127 takes the multiply branch: 2*127 = 254 fits in a byte.
	if got := overlayChan(255, 127); got != mulDiv255(254, 255) {
		t.Errorf("overlayChan(255, 127) = %d, want %d", got, mulDiv255(254, 255))
	}
	// d=128 takes the screen branch: 2*(255-128) = 254 fits in a byte.
	if got := overlayChan(0, 128); got != 255-mulDiv255(254, 255) {
		t.Errorf("overlayChan(0, 128) = %d, want %d", got, 255-mulDiv255(254, 255))
	}
}

// TestForModeFallback ensures unknown modes blend as Over.
func TestForModeFallback(t *testing.T) {
	f := ForMode(Mode(200))
	r, g, b, a := f(255, 0, 0, 255, 0, 255, 0, 255)
	if r != 255 || g != 0 || b != 0 || a != 255 {
		t.Errorf("unknown mode blended as (%d, %d, %d, %d), want opaque red", r, g, b, a)
	}
}

// TestComposite tests the in-place row compositor.
func TestComposite(t *testing.T) {
	t.Run("full opacity over", func(t *testing.T) {
		dst := []byte{0, 0, 0, 255, 0, 0, 0, 255}
		src := []byte{255, 0, 0, 255, 0, 0, 0, 0}
		Composite(dst, src, Over, 1.0)
		want := []byte{255, 0, 0, 255, 0, 0, 0, 255}
		if !bytes.Equal(dst, want) {
			t.Errorf("Composite() = %v, want %v", dst, want)
		}
	})

	t.Run("zero opacity is a no-op", func(t *testing.T) {
		dst := []byte{10, 20, 30, 255}
		src := []byte{255, 255, 255, 255}
		Composite(dst, src, Over, 0)
		want := []byte{10, 20, 30, 255}
		if !bytes.Equal(dst, want) {
			t.Errorf("Composite() = %v, want %v", dst, want)
		}
	})

	t.Run("half opacity scales premultiplied source", func(t *testing.T) {
		dst := []byte{0, 0, 0, 255}
		src := []byte{255, 0, 0, 255}
		Composite(dst, src, Over, 0.5)
		// source scaled to (128, 0, 0, 128), then over black
		if dst[0] != 128 || dst[3] != 255 {
			t.Errorf("Composite() = %v, want r=128 a=255", dst)
		}
	})

	t.Run("opacity above one is clamped", func(t *testing.T) {
		a := []byte{0, 0, 0, 255}
		b := []byte{0, 0, 0, 255}
		src := []byte{90, 90, 90, 255}
		Composite(a, src, Over, 1.0)
		Composite(b, src, Over, 5.0)
		if !bytes.Equal(a, b) {
			t.Errorf("opacity 5.0 result %v differs from 1.0 result %v", b, a)
		}
	})

	t.Run("mismatched lengths do nothing", func(t *testing.T) {
		dst := []byte{1, 2, 3, 4}
		Composite(dst, []byte{5, 6, 7, 8, 9, 10, 11, 12}, Over, 1.0)
		want := []byte{1, 2, 3, 4}
		if !bytes.Equal(dst, want) {
			t.Errorf("Composite() = %v, want %v", dst, want)
		}
	})

	t.Run("deterministic across runs", func(t *testing.T) {
		src := make([]byte, 64)
		for i := range src {
			src[i] = byte(i * 7)
		}
		// Premultiply-sanitize: alpha must be the channel max.
		for i := 0; i+3 < len(src); i += 4 {
			src[i+3] = 255
		}
		run := func() []byte {
			dst := make([]byte, 64)
			for i := range dst {
				dst[i] = byte(255 - i)
			}
			Composite(dst, src, Overlay, 0.7)
			return dst
		}
		if !bytes.Equal(run(), run()) {
			t.Error("identical Composite runs produced different bytes")
		}
	})
}

// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package glyph builds the 5x8 dot patterns an HD44780 stores in its character
// generator RAM (CGRAM).
//
// A Glyph is 8 rows, top to bottom. Only the low 5 bits of each row are
// displayed; bit 4 is the leftmost dot.
package glyph

import (
	"image"
	"image/color"
	"strings"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/math/fixed"
)

const (
	// Width is the number of dots per glyph row.
	Width = 5
	// Height is the number of rows in a glyph.
	Height = 8

	rowMask byte = 0x1f
)

// Glyph is the dot pattern of one character cell.
type Glyph [Height]byte

// Bounds returns the size of a glyph as an image rectangle.
func Bounds() image.Rectangle {
	return image.Rect(0, 0, Width, Height)
}

// At reports whether the dot at column x, row y is lit.
func (g Glyph) At(x, y int) bool {
	if x < 0 || x >= Width || y < 0 || y >= Height {
		return false
	}
	return g[y]&(1<<(Width-1-x)) != 0
}

// Set lights or clears the dot at column x, row y.
func (g *Glyph) Set(x, y int, on bool) {
	if x < 0 || x >= Width || y < 0 || y >= Height {
		return
	}
	bit := byte(1 << (Width - 1 - x))
	if on {
		g[y] |= bit
	} else {
		g[y] &^= bit
	}
}

// String draws the glyph with '#' for lit dots and '.' for dark ones, one row
// per line.
func (g Glyph) String() string {
	var sb strings.Builder
	for y := range Height {
		for x := range Width {
			if g.At(x, y) {
				sb.WriteByte('#')
			} else {
				sb.WriteByte('.')
			}
		}
		if y < Height-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// Parse is the reverse of String. Any character other than '#', 'X', 'x',
// '*' or '1' is a dark dot. Missing rows and columns are dark.
func Parse(s string) Glyph {
	var g Glyph
	for y, line := range strings.Split(strings.TrimSpace(s), "\n") {
		if y >= Height {
			break
		}
		for x, c := range strings.TrimSpace(line) {
			switch c {
			case '#', 'X', 'x', '*', '1':
				g.Set(x, y, true)
			}
		}
	}
	return g
}

// FromImage samples the 5x8 area at the origin of img. A pixel is a lit dot
// when it is darker than mid-gray and not transparent.
func FromImage(img image.Image) Glyph {
	var g Glyph
	b := img.Bounds()
	for y := range Height {
		for x := range Width {
			p := image.Pt(b.Min.X+x, b.Min.Y+y)
			if !p.In(b) {
				continue
			}
			g.Set(x, y, isDark(img.At(p.X, p.Y)))
		}
	}
	return g
}

// FromMask is like FromImage, but a pixel is lit when its alpha is at least
// half, which is what font rasterisers produce.
func FromMask(img image.Image) Glyph {
	var g Glyph
	b := img.Bounds()
	for y := range Height {
		for x := range Width {
			p := image.Pt(b.Min.X+x, b.Min.Y+y)
			if !p.In(b) {
				continue
			}
			_, _, _, a := img.At(p.X, p.Y).RGBA()
			g.Set(x, y, a >= 0x8000)
		}
	}
	return g
}

func isDark(c color.Color) bool {
	_, _, _, a := c.RGBA()
	if a < 0x8000 {
		return false
	}
	y := color.Gray16Model.Convert(c).(color.Gray16).Y
	return y < 0x8000
}

// Image returns the glyph as a black on white paletted image.
func (g Glyph) Image() *image.Paletted {
	img := image.NewPaletted(Bounds(), color.Palette{color.White, color.Black})
	for y := range Height {
		for x := range Width {
			if g.At(x, y) {
				img.SetColorIndex(x, y, 1)
			}
		}
	}
	return img
}

// NewFace parses a TrueType font and returns a face sized for a character
// cell. size is in points at 72 DPI, so it is also the pixel height.
func NewFace(ttf []byte, size float64) (font.Face, error) {
	f, err := truetype.Parse(ttf)
	if err != nil {
		return nil, err
	}
	return truetype.NewFace(f, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	}), nil
}

// DefaultFace returns Go Mono sized to fit a 5x8 cell.
func DefaultFace() font.Face {
	face, err := NewFace(gomono.TTF, 8)
	if err != nil {
		// gomono.TTF is compiled in.
		panic(err)
	}
	return face
}

// Rasterize draws r with face into a 5x8 cell. The baseline sits on row 6,
// leaving row 7 for descenders and the underline cursor, the same layout as
// the HD44780 character ROM.
func Rasterize(face font.Face, r rune) Glyph {
	dst := image.NewAlpha(Bounds())
	d := font.Drawer{
		Dst:  dst,
		Src:  image.Opaque,
		Face: face,
		Dot:  fixed.P(0, Height-1),
	}
	d.DrawString(string(r))
	return FromMask(dst)
}

// Bar returns a progress bar cell with the leftmost n columns lit on the
// middle six rows. n is clamped to 0..Width.
func Bar(n int) Glyph {
	n = max(0, min(n, Width))
	dc := gg.NewContext(Width, Height)
	dc.SetColor(color.White)
	dc.Clear()
	if n > 0 {
		dc.SetColor(color.Black)
		dc.DrawRectangle(0, 1, float64(n), Height-2)
		dc.Fill()
	}
	return FromImage(dc.Image())
}

// Bars returns the six cells needed to draw a horizontal bar graph with one
// dot resolution: Bars()[n] has n columns lit.
func Bars() [Width + 1]Glyph {
	var b [Width + 1]Glyph
	for n := range b {
		b[n] = Bar(n)
	}
	return b
}

// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package lcdsim implements an i2c.Bus with a PCF8574 LCD backpack and an
// HD44780 controller behind it. The display can be drawn on a terminal
// (stdout) using ANSI color codes.
//
// Useful while you are waiting for your LCD2004 to come by mail, and to check
// what a driver actually puts on screen in tests.
package lcdsim

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"io"
	"sync"

	"github.com/GermanBionicSystems/devices/glyph"
	"github.com/GermanBionicSystems/devices/hd44780"
	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"golang.org/x/image/font"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// ErrNoDevice is returned for a transaction to an address nothing answers on.
var ErrNoDevice = errors.New("lcdsim: no device at address")

// Opts represents the options available for the simulator.
type Opts struct {
	// Cols and Rows are the visible size. Zero means 16x2.
	Cols int
	Rows int
	// W receives Render output. Defaults to stdout.
	W       io.Writer
	Palette *ansi256.Palette
	// Face draws the characters of the built-in ROM. Defaults to
	// glyph.DefaultFace.
	Face font.Face

	_ struct{}
}

var (
	colorDot       = color.NRGBA{0xf0, 0xf0, 0xff, 0xff}
	colorLit       = color.NRGBA{0x20, 0x40, 0xe0, 0xff}
	colorUnlit     = color.NRGBA{0x10, 0x18, 0x30, 0xff}
	colorDotUnlit  = color.NRGBA{0x40, 0x48, 0x60, 0xff}
	colorSeparator = color.NRGBA{0x00, 0x00, 0x00, 0xff}
)

// Bus is a simulated I²C bus with one LCD backpack on it.
type Bus struct {
	mu      sync.Mutex
	addr    uint16
	pins    hd44780.PinMap
	rows    int
	cols    int
	w       io.Writer
	palette ansi256.Palette
	face    font.Face
	rom     map[byte]glyph.Glyph

	latched byte
	strobes int
	txs     int
	ctrl    controller

	buf bytes.Buffer
}

// New returns a bus with a backpack wired as pins at addr.
func New(addr uint16, pins hd44780.PinMap, opts *Opts) *Bus {
	if opts == nil {
		opts = &Opts{}
	}
	b := &Bus{
		addr: addr,
		pins: pins,
		rows: opts.Rows,
		cols: opts.Cols,
		w:    opts.W,
		face: opts.Face,
		rom:  map[byte]glyph.Glyph{},
	}
	if b.rows <= 0 {
		b.rows = 2
	}
	if b.cols <= 0 {
		b.cols = 16
	}
	if b.w == nil {
		b.w = colorable.NewColorableStdout()
	}
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	b.palette = *p
	b.ctrl.reset()
	return b
}

func (b *Bus) String() string {
	return fmt.Sprintf("lcdsim(0x%x)", b.addr)
}

// Tx implements i2c.Bus.
//
// Every byte of w is latched on the expander pins in turn. A read returns the
// latched value, as a PCF8574 does when nothing pulls its pins low.
func (b *Bus) Tx(addr uint16, w, r []byte) error {
	if addr != b.addr {
		return fmt.Errorf("%w 0x%x", ErrNoDevice, addr)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, v := range w {
		b.latch(v)
	}
	for ix := range r {
		r[ix] = b.latched
	}
	b.txs++
	return nil
}

// SetSpeed implements i2c.Bus.
func (b *Bus) SetSpeed(f physic.Frequency) error {
	return nil
}

// Close implements i2c.BusCloser.
func (b *Bus) Close() error {
	return nil
}

// The controller samples RS and the data lines on the falling edge of Enable.
func (b *Bus) latch(v byte) {
	e := b.pins.Enable
	if b.latched&e != 0 && v&e == 0 {
		var nibble byte
		for ix, mask := range b.pins.Data {
			if b.latched&mask != 0 {
				nibble |= 1 << ix
			}
		}
		b.strobes++
		b.ctrl.strobe(nibble, b.latched&b.pins.RS != 0)
	}
	b.latched = v
}

// Text returns the characters in the visible window, one string per row.
// Character codes are returned as is, so user defined characters are 0-7.
func (b *Bus) Text() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	lines := make([]string, b.rows)
	line := make([]byte, b.cols)
	for row := range b.rows {
		for col := range b.cols {
			line[col] = b.ctrl.ddram[b.ctrl.visible(row, col)]
		}
		lines[row] = string(line)
	}
	return lines
}

// Glyph returns user defined character location (0-7).
func (b *Bus) Glyph(location byte) glyph.Glyph {
	b.mu.Lock()
	defer b.mu.Unlock()
	var g glyph.Glyph
	copy(g[:], b.ctrl.cg[int(location&0x07)*glyph.Height:])
	return g
}

// Latched returns the last byte written to the expander.
func (b *Bus) Latched() byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.latched
}

// BacklightOn reports whether the backlight line is high.
func (b *Bus) BacklightOn() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.latched&b.pins.Backlight != 0
}

// Strobes returns the number of Enable pulses seen.
func (b *Bus) Strobes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.strobes
}

// Transactions returns the number of Tx calls to the backpack address.
func (b *Bus) Transactions() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.txs
}

// DisplayOn reports the display bit of the display control register.
func (b *Bus) DisplayOn() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ctrl.displayOn
}

// CursorOn reports whether the underline cursor is shown.
func (b *Bus) CursorOn() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ctrl.cursorOn
}

// BlinkOn reports whether the blinking block cursor is shown.
func (b *Bus) BlinkOn() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ctrl.blinkOn
}

// FourBit reports whether the controller is in 4-bit interface mode.
func (b *Bus) FourBit() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ctrl.fourBit
}

// Lines returns 1 or 2, the line mode selected by the last function set.
func (b *Bus) Lines() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ctrl.twoLines {
		return 2
	}
	return 1
}

// Address returns the address counter and whether it points into CGRAM.
func (b *Bus) Address() (ac byte, cgram bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ctrl.ac, b.ctrl.cgram
}

// EntryMode reports the increment and shift flags of the entry mode.
func (b *Bus) EntryMode() (increment, shift bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ctrl.increment, b.ctrl.shiftOnWrite
}

// Render draws the visible window. Each character cell is 5x8 blocks with a
// one block gap, so a 16 column display needs a 96 column terminal.
func (b *Bus) Render() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	bg, fg := colorUnlit, colorDotUnlit
	if b.latched&b.pins.Backlight != 0 || b.pins.Backlight == 0 {
		bg, fg = colorLit, colorDot
	}
	cursor := b.cursorCell()

	b.buf.Reset()
	_, _ = b.buf.WriteString("\033[0m")
	for row := range b.rows {
		cells := make([]glyph.Glyph, b.cols)
		if b.ctrl.displayOn {
			for col := range b.cols {
				cells[col] = b.cell(b.ctrl.ddram[b.ctrl.visible(row, col)])
				if cursor.row == row && cursor.col == col {
					if b.ctrl.blinkOn {
						cells[col] = solid
					} else if b.ctrl.cursorOn {
						cells[col][glyph.Height-1] = 0x1f
					}
				}
			}
		}
		for y := range glyph.Height {
			for col, g := range cells {
				for x := range glyph.Width {
					c := bg
					if g.At(x, y) {
						c = fg
					}
					_, _ = io.WriteString(&b.buf, b.palette.Block(c))
				}
				if col < len(cells)-1 {
					_, _ = io.WriteString(&b.buf, b.palette.Block(colorSeparator))
				}
			}
			_, _ = b.buf.WriteString("\033[0m\n")
		}
		_, _ = b.buf.WriteString("\n")
	}
	_, err := b.buf.WriteTo(b.w)
	return err
}

var solid = glyph.Glyph{0x1f, 0x1f, 0x1f, 0x1f, 0x1f, 0x1f, 0x1f, 0x1f}

type position struct {
	row, col int
}

// cursorCell returns where the address counter is on screen, or -1,-1.
func (b *Bus) cursorCell() position {
	if b.ctrl.cgram {
		return position{-1, -1}
	}
	for row := range b.rows {
		for col := range b.cols {
			if b.ctrl.visible(row, col) == b.ctrl.ac {
				return position{row, col}
			}
		}
	}
	return position{-1, -1}
}

// cell returns the dot pattern for a character code. Codes 0-15 are the user
// defined characters, the rest come from the font.
func (b *Bus) cell(code byte) glyph.Glyph {
	if code < 0x10 {
		var g glyph.Glyph
		copy(g[:], b.ctrl.cg[int(code&0x07)*glyph.Height:])
		return g
	}
	g, ok := b.rom[code]
	if !ok {
		if b.face == nil {
			b.face = glyph.DefaultFace()
		}
		g = glyph.Rasterize(b.face, rune(code))
		b.rom[code] = g
	}
	return g
}

var _ i2c.BusCloser = &Bus{}

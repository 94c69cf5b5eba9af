// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package lcdsim

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/GermanBionicSystems/devices/glyph"
	"github.com/GermanBionicSystems/devices/hd44780"
	"github.com/GermanBionicSystems/devices/pcf857x"
	"golang.org/x/image/font/basicfont"
)

const testAddress uint16 = 0x27

// frames encodes bytes the way the backpack receives them with DefaultWiring
// and the backlight on.
func frames(rs bool, values ...byte) []byte {
	base := byte(0x08)
	if rs {
		base |= 0x01
	}
	var out []byte
	for _, v := range values {
		hi := base | v&0xf0
		lo := base | v<<4
		out = append(out, hi|0x04, hi, lo|0x04, lo)
	}
	return out
}

// initFrames switches a freshly reset controller to 4-bit, 2 line mode.
var initFrames = []byte{
	0x3c, 0x38, 0x3c, 0x38, 0x3c, 0x38,
	0x2c, 0x28,
	0x2c, 0x28, 0x8c, 0x88,
}

func getBus(t *testing.T) (*Bus, *bytes.Buffer) {
	t.Helper()
	w := &bytes.Buffer{}
	b := New(testAddress, hd44780.DefaultWiring, &Opts{W: w, Face: basicfont.Face7x13})
	if err := b.Tx(testAddress, initFrames, nil); err != nil {
		t.Fatal(err)
	}
	return b, w
}

func TestInit(t *testing.T) {
	b := New(testAddress, hd44780.DefaultWiring, &Opts{W: &bytes.Buffer{}})
	if b.FourBit() {
		t.Error("controller starts in 8-bit mode")
	}
	if err := b.Tx(testAddress, initFrames[:8], nil); err != nil {
		t.Fatal(err)
	}
	if !b.FourBit() || b.Lines() != 1 {
		t.Errorf("expected 4-bit 1 line mode, found fourBit=%t lines=%d", b.FourBit(), b.Lines())
	}
	if err := b.Tx(testAddress, initFrames[8:], nil); err != nil {
		t.Fatal(err)
	}
	if b.Lines() != 2 {
		t.Errorf("expected 2 line mode, found %d", b.Lines())
	}
	if b.Strobes() != 6 {
		t.Errorf("expected 6 strobes, found %d", b.Strobes())
	}
	if b.Transactions() != 2 {
		t.Errorf("expected 2 transactions, found %d", b.Transactions())
	}
	if !b.BacklightOn() || b.Latched() != 0x88 {
		t.Errorf("unexpected latch 0x%02x", b.Latched())
	}
}

func TestStrobeOnFallingEdge(t *testing.T) {
	b, _ := getBus(t)
	before := b.Strobes()
	// Enable held high, then repeated low frames.
	if err := b.Tx(testAddress, []byte{0x4d, 0x4d, 0x49, 0x49, 0x48}, nil); err != nil {
		t.Fatal(err)
	}
	if n := b.Strobes() - before; n != 1 {
		t.Errorf("expected 1 strobe, found %d", n)
	}
}

func TestWrongAddress(t *testing.T) {
	b, _ := getBus(t)
	err := b.Tx(0x3f, []byte{0x00}, nil)
	if !errors.Is(err, ErrNoDevice) {
		t.Errorf("expected ErrNoDevice, received %v", err)
	}
	if b.Latched() != 0x88 {
		t.Error("write to another address changed the latch")
	}
	if pcf857x.Probe(b, 0x3f) {
		t.Error("Probe() found a device at 0x3f")
	}
	if !pcf857x.Probe(b, testAddress) {
		t.Error("Probe() did not find the backpack")
	}
}

func TestRead(t *testing.T) {
	b, _ := getBus(t)
	r := make([]byte, 2)
	if err := b.Tx(testAddress, []byte{0x5a}, r); err != nil {
		t.Fatal(err)
	}
	if r[0] != 0x5a || r[1] != 0x5a {
		t.Errorf("expected latched value, found %#v", r)
	}
}

func TestText(t *testing.T) {
	b, _ := getBus(t)
	w := append(frames(false, 0x80|0x40), frames(true, []byte("Hi")...)...)
	if err := b.Tx(testAddress, w, nil); err != nil {
		t.Fatal(err)
	}
	text := b.Text()
	if len(text) != 2 {
		t.Fatalf("expected 2 rows, found %d", len(text))
	}
	if text[0] != strings.Repeat(" ", 16) || text[1] != "Hi"+strings.Repeat(" ", 14) {
		t.Errorf("unexpected text %q", text)
	}
	if ac, cg := b.Address(); ac != 0x42 || cg {
		t.Errorf("unexpected address 0x%02x cgram=%t", ac, cg)
	}
}

func TestCGRAM(t *testing.T) {
	b, _ := getBus(t)
	g := glyph.Bar(2)
	w := append(frames(false, 0x40|5<<3), frames(true, g[:]...)...)
	if err := b.Tx(testAddress, w, nil); err != nil {
		t.Fatal(err)
	}
	if b.Glyph(5) != g {
		t.Errorf("Glyph(5):\n%s", b.Glyph(5))
	}
	if ac, cg := b.Address(); ac != 48 || !cg {
		t.Errorf("unexpected address %d cgram=%t", ac, cg)
	}
	// Codes 8-15 show the same characters as 0-7.
	if b.cell(13) != g {
		t.Error("code 13 does not map to CGRAM 5")
	}
}

func TestControllerWrap(t *testing.T) {
	var c controller
	c.reset()
	c.twoLines = true
	tests := []struct {
		ac       byte
		forward  bool
		expected byte
	}{
		{0x00, true, 0x01},
		{0x27, true, 0x40},
		{0x67, true, 0x00},
		{0x00, false, 0x67},
		{0x40, false, 0x27},
	}
	for _, tc := range tests {
		if got := c.step(tc.ac, tc.forward); got != tc.expected {
			t.Errorf("step(0x%02x, %t) = 0x%02x, expected 0x%02x", tc.ac, tc.forward, got, tc.expected)
		}
	}
	c.twoLines = false
	if got := c.step(79, true); got != 0 {
		t.Errorf("1 line step(79) = %d", got)
	}
	if got := c.step(0, false); got != 79 {
		t.Errorf("1 line step(0, backward) = %d", got)
	}
}

func TestControllerShift(t *testing.T) {
	var c controller
	c.reset()
	c.twoLines = true
	// Entry mode increment with display shift, then write 3 characters.
	c.execute(0x07)
	c.write('a')
	c.write('b')
	c.write('c')
	if c.offset != 3 {
		t.Errorf("expected offset 3, found %d", c.offset)
	}
	if c.visible(0, 0) != 3 || c.visible(1, 0) != 0x43 {
		t.Errorf("unexpected window 0x%02x 0x%02x", c.visible(0, 0), c.visible(1, 0))
	}
	// Cursor shift only moves the address counter.
	c.execute(0x10)
	if c.ac != 2 || c.offset != 3 {
		t.Errorf("cursor shift: ac=%d offset=%d", c.ac, c.offset)
	}
	c.execute(0x1c)
	if c.offset != 2 {
		t.Errorf("display shift right: offset=%d", c.offset)
	}
	c.execute(0x02)
	if c.ac != 0 || c.offset != 0 {
		t.Errorf("home: ac=%d offset=%d", c.ac, c.offset)
	}
	c.execute(0x01)
	if c.ddram[0] != ' ' || !c.increment {
		t.Error("clear did not reset DDRAM and entry mode")
	}
}

func TestControllerModeSwitch(t *testing.T) {
	var c controller
	c.reset()
	c.strobe(0x2, false)
	if !c.fourBit {
		t.Fatal("expected 4-bit mode")
	}
	// 8-bit function set sent as two nibbles.
	c.strobe(0x3, false)
	c.strobe(0x0, false)
	if c.fourBit || c.pending {
		t.Error("expected 8-bit mode")
	}
}

func TestRender(t *testing.T) {
	b, w := getBus(t)
	if err := b.Tx(testAddress, frames(false, 0x0f), nil); err != nil {
		t.Fatal(err)
	}
	if err := b.Tx(testAddress, frames(true, []byte("|")...), nil); err != nil {
		t.Fatal(err)
	}
	if err := b.Render(); err != nil {
		t.Fatal(err)
	}
	out := w.String()
	if n := strings.Count(out, "\n"); n != 2*(glyph.Height+1) {
		t.Errorf("expected %d lines, found %d", 2*(glyph.Height+1), n)
	}
	if !strings.HasPrefix(out, "\033[0m") {
		t.Errorf("unexpected output %q", out[:min(len(out), 16)])
	}

	// Dark display renders the same number of lines.
	w.Reset()
	if err := b.Tx(testAddress, frames(false, 0x08), nil); err != nil {
		t.Fatal(err)
	}
	if err := b.Render(); err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(w.String(), "\n"); n != 2*(glyph.Height+1) {
		t.Errorf("expected %d lines, found %d", 2*(glyph.Height+1), n)
	}
}

func TestWithDriver(t *testing.T) {
	b := New(testAddress, hd44780.JoyITWiring, &Opts{Cols: 20, Rows: 4, W: &bytes.Buffer{}})
	dev, err := hd44780.NewI2C(b, testAddress, &hd44780.Opts{Pins: hd44780.JoyITWiring})
	if err != nil {
		t.Fatal(err)
	}
	if err = dev.Begin(20, 4); err != nil {
		t.Fatal(err)
	}
	if err = dev.SetCursor(2, 3); err != nil {
		t.Fatal(err)
	}
	if _, err = dev.WriteString("row 4"); err != nil {
		t.Fatal(err)
	}
	if text := b.Text(); text[3] != "  row 4             " {
		t.Errorf("unexpected row %q", text[3])
	}
	if b.BacklightOn() {
		t.Error("JoyIT wiring has no backlight line")
	}
	if b.String() != "lcdsim(0x27)" {
		t.Errorf("String() = %q", b.String())
	}
}

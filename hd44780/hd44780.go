// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package hd44780 controls the Hitachi LCD display chipset HD-44780 through a
// PCF8574 I²C backpack.
//
// The backpack exposes 8 output lines. Four of them carry the data nibble
// (D4-D7), the others RS, RW, Enable and the backlight transistor. Every
// instruction or character is sent as two nibbles, high one first, and every
// nibble is clocked in by pulsing Enable: one expander write with Enable high
// and one with it low. Both writes go in the same I²C transaction.
//
// The R/W line is never raised, so the busy flag is not read. Instructions
// that are slow to execute are followed by a fixed delay instead.
//
// # Datasheet
//
// https://www.sparkfun.com/datasheets/LCD/HD44780.pdf
package hd44780

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/GermanBionicSystems/devices/pcf857x"
	"github.com/jonboulle/clockwork"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/i2c"
)

// Instructions.
const (
	cmdClear          byte = 0x01
	cmdHome           byte = 0x02
	cmdEntryMode      byte = 0x04
	cmdDisplayControl byte = 0x08
	cmdShift          byte = 0x10
	cmdFunctionSet    byte = 0x20
	cmdSetCGRAMAddr   byte = 0x40
	cmdSetDDRAMAddr   byte = 0x80
)

// Instruction flags.
const (
	entryLeftToRight byte = 0x02
	entryShift       byte = 0x01

	displayOn byte = 0x04
	cursorOn  byte = 0x02
	blinkOn   byte = 0x01

	shiftDisplay byte = 0x08
	shiftRight   byte = 0x04

	functionTwoLines byte = 0x08
)

const (
	packageName = "hd44780"

	// framesPerByte is the number of expander writes for one byte: two
	// nibbles, each an Enable high and Enable low frame.
	framesPerByte = 4

	delayPowerOn = 50 * time.Millisecond
	delayReset1  = 4500 * time.Microsecond
	delayReset2  = 200 * time.Microsecond
	// Clear and Home take 1.52ms.
	delayClear = 1600 * time.Microsecond
)

var rowOffsets = [...]byte{0x00, 0x40, 0x14, 0x54}

var (
	// ErrOutOfRange is returned when a cursor position is outside the display.
	ErrOutOfRange = errors.New("hd44780: position out of range")
)

// Port is the expander the display is wired through.
//
// Out must deliver frames to the expander outputs in order within a single
// bus transaction, and must not retain frames after it returns.
// *pcf857x.Dev implements Port.
type Port interface {
	Out(frames []byte) error
}

// Opts holds the configuration of a display.
type Opts struct {
	// Pins is the backpack wiring. The zero value selects DefaultWiring.
	Pins PinMap
	// MaxTransfer is the largest number of bytes written in one I²C
	// transaction by Write. It is rounded down to a multiple of 4.
	MaxTransfer int
	// Clock provides the delays required by the controller. If nil, the real
	// clock is used.
	Clock clockwork.Clock
}

// DefaultOpts is the configuration used when nil is passed to New.
var DefaultOpts = Opts{
	Pins:        DefaultWiring,
	MaxTransfer: 32,
}

// Dev is an HD44780 display attached through a PCF8574 backpack.
//
// Implements periph.io/conn/x/display/TextDisplay, display.DisplayBacklight
// and display.DisplayRGBBacklight.
type Dev struct {
	mu    sync.Mutex
	port  Port
	pins  PinMap
	clock clockwork.Clock
	// maxTx is the transaction size of Write in frames.
	maxTx int

	rows int
	cols int

	entryMode      byte
	displayControl byte
	backlight      display.Intensity

	buf []byte
}

func wrap(err error) error {
	if err == nil || strings.HasPrefix(err.Error(), packageName) {
		return err
	}
	return fmt.Errorf("%s: %w", packageName, err)
}

// New returns a display driven through port. Nothing is written until Begin
// is called.
func New(port Port, opts *Opts) (*Dev, error) {
	if port == nil {
		return nil, errors.New("hd44780: nil port")
	}
	if opts == nil {
		opts = &DefaultOpts
	}
	pins := opts.Pins
	if pins == (PinMap{}) {
		pins = DefaultWiring
	}
	maxTx := opts.MaxTransfer
	if maxTx <= 0 {
		maxTx = DefaultOpts.MaxTransfer
	}
	maxTx -= maxTx % framesPerByte
	if maxTx < framesPerByte {
		maxTx = framesPerByte
	}
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Dev{
		port:  port,
		pins:  pins,
		clock: clock,
		maxTx: maxTx,
		// Same as after the controller's internal reset.
		entryMode:      entryLeftToRight,
		displayControl: displayOn,
		buf:            make([]byte, 0, maxTx),
	}, nil
}

// NewI2C returns a display on a PCF8574 backpack at address on bus. Nothing
// is written until Begin is called.
func NewI2C(bus i2c.Bus, address uint16, opts *Opts) (*Dev, error) {
	pcf, err := pcf857x.New(bus, address)
	if err != nil {
		return nil, wrap(err)
	}
	return New(pcf, opts)
}

// Begin resets the controller into 4-bit mode and leaves the display on,
// cleared, with the cursor hidden and text flowing left to right.
//
// cols is only recorded. rows selects the 1 or 2 line mode of the controller.
//
// This is "Initializing by Instruction" from the datasheet. The controller
// may wake up in 8-bit mode, or be left in the middle of a 4-bit transfer, so
// 0x3 is sent three times before switching to 4-bit mode.
func (dev *Dev) Begin(cols, rows int) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	dev.cols = cols
	dev.rows = rows

	function := cmdFunctionSet
	if rows > 1 {
		function |= functionTwoLines
	}

	if err := dev.out([]byte{0x00}); err != nil {
		return err
	}
	dev.clock.Sleep(delayPowerOn)

	dev.displayControl = displayOn
	dev.entryMode = entryLeftToRight

	for _, delay := range []time.Duration{delayReset1, delayReset2, delayReset2} {
		if err := dev.sendNibble(0x03); err != nil {
			return err
		}
		dev.clock.Sleep(delay)
	}
	if err := dev.sendNibble(0x02); err != nil {
		return err
	}
	if err := dev.send(function, false); err != nil {
		return err
	}
	if err := dev.setDisplayControl(displayOn, true); err != nil {
		return err
	}
	if err := dev.clear(); err != nil {
		return err
	}
	return dev.setEntryMode(entryLeftToRight, true)
}

// Clear blanks the display and moves the cursor home.
func (dev *Dev) Clear() error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.clear()
}

// Home moves the cursor to the first position and undoes any display shift.
func (dev *Dev) Home() error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if err := dev.send(cmdHome, false); err != nil {
		return err
	}
	dev.clock.Sleep(delayClear)
	return nil
}

// SetCursor moves the cursor to the 0-based column and row. Rows are 0-3; the
// column is not checked since the controller wraps the address itself.
func (dev *Dev) SetCursor(col, row int) error {
	if row < 0 || row >= len(rowOffsets) {
		return fmt.Errorf("%w: row %d", ErrOutOfRange, row)
	}
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.send(cmdSetDDRAMAddr|(rowOffsets[row]+byte(col)), false)
}

// Display turns the display on / off. The content is kept.
func (dev *Dev) Display(on bool) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.setDisplayControl(displayOn, on)
}

// UnderlineCursor shows or hides the underline cursor.
func (dev *Dev) UnderlineCursor(on bool) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.setDisplayControl(cursorOn, on)
}

// BlinkCursor turns the blinking block cursor on or off.
func (dev *Dev) BlinkCursor(on bool) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.setDisplayControl(blinkOn, on)
}

// Set the cursor mode. You can pass multiple arguments.
// Cursor(CursorOff, CursorUnderline)
//
// CursorBlock and CursorBlink both select the blinking block, the only block
// cursor the controller has.
func (dev *Dev) Cursor(modes ...display.CursorMode) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	val := dev.displayControl
	for _, mode := range modes {
		switch mode {
		case display.CursorOff:
			val &^= cursorOn | blinkOn
		case display.CursorUnderline:
			val |= cursorOn
		case display.CursorBlock, display.CursorBlink:
			val |= blinkOn
		default:
			return fmt.Errorf("%s: unexpected cursor: %d: %w", packageName, mode, display.ErrInvalidCommand)
		}
	}
	dev.displayControl = val
	return dev.send(cmdDisplayControl|dev.displayControl, false)
}

// ScrollDisplayLeft shifts the whole display one position left without
// changing its content.
func (dev *Dev) ScrollDisplayLeft() error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.send(cmdShift|shiftDisplay, false)
}

// ScrollDisplayRight shifts the whole display one position right without
// changing its content.
func (dev *Dev) ScrollDisplayRight() error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.send(cmdShift|shiftDisplay|shiftRight, false)
}

// LeftToRight makes the cursor advance to the right after each character.
func (dev *Dev) LeftToRight() error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.setEntryMode(entryLeftToRight, true)
}

// RightToLeft makes the cursor advance to the left after each character.
func (dev *Dev) RightToLeft() error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.setEntryMode(entryLeftToRight, false)
}

// AutoScroll shifts the display on each character written, so text appears to
// be right justified at the cursor.
func (dev *Dev) AutoScroll(enabled bool) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.setEntryMode(entryShift, enabled)
}

// Command sends a raw instruction byte.
func (dev *Dev) Command(instruction byte) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.send(instruction, false)
}

// Move the cursor forward or backward.
func (dev *Dev) Move(dir display.CursorDirection) error {
	val := cmdShift
	switch dir {
	case display.Backward:
	case display.Forward:
		val |= shiftRight
	default:
		return fmt.Errorf("%s: %w", packageName, display.ErrNotImplemented)
	}
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.send(val, false)
}

// Move the cursor to arbitrary position. row and col start at 1.
func (dev *Dev) MoveTo(row, col int) error {
	if row < dev.MinRow() || row > dev.Rows() || col < dev.MinCol() || col > dev.Cols() {
		return fmt.Errorf("%w: MoveTo(%d,%d)", ErrOutOfRange, row, col)
	}
	return dev.SetCursor(col-1, row-1)
}

// Write sends p as character codes at the cursor position.
//
// The frames of several characters are batched into one transaction, up to
// Opts.MaxTransfer bytes. On error, n counts the characters in transactions
// that completed.
func (dev *Dev) Write(p []byte) (n int, err error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	base := dev.base(true)
	buf := dev.buf[:0]
	pending := 0
	for _, c := range p {
		buf = dev.appendFrames(buf, base, c)
		pending++
		if len(buf) >= dev.maxTx {
			if err = dev.out(buf); err != nil {
				return n, err
			}
			n += pending
			pending = 0
			buf = buf[:0]
		}
	}
	if len(buf) > 0 {
		if err = dev.out(buf); err != nil {
			return n, err
		}
		n += pending
	}
	return n, nil
}

// WriteByte sends a single character code at the cursor position.
func (dev *Dev) WriteByte(c byte) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.send(c, true)
}

// Write a string output to the display.
func (dev *Dev) WriteString(text string) (int, error) {
	return dev.Write([]byte(text))
}

// Return the number of columns the display supports
func (dev *Dev) Cols() int {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.cols
}

// Return the number of rows the display supports.
func (dev *Dev) Rows() int {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.rows
}

// Return the min column position.
func (dev *Dev) MinCol() int {
	return 1
}

// Return the min row position.
func (dev *Dev) MinRow() int {
	return 1
}

func (dev *Dev) String() string {
	return fmt.Sprintf("HD44780::%v - Rows: %d, Cols: %d", dev.port, dev.Rows(), dev.Cols())
}

// Halt clears the display, turns the backlight off, and turns the display off.
func (dev *Dev) Halt() error {
	err := dev.Clear()
	if e := dev.Backlight(0); err == nil {
		err = e
	}
	if e := dev.Display(false); err == nil {
		err = e
	}
	return err
}

func (dev *Dev) clear() error {
	if err := dev.send(cmdClear, false); err != nil {
		return err
	}
	dev.clock.Sleep(delayClear)
	return nil
}

func (dev *Dev) setDisplayControl(flag byte, on bool) error {
	if on {
		dev.displayControl |= flag
	} else {
		dev.displayControl &^= flag
	}
	return dev.send(cmdDisplayControl|dev.displayControl, false)
}

func (dev *Dev) setEntryMode(flag byte, on bool) error {
	if on {
		dev.entryMode |= flag
	} else {
		dev.entryMode &^= flag
	}
	return dev.send(cmdEntryMode|dev.entryMode, false)
}

// base returns the lines that stay constant for a whole transfer.
func (dev *Dev) base(data bool) byte {
	var out byte
	if dev.backlight > 0 {
		out |= dev.pins.Backlight
	}
	if data {
		out |= dev.pins.RS
	}
	return out
}

// appendFrames appends the four frames that clock value into the controller.
func (dev *Dev) appendFrames(buf []byte, base, value byte) []byte {
	hi := base | dev.pins.nibble(value>>4)
	lo := base | dev.pins.nibble(value)
	return append(buf, hi|dev.pins.Enable, hi, lo|dev.pins.Enable, lo)
}

// send writes an instruction, or a character if data is true.
func (dev *Dev) send(value byte, data bool) error {
	return dev.out(dev.appendFrames(dev.buf[:0], dev.base(data), value))
}

// sendNibble writes the low 4 bits of value as a single instruction nibble.
// It's only used during Begin, before the controller is in 4-bit mode.
func (dev *Dev) sendNibble(value byte) error {
	n := dev.base(false) | dev.pins.nibble(value)
	return dev.out(append(dev.buf[:0], n|dev.pins.Enable, n))
}

func (dev *Dev) out(frames []byte) error {
	return wrap(dev.port.Out(frames))
}

var _ display.TextDisplay = &Dev{}
var _ display.DisplayBacklight = &Dev{}
var _ display.DisplayRGBBacklight = &Dev{}
var _ conn.Resource = &Dev{}

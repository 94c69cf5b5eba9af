// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hd44780

import (
	"fmt"
	"strings"
)

// NoPin marks a signal that is not wired to the expander.
const NoPin uint8 = 255

// PinMap describes how the LCD lines are wired to the 8 expander outputs. Each
// field is a mask with the single bit of the expander pin driving that line,
// or zero when the line is not connected.
//
// Masks must not overlap. This is not checked.
type PinMap struct {
	RS        byte
	RW        byte
	Enable    byte
	Backlight byte
	// Data holds the masks for D4, D5, D6 and D7, in that order.
	Data [4]byte
}

var (
	// DefaultWiring is the layout of the common blue PCF8574 backpack sold with
	// LCD1602 and LCD2004 modules.
	//
	// https://www.handsontec.com/dataspecs/I2C_2004_LCD.pdf
	DefaultWiring = NewPinMap(0, 1, 2, 4, 5, 6, 7, 3)

	// JoyITWiring is the layout of the Joy-IT RB-LCD-20x4 module. It has no
	// backlight control.
	//
	// https://joy-it.net/en/products/RB-LCD-20x4
	JoyITWiring = NewPinMap(4, 5, 7, 0, 1, 2, 3, NoPin)
)

var wirings = map[string]PinMap{
	"default": DefaultWiring,
	"joyit":   JoyITWiring,
	"joy-it":  JoyITWiring,
}

// NewPinMap builds a PinMap from expander pin numbers (0-7). Pass NoPin for rw
// or backlight if the backpack doesn't connect them.
func NewPinMap(rs, rw, enable, d4, d5, d6, d7, backlight uint8) PinMap {
	return PinMap{
		RS:        bit(rs),
		RW:        bit(rw),
		Enable:    bit(enable),
		Backlight: bit(backlight),
		Data:      [4]byte{bit(d4), bit(d5), bit(d6), bit(d7)},
	}
}

// Wiring returns the named preset. Names are case insensitive.
func Wiring(name string) (PinMap, error) {
	pm, ok := wirings[strings.ToLower(name)]
	if !ok {
		return PinMap{}, fmt.Errorf("hd44780: unknown wiring %q", name)
	}
	return pm, nil
}

func bit(pin uint8) byte {
	if pin == NoPin {
		return 0
	}
	return byte(1) << pin
}

// nibble maps the low 4 bits of v onto the data lines. Bit 0 drives D4.
func (pm *PinMap) nibble(v byte) byte {
	var out byte
	for ix, mask := range pm.Data {
		if v&(1<<ix) != 0 {
			out |= mask
		}
	}
	return out
}

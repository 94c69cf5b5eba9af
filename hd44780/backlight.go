// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hd44780

import (
	"periph.io/x/conn/v3/display"
)

// Backlight turns the backlight on for any intensity above zero, and off
// otherwise. The backpack only switches a transistor, so there is no dimming.
//
// The level is remembered and carried in every later write, since the
// backlight line shares the expander latch with the LCD lines. The change is
// applied immediately with a write that leaves Enable low. Backpacks without a
// backlight line accept the call and do nothing visible.
func (dev *Dev) Backlight(intensity display.Intensity) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	dev.backlight = intensity
	return dev.out(append(dev.buf[:0], dev.base(false)))
}

// For units that have an RGB Backlight, set the backlight color/intensity.
// The backpack backlight is monochrome, so this is on if any component is.
func (dev *Dev) RGBBacklight(red, green, blue display.Intensity) error {
	return dev.Backlight(red | green | blue)
}

// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package devices is a container for character LCD drivers.
//
// hd44780 drives an HD44780 display through a PCF8574 I²C backpack
// (pcf857x). lcdsim simulates that pair on a terminal, and glyph builds the
// user defined characters. cmd/lcdctl puts text on a display from the shell.
package devices

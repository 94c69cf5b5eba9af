// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hd44780

import (
	"bytes"
	"io"

	"github.com/GermanBionicSystems/devices/glyph"
)

// CreateChar stores g in one of the 8 user defined characters. Writing the
// character code location (0-7) afterwards displays it.
//
// Only the low 3 bits of location are used. The cursor is left in CGRAM, so
// call SetCursor or Home before writing text again.
func (dev *Dev) CreateChar(location byte, g glyph.Glyph) error {
	return dev.LoadChar(location, bytes.NewReader(g[:]))
}

// LoadChar is like CreateChar, but reads the 8 rows from src. If src holds
// fewer than 8 bytes, nothing is sent and the read error is returned.
func (dev *Dev) LoadChar(location byte, src io.Reader) error {
	var rows glyph.Glyph
	if _, err := io.ReadFull(src, rows[:]); err != nil {
		return wrap(err)
	}
	dev.mu.Lock()
	defer dev.mu.Unlock()
	location &= 0x07
	if err := dev.send(cmdSetCGRAMAddr|location<<3, false); err != nil {
		return err
	}
	for _, row := range rows {
		if err := dev.send(row, true); err != nil {
			return err
		}
	}
	return nil
}

// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package lcdsim

// controller models the parts of the HD44780 reachable with R/W held low.
type controller struct {
	fourBit bool
	// pending is set when the high nibble of a 4-bit transfer was received.
	pending bool
	high    byte

	twoLines     bool
	increment    bool
	shiftOnWrite bool
	displayOn    bool
	cursorOn     bool
	blinkOn      bool

	// cgram selects which RAM the address counter points into.
	cgram bool
	ac    byte
	// offset is how many positions the display window moved left over DDRAM.
	offset int

	ddram [0x80]byte
	cg    [64]byte
}

const (
	lineLength    = 40
	oneLineLength = 80
	secondLine    = 0x40
)

var rowOffsets = [...]byte{0x00, 0x40, 0x14, 0x54}

// reset puts the controller in the state of its internal power-on reset.
func (c *controller) reset() {
	*c = controller{increment: true}
	for ix := range c.ddram {
		c.ddram[ix] = ' '
	}
}

// strobe handles one falling edge of Enable with nibble on D4-D7.
func (c *controller) strobe(nibble byte, rs bool) {
	if !c.fourBit {
		// D0-D3 aren't wired to the backpack and read as low.
		c.input(nibble<<4, rs)
		return
	}
	if !c.pending {
		c.high = nibble
		c.pending = true
		return
	}
	c.pending = false
	c.input(c.high<<4|nibble, rs)
}

func (c *controller) input(v byte, rs bool) {
	if rs {
		c.write(v)
	} else {
		c.execute(v)
	}
}

func (c *controller) execute(v byte) {
	switch {
	case v&0x80 != 0:
		c.cgram = false
		c.ac = v & 0x7f
	case v&0x40 != 0:
		c.cgram = true
		c.ac = v & 0x3f
	case v&0x20 != 0:
		fourBit := v&0x10 == 0
		if fourBit != c.fourBit {
			c.pending = false
		}
		c.fourBit = fourBit
		c.twoLines = v&0x08 != 0
	case v&0x10 != 0:
		right := v&0x04 != 0
		if v&0x08 != 0 {
			if right {
				c.offset--
			} else {
				c.offset++
			}
		} else {
			c.ac = c.step(c.ac, right)
		}
	case v&0x08 != 0:
		c.displayOn = v&0x04 != 0
		c.cursorOn = v&0x02 != 0
		c.blinkOn = v&0x01 != 0
	case v&0x04 != 0:
		c.increment = v&0x02 != 0
		c.shiftOnWrite = v&0x01 != 0
	case v&0x02 != 0:
		c.cgram = false
		c.ac = 0
		c.offset = 0
	case v&0x01 != 0:
		for ix := range c.ddram {
			c.ddram[ix] = ' '
		}
		c.cgram = false
		c.ac = 0
		c.offset = 0
		c.increment = true
	}
}

func (c *controller) write(v byte) {
	if c.cgram {
		c.cg[c.ac&0x3f] = v
		if c.increment {
			c.ac = (c.ac + 1) & 0x3f
		} else {
			c.ac = (c.ac - 1) & 0x3f
		}
		return
	}
	c.ddram[c.ac&0x7f] = v
	c.ac = c.step(c.ac, c.increment)
	if c.shiftOnWrite {
		if c.increment {
			c.offset++
		} else {
			c.offset--
		}
	}
}

// step moves a DDRAM address one position, wrapping the way the controller
// does for the current line mode.
func (c *controller) step(ac byte, forward bool) byte {
	if !c.twoLines {
		if forward {
			return byte((int(ac) + 1) % oneLineLength)
		}
		return byte((int(ac) + oneLineLength - 1) % oneLineLength)
	}
	line := ac & secondLine
	pos := int(ac &^ secondLine)
	if forward {
		pos++
		if pos >= lineLength {
			pos = 0
			line ^= secondLine
		}
	} else {
		pos--
		if pos < 0 {
			pos = lineLength - 1
			line ^= secondLine
		}
	}
	return line | byte(pos)
}

// visible returns the DDRAM address shown at a 0-based row and column.
func (c *controller) visible(row, col int) byte {
	base := rowOffsets[row%len(rowOffsets)]
	if !c.twoLines {
		return byte(mod(int(base)+col+c.offset, oneLineLength))
	}
	line := base & secondLine
	return line | byte(mod(int(base&^secondLine)+col+c.offset, lineLength))
}

func mod(a, b int) int {
	a %= b
	if a < 0 {
		a += b
	}
	return a
}

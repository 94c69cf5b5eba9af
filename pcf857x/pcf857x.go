// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package pcf857x drives the output latch of a TI/NXP PCF8574 I²C I/O
// expander. This device is commonly used in LCD backpacks, particularly those
// sold as LCD2004, LCD1602.
//
// # Datasheet
//
// https://www.ti.com/lit/ds/symlink/pcf8574.pdf
//
// A good description of the I2C LCD backpack usage can be found here:
//
// https://www.handsontec.com/dataspecs/I2C_2004_LCD.pdf
//
// # Notes
//
// This chip doesn't implement normal i2c register architectures. Every byte
// written is latched onto the 8 pins as it is received, so a single write
// transaction carrying several bytes produces the same number of transitions
// on the pins, in order, without any other bus master getting in between.
// Drivers that bit-bang a parallel protocol through the expander rely on that.
//
// Reading returns the state of the pins. A pin only reads back high if it was
// last written high and nothing external pulls it down.
package pcf857x

import (
	"errors"
	"fmt"
	"sync"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/i2c"
)

const (
	// DefaultAddress is the address of a PCF8574 with A0-A2 tied low. Most LCD
	// backpacks leave the jumpers open, which selects 0x27.
	DefaultAddress uint16 = 0x20
	// DefaultAddressA is the base address of the PCF8574A variant.
	DefaultAddressA uint16 = 0x38
)

var (
	// ErrEmptyWrite is returned by Out when there is nothing to send.
	ErrEmptyWrite = errors.New("pcf857x: empty write")
)

// Dev is representation of a PCF8574 device.
type Dev struct {
	mu    sync.Mutex
	d     *i2c.Dev
	value byte
}

// New returns a PCF8574 expander at address on bus. No I/O is performed.
func New(bus i2c.Bus, address uint16) (*Dev, error) {
	if bus == nil {
		return nil, errors.New("pcf857x: nil bus")
	}
	return &Dev{d: &i2c.Dev{Bus: bus, Addr: address}}, nil
}

// Out writes frames to the expander in a single bus transaction. Each byte is
// latched onto the pins in the order given.
func (dev *Dev) Out(frames []byte) error {
	if len(frames) == 0 {
		return ErrEmptyWrite
	}
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if err := dev.d.Tx(frames, nil); err != nil {
		return fmt.Errorf("pcf857x: %w", err)
	}
	dev.value = frames[len(frames)-1]
	return nil
}

// Read returns the current level of the pins.
//
// Pins that were last written low read as low whatever drives them, so this
// is mostly useful to check that something acknowledges at the address.
func (dev *Dev) Read() (byte, error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	r := make([]byte, 1)
	if err := dev.d.Tx(nil, r); err != nil {
		return 0, fmt.Errorf("pcf857x: %w", err)
	}
	return r[0], nil
}

// Value returns the last byte successfully latched by Out.
func (dev *Dev) Value() byte {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.value
}

// Halt drives every pin low.
func (dev *Dev) Halt() error {
	return dev.Out([]byte{0})
}

func (dev *Dev) String() string {
	return fmt.Sprintf("PCF8574_%x", dev.d.Addr)
}

// Probe reports whether a device acknowledges a read at address.
func Probe(bus i2c.Bus, address uint16) bool {
	dev, err := New(bus, address)
	if err != nil {
		return false
	}
	_, err = dev.Read()
	return err == nil
}

var _ conn.Resource = &Dev{}

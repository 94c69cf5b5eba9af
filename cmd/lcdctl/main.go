// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// lcdctl writes text to an HD44780 display on a PCF8574 I²C backpack.
//
// Each argument is printed on its own row:
//
//	lcdctl -addr 0x27 -cols 20 -rows 4 "Hello" "World"
//
// Use -probe to find the backpack address, and -sim to try things out without
// hardware.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/GermanBionicSystems/devices/glyph"
	"github.com/GermanBionicSystems/devices/hd44780"
	"github.com/GermanBionicSystems/devices/lcdsim"
	"github.com/GermanBionicSystems/devices/pcf857x"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// probeRanges are the addresses of the PCF8574 and PCF8574A.
var probeRanges = [][2]uint16{
	{pcf857x.DefaultAddress, pcf857x.DefaultAddress + 7},
	{pcf857x.DefaultAddressA, pcf857x.DefaultAddressA + 7},
}

func probe(bus i2c.Bus) []uint16 {
	var found []uint16
	for _, r := range probeRanges {
		for addr := r[0]; addr <= r[1]; addr++ {
			if pcf857x.Probe(bus, addr) {
				found = append(found, addr)
			}
		}
	}
	return found
}

// showBar draws a bar of value dots using user defined characters 0-5.
func showBar(dev *hd44780.Dev, row, cols, value int) error {
	for ix, g := range glyph.Bars() {
		if err := dev.CreateChar(byte(ix), g); err != nil {
			return err
		}
	}
	if err := dev.SetCursor(0, row); err != nil {
		return err
	}
	cells := make([]byte, cols)
	for col := range cells {
		cells[col] = byte(min(max(value-col*glyph.Width, 0), glyph.Width))
	}
	_, err := dev.Write(cells)
	return err
}

func mainImpl() error {
	busName := flag.String("bus", "", "I²C bus to use")
	addr := i2c.Addr(0x27)
	flag.Var(&addr, "addr", "I²C address of the backpack")
	wiring := flag.String("wiring", "default", "backpack wiring: default or joyit")
	cols := flag.Int("cols", 16, "number of columns")
	rows := flag.Int("rows", 2, "number of rows")
	backlight := flag.Bool("backlight", true, "turn the backlight on")
	maxTransfer := flag.Int("max", hd44780.DefaultOpts.MaxTransfer, "maximum I²C transfer size")
	sim := flag.Bool("sim", false, "render on the terminal instead of the I²C bus")
	doProbe := flag.Bool("probe", false, "scan for backpacks and exit")
	bar := flag.Int("bar", -1, "draw a bar of n dots on the last row")
	verbose := flag.Bool("v", false, "verbose mode")
	flag.Parse()
	if !*verbose {
		log.SetOutput(io.Discard)
	}
	log.SetFlags(log.Lmicroseconds)

	if flag.NArg() > *rows {
		return fmt.Errorf("got %d lines of text for %d rows", flag.NArg(), *rows)
	}
	pins, err := hd44780.Wiring(*wiring)
	if err != nil {
		return err
	}

	var bus i2c.BusCloser
	var screen *lcdsim.Bus
	if *sim {
		screen = lcdsim.New(uint16(addr), pins, &lcdsim.Opts{Cols: *cols, Rows: *rows})
		bus = screen
	} else {
		if _, err = host.Init(); err != nil {
			return err
		}
		if bus, err = i2creg.Open(*busName); err != nil {
			return err
		}
	}
	defer bus.Close()
	log.Printf("using %s", bus)

	if *doProbe {
		found := probe(bus)
		if len(found) == 0 {
			return errors.New("no backpack found")
		}
		for _, a := range found {
			fmt.Printf("0x%02x\n", a)
		}
		return nil
	}

	dev, err := hd44780.NewI2C(bus, uint16(addr), &hd44780.Opts{Pins: pins, MaxTransfer: *maxTransfer})
	if err != nil {
		return err
	}
	log.Printf("using %s", dev)
	if err = dev.Begin(*cols, *rows); err != nil {
		return err
	}
	var level display.Intensity
	if *backlight {
		level = 0xff
	}
	if err = dev.Backlight(level); err != nil {
		return err
	}
	for row, line := range flag.Args() {
		if err = dev.SetCursor(0, row); err != nil {
			return err
		}
		if _, err = dev.WriteString(line); err != nil {
			return err
		}
	}
	if *bar >= 0 {
		if err = showBar(dev, *rows-1, *cols, *bar); err != nil {
			return err
		}
	}
	if screen != nil {
		return screen.Render()
	}
	return nil
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "lcdctl: %s.\n", err)
		os.Exit(1)
	}
}

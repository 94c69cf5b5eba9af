// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package pcf857x

import (
	"errors"
	"strings"
	"testing"

	"periph.io/x/conn/v3/i2c/i2ctest"
)

const testAddress uint16 = 0x27

var recordingData = map[string][]i2ctest.IO{
	"TestBasic": {
		{Addr: testAddress, W: []byte{0x0c, 0x08, 0x4c, 0x48}},
		{Addr: testAddress, W: []byte{0x00}},
	},
	"TestRead": {
		{Addr: testAddress, R: []byte{0xf7}},
	},
}

func getDev(recordingName string, t *testing.T) (*Dev, *i2ctest.Playback) {
	bus := &i2ctest.Playback{Ops: recordingData[recordingName], DontPanic: true}
	dev, err := New(bus, testAddress)
	if err != nil {
		t.Fatal(err)
	}
	return dev, bus
}

func TestBasic(t *testing.T) {
	dev, bus := getDev(t.Name(), t)

	s := dev.String()
	if !strings.HasPrefix(s, "PCF8574_") {
		t.Errorf("String() returned %q", s)
	}

	if err := dev.Out([]byte{0x0c, 0x08, 0x4c, 0x48}); err != nil {
		t.Error(err)
	}
	if v := dev.Value(); v != 0x48 {
		t.Errorf("Value() expected 0x48, found 0x%x", v)
	}
	if err := dev.Halt(); err != nil {
		t.Error(err)
	}
	if v := dev.Value(); v != 0 {
		t.Errorf("Value() after Halt() expected 0, found 0x%x", v)
	}
	if err := bus.Close(); err != nil {
		t.Error(err)
	}
}

func TestEmptyWrite(t *testing.T) {
	dev, _ := getDev(t.Name(), t)
	if err := dev.Out(nil); !errors.Is(err, ErrEmptyWrite) {
		t.Errorf("Out(nil) expected ErrEmptyWrite, received %v", err)
	}
}

func TestRead(t *testing.T) {
	dev, bus := getDev(t.Name(), t)
	v, err := dev.Read()
	if err != nil {
		t.Fatal(err)
	}
	if v != 0xf7 {
		t.Errorf("Read() expected 0xf7, found 0x%x", v)
	}
	if err := bus.Close(); err != nil {
		t.Error(err)
	}
}

func TestTxError(t *testing.T) {
	// An empty playback fails every transaction.
	bus := &i2ctest.Playback{DontPanic: true}
	dev, err := New(bus, testAddress)
	if err != nil {
		t.Fatal(err)
	}
	err = dev.Out([]byte{0x01})
	if err == nil || !strings.HasPrefix(err.Error(), "pcf857x: ") {
		t.Errorf("expected wrapped transport error, received %v", err)
	}
	if dev.Value() != 0 {
		t.Error("Value() must not change on a failed write")
	}
	if Probe(bus, testAddress) {
		t.Error("Probe() reported a device on a failing bus")
	}
}

func TestNilBus(t *testing.T) {
	if _, err := New(nil, testAddress); err == nil {
		t.Error("expected error for nil bus")
	}
}

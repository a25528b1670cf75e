// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gt9xx

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// Some boards route the INT line's direction control through a companion
// chip instead of a discrete GPIO. The companion answers on its own I²C
// address; register 0x1d selects the pin state.
const (
	subRegInt  = 0x1d
	subOutHigh = 9
	subOutLow  = 1
	subInput   = 3
)

func (d *Dev) subWrite(reg, val byte) error {
	if err := d.bus.Tx(d.subAddr, []byte{reg, val}, nil); err != nil {
		return fmt.Errorf("gt9xx: substitute write %#02x=%d: %w", reg, val, err)
	}
	return nil
}

// setIntOutput drives the INT line as an output at the given level, through
// the substitute address when one is configured.
func (d *Dev) setIntOutput(l gpio.Level) error {
	if d.subAddr != 0 {
		v := byte(subOutLow)
		if l == gpio.High {
			v = byte(subOutHigh)
		}
		return d.subWrite(subRegInt, v)
	}
	if err := d.intr.Out(l); err != nil {
		return fmt.Errorf("gt9xx: driving INT %s: %w", l, err)
	}
	return nil
}

// setIntInput returns the INT line to input mode so the controller can drive
// it again.
func (d *Dev) setIntInput() error {
	if d.intr != nil {
		if err := d.intr.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
			return fmt.Errorf("gt9xx: releasing INT: %w", err)
		}
	}
	if d.subAddr != 0 {
		return d.subWrite(subRegInt, subInput)
	}
	return nil
}

// intSync is the tail of the reset sequence, shared with wakeup: INT low for
// 50ms, then back to input.
func (d *Dev) intSync() error {
	if err := d.setIntOutput(gpio.Low); err != nil {
		return err
	}
	time.Sleep(intSettle)
	return d.setIntInput()
}

// reset drives the power-on reset pulse sequence. The level held on INT while
// RST rises selects the controller's bus address (high: 0x14, low: 0x5d), so
// the holds are part of the protocol. A partial sequence leaves the device in
// an indeterminate state; any error here is fatal to bring-up.
//
// The reset line is always GPIO-direct; only INT control has the substitute
// addressed path.
func (d *Dev) reset() error {
	if d.rst == nil {
		return fmt.Errorf("gt9xx: no reset pin")
	}
	if err := d.rst.Out(gpio.Low); err != nil {
		return fmt.Errorf("gt9xx: driving RST low: %w", err)
	}
	time.Sleep(resetHold)
	lvl := gpio.Low
	if d.c.Addr == AltAddr {
		lvl = gpio.High
	}
	if err := d.setIntOutput(lvl); err != nil {
		return err
	}
	time.Sleep(addrSetup)
	if err := d.rst.Out(gpio.High); err != nil {
		return fmt.Errorf("gt9xx: releasing RST: %w", err)
	}
	time.Sleep(resetRelease)
	return d.intSync()
}

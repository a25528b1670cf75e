// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gt9xx

import (
	"fmt"
	"log"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// The power-state machine has two states, active and suspended. All
// transitions happen under d.mu. Without reset and interrupt GPIO control
// the device cannot be put to sleep, so every entry point is a no-op and the
// device is always considered active.

// Suspend puts the panel to sleep: watchdog off, event loop off, INT driven
// low, screen-off command. Already-suspended is a successful no-op.
//
// On a rejected screen-off command the INT line and event loop are restored
// and ErrCommandFailed is returned; the caller decides the retry policy, the
// driver never retries on its own.
func (d *Dev) Suspend() error {
	if !d.hasGPIO() {
		return nil
	}
	<-d.fwDone
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.suspendLocked()
}

func (d *Dev) suspendLocked() error {
	if d.suspended {
		return nil
	}
	d.stopESDLocked()
	// The INT pin doubles as an output during the suspend sequence, so edge
	// detection must be torn down first.
	d.stopIRQ()
	if err := d.setIntOutput(gpio.Low); err != nil {
		if irqErr := d.startIRQ(); irqErr != nil {
			return irqErr
		}
		return err
	}
	time.Sleep(suspendIntLow)
	if err := d.writeRegisterByte(regCommand, cmdScreenOff); err != nil {
		if inErr := d.setIntInput(); inErr != nil {
			return inErr
		}
		if irqErr := d.startIRQ(); irqErr != nil {
			return irqErr
		}
		return fmt.Errorf("%w: %v", ErrCommandFailed, err)
	}
	// The datasheet wants more than 58ms between the screen-off command and
	// wake-up; waiting here guarantees it.
	time.Sleep(screenOffDelay)
	d.suspended = true
	return nil
}

// Wake brings a suspended panel back: INT pulsed high, re-sync, event loop
// and watchdog re-armed. Already-active is a successful no-op. On failure the
// device stays suspended and the caller may retry.
func (d *Dev) Wake() error {
	if !d.hasGPIO() {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.wakeLocked()
}

func (d *Dev) wakeLocked() error {
	if !d.suspended {
		return nil
	}
	// Exit sleep mode by holding INT high for 2~5ms.
	if err := d.setIntOutput(gpio.High); err != nil {
		return err
	}
	time.Sleep(wakeIntHigh)
	if err := d.intSync(); err != nil {
		return err
	}
	if err := d.startIRQ(); err != nil {
		return err
	}
	if err := d.enableESDLocked(); err != nil {
		return err
	}
	d.suspended = false
	return nil
}

// Resume is the system-resume entry point: it wakes the panel only when it is
// open. An unopened device stays dormant across a resume, avoiding needless
// bus traffic.
func (d *Dev) Resume() error {
	if d.openCount.Load() == 0 {
		return nil
	}
	return d.Wake()
}

// Open marks the device in use and powers it up. Every Open must be paired
// with a Close.
func (d *Dev) Open() error {
	if !d.hasGPIO() {
		return nil
	}
	<-d.fwDone
	if d.initErr != nil {
		return d.initErr
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelAutosuspendLocked()
	if err := d.wakeLocked(); err != nil {
		return err
	}
	d.openCount.Add(1)
	return nil
}

// Close drops one use. When the count reaches zero the device is suspended
// after an idle delay.
func (d *Dev) Close() error {
	if !d.hasGPIO() {
		return nil
	}
	d.openCount.Add(-1)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.armAutosuspendLocked()
	return nil
}

// armAutosuspendLocked (re)starts the idle timer. d.mu must be held.
func (d *Dev) armAutosuspendLocked() {
	if d.asTimer != nil {
		d.asTimer.Stop()
	}
	d.asTimer = time.AfterFunc(autosuspendDelay, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if d.halted || d.openCount.Load() > 0 {
			return
		}
		if err := d.suspendLocked(); err != nil {
			log.Printf("gt9xx: autosuspend: %v", err)
		}
	})
}

func (d *Dev) cancelAutosuspendLocked() {
	if d.asTimer != nil {
		d.asTimer.Stop()
		d.asTimer = nil
	}
}

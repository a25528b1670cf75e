// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gt9xx

import (
	"errors"
	"fmt"
	"log"

	"periph.io/x/conn/v3/gpio"
)

// startIRQ configures the INT pin for edge detection and starts the event
// loop. No-op when the loop already runs or the device has no interrupt pin.
//
// Callers either hold d.mu or have exclusive use of the IRQ fields (the
// watchdog recovery path runs after every mutex holder has stopped it).
func (d *Dev) startIRQ() error {
	if d.intr == nil || d.irqStop != nil {
		return nil
	}
	if err := d.intr.In(gpio.PullNoChange, d.edge); err != nil {
		return fmt.Errorf("gt9xx: arming INT edge detection: %w", err)
	}
	d.irqStop = make(chan struct{})
	d.irqDone = make(chan struct{})
	go d.irqLoop(d.irqStop, d.irqDone)
	return nil
}

// stopIRQ cancels the event loop and joins it. Idempotent. Same locking
// contract as startIRQ.
func (d *Dev) stopIRQ() {
	if d.irqStop == nil {
		return
	}
	close(d.irqStop)
	// Interrupts a pending WaitForEdge where the pin driver supports it; the
	// loop's bounded wait covers the drivers that do not.
	if err := d.intr.Halt(); err != nil {
		log.Printf("gt9xx: halting INT pin: %v", err)
	}
	<-d.irqDone
	d.irqStop = nil
	d.irqDone = nil
}

func (d *Dev) irqLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-stop:
			return
		default:
		}
		if !d.intr.WaitForEdge(irqPollInterval) {
			continue
		}
		d.handleInterrupt()
	}
}

// handleInterrupt services one edge: read the report, emit the frame and
// acknowledge the read. Runtime failures never propagate beyond logging; the
// device must keep servicing interrupts.
func (d *Dev) handleInterrupt() {
	pts, err := d.readTouches()
	switch {
	case err == nil:
		d.emit(pts)
	case errors.Is(err, ErrNotReady):
		// Normal race with the bus not having new data yet.
	case errors.Is(err, ErrProtocol):
		log.Printf("gt9xx: dropping report: %v", err)
	default:
		log.Printf("gt9xx: reading report: %v", err)
	}
	if err := d.writeRegisterByte(regReadCoord, 0); err != nil {
		log.Printf("gt9xx: report acknowledge failed: %v", err)
	}
}

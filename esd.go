// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gt9xx

import (
	"log"
	"time"
)

// The ESD watchdog is a self-healing loop against firmware lockups caused by
// electrostatic discharge. Each tick polls the liveness word; when the
// controller stops cooperating the driver resets and reconfigures it.

// ESDTimeout returns the watchdog period. 0 means disabled.
func (d *Dev) ESDTimeout() time.Duration {
	return time.Duration(d.esdTimeout.Load()) * time.Millisecond
}

// SetESDTimeout sets the watchdog period and, when the device is active,
// starts or stops the watchdog accordingly. 0 disables it; 2s is the
// recommended value.
func (d *Dev) SetESDTimeout(timeout time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	old := d.esdTimeout.Swap(timeout.Milliseconds())
	if !d.hasGPIO() {
		return nil
	}
	active := !d.suspended && !d.halted
	if old != 0 && timeout == 0 && active {
		d.stopESDLocked()
	}
	if old == 0 && timeout != 0 && active {
		return d.enableESDLocked()
	}
	return nil
}

// enableESDLocked arms the watchdog cooperation register and starts the
// periodic task. No-op when the timeout is 0. d.mu must be held.
func (d *Dev) enableESDLocked() error {
	if d.esdTimeout.Load() == 0 {
		return nil
	}
	if err := d.writeRegisterByte(regESDCheck, cmdESDEnabled); err != nil {
		return err
	}
	if d.esdStop == nil {
		d.esdStop = make(chan struct{})
		d.esdDone = make(chan struct{})
		go d.esdLoop(d.esdStop, d.esdDone)
	}
	return nil
}

// stopESDLocked cancels the watchdog and joins it; an in-flight tick runs to
// completion. Idempotent. d.mu must be held; the tick itself never takes
// d.mu, so the join cannot deadlock.
func (d *Dev) stopESDLocked() {
	if d.esdStop == nil {
		return
	}
	close(d.esdStop)
	<-d.esdDone
	d.esdStop = nil
	d.esdDone = nil
}

func (d *Dev) esdInterval() time.Duration {
	ms := d.esdTimeout.Load()
	if ms <= 0 {
		// Disabled mid-flight; idle until cancelled.
		return time.Hour
	}
	return time.Duration(ms) * time.Millisecond
}

// esdLoop must not tick before the firmware load completed: the recovery path
// reuploads the configuration and must not race bring-up.
func (d *Dev) esdLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	select {
	case <-stop:
		return
	case <-d.fwDone:
	}
	t := time.NewTimer(d.esdInterval())
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
		}
		d.esdTick()
		t.Reset(d.esdInterval())
	}
}

// esdTick polls the liveness word, up to 3 attempts. A read where the second
// byte shows the enabled marker but the first does not means the controller is
// waiting to be fed. Three failed attempts in a row trigger recovery.
func (d *Dev) esdTick() {
	var buf [2]byte
	for attempt := 0; attempt < 3; attempt++ {
		if err := d.readRegister(regCommand, buf[:]); err != nil {
			continue
		}
		if buf[0] != cmdESDEnabled && buf[1] == cmdESDEnabled {
			// Feed the watchdog.
			if err := d.writeRegisterByte(regCommand, cmdESDEnabled); err != nil {
				log.Printf("gt9xx: feeding watchdog: %v", err)
			}
			return
		}
	}
	d.esdRecover()
}

// esdRecover resets and reconfigures a locked-up controller. The
// configuration reupload is best-effort: a missing blob is not fatal, the
// device proceeds without reconfiguration. The sequence must stay resilient
// to repeated recoveries.
func (d *Dev) esdRecover() {
	log.Printf("gt9xx: performing ESD recovery")
	d.stopIRQ()
	if err := d.reset(); err != nil {
		log.Printf("gt9xx: recovery reset: %v", err)
	}
	if blob, err := d.loadFirmware(); err == nil {
		if err := d.sendConfig(blob); err != nil {
			log.Printf("gt9xx: recovery config upload: %v", err)
		}
	}
	if err := d.startIRQ(); err != nil {
		log.Printf("gt9xx: recovery: %v", err)
	}
	if err := d.writeRegisterByte(regESDCheck, cmdESDEnabled); err != nil {
		log.Printf("gt9xx: re-arming watchdog: %v", err)
	}
}

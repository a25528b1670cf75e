// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gt9xx

import (
	"fmt"
	"time"
)

// readRegister reads len(buf) bytes starting at reg.
func (d *Dev) readRegister(reg uint16, buf []byte) error {
	w := [2]byte{byte(reg >> 8), byte(reg)}
	if err := d.c.Tx(w[:], buf); err != nil {
		return fmt.Errorf("gt9xx: reading register %#04x: %w", reg, err)
	}
	return nil
}

// writeRegister writes data starting at reg.
func (d *Dev) writeRegister(reg uint16, data []byte) error {
	w := make([]byte, 2+len(data))
	w[0] = byte(reg >> 8)
	w[1] = byte(reg)
	copy(w[2:], data)
	if err := d.c.Tx(w, nil); err != nil {
		return fmt.Errorf("gt9xx: writing register %#04x: %w", reg, err)
	}
	return nil
}

func (d *Dev) writeRegisterByte(reg uint16, v byte) error {
	return d.writeRegister(reg, []byte{v})
}

// probe checks that the device answers on the bus. Two attempts, 20ms apart.
func (d *Dev) probe() error {
	var buf [1]byte
	var err error
	for i := 0; i < 2; i++ {
		if err = d.readRegister(regConfigData, buf[:]); err == nil {
			return nil
		}
		time.Sleep(probeRetryDelay)
	}
	return err
}

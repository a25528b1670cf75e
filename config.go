// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gt9xx

import (
	"encoding/binary"
	"fmt"
	"log"
	"time"
)

// configLen returns how many configuration bytes the given model family
// exposes. Unknown models read the full window.
func configLen(id uint16) int {
	switch id {
	case 911, 9271, 9110, 927, 928:
		return config911Length
	case 912, 967:
		return config967Length
	default:
		return configMaxLength
	}
}

// checkConfig validates a configuration blob before it may be uploaded: size,
// 8-bit two's-complement checksum over everything but the last two bytes, and
// the Config_Fresh marker in the last byte.
func checkConfig(blob []byte) error {
	if len(blob) < 2 || len(blob) > configMaxLength {
		return fmt.Errorf("%w: %d bytes", ErrConfigLength, len(blob))
	}
	var sum byte
	raw := blob[:len(blob)-2]
	for _, b := range raw {
		sum += b
	}
	if ^sum+1 != blob[len(blob)-2] {
		return ErrConfigChecksum
	}
	if blob[len(blob)-1] != 1 {
		return ErrConfigNotFresh
	}
	return nil
}

// sendConfig validates blob and uploads it to the configuration register,
// then waits for the firmware to apply it.
func (d *Dev) sendConfig(blob []byte) error {
	if err := checkConfig(blob); err != nil {
		return err
	}
	if err := d.writeRegister(regConfigData, blob); err != nil {
		return err
	}
	// Let the firmware reconfigure itself.
	time.Sleep(configApplyDelay)
	return nil
}

// readConfig reads the on-device configuration and derives the geometry and
// capability fields from it. On a bus error or a nonsensical blob it falls
// back to model-independent defaults, never to a partial mix.
func (d *Dev) readConfig() {
	cfg := make([]byte, d.cfgLen)
	if err := d.readRegister(regConfigData, cfg); err != nil {
		log.Printf("gt9xx: error reading config (%v), using defaults", err)
		d.applyDefaults()
		d.applyQuirks()
		return
	}
	d.maxX = int(binary.LittleEndian.Uint16(cfg[resolutionLoc:]))
	d.maxY = int(binary.LittleEndian.Uint16(cfg[resolutionLoc+2:]))
	d.trigger = int(cfg[triggerLoc] & 0x03)
	d.maxTouch = int(cfg[maxContactsLoc] & 0x0f)
	if d.maxTouch > maxContacts {
		// The report buffers are sized for maxContacts; a device advertising
		// more must not widen the decode path.
		d.maxTouch = maxContacts
	}
	if d.maxX == 0 || d.maxY == 0 || d.maxTouch == 0 {
		log.Printf("gt9xx: invalid on-device config, using defaults")
		d.applyDefaults()
		d.applyQuirks()
		return
	}
	if d.swapXY {
		d.maxX, d.maxY = d.maxY, d.maxX
	}
	d.edge = triggerEdges[d.trigger]
	d.applyQuirks()
}

func (d *Dev) applyDefaults() {
	d.maxX = defaultMaxX
	d.maxY = defaultMaxY
	if d.swapXY {
		d.maxX, d.maxY = d.maxY, d.maxX
	}
	d.trigger = defaultTrigger
	d.edge = triggerEdges[defaultTrigger]
	d.maxTouch = maxContacts
}

// configName is the name of the configuration firmware blob for this model.
func (d *Dev) configName() string {
	return fmt.Sprintf("goodix_%d_cfg.bin", d.id)
}

func (d *Dev) loadFirmware() ([]byte, error) {
	return d.firmware(d.configName())
}

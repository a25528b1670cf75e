// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gt9xx

import (
	"encoding/binary"
	"fmt"
)

// TouchPoint is one decoded contact of a multi-touch frame.
type TouchPoint struct {
	// Slot is the contact tracking slot, 0 to MaxContacts()-1.
	Slot int
	X    int
	Y    int
	// Width is the reported contact width.
	Width int
}

// EventSink consumes decoded touch frames.
//
// All Touch calls belonging to one interrupt are delivered before a single
// Sync, so a sink never observes a torn frame.
type EventSink interface {
	Touch(TouchPoint)
	Sync()
}

// readReport reads the report header plus the first contact, then the
// remaining contacts in one follow-on transfer. buf must hold
// 1+maxContacts*contactSize bytes.
func (d *Dev) readReport(buf []byte) (int, error) {
	if err := d.readRegister(regReadCoord, buf[:1+contactSize]); err != nil {
		return 0, err
	}
	if buf[0]&0x80 == 0 {
		return 0, ErrNotReady
	}
	n := int(buf[0] & 0x0f)
	if n > d.maxTouch {
		return 0, fmt.Errorf("%w: %d contacts", ErrProtocol, n)
	}
	if n > 1 {
		off := 1 + contactSize
		if err := d.readRegister(regReadCoord+uint16(off), buf[off:1+n*contactSize]); err != nil {
			return 0, err
		}
	}
	return n, nil
}

// decodeTouch decodes one 8-byte contact record and applies the geometry
// transforms. Inversions must happen before axis swapping; the two do not
// commute.
func (d *Dev) decodeTouch(rec []byte) TouchPoint {
	p := TouchPoint{
		Slot:  int(rec[0] & 0x0f),
		X:     int(binary.LittleEndian.Uint16(rec[1:])),
		Y:     int(binary.LittleEndian.Uint16(rec[3:])),
		Width: int(binary.LittleEndian.Uint16(rec[5:])),
	}
	if d.invertX {
		p.X = d.maxX - p.X
	}
	if d.invertY {
		p.Y = d.maxY - p.Y
	}
	if d.swapXY {
		p.X, p.Y = p.Y, p.X
	}
	return p
}

func (d *Dev) readTouches() ([]TouchPoint, error) {
	var buf [1 + maxContacts*contactSize]byte
	n, err := d.readReport(buf[:])
	if err != nil {
		return nil, err
	}
	pts := make([]TouchPoint, n)
	for i := range pts {
		pts[i] = d.decodeTouch(buf[1+i*contactSize : 1+(i+1)*contactSize])
	}
	return pts, nil
}

// ReadTouches reads and decodes the pending report, then acknowledges it.
//
// It is the polling alternative for variants without an interrupt line. When
// no report is pending it returns ErrNotReady, which is expected and benign.
// On a suspended device it fails with ErrSuspended instead of touching the
// bus.
func (d *Dev) ReadTouches() ([]TouchPoint, error) {
	d.mu.Lock()
	suspended := d.suspended
	d.mu.Unlock()
	if suspended {
		return nil, ErrSuspended
	}
	pts, err := d.readTouches()
	// The acknowledgment tells the controller the buffer was consumed;
	// omitting it stalls the report queue, so it is sent even after a failed
	// decode.
	if ackErr := d.writeRegisterByte(regReadCoord, 0); ackErr != nil && err == nil {
		return pts, ackErr
	}
	return pts, err
}

func (d *Dev) emit(pts []TouchPoint) {
	p := d.sink.Load()
	if p == nil {
		return
	}
	s := *p
	for _, pt := range pts {
		s.Touch(pt)
	}
	s.Sync()
}

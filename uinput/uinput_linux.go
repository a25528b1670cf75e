// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package uinput

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
	"periph.io/x/gt9xx"
)

// Linux input event codes used by a multi-touch protocol B device.
const (
	evSyn = 0x00
	evKey = 0x01
	evAbs = 0x03

	synReport = 0x00
	btnTouch  = 0x14a

	absMTSlot       = 0x2f
	absMTTouchMajor = 0x30
	absMTWidthMajor = 0x32
	absMTPositionX  = 0x35
	absMTPositionY  = 0x36
	absMTTrackingID = 0x39
)

const (
	busI2C   = 0x18
	vendorID = 0x0416
)

// ioctl request encoding (Linux _IOC macro).
const (
	iocNRShift   = 0
	iocTypeShift = 8
	iocSizeShift = 16
	iocDirShift  = 30

	iocNone  = 0
	iocWrite = 1
)

func ioc(dir, typ, nr, size uint32) uint {
	return uint(dir<<iocDirShift | typ<<iocTypeShift | nr<<iocNRShift | size<<iocSizeShift)
}

var (
	uiDevCreate  = ioc(iocNone, 'U', 1, 0)
	uiDevDestroy = ioc(iocNone, 'U', 2, 0)
	uiDevSetup   = ioc(iocWrite, 'U', 3, uint32(unsafe.Sizeof(uinputSetup{})))
	uiAbsSetup   = ioc(iocWrite, 'U', 4, uint32(unsafe.Sizeof(uinputAbsSetup{})))
	uiSetEvBit   = ioc(iocWrite, 'U', 100, 4)
	uiSetKeyBit  = ioc(iocWrite, 'U', 101, 4)
	uiSetAbsBit  = ioc(iocWrite, 'U', 103, 4)
)

type inputID struct {
	Bustype uint16
	Vendor  uint16
	Product uint16
	Version uint16
}

type uinputSetup struct {
	ID           inputID
	Name         [80]byte
	FFEffectsMax uint32
}

type absInfo struct {
	Value      int32
	Minimum    int32
	Maximum    int32
	Fuzz       int32
	Flat       int32
	Resolution int32
}

type uinputAbsSetup struct {
	Code uint16
	_    uint16
	Info absInfo
}

type inputEvent struct {
	Time  unix.Timeval
	Type  uint16
	Code  uint16
	Value int32
}

// Device is a virtual evdev multi-touch device. It implements
// gt9xx.EventSink.
type Device struct {
	f *os.File
	w io.Writer

	mu      sync.Mutex
	pending []byte
	slot    int
	cur     map[int]bool
	prev    map[int]bool
}

// New creates and registers the virtual input device.
func New(o *Opts) (*Device, error) {
	f, err := os.OpenFile("/dev/uinput", os.O_WRONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("uinput: %w", err)
	}
	d := &Device{f: f, w: f, slot: -1, cur: map[int]bool{}, prev: map[int]bool{}}
	fd := int(f.Fd())
	for _, ev := range []int{evSyn, evKey, evAbs} {
		if err := unix.IoctlSetInt(fd, uiSetEvBit, ev); err != nil {
			return nil, d.setupFailed(err)
		}
	}
	if err := unix.IoctlSetInt(fd, uiSetKeyBit, btnTouch); err != nil {
		return nil, d.setupFailed(err)
	}
	axes := []struct {
		code     uint16
		min, max int32
	}{
		{absMTSlot, 0, int32(o.Contacts) - 1},
		{absMTTrackingID, 0, 0xffff},
		{absMTPositionX, 0, int32(o.MaxX) - 1},
		{absMTPositionY, 0, int32(o.MaxY) - 1},
		{absMTTouchMajor, 0, 255},
		{absMTWidthMajor, 0, 255},
	}
	for _, a := range axes {
		if err := unix.IoctlSetInt(fd, uiSetAbsBit, int(a.code)); err != nil {
			return nil, d.setupFailed(err)
		}
		s := uinputAbsSetup{Code: a.code, Info: absInfo{Minimum: a.min, Maximum: a.max}}
		if err := ioctlPtr(fd, uiAbsSetup, unsafe.Pointer(&s)); err != nil {
			return nil, d.setupFailed(err)
		}
	}
	us := uinputSetup{ID: inputID{Bustype: busI2C, Vendor: vendorID, Product: o.Product, Version: o.Version}}
	copy(us.Name[:len(us.Name)-1], o.Name)
	if err := ioctlPtr(fd, uiDevSetup, unsafe.Pointer(&us)); err != nil {
		return nil, d.setupFailed(err)
	}
	if err := ioctlPtr(fd, uiDevCreate, nil); err != nil {
		return nil, d.setupFailed(err)
	}
	return d, nil
}

func (d *Device) setupFailed(err error) error {
	_ = d.f.Close()
	return fmt.Errorf("uinput: device setup: %w", err)
}

// Touch implements gt9xx.EventSink. It queues one contact of the frame being
// assembled.
func (d *Device) Touch(p gt9xx.TouchPoint) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.selectSlot(p.Slot)
	d.queue(evAbs, absMTTrackingID, int32(p.Slot))
	d.queue(evAbs, absMTPositionX, int32(p.X))
	d.queue(evAbs, absMTPositionY, int32(p.Y))
	d.queue(evAbs, absMTTouchMajor, int32(p.Width))
	d.queue(evAbs, absMTWidthMajor, int32(p.Width))
	d.cur[p.Slot] = true
}

// Sync implements gt9xx.EventSink. It releases slots that vanished since the
// previous frame and flushes everything in a single write, so the kernel sees
// one atomic frame.
func (d *Device) Sync() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for s := range d.prev {
		if !d.cur[s] {
			d.selectSlot(s)
			d.queue(evAbs, absMTTrackingID, -1)
		}
	}
	touching := int32(0)
	if len(d.cur) > 0 {
		touching = 1
	}
	d.queue(evKey, btnTouch, touching)
	d.queue(evSyn, synReport, 0)
	if _, err := d.w.Write(d.pending); err != nil {
		log.Printf("uinput: writing frame: %v", err)
	}
	d.pending = d.pending[:0]
	d.prev, d.cur = d.cur, d.prev
	clear(d.cur)
}

// Close destroys the virtual device.
func (d *Device) Close() error {
	if err := ioctlPtr(int(d.f.Fd()), uiDevDestroy, nil); err != nil {
		_ = d.f.Close()
		return fmt.Errorf("uinput: destroying device: %w", err)
	}
	return d.f.Close()
}

func (d *Device) selectSlot(slot int) {
	if d.slot != slot {
		d.queue(evAbs, absMTSlot, int32(slot))
		d.slot = slot
	}
}

func (d *Device) queue(typ, code uint16, value int32) {
	e := inputEvent{Type: typ, Code: code, Value: value}
	b := (*[unsafe.Sizeof(inputEvent{})]byte)(unsafe.Pointer(&e))
	d.pending = append(d.pending, b[:]...)
}

func ioctlPtr(fd int, req uint, p unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(req), uintptr(p))
	if errno != 0 {
		return errno
	}
	return nil
}

var _ gt9xx.EventSink = &Device{}

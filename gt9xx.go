// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package gt9xx implements a driver for the Goodix GT9xx family of capacitive
// touchscreen controllers connected over I²C.
//
// The driver owns the controller's reset and address-selection sequence, the
// configuration firmware upload, the interrupt-driven report loop, an ESD
// recovery watchdog and the suspend/wake power sequence. Decoded multi-touch
// frames are delivered to an EventSink; see the uinput subpackage for a sink
// that feeds them back to the Linux input subsystem.
//
// Datasheet: https://www.goodix.com/en/product/touch/touch_screen_controller
package gt9xx

import (
	"encoding/binary"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c"
)

// firmwareDir is where configuration blobs are looked up when Opts.Firmware
// is nil.
const firmwareDir = "/lib/firmware"

// Opts holds the configuration for a GT9xx device.
type Opts struct {
	// Addr is the I²C address, DefaultAddr or AltAddr. Defaults to
	// DefaultAddr. With GPIO control the address is selected by the reset
	// sequence; without it the address must match what the boot firmware
	// selected.
	Addr uint16

	// ResetPin and IntPin are the RST and INT lines. Both are optional;
	// without the pair the driver runs in a degraded mode: no reset, no
	// power management, no watchdog, and the device is always considered
	// active.
	ResetPin gpio.PinIO
	IntPin   gpio.PinIO

	// SubstituteAddr, when non-zero, routes INT direction control through an
	// addressed register write to this companion bus address instead of the
	// discrete pin. Validated at bring-up; disabled on failure.
	SubstituteAddr uint16

	// Axis transforms, from board wiring. Inversion may additionally be
	// forced by the rotated-screen quirk table.
	SwapXY  bool
	InvertX bool
	InvertY bool

	// ESDTimeout is the watchdog period. 0 disables the watchdog; 2s is the
	// recommended value when enabled.
	ESDTimeout time.Duration

	// Firmware fetches a configuration blob by name. nil reads from
	// /lib/firmware. A missing blob is not an error: the device keeps its
	// on-chip configuration.
	Firmware func(name string) ([]byte, error)

	// Sink receives decoded touch frames. May be nil; see Dev.SetSink.
	Sink EventSink
}

// DefaultOpts is the recommended configuration.
var DefaultOpts = Opts{Addr: DefaultAddr}

// Dev is a handle to one GT9xx controller.
//
// Geometry and identity fields are set during bring-up and immutable
// afterwards; everything the event loop touches on its happy path is
// lock-free by construction.
type Dev struct {
	c    *i2c.Dev
	bus  i2c.Bus
	rst  gpio.PinIO
	intr gpio.PinIO
	sink atomic.Pointer[EventSink]

	id      uint16
	version uint16
	cfgLen  int
	subAddr uint16

	maxX     int
	maxY     int
	swapXY   bool
	invertX  bool
	invertY  bool
	maxTouch int
	trigger  int
	edge     gpio.Edge

	firmware func(name string) ([]byte, error)

	esdTimeout atomic.Int64 // milliseconds; 0 = disabled
	openCount  atomic.Int32

	// fwDone is closed exactly once, after the asynchronous tail of bring-up
	// finished (successfully or not). initErr is written before the close and
	// only read after it.
	fwDone  chan struct{}
	initErr error

	mu        sync.Mutex // guards suspended and IRQ/ESD/autosuspend transitions
	suspended bool
	halted    bool
	irqStop   chan struct{}
	irqDone   chan struct{}
	esdStop   chan struct{}
	esdDone   chan struct{}
	asTimer   *time.Timer
}

// New brings up a GT9xx controller on the given bus.
//
// With GPIO control the configuration firmware is fetched and applied
// asynchronously; New returns once the controller answered on the bus and
// identified itself. Use Ready to await the rest of bring-up.
func New(bus i2c.Bus, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	addr := opts.Addr
	if addr == 0 {
		addr = DefaultAddr
	}
	d := &Dev{
		c:        &i2c.Dev{Bus: bus, Addr: addr},
		bus:      bus,
		rst:      opts.ResetPin,
		intr:     opts.IntPin,
		subAddr:  opts.SubstituteAddr,
		swapXY:   opts.SwapXY,
		invertX:  opts.InvertX,
		invertY:  opts.InvertY,
		firmware: opts.Firmware,
		fwDone:   make(chan struct{}),
	}
	if d.firmware == nil {
		d.firmware = func(name string) ([]byte, error) {
			return os.ReadFile(filepath.Join(firmwareDir, name))
		}
	}
	if opts.Sink != nil {
		s := opts.Sink
		d.sink.Store(&s)
	}
	d.esdTimeout.Store(opts.ESDTimeout.Milliseconds())

	if d.subAddr != 0 {
		if err := d.setIntInput(); err != nil {
			log.Printf("gt9xx: disabling substitute address %#02x: %v", d.subAddr, err)
			d.subAddr = 0
		}
	}
	if d.hasGPIO() {
		if err := d.reset(); err != nil {
			return nil, fmt.Errorf("gt9xx: controller reset failed: %w", err)
		}
	}
	if err := d.probe(); err != nil {
		return nil, fmt.Errorf("gt9xx: communication failure: %w", err)
	}
	if err := d.readVersion(); err != nil {
		return nil, err
	}
	d.cfgLen = configLen(d.id)

	if d.hasGPIO() {
		go d.finishBringUp()
		return d, nil
	}
	// Degraded mode: no firmware step, synchronous configure.
	err := d.configure(nil)
	close(d.fwDone)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Dev) String() string {
	return fmt.Sprintf("GT%d{%s}", d.id, d.c)
}

// Halt implements conn.Resource. It disarms the watchdog, stops the event
// loop and cancels any pending autosuspend; the controller itself is left
// powered. Halting is idempotent and best-effort: it never fails partway.
func (d *Dev) Halt() error {
	// Bounds the race where teardown runs before bring-up's asynchronous
	// continuation finished.
	<-d.fwDone
	d.mu.Lock()
	defer d.mu.Unlock()
	d.halted = true
	d.cancelAutosuspendLocked()
	d.stopESDLocked()
	d.stopIRQ()
	return nil
}

// Ready blocks until the asynchronous part of bring-up completed and returns
// its result.
func (d *Dev) Ready() error {
	<-d.fwDone
	return d.initErr
}

// ModelID returns the numeric model id, e.g. 911 for a GT911.
func (d *Dev) ModelID() uint16 {
	return d.id
}

// Version returns the firmware version read at bring-up.
func (d *Dev) Version() uint16 {
	return d.version
}

// Resolution returns the panel resolution, after axis transforms. Only valid
// once Ready returned.
func (d *Dev) Resolution() (x, y int) {
	return d.maxX, d.maxY
}

// MaxContacts returns the maximum number of simultaneous contacts. Only
// valid once Ready returned.
func (d *Dev) MaxContacts() int {
	return d.maxTouch
}

// SetSink replaces the frame consumer. A nil sink drops frames.
func (d *Dev) SetSink(s EventSink) {
	if s == nil {
		d.sink.Store(nil)
		return
	}
	d.sink.Store(&s)
}

// DumpConfig returns the current on-device configuration blob as hex, powering
// the device up around the read.
func (d *Dev) DumpConfig() (string, error) {
	if err := d.Open(); err != nil {
		return "", err
	}
	defer d.Close()
	cfg := make([]byte, d.cfgLen)
	if err := d.readRegister(regConfigData, cfg); err != nil {
		return "", err
	}
	var b strings.Builder
	for _, c := range cfg {
		fmt.Fprintf(&b, "%02x ", c)
	}
	return b.String(), nil
}

//

func (d *Dev) hasGPIO() bool {
	return d.rst != nil && d.intr != nil
}

// readVersion reads the 6-byte ID block: 4 ASCII digits of model id plus the
// LE16 firmware version. An unparsable id falls back to defaultModelID.
func (d *Dev) readVersion() error {
	var buf [6]byte
	if err := d.readRegister(regID, buf[:]); err != nil {
		return err
	}
	s := strings.TrimRight(string(buf[:4]), "\x00")
	if id, err := strconv.ParseUint(s, 10, 16); err == nil {
		d.id = uint16(id)
	} else {
		d.id = defaultModelID
	}
	d.version = binary.LittleEndian.Uint16(buf[4:])
	log.Printf("gt9xx: ID %d, version %04x", d.id, d.version)
	return nil
}

// finishBringUp is the asynchronous continuation of New on the GPIO path:
// fetch and upload the configuration firmware, configure, start the event
// loop, arm the watchdog and the autosuspend timer, then signal completion.
func (d *Dev) finishBringUp() {
	defer close(d.fwDone)
	blob, err := d.loadFirmware()
	if err != nil {
		// Not fatal; the device keeps its on-chip configuration.
		log.Printf("gt9xx: no config firmware %s: %v", d.configName(), err)
		blob = nil
	}
	if err := d.configure(blob); err != nil {
		d.initErr = err
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enableESDLocked(); err != nil {
		d.initErr = err
		return
	}
	// Must not suspend immediately after initialization.
	d.armAutosuspendLocked()
}

// configure finishes device initialization, common to the GPIO and degraded
// paths: optional blob upload, geometry resolution, event loop start.
func (d *Dev) configure(blob []byte) error {
	if blob != nil {
		if err := d.sendConfig(blob); err != nil {
			return err
		}
	}
	d.readConfig()
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.startIRQ()
}

var _ conn.Resource = &Dev{}

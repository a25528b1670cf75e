// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gt9xx

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// errTestNak stands in for a device not acknowledging a transfer.
var errTestNak = errors.New("i2c nak")

// fakeBus is a scriptable i2c.Bus that records every transaction.
type fakeBus struct {
	// tx, when set, decides the outcome of each transaction.
	tx func(addr uint16, w, r []byte) error

	mu  sync.Mutex
	ops []busOp
}

type busOp struct {
	addr uint16
	w    []byte
	read int
}

func (b *fakeBus) String() string {
	return "fake"
}

func (b *fakeBus) SetSpeed(physic.Frequency) error {
	return nil
}

func (b *fakeBus) Tx(addr uint16, w, r []byte) error {
	b.mu.Lock()
	b.ops = append(b.ops, busOp{addr, append([]byte(nil), w...), len(r)})
	b.mu.Unlock()
	if b.tx != nil {
		return b.tx(addr, w, r)
	}
	return nil
}

// countWrites returns how many recorded pure writes start with prefix.
func (b *fakeBus) countWrites(prefix []byte) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, op := range b.ops {
		if op.read == 0 && bytes.HasPrefix(op.w, prefix) {
			n++
		}
	}
	return n
}

// countReads returns how many recorded reads targeted the register selected
// by prefix.
func (b *fakeBus) countReads(prefix []byte) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, op := range b.ops {
		if op.read > 0 && bytes.HasPrefix(op.w, prefix) {
			n++
		}
	}
	return n
}

func (b *fakeBus) opCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.ops)
}

var _ i2c.Bus = &fakeBus{}

// recPin records the order of Out and In calls on top of gpiotest.Pin.
type recPin struct {
	gpiotest.Pin

	recMu sync.Mutex
	calls []string
}

func newRecPin(name string) *recPin {
	return &recPin{Pin: gpiotest.Pin{N: name, EdgesChan: make(chan gpio.Level, 1)}}
}

func (p *recPin) record(s string) {
	p.recMu.Lock()
	p.calls = append(p.calls, s)
	p.recMu.Unlock()
}

func (p *recPin) Out(l gpio.Level) error {
	p.record("out:" + l.String())
	return p.Pin.Out(l)
}

func (p *recPin) In(pull gpio.Pull, edge gpio.Edge) error {
	p.record("in:" + edge.String())
	return p.Pin.In(pull, edge)
}

func (p *recPin) recorded() []string {
	p.recMu.Lock()
	defer p.recMu.Unlock()
	return append([]string(nil), p.calls...)
}

// countOut returns how many times the pin was driven to l.
func (p *recPin) countOut(l gpio.Level) int {
	n := 0
	for _, c := range p.recorded() {
		if c == "out:"+l.String() {
			n++
		}
	}
	return n
}

var _ gpio.PinIO = &recPin{}

// recordSink collects emitted frames.
type recordSink struct {
	mu     sync.Mutex
	frames [][]TouchPoint
	cur    []TouchPoint
}

func (s *recordSink) Touch(p TouchPoint) {
	s.mu.Lock()
	s.cur = append(s.cur, p)
	s.mu.Unlock()
}

func (s *recordSink) Sync() {
	s.mu.Lock()
	s.frames = append(s.frames, s.cur)
	s.cur = nil
	s.mu.Unlock()
}

func (s *recordSink) frameCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

func (s *recordSink) frame(i int) []TouchPoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames[i]
}

// newTestDev returns a Dev in its post-bring-up state, with defaults applied
// and the firmware-load completion already signalled.
func newTestDev(bus i2c.Bus) *Dev {
	d := &Dev{
		c:        &i2c.Dev{Bus: bus, Addr: DefaultAddr},
		bus:      bus,
		id:       911,
		cfgLen:   config911Length,
		maxX:     defaultMaxX,
		maxY:     defaultMaxY,
		maxTouch: maxContacts,
		trigger:  defaultTrigger,
		edge:     triggerEdges[defaultTrigger],
		firmware: func(string) ([]byte, error) { return nil, os.ErrNotExist },
		fwDone:   make(chan struct{}),
	}
	close(d.fwDone)
	return d
}

// sealConfig fills in the checksum and fresh marker of a blob.
func sealConfig(cfg []byte) {
	var sum byte
	for _, b := range cfg[:len(cfg)-2] {
		sum += b
	}
	cfg[len(cfg)-2] = ^sum + 1
	cfg[len(cfg)-1] = 1
}

// makeConfig builds a valid configuration blob of n bytes.
func makeConfig(n, xRes, yRes, contacts, trigger int) []byte {
	cfg := make([]byte, n)
	binary.LittleEndian.PutUint16(cfg[resolutionLoc:], uint16(xRes))
	binary.LittleEndian.PutUint16(cfg[resolutionLoc+2:], uint16(yRes))
	cfg[maxContactsLoc] = byte(contacts & 0x0f)
	cfg[triggerLoc] = byte(trigger & 0x03)
	sealConfig(cfg)
	return cfg
}

// contactRec builds one raw 8-byte contact record.
func contactRec(slot, x, y, w int) []byte {
	rec := make([]byte, contactSize)
	rec[0] = byte(slot & 0x0f)
	binary.LittleEndian.PutUint16(rec[1:], uint16(x))
	binary.LittleEndian.PutUint16(rec[3:], uint16(y))
	binary.LittleEndian.PutUint16(rec[5:], uint16(w))
	return rec
}

// stubDMI points the quirk lookup at an empty tree for the duration of the
// test.
func stubDMI(t *testing.T) {
	t.Helper()
	old := dmiRoot
	dmiRoot = t.TempDir()
	t.Cleanup(func() { dmiRoot = old })
}

// regAddr is the wire form of a register address.
func regAddr(reg uint16) []byte {
	return []byte{byte(reg >> 8), byte(reg)}
}

func opsString(ops []string) string {
	return fmt.Sprintf("%v", ops)
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	for deadline := time.Now().Add(2 * time.Second); time.Now().Before(deadline); {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gt9xx

import (
	"testing"

	"periph.io/x/conn/v3/gpio"
)

// startIRQForTest arms the event loop and returns its cleanup.
func startIRQForTest(t *testing.T, d *Dev) func() {
	t.Helper()
	d.mu.Lock()
	err := d.startIRQ()
	d.mu.Unlock()
	if err != nil {
		t.Fatal(err)
	}
	return func() {
		d.mu.Lock()
		d.stopIRQ()
		d.mu.Unlock()
	}
}

func TestInterruptDeliversFrame(t *testing.T) {
	rep := append([]byte{0x81}, contactRec(2, 10, 20, 1)...)
	b := fakeBus{tx: func(addr uint16, w, r []byte) error {
		if len(r) > 0 {
			copy(r, rep)
		}
		return nil
	}}
	d := newTestDev(&b)
	intr := newRecPin("INT")
	d.intr = intr
	var s recordSink
	d.SetSink(&s)
	defer startIRQForTest(t, d)()

	intr.EdgesChan <- gpio.High
	waitFor(t, "frame delivery", func() bool { return s.frameCount() >= 1 })

	got := s.frame(0)
	want := TouchPoint{Slot: 2, X: 10, Y: 20, Width: 1}
	if len(got) != 1 || got[0] != want {
		t.Fatalf("frame = %+v; want [%+v]", got, want)
	}
	// Every serviced interrupt ends with the buffer acknowledgment.
	ack := append(regAddr(regReadCoord), 0)
	waitFor(t, "acknowledge", func() bool { return b.countWrites(ack) >= 1 })
}

func TestInterruptNotReady(t *testing.T) {
	// A spurious edge with no pending report: nothing reaches the sink, but
	// the buffer is still acknowledged.
	b := fakeBus{}
	d := newTestDev(&b)
	intr := newRecPin("INT")
	d.intr = intr
	var s recordSink
	d.SetSink(&s)
	defer startIRQForTest(t, d)()

	intr.EdgesChan <- gpio.High
	ack := append(regAddr(regReadCoord), 0)
	waitFor(t, "acknowledge", func() bool { return b.countWrites(ack) >= 1 })
	if s.frameCount() != 0 {
		t.Fatalf("spurious edge delivered %d frames", s.frameCount())
	}
}

func TestInterruptProtocolError(t *testing.T) {
	// An over-long report is dropped, acknowledged, and the loop keeps going.
	b := fakeBus{tx: func(addr uint16, w, r []byte) error {
		if len(r) > 0 {
			r[0] = 0x8f // ready, 15 contacts
		}
		return nil
	}}
	d := newTestDev(&b)
	intr := newRecPin("INT")
	d.intr = intr
	var s recordSink
	d.SetSink(&s)
	defer startIRQForTest(t, d)()

	intr.EdgesChan <- gpio.High
	ack := append(regAddr(regReadCoord), 0)
	waitFor(t, "acknowledge", func() bool { return b.countWrites(ack) >= 1 })
	if s.frameCount() != 0 {
		t.Fatalf("malformed report delivered %d frames", s.frameCount())
	}
}

func TestStartIRQIdempotent(t *testing.T) {
	d := newTestDev(&fakeBus{})
	d.intr = newRecPin("INT")
	stop := startIRQForTest(t, d)
	defer stop()

	d.mu.Lock()
	first := d.irqStop
	err := d.startIRQ()
	same := d.irqStop == first
	d.mu.Unlock()
	if err != nil {
		t.Fatal(err)
	}
	if !same {
		t.Fatal("second start replaced the running loop")
	}
}

func TestStopIRQIdempotent(t *testing.T) {
	d := newTestDev(&fakeBus{})
	d.intr = newRecPin("INT")
	startIRQForTest(t, d)()
	d.mu.Lock()
	d.stopIRQ()
	d.mu.Unlock()
}

func TestIRQWithoutPin(t *testing.T) {
	d := newTestDev(&fakeBus{})
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.startIRQ(); err != nil {
		t.Fatal(err)
	}
	if d.irqStop != nil {
		t.Fatal("event loop started without an interrupt pin")
	}
}

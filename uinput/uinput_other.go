//go:build !linux

// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package uinput

import (
	"errors"

	"periph.io/x/gt9xx"
)

// Device is only functional on Linux.
type Device struct{}

// New fails; uinput is a Linux subsystem.
func New(o *Opts) (*Device, error) {
	return nil, errors.New("uinput: only supported on linux")
}

// Touch implements gt9xx.EventSink.
func (d *Device) Touch(p gt9xx.TouchPoint) {}

// Sync implements gt9xx.EventSink.
func (d *Device) Sync() {}

// Close is a no-op.
func (d *Device) Close() error {
	return nil
}

var _ gt9xx.EventSink = &Device{}

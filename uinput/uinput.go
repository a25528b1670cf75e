// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package uinput implements a touch event sink backed by the Linux uinput
// subsystem.
//
// It exposes decoded gt9xx frames to the rest of the system as a regular
// evdev multi-touch device, using multi-touch protocol B (slots). Contacts
// present in the previous frame but absent from the current one are released
// by reporting a -1 tracking id, so consumers see proper touch-up events.
package uinput

// Opts describes the virtual input device to create.
type Opts struct {
	// Name is the device name shown in /proc/bus/input/devices.
	Name string
	// Product and Version identify the controller model, as read at
	// bring-up.
	Product uint16
	Version uint16
	// MaxX and MaxY are the panel resolution after axis transforms.
	MaxX int
	MaxY int
	// Contacts is the maximum number of simultaneous contacts.
	Contacts int
}

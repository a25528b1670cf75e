// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gt9xx

import "errors"

var (
	// ErrNotReady is returned by ReadTouches when the controller has not
	// flagged a new report yet. It is an expected condition, not a failure.
	ErrNotReady = errors.New("gt9xx: report not ready")

	// ErrProtocol is returned when a report advertises more contacts than the
	// configured maximum.
	ErrProtocol = errors.New("gt9xx: malformed report")

	// ErrConfigLength is returned for a configuration blob exceeding the
	// maximum configuration size.
	ErrConfigLength = errors.New("gt9xx: invalid config length")

	// ErrConfigChecksum is returned when a configuration blob fails its
	// checksum.
	ErrConfigChecksum = errors.New("gt9xx: config checksum mismatch")

	// ErrConfigNotFresh is returned when a configuration blob does not carry
	// the Config_Fresh marker the firmware requires.
	ErrConfigNotFresh = errors.New("gt9xx: config fresh marker not set")

	// ErrCommandFailed is returned by Suspend when the screen-off command was
	// rejected. The device is rolled back to its active state and the caller
	// may retry later.
	ErrCommandFailed = errors.New("gt9xx: screen-off command failed")

	// ErrSuspended is returned by ReadTouches while the panel sleeps; the
	// report registers must not be touched until the device is woken.
	ErrSuspended = errors.New("gt9xx: device suspended")
)

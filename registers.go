// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gt9xx

import (
	"time"

	"periph.io/x/conn/v3/gpio"
)

// The controller supports two I²C addresses, selected by the level held on
// the INT line while reset is released.
const (
	// DefaultAddr is the address selected by holding INT low during reset.
	DefaultAddr uint16 = 0x5d
	// AltAddr is the address selected by holding INT high during reset.
	AltAddr uint16 = 0x14
)

// Register map. Register addresses are 16 bits, big-endian on the wire.
const (
	regCommand    = 0x8040 // commands; also the watchdog liveness word
	regESDCheck   = 0x8041 // watchdog cooperation enable
	regConfigData = 0x8047 // configuration blob
	regID         = 0x8140 // 4 ASCII digits of model id + LE16 version
	regReadCoord  = 0x814e // report header + contacts; write 0 to acknowledge
)

const (
	cmdScreenOff  = 0x05
	cmdESDEnabled = 0xaa
)

const (
	contactSize = 8
	maxContacts = 10

	configMaxLength = 240
	config911Length = 186
	config967Length = 228

	resolutionLoc  = 1
	maxContactsLoc = 5
	triggerLoc     = 6

	defaultMaxX    = 4096
	defaultMaxY    = 4096
	defaultTrigger = 1

	// Model id used when the ID register does not parse as decimal digits.
	defaultModelID = 0x1001
)

// triggerEdges maps the 2-bit interrupt trigger type from the configuration
// blob to an edge. The controller's level triggers (2 and 3) are approximated
// by the edge leading into the level, since that is what gpio exposes.
var triggerEdges = [4]gpio.Edge{
	gpio.FallingEdge,
	gpio.RisingEdge,
	gpio.FallingEdge,
	gpio.RisingEdge,
}

// Datasheet timings. The reset pulse sequence doubles as the bus address
// selection protocol, so the holds are mandatory minimums.
const (
	resetHold        = 20 * time.Millisecond       // T2: > 10ms
	addrSetup        = 200 * time.Microsecond      // T3: > 100µs
	resetRelease     = 6 * time.Millisecond        // T4: > 5ms
	intSettle        = 50 * time.Millisecond       // T5
	configApplyDelay = 10 * time.Millisecond       // firmware reconfigure time
	probeRetryDelay  = 20 * time.Millisecond       // between liveness probes
	suspendIntLow    = 5 * time.Millisecond        // INT low before screen off
	screenOffDelay   = 58 * time.Millisecond       // minimum off interval
	wakeIntHigh      = 3 * time.Millisecond        // INT high to exit sleep
	autosuspendDelay = 2000 * time.Millisecond     // idle delay before suspend
	irqPollInterval  = 100 * time.Millisecond      // edge wait slice
)

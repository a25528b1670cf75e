// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// gt9xx-ts brings up a Goodix GT9xx touchscreen and either prints decoded
// touch frames to stdout or forwards them to the Linux input subsystem
// through uinput.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"time"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/gt9xx"
	"periph.io/x/gt9xx/uinput"
	"periph.io/x/host/v3"
)

// printSink dumps frames to stdout.
type printSink struct{}

func (printSink) Touch(p gt9xx.TouchPoint) {
	fmt.Printf("  slot=%d x=%d y=%d w=%d\n", p.Slot, p.X, p.Y, p.Width)
}

func (printSink) Sync() {
	fmt.Println("  sync")
}

func mainImpl() error {
	busName := flag.String("bus", "", "I²C bus to use, e.g. 1 (default: first available)")
	addr := flag.Uint("addr", uint(gt9xx.DefaultAddr), "I²C address of the controller (0x5d or 0x14)")
	rstName := flag.String("reset", "", "name of the reset GPIO")
	intName := flag.String("int", "", "name of the interrupt GPIO")
	subAddr := flag.Uint("substitute-addr", 0, "companion I²C address for INT direction control")
	swapXY := flag.Bool("swap-xy", false, "swap X and Y axes")
	invX := flag.Bool("invert-x", false, "invert the X axis")
	invY := flag.Bool("invert-y", false, "invert the Y axis")
	esd := flag.String("esd-timeout", "0", "ESD watchdog timeout in ms; 0 disables, 2000 recommended")
	fwDir := flag.String("firmware-dir", "/lib/firmware", "directory holding goodix_<id>_cfg.bin blobs")
	useUinput := flag.Bool("uinput", false, "register a virtual input device instead of printing")
	dump := flag.Bool("dump-config", false, "dump the on-device configuration as hex and exit")
	flag.Parse()
	if flag.NArg() != 0 {
		return fmt.Errorf("unrecognized arguments: %s", flag.Args())
	}
	esdMs, err := strconv.ParseUint(*esd, 10, 32)
	if err != nil {
		return fmt.Errorf("invalid -esd-timeout %q: %w", *esd, err)
	}

	if _, err := host.Init(); err != nil {
		return err
	}
	bus, err := i2creg.Open(*busName)
	if err != nil {
		return err
	}
	defer bus.Close()
	if err := bus.SetSpeed(400 * physic.KiloHertz); err != nil {
		fmt.Fprintf(os.Stderr, "gt9xx-ts: cannot set bus speed: %v\n", err)
	}

	opts := gt9xx.Opts{
		Addr:           uint16(*addr),
		SubstituteAddr: uint16(*subAddr),
		SwapXY:         *swapXY,
		InvertX:        *invX,
		InvertY:        *invY,
		ESDTimeout:     time.Duration(esdMs) * time.Millisecond,
		Firmware: func(name string) ([]byte, error) {
			return os.ReadFile(filepath.Join(*fwDir, name))
		},
	}
	if *rstName != "" {
		if opts.ResetPin = gpioreg.ByName(*rstName); opts.ResetPin == nil {
			return fmt.Errorf("no GPIO named %q", *rstName)
		}
	}
	if *intName != "" {
		if opts.IntPin = gpioreg.ByName(*intName); opts.IntPin == nil {
			return fmt.Errorf("no GPIO named %q", *intName)
		}
	}
	if !*useUinput {
		opts.Sink = printSink{}
	}

	d, err := gt9xx.New(bus, &opts)
	if err != nil {
		return err
	}
	if err := d.Ready(); err != nil {
		return err
	}
	fmt.Printf("%s ready\n", d)

	if *dump {
		cfg, err := d.DumpConfig()
		if err != nil {
			return err
		}
		fmt.Println(cfg)
		return d.Halt()
	}

	if *useUinput {
		x, y := d.Resolution()
		u, err := uinput.New(&uinput.Opts{
			Name:     "Goodix Capacitive TouchScreen",
			Product:  d.ModelID(),
			Version:  d.Version(),
			MaxX:     x,
			MaxY:     y,
			Contacts: d.MaxContacts(),
		})
		if err != nil {
			return err
		}
		defer u.Close()
		d.SetSink(u)
	}

	if err := d.Open(); err != nil {
		return err
	}
	defer d.Close()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	<-c
	return d.Halt()
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "gt9xx-ts: %v\n", err)
		os.Exit(1)
	}
}

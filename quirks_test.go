// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gt9xx

import (
	"os"
	"path/filepath"
	"testing"
)

func writeDMI(t *testing.T, vendor, product string) string {
	t.Helper()
	root := t.TempDir()
	if vendor != "" {
		if err := os.WriteFile(filepath.Join(root, "sys_vendor"), []byte(vendor+"\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if product != "" {
		if err := os.WriteFile(filepath.Join(root, "product_name"), []byte(product+"\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestIsRotatedScreen(t *testing.T) {
	data := []struct {
		vendor  string
		product string
		want    bool
	}{
		{"WinBook", "TW100", true},
		{"WinBook", "TW700", true},
		{"WinBook", "TW800", false},
		{"Acme", "TW100", false},
		{"", "", false},
	}
	for _, line := range data {
		root := writeDMI(t, line.vendor, line.product)
		if got := isRotatedScreen(root); got != line.want {
			t.Errorf("%q/%q: isRotatedScreen = %t; want %t", line.vendor, line.product, got, line.want)
		}
	}
}

func TestIsRotatedScreenNoDMI(t *testing.T) {
	// No DMI tree at all, e.g. a non-x86 board.
	if isRotatedScreen(filepath.Join(t.TempDir(), "missing")) {
		t.Fatal("missing DMI tree matched the quirk table")
	}
}

func TestApplyQuirks(t *testing.T) {
	old := dmiRoot
	dmiRoot = writeDMI(t, "WinBook", "TW100")
	t.Cleanup(func() { dmiRoot = old })

	d := newTestDev(&fakeBus{})
	d.applyQuirks()
	if !d.invertX || !d.invertY {
		t.Fatalf("invertX=%t invertY=%t; want both forced", d.invertX, d.invertY)
	}
}

func TestApplyQuirksNoMatch(t *testing.T) {
	old := dmiRoot
	dmiRoot = writeDMI(t, "Acme", "Slab 9000")
	t.Cleanup(func() { dmiRoot = old })

	d := newTestDev(&fakeBus{})
	d.applyQuirks()
	if d.invertX || d.invertY {
		t.Fatal("quirk applied on a non-matching system")
	}
}

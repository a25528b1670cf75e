// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gt9xx

import (
	"log"
	"os"
	"path/filepath"
	"strings"
)

// These tablets have their coordinates origin at the bottom right of the
// panel, as if rotated 180 degrees.
var rotatedScreens = []struct {
	vendor  string
	product string
}{
	{"WinBook", "TW100"},
	{"WinBook", "TW700"},
}

// dmiRoot is a variable to allow tests to point it at a fake tree.
var dmiRoot = "/sys/class/dmi/id"

func readDMIField(root, name string) string {
	b, err := os.ReadFile(filepath.Join(root, name))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}

// isRotatedScreen reports whether the running system matches the quirk table.
func isRotatedScreen(root string) bool {
	vendor := readDMIField(root, "sys_vendor")
	product := readDMIField(root, "product_name")
	if vendor == "" && product == "" {
		return false
	}
	for _, q := range rotatedScreens {
		if q.vendor == vendor && q.product == product {
			return true
		}
	}
	return false
}

// applyQuirks forces axis inversion for known rotated systems. It runs after
// geometry resolution, whether it came from the blob or from defaults.
func (d *Dev) applyQuirks() {
	if isRotatedScreen(dmiRoot) {
		d.invertX = true
		d.invertY = true
		log.Printf("gt9xx: applying '180 degrees rotated screen' quirk")
	}
}

package main

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	serialport "go.bug.st/serial"
)

// Device naming patterns for USB serial adapters seen in the field
// (FTDI, CDC-ACM, Silicon Labs, WCH) on macOS and Linux.
var devPortPatterns = []string{
	"cu.usbserial*",
	"cu.usbmodem*",
	"cu.SLAB_USBtoUART*",
	"cu.wchusbserial*",
	"tty.usbserial*",
	"tty.usbmodem*",
	"tty.SLAB_USBtoUART*",
	"tty.wchusbserial*",
	"ttyUSB*",
	"ttyACM*",
}

// candidatePorts lists candidate serial device identifiers for the host
// platform. On Windows the COM namespace is a fixed enumerable range; on
// everything else the /dev patterns are globbed under devRoot and merged.
// An empty result is a normal outcome, never an error.
func candidatePorts(goos, devRoot string) []string {
	if goos == "windows" {
		out := make([]string, 0, 50)
		for i := 1; i <= 50; i++ {
			out = append(out, fmt.Sprintf("COM%d", i))
		}
		return out
	}

	var out []string
	for _, pat := range devPortPatterns {
		matches, err := filepath.Glob(filepath.Join(devRoot, pat))
		if err != nil {
			continue
		}
		out = append(out, matches...)
	}
	return dedupePorts(out)
}

// dedupePorts removes exact-string duplicates, preserving first-seen order.
func dedupePorts(ports []string) []string {
	seen := make(map[string]bool, len(ports))
	uniq := make([]string, 0, len(ports))
	for _, p := range ports {
		if seen[p] {
			continue
		}
		seen[p] = true
		uniq = append(uniq, p)
	}
	return uniq
}

// listPorts merges the OS port list with the pattern-based candidates so a
// device the driver registered under an unexpected name still shows up.
func listPorts() []string {
	detected, err := serialport.GetPortsList()
	if err != nil {
		detected = nil
	}
	return dedupePorts(append(detected, candidatePorts(runtime.GOOS, "/dev")...))
}

// pickPort chooses the port to preselect after a refresh: a single candidate
// wins outright, a still-present current selection is kept, otherwise prefer
// a macOS callout (cu.) device.
func pickPort(ports []string, current string) string {
	if len(ports) == 0 {
		return ""
	}
	if len(ports) == 1 {
		return ports[0]
	}
	for _, p := range ports {
		if p == current {
			return current
		}
	}
	for _, p := range ports {
		if strings.Contains(p, "/cu.") {
			return p
		}
	}
	return ports[0]
}

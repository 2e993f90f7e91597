package main

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
)

// Fixed flashing parameters for the Zerowriter Ink display board.
const (
	FixedChip   = "esp32"
	FixedBaud   = "460800"
	FlashOffset = "0x0000"

	DefaultFirmwareName = "zw_latest.merged.bin"

	// Anything smaller cannot be a merged image.
	minFirmwareSize = 1024
)

// looksLikeFirmware is a heuristic guard against users picking a web page a
// browser saved instead of a binary image. It is not a format validator:
// any readable file of plausible size that does not start with an HTML
// document passes. All I/O errors yield false.
func looksLikeFirmware(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	if info.Size() < minFirmwareSize {
		return false
	}

	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	head := make([]byte, 256)
	n, err := f.Read(head)
	if err != nil || n == 0 {
		return false
	}
	head = bytes.ToLower(head[:n])

	if bytes.Contains(head, []byte("<html")) || bytes.Contains(head, []byte("<!doctype html")) {
		return false
	}
	return true
}

func appDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// bundledResourceDir returns where packaged builds keep bundled files. On
// macOS that is the app bundle's Resources directory next to the binary.
func bundledResourceDir() string {
	dir := appDir()
	if runtime.GOOS == "darwin" {
		res := filepath.Join(dir, "..", "Resources")
		if info, err := os.Stat(res); err == nil && info.IsDir() {
			return res
		}
	}
	return dir
}

// defaultFirmwarePath searches the well-known locations for the shipped
// firmware image and returns the first existing match, or "" when none is
// found.
func defaultFirmwarePath() string {
	wd, _ := os.Getwd()
	candidates := []string{
		filepath.Join(appDir(), DefaultFirmwareName),
		filepath.Join(bundledResourceDir(), DefaultFirmwareName),
		filepath.Join(wd, DefaultFirmwareName),
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			if abs, err := filepath.Abs(c); err == nil {
				return abs
			}
			return c
		}
	}
	return ""
}

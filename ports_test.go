package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCandidatePortsWindows(t *testing.T) {
	t.Parallel()

	ports := candidatePorts("windows", "")
	if len(ports) != 50 {
		t.Fatalf("len = %d, want 50", len(ports))
	}
	if ports[0] != "COM1" || ports[49] != "COM50" {
		t.Errorf("range = %s..%s, want COM1..COM50", ports[0], ports[49])
	}
}

func TestCandidatePortsGlob(t *testing.T) {
	t.Parallel()

	dev := t.TempDir()
	for _, name := range []string{"ttyUSB0", "ttyUSB1", "ttyACM0", "ttyS0", "sda1"} {
		if err := os.WriteFile(filepath.Join(dev, name), nil, 0644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}

	ports := candidatePorts("linux", dev)

	want := []string{
		filepath.Join(dev, "ttyUSB0"),
		filepath.Join(dev, "ttyUSB1"),
		filepath.Join(dev, "ttyACM0"),
	}
	if !equalStrings(ports, want) {
		t.Errorf("ports = %q, want %q", ports, want)
	}
}

func TestCandidatePortsMissingDevRoot(t *testing.T) {
	t.Parallel()

	ports := candidatePorts("linux", filepath.Join(t.TempDir(), "nope"))
	if len(ports) != 0 {
		t.Errorf("ports = %q, want empty", ports)
	}
}

func TestDedupePorts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"empty", nil, []string{}},
		{"no dupes", []string{"a", "b"}, []string{"a", "b"}},
		{"dupes keep first-seen order", []string{"b", "a", "b", "c", "a"}, []string{"b", "a", "c"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := dedupePorts(tt.in)
			if !equalStrings(got, tt.want) {
				t.Errorf("dedupePorts(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestPickPort(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		ports   []string
		current string
		want    string
	}{
		{"no ports", nil, "COM3", ""},
		{"single port wins", []string{"COM7"}, "", "COM7"},
		{"current kept when present", []string{"COM1", "COM2"}, "COM2", "COM2"},
		{"cu device preferred", []string{"/dev/tty.usbserial-1", "/dev/cu.usbserial-1"}, "", "/dev/cu.usbserial-1"},
		{"fallback to first", []string{"/dev/ttyUSB0", "/dev/ttyUSB1"}, "/dev/ttyACM9", "/dev/ttyUSB0"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := pickPort(tt.ports, tt.current); got != tt.want {
				t.Errorf("pickPort(%q, %q) = %q, want %q", tt.ports, tt.current, got, tt.want)
			}
		})
	}
}

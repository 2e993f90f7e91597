package main

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"zwflasher/logger"
)

// The external tool may be installed as either name depending on how the
// user (or our installer) set it up.
var esptoolNames = []string{"esptool", "esptool.py"}

// esptoolCommand resolves the esptool executable on PATH.
func esptoolCommand() (string, error) {
	var lastErr error
	for _, name := range esptoolNames {
		path, err := exec.LookPath(name)
		if err == nil {
			logger.Debug("esptool resolved to %s", path)
			return path, nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("esptool not found on PATH: %w", lastErr)
}

// esptoolAvailable reports whether the external flashing tool can be
// invoked. Called once per validation pass, never cached across sessions.
func esptoolAvailable() bool {
	_, err := esptoolCommand()
	return err == nil
}

// flashArgs builds the fixed, order-sensitive esptool argument list for
// writing a merged firmware image.
func flashArgs(port, firmwarePath string) []string {
	return []string{
		"--chip", FixedChip,
		"-p", port,
		"-b", FixedBaud,
		"write_flash",
		FlashOffset,
		firmwarePath,
	}
}

// normalizeExitCode collapses a subprocess outcome into the session result
// code: a clean return is 0, a reported exit status passes through, and
// anything else (signals, start failures) is 1.
func normalizeExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code >= 0 {
			return code
		}
	}
	return 1
}

// runEsptool invokes esptool with stdout and stderr redirected through the
// given sink, so the interleaved streams collapse into one ordered line
// stream. When the tool is missing it emits a single diagnostic line and
// returns nonzero without attempting invocation.
func runEsptool(args []string, out io.Writer) int {
	tool, err := esptoolCommand()
	if err != nil {
		fmt.Fprintf(out, "ERROR: %v\n", err)
		return 1
	}

	logger.Info("running %s %s", tool, strings.Join(args, " "))

	cmd := exec.Command(tool, args...)
	cmd.Stdout = out
	cmd.Stderr = out

	code := normalizeExitCode(cmd.Run())
	logger.Info("esptool exited with code %d", code)
	return code
}

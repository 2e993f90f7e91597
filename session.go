package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// State is the controller lifecycle state.
type State int

const (
	StateIdle State = iota
	StateValidating
	StateRunning
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateRunning:
		return "running"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Phase is the coarse human-readable stage derived from esptool output.
type Phase int

const (
	PhaseNone Phase = iota
	PhaseConnecting
	PhaseWriting
	PhaseVerifying
)

func (p Phase) String() string {
	switch p {
	case PhaseConnecting:
		return "Connecting"
	case PhaseWriting:
		return "Writing"
	case PhaseVerifying:
		return "Verifying"
	default:
		return ""
	}
}

// classifyPhase maps an output line to a phase, case-insensitive, first
// match wins. Unrecognized lines report ok=false and leave the phase alone.
func classifyPhase(line string) (Phase, bool) {
	low := strings.ToLower(line)
	switch {
	case strings.Contains(low, "connecting"):
		return PhaseConnecting, true
	case strings.Contains(low, "writing at") || strings.Contains(low, "wrote"):
		return PhaseWriting, true
	case strings.Contains(low, "hash of data verified") || strings.Contains(low, "verified"):
		return PhaseVerifying, true
	}
	return PhaseNone, false
}

// esptool reports progress as a parenthesized percentage, e.g. "(42 %)".
var percentRe = regexp.MustCompile(`\((\d+)\s*%\)`)

// extractPercent pulls a progress percentage out of a line, clamped to
// [0,100].
func extractPercent(line string) (int, bool) {
	m := percentRe.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	pct, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return clampPercent(pct), true
}

func clampPercent(pct int) int {
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// Validation failures reported back to the user before any work starts.
var (
	ErrSessionActive  = errors.New("an update is already in progress")
	ErrMissingEsptool = errors.New("this app is missing bundled dependencies (esptool); please download the correct updater")
	ErrNoPort         = errors.New("no serial port selected")
	ErrNoFirmware     = errors.New("no firmware file selected")
)

// sessionEvent is the atomic unit passed from the background worker to the
// foreground poller: either one completed output line, or the terminal
// marker carrying the result code.
type sessionEvent struct {
	line     string
	terminal bool
	code     int
}

// invokeFunc runs the external flashing tool with the given argv, writing
// all of its output to out, and returns the normalized result code.
type invokeFunc func(args []string, out io.Writer) int

// Session is one flashing attempt. It is mutated only by the controller
// while holding its lock; callers only ever see Snapshot copies.
type Session struct {
	ID           string
	Port         string
	FirmwarePath string
	Log          []string
	Phase        Phase
	Percent      int
	Determinate  bool
	Done         bool
	Code         int
}

// Snapshot is the immutable per-poll view applied to presentation state in
// one assignment. Lines holds only the lines drained by this poll.
type Snapshot struct {
	SessionID   string   `json:"sessionId"`
	State       string   `json:"state"`
	Phase       string   `json:"phase"`
	Percent     int      `json:"percent"`
	Determinate bool     `json:"determinate"`
	Lines       []string `json:"lines"`
	Done        bool     `json:"done"`
	OK          bool     `json:"ok"`
	Code        int      `json:"code"`
}

// Controller owns one flashing attempt end to end: it validates inputs,
// spawns exactly one background worker per session, and exposes the drained,
// classified output through Poll. The worker is the sole producer on the
// events channel and Poll is the sole consumer.
type Controller struct {
	probe  func() bool
	invoke invokeFunc

	mu      sync.Mutex
	state   State
	session *Session
	events  chan sessionEvent
}

func NewController() *Controller {
	return &Controller{
		probe:  esptoolAvailable,
		invoke: runEsptool,
	}
}

// State returns the current controller state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start validates the inputs and, on success, begins a new session with one
// background worker. Validation failures return the controller to idle with
// no goroutine spawned. Starting while a session is running is an error;
// after success or failure a new start discards the previous session.
func (c *Controller) Start(port, firmwarePath string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateRunning {
		return ErrSessionActive
	}

	c.state = StateValidating
	if err := c.validate(port, firmwarePath); err != nil {
		c.state = StateIdle
		return err
	}

	c.session = &Session{
		ID:           uuid.NewString(),
		Port:         port,
		FirmwarePath: firmwarePath,
	}
	c.events = make(chan sessionEvent, 1024)
	c.state = StateRunning

	go runWorker(c.invoke, flashArgs(port, firmwarePath), c.events)
	return nil
}

// validate checks, in order: tool availability, port selection, firmware
// selection and existence, and the firmware sanity heuristic.
func (c *Controller) validate(port, firmwarePath string) error {
	if !c.probe() {
		return ErrMissingEsptool
	}
	if strings.TrimSpace(port) == "" {
		return ErrNoPort
	}
	if strings.TrimSpace(firmwarePath) == "" {
		return ErrNoFirmware
	}
	if _, err := os.Stat(firmwarePath); err != nil {
		return fmt.Errorf("firmware not found: %s", firmwarePath)
	}
	if !looksLikeFirmware(firmwarePath) {
		return fmt.Errorf("file does not look like a valid firmware binary: %s", firmwarePath)
	}
	return nil
}

// runWorker drives one invocation of the external tool and always posts the
// terminal marker last, after the invocation has fully returned. Panics are
// converted into a diagnostic line plus a failure code; nothing escapes the
// worker silently. The sink is flushed on every exit path so a buffered
// partial line is never dropped, panic included.
func runWorker(invoke invokeFunc, args []string, events chan<- sessionEvent) {
	code := 1
	w := newLineWriter(func(line string) {
		events <- sessionEvent{line: line}
	})
	func() {
		defer func() {
			w.Flush()
			if r := recover(); r != nil {
				events <- sessionEvent{line: fmt.Sprintf("ERROR: flasher crashed: %v", r)}
			}
		}()
		code = invoke(args, w)
	}()
	events <- sessionEvent{terminal: true, code: code}
}

// Poll drains everything the worker has produced so far without blocking and
// returns a snapshot of the session. Lines are observed in exactly the order
// the worker emitted them; once the terminal marker is drained the snapshot
// reports the final state and subsequent polls are no-ops.
func (c *Controller) Poll() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateRunning || c.session == nil {
		return c.snapshotLocked(nil)
	}

	var fresh []string
	for {
		select {
		case ev := <-c.events:
			if ev.terminal {
				c.finishLocked(ev.code)
				return c.snapshotLocked(fresh)
			}
			line := strings.TrimRight(ev.line, "\r")
			if line == "" {
				continue
			}
			c.session.Log = append(c.session.Log, line)
			fresh = append(fresh, line)
			c.applyLocked(line)
		default:
			return c.snapshotLocked(fresh)
		}
	}
}

// applyLocked classifies one line. Percent extraction and phase matching are
// independent; unrecognized lines only update the log. The determinate latch
// flips on the first percent and never flips back within a session.
func (c *Controller) applyLocked(line string) {
	if pct, ok := extractPercent(line); ok {
		c.session.Percent = pct
		c.session.Determinate = true
	}
	if phase, ok := classifyPhase(line); ok {
		c.session.Phase = phase
	}
}

// finishLocked applies the terminal marker: success forces the meter to 100,
// failure resets it to 0 regardless of the last observed progress.
func (c *Controller) finishLocked(code int) {
	sess := c.session
	sess.Done = true
	sess.Code = code
	sess.Determinate = true
	if code == 0 {
		sess.Percent = 100
		c.state = StateSucceeded
	} else {
		sess.Percent = 0
		c.state = StateFailed
	}
}

func (c *Controller) snapshotLocked(fresh []string) Snapshot {
	snap := Snapshot{
		State: c.state.String(),
		Lines: fresh,
	}
	if sess := c.session; sess != nil {
		snap.SessionID = sess.ID
		snap.Phase = sess.Phase.String()
		snap.Percent = sess.Percent
		snap.Determinate = sess.Determinate
		snap.Done = sess.Done
		snap.OK = sess.Done && sess.Code == 0
		snap.Code = sess.Code
	}
	return snap
}

package main

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/wailsapp/wails/v2/pkg/runtime"
	serialport "go.bug.st/serial"
	"go.bug.st/serial/enumerator"

	"zwflasher/logger"
)

// pollInterval is how often the foreground pump drains the session queue.
// Matches the cadence a user perceives as live output without burning CPU.
const pollInterval = 50 * time.Millisecond

const instructionsText = "Important: To update with this tool, you must open your Zerowriter Ink and unplug the keyboard cable " +
	"from the display board (the cable on the left side of the screen). The keyboard itself blocks the update " +
	"signal from your computer, so it must be disconnected temporarily. To remove the keyboard cable, you can " +
	"carefully wiggle it side-to-side until it releases.\n\n" +
	"Back up your work: This update tool does NOT affect anything on the Zerowriter Ink SD card, " +
	"but you should always back up your work before doing any update. Better safe than sorry.\n\n" +
	"1. Turn off your Zerowriter Ink\n" +
	"2. Unscrew the back panel to open your Zerowriter Ink\n" +
	"3. Carefully unplug the keyboard connection cable on the left side of the display (black cable, white cap/connector)\n" +
	"4. Connect your Zerowriter Ink to your computer via USB-C cable through the charging port.\n" +
	"5. Turn ON your Zerowriter Ink from the power switch\n" +
	"6. Run this updater: select your binary and press \"Update\""

// failureHints are the generic remediation steps shown on any failed update.
// The controller does not interpret why esptool failed, only that it did.
var failureHints = []string{
	"Unplug/replug USB, try a different cable",
	"Close any serial monitor using the port",
	"Ensure the keyboard cable is unplugged (per instructions)",
}

// App struct
type App struct {
	ctx  context.Context
	ctrl *Controller

	monitorMu   sync.Mutex
	monitorPort serialport.Port
	stopMonitor chan struct{}
}

// NewApp creates a new App application struct
func NewApp() *App {
	return &App{ctrl: NewController()}
}

// startup is called when the app starts. The context is saved
// so we can call the runtime methods
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
}

// PortInfo describes one selectable serial port for the frontend.
type PortInfo struct {
	Name    string `json:"name"`
	IsUSB   bool   `json:"isUsb"`
	Product string `json:"product"`
}

// PortsResponse carries the refreshed port list plus the port the frontend
// should preselect.
type PortsResponse struct {
	Ports    []PortInfo `json:"ports"`
	Selected string     `json:"selected"`
}

// RefreshPorts lists candidate serial ports, decorated with USB metadata
// where the OS provides it. An empty list is a normal outcome.
func (a *App) RefreshPorts(current string) PortsResponse {
	names := listPorts()

	details := map[string]*enumerator.PortDetails{}
	if list, err := enumerator.GetDetailedPortsList(); err == nil {
		for _, d := range list {
			details[d.Name] = d
		}
	}

	ports := make([]PortInfo, 0, len(names))
	for _, name := range names {
		info := PortInfo{Name: name}
		if d, ok := details[name]; ok {
			info.IsUSB = d.IsUSB
			info.Product = d.Product
		}
		ports = append(ports, info)
	}
	logger.Debug("port refresh: %d candidates", len(names))

	return PortsResponse{
		Ports:    ports,
		Selected: pickPort(names, current),
	}
}

// ChooseFirmware opens a file dialog for the merged firmware image.
func (a *App) ChooseFirmware() (string, error) {
	return runtime.OpenFileDialog(a.ctx, runtime.OpenDialogOptions{
		Title: "Select merged firmware (.bin)",
		Filters: []runtime.FileFilter{
			{DisplayName: "Binary Files (*.bin)", Pattern: "*.bin"},
			{DisplayName: "All Files (*.*)", Pattern: "*.*"},
		},
	})
}

// DefaultFirmware returns the bundled firmware image path, or "" when none
// of the well-known locations has one.
func (a *App) DefaultFirmware() string {
	return defaultFirmwarePath()
}

// Instructions returns the update walkthrough shown in the instructions tab.
func (a *App) Instructions() string {
	return instructionsText
}

// TechInfo returns the fixed flashing parameters shown in the footer.
func (a *App) TechInfo() string {
	return fmt.Sprintf("Chip: %s   Baud: %s   Offset: %s", FixedChip, FixedBaud, FlashOffset)
}

// FlashDone is the terminal payload for one update session.
type FlashDone struct {
	OK    bool     `json:"ok"`
	Code  int      `json:"code"`
	Hints []string `json:"hints"`
}

// StartUpdate validates the inputs and starts one flashing session. On
// validation failure the error message is surfaced to the user and nothing
// runs in the background. On success a pump goroutine streams session
// output to the frontend until the terminal marker arrives.
func (a *App) StartUpdate(port, firmwarePath string) error {
	port = strings.TrimSpace(port)
	firmwarePath = strings.TrimSpace(firmwarePath)

	// esptool needs the port to itself.
	a.StopMonitor()

	if err := a.ctrl.Start(port, firmwarePath); err != nil {
		logger.WithError(err, "update rejected")
		return err
	}

	logger.Info("update started: port=%s firmware=%s", port, firmwarePath)
	a.emitLog("=== UPDATE START ===")
	a.emitLog("Command: esptool " + strings.Join(flashArgs(port, firmwarePath), " "))

	go a.pump()
	return nil
}

// pump is the foreground polling loop for one session: every tick it drains
// the controller, forwards new lines and one state snapshot, and stops after
// the terminal marker.
func (a *App) pump() {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for range ticker.C {
		snap := a.ctrl.Poll()

		for _, line := range snap.Lines {
			a.emitLog(line)
		}
		runtime.EventsEmit(a.ctx, "flash-state", snap)

		if snap.Done {
			if snap.OK {
				logger.Info("update complete: session=%s", snap.SessionID)
				a.emitLog("=== UPDATE COMPLETE ===")
			} else {
				logger.Warn("update failed: session=%s code=%d", snap.SessionID, snap.Code)
				a.emitLog("=== UPDATE FAILED ===")
			}
			runtime.EventsEmit(a.ctx, "flash-done", FlashDone{
				OK:    snap.OK,
				Code:  snap.Code,
				Hints: failureHints,
			})
			return
		}
	}
}

// emitLog sends one log line to the frontend
func (a *App) emitLog(line string) {
	runtime.EventsEmit(a.ctx, "flash-log", line)
}

// MonitorPort opens the port and streams device output line-by-line into
// the log view, for watching the device boot after an update. Any monitor
// already running is stopped first.
func (a *App) MonitorPort(portName string, baudRate int) error {
	a.StopMonitor()

	mode := &serialport.Mode{
		BaudRate: baudRate,
		Parity:   serialport.NoParity,
		DataBits: 8,
		StopBits: serialport.OneStopBit,
	}

	port, err := serialport.Open(portName, mode)
	if err != nil {
		return fmt.Errorf("failed to open port for monitoring: %w", err)
	}

	stop := make(chan struct{})
	a.monitorMu.Lock()
	a.monitorPort = port
	a.stopMonitor = stop
	a.monitorMu.Unlock()

	a.emitLog(fmt.Sprintf("Monitoring %s (%d baud). Press Stop to end.", portName, baudRate))

	go a.readMonitor(port, stop)
	return nil
}

// readMonitor is the monitor reader loop. It is the sole owner of the port
// handle: only its defer closes the port, so no other goroutine can race a
// close against a read.
func (a *App) readMonitor(port serialport.Port, stop chan struct{}) {
	defer func() {
		port.Close()
		a.monitorMu.Lock()
		if a.monitorPort == port {
			a.monitorPort = nil
			a.stopMonitor = nil
		}
		a.monitorMu.Unlock()
		runtime.EventsEmit(a.ctx, "monitor-stop", "")
	}()

	sink := newLineWriter(func(line string) {
		line = strings.TrimSpace(line)
		if line != "" {
			runtime.EventsEmit(a.ctx, "monitor-data", line)
		}
	})

	buffer := make([]byte, 1024)
	for {
		select {
		case <-stop:
			sink.Flush()
			return
		default:
			if err := port.SetReadTimeout(50 * time.Millisecond); err != nil {
				return
			}

			n, err := port.Read(buffer)
			if err != nil {
				if strings.Contains(err.Error(), "timeout") {
					continue
				}
				runtime.EventsEmit(a.ctx, "monitor-error", err.Error())
				return
			}

			if n > 0 {
				sink.Write(buffer[:n])
			}
		}
	}
}

// StopMonitor signals the monitor reader to finish. The reader closes the
// port and emits monitor-stop on its way out; stopping an idle monitor is a
// no-op.
func (a *App) StopMonitor() {
	a.monitorMu.Lock()
	if a.stopMonitor != nil {
		close(a.stopMonitor)
		a.stopMonitor = nil
	}
	a.monitorMu.Unlock()
}

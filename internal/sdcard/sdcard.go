// Package sdcard implements the virtual SD filesystem operations (list,
// select, write, delete, status, pause/resume) and the background SD-print
// worker that streams a selected file's lines into the thermal state,
// mirroring the firmware's printer task.
package sdcard

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ehrlich-b/virtualmarlin/internal/constants"
	"github.com/ehrlich-b/virtualmarlin/internal/interfaces"
	"github.com/ehrlich-b/virtualmarlin/internal/thermal"
)

// State holds the virtual SD card's mount/selection/print state. All fields
// are guarded by one mutex; the pause gate is a two-state latch
// ("set" = proceed, "clear" = block) implemented with a sync.Cond, since the
// print worker blocks on it indefinitely with no deadline.
type State struct {
	mu      sync.Mutex
	fs      interfaces.FileSystem
	thermal *thermal.State
	emit    func(string)
	logger  interfaces.Logger

	lineDelay time.Duration

	ready bool

	selectedName string
	selectedSize int64
	pos          int64
	newPos       *int64

	writing   bool
	writeName string

	gateOpen bool
	gateCond *sync.Cond
	running  bool
	killed   bool
}

// NewState creates SD card state backed by fs. thermalState receives
// in-file M104/M109/M140/M190 target updates from the print worker; emit
// sends asynchronous lines ("Done printing file") to the host.
func NewState(fs interfaces.FileSystem, thermalState *thermal.State, emit func(string), logger interfaces.Logger) *State {
	s := &State{
		fs:        fs,
		thermal:   thermalState,
		emit:      emit,
		logger:    logger,
		lineDelay: constants.SDPrintLineDelay,
	}
	s.gateCond = sync.NewCond(&s.mu)
	return s
}

func resolveName(name string) string {
	return strings.ToLower(strings.TrimPrefix(name, "/"))
}

// Ready reports whether the card is mounted.
func (s *State) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// Mount marks the card ready (M21).
func (s *State) Mount() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = true
}

// Unmount marks the card not ready (M22).
func (s *State) Unmount() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = false
}

// List returns the "Begin file list" / entries / "End file list" lines for
// M20, each entry's name upcased for display.
func (s *State) List() []string {
	lines := []string{"Begin file list"}
	if infos, err := s.fs.List(); err == nil {
		for _, info := range infos {
			lines = append(lines, fmt.Sprintf("%s %d", strings.ToUpper(info.Name), info.Size))
		}
	}
	lines = append(lines, "End file list")
	return lines
}

// Select resolves name and, if it exists as a regular file, records it as
// the selected file for M23.
func (s *State) Select(name string) []string {
	resolved := resolveName(name)
	info, err := s.fs.Stat(resolved)
	if err != nil || !info.Mode.IsRegular() {
		return []string{fmt.Sprintf("open failed, File: %s.", name)}
	}
	s.mu.Lock()
	s.selectedName = resolved
	s.selectedSize = info.Size
	s.pos = 0
	s.mu.Unlock()
	return []string{
		fmt.Sprintf("File opened: %s Size: %d", name, info.Size),
		"File selected",
	}
}

// WriteBegin opens name for append-only writing (M28), deleting any
// existing regular file at that path first.
func (s *State) WriteBegin(name string) []string {
	resolved := resolveName(name)
	if info, err := s.fs.Stat(resolved); err == nil {
		if !info.Mode.IsRegular() {
			return []string{"error writing to file"}
		}
		_ = s.fs.DeleteFile(resolved)
	}
	s.mu.Lock()
	s.writing = true
	s.writeName = resolved
	s.mu.Unlock()
	return []string{"Writing to file: " + name}
}

// WriteEnd closes the in-progress SD write (M29).
func (s *State) WriteEnd() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writing = false
	s.writeName = ""
}

// Delete removes name if it exists as a regular file (M30).
func (s *State) Delete(name string) {
	resolved := resolveName(name)
	if info, err := s.fs.Stat(resolved); err == nil && info.Mode.IsRegular() {
		_ = s.fs.DeleteFile(resolved)
	}
}

// Status reports print progress for M27. The original tests a bound
// method's truthiness rather than calling it, which is always true; this
// implements the evidently-intended behavior instead: report progress when
// a printer worker is running and the pause gate is open.
func (s *State) Status() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running && s.gateOpen {
		return []string{fmt.Sprintf("SD printing byte %d/%d", s.pos, s.selectedSize)}
	}
	return []string{"Not SD printing"}
}

// Start spawns the print worker if one is not already running, and opens
// the pause gate (M24).
func (s *State) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running && s.selectedName != "" {
		s.running = true
		s.killed = false
		name := s.selectedName
		go s.runPrinter(name)
	}
	s.gateOpen = true
	s.gateCond.Broadcast()
}

// Pause closes the pause gate (M25).
func (s *State) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gateOpen = false
}

// SetPos records a pending seek the print worker applies before its next
// line (M26).
func (s *State) SetPos(pos int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := pos
	s.newPos = &p
}

// IsWriting reports whether the reader's SD write short-circuit should
// intercept the next line instead of dispatching it.
func (s *State) IsWriting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writing
}

// AppendLine appends a raw line (with its trailing newline already present)
// to the file opened by WriteBegin.
func (s *State) AppendLine(line string) error {
	s.mu.Lock()
	name := s.writeName
	s.mu.Unlock()
	if name == "" {
		return nil
	}
	return s.fs.AppendFile(name, []byte(line))
}

// Kill stops the print worker, if any, at its next loop head.
func (s *State) Kill() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.killed = true
	s.gateCond.Broadcast()
}

// runPrinter streams the selected file's lines, applying pending seeks,
// blocking on the pause gate, and feeding in-file hotend/bed commands to
// the thermal state without ever invoking the blocking heat-up wait.
func (s *State) runPrinter(name string) {
	defer s.finishPrinting()

	data, err := s.fs.ReadFile(name)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("sd print read failed", "file", name, "err", err)
		}
		return
	}

	for _, line := range strings.Split(string(data), "\n") {
		if line == "" {
			continue
		}

		s.mu.Lock()
		if s.newPos != nil {
			s.pos = *s.newPos
			s.newPos = nil
		} else {
			s.pos += int64(len(line)) + 1
		}
		for !s.gateOpen && !s.killed {
			s.gateCond.Wait()
		}
		killed := s.killed
		s.mu.Unlock()
		if killed {
			return
		}

		applyInFileCommand(s.thermal, line)
		time.Sleep(s.lineDelay)
	}
}

func (s *State) finishPrinting() {
	s.mu.Lock()
	s.running = false
	s.gateOpen = false
	s.pos = 0
	s.mu.Unlock()
	if s.emit != nil {
		s.emit("Done printing file")
	}
}

// applyInFileCommand mirrors the live M104/M109/M140/M190 target-setting
// half without the blocking wait: M109/M190 encountered mid-file never
// block the print worker.
func applyInFileCommand(t *thermal.State, line string) {
	switch {
	case strings.Contains(line, "M104"), strings.Contains(line, "M109"):
		if tool, val, ok := thermal.ParseHotendTarget(line); ok {
			t.SetTarget(tool, false, val)
		}
	case strings.Contains(line, "M140"), strings.Contains(line, "M190"):
		if val, ok := thermal.ParseBedTarget(line); ok {
			t.SetTarget(0, true, val)
		}
	}
}

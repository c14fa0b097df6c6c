package marlin

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ehrlich-b/virtualmarlin/internal/constants"
	"github.com/ehrlich-b/virtualmarlin/internal/debuginject"
	"github.com/ehrlich-b/virtualmarlin/internal/dispatch"
	"github.com/ehrlich-b/virtualmarlin/internal/interfaces"
	"github.com/ehrlich-b/virtualmarlin/internal/logging"
	"github.com/ehrlich-b/virtualmarlin/internal/motion"
	"github.com/ehrlich-b/virtualmarlin/internal/protocol"
	"github.com/ehrlich-b/virtualmarlin/internal/queue"
	"github.com/ehrlich-b/virtualmarlin/internal/sdcard"
	"github.com/ehrlich-b/virtualmarlin/internal/thermal"
)

// Printer is the lifecycle supervisor: it owns the channel, the protocol,
// motion, and thermal state, the virtual SD card, and the always-on reader
// and move-queue worker goroutines that drive them, mirroring the
// firmware's boot/run/shutdown sequence.
type Printer struct {
	params  Params
	channel *Channel

	proto   *protocol.State
	motionS *motion.State
	thermS  *thermal.State
	sdS     *sdcard.State
	debug   *debuginject.State
	disp    *dispatch.Dispatcher

	moveQueue *queue.CountQueue
	moving    atomic.Bool

	killed atomic.Bool
	closed atomic.Bool

	observer interfaces.Observer
	logger   interfaces.Logger

	lastInput time.Time
}

// NewPrinter constructs a Printer from the given options, emits the boot
// banner, and starts its reader and move-queue workers immediately --
// construction and boot are inseparable, as on real hardware.
func NewPrinter(opts ...Option) *Printer {
	p := Apply(opts...)

	logger := p.Logger
	if logger == nil {
		logger = logging.Default()
	}
	observer := p.Observer
	if observer == nil {
		observer = NoOpObserver{}
	}
	fs := p.FileSystem
	if fs == nil {
		fs = NewMockFileSystem()
	}

	pr := &Printer{
		params:   p,
		proto:    protocol.NewState(protocol.Config{ForceChecksums: p.ForceChecksums, OkWithLineno: p.OkWithLineno, OkBefore: p.OkBefore, RepetierResends: p.RepetierResends}),
		motionS:  motion.NewState(p.Speeds),
		thermS:   thermal.NewState(p.Extruders, p.HeatupDelta),
		debug:    debuginject.NewState(),
		observer: observer,
		logger:   logger,
	}
	pr.moveQueue = queue.NewCountQueue(p.CommandBuffer)

	pr.channel = newChannel(p.RxBuffer, p.WriteTimeout, p.ReadTimeout, p.Throttle, pr.debug, p.SupportM112, pr.Kill, logger, observer)
	pr.sdS = sdcard.NewState(fs, pr.thermS, pr.channel.emitLine, logger)

	pr.disp = dispatch.New(
		dispatch.Config{SupportF: p.SupportF, EchoM117: p.EchoM117, OkBefore: p.OkBefore, ReadTimeout: p.ReadTimeout},
		dispatch.Dependencies{
			Motion:      pr.motionS,
			Thermal:     pr.thermS,
			SD:          pr.sdS,
			Emit:        pr.channel.emitLine,
			Ok:          pr.proto.Ok,
			EnqueueMove: pr.enqueueMove,
			MoveBusy:    pr.moveBusy,
			Killed:      pr.Killed,
		},
	)

	// The card boots mounted, matching the banner's "SD card ok".
	pr.sdS.Mount()
	for _, line := range constants.BootBanner {
		pr.channel.emitLine(line)
	}

	go pr.runReader()
	go pr.runMoveWorker()

	return pr
}

// Write feeds bytes into the printer as if arriving over the wire.
func (pr *Printer) Write(data []byte) error {
	return pr.channel.Write(data)
}

// Read drains one response line, blocking up to ReadTimeout.
func (pr *Printer) Read() (string, error) {
	return pr.channel.Read()
}

// Killed reports whether an emergency stop (M112) has fired.
func (pr *Printer) Killed() bool {
	return pr.killed.Load()
}

// Kill stops every worker at its next check, without tearing down the
// channel -- the host can still drain whatever is left in the response
// queue.
func (pr *Printer) Kill() {
	pr.killed.Store(true)
	pr.sdS.Kill()
}

// Close unifies shutdown with Kill: it stops the workers and tears down the
// channel's queues so blocked Read/Write calls return promptly.
func (pr *Printer) Close() error {
	pr.closed.Store(true)
	pr.Kill()
	pr.channel.Close()
	pr.moveQueue.Close()
	if m, ok := pr.observer.(*Metrics); ok {
		m.Stop()
	}
	return nil
}

func (pr *Printer) enqueueMove(line string) error {
	return pr.moveQueue.Put(line, pr.params.WriteTimeout)
}

func (pr *Printer) moveBusy() bool {
	return pr.moveQueue.Depth() > 0 || pr.moving.Load()
}

// runMoveWorker drains queued G0-G3 moves, sleeping out each one's duration
// in slices so Kill takes effect promptly instead of after the whole move.
func (pr *Printer) runMoveWorker() {
	for {
		if pr.killed.Load() || pr.closed.Load() {
			return
		}
		line, err := pr.moveQueue.Get(constants.MoveQueuePoll)
		if err != nil {
			continue
		}
		pr.moving.Store(true)
		pr.motionS.PerformMove(line, pr.params.ReadTimeout, pr.Killed)
		pr.moving.Store(false)
		pr.observer.ObserveQueueDepth(uint32(pr.moveQueue.Depth()))
	}
}

// runReader implements the line-protocol decode loop: checksum validation,
// line-number sequencing, the SD-write short-circuit, meta-commands, and
// dispatch, in that order, once per accepted line.
func (pr *Printer) runReader() {
	pr.lastInput = time.Now()
	for {
		if pr.killed.Load() || pr.closed.Load() {
			return
		}

		pr.thermS.Tick(time.Now())

		raw, err := pr.channel.rx.Get(constants.RxPollInterval)
		if err != nil {
			if pr.params.WaitInterval > 0 && time.Since(pr.lastInput) >= pr.params.WaitInterval {
				pr.channel.emitLine("wait")
				pr.lastInput = time.Now()
			}
			continue
		}
		if pr.killed.Load() || pr.closed.Load() {
			return
		}
		pr.lastInput = time.Now()

		if pr.debug.ConsumeDontAnswer() {
			continue
		}

		pr.handleLine(raw)
	}
}

func (pr *Printer) handleLine(raw string) {
	line := strings.TrimRight(raw, " \t\r\n")

	stripped, hadChecksum := pr.proto.StripChecksum(line)
	if !hadChecksum && pr.params.ForceChecksums {
		pr.channel.emitLine("Error: Missing checksum")
		return
	}
	line = stripped

	outcome := pr.proto.HandleLineNumber(line)
	switch outcome.Result {
	case protocol.M110Reset:
		pr.channel.emitLine(pr.proto.Ok())
		return
	case protocol.ResendRequired:
		hasActual := outcome.Actual >= 0
		for _, l := range pr.proto.TriggerResend(outcome.Expected, hasActual, outcome.Actual) {
			pr.channel.emitLine(l)
		}
		pr.observer.ObserveResend(int(outcome.Expected))
		return
	}
	payload := outcome.Payload
	trimmed := strings.TrimSpace(payload)

	// SD write short-circuit: while a file is open for writing, every line
	// except M29 (the close) is appended verbatim instead of dispatched.
	if pr.sdS.IsWriting() && !strings.HasPrefix(trimmed, "M29") {
		_ = pr.sdS.AppendLine(payload + "\n")
		pr.channel.emitLine(pr.proto.Ok())
		return
	}

	if trimmed == "version" {
		pr.channel.emitLine(pr.params.VersionProvider())
		return
	}
	if strings.HasPrefix(trimmed, "!!DEBUG") {
		body := strings.TrimPrefix(trimmed, "!!DEBUG")
		body = strings.TrimPrefix(body, ":")
		pr.debug.Handle(body, pr.proto, pr.channel.emitLine)
		return
	}

	if trimmed == "" {
		return
	}

	if pr.params.OkBefore {
		pr.channel.emitLine(pr.proto.Ok())
	}

	result := pr.disp.Dispatch(payload)

	letter, code, ok := dispatch.ParseToken(payload)
	if ok {
		pr.observer.ObserveCommand(letter, code, result == dispatch.Handled)
		token := fmt.Sprintf("%c%d", letter, code)
		if d, found := pr.debug.PostDelay(token); found {
			pr.channel.emitLine(fmt.Sprintf("// sleeping for %s seconds", debuginject.FormatInterval(d)))
			time.Sleep(d)
		}
	}

	if !pr.params.OkBefore && result != dispatch.Handled {
		pr.channel.emitLine(pr.proto.Ok())
	}
}

// StatusSnapshot is a point-in-time summary of printer state for the HTTP
// status endpoint and the TUI dashboard.
type StatusSnapshot struct {
	Temperatures []float64
	Targets      []float64
	BedTemp      float64
	BedTarget    float64
	X, Y, Z, E   float64
	SDReady      bool
	SDStatus     []string
	Killed       bool
	Metrics      MetricsSnapshot
}

// Snapshot reports current temperatures, position, SD state, and metrics.
func (pr *Printer) Snapshot() StatusSnapshot {
	temps, targets, bedTemp, bedTarget := pr.thermS.Snapshot()
	x, y, z, e := pr.motionS.Position()

	var snap MetricsSnapshot
	if m, ok := pr.observer.(*Metrics); ok {
		snap = m.Snapshot()
	}

	return StatusSnapshot{
		Temperatures: temps,
		Targets:      targets,
		BedTemp:      bedTemp,
		BedTarget:    bedTarget,
		X:            x, Y: y, Z: z, E: e,
		SDReady:  pr.sdS.Ready(),
		SDStatus: pr.sdS.Status(),
		Killed:   pr.Killed(),
		Metrics:  snap,
	}
}

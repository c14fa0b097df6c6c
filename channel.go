package marlin

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/ehrlich-b/virtualmarlin/internal/debuginject"
	"github.com/ehrlich-b/virtualmarlin/internal/interfaces"
	"github.com/ehrlich-b/virtualmarlin/internal/queue"
	"github.com/ehrlich-b/virtualmarlin/internal/ratepace"
)

// Channel is the byte-stream endpoint the host drives: write() feeds the
// line-protocol reader, read() drains response lines paced to simulate a
// serial connection's baud rate.
type Channel struct {
	rx *queue.ByteQueue
	tx *queue.LineQueue

	writeTimeout time.Duration
	readTimeout  time.Duration
	pacer        *ratepace.Pacer

	debug       *debuginject.State
	supportM112 bool
	kill        func()

	logger   interfaces.Logger
	observer interfaces.Observer
}

func newChannel(rxBuffer int, writeTimeout, readTimeout, throttle time.Duration, debug *debuginject.State, supportM112 bool, kill func(), logger interfaces.Logger, observer interfaces.Observer) *Channel {
	return &Channel{
		rx:           queue.NewByteQueue(rxBuffer),
		tx:           queue.NewLineQueue(),
		writeTimeout: writeTimeout,
		readTimeout:  readTimeout,
		pacer:        ratepace.New(throttle),
		debug:        debug,
		supportM112:  supportM112,
		kill:         kill,
		logger:       logger,
		observer:     observer,
	}
}

// emergencyStopEcho is the exact line scenario 4 of the end-to-end tests
// expects after M112 is written with support_m112 enabled.
const emergencyStopEcho = "echo:EMERGENCY SHUTDOWN DETECTED. KILLED."

// Write enqueues data for the reader loop. An M112 payload with emergency
// stop support enabled short-circuits: it never reaches the queue, kills
// the printer, and answers with the emergency echo line directly.
func (c *Channel) Write(data []byte) error {
	if c.debug.DropConnection() {
		return NewError("Write", ErrCodeTimeout, "connection dropped")
	}
	if c.supportM112 && bytes.Contains(data, []byte("M112")) {
		c.logger.Info("emergency stop received")
		c.emitLine(emergencyStopEcho)
		c.kill()
		return nil
	}

	err := c.rx.Put(string(data), c.writeTimeout)
	switch {
	case err == nil:
		c.observer.ObserveBytesIn(uint64(len(data)))
		return nil
	case errors.Is(err, queue.ErrClosed):
		return nil
	case errors.Is(err, queue.ErrFull):
		return NewError("Write", ErrCodeTimeout, "rx buffer full")
	default:
		return WrapError("Write", err)
	}
}

// Read dequeues one response line, appends "\n", and paces by throttle to
// simulate baud-rate pacing. Returns "" with no error on an empty timeout.
func (c *Channel) Read() (string, error) {
	if c.debug.DropConnection() {
		return "", NewError("Read", ErrCodeTimeout, "connection dropped")
	}

	line, err := c.tx.Get(c.readTimeout)
	if err != nil {
		if errors.Is(err, queue.ErrEmpty) || errors.Is(err, queue.ErrClosed) {
			return "", nil
		}
		return "", WrapError("Read", err)
	}

	line += "\n"
	c.pacer.Wait(context.Background())
	c.observer.ObserveBytesOut(uint64(len(line)))
	return line, nil
}

// ReadLine is identical to Read, matching the firmware's two equivalent
// read entry points.
func (c *Channel) ReadLine() (string, error) {
	return c.Read()
}

// Close tears down both queues; workers observe this at their next check
// and exit.
func (c *Channel) Close() {
	c.rx.Close()
	c.tx.Close()
}

// emitLine pushes an asynchronous or response line onto tx. A closed queue
// silently ignores it, matching the channel's closed-write policy.
func (c *Channel) emitLine(line string) {
	_ = c.tx.Put(line)
}

// Command virtual-printer hosts a Printer behind a TCP listener, so a slicer
// or terminal program can talk to it exactly as it would a real serial port.
package main

import (
	"flag"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	marlin "github.com/ehrlich-b/virtualmarlin"
	"github.com/ehrlich-b/virtualmarlin/internal/logging"
	"github.com/ehrlich-b/virtualmarlin/internal/statusapi"
)

func main() {
	var (
		addr       = flag.String("addr", ":8888", "TCP address to listen on")
		httpAddr   = flag.String("http", "", "address for the read-only status API (disabled if empty)")
		configPath = flag.String("config", "", "path to a YAML config file (uses documented defaults if empty)")
		verbose    = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	params := marlin.DefaultParams()
	if *configPath != "" {
		loaded, err := marlin.LoadParams(*configPath)
		if err != nil {
			logger.Error("failed to load config", "path", *configPath, "err", err)
			os.Exit(1)
		}
		params = loaded
	}
	params.Logger = logger

	printer := marlin.NewPrinter(marlin.WithParams(params))
	defer printer.Close()

	if *httpAddr != "" {
		router := statusapi.New(func() statusapi.Snapshot {
			s := printer.Snapshot()
			return statusapi.Snapshot{
				Temperatures: s.Temperatures,
				Targets:      s.Targets,
				BedTemp:      s.BedTemp,
				BedTarget:    s.BedTarget,
				X:            s.X, Y: s.Y, Z: s.Z, E: s.E,
				SDReady:  s.SDReady,
				SDStatus: s.SDStatus,
				Killed:   s.Killed,
			}
		})
		go func() {
			logger.Info("status API listening", "addr", *httpAddr)
			if err := http.ListenAndServe(*httpAddr, router); err != nil && err != http.ErrServerClosed {
				logger.Error("status API stopped", "err", err)
			}
		}()
	}

	listener, err := net.Listen("tcp", *addr)
	if err != nil {
		logger.Error("failed to listen", "addr", *addr, "err", err)
		os.Exit(1)
	}
	logger.Info("virtual printer listening", "addr", *addr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		listener.Close()
		printer.Close()
		os.Exit(0)
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			logger.Error("accept failed", "err", err)
			return
		}
		go serveConn(conn, printer, logger)
	}
}

// serveConn bridges one TCP connection to the printer's byte channel: bytes
// in become Write calls, response lines are streamed back as they arrive.
func serveConn(conn net.Conn, printer *marlin.Printer, logger *logging.Logger) {
	defer conn.Close()

	go func() {
		for {
			line, err := printer.Read()
			if err != nil {
				logger.Error("printer read failed", "err", err)
				return
			}
			if line == "" {
				continue
			}
			if _, err := conn.Write([]byte(line)); err != nil {
				return
			}
		}
	}()

	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			if werr := printer.Write(buf[:n]); werr != nil {
				logger.Error("printer write failed", "err", werr)
			}
		}
		if err != nil {
			if err != io.EOF {
				logger.Error("connection read failed", "err", err)
			}
			return
		}
	}
}

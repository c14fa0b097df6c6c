// Package statusapi exposes a read-only gin HTTP surface over a running
// printer's state, for a dashboard or a monitoring agent that would rather
// poll JSON than speak the line protocol.
package statusapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Snapshot is the subset of printer state the API reports. It mirrors
// marlin.StatusSnapshot without importing the root package, so this
// package stays a leaf the root package can depend on instead of the
// reverse.
type Snapshot struct {
	Temperatures []float64
	Targets      []float64
	BedTemp      float64
	BedTarget    float64
	X, Y, Z, E   float64
	SDReady      bool
	SDStatus     []string
	Killed       bool
}

// SnapshotFunc returns the current printer snapshot; the engine calls it
// once per request so /status always reflects live state.
type SnapshotFunc func() Snapshot

// New builds a gin engine with /status and /healthz routes reading from
// snapshot.
func New(snapshot SnapshotFunc) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", handleHealthz)
	router.GET("/status", handleStatus(snapshot))

	return router
}

func handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func handleStatus(snapshot SnapshotFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := snapshot()
		c.JSON(http.StatusOK, gin.H{
			"temperatures": s.Temperatures,
			"targets":      s.Targets,
			"bed_temp":     s.BedTemp,
			"bed_target":   s.BedTarget,
			"position": gin.H{
				"x": s.X, "y": s.Y, "z": s.Z, "e": s.E,
			},
			"sd_ready":  s.SDReady,
			"sd_status": s.SDStatus,
			"killed":    s.Killed,
		})
	}
}

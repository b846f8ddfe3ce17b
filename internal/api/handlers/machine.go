package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/clawmachine/internal/game"
)

// StartMachine starts the caller's machine from their save slot, or returns
// the one already running.
// POST /api/v1/machine/start
func StartMachine(mgr *game.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := profileID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		m, created, err := mgr.Start(c.Request.Context(), id)
		if err != nil {
			log.Printf("[MACHINE] start failed for profile %d: %v", id, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start machine"})
			return
		}
		snap, err := m.Snapshot()
		if err != nil {
			c.JSON(machineErrorStatus(err), gin.H{"error": err.Error()})
			return
		}
		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		c.JSON(status, gin.H{"started": created, "state": snap})
	}
}

// GetMachineState returns the live snapshot, or the last cached one when
// the machine is not running here.
// GET /api/v1/machine/state
func GetMachineState(mgr *game.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := profileID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		snap, err := mgr.Snapshot(c.Request.Context(), id)
		if err != nil {
			c.JSON(machineErrorStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, snap)
	}
}

// SendCommand applies one command to the caller's running machine.
// POST /api/v1/machine/command
func SendCommand(mgr *game.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := profileID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		var req struct {
			Command string `json:"command" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "command required"})
			return
		}

		snap, err := mgr.Command(id, game.Command(req.Command))
		if err != nil {
			body := gin.H{"error": err.Error(), "command": req.Command}
			if snap.MaxBalls > 0 {
				body["state"] = snap
			}
			c.JSON(machineErrorStatus(err), body)
			return
		}
		c.JSON(http.StatusOK, gin.H{"command": req.Command, "state": snap})
	}
}

// StopMachine saves and stops the caller's machine.
// POST /api/v1/machine/stop
func StopMachine(mgr *game.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := profileID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
		defer cancel()
		if err := mgr.Stop(ctx, id); err != nil {
			c.JSON(machineErrorStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"stopped": true})
	}
}

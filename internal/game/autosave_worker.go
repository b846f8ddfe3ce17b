package game

import (
	"context"
	"errors"
	"log"
	"time"
)

// StartAutosaveWorker checkpoints every running machine each interval so a
// crash loses at most one interval of play. A non-positive interval disables
// it.
func StartAutosaveWorker(ctx context.Context, mgr *Manager, interval time.Duration) {
	if interval <= 0 {
		log.Println("[AUTOSAVE] interval not set; autosave worker not started")
		return
	}

	log.Printf("[AUTOSAVE] worker started (every %s)", interval)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Println("[AUTOSAVE] worker stopping")
				return
			case <-ticker.C:
				saved := autosaveOnce(ctx, mgr)
				if saved > 0 {
					log.Printf("[AUTOSAVE] checkpointed %d machines", saved)
				}
			}
		}
	}()
}

// autosaveOnce checkpoints each running machine and returns how many were
// saved. Machines that stop mid-pass are skipped.
func autosaveOnce(ctx context.Context, mgr *Manager) int {
	saved := 0
	for _, id := range mgr.Running() {
		err := mgr.Checkpoint(ctx, id)
		switch {
		case err == nil:
			saved++
		case errors.Is(err, ErrMachineNotRunning), errors.Is(err, ErrMachineStopped):
		default:
			log.Printf("[AUTOSAVE] failed to checkpoint profile=%d: %v", id, err)
		}
	}
	return saved
}

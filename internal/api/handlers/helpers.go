package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/clawmachine/internal/game"
)

// profileID returns the authenticated profile set by AuthMiddleware.
func profileID(c *gin.Context) (int, bool) {
	v, ok := c.Get("profile_id")
	if !ok {
		return 0, false
	}
	id, ok := v.(int)
	return id, ok && id > 0
}

// machineErrorStatus maps machine and command errors to HTTP statuses.
func machineErrorStatus(err error) int {
	switch {
	case errors.Is(err, game.ErrMachineNotRunning), errors.Is(err, game.ErrNoSnapshot):
		return http.StatusNotFound
	case errors.Is(err, game.ErrUnknownCommand):
		return http.StatusBadRequest
	case errors.Is(err, game.ErrNoCoins):
		return http.StatusPaymentRequired
	case errors.Is(err, game.ErrClawBusy), errors.Is(err, game.ErrPaused),
		errors.Is(err, game.ErrNoPendingPrize), errors.Is(err, game.ErrShelfClosed),
		errors.Is(err, game.ErrMachineStopped):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

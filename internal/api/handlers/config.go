package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/clawmachine/internal/game"
)

// GetConfig returns the machine constants a front-end needs to draw the
// cabinet.
func GetConfig(t game.Tuning) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"screen_width":  t.ScreenWidth,
			"screen_height": t.ScreenHeight,
			"tick_rate":     t.TickRate,
			"claw_min_x":    t.ClawMinX,
			"claw_max_x":    t.ClawMaxX,
			"claw_origin_y": t.ClawOriginY,
			"claw_target_y": t.ClawTargetY,
			"ball_radius":   t.BallRadius,
			"max_balls":     t.MaxBalls,
			"max_coins":     t.MaxCoins,
			"container": gin.H{
				"centre_x":  t.ContainerCentre.X,
				"centre_y":  t.ContainerCentre.Y,
				"width":     t.ContainerWidth,
				"height":    t.ContainerHeight,
				"thickness": t.ContainerThickness,
			},
			"commands": game.Commands(),
		})
	}
}

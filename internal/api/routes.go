package api

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/clawmachine/internal/accounts"
	"github.com/playmatatu/clawmachine/internal/api/handlers"
	"github.com/playmatatu/clawmachine/internal/config"
	"github.com/playmatatu/clawmachine/internal/game"
	"github.com/playmatatu/clawmachine/internal/middleware"
	"github.com/playmatatu/clawmachine/internal/ws"
	"github.com/redis/go-redis/v9"
)

// Deps is everything the routes hand to their handlers.
type Deps struct {
	Config   *config.Config
	Redis    *redis.Client // optional
	Profiles accounts.Profiles
	Machines *game.Manager
	Hub      *ws.Hub
	Wins     handlers.WinHistory // optional
}

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, d Deps) {
	cfg := d.Config
	router.Use(middleware.CORSMiddleware(cfg))

	if cfg.Environment != "production" {
		router.Use(func(c *gin.Context) {
			c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")
			c.Next()
		})
		log.Println("[DEV MODE] no-cache headers enabled for all routes")
	}

	router.GET("/health", handlers.HealthCheck(d.Machines))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck(d.Machines))
		v1.GET("/config", handlers.GetConfig(d.Machines.Tuning()))

		auth := v1.Group("/auth")
		{
			auth.POST("/register", handlers.Register(d.Profiles, cfg))
			auth.POST("/login", handlers.Login(d.Profiles, d.Redis, cfg))
		}

		private := v1.Group("")
		private.Use(handlers.AuthMiddleware(cfg))
		{
			private.GET("/me", handlers.GetMe())

			machine := private.Group("/machine")
			{
				machine.POST("/start", handlers.StartMachine(d.Machines))
				machine.GET("/state", handlers.GetMachineState(d.Machines))
				machine.POST("/command", handlers.SendCommand(d.Machines))
				machine.POST("/stop", handlers.StopMachine(d.Machines))
				machine.GET("/ws", middleware.WebSocketCORSCheck(cfg), ws.HandleWebSocket(d.Machines, d.Hub))
			}

			prizes := private.Group("/prizes")
			{
				prizes.GET("", handlers.GetPrizes(d.Machines))
				prizes.GET("/shelf/:page", handlers.GetShelfPage(d.Machines))
				prizes.GET("/wins", handlers.GetWins(d.Wins))
			}
		}
	}
}

package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/joho/godotenv"
	"github.com/playmatatu/clawmachine/internal/config"
	"github.com/playmatatu/clawmachine/internal/game"
	"github.com/playmatatu/clawmachine/internal/geometry"
	"github.com/playmatatu/clawmachine/internal/save"
)

// loadEnv reads .env from the working directory, reporting whether one was found.
func loadEnv() bool {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
		return false
	}
	return true
}

// clawterm plays the machine locally in a terminal, saving to SAVE_DIR.
func main() {
	logFile, err := os.OpenFile("clawterm.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err == nil {
		log.SetOutput(logFile)
		defer logFile.Close()
	}
	loadEnv()
	cfg := config.Load()

	frames, err := geometry.FramesFor(cfg.AssetDir, 1)
	if err != nil {
		log.Fatalf("Failed to load claw frames: %v", err)
	}
	opts := game.OptionsFromConfig(cfg, frames)
	opts.IdleStop = 0
	mgr := game.NewManager(save.NewFileStore(cfg.SaveDir), nil, opts)

	if _, _, err := mgr.Start(context.Background(), save.LocalProfile); err != nil {
		log.Fatalf("Failed to start machine: %v", err)
	}
	events, cancel, err := mgr.Subscribe(save.LocalProfile)
	if err != nil {
		log.Fatalf("Failed to subscribe: %v", err)
	}
	defer cancel()

	screen, err := tcell.NewScreen()
	if err != nil {
		log.Fatalf("Failed to open terminal: %v", err)
	}
	if err := screen.Init(); err != nil {
		log.Fatalf("Failed to init terminal: %v", err)
	}
	defer screen.Fini()

	run(screen, mgr, events)

	ctx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	if err := mgr.Stop(ctx, save.LocalProfile); err != nil {
		log.Printf("Failed to save on exit: %v", err)
	}
}

func run(screen tcell.Screen, mgr *game.Manager, events <-chan game.Event) {
	keys := make(chan tcell.Event, 16)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			keys <- ev
		}
	}()

	var snap game.Snapshot
	if s, err := mgr.Snapshot(context.Background(), save.LocalProfile); err == nil {
		snap = s
	}
	redraw := func() {
		w, h := screen.Size()
		view{width: w, height: h, tuning: mgr.Tuning()}.draw(screen, snap)
		screen.Show()
	}
	redraw()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Snapshot != nil {
				snap = *ev.Snapshot
				redraw()
			}

		case ev := <-keys:
			switch ev := ev.(type) {
			case *tcell.EventResize:
				screen.Sync()
				redraw()
			case *tcell.EventKey:
				cmd, quit := commandFor(ev, snap.Mode)
				if quit {
					return
				}
				if cmd == "" {
					continue
				}
				if s, err := mgr.Command(save.LocalProfile, cmd); err == nil || s.MaxBalls > 0 {
					snap = s
					redraw()
				}
			}
		}
	}
}

// commandFor maps a key press to a machine command for the current mode.
// Terminals report no key releases, so movement is one step per press and
// relies on key repeat.
func commandFor(ev *tcell.EventKey, mode game.Mode) (game.Command, bool) {
	if ev.Key() == tcell.KeyCtrlC {
		return "", true
	}
	r := ev.Rune()
	if ev.Key() != tcell.KeyRune {
		r = 0
	}

	switch mode {
	case game.ModePrizePopup:
		if ev.Key() == tcell.KeyEnter || r == ' ' {
			return game.CmdAckPrize, false
		}
	case game.ModeShelf:
		switch {
		case ev.Key() == tcell.KeyLeft || r == 'a':
			return game.CmdShelfPrev, false
		case ev.Key() == tcell.KeyRight || r == 'd':
			return game.CmdShelfNext, false
		case ev.Key() == tcell.KeyEscape || r == 'p':
			return game.CmdCloseShelf, false
		}
	default:
		switch {
		case ev.Key() == tcell.KeyEscape || r == 'q':
			return "", true
		case ev.Key() == tcell.KeyLeft || r == 'a':
			return game.CmdMoveLeft, false
		case ev.Key() == tcell.KeyRight || r == 'd':
			return game.CmdMoveRight, false
		case ev.Key() == tcell.KeyDown || r == ' ':
			return game.CmdDrop, false
		case r == 's':
			return game.CmdShuffle, false
		case r == 'p':
			return game.CmdOpenShelf, false
		}
	}
	return "", false
}

package main

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/playmatatu/clawmachine/internal/game"
	"github.com/playmatatu/clawmachine/internal/prize"
)

// cellWriter is the part of tcell.Screen the renderer draws with.
type cellWriter interface {
	SetContent(x, y int, primary rune, combining []rune, style tcell.Style)
}

var (
	styleWall   = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleBall   = tcell.StyleDefault.Foreground(tcell.ColorYellow)
	styleClaw   = tcell.StyleDefault.Foreground(tcell.ColorAqua).Bold(true)
	styleHUD    = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	stylePopup  = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorYellow)
	styleWon    = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleLocked = tcell.StyleDefault.Foreground(tcell.ColorDarkGray)
)

// prongs per claw frame, open to closed
var prongs = []string{`/ \`, `/\`, `|`}

// view maps cabinet pixels onto a terminal grid. Row 0 is the HUD.
type view struct {
	width, height int
	tuning        game.Tuning
}

func (v view) cell(x, y float64) (int, int) {
	cx := int(x / v.tuning.ScreenWidth * float64(v.width))
	cy := 1 + int(y/v.tuning.ScreenHeight*float64(v.height-1))
	return cx, cy
}

func (v view) inside(cx, cy int) bool {
	return cx >= 0 && cx < v.width && cy >= 1 && cy < v.height
}

func (v view) text(out cellWriter, x, y int, s string, style tcell.Style) {
	for i, r := range []rune(s) {
		if x+i >= v.width {
			return
		}
		out.SetContent(x+i, y, r, nil, style)
	}
}

func (v view) draw(out cellWriter, snap game.Snapshot) {
	for y := 0; y < v.height; y++ {
		for x := 0; x < v.width; x++ {
			out.SetContent(x, y, ' ', nil, tcell.StyleDefault)
		}
	}

	v.text(out, 0, 0, fmt.Sprintf("coins %d/%d  balls %d/%d  prizes %d/%d",
		snap.Coins, snap.MaxCoins, snap.MaxBalls-snap.Spawned+len(snap.Balls), snap.MaxBalls,
		snap.PrizesWon, snap.Prizes), styleHUD)

	v.drawContainer(out)
	for _, b := range snap.Balls {
		if cx, cy := v.cell(b.X, b.Y); v.inside(cx, cy) {
			out.SetContent(cx, cy, 'O', nil, styleBall)
		}
	}
	v.drawClaw(out, snap.Claw)

	switch snap.Mode {
	case game.ModePrizePopup:
		if snap.Pending != nil {
			v.popup(out, []string{
				"  YOU WON!  ",
				fmt.Sprintf(" %s / %s ", snap.Pending.Section, snap.Pending.Subsection),
				fmt.Sprintf(" %s ", snap.Pending.Image),
				" [enter] ok ",
			})
		}
	case game.ModeShelf:
		if snap.Shelf != nil {
			v.drawShelf(out, *snap.Shelf)
		}
	}
}

func (v view) drawContainer(out cellWriter) {
	t := v.tuning
	left, top := v.cell(t.ContainerCentre.X-t.ContainerWidth/2, t.ContainerCentre.Y-t.ContainerHeight/2)
	right, bottom := v.cell(t.ContainerCentre.X+t.ContainerWidth/2, t.ContainerCentre.Y+t.ContainerHeight/2)
	left, right = max(left, 0), min(right, v.width-1)
	bottom = min(bottom, v.height-1)
	for x := left; x <= right; x++ {
		out.SetContent(x, bottom, '=', nil, styleWall)
	}
	for y := max(top, 1); y < bottom; y++ {
		out.SetContent(left, y, '|', nil, styleWall)
		out.SetContent(right, y, '|', nil, styleWall)
	}
}

func (v view) drawClaw(out cellWriter, c game.ClawView) {
	cx, cy := v.cell(c.X, c.Y)
	_, top := v.cell(c.X, v.tuning.ClawOriginY)
	for y := max(top-2, 1); y < cy; y++ {
		out.SetContent(cx, y, ':', nil, styleWall)
	}
	frame := prongs[min(max(c.Frame, 0), len(prongs)-1)]
	if c.State == game.ClawAscending {
		frame = prongs[len(prongs)-1-min(max(c.Frame, 0), len(prongs)-1)]
	}
	v.text(out, cx-len(frame)/2, cy, frame, styleClaw)
}

func (v view) popup(out cellWriter, lines []string) {
	w := 0
	for _, l := range lines {
		w = max(w, len([]rune(l)))
	}
	x0 := (v.width - w) / 2
	y0 := (v.height - len(lines)) / 2
	for i, l := range lines {
		for x := 0; x < w; x++ {
			out.SetContent(x0+x, y0+i, ' ', nil, stylePopup)
		}
		v.text(out, x0, y0+i, l, stylePopup)
	}
}

func (v view) drawShelf(out cellWriter, p prize.Page) {
	y := 2
	v.text(out, 2, y, fmt.Sprintf("== %s (%d/%d) ==  [<-/->] page  [p] close", p.Section, p.Index+1, p.Count), styleHUD)
	for _, row := range p.Subsections {
		y += 2
		v.text(out, 2, y, row.Name, styleHUD)
		for _, slot := range row.Slots {
			mark, style := "[ ? ]", styleLocked
			if slot.Won {
				mark, style = "[ * ]", styleWon
			}
			v.text(out, 4+slot.Col*6, y+1+slot.Row, mark, style)
		}
		if len(row.Slots) > 0 {
			y += 1 + row.Slots[len(row.Slots)-1].Row
		}
	}
}

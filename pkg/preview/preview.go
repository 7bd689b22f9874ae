// Package preview shows a trace as a character grid in the terminal.
package preview

import (
	"fmt"
	"math"

	"github.com/gdamore/tcell/v2"

	"github.com/df07/go-wavefront-tracer/pkg/canvas"
	"github.com/df07/go-wavefront-tracer/pkg/core"
	"github.com/df07/go-wavefront-tracer/pkg/geometry"
)

// ObstacleRune marks cells covered by an obstacle
const ObstacleRune = '#'

// ramp maps brightness to characters, dimmest first
var ramp = []rune(" .:-=+*%@")

// Outline steps per grid cell of width plus height, for circles far larger than the scene
const maxCircleSteps = 16

// Cell is one character of the preview grid
type Cell struct {
	Rune       rune
	Brightness float64 // Brightest ray crossing the cell
	Obstacle   bool
}

// Grid rasterizes terminated rays and obstacles into a width x height
// character grid. Scene coordinates [0,1] span the grid with y growing
// downward, like the image renderer. A cell keeps the brightest ray that
// crosses it; obstacles are drawn over rays.
func Grid(rays []core.RayRecord, obstacles []geometry.Obstacle, width, height int) [][]Cell {
	if width <= 0 || height <= 0 {
		return nil
	}

	grid := make([][]Cell, height)
	for y := range grid {
		grid[y] = make([]Cell, width)
		for x := range grid[y] {
			grid[y][x].Rune = ' '
		}
	}

	for _, ray := range rays {
		if !ray.Terminated {
			continue
		}
		walk(ray.Start, ray.End, width, height, func(x, y int) {
			cell := &grid[y][x]
			if cell.Obstacle || ray.Brightness <= cell.Brightness {
				return
			}
			cell.Brightness = ray.Brightness
			cell.Rune = rampRune(ray.Brightness)
		})
	}

	mark := func(x, y int) {
		grid[y][x] = Cell{Rune: ObstacleRune, Brightness: grid[y][x].Brightness, Obstacle: true}
	}
	for _, obstacle := range obstacles {
		switch o := obstacle.(type) {
		case *geometry.Segment:
			walk(o.P1, o.P2, width, height, mark)
		case *geometry.Circle:
			if !overlapsScene(o.BoundingBox()) {
				continue
			}
			// Two steps per cell of circumference close the outline
			steps := math.Ceil(2*math.Pi*o.Radius*float64(max(width, height))) * 2
			steps = math.Min(math.Max(steps, 8), float64(maxCircleSteps*(width+height)))
			for i := 0; i < int(steps); i++ {
				p := o.Center.Add(core.FromAngle(float64(i)/steps*2*math.Pi, o.Radius))
				if x, y, ok := toCell(p, width, height); ok {
					mark(x, y)
				}
			}
		default:
			panic(fmt.Sprintf("unknown obstacle type %T", obstacle))
		}
	}

	return grid
}

// walk visits every cell along the line from a to b that lies inside the grid.
// The line is clipped to the scene square first so the step count depends on
// the grid size, not on how far the line reaches outside it.
func walk(a, b core.Vec2, width, height int, visit func(x, y int)) {
	a, b, ok := clipToScene(a, b)
	if !ok {
		return
	}
	delta := b.Subtract(a)
	steps := int(math.Ceil(math.Max(math.Abs(delta.X)*float64(width), math.Abs(delta.Y)*float64(height))))*2 + 1
	lastX, lastY := -1, -1
	for i := 0; i <= steps; i++ {
		p := a.Add(delta.Multiply(float64(i) / float64(steps)))
		x, y, ok := toCell(p, width, height)
		if !ok || (x == lastX && y == lastY) {
			continue
		}
		lastX, lastY = x, y
		visit(x, y)
	}
}

// clipToScene clips the line from a to b to the unit square (Liang-Barsky)
func clipToScene(a, b core.Vec2) (core.Vec2, core.Vec2, bool) {
	delta := b.Subtract(a)
	t0, t1 := 0.0, 1.0
	edges := [4][2]float64{
		{-delta.X, a.X},
		{delta.X, 1 - a.X},
		{-delta.Y, a.Y},
		{delta.Y, 1 - a.Y},
	}
	for _, edge := range edges {
		p, q := edge[0], edge[1]
		if p == 0 {
			if q < 0 {
				return a, b, false
			}
			continue
		}
		r := q / p
		if p < 0 {
			t0 = math.Max(t0, r)
		} else {
			t1 = math.Min(t1, r)
		}
		if t0 > t1 {
			return a, b, false
		}
	}
	return a.Add(delta.Multiply(t0)), a.Add(delta.Multiply(t1)), true
}

func overlapsScene(box core.AABB) bool {
	return box.Max.X >= 0 && box.Min.X <= 1 && box.Max.Y >= 0 && box.Min.Y <= 1
}

// toCell maps a scene point to a grid cell
func toCell(p core.Vec2, width, height int) (int, int, bool) {
	if p.X < 0 || p.X > 1 || p.Y < 0 || p.Y > 1 {
		return 0, 0, false
	}
	x := min(int(p.X*float64(width)), width-1)
	y := min(int(p.Y*float64(height)), height-1)
	return x, y, true
}

func rampRune(brightness float64) rune {
	index := int(math.Round(brightness * float64(len(ramp)-1)))
	index = max(1, min(index, len(ramp)-1))
	return ramp[index]
}

// Draw renders the grid onto the screen, leaving the bottom row for the status line
func Draw(screen tcell.Screen, rays []core.RayRecord, obstacles []geometry.Obstacle, status string) {
	screen.Clear()
	width, height := screen.Size()
	if height < 2 {
		return
	}

	obstacleStyle := tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	grid := Grid(rays, obstacles, width, height-1)
	for y, row := range grid {
		for x, cell := range row {
			if cell.Rune == ' ' {
				continue
			}
			style := obstacleStyle
			if !cell.Obstacle {
				g := int32(canvas.GrayLevel(cell.Brightness))
				style = tcell.StyleDefault.Foreground(tcell.NewRGBColor(g, g, g))
			}
			screen.SetContent(x, y, cell.Rune, nil, style)
		}
	}

	statusStyle := tcell.StyleDefault.Reverse(true)
	for x, r := range []rune(status) {
		if x >= width {
			break
		}
		screen.SetContent(x, height-1, r, nil, statusStyle)
	}
	screen.Show()
}

// Show draws the trace and blocks until a key is pressed, redrawing on resize.
// The screen must already be initialized.
func Show(screen tcell.Screen, rays []core.RayRecord, obstacles []geometry.Obstacle, status string) {
	Draw(screen, rays, obstacles, status)
	for {
		switch screen.PollEvent().(type) {
		case nil, *tcell.EventKey:
			return
		case *tcell.EventResize:
			screen.Sync()
			Draw(screen, rays, obstacles, status)
		}
	}
}

// Run opens the terminal, shows the trace until a key is pressed and restores the terminal
func Run(rays []core.RayRecord, obstacles []geometry.Obstacle, status string) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("failed to create terminal screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("failed to initialize terminal screen: %w", err)
	}
	defer screen.Fini()

	Show(screen, rays, obstacles, status)
	return nil
}

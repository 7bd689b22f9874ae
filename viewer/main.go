// Command viewer opens a window showing a traced scene. Clicking moves the
// light source and traces again; R retraces and Esc quits.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/df07/go-wavefront-tracer/pkg/canvas"
	"github.com/df07/go-wavefront-tracer/pkg/core"
	"github.com/df07/go-wavefront-tracer/pkg/renderer"
	"github.com/df07/go-wavefront-tracer/pkg/scene"
)

type Viewer struct {
	scene      *scene.Scene
	drawConfig canvas.DrawConfig
	frame      *ebiten.Image
	status     string
}

func (v *Viewer) trace() error {
	result, err := v.scene.Run(nil)
	if err != nil {
		return err
	}
	img, err := canvas.Render(result.Rays, v.scene.Obstacles, v.drawConfig)
	if err != nil {
		return err
	}
	v.frame = ebiten.NewImageFromImage(img)

	v.status = fmt.Sprintf("%s: %d rays, depth %d, %v", v.scene.Name, len(result.Rays), result.Stats.MaxDepth, result.Elapsed)
	if result.Truncated {
		v.status += " (truncated)"
	}
	return nil
}

func (v *Viewer) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}

	retrace := inpututil.IsKeyJustPressed(ebiten.KeyR)
	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		x, y := ebiten.CursorPosition()
		scale := float64(v.drawConfig.Size - 1)
		v.scene.Source = core.NewVec2(float64(x)/scale, float64(y)/scale)
		retrace = true
	}
	if !retrace {
		return nil
	}
	return v.trace()
}

func (v *Viewer) Draw(screen *ebiten.Image) {
	if v.frame != nil {
		screen.DrawImage(v.frame, nil)
	}
	ebitenutil.DebugPrint(screen, v.status)
}

func (v *Viewer) Layout(outsideWidth, outsideHeight int) (int, int) {
	return v.drawConfig.Size, v.drawConfig.Size
}

func main() {
	sceneName := flag.String("scene", scene.BoxSceneName, "Scene name or .json scene file")
	size := flag.Int("size", 850, "Window size in pixels")
	stub := flag.Float64("stub", 0, "Stub length drawn for rays that leave the scene (0 hides them)")
	maxRays := flag.Int("max-rays", 0, "Hard cap on the number of rays (0 uses the scene default)")
	flag.Parse()

	sceneObj, err := scene.Create(*sceneName)
	if err != nil {
		log.Printf("Error creating scene: %v", err)
		os.Exit(1)
	}
	if *maxRays > 0 {
		sceneObj.TraceConfig.MaxRays = *maxRays
	}

	drawConfig := canvas.DefaultDrawConfig()
	drawConfig.Size = *size
	drawConfig.StubLength = *stub

	viewer := &Viewer{scene: sceneObj, drawConfig: drawConfig}
	if err := viewer.trace(); err != nil {
		log.Printf("Error tracing scene: %v", err)
		os.Exit(1)
	}
	renderer.NewDefaultLogger().Printf("%s\n", viewer.status)

	ebiten.SetWindowSize(drawConfig.Size, drawConfig.Size)
	ebiten.SetWindowTitle("Wavefront Tracer: " + sceneObj.Name)
	if err := ebiten.RunGame(viewer); err != nil && !errors.Is(err, ebiten.Termination) {
		log.Printf("Error running viewer: %v", err)
		os.Exit(1)
	}
}

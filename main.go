package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/df07/go-wavefront-tracer/pkg/canvas"
	"github.com/df07/go-wavefront-tracer/pkg/core"
	"github.com/df07/go-wavefront-tracer/pkg/geometry"
	"github.com/df07/go-wavefront-tracer/pkg/loaders"
	"github.com/df07/go-wavefront-tracer/pkg/preview"
	"github.com/df07/go-wavefront-tracer/pkg/renderer"
	"github.com/df07/go-wavefront-tracer/pkg/scene"
	"github.com/df07/go-wavefront-tracer/pkg/store"
)

// options holds the parsed command line
type options struct {
	Scene      string
	SeedRays   int // 0 keeps the scene default
	MaxRays    int // 0 keeps the scene default
	Reflection geometry.ReflectionConfig
	Draw       canvas.DrawConfig
	OutputDir  string
	DBType     string // empty disables saving
	DBPath     string
	Preview    bool
	All        bool
	Workers    int
	Export     string // write the scene as a .json file and exit
}

func main() {
	defaults := geometry.DefaultReflectionConfig()
	drawDefaults := canvas.DefaultDrawConfig()

	// Parse command line flags
	sceneType := flag.String("scene", scene.BoxSceneName, "Scene name ("+strings.Join(scene.BuiltInSceneNames, ", ")+") or path to a .json scene file")
	seedRays := flag.Int("rays", 0, "Number of seed rays (0 uses the scene default)")
	maxRays := flag.Int("max-rays", 0, "Hard cap on the number of rays (0 uses the scene default)")
	fan := flag.Int("fan", defaults.FanCount, "Child rays per reflection")
	spread := flag.Float64("spread", defaults.Spread, "Half-width of the reflection fan in radians")
	decay := flag.Float64("decay", defaults.Decay, "Brightness multiplier per bounce")
	floor := flag.Float64("floor", defaults.BrightnessFloor, "Brightness below which rays are absorbed")
	size := flag.Int("size", drawDefaults.Size, "Output image size in pixels")
	stub := flag.Float64("stub", 0, "Stub length drawn for rays that leave the scene (0 hides them)")
	outputDir := flag.String("out", "output", "Output directory")
	dbType := flag.String("db-type", "", "Database driver for saving traces: sqlite, pgx, genji or duckdb (empty disables saving)")
	dbPath := flag.String("db-path", "traces.sqlite", "Database file path or connection URL")
	showPreview := flag.Bool("preview", false, "Show the trace in the terminal after rendering")
	all := flag.Bool("all", false, "Trace every built-in scene and scene file in parallel")
	workers := flag.Int("workers", 0, "Number of parallel traces for -all (0 = auto-detect CPU count)")
	export := flag.String("export", "", "Write the selected scene to a .json scene file and exit")
	help := flag.Bool("help", false, "Show help information")
	flag.Parse()

	// Show help if requested
	if *help {
		showHelp()
		return
	}

	drawConfig := drawDefaults
	drawConfig.Size = *size
	drawConfig.StubLength = *stub

	opts := options{
		Scene:    *sceneType,
		SeedRays: *seedRays,
		MaxRays:  *maxRays,
		Reflection: geometry.ReflectionConfig{
			FanCount:        *fan,
			Spread:          *spread,
			Decay:           *decay,
			BrightnessFloor: *floor,
		},
		Draw:      drawConfig,
		OutputDir: *outputDir,
		DBType:    *dbType,
		DBPath:    *dbPath,
		Preview:   *showPreview,
		All:       *all,
		Workers:   *workers,
		Export:    *export,
	}

	if err := run(opts, renderer.NewDefaultLogger()); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func showHelp() {
	fmt.Println("Wavefront Tracer")
	fmt.Println("Usage: tracer [options]")
	fmt.Println()
	fmt.Println("Options:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("Available scenes:")
	for _, info := range scene.ListBuiltInScenes() {
		fmt.Printf("  %-8s - %s\n", info.ID, info.Description)
	}
	fmt.Println("  <file>.json - Scene file (see scenes/ for examples)")
	fmt.Println()
	fmt.Println("Output will be saved to output/<scene>/render_<timestamp>.png (output/file-<name>/ for scene files)")
}

func run(opts options, logger core.Logger) error {
	if err := opts.Draw.Validate(); err != nil {
		return err
	}
	if err := opts.Reflection.Validate(); err != nil {
		return err
	}

	if opts.Export != "" {
		return exportScene(opts, logger)
	}

	var runStore *store.Store
	if opts.DBType != "" {
		var err error
		runStore, err = store.Open(store.Config{Driver: opts.DBType, DSN: opts.DBPath})
		if err != nil {
			return err
		}
		defer runStore.Close()
		if err := runStore.Migrate(context.Background()); err != nil {
			return err
		}
	}

	if opts.All {
		return runAll(opts, runStore, logger)
	}

	logger.Printf("Starting Wavefront Tracer...\n")
	sceneObj, err := createScene(opts.Scene, opts)
	if err != nil {
		return err
	}
	logger.Printf("Using %s scene (%d obstacles)...\n", sceneObj.Name, len(sceneObj.Obstacles))

	result, err := sceneObj.Run(logger)
	if err != nil {
		return err
	}
	if err := saveResult(opts, opts.Scene, sceneObj, result, runStore, logger); err != nil {
		return err
	}

	if opts.Preview {
		status := fmt.Sprintf("%s: %d rays, depth %d (press any key)", sceneObj.Name, len(result.Rays), result.Stats.MaxDepth)
		return preview.Run(result.Rays, sceneObj.Obstacles, status)
	}
	return nil
}

// createScene resolves a scene ID and applies the command line overrides.
// A scene file that defines its own reflection keeps it.
func createScene(sceneID string, opts options) (*scene.Scene, error) {
	sceneObj, err := scene.Create(sceneID, opts.Reflection)
	if err != nil {
		return nil, err
	}
	if opts.SeedRays > 0 {
		sceneObj.TraceConfig.SeedRays = opts.SeedRays
	}
	if opts.MaxRays > 0 {
		sceneObj.TraceConfig.MaxRays = opts.MaxRays
	}
	if err := sceneObj.Validate(); err != nil {
		return nil, err
	}
	return sceneObj, nil
}

// runAll traces every known scene on a worker pool
func runAll(opts options, runStore *store.Store, logger core.Logger) error {
	listing, err := scene.ListAllScenes(scene.FindScenesDir())
	if err != nil {
		return err
	}

	var tasks []renderer.TraceTask
	scenes := make(map[int]*scene.Scene)
	for _, group := range listing.Groups {
		for _, info := range group.Scenes {
			sceneObj, err := createScene(info.ID, opts)
			if err != nil {
				return fmt.Errorf("scene %s: %w", info.ID, err)
			}
			taskID := len(tasks)
			scenes[taskID] = sceneObj
			tasks = append(tasks, renderer.TraceTask{
				TaskID: taskID,
				Name:   info.ID,
				Scene:  sceneObj,
				Config: sceneObj.TraceConfig,
			})
		}
	}

	pool := renderer.NewWorkerPool(opts.Workers, logger)
	logger.Printf("Tracing %d scenes with %d workers...\n", len(tasks), pool.GetNumWorkers())
	results, err := pool.Run(context.Background(), tasks)
	if err != nil {
		return err
	}

	for _, taskResult := range results {
		if err := saveResult(opts, taskResult.Name, scenes[taskResult.TaskID], taskResult.Result, runStore, logger); err != nil {
			return err
		}
	}
	return nil
}

// saveResult writes the PNG and, when a store is open, the rays
func saveResult(opts options, sceneID string, sceneObj *scene.Scene, result *renderer.TraceResult, runStore *store.Store, logger core.Logger) error {
	stats := result.Stats
	logger.Printf("%s: %d rays (%d terminated, %d escaped), depth %d, rays per depth %v\n",
		sceneID, stats.TotalRays, stats.Terminated, stats.Escaped, stats.MaxDepth, stats.RaysPerDepth)

	img, err := canvas.Render(result.Rays, sceneObj.Obstacles, opts.Draw)
	if err != nil {
		return err
	}

	// Create output directory for this scene
	outputDir := filepath.Join(opts.OutputDir, outputName(sceneID))
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("error creating output directory: %w", err)
	}

	timestamp := time.Now().Format("20060102_150405")
	filename := filepath.Join(outputDir, fmt.Sprintf("render_%s.png", timestamp))
	if err := canvas.SavePNG(img, filename); err != nil {
		return err
	}
	logger.Printf("Render saved as %s\n", filename)

	if runStore != nil {
		runID, err := runStore.SaveRun(context.Background(), sceneID, result)
		if err != nil {
			return err
		}
		logger.Printf("Trace stored as run %s\n", runID)
	}
	return nil
}

// outputName turns a scene ID into a directory name. Scene files get a
// "file-" prefix so they never share a directory with a built-in scene.
func outputName(sceneID string) string {
	if slices.Contains(scene.BuiltInSceneNames, sceneID) {
		return sceneID
	}
	name := strings.TrimPrefix(sceneID, scene.FileScenePrefix)
	name = filepath.Base(name)
	return "file-" + strings.TrimSuffix(name, filepath.Ext(name))
}

// exportScene writes the selected scene as a scene file
func exportScene(opts options, logger core.Logger) error {
	sceneObj, err := createScene(opts.Scene, opts)
	if err != nil {
		return err
	}

	file, err := os.Create(opts.Export)
	if err != nil {
		return fmt.Errorf("error creating file: %w", err)
	}
	defer file.Close()

	if err := loaders.WriteSceneFile(file, sceneObj.ToSceneFile()); err != nil {
		return err
	}
	logger.Printf("Scene %s exported to %s\n", sceneObj.Name, opts.Export)
	return nil
}

package loaders

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/df07/go-wavefront-tracer/pkg/core"
	"github.com/df07/go-wavefront-tracer/pkg/geometry"
)

// ErrInvalidSceneFile is returned for scene files that decode but do not describe a usable scene
var ErrInvalidSceneFile = errors.New("invalid scene file")

// SceneFile is the decoded form of a JSON scene description
type SceneFile struct {
	Name        string
	Description string
	Group       string
	Source      core.Vec2
	SeedRays    int // 0 means use the caller's default
	MaxRays     int // 0 means use the caller's default
	Reflection  *geometry.ReflectionConfig
	Obstacles   []ObstacleSpec
}

// ObstacleSpec describes one obstacle from a scene file.
// Segments use P1 and P2, circles use Center and Radius.
type ObstacleSpec struct {
	Kind   geometry.Kind
	P1, P2 core.Vec2
	Center core.Vec2
	Radius float64
}

// On-disk layout. Points are [x, y] arrays.
type sceneFileJSON struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Group       string          `json:"group,omitempty"`
	Source      []float64       `json:"source"`
	SeedRays    int             `json:"seedRays,omitempty"`
	MaxRays     int             `json:"maxRays,omitempty"`
	Reflection  *reflectionJSON `json:"reflection,omitempty"`
	Obstacles   []obstacleJSON  `json:"obstacles"`
}

type reflectionJSON struct {
	FanCount *int     `json:"fanCount,omitempty"`
	Spread   *float64 `json:"spread,omitempty"`
	Decay    *float64 `json:"decay,omitempty"`
	Floor    *float64 `json:"floor,omitempty"`
}

type obstacleJSON struct {
	Type   string    `json:"type"`
	P1     []float64 `json:"p1,omitempty"`
	P2     []float64 `json:"p2,omitempty"`
	Center []float64 `json:"center,omitempty"`
	Radius *float64  `json:"radius,omitempty"`
}

// ParseSceneFile decodes a scene description from an io.Reader.
// Unknown keys, unknown obstacle types and missing obstacle fields are errors.
// Reflection fields left out of the file take their default values.
func ParseSceneFile(reader io.Reader) (*SceneFile, error) {
	decoder := json.NewDecoder(reader)
	decoder.DisallowUnknownFields()

	var raw sceneFileJSON
	if err := decoder.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSceneFile, err)
	}

	source, err := parsePoint("source", raw.Source)
	if err != nil {
		return nil, err
	}
	if raw.SeedRays < 0 || raw.MaxRays < 0 {
		return nil, fmt.Errorf("%w: seedRays and maxRays must not be negative", ErrInvalidSceneFile)
	}

	file := &SceneFile{
		Name:        raw.Name,
		Description: raw.Description,
		Group:       raw.Group,
		Source:      source,
		SeedRays:    raw.SeedRays,
		MaxRays:     raw.MaxRays,
		Obstacles:   make([]ObstacleSpec, 0, len(raw.Obstacles)),
	}

	if raw.Reflection != nil {
		config := raw.Reflection.toConfig()
		if err := config.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSceneFile, err)
		}
		file.Reflection = &config
	}

	for i, obstacle := range raw.Obstacles {
		spec, err := obstacle.toSpec()
		if err != nil {
			return nil, fmt.Errorf("obstacle %d: %w", i, err)
		}
		file.Obstacles = append(file.Obstacles, spec)
	}

	return file, nil
}

// LoadSceneFile loads and parses a JSON scene file
func LoadSceneFile(filename string) (*SceneFile, error) {
	if err := validateFilePath(filename); err != nil {
		return nil, err
	}

	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open scene file: %v", err)
	}
	defer file.Close()

	scene, err := ParseSceneFile(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	if scene.Name == "" {
		base := filepath.Base(filename)
		scene.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return scene, nil
}

// WriteSceneFile encodes a scene description as indented JSON
func WriteSceneFile(writer io.Writer, file *SceneFile) error {
	raw := sceneFileJSON{
		Name:        file.Name,
		Description: file.Description,
		Group:       file.Group,
		Source:      []float64{file.Source.X, file.Source.Y},
		SeedRays:    file.SeedRays,
		MaxRays:     file.MaxRays,
		Obstacles:   make([]obstacleJSON, 0, len(file.Obstacles)),
	}

	if file.Reflection != nil {
		c := *file.Reflection
		raw.Reflection = &reflectionJSON{
			FanCount: &c.FanCount,
			Spread:   &c.Spread,
			Decay:    &c.Decay,
			Floor:    &c.BrightnessFloor,
		}
	}

	for _, spec := range file.Obstacles {
		switch spec.Kind {
		case geometry.KindSegment:
			raw.Obstacles = append(raw.Obstacles, obstacleJSON{
				Type: "segment",
				P1:   []float64{spec.P1.X, spec.P1.Y},
				P2:   []float64{spec.P2.X, spec.P2.Y},
			})
		case geometry.KindCircle:
			radius := spec.Radius
			raw.Obstacles = append(raw.Obstacles, obstacleJSON{
				Type:   "circle",
				Center: []float64{spec.Center.X, spec.Center.Y},
				Radius: &radius,
			})
		default:
			panic(fmt.Sprintf("unknown obstacle kind %v", spec.Kind))
		}
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(raw)
}

func (r *reflectionJSON) toConfig() geometry.ReflectionConfig {
	config := geometry.DefaultReflectionConfig()
	if r.FanCount != nil {
		config.FanCount = *r.FanCount
	}
	if r.Spread != nil {
		config.Spread = *r.Spread
	}
	if r.Decay != nil {
		config.Decay = *r.Decay
	}
	if r.Floor != nil {
		config.BrightnessFloor = *r.Floor
	}
	return config
}

func (o obstacleJSON) toSpec() (ObstacleSpec, error) {
	switch o.Type {
	case "segment":
		p1, err := parsePoint("p1", o.P1)
		if err != nil {
			return ObstacleSpec{}, err
		}
		p2, err := parsePoint("p2", o.P2)
		if err != nil {
			return ObstacleSpec{}, err
		}
		return ObstacleSpec{Kind: geometry.KindSegment, P1: p1, P2: p2}, nil

	case "circle":
		center, err := parsePoint("center", o.Center)
		if err != nil {
			return ObstacleSpec{}, err
		}
		if o.Radius == nil {
			return ObstacleSpec{}, fmt.Errorf("%w: circle is missing radius", ErrInvalidSceneFile)
		}
		return ObstacleSpec{Kind: geometry.KindCircle, Center: center, Radius: *o.Radius}, nil

	case "":
		return ObstacleSpec{}, fmt.Errorf("%w: obstacle is missing type", ErrInvalidSceneFile)
	default:
		return ObstacleSpec{}, fmt.Errorf("%w: unknown obstacle type %q", ErrInvalidSceneFile, o.Type)
	}
}

// parsePoint converts an [x, y] array into a Vec2
func parsePoint(field string, values []float64) (core.Vec2, error) {
	if values == nil {
		return core.Vec2{}, fmt.Errorf("%w: missing %s", ErrInvalidSceneFile, field)
	}
	if len(values) != 2 {
		return core.Vec2{}, fmt.Errorf("%w: %s must have 2 coordinates, got %d", ErrInvalidSceneFile, field, len(values))
	}
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return core.Vec2{}, fmt.Errorf("%w: %s is not finite", ErrInvalidSceneFile, field)
		}
	}
	return core.NewVec2(values[0], values[1]), nil
}

// sceneDirCandidates are the scenes directories looked for from the working
// directory: the repo root, cmd-style subdirectories and package directories.
var sceneDirCandidates = []string{"scenes", "../scenes", "../../scenes"}

var (
	allowedDirsMu sync.Mutex
	allowedDirs   []string
)

// FindSceneDirs returns every scenes directory that exists relative to the
// working directory, nearest first
func FindSceneDirs() []string {
	var dirs []string
	for _, path := range sceneDirCandidates {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			dirs = append(dirs, path)
		}
	}
	return dirs
}

// AllowSceneDir lets LoadSceneFile read scene files from dir in addition to
// the scenes directories found by FindSceneDirs
func AllowSceneDir(dir string) {
	allowedDirsMu.Lock()
	defer allowedDirsMu.Unlock()
	allowedDirs = append(allowedDirs, dir)
}

// sceneRoots lists the directories scene files may be loaded from
func sceneRoots() []string {
	allowedDirsMu.Lock()
	defer allowedDirsMu.Unlock()
	roots := append(FindSceneDirs(), allowedDirs...)
	// Tests and exported scenes live in the temp directory
	return append(roots, os.TempDir())
}

// resolvePath returns the absolute path with symlinks resolved when the
// target exists
func resolvePath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return abs, nil
}

// withinDir reports whether path lies strictly inside dir; both must be absolute
func withinDir(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil || rel == "." || filepath.IsAbs(rel) {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// validateFilePath validates a file path for security issues. The cleaned
// path has to resolve inside one of the scene roots.
func validateFilePath(filename string) error {
	if filename == "" {
		return fmt.Errorf("filename cannot be empty")
	}

	// Null bytes could indicate path manipulation
	if strings.Contains(filename, "\x00") {
		return fmt.Errorf("invalid file path: null bytes not allowed")
	}

	cleanPath := filepath.Clean(filename)

	if !strings.HasSuffix(strings.ToLower(cleanPath), ".json") {
		return fmt.Errorf("invalid file type: only .json scene files are allowed")
	}

	if len(cleanPath) > 512 {
		return fmt.Errorf("file path too long: maximum 512 characters allowed")
	}

	target, err := resolvePath(cleanPath)
	if err != nil {
		return fmt.Errorf("invalid file path: %v", err)
	}
	for _, root := range sceneRoots() {
		rootPath, err := resolvePath(root)
		if err != nil {
			continue
		}
		if withinDir(rootPath, target) {
			return nil
		}
	}
	return fmt.Errorf("file path must be inside a scenes directory")
}

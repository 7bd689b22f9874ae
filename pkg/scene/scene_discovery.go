package scene

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/df07/go-wavefront-tracer/pkg/geometry"
	"github.com/df07/go-wavefront-tracer/pkg/loaders"
)

// FileScenePrefix marks scene IDs that refer to a scene file
const FileScenePrefix = "file:"

const (
	builtInGroup = "Built-in Scenes"
	fileGroup    = "Scene Files"
)

// SceneInfo represents a discovered scene with its metadata
type SceneInfo struct {
	ID          string `json:"id"`          // Unique identifier, accepted by Create
	Name        string `json:"name"`        // Scene name
	DisplayName string `json:"displayName"` // UI display name
	Description string `json:"description"` // Optional description
	Group       string `json:"group"`       // Grouping category
	Type        string `json:"type"`        // "builtin" or "file"
	FilePath    string `json:"filePath"`    // Path to the scene file (file type only)
	Obstacles   int    `json:"obstacles"`   // Number of obstacles
}

// SceneGroup represents a group of related scenes
type SceneGroup struct {
	Name   string      `json:"name"`
	Scenes []SceneInfo `json:"scenes"`
}

// ScenesResponse represents the complete response for /api/scenes
type ScenesResponse struct {
	Groups []SceneGroup `json:"groups"`
}

// FindScenesDir returns the nearest scenes directory found from the working
// directory, or "" if there is none
func FindScenesDir() string {
	if dirs := loaders.FindSceneDirs(); len(dirs) > 0 {
		return dirs[0]
	}
	return ""
}

// ListSceneFiles scans dir for .json scene files. A missing directory yields
// an empty list; files that fail to parse are skipped with a warning.
func ListSceneFiles(dir string) ([]SceneInfo, error) {
	if dir == "" {
		return []SceneInfo{}, nil
	}
	if _, err := os.Stat(dir); err != nil {
		return []SceneInfo{}, nil
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan scenes directory: %v", err)
	}

	scenes := []SceneInfo{}
	for _, filePath := range files {
		info, err := ParseSceneFileMetadata(filePath)
		if err != nil {
			fmt.Printf("Warning: failed to parse metadata for %s: %v\n", filePath, err)
			continue
		}
		scenes = append(scenes, info)
	}

	sort.Slice(scenes, func(i, j int) bool {
		return scenes[i].DisplayName < scenes[j].DisplayName
	})

	return scenes, nil
}

// ParseSceneFileMetadata reads a scene file and describes it for listings
func ParseSceneFileMetadata(filePath string) (SceneInfo, error) {
	file, err := loaders.LoadSceneFile(filePath)
	if err != nil {
		return SceneInfo{}, err
	}

	filename := filepath.Base(filePath)
	nameWithoutExt := strings.TrimSuffix(filename, filepath.Ext(filename))

	info := SceneInfo{
		ID:          FileScenePrefix + filePath,
		Name:        file.Name,
		DisplayName: file.Name,
		Description: file.Description,
		Group:       file.Group,
		Type:        "file",
		FilePath:    filePath,
		Obstacles:   len(file.Obstacles),
	}
	// LoadSceneFile falls back to the bare filename; make that readable
	if file.Name == nameWithoutExt {
		info.DisplayName = titleCase(nameWithoutExt)
	}
	if info.Group == "" {
		info.Group = fileGroup
	}
	return info, nil
}

// ListBuiltInScenes describes the built-in scenes
func ListBuiltInScenes() []SceneInfo {
	scenes := make([]SceneInfo, 0, len(BuiltInSceneNames))
	for _, name := range BuiltInSceneNames {
		s, err := Create(name, geometry.DefaultReflectionConfig())
		if err != nil {
			panic(fmt.Sprintf("built-in scene %s: %v", name, err))
		}
		scenes = append(scenes, SceneInfo{
			ID:          name,
			Name:        name,
			DisplayName: titleCase(name),
			Description: s.Description,
			Group:       builtInGroup,
			Type:        "builtin",
			Obstacles:   len(s.Obstacles),
		})
	}
	return scenes
}

// ListAllScenes returns built-in scenes and the scene files in dir, grouped by category
func ListAllScenes(dir string) (ScenesResponse, error) {
	var response ScenesResponse

	fileScenes, err := ListSceneFiles(dir)
	if err != nil {
		return response, fmt.Errorf("failed to list scene files: %v", err)
	}

	allScenes := append(ListBuiltInScenes(), fileScenes...)

	groupMap := make(map[string][]SceneInfo)
	for _, scene := range allScenes {
		groupMap[scene.Group] = append(groupMap[scene.Group], scene)
	}

	// Built-in first, then alphabetical
	var groupNames []string
	for groupName := range groupMap {
		if groupName != builtInGroup {
			groupNames = append(groupNames, groupName)
		}
	}
	sort.Strings(groupNames)

	response.Groups = append(response.Groups, SceneGroup{
		Name:   builtInGroup,
		Scenes: groupMap[builtInGroup],
	})
	for _, groupName := range groupNames {
		response.Groups = append(response.Groups, SceneGroup{
			Name:   groupName,
			Scenes: groupMap[groupName],
		})
	}

	return response, nil
}

// titleCase converts a filename-style string to title case
// e.g., "corner-pins" -> "Corner Pins"
func titleCase(s string) string {
	s = strings.ReplaceAll(s, "-", " ")
	s = strings.ReplaceAll(s, "_", " ")

	words := strings.Fields(s)
	for i, word := range words {
		if len(word) > 0 {
			words[i] = strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
		}
	}

	return strings.Join(words, " ")
}

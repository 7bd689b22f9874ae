package renderer

import (
	"gonum.org/v1/gonum/stat"

	"github.com/df07/go-wavefront-tracer/pkg/core"
)

// TraceStats contains statistics about a propagation run
type TraceStats struct {
	TotalRays        int     // Rays in the trace
	Terminated       int     // Rays that ended on an obstacle
	Escaped          int     // Rays that left the scene (or were never processed)
	MaxDepth         int     // Deepest generation present in the trace
	RaysPerDepth     []int   // Ray count per generation, index = depth
	ObstacleHits     []int   // Reflections per obstacle, in scene order
	MeanBrightness   float64 // Mean ray brightness
	StdDevBrightness float64 // Sample standard deviation of ray brightness
	MeanLength       float64 // Mean start-to-end length of terminated rays
}

// computeTraceStats summarizes a finished trace
func computeTraceStats(rays []core.RayRecord, obstacleHits []int) TraceStats {
	stats := TraceStats{
		TotalRays:    len(rays),
		ObstacleHits: append([]int(nil), obstacleHits...),
	}
	if len(rays) == 0 {
		return stats
	}

	brightness := make([]float64, len(rays))
	var lengths []float64
	for i, ray := range rays {
		brightness[i] = ray.Brightness
		if ray.Terminated {
			stats.Terminated++
			lengths = append(lengths, ray.Length())
		} else {
			stats.Escaped++
		}

		if ray.Depth > stats.MaxDepth {
			stats.MaxDepth = ray.Depth
		}
		for len(stats.RaysPerDepth) <= ray.Depth {
			stats.RaysPerDepth = append(stats.RaysPerDepth, 0)
		}
		stats.RaysPerDepth[ray.Depth]++
	}

	if len(brightness) > 1 {
		stats.MeanBrightness, stats.StdDevBrightness = stat.MeanStdDev(brightness, nil)
	} else {
		stats.MeanBrightness = brightness[0]
	}
	if len(lengths) > 0 {
		stats.MeanLength = stat.Mean(lengths, nil)
	}

	return stats
}

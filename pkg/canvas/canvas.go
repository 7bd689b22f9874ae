// Package canvas rasterizes finished traces into images.
package canvas

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	"github.com/fogleman/gg"

	"github.com/df07/go-wavefront-tracer/pkg/core"
	"github.com/df07/go-wavefront-tracer/pkg/geometry"
)

// ErrInvalidDrawConfig is returned when a DrawConfig fails validation
var ErrInvalidDrawConfig = errors.New("invalid draw config")

// DrawConfig controls how a trace is drawn
type DrawConfig struct {
	Size          int         // Width and height in pixels; scene coordinates [0,1] span the image
	StubLength    float64     // Length of the stub drawn for unterminated rays; 0 skips them
	LineWidth     float64     // Stroke width in pixels
	Background    color.Color // Fill color
	ObstacleColor color.Color // Outline color for obstacles
}

// DefaultDrawConfig returns an 850 pixel black canvas that skips unterminated rays
func DefaultDrawConfig() DrawConfig {
	return DrawConfig{
		Size:          850,
		StubLength:    0,
		LineWidth:     1,
		Background:    color.Black,
		ObstacleColor: color.White,
	}
}

// Validate checks the configuration
func (c DrawConfig) Validate() error {
	switch {
	case c.Size < 2:
		return fmt.Errorf("%w: size %d must be at least 2", ErrInvalidDrawConfig, c.Size)
	case !(c.StubLength >= 0) || math.IsInf(c.StubLength, 0):
		return fmt.Errorf("%w: stub length %g must be finite and non-negative", ErrInvalidDrawConfig, c.StubLength)
	case !(c.LineWidth > 0):
		return fmt.Errorf("%w: line width %g must be positive", ErrInvalidDrawConfig, c.LineWidth)
	case c.Background == nil || c.ObstacleColor == nil:
		return fmt.Errorf("%w: colors must be set", ErrInvalidDrawConfig)
	}
	return nil
}

// GrayLevel maps a brightness in [0,1] to an 8-bit gray level
func GrayLevel(brightness float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, brightness)) * 255))
}

// Render draws rays and obstacles on a fresh canvas.
//
// Rays are drawn from last to first, so a parent (created earlier) ends up on
// top of its dimmer children. Obstacles are outlined after all rays.
func Render(rays []core.RayRecord, obstacles []geometry.Obstacle, config DrawConfig) (image.Image, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	dc := gg.NewContext(config.Size, config.Size)
	dc.SetColor(config.Background)
	dc.Clear()

	scale := float64(config.Size - 1)
	dc.SetLineWidth(config.LineWidth)

	for i := len(rays) - 1; i >= 0; i-- {
		ray := rays[i]
		end := ray.End
		if !ray.Terminated {
			if config.StubLength == 0 {
				continue
			}
			end = ray.Start.Add(ray.Direction.Multiply(config.StubLength))
		}

		gray := GrayLevel(ray.Brightness)
		dc.SetRGB255(int(gray), int(gray), int(gray))
		x1, y1 := toPixel(ray.Start, scale)
		x2, y2 := toPixel(end, scale)
		dc.DrawLine(x1, y1, x2, y2)
		dc.Stroke()
	}

	dc.SetColor(config.ObstacleColor)
	for _, obstacle := range obstacles {
		switch o := obstacle.(type) {
		case *geometry.Segment:
			x1, y1 := toPixel(o.P1, scale)
			x2, y2 := toPixel(o.P2, scale)
			dc.DrawLine(x1, y1, x2, y2)
		case *geometry.Circle:
			x, y := toPixel(o.Center, scale)
			dc.DrawCircle(x, y, o.Radius*scale)
		default:
			panic(fmt.Sprintf("unknown obstacle type %T", obstacle))
		}
		dc.Stroke()
	}

	return dc.Image(), nil
}

// toPixel maps a scene point to the center of its pixel
func toPixel(p core.Vec2, scale float64) (float64, float64) {
	return math.Round(p.X*scale) + 0.5, math.Round(p.Y*scale) + 0.5
}

// SavePNG writes an image to a PNG file
func SavePNG(img image.Image, path string) error {
	if err := gg.SavePNG(path, img); err != nil {
		return fmt.Errorf("failed to save PNG %s: %w", path, err)
	}
	return nil
}

// EncodePNG writes an image as PNG to w
func EncodePNG(w io.Writer, img image.Image) error {
	return png.Encode(w, img)
}

// Package render rasterises a pole at a given angle into a small grayscale
// image and flattens it into a network input vector.
package render

import (
	"image"
	"image/draw"
	"math"

	"golang.org/x/image/colornames"
	"golang.org/x/image/vector"
)

// Encoder renders poles into Width x Height images
type Encoder struct {
	Width     int
	Height    int
	Length    float64 // pole length as a fraction of Height
	Thickness float64 // pixels
}

// NewEncoder creates an encoder with the stock pole proportions
func NewEncoder(width, height int) *Encoder {
	return &Encoder{
		Width:     width,
		Height:    height,
		Length:    0.8,
		Thickness: 1.5,
	}
}

// Size returns the length of an encoded vector
func (e *Encoder) Size() int {
	return e.Width * e.Height
}

// Render draws the pole leaning by angle radians; positive leans right.
// The pivot sits at the bottom centre of the image.
func (e *Encoder) Render(angle float64) *image.Gray {
	bounds := image.Rect(0, 0, e.Width, e.Height)
	img := image.NewGray(bounds)
	draw.Draw(img, bounds, image.NewUniform(colornames.Black), image.Point{}, draw.Src)

	px := float64(e.Width) / 2
	py := float64(e.Height) - 1
	length := e.Length * float64(e.Height)
	tx := px + length*math.Sin(angle)
	ty := py - length*math.Cos(angle)

	half := e.Thickness / 2
	nx := math.Cos(angle) * half
	ny := math.Sin(angle) * half

	z := vector.NewRasterizer(e.Width, e.Height)
	z.DrawOp = draw.Over
	z.MoveTo(float32(px-nx), float32(py-ny))
	z.LineTo(float32(tx-nx), float32(ty-ny))
	z.LineTo(float32(tx+nx), float32(ty+ny))
	z.LineTo(float32(px+nx), float32(py+ny))
	z.ClosePath()
	z.Draw(img, bounds, image.NewUniform(colornames.White), image.Point{})
	return img
}

// Encode renders the pole at degrees and returns pixel intensities in [0,1]
func (e *Encoder) Encode(degrees float64) []float64 {
	img := e.Render(degrees * math.Pi / 180)
	out := make([]float64, 0, e.Size())
	for y := 0; y < e.Height; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+e.Width]
		for _, p := range row {
			out = append(out, float64(p)/255)
		}
	}
	return out
}

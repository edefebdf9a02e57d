// Package visual compares theme screenshots pixel by pixel. A toggle whose
// menu clicks succeed but whose page never changes produces near-identical
// captures; the diff ratio makes that visible.
package visual

import (
	"fmt"
	"image"
	"image/png"
	"os"

	"github.com/orisano/pixelmatch"
)

// Summary describes how much two captures differ.
type Summary struct {
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	DiffPixels int     `json:"diff_pixels"`
	Ratio      float64 `json:"ratio"`
}

// Compare decodes two PNG files and returns the fraction of differing
// pixels. pixelThreshold is the per-pixel color distance (0..1) below
// which pixels count as equal.
func Compare(pathA, pathB string, pixelThreshold float64) (Summary, error) {
	imgA, err := readPNG(pathA)
	if err != nil {
		return Summary{}, err
	}
	imgB, err := readPNG(pathB)
	if err != nil {
		return Summary{}, err
	}

	boundsA, boundsB := imgA.Bounds(), imgB.Bounds()
	if boundsA.Dx() != boundsB.Dx() || boundsA.Dy() != boundsB.Dy() {
		return Summary{}, fmt.Errorf("screenshot sizes differ: %dx%d vs %dx%d",
			boundsA.Dx(), boundsA.Dy(), boundsB.Dx(), boundsB.Dy())
	}

	diff, err := pixelmatch.MatchPixel(imgA, imgB, pixelmatch.Threshold(pixelThreshold))
	if err != nil {
		return Summary{}, fmt.Errorf("pixel match: %w", err)
	}

	total := boundsA.Dx() * boundsA.Dy()
	sum := Summary{
		Width:      boundsA.Dx(),
		Height:     boundsA.Dy(),
		DiffPixels: diff,
	}
	if total > 0 {
		sum.Ratio = float64(diff) / float64(total)
	}
	return sum, nil
}

func readPNG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open screenshot: %w", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

package visual

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompare(t *testing.T) {
	dir := t.TempDir()
	white := writeSolidPNG(t, filepath.Join(dir, "white.png"), 32, 16, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	black := writeSolidPNG(t, filepath.Join(dir, "black.png"), 32, 16, color.RGBA{A: 255})
	small := writeSolidPNG(t, filepath.Join(dir, "small.png"), 8, 8, color.RGBA{A: 255})

	t.Run("opposite images differ fully", func(t *testing.T) {
		sum, err := Compare(white, black, 0.1)
		require.NoError(t, err)
		assert.Equal(t, 32, sum.Width)
		assert.Equal(t, 16, sum.Height)
		assert.Equal(t, 32*16, sum.DiffPixels)
		assert.InDelta(t, 1.0, sum.Ratio, 0.001)
	})

	t.Run("identical images do not differ", func(t *testing.T) {
		sum, err := Compare(white, white, 0.1)
		require.NoError(t, err)
		assert.Zero(t, sum.DiffPixels)
		assert.Zero(t, sum.Ratio)
	})

	t.Run("size mismatch is an error", func(t *testing.T) {
		_, err := Compare(white, small, 0.1)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sizes differ")
	})

	t.Run("missing file is an error", func(t *testing.T) {
		_, err := Compare(white, filepath.Join(dir, "missing.png"), 0.1)
		require.Error(t, err)
	})

	t.Run("not a png is an error", func(t *testing.T) {
		bogus := filepath.Join(dir, "bogus.png")
		require.NoError(t, os.WriteFile(bogus, []byte("not an image"), 0o600))
		_, err := Compare(white, bogus, 0.1)
		require.Error(t, err)
	})
}

func writeSolidPNG(t *testing.T, path string, w, h int, c color.RGBA) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

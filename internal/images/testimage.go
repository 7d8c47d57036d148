package images

import (
	"bytes"
	"crypto/sha256"
	"image"
	"image/color"
	"image/png"
)

// TestSentinelPrefix marks a photo reference as a request for a synthetic
// in-memory image. Lots carrying it never touch the network, which keeps
// fixtures deterministic in tests and development.
const TestSentinelPrefix = "test:"

const (
	syntheticWidth  = 640
	syntheticHeight = 480
)

// SyntheticImage renders a deterministic PNG for the given name. The same
// name always produces the same bytes.
func SyntheticImage(name string) []byte {
	sum := sha256.Sum256([]byte(name))
	base := color.RGBA{R: sum[0], G: sum[1], B: sum[2], A: 255}
	stripe := color.RGBA{R: sum[3], G: sum[4], B: sum[5], A: 255}

	img := image.NewRGBA(image.Rect(0, 0, syntheticWidth, syntheticHeight))
	for y := 0; y < syntheticHeight; y++ {
		for x := 0; x < syntheticWidth; x++ {
			if (x/40+y/40)%2 == 0 {
				img.Set(x, y, base)
			} else {
				img.Set(x, y, stripe)
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil
	}
	return buf.Bytes()
}

// Placeholder renders a neutral stand-in image for a lot whose photo could
// not be fetched. Only development environments substitute placeholders.
func Placeholder(lotRef string) []byte {
	sum := sha256.Sum256([]byte(lotRef))
	band := color.RGBA{R: sum[0], G: sum[1], B: sum[2], A: 255}
	gray := color.RGBA{R: 0xEE, G: 0xEE, B: 0xEE, A: 255}

	img := image.NewRGBA(image.Rect(0, 0, syntheticWidth, syntheticHeight))
	for y := 0; y < syntheticHeight; y++ {
		c := gray
		if y < 32 {
			c = band
		}
		for x := 0; x < syntheticWidth; x++ {
			img.Set(x, y, c)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil
	}
	return buf.Bytes()
}

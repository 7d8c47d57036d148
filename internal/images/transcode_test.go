package images

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"
)

func encodeJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode jpeg fixture: %v", err)
	}
	return buf.Bytes()
}

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png fixture: %v", err)
	}
	return buf.Bytes()
}

// encodeTransparentGIF builds a GIF whose pixels are all fully transparent.
func encodeTransparentGIF(t *testing.T, width, height int) []byte {
	t.Helper()
	palette := color.Palette{color.RGBA{}, color.RGBA{R: 255, A: 255}}
	img := image.NewPaletted(image.Rect(0, 0, width, height), palette)
	var buf bytes.Buffer
	if err := gif.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode gif fixture: %v", err)
	}
	return buf.Bytes()
}

func TestTranscodeBoundsLongerSide(t *testing.T) {
	data := encodeJPEG(t, 3000, 1500)

	out, err := Transcode(data, 1200, 85)
	if err != nil {
		t.Fatalf("Transcode returned error: %v", err)
	}

	img, format, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if format != "jpeg" {
		t.Fatalf("format mismatch: got %q want jpeg", format)
	}
	bounds := img.Bounds()
	if bounds.Dx() != 1200 {
		t.Fatalf("longer side not bounded: got %d want 1200", bounds.Dx())
	}
	// Aspect ratio preserved within one pixel of rounding.
	if bounds.Dy() < 599 || bounds.Dy() > 601 {
		t.Fatalf("aspect ratio not preserved: got height %d want ~600", bounds.Dy())
	}
}

func TestTranscodeTallImage(t *testing.T) {
	data := encodeJPEG(t, 600, 2400)

	out, err := Transcode(data, 1200, 85)
	if err != nil {
		t.Fatalf("Transcode returned error: %v", err)
	}
	img, _, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if img.Bounds().Dy() != 1200 {
		t.Fatalf("longer side not bounded: got %d want 1200", img.Bounds().Dy())
	}
	if img.Bounds().Dx() < 299 || img.Bounds().Dx() > 301 {
		t.Fatalf("aspect ratio not preserved: got width %d want ~300", img.Bounds().Dx())
	}
}

func TestTranscodeSmallImageKeepsDimensions(t *testing.T) {
	data := encodeJPEG(t, 640, 480)

	out, err := Transcode(data, 1200, 85)
	if err != nil {
		t.Fatalf("Transcode returned error: %v", err)
	}
	img, _, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if img.Bounds().Dx() != 640 || img.Bounds().Dy() != 480 {
		t.Fatalf("small image resized: got %dx%d want 640x480", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestTranscodePreservesPNG(t *testing.T) {
	data := encodePNG(t, 100, 100)

	out, err := Transcode(data, 1200, 85)
	if err != nil {
		t.Fatalf("Transcode returned error: %v", err)
	}
	if _, format, err := image.Decode(bytes.NewReader(out)); err != nil || format != "png" {
		t.Fatalf("png not preserved: format %q err %v", format, err)
	}
}

func TestTranscodeFlattensAlphaOntoWhite(t *testing.T) {
	data := encodeTransparentGIF(t, 64, 64)

	out, err := Transcode(data, 1200, 85)
	if err != nil {
		t.Fatalf("Transcode returned error: %v", err)
	}

	img, format, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if format != "jpeg" {
		t.Fatalf("alpha-bearing input must become jpeg, got %q", format)
	}

	// Transparent pixels must render white-filled, not black.
	r, g, b, _ := img.At(32, 32).RGBA()
	const floor = 0xF000
	if r < floor || g < floor || b < floor {
		t.Fatalf("transparent region not white-filled: got rgb(%d, %d, %d)", r>>8, g>>8, b>>8)
	}
}

func TestTranscodeRejectsUndecodableBytes(t *testing.T) {
	_, err := Transcode([]byte("not an image at all"), 1200, 85)
	if err == nil {
		t.Fatal("expected decode error, got nil")
	}
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected *DecodeError, got %T: %v", err, err)
	}
}

func TestTranscodeIsDeterministic(t *testing.T) {
	data := encodeJPEG(t, 1600, 900)
	first, err := Transcode(data, 1200, 85)
	if err != nil {
		t.Fatalf("Transcode returned error: %v", err)
	}
	second, err := Transcode(data, 1200, 85)
	if err != nil {
		t.Fatalf("Transcode returned error: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatal("identical input produced different output bytes")
	}
}

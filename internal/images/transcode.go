package images

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"

	"github.com/disintegration/imaging"

	_ "image/gif"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Transcode normalizes raw image bytes for storage: images larger than
// maxDimension in either axis are downscaled with Lanczos resampling so the
// longer side equals maxDimension, JPEG input stays JPEG (re-encoded at the
// given quality), PNG stays PNG, and every other format is flattened onto a
// white background and re-encoded as JPEG. Transparency is not carried into
// the output; storage holds opaque JPEG or PNG only.
//
// The function is pure: no I/O, and identical input yields identical output.
func Transcode(data []byte, maxDimension, quality int) ([]byte, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}

	bounds := img.Bounds()
	if bounds.Dx() > maxDimension || bounds.Dy() > maxDimension {
		img = imaging.Fit(img, maxDimension, maxDimension, imaging.Lanczos)
	}

	var buf bytes.Buffer
	switch format {
	case "jpeg":
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality})
	case "png":
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		err = enc.Encode(&buf, img)
	default:
		err = jpeg.Encode(&buf, flattenOnWhite(img), &jpeg.Options{Quality: quality})
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// flattenOnWhite composites an image onto an opaque white canvas, discarding
// any alpha channel.
func flattenOnWhite(img image.Image) image.Image {
	bounds := img.Bounds()
	flat := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(flat, flat.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(flat, flat.Bounds(), img, bounds.Min, draw.Over)
	return flat
}

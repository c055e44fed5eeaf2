package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"net/http"

	"golang.org/x/image/draw"
	"golang.org/x/image/webp"
)

// MaxDimension bounds the longest edge of a normalized image. Labels and part
// numbers stay legible for text extraction at this size.
const MaxDimension = 2048

// JPEGQuality is the compression quality for JPEG output.
const JPEGQuality = 85

// MaxPixels bounds the declared size of an image before it is decoded.
const MaxPixels = 50_000_000

var (
	// ErrUnsupportedImage is returned for data that is not a decodable image.
	ErrUnsupportedImage = errors.New("unsupported image format")
	// ErrImageTooLarge is returned when the declared dimensions exceed MaxPixels.
	ErrImageTooLarge = errors.New("image dimensions are too large")
)

type decoder func([]byte) (image.Image, error)

var decoders = map[string]decoder{
	"image/jpeg": func(b []byte) (image.Image, error) { return jpeg.Decode(bytes.NewReader(b)) },
	"image/png":  func(b []byte) (image.Image, error) { return png.Decode(bytes.NewReader(b)) },
	"image/gif":  func(b []byte) (image.Image, error) { return gif.Decode(bytes.NewReader(b)) },
	"image/webp": func(b []byte) (image.Image, error) { return webp.Decode(bytes.NewReader(b)) },
}

// Image is a normalized image ready to be stored in a session.
type Image struct {
	Data     []byte
	MIMEType string
	Width    int
	Height   int
}

// Detect sniffs the media type of data. The client supplied type is never
// trusted.
func Detect(data []byte) (string, error) {
	detected := http.DetectContentType(data)
	if _, ok := decoders[detected]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedImage, detected)
	}
	return detected, nil
}

// Normalize decodes an uploaded image, downscales it to MaxDimension and
// re-encodes it as JPEG. Small JPEGs are passed through untouched.
func Normalize(data []byte) (*Image, error) {
	mimeType, err := Detect(data)
	if err != nil {
		return nil, err
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s header: %v", ErrUnsupportedImage, mimeType, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: empty %s", ErrUnsupportedImage, mimeType)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrImageTooLarge, cfg.Width, cfg.Height)
	}

	img, err := decoders[mimeType](data)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %v", ErrUnsupportedImage, mimeType, err)
	}

	bounds := img.Bounds()
	if mimeType == "image/jpeg" && bounds.Dx() <= MaxDimension && bounds.Dy() <= MaxDimension {
		return &Image{Data: data, MIMEType: mimeType, Width: bounds.Dx(), Height: bounds.Dy()}, nil
	}

	img = fit(img, MaxDimension)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}

	b := img.Bounds()
	return &Image{Data: buf.Bytes(), MIMEType: "image/jpeg", Width: b.Dx(), Height: b.Dy()}, nil
}

// fit scales img down so neither edge exceeds maxDim, keeping the aspect
// ratio. Transparent areas are flattened onto white.
func fit(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	newW, newH := w, h
	if w > maxDim || h > maxDim {
		if w >= h {
			newW = maxDim
			newH = h * maxDim / w
		} else {
			newH = maxDim
			newW = w * maxDim / h
		}
	}
	newW = max(newW, 1)
	newH = max(newH, 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

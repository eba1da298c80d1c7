// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package imaging generates JPEG thumbnails for catalog covers and image
// attachments. Sources larger than the target width are downscaled after
// EXIF auto-rotation; smaller ones get no thumbnail, so nothing is upscaled.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	// Register decoders beyond the standard library's jpeg/png/gif.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Default thumbnail settings.
const (
	ThumbWidth   = 320
	ThumbQuality = 75
	ContentType  = "image/jpeg"

	// MaxPixels caps the declared size of a source image. Decoding allocates
	// the full canvas, so headers beyond this are refused before decode.
	MaxPixels = 40_000_000
)

// ErrTooLarge is returned for sources whose header declares more than
// MaxPixels pixels.
var ErrTooLarge = errors.New("imaging: image dimensions too large")

// Thumb is one generated thumbnail ready for upload.
type Thumb struct {
	Data   []byte
	Width  int
	Height int
}

// Thumbnail decodes src and returns a JPEG no wider than maxWidth, keeping
// the aspect ratio. It returns (nil, nil) when the source already fits.
// Undecodable input is reported as an error; callers treat that as "no
// thumbnail".
func Thumbnail(src []byte, maxWidth int) (*Thumb, error) {
	if maxWidth <= 0 {
		maxWidth = ThumbWidth
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("imaging: decode config: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrTooLarge, cfg.Width, cfg.Height)
	}

	img, err := imaging.Decode(bytes.NewReader(src), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("imaging: decode: %w", err)
	}
	if img.Bounds().Dx() <= maxWidth {
		return nil, nil
	}

	thumb := imaging.Resize(img, maxWidth, 0, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(ThumbQuality)); err != nil {
		return nil, fmt.Errorf("imaging: encode: %w", err)
	}

	b := thumb.Bounds()
	return &Thumb{Data: buf.Bytes(), Width: b.Dx(), Height: b.Dy()}, nil
}

// IsImage reports whether a content type is one Thumbnail can decode.
func IsImage(contentType string) bool {
	switch contentType {
	case "image/jpeg", "image/png", "image/gif", "image/webp", "image/bmp", "image/tiff":
		return true
	}
	return false
}

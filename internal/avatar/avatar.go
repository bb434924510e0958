// Package avatar validates uploaded profile images and normalizes them to a
// fixed-size PNG.
package avatar

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"

	"github.com/taskhub/backend/internal/apperror"
)

const (
	// MaxUploadBytes is the largest accepted upload.
	MaxUploadBytes = 5_000_000
	// Size is the width and height of a stored avatar.
	Size = 250
)

var allowedExt = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// CheckFilename rejects anything that is not a jpg, jpeg or png file name.
func CheckFilename(name string) error {
	if !allowedExt[strings.ToLower(filepath.Ext(name))] {
		return apperror.Validation("Please upload an image")
	}
	return nil
}

// Normalize decodes data, scales it to Size x Size and re-encodes it as PNG.
func Normalize(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, apperror.Validation("Please upload an image")
	}
	if len(data) > MaxUploadBytes {
		return nil, apperror.Validation("File too large")
	}
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apperror.Validation("Please upload an image")
	}

	dst := image.NewRGBA(image.Rect(0, 0, Size, Size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, apperror.Internal(fmt.Errorf("encode avatar: %w", err))
	}
	return buf.Bytes(), nil
}

// Package imaging rescales captured frames carried as data URLs.
package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"log"
	"strings"

	"golang.org/x/image/draw"
)

const (
	// Quality is the JPEG quality used when re-encoding a resized frame.
	Quality = 70

	// StorageWidth keeps history records small.
	StorageWidth = 300
	// AnalysisWidth keeps enough detail for the remote model.
	AnalysisWidth = 800
)

// Resize scales the image to maxWidth, keeping the aspect ratio, and
// re-encodes it as JPEG. Any decode or encode failure returns the input
// unchanged.
func Resize(dataURL string, maxWidth int) string {
	if maxWidth <= 0 {
		return dataURL
	}
	src, err := DecodeDataURL(dataURL)
	if err != nil {
		log.Printf("imaging: resize skipped: %v", err)
		return dataURL
	}

	b := src.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return dataURL
	}
	scale := float64(maxWidth) / float64(b.Dx())
	height := int(float64(b.Dy())*scale + 0.5)
	if height < 1 {
		height = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, height))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)

	out, err := EncodeDataURL(dst, Quality)
	if err != nil {
		log.Printf("imaging: resize skipped: %v", err)
		return dataURL
	}
	return out
}

// DecodeDataURL decodes a base64 data URL holding a JPEG or PNG image.
func DecodeDataURL(dataURL string) (image.Image, error) {
	raw, err := Payload(dataURL)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// Payload returns the binary body of a base64 data URL.
func Payload(dataURL string) ([]byte, error) {
	header, body, ok := strings.Cut(dataURL, ",")
	if !ok || !strings.HasPrefix(header, "data:") || !strings.HasSuffix(header, ";base64") {
		return nil, fmt.Errorf("not a base64 data url")
	}
	raw, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	return raw, nil
}

// EncodeDataURL encodes img as a JPEG data URL.
func EncodeDataURL(img image.Image, quality int) (string, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return "", fmt.Errorf("encode jpeg: %w", err)
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Width reports the pixel width of a data URL image, or 0 when it does not
// decode.
func Width(dataURL string) int {
	raw, err := Payload(dataURL)
	if err != nil {
		return 0
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return 0
	}
	return cfg.Width
}

// Package ocr turns prescription label images into raw text.
package ocr

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/wolfman30/medcompanion-ai/internal/llm"
)

var (
	ErrEmptyImage        = errors.New("ocr: image is empty")
	ErrUnsupportedFormat = errors.New("ocr: unsupported image format")
)

// Image is a decoded upload with its sniffed format.
type Image struct {
	Data   []byte
	Format llm.ImageFormat
}

var contentTypeFormats = map[string]llm.ImageFormat{
	"image/png":  llm.ImageFormatPNG,
	"image/jpeg": llm.ImageFormatJPEG,
	"image/gif":  llm.ImageFormatGIF,
	"image/webp": llm.ImageFormatWEBP,
}

// NewImage sniffs data and rejects anything that is not png, jpeg, gif or webp.
func NewImage(data []byte) (Image, error) {
	if len(data) == 0 {
		return Image{}, ErrEmptyImage
	}
	contentType := http.DetectContentType(data)
	format, ok := contentTypeFormats[contentType]
	if !ok {
		return Image{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, contentType)
	}
	return Image{Data: data, Format: format}, nil
}

// DecodeBase64Image accepts raw standard base64 or a data URL
// ("data:image/png;base64,...").
func DecodeBase64Image(encoded string) (Image, error) {
	encoded = strings.TrimSpace(encoded)
	if strings.HasPrefix(encoded, "data:") {
		comma := strings.Index(encoded, ",")
		if comma < 0 {
			return Image{}, errors.New("ocr: malformed data URL")
		}
		encoded = encoded[comma+1:]
	}
	encoded = strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		}
		return r
	}, encoded)
	if encoded == "" {
		return Image{}, ErrEmptyImage
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(encoded)
	}
	if err != nil {
		return Image{}, fmt.Errorf("ocr: invalid base64 image: %w", err)
	}
	return NewImage(data)
}

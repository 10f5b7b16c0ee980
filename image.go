package tgpdf

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"
)

// imageFormat is a container format the OCR engine may not read natively.
type imageFormat string

const (
	formatNative imageFormat = ""
	formatWebP   imageFormat = "webp"
	formatBMP    imageFormat = "bmp"
	formatTIFF   imageFormat = "tiff"
)

// sniffFormat identifies formats that need conversion, by magic bytes first
// and declared MIME type second.
func sniffFormat(data []byte, mime string) imageFormat {
	switch {
	case len(data) >= 12 && string(data[:4]) == "RIFF" && string(data[8:12]) == "WEBP":
		return formatWebP
	case bytes.HasPrefix(data, []byte("BM")):
		return formatBMP
	case bytes.HasPrefix(data, []byte("II*\x00")), bytes.HasPrefix(data, []byte("MM\x00*")):
		return formatTIFF
	}

	switch strings.ToLower(mime) {
	case "image/webp":
		return formatWebP
	case "image/bmp", "image/x-ms-bmp":
		return formatBMP
	case "image/tiff":
		return formatTIFF
	}
	return formatNative
}

// normalizeImage re-encodes WebP, BMP and TIFF input as PNG.
// Other formats are returned untouched.
func normalizeImage(data []byte, mime string) ([]byte, error) {
	format := sniffFormat(data, mime)
	if format == formatNative {
		return data, nil
	}

	var (
		img image.Image
		err error
	)
	r := bytes.NewReader(data)
	switch format {
	case formatWebP:
		img, err = webp.Decode(r)
	case formatBMP:
		img, err = bmp.Decode(r)
	case formatTIFF:
		img, err = tiff.Decode(r)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding %s image: %w", format, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	return buf.Bytes(), nil
}

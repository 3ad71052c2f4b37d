// Package raster turns visual elements and the viewport into compressed
// JPEG data URIs and deduplicates identical captures within one pass.
package raster

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"net/url"
	"strings"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	DefaultMaxWidth  = 1200
	DefaultMaxHeight = 800

	// QualityCapture is used for canvas and viewport rasters.
	QualityCapture = 70
	// QualityImage is used for fetched <img> and background sources.
	QualityImage = 80
)

// ErrNotDataURI is returned when a string lacks the data: scheme.
var ErrNotDataURI = errors.New("not a data URI")

// Compressor bounds and re-encodes rasters. The zero value uses the
// default bounds.
type Compressor struct {
	MaxWidth  int
	MaxHeight int
}

func (c Compressor) bounds() (int, int) {
	w, h := c.MaxWidth, c.MaxHeight
	if w <= 0 {
		w = DefaultMaxWidth
	}
	if h <= 0 {
		h = DefaultMaxHeight
	}
	return w, h
}

// Compress decodes png, jpeg, gif or webp bytes, scales them down to fit
// the bounds with aspect ratio preserved, and returns a JPEG data URI.
// Transparent regions are flattened onto white.
func (c Compressor) Compress(data []byte, quality int) (string, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}
	maxW, maxH := c.bounds()
	sb := src.Bounds()
	w, h := Fit(sb.Dx(), sb.Dy(), maxW, maxH)
	if w == 0 || h == 0 {
		return "", errors.New("empty image")
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	if w == sb.Dx() && h == sb.Dy() {
		draw.Draw(dst, dst.Bounds(), src, sb.Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, sb, draw.Over, nil)
	}

	if quality <= 0 || quality > 100 {
		quality = QualityCapture
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: quality}); err != nil {
		return "", fmt.Errorf("encode: %w", err)
	}
	return EncodeDataURI("image/jpeg", buf.Bytes()), nil
}

// CompressDataURI decodes a data URI and compresses its payload.
func (c Compressor) CompressDataURI(uri string, quality int) (string, error) {
	data, _, err := DecodeDataURI(uri)
	if err != nil {
		return "", err
	}
	return c.Compress(data, quality)
}

// Fit scales w x h down to fit within maxW x maxH. Images already inside
// the bounds are returned unchanged.
func Fit(w, h, maxW, maxH int) (int, int) {
	if w <= 0 || h <= 0 {
		return 0, 0
	}
	if w <= maxW && h <= maxH {
		return w, h
	}
	rw := float64(maxW) / float64(w)
	rh := float64(maxH) / float64(h)
	r := rw
	if rh < r {
		r = rh
	}
	nw := int(float64(w)*r + 0.5)
	nh := int(float64(h)*r + 0.5)
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	return nw, nh
}

// EncodeDataURI wraps bytes as a base64 data URI.
func EncodeDataURI(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURI returns the payload and media type of a data URI. Both
// base64 and percent-encoded payloads are accepted.
func DecodeDataURI(uri string) ([]byte, string, error) {
	if !IsDataURI(uri) {
		return nil, "", ErrNotDataURI
	}
	rest := uri[len("data:"):]
	comma := strings.IndexByte(rest, ',')
	if comma < 0 {
		return nil, "", fmt.Errorf("%w: missing comma", ErrNotDataURI)
	}
	meta, payload := rest[:comma], rest[comma+1:]
	mime := meta
	isBase64 := false
	if strings.HasSuffix(meta, ";base64") {
		isBase64 = true
		mime = strings.TrimSuffix(meta, ";base64")
	}
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	if mime == "" {
		mime = "text/plain"
	}
	if isBase64 {
		b, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, "", fmt.Errorf("base64: %w", err)
		}
		return b, mime, nil
	}
	s, err := url.PathUnescape(payload)
	if err != nil {
		return nil, "", fmt.Errorf("unescape: %w", err)
	}
	return []byte(s), mime, nil
}

// IsDataURI reports whether s uses the data: scheme.
func IsDataURI(s string) bool {
	return len(s) >= 5 && strings.EqualFold(s[:5], "data:")
}

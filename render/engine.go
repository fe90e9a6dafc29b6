// Package render turns source image bytes into resized, re-encoded variants.
package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/png"
	"io"
	"math"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/gen2brain/avif"
	"github.com/gen2brain/jpegxl"
	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	_ "golang.org/x/image/webp"
)

// Renderer resizes a source image to width and encodes it as format.
type Renderer interface {
	Render(ctx context.Context, src []byte, width int, format Format) ([]byte, error)
}

// Encoder writes an image in one output format.
type Encoder interface {
	Format() Format
	Encode(w io.Writer, img image.Image) error
}

// Engine is the default Renderer. Every encoder runs at maximum quality and,
// where the codec supports it, losslessly.
type Engine struct {
	filter   imaging.ResampleFilter
	encoders map[Format]Encoder
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithFilter sets the resampling filter. Lanczos is used by default.
func WithFilter(f imaging.ResampleFilter) EngineOption {
	return func(e *Engine) {
		e.filter = f
	}
}

// WithEncoder registers or replaces the encoder for enc.Format().
func WithEncoder(enc Encoder) EngineOption {
	return func(e *Engine) {
		e.encoders[enc.Format()] = enc
	}
}

// NewEngine creates an Engine with encoders for every Format.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		filter: imaging.Lanczos,
		encoders: map[Format]Encoder{
			PNG:  pngEncoder{},
			JPEG: jpegEncoder{},
			WebP: webpEncoder{},
			AVIF: avifEncoder{},
			JXL:  jxlEncoder{},
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Render decodes src, scales it to width keeping the aspect ratio, and encodes it.
func (e *Engine) Render(ctx context.Context, src []byte, width int, format Format) ([]byte, error) {
	if width <= 0 {
		return nil, fmt.Errorf("invalid width %d", width)
	}
	enc, ok := e.encoders[format]
	if !ok {
		return nil, &UnsupportedFormatError{Format: string(format)}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, err := e.resize(src, width)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := enc.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode %s at %dw: %w", format, width, err)
	}
	return buf.Bytes(), nil
}

func (e *Engine) resize(src []byte, width int) (image.Image, error) {
	if IsSVG(src) {
		return RasterizeSVG(src, width)
	}

	img, err := imaging.Decode(bytes.NewReader(src), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return imaging.Resize(img, width, 0, e.filter), nil
}

// IsSVG sniffs src for SVG markup.
func IsSVG(src []byte) bool {
	return mimetype.Detect(src).Is("image/svg+xml")
}

// RasterizeSVG draws an SVG document at width pixels, deriving the height from
// the viewBox aspect ratio.
func RasterizeSVG(src []byte, width int) (image.Image, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(src), oksvg.IgnoreErrorMode)
	if err != nil {
		return nil, fmt.Errorf("failed to parse svg: %w", err)
	}
	vbW, vbH := icon.ViewBox.W, icon.ViewBox.H
	if vbW <= 0 || vbH <= 0 {
		return nil, fmt.Errorf("svg has no usable viewBox")
	}

	height := int(math.Round(float64(width) * vbH / vbW))
	if height < 1 {
		height = 1
	}

	icon.SetTarget(0, 0, float64(width), float64(height))
	rgba := image.NewRGBA(image.Rect(0, 0, width, height))
	scanner := rasterx.NewScannerGV(width, height, rgba, rgba.Bounds())
	icon.Draw(rasterx.NewDasher(width, height, scanner), 1)
	return rgba, nil
}

type pngEncoder struct{}

func (pngEncoder) Format() Format { return PNG }

func (pngEncoder) Encode(w io.Writer, img image.Image) error {
	return imaging.Encode(w, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression))
}

type jpegEncoder struct{}

func (jpegEncoder) Format() Format { return JPEG }

func (jpegEncoder) Encode(w io.Writer, img image.Image) error {
	return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(100))
}

type webpEncoder struct{}

func (webpEncoder) Format() Format { return WebP }

func (webpEncoder) Encode(w io.Writer, img image.Image) error {
	// lossless level 9 is the slowest, smallest setting
	options, err := encoder.NewLosslessEncoderOptions(encoder.PresetDefault, 9)
	if err != nil {
		return err
	}
	return webp.Encode(w, img, options)
}

type avifEncoder struct{}

func (avifEncoder) Format() Format { return AVIF }

func (avifEncoder) Encode(w io.Writer, img image.Image) error {
	return avif.Encode(w, img, avif.Options{
		Quality:           100,
		QualityAlpha:      100,
		Speed:             avif.DefaultSpeed,
		ChromaSubsampling: image.YCbCrSubsampleRatio444,
	})
}

type jxlEncoder struct{}

func (jxlEncoder) Format() Format { return JXL }

func (jxlEncoder) Encode(w io.Writer, img image.Image) error {
	return jpegxl.Encode(w, img, jpegxl.Options{
		Quality: 100,
		Effort:  jpegxl.DefaultEffort,
	})
}

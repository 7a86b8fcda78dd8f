package artifact

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"termbot/internal/progress"
)

const (
	barPadding     = 10
	barHeightRatio = 0.45
)

var (
	boldOnce sync.Once
	boldFont *opentype.Font
	boldErr  error
)

func loadBold() (*opentype.Font, error) {
	boldOnce.Do(func() {
		boldFont, boldErr = opentype.Parse(gobold.TTF)
	})
	return boldFont, boldErr
}

// Renderer draws the bar locally as PNG.
type Renderer struct {
	style Style
}

func NewRenderer(style Style) *Renderer {
	if style.FontSize <= 0 {
		style.FontSize = DefaultStyle().FontSize
	}
	return &Renderer{style: style}
}

func (r *Renderer) Produce(ctx context.Context, percentage float64, width, height int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if width <= 0 || height <= 0 {
		return nil, ErrInvalidSize
	}
	img := r.Draw(percentage, width, height)
	if err := r.label(img, progress.FormatPercent(percentage)+"%"); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// Draw paints background, filled share and remainder without the label.
func (r *Renderer) Draw(percentage float64, width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(r.style.Background), image.Point{}, draw.Src)

	pct := clampPercent(percentage)
	innerW := width - 2*barPadding
	if innerW < 1 {
		innerW = width
	}
	barH := int(float64(height) * barHeightRatio)
	if barH < 1 {
		barH = height
	}
	x0 := (width - innerW) / 2
	y0 := (height - barH) / 2
	split := x0 + int(float64(innerW)*pct/100+0.5)

	draw.Draw(img, image.Rect(x0, y0, split, y0+barH), image.NewUniform(r.style.Bar), image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(split, y0, x0+innerW, y0+barH), image.NewUniform(r.style.Remaining), image.Point{}, draw.Src)
	return img
}

func (r *Renderer) label(img *image.RGBA, text string) error {
	f, err := loadBold()
	if err != nil {
		return fmt.Errorf("load font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: r.style.FontSize, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return fmt.Errorf("font face: %w", err)
	}
	defer face.Close()

	b := img.Bounds()
	d := &font.Drawer{Dst: img, Src: image.NewUniform(r.style.Text), Face: face}
	m := face.Metrics()
	adv := d.MeasureString(text)
	d.Dot = fixed.Point26_6{
		X: (fixed.I(b.Dx()) - adv) / 2,
		Y: fixed.I(b.Dy())/2 + (m.Ascent-m.Descent)/2,
	}
	d.DrawString(text)
	return nil
}

func clampPercent(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}

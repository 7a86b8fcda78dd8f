// Package artifact produces the progress-bar image for a percentage, either
// rendered locally or fetched from a chart-rendering service.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	DriverLocal  = "local"
	DriverRemote = "remote"

	DefaultWidth  = 800
	DefaultHeight = 200
)

var ErrInvalidSize = errors.New("image width and height must be > 0")

// Producer turns a percentage into encoded image bytes.
type Producer interface {
	Produce(ctx context.Context, percentage float64, width, height int) ([]byte, error)
}

// Style is the fixed color scheme of the bar.
type Style struct {
	Bar        color.RGBA
	Remaining  color.RGBA
	Background color.RGBA
	Text       color.RGBA
	FontSize   float64
}

func DefaultStyle() Style {
	return Style{
		Bar:        color.RGBA{R: 0xff, G: 0x7f, B: 0x7f, A: 0xff},
		Remaining:  color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff},
		Background: color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff},
		Text:       color.RGBA{A: 0xff},
		FontSize:   24,
	}
}

// Config selects and configures a Producer.
type Config struct {
	Driver string
	// Endpoint and Timeout apply to the remote driver only.
	Endpoint string
	Timeout  time.Duration
	// Empty colors keep the default scheme.
	BarColor       string
	RemainingColor string
}

// New builds the Producer named by cfg.Driver (local when empty).
func New(cfg Config) (Producer, error) {
	style := DefaultStyle()
	if c := strings.TrimSpace(cfg.BarColor); c != "" {
		rgba, err := ParseHexColor(c)
		if err != nil {
			return nil, fmt.Errorf("bar color: %w", err)
		}
		style.Bar = rgba
	}
	if c := strings.TrimSpace(cfg.RemainingColor); c != "" {
		rgba, err := ParseHexColor(c)
		if err != nil {
			return nil, fmt.Errorf("remaining color: %w", err)
		}
		style.Remaining = rgba
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", DriverLocal:
		return NewRenderer(style), nil
	case DriverRemote:
		return NewFetcher(cfg.Endpoint, cfg.Timeout, style), nil
	default:
		return nil, fmt.Errorf("unknown producer driver %q", cfg.Driver)
	}
}

// WriteFile replaces the image at path, creating parent directories.
func WriteFile(path string, img []byte) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, img, 0o644)
}

// ParseHexColor parses "#rrggbb" or "#rgb".
func ParseHexColor(s string) (color.RGBA, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid hex color %q", s)
	}
	var v [3]uint8
	for i := 0; i < 3; i++ {
		hi, ok1 := hexNibble(s[2*i])
		lo, ok2 := hexNibble(s[2*i+1])
		if !ok1 || !ok2 {
			return color.RGBA{}, fmt.Errorf("invalid hex color %q", s)
		}
		v[i] = hi<<4 | lo
	}
	return color.RGBA{R: v[0], G: v[1], B: v[2], A: 0xff}, nil
}

func hexNibble(c byte) (uint8, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}

func hexString(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Package testsource provides a synthetic camera for running the recorder
// without capture hardware.
package testsource

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"time"

	"github.com/fogleman/gg"

	"github.com/user/cliprec/pkg/pipeline"
	"github.com/user/cliprec/pkg/ports"
)

// Config configures a Source.
type Config struct {
	Width  int
	Height int
	FPS    int
	Format pipeline.PixelFormat // rgb24 or rgba
	Limit  int                  // Stop after this many frames, 0 for no limit
}

// Source emits a moving test pattern with a frame counter at a fixed rate.
type Source struct {
	cfg Config
	now func() time.Time
}

// New creates a Source.
func New(cfg Config) (*Source, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("invalid resolution: %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.FPS <= 0 {
		return nil, fmt.Errorf("invalid fps: %d", cfg.FPS)
	}
	if cfg.Format == "" {
		cfg.Format = pipeline.FormatRGB24
	}
	if cfg.Format != pipeline.FormatRGB24 && cfg.Format != pipeline.FormatRGBA {
		return nil, fmt.Errorf("test source cannot produce %q", cfg.Format)
	}
	return &Source{cfg: cfg, now: time.Now}, nil
}

// Describe names the source for logs.
func (s *Source) Describe() string {
	return fmt.Sprintf("test pattern %dx%d@%d (%s)", s.cfg.Width, s.cfg.Height, s.cfg.FPS, s.cfg.Format)
}

// Run emits frames until ctx is cancelled, emit fails or Limit is reached.
func (s *Source) Run(ctx context.Context, emit func(pipeline.Frame) error) error {
	ticker := time.NewTicker(time.Second / time.Duration(s.cfg.FPS))
	defer ticker.Stop()

	dc := gg.NewContext(s.cfg.Width, s.cfg.Height)
	for seq := uint64(1); ; seq++ {
		f := pipeline.Frame{
			Data:      s.render(dc, seq),
			Format:    s.cfg.Format,
			Width:     s.cfg.Width,
			Height:    s.cfg.Height,
			Seq:       seq,
			Timestamp: s.now(),
		}
		if err := emit(f); err != nil {
			return err
		}
		if s.cfg.Limit > 0 && seq >= uint64(s.cfg.Limit) {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// render draws frame seq and returns a fresh payload buffer.
func (s *Source) render(dc *gg.Context, seq uint64) []byte {
	w := float64(s.cfg.Width)
	h := float64(s.cfg.Height)

	hue := float64(seq%360) / 360
	dc.SetColor(hsv(hue))
	dc.Clear()

	// One sweep across the frame every two seconds.
	period := uint64(s.cfg.FPS * 2)
	x := w * float64(seq%period) / float64(period)
	dc.SetColor(color.White)
	dc.DrawRectangle(x, 0, w/16+1, h)
	dc.Fill()

	dc.SetColor(color.Black)
	dc.DrawStringAnchored(fmt.Sprintf("#%06d", seq), w/2, h/2, 0.5, 0.5)

	img := dc.Image().(*image.RGBA)
	if s.cfg.Format == pipeline.FormatRGBA {
		out := make([]byte, len(img.Pix))
		copy(out, img.Pix)
		return out
	}
	return toRGB24(img)
}

func toRGB24(img *image.RGBA) []byte {
	b := img.Bounds()
	out := make([]byte, 0, b.Dx()*b.Dy()*3)
	for y := 0; y < b.Dy(); y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+b.Dx()*4]
		for x := 0; x < len(row); x += 4 {
			out = append(out, row[x], row[x+1], row[x+2])
		}
	}
	return out
}

// hsv converts a hue in [0,1) at full saturation and 80% value.
func hsv(h float64) color.RGBA {
	const v = 0.8 * 255
	i := int(h * 6)
	f := h*6 - float64(i)
	q := v * (1 - f)
	t := v * f
	var r, g, b float64
	switch i % 6 {
	case 0:
		r, g, b = v, t, 0
	case 1:
		r, g, b = q, v, 0
	case 2:
		r, g, b = 0, v, t
	case 3:
		r, g, b = 0, q, v
	case 4:
		r, g, b = t, 0, v
	default:
		r, g, b = v, 0, q
	}
	return color.RGBA{R: uint8(r), G: uint8(g), B: uint8(b), A: 255}
}

var _ ports.FrameSource = (*Source)(nil)

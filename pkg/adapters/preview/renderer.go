// Package preview renders captured frames into annotated JPEG previews
// using the gg library.
package preview

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"

	"github.com/user/cliprec/pkg/pipeline"
	"github.com/user/cliprec/pkg/ports"
)

var (
	recColor   = color.RGBA{R: 220, G: 30, B: 30, A: 255}
	panelColor = color.RGBA{A: 160}
	textColor  = color.White
)

// Renderer implements ports.PreviewRenderer.
type Renderer struct {
	scaler draw.Scaler
}

// New creates a Renderer. Scaling uses nearest-neighbour sampling, which is
// enough for a live preview and cheap at capture rate.
func New() *Renderer {
	return &Renderer{scaler: draw.NearestNeighbor}
}

// Downscale decodes frame and scales it to fit within width x height,
// keeping its aspect ratio. Frames already small enough are not enlarged.
func (r *Renderer) Downscale(frame pipeline.Frame, width, height int) (image.Image, error) {
	src, err := Decode(frame)
	if err != nil {
		return nil, err
	}
	b := src.Bounds()
	dw, dh := Fit(b.Dx(), b.Dy(), width, height)
	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	r.scaler.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst, nil
}

// Annotate draws the recording badge, the clip counter and the optional
// message on a copy of img.
func (r *Renderer) Annotate(img image.Image, overlay ports.Overlay) image.Image {
	dc := gg.NewContextForImage(img)
	w := float64(dc.Width())
	h := float64(dc.Height())

	if overlay.Recording {
		dc.SetColor(panelColor)
		dc.DrawRoundedRectangle(8, 8, 58, 22, 4)
		dc.Fill()
		dc.SetColor(recColor)
		dc.DrawCircle(20, 19, 6)
		dc.Fill()
		dc.SetColor(textColor)
		dc.DrawStringAnchored("REC", 32, 19, 0, 0.5)
	}

	clips := fmt.Sprintf("Clips: %d", overlay.Clips)
	tw, _ := dc.MeasureString(clips)
	dc.SetColor(panelColor)
	dc.DrawRoundedRectangle(w-tw-20, 8, tw+12, 22, 4)
	dc.Fill()
	dc.SetColor(textColor)
	dc.DrawStringAnchored(clips, w-14, 19, 1, 0.5)

	if overlay.Message != "" {
		dc.SetColor(panelColor)
		dc.DrawRectangle(0, h-24, w, 24)
		dc.Fill()
		dc.SetColor(textColor)
		dc.DrawStringAnchored(overlay.Message, w/2, h-12, 0.5, 0.5)
	}

	return dc.Image()
}

// EncodeJPEG encodes img as JPEG. quality is clamped to 1..100.
func (r *Renderer) EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	if quality < 1 {
		quality = 1
	} else if quality > 100 {
		quality = 100
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

// Fit returns the largest size no bigger than maxW x maxH with the aspect
// ratio of w x h. Sizes that already fit are returned unchanged.
func Fit(w, h, maxW, maxH int) (int, int) {
	if w <= 0 || h <= 0 {
		return 0, 0
	}
	if maxW <= 0 || maxH <= 0 || (w <= maxW && h <= maxH) {
		return w, h
	}
	if w*maxH > h*maxW {
		nh := h * maxW / w
		return maxW, max(nh, 1)
	}
	nw := w * maxH / h
	return max(nw, 1), maxH
}

var _ ports.PreviewRenderer = (*Renderer)(nil)

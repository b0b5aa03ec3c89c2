package router

import (
	"context"
	"image"
	"sync/atomic"
	"time"

	"github.com/user/cliprec/pkg/pipeline"
	"github.com/user/cliprec/pkg/ports"
)

// Default preview geometry.
const (
	DefaultPreviewWidth  = 854
	DefaultPreviewHeight = 480
	previewJPEGQuality   = 80
)

// PreviewImage is a rendered preview frame.
type PreviewImage struct {
	Seq     uint64
	Image   image.Image
	JPEG    []byte
	Updated time.Time
}

// Preview derives display images from frames on its own goroutine.
type Preview struct {
	renderer ports.PreviewRenderer
	width    int
	height   int
	overlay  func() ports.Overlay
	log      ports.Logger

	slot   chan pipeline.Frame
	latest atomic.Pointer[PreviewImage]
}

// NewPreview creates a preview worker. overlay is called once per rendered
// frame to obtain the status to draw; it may be nil.
func NewPreview(renderer ports.PreviewRenderer, width, height int, overlay func() ports.Overlay, log ports.Logger) *Preview {
	if width <= 0 || height <= 0 {
		width, height = DefaultPreviewWidth, DefaultPreviewHeight
	}
	return &Preview{
		renderer: renderer,
		width:    width,
		height:   height,
		overlay:  overlay,
		log:      log.WithComponent("preview"),
		slot:     make(chan pipeline.Frame, 1),
	}
}

// Offer hands a copy of f to the worker if it is idle. It never blocks and
// only copies the payload when the copy will be accepted.
// Offer must be called from a single goroutine.
func (p *Preview) Offer(f pipeline.Frame) bool {
	if len(p.slot) == cap(p.slot) {
		return false
	}
	cp := f
	cp.Data = append([]byte(nil), f.Data...)
	select {
	case p.slot <- cp:
		return true
	default:
		return false
	}
}

// Run renders offered frames until ctx is cancelled.
func (p *Preview) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case f := <-p.slot:
			p.render(f)
		}
	}
}

func (p *Preview) render(f pipeline.Frame) {
	img, err := p.renderer.Downscale(f, p.width, p.height)
	if err != nil {
		p.log.Debug("Preview decode failed for frame %d: %v", f.Seq, err)
		return
	}
	if p.overlay != nil {
		img = p.renderer.Annotate(img, p.overlay())
	}
	data, err := p.renderer.EncodeJPEG(img, previewJPEGQuality)
	if err != nil {
		p.log.Debug("Preview encode failed for frame %d: %v", f.Seq, err)
		return
	}
	p.latest.Store(&PreviewImage{
		Seq:     f.Seq,
		Image:   img,
		JPEG:    data,
		Updated: time.Now(),
	})
}

// Latest returns the most recently rendered preview.
func (p *Preview) Latest() (*PreviewImage, bool) {
	img := p.latest.Load()
	return img, img != nil
}

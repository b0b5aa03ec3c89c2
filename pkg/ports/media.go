package ports

import (
	"context"
	"image"
	"time"

	"github.com/user/cliprec/pkg/pipeline"
)

// Concatenator joins media files without re-encoding.
type Concatenator interface {
	// Concat reads the manifest at manifestPath and writes the joined
	// stream to outputPath.
	Concat(ctx context.Context, manifestPath, outputPath string) error
}

// DurationProber reads the playback duration of a media file.
type DurationProber interface {
	Probe(path string) (time.Duration, error)
}

// PreviewRenderer turns raw frames into display images.
type PreviewRenderer interface {
	// Downscale decodes frame and scales it to fit within width x height.
	Downscale(frame pipeline.Frame, width, height int) (image.Image, error)

	// Annotate draws the recording overlay on a copy of img.
	Annotate(img image.Image, overlay Overlay) image.Image

	// EncodeJPEG encodes img for transport.
	EncodeJPEG(img image.Image, quality int) ([]byte, error)
}

// Overlay describes the status drawn over the preview.
type Overlay struct {
	Recording bool
	Clips     int
	Message   string // Optional footer text, e.g. the saved output path
}

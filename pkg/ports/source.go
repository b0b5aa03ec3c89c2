package ports

import (
	"context"

	"github.com/user/cliprec/pkg/pipeline"
)

// FrameSource abstracts a capture device.
type FrameSource interface {
	// Run captures frames until ctx is cancelled or the device fails,
	// calling emit once per frame in capture order from a single goroutine.
	// Ownership of frame.Data passes to emit.
	// If emit returns an error, Run stops and returns it.
	Run(ctx context.Context, emit func(pipeline.Frame) error) error

	// Describe returns a human-readable description of the source.
	Describe() string
}

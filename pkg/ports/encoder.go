package ports

import (
	"context"

	"github.com/user/cliprec/pkg/pipeline"
)

// SegmentEncoder starts one encoder per segment.
type SegmentEncoder interface {
	// Open starts an encoder writing to outputPath and returns its input sink.
	// Errors wrap pipeline.ErrEncoderSpawn.
	Open(ctx context.Context, cfg pipeline.EncoderConfig, outputPath string) (EncoderSink, error)
}

// EncoderSink is the input side of one running encoder.
// It is used by a single goroutine; calls must not overlap.
type EncoderSink interface {
	// Write streams one frame payload to the encoder in capture order.
	// Errors wrap pipeline.ErrEncoderWrite.
	Write(data []byte) error

	// Close flushes buffered input, signals end of stream and waits for the
	// encoder to exit. A nil return means the output file is complete.
	// Errors wrap pipeline.ErrEncoderFailure or pipeline.ErrEncoderWrite.
	Close(ctx context.Context) error

	// Abort stops the encoder without finalizing and removes its output.
	Abort() error
}

// Command describes an external process invocation.
type Command struct {
	Path string
	Args []string
	Env  []string // Extra environment, appended to the parent environment
}

// CommandBuilder maps a segment configuration to the encoder invocation.
type CommandBuilder interface {
	EncodeCommand(cfg pipeline.EncoderConfig, outputPath string) (Command, error)
}

// CommandBuilderFunc is a function adapter for CommandBuilder.
type CommandBuilderFunc func(cfg pipeline.EncoderConfig, outputPath string) (Command, error)

// EncodeCommand implements CommandBuilder.
func (f CommandBuilderFunc) EncodeCommand(cfg pipeline.EncoderConfig, outputPath string) (Command, error) {
	return f(cfg, outputPath)
}

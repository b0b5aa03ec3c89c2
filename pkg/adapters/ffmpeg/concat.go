package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/user/cliprec/pkg/ports"
	"github.com/user/cliprec/pkg/supervisor"
)

// Concatenator implements ports.Concatenator with the ffmpeg concat demuxer.
type Concatenator struct {
	builder *Builder
	log     ports.Logger
}

// NewConcatenator creates a Concatenator using the builder's ffmpeg binary.
func NewConcatenator(builder *Builder, log ports.Logger) *Concatenator {
	return &Concatenator{
		builder: builder,
		log:     log.WithComponent("ffmpeg"),
	}
}

// Concat runs ffmpeg to join the manifest entries into outputPath.
func (c *Concatenator) Concat(ctx context.Context, manifestPath, outputPath string) error {
	path, err := c.builder.binary()
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, path, ConcatArgs(manifestPath, outputPath)...)
	stderr := supervisor.NewTailBuffer(supervisor.DefaultStderrTail)
	cmd.Stderr = stderr

	c.log.Debug("Running %s %v", path, cmd.Args[1:])
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg concat: %w%s", err, stderr.Suffix())
	}
	return nil
}

var _ ports.Concatenator = (*Concatenator)(nil)

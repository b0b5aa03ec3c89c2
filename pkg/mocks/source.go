package mocks

import (
	"context"

	"github.com/user/cliprec/pkg/pipeline"
	"github.com/user/cliprec/pkg/ports"
)

// FrameSource is a mock implementation of ports.FrameSource.
// Run emits Frames in order. It then returns Err if set, or blocks until
// ctx is cancelled.
type FrameSource struct {
	Frames  []pipeline.Frame
	Err     error
	RunFunc func(ctx context.Context, emit func(pipeline.Frame) error) error
}

func (m *FrameSource) Run(ctx context.Context, emit func(pipeline.Frame) error) error {
	if m.RunFunc != nil {
		return m.RunFunc(ctx, emit)
	}
	for _, f := range m.Frames {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := emit(f); err != nil {
			return err
		}
	}
	if m.Err != nil {
		return m.Err
	}
	<-ctx.Done()
	return ctx.Err()
}

func (m *FrameSource) Describe() string {
	return "mock source"
}

var _ ports.FrameSource = (*FrameSource)(nil)

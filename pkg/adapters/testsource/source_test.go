package testsource

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/user/cliprec/pkg/pipeline"
)

func TestSource_EmitsSequencedFrames(t *testing.T) {
	src, err := New(Config{Width: 32, Height: 24, FPS: 200, Limit: 5})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	var frames []pipeline.Frame
	err = src.Run(context.Background(), func(f pipeline.Frame) error {
		frames = append(frames, f)
		return nil
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(frames) != 5 {
		t.Fatalf("expected 5 frames, got %d", len(frames))
	}
	for i, f := range frames {
		if f.Seq != uint64(i+1) {
			t.Errorf("frame %d: expected seq %d, got %d", i, i+1, f.Seq)
		}
		if len(f.Data) != pipeline.FormatRGB24.FrameSize(32, 24) {
			t.Errorf("frame %d: unexpected payload size %d", i, len(f.Data))
		}
		if f.Format != pipeline.FormatRGB24 {
			t.Errorf("frame %d: unexpected format %s", i, f.Format)
		}
	}
	if &frames[0].Data[0] == &frames[1].Data[0] {
		t.Error("frames share a payload buffer")
	}
}

func TestSource_RGBA(t *testing.T) {
	src, err := New(Config{Width: 8, Height: 8, FPS: 100, Format: pipeline.FormatRGBA, Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	err = src.Run(context.Background(), func(f pipeline.Frame) error {
		if len(f.Data) != 8*8*4 {
			t.Errorf("unexpected payload size %d", len(f.Data))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
}

func TestSource_StopsOnCancel(t *testing.T) {
	src, _ := New(Config{Width: 8, Height: 8, FPS: 100})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := src.Run(ctx, func(pipeline.Frame) error { return nil })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestSource_EmitError(t *testing.T) {
	src, _ := New(Config{Width: 8, Height: 8, FPS: 100})
	boom := errors.New("boom")
	if err := src.Run(context.Background(), func(pipeline.Frame) error { return boom }); !errors.Is(err, boom) {
		t.Errorf("expected emit error, got %v", err)
	}
}

func TestNew_Validation(t *testing.T) {
	for _, cfg := range []Config{
		{Width: 0, Height: 8, FPS: 30},
		{Width: 8, Height: 8, FPS: 0},
		{Width: 8, Height: 8, FPS: 30, Format: pipeline.FormatNV12},
	} {
		if _, err := New(cfg); err == nil {
			t.Errorf("expected error for %+v", cfg)
		}
	}
}

func TestHSV(t *testing.T) {
	if c := hsv(0); c.R != 204 || c.G != 0 || c.B != 0 {
		t.Errorf("hue 0: expected red, got %v", c)
	}
	if c := hsv(0.5); c.R != 0 || c.G != 204 || c.B != 204 {
		t.Errorf("hue 0.5: expected cyan, got %v", c)
	}
}

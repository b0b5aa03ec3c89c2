package router

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/user/cliprec/pkg/adapters/logger"
	"github.com/user/cliprec/pkg/mocks"
	"github.com/user/cliprec/pkg/pipeline"
	"github.com/user/cliprec/pkg/ports"
)

type testGate struct {
	take atomic.Uint64
}

func (g *testGate) Take() uint64 { return g.take.Load() }

func newGate(on bool) *testGate {
	g := &testGate{}
	if on {
		g.take.Store(1)
	}
	return g
}

func frame(seq uint64) pipeline.Frame {
	return pipeline.Frame{
		Data:      []byte{byte(seq), 1, 2, 3},
		Format:    pipeline.FormatRGB24,
		Width:     2,
		Height:    1,
		Seq:       seq,
		Timestamp: time.Unix(0, int64(seq)*int64(time.Second/30)),
	}
}

func TestRouter_ForwardsWhileRecording(t *testing.T) {
	out := make(chan pipeline.Frame, 4)
	r := New(out, newGate(true), nil, Options{}, logger.NewNoop())

	f := frame(1)
	if err := r.Route(context.Background(), f); err != nil {
		t.Fatalf("Route failed: %v", err)
	}

	got := <-out
	if got.Seq != 1 {
		t.Errorf("expected seq 1, got %d", got.Seq)
	}
	if got.Take != 1 {
		t.Errorf("expected frame stamped with take 1, got %d", got.Take)
	}
	if &got.Data[0] != &f.Data[0] {
		t.Error("expected the recording path to receive the original buffer")
	}
	if s := r.Stats(); s.Routed != 1 {
		t.Errorf("expected 1 routed, got %d", s.Routed)
	}
}

func TestRouter_IdleDoesNotForward(t *testing.T) {
	out := make(chan pipeline.Frame, 4)
	r := New(out, newGate(false), nil, Options{}, logger.NewNoop())

	if err := r.Route(context.Background(), frame(1)); err != nil {
		t.Fatalf("Route failed: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("expected no frames forwarded while idle, got %d", len(out))
	}
}

func TestRouter_RejectsOutOfOrder(t *testing.T) {
	out := make(chan pipeline.Frame, 4)
	r := New(out, newGate(true), nil, Options{}, logger.NewNoop())
	ctx := context.Background()

	r.Route(ctx, frame(5))
	for _, seq := range []uint64{5, 3} {
		err := r.Route(ctx, frame(seq))
		if !errors.Is(err, pipeline.ErrOutOfOrder) {
			t.Errorf("seq %d: expected ErrOutOfOrder, got %v", seq, err)
		}
	}
	if err := r.Route(ctx, frame(6)); err != nil {
		t.Errorf("expected seq 6 to be accepted, got %v", err)
	}

	s := r.Stats()
	if s.OutOfOrder != 2 {
		t.Errorf("expected 2 out-of-order, got %d", s.OutOfOrder)
	}
	if s.Routed != 2 {
		t.Errorf("expected 2 routed, got %d", s.Routed)
	}
}

func TestRouter_StalledRecorderDropsAfterBound(t *testing.T) {
	out := make(chan pipeline.Frame, 1)
	maxBlock := 50 * time.Millisecond
	r := New(out, newGate(true), nil, Options{MaxBlock: maxBlock}, logger.NewNoop())
	ctx := context.Background()

	if err := r.Route(ctx, frame(1)); err != nil {
		t.Fatalf("first frame should fill the buffer: %v", err)
	}

	start := time.Now()
	err := r.Route(ctx, frame(2))
	elapsed := time.Since(start)

	if !errors.Is(err, pipeline.ErrFrameDropped) {
		t.Fatalf("expected ErrFrameDropped, got %v", err)
	}
	if elapsed < maxBlock {
		t.Errorf("expected Route to block for at least %v, took %v", maxBlock, elapsed)
	}
	if elapsed > 2*time.Second {
		t.Errorf("expected Route to return promptly after the bound, took %v", elapsed)
	}
	if s := r.Stats(); s.Dropped != 1 {
		t.Errorf("expected 1 dropped, got %d", s.Dropped)
	}
}

func TestRouter_BlockedSendDeliveredWhenDrained(t *testing.T) {
	out := make(chan pipeline.Frame, 1)
	r := New(out, newGate(true), nil, Options{MaxBlock: 2 * time.Second}, logger.NewNoop())
	ctx := context.Background()
	r.Route(ctx, frame(1))

	go func() {
		time.Sleep(20 * time.Millisecond)
		<-out
	}()

	if err := r.Route(ctx, frame(2)); err != nil {
		t.Fatalf("expected frame to be delivered once drained, got %v", err)
	}
	if got := <-out; got.Seq != 2 {
		t.Errorf("expected seq 2, got %d", got.Seq)
	}
}

func TestRouter_PreviewGetsIndependentCopy(t *testing.T) {
	preview := NewPreview(&mocks.PreviewRenderer{}, 0, 0, nil, logger.NewNoop())
	out := make(chan pipeline.Frame, 1)
	r := New(out, newGate(true), preview, Options{}, logger.NewNoop())

	f := frame(1)
	if err := r.Route(context.Background(), f); err != nil {
		t.Fatalf("Route failed: %v", err)
	}

	recorded := <-out
	copied := <-preview.slot

	if &copied.Data[0] == &recorded.Data[0] {
		t.Fatal("expected preview copy not to alias the recorded buffer")
	}
	recorded.Data[0] = 0xFF
	if copied.Data[0] == 0xFF {
		t.Error("mutating the recorded frame changed the preview copy")
	}
}

func TestRouter_PreviewBusyIsDroppedNotBlocking(t *testing.T) {
	preview := NewPreview(&mocks.PreviewRenderer{}, 0, 0, nil, logger.NewNoop())
	out := make(chan pipeline.Frame, 4)
	r := New(out, newGate(false), preview, Options{}, logger.NewNoop())
	ctx := context.Background()

	// Worker not running: the first frame fills the slot, the rest are skipped
	for seq := uint64(1); seq <= 3; seq++ {
		if err := r.Route(ctx, frame(seq)); err != nil {
			t.Fatalf("Route %d failed: %v", seq, err)
		}
	}
	if s := r.Stats(); s.PreviewDropped != 2 {
		t.Errorf("expected 2 preview drops, got %d", s.PreviewDropped)
	}
}

func TestPreview_RunRendersLatest(t *testing.T) {
	renderer := &mocks.PreviewRenderer{}
	clips := 0
	preview := NewPreview(renderer, 64, 36, func() ports.Overlay {
		clips++
		return ports.Overlay{Recording: true, Clips: clips}
	}, logger.NewNoop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		preview.Run(ctx)
		close(done)
	}()

	if !preview.Offer(frame(7)) {
		t.Fatal("expected idle preview to accept a frame")
	}

	deadline := time.Now().Add(2 * time.Second)
	var img *PreviewImage
	for time.Now().Before(deadline) {
		if latest, ok := preview.Latest(); ok {
			img = latest
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	if img == nil {
		t.Fatal("expected a rendered preview")
	}
	if img.Seq != 7 {
		t.Errorf("expected seq 7, got %d", img.Seq)
	}
	if b := img.Image.Bounds(); b.Dx() != 64 || b.Dy() != 36 {
		t.Errorf("expected 64x36 preview, got %dx%d", b.Dx(), b.Dy())
	}
	if len(img.JPEG) == 0 {
		t.Error("expected encoded JPEG bytes")
	}
	if len(renderer.Overlays) != 1 || !renderer.Overlays[0].Recording {
		t.Errorf("expected one recording overlay, got %+v", renderer.Overlays)
	}
}

func TestRouter_RunRoutesSourceFrames(t *testing.T) {
	out := make(chan pipeline.Frame, 8)
	r := New(out, newGate(true), nil, Options{}, logger.NewNoop())
	srcErr := errors.New("device unplugged")
	src := &mocks.FrameSource{
		Frames: []pipeline.Frame{frame(1), frame(2), frame(2), frame(3)},
		Err:    srcErr,
	}

	err := r.Run(context.Background(), src)
	if !errors.Is(err, pipeline.ErrCapture) {
		t.Fatalf("expected ErrCapture, got %v", err)
	}

	if len(out) != 3 {
		t.Errorf("expected 3 routed frames, got %d", len(out))
	}
	if s := r.Stats(); s.OutOfOrder != 1 {
		t.Errorf("expected 1 out-of-order, got %d", s.OutOfOrder)
	}
}

func TestRouter_RunStopsOnCancel(t *testing.T) {
	out := make(chan pipeline.Frame, 1)
	r := New(out, newGate(false), nil, Options{}, logger.NewNoop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- r.Run(ctx, &mocks.FrameSource{Frames: []pipeline.Frame{frame(1)}})
	}()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRouter_StampsCurrentTake(t *testing.T) {
	out := make(chan pipeline.Frame, 4)
	gate := newGate(true)
	r := New(out, gate, nil, Options{}, logger.NewNoop())

	if err := r.Route(context.Background(), frame(1)); err != nil {
		t.Fatal(err)
	}
	gate.take.Store(2)
	if err := r.Route(context.Background(), frame(2)); err != nil {
		t.Fatal(err)
	}

	if got := <-out; got.Take != 1 {
		t.Errorf("frame 1: take = %d, want 1", got.Take)
	}
	if got := <-out; got.Take != 2 {
		t.Errorf("frame 2: take = %d, want 2", got.Take)
	}
}

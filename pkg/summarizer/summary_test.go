package summarizer

import (
	"testing"
	"time"

	"github.com/user/cliprec/pkg/mocks"
	"github.com/user/cliprec/pkg/pipeline"
)

func TestNewSummary(t *testing.T) {
	before := time.Now()
	summary := NewSummary()
	after := time.Now()

	if summary.GeneratedAt.Before(before) || summary.GeneratedAt.After(after) {
		t.Errorf("GeneratedAt should be between %v and %v, got %v",
			before, after, summary.GeneratedAt)
	}
}

func TestBuilder_WithEncoder(t *testing.T) {
	summary := NewBuilder().
		WithEncoder("test", pipeline.DefaultEncoderConfig()).
		Build()

	want := Settings{
		Source: "test", Width: 640, Height: 480, FPS: 30,
		Format: "mjpeg", Quality: "medium", Speed: "balanced", HWAccel: "none",
	}
	if summary.Settings != want {
		t.Errorf("expected %+v, got %+v", want, summary.Settings)
	}
}

func TestBuilder_WithClips(t *testing.T) {
	summary := NewBuilder().
		WithClips([]pipeline.Segment{
			{ID: 1, FrameCount: 60, Duration: 2 * time.Second},
			{ID: 3, FrameCount: 15, Duration: 500 * time.Millisecond},
		}).
		Build()

	if len(summary.Clips) != 2 || summary.Clips[1].ID != 3 {
		t.Fatalf("unexpected clips %+v", summary.Clips)
	}
	if summary.TotalFrames() != 75 {
		t.Errorf("expected 75 frames, got %d", summary.TotalFrames())
	}
	if summary.TotalDuration() != 2500*time.Millisecond {
		t.Errorf("expected 2.5s, got %v", summary.TotalDuration())
	}
}

func TestSessionInfo_Elapsed(t *testing.T) {
	start := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	if d := (SessionInfo{StartedAt: start, FinishedAt: start.Add(90 * time.Second)}).Elapsed(); d != 90*time.Second {
		t.Errorf("expected 90s, got %v", d)
	}
	if d := (SessionInfo{FinishedAt: start}).Elapsed(); d != 0 {
		t.Errorf("expected 0 without start, got %v", d)
	}
}

func TestWriter_Write(t *testing.T) {
	fs := mocks.NewFileSystem()
	w := NewWriter(FormatFunc(func(s *Summary) string { return "summary " + s.Session.ID }), fs)

	summary := NewBuilder().WithSession(SessionInfo{ID: "abc"}).Build()
	if err := w.Write("/reports/session.md", summary); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	data, ok := fs.GetFile("/reports/session.md")
	if !ok {
		t.Fatal("summary not written")
	}
	if string(data) != "summary abc" {
		t.Errorf("unexpected content %q", data)
	}
}

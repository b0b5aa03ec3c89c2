package journal

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/user/cliprec/pkg/adapters/logger"
	"github.com/user/cliprec/pkg/mocks"
	"github.com/user/cliprec/pkg/pipeline"
)

func TestSaveAndLoad(t *testing.T) {
	fs := mocks.NewFileSystem()
	dir := "/tmp/session"

	j := &Journal{
		SessionID: "6f1c2a9e-8d7b-4f3a-9c1e-2b5d7a8e9f01",
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Output:    "output.mp4",
		Encoder:   EncoderFrom(pipeline.DefaultEncoderConfig()),
		NextID:    2,
		Segments: []Entry{
			EntryFrom(pipeline.Segment{ID: 0, Path: filepath.Join(dir, SegmentFile(0)), FrameCount: 60, Duration: 2 * time.Second}),
			EntryFrom(pipeline.Segment{ID: 1, Path: filepath.Join(dir, SegmentFile(1)), FrameCount: 30, Duration: time.Second}),
		},
	}

	if err := Save(fs, dir, j); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := Load(fs, dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if got.SessionID != j.SessionID {
		t.Errorf("expected session %s, got %s", j.SessionID, got.SessionID)
	}
	if got.NextID != 2 {
		t.Errorf("expected next id 2, got %d", got.NextID)
	}
	if len(got.Segments) != 2 || got.Segments[1].File != "segment_001.mp4" {
		t.Fatalf("unexpected segments: %+v", got.Segments)
	}
	if got.TotalDuration() != 3*time.Second {
		t.Errorf("expected 3s total, got %v", got.TotalDuration())
	}
	if got.Encoder.Config() != pipeline.DefaultEncoderConfig() {
		t.Errorf("encoder config did not survive the journal: %+v", got.Encoder)
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(mocks.NewFileSystem(), "/nowhere")
	if !errors.Is(err, ErrNoJournal) {
		t.Errorf("expected ErrNoJournal, got %v", err)
	}
}

func TestRecover(t *testing.T) {
	fs := mocks.NewFileSystem()
	dir := "/tmp/session"

	// Two finalized segments, one of which vanished, plus one in-progress file
	fs.WriteFile(filepath.Join(dir, SegmentFile(0)), []byte("seg0"))
	fs.WriteFile(filepath.Join(dir, SegmentFile(2)), []byte("partial"))

	j := &Journal{
		SessionID: "s",
		NextID:    2,
		Segments: []Entry{
			{ID: 0, File: SegmentFile(0), DurationMs: 2000},
			{ID: 1, File: SegmentFile(1), DurationMs: 1000},
		},
	}
	if err := Save(fs, dir, j); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	res, err := Recover(fs, dir, logger.NewNoop())
	if err != nil {
		t.Fatalf("Recover failed: %v", err)
	}

	if len(res.Journal.Segments) != 1 || res.Journal.Segments[0].ID != 0 {
		t.Errorf("expected only segment 0 to survive, got %+v", res.Journal.Segments)
	}
	if len(res.Missing) != 1 || res.Missing[0] != filepath.Join(dir, SegmentFile(1)) {
		t.Errorf("expected segment 1 reported missing, got %v", res.Missing)
	}
	if len(res.Removed) != 1 || res.Removed[0] != filepath.Join(dir, SegmentFile(2)) {
		t.Errorf("expected segment 2 removed, got %v", res.Removed)
	}
	if _, ok := fs.GetFile(filepath.Join(dir, SegmentFile(0))); !ok {
		t.Error("journaled segment must not be touched")
	}
	if paths := res.Journal.Paths(dir); len(paths) != 1 || paths[0] != filepath.Join(dir, SegmentFile(0)) {
		t.Errorf("unexpected paths %v", paths)
	}
}

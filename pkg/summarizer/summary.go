// Package summarizer provides summary generation for recording sessions.
package summarizer

import (
	"time"

	"github.com/user/cliprec/pkg/pipeline"
)

// Summary contains all data collected during a recording session.
type Summary struct {
	// Metadata
	GeneratedAt time.Time

	Session  SessionInfo
	Settings Settings
	Clips    []ClipInfo
	Capture  CaptureInfo
	Video    VideoInfo
}

// SessionInfo identifies the session and how it ended.
type SessionInfo struct {
	ID         string
	Dir        string
	State      string
	Reason     string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Elapsed returns the wall-clock length of the session.
func (s SessionInfo) Elapsed() time.Duration {
	if s.StartedAt.IsZero() || s.FinishedAt.Before(s.StartedAt) {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// Settings contains the recording configuration.
type Settings struct {
	Source  string
	Width   int
	Height  int
	FPS     int
	Format  string
	Quality string
	Speed   string
	HWAccel string
}

// ClipInfo describes one saved clip.
type ClipInfo struct {
	ID       int
	Frames   int
	Duration time.Duration
}

// CaptureInfo contains frame flow counters.
type CaptureInfo struct {
	Routed         uint64
	Dropped        uint64 // Recorder blocked past the backpressure bound
	PreviewSkipped uint64
	OutOfOrder     uint64
	Written        uint64
	Discarded      uint64 // Arrived while no clip was recording
}

// VideoInfo contains information about the output video.
type VideoInfo struct {
	Path     string
	Duration time.Duration
	FileSize int64
	Codec    string
}

// TotalFrames sums the frames of all clips.
func (s *Summary) TotalFrames() int {
	n := 0
	for _, c := range s.Clips {
		n += c.Frames
	}
	return n
}

// TotalDuration sums the durations of all clips.
func (s *Summary) TotalDuration() time.Duration {
	var d time.Duration
	for _, c := range s.Clips {
		d += c.Duration
	}
	return d
}

// NewSummary creates a new Summary with the current timestamp.
func NewSummary() *Summary {
	return &Summary{
		GeneratedAt: time.Now(),
	}
}

// Builder provides a fluent interface for building a Summary.
type Builder struct {
	summary *Summary
}

// NewBuilder creates a new Builder.
func NewBuilder() *Builder {
	return &Builder{
		summary: NewSummary(),
	}
}

// WithSession sets session information.
func (b *Builder) WithSession(info SessionInfo) *Builder {
	b.summary.Session = info
	return b
}

// WithEncoder sets the recording settings from the encoder configuration.
func (b *Builder) WithEncoder(source string, cfg pipeline.EncoderConfig) *Builder {
	b.summary.Settings = Settings{
		Source:  source,
		Width:   cfg.Width,
		Height:  cfg.Height,
		FPS:     cfg.FPS,
		Format:  string(cfg.InputFormat),
		Quality: string(cfg.Quality),
		Speed:   string(cfg.Speed),
		HWAccel: string(cfg.HWAccel),
	}
	return b
}

// WithClips sets the clip list from the playlist.
func (b *Builder) WithClips(playlist []pipeline.Segment) *Builder {
	clips := make([]ClipInfo, 0, len(playlist))
	for _, seg := range playlist {
		clips = append(clips, ClipInfo{ID: seg.ID, Frames: seg.FrameCount, Duration: seg.Duration})
	}
	b.summary.Clips = clips
	return b
}

// WithCapture sets the frame flow counters.
func (b *Builder) WithCapture(info CaptureInfo) *Builder {
	b.summary.Capture = info
	return b
}

// WithVideo sets video output information.
func (b *Builder) WithVideo(video VideoInfo) *Builder {
	b.summary.Video = video
	return b
}

// Build returns the constructed Summary.
func (b *Builder) Build() *Summary {
	return b.summary
}

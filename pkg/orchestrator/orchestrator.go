// Package orchestrator wires a capture source, the frame router, the preview
// worker, the segment recorder and the control surface into one session.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/user/cliprec/pkg/control"
	"github.com/user/cliprec/pkg/pipeline"
	"github.com/user/cliprec/pkg/ports"
	"github.com/user/cliprec/pkg/recorder"
	"github.com/user/cliprec/pkg/router"
)

// Config contains all configuration for a recording session.
type Config struct {
	// Output
	OutputPath string
	SessionDir string // Defaults to a hidden directory beside the output

	// Encoding
	Encoder      pipeline.EncoderConfig
	CloseTimeout time.Duration

	// Frame flow
	FrameBuffer int
	MaxBlock    time.Duration

	// Preview
	PreviewWidth  int
	PreviewHeight int

	// Control surface; empty Listen disables it
	Listen string
	Linger time.Duration // Keep serving after finish so clients see the result
	Debug  bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Encoder:       pipeline.DefaultEncoderConfig(),
		CloseTimeout:  recorder.DefaultCloseTimeout,
		FrameBuffer:   recorder.DefaultFrameBuffer,
		MaxBlock:      router.DefaultMaxBlock,
		PreviewWidth:  router.DefaultPreviewWidth,
		PreviewHeight: router.DefaultPreviewHeight,
		Listen:        control.DefaultAddr,
		Linger:        time.Second,
	}
}

// Driver issues control events for a session, for example a key listener
// or a scripted test. It runs until ctx is cancelled.
type Driver func(ctx context.Context, rec *recorder.Recorder) error

// Orchestrator runs recording sessions.
type Orchestrator struct {
	source   ports.FrameSource
	encoder  ports.SegmentEncoder
	stitcher recorder.Stitcher
	renderer ports.PreviewRenderer
	prober   ports.DurationProber
	fs       ports.FileSystem
	logger   ports.Logger
}

// New creates a new Orchestrator. renderer and prober may be nil, which
// disables the preview and duration probing.
func New(
	source ports.FrameSource,
	encoder ports.SegmentEncoder,
	stitcher recorder.Stitcher,
	renderer ports.PreviewRenderer,
	prober ports.DurationProber,
	fs ports.FileSystem,
	logger ports.Logger,
) *Orchestrator {
	return &Orchestrator{
		source:   source,
		encoder:  encoder,
		stitcher: stitcher,
		renderer: renderer,
		prober:   prober,
		fs:       fs,
		logger:   logger,
	}
}

// RunResult describes a finished, failed or interrupted session.
type RunResult struct {
	SessionID  string
	SessionDir string
	OutputPath string // Set when the video was saved
	State      pipeline.State
	Reason     string
	Playlist   []pipeline.Segment
	Duration   time.Duration
	FileSize   int64

	Router   router.Stats
	Recorder recorder.Stats

	StartedAt  time.Time
	FinishedAt time.Time
}

// Run records one session. It returns when the video has been saved, a
// fatal storage error occurs or ctx is cancelled. On cancellation finalized
// segments stay in the session directory for recovery and ctx.Err() is
// returned.
func (o *Orchestrator) Run(ctx context.Context, config Config, drivers ...Driver) (RunResult, error) {
	if config.OutputPath == "" {
		return RunResult{}, fmt.Errorf("no output path")
	}
	// Paths end up in the concat manifest, which ffmpeg resolves against
	// the manifest's own directory, so everything is made absolute here.
	output, err := filepath.Abs(config.OutputPath)
	if err != nil {
		return RunResult{}, fmt.Errorf("resolve output path: %w", err)
	}
	config.OutputPath = output

	sessionID := uuid.NewString()
	dir := config.SessionDir
	autoDir := dir == ""
	if autoDir {
		dir = filepath.Join(filepath.Dir(config.OutputPath), ".cliprec-"+sessionID[:8])
	} else if dir, err = filepath.Abs(dir); err != nil {
		return RunResult{}, fmt.Errorf("resolve session dir: %w", err)
	}

	rec, err := recorder.New(o.encoder, o.stitcher, o.fs, recorder.Options{
		Dir:          dir,
		OutputPath:   config.OutputPath,
		Encoder:      config.Encoder,
		SessionID:    sessionID,
		FrameBuffer:  config.FrameBuffer,
		CloseTimeout: config.CloseTimeout,
		Prober:       o.prober,
	}, o.logger)
	if err != nil {
		return RunResult{}, err
	}

	var preview *router.Preview
	if o.renderer != nil {
		preview = router.NewPreview(o.renderer, config.PreviewWidth, config.PreviewHeight,
			func() ports.Overlay { return overlayFor(rec.Snapshot()) }, o.logger)
	}
	rt := router.New(rec.Frames(), rec, preview, router.Options{MaxBlock: config.MaxBlock}, o.logger)

	o.logger.Info("Recording %s to %s", config.Encoder, config.OutputPath)
	result := RunResult{SessionID: sessionID, SessionDir: dir, StartedAt: time.Now()}

	workCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	var wg sync.WaitGroup
	spawn := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(workCtx); err != nil && workCtx.Err() == nil {
				o.logger.Warn("%s stopped: %v", name, err)
			}
		}()
	}

	recErr := make(chan error, 1)
	go func() {
		recErr <- rec.Run(workCtx)
	}()

	spawn("capture", func(ctx context.Context) error {
		err := rt.Run(ctx, o.source)
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			err = fmt.Errorf("%w: source ended", pipeline.ErrCapture)
		}
		rec.ReportFailure(err)
		return err
	})
	if preview != nil {
		spawn("preview", preview.Run)
	}
	var srv *control.Server
	if config.Listen != "" {
		srv = control.New(rec, preview, control.Options{Addr: config.Listen, Debug: config.Debug}, o.logger)
		spawn("control", srv.Run)
	}
	for _, d := range drivers {
		spawn("driver", func(ctx context.Context) error { return d(ctx, rec) })
	}

	runErr := <-recErr
	snap := rec.Snapshot()

	if snap.State == pipeline.StateFinished && srv != nil && config.Linger > 0 {
		select {
		case <-time.After(config.Linger):
		case <-ctx.Done():
		}
	}
	cancel()
	wg.Wait()

	result.FinishedAt = time.Now()
	result.State = snap.State
	result.Reason = snap.Reason
	result.Playlist = snap.Playlist
	result.Duration = snap.TotalDuration()
	result.Router = rt.Stats()
	result.Recorder = rec.Stats()

	switch {
	case runErr == nil:
		result.OutputPath = snap.OutputPath
		if size, err := o.fs.Size(snap.OutputPath); err == nil {
			result.FileSize = size
		}
		if autoDir {
			if err := o.fs.Remove(dir); err != nil {
				o.logger.Debug("Session directory %s not removed: %v", dir, err)
			}
		}
		return result, nil
	case errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded):
		if len(snap.Playlist) > 0 {
			o.logger.Warn("Session interrupted: %d segments kept in %s", len(snap.Playlist), dir)
		}
		return result, runErr
	default:
		return result, runErr
	}
}

// overlayFor derives the preview overlay from a snapshot.
func overlayFor(s pipeline.Snapshot) ports.Overlay {
	ov := ports.Overlay{Recording: s.Recording(), Clips: len(s.Playlist)}
	switch {
	case s.State == pipeline.StateErrored:
		ov.Message = s.Reason
	case s.State == pipeline.StateFinishing:
		ov.Message = "Saving..."
	case s.Notice == pipeline.NoticeVideoSaved:
		ov.Message = "Saved " + filepath.Base(s.OutputPath)
	case s.Notice == pipeline.NoticeSegmentSaved && len(s.Playlist) > 0:
		ov.Message = fmt.Sprintf("Clip %d saved", len(s.Playlist))
	case s.Notice == pipeline.NoticeSegmentDeleted:
		ov.Message = "Clip removed"
	}
	return ov
}

package recorder

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/user/cliprec/pkg/journal"
	"github.com/user/cliprec/pkg/pipeline"
)

// check decides whether ev is allowed in the current state.
func (r *Recorder) check(ev pipeline.Event) error {
	switch r.state {
	case pipeline.StateFinished:
		return pipeline.ErrSessionClosed
	case pipeline.StateFinishing:
		return fmt.Errorf("%w: %s while finishing", pipeline.ErrInvalidState, ev)
	case pipeline.StateErrored:
		if !r.recoverable {
			return fmt.Errorf("%w: %s", pipeline.ErrInvalidState, r.reason)
		}
	}

	recording := r.state == pipeline.StateRecording
	switch ev {
	case pipeline.EventStart:
		if recording {
			return pipeline.ErrIgnored
		}
	case pipeline.EventStop:
		if !recording {
			return pipeline.ErrIgnored
		}
	case pipeline.EventUndo:
		if recording {
			return fmt.Errorf("%w: undo while recording", pipeline.ErrInvalidState)
		}
		if len(r.playlist) == 0 {
			return pipeline.ErrIgnored
		}
	case pipeline.EventFinish:
		if recording {
			return fmt.Errorf("%w: finish while recording", pipeline.ErrInvalidState)
		}
		if len(r.playlist) == 0 {
			return pipeline.ErrEmptyPlaylist
		}
	}
	return nil
}

func (r *Recorder) startSegment(ctx context.Context) error {
	id := r.nextID
	r.nextID++
	path := filepath.Join(r.opts.Dir, journal.SegmentFile(id))

	r.discardPending()

	sink, err := r.encoder.Open(ctx, r.opts.Encoder, path)
	if err != nil {
		err = fmt.Errorf("segment %d: %w", id, err)
		r.fail(err, true)
		return err
	}

	r.takes++
	r.open = &openSegment{
		seg:  pipeline.Segment{ID: id, Path: path, Status: pipeline.SegmentOpen},
		sink: sink,
		take: r.takes,
	}
	r.setState(pipeline.StateRecording, pipeline.NoticeNone)
	r.take.Store(r.takes)
	r.log.Debug("Segment %d started: %s", id, path)
	r.publish()
	return nil
}

func (r *Recorder) handleFrame(f pipeline.Frame) {
	if r.open == nil || f.Take != r.open.take {
		r.framesDiscarded.Add(1)
		return
	}
	r.write(f)
}

// write sends one frame to the open segment. On failure the segment is
// discarded and the recorder enters the recoverable error state.
func (r *Recorder) write(f pipeline.Frame) bool {
	if err := r.open.sink.Write(f.Data); err != nil {
		id := r.open.seg.ID
		r.abortOpen()
		r.fail(fmt.Errorf("segment %d: %w", id, err), true)
		return false
	}
	seg := &r.open.seg
	if seg.FrameCount == 0 {
		seg.StartedAt = f.Timestamp
	}
	seg.EndedAt = f.Timestamp
	seg.FrameCount++
	r.framesWritten.Add(1)
	return true
}

func (r *Recorder) stopSegment(ctx context.Context) {
	r.take.Store(0)

	// Deliver frames routed before the gate closed
	for drained := false; !drained; {
		select {
		case f := <-r.frames:
			if f.Take != r.open.take {
				r.framesDiscarded.Add(1)
				continue
			}
			if !r.write(f) {
				return
			}
		default:
			drained = true
		}
	}

	open := r.open
	r.open = nil

	if open.seg.FrameCount == 0 {
		if err := open.sink.Abort(); err != nil {
			r.log.Warn("Failed to discard empty segment %d: %v", open.seg.ID, err)
		}
		r.log.Info("Discarded empty segment %d", open.seg.ID)
		r.setState(pipeline.StateIdle, pipeline.NoticeNone)
		r.publish()
		return
	}

	cctx, cancel := context.WithTimeout(ctx, r.opts.CloseTimeout)
	defer cancel()
	if err := open.sink.Close(cctx); err != nil {
		if rmErr := r.fs.Remove(open.seg.Path); rmErr != nil {
			r.log.Warn("Failed to remove %s: %v", open.seg.Path, rmErr)
		}
		r.fail(fmt.Errorf("segment %d: %w", open.seg.ID, err), true)
		return
	}

	seg := open.seg
	seg.Status = pipeline.SegmentFinalized
	seg.Duration = r.measure(seg)
	r.playlist = append(r.playlist, seg)

	if err := r.saveJournal(); err != nil {
		r.fail(err, false)
		return
	}

	r.setState(pipeline.StateIdle, pipeline.NoticeSegmentSaved)
	r.log.Info("Segment %d saved: %d frames, %.2fs", seg.ID, seg.FrameCount, seg.Duration.Seconds())
	r.publish()
}

func (r *Recorder) undo() error {
	last := r.playlist[len(r.playlist)-1]

	if err := r.fs.Remove(last.Path); err != nil {
		err = fmt.Errorf("%w: remove %s: %v", pipeline.ErrFileIO, last.Path, err)
		r.fail(err, false)
		return err
	}
	r.playlist = r.playlist[:len(r.playlist)-1]

	if err := r.saveJournal(); err != nil {
		r.fail(err, false)
		return err
	}

	r.setState(pipeline.StateIdle, pipeline.NoticeSegmentDeleted)
	r.log.Info("Segment %d deleted", last.ID)
	r.publish()
	return nil
}

func (r *Recorder) finish(ctx context.Context) {
	r.setState(pipeline.StateFinishing, pipeline.NoticeNone)
	r.publish()

	paths := make([]string, len(r.playlist))
	var expected time.Duration
	for i, seg := range r.playlist {
		paths[i] = seg.Path
		expected += seg.Duration
	}

	r.log.Info("Stitching %d segments into %s", len(paths), r.opts.OutputPath)
	res, err := r.stitcher.Execute(ctx, pipeline.StitchInput{
		Segments:     paths,
		OutputPath:   r.opts.OutputPath,
		ManifestPath: filepath.Join(r.opts.Dir, journal.ManifestName),
		Expected:     expected,
	})
	if err != nil {
		r.fail(err, !errors.Is(err, pipeline.ErrFileIO))
		return
	}

	if err := journal.Remove(r.fs, r.opts.Dir); err != nil {
		r.log.Warn("Failed to remove session journal: %v", err)
	}

	r.output = res.OutputPath
	r.setState(pipeline.StateFinished, pipeline.NoticeVideoSaved)
	r.log.Info("Video saved to %s (%d clips, %.2fs)", res.OutputPath, res.Segments, expected.Seconds())
	r.publish()
}

func (r *Recorder) handleFault(err error) {
	if r.state == pipeline.StateFinished {
		return
	}
	if !errors.Is(err, pipeline.ErrCapture) {
		err = fmt.Errorf("%w: %v", pipeline.ErrCapture, err)
	}
	r.abortOpen()
	r.fail(err, true)
}

// measure returns the playback duration of a finalized segment.
func (r *Recorder) measure(seg pipeline.Segment) time.Duration {
	if r.opts.Prober != nil {
		d, err := r.opts.Prober.Probe(seg.Path)
		if err == nil && d > 0 {
			return d
		}
		r.log.Warn("Could not probe %s, using frame timestamps: %v", seg.Path, err)
	}
	return estimateDuration(seg, r.opts.Encoder.FPS)
}

// estimateDuration derives a duration from frame timestamps, counting the
// last frame as lasting one frame interval.
func estimateDuration(seg pipeline.Segment, fps int) time.Duration {
	interval := time.Second / time.Duration(fps)
	if seg.StartedAt.IsZero() || !seg.EndedAt.After(seg.StartedAt) {
		return time.Duration(seg.FrameCount) * interval
	}
	return seg.EndedAt.Sub(seg.StartedAt) + interval
}

// abortOpen discards the open segment, if any.
func (r *Recorder) abortOpen() {
	r.take.Store(0)
	if r.open == nil {
		return
	}
	if err := r.open.sink.Abort(); err != nil {
		r.log.Warn("Failed to discard segment %d: %v", r.open.seg.ID, err)
	}
	r.log.Info("Discarded open segment %d", r.open.seg.ID)
	r.open = nil
}

// discardPending drops frames left over from before the segment opened.
func (r *Recorder) discardPending() {
	for {
		select {
		case <-r.frames:
			r.framesDiscarded.Add(1)
		default:
			return
		}
	}
}

func (r *Recorder) shutdown() {
	r.abortOpen()
	r.discardPending()
}

// fail moves to the errored state. Unrecoverable errors end Run.
func (r *Recorder) fail(err error, recoverable bool) {
	r.take.Store(0)
	r.state = pipeline.StateErrored
	r.reason = err.Error()
	r.recoverable = recoverable
	r.notice = pipeline.NoticeError
	if !recoverable {
		r.fatal = err
	}
	r.log.Error("Recording error: %v", err)
	r.publish()
}

func (r *Recorder) setState(s pipeline.State, notice pipeline.Notice) {
	r.state = s
	r.reason = ""
	r.recoverable = false
	r.notice = notice
}

func (r *Recorder) saveJournal() error {
	r.journal.NextID = r.nextID
	r.journal.Segments = make([]journal.Entry, len(r.playlist))
	for i, seg := range r.playlist {
		r.journal.Segments[i] = journal.EntryFrom(seg)
	}
	if err := journal.Save(r.fs, r.opts.Dir, r.journal); err != nil {
		return fmt.Errorf("%w: %v", pipeline.ErrFileIO, err)
	}
	return nil
}

// publish stores a new snapshot and offers it to every subscriber,
// replacing any snapshot a subscriber has not yet received.
func (r *Recorder) publish() {
	r.version++
	s := &pipeline.Snapshot{
		SessionID:   r.opts.SessionID,
		State:       r.state,
		Reason:      r.reason,
		Recoverable: r.state == pipeline.StateErrored && r.recoverable,
		Playlist:    append([]pipeline.Segment(nil), r.playlist...),
		OutputPath:  r.output,
		Notice:      r.notice,
		Version:     r.version,
	}
	r.snap.Store(s)

	r.subsMu.Lock()
	defer r.subsMu.Unlock()
	for _, ch := range r.subs {
		select {
		case ch <- *s:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- *s:
		default:
		}
	}
}

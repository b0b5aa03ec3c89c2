// Package recorder implements the segment recorder state machine.
//
// A Recorder is an actor: Run owns the playlist and the open segment, and is
// the only goroutine that mutates them. Other goroutines interact through
// three bounded channels (frames, control commands and failure reports) and
// read state through immutable snapshots.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/user/cliprec/pkg/journal"
	"github.com/user/cliprec/pkg/pipeline"
	"github.com/user/cliprec/pkg/ports"
)

// Default option values.
const (
	DefaultFrameBuffer   = 64
	DefaultControlBuffer = 16
	DefaultCloseTimeout  = 10 * time.Second
)

// Stitcher joins finalized segments into the output file.
type Stitcher = pipeline.Stage[pipeline.StitchInput, *pipeline.StitchResult]

// Options configures a Recorder.
type Options struct {
	// Dir is the session directory for segment files, the manifest and the journal.
	Dir string
	// OutputPath is the final artifact path.
	OutputPath string
	// Encoder is applied to every segment of the session.
	Encoder pipeline.EncoderConfig
	// SessionID identifies the session; a random UUID is used when empty.
	SessionID string

	FrameBuffer   int
	ControlBuffer int
	// CloseTimeout bounds the wait for an encoder to finish a segment.
	CloseTimeout time.Duration

	// Prober measures finalized segments. When nil, durations are derived
	// from frame timestamps.
	Prober ports.DurationProber
}

// Stats are recorder counters.
type Stats struct {
	FramesWritten   uint64 // Frames handed to an encoder
	FramesDiscarded uint64 // Frames that arrived while no segment was open or from an earlier take
}

type command struct {
	event pipeline.Event
	ack   chan error
}

type openSegment struct {
	seg  pipeline.Segment
	sink ports.EncoderSink
	take uint64
}

// Recorder is the segment recorder actor.
type Recorder struct {
	opts     Options
	encoder  ports.SegmentEncoder
	stitcher Stitcher
	fs       ports.FileSystem
	log      ports.Logger

	frames   chan pipeline.Frame
	commands chan command
	faults   chan error
	done     chan struct{}

	take      atomic.Uint64 // Take of the open segment, 0 when none
	snap      atomic.Pointer[pipeline.Snapshot]

	subsMu  sync.Mutex
	subs    map[int]chan pipeline.Snapshot
	nextSub int

	framesWritten   atomic.Uint64
	framesDiscarded atomic.Uint64

	// Owned by Run
	state       pipeline.State
	reason      string
	recoverable bool
	fatal       error
	playlist    []pipeline.Segment
	nextID      int
	takes       uint64
	open        *openSegment
	output      string
	notice      pipeline.Notice
	version     uint64
	journal     *journal.Journal
}

// New creates a Recorder and its session directory.
func New(encoder ports.SegmentEncoder, stitcher Stitcher, fs ports.FileSystem, opts Options, log ports.Logger) (*Recorder, error) {
	if err := opts.Encoder.Validate(); err != nil {
		return nil, fmt.Errorf("recorder: %w", err)
	}
	if opts.Dir == "" {
		return nil, errors.New("recorder: session directory is required")
	}
	if opts.OutputPath == "" {
		return nil, errors.New("recorder: output path is required")
	}
	if opts.FrameBuffer <= 0 {
		opts.FrameBuffer = DefaultFrameBuffer
	}
	if opts.ControlBuffer <= 0 {
		opts.ControlBuffer = DefaultControlBuffer
	}
	if opts.CloseTimeout <= 0 {
		opts.CloseTimeout = DefaultCloseTimeout
	}
	if opts.SessionID == "" {
		opts.SessionID = uuid.NewString()
	}

	if err := fs.MkdirAll(opts.Dir); err != nil {
		return nil, fmt.Errorf("%w: create %s: %v", pipeline.ErrFileIO, opts.Dir, err)
	}

	r := &Recorder{
		opts:     opts,
		encoder:  encoder,
		stitcher: stitcher,
		fs:       fs,
		log:      log.WithComponent("recorder"),
		frames:   make(chan pipeline.Frame, opts.FrameBuffer),
		commands: make(chan command, opts.ControlBuffer),
		faults:   make(chan error, 1),
		done:     make(chan struct{}),
		subs:     make(map[int]chan pipeline.Snapshot),
		state:    pipeline.StateIdle,
		journal: &journal.Journal{
			SessionID: opts.SessionID,
			CreatedAt: time.Now(),
			Output:    opts.OutputPath,
			Encoder:   journal.EncoderFrom(opts.Encoder),
		},
	}
	r.publish()
	return r, nil
}

// Frames returns the channel the router delivers frames to.
func (r *Recorder) Frames() chan<- pipeline.Frame {
	return r.frames
}

// Recording reports whether a segment is open. It is safe for any goroutine.
func (r *Recorder) Recording() bool {
	return r.take.Load() != 0
}

// Take returns the take number of the open segment, or 0 when none is open.
// Frames must carry the take they were admitted under; frames from an
// earlier take are discarded. It is safe for any goroutine.
func (r *Recorder) Take() uint64 {
	return r.take.Load()
}

// SessionID returns the session identifier.
func (r *Recorder) SessionID() string {
	return r.opts.SessionID
}

// Dir returns the session directory.
func (r *Recorder) Dir() string {
	return r.opts.Dir
}

// Submit enqueues a control event without blocking. The returned channel
// receives the outcome: nil when accepted, pipeline.ErrIgnored for an
// accepted no-op, or a rejection.
func (r *Recorder) Submit(ev pipeline.Event) (<-chan error, error) {
	select {
	case <-r.done:
		return nil, pipeline.ErrSessionClosed
	default:
	}
	cmd := command{event: ev, ack: make(chan error, 1)}
	select {
	case r.commands <- cmd:
		return cmd.ack, nil
	default:
		return nil, fmt.Errorf("%w: %s", pipeline.ErrRecorderBusy, ev)
	}
}

// Do submits ev and waits for its acknowledgement.
func (r *Recorder) Do(ctx context.Context, ev pipeline.Event) error {
	ack, err := r.Submit(ev)
	if err != nil {
		return err
	}
	select {
	case err := <-ack:
		return err
	case <-r.done:
		select {
		case err := <-ack:
			return err
		default:
			return pipeline.ErrSessionClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ReportFailure tells the recorder that the frame source failed.
func (r *Recorder) ReportFailure(err error) {
	select {
	case r.faults <- err:
	default:
	}
}

// Snapshot returns the latest published state.
func (r *Recorder) Snapshot() pipeline.Snapshot {
	return *r.snap.Load()
}

// Subscribe returns a channel that receives every published snapshot that
// the subscriber keeps up with; a slow subscriber only sees the latest one.
// The current snapshot is delivered immediately. Call cancel to unsubscribe.
func (r *Recorder) Subscribe() (<-chan pipeline.Snapshot, func()) {
	ch := make(chan pipeline.Snapshot, 1)

	r.subsMu.Lock()
	ch <- r.Snapshot()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = ch
	r.subsMu.Unlock()

	return ch, func() {
		r.subsMu.Lock()
		delete(r.subs, id)
		r.subsMu.Unlock()
	}
}

// Stats returns the recorder counters.
func (r *Recorder) Stats() Stats {
	return Stats{
		FramesWritten:   r.framesWritten.Load(),
		FramesDiscarded: r.framesDiscarded.Load(),
	}
}

// Done is closed when Run returns.
func (r *Recorder) Done() <-chan struct{} {
	return r.done
}

// Run processes frames, control events and failures until the session is
// finished, a fatal storage error occurs or ctx is cancelled. On
// cancellation the open segment is discarded and finalized segments are left
// in place.
func (r *Recorder) Run(ctx context.Context) error {
	defer close(r.done)
	r.log.Info("Session %s started in %s", r.opts.SessionID, r.opts.Dir)

	for {
		select {
		case <-ctx.Done():
			r.shutdown()
			return ctx.Err()
		case cmd := <-r.commands:
			r.handle(ctx, cmd)
		case f := <-r.frames:
			r.handleFrame(f)
		case err := <-r.faults:
			r.handleFault(err)
		}

		if r.state == pipeline.StateFinished {
			return nil
		}
		if r.fatal != nil {
			r.shutdown()
			return r.fatal
		}
	}
}

// handle applies one control event and acknowledges it exactly once.
// Stop and finish are acknowledged on acceptance, before their blocking work.
func (r *Recorder) handle(ctx context.Context, cmd command) {
	ev := cmd.event
	if err := r.check(ev); err != nil {
		if !errors.Is(err, pipeline.ErrIgnored) {
			r.log.Debug("Rejected %s in %s: %v", ev, r.state, err)
		}
		cmd.ack <- err
		return
	}

	switch ev {
	case pipeline.EventStart:
		cmd.ack <- r.startSegment(ctx)
	case pipeline.EventStop:
		cmd.ack <- nil
		r.stopSegment(ctx)
	case pipeline.EventUndo:
		cmd.ack <- r.undo()
	case pipeline.EventFinish:
		cmd.ack <- nil
		r.finish(ctx)
	default:
		cmd.ack <- fmt.Errorf("%w: unknown event %d", pipeline.ErrInvalidState, ev)
	}
}

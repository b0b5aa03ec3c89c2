// Package router splits captured frames between the recorder and the preview.
//
// The recording path receives the original frame unmodified. The preview path
// receives an independently owned copy, taken only when the preview worker is
// idle. Sends to the recorder block for at most MaxBlock; a frame that cannot
// be delivered in that time is counted and reported as pipeline.ErrFrameDropped.
package router

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/user/cliprec/pkg/pipeline"
	"github.com/user/cliprec/pkg/ports"
)

// DefaultMaxBlock is the default bound on a blocked send to the recorder.
const DefaultMaxBlock = 250 * time.Millisecond

// Gate reports which recording take currently accepts frames. Take returns
// 0 while no segment is open.
type Gate interface {
	Take() uint64
}

// Options configures a Router.
type Options struct {
	MaxBlock time.Duration
}

// Stats are the router counters.
type Stats struct {
	Routed         uint64 // Frames delivered to the recorder
	Dropped        uint64 // Frames the recorder could not accept in time
	PreviewDropped uint64 // Frames skipped because the preview worker was busy
	OutOfOrder     uint64 // Frames rejected for a non-increasing sequence number
}

// Router forwards frames from a single capture goroutine.
type Router struct {
	out     chan<- pipeline.Frame
	gate    Gate
	preview *Preview
	opts    Options
	log     ports.Logger

	// Owned by the capture goroutine
	lastSeq uint64
	seen    bool

	routed         atomic.Uint64
	dropped        atomic.Uint64
	previewDropped atomic.Uint64
	outOfOrder     atomic.Uint64
}

// New creates a Router sending recorded frames to out. preview may be nil.
func New(out chan<- pipeline.Frame, gate Gate, preview *Preview, opts Options, log ports.Logger) *Router {
	if opts.MaxBlock <= 0 {
		opts.MaxBlock = DefaultMaxBlock
	}
	return &Router{
		out:     out,
		gate:    gate,
		preview: preview,
		opts:    opts,
		log:     log.WithComponent("router"),
	}
}

// Route delivers one frame. It must be called from a single goroutine in
// capture order.
func (r *Router) Route(ctx context.Context, f pipeline.Frame) error {
	if r.seen && f.Seq <= r.lastSeq {
		r.outOfOrder.Add(1)
		return fmt.Errorf("%w: frame %d after %d", pipeline.ErrOutOfOrder, f.Seq, r.lastSeq)
	}
	r.seen = true
	r.lastSeq = f.Seq

	if r.preview != nil && !r.preview.Offer(f) {
		r.previewDropped.Add(1)
	}

	take := r.gate.Take()
	if take == 0 {
		return nil
	}
	f.Take = take

	select {
	case r.out <- f:
		r.routed.Add(1)
		return nil
	default:
	}

	timer := time.NewTimer(r.opts.MaxBlock)
	defer timer.Stop()

	select {
	case r.out <- f:
		r.routed.Add(1)
		return nil
	case <-timer.C:
		n := r.dropped.Add(1)
		r.log.Warn("Frame %d dropped: recorder blocked for %v (%d dropped)", f.Seq, r.opts.MaxBlock, n)
		return fmt.Errorf("%w: frame %d", pipeline.ErrFrameDropped, f.Seq)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drives src until ctx is cancelled or the source fails, routing every
// frame. Dropped and out-of-order frames are counted and do not stop capture.
func (r *Router) Run(ctx context.Context, src ports.FrameSource) error {
	r.log.Info("Capturing from %s", src.Describe())

	err := src.Run(ctx, func(f pipeline.Frame) error {
		err := r.Route(ctx, f)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, pipeline.ErrFrameDropped):
			return nil
		case errors.Is(err, pipeline.ErrOutOfOrder):
			r.log.Warn("Rejected frame: %v", err)
			return nil
		default:
			return err
		}
	})

	if err == nil || ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, pipeline.ErrCapture) {
		return err
	}
	return fmt.Errorf("%w: %v", pipeline.ErrCapture, err)
}

// Stats returns a snapshot of the counters.
func (r *Router) Stats() Stats {
	return Stats{
		Routed:         r.routed.Load(),
		Dropped:        r.dropped.Load(),
		PreviewDropped: r.previewDropped.Load(),
		OutOfOrder:     r.outOfOrder.Load(),
	}
}

package pipeline

import "errors"

// Failure taxonomy. Every error reported by a pipeline component wraps one
// of these so callers can classify it with errors.Is.
var (
	// ErrCapture is returned when the frame source fails.
	ErrCapture = errors.New("capture failed")

	// ErrFrameDropped is returned when a frame could not be handed to the
	// recorder within the backpressure bound.
	ErrFrameDropped = errors.New("frame dropped")

	// ErrOutOfOrder is returned for a frame whose sequence number does not
	// increase.
	ErrOutOfOrder = errors.New("frame out of order")

	// ErrEncoderSpawn is returned when the encoder process cannot be started.
	ErrEncoderSpawn = errors.New("encoder spawn failed")

	// ErrEncoderWrite is returned when writing to the encoder input fails.
	ErrEncoderWrite = errors.New("encoder write failed")

	// ErrEncoderFailure is returned when the encoder exits unsuccessfully,
	// exceeds its shutdown bound, or leaves no output.
	ErrEncoderFailure = errors.New("encoder failed")

	// ErrStitch is returned when the manifest or concatenation fails.
	ErrStitch = errors.New("stitch failed")

	// ErrFileIO is returned when the session directory is unusable.
	// It is the only session-fatal error.
	ErrFileIO = errors.New("session storage unavailable")
)

// Control event outcomes.
var (
	// ErrIgnored acknowledges an event that was accepted as a no-op.
	ErrIgnored = errors.New("event ignored")

	// ErrInvalidState rejects an event that the current state does not allow.
	ErrInvalidState = errors.New("event not allowed in current state")

	// ErrEmptyPlaylist rejects finish when nothing has been recorded.
	ErrEmptyPlaylist = errors.New("playlist is empty")

	// ErrRecorderBusy rejects an event because the recorder queue is full.
	ErrRecorderBusy = errors.New("recorder busy")

	// ErrSessionClosed rejects events after the session has ended.
	ErrSessionClosed = errors.New("session closed")
)

// IsRejection reports whether err is a control rejection rather than an
// accepted event (nil) or an accepted no-op (ErrIgnored).
func IsRejection(err error) bool {
	return err != nil && !errors.Is(err, ErrIgnored)
}

package pipeline

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// Frames
// =============================================================================

// PixelFormat identifies the layout of a frame payload.
type PixelFormat string

const (
	FormatMJPEG   PixelFormat = "mjpeg"
	FormatYUYV422 PixelFormat = "yuyv422"
	FormatNV12    PixelFormat = "nv12"
	FormatRGB24   PixelFormat = "rgb24"
	FormatRGBA    PixelFormat = "rgba"
	FormatGray    PixelFormat = "gray"
)

// ParsePixelFormat parses a format name as reported by capture devices.
// Names are matched case-insensitively against both the ffmpeg and the
// V4L2 spellings ("YUYV", "yuyv422").
func ParsePixelFormat(s string) (PixelFormat, error) {
	switch strings.ToLower(s) {
	case "mjpeg", "mjpg":
		return FormatMJPEG, nil
	case "yuyv", "yuyv422", "yuy2":
		return FormatYUYV422, nil
	case "nv12":
		return FormatNV12, nil
	case "rgb24", "rgb":
		return FormatRGB24, nil
	case "rgba":
		return FormatRGBA, nil
	case "gray", "grey", "gray8":
		return FormatGray, nil
	default:
		return "", fmt.Errorf("unknown pixel format %q", s)
	}
}

// FrameSize returns the payload size in bytes of one raw frame, or 0 for
// compressed formats whose size varies per frame.
func (f PixelFormat) FrameSize(width, height int) int {
	switch f {
	case FormatYUYV422:
		return width * height * 2
	case FormatNV12:
		return width * height * 3 / 2
	case FormatRGB24:
		return width * height * 3
	case FormatRGBA:
		return width * height * 4
	case FormatGray:
		return width * height
	default:
		return 0
	}
}

// Frame is one captured video frame.
// A Frame is immutable once produced; Data must not be modified by any consumer.
type Frame struct {
	Data      []byte
	Format    PixelFormat
	Width     int
	Height    int
	Seq       uint64    // Monotonically increasing capture sequence number
	Timestamp time.Time // Capture time
	Take      uint64    // Recording take the router admitted the frame to, 0 if none
}

// =============================================================================
// Encoder configuration
// =============================================================================

// Quality is the encoder quality tier.
type Quality string

const (
	QualityHigh   Quality = "high"
	QualityMedium Quality = "medium"
	QualityLow    Quality = "low"
)

// Speed trades encoder CPU time against output size.
type Speed string

const (
	SpeedFastest  Speed = "fastest"
	SpeedBalanced Speed = "balanced"
	SpeedCompact  Speed = "compact"
)

// HWAccel selects the hardware encoding path.
type HWAccel string

const (
	HWAccelNone      HWAccel = "none"
	HWAccelNVENC     HWAccel = "nvenc"
	HWAccelAMF       HWAccel = "amf"
	HWAccelQuickSync HWAccel = "qsv"
)

// EncoderConfig configures every segment encoder of a session.
// It is fixed before the first segment starts and never changes afterwards.
type EncoderConfig struct {
	Width       int
	Height      int
	FPS         int
	InputFormat PixelFormat
	Quality     Quality
	Speed       Speed
	HWAccel     HWAccel
}

// DefaultEncoderConfig returns a 640x480@30 MJPEG configuration.
func DefaultEncoderConfig() EncoderConfig {
	return EncoderConfig{
		Width:       640,
		Height:      480,
		FPS:         30,
		InputFormat: FormatMJPEG,
		Quality:     QualityMedium,
		Speed:       SpeedBalanced,
		HWAccel:     HWAccelNone,
	}
}

// Validate reports whether the configuration can be handed to an encoder.
func (c EncoderConfig) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("invalid resolution: %dx%d", c.Width, c.Height)
	}
	if c.FPS <= 0 {
		return fmt.Errorf("invalid fps: %d", c.FPS)
	}
	if _, err := ParsePixelFormat(string(c.InputFormat)); err != nil {
		return err
	}
	switch c.Quality {
	case QualityHigh, QualityMedium, QualityLow:
	default:
		return fmt.Errorf("invalid quality: %q", c.Quality)
	}
	switch c.Speed {
	case SpeedFastest, SpeedBalanced, SpeedCompact:
	default:
		return fmt.Errorf("invalid speed: %q", c.Speed)
	}
	switch c.HWAccel {
	case HWAccelNone, HWAccelNVENC, HWAccelAMF, HWAccelQuickSync:
	default:
		return fmt.Errorf("invalid hwaccel: %q", c.HWAccel)
	}
	return nil
}

// String formats the configuration like "640x480@30fps (mjpeg)".
func (c EncoderConfig) String() string {
	return fmt.Sprintf("%dx%d@%dfps (%s)", c.Width, c.Height, c.FPS, c.InputFormat)
}

// =============================================================================
// Segments and session state
// =============================================================================

// SegmentStatus is the lifecycle status of a segment.
type SegmentStatus int

const (
	SegmentOpen SegmentStatus = iota
	SegmentFinalized
	SegmentDeleted
)

// String returns the status name.
func (s SegmentStatus) String() string {
	switch s {
	case SegmentOpen:
		return "open"
	case SegmentFinalized:
		return "finalized"
	case SegmentDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Segment is one independently encoded recording.
type Segment struct {
	ID         int
	Path       string
	Status     SegmentStatus
	FrameCount int
	StartedAt  time.Time // Timestamp of the first frame
	EndedAt    time.Time // Timestamp of the last frame
	Duration   time.Duration
}

// State is the recorder machine state.
type State int

const (
	StateIdle State = iota
	StateRecording
	StateFinishing
	StateFinished
	StateErrored
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateFinishing:
		return "finishing"
	case StateFinished:
		return "finished"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler so states serialize by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Notice names the most recent user-visible change in a Snapshot.
type Notice string

const (
	NoticeNone           Notice = ""
	NoticeSegmentSaved   Notice = "segment_saved"
	NoticeSegmentDeleted Notice = "segment_deleted"
	NoticeVideoSaved     Notice = "video_saved"
	NoticeError          Notice = "error"
)

// Snapshot is an immutable copy of the recorder state for display.
type Snapshot struct {
	SessionID   string
	State       State
	Reason      string // Set when State is StateErrored
	Recoverable bool   // Errored but start/undo/finish are still accepted
	Playlist    []Segment
	OutputPath  string // Set when State is StateFinished
	Notice      Notice // What changed in this version
	Version     uint64 // Incremented on every published change
}

// Recording reports whether a segment is open.
func (s Snapshot) Recording() bool {
	return s.State == StateRecording
}

// TotalDuration sums the durations of all playlist segments.
func (s Snapshot) TotalDuration() time.Duration {
	var total time.Duration
	for _, seg := range s.Playlist {
		total += seg.Duration
	}
	return total
}

// =============================================================================
// Control events
// =============================================================================

// Event is a control event sent by the control surface.
type Event int

const (
	EventStart Event = iota
	EventStop
	EventUndo
	EventFinish
)

// String returns the event name.
func (e Event) String() string {
	switch e {
	case EventStart:
		return "start"
	case EventStop:
		return "stop"
	case EventUndo:
		return "undo"
	case EventFinish:
		return "finish"
	default:
		return "unknown"
	}
}

// ParseEvent parses an event name.
func ParseEvent(s string) (Event, error) {
	switch strings.ToLower(s) {
	case "start":
		return EventStart, nil
	case "stop":
		return EventStop, nil
	case "undo":
		return EventUndo, nil
	case "finish":
		return EventFinish, nil
	default:
		return 0, fmt.Errorf("unknown event %q", s)
	}
}

// =============================================================================
// Stitch Stage Types
// =============================================================================

// StitchInput contains parameters for concatenating segments.
type StitchInput struct {
	Segments     []string      // Finalized segment files in playlist order
	OutputPath   string        // Final artifact path
	ManifestPath string        // Where to write the concat manifest
	Expected     time.Duration // Sum of segment durations, 0 if unknown
	KeepSegments bool          // Leave segment files in place after success
}

// StitchResult contains the stitch output.
type StitchResult struct {
	OutputPath string
	Segments   int
	Duration   time.Duration // Probed output duration, 0 if no prober
	FileSize   int64
}

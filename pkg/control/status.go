package control

import (
	"github.com/user/cliprec/pkg/pipeline"
)

// Status is the JSON view of a recorder snapshot.
type Status struct {
	SessionID    string          `json:"session_id"`
	State        string          `json:"state"`
	Recording    bool            `json:"recording"`
	Reason       string          `json:"reason,omitempty"`
	Recoverable  bool            `json:"recoverable,omitempty"`
	Clips        int             `json:"clips"`
	TotalSeconds float64         `json:"total_seconds"`
	Segments     []SegmentStatus `json:"segments"`
	OutputPath   string          `json:"output_path,omitempty"`
	Notice       string          `json:"notice,omitempty"`
	Version      uint64          `json:"version"`
}

// SegmentStatus is the JSON view of one playlist entry.
type SegmentStatus struct {
	ID      int     `json:"id"`
	Frames  int     `json:"frames"`
	Seconds float64 `json:"seconds"`
}

// NewStatus converts a snapshot.
func NewStatus(s pipeline.Snapshot) Status {
	st := Status{
		SessionID:    s.SessionID,
		State:        s.State.String(),
		Recording:    s.Recording(),
		Reason:       s.Reason,
		Recoverable:  s.Recoverable,
		Clips:        len(s.Playlist),
		TotalSeconds: s.TotalDuration().Seconds(),
		Segments:     make([]SegmentStatus, 0, len(s.Playlist)),
		OutputPath:   s.OutputPath,
		Notice:       string(s.Notice),
		Version:      s.Version,
	}
	for _, seg := range s.Playlist {
		st.Segments = append(st.Segments, SegmentStatus{
			ID:      seg.ID,
			Frames:  seg.FrameCount,
			Seconds: seg.Duration.Seconds(),
		})
	}
	return st
}

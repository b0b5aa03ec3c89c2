// Package journal persists the finalized playlist of a recording session.
//
// The journal is rewritten atomically after every finalize and undo, so a
// crash leaves either the previous or the new playlist on disk, never a mix.
// Segment files in the session directory that the journal does not list
// were still being encoded at the time of the crash.
package journal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/user/cliprec/pkg/pipeline"
	"github.com/user/cliprec/pkg/ports"
)

// FileName is the journal file name inside a session directory.
const FileName = "session.yaml"

// ManifestName is the concat manifest file name inside a session directory.
const ManifestName = "concat_list.txt"

// SegmentPattern matches segment files in a session directory.
const SegmentPattern = "segment_*.mp4"

// ErrNoJournal is returned by Load when the directory holds no journal.
var ErrNoJournal = errors.New("journal: no session journal found")

// SegmentFile returns the file name of segment id.
func SegmentFile(id int) string {
	return fmt.Sprintf("segment_%03d.mp4", id)
}

// Journal is the on-disk session record.
type Journal struct {
	SessionID string    `yaml:"session_id"`
	CreatedAt time.Time `yaml:"created_at"`
	UpdatedAt time.Time `yaml:"updated_at"`
	Output    string    `yaml:"output"`
	Encoder   Encoder   `yaml:"encoder"`
	NextID    int       `yaml:"next_id"`
	Segments  []Entry   `yaml:"segments"`
}

// Encoder records the session encoder configuration.
type Encoder struct {
	Width   int    `yaml:"width"`
	Height  int    `yaml:"height"`
	FPS     int    `yaml:"fps"`
	Format  string `yaml:"format"`
	Quality string `yaml:"quality"`
	Speed   string `yaml:"speed"`
	HWAccel string `yaml:"hwaccel"`
}

// Entry is one finalized segment.
type Entry struct {
	ID         int    `yaml:"id"`
	File       string `yaml:"file"`
	Frames     int    `yaml:"frames"`
	DurationMs int64  `yaml:"duration_ms"`
}

// Duration returns the entry duration.
func (e Entry) Duration() time.Duration {
	return time.Duration(e.DurationMs) * time.Millisecond
}

// EncoderFrom converts an encoder configuration for the journal.
func EncoderFrom(cfg pipeline.EncoderConfig) Encoder {
	return Encoder{
		Width:   cfg.Width,
		Height:  cfg.Height,
		FPS:     cfg.FPS,
		Format:  string(cfg.InputFormat),
		Quality: string(cfg.Quality),
		Speed:   string(cfg.Speed),
		HWAccel: string(cfg.HWAccel),
	}
}

// Config converts the journal entry back to an encoder configuration.
func (e Encoder) Config() pipeline.EncoderConfig {
	return pipeline.EncoderConfig{
		Width:       e.Width,
		Height:      e.Height,
		FPS:         e.FPS,
		InputFormat: pipeline.PixelFormat(e.Format),
		Quality:     pipeline.Quality(e.Quality),
		Speed:       pipeline.Speed(e.Speed),
		HWAccel:     pipeline.HWAccel(e.HWAccel),
	}
}

// EntryFrom converts a finalized segment for the journal.
func EntryFrom(seg pipeline.Segment) Entry {
	return Entry{
		ID:         seg.ID,
		File:       filepath.Base(seg.Path),
		Frames:     seg.FrameCount,
		DurationMs: seg.Duration.Milliseconds(),
	}
}

// Paths returns the absolute segment paths in playlist order.
func (j *Journal) Paths(dir string) []string {
	paths := make([]string, len(j.Segments))
	for i, e := range j.Segments {
		paths[i] = filepath.Join(dir, e.File)
	}
	return paths
}

// TotalDuration sums the journaled segment durations.
func (j *Journal) TotalDuration() time.Duration {
	var total time.Duration
	for _, e := range j.Segments {
		total += e.Duration()
	}
	return total
}

// Save writes the journal to dir atomically.
func Save(fs ports.FileSystem, dir string, j *Journal) error {
	j.UpdatedAt = time.Now()
	data, err := yaml.Marshal(j)
	if err != nil {
		return fmt.Errorf("journal: encode: %w", err)
	}
	if err := fs.WriteFileAtomic(filepath.Join(dir, FileName), data); err != nil {
		return fmt.Errorf("journal: write: %w", err)
	}
	return nil
}

// Load reads the journal from dir.
func Load(fs ports.FileSystem, dir string) (*Journal, error) {
	data, err := fs.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w in %s", ErrNoJournal, dir)
		}
		return nil, fmt.Errorf("journal: read: %w", err)
	}
	var j Journal
	if err := yaml.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("journal: parse: %w", err)
	}
	return &j, nil
}

// Remove deletes the journal from dir.
func Remove(fs ports.FileSystem, dir string) error {
	return fs.Remove(filepath.Join(dir, FileName))
}

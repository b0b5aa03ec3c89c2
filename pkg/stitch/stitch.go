// Package stitch joins finalized segments into one output file.
//
// The segments are listed in a concat manifest in playlist order and joined
// by stream copy into a temporary file beside the output. The temporary file
// is renamed over the output only after it is complete, so a failed stitch
// never leaves a partial output and never touches the segment files.
package stitch

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/user/cliprec/pkg/pipeline"
	"github.com/user/cliprec/pkg/ports"
)

// DefaultTolerance is the accepted difference between the probed output
// duration and the sum of segment durations.
const DefaultTolerance = 250 * time.Millisecond

// Stitcher implements pipeline.Stage for stitching.
type Stitcher struct {
	fs        ports.FileSystem
	concat    ports.Concatenator
	prober    ports.DurationProber
	tolerance time.Duration
	log       ports.Logger
}

// New creates a Stitcher. prober may be nil.
func New(fs ports.FileSystem, concat ports.Concatenator, prober ports.DurationProber, log ports.Logger) *Stitcher {
	return &Stitcher{
		fs:        fs,
		concat:    concat,
		prober:    prober,
		tolerance: DefaultTolerance,
		log:       log.WithComponent("stitch"),
	}
}

// Execute stitches input.Segments into input.OutputPath.
func (s *Stitcher) Execute(ctx context.Context, input pipeline.StitchInput) (*pipeline.StitchResult, error) {
	if len(input.Segments) == 0 {
		return nil, fmt.Errorf("%w: no segments", pipeline.ErrStitch)
	}
	if input.OutputPath == "" {
		return nil, fmt.Errorf("%w: no output path", pipeline.ErrStitch)
	}
	manifestPath := input.ManifestPath
	if manifestPath == "" {
		manifestPath = input.OutputPath + ".txt"
	}

	for _, p := range input.Segments {
		if err := s.checkReadable(p); err != nil {
			return nil, err
		}
	}

	// The concat demuxer resolves relative entries against the manifest's
	// directory, not the working directory.
	entries := make([]string, len(input.Segments))
	for i, p := range input.Segments {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("%w: resolve %s: %v", pipeline.ErrStitch, p, err)
		}
		entries[i] = abs
	}

	if err := s.fs.WriteFile(manifestPath, BuildManifest(entries)); err != nil {
		return nil, fmt.Errorf("%w: write manifest: %v", pipeline.ErrStitch, err)
	}

	if dir := filepath.Dir(input.OutputPath); dir != "." {
		if err := s.fs.MkdirAll(dir); err != nil {
			return nil, fmt.Errorf("%w: create %s: %v", pipeline.ErrStitch, dir, err)
		}
	}

	tmp := TempPath(input.OutputPath)
	s.fs.Remove(tmp)

	s.log.Debug("Concatenating %d segments via %s", len(input.Segments), manifestPath)
	if err := s.concat.Concat(ctx, manifestPath, tmp); err != nil {
		s.discard(tmp)
		return nil, fmt.Errorf("%w: %v", pipeline.ErrStitch, err)
	}

	size, err := s.fs.Size(tmp)
	if err != nil || size == 0 {
		s.discard(tmp)
		return nil, fmt.Errorf("%w: concatenation produced no output", pipeline.ErrStitch)
	}

	var duration time.Duration
	if s.prober != nil {
		duration, err = s.prober.Probe(tmp)
		if err != nil {
			s.log.Warn("Could not probe %s: %v", tmp, err)
		} else if input.Expected > 0 && absDuration(duration-input.Expected) > s.tolerance {
			s.log.Warn("Output duration %.2fs differs from segment total %.2fs", duration.Seconds(), input.Expected.Seconds())
		}
	}

	if err := s.fs.Rename(tmp, input.OutputPath); err != nil {
		s.discard(tmp)
		return nil, fmt.Errorf("%w: rename to %s: %v", pipeline.ErrStitch, input.OutputPath, err)
	}

	if !input.KeepSegments {
		for _, p := range input.Segments {
			if err := s.fs.Remove(p); err != nil {
				s.log.Warn("Failed to remove segment %s: %v", p, err)
			}
		}
	}
	if err := s.fs.Remove(manifestPath); err != nil {
		s.log.Warn("Failed to remove manifest %s: %v", manifestPath, err)
	}

	if duration == 0 {
		duration = input.Expected
	}
	return &pipeline.StitchResult{
		OutputPath: input.OutputPath,
		Segments:   len(input.Segments),
		Duration:   duration,
		FileSize:   size,
	}, nil
}

func (s *Stitcher) checkReadable(path string) error {
	rc, err := s.fs.Open(path)
	if err != nil {
		return fmt.Errorf("%w: segment %s unreadable: %v", pipeline.ErrStitch, path, err)
	}
	rc.Close()

	size, err := s.fs.Size(path)
	if err != nil {
		return fmt.Errorf("%w: segment %s unreadable: %v", pipeline.ErrStitch, path, err)
	}
	if size == 0 {
		return fmt.Errorf("%w: segment %s is empty", pipeline.ErrStitch, path)
	}
	return nil
}

func (s *Stitcher) discard(tmp string) {
	if err := s.fs.Remove(tmp); err != nil {
		s.log.Warn("Failed to remove %s: %v", tmp, err)
	}
}

// BuildManifest renders a concat demuxer manifest listing paths in order.
// Single quotes in paths are escaped as '\''.
func BuildManifest(paths []string) []byte {
	var b strings.Builder
	for _, p := range paths {
		b.WriteString("file '")
		b.WriteString(strings.ReplaceAll(p, "'", `'\''`))
		b.WriteString("'\n")
	}
	return []byte(b.String())
}

// TempPath returns the hidden temporary path used while writing output.
// The extension is kept so the muxer can be chosen from it.
func TempPath(output string) string {
	dir, base := filepath.Split(output)
	ext := filepath.Ext(base)
	return filepath.Join(dir, "."+strings.TrimSuffix(base, ext)+".tmp"+ext)
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

var _ pipeline.Stage[pipeline.StitchInput, *pipeline.StitchResult] = (*Stitcher)(nil)

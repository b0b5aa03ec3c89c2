package mocks

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"image"
	"strings"
	"sync"
	"time"

	"github.com/user/cliprec/pkg/pipeline"
	"github.com/user/cliprec/pkg/ports"
)

// Concatenator is a mock implementation of ports.Concatenator.
// By default it reads the manifest from FS and writes the byte
// concatenation of the listed files to the output path.
type Concatenator struct {
	FS         ports.FileSystem
	ConcatFunc func(ctx context.Context, manifestPath, outputPath string) error

	mu    sync.Mutex
	Calls []ConcatCall
}

// ConcatCall records a call to Concat.
type ConcatCall struct {
	ManifestPath string
	OutputPath   string
	Manifest     string
}

func (m *Concatenator) Concat(ctx context.Context, manifestPath, outputPath string) error {
	var manifest []byte
	if m.FS != nil {
		manifest, _ = m.FS.ReadFile(manifestPath)
	}
	m.mu.Lock()
	m.Calls = append(m.Calls, ConcatCall{ManifestPath: manifestPath, OutputPath: outputPath, Manifest: string(manifest)})
	m.mu.Unlock()

	if m.ConcatFunc != nil {
		return m.ConcatFunc(ctx, manifestPath, outputPath)
	}
	return m.Join(manifestPath, outputPath)
}

// Join writes the byte concatenation of the files listed in the manifest.
// It is the default Concat behavior and can be called from ConcatFunc.
func (m *Concatenator) Join(manifestPath, outputPath string) error {
	if m.FS == nil {
		return nil
	}
	manifest, err := m.FS.ReadFile(manifestPath)
	if err != nil {
		return fmt.Errorf("concat: %w", err)
	}
	var joined bytes.Buffer
	for _, p := range ManifestEntries(string(manifest)) {
		data, err := m.FS.ReadFile(p)
		if err != nil {
			return fmt.Errorf("concat: %w", err)
		}
		joined.Write(data)
	}
	return m.FS.WriteFile(outputPath, joined.Bytes())
}

// CallCount returns the number of Concat calls.
func (m *Concatenator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// ManifestEntries extracts the file paths from concat manifest text.
func ManifestEntries(manifest string) []string {
	var paths []string
	sc := bufio.NewScanner(strings.NewReader(manifest))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, "file '") || !strings.HasSuffix(line, "'") {
			continue
		}
		quoted := strings.TrimSuffix(strings.TrimPrefix(line, "file '"), "'")
		paths = append(paths, strings.ReplaceAll(quoted, `'\''`, "'"))
	}
	return paths
}

// DurationProber is a mock implementation of ports.DurationProber.
// Durations maps paths to results; unknown paths return Default.
type DurationProber struct {
	Durations map[string]time.Duration
	Default   time.Duration
	ProbeFunc func(path string) (time.Duration, error)
}

func (m *DurationProber) Probe(path string) (time.Duration, error) {
	if m.ProbeFunc != nil {
		return m.ProbeFunc(path)
	}
	if d, ok := m.Durations[path]; ok {
		return d, nil
	}
	return m.Default, nil
}

// PreviewRenderer is a mock implementation of ports.PreviewRenderer.
type PreviewRenderer struct {
	DownscaleFunc func(frame pipeline.Frame, width, height int) (image.Image, error)

	mu       sync.Mutex
	Rendered []uint64
	Overlays []ports.Overlay
}

func (m *PreviewRenderer) Downscale(frame pipeline.Frame, width, height int) (image.Image, error) {
	m.mu.Lock()
	m.Rendered = append(m.Rendered, frame.Seq)
	m.mu.Unlock()
	if m.DownscaleFunc != nil {
		return m.DownscaleFunc(frame, width, height)
	}
	return image.NewRGBA(image.Rect(0, 0, width, height)), nil
}

func (m *PreviewRenderer) Annotate(img image.Image, overlay ports.Overlay) image.Image {
	m.mu.Lock()
	m.Overlays = append(m.Overlays, overlay)
	m.mu.Unlock()
	return img
}

func (m *PreviewRenderer) EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	return []byte{0xFF, 0xD8, 0xFF, 0xD9}, nil
}

// RenderedCount returns the number of frames passed to Downscale.
func (m *PreviewRenderer) RenderedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Rendered)
}

var (
	_ ports.Concatenator    = (*Concatenator)(nil)
	_ ports.DurationProber  = (*DurationProber)(nil)
	_ ports.PreviewRenderer = (*PreviewRenderer)(nil)
)

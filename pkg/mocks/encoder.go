package mocks

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/user/cliprec/pkg/pipeline"
	"github.com/user/cliprec/pkg/ports"
)

// SegmentEncoder is a mock implementation of ports.SegmentEncoder.
// When FS is set, a successful Close writes the concatenated frame payloads
// to the segment path, so callers see a real output file.
type SegmentEncoder struct {
	FS ports.FileSystem

	OpenFunc  func(ctx context.Context, cfg pipeline.EncoderConfig, outputPath string) error
	WriteFunc func(outputPath string, data []byte) error
	CloseFunc func(outputPath string) error

	mu        sync.Mutex
	sinks     []*EncoderSink
	active    int
	maxActive int
	log       []string
}

// record appends an operation to the call log. ended marks the sink as no
// longer running.
func (m *SegmentEncoder) record(op, path string, ended bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.log = append(m.log, op+" "+path)
	if ended {
		m.active--
	}
}

// MaxActive returns the largest number of sinks that were open at once.
func (m *SegmentEncoder) MaxActive() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxActive
}

// Log returns the ordered operations seen by all sinks: "open", the first
// "write", "close" and "abort", each followed by the segment path.
func (m *SegmentEncoder) Log() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.log...)
}

// Open records the call and returns a new EncoderSink.
func (m *SegmentEncoder) Open(ctx context.Context, cfg pipeline.EncoderConfig, outputPath string) (ports.EncoderSink, error) {
	if m.OpenFunc != nil {
		if err := m.OpenFunc(ctx, cfg, outputPath); err != nil {
			return nil, fmt.Errorf("%w: %v", pipeline.ErrEncoderSpawn, err)
		}
	}
	sink := &EncoderSink{Path: outputPath, Config: cfg, enc: m}
	m.mu.Lock()
	m.sinks = append(m.sinks, sink)
	m.log = append(m.log, "open "+outputPath)
	m.active++
	if m.active > m.maxActive {
		m.maxActive = m.active
	}
	m.mu.Unlock()
	return sink, nil
}

// Sinks returns every sink opened so far.
func (m *SegmentEncoder) Sinks() []*EncoderSink {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*EncoderSink(nil), m.sinks...)
}

// OpenCount returns the number of Open calls that succeeded.
func (m *SegmentEncoder) OpenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sinks)
}

// EncoderSink is a mock implementation of ports.EncoderSink.
type EncoderSink struct {
	Path   string
	Config pipeline.EncoderConfig

	enc     *SegmentEncoder
	mu      sync.Mutex
	frames  [][]byte
	closed  bool
	aborted bool
}

func (s *EncoderSink) Write(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.aborted {
		return fmt.Errorf("%w: sink closed", pipeline.ErrEncoderWrite)
	}
	if s.enc.WriteFunc != nil {
		if err := s.enc.WriteFunc(s.Path, data); err != nil {
			return fmt.Errorf("%w: %v", pipeline.ErrEncoderWrite, err)
		}
	}
	if len(s.frames) == 0 {
		s.enc.record("write", s.Path, false)
	}
	s.frames = append(s.frames, append([]byte(nil), data...))
	return nil
}

func (s *EncoderSink) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.aborted {
		return fmt.Errorf("%w: sink already closed", pipeline.ErrEncoderFailure)
	}
	s.closed = true
	s.enc.record("close", s.Path, true)
	if s.enc.CloseFunc != nil {
		if err := s.enc.CloseFunc(s.Path); err != nil {
			return fmt.Errorf("%w: %v", pipeline.ErrEncoderFailure, err)
		}
	}
	if s.enc.FS != nil {
		if err := s.enc.FS.WriteFile(s.Path, bytes.Join(s.frames, nil)); err != nil {
			return fmt.Errorf("%w: %v", pipeline.ErrEncoderFailure, err)
		}
	}
	return nil
}

func (s *EncoderSink) Abort() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed && !s.aborted {
		s.enc.record("abort", s.Path, true)
	}
	s.aborted = true
	if s.enc.FS != nil {
		return s.enc.FS.Remove(s.Path)
	}
	return nil
}

// Frames returns copies of the payloads written so far.
func (s *EncoderSink) Frames() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.frames...)
}

// Closed reports whether Close was called.
func (s *EncoderSink) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Aborted reports whether Abort was called.
func (s *EncoderSink) Aborted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aborted
}

var (
	_ ports.SegmentEncoder = (*SegmentEncoder)(nil)
	_ ports.EncoderSink    = (*EncoderSink)(nil)
)

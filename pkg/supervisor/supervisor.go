// Package supervisor runs one external encoder process per segment.
//
// Frame payloads are streamed to the process stdin through a buffered writer.
// Close flushes that buffer, closes stdin to signal end of stream and waits a
// bounded time for the process to exit. A segment is only reported complete
// once the process exited cleanly and its output file is non-empty and synced.
package supervisor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/user/cliprec/pkg/pipeline"
	"github.com/user/cliprec/pkg/ports"
)

// Default option values.
const (
	DefaultCloseTimeout    = 10 * time.Second
	DefaultWriteTimeout    = 5 * time.Second
	DefaultWriteBufferSize = 1 << 20
	DefaultStderrTail      = 4096
)

// Options configures a Supervisor.
type Options struct {
	// CloseTimeout bounds the wait for the process to exit after stdin closes.
	CloseTimeout time.Duration
	// WriteTimeout bounds a single blocked write to stdin. It only applies
	// where the pipe supports deadlines.
	WriteTimeout time.Duration
	// WriteBufferSize is the size of the stdin write buffer.
	WriteBufferSize int
	// StderrTail is how many trailing stderr bytes are kept for error reports.
	StderrTail int
}

// Supervisor implements ports.SegmentEncoder by spawning the command
// produced by a CommandBuilder.
type Supervisor struct {
	builder ports.CommandBuilder
	opts    Options
	log     ports.Logger
}

// New creates a Supervisor. Zero option values are replaced by defaults.
func New(builder ports.CommandBuilder, opts Options, log ports.Logger) *Supervisor {
	if opts.CloseTimeout <= 0 {
		opts.CloseTimeout = DefaultCloseTimeout
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}
	if opts.WriteBufferSize <= 0 {
		opts.WriteBufferSize = DefaultWriteBufferSize
	}
	if opts.StderrTail <= 0 {
		opts.StderrTail = DefaultStderrTail
	}
	return &Supervisor{
		builder: builder,
		opts:    opts,
		log:     log.WithComponent("encoder"),
	}
}

// Open spawns the encoder for one segment.
func (s *Supervisor) Open(ctx context.Context, cfg pipeline.EncoderConfig, outputPath string) (ports.EncoderSink, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", pipeline.ErrEncoderSpawn, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", pipeline.ErrEncoderSpawn, err)
	}

	spec, err := s.builder.EncodeCommand(cfg, outputPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pipeline.ErrEncoderSpawn, err)
	}

	// The process outlives Open's context; its lifetime is managed through
	// Close and Abort.
	cmd := exec.Command(spec.Path, spec.Args...)
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}
	stderr := NewTailBuffer(s.opts.StderrTail)
	cmd.Stderr = stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: stdin pipe: %v", pipeline.ErrEncoderSpawn, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: start %s: %v", pipeline.ErrEncoderSpawn, spec.Path, err)
	}

	p := &process{
		cmd:          cmd,
		stdin:        stdin,
		w:            bufio.NewWriterSize(stdin, s.opts.WriteBufferSize),
		stderr:       stderr,
		path:         outputPath,
		done:         make(chan struct{}),
		closeTimeout: s.opts.CloseTimeout,
		writeTimeout: s.opts.WriteTimeout,
		log:          s.log,
	}
	go func() {
		p.waitErr = cmd.Wait()
		close(p.done)
	}()

	s.log.Debug("Encoder started for %s (pid %d)", outputPath, cmd.Process.Pid)
	return p, nil
}

// process is the sink side of one running encoder.
type process struct {
	cmd          *exec.Cmd
	stdin        io.WriteCloser
	w            *bufio.Writer
	stderr       *TailBuffer
	path         string
	closeTimeout time.Duration
	writeTimeout time.Duration
	log          ports.Logger

	done    chan struct{}
	waitErr error // Valid after done is closed

	mu     sync.Mutex
	frames int
	bytes  int64
	ended  bool
}

// Write streams one frame payload to the encoder.
func (p *process) Write(data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ended {
		return fmt.Errorf("%w: encoder input already closed", pipeline.ErrEncoderWrite)
	}
	select {
	case <-p.done:
		return fmt.Errorf("%w: encoder exited early: %v%s", pipeline.ErrEncoderWrite, p.waitErr, p.stderr.Suffix())
	default:
	}

	p.armDeadline()
	if _, err := p.w.Write(data); err != nil {
		return fmt.Errorf("%w: %v%s", pipeline.ErrEncoderWrite, err, p.stderr.Suffix())
	}
	p.frames++
	p.bytes += int64(len(data))
	return nil
}

// Close flushes input, closes stdin and waits for a clean exit.
func (p *process) Close(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ended {
		return fmt.Errorf("%w: encoder already closed", pipeline.ErrEncoderFailure)
	}
	p.ended = true

	p.armDeadline()
	flushErr := p.w.Flush()
	p.stdin.Close()
	if flushErr != nil {
		p.kill()
		os.Remove(p.path)
		return fmt.Errorf("%w: flush: %v%s", pipeline.ErrEncoderWrite, flushErr, p.stderr.Suffix())
	}

	timer := time.NewTimer(p.closeTimeout)
	defer timer.Stop()

	select {
	case <-p.done:
	case <-timer.C:
		p.kill()
		os.Remove(p.path)
		return fmt.Errorf("%w: encoder did not exit within %v%s", pipeline.ErrEncoderFailure, p.closeTimeout, p.stderr.Suffix())
	case <-ctx.Done():
		p.kill()
		os.Remove(p.path)
		return fmt.Errorf("%w: %v", pipeline.ErrEncoderFailure, ctx.Err())
	}

	if p.waitErr != nil {
		os.Remove(p.path)
		return fmt.Errorf("%w: %v%s", pipeline.ErrEncoderFailure, p.waitErr, p.stderr.Suffix())
	}

	if err := syncOutput(p.path); err != nil {
		os.Remove(p.path)
		return fmt.Errorf("%w: %v", pipeline.ErrEncoderFailure, err)
	}

	p.log.Debug("Encoder finished %s: %d frames, %d bytes in", p.path, p.frames, p.bytes)
	return nil
}

// Abort kills the encoder and removes its partial output.
func (p *process) Abort() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.ended {
		p.ended = true
		p.stdin.Close()
	}
	p.kill()

	if err := os.Remove(p.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove partial segment: %w", err)
	}
	return nil
}

// armDeadline bounds the next pipe write when the pipe supports deadlines.
func (p *process) armDeadline() {
	if d, ok := p.stdin.(interface{ SetWriteDeadline(time.Time) error }); ok {
		d.SetWriteDeadline(time.Now().Add(p.writeTimeout))
	}
}

// kill terminates the process if it is still running and waits for it.
func (p *process) kill() {
	select {
	case <-p.done:
		return
	default:
	}
	if p.cmd.Process != nil {
		p.cmd.Process.Kill()
	}
	<-p.done
}

// syncOutput verifies the output is non-empty and flushes it to stable storage.
func syncOutput(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("output missing: %v", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		return fmt.Errorf("output %s is empty", path)
	}
	return f.Sync()
}

var _ ports.SegmentEncoder = (*Supervisor)(nil)
var _ ports.EncoderSink = (*process)(nil)

package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strconv"
	"time"

	"github.com/user/cliprec/pkg/pipeline"
	"github.com/user/cliprec/pkg/ports"
	"github.com/user/cliprec/pkg/supervisor"
)

// CaptureConfig selects a capture device and the frames it delivers.
type CaptureConfig struct {
	Device string // e.g. /dev/video0, "0" on macOS, "video=Integrated Camera" on Windows
	Width  int
	Height int
	FPS    int
	Format pipeline.PixelFormat
}

// Source implements ports.FrameSource by reading frames from an ffmpeg
// process that captures a camera device and writes to stdout.
type Source struct {
	cfg     CaptureConfig
	builder *Builder
	log     ports.Logger

	// command creates the capture process; replaced in tests.
	command func(ctx context.Context) (*exec.Cmd, error)
}

// NewSource creates a device capture source.
func NewSource(cfg CaptureConfig, builder *Builder, log ports.Logger) (*Source, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("invalid resolution: %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.FPS <= 0 {
		return nil, fmt.Errorf("invalid fps: %d", cfg.FPS)
	}
	if cfg.Device == "" {
		return nil, errors.New("capture device is required")
	}
	if _, err := pipeline.ParsePixelFormat(string(cfg.Format)); err != nil {
		return nil, err
	}

	s := &Source{
		cfg:     cfg,
		builder: builder,
		log:     log.WithComponent("capture"),
	}
	s.command = func(ctx context.Context) (*exec.Cmd, error) {
		path, err := s.builder.binary()
		if err != nil {
			return nil, err
		}
		return exec.CommandContext(ctx, path, CaptureArgs(cfg, runtime.GOOS)...), nil
	}
	return s, nil
}

// Describe returns the device and mode.
func (s *Source) Describe() string {
	return fmt.Sprintf("%s %dx%d@%dfps (%s)", s.cfg.Device, s.cfg.Width, s.cfg.Height, s.cfg.FPS, s.cfg.Format)
}

// Run captures until ctx is cancelled or ffmpeg exits.
func (s *Source) Run(ctx context.Context, emit func(pipeline.Frame) error) error {
	procCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	cmd, err := s.command(procCtx)
	if err != nil {
		return fmt.Errorf("%w: %v", pipeline.ErrCapture, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("%w: stdout pipe: %v", pipeline.ErrCapture, err)
	}
	stderr := supervisor.NewTailBuffer(supervisor.DefaultStderrTail)
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: start ffmpeg: %v", pipeline.ErrCapture, err)
	}
	s.log.Debug("Capture started (pid %d)", cmd.Process.Pid)

	// Reads must finish before Wait closes the pipe
	readErr := s.readLoop(bufio.NewReaderSize(stdout, 1<<20), emit)
	cancel()
	waitErr := cmd.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}
	if readErr != nil && !errors.Is(readErr, io.EOF) && !errors.Is(readErr, io.ErrUnexpectedEOF) {
		return readErr
	}
	return fmt.Errorf("%w: ffmpeg exited: %v%s", pipeline.ErrCapture, waitErr, stderr.Suffix())
}

// readLoop reads frames until the stream ends or emit fails.
func (s *Source) readLoop(r *bufio.Reader, emit func(pipeline.Frame) error) error {
	size := s.cfg.Format.FrameSize(s.cfg.Width, s.cfg.Height)
	var seq uint64

	for {
		var data []byte
		var err error
		if size == 0 {
			data, err = ReadJPEG(r)
		} else {
			data = make([]byte, size)
			_, err = io.ReadFull(r, data)
		}
		if err != nil {
			return err
		}

		seq++
		if err := emit(pipeline.Frame{
			Data:      data,
			Format:    s.cfg.Format,
			Width:     s.cfg.Width,
			Height:    s.cfg.Height,
			Seq:       seq,
			Timestamp: time.Now(),
		}); err != nil {
			return err
		}
	}
}

// ReadJPEG reads one JPEG image from an MJPEG byte stream, skipping any
// bytes before the start-of-image marker.
func ReadJPEG(r *bufio.Reader) ([]byte, error) {
	var prev byte
	for {
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		if prev == 0xFF && b == 0xD8 {
			break
		}
		prev = b
	}

	buf := []byte{0xFF, 0xD8}
	prev = 0
	for {
		b, err := r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
		buf = append(buf, b)
		if prev == 0xFF && b == 0xD9 {
			return buf, nil
		}
		prev = b
	}
}

// CaptureArgs returns ffmpeg arguments capturing cfg.Device on the given OS
// and writing frames in cfg.Format to stdout.
func CaptureArgs(cfg CaptureConfig, goos string) []string {
	args := []string{"-hide_banner", "-loglevel", "error"}
	size := fmt.Sprintf("%dx%d", cfg.Width, cfg.Height)
	fps := strconv.Itoa(cfg.FPS)

	switch goos {
	case "darwin":
		args = append(args, "-f", "avfoundation", "-video_size", size, "-framerate", fps)
		if cfg.Format != pipeline.FormatMJPEG {
			args = append(args, "-pixel_format", string(cfg.Format))
		}
		args = append(args, "-i", cfg.Device)
	case "windows":
		args = append(args, "-f", "dshow", "-video_size", size, "-framerate", fps)
		if cfg.Format == pipeline.FormatMJPEG {
			args = append(args, "-vcodec", "mjpeg")
		}
		args = append(args, "-i", cfg.Device)
	default:
		args = append(args, "-f", "v4l2", "-video_size", size, "-framerate", fps)
		args = append(args, "-input_format", v4l2Format(cfg.Format))
		args = append(args, "-i", cfg.Device)
	}

	if cfg.Format == pipeline.FormatMJPEG {
		return append(args, "-c:v", "copy", "-f", "mjpeg", "pipe:1")
	}
	return append(args, "-f", "rawvideo", "-pix_fmt", string(cfg.Format), "pipe:1")
}

func v4l2Format(f pipeline.PixelFormat) string {
	switch f {
	case pipeline.FormatMJPEG:
		return "mjpeg"
	case pipeline.FormatNV12:
		return "nv12"
	default:
		// Webcams deliver YUYV natively; other raw formats are converted by ffmpeg
		return "yuyv422"
	}
}

var _ ports.FrameSource = (*Source)(nil)

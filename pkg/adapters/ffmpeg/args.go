package ffmpeg

import (
	"fmt"
	"strconv"

	"github.com/user/cliprec/pkg/pipeline"
	"github.com/user/cliprec/pkg/ports"
)

// Builder produces ffmpeg invocations. An empty Path is resolved with
// FindFFmpeg on every call.
type Builder struct {
	Path string
}

// NewBuilder creates a Builder for the ffmpeg binary at path.
func NewBuilder(path string) *Builder {
	return &Builder{Path: path}
}

func (b *Builder) binary() (string, error) {
	if b.Path != "" {
		return b.Path, nil
	}
	return FindFFmpeg()
}

// EncodeCommand implements ports.CommandBuilder.
func (b *Builder) EncodeCommand(cfg pipeline.EncoderConfig, outputPath string) (ports.Command, error) {
	path, err := b.binary()
	if err != nil {
		return ports.Command{}, err
	}
	args, err := EncodeArgs(cfg, outputPath)
	if err != nil {
		return ports.Command{}, err
	}
	return ports.Command{Path: path, Args: args}, nil
}

// EncodeArgs maps a segment configuration to ffmpeg arguments reading raw
// frames from stdin and writing an H.264 MP4 to outputPath.
func EncodeArgs(cfg pipeline.EncoderConfig, outputPath string) ([]string, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	args := []string{"-hide_banner", "-loglevel", "error"}
	args = append(args, inputArgs(cfg)...)
	args = append(args, "-i", "-")

	codec, err := codecArgs(cfg)
	if err != nil {
		return nil, err
	}
	args = append(args, codec...)
	args = append(args, "-an", "-y", outputPath)
	return args, nil
}

func inputArgs(cfg pipeline.EncoderConfig) []string {
	fps := strconv.Itoa(cfg.FPS)
	if cfg.InputFormat == pipeline.FormatMJPEG {
		return []string{"-f", "mjpeg", "-framerate", fps}
	}

	pixFmt := "rgb24"
	switch cfg.InputFormat {
	case pipeline.FormatYUYV422:
		pixFmt = "yuyv422"
	case pipeline.FormatNV12:
		pixFmt = "nv12"
	case pipeline.FormatRGBA:
		pixFmt = "rgba"
	case pipeline.FormatGray:
		pixFmt = "gray"
	}
	return []string{
		"-f", "rawvideo",
		"-pixel_format", pixFmt,
		"-video_size", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"-framerate", fps,
	}
}

func codecArgs(cfg pipeline.EncoderConfig) ([]string, error) {
	switch cfg.HWAccel {
	case pipeline.HWAccelNone:
		return []string{
			"-c:v", "libx264",
			"-vf", "format=yuv420p",
			"-preset", pick(cfg.Speed, "ultrafast", "veryfast", "medium"),
			"-crf", pickQuality(cfg.Quality, "18", "23", "28"),
			"-tune", "zerolatency",
		}, nil
	case pipeline.HWAccelNVENC:
		return []string{
			"-c:v", "h264_nvenc",
			"-vf", "format=yuv420p",
			"-preset", pick(cfg.Speed, "p1", "p4", "p7"),
			"-rc:v", "vbr",
			"-cq", pickQuality(cfg.Quality, "19", "23", "28"),
		}, nil
	case pipeline.HWAccelAMF:
		return []string{
			"-c:v", "h264_amf",
			"-vf", "format=yuv420p",
			"-usage", "transcoding",
		}, nil
	case pipeline.HWAccelQuickSync:
		return []string{
			"-c:v", "h264_qsv",
			"-vf", "format=nv12",
			"-preset", "medium",
		}, nil
	default:
		return nil, fmt.Errorf("unsupported hwaccel %q", cfg.HWAccel)
	}
}

func pick(s pipeline.Speed, fastest, balanced, compact string) string {
	switch s {
	case pipeline.SpeedFastest:
		return fastest
	case pipeline.SpeedCompact:
		return compact
	default:
		return balanced
	}
}

func pickQuality(q pipeline.Quality, high, medium, low string) string {
	switch q {
	case pipeline.QualityHigh:
		return high
	case pipeline.QualityLow:
		return low
	default:
		return medium
	}
}

// ConcatArgs returns ffmpeg arguments joining the files listed in a concat
// manifest by stream copy.
func ConcatArgs(manifestPath, outputPath string) []string {
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-f", "concat",
		"-safe", "0",
		"-i", manifestPath,
		"-c", "copy",
		"-y", outputPath,
	}
}

var _ ports.CommandBuilder = (*Builder)(nil)

// Package main provides the CLI entry point for cliprec.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/user/cliprec/pkg/adapters/ffmpeg"
	"github.com/user/cliprec/pkg/adapters/logger"
	"github.com/user/cliprec/pkg/adapters/mp4probe"
	"github.com/user/cliprec/pkg/adapters/osfilesystem"
	"github.com/user/cliprec/pkg/adapters/preview"
	"github.com/user/cliprec/pkg/adapters/testsource"
	"github.com/user/cliprec/pkg/config"
	"github.com/user/cliprec/pkg/journal"
	"github.com/user/cliprec/pkg/orchestrator"
	"github.com/user/cliprec/pkg/pipeline"
	"github.com/user/cliprec/pkg/ports"
	"github.com/user/cliprec/pkg/stitch"
	"github.com/user/cliprec/pkg/summarizer"
	"github.com/user/cliprec/pkg/supervisor"
)

var version = "dev"

func main() {
	app := &cli.App{
		Name:    "cliprec",
		Usage:   l10n.T("Record video clips while a key is held and join them into one MP4"),
		Version: version,
		Description: l10n.T("cliprec records a camera in segments. Hold Space to record a clip, " +
			"Backspace removes the last clip and Enter joins all clips into one video."),
		Commands: []*cli.Command{
			recordCommand(),
			stitchCommand(),
			recoverCommand(),
			probeCommand(),
			versionCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func logFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "log-level",
			Aliases:  []string{"l"},
			Usage:    l10n.T("Log level (debug, info, warn, error)"),
			Category: l10n.T("Logging"),
		},
		&cli.BoolFlag{
			Name:     "quiet",
			Aliases:  []string{"q"},
			Usage:    l10n.T("Suppress all log output"),
			Category: l10n.T("Logging"),
		},
	}
}

func newLogger(c *cli.Context, level string) ports.Logger {
	if c.Bool("quiet") {
		return logger.NewNoop()
	}
	if c.IsSet("log-level") {
		level = c.String("log-level")
	}
	return logger.NewConsole(ports.ParseLogLevel(level))
}

// signalContext returns a context cancelled by SIGINT or SIGTERM.
func signalContext(log ports.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			log.Warn("Interrupted, shutting down...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

func recordCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:     "config",
			Aliases:  []string{"c"},
			Usage:    l10n.T("YAML configuration file"),
			Category: l10n.T("Output"),
		},
		&cli.StringFlag{
			Name:     "output",
			Aliases:  []string{"o"},
			Usage:    l10n.T("Output MP4 file path (default: output_<timestamp>.mp4)"),
			Category: l10n.T("Output"),
		},
		&cli.StringFlag{
			Name:     "session-dir",
			Usage:    l10n.T("Directory for segment files (default: hidden directory beside the output)"),
			Category: l10n.T("Output"),
		},
		&cli.StringFlag{
			Name:     "summary",
			Usage:    l10n.T("Output session summary to file (Markdown format)"),
			Category: l10n.T("Output"),
		},
		&cli.StringFlag{
			Name:     "source",
			Usage:    l10n.T("Frame source (ffmpeg, test)"),
			Category: l10n.T("Capture"),
		},
		&cli.StringFlag{
			Name:     "device",
			Aliases:  []string{"d"},
			Usage:    l10n.T("Capture device"),
			Category: l10n.T("Capture"),
		},
		&cli.IntFlag{
			Name:     "width",
			Aliases:  []string{"W"},
			Usage:    l10n.T("Capture width"),
			Category: l10n.T("Capture"),
		},
		&cli.IntFlag{
			Name:     "height",
			Aliases:  []string{"H"},
			Usage:    l10n.T("Capture height"),
			Category: l10n.T("Capture"),
		},
		&cli.IntFlag{
			Name:     "fps",
			Usage:    l10n.T("Capture frame rate"),
			Category: l10n.T("Capture"),
		},
		&cli.StringFlag{
			Name:     "format",
			Usage:    l10n.T("Capture pixel format (mjpeg, yuyv422, nv12, rgb24)"),
			Category: l10n.T("Capture"),
		},
		&cli.StringFlag{
			Name:     "quality",
			Usage:    l10n.T("Encoder quality (high, medium, low)"),
			Category: l10n.T("Encoding"),
		},
		&cli.StringFlag{
			Name:     "speed",
			Usage:    l10n.T("Encoder speed (fastest, balanced, compact)"),
			Category: l10n.T("Encoding"),
		},
		&cli.StringFlag{
			Name:     "hwaccel",
			Usage:    l10n.T("Hardware encoder (none, nvenc, amf, qsv)"),
			Category: l10n.T("Encoding"),
		},
		&cli.StringFlag{
			Name:     "ffmpeg",
			Usage:    l10n.T("Path to ffmpeg executable (falls back to FFMPEG_PATH env, then PATH)"),
			Category: l10n.T("Encoding"),
		},
		&cli.StringFlag{
			Name:     "listen",
			Usage:    l10n.T("Control surface address (empty to disable)"),
			Category: l10n.T("Control"),
		},
	}

	return &cli.Command{
		Name:        "record",
		Usage:       l10n.T("Record clips from a camera"),
		Description: l10n.T("Open the control surface in a browser, hold Space to record and press Enter to save."),
		Flags:       append(flags, logFlags()...),
		Action:      runRecord,
	}
}

func loadConfig(c *cli.Context) (config.Config, error) {
	cfg := config.Defaults()
	if path := c.String("config"); path != "" {
		loaded, err := config.LoadFromFile(path)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	strOverrides := map[string]*string{
		"output":      &cfg.OutputPath,
		"session-dir": &cfg.SessionDir,
		"summary":     &cfg.Summary,
		"source":      &cfg.Source,
		"device":      &cfg.Capture.Device,
		"format":      &cfg.Capture.Format,
		"quality":     &cfg.Encoder.Quality,
		"speed":       &cfg.Encoder.Speed,
		"hwaccel":     &cfg.Encoder.HWAccel,
		"ffmpeg":      &cfg.FFmpegPath,
		"listen":      &cfg.Listen,
		"log-level":   &cfg.LogLevel,
	}
	for name, dst := range strOverrides {
		if c.IsSet(name) {
			*dst = c.String(name)
		}
	}
	intOverrides := map[string]*int{
		"width":  &cfg.Capture.Width,
		"height": &cfg.Capture.Height,
		"fps":    &cfg.Capture.FPS,
	}
	for name, dst := range intOverrides {
		if c.IsSet(name) {
			*dst = c.Int(name)
		}
	}

	// The test pattern is rendered as RGB.
	if cfg.Source == config.SourceTest && cfg.Capture.Format != string(pipeline.FormatRGBA) {
		cfg.Capture.Format = string(pipeline.FormatRGB24)
	}

	return cfg, cfg.Validate()
}

func runRecord(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	log := newLogger(c, cfg.LogLevel)

	orchConfig, err := cfg.ToOrchestratorConfig(time.Now())
	if err != nil {
		return err
	}

	if cfg.FFmpegPath != "" {
		ffmpeg.SetFFmpegPath(cfg.FFmpegPath)
	}
	bin, err := ffmpeg.FindFFmpeg()
	if err != nil {
		return err
	}
	log.Debug("Using ffmpeg at %s", bin)

	ctx, cancel := signalContext(log)
	defer cancel()

	// Create adapters
	fs := osfilesystem.New()
	builder := ffmpeg.NewBuilder(bin)
	encoder := supervisor.New(builder, supervisor.Options{CloseTimeout: orchConfig.CloseTimeout}, log)
	prober := mp4probe.New()
	stitcher := stitch.New(fs, ffmpeg.NewConcatenator(builder, log), prober, log)

	var source ports.FrameSource
	var sourceName string
	switch cfg.Source {
	case config.SourceTest:
		src, err := testsource.New(testsource.Config{
			Width:  orchConfig.Encoder.Width,
			Height: orchConfig.Encoder.Height,
			FPS:    orchConfig.Encoder.FPS,
			Format: orchConfig.Encoder.InputFormat,
		})
		if err != nil {
			return err
		}
		source, sourceName = src, src.Describe()
	default:
		capture, err := cfg.CaptureSettings()
		if err != nil {
			return err
		}
		src, err := ffmpeg.NewSource(capture, builder, log)
		if err != nil {
			return err
		}
		source, sourceName = src, src.Describe()
	}

	orch := orchestrator.New(source, encoder, stitcher, preview.New(), prober, fs, log)
	result, runErr := orch.Run(ctx, orchConfig)

	if cfg.Summary != "" {
		writeSummary(fs, cfg.Summary, sourceName, orchConfig.Encoder, result, log)
	}

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) && len(result.Playlist) > 0 {
			log.Info("Run 'cliprec recover --dir %s' to save the kept clips", result.SessionDir)
			return nil
		}
		return runErr
	}
	if result.OutputPath != "" {
		log.Info("Output saved to %s", result.OutputPath)
	}
	return nil
}

func writeSummary(fs ports.FileSystem, path, source string, enc pipeline.EncoderConfig, result orchestrator.RunResult, log ports.Logger) {
	video := summarizer.VideoInfo{}
	if result.OutputPath != "" {
		video = summarizer.VideoInfo{
			Path:     result.OutputPath,
			Duration: result.Duration,
			FileSize: result.FileSize,
		}
		if info, err := mp4probe.ProbeFile(result.OutputPath); err == nil {
			video.Codec = string(info.Codec)
		}
	}

	summary := summarizer.NewBuilder().
		WithSession(summarizer.SessionInfo{
			ID:         result.SessionID,
			Dir:        result.SessionDir,
			State:      result.State.String(),
			Reason:     result.Reason,
			StartedAt:  result.StartedAt,
			FinishedAt: result.FinishedAt,
		}).
		WithEncoder(source, enc).
		WithClips(result.Playlist).
		WithCapture(summarizer.CaptureInfo{
			Routed:         result.Router.Routed,
			Dropped:        result.Router.Dropped,
			PreviewSkipped: result.Router.PreviewDropped,
			OutOfOrder:     result.Router.OutOfOrder,
			Written:        result.Recorder.FramesWritten,
			Discarded:      result.Recorder.FramesDiscarded,
		}).
		WithVideo(video).
		Build()

	writer := summarizer.NewWriter(summarizer.NewMarkdownFormatter(), fs)
	if err := writer.Write(path, summary); err != nil {
		log.Warn("Failed to write summary: %s", err)
		return
	}
	log.Info("Summary saved to %s", path)
}

func stitchCommand() *cli.Command {
	return &cli.Command{
		Name:      "stitch",
		Usage:     l10n.T("Join MP4 segments into one video"),
		ArgsUsage: "SEGMENT...",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:     "output",
				Aliases:  []string{"o"},
				Usage:    l10n.T("Output MP4 file path (required)"),
				Required: true,
				Category: l10n.T("Output"),
			},
			&cli.StringFlag{
				Name:     "ffmpeg",
				Usage:    l10n.T("Path to ffmpeg executable (falls back to FFMPEG_PATH env, then PATH)"),
				Category: l10n.T("Encoding"),
			},
		}, logFlags()...),
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return errors.New(l10n.T("At least one segment is required"))
			}
			log := newLogger(c, "info")
			output := c.String("output")
			return stitchSegments(c, log, c.Args().Slice(), output, "", true)
		},
	}
}

func recoverCommand() *cli.Command {
	return &cli.Command{
		Name:  "recover",
		Usage: l10n.T("Save the clips of an interrupted session"),
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:     "dir",
				Usage:    l10n.T("Session directory (required)"),
				Required: true,
				Category: l10n.T("Output"),
			},
			&cli.StringFlag{
				Name:     "output",
				Aliases:  []string{"o"},
				Usage:    l10n.T("Output MP4 file path (default: the session's output)"),
				Category: l10n.T("Output"),
			},
			&cli.StringFlag{
				Name:     "ffmpeg",
				Usage:    l10n.T("Path to ffmpeg executable (falls back to FFMPEG_PATH env, then PATH)"),
				Category: l10n.T("Encoding"),
			},
		}, logFlags()...),
		Action: func(c *cli.Context) error {
			log := newLogger(c, "info")
			fs := osfilesystem.New()
			dir := c.String("dir")

			res, err := journal.Recover(fs, dir, log)
			if err != nil {
				return err
			}
			paths := res.Journal.Paths(dir)
			if len(paths) == 0 {
				return pipeline.ErrEmptyPlaylist
			}
			output := c.String("output")
			if output == "" {
				output = res.Journal.Output
			}
			if output == "" {
				return errors.New(l10n.T("No output path in journal, use --output"))
			}
			if err := stitchSegments(c, log, paths, output, filepath.Join(dir, journal.ManifestName), false); err != nil {
				return err
			}
			if err := journal.Remove(fs, dir); err != nil {
				log.Warn("Journal not removed: %v", err)
			}
			return nil
		},
	}
}

// stitchSegments joins paths into output. User-supplied segments are kept
// and must all be probeable; journaled segments are consumed.
func stitchSegments(c *cli.Context, log ports.Logger, paths []string, output, manifest string, userFiles bool) error {
	if p := c.String("ffmpeg"); p != "" {
		ffmpeg.SetFFmpegPath(p)
	}
	bin, err := ffmpeg.FindFFmpeg()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(log)
	defer cancel()

	fs := osfilesystem.New()
	prober := mp4probe.New()
	stitcher := stitch.New(fs, ffmpeg.NewConcatenator(ffmpeg.NewBuilder(bin), log), prober, log)

	var expected time.Duration
	for _, p := range paths {
		d, err := prober.Probe(p)
		if err != nil {
			if userFiles {
				return fmt.Errorf("%s: %w", p, err)
			}
			expected = 0
			break
		}
		expected += d
	}

	result, err := stitcher.Execute(ctx, pipeline.StitchInput{
		Segments:     paths,
		OutputPath:   output,
		ManifestPath: manifest,
		Expected:     expected,
		KeepSegments: userFiles,
	})
	if err != nil {
		return err
	}
	log.Info("Output saved to %s (%d segments, %.2f s)", result.OutputPath, result.Segments, result.Duration.Seconds())
	return nil
}

func probeCommand() *cli.Command {
	return &cli.Command{
		Name:      "probe",
		Usage:     l10n.T("Show codec and duration of MP4 files"),
		ArgsUsage: "FILE...",
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return errors.New(l10n.T("At least one file is required"))
			}
			var failed bool
			for _, path := range c.Args().Slice() {
				info, err := mp4probe.ProbeFile(path)
				if err != nil {
					fmt.Fprintf(c.App.ErrWriter, "%s: %v\n", path, err)
					failed = true
					continue
				}
				layout := "progressive"
				if info.Fragmented {
					layout = "fragmented"
				}
				fmt.Fprintf(c.App.Writer, "%s\t%s\t%.3fs\t%d samples\t%s\n",
					path, info.Codec, info.Duration.Seconds(), info.Samples, layout)
			}
			if failed {
				return cli.Exit("", 1)
			}
			return nil
		},
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: l10n.T("Show version information"),
		Action: func(c *cli.Context) error {
			fmt.Fprintln(c.App.Writer, l10n.F("cliprec version %s", version))
			return nil
		},
	}
}

package ffmpeg_test

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/user/cliprec/pkg/adapters/ffmpeg"
	"github.com/user/cliprec/pkg/adapters/logger"
	"github.com/user/cliprec/pkg/adapters/mp4probe"
	"github.com/user/cliprec/pkg/adapters/osfilesystem"
	"github.com/user/cliprec/pkg/pipeline"
	"github.com/user/cliprec/pkg/stitch"
	"github.com/user/cliprec/pkg/supervisor"
)

func requireFFmpeg(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping ffmpeg integration test in short mode")
	}
	path, err := ffmpeg.FindFFmpeg()
	if err != nil {
		t.Skip("ffmpeg not available")
	}
	return path
}

func gradient(cfg pipeline.EncoderConfig, n int) []byte {
	data := make([]byte, cfg.InputFormat.FrameSize(cfg.Width, cfg.Height))
	for i := 0; i < len(data); i += 3 {
		data[i] = byte(n * 8)
		data[i+1] = byte(i)
		data[i+2] = 128
	}
	return data
}

// TestEncodeAndStitch records two one-second segments through the real
// encoder, stitches them and checks the probed durations.
func TestEncodeAndStitch(t *testing.T) {
	path := requireFFmpeg(t)

	log := logger.NewNoop()
	builder := ffmpeg.NewBuilder(path)
	sup := supervisor.New(builder, supervisor.Options{}, log)
	prober := mp4probe.New()
	dir := t.TempDir()

	cfg := pipeline.DefaultEncoderConfig()
	cfg.Width, cfg.Height = 64, 48
	cfg.InputFormat = pipeline.FormatRGB24
	cfg.Speed = pipeline.SpeedFastest

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	var segments []string
	for s := 1; s <= 2; s++ {
		out := filepath.Join(dir, fmt.Sprintf("segment_%03d.mp4", s))
		sink, err := sup.Open(ctx, cfg, out)
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		for i := 0; i < cfg.FPS; i++ {
			if err := sink.Write(gradient(cfg, i)); err != nil {
				t.Fatalf("Write failed: %v", err)
			}
		}
		if err := sink.Close(ctx); err != nil {
			if strings.Contains(err.Error(), "Unknown encoder") {
				t.Skip("ffmpeg built without libx264")
			}
			t.Fatalf("Close failed: %v", err)
		}

		d, err := prober.Probe(out)
		if err != nil {
			t.Fatalf("Probe segment failed: %v", err)
		}
		if diff := d - time.Second; diff < -100*time.Millisecond || diff > 100*time.Millisecond {
			t.Errorf("segment %d: expected ~1s, got %v", s, d)
		}
		segments = append(segments, out)
	}

	st := stitch.New(osfilesystem.New(), ffmpeg.NewConcatenator(builder, log), prober, log)
	output := filepath.Join(dir, "out", "final.mp4")
	res, err := st.Execute(ctx, pipeline.StitchInput{
		Segments:     segments,
		OutputPath:   output,
		ManifestPath: filepath.Join(dir, "concat_list.txt"),
		Expected:     2 * time.Second,
	})
	if err != nil {
		t.Fatalf("stitch failed: %v", err)
	}
	if res.Segments != 2 {
		t.Errorf("expected 2 segments, got %d", res.Segments)
	}
	if diff := res.Duration - 2*time.Second; diff < -200*time.Millisecond || diff > 200*time.Millisecond {
		t.Errorf("expected ~2s output, got %v", res.Duration)
	}

	info, err := mp4probe.ProbeFile(output)
	if err != nil {
		t.Fatalf("ProbeFile failed: %v", err)
	}
	if info.Codec != mp4probe.CodecH264 {
		t.Errorf("expected h264, got %s", info.Codec)
	}
}

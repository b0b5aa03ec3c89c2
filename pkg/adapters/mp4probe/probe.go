// Package mp4probe reads durations and codecs from MP4 files without
// shelling out to ffprobe.
package mp4probe

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Eyevinn/mp4ff/mp4"

	"github.com/user/cliprec/pkg/ports"
)

// Codec represents a video codec type.
type Codec string

const (
	CodecH264    Codec = "h264"
	CodecHEVC    Codec = "hevc"
	CodecAV1     Codec = "av1"
	CodecUnknown Codec = "unknown"
)

var (
	ErrNoVideoTrack = errors.New("mp4probe: no video track found")
	ErrNoDuration   = errors.New("mp4probe: duration not recorded")
)

// Info describes the video track of an MP4 file.
type Info struct {
	Codec      Codec
	Duration   time.Duration
	Samples    int
	Fragmented bool
}

// Prober implements ports.DurationProber on top of mp4ff.
type Prober struct{}

// New creates a Prober.
func New() *Prober {
	return &Prober{}
}

// Probe returns the duration of the video track in path.
func (p *Prober) Probe(path string) (time.Duration, error) {
	info, err := ProbeFile(path)
	if err != nil {
		return 0, err
	}
	return info.Duration, nil
}

// ProbeFile opens path and inspects it.
func ProbeFile(path string) (*Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	return ProbeReader(f)
}

// ProbeReader inspects an MP4 stream.
func ProbeReader(r io.Reader) (*Info, error) {
	mp4File, err := mp4.DecodeFile(r)
	if err != nil {
		return nil, fmt.Errorf("decode mp4: %w", err)
	}
	return inspect(mp4File)
}

func inspect(f *mp4.File) (*Info, error) {
	moov := f.Moov
	if moov == nil && f.Init != nil {
		moov = f.Init.Moov
	}
	if moov == nil {
		return nil, fmt.Errorf("no moov box found")
	}

	trak := videoTrack(moov)
	if trak == nil {
		return nil, ErrNoVideoTrack
	}

	info := &Info{
		Codec:      codecOf(trak),
		Fragmented: f.IsFragmented(),
	}

	if info.Fragmented {
		dur, samples, err := fragmentedDuration(f, moov, trak)
		if err != nil {
			return nil, err
		}
		info.Duration = dur
		info.Samples = samples
		return info, nil
	}

	// The movie header is authoritative for progressive files; the media
	// header is only consulted when the muxer left mvhd empty.
	if moov.Mvhd != nil && moov.Mvhd.Timescale > 0 && moov.Mvhd.Duration > 0 {
		info.Duration = scale(moov.Mvhd.Duration, moov.Mvhd.Timescale)
	} else if mdhd := trak.Mdia.Mdhd; mdhd != nil && mdhd.Timescale > 0 && mdhd.Duration > 0 {
		info.Duration = scale(mdhd.Duration, mdhd.Timescale)
	} else {
		return nil, ErrNoDuration
	}
	if stbl := trak.Mdia.Minf; stbl != nil && stbl.Stbl != nil && stbl.Stbl.Stsz != nil {
		info.Samples = int(stbl.Stbl.Stsz.SampleNumber)
	}
	return info, nil
}

// fragmentedDuration sums the sample durations of every fragment of the
// video track.
func fragmentedDuration(f *mp4.File, moov *mp4.MoovBox, trak *mp4.TrakBox) (time.Duration, int, error) {
	var timescale uint32 = 1000
	if trak.Mdia.Mdhd != nil && trak.Mdia.Mdhd.Timescale > 0 {
		timescale = trak.Mdia.Mdhd.Timescale
	}

	trackID := trak.Tkhd.TrackID
	var trex *mp4.TrexBox
	if moov.Mvex != nil {
		for _, t := range moov.Mvex.Trexs {
			if t.TrackID == trackID {
				trex = t
				break
			}
		}
	}

	var total uint64
	var samples int
	for _, seg := range f.Segments {
		for _, frag := range seg.Fragments {
			if frag.Moof == nil || !hasTrack(frag.Moof, trackID) {
				continue
			}
			full, err := frag.GetFullSamples(trex)
			if err != nil {
				return 0, 0, fmt.Errorf("get samples: %w", err)
			}
			for _, s := range full {
				total += uint64(s.Dur)
			}
			samples += len(full)
		}
	}
	if samples == 0 {
		return 0, 0, ErrNoDuration
	}
	return scale(total, timescale), samples, nil
}

func hasTrack(moof *mp4.MoofBox, trackID uint32) bool {
	for _, traf := range moof.Trafs {
		if traf.Tfhd != nil && traf.Tfhd.TrackID == trackID {
			return true
		}
	}
	return false
}

func videoTrack(moov *mp4.MoovBox) *mp4.TrakBox {
	for _, trak := range moov.Traks {
		if trak.Mdia != nil && trak.Mdia.Hdlr != nil && trak.Mdia.Hdlr.HandlerType == "vide" {
			return trak
		}
	}
	return nil
}

func codecOf(trak *mp4.TrakBox) Codec {
	if trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil || trak.Mdia.Minf.Stbl.Stsd == nil {
		return CodecUnknown
	}
	for _, child := range trak.Mdia.Minf.Stbl.Stsd.Children {
		switch child.Type() {
		case "avc1", "avc3":
			return CodecH264
		case "hvc1", "hev1":
			return CodecHEVC
		case "av01":
			return CodecAV1
		}
	}
	return CodecUnknown
}

func scale(units uint64, timescale uint32) time.Duration {
	ts := uint64(timescale)
	whole := units / ts
	frac := units % ts
	return time.Duration(whole)*time.Second + time.Duration(frac*uint64(time.Second)/ts)
}

var _ ports.DurationProber = (*Prober)(nil)

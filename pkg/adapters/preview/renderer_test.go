package preview

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/user/cliprec/pkg/pipeline"
	"github.com/user/cliprec/pkg/ports"
)

func solidRGB24(w, h int, r, g, b byte) pipeline.Frame {
	data := make([]byte, w*h*3)
	for i := 0; i < len(data); i += 3 {
		data[i], data[i+1], data[i+2] = r, g, b
	}
	return pipeline.Frame{Data: data, Format: pipeline.FormatRGB24, Width: w, Height: h}
}

func TestDecode_RGB24(t *testing.T) {
	img, err := Decode(solidRGB24(4, 2, 10, 20, 30))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	got := color.RGBAModel.Convert(img.At(3, 1)).(color.RGBA)
	want := color.RGBA{R: 10, G: 20, B: 30, A: 255}
	if got != want {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestDecode_GrayAndRGBA(t *testing.T) {
	gray, err := Decode(pipeline.Frame{Data: []byte{1, 2, 3, 4}, Format: pipeline.FormatGray, Width: 2, Height: 2})
	if err != nil {
		t.Fatalf("Decode gray failed: %v", err)
	}
	if g := gray.At(1, 1).(color.Gray); g.Y != 4 {
		t.Errorf("expected gray 4, got %d", g.Y)
	}

	rgba, err := Decode(pipeline.Frame{Data: []byte{1, 2, 3, 255, 5, 6, 7, 255}, Format: pipeline.FormatRGBA, Width: 2, Height: 1})
	if err != nil {
		t.Fatalf("Decode rgba failed: %v", err)
	}
	if c := rgba.At(1, 0).(color.RGBA); c.R != 5 || c.B != 7 {
		t.Errorf("unexpected pixel %v", c)
	}
}

func TestDecode_YUV(t *testing.T) {
	// 2x2 frames: luma 16,32,48,64 with one chroma sample
	nv12 := []byte{16, 32, 48, 64, 100, 200}
	img, err := Decode(pipeline.Frame{Data: nv12, Format: pipeline.FormatNV12, Width: 2, Height: 2})
	if err != nil {
		t.Fatalf("Decode nv12 failed: %v", err)
	}
	ycc := img.(*image.YCbCr)
	if ycc.Y[ycc.YOffset(1, 1)] != 64 {
		t.Errorf("nv12: expected luma 64, got %d", ycc.Y[ycc.YOffset(1, 1)])
	}
	if ycc.Cb[ycc.COffset(0, 0)] != 100 || ycc.Cr[ycc.COffset(0, 0)] != 200 {
		t.Errorf("nv12: unexpected chroma %d/%d", ycc.Cb[0], ycc.Cr[0])
	}

	yuyv := []byte{16, 100, 32, 200, 48, 110, 64, 210}
	img, err = Decode(pipeline.Frame{Data: yuyv, Format: pipeline.FormatYUYV422, Width: 2, Height: 2})
	if err != nil {
		t.Fatalf("Decode yuyv failed: %v", err)
	}
	ycc = img.(*image.YCbCr)
	if ycc.Y[ycc.YOffset(1, 0)] != 32 || ycc.Y[ycc.YOffset(0, 1)] != 48 {
		t.Errorf("yuyv: unexpected luma plane %v", ycc.Y)
	}
	if ycc.Cr[ycc.COffset(0, 1)] != 210 {
		t.Errorf("yuyv: expected Cr 210 on row 1, got %d", ycc.Cr[ycc.COffset(0, 1)])
	}
}

func TestDecode_MJPEG(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 16, 8))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, nil); err != nil {
		t.Fatal(err)
	}
	img, err := Decode(pipeline.Frame{Data: buf.Bytes(), Format: pipeline.FormatMJPEG})
	if err != nil {
		t.Fatalf("Decode mjpeg failed: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 16 || b.Dy() != 8 {
		t.Errorf("expected 16x8, got %dx%d", b.Dx(), b.Dy())
	}

	if _, err := Decode(pipeline.Frame{Data: []byte{0xFF, 0xD8}, Format: pipeline.FormatMJPEG}); err == nil {
		t.Error("expected error for truncated jpeg")
	}
}

func TestDecode_ShortFrame(t *testing.T) {
	_, err := Decode(pipeline.Frame{Data: make([]byte, 5), Format: pipeline.FormatRGB24, Width: 2, Height: 2})
	if !errors.Is(err, ErrShortFrame) {
		t.Errorf("expected ErrShortFrame, got %v", err)
	}
}

func TestFit(t *testing.T) {
	tests := []struct {
		w, h, maxW, maxH int
		wantW, wantH     int
	}{
		{1280, 720, 854, 480, 853, 480},
		{1920, 1080, 854, 480, 853, 480},
		{640, 480, 854, 480, 640, 480},
		{480, 640, 854, 480, 360, 480},
		{2000, 100, 854, 480, 854, 42},
		{320, 240, 0, 0, 320, 240},
		{0, 240, 854, 480, 0, 0},
	}
	for _, tt := range tests {
		w, h := Fit(tt.w, tt.h, tt.maxW, tt.maxH)
		if w != tt.wantW || h != tt.wantH {
			t.Errorf("Fit(%d,%d,%d,%d) = %dx%d, want %dx%d", tt.w, tt.h, tt.maxW, tt.maxH, w, h, tt.wantW, tt.wantH)
		}
	}
}

func TestRenderer_Downscale(t *testing.T) {
	r := New()
	img, err := r.Downscale(solidRGB24(1280, 720, 0, 0, 255), 854, 480)
	if err != nil {
		t.Fatalf("Downscale failed: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 853 || b.Dy() != 480 {
		t.Errorf("expected 853x480, got %dx%d", b.Dx(), b.Dy())
	}
	if c := color.RGBAModel.Convert(img.At(400, 200)).(color.RGBA); c.B != 255 || c.R != 0 {
		t.Errorf("expected blue pixel, got %v", c)
	}
}

func TestRenderer_Annotate(t *testing.T) {
	r := New()
	base, err := r.Downscale(solidRGB24(160, 90, 0, 0, 0), 160, 90)
	if err != nil {
		t.Fatal(err)
	}

	img := r.Annotate(base, ports.Overlay{Recording: true, Clips: 3, Message: "saved"})
	if b := img.Bounds(); b.Dx() != 160 || b.Dy() != 90 {
		t.Errorf("expected 160x90, got %dx%d", b.Dx(), b.Dy())
	}

	badge := color.RGBAModel.Convert(img.At(20, 19)).(color.RGBA)
	if badge.R < 150 || badge.G > 80 {
		t.Errorf("expected red REC badge, got %v", badge)
	}
	if c := color.RGBAModel.Convert(base.At(20, 19)).(color.RGBA); c.R != 0 {
		t.Error("Annotate modified its input")
	}

	idle := r.Annotate(base, ports.Overlay{Clips: 0})
	if c := color.RGBAModel.Convert(idle.At(20, 19)).(color.RGBA); c.R != 0 {
		t.Errorf("expected no badge when idle, got %v", c)
	}
}

func TestRenderer_EncodeJPEG(t *testing.T) {
	r := New()
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for _, q := range []int{-5, 80, 500} {
		data, err := r.EncodeJPEG(img, q)
		if err != nil {
			t.Fatalf("EncodeJPEG(%d) failed: %v", q, err)
		}
		if len(data) < 2 || data[0] != 0xFF || data[1] != 0xD8 {
			t.Errorf("quality %d: output is not a JPEG", q)
		}
	}
}

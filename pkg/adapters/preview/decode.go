package preview

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/user/cliprec/pkg/pipeline"
)

// ErrShortFrame is returned when a raw frame holds fewer bytes than its
// dimensions require.
var ErrShortFrame = errors.New("preview: frame payload too short")

// Decode converts a captured frame into an image. Raw formats share the
// frame's buffer where the image layout allows it.
func Decode(f pipeline.Frame) (image.Image, error) {
	if f.Format == pipeline.FormatMJPEG {
		img, err := jpeg.Decode(bytes.NewReader(f.Data))
		if err != nil {
			return nil, fmt.Errorf("decode jpeg: %w", err)
		}
		return img, nil
	}

	if f.Width <= 0 || f.Height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", f.Width, f.Height)
	}
	need := f.Format.FrameSize(f.Width, f.Height)
	if need == 0 {
		return nil, fmt.Errorf("unsupported pixel format %q", f.Format)
	}
	if len(f.Data) < need {
		return nil, fmt.Errorf("%w: %d < %d bytes", ErrShortFrame, len(f.Data), need)
	}

	rect := image.Rect(0, 0, f.Width, f.Height)
	switch f.Format {
	case pipeline.FormatRGBA:
		return &image.RGBA{Pix: f.Data[:need], Stride: f.Width * 4, Rect: rect}, nil
	case pipeline.FormatGray:
		return &image.Gray{Pix: f.Data[:need], Stride: f.Width, Rect: rect}, nil
	case pipeline.FormatRGB24:
		return decodeRGB24(f.Data, rect), nil
	case pipeline.FormatNV12:
		return decodeNV12(f.Data, rect), nil
	case pipeline.FormatYUYV422:
		return decodeYUYV(f.Data, rect), nil
	}
	return nil, fmt.Errorf("unsupported pixel format %q", f.Format)
}

func decodeRGB24(data []byte, rect image.Rectangle) *image.RGBA {
	img := image.NewRGBA(rect)
	n := rect.Dx() * rect.Dy()
	for i := 0; i < n; i++ {
		copy(img.Pix[i*4:i*4+3], data[i*3:i*3+3])
		img.Pix[i*4+3] = 0xFF
	}
	return img
}

// decodeNV12 splits the interleaved chroma plane into Cb and Cr.
func decodeNV12(data []byte, rect image.Rectangle) *image.YCbCr {
	w, h := rect.Dx(), rect.Dy()
	img := image.NewYCbCr(rect, image.YCbCrSubsampleRatio420)
	for y := 0; y < h; y++ {
		copy(img.Y[y*img.YStride:y*img.YStride+w], data[y*w:y*w+w])
	}
	uv := data[w*h:]
	cw, ch := (w+1)/2, (h+1)/2
	for y := 0; y < ch; y++ {
		for x := 0; x < cw; x++ {
			i := y*w + x*2
			if i+1 >= len(uv) {
				return img
			}
			img.Cb[y*img.CStride+x] = uv[i]
			img.Cr[y*img.CStride+x] = uv[i+1]
		}
	}
	return img
}

// decodeYUYV unpacks Y0 U Y1 V macropixels.
func decodeYUYV(data []byte, rect image.Rectangle) *image.YCbCr {
	w, h := rect.Dx(), rect.Dy()
	img := image.NewYCbCr(rect, image.YCbCrSubsampleRatio422)
	for y := 0; y < h; y++ {
		row := data[y*w*2:]
		for x := 0; x+1 < w; x += 2 {
			m := row[x*2 : x*2+4]
			img.Y[y*img.YStride+x] = m[0]
			img.Y[y*img.YStride+x+1] = m[2]
			img.Cb[y*img.CStride+x/2] = m[1]
			img.Cr[y*img.CStride+x/2] = m[3]
		}
	}
	return img
}

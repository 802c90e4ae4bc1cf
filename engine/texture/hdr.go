package texture

import (
	"bytes"

	"github.com/Carmen-Shannon/ab3de/common"
	"github.com/cockroachdb/errors"
	"github.com/mdouchement/hdr"
	"github.com/mdouchement/hdr/codec/rgbe"
)

// ErrHDRDecode marks every error returned for malformed Radiance input.
var ErrHDRDecode = errors.New("hdr decode")

// maxHDRDimension is the default MaxTextureDimension2D; a larger source could never be uploaded.
const maxHDRDimension = 8192

func hdrError(err error, format string, args ...any) error {
	if err == nil {
		return errors.Mark(errors.Newf("hdr: "+format, args...), ErrHDRDecode)
	}
	return errors.Mark(errors.Wrapf(err, "hdr: "+format, args...), ErrHDRDecode)
}

// DecodeHDR decodes a Radiance RGBE image (.hdr) into RGBA float pixels with alpha 1.
// The header is checked before any pixel is read, so a corrupt resolution line cannot
// request a huge allocation.
//
// Parameters:
//   - data: the file contents
//
// Returns:
//   - common.FloatTextureStagingData: the decoded pixels, top row first
//   - error: an error marked ErrHDRDecode if the input is malformed
func DecodeHDR(data []byte) (staging common.FloatTextureStagingData, err error) {
	defer func() {
		if r := recover(); r != nil {
			staging, err = common.FloatTextureStagingData{}, hdrError(nil, "decoder panic: %v", r)
		}
	}()

	cfg, err := rgbe.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return common.FloatTextureStagingData{}, hdrError(err, "read header")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > maxHDRDimension || cfg.Height > maxHDRDimension {
		return common.FloatTextureStagingData{}, hdrError(nil, "invalid dimensions %dx%d", cfg.Width, cfg.Height)
	}

	decoded, err := rgbe.Decode(bytes.NewReader(data))
	if err != nil {
		return common.FloatTextureStagingData{}, hdrError(err, "read scanlines")
	}
	img, ok := decoded.(hdr.Image)
	if !ok {
		return common.FloatTextureStagingData{}, hdrError(nil, "decoder returned %T", decoded)
	}
	return hdrPixels(img), nil
}

// hdrPixels flattens an HDR image into RGBA float32 rows.
func hdrPixels(img hdr.Image) common.FloatTextureStagingData {
	bounds := img.Bounds()
	pixels := make([]float32, 0, bounds.Dx()*bounds.Dy()*4)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.HDRAt(x, y).HDRRGBA()
			pixels = append(pixels, float32(r), float32(g), float32(b), 1)
		}
	}
	return common.FloatTextureStagingData{
		Pixels: pixels,
		Width:  uint32(bounds.Dx()),
		Height: uint32(bounds.Dy()),
	}
}

package texture

import (
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/Carmen-Shannon/ab3de/common"
	"github.com/chewxy/math32"
	"github.com/cockroachdb/errors"
	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DecodeImage decodes a PNG, JPEG, BMP, TIFF or WebP image into RGBA8 staging data.
// Images whose longer edge exceeds maxEdge are scaled down to fit, keeping the aspect ratio.
//
// Parameters:
//   - r: the encoded image
//   - maxEdge: the largest allowed edge in pixels, 0 for no limit
//
// Returns:
//   - common.TextureStagingData: the RGBA8 pixels
//   - error: an error if the image could not be decoded
func DecodeImage(r io.Reader, maxEdge uint32) (common.TextureStagingData, error) {
	src, format, err := image.Decode(r)
	if err != nil {
		return common.TextureStagingData{}, errors.Wrap(err, "decode image")
	}

	bounds := src.Bounds()
	w, h := uint32(bounds.Dx()), uint32(bounds.Dy())
	if w == 0 || h == 0 {
		return common.TextureStagingData{}, errors.Newf("decode %s image: empty bounds", format)
	}

	dst := image.NewRGBA(image.Rect(0, 0, int(w), int(h)))
	if tw, th := fitEdge(w, h, maxEdge); tw != w || th != h {
		dst = image.NewRGBA(image.Rect(0, 0, int(tw), int(th)))
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Src, nil)
	} else {
		xdraw.Draw(dst, dst.Bounds(), src, bounds.Min, xdraw.Src)
	}

	return common.TextureStagingData{
		Pixels: dst.Pix,
		Width:  uint32(dst.Rect.Dx()),
		Height: uint32(dst.Rect.Dy()),
	}, nil
}

// fitEdge scales (w, h) down so neither exceeds maxEdge. Neither result drops below 1.
func fitEdge(w, h, maxEdge uint32) (uint32, uint32) {
	longest := max(w, h)
	if maxEdge == 0 || longest <= maxEdge {
		return w, h
	}
	return max(w*maxEdge/longest, 1), max(h*maxEdge/longest, 1)
}

// CheckerTexture generates a two-tone checkerboard used when no diffuse image is configured.
//
// Parameters:
//   - size: the edge length in pixels
//   - cells: the number of squares along each edge
//
// Returns:
//   - common.TextureStagingData: the RGBA8 pixels
func CheckerTexture(size, cells uint32) common.TextureStagingData {
	cells = max(cells, 1)
	cell := max(size/cells, 1)
	pix := make([]byte, 0, size*size*4)
	for y := range size {
		for x := range size {
			if (x/cell+y/cell)%2 == 0 {
				pix = append(pix, 0xd8, 0xc8, 0xa8, 0xff)
			} else {
				pix = append(pix, 0x58, 0x40, 0x30, 0xff)
			}
		}
	}
	return common.TextureStagingData{Pixels: pix, Width: size, Height: size}
}

// FlatNormalTexture generates a normal map whose every texel encodes the unperturbed
// tangent-space normal (0, 0, 1).
//
// Parameters:
//   - size: the edge length in pixels
//
// Returns:
//   - common.TextureStagingData: the RGBA8 pixels
func FlatNormalTexture(size uint32) common.TextureStagingData {
	pix := make([]byte, 0, size*size*4)
	for range size * size {
		pix = append(pix, 0x80, 0x80, 0xff, 0xff)
	}
	return common.TextureStagingData{Pixels: pix, Width: size, Height: size}
}

// SkyGradient generates an equirectangular sky: a bright horizon fading to a deep zenith
// above and a dark ground below. Values above 1 near the horizon exercise tonemapping.
//
// Parameters:
//   - width, height: the image size, conventionally width = 2 * height
//
// Returns:
//   - common.FloatTextureStagingData: the RGBA float pixels
func SkyGradient(width, height uint32) common.FloatTextureStagingData {
	horizon := [3]float32{1.6, 1.4, 1.2}
	zenith := [3]float32{0.15, 0.35, 0.8}
	ground := [3]float32{0.12, 0.1, 0.08}

	pix := make([]float32, 0, width*height*4)
	for y := range height {
		// row 0 is the zenith, as in Radiance images
		lat := 1 - (float32(y)+0.5)/float32(height)*2
		var c [3]float32
		if lat >= 0 {
			t := math32.Sqrt(lat)
			for i := range c {
				c[i] = horizon[i] + (zenith[i]-horizon[i])*t
			}
		} else {
			t := math32.Min(-lat*4, 1)
			for i := range c {
				c[i] = horizon[i] + (ground[i]-horizon[i])*t
			}
		}
		for range width {
			pix = append(pix, c[0], c[1], c[2], 1)
		}
	}
	return common.FloatTextureStagingData{Pixels: pix, Width: width, Height: height}
}

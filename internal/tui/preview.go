package tui

import (
	"image"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
)

// renderFrame draws img into at most width x height terminal cells. Each
// cell is an upper half block carrying two vertically stacked pixels, so
// the image is fitted to width x 2*height pixels with its aspect kept.
func renderFrame(img image.Image, width, height int) string {
	if img == nil || width <= 0 || height <= 0 {
		return ""
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return ""
	}

	fitted := imaging.Fit(img, width, height*2, imaging.Box)
	fb := fitted.Bounds()

	var sb strings.Builder
	sb.Grow(fb.Dx() * (fb.Dy()/2 + 1) * 40)
	for y := fb.Min.Y; y < fb.Max.Y; y += 2 {
		if y > fb.Min.Y {
			sb.WriteByte('\n')
		}
		for x := fb.Min.X; x < fb.Max.X; x++ {
			top := fitted.NRGBAAt(x, y)
			bottom := top
			if y+1 < fb.Max.Y {
				bottom = fitted.NRGBAAt(x, y+1)
			}
			writeColor(&sb, "38", top.R, top.G, top.B)
			writeColor(&sb, "48", bottom.R, bottom.G, bottom.B)
			sb.WriteString("▀")
		}
		sb.WriteString("\x1b[0m")
	}
	return sb.String()
}

// writeColor emits a 24-bit SGR color; layer is 38 (fg) or 48 (bg)
func writeColor(sb *strings.Builder, layer string, r, g, b uint8) {
	sb.WriteString("\x1b[")
	sb.WriteString(layer)
	sb.WriteString(";2;")
	sb.WriteString(strconv.Itoa(int(r)))
	sb.WriteByte(';')
	sb.WriteString(strconv.Itoa(int(g)))
	sb.WriteByte(';')
	sb.WriteString(strconv.Itoa(int(b)))
	sb.WriteByte('m')
}

// frameCache memoizes the rendering of the last frame per size
type frameCache struct {
	img           image.Image
	width, height int
	art           string
}

func (c *frameCache) render(img image.Image, width, height int) string {
	if img == nil {
		return ""
	}
	if c.img != img || c.width != width || c.height != height {
		c.img, c.width, c.height = img, width, height
		c.art = renderFrame(img, width, height)
	}
	return c.art
}

// loadThumbnail reads a cached thumbnail, or nil when it is missing
func loadThumbnail(path string) image.Image {
	if path == "" {
		return nil
	}
	img, err := imaging.Open(path)
	if err != nil {
		return nil
	}
	return img
}

package pdfconvert

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"strings"

	"github.com/mitchellh/go-wordwrap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Placeholder geometry. 800x1120 roughly matches A4 proportions so the pages
// sit naturally next to real renders in a gallery.
const (
	placeholderWidth  = 800
	placeholderHeight = 1120
	previewWrapCol    = 80
	previewMaxLines   = 15
	jpegQuality       = 90
)

var (
	placeholderBg     = color.RGBA{R: 245, G: 245, B: 245, A: 255}
	placeholderText   = color.RGBA{R: 50, G: 50, B: 50, A: 255}
	placeholderAccent = color.RGBA{R: 61, G: 101, B: 181, A: 255}
)

// PlaceholderSpec describes one synthesized page.
type PlaceholderSpec struct {
	StoreName string
	Page      int
	Total     int
	// Preview is best-effort extracted text; empty renders a "could not
	// extract" notice instead.
	Preview string
	// Footer names the degraded-mode reason, e.g. which tiers were missing.
	Footer string
}

// RenderPlaceholder draws a diagnostic stand-in for an un-renderable PDF page
// and returns it JPEG-encoded at quality 90.
func RenderPlaceholder(spec PlaceholderSpec) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, placeholderWidth, placeholderHeight))
	draw.Draw(img, img.Bounds(), image.NewUniform(placeholderBg), image.Point{}, draw.Src)
	drawBorder(img, placeholderAccent)

	drawCentered(img, fmt.Sprintf("PDF Content - %s", spec.StoreName), 50, placeholderText)
	pageLine := fmt.Sprintf("Page %d", spec.Page)
	if spec.Total > 0 {
		pageLine = fmt.Sprintf("Page %d of %d", spec.Page, spec.Total)
	}
	drawCentered(img, pageLine, 100, placeholderText)

	if spec.Preview != "" {
		drawString(img, "PDF Content Preview:", 30, 150, placeholderAccent)
		lines := strings.Split(wordwrap.WrapString(spec.Preview, previewWrapCol), "\n")
		const startY, lineHeight = 180, 20
		max := len(lines)
		if max > previewMaxLines {
			max = previewMaxLines
		}
		for i := 0; i < max; i++ {
			line := lines[i]
			if len(line) > 90 {
				line = line[:90]
			}
			drawString(img, line, 30, startY+i*lineHeight, placeholderText)
		}
		if len(lines) > previewMaxLines {
			drawString(img, "... (content truncated)", 30, startY+previewMaxLines*lineHeight, placeholderText)
		}
	} else {
		drawString(img, "Could not extract text content from PDF", 30, 200, placeholderText)
	}

	if spec.Footer != "" {
		drawCentered(img, spec.Footer, placeholderHeight-50, placeholderAccent)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode placeholder: %w", err)
	}
	return buf.Bytes(), nil
}

func drawBorder(img *image.RGBA, c color.Color) {
	b := img.Bounds()
	for x := b.Min.X; x < b.Max.X; x++ {
		img.Set(x, b.Min.Y, c)
		img.Set(x, b.Max.Y-1, c)
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		img.Set(b.Min.X, y, c)
		img.Set(b.Max.X-1, y, c)
	}
}

func drawString(img *image.RGBA, text string, x, y int, c color.Color) {
	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y+basicfont.Face7x13.Ascent),
	}
	d.DrawString(text)
}

func drawCentered(img *image.RGBA, text string, y int, c color.Color) {
	width := font.MeasureString(basicfont.Face7x13, text).Ceil()
	x := (img.Bounds().Dx() - width) / 2
	if x < 0 {
		x = 0
	}
	drawString(img, text, x, y, c)
}

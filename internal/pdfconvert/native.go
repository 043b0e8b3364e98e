package pdfconvert

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"

	"github.com/gen2brain/go-fitz"
	"github.com/sirupsen/logrus"
)

// renderDPI balances quality against file size for on-screen gallery display.
const renderDPI = 150

// NativeLibraryStrategy rasterizes pages in-process through MuPDF (go-fitz).
// It is the highest-fidelity tier: Render fails when the library cannot load
// or the document cannot be opened, and the pipeline falls through.
type NativeLibraryStrategy struct {
	writer pageWriter
	log    *logrus.Logger
}

// Render converts every page of the document at absPath, returning how many
// pages it produced and how many the library reported. A page that fails to
// rasterize is logged and skipped; the document handle is closed on every
// exit path.
func (s *NativeLibraryStrategy) Render(ctx context.Context, absPath, storeID, displayName string) (int, int, error) {
	doc, err := openNative(absPath)
	if err != nil {
		return 0, 0, err
	}
	defer doc.Close()

	total := doc.NumPage()
	if total == 0 {
		return 0, 0, fmt.Errorf("document has no pages")
	}
	s.log.WithFields(logrus.Fields{"store_id": storeID, "pages": total}).
		Info("rendering PDF with native library")

	rendered := 0
	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return rendered, total, err
		}
		page := i + 1
		img, err := doc.ImageDPI(i, renderDPI)
		if err != nil {
			s.log.WithFields(logrus.Fields{"store_id": storeID, "page": page}).
				WithError(err).Warn("native render failed for page, skipping")
			continue
		}
		data, err := encodeOpaqueJPEG(img)
		if err != nil {
			s.log.WithFields(logrus.Fields{"store_id": storeID, "page": page}).
				WithError(err).Warn("encode failed for page, skipping")
			continue
		}
		if _, err := s.writer.savePage(ctx, storeID, "pdf-page", page, data); err != nil {
			s.log.WithFields(logrus.Fields{"store_id": storeID, "page": page}).
				WithError(err).Warn("persist failed for page, skipping")
			continue
		}
		rendered++
	}
	if rendered == 0 {
		return 0, total, fmt.Errorf("no pages rendered out of %d", total)
	}
	return rendered, total, nil
}

// openNative opens the document, converting the dynamic-load panic mode of
// go-fitz into an error the cascade can fall through on.
func openNative(absPath string) (doc *fitz.Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, fmt.Errorf("native library unavailable: %v", r)
		}
	}()
	doc, err = fitz.New(absPath)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	return doc, nil
}

// encodeOpaqueJPEG flattens the raster onto a white background and encodes it
// at the fixed gallery quality. MuPDF output can carry an alpha channel for
// pages with transparency.
func encodeOpaqueJPEG(src image.Image) ([]byte, error) {
	bounds := src.Bounds()
	flat := image.NewRGBA(bounds)
	draw.Draw(flat, bounds, image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(flat, bounds, src, bounds.Min, draw.Over)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, flat, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

package pdfconvert

import (
	"context"

	"github.com/sirupsen/logrus"
)

// PlaceholderStrategy is the floor of the degradation ladder: it synthesizes
// a diagnostic placeholder per estimated page from the raw bytes alone, so it
// works on any input, PDF-structured or not. It always produces at least one
// page and reports only the last error when even placeholder persistence is
// beyond saving.
type PlaceholderStrategy struct {
	writer pageWriter
	log    *logrus.Logger
}

// Render estimates the page count, enriches placeholders with whatever text
// the heuristics can recover, and records one image per page. Returns pages
// produced and the estimate it worked against.
func (s *PlaceholderStrategy) Render(ctx context.Context, pdfBytes []byte, storeID, displayName string) (int, int, error) {
	total := CountPages(pdfBytes)
	if total == 0 {
		total = 1
	}
	preview := ExtractSnippets(pdfBytes)
	s.log.WithFields(logrus.Fields{"store_id": storeID, "pages": total, "preview_len": len(preview)}).
		Info("generating placeholder pages")

	rendered := 0
	var lastErr error
	for page := 1; page <= total; page++ {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}
		data, err := RenderPlaceholder(PlaceholderSpec{
			StoreName: displayName,
			Page:      page,
			Total:     total,
			Preview:   preview,
			Footer:    "Limited PDF preview (no rendering capability available)",
		})
		if err != nil {
			lastErr = err
			s.log.WithFields(logrus.Fields{"store_id": storeID, "page": page}).
				WithError(err).Warn("placeholder render failed, skipping")
			continue
		}
		if _, err := s.writer.savePage(ctx, storeID, "pdf-placeholder", page, data); err != nil {
			lastErr = err
			s.log.WithFields(logrus.Fields{"store_id": storeID, "page": page}).
				WithError(err).Warn("placeholder persist failed, skipping")
			continue
		}
		rendered++
	}
	if rendered == 0 {
		return 0, total, lastErr
	}
	return rendered, total, nil
}

package pdfconvert

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Digitalmx/mattibud-web/internal/model"
	"github.com/Digitalmx/mattibud-web/internal/storage"
)

// ImageRecorder persists one StoreImage row per successfully produced page.
// The pgx repository satisfies it in production; tests use an in-memory one.
type ImageRecorder interface {
	RecordPage(ctx context.Context, img *model.StoreImage) error
}

// pageWriter is the slice of behavior all three strategies share: write the
// JPEG blob under the deterministic path convention, then create exactly one
// row for it. A page that fails before the row is created leaves no partial
// record behind.
type pageWriter struct {
	blobs  storage.BlobStorage
	images ImageRecorder
	now    func() time.Time
}

func (w pageWriter) savePage(ctx context.Context, storeID, prefix string, page int, jpegData []byte) (string, error) {
	path := fmt.Sprintf("stores/%s/%s-%d-%d.jpg", storeID, prefix, page, w.now().Unix())
	if err := w.blobs.Write(ctx, path, jpegData, "image/jpeg"); err != nil {
		return "", fmt.Errorf("write page blob: %w", err)
	}
	pageCopy := page
	img := &model.StoreImage{
		ID:        uuid.NewString(),
		StoreID:   storeID,
		ImagePath: path,
		IsFromPDF: true,
		PDFPage:   &pageCopy,
		SortOrder: page,
	}
	if err := w.images.RecordPage(ctx, img); err != nil {
		// The blob is orphaned without its row; remove it so storage stays
		// consistent with the database.
		_ = w.blobs.Delete(ctx, path)
		return "", fmt.Errorf("record page %d: %w", page, err)
	}
	return path, nil
}

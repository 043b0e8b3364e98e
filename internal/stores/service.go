// Package stores implements the store lifecycle around the conversion
// pipeline: attaching PDFs and images, and the explicit delete cascades that
// keep blob storage consistent with the database.
package stores

import (
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Digitalmx/mattibud-web/internal/model"
	"github.com/Digitalmx/mattibud-web/internal/storage"
)

// StoreStore is the slice of store persistence the service needs.
type StoreStore interface {
	Create(ctx context.Context, s *model.Store) error
	Get(ctx context.Context, id string) (*model.Store, error)
	List(ctx context.Context) ([]*model.Store, error)
	UpdatePDFPath(ctx context.Context, id, pdfPath string) error
	UpdateLogoPath(ctx context.Context, id, logoPath string) error
	Delete(ctx context.Context, id string) error
}

// ImageStore is the slice of image persistence the service needs.
type ImageStore interface {
	Create(ctx context.Context, img *model.StoreImage) error
	Get(ctx context.Context, id string) (*model.StoreImage, error)
	ListByStore(ctx context.Context, storeID string) ([]*model.StoreImage, error)
	ListPDFPages(ctx context.Context, storeID string) ([]*model.StoreImage, error)
	Delete(ctx context.Context, id string) error
	MaxSortOrder(ctx context.Context, storeID string) (int, error)
	UpdateSortOrder(ctx context.Context, id string, sortOrder int) error
}

// Converter runs the PDF-to-image pipeline; satisfied by pdfconvert.Pipeline.
type Converter interface {
	Convert(ctx context.Context, pdfStoragePath, storeID, displayName string) (model.ConversionOutcome, error)
}

// Service owns store mutations. All blob/row cascades happen here, in code,
// in a fixed order, rather than in persistence hooks.
type Service struct {
	stores StoreStore
	images ImageStore
	blobs  storage.BlobStorage
	conv   Converter
	log    *logrus.Logger
	locks  *storeLocks
	now    func() time.Time
}

// NewService wires a Service.
func NewService(st StoreStore, im ImageStore, blobs storage.BlobStorage, conv Converter, log *logrus.Logger) *Service {
	if log == nil {
		log = logrus.New()
	}
	return &Service{
		stores: st,
		images: im,
		blobs:  blobs,
		conv:   conv,
		log:    log,
		locks:  newStoreLocks(),
		now:    time.Now,
	}
}

// CreateStoreInput carries the fields accepted at store creation.
type CreateStoreInput struct {
	Name      string
	Address   string
	City      string
	Latitude  float64
	Longitude float64
}

// CreateStore inserts a new store.
func (s *Service) CreateStore(ctx context.Context, in CreateStoreInput) (*model.Store, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, errors.New("store name is required")
	}
	store := &model.Store{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Address:   in.Address,
		City:      in.City,
		Latitude:  in.Latitude,
		Longitude: in.Longitude,
	}
	if err := s.stores.Create(ctx, store); err != nil {
		return nil, err
	}
	return store, nil
}

// GetStore returns a store with its gallery in display order.
func (s *Service) GetStore(ctx context.Context, id string) (*model.Store, []*model.StoreImage, error) {
	store, err := s.stores.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	images, err := s.images.ListByStore(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return store, images, nil
}

// ListStores returns all stores.
func (s *Service) ListStores(ctx context.Context) ([]*model.Store, error) {
	return s.stores.List(ctx)
}

// StagePDF stores freshly uploaded PDF bytes without touching the store
// record; the returned path is handed to ProcessPDF, typically through the
// job queue.
func (s *Service) StagePDF(ctx context.Context, storeID, filename string, content []byte) (string, error) {
	pdfPath := fmt.Sprintf("pdfs/stores/%s/%s-%d.pdf", storeID, slug(strings.TrimSuffix(filename, path.Ext(filename))), s.now().Unix())
	if err := s.blobs.Write(ctx, pdfPath, content, "application/pdf"); err != nil {
		return "", fmt.Errorf("store pdf: %w", err)
	}
	return pdfPath, nil
}

// ProcessPDF makes a staged PDF the store's current document: it removes the
// previous document's derived pages and blob, records the new path, and runs
// the conversion pipeline. The whole sequence holds the store's lock so a
// concurrent re-upload cannot interleave its delete phase with our convert
// phase.
func (s *Service) ProcessPDF(ctx context.Context, storeID, pdfPath string) (model.ConversionOutcome, error) {
	unlock := s.locks.acquire(storeID)
	defer unlock()

	var outcome model.ConversionOutcome
	store, err := s.stores.Get(ctx, storeID)
	if err != nil {
		return outcome, err
	}
	if store.PDFPath != "" && store.PDFPath != pdfPath {
		if err := s.removePDFPages(ctx, storeID); err != nil {
			return outcome, err
		}
		s.deleteBlobQuietly(ctx, store.PDFPath)
	}
	if err := s.stores.UpdatePDFPath(ctx, storeID, pdfPath); err != nil {
		return outcome, err
	}
	outcome, err = s.conv.Convert(ctx, pdfPath, storeID, store.Name)
	if err != nil {
		// A failed conversion never blocks the store update itself; the
		// outcome carries the degraded signal to the caller.
		s.log.WithFields(logrus.Fields{"store_id": storeID, "pdf": pdfPath}).
			WithError(err).Error("pdf conversion failed")
		return outcome, nil
	}
	return outcome, nil
}

// AttachImage stores a directly uploaded gallery image, appended at the end
// of the display order.
func (s *Service) AttachImage(ctx context.Context, storeID, filename string, content []byte, contentType string) (*model.StoreImage, error) {
	unlock := s.locks.acquire(storeID)
	defer unlock()

	if _, err := s.stores.Get(ctx, storeID); err != nil {
		return nil, err
	}
	max, err := s.images.MaxSortOrder(ctx, storeID)
	if err != nil {
		return nil, err
	}
	ext := path.Ext(filename)
	if ext == "" {
		ext = ".jpg"
	}
	imagePath := fmt.Sprintf("stores/%s/%d-%s%s", storeID, s.now().Unix(), slug(strings.TrimSuffix(filename, ext)), ext)
	if err := s.blobs.Write(ctx, imagePath, content, contentType); err != nil {
		return nil, fmt.Errorf("store image: %w", err)
	}
	img := &model.StoreImage{
		ID:        uuid.NewString(),
		StoreID:   storeID,
		ImagePath: imagePath,
		IsFromPDF: false,
		SortOrder: max + 1,
	}
	if err := s.images.Create(ctx, img); err != nil {
		s.deleteBlobQuietly(ctx, imagePath)
		return nil, err
	}
	return img, nil
}

// AttachLogo stores a logo blob and swaps it into the store record, removing
// the previous logo file.
func (s *Service) AttachLogo(ctx context.Context, storeID, filename string, content []byte, contentType string) (string, error) {
	unlock := s.locks.acquire(storeID)
	defer unlock()

	store, err := s.stores.Get(ctx, storeID)
	if err != nil {
		return "", err
	}
	ext := path.Ext(filename)
	if ext == "" {
		ext = ".png"
	}
	logoPath := fmt.Sprintf("images/stores/store_logo_%s_%d%s", slug(store.Name), s.now().Unix(), ext)
	if err := s.blobs.Write(ctx, logoPath, content, contentType); err != nil {
		return "", fmt.Errorf("store logo: %w", err)
	}
	if err := s.stores.UpdateLogoPath(ctx, storeID, logoPath); err != nil {
		s.deleteBlobQuietly(ctx, logoPath)
		return "", err
	}
	if store.LogoPath != "" {
		s.deleteBlobQuietly(ctx, store.LogoPath)
	}
	return logoPath, nil
}

// DeleteImage removes one image: blob first, then the row. A blob that is
// already gone is logged and tolerated; the row is removed either way.
// GetImage looks up a single image record.
func (s *Service) GetImage(ctx context.Context, imageID string) (*model.StoreImage, error) {
	return s.images.Get(ctx, imageID)
}

func (s *Service) DeleteImage(ctx context.Context, imageID string) error {
	img, err := s.images.Get(ctx, imageID)
	if err != nil {
		return err
	}
	s.deleteBlobQuietly(ctx, img.ImagePath)
	return s.images.Delete(ctx, imageID)
}

// DeleteStore removes a store and everything it owns: every image blob and
// row, the PDF blob, the logo blob, then the store row.
func (s *Service) DeleteStore(ctx context.Context, storeID string) error {
	unlock := s.locks.acquire(storeID)
	defer unlock()

	store, err := s.stores.Get(ctx, storeID)
	if err != nil {
		return err
	}
	images, err := s.images.ListByStore(ctx, storeID)
	if err != nil {
		return err
	}
	for _, img := range images {
		s.deleteBlobQuietly(ctx, img.ImagePath)
		if err := s.images.Delete(ctx, img.ID); err != nil {
			s.log.WithFields(logrus.Fields{"store_id": storeID, "image_id": img.ID}).
				WithError(err).Warn("failed to delete image row")
		}
	}
	if store.PDFPath != "" {
		s.deleteBlobQuietly(ctx, store.PDFPath)
	}
	if store.LogoPath != "" {
		s.deleteBlobQuietly(ctx, store.LogoPath)
	}
	return s.stores.Delete(ctx, storeID)
}

// ReorderImages rewrites a store's display order to match the given id list.
func (s *Service) ReorderImages(ctx context.Context, storeID string, orderedIDs []string) error {
	unlock := s.locks.acquire(storeID)
	defer unlock()

	for i, id := range orderedIDs {
		img, err := s.images.Get(ctx, id)
		if err != nil {
			return err
		}
		if img.StoreID != storeID {
			return fmt.Errorf("image %s does not belong to store %s", id, storeID)
		}
		if err := s.images.UpdateSortOrder(ctx, id, i+1); err != nil {
			return err
		}
	}
	return nil
}

// removePDFPages deletes every PDF-derived image of a store, blobs included.
// Runs with the store lock already held.
func (s *Service) removePDFPages(ctx context.Context, storeID string) error {
	pages, err := s.images.ListPDFPages(ctx, storeID)
	if err != nil {
		return err
	}
	for _, img := range pages {
		s.deleteBlobQuietly(ctx, img.ImagePath)
		if err := s.images.Delete(ctx, img.ID); err != nil {
			return fmt.Errorf("delete pdf page row %s: %w", img.ID, err)
		}
	}
	return nil
}

func (s *Service) deleteBlobQuietly(ctx context.Context, path string) {
	if err := s.blobs.Delete(ctx, path); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.log.WithField("path", path).Warn("blob already absent")
			return
		}
		s.log.WithField("path", path).WithError(err).Error("failed to delete blob")
	}
}

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

func slug(s string) string {
	out := slugRe.ReplaceAllString(strings.ToLower(s), "-")
	out = strings.Trim(out, "-")
	if out == "" {
		out = "file"
	}
	return out
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Digitalmx/mattibud-web/internal/model"
)

// StoreImageRepository persists per-page and directly uploaded gallery
// images. It satisfies the conversion pipeline's recorder interface.
type StoreImageRepository struct {
	pool *pgxpool.Pool
}

// NewStoreImageRepository constructs a repository.
func NewStoreImageRepository(pool *pgxpool.Pool) *StoreImageRepository {
	return &StoreImageRepository{pool: pool}
}

// RecordPage inserts one image row produced by the conversion pipeline.
func (r *StoreImageRepository) RecordPage(ctx context.Context, img *model.StoreImage) error {
	return r.Create(ctx, img)
}

// Create inserts an image row.
func (r *StoreImageRepository) Create(ctx context.Context, img *model.StoreImage) error {
	now := time.Now().UTC()
	img.CreatedAt = now
	img.UpdatedAt = now
	_, err := r.pool.Exec(ctx, `
		INSERT INTO store_images (id, store_id, image_path, is_from_pdf, pdf_page, sort_order, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, img.ID, img.StoreID, img.ImagePath, img.IsFromPDF, img.PDFPage, img.SortOrder, img.CreatedAt, img.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert store image: %w", err)
	}
	return nil
}

// Get returns an image by id.
func (r *StoreImageRepository) Get(ctx context.Context, id string) (*model.StoreImage, error) {
	var img model.StoreImage
	row := r.pool.QueryRow(ctx, `
		SELECT id, store_id, image_path, is_from_pdf, pdf_page, sort_order, created_at, updated_at
		FROM store_images WHERE id=$1
	`, id)
	if err := row.Scan(&img.ID, &img.StoreID, &img.ImagePath, &img.IsFromPDF,
		&img.PDFPage, &img.SortOrder, &img.CreatedAt, &img.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select store image: %w", err)
	}
	return &img, nil
}

// ListByStore returns a store's images in display order.
func (r *StoreImageRepository) ListByStore(ctx context.Context, storeID string) ([]*model.StoreImage, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, store_id, image_path, is_from_pdf, pdf_page, sort_order, created_at, updated_at
		FROM store_images WHERE store_id=$1 ORDER BY sort_order, created_at
	`, storeID)
	if err != nil {
		return nil, fmt.Errorf("select store images: %w", err)
	}
	defer rows.Close()
	var out []*model.StoreImage
	for rows.Next() {
		var img model.StoreImage
		if err := rows.Scan(&img.ID, &img.StoreID, &img.ImagePath, &img.IsFromPDF,
			&img.PDFPage, &img.SortOrder, &img.CreatedAt, &img.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan store image: %w", err)
		}
		out = append(out, &img)
	}
	return out, rows.Err()
}

// ListPDFPages returns only the PDF-derived images of a store, in page order.
func (r *StoreImageRepository) ListPDFPages(ctx context.Context, storeID string) ([]*model.StoreImage, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, store_id, image_path, is_from_pdf, pdf_page, sort_order, created_at, updated_at
		FROM store_images WHERE store_id=$1 AND is_from_pdf ORDER BY pdf_page
	`, storeID)
	if err != nil {
		return nil, fmt.Errorf("select pdf pages: %w", err)
	}
	defer rows.Close()
	var out []*model.StoreImage
	for rows.Next() {
		var img model.StoreImage
		if err := rows.Scan(&img.ID, &img.StoreID, &img.ImagePath, &img.IsFromPDF,
			&img.PDFPage, &img.SortOrder, &img.CreatedAt, &img.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan pdf page: %w", err)
		}
		out = append(out, &img)
	}
	return out, rows.Err()
}

// Delete removes an image row.
func (r *StoreImageRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM store_images WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete store image: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MaxSortOrder returns the highest sort_order in use for a store, 0 when the
// store has no images yet.
func (r *StoreImageRepository) MaxSortOrder(ctx context.Context, storeID string) (int, error) {
	var max int
	row := r.pool.QueryRow(ctx, `
		SELECT COALESCE(MAX(sort_order), 0) FROM store_images WHERE store_id=$1
	`, storeID)
	if err := row.Scan(&max); err != nil {
		return 0, fmt.Errorf("select max sort order: %w", err)
	}
	return max, nil
}

// UpdateSortOrder moves one image within its store's display order.
func (r *StoreImageRepository) UpdateSortOrder(ctx context.Context, id string, sortOrder int) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE store_images SET sort_order=$1, updated_at=$2 WHERE id=$3
	`, sortOrder, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update sort order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

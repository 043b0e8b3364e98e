// Package repository wraps all SQL used by the API server and the worker.
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

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("not found")

// StoreRepository persists stores.
type StoreRepository struct {
	pool *pgxpool.Pool
}

// NewStoreRepository constructs a repository.
func NewStoreRepository(pool *pgxpool.Pool) *StoreRepository {
	return &StoreRepository{pool: pool}
}

// Create inserts a new store.
func (r *StoreRepository) Create(ctx context.Context, s *model.Store) error {
	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now
	_, err := r.pool.Exec(ctx, `
		INSERT INTO stores (id, name, logo_path, pdf_path, address, city, latitude, longitude, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, s.ID, s.Name, s.LogoPath, s.PDFPath, s.Address, s.City, s.Latitude, s.Longitude, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert store: %w", err)
	}
	return nil
}

// Get returns a store by id.
func (r *StoreRepository) Get(ctx context.Context, id string) (*model.Store, error) {
	var s model.Store
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, logo_path, pdf_path, address, city, latitude, longitude, created_at, updated_at
		FROM stores WHERE id=$1
	`, id)
	if err := row.Scan(&s.ID, &s.Name, &s.LogoPath, &s.PDFPath, &s.Address, &s.City,
		&s.Latitude, &s.Longitude, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select store: %w", err)
	}
	return &s, nil
}

// List returns all stores ordered by name.
func (r *StoreRepository) List(ctx context.Context) ([]*model.Store, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, logo_path, pdf_path, address, city, latitude, longitude, created_at, updated_at
		FROM stores ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("select stores: %w", err)
	}
	defer rows.Close()
	var out []*model.Store
	for rows.Next() {
		var s model.Store
		if err := rows.Scan(&s.ID, &s.Name, &s.LogoPath, &s.PDFPath, &s.Address, &s.City,
			&s.Latitude, &s.Longitude, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan store: %w", err)
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

// UpdatePDFPath records the storage path of a newly attached PDF.
func (r *StoreRepository) UpdatePDFPath(ctx context.Context, id, pdfPath string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE stores SET pdf_path=$1, updated_at=$2 WHERE id=$3
	`, pdfPath, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update pdf path: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateLogoPath records the storage path of a newly attached logo.
func (r *StoreRepository) UpdateLogoPath(ctx context.Context, id, logoPath string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE stores SET logo_path=$1, updated_at=$2 WHERE id=$3
	`, logoPath, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update logo path: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the store row. Image rows go with it via the FK cascade;
// their blobs are the stores service's responsibility.
func (r *StoreRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM stores WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete store: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

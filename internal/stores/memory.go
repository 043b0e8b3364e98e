package stores

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Digitalmx/mattibud-web/internal/model"
	"github.com/Digitalmx/mattibud-web/internal/repository"
)

// MemoryStores is an in-memory StoreStore. The one-shot CLI conversion runs
// against it instead of Postgres, and the service tests use it as a fake.
type MemoryStores struct {
	mu     sync.RWMutex
	stores map[string]*model.Store
}

// NewMemoryStores constructs an empty store map.
func NewMemoryStores() *MemoryStores {
	return &MemoryStores{stores: make(map[string]*model.Store)}
}

func (m *MemoryStores) Create(_ context.Context, s *model.Store) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	s.CreatedAt, s.UpdatedAt = now, now
	cp := *s
	m.stores[s.ID] = &cp
	return nil
}

func (m *MemoryStores) Get(_ context.Context, id string) (*model.Store, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.stores[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MemoryStores) List(_ context.Context) ([]*model.Store, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*model.Store, 0, len(m.stores))
	for _, s := range m.stores {
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryStores) UpdatePDFPath(_ context.Context, id, pdfPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stores[id]
	if !ok {
		return repository.ErrNotFound
	}
	s.PDFPath = pdfPath
	s.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MemoryStores) UpdateLogoPath(_ context.Context, id, logoPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stores[id]
	if !ok {
		return repository.ErrNotFound
	}
	s.LogoPath = logoPath
	s.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MemoryStores) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.stores[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.stores, id)
	return nil
}

// MemoryImages is an in-memory ImageStore that also satisfies the conversion
// pipeline's recorder interface.
type MemoryImages struct {
	mu     sync.RWMutex
	images map[string]*model.StoreImage
}

// NewMemoryImages constructs an empty image map.
func NewMemoryImages() *MemoryImages {
	return &MemoryImages{images: make(map[string]*model.StoreImage)}
}

// RecordPage satisfies pdfconvert.ImageRecorder.
func (m *MemoryImages) RecordPage(ctx context.Context, img *model.StoreImage) error {
	return m.Create(ctx, img)
}

func (m *MemoryImages) Create(_ context.Context, img *model.StoreImage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	img.CreatedAt, img.UpdatedAt = now, now
	cp := *img
	m.images[img.ID] = &cp
	return nil
}

func (m *MemoryImages) Get(_ context.Context, id string) (*model.StoreImage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	img, ok := m.images[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *img
	return &cp, nil
}

func (m *MemoryImages) ListByStore(_ context.Context, storeID string) ([]*model.StoreImage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.StoreImage
	for _, img := range m.images {
		if img.StoreID == storeID {
			cp := *img
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

func (m *MemoryImages) ListPDFPages(_ context.Context, storeID string) ([]*model.StoreImage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.StoreImage
	for _, img := range m.images {
		if img.StoreID == storeID && img.IsFromPDF {
			cp := *img
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return pageOf(out[i]) < pageOf(out[j])
	})
	return out, nil
}

func pageOf(img *model.StoreImage) int {
	if img.PDFPage == nil {
		return 0
	}
	return *img.PDFPage
}

func (m *MemoryImages) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.images[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.images, id)
	return nil
}

func (m *MemoryImages) MaxSortOrder(_ context.Context, storeID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	max := 0
	for _, img := range m.images {
		if img.StoreID == storeID && img.SortOrder > max {
			max = img.SortOrder
		}
	}
	return max, nil
}

func (m *MemoryImages) UpdateSortOrder(_ context.Context, id string, sortOrder int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	img, ok := m.images[id]
	if !ok {
		return repository.ErrNotFound
	}
	img.SortOrder = sortOrder
	img.UpdatedAt = time.Now().UTC()
	return nil
}

package pdfconvert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Digitalmx/mattibud-web/internal/model"
	"github.com/Digitalmx/mattibud-web/internal/storage"
)

// collectingRecorder gathers rows and can be told to reject specific pages.
type collectingRecorder struct {
	rows     []*model.StoreImage
	failPage int
}

func (c *collectingRecorder) RecordPage(_ context.Context, img *model.StoreImage) error {
	if c.failPage != 0 && img.PDFPage != nil && *img.PDFPage == c.failPage {
		return fmt.Errorf("row rejected")
	}
	cp := *img
	c.rows = append(c.rows, &cp)
	return nil
}

func (c *collectingRecorder) pages() []int {
	var out []int
	for _, r := range c.rows {
		if r.PDFPage != nil {
			out = append(out, *r.PDFPage)
		}
	}
	return out
}

func writeTempPDF(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "source.pdf")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// pdftoppmFake emits an output file under the prefix argument the way the
// real tool does, failing any page listed in failPages.
func pdftoppmFake(failPages ...int) func(ctx context.Context, name string, args ...string) (string, string, int, error) {
	failed := make(map[string]bool)
	for _, p := range failPages {
		failed[fmt.Sprint(p)] = true
	}
	return func(_ context.Context, name string, args ...string) (string, string, int, error) {
		switch name {
		case toolPdfinfo:
			return "Title: test\nPages:          3\n", "", 0, nil
		case toolPdftoppm:
			page := args[2] // value of -f
			if failed[page] {
				return "", "Syntax Error: rendering failed", 1, nil
			}
			prefix := args[len(args)-1]
			out := prefix + "-" + page + ".jpg"
			if err := os.WriteFile(out, []byte("jpeg-for-page-"+page), 0o644); err != nil {
				return "", "", -1, err
			}
			return "", "", 0, nil
		default:
			return "", "", 127, nil
		}
	}
}

func TestExternalToolStrategyRender(t *testing.T) {
	ctx := context.Background()

	t.Run("renders every page through pdftoppm", func(t *testing.T) {
		blobs := storage.NewMemory()
		rec := &collectingRecorder{}
		runner := &fakeRunner{
			tools: map[string]bool{toolPdftoppm: true, toolPdfinfo: true},
			run:   pdftoppmFake(),
		}
		s := &ExternalToolStrategy{
			writer: pageWriter{blobs: blobs, images: rec, now: time.Now},
			runner: runner,
			log:    quietLogger(),
		}

		rendered, total, err := s.Render(ctx, writeTempPDF(t, "%PDF"), "store-1", "Store One")
		require.NoError(t, err)
		assert.Equal(t, 3, rendered)
		assert.Equal(t, 3, total)
		assert.Equal(t, []int{1, 2, 3}, rec.pages())
		for _, row := range rec.rows {
			assert.True(t, row.IsFromPDF)
			assert.True(t, strings.HasPrefix(row.ImagePath, "stores/store-1/pdf-page-"), row.ImagePath)
			assert.Equal(t, *row.PDFPage, row.SortOrder)
		}
	})

	t.Run("a failing page is skipped, not fatal", func(t *testing.T) {
		blobs := storage.NewMemory()
		rec := &collectingRecorder{}
		runner := &fakeRunner{
			tools: map[string]bool{toolPdftoppm: true, toolPdfinfo: true},
			run:   pdftoppmFake(2),
		}
		s := &ExternalToolStrategy{
			writer: pageWriter{blobs: blobs, images: rec, now: time.Now},
			runner: runner,
			log:    quietLogger(),
		}

		rendered, total, err := s.Render(ctx, writeTempPDF(t, "%PDF"), "store-1", "Store One")
		require.NoError(t, err)
		assert.Equal(t, 2, rendered)
		assert.Equal(t, 3, total)
		assert.Equal(t, []int{1, 3}, rec.pages())
	})

	t.Run("errors only when no page at all is produced", func(t *testing.T) {
		blobs := storage.NewMemory()
		rec := &collectingRecorder{}
		runner := &fakeRunner{
			tools: map[string]bool{toolPdftoppm: true, toolPdfinfo: true},
			run:   pdftoppmFake(1, 2, 3),
		}
		s := &ExternalToolStrategy{
			writer: pageWriter{blobs: blobs, images: rec, now: time.Now},
			runner: runner,
			log:    quietLogger(),
		}

		rendered, _, err := s.Render(ctx, writeTempPDF(t, "%PDF"), "store-1", "Store One")
		require.Error(t, err)
		assert.Zero(t, rendered)
		assert.Empty(t, rec.rows)
	})

	t.Run("a rejected row removes its blob", func(t *testing.T) {
		blobs := storage.NewMemory()
		rec := &collectingRecorder{failPage: 2}
		runner := &fakeRunner{
			tools: map[string]bool{toolPdftoppm: true, toolPdfinfo: true},
			run:   pdftoppmFake(),
		}
		s := &ExternalToolStrategy{
			writer: pageWriter{blobs: blobs, images: rec, now: time.Now},
			runner: runner,
			log:    quietLogger(),
		}

		rendered, _, err := s.Render(ctx, writeTempPDF(t, "%PDF"), "store-1", "Store One")
		require.NoError(t, err)
		assert.Equal(t, 2, rendered)
		assert.Len(t, blobs.Paths(), 2)
	})
}

func TestExternalToolPageCount(t *testing.T) {
	ctx := context.Background()

	t.Run("pdfinfo first", func(t *testing.T) {
		runner := &fakeRunner{
			tools: map[string]bool{toolPdfinfo: true},
			run: func(_ context.Context, name string, _ ...string) (string, string, int, error) {
				return "Pages:          7\n", "", 0, nil
			},
		}
		s := &ExternalToolStrategy{runner: runner, log: quietLogger()}
		assert.Equal(t, 7, s.pageCount(ctx, writeTempPDF(t, "no markers here")))
	})

	t.Run("pdftk when pdfinfo is missing", func(t *testing.T) {
		runner := &fakeRunner{
			tools: map[string]bool{toolPdftk: true},
			run: func(_ context.Context, name string, _ ...string) (string, string, int, error) {
				return "InfoBegin\nNumberOfPages: 4\n", "", 0, nil
			},
		}
		s := &ExternalToolStrategy{runner: runner, log: quietLogger()}
		assert.Equal(t, 4, s.pageCount(ctx, writeTempPDF(t, "no markers here")))
	})

	t.Run("structural heuristic when inspectors fail", func(t *testing.T) {
		runner := &fakeRunner{}
		s := &ExternalToolStrategy{runner: runner, log: quietLogger()}
		doc := "<</Type/Page/Parent 2 0 R>><</Type/Page/Parent 2 0 R>>"
		assert.Equal(t, 2, s.pageCount(ctx, writeTempPDF(t, doc)))
	})

	t.Run("defaults to a single page", func(t *testing.T) {
		runner := &fakeRunner{}
		s := &ExternalToolStrategy{runner: runner, log: quietLogger()}
		assert.Equal(t, 1, s.pageCount(ctx, writeTempPDF(t, "nothing structural")))
	})
}

package pdfconvert

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountPages(t *testing.T) {
	t.Run("counts page markers", func(t *testing.T) {
		doc := "%PDF-1.4\n" +
			"1 0 obj<</Type/Catalog/Pages 2 0 R>>endobj\n" +
			"2 0 obj<</Type/Pages/Kids[3 0 R 4 0 R 5 0 R]/Count 3>>endobj\n" +
			"3 0 obj<</Type/Page/Parent 2 0 R>>endobj\n" +
			"4 0 obj<</Type/Page/Parent 2 0 R>>endobj\n" +
			"5 0 obj<</Type/Page/Parent 2 0 R>>endobj\n" +
			"%%EOF\n"
		assert.Equal(t, 3, CountPages([]byte(doc)))
	})

	t.Run("ignores Pages container objects", func(t *testing.T) {
		doc := "2 0 obj<</Type/Pages/Kids[]/Count 0>>endobj\n"
		assert.Equal(t, 0, CountPages([]byte(doc)))
	})

	t.Run("falls back to the type signature", func(t *testing.T) {
		// /Page at end of input never matches the marker pattern, which
		// needs a trailing character.
		assert.Equal(t, 1, CountPages([]byte("/Type /Page")))
	})

	t.Run("non PDF bytes", func(t *testing.T) {
		assert.Equal(t, 0, CountPages([]byte("just some text, nothing structural")))
	})

	t.Run("over-counting is accepted", func(t *testing.T) {
		// A content stream that merely mentions /Page inflates the estimate.
		doc := "3 0 obj<</Type/Page/Parent 2 0 R>>endobj\n(see /Page 2) Tj\n"
		assert.Equal(t, 2, CountPages([]byte(doc)))
	})

	t.Run("large repeated input", func(t *testing.T) {
		doc := strings.Repeat("<</Type/Page/Parent 2 0 R>>", 40)
		assert.Equal(t, 40, CountPages([]byte(doc)))
	})
}

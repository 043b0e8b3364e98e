package pdfconvert

import (
	"bytes"
	"image/jpeg"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderPlaceholder(t *testing.T) {
	t.Run("produces a decodable JPEG at the fixed size", func(t *testing.T) {
		data, err := RenderPlaceholder(PlaceholderSpec{
			StoreName: "Mattibud Test",
			Page:      1,
			Total:     3,
			Preview:   "Weekly offers on dairy and produce",
			Footer:    "Limited PDF preview (no rendering capability available)",
		})
		require.NoError(t, err)

		img, err := jpeg.Decode(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, placeholderWidth, img.Bounds().Dx())
		assert.Equal(t, placeholderHeight, img.Bounds().Dy())
	})

	t.Run("renders without preview text", func(t *testing.T) {
		data, err := RenderPlaceholder(PlaceholderSpec{StoreName: "Empty", Page: 1, Total: 1})
		require.NoError(t, err)
		_, err = jpeg.Decode(bytes.NewReader(data))
		require.NoError(t, err)
	})

	t.Run("long previews do not error", func(t *testing.T) {
		preview := strings.Repeat("offer of the week at an unbeatable price ", 120)
		data, err := RenderPlaceholder(PlaceholderSpec{
			StoreName: "Long",
			Page:      2,
			Total:     2,
			Preview:   preview,
		})
		require.NoError(t, err)
		assert.NotEmpty(t, data)
	})
}

package pdfconvert

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Text-showing operators in uncompressed content streams. Fragments are used
// only to make placeholder pages more informative, so losing text to
// compressed streams or exotic encodings is acceptable.
var (
	tjArrayRe  = regexp.MustCompile(`\[(.*?)\]\s*TJ`)
	tjSimpleRe = regexp.MustCompile(`\(([^)]*)\)\s*Tj`)
	printable  = regexp.MustCompile(`[^a-zA-Z0-9\s.,;:'"-]`)
	escapes    = regexp.MustCompile(`\\[()nrt]?`)
)

// ExtractSnippets pulls human-readable fragments out of raw PDF bytes. It
// first tries the real text layer via ledongthuc/pdf; when that errors or
// comes back empty (scanned or compressed documents), it falls back to
// scanning content-stream operators. Always returns without error; an empty
// string means nothing could be recovered.
func ExtractSnippets(data []byte) string {
	if text := extractTextLayer(data); text != "" {
		return text
	}
	return extractByOperators(data)
}

func extractTextLayer(data []byte) string {
	defer func() {
		// The reader indexes xref tables eagerly and panics on some malformed
		// documents; recover turns that into the empty best-effort result.
		_ = recover()
	}()
	doc, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return ""
	}
	var builder strings.Builder
	total := doc.NumPage()
	for page := 1; page <= total; page++ {
		p := doc.Page(page)
		if p.V.IsNull() {
			continue
		}
		content, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		builder.WriteString(content)
		builder.WriteString(" ")
	}
	return strings.Join(strings.Fields(builder.String()), " ")
}

func extractByOperators(data []byte) string {
	var parts []string
	collect := func(matches [][][]byte) {
		for _, m := range matches {
			clean := escapes.ReplaceAll(m[1], nil)
			clean = printable.ReplaceAll(clean, nil)
			if s := strings.TrimSpace(string(clean)); s != "" {
				parts = append(parts, s)
			}
		}
	}
	collect(tjArrayRe.FindAllSubmatch(data, -1))
	collect(tjSimpleRe.FindAllSubmatch(data, -1))
	return strings.Join(parts, " ")
}

// Package pdfconvert turns an uploaded PDF into one gallery image per page,
// degrading through a cascade of strategies depending on what the host can
// do: MuPDF in-process, command-line converters, or synthesized placeholders.
package pdfconvert

import "regexp"

// The page-count heuristics scan for structural signatures of page objects in
// the raw PDF container. This is deliberately not a conforming parser: it
// over-counts documents that mention /Page in unrelated contexts and
// under-counts object streams, and both are accepted. Callers treat a zero
// result as "at least one page".
var (
	pageMarkerRe = regexp.MustCompile(`/Page\W`)
	pageTypeRe   = regexp.MustCompile(`/Type\s*/Page\b`)
)

// CountPages estimates the number of pages in raw PDF bytes. Returns 0 when
// neither signature matches; it never fails.
func CountPages(data []byte) int {
	if n := len(pageMarkerRe.FindAll(data, -1)); n > 0 {
		return n
	}
	return len(pageTypeRe.FindAll(data, -1))
}

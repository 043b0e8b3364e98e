package pdfconvert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/sirupsen/logrus"
)

var (
	pdfinfoPagesRe = regexp.MustCompile(`Pages:\s+(\d+)`)
	pdftkPagesRe   = regexp.MustCompile(`NumberOfPages:\s*(\d+)`)
)

// ExternalToolStrategy shells out to command-line converters. Tool
// availability is resolved against PATH per call, never assumed; a page is
// only recorded when a tool actually produced its output file.
type ExternalToolStrategy struct {
	writer pageWriter
	runner CommandRunner
	log    *logrus.Logger
}

// Render converts each page through pdftoppm, retrying with Ghostscript as
// the second-chance tool. Returns pages produced and the page count it worked
// against. Per-page failures are skipped; Render errors only when no page at
// all could be produced.
func (s *ExternalToolStrategy) Render(ctx context.Context, absPath, storeID, displayName string) (int, int, error) {
	total := s.pageCount(ctx, absPath)
	s.log.WithFields(logrus.Fields{"store_id": storeID, "pages": total}).
		Info("rendering PDF with external tools")

	tempDir, err := os.MkdirTemp("", "mattibud-convert-*")
	if err != nil {
		return 0, total, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	rendered := 0
	for page := 1; page <= total; page++ {
		if err := ctx.Err(); err != nil {
			return rendered, total, err
		}
		data, tool := s.renderPage(ctx, absPath, tempDir, page)
		if data == nil {
			s.log.WithFields(logrus.Fields{"store_id": storeID, "page": page}).
				Warn("no external tool produced output for page, skipping")
			continue
		}
		if _, err := s.writer.savePage(ctx, storeID, "pdf-page", page, data); err != nil {
			s.log.WithFields(logrus.Fields{"store_id": storeID, "page": page}).
				WithError(err).Warn("persist failed for page, skipping")
			continue
		}
		s.log.WithFields(logrus.Fields{"store_id": storeID, "page": page, "tool": tool}).
			Info("converted page with external tool")
		rendered++
	}
	if rendered == 0 {
		return 0, total, fmt.Errorf("external tools produced no pages out of %d", total)
	}
	return rendered, total, nil
}

// pageCount tries the dedicated inspectors in order of reliability and falls
// back to the structural heuristic, assuming one page when everything comes
// up empty.
func (s *ExternalToolStrategy) pageCount(ctx context.Context, absPath string) int {
	if _, err := s.runner.LookPath(toolPdfinfo); err == nil {
		stdout, _, code, err := s.runner.Run(ctx, toolPdfinfo, absPath)
		if err == nil && code == 0 {
			if m := pdfinfoPagesRe.FindStringSubmatch(stdout); m != nil {
				if n, _ := strconv.Atoi(m[1]); n > 0 {
					return n
				}
			}
		}
	}
	if _, err := s.runner.LookPath(toolPdftk); err == nil {
		stdout, _, code, err := s.runner.Run(ctx, toolPdftk, absPath, "dump_data")
		if err == nil && code == 0 {
			if m := pdftkPagesRe.FindStringSubmatch(stdout); m != nil {
				if n, _ := strconv.Atoi(m[1]); n > 0 {
					return n
				}
			}
		}
	}
	if data, err := os.ReadFile(absPath); err == nil {
		if n := CountPages(data); n > 0 {
			return n
		}
	}
	return 1
}

// renderPage returns the JPEG bytes for one page, or nil when every tool
// failed, along with the name of the tool that produced them.
func (s *ExternalToolStrategy) renderPage(ctx context.Context, absPath, tempDir string, page int) ([]byte, string) {
	if data := s.renderWithPdftoppm(ctx, absPath, tempDir, page); data != nil {
		return data, toolPdftoppm
	}
	if data := s.renderWithGhostscript(ctx, absPath, tempDir, page); data != nil {
		return data, toolGS
	}
	return nil, ""
}

func (s *ExternalToolStrategy) renderWithPdftoppm(ctx context.Context, absPath, tempDir string, page int) []byte {
	if _, err := s.runner.LookPath(toolPdftoppm); err != nil {
		return nil
	}
	pageArg := strconv.Itoa(page)
	prefix := filepath.Join(tempDir, fmt.Sprintf("ppm-%d", page))
	_, stderr, code, err := s.runner.Run(ctx, toolPdftoppm,
		"-jpeg", "-f", pageArg, "-l", pageArg, "-r", strconv.Itoa(renderDPI),
		absPath, prefix)
	if err != nil || code != 0 {
		s.log.WithFields(logrus.Fields{"page": page, "exit": code, "stderr": stderr}).
			WithError(err).Debug("pdftoppm failed")
		return nil
	}
	// pdftoppm appends its own page suffix ("-1.jpg", zero padded for larger
	// documents); pick up whatever it wrote under our prefix.
	matches, _ := filepath.Glob(prefix + "*.jpg")
	if len(matches) == 0 {
		return nil
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		return nil
	}
	for _, m := range matches {
		_ = os.Remove(m)
	}
	return data
}

func (s *ExternalToolStrategy) renderWithGhostscript(ctx context.Context, absPath, tempDir string, page int) []byte {
	if _, err := s.runner.LookPath(toolGS); err != nil {
		return nil
	}
	pageArg := strconv.Itoa(page)
	out := filepath.Join(tempDir, fmt.Sprintf("gs-%d.jpg", page))
	_, stderr, code, err := s.runner.Run(ctx, toolGS,
		"-dNOPAUSE", "-dBATCH", "-sDEVICE=jpeg", "-r"+strconv.Itoa(renderDPI),
		"-dFirstPage="+pageArg, "-dLastPage="+pageArg,
		"-sOutputFile="+out, absPath)
	if err != nil || code != 0 {
		s.log.WithFields(logrus.Fields{"page": page, "exit": code, "stderr": stderr}).
			WithError(err).Debug("ghostscript failed")
		return nil
	}
	data, err := os.ReadFile(out)
	if err != nil {
		return nil
	}
	_ = os.Remove(out)
	return data
}

package pdfconvert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/gen2brain/go-fitz"
)

// Tier identifies which conversion capability is usable on the host, ordered
// most capable first.
type Tier int

const (
	TierNone Tier = iota
	TierExternalTools
	TierNativeLibrary
)

func (t Tier) String() string {
	switch t {
	case TierNativeLibrary:
		return "native-library"
	case TierExternalTools:
		return "external-tools"
	default:
		return "none"
	}
}

// External commands recognized by the probe and the external-tool strategy.
const (
	toolPdftoppm = "pdftoppm" // render one page to JPEG
	toolPdfinfo  = "pdfinfo"  // page-count inspector
	toolGS       = "gs"       // second-chance renderer
	toolPdftk    = "pdftk"    // metadata dump, page count
)

var knownTools = []string{toolPdftoppm, toolPdfinfo, toolGS, toolPdftk}

// CommandRunner abstracts external tool invocation so tests can substitute
// fake outcomes without spawning subprocesses.
type CommandRunner interface {
	// Run executes a command and returns its output and exit code. err is
	// non-nil only when the command could not be run at all or timed out;
	// a non-zero exit is reported through exitCode, not err.
	Run(ctx context.Context, name string, args ...string) (stdout, stderr string, exitCode int, err error)
	// LookPath reports where a command resolves on PATH.
	LookPath(name string) (string, error)
}

// ExecRunner runs commands through os/exec with a timeout per invocation. A
// hung converter therefore costs one page, not the whole conversion.
type ExecRunner struct {
	Timeout time.Duration
}

const defaultToolTimeout = 30 * time.Second

func (r ExecRunner) Run(ctx context.Context, name string, args ...string) (string, string, int, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = defaultToolTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return stdout.String(), stderr.String(), exitErr.ExitCode(), nil
		}
		if ctx.Err() != nil {
			return stdout.String(), stderr.String(), -1, fmt.Errorf("%s timed out: %w", name, ctx.Err())
		}
		return stdout.String(), stderr.String(), -1, fmt.Errorf("run %s: %w", name, err)
	}
	return stdout.String(), stderr.String(), 0, nil
}

func (r ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// Probe detects the best usable conversion tier at call time. Detection is
// repeated per conversion because the hosting environment can gain or lose
// tools between requests.
type Probe struct {
	runner CommandRunner
	// nativeCheck is swappable for tests; the default opens a one-page PDF
	// through go-fitz.
	nativeCheck func() error
}

// NewProbe builds a Probe over the given runner.
func NewProbe(runner CommandRunner) *Probe {
	return &Probe{runner: runner, nativeCheck: checkNative}
}

// Detect returns the highest tier that is usable right now. "Nothing
// available" is a normal outcome signaled by TierNone, never an error.
func (p *Probe) Detect() Tier {
	if p.nativeCheck() == nil {
		return TierNativeLibrary
	}
	if p.HasExternalTools() {
		return TierExternalTools
	}
	return TierNone
}

// HasExternalTools reports whether any recognized converter resolves on PATH.
func (p *Probe) HasExternalTools() bool {
	for _, tool := range knownTools {
		if _, err := p.runner.LookPath(tool); err == nil {
			return true
		}
	}
	return false
}

// probePDF is the smallest document MuPDF will open; used only to verify the
// native library loads.
const probePDF = "%PDF-1.4\n" +
	"1 0 obj<</Type/Catalog/Pages 2 0 R>>endobj\n" +
	"2 0 obj<</Type/Pages/Kids[3 0 R]/Count 1>>endobj\n" +
	"3 0 obj<</Type/Page/Parent 2 0 R/MediaBox[0 0 612 792]>>endobj\n" +
	"trailer<</Root 1 0 R>>\n" +
	"%%EOF\n"

func checkNative() (err error) {
	defer func() {
		// go-fitz loads MuPDF dynamically; an absent or broken shared library
		// can surface as a panic rather than an error.
		if r := recover(); r != nil {
			err = fmt.Errorf("native library unavailable: %v", r)
		}
	}()
	doc, err := fitz.NewFromMemory([]byte(probePDF))
	if err != nil {
		return fmt.Errorf("open probe document: %w", err)
	}
	doc.Close()
	return nil
}

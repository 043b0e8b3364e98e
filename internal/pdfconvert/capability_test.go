package pdfconvert

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

// fakeRunner substitutes canned tool behavior for real subprocesses.
type fakeRunner struct {
	tools map[string]bool
	run   func(ctx context.Context, name string, args ...string) (string, string, int, error)
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (string, string, int, error) {
	if f.run == nil {
		return "", "", 1, nil
	}
	return f.run(ctx, name, args...)
}

func (f *fakeRunner) LookPath(name string) (string, error) {
	if f.tools[name] {
		return "/usr/bin/" + name, nil
	}
	return "", errors.New("executable file not found in $PATH")
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestProbeDetect(t *testing.T) {
	t.Run("native library wins when it loads", func(t *testing.T) {
		p := &Probe{
			runner:      &fakeRunner{tools: map[string]bool{toolPdftoppm: true}},
			nativeCheck: func() error { return nil },
		}
		assert.Equal(t, TierNativeLibrary, p.Detect())
	})

	t.Run("external tools when native is unavailable", func(t *testing.T) {
		p := &Probe{
			runner:      &fakeRunner{tools: map[string]bool{toolGS: true}},
			nativeCheck: func() error { return errors.New("no mupdf") },
		}
		assert.Equal(t, TierExternalTools, p.Detect())
	})

	t.Run("any single recognized tool is enough", func(t *testing.T) {
		for _, tool := range knownTools {
			p := &Probe{
				runner:      &fakeRunner{tools: map[string]bool{tool: true}},
				nativeCheck: func() error { return errors.New("no mupdf") },
			}
			assert.True(t, p.HasExternalTools(), tool)
		}
	})

	t.Run("nothing available is a tier, not an error", func(t *testing.T) {
		p := &Probe{
			runner:      &fakeRunner{},
			nativeCheck: func() error { return errors.New("no mupdf") },
		}
		assert.Equal(t, TierNone, p.Detect())
	})
}

func TestTierString(t *testing.T) {
	assert.Equal(t, "native-library", TierNativeLibrary.String())
	assert.Equal(t, "external-tools", TierExternalTools.String())
	assert.Equal(t, "none", TierNone.String())
}

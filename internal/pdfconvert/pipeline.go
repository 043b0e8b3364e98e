package pdfconvert

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Digitalmx/mattibud-web/internal/model"
	"github.com/Digitalmx/mattibud-web/internal/storage"
)

// ErrSourceMissing is the pipeline's only fatal condition: the PDF is not in
// blob storage at all, so there is nothing any tier could work with.
var ErrSourceMissing = errors.New("source PDF missing from storage")

// Pipeline orchestrates capability detection and the strategy cascade for one
// conversion. All collaborators are injected; there is no ambient storage or
// logger.
type Pipeline struct {
	blobs  storage.BlobStorage
	images ImageRecorder
	runner CommandRunner
	probe  *Probe
	log    *logrus.Logger
	now    func() time.Time
}

// NewPipeline wires a Pipeline. A nil runner gets the real subprocess runner
// with its default timeout.
func NewPipeline(blobs storage.BlobStorage, images ImageRecorder, runner CommandRunner, log *logrus.Logger) *Pipeline {
	if runner == nil {
		runner = ExecRunner{}
	}
	if log == nil {
		log = logrus.New()
	}
	return &Pipeline{
		blobs:  blobs,
		images: images,
		runner: runner,
		probe:  NewProbe(runner),
		log:    log,
		now:    time.Now,
	}
}

// Convert produces one gallery image per page of the stored PDF, trying the
// native library, then external tools, then placeholders. Every tier failure
// falls through; a missing source file is the only condition that aborts. The
// returned outcome reports which tier persisted pages and how many, so the
// caller can phrase its success or degraded message.
func (p *Pipeline) Convert(ctx context.Context, pdfStoragePath, storeID, displayName string) (model.ConversionOutcome, error) {
	outcome := model.ConversionOutcome{Strategy: model.StrategyNone}
	logger := p.log.WithFields(logrus.Fields{"store_id": storeID, "pdf": pdfStoragePath})

	exists, err := p.blobs.Exists(ctx, pdfStoragePath)
	if err == nil && !exists {
		err = storage.ErrNotFound
	}
	if err != nil {
		logger.WithError(err).Error("source PDF not found, aborting conversion")
		return outcome, fmt.Errorf("%w: %s", ErrSourceMissing, pdfStoragePath)
	}
	absPath, err := p.blobs.AbsolutePath(ctx, pdfStoragePath)
	if err != nil {
		logger.WithError(err).Error("could not resolve source PDF, aborting conversion")
		return outcome, fmt.Errorf("%w: %s", ErrSourceMissing, pdfStoragePath)
	}

	writer := pageWriter{blobs: p.blobs, images: p.images, now: p.now}
	tier := p.probe.Detect()
	logger.WithField("tier", tier.String()).Info("starting PDF conversion")

	native := &NativeLibraryStrategy{writer: writer, log: p.log}
	rendered, total, err := native.Render(ctx, absPath, storeID, displayName)
	if err == nil {
		outcome.Pages, outcome.Expected = rendered, total
		outcome.Strategy = model.StrategyNativeLib
		outcome.Succeeded = rendered == total
		logger.WithFields(logrus.Fields{"tier": "native-library", "pages": rendered, "expected": total}).
			Info("conversion finished")
		return outcome, nil
	}
	logger.WithError(err).Warn("native library tier failed, falling through")

	if p.probe.HasExternalTools() {
		ext := &ExternalToolStrategy{writer: writer, runner: p.runner, log: p.log}
		rendered, total, err = ext.Render(ctx, absPath, storeID, displayName)
		if err == nil {
			outcome.Pages, outcome.Expected = rendered, total
			outcome.Strategy = model.StrategyExternalTool
			outcome.Succeeded = rendered == total
			logger.WithFields(logrus.Fields{"tier": "external-tools", "pages": rendered, "expected": total}).
				Info("conversion finished")
			return outcome, nil
		}
		logger.WithError(err).Warn("external tool tier failed, falling through")
	} else {
		logger.Info("no external converters on PATH, skipping tier")
	}

	pdfBytes, readErr := p.blobs.Read(ctx, pdfStoragePath)
	if readErr != nil {
		logger.WithError(readErr).Warn("could not re-read source for placeholders, using empty content")
		pdfBytes = nil
	}
	fallback := &PlaceholderStrategy{writer: writer, log: p.log}
	rendered, total, err = fallback.Render(ctx, pdfBytes, storeID, displayName)
	if err != nil {
		logger.WithError(err).Error("placeholder tier failed")
		outcome.Pages, outcome.Expected = rendered, total
		return outcome, fmt.Errorf("placeholder rendering: %w", err)
	}
	outcome.Pages, outcome.Expected = rendered, total
	outcome.Strategy = model.StrategyPlaceholder
	outcome.Succeeded = rendered > 0
	logger.WithFields(logrus.Fields{"tier": "placeholder", "pages": rendered}).
		Info("conversion finished degraded")
	return outcome, nil
}

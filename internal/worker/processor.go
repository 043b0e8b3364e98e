package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/Digitalmx/mattibud-web/internal/queue"
	"github.com/Digitalmx/mattibud-web/internal/stores"
)

// Processor is plugged into the asynq worker loop.
type Processor struct {
	svc *stores.Service
	log *logrus.Logger
}

// NewProcessor constructs a worker processor.
func NewProcessor(svc *stores.Service, log *logrus.Logger) *Processor {
	if log == nil {
		log = logrus.New()
	}
	return &Processor{svc: svc, log: log}
}

// Handler registers the conversion job handler.
func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.ConvertPDFTask, p.handleConvert)
	return mux
}

func (p *Processor) handleConvert(ctx context.Context, task *asynq.Task) error {
	var payload queue.ConvertPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	outcome, err := p.svc.ProcessPDF(ctx, payload.StoreID, payload.PDFPath)
	if err != nil {
		p.log.WithFields(logrus.Fields{"store_id": payload.StoreID, "pdf": payload.PDFPath}).
			WithError(err).Error("convert job failed")
		return err
	}
	p.log.WithFields(logrus.Fields{
		"store_id": payload.StoreID,
		"strategy": outcome.Strategy,
		"pages":    outcome.Pages,
		"degraded": outcome.Degraded(),
	}).Info("convert job finished")
	return nil
}

package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// ConvertPDFTask is scheduled each time a PDF is attached to a store.
	ConvertPDFTask = "store:convert_pdf"
)

// ConvertPayload tells the worker which staged PDF to make current for which
// store.
type ConvertPayload struct {
	StoreID string `json:"store_id"`
	PDFPath string `json:"pdf_path"`
}

// EnqueueConvert enqueues a PDF conversion job. Ordering between jobs for the
// same store is enforced by the stores service's per-store lock, not here.
func EnqueueConvert(ctx context.Context, client *asynq.Client, payload ConvertPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	task := asynq.NewTask(ConvertPDFTask, data)
	if _, err := client.EnqueueContext(ctx, task, asynq.MaxRetry(3)); err != nil {
		return fmt.Errorf("enqueue convert task: %w", err)
	}
	return nil
}

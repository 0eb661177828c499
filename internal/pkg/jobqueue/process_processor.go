package jobqueue

import (
	"fmt"
)

// processIPNJob runs a received event through the processing pipeline. The
// pipeline itself is idempotent on status, so a retried job on an already
// handled event is a harmless no-op.
func (q *Queue) processIPNJob(job *Job) error {
	if q.pipeline == nil {
		return fmt.Errorf("queue has no pipeline configured")
	}

	payload, err := ProcessIPNJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid process_ipn payload: %w", err)
	}
	if payload.EventID == 0 {
		return fmt.Errorf("process_ipn payload has no event id")
	}

	return q.pipeline.Process(payload.EventID)
}

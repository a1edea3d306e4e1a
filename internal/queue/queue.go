package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"storyboard-backend/internal/domain"
)

// Queue names. One list per job kind keeps payload decoding unambiguous.
const (
	QueueImageGeneration = "q_ai_images"
	QueueBRoll           = "q_broll_organize"
)

// TaskPayload is the serialized unit of work pushed onto a queue. Exactly one
// of the params fields is set, matching the queue the payload travels on.
type TaskPayload struct {
	JobID       string                        `json:"job_id"`
	ImageParams *domain.ImageGenerationParams `json:"image_params,omitempty"`
	BRollParams *domain.BRollParams           `json:"broll_params,omitempty"`
}

// Handler processes one raw payload popped from a queue.
type Handler func(ctx context.Context, payload string) error

// TaskQueue pushes payloads; implemented by the redis Processor and the
// inline Runner.
type TaskQueue interface {
	Enqueue(ctx context.Context, queue, payload string) error
}

// Dispatcher adapts a TaskQueue to the orchestrator's submission contract.
type Dispatcher struct {
	q TaskQueue
}

func NewDispatcher(q TaskQueue) *Dispatcher {
	return &Dispatcher{q: q}
}

func (d *Dispatcher) EnqueueImageGeneration(ctx context.Context, jobID string, params domain.ImageGenerationParams) error {
	return d.push(ctx, QueueImageGeneration, TaskPayload{JobID: jobID, ImageParams: &params})
}

func (d *Dispatcher) EnqueueBRoll(ctx context.Context, jobID string, params domain.BRollParams) error {
	return d.push(ctx, QueueBRoll, TaskPayload{JobID: jobID, BRollParams: &params})
}

func (d *Dispatcher) push(ctx context.Context, queue string, payload TaskPayload) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode task payload: %w", err)
	}
	return d.q.Enqueue(ctx, queue, string(raw))
}

// DecodePayload parses a raw queue payload.
func DecodePayload(payload string) (TaskPayload, error) {
	var p TaskPayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return TaskPayload{}, fmt.Errorf("decode task payload: %w", err)
	}
	if p.JobID == "" {
		return TaskPayload{}, fmt.Errorf("task payload missing job id")
	}
	return p, nil
}

// ImageHandler wraps the image pipeline runner as a queue Handler.
func ImageHandler(run func(ctx context.Context, jobID string, params domain.ImageGenerationParams) error) Handler {
	return func(ctx context.Context, payload string) error {
		p, err := DecodePayload(payload)
		if err != nil {
			return err
		}
		if p.ImageParams == nil {
			return fmt.Errorf("job %s: payload has no image params", p.JobID)
		}
		return run(ctx, p.JobID, *p.ImageParams)
	}
}

// BRollHandler wraps the B-roll pipeline runner as a queue Handler.
func BRollHandler(run func(ctx context.Context, jobID string, params domain.BRollParams) error) Handler {
	return func(ctx context.Context, payload string) error {
		p, err := DecodePayload(payload)
		if err != nil {
			return err
		}
		if p.BRollParams == nil {
			return fmt.Errorf("job %s: payload has no b-roll params", p.JobID)
		}
		return run(ctx, p.JobID, *p.BRollParams)
	}
}

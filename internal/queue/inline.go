package queue

import (
	"context"
	"fmt"
	"sync"

	"storyboard-backend/internal/infra"
)

// Inline runs tasks in-process, one goroutine per enqueued task. It serves
// single-binary deployments and tests where redis is not available.
type Inline struct {
	logger   infra.Logger
	mu       sync.Mutex
	handlers map[string]Handler
	wg       sync.WaitGroup
}

func NewInline(logger infra.Logger) *Inline {
	return &Inline{
		logger:   logger,
		handlers: make(map[string]Handler),
	}
}

func (i *Inline) Register(queueName string, handler Handler) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.handlers[queueName] = handler
}

// Enqueue dispatches the task on a fresh goroutine. The task runs on a
// background context so it outlives the submitting HTTP request.
func (i *Inline) Enqueue(_ context.Context, queueName, payload string) error {
	i.mu.Lock()
	handler, ok := i.handlers[queueName]
	i.mu.Unlock()
	if !ok {
		return fmt.Errorf("no handler registered for queue %s", queueName)
	}

	i.wg.Add(1)
	go func() {
		defer i.wg.Done()
		if err := handler(context.Background(), payload); err != nil {
			i.logger.Error().Err(err).Str("queue", queueName).Msg("task failed")
		}
	}()
	return nil
}

// Wait blocks until all dispatched tasks finish. Used on shutdown.
func (i *Inline) Wait() { i.wg.Wait() }

package queue

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/go-redis/redis/v8"

	"storyboard-backend/internal/infra"
)

// Processor is the redis-backed task queue: producers LPush payloads, the
// worker BRPops them and dispatches to the registered handler.
type Processor struct {
	rdb      *redis.Client
	logger   infra.Logger
	handlers map[string]Handler
}

func NewProcessor(rdb *redis.Client, logger infra.Logger) *Processor {
	return &Processor{
		rdb:      rdb,
		logger:   logger,
		handlers: make(map[string]Handler),
	}
}

// Register maps a queue name to its handler. Register before Listen; the
// handler map is not guarded once the listen loop runs.
func (p *Processor) Register(queueName string, handler Handler) {
	p.handlers[queueName] = handler
	p.logger.Info().Str("queue", queueName).Msg("registered queue handler")
}

func (p *Processor) Enqueue(ctx context.Context, queueName, payload string) error {
	return p.rdb.LPush(ctx, queueName, payload).Err()
}

// Listen blocks popping tasks from every registered queue until the context
// is cancelled. Handler errors are logged and the loop continues; the job
// record already carries the failure for the client to read.
func (p *Processor) Listen(ctx context.Context) {
	queueNames := make([]string, 0, len(p.handlers))
	for name := range p.handlers {
		queueNames = append(queueNames, name)
	}
	sort.Strings(queueNames)
	p.logger.Info().Strs("queues", queueNames).Msg("worker listening")

	for {
		result, err := p.rdb.BRPop(ctx, 0, queueNames...).Result()
		if err != nil {
			if ctx.Err() != nil {
				p.logger.Info().Msg("queue listener stopping")
				return
			}
			p.logger.Error().Err(err).Msg("pop from queue")
			if errors.Is(err, redis.ErrClosed) {
				return
			}
			time.Sleep(time.Second)
			continue
		}

		// result[0] is the queue name, result[1] the payload.
		queueName, payload := result[0], result[1]
		handler, ok := p.handlers[queueName]
		if !ok {
			p.logger.Error().Str("queue", queueName).Msg("no handler registered")
			continue
		}

		p.logger.Info().Str("queue", queueName).Msg("received task")
		if err := handler(ctx, payload); err != nil {
			p.logger.Error().Err(err).Str("queue", queueName).Msg("task failed")
		}
	}
}

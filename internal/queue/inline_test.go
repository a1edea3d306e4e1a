package queue

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"storyboard-backend/internal/domain"
)

func TestInlineDispatchesRegisteredHandler(t *testing.T) {
	q := NewInline(zerolog.Nop())

	var mu sync.Mutex
	var got []string
	q.Register("q_test", func(_ context.Context, payload string) error {
		mu.Lock()
		got = append(got, payload)
		mu.Unlock()
		return nil
	})

	if err := q.Enqueue(context.Background(), "q_test", "payload-1"); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	q.Wait()

	if len(got) != 1 || got[0] != "payload-1" {
		t.Fatalf("handled payloads = %v", got)
	}
}

func TestInlineUnknownQueue(t *testing.T) {
	q := NewInline(zerolog.Nop())
	if err := q.Enqueue(context.Background(), "q_missing", "x"); err == nil {
		t.Fatal("expected error for unregistered queue")
	}
}

func TestDispatcherRoundTrip(t *testing.T) {
	q := NewInline(zerolog.Nop())
	d := NewDispatcher(q)

	var mu sync.Mutex
	var imageJob string
	var imageParams domain.ImageGenerationParams
	q.Register(QueueImageGeneration, ImageHandler(func(_ context.Context, jobID string, params domain.ImageGenerationParams) error {
		mu.Lock()
		imageJob, imageParams = jobID, params
		mu.Unlock()
		return nil
	}))

	var brollJob string
	var brollParams domain.BRollParams
	q.Register(QueueBRoll, BRollHandler(func(_ context.Context, jobID string, params domain.BRollParams) error {
		mu.Lock()
		brollJob, brollParams = jobID, params
		mu.Unlock()
		return nil
	}))

	err := d.EnqueueImageGeneration(context.Background(), "job-1", domain.ImageGenerationParams{
		ScriptText: "hello", ImageCount: 4, Style: "anime",
	})
	if err != nil {
		t.Fatal(err)
	}
	err = d.EnqueueBRoll(context.Background(), "job-2", domain.BRollParams{
		BRollClipIDs: []string{"b", "c"}, SyncToVoiceover: true, ShuffleSeed: 9,
	})
	if err != nil {
		t.Fatal(err)
	}
	q.Wait()

	if imageJob != "job-1" || imageParams.ImageCount != 4 || imageParams.Style != "anime" {
		t.Fatalf("image task = %q %+v", imageJob, imageParams)
	}
	if brollJob != "job-2" || len(brollParams.BRollClipIDs) != 2 || brollParams.ShuffleSeed != 9 {
		t.Fatalf("b-roll task = %q %+v", brollJob, brollParams)
	}
}

func TestDecodePayloadRejectsMissingJobID(t *testing.T) {
	if _, err := DecodePayload(`{"image_params":{}}`); err == nil {
		t.Fatal("expected error for payload without job id")
	}
	if _, err := DecodePayload("not json"); err == nil {
		t.Fatal("expected error for malformed payload")
	}
}

func TestHandlersRejectMismatchedPayload(t *testing.T) {
	h := ImageHandler(func(context.Context, string, domain.ImageGenerationParams) error {
		t.Error("runner must not be called")
		return nil
	})
	if err := h(context.Background(), `{"job_id":"j","broll_params":{}}`); err == nil {
		t.Fatal("expected error for payload without image params")
	}

	b := BRollHandler(func(context.Context, string, domain.BRollParams) error {
		t.Error("runner must not be called")
		return nil
	})
	if err := b(context.Background(), `{"job_id":"j","image_params":{}}`); err == nil {
		t.Fatal("expected error for payload without b-roll params")
	}
}

func TestHandlerPropagatesRunnerError(t *testing.T) {
	want := errors.New("pipeline exploded")
	h := ImageHandler(func(context.Context, string, domain.ImageGenerationParams) error { return want })
	if err := h(context.Background(), `{"job_id":"j","image_params":{"image_count":1}}`); !errors.Is(err, want) {
		t.Fatalf("err = %v, want runner error", err)
	}
}

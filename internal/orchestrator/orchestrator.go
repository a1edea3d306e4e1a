package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"storyboard-backend/internal/domain"
	"storyboard-backend/internal/infra"
	"storyboard-backend/internal/media"
)

// MediaTool is the slice of the ffmpeg wrapper the pipelines use.
type MediaTool interface {
	ProbeDuration(ctx context.Context, path string) (float64, error)
	Concatenate(ctx context.Context, clipPaths []string, outputPath string, opts media.ConcatOptions) (string, error)
	OverlayAudio(ctx context.Context, videoPath, audioPath, outputPath string) (string, error)
	ImageToClip(ctx context.Context, imagePath, outputPath string, duration float64) (string, error)
}

// ImageGenerator produces one image for one prompt.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) ([]byte, error)
}

// GeneratorFactory builds a generator bound to an API key. The key is loaded
// per job so a rotated credential takes effect without a restart.
type GeneratorFactory func(apiKey string) ImageGenerator

// Credentials resolves the OpenAI API key from env or the token store.
type Credentials interface {
	OpenAIAPIKey(ctx context.Context) (string, error)
}

// TextExtractor pulls plain script text out of an uploaded document.
type TextExtractor interface {
	ExtractOrFallback(path, rawText string) string
}

// Enqueuer hands a created job to the task queue. Implemented by the queue
// package for both the redis and the inline driver.
type Enqueuer interface {
	EnqueueImageGeneration(ctx context.Context, jobID string, params domain.ImageGenerationParams) error
	EnqueueBRoll(ctx context.Context, jobID string, params domain.BRollParams) error
}

// Options wires an Orchestrator.
type Options struct {
	Jobs         domain.JobRepository
	Files        domain.FileRepository
	Media        MediaTool
	Credentials  Credentials
	NewGenerator GeneratorFactory
	Extractor    TextExtractor
	Enqueuer     Enqueuer
	OutputDir    string
	ResultsDir   string
	SceneWorkers int
	// CancelPoll is how often a running job re-checks its stored status for
	// a cancellation written by another process. Zero means the default.
	CancelPoll time.Duration
	Logger     infra.Logger
}

const defaultCancelPoll = 2 * time.Second

// Orchestrator sequences external tool invocations for submitted jobs and is
// the single writer of a running job's record.
type Orchestrator struct {
	jobs       domain.JobRepository
	files      domain.FileRepository
	media      MediaTool
	creds      Credentials
	newGen     GeneratorFactory
	extract    TextExtractor
	enqueue    Enqueuer
	outputDir  string
	resultsDir string
	workers    int
	cancelPoll time.Duration
	logger     infra.Logger

	mu      sync.Mutex
	running map[string]context.CancelFunc
}

func New(opts Options) *Orchestrator {
	if opts.CancelPoll <= 0 {
		opts.CancelPoll = defaultCancelPoll
	}
	return &Orchestrator{
		jobs:       opts.Jobs,
		files:      opts.Files,
		media:      opts.Media,
		creds:      opts.Credentials,
		newGen:     opts.NewGenerator,
		extract:    opts.Extractor,
		enqueue:    opts.Enqueuer,
		outputDir:  opts.OutputDir,
		resultsDir: opts.ResultsDir,
		workers:    opts.SceneWorkers,
		cancelPoll: opts.CancelPoll,
		logger:     opts.Logger,
		running:    make(map[string]context.CancelFunc),
	}
}

// SetEnqueuer breaks the construction cycle between the orchestrator and an
// inline queue that dispatches straight back into it.
func (o *Orchestrator) SetEnqueuer(e Enqueuer) { o.enqueue = e }

// SubmitImageGeneration records a pending image job and enqueues it.
func (o *Orchestrator) SubmitImageGeneration(ctx context.Context, params domain.ImageGenerationParams) (*domain.Job, error) {
	job := &domain.Job{
		ID:      uuid.NewString(),
		Kind:    domain.JobKindImageGeneration,
		Status:  domain.JobStatusPending,
		Message: "Job queued",
	}
	if err := o.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	if err := o.enqueue.EnqueueImageGeneration(ctx, job.ID, params); err != nil {
		o.failSubmit(ctx, job.ID, err)
		return nil, fmt.Errorf("enqueue job %s: %w", job.ID, err)
	}
	return job, nil
}

// SubmitBRoll records a pending B-roll job and enqueues it.
func (o *Orchestrator) SubmitBRoll(ctx context.Context, params domain.BRollParams) (*domain.Job, error) {
	if len(params.IntroClipIDs)+len(params.BRollClipIDs) == 0 {
		return nil, domain.ErrNoClips
	}
	job := &domain.Job{
		ID:      uuid.NewString(),
		Kind:    domain.JobKindBRoll,
		Status:  domain.JobStatusPending,
		Message: "Job queued",
	}
	if err := o.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	if err := o.enqueue.EnqueueBRoll(ctx, job.ID, params); err != nil {
		o.failSubmit(ctx, job.ID, err)
		return nil, fmt.Errorf("enqueue job %s: %w", job.ID, err)
	}
	return job, nil
}

func (o *Orchestrator) failSubmit(ctx context.Context, jobID string, cause error) {
	status := domain.JobStatusFailed
	msg := cause.Error()
	if err := o.jobs.Update(ctx, jobID, domain.JobUpdate{Status: &status, Message: &msg}); err != nil {
		o.logger.Warn().Err(err).Str("job_id", jobID).Msg("mark submit failure")
	}
}

// Cancel stops a running job or flags a pending one so the worker skips it.
// A job owned by this process gets its context cancelled; a job queued on
// redis but not yet picked up is cancelled through its stored status.
func (o *Orchestrator) Cancel(ctx context.Context, jobID string) error {
	job, err := o.jobs.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status.Terminal() {
		return fmt.Errorf("job %s already %s", jobID, job.Status)
	}

	o.mu.Lock()
	cancel, ok := o.running[jobID]
	o.mu.Unlock()
	if ok {
		cancel()
		return nil
	}

	status := domain.JobStatusCancelled
	msg := cancelledMessage
	return o.jobs.Update(ctx, jobID, domain.JobUpdate{Status: &status, Message: &msg})
}

// RunImageGeneration executes the image pipeline for an enqueued job.
func (o *Orchestrator) RunImageGeneration(ctx context.Context, jobID string, params domain.ImageGenerationParams) error {
	return o.run(ctx, jobID, func(ctx context.Context) (*pipelineResult, error) {
		return o.runImages(ctx, jobID, params)
	})
}

// RunBRoll executes the B-roll pipeline for an enqueued job.
func (o *Orchestrator) RunBRoll(ctx context.Context, jobID string, params domain.BRollParams) error {
	return o.run(ctx, jobID, func(ctx context.Context) (*pipelineResult, error) {
		return o.runBRoll(ctx, jobID, params)
	})
}

type pipelineResult struct {
	JSON    []byte
	Path    string
	Message string
}

const (
	cancelledMessage = "Job cancelled by user"
	shutdownMessage  = "Job interrupted by shutdown"
)

func (o *Orchestrator) run(ctx context.Context, jobID string, fn func(ctx context.Context) (*pipelineResult, error)) error {
	job, err := o.jobs.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load job %s: %w", jobID, err)
	}
	if job.Status.Terminal() {
		o.logger.Info().Str("job_id", jobID).Str("status", string(job.Status)).Msg("skipping terminal job")
		return nil
	}

	// The cause separates a user cancel from a worker shutdown: both arrive
	// as context.Canceled, but only the former carries domain.ErrJobCancelled.
	runCtx, cancel := context.WithCancelCause(ctx)
	userCancel := func() { cancel(domain.ErrJobCancelled) }
	o.mu.Lock()
	o.running[jobID] = userCancel
	o.mu.Unlock()
	defer func() {
		cancel(context.Canceled)
		o.mu.Lock()
		delete(o.running, jobID)
		o.mu.Unlock()
	}()
	go o.watchStoredCancel(runCtx, jobID, userCancel)

	status := domain.JobStatusProcessing
	if err := o.jobs.Update(ctx, jobID, domain.JobUpdate{Status: &status}); err != nil {
		return fmt.Errorf("mark job %s processing: %w", jobID, err)
	}

	res, runErr := fn(runCtx)
	return o.finish(jobID, res, runErr, context.Cause(runCtx))
}

// watchStoredCancel stops the run when another process flips the stored
// status to cancelled. The running map only covers jobs owned by this
// process, so a cancel issued through a different instance arrives via the
// job record.
func (o *Orchestrator) watchStoredCancel(ctx context.Context, jobID string, stop func()) {
	ticker := time.NewTicker(o.cancelPoll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			job, err := o.jobs.GetByID(ctx, jobID)
			if err != nil {
				continue
			}
			if job.Status == domain.JobStatusCancelled {
				stop()
				return
			}
		}
	}
}

// finish writes the terminal record. It uses a fresh context because the run
// context is already cancelled on the cancellation path.
func (o *Orchestrator) finish(jobID string, res *pipelineResult, runErr, cause error) error {
	ctx := context.Background()

	// Cancel may have flagged the row from another process while this run
	// was in flight. A terminal record is never overwritten.
	if cur, err := o.jobs.GetByID(ctx, jobID); err == nil && cur.Status.Terminal() {
		o.logger.Info().Str("job_id", jobID).Str("status", string(cur.Status)).Msg("job reached terminal state elsewhere, keeping it")
		return nil
	}

	switch {
	case runErr == nil:
		status := domain.JobStatusCompleted
		progress := 100
		upd := domain.JobUpdate{Status: &status, Progress: &progress, Message: &res.Message, Result: res.JSON}
		if res.Path != "" {
			upd.ResultPath = &res.Path
		}
		if err := o.jobs.Update(ctx, jobID, upd); err != nil {
			return fmt.Errorf("mark job %s completed: %w", jobID, err)
		}
		o.logger.Info().Str("job_id", jobID).Msg("job completed")
		return nil

	case errors.Is(runErr, context.Canceled), errors.Is(runErr, domain.ErrJobCancelled):
		status := domain.JobStatusCancelled
		msg := cancelledMessage
		if !errors.Is(runErr, domain.ErrJobCancelled) && !errors.Is(cause, domain.ErrJobCancelled) {
			msg = shutdownMessage
		}
		if err := o.jobs.Update(ctx, jobID, domain.JobUpdate{Status: &status, Message: &msg}); err != nil {
			return fmt.Errorf("mark job %s cancelled: %w", jobID, err)
		}
		o.logger.Info().Str("job_id", jobID).Msg("job cancelled")
		return nil

	default:
		status := domain.JobStatusFailed
		msg := runErr.Error()
		progress := 0
		if err := o.jobs.Update(ctx, jobID, domain.JobUpdate{Status: &status, Message: &msg, Progress: &progress}); err != nil {
			return fmt.Errorf("mark job %s failed: %w", jobID, err)
		}
		o.logger.Error().Err(runErr).Str("job_id", jobID).Msg("job failed")
		return runErr
	}
}

// report persists a progress checkpoint. Checkpoint writes are best effort;
// a lost one costs a stale progress bar, not a wrong result.
func (o *Orchestrator) report(ctx context.Context, jobID string, percent int, message string) {
	if err := o.jobs.Update(ctx, jobID, domain.JobUpdate{Progress: &percent, Message: &message}); err != nil && ctx.Err() == nil {
		o.logger.Warn().Err(err).Str("job_id", jobID).Int("progress", percent).Msg("report progress")
	}
}

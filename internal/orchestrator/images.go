package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"storyboard-backend/internal/domain"
	"storyboard-backend/internal/imagegen"
	"storyboard-backend/internal/media"
	"storyboard-backend/internal/script"
)

const (
	sceneImageSize   = 1024
	metadataFilename = "generation_metadata.json"
)

type generationMetadata struct {
	JobID                string                  `json:"job_id"`
	ScriptText           string                  `json:"script_text"`
	Style                string                  `json:"style"`
	CharacterDescription string                  `json:"character_description"`
	VoiceDuration        float64                 `json:"voice_duration"`
	Scenes               []domain.GeneratedScene `json:"scenes"`
	GeneratedAt          time.Time               `json:"generated_at"`
}

type imageResult struct {
	Images               []string `json:"images"`
	ScriptText           string   `json:"script_text"`
	OutputDir            string   `json:"output_dir"`
	ImageCount           int      `json:"image_count"`
	Style                string   `json:"style"`
	CharacterDescription string   `json:"character_description"`
	MetadataPath         string   `json:"metadata_path"`
	Clips                []string `json:"clips,omitempty"`
	Video                string   `json:"video,omitempty"`
}

// runImages drives the image-generation pipeline: credentials, script text,
// voiceover duration, bounded per-scene fan-out, metadata, optional exports.
// Per-scene failures degrade (placeholder or skip); everything else is fatal.
func (o *Orchestrator) runImages(ctx context.Context, jobID string, params domain.ImageGenerationParams) (*pipelineResult, error) {
	o.report(ctx, jobID, 5, "Initializing AI image generation...")

	o.report(ctx, jobID, 10, "Loading API credentials...")
	apiKey, err := o.creds.OpenAIAPIKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}
	if apiKey == "" {
		return nil, domain.ErrCredentialsMissing
	}
	gen := o.newGen(apiKey)

	o.report(ctx, jobID, 15, "Reading script file...")
	text := o.extract.ExtractOrFallback(params.ScriptPath, params.ScriptText)

	o.report(ctx, jobID, 20, "Analyzing voiceover duration...")
	duration := params.VoiceDuration
	if duration <= 0 {
		duration, err = o.media.ProbeDuration(ctx, params.VoicePath)
		if err != nil {
			return nil, fmt.Errorf("probe voiceover duration: %w", err)
		}
	}

	count := params.ImageCount
	if count < 1 {
		count = 1
	}
	segments := script.Segment(text, count)
	timestamps := script.Timestamps(duration, count)
	durations := script.SceneDurations(timestamps, duration)

	jobDir := filepath.Join(o.outputDir, jobID)
	if err := os.MkdirAll(jobDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	scenes := make([]*domain.GeneratedScene, count)
	var completed atomic.Int64

	// Scene goroutines finish in arbitrary order; the high-water mark keeps
	// persisted progress non-decreasing.
	var progressMu sync.Mutex
	maxPct := 20
	reportScene := func(n int64) {
		pct := 20 + int((float64(n)-0.5)/float64(count)*60)
		progressMu.Lock()
		defer progressMu.Unlock()
		if pct <= maxPct {
			return
		}
		maxPct = pct
		o.report(ctx, jobID, pct, fmt.Sprintf("Generating images (%d/%d)...", n, count))
	}

	g, gctx := errgroup.WithContext(ctx)
	workers := o.workers
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	g.SetLimit(workers)

	for i := 0; i < count; i++ {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			prompt := imagegen.ScenePrompt(segments[i], params.CharacterDescription, params.Style, i+1)
			data, genErr := gen.Generate(gctx, prompt)
			if genErr != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				o.logger.Warn().Err(genErr).Str("job_id", jobID).Int("scene", i+1).Msg("image generation failed, using placeholder")
				data = imagegen.Placeholder(sceneImageSize, sceneImageSize, i+1, genErr.Error())
			}

			filename := fmt.Sprintf("scene_%03d.png", i+1)
			if writeErr := os.WriteFile(filepath.Join(jobDir, filename), data, 0o644); writeErr != nil {
				// Skip the scene; remaining scenes still complete the job.
				o.logger.Warn().Err(writeErr).Str("job_id", jobID).Int("scene", i+1).Msg("failed to write scene image")
			} else {
				scenes[i] = &domain.GeneratedScene{
					Path:      filename,
					Timestamp: timestamps[i],
					Duration:  durations[i],
				}
			}

			reportScene(completed.Add(1))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ordered := make([]domain.GeneratedScene, 0, count)
	for _, s := range scenes {
		if s != nil {
			ordered = append(ordered, *s)
		}
	}
	if len(ordered) == 0 {
		return nil, fmt.Errorf("no images were generated for job %s", jobID)
	}

	o.report(ctx, jobID, 95, "Finalizing results...")
	meta := generationMetadata{
		JobID:                jobID,
		ScriptText:           text,
		Style:                params.Style,
		CharacterDescription: params.CharacterDescription,
		VoiceDuration:        duration,
		Scenes:               ordered,
		GeneratedAt:          time.Now().UTC(),
	}
	metaBytes, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	metaPath := filepath.Join(jobDir, metadataFilename)
	if err := os.WriteFile(metaPath, metaBytes, 0o644); err != nil {
		return nil, fmt.Errorf("write metadata: %w", err)
	}

	res := imageResult{
		ScriptText:           text,
		OutputDir:            jobDir,
		ImageCount:           len(ordered),
		Style:                params.Style,
		CharacterDescription: params.CharacterDescription,
		MetadataPath:         metaPath,
	}
	for _, s := range ordered {
		res.Images = append(res.Images, filepath.Join(jobID, s.Path))
	}

	// Exports are additive; their failure never fails an already generated job.
	if params.ExportOptions.Clips || params.ExportOptions.FullVideo {
		clips, video := o.exportVideo(ctx, jobID, jobDir, params, ordered)
		res.Clips = clips
		res.Video = video
	}

	payload, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return &pipelineResult{
		JSON:    payload,
		Path:    jobDir,
		Message: "AI image generation completed successfully",
	}, nil
}

// exportVideo turns the generated stills into per-scene clips and, when
// requested, a single assembled video with the voiceover laid over it.
func (o *Orchestrator) exportVideo(ctx context.Context, jobID, jobDir string, params domain.ImageGenerationParams, scenes []domain.GeneratedScene) (clips []string, video string) {
	clipsDir := filepath.Join(jobDir, "clips")
	if err := os.MkdirAll(clipsDir, 0o755); err != nil {
		o.logger.Warn().Err(err).Str("job_id", jobID).Msg("create clips dir")
		return nil, ""
	}

	var clipPaths []string
	for i, s := range scenes {
		out := filepath.Join(clipsDir, fmt.Sprintf("scene_%03d.mp4", i+1))
		if _, err := o.media.ImageToClip(ctx, filepath.Join(jobDir, s.Path), out, s.Duration); err != nil {
			o.logger.Warn().Err(err).Str("job_id", jobID).Int("scene", i+1).Msg("image-to-clip export failed")
			continue
		}
		clipPaths = append(clipPaths, out)
		clips = append(clips, filepath.Join(jobID, "clips", filepath.Base(out)))
	}

	if !params.ExportOptions.FullVideo || len(clipPaths) == 0 {
		return clips, ""
	}

	assembled := filepath.Join(jobDir, "full_video.mp4")
	if _, err := o.media.Concatenate(ctx, clipPaths, assembled, media.ConcatOptions{}); err != nil {
		o.logger.Warn().Err(err).Str("job_id", jobID).Msg("full-video concatenation failed")
		return clips, ""
	}
	video = filepath.Join(jobID, "full_video.mp4")

	if params.VoicePath != "" {
		withAudio := filepath.Join(jobDir, "full_video_with_audio.mp4")
		if _, err := o.media.OverlayAudio(ctx, assembled, params.VoicePath, withAudio); err != nil {
			o.logger.Warn().Err(err).Str("job_id", jobID).Msg("voiceover overlay on export failed")
		} else {
			video = filepath.Join(jobID, "full_video_with_audio.mp4")
		}
	}
	return clips, video
}

package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"storyboard-backend/internal/domain"
	"storyboard-backend/internal/media"
)

type brollResult struct {
	Video         string  `json:"video"`
	IntroCount    int     `json:"intro_count"`
	BRollCount    int     `json:"broll_count"`
	ClipCount     int     `json:"clip_count"`
	VoiceDuration float64 `json:"voice_duration,omitempty"`
	Synced        bool    `json:"synced"`
	Overlaid      bool    `json:"overlaid"`
}

// runBRoll drives the B-roll pipeline: resolve uploaded clips, shuffle the
// B-roll segment behind the fixed intro, concatenate with an optional trim to
// the voiceover length, then optionally overlay the voiceover.
func (o *Orchestrator) runBRoll(ctx context.Context, jobID string, params domain.BRollParams) (*pipelineResult, error) {
	o.report(ctx, jobID, 5, "Starting B-roll reorganization...")

	o.report(ctx, jobID, 10, "Loading video files...")
	introPaths, err := o.resolveClips(ctx, params.IntroClipIDs, "intro")
	if err != nil {
		return nil, err
	}
	brollPaths, err := o.resolveClips(ctx, params.BRollClipIDs, "b-roll")
	if err != nil {
		return nil, err
	}
	if len(introPaths)+len(brollPaths) == 0 {
		return nil, domain.ErrNoClips
	}

	var voicePath string
	if params.VoiceoverID != "" {
		rec, err := o.files.GetByID(ctx, params.VoiceoverID)
		if err != nil {
			return nil, fmt.Errorf("failed to get voiceover file %s: %w", params.VoiceoverID, err)
		}
		voicePath = rec.Path
	}

	var voiceDuration float64
	if voicePath != "" && params.SyncToVoiceover {
		o.report(ctx, jobID, 15, "Analyzing voiceover duration...")
		voiceDuration, err = o.media.ProbeDuration(ctx, voicePath)
		if err != nil {
			// Without a duration the output simply runs its natural length.
			o.logger.Warn().Err(err).Str("job_id", jobID).Msg("voiceover probe failed, skipping sync")
			voiceDuration = 0
		}
	}

	o.report(ctx, jobID, 20, "Shuffling B-roll clips...")
	shuffled := shuffleClips(brollPaths, params.ShuffleSeed)
	ordered := append(append([]string{}, introPaths...), shuffled...)

	workDir := filepath.Join(o.resultsDir, fmt.Sprintf("broll_job_%s_%d", jobID, time.Now().Unix()))
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("create results dir: %w", err)
	}

	o.report(ctx, jobID, 30, "Creating reorganized video...")
	concatOut := filepath.Join(workDir, "broll_reorganized.mp4")
	opts := media.ConcatOptions{
		TargetDuration: voiceDuration,
		Progress: func(fraction float64) {
			o.report(ctx, jobID, 30+int(fraction*50), "Processing video clips...")
		},
	}
	finalPath, err := o.media.Concatenate(ctx, ordered, concatOut, opts)
	if err != nil {
		return nil, fmt.Errorf("concatenate clips: %w", err)
	}

	overlaid := false
	if params.OverlayAudio && voicePath != "" {
		o.report(ctx, jobID, 85, "Overlaying voiceover...")
		finalPath, err = o.media.OverlayAudio(ctx, finalPath, voicePath, filepath.Join(workDir, "broll_with_voiceover.mp4"))
		if err != nil {
			return nil, fmt.Errorf("overlay voiceover: %w", err)
		}
		overlaid = true
	}

	// Convenience copy so the newest result is always at a stable path.
	latest := filepath.Join(o.resultsDir, "latest_broll_"+filepath.Base(finalPath))
	if err := copyFile(finalPath, latest); err != nil {
		o.logger.Warn().Err(err).Str("job_id", jobID).Msg("copy latest b-roll result")
	}

	payload, err := json.Marshal(brollResult{
		Video:         finalPath,
		IntroCount:    len(introPaths),
		BRollCount:    len(brollPaths),
		ClipCount:     len(ordered),
		VoiceDuration: voiceDuration,
		Synced:        voiceDuration > 0,
		Overlaid:      overlaid,
	})
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return &pipelineResult{
		JSON:    payload,
		Path:    finalPath,
		Message: "B-roll reorganization completed successfully",
	}, nil
}

func (o *Orchestrator) resolveClips(ctx context.Context, ids []string, label string) ([]string, error) {
	paths := make([]string, 0, len(ids))
	for _, id := range ids {
		rec, err := o.files.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to get %s file %s: %w", label, id, err)
		}
		paths = append(paths, rec.Path)
	}
	return paths, nil
}

// shuffleClips permutes only the B-roll clips; intro order is fixed upstream.
// A zero seed keeps the historical time-seeded behavior.
func shuffleClips(paths []string, seed int64) []string {
	out := append([]string{}, paths...)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"storyboard-backend/internal/domain"
)

const (
	defaultImageCount = 5
	maxImageCount     = 20
)

type generateImagesReq struct {
	ScriptFileID         string `json:"script_file_id,omitempty"`
	ScriptText           string `json:"script_text,omitempty"`
	VoiceFileID          string `json:"voice_file_id"`
	ImageCount           int    `json:"image_count"`
	Style                string `json:"style"`
	CharacterDescription string `json:"character_description"`
	ExportClips          bool   `json:"export_clips"`
	ExportFullVideo      bool   `json:"export_full_video"`
}

type generateBRollReq struct {
	IntroClipIDs    []string `json:"intro_clip_ids"`
	BRollClipIDs    []string `json:"broll_clip_ids"`
	VoiceoverID     string   `json:"voiceover_id,omitempty"`
	SyncToVoiceover bool     `json:"sync_to_voiceover"`
	OverlayAudio    bool     `json:"overlay_audio"`
	ShuffleSeed     int64    `json:"shuffle_seed,omitempty"`
}

type jobResponse struct {
	ID        string           `json:"id"`
	Kind      domain.JobKind   `json:"kind"`
	Status    domain.JobStatus `json:"status"`
	Progress  int              `json:"progress"`
	Message   string           `json:"message"`
	Result    json.RawMessage  `json:"result,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

func toJobResponse(job *domain.Job) jobResponse {
	return jobResponse{
		ID:        job.ID,
		Kind:      job.Kind,
		Status:    job.Status,
		Progress:  job.Progress,
		Message:   job.Message,
		Result:    json.RawMessage(job.ResultJSON),
		CreatedAt: job.CreatedAt,
		UpdatedAt: job.UpdatedAt,
	}
}

// GenerateImages validates the request, resolves uploaded file references and
// submits an image-generation job.
func (a *App) GenerateImages(w http.ResponseWriter, r *http.Request) {
	var req generateImagesReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.json(w, http.StatusBadRequest, map[string]string{"error": "invalid json body"})
		return
	}

	if req.VoiceFileID == "" {
		a.json(w, http.StatusBadRequest, map[string]string{"error": "voice_file_id is required"})
		return
	}
	if req.ScriptFileID == "" && req.ScriptText == "" {
		a.json(w, http.StatusBadRequest, map[string]string{"error": "script_file_id or script_text is required"})
		return
	}

	count := req.ImageCount
	if count <= 0 {
		count = defaultImageCount
	}
	if count > maxImageCount {
		count = maxImageCount
	}

	voice, err := a.Files.GetByID(r.Context(), req.VoiceFileID)
	if err != nil {
		a.json(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("voice file %s not found", req.VoiceFileID)})
		return
	}

	params := domain.ImageGenerationParams{
		ScriptText:           req.ScriptText,
		VoicePath:            voice.Path,
		ImageCount:           count,
		Style:                req.Style,
		CharacterDescription: req.CharacterDescription,
		ExportOptions: domain.ExportOptions{
			Clips:     req.ExportClips,
			FullVideo: req.ExportFullVideo,
		},
	}
	if req.ScriptFileID != "" {
		script, err := a.Files.GetByID(r.Context(), req.ScriptFileID)
		if err != nil {
			a.json(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("script file %s not found", req.ScriptFileID)})
			return
		}
		params.ScriptPath = script.Path
	}

	job, err := a.Service.SubmitImageGeneration(r.Context(), params)
	if err != nil {
		a.error(w, r, err)
		return
	}
	a.json(w, http.StatusAccepted, toJobResponse(job))
}

// GenerateBRoll submits a B-roll reorganization job.
func (a *App) GenerateBRoll(w http.ResponseWriter, r *http.Request) {
	var req generateBRollReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.json(w, http.StatusBadRequest, map[string]string{"error": "invalid json body"})
		return
	}
	if len(req.BRollClipIDs) == 0 {
		a.json(w, http.StatusBadRequest, map[string]string{"error": "broll_clip_ids must not be empty"})
		return
	}

	job, err := a.Service.SubmitBRoll(r.Context(), domain.BRollParams{
		IntroClipIDs:    req.IntroClipIDs,
		BRollClipIDs:    req.BRollClipIDs,
		VoiceoverID:     req.VoiceoverID,
		SyncToVoiceover: req.SyncToVoiceover,
		OverlayAudio:    req.OverlayAudio,
		ShuffleSeed:     req.ShuffleSeed,
	})
	if err != nil {
		a.error(w, r, err)
		return
	}
	a.json(w, http.StatusAccepted, toJobResponse(job))
}

// GetJob returns the persisted state of one job, result included once the
// job completes.
func (a *App) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := a.Jobs.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.error(w, r, err)
		return
	}
	a.json(w, http.StatusOK, toJobResponse(job))
}

// ListJobs returns recent jobs, newest first.
func (a *App) ListJobs(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	jobs, err := a.Jobs.List(r.Context(), limit)
	if err != nil {
		a.error(w, r, err)
		return
	}
	out := make([]jobResponse, 0, len(jobs))
	for i := range jobs {
		out = append(out, toJobResponse(&jobs[i]))
	}
	a.json(w, http.StatusOK, map[string]any{"jobs": out})
}

// CancelJob cancels a pending or running job.
func (a *App) CancelJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := a.Service.Cancel(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, r, err)
			return
		}
		a.json(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}
	a.json(w, http.StatusOK, map[string]string{"id": id, "status": string(domain.JobStatusCancelled)})
}

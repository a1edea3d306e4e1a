package domain

import "time"

// JobKind selects which pipeline a job runs.
type JobKind string

const (
	JobKindImageGeneration JobKind = "ai_images"
	JobKindBRoll           JobKind = "broll_organize"
)

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// Job is one orchestrated pipeline run. The orchestrator is the only writer
// of a running job's record; the HTTP layer only reads.
type Job struct {
	ID         string
	Kind       JobKind
	Status     JobStatus
	Progress   int
	Message    string
	ResultPath string
	ResultJSON []byte
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ExportOptions requests optional post-generation assembly artifacts. Core
// completion of an image job does not depend on them.
type ExportOptions struct {
	Clips     bool `json:"clips"`
	FullVideo bool `json:"full_video"`
}

// ImageGenerationParams carries everything the image pipeline needs.
type ImageGenerationParams struct {
	ScriptPath           string        `json:"script_path"`
	ScriptText           string        `json:"script_text,omitempty"`
	VoicePath            string        `json:"voice_path"`
	ImageCount           int           `json:"image_count"`
	Style                string        `json:"style"`
	CharacterDescription string        `json:"character_description"`
	VoiceDuration        float64       `json:"voice_duration,omitempty"`
	ExportOptions        ExportOptions `json:"export_options"`
}

// BRollParams carries everything the B-roll pipeline needs. Clip references
// are file ids resolved through the file repository at run time.
type BRollParams struct {
	IntroClipIDs    []string `json:"intro_clip_ids"`
	BRollClipIDs    []string `json:"broll_clip_ids"`
	VoiceoverID     string   `json:"voiceover_id,omitempty"`
	SyncToVoiceover bool     `json:"sync_to_voiceover"`
	OverlayAudio    bool     `json:"overlay_audio"`
	// ShuffleSeed makes the B-roll shuffle reproducible when non-zero.
	// Zero keeps the historical unseeded behavior.
	ShuffleSeed int64 `json:"shuffle_seed,omitempty"`
}

// GeneratedScene is one image placed on the voiceover timeline.
type GeneratedScene struct {
	Path      string  `json:"path"`
	Timestamp float64 `json:"timestamp"`
	Duration  float64 `json:"duration"`
}

// FileRecord is an uploaded file tracked by the backend.
type FileRecord struct {
	ID         string
	Kind       string
	Filename   string
	Path       string
	SizeBytes  int64
	UploadedAt time.Time
}

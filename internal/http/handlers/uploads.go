package handlers

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"storyboard-backend/internal/domain"
)

const maxUploadBytes = 512 << 20

var uploadKinds = map[string]map[string]bool{
	"script": {".txt": true, ".md": true, ".html": true, ".htm": true},
	"audio":  {".mp3": true, ".wav": true, ".m4a": true, ".aac": true, ".ogg": true},
	"video":  {".mp4": true, ".mov": true, ".mkv": true, ".webm": true, ".avi": true},
}

// Upload accepts one multipart file and records it for later pipeline use.
// The kind path segment (script, audio, video) gates the accepted extensions.
func (a *App) Upload(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	allowed, ok := uploadKinds[kind]
	if !ok {
		a.json(w, http.StatusNotFound, map[string]string{"error": "unknown upload kind"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		a.json(w, http.StatusBadRequest, map[string]string{"error": "missing file field"})
		return
	}
	defer file.Close()

	filename := filepath.Base(header.Filename)
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowed[ext] {
		a.json(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("unsupported %s extension %q", kind, ext)})
		return
	}

	id := uuid.NewString()
	key := filepath.Join(kind, id+"_"+filename)
	path, size, err := a.Store.WriteFrom(r.Context(), key, file)
	if err != nil {
		a.error(w, r, fmt.Errorf("store upload: %w", err))
		return
	}

	rec := &domain.FileRecord{
		ID:         id,
		Kind:       kind,
		Filename:   filename,
		Path:       path,
		SizeBytes:  size,
		UploadedAt: time.Now().UTC(),
	}
	if err := a.Files.Create(r.Context(), rec); err != nil {
		a.error(w, r, fmt.Errorf("record upload: %w", err))
		return
	}

	a.json(w, http.StatusCreated, map[string]any{
		"file_id":    rec.ID,
		"kind":       rec.Kind,
		"filename":   rec.Filename,
		"size_bytes": rec.SizeBytes,
	})
}

package handlers

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"storyboard-backend/internal/domain"
	"storyboard-backend/pkg/zip"
)

// validPathSegment rejects ids that would alter the path when joined, such
// as "..", so a crafted job id cannot escape the output root.
func validPathSegment(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, `/\`)
}

// DownloadArtifact serves one generated file out of a job's output
// directory. Both path segments are re-rooted under OutputDir so a crafted
// job id or filename cannot escape it.
func (a *App) DownloadArtifact(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	filename := chi.URLParam(r, "filename")
	if !validPathSegment(jobID) {
		a.json(w, http.StatusBadRequest, map[string]string{"error": "invalid job id"})
		return
	}

	root, err := filepath.Abs(a.OutputDir)
	if err != nil {
		a.error(w, r, err)
		return
	}
	full := filepath.Join(root, jobID, filepath.Clean("/"+filename))
	if !strings.HasPrefix(full, filepath.Join(root, jobID)+string(filepath.Separator)) {
		a.json(w, http.StatusBadRequest, map[string]string{"error": "invalid filename"})
		return
	}
	if _, err := os.Stat(full); err != nil {
		a.error(w, r, domain.ErrNotFound)
		return
	}
	http.ServeFile(w, r, full)
}

// DownloadBundle streams a job's whole output directory as one zip.
func (a *App) DownloadBundle(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	job, err := a.Jobs.GetByID(r.Context(), jobID)
	if err != nil {
		a.error(w, r, err)
		return
	}
	if job.Status != domain.JobStatusCompleted {
		a.json(w, http.StatusConflict, map[string]string{"error": "job has no completed result"})
		return
	}
	if !validPathSegment(jobID) {
		a.json(w, http.StatusBadRequest, map[string]string{"error": "invalid job id"})
		return
	}

	root, err := filepath.Abs(a.OutputDir)
	if err != nil {
		a.error(w, r, err)
		return
	}
	jobDir := filepath.Join(root, jobID)
	if _, err := os.Stat(jobDir); err != nil {
		a.error(w, r, domain.ErrNotFound)
		return
	}

	data, err := zip.ArchiveDir(jobDir)
	if err != nil {
		a.error(w, r, fmt.Errorf("archive job output: %w", err))
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", jobID+".zip"))
	_, _ = w.Write(data)
}

// DownloadResult serves a completed job's primary artifact: the final video
// for B-roll jobs, the output directory as a zip for image jobs.
func (a *App) DownloadResult(w http.ResponseWriter, r *http.Request) {
	job, err := a.Jobs.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.error(w, r, err)
		return
	}
	if job.Status != domain.JobStatusCompleted || job.ResultPath == "" {
		a.json(w, http.StatusConflict, map[string]string{"error": "job has no completed result"})
		return
	}

	info, err := os.Stat(job.ResultPath)
	if err != nil {
		a.error(w, r, domain.ErrNotFound)
		return
	}
	if info.IsDir() {
		a.DownloadBundle(w, r)
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(job.ResultPath)))
	http.ServeFile(w, r, job.ResultPath)
}

package server

import (
	"errors"
	"net/http"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/Mohit888790/clipbrain/blob"
	"github.com/Mohit888790/clipbrain/core"
	"github.com/Mohit888790/clipbrain/export"
	"github.com/Mohit888790/clipbrain/intake"
	"github.com/Mohit888790/clipbrain/search"
	"github.com/Mohit888790/clipbrain/source"
	"github.com/Mohit888790/clipbrain/storage"
)

type ingestRequest struct {
	URL string `json:"url" validate:"required"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := s.decode(w, r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}

	receipt, err := s.intake.Submit(r.Context(), req.URL)
	switch {
	case err == nil:
	case errors.Is(err, source.ErrInvalidURL),
		errors.Is(err, source.ErrUnsupportedPlatform),
		errors.Is(err, source.ErrPlatformNotAllowed):
		writeErr(w, http.StatusBadRequest, err)
		return
	case errors.Is(err, intake.ErrEnqueueFailed):
		s.logger.Error("enqueue failed", "err", err)
		writeErr(w, http.StatusServiceUnavailable, errors.New("job queue unavailable"))
		return
	default:
		s.writeInternal(w, r, err)
		return
	}

	code := http.StatusAccepted
	if receipt.Duplicate != intake.NotDuplicate {
		code = http.StatusOK
	}
	writeJSON(w, code, receipt)
}

type jobResponse struct {
	JobID        string          `json:"job_id"`
	Status       core.Status     `json:"status"`
	CurrentStage core.Stage      `json:"current_stage,omitempty"`
	FailReason   core.FailReason `json:"fail_reason,omitempty"`
	Title        string          `json:"title,omitempty"`
	Platform     core.Platform   `json:"platform"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	job, ok := s.loadJob(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, jobResponse{
		JobID:        job.ID,
		Status:       job.Status,
		CurrentStage: job.CurrentStage,
		FailReason:   job.FailReason,
		Title:        job.Title,
		Platform:     job.Platform,
		UpdatedAt:    job.UpdatedAt,
	})
}

type itemResponse struct {
	Video             *core.VideoJob `json:"video"`
	PlayURL           string         `json:"play_url,omitempty"`
	Notes             *core.Notes    `json:"notes,omitempty"`
	TranscriptPreview []export.Chunk `json:"transcript_preview"`
}

func (s *Server) handleItem(w http.ResponseWriter, r *http.Request) {
	job, ok := s.loadJob(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	resp := itemResponse{
		Video:             job,
		PlayURL:           s.playURL(job),
		TranscriptPreview: []export.Chunk{},
	}

	notes, err := s.repos.Notes.GetNotes(ctx, job.ID)
	switch {
	case err == nil:
		resp.Notes = notes
	case !errors.Is(err, storage.ErrNotFound):
		s.writeInternal(w, r, err)
		return
	}

	chunks, err := s.repos.Chunks.ListChunksByVideo(ctx, job.ID)
	if err != nil {
		s.writeInternal(w, r, err)
		return
	}
	for _, c := range chunks[:min(len(chunks), ItemPreviewChunks)] {
		resp.TranscriptPreview = append(resp.TranscriptPreview, export.Chunk{
			VideoID:  c.VideoID,
			StartMs:  c.StartMs,
			EndMs:    c.EndMs,
			Text:     c.Text,
			TextHash: c.TextHash,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

type tagsRequest struct {
	Keywords []string `json:"keywords" validate:"required,max=50,dive,max=100"`
}

func (s *Server) handleTags(w http.ResponseWriter, r *http.Request) {
	job, ok := s.loadJob(w, r)
	if !ok {
		return
	}
	var req tagsRequest
	if err := s.decode(w, r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	keywords := cleanKeywords(req.Keywords)

	ctx := r.Context()
	err := s.repos.Notes.UpdateKeywords(ctx, job.ID, keywords)
	if errors.Is(err, storage.ErrNotFound) {
		// tagging a video whose notes stage produced nothing
		err = s.repos.Notes.SaveNotes(ctx, &core.Notes{VideoID: job.ID, Keywords: keywords})
	}
	if err != nil {
		s.writeInternal(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"video_id": job.ID, "keywords": keywords})
}

// cleanKeywords trims, drops empties and removes case-insensitive
// duplicates while keeping first-seen order.
func cleanKeywords(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, k := range in {
		k = strings.TrimSpace(k)
		key := strings.ToLower(k)
		if k == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, k)
	}
	return out
}

type searchRequest struct {
	Query     string          `json:"q" validate:"required"`
	TopK      int             `json:"top_k" validate:"omitempty,min=1,max=100"`
	Tags      []string        `json:"tags"`
	Platform  core.Platform   `json:"platform"`
	Platforms []core.Platform `json:"platforms"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := s.decode(w, r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	platforms := slices.Clone(req.Platforms)
	if req.Platform != "" {
		platforms = append(platforms, req.Platform)
	}

	results, err := s.searcher.Search(r.Context(), search.Query{
		Text:      req.Query,
		TopK:      req.TopK,
		Tags:      req.Tags,
		Platforms: platforms,
	})
	if errors.Is(err, search.ErrEmptyQuery) {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	if err != nil {
		s.writeInternal(w, r, err)
		return
	}
	if results == nil {
		results = []*core.SearchResult{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"query": req.Query, "results": results})
}

type jumpResponse struct {
	DeepLink      string  `json:"deep_link"`
	SignedPlayURL string  `json:"signed_play_url"`
	StartSeconds  float64 `json:"start_seconds"`
}

func (s *Server) handleJump(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	videoID := q.Get("video_id")
	if videoID == "" {
		writeErr(w, http.StatusBadRequest, errors.New("video_id is required"))
		return
	}
	startMs, err := strconv.ParseInt(q.Get("start_ms"), 10, 64)
	if err != nil || startMs < 0 {
		writeErr(w, http.StatusBadRequest, errors.New("start_ms must be a non-negative integer"))
		return
	}

	job, err := s.repos.Jobs.GetJob(r.Context(), videoID)
	if errors.Is(err, storage.ErrNotFound) {
		writeErr(w, http.StatusNotFound, errors.New("video not found"))
		return
	}
	if err != nil {
		s.writeInternal(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, jumpResponse{
		DeepLink:      search.DeepLink(job.Platform, job.SourceURL, startMs),
		SignedPlayURL: s.playURL(job),
		StartSeconds:  float64(startMs) / 1000,
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(s.now())+`"`)
	if err := export.Write(r.Context(), s.repos, w); err != nil {
		// headers are gone; the truncated archive is the only signal
		s.logger.Error("export failed", "err", err)
	}
}

func (s *Server) handleBlob(w http.ResponseWriter, r *http.Request) {
	objectPath := r.PathValue("path")
	q := r.URL.Query()
	if err := s.media.Verify(objectPath, q.Get("expires"), q.Get("sig")); err != nil {
		writeErr(w, http.StatusForbidden, err)
		return
	}

	f, err := s.media.Open(objectPath)
	switch {
	case errors.Is(err, os.ErrNotExist), errors.Is(err, blob.ErrInvalidPath):
		writeErr(w, http.StatusNotFound, errors.New("object not found"))
		return
	case err != nil:
		s.writeInternal(w, r, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		s.writeInternal(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "private, max-age=300")
	http.ServeContent(w, r, objectPath, info.ModTime(), f)
}

// loadJob answers 404 itself when the path's job does not exist.
func (s *Server) loadJob(w http.ResponseWriter, r *http.Request) (*core.VideoJob, bool) {
	job, err := s.repos.Jobs.GetJob(r.Context(), r.PathValue("id"))
	if errors.Is(err, storage.ErrNotFound) {
		writeErr(w, http.StatusNotFound, errors.New("video not found"))
		return nil, false
	}
	if err != nil {
		s.writeInternal(w, r, err)
		return nil, false
	}
	return job, true
}

// playURL signs the stored media of job, or returns "" when there is none.
func (s *Server) playURL(job *core.VideoJob) string {
	if job.StoragePath == "" {
		return ""
	}
	u, err := s.media.SignedURL(job.StoragePath, s.playTTL)
	if err != nil {
		s.logger.Warn("failed to sign play URL", "job", job.ID, "err", err)
		return ""
	}
	return u
}

package server

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohit888790/clipbrain/blob"
	"github.com/Mohit888790/clipbrain/core"
	"github.com/Mohit888790/clipbrain/export"
	"github.com/Mohit888790/clipbrain/intake"
	"github.com/Mohit888790/clipbrain/ratelimit"
	"github.com/Mohit888790/clipbrain/search"
	"github.com/Mohit888790/clipbrain/source"
	"github.com/Mohit888790/clipbrain/storage"
	"github.com/Mohit888790/clipbrain/storage/badger"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeSubmitter struct {
	receipt *intake.Receipt
	err     error
	got     []string
}

func (f *fakeSubmitter) Submit(_ context.Context, rawURL string) (*intake.Receipt, error) {
	f.got = append(f.got, rawURL)
	return f.receipt, f.err
}

type fakeSearcher struct {
	results []*core.SearchResult
	err     error
	got     search.Query
}

func (f *fakeSearcher) Search(_ context.Context, q search.Query) ([]*core.SearchResult, error) {
	f.got = q
	return f.results, f.err
}

type harness struct {
	handler   http.Handler
	repos     *storage.Repositories
	store     *blob.Store
	submitter *fakeSubmitter
	searcher  *fakeSearcher
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	repos, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	store, err := blob.NewStore(t.TempDir(), "https://clips.test", []byte("secret"),
		blob.WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, err)

	h := &harness{
		repos:     repos,
		store:     store,
		submitter: &fakeSubmitter{},
		searcher:  &fakeSearcher{},
	}
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	srv, err := New(repos, h.submitter, h.searcher, store, opts...)
	require.NoError(t, err)
	h.handler = srv.Handler()
	return h
}

func (h *harness) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	req.RemoteAddr = "192.0.2.10:4000"
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func (h *harness) seedVideo(t *testing.T, withMedia bool) *core.VideoJob {
	t.Helper()
	ctx := context.Background()
	job := &core.VideoJob{
		ID:               "vid-1",
		SourceURL:        "https://www.youtube.com/watch?v=abcdefghijk",
		CanonicalURLHash: "hash-1",
		Platform:         core.PlatformYouTube,
		Status:           core.StatusDone,
		Title:            "Birdhouses",
	}
	if withMedia {
		local := filepath.Join(t.TempDir(), "audio.m4a")
		require.NoError(t, os.WriteFile(local, []byte("0123456789"), 0o644))
		path, err := h.store.Upload(ctx, job.ID, local, "audio/mp4")
		require.NoError(t, err)
		job.StoragePath = path
	}
	require.NoError(t, h.repos.Jobs.CreateJob(ctx, job))
	for i := 0; i < 12; i++ {
		text := fmt.Sprintf("chunk number %d", i)
		require.NoError(t, h.repos.Chunks.SaveChunk(ctx, &core.TranscriptChunk{
			VideoID: job.ID, StartMs: int64(i) * 1000, EndMs: int64(i)*1000 + 900,
			Text: text, Embedding: []float32{1, 0},
		}))
	}
	return job
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestNewRequiresCollaborators(t *testing.T) {
	repos := &storage.Repositories{}
	store, err := blob.NewStore(t.TempDir(), "http://x", []byte("k"))
	require.NoError(t, err)

	_, err = New(nil, &fakeSubmitter{}, &fakeSearcher{}, store)
	assert.ErrorIs(t, err, ErrRepositoriesRequired)
	_, err = New(repos, nil, &fakeSearcher{}, store)
	assert.ErrorIs(t, err, ErrIntakeRequired)
	_, err = New(repos, &fakeSubmitter{}, nil, store)
	assert.ErrorIs(t, err, ErrSearcherRequired)
	_, err = New(repos, &fakeSubmitter{}, &fakeSearcher{}, nil)
	assert.ErrorIs(t, err, ErrMediaStoreRequired)
}

func TestIngest(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		receipt  *intake.Receipt
		err      error
		wantCode int
	}{
		{
			name:     "new job",
			body:     `{"url":"https://youtu.be/abcdefghijk"}`,
			receipt:  &intake.Receipt{JobID: "j1", Status: core.StatusQueued, Platform: core.PlatformYouTube},
			wantCode: http.StatusAccepted,
		},
		{
			name:     "duplicate",
			body:     `{"url":"https://youtu.be/abcdefghijk"}`,
			receipt:  &intake.Receipt{JobID: "j0", Status: core.StatusDone, Duplicate: intake.DuplicateExisting},
			wantCode: http.StatusOK,
		},
		{name: "missing url", body: `{}`, wantCode: http.StatusBadRequest},
		{name: "malformed json", body: `{"url":`, wantCode: http.StatusBadRequest},
		{name: "unsupported platform", body: `{"url":"https://vimeo.com/1"}`, err: source.ErrUnsupportedPlatform, wantCode: http.StatusBadRequest},
		{name: "queue down", body: `{"url":"https://youtu.be/abcdefghijk"}`, err: fmt.Errorf("%w: boom", intake.ErrEnqueueFailed), wantCode: http.StatusServiceUnavailable},
		{name: "storage error", body: `{"url":"https://youtu.be/abcdefghijk"}`, err: errors.New("disk on fire"), wantCode: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.submitter.receipt = tt.receipt
			h.submitter.err = tt.err

			rec := h.do(t, http.MethodPost, "/api/ingest", tt.body)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.receipt != nil && tt.err == nil {
				var got intake.Receipt
				decodeBody(t, rec, &got)
				assert.Equal(t, *tt.receipt, got)
			}
			if tt.wantCode == http.StatusInternalServerError {
				assert.NotContains(t, rec.Body.String(), "disk on fire")
			}
		})
	}
}

func TestIngestRateLimited(t *testing.T) {
	h := newHarness(t, WithRateLimits(ratelimit.New(), 1, 0))
	h.submitter.receipt = &intake.Receipt{JobID: "j1", Status: core.StatusQueued}

	assert.Equal(t, http.StatusAccepted, h.do(t, http.MethodPost, "/api/ingest", `{"url":"https://youtu.be/abcdefghijk"}`).Code)
	assert.Equal(t, http.StatusTooManyRequests, h.do(t, http.MethodPost, "/api/ingest", `{"url":"https://youtu.be/abcdefghijk"}`).Code)
	assert.Len(t, h.submitter.got, 1)
}

func TestJobStatus(t *testing.T) {
	h := newHarness(t)
	h.seedVideo(t, false)

	rec := h.do(t, http.MethodGet, "/api/jobs/vid-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string]any
	decodeBody(t, rec, &got)
	assert.Equal(t, "vid-1", got["job_id"])
	assert.Equal(t, "done", got["status"])
	assert.NotContains(t, got, "fail_reason")

	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodGet, "/api/jobs/missing", "").Code)
}

func TestItem(t *testing.T) {
	h := newHarness(t)
	h.seedVideo(t, true)
	require.NoError(t, h.repos.Notes.SaveNotes(context.Background(), &core.Notes{
		VideoID: "vid-1", Summary: "how to build one", Keywords: []string{"wood"},
	}))

	rec := h.do(t, http.MethodGet, "/api/items/vid-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got itemResponse
	decodeBody(t, rec, &got)

	assert.Equal(t, "Birdhouses", got.Video.Title)
	require.NotNil(t, got.Notes)
	assert.Equal(t, "how to build one", got.Notes.Summary)
	require.Len(t, got.TranscriptPreview, ItemPreviewChunks)
	assert.Equal(t, "chunk number 0", got.TranscriptPreview[0].Text)
	assert.NotContains(t, rec.Body.String(), "embedding")

	u, err := url.Parse(got.PlayURL)
	require.NoError(t, err)
	assert.Equal(t, "/blob/vid-1/original.m4a", u.Path)
	assert.Equal(t, fmt.Sprint(fixedNow.Add(DefaultPlaybackTTL).Unix()), u.Query().Get("expires"))
}

func TestItemWithoutNotesOrMedia(t *testing.T) {
	h := newHarness(t)
	h.seedVideo(t, false)

	rec := h.do(t, http.MethodGet, "/api/items/vid-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string]any
	decodeBody(t, rec, &got)
	assert.NotContains(t, got, "notes")
	assert.NotContains(t, got, "play_url")

	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodGet, "/api/items/nope", "").Code)
}

func TestTags(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.seedVideo(t, false)

	// no notes yet: tagging creates them
	rec := h.do(t, http.MethodPatch, "/api/items/vid-1/tags", `{"keywords":[" Wood ","wood","","glue"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	notes, err := h.repos.Notes.GetNotes(ctx, "vid-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Wood", "glue"}, notes.Keywords)

	rec = h.do(t, http.MethodPatch, "/api/items/vid-1/tags", `{"keywords":["nails"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	notes, err = h.repos.Notes.GetNotes(ctx, "vid-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"nails"}, notes.Keywords)

	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodPatch, "/api/items/nope/tags", `{"keywords":["x"]}`).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(t, http.MethodPatch, "/api/items/vid-1/tags", `{}`).Code)
}

func TestSearch(t *testing.T) {
	h := newHarness(t)
	h.searcher.results = []*core.SearchResult{{VideoID: "vid-1", StartMs: 1000, EndMs: 1900, Text: "chunk number 1", Score: 0.9}}

	rec := h.do(t, http.MethodPost, "/api/search", `{"q":"chunk","top_k":5,"tags":["wood"],"platform":"youtube","platforms":["tiktok"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, search.Query{
		Text:      "chunk",
		TopK:      5,
		Tags:      []string{"wood"},
		Platforms: []core.Platform{core.PlatformTikTok, core.PlatformYouTube},
	}, h.searcher.got)

	var got struct {
		Results []core.SearchResult `json:"results"`
	}
	decodeBody(t, rec, &got)
	require.Len(t, got.Results, 1)
	assert.Equal(t, int64(1000), got.Results[0].StartMs)
}

func TestSearchErrors(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, http.StatusBadRequest, h.do(t, http.MethodPost, "/api/search", `{"q":""}`).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(t, http.MethodPost, "/api/search", `{"q":"x","top_k":500}`).Code)

	h.searcher.err = search.ErrEmptyQuery
	assert.Equal(t, http.StatusBadRequest, h.do(t, http.MethodPost, "/api/search", `{"q":"   "}`).Code)

	h.searcher.err = nil
	rec := h.do(t, http.MethodPost, "/api/search", `{"q":"nothing"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"results":[]`)
}

func TestJump(t *testing.T) {
	h := newHarness(t)
	h.seedVideo(t, true)

	rec := h.do(t, http.MethodGet, "/api/jump?video_id=vid-1&start_ms=61500", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got jumpResponse
	decodeBody(t, rec, &got)
	assert.Equal(t, "https://www.youtube.com/watch?t=61&v=abcdefghijk", got.DeepLink)
	assert.Equal(t, 61.5, got.StartSeconds)
	assert.True(t, strings.HasPrefix(got.SignedPlayURL, "https://clips.test/blob/vid-1/original.m4a?"))

	assert.Equal(t, http.StatusBadRequest, h.do(t, http.MethodGet, "/api/jump?video_id=vid-1&start_ms=abc", "").Code)
	assert.Equal(t, http.StatusBadRequest, h.do(t, http.MethodGet, "/api/jump?start_ms=1", "").Code)
	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodGet, "/api/jump?video_id=nope&start_ms=1", "").Code)
}

func TestExport(t *testing.T) {
	h := newHarness(t)
	h.seedVideo(t, false)

	rec := h.do(t, http.MethodGet, "/api/export", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/zip", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), export.Filename(fixedNow))

	body := rec.Body.Bytes()
	zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	require.NoError(t, err)
	assert.Len(t, zr.File, 4)
}

func TestBlob(t *testing.T) {
	h := newHarness(t)
	job := h.seedVideo(t, true)

	signed, err := h.store.SignedURL(job.StoragePath, time.Minute)
	require.NoError(t, err)
	u, err := url.Parse(signed)
	require.NoError(t, err)

	rec := h.do(t, http.MethodGet, u.RequestURI(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0123456789", rec.Body.String())

	// ranged reads for seeking players
	req := httptest.NewRequest(http.MethodGet, u.RequestURI(), nil)
	req.Header.Set("Range", "bytes=2-4")
	ranged := httptest.NewRecorder()
	h.handler.ServeHTTP(ranged, req)
	assert.Equal(t, http.StatusPartialContent, ranged.Code)
	assert.Equal(t, "234", ranged.Body.String())

	tampered := strings.Replace(u.RequestURI(), "sig=", "sig=00", 1)
	assert.Equal(t, http.StatusForbidden, h.do(t, http.MethodGet, tampered, "").Code)
	assert.Equal(t, http.StatusForbidden, h.do(t, http.MethodGet, "/blob/vid-1/original.m4a", "").Code)
}

func TestBlobMissingObject(t *testing.T) {
	h := newHarness(t)
	signed, err := h.store.SignedURL("vid-9/original.mp4", time.Minute)
	require.NoError(t, err)
	u, err := url.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodGet, u.RequestURI(), "").Code)
}

func TestHealthzAndCORS(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	assert.Equal(t, http.StatusNoContent, h.do(t, http.MethodOptions, "/api/search", "").Code)
}

func TestCleanKeywords(t *testing.T) {
	assert.Equal(t, []string{"A", "b"}, cleanKeywords([]string{" A", "a", "", "b ", "B"}))
	assert.Equal(t, []string{}, cleanKeywords(nil))
}

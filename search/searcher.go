package search

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Mohit888790/clipbrain/ai"
	"github.com/Mohit888790/clipbrain/core"
	"github.com/Mohit888790/clipbrain/storage"
)

const (
	// DefaultTopK is used when a query does not set TopK.
	DefaultTopK = 10

	// MaxTopK bounds TopK.
	MaxTopK = 100

	// DefaultPreviewTTL is the lifetime of signed preview URLs.
	DefaultPreviewTTL = 15 * time.Minute
)

// Query describes one search request. Tags and Platforms filter results
// after ranking; an empty filter matches everything.
type Query struct {
	Text      string
	TopK      int
	Tags      []string
	Platforms []core.Platform
}

// URLSigner issues signed URLs for stored media. Implemented by blob.Store.
type URLSigner interface {
	SignedURL(path string, ttl time.Duration) (string, error)
}

// Searcher provides hybrid vector and keyword search over transcript chunks.
type Searcher struct {
	jobs        storage.JobRepository
	transcripts storage.TranscriptRepository
	notes       storage.NotesRepository
	chunks      storage.ChunkRepository
	embedder    ai.Embedder
	signer      URLSigner
	previewTTL  time.Duration
	logger      *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithURLSigner enables preview URLs on results.
func WithURLSigner(signer URLSigner, ttl time.Duration) Option {
	return func(s *Searcher) error {
		if ttl <= 0 {
			ttl = DefaultPreviewTTL
		}
		s.signer = signer
		s.previewTTL = ttl
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(repos *storage.Repositories, provider ai.AIProvider, opts ...Option) (*Searcher, error) {
	if repos == nil || repos.Jobs == nil || repos.Transcripts == nil || repos.Notes == nil || repos.Chunks == nil {
		return nil, ErrRepositoriesRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	s := &Searcher{
		jobs:        repos.Jobs,
		transcripts: repos.Transcripts,
		notes:       repos.Notes,
		chunks:      repos.Chunks,
		embedder:    provider.Embedder(),
		previewTTL:  DefaultPreviewTTL,
		logger:      slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "searcher")

	return s, nil
}

// Search returns up to q.TopK ranked spans for q.Text.
func (s *Searcher) Search(ctx context.Context, q Query) ([]*core.SearchResult, error) {
	return s.SearchWithMonitor(ctx, q, nil)
}

// SearchWithMonitor is Search with callbacks at each step.
func (s *Searcher) SearchWithMonitor(ctx context.Context, q Query, monitor SearchMonitor) ([]*core.SearchResult, error) {
	// Use noop monitor if none provided
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	q.Text = strings.TrimSpace(q.Text)
	if q.Text == "" {
		return nil, ErrEmptyQuery
	}
	if q.TopK <= 0 {
		q.TopK = DefaultTopK
	}
	q.TopK = min(q.TopK, MaxTopK)
	monitor.Start(q)

	// 1. Run both passes; only the keyword pass can fail the search
	var vectorHits, keywordHits []Hit
	var vectorErr error
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		vectorHits, vectorErr = s.vectorPass(gctx, q.Text)
		if vectorErr != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		return nil
	})
	g.Go(func() error {
		hits, err := s.keywordPass(gctx, q.Text)
		if err != nil {
			return err
		}
		keywordHits = hits
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("search failed", "query", q.Text, "err", err)
		return nil, err
	}
	if vectorErr != nil {
		s.logger.Warn("vector pass unavailable, using keyword results only", "err", vectorErr)
	}
	// Monitors are only called from this goroutine.
	monitor.AfterVectorPass(vectorHits, vectorErr)
	monitor.AfterKeywordPass(keywordHits)

	// 2. Normalize each pass and merge
	merged := merge(normalize(vectorHits), normalize(keywordHits))
	monitor.AfterMerge(merged)

	// 3. Filter on video attributes, then group and rank
	videos := newVideoCache(s.jobs, s.notes)
	kept := merged[:0]
	for _, h := range merged {
		v, err := videos.get(ctx, h.VideoID)
		if err != nil {
			return nil, err
		}
		if reason := rejectReason(v, q); reason != "" {
			monitor.Filtered(h.VideoID, reason)
			continue
		}
		kept = append(kept, h)
	}
	ranked := groupByVideo(kept, MaxPerVideo, q.TopK)

	// 4. Decorate
	results := make([]*core.SearchResult, 0, len(ranked))
	for _, h := range ranked {
		v, _ := videos.get(ctx, h.VideoID)
		results = append(results, s.decorate(h, v))
	}
	monitor.Finish(results)

	return results, nil
}

// vectorPass embeds the query and scans every stored chunk.
func (s *Searcher) vectorPass(ctx context.Context, query string) ([]Hit, error) {
	if s.embedder == nil {
		return nil, errors.New("no embedder configured")
	}
	embedding, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(embedding) == 0 {
		return nil, errors.New("empty query embedding")
	}

	matches, err := s.chunks.FindSimilar(ctx, embedding, PassLimit)
	if err != nil {
		return nil, err
	}
	hits := make([]Hit, 0, len(matches))
	for _, m := range matches {
		hits = append(hits, Hit{
			VideoID: m.Chunk.VideoID,
			StartMs: m.Chunk.StartMs,
			EndMs:   m.Chunk.EndMs,
			Text:    m.Chunk.Text,
			Score:   float64(m.Score),
			Source:  SourceVector,
		})
	}
	return hits, nil
}

// keywordPass scores each transcript by occurrence count and anchors the
// hit on the first chunk containing the query.
func (s *Searcher) keywordPass(ctx context.Context, query string) ([]Hit, error) {
	var hits []Hit
	err := s.transcripts.ForEachTranscript(ctx, func(t *core.Transcript) error {
		count, snippet := matchText(t.FullText, query)
		if count == 0 {
			return nil
		}
		hits = append(hits, Hit{
			VideoID: t.VideoID,
			Text:    snippet,
			Score:   min(1.0, float64(count)/10),
			Source:  SourceKeyword,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	hits = topHits(hits, PassLimit)
	for i := range hits {
		chunks, err := s.chunks.ListChunksByVideo(ctx, hits[i].VideoID)
		if err != nil {
			return nil, err
		}
		for _, c := range chunks {
			if containsFold(c.Text, query) {
				hits[i].StartMs, hits[i].EndMs = c.StartMs, c.EndMs
				break
			}
		}
	}
	return hits, nil
}

func (s *Searcher) decorate(h Hit, v *video) *core.SearchResult {
	r := &core.SearchResult{
		VideoID: h.VideoID,
		StartMs: h.StartMs,
		EndMs:   h.EndMs,
		Text:    h.Text,
		Score:   h.Score,
	}
	if v.job != nil {
		r.Title = v.job.Title
		r.Platform = v.job.Platform
		r.SourceURL = v.job.SourceURL
		r.DeepLink = DeepLink(v.job.Platform, v.job.SourceURL, h.StartMs)

		if s.signer != nil && v.job.StoragePath != "" {
			signed, err := s.signer.SignedURL(v.job.StoragePath, s.previewTTL)
			if err != nil {
				s.logger.Debug("preview url unavailable", "video", h.VideoID, "err", err)
			} else {
				r.PreviewURL = signed + mediaFragment(h.StartMs, h.EndMs)
			}
		}
	}
	if v.notes != nil {
		r.ChapterTitle = ChapterAt(v.notes.Chapters, h.StartMs)
		r.Tags = v.notes.Keywords
	}
	return r
}

// rejectReason returns why a video fails the query filters, or "".
func rejectReason(v *video, q Query) string {
	if len(q.Platforms) > 0 {
		if v.job == nil || !slices.Contains(q.Platforms, v.job.Platform) {
			return "platform"
		}
	}
	if len(q.Tags) > 0 {
		if v.notes == nil || !hasAnyTag(v.notes.Keywords, q.Tags) {
			return "tags"
		}
	}
	return ""
}

func hasAnyTag(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if strings.EqualFold(strings.TrimSpace(h), strings.TrimSpace(w)) {
				return true
			}
		}
	}
	return false
}

// video holds the records a result is decorated from. Either may be nil.
type video struct {
	job   *core.VideoJob
	notes *core.Notes
}

// videoCache loads each video's records once per search.
type videoCache struct {
	jobs  storage.JobRepository
	notes storage.NotesRepository
	byID  map[string]*video
}

func newVideoCache(jobs storage.JobRepository, notes storage.NotesRepository) *videoCache {
	return &videoCache{jobs: jobs, notes: notes, byID: make(map[string]*video)}
}

func (c *videoCache) get(ctx context.Context, id string) (*video, error) {
	if v, ok := c.byID[id]; ok {
		return v, nil
	}
	v := &video{}
	job, err := c.jobs.GetJob(ctx, id)
	switch {
	case err == nil:
		v.job = job
	case !errors.Is(err, storage.ErrNotFound):
		return nil, err
	}
	notes, err := c.notes.GetNotes(ctx, id)
	switch {
	case err == nil:
		v.notes = notes
	case !errors.Is(err, storage.ErrNotFound):
		return nil, err
	}
	c.byID[id] = v
	return v, nil
}

package search

import (
	"cmp"
	"math"
	"slices"
)

const (
	// PassLimit is the number of candidates each pass keeps.
	PassLimit = 50

	// VectorWeight and KeywordWeight combine the normalized pass scores.
	VectorWeight  = 0.6
	KeywordWeight = 0.4

	// MaxPerVideo caps how many spans of one video a result page holds.
	MaxPerVideo = 3
)

// Source identifies the pass that produced a hit.
type Source string

const (
	SourceVector  Source = "vector"
	SourceKeyword Source = "text"
)

// Hit is a scored candidate span.
type Hit struct {
	VideoID string
	StartMs int64
	EndMs   int64
	Text    string
	Score   float64
	Source  Source
}

type hitKey struct {
	videoID string
	startMs int64
}

// byScore orders hits by descending score, then by video and start for
// deterministic output.
func byScore(a, b Hit) int {
	if c := cmp.Compare(b.Score, a.Score); c != 0 {
		return c
	}
	if c := cmp.Compare(a.VideoID, b.VideoID); c != 0 {
		return c
	}
	return cmp.Compare(a.StartMs, b.StartMs)
}

// topHits sorts hits and keeps the first limit.
func topHits(hits []Hit, limit int) []Hit {
	slices.SortStableFunc(hits, byScore)
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

// normalize rescales scores to [0,1] with min-max. When every score is the
// same they all become 1. A NaN or infinite score counts as 0.
func normalize(hits []Hit) []Hit {
	if len(hits) == 0 {
		return hits
	}
	out := make([]Hit, len(hits))
	for i, h := range hits {
		if math.IsNaN(h.Score) || math.IsInf(h.Score, 0) {
			h.Score = 0
		}
		out[i] = h
	}
	lo, hi := out[0].Score, out[0].Score
	for _, h := range out[1:] {
		lo = min(lo, h.Score)
		hi = max(hi, h.Score)
	}
	for i, h := range out {
		if hi == lo {
			h.Score = 1
		} else {
			h.Score = (h.Score - lo) / (hi - lo)
		}
		out[i] = h
	}
	return out
}

// merge combines normalized passes by (video, start). Scores add when both
// passes hit the same span; the vector pass supplies text and end time.
func merge(vector, keyword []Hit) []Hit {
	merged := make(map[hitKey]*Hit, len(vector)+len(keyword))
	order := make([]hitKey, 0, len(vector)+len(keyword))

	add := func(h Hit, weight float64) {
		key := hitKey{h.VideoID, h.StartMs}
		if existing, ok := merged[key]; ok {
			existing.Score += weight * h.Score
			return
		}
		h.Score *= weight
		merged[key] = &h
		order = append(order, key)
	}
	for _, h := range vector {
		add(h, VectorWeight)
	}
	for _, h := range keyword {
		add(h, KeywordWeight)
	}

	out := make([]Hit, 0, len(order))
	for _, key := range order {
		out = append(out, *merged[key])
	}
	return out
}

// groupByVideo keeps at most perVideo hits per video, highest first, then
// returns the first topK overall.
func groupByVideo(hits []Hit, perVideo, topK int) []Hit {
	slices.SortStableFunc(hits, byScore)
	counts := make(map[string]int)
	out := make([]Hit, 0, min(len(hits), topK))
	for _, h := range hits {
		if counts[h.VideoID] >= perVideo {
			continue
		}
		counts[h.VideoID]++
		out = append(out, h)
		if len(out) == topK {
			break
		}
	}
	return out
}

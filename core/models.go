package core

import (
	"encoding/hex"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// Status is the lifecycle state of a VideoJob.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusFailed     Status = "failed"
)

// Stage is the pipeline step a processing job is currently in.
// StageNone marks jobs that are not being processed.
type Stage string

const (
	StageNone       Stage = ""
	StageDownload   Stage = "download"
	StageUpload     Stage = "upload"
	StageTranscribe Stage = "transcribe"
	StageNotes      Stage = "notes"
	StageEmbeddings Stage = "embeddings"
	StagePreviews   Stage = "previews"
)

// FailReason is the error code recorded on a failed job.
type FailReason string

const (
	FailNone                FailReason = ""
	FailRestrictedContent   FailReason = "RESTRICTED_CONTENT_UNSUPPORTED"
	FailNotFoundOrRemoved   FailReason = "NOT_FOUND_OR_REMOVED"
	FailPlatformBlocked     FailReason = "PLATFORM_BLOCKED_TEMPORARILY"
	FailUnsupportedPlatform FailReason = "UNSUPPORTED_PLATFORM"
	FailDownload            FailReason = "DOWNLOAD_FAILED"
	FailStorage             FailReason = "STORAGE_FAILED"
	FailTranscription       FailReason = "TRANSCRIPTION_FAILED"
	FailPipelineInterrupted FailReason = "PIPELINE_INTERRUPTED"
)

// Platform identifies the site a video was ingested from.
type Platform string

const (
	PlatformYouTube   Platform = "youtube"
	PlatformInstagram Platform = "instagram"
	PlatformTikTok    Platform = "tiktok"
	PlatformFacebook  Platform = "facebook"
)

// VideoJob is the persisted record of one ingestion request.
// Title, DurationSeconds and Language are filled in opportunistically.
type VideoJob struct {
	ID               string     `json:"id"`
	SourceURL        string     `json:"source_url"`
	CanonicalURLHash string     `json:"canonical_url_hash"`
	Platform         Platform   `json:"platform"`
	Status           Status     `json:"status"`
	CurrentStage     Stage      `json:"current_stage,omitempty"`
	FailReason       FailReason `json:"fail_reason,omitempty"`
	Title            string     `json:"title,omitempty"`
	DurationSeconds  float64    `json:"duration_seconds,omitempty"`
	Language         string     `json:"language,omitempty"`
	StoragePath      string     `json:"storage_path,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// State returns the combined (status, stage) state of the job.
func (j *VideoJob) State() JobState {
	return StateOf(j.Status, j.CurrentStage)
}

// WordTimestamp is one transcribed word with its time span in milliseconds.
type WordTimestamp struct {
	Word    string `json:"word"`
	StartMs int64  `json:"start_ms"`
	EndMs   int64  `json:"end_ms"`
}

// TranscriptChunk is a time-windowed transcript segment, the unit of
// embedding and retrieval. Embedding is nil when none could be obtained.
type TranscriptChunk struct {
	VideoID   string    `json:"video_id"`
	StartMs   int64     `json:"start_ms"`
	EndMs     int64     `json:"end_ms"`
	Text      string    `json:"text"`
	TextHash  string    `json:"text_hash"`
	Embedding []float32 `json:"embedding,omitempty"`
}

// Transcript is the full text of a video as returned by transcription.
type Transcript struct {
	VideoID   string    `json:"video_id"`
	FullText  string    `json:"full_text"`
	Language  string    `json:"language,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Chapter marks a titled section of a video.
type Chapter struct {
	Title   string `json:"title"`
	StartMs int64  `json:"start_ms"`
}

// Quote is a notable line from the transcript.
type Quote struct {
	Text    string `json:"text"`
	StartMs int64  `json:"start_ms"`
}

// Entities groups named things mentioned in a video.
type Entities struct {
	People []string `json:"people"`
	Tools  []string `json:"tools"`
	URLs   []string `json:"urls"`
}

// Notes is the structured summary produced by the notes stage.
// RawText holds the provider output when it could not be parsed.
type Notes struct {
	VideoID   string    `json:"video_id"`
	Summary   string    `json:"summary"`
	Keywords  []string  `json:"keywords"`
	Chapters  []Chapter `json:"chapters"`
	Insights  []string  `json:"insights"`
	Steps     []string  `json:"steps"`
	Quotes    []Quote   `json:"quotes"`
	Entities  Entities  `json:"entities"`
	RawText   string    `json:"raw_text,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ScoredChunk pairs a chunk with a similarity score.
type ScoredChunk struct {
	Chunk *TranscriptChunk
	Score float32
}

// SearchResult is one ranked span returned by the hybrid ranker.
type SearchResult struct {
	VideoID      string   `json:"video_id"`
	StartMs      int64    `json:"start_ms"`
	EndMs        int64    `json:"end_ms"`
	Text         string   `json:"text"`
	Score        float64  `json:"score"`
	Title        string   `json:"title,omitempty"`
	Platform     Platform `json:"platform,omitempty"`
	SourceURL    string   `json:"source_url,omitempty"`
	DeepLink     string   `json:"deep_link,omitempty"`
	PreviewURL   string   `json:"preview_url,omitempty"`
	ChapterTitle string   `json:"chapter_title,omitempty"`
	Tags         []string `json:"tags,omitempty"`
}

// NormalizeText lower-cases text and collapses whitespace runs to one space.
func NormalizeText(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// HashText returns the hex BLAKE2b-256 digest of the normalized text.
// Texts differing only in case or spacing hash identically.
func HashText(text string) string {
	return HashBytes([]byte(NormalizeText(text)))
}

// HashBytes returns the hex BLAKE2b-256 digest of data.
func HashBytes(data []byte) string {
	h, _ := blake2b.New(32, nil)
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

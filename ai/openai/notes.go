// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Mohit888790/clipbrain/ai"
	"github.com/Mohit888790/clipbrain/core"
	"github.com/Mohit888790/clipbrain/retry"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const (
	notesAttempts    = 2
	notesTemperature = 0.3
	notesMaxTokens   = 2048
)

var (
	// ErrNoChoices indicates the model returned an empty response.
	ErrNoChoices = errors.New("no choices returned from model")

	// ErrMalformedNotes indicates the model output was not valid notes JSON.
	ErrMalformedNotes = errors.New("malformed notes response")
)

// NotesGenerator implements ai.NotesGenerator using OpenAI-compatible chat APIs.
type NotesGenerator struct {
	client     llms.Model
	retryDelay time.Duration
	logger     *slog.Logger
}

// notesPayload mirrors the JSON requested in the prompt.
type notesPayload struct {
	Summary  string         `json:"summary"`
	Keywords []string       `json:"keywords"`
	Chapters []core.Chapter `json:"chapters"`
	Insights []string       `json:"insights"`
	Steps    []string       `json:"steps"`
	Quotes   []core.Quote   `json:"quotes"`
	Entities core.Entities  `json:"entities"`
}

// newNotesGenerator is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newNotesGenerator(config *ai.Config) (*NotesGenerator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.NotesHost),
		openai.WithToken(config.APIKey),
		openai.WithModel(config.NotesModel),
	)
	if err != nil {
		return nil, err
	}

	return newNotesGeneratorWithModel(client, config.NotesRetryDelay), nil
}

func newNotesGeneratorWithModel(client llms.Model, retryDelay time.Duration) *NotesGenerator {
	return &NotesGenerator{
		client:     client,
		retryDelay: retryDelay,
		logger:     slog.Default().With("component", "openai-notes"),
	}
}

// NewNotesGenerator creates a new notes generator using the provided configuration.
//
// Returns ai.NotesGenerator interface to enforce abstraction.
func NewNotesGenerator(config *ai.Config) (ai.NotesGenerator, error) {
	return newNotesGenerator(config)
}

// GenerateNotes asks the model for structured notes, retrying once after
// retryDelay with a stricter instruction when the call fails or the output
// does not parse.
func (g *NotesGenerator) GenerateNotes(ctx context.Context, transcript string, durationSeconds float64) (*ai.NotesResult, error) {
	systemPrompt := buildNotesPrompt(durationSeconds >= ai.ChapterMinDurationSeconds)

	attempt := 0
	var rawText string
	payload, err := retry.Do(ctx, notesAttempts, g.retryDelay, func(ctx context.Context) (*notesPayload, error) {
		attempt++
		text, err := g.complete(ctx, systemPrompt, buildUserMessage(transcript, attempt > 1))
		if err != nil {
			g.logger.Warn("notes generation failed", "attempt", attempt, "err", err)
			return nil, err
		}
		rawText = text
		parsed, err := parseNotes(text)
		if err != nil {
			g.logger.Warn("error parsing notes response", "attempt", attempt, "err", err)
			return nil, err
		}
		return parsed, nil
	}, retry.WithLogger(g.logger))

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		g.logger.Error("notes unavailable after retries", "attempts", attempt, "err", err)
		return &ai.NotesResult{Parsed: false, RawText: rawText, Err: err}, nil
	}

	return &ai.NotesResult{
		Parsed: true,
		Notes: core.Notes{
			Summary:  payload.Summary,
			Keywords: payload.Keywords,
			Chapters: payload.Chapters,
			Insights: payload.Insights,
			Steps:    payload.Steps,
			Quotes:   payload.Quotes,
			Entities: payload.Entities,
		},
	}, nil
}

func (g *NotesGenerator) complete(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(systemPrompt)},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(userMessage)},
		},
	}

	response, err := g.client.GenerateContent(ctx, content,
		llms.WithTemperature(notesTemperature),
		llms.WithMaxTokens(notesMaxTokens),
		llms.WithJSONMode(),
	)
	if err != nil {
		return "", err
	}
	if len(response.Choices) < 1 {
		return "", ErrNoChoices
	}
	return response.Choices[0].Content, nil
}

// parseNotes strips fences, repairs common key-quoting mistakes and decodes.
func parseNotes(text string) (*notesPayload, error) {
	cleaned := repairJSON(stripCodeFences(text))
	var payload notesPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedNotes, err)
	}
	return &payload, nil
}

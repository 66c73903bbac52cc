// Package transcribe calls the Deepgram pre-recorded API and converts its
// response into word timestamps.
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Mohit888790/clipbrain/core"
)

const (
	// DefaultEndpoint is the Deepgram pre-recorded transcription endpoint.
	DefaultEndpoint = "https://api.deepgram.com/v1/listen"

	// DefaultModel is the Deepgram model used when none is configured.
	DefaultModel = "nova-2"

	// DefaultTimeout bounds a single transcription request.
	DefaultTimeout = 300 * time.Second

	maxErrorBody = 500
)

// ErrAPIKeyRequired indicates a client created without credentials.
var ErrAPIKeyRequired = errors.New("deepgram api key is required")

// Result is the outcome of one transcription call. When Success is false
// only Message is meaningful.
type Result struct {
	Success  bool
	FullText string
	Words    []core.WordTimestamp
	Language string
	Message  string
}

// Client is a Deepgram transcription client.
type Client struct {
	apiKey   string
	endpoint string
	model    string
	http     *http.Client
	logger   *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint overrides the API endpoint.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		c.endpoint = endpoint
	}
}

// WithModel sets the Deepgram model.
func WithModel(model string) Option {
	return func(c *Client) {
		c.model = model
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.http = client
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a Deepgram client.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrAPIKeyRequired
	}
	c := &Client{
		apiKey:   apiKey,
		endpoint: DefaultEndpoint,
		model:    DefaultModel,
		http:     &http.Client{Timeout: DefaultTimeout},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "transcribe")
	return c, nil
}

type listenResponse struct {
	Results *struct {
		Channels []struct {
			DetectedLanguage string `json:"detected_language"`
			Alternatives     []struct {
				Transcript string `json:"transcript"`
				Words      []struct {
					Word           string  `json:"word"`
					PunctuatedWord string  `json:"punctuated_word"`
					Start          float64 `json:"start"`
					End            float64 `json:"end"`
				} `json:"words"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

// Transcribe submits a media URL for transcription. Provider and transport
// failures are reported through Result; the error return is reserved for
// context cancellation.
func (c *Client) Transcribe(ctx context.Context, mediaURL string) (*Result, error) {
	payload, err := json.Marshal(map[string]string{"url": mediaURL})
	if err != nil {
		return failure("encode request: %v", err), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.requestURL(), bytes.NewReader(payload))
	if err != nil {
		return failure("build request: %v", err), nil
	}
	req.Header.Set("Authorization", "Token "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return failure("deepgram request failed: %v", err), nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return failure("read response: %v", err), nil
	}
	if resp.StatusCode >= 300 {
		text := string(body)
		if len(text) > maxErrorBody {
			text = text[:maxErrorBody]
		}
		return failure("deepgram error %d: %s", resp.StatusCode, text), nil
	}

	result := parseResponse(body)
	c.logger.Debug("transcription finished",
		"success", result.Success,
		"words", len(result.Words),
		"duration", time.Since(start))
	return result, nil
}

func (c *Client) requestURL() string {
	q := url.Values{}
	q.Set("model", c.model)
	q.Set("smart_format", "true")
	q.Set("punctuate", "true")
	q.Set("utterances", "true")
	q.Set("diarize", "false")
	return c.endpoint + "?" + q.Encode()
}

func parseResponse(body []byte) *Result {
	var parsed listenResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return failure("decode response: %v", err)
	}
	if parsed.Results == nil || len(parsed.Results.Channels) == 0 {
		return failure("response has no channels")
	}
	channel := parsed.Results.Channels[0]
	if len(channel.Alternatives) == 0 {
		return failure("response has no alternatives")
	}
	alt := channel.Alternatives[0]

	words := make([]core.WordTimestamp, 0, len(alt.Words))
	for _, w := range alt.Words {
		text := w.PunctuatedWord
		if text == "" {
			text = w.Word
		}
		if text == "" {
			continue
		}
		words = append(words, core.WordTimestamp{
			Word:    text,
			StartMs: secondsToMs(w.Start),
			EndMs:   secondsToMs(w.End),
		})
	}

	// Silent media yields an empty, successful result.
	return &Result{
		Success:  true,
		FullText: strings.TrimSpace(alt.Transcript),
		Words:    words,
		Language: channel.DetectedLanguage,
	}
}

func secondsToMs(s float64) int64 {
	return int64(math.Round(s * 1000))
}

func failure(format string, args ...any) *Result {
	return &Result{Success: false, Message: fmt.Sprintf(format, args...)}
}

package openai

import (
	"fmt"
	"strings"

	"github.com/Mohit888790/clipbrain/ai"
)

const chaptersField = `
  "chapters": [{"title": "string", "start_ms": number}],`

const chaptersRule = `
- chapters: Major sections with titles and start times in milliseconds`

const notesPromptTemplate = `Extract structured information from this video transcript.
Return ONLY valid JSON with this exact schema:
{
  "summary": "string (8-10 lines max)",
  "keywords": ["string"] (%d max),%s
  "insights": ["string"],
  "steps": ["string"],
  "quotes": [{"text": "string", "start_ms": number}],
  "entities": {"people": [], "tools": [], "urls": []}
}

Rules:
- summary: Concise overview, 8-10 lines maximum
- keywords: Most important tags/topics, %d maximum
- insights: Key takeaways or learnings
- steps: If tutorial/how-to, list steps in order
- quotes: Notable quotes with approximate timestamp in milliseconds
- entities: Extract people names, tools/technologies mentioned, and URLs%s

Return ONLY the JSON object, no markdown formatting.`

// retryInstruction is appended to the user message on the second attempt.
const retryInstruction = "\n\nIMPORTANT: Return ONLY valid JSON, no markdown code blocks."

// buildNotesPrompt creates the system prompt. Chapters are requested only
// when includeChapters is set.
func buildNotesPrompt(includeChapters bool) string {
	field, rule := "", ""
	if includeChapters {
		field, rule = chaptersField, chaptersRule
	}
	return fmt.Sprintf(notesPromptTemplate, ai.MaxKeywords, field, ai.MaxKeywords, rule)
}

// buildUserMessage wraps the (truncated) transcript.
func buildUserMessage(transcript string, isRetry bool) string {
	var sb strings.Builder
	sb.WriteString("Transcript:\n\n")
	sb.WriteString(truncateTranscript(transcript, ai.MaxTranscriptChars))
	if isRetry {
		sb.WriteString(retryInstruction)
	}
	return sb.String()
}

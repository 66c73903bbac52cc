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

package core

import (
	"fmt"
)

// ValidateJob validates a VideoJob according to domain rules.
//
// Validation rules:
//   - ID must not be empty
//   - (Status, CurrentStage) must be a pair the pipeline writes
//   - failed jobs carry a FailReason, other jobs do not
//
// NOT validated (filled in opportunistically):
//   - Title, DurationSeconds, Language, StoragePath
func ValidateJob(job *VideoJob) error {
	if job == nil {
		return fmt.Errorf("%w: job is nil", ErrInvalidJob)
	}

	if job.ID == "" {
		return fmt.Errorf("%w: id is empty", ErrInvalidJob)
	}

	if job.State() == StateUnknown {
		return fmt.Errorf("%w: %w: status=%q stage=%q", ErrInvalidJob, ErrInvalidState, job.Status, job.CurrentStage)
	}

	if job.Status == StatusFailed && job.FailReason == FailNone {
		return fmt.Errorf("%w: %w", ErrInvalidJob, ErrMissingFailReason)
	}

	if job.Status != StatusFailed && job.FailReason != FailNone {
		return fmt.Errorf("%w: %w", ErrInvalidJob, ErrUnexpectedFailReason)
	}

	return nil
}

// ValidateChunk validates a TranscriptChunk according to domain rules.
//
// Validation rules:
//   - VideoID and Text must not be empty
//   - StartMs must be before EndMs
//
// NOT validated:
//   - Embedding (nil when the provider call failed)
func ValidateChunk(chunk *TranscriptChunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}

	if chunk.VideoID == "" {
		return fmt.Errorf("%w: video id is empty", ErrInvalidChunk)
	}

	if chunk.Text == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyContent)
	}

	if chunk.StartMs >= chunk.EndMs {
		return fmt.Errorf("%w: %w: [%d, %d]", ErrInvalidChunk, ErrInvalidSpan, chunk.StartMs, chunk.EndMs)
	}

	return nil
}

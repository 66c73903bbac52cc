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

import "errors"

// Domain validation errors
var (
	// ErrInvalidJob indicates a VideoJob failed validation.
	ErrInvalidJob = errors.New("invalid video job")

	// ErrInvalidChunk indicates a TranscriptChunk failed validation.
	ErrInvalidChunk = errors.New("invalid transcript chunk")

	// ErrInvalidState indicates a (status, stage) pair the pipeline never writes.
	ErrInvalidState = errors.New("invalid job state")

	// ErrMissingFailReason indicates a failed job without a reason code.
	ErrMissingFailReason = errors.New("failed job requires a fail reason")

	// ErrUnexpectedFailReason indicates a fail reason on a job that has not failed.
	ErrUnexpectedFailReason = errors.New("fail reason set on non-failed job")

	// ErrEmptyContent indicates the chunk text is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrInvalidSpan indicates a chunk whose start is not before its end.
	ErrInvalidSpan = errors.New("start must be before end")

	// ErrInvalidTransition indicates a state change the pipeline does not allow.
	ErrInvalidTransition = errors.New("invalid state transition")
)

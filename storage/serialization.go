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

package storage

import (
	"encoding/json"
	"fmt"

	"github.com/Mohit888790/clipbrain/core"
)

// Marshal serializes a record to bytes.
func Marshal[T any](record *T) ([]byte, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return data, nil
}

// Unmarshal deserializes a record from bytes.
func Unmarshal[T any](data []byte) (*T, error) {
	var record T
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &record, nil
}

// MarshalJob serializes a VideoJob to bytes.
func MarshalJob(job *core.VideoJob) ([]byte, error) {
	return Marshal(job)
}

// UnmarshalJob deserializes a VideoJob from bytes.
func UnmarshalJob(data []byte) (*core.VideoJob, error) {
	return Unmarshal[core.VideoJob](data)
}

// MarshalChunk serializes a TranscriptChunk to bytes.
func MarshalChunk(chunk *core.TranscriptChunk) ([]byte, error) {
	return Marshal(chunk)
}

// UnmarshalChunk deserializes a TranscriptChunk from bytes.
func UnmarshalChunk(data []byte) (*core.TranscriptChunk, error) {
	return Unmarshal[core.TranscriptChunk](data)
}

// MarshalTranscript serializes a Transcript to bytes.
func MarshalTranscript(transcript *core.Transcript) ([]byte, error) {
	return Marshal(transcript)
}

// UnmarshalTranscript deserializes a Transcript from bytes.
func UnmarshalTranscript(data []byte) (*core.Transcript, error) {
	return Unmarshal[core.Transcript](data)
}

// MarshalNotes serializes Notes to bytes.
func MarshalNotes(notes *core.Notes) ([]byte, error) {
	return Marshal(notes)
}

// UnmarshalNotes deserializes Notes from bytes.
func UnmarshalNotes(data []byte) (*core.Notes, error) {
	return Unmarshal[core.Notes](data)
}

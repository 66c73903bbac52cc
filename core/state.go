package core

// JobState is the combined (status, current stage) of a job as seen by an observer.
type JobState string

const (
	StateUnknown         JobState = "unknown"
	StateQueued          JobState = "queued"
	StateDownloading     JobState = "downloading"
	StateUploading       JobState = "uploading"
	StateTranscribing    JobState = "transcribing"
	StateGeneratingNotes JobState = "generating_notes"
	StateEmbedding       JobState = "embedding"
	StatePreviewing      JobState = "previewing"
	StateDone            JobState = "done"
	StateFailed          JobState = "failed"
)

var stageStates = map[Stage]JobState{
	StageDownload:   StateDownloading,
	StageUpload:     StateUploading,
	StageTranscribe: StateTranscribing,
	StageNotes:      StateGeneratingNotes,
	StageEmbeddings: StateEmbedding,
	StagePreviews:   StatePreviewing,
}

// StateOf maps a persisted (status, stage) pair to a JobState.
// Pairs that can never be written by the pipeline map to StateUnknown.
func StateOf(status Status, stage Stage) JobState {
	switch status {
	case StatusQueued:
		if stage == StageNone {
			return StateQueued
		}
	case StatusProcessing:
		if s, ok := stageStates[stage]; ok {
			return s
		}
	case StatusDone:
		if stage == StageNone {
			return StateDone
		}
	case StatusFailed:
		if stage == StageNone {
			return StateFailed
		}
	}
	return StateUnknown
}

// Fields returns the (status, stage) pair persisted for the state.
func (s JobState) Fields() (Status, Stage) {
	switch s {
	case StateQueued:
		return StatusQueued, StageNone
	case StateDone:
		return StatusDone, StageNone
	case StateFailed:
		return StatusFailed, StageNone
	}
	for stage, state := range stageStates {
		if state == s {
			return StatusProcessing, stage
		}
	}
	return "", StageNone
}

// IsTerminal reports whether no further transition is possible.
func (s JobState) IsTerminal() bool {
	return s == StateDone || s == StateFailed
}

// CanTransition reports whether the pipeline may move a job from one state to another.
// Stages only move forward one step at a time. Any non-terminal state may fail.
func CanTransition(from, to JobState) bool {
	if from.IsTerminal() || from == StateUnknown {
		return false
	}
	if to == StateFailed {
		return true
	}
	switch from {
	case StateQueued:
		return to == StateDownloading
	case StateDownloading:
		return to == StateUploading
	case StateUploading:
		return to == StateTranscribing
	case StateTranscribing:
		return to == StateGeneratingNotes
	case StateGeneratingNotes:
		return to == StateEmbedding
	case StateEmbedding:
		return to == StatePreviewing || to == StateDone
	case StatePreviewing:
		return to == StateDone
	}
	return false
}

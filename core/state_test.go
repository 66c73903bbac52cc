package core

import "testing"

func TestCanTransition_ForwardOrder(t *testing.T) {
	order := []JobState{
		StateQueued,
		StateDownloading,
		StateUploading,
		StateTranscribing,
		StateGeneratingNotes,
		StateEmbedding,
		StateDone,
	}
	for i := 0; i < len(order)-1; i++ {
		if !CanTransition(order[i], order[i+1]) {
			t.Errorf("expected %s -> %s to be allowed", order[i], order[i+1])
		}
	}
}

func TestCanTransition_NoSkipOrBackward(t *testing.T) {
	order := []JobState{
		StateQueued,
		StateDownloading,
		StateUploading,
		StateTranscribing,
		StateGeneratingNotes,
		StateEmbedding,
	}
	for i, from := range order {
		for j, to := range order {
			if j == i+1 {
				continue
			}
			if CanTransition(from, to) {
				t.Errorf("expected %s -> %s to be rejected", from, to)
			}
		}
	}
}

func TestCanTransition_FailFromAnyActiveState(t *testing.T) {
	active := []JobState{
		StateQueued, StateDownloading, StateUploading, StateTranscribing,
		StateGeneratingNotes, StateEmbedding, StatePreviewing,
	}
	for _, s := range active {
		if !CanTransition(s, StateFailed) {
			t.Errorf("expected %s -> failed to be allowed", s)
		}
	}
}

func TestCanTransition_TerminalStates(t *testing.T) {
	all := []JobState{
		StateQueued, StateDownloading, StateUploading, StateTranscribing,
		StateGeneratingNotes, StateEmbedding, StatePreviewing, StateDone, StateFailed,
	}
	for _, from := range []JobState{StateDone, StateFailed, StateUnknown} {
		for _, to := range all {
			if CanTransition(from, to) {
				t.Errorf("expected %s -> %s to be rejected", from, to)
			}
		}
	}
}

func TestCanTransition_Previews(t *testing.T) {
	if !CanTransition(StateEmbedding, StatePreviewing) {
		t.Error("embedding -> previewing should be allowed")
	}
	if !CanTransition(StatePreviewing, StateDone) {
		t.Error("previewing -> done should be allowed")
	}
	if CanTransition(StatePreviewing, StateEmbedding) {
		t.Error("previewing -> embedding should be rejected")
	}
}

// Package mock provides test doubles for the ai interfaces.
//
// Mocks return concrete types so tests can inject behavior through function
// fields and assert on call counts:
//
//	embedder := mock.NewMockEmbedder()
//	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
//	    return nil, errors.New("provider down")
//	}
//	count := embedder.CallCount()
//
// # Default Behavior
//
//   - MockEmbedder: Returns deterministic unit vectors derived from the text
//   - MockNotesGenerator: Builds notes from the transcript's first sentence and words
//   - MockProvider: Aggregates mock embedder and notes generator
package mock

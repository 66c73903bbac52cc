package search

import "github.com/Mohit888790/clipbrain/core"

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
// Hooks are called one at a time from the goroutine running the search.
type SearchMonitor interface {
	Start(query Query)
	AfterVectorPass(hits []Hit, err error)
	AfterKeywordPass(hits []Hit)
	AfterMerge(hits []Hit)
	Filtered(videoID string, reason string)
	Finish(results []*core.SearchResult)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ Query)                    {}
func (n *noopMonitor) AfterVectorPass(_ []Hit, _ error) {}
func (n *noopMonitor) AfterKeywordPass(_ []Hit)         {}
func (n *noopMonitor) AfterMerge(_ []Hit)               {}
func (n *noopMonitor) Filtered(_ string, _ string)      {}
func (n *noopMonitor) Finish(_ []*core.SearchResult)    {}

package downloader

import "fmt"

// State of the orchestrator
type State int

const (
	// Collecting entity ids per dataset
	Collecting State = iota
	// OptionsResolved: download options fetched for every batch
	OptionsResolved
	// Queued: a download request has been submitted
	Queued
	// Polling the retrieval endpoint
	Polling
	// Ready: every requested download is staged or being staged
	Ready
	// Saved: every outstanding download has been handed to the saver
	Saved
)

func (s State) String() string {
	switch s {
	case Collecting:
		return "Collecting"
	case OptionsResolved:
		return "OptionsResolved"
	case Queued:
		return "Queued"
	case Polling:
		return "Polling"
	case Ready:
		return "Ready"
	case Saved:
		return "Saved"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

package downloader

import (
	"errors"
	"time"
)

// DefaultPollInterval between two retrievals
const DefaultPollInterval = 5 * time.Second

// ErrPollExhausted is returned by Wait when the poll policy gives up
var ErrPollExhausted = errors.New("poll policy exhausted")

// Selection of the download options to request
type Selection int

const (
	// EligibleOnly requests the available options only (default)
	EligibleOnly Selection = iota
	// AllOptions requests every resolved option
	AllOptions
)

// PollPolicy controls Wait.
// The zero values of Timeout and MaxAttempts mean no bound.
type PollPolicy struct {
	Interval    time.Duration
	Timeout     time.Duration
	MaxAttempts int
	// RequireAvailable waits for every download to be staged (with an url),
	// instead of being staged or in preparation.
	RequireAvailable bool
}

// DefaultPollPolicy polls every 5s without bound
func DefaultPollPolicy() PollPolicy {
	return PollPolicy{Interval: DefaultPollInterval}
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithSelection sets the selection of the download options
func WithSelection(s Selection) Option {
	return func(o *Orchestrator) { o.selection = s }
}

// WithPollPolicy sets the poll policy
func WithPollPolicy(p PollPolicy) Option {
	return func(o *Orchestrator) { o.policy = p }
}

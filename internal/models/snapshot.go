package models

import (
	"time"

	"github.com/dewgenenny/gocoax-stats/internal/moca"
)

// HostSnapshot is the outcome of the latest poll of one adapter
type HostSnapshot struct {
	Host     string        `json:"host"`
	PolledAt time.Time     `json:"polled_at"`
	Duration time.Duration `json:"duration_ns"`

	// Result is nil when the poll failed before decoding
	Result *moca.Result `json:"result,omitempty"`
	Error  string       `json:"error,omitempty"`

	Warnings []string `json:"warnings,omitempty"`

	Published bool `json:"published"`
}

// OK reports whether the poll produced a decoded result.
func (s *HostSnapshot) OK() bool {
	return s != nil && s.Result != nil && s.Error == ""
}

// CycleStatistics summarises one poll cycle across all hosts
type CycleStatistics struct {
	StartedAt      time.Time     `json:"started_at"`
	Duration       time.Duration `json:"duration_ns"`
	HostsPolled    uint32        `json:"hosts_polled"`
	HostsOK        uint32        `json:"hosts_ok"`
	HostsFailed    uint32        `json:"hosts_failed"`
	PairsDecoded   uint32        `json:"pairs_decoded"`
	DecodeFailures uint32        `json:"decode_failures"`
	Warnings       uint32        `json:"warnings"`
	ActiveNodes    uint32        `json:"active_nodes"`

	// ErrorTypes counts failures by error class
	ErrorTypes map[string]uint32 `json:"error_types"`
}

package pipeline

import (
	"sync"
	"time"
)

// Outcome classifies what happened to one rendered summary.
type Outcome string

const (
	// OutcomeDelivered means the dispatcher confirmed delivery.
	OutcomeDelivered Outcome = "delivered"
	// OutcomeFailed means the retry budget ran out.
	OutcomeFailed Outcome = "failed"
	// OutcomeDryRun means sending was disabled and the text was only logged.
	OutcomeDryRun Outcome = "dry-run"
)

// Announcement is the per-row outcome of the announce loop.
type Announcement struct {
	Text     string  `json:"text"`
	Outcome  Outcome `json:"outcome"`
	PostID   string  `json:"post_id,omitempty"`
	Attempts int     `json:"attempts,omitempty"`
	Error    string  `json:"error,omitempty"`
}

// RunReport is the structured record of one run. It feeds the log stream,
// the watch-mode admin API, and operators asking what last night's run did.
type RunReport struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	LedgerLoaded  int `json:"ledger_loaded"`
	LedgerExpired int `json:"ledger_expired"`
	LedgerSize    int `json:"ledger_size"`

	Fetched   int `json:"fetched"`
	Invalid   int `json:"invalid"`
	New       int `json:"new"`
	NewGroups int `json:"new_groups"`

	BelowThreshold int `json:"below_threshold"`
	RenderFailed   int `json:"render_failed"`
	Delivered      int `json:"delivered"`
	DispatchFailed int `json:"dispatch_failed"`

	Announcements []Announcement `json:"announcements,omitempty"`

	// Error is set when the run died before completing.
	Error string `json:"error,omitempty"`
}

// Duration is the wall-clock span of the run.
func (r *RunReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// History keeps the most recent run reports in memory for the admin API.
// It is safe for concurrent use; the poll loop appends while handlers read.
type History struct {
	mu      sync.Mutex
	limit   int
	reports []*RunReport
}

// NewHistory builds a history bounded to limit reports. Zero or negative
// means 50.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = 50
	}
	return &History{limit: limit}
}

// Add records a report, evicting the oldest beyond the limit.
func (h *History) Add(r *RunReport) {
	if r == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.reports = append(h.reports, r)
	if len(h.reports) > h.limit {
		h.reports = h.reports[len(h.reports)-h.limit:]
	}
}

// Recent returns the kept reports, newest first.
func (h *History) Recent() []*RunReport {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*RunReport, len(h.reports))
	for i, r := range h.reports {
		out[len(out)-1-i] = r
	}
	return out
}

// Find returns the report with the given run ID.
func (h *History) Find(id string) (*RunReport, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, r := range h.reports {
		if r.ID == id {
			return r, true
		}
	}
	return nil, false
}

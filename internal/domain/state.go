package domain

import "time"

// FirstPage is the index of the first result page of a phase.
const FirstPage = 1

// CrawlState is the resumable progress of a crawl run. It is owned by the
// orchestrator and persisted after every item.
type CrawlState struct {
	RunID                string    `json:"run_id"`
	CurrentPhaseIndex    int       `json:"current_phase_index"`
	CurrentPageIndex     int       `json:"current_page_index"`
	ItemOffsetWithinPage int       `json:"item_offset_within_page"`
	CompletedPhases      []Phase   `json:"completed_phases"`
	CurrentPhase         *Phase    `json:"current_phase,omitempty"`
	TotalSeen            int       `json:"total_seen"`
	TotalAccepted        int       `json:"total_accepted"`
	TotalDuplicates      int       `json:"total_duplicates"`
	TotalSkipped         int       `json:"total_skipped"`
	PagesSkipped         int       `json:"pages_skipped"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// NewCrawlState returns the state of a fresh run positioned at the given page and offset.
func NewCrawlState(runID string, startPage, startOffset int) *CrawlState {
	if startPage < FirstPage {
		startPage = FirstPage
	}
	if startOffset < 0 {
		startOffset = 0
	}

	return &CrawlState{
		RunID:                runID,
		CurrentPageIndex:     startPage,
		ItemOffsetWithinPage: startOffset,
		CompletedPhases:      []Phase{},
	}
}

// Clone returns a deep copy that can be handed to readers outside the orchestrator.
func (s *CrawlState) Clone() *CrawlState {
	if s == nil {
		return nil
	}

	out := *s
	out.CompletedPhases = append([]Phase(nil), s.CompletedPhases...)
	if s.CurrentPhase != nil {
		phase := *s.CurrentPhase
		out.CurrentPhase = &phase
	}

	return &out
}

// LastCompleted returns the most recently completed phase.
func (s *CrawlState) LastCompleted() (Phase, bool) {
	if len(s.CompletedPhases) == 0 {
		return Phase{}, false
	}
	return s.CompletedPhases[len(s.CompletedPhases)-1], true
}

// CompletePhase records the in-flight phase as done and rewinds the page cursor.
func (s *CrawlState) CompletePhase(phase Phase) {
	s.CompletedPhases = append(s.CompletedPhases, phase)
	s.CurrentPhase = nil
	s.CurrentPhaseIndex = len(s.CompletedPhases)
	s.CurrentPageIndex = FirstPage
	s.ItemOffsetWithinPage = 0
}

// SubmitOutcome is the result of submitting a record to a store.
type SubmitOutcome int

// Submit outcomes.
const (
	Accepted SubmitOutcome = iota
	Duplicate
)

func (o SubmitOutcome) String() string {
	if o == Duplicate {
		return "duplicate"
	}
	return "accepted"
}

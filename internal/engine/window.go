package engine

import (
	"sync"

	"vitalwatch/internal/models"
)

const (
	// WindowCapacity bounds the per-patient rolling window: 24 hours of
	// samples at a 5-minute cadence.
	WindowCapacity = 288

	// HistoryCapacity bounds the per-patient anomaly-history ring buffer.
	HistoryCapacity = 100
)

// patientState is the mutable per-patient state. mu serializes Detect calls
// for one patient; distinct patients never contend.
type patientState struct {
	mu      sync.Mutex
	window  []models.VitalSample
	history []models.AnomalyHistoryEntry
}

// WindowStore holds rolling windows and anomaly history keyed by patient ID.
// Each Engine owns exactly one store; independent engines (live monitoring,
// retrospective runs, tests) never share state.
type WindowStore struct {
	mu    sync.RWMutex
	state map[string]*patientState
}

// NewWindowStore creates an empty store.
func NewWindowStore() *WindowStore {
	return &WindowStore{
		state: make(map[string]*patientState),
	}
}

func (s *WindowStore) get(patientID string) *patientState {
	s.mu.RLock()
	ps, ok := s.state[patientID]
	s.mu.RUnlock()
	if ok {
		return ps
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if ps, ok = s.state[patientID]; ok {
		return ps
	}
	ps = &patientState{}
	s.state[patientID] = ps
	return ps
}

// Append adds a sample to the patient's window, evicting the oldest entry
// once the window exceeds WindowCapacity.
func (s *WindowStore) Append(patientID string, sample models.VitalSample) {
	ps := s.get(patientID)
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.append(sample)
}

// append assumes ps.mu is held.
func (ps *patientState) append(sample models.VitalSample) {
	ps.window = append(ps.window, sample)
	if len(ps.window) > WindowCapacity {
		ps.window = ps.window[len(ps.window)-WindowCapacity:]
	}
}

// pushHistory assumes ps.mu is held.
func (ps *patientState) pushHistory(entry models.AnomalyHistoryEntry) {
	ps.history = append(ps.history, entry)
	if len(ps.history) > HistoryCapacity {
		ps.history = ps.history[len(ps.history)-HistoryCapacity:]
	}
}

// Snapshot returns a copy of the patient's current window in insertion
// order. Possibly empty, never nil.
func (s *WindowStore) Snapshot(patientID string) []models.VitalSample {
	ps := s.get(patientID)
	ps.mu.Lock()
	defer ps.mu.Unlock()
	out := make([]models.VitalSample, len(ps.window))
	copy(out, ps.window)
	return out
}

// History returns a copy of the patient's anomaly-history ring buffer,
// oldest first.
func (s *WindowStore) History(patientID string) []models.AnomalyHistoryEntry {
	ps := s.get(patientID)
	ps.mu.Lock()
	defer ps.mu.Unlock()
	out := make([]models.AnomalyHistoryEntry, len(ps.history))
	copy(out, ps.history)
	return out
}

// Reset clears the window and the anomaly history for one patient. Used
// between retrospective runs so batch replay never leaks into live state.
func (s *WindowStore) Reset(patientID string) {
	ps := s.get(patientID)
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.window = nil
	ps.history = nil
}

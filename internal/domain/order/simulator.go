// Package order simulates placing a grocery order for a recipe's ingredients.
// Nothing is bought: a fixed script of status messages plays out over time.
package order

import (
	"errors"
	"time"
)

// State is the order's position in its lifecycle
type State string

const (
	StateReady      State = "ready"
	StateProcessing State = "processing"
	StateCompleted  State = "completed"
)

// ErrAlreadyStarted is returned when Start is called outside StateReady
var ErrAlreadyStarted = errors.New("order already started")

// Step is one status message and how long it stays on screen
type Step struct {
	Message  string
	Duration time.Duration
}

// Script is the ordered list of steps
type Script []Step

// Total is the sum of all step durations
func (s Script) Total() time.Duration {
	var total time.Duration
	for _, step := range s {
		total += step.Duration
	}
	return total
}

// Pickup describes where the finished order waits
type Pickup struct {
	Store   string
	Address string
	Hours   string
}

// DefaultScript is the sequence shown while an order is processing
var DefaultScript = Script{
	{Message: "Searching nearby stores...", Duration: 2 * time.Second},
	{Message: "Store selected: Franprix rue Saint-Honoré", Duration: 2 * time.Second},
	{Message: "Searching ingredients...", Duration: 3 * time.Second},
	{Message: "Selecting best items for basket...", Duration: 2 * time.Second},
	{Message: "Finalizing basket...", Duration: 2 * time.Second},
}

// DefaultPickup is where every simulated order is collected
var DefaultPickup = Pickup{
	Store:   "Franprix rue Saint-Honoré",
	Address: "1 Rue Saint-Honoré, 75001 Paris",
	Hours:   "Open until 22:00 today",
}

// Tracker is the per-session order state
type Tracker struct {
	State     State     `json:"state"`
	StartedAt time.Time `json:"started_at,omitempty"`
}

// NewTracker returns a tracker in StateReady
func NewTracker() Tracker {
	return Tracker{State: StateReady}
}

// Reset returns the tracker to StateReady
func (t *Tracker) Reset() {
	*t = NewTracker()
}

// Snapshot is the tracker as seen at one instant
type Snapshot struct {
	State     State
	Active    int // index into Script, -1 unless processing
	Message   string
	Completed []string
	Elapsed   time.Duration
	Remaining time.Duration
	Pickup    Pickup
}

// Processing reports whether the snapshot is mid-script
func (s Snapshot) Processing() bool {
	return s.State == StateProcessing
}

// Done reports whether the order is ready for pickup
func (s Snapshot) Done() bool {
	return s.State == StateCompleted
}

// Simulator advances trackers along a script using an injected clock
type Simulator struct {
	script Script
	pickup Pickup
	now    func() time.Time
}

// NewSimulator creates a simulator. A nil clock means time.Now.
func NewSimulator(script Script, pickup Pickup, now func() time.Time) *Simulator {
	if now == nil {
		now = time.Now
	}
	return &Simulator{script: script, pickup: pickup, now: now}
}

// Script returns the steps this simulator plays
func (s *Simulator) Script() Script {
	return s.script
}

// Start moves a ready tracker to processing and records the start time
func (s *Simulator) Start(t *Tracker) error {
	if t.State == "" {
		t.Reset()
	}
	if t.State != StateReady {
		return ErrAlreadyStarted
	}
	t.State = StateProcessing
	t.StartedAt = s.now()
	return nil
}

// Tick derives the tracker's snapshot at the current instant. A processing
// tracker whose script has run out moves to completed.
func (s *Simulator) Tick(t *Tracker) Snapshot {
	if t.State == "" {
		t.Reset()
	}

	snap := Snapshot{State: t.State, Active: -1, Pickup: s.pickup}
	switch t.State {
	case StateReady:
		return snap
	case StateCompleted:
		snap.Completed = s.messages(len(s.script))
		return snap
	}

	elapsed := s.now().Sub(t.StartedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	snap.Elapsed = elapsed

	var cumulative time.Duration
	for i, step := range s.script {
		if elapsed < cumulative+step.Duration {
			snap.Active = i
			snap.Message = step.Message
			snap.Completed = s.messages(i)
			snap.Remaining = s.script.Total() - elapsed
			return snap
		}
		cumulative += step.Duration
	}

	t.State = StateCompleted
	snap.State = StateCompleted
	snap.Completed = s.messages(len(s.script))
	return snap
}

func (s *Simulator) messages(n int) []string {
	out := make([]string, 0, n)
	for _, step := range s.script[:n] {
		out = append(out, step.Message)
	}
	return out
}

package livestats

import (
	"sync"
	"time"

	"callcenter-api/internal/store"
)

// Snapshot is the live call board. Seq increases with every change so
// receivers can drop snapshots that arrive out of order.
type Snapshot struct {
	Seq       uint64     `json:"seq"`
	FirstCall *time.Time `json:"firstCall"`
	LastCall  *time.Time `json:"lastCall"`
	AllCalls  int        `json:"allCalls"`
	Connected int        `json:"connected"`
	In        int        `json:"in"`
	Out       int        `json:"out"`
	Missed    int        `json:"missed"`
	DailyGoal float64    `json:"dailyGoal"`
	Remaining int        `json:"remaining"`
}

// Event is one call outcome fed into the board.
type Event struct {
	Type      string
	Connected bool
	At        time.Time
}

// Counters are process-scoped and start from zero on every restart.
// MemoryBoard wraps them; RedisBoard keeps the same counts in Redis.
type Counters struct {
	mu   sync.Mutex
	snap Snapshot
}

func (c *Counters) Record(e Event) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := &c.snap
	s.Seq++
	s.AllCalls++
	switch e.Type {
	case store.CallIn:
		s.In++
	case store.CallOut:
		s.Out++
	case store.CallMissed:
		s.Missed++
	}
	if e.Connected {
		s.Connected++
	}
	at := e.At
	if s.FirstCall == nil {
		s.FirstCall = &at
	}
	s.LastCall = &at
	s.derive()
	return *s
}

// derive fills the fields computed from the raw counts.
func (s *Snapshot) derive() {
	s.DailyGoal = float64(s.Connected) / float64(max(s.AllCalls, 1))
	s.Remaining = s.AllCalls - s.Connected
}

func (c *Counters) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

// Reset zeroes the board. Seq keeps counting.
func (c *Counters) Reset() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap = Snapshot{Seq: c.snap.Seq + 1}
	return c.snap
}

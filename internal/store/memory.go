package store

import (
	"context"
	"slices"
	"sync"
	"time"
)

// Memory is an in-process Store used by tests and local runs without a
// database. It mirrors the Postgres semantics the services rely on:
// unique emails, foreign keys on inserts, and all-or-nothing transactions.
type Memory struct {
	mu sync.Mutex
	*memState
}

func NewMemory() *Memory {
	m := &Memory{}
	m.memState = &memState{mu: &m.mu, now: time.Now}
	return m
}

// SetClock overrides the timestamp source for rows that default to NOW().
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// WithTransaction runs fn against a private copy of the data and publishes
// the copy only when fn returns nil. The store lock is held for the whole
// unit of work, so fn must use q and never the outer Memory.
func (m *Memory) WithTransaction(ctx context.Context, fn TxFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := m.clone()
	if err := fn(ctx, tx); err != nil {
		return err
	}
	tx.mu = &m.mu
	*m.memState = *tx
	return nil
}

type campaignAgent struct {
	campaignID int64
	agentID    int64
}

type campaignTag struct {
	campaignID int64
	tag        string
}

type memSeq struct {
	user, campaign, lead, activity, call, template int64
}

type memState struct {
	// mu is nil on transaction copies; the outer lock is already held.
	mu  *sync.Mutex
	now func() time.Time

	seq        memSeq
	users      []User
	campaigns  []Campaign
	agents     []campaignAgent
	tags       []campaignTag
	leads      []Lead
	activities []Activity
	calls      []CallStat
	templates  []Template
}

func (s *memState) lock() func() {
	if s.mu == nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// clone copies every table. Row structs are copied by value; the pointers
// they hold are never mutated in place.
func (s *memState) clone() *memState {
	return &memState{
		now:        s.now,
		seq:        s.seq,
		users:      slices.Clone(s.users),
		campaigns:  slices.Clone(s.campaigns),
		agents:     slices.Clone(s.agents),
		tags:       slices.Clone(s.tags),
		leads:      slices.Clone(s.leads),
		activities: slices.Clone(s.activities),
		calls:      slices.Clone(s.calls),
		templates:  slices.Clone(s.templates),
	}
}

func (s *memState) stamp(t time.Time) time.Time {
	if t.IsZero() {
		return s.now()
	}
	return t
}

package livestats

import (
	"context"
	"sync"
	"time"

	"callcenter-api/internal/audit"
	"callcenter-api/pkg/logger"
)

// Broadcaster delivers a snapshot to one audience (local websocket clients,
// other instances).
type Broadcaster interface {
	Broadcast(ctx context.Context, snap Snapshot) error
}

const defaultBroadcastTimeout = 5 * time.Second

// Service applies call events to the board and fans every newer snapshot
// out to its broadcasters without waiting for delivery. It remembers the
// newest snapshot it has seen, from its own writes or from other instances,
// and never hands out an older one.
type Service struct {
	Audit   *audit.Service
	Timeout time.Duration

	// Board defaults to a MemoryBoard.
	Board Board
	// Peers, when set, receives the snapshots this instance produced so
	// other instances can pass them to their own clients.
	Peers Broadcaster

	mu     sync.Mutex
	latest Snapshot
	sinks  []Broadcaster
}

func NewService(sinks ...Broadcaster) *Service {
	return &Service{Timeout: defaultBroadcastTimeout, Board: &MemoryBoard{}, sinks: sinks}
}

// AddSink registers another local broadcaster. It must be called before
// the service starts taking events.
func (s *Service) AddSink(b Broadcaster) {
	s.sinks = append(s.sinks, b)
}

// Load primes the service with the board's current state.
func (s *Service) Load(ctx context.Context) error {
	snap, err := s.Board.Current(ctx)
	if err != nil {
		return err
	}
	s.offer(snap)
	return nil
}

// Record applies e to the board. When the board is unreachable the event
// is dropped and the last known snapshot is returned; the call record in
// the database is unaffected.
func (s *Service) Record(ctx context.Context, e Event) Snapshot {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	snap, err := s.Board.Apply(ctx, e)
	if err != nil {
		logger.From(ctx).Error("live stats update failed", "type", e.Type, "err", err)
		return s.Snapshot()
	}
	s.publish(ctx, snap)
	return snap
}

// Snapshot returns the newest snapshot this instance has seen.
func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

// Current reads the board, falling back to Snapshot when it cannot.
func (s *Service) Current(ctx context.Context) Snapshot {
	snap, err := s.Board.Current(ctx)
	if err != nil {
		logger.From(ctx).Warn("live board read failed", "err", err)
		return s.Snapshot()
	}
	s.offer(snap)
	return s.Snapshot()
}

func (s *Service) Reset(ctx context.Context) (Snapshot, error) {
	snap, err := s.Board.Reset(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	s.Audit.Record(ctx, audit.Event{Type: audit.EventLiveStatsReset, Message: "live stats reset"}, nil)
	logger.From(ctx).Info("live stats reset", "seq", snap.Seq)
	s.publish(ctx, snap)
	return snap, nil
}

// Observe takes a snapshot produced by another instance. It reaches local
// broadcasters only, and only when it is newer than what they already have.
func (s *Service) Observe(ctx context.Context, snap Snapshot) {
	if !s.offer(snap) {
		return
	}
	s.fanout(ctx, snap, s.sinks)
}

func (s *Service) publish(ctx context.Context, snap Snapshot) {
	if !s.offer(snap) {
		return
	}
	s.fanout(ctx, snap, s.sinks)
	if s.Peers != nil {
		s.fanout(ctx, snap, []Broadcaster{s.Peers})
	}
}

// offer records snap as the newest snapshot unless a later one is known.
func (s *Service) offer(snap Snapshot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if snap.Seq <= s.latest.Seq {
		return false
	}
	s.latest = snap
	return true
}

func (s *Service) fanout(ctx context.Context, snap Snapshot, to []Broadcaster) {
	if len(to) == 0 {
		return
	}
	// Outlive the request that produced the event.
	ctx = context.WithoutCancel(ctx)
	log := logger.From(ctx)
	for _, b := range to {
		go func() {
			ctx, cancel := context.WithTimeout(ctx, s.Timeout)
			defer cancel()
			if err := b.Broadcast(ctx, snap); err != nil {
				log.Warn("live stats broadcast failed", "seq", snap.Seq, "err", err)
			}
		}()
	}
}

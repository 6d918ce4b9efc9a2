package livestats

import "context"

// Board holds the authoritative counters. Every instance of the API applies
// events to the same board, so a snapshot from any of them describes the
// whole call center.
type Board interface {
	Apply(ctx context.Context, e Event) (Snapshot, error)
	Current(ctx context.Context) (Snapshot, error)
	Reset(ctx context.Context) (Snapshot, error)
}

// MemoryBoard keeps the counters in process. It serves single-instance
// deployments and tests.
type MemoryBoard struct {
	c Counters
}

func (b *MemoryBoard) Apply(_ context.Context, e Event) (Snapshot, error) {
	return b.c.Record(e), nil
}

func (b *MemoryBoard) Current(context.Context) (Snapshot, error) {
	return b.c.Snapshot(), nil
}

func (b *MemoryBoard) Reset(context.Context) (Snapshot, error) {
	return b.c.Reset(), nil
}

package jobs

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

type fakeRecomputer struct {
	calls atomic.Int32
	err   error
}

func (f *fakeRecomputer) RecomputeAll(context.Context) (int, error) {
	f.calls.Add(1)
	return 3, f.err
}

func TestSetupJobs(t *testing.T) {
	cm := NewCronManager(&fakeRecomputer{}, time.UTC, nil)
	if err := cm.SetupJobs("0 2 * * *"); err != nil {
		t.Fatalf("SetupJobs: %v", err)
	}
	if cm.Jobs() != 1 {
		t.Fatalf("expected 1 job, got %d", cm.Jobs())
	}
	if err := cm.SetupJobs("every day"); err == nil {
		t.Fatalf("expected invalid spec to fail")
	}
}

func TestRecomputeProgress_LogsOutcome(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))
	rec := &fakeRecomputer{}
	cm := NewCronManager(rec, nil, log)

	cm.RecomputeProgress()
	if rec.calls.Load() != 1 {
		t.Fatalf("expected one recompute, got %d", rec.calls.Load())
	}
	if !strings.Contains(buf.String(), `"updated":3`) {
		t.Fatalf("missing updated count in log: %s", buf.String())
	}

	buf.Reset()
	rec.err = errors.New("boom")
	cm.RecomputeProgress()
	if !strings.Contains(buf.String(), `"level":"ERROR"`) {
		t.Fatalf("expected error log, got: %s", buf.String())
	}
}

func TestStartStop(t *testing.T) {
	cm := NewCronManager(&fakeRecomputer{}, time.UTC, nil)
	if err := cm.SetupJobs("@every 1h"); err != nil {
		t.Fatalf("SetupJobs: %v", err)
	}
	cm.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	cm.Stop(ctx)
}

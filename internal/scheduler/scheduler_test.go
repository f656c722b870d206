package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type countingJobs struct {
	scans     atomic.Int32
	refreshes atomic.Int32
	err       error
}

func (j *countingJobs) SyncNewIssues(ctx context.Context) error {
	j.scans.Add(1)
	return j.err
}

func (j *countingJobs) RefreshIssues(ctx context.Context) error {
	j.refreshes.Add(1)
	return j.err
}

func TestNew_RejectsNonPositiveIntervals(t *testing.T) {
	tests := []Config{
		{ScanInterval: 0, RefreshInterval: time.Minute},
		{ScanInterval: time.Minute, RefreshInterval: -time.Second},
	}

	for _, cfg := range tests {
		if _, err := New(&countingJobs{}, cfg); err == nil {
			t.Errorf("New(%+v) succeeded, want error", cfg)
		}
	}
}

func TestNew_RegistersBothJobs(t *testing.T) {
	s, err := New(&countingJobs{}, Config{ScanInterval: 5 * time.Minute, RefreshInterval: 10 * time.Minute})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := len(s.c.Entries()); got != 2 {
		t.Errorf("entries = %d, want 2", got)
	}
}

func TestRun_SwallowsJobErrors(t *testing.T) {
	jobs := &countingJobs{err: errors.New("tag API unavailable")}
	s, err := New(jobs, Config{ScanInterval: time.Minute, RefreshInterval: time.Minute})
	if err != nil {
		t.Fatal(err)
	}

	s.run("tag-scan", jobs.SyncNewIssues)
	s.run("tag-refresh", jobs.RefreshIssues)

	if jobs.scans.Load() != 1 || jobs.refreshes.Load() != 1 {
		t.Errorf("scans=%d refreshes=%d, want 1 each", jobs.scans.Load(), jobs.refreshes.Load())
	}
}

func TestStop_CancelsJobContext(t *testing.T) {
	s, err := New(&countingJobs{}, Config{ScanInterval: time.Hour, RefreshInterval: time.Hour})
	if err != nil {
		t.Fatal(err)
	}
	s.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)

	if s.ctx.Err() == nil {
		t.Error("job context still live after Stop")
	}
}

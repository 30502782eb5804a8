package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vellum-md/vellum/internal/ingest"
	"github.com/vellum-md/vellum/internal/notify"
)

type fakeIngestor struct {
	mu      sync.Mutex
	calls   map[string]int
	failing map[string]bool
	delay   time.Duration

	current atomic.Int64
	peak    atomic.Int64
}

func newFakeIngestor() *fakeIngestor {
	return &fakeIngestor{
		calls:   make(map[string]int),
		failing: make(map[string]bool),
	}
}

func (f *fakeIngestor) Ingest(ctx context.Context, src ingest.Source) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cur := f.current.Add(1)
	defer f.current.Add(-1)
	for {
		peak := f.peak.Load()
		if cur <= peak || f.peak.CompareAndSwap(peak, cur) {
			break
		}
	}

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.calls[src.Name]++
	failing := f.failing[src.Name]
	f.mu.Unlock()

	if failing {
		return errors.New("ingest failed")
	}
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sources(n int) []ingest.Source {
	out := make([]ingest.Source, n)
	for i := range out {
		name := fmt.Sprintf("doc-%02d", i)
		out[i] = ingest.Source{Name: name, Path: "inbox/" + name + ".pdf"}
	}
	return out
}

func TestRunner_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("processes every source exactly once", func(t *testing.T) {
		fake := newFakeIngestor()
		r := New(Config{Ingestor: fake, Workers: 4, Notifier: &notify.Recorder{}, Logger: quietLogger()})

		srcs := sources(20)
		report := r.Run(ctx, srcs)

		if report.Total != 20 {
			t.Errorf("expected total 20, got %d", report.Total)
		}
		if report.Succeeded+report.Failed != report.Total {
			t.Errorf("counts do not add up: %d + %d != %d",
				report.Succeeded, report.Failed, report.Total)
		}
		if report.Failed != 0 {
			t.Errorf("expected no failures, got %d", report.Failed)
		}
		for _, src := range srcs {
			if got := fake.calls[src.Name]; got != 1 {
				t.Errorf("expected %s processed once, got %d", src.Name, got)
			}
		}
		if report.ID == "" {
			t.Error("expected a batch id")
		}
	})

	t.Run("one failure does not stop the others", func(t *testing.T) {
		fake := newFakeIngestor()
		fake.failing["doc-03"] = true
		fake.failing["doc-07"] = true
		r := New(Config{Ingestor: fake, Workers: 3, Notifier: &notify.Recorder{}, Logger: quietLogger()})

		report := r.Run(ctx, sources(10))

		if report.Succeeded != 8 {
			t.Errorf("expected 8 succeeded, got %d", report.Succeeded)
		}
		if report.Failed != 2 {
			t.Errorf("expected 2 failed, got %d", report.Failed)
		}
	})

	t.Run("concurrency stays within the worker bound", func(t *testing.T) {
		fake := newFakeIngestor()
		fake.delay = 10 * time.Millisecond
		r := New(Config{Ingestor: fake, Workers: 3, Notifier: &notify.Recorder{}, Logger: quietLogger()})

		r.Run(ctx, sources(12))

		if peak := fake.peak.Load(); peak > 3 {
			t.Errorf("expected at most 3 in flight, saw %d", peak)
		}
	})

	t.Run("empty source list", func(t *testing.T) {
		rec := &notify.Recorder{}
		r := New(Config{Ingestor: newFakeIngestor(), Workers: 3, Notifier: rec, Logger: quietLogger()})

		report := r.Run(ctx, nil)

		if report.Total != 0 || report.Succeeded != 0 || report.Failed != 0 {
			t.Errorf("expected empty report, got %+v", report)
		}
		if msgs := rec.Messages(); len(msgs) != 0 {
			t.Errorf("expected no notifications for empty batch, got %v", msgs)
		}
	})

	t.Run("cancelled context counts remaining as failed", func(t *testing.T) {
		fake := newFakeIngestor()
		r := New(Config{Ingestor: fake, Workers: 2, Notifier: &notify.Recorder{}, Logger: quietLogger()})

		cctx, cancel := context.WithCancel(context.Background())
		cancel()

		report := r.Run(cctx, sources(6))

		if report.Succeeded+report.Failed != 6 {
			t.Errorf("counts do not add up under cancellation: %+v", report)
		}
		if report.Succeeded != 0 {
			t.Errorf("expected no successes after cancellation, got %d", report.Succeeded)
		}
	})

	t.Run("worker floor of one", func(t *testing.T) {
		fake := newFakeIngestor()
		r := New(Config{Ingestor: fake, Workers: 0, Notifier: &notify.Recorder{}, Logger: quietLogger()})

		report := r.Run(ctx, sources(3))

		if report.Succeeded != 3 {
			t.Errorf("expected 3 succeeded with floored workers, got %d", report.Succeeded)
		}
		if peak := fake.peak.Load(); peak > 1 {
			t.Errorf("expected serial execution, saw %d in flight", peak)
		}
	})

	t.Run("final notification reports counts", func(t *testing.T) {
		fake := newFakeIngestor()
		fake.failing["doc-01"] = true
		rec := &notify.Recorder{}
		r := New(Config{Ingestor: fake, Workers: 2, Notifier: rec, Logger: quietLogger()})

		r.Run(ctx, sources(4))

		msgs := rec.Messages()
		if len(msgs) < 2 {
			t.Fatalf("expected start and completion notifications, got %v", msgs)
		}
		last := msgs[len(msgs)-1]
		if last != "Batch complete: 3 succeeded, 1 failed" {
			t.Errorf("unexpected completion notification: %q", last)
		}
	})
}

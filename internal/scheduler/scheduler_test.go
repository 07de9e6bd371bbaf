package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/City-of-Helsinki/hauki-sub000/internal/importer"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func noop(context.Context) error { return nil }

func TestRunner_Add(t *testing.T) {
	t.Parallel()

	r := New(discardLogger())
	if err := r.Add(Job{Name: "import", Spec: "*/15 * * * *", Run: noop}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := r.Add(Job{Name: "recompute", Spec: "@daily", Run: noop}); err != nil {
		t.Fatalf("Add with descriptor failed: %v", err)
	}
	if err := r.Add(Job{Name: "disabled", Run: noop}); err != nil {
		t.Fatalf("expected empty spec to disable the job, got %v", err)
	}
	if err := r.Add(Job{Name: "broken", Spec: "every tuesday", Run: noop}); err == nil || !strings.Contains(err.Error(), "broken") {
		t.Fatalf("expected invalid spec error naming the job, got %v", err)
	}
	if err := r.Add(Job{Name: "empty", Spec: "@hourly"}); err == nil {
		t.Fatalf("expected error for a job without a function")
	}
	if got := r.Jobs(); !reflect.DeepEqual(got, []string{"import", "recompute"}) {
		t.Fatalf("unexpected jobs %v", got)
	}

	r.Start(context.Background())
	defer r.Stop()
	if err := r.Add(Job{Name: "late", Spec: "@hourly", Run: noop}); !errors.Is(err, ErrStarted) {
		t.Fatalf("expected ErrStarted, got %v", err)
	}
}

func TestRunner_StopWaitsForRunningJob(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	var finished atomic.Bool
	var runs atomic.Int32
	r := New(discardLogger())
	err := r.Add(Job{Name: "slow", Spec: "@every 1s", Run: func(ctx context.Context) error {
		if runs.Add(1) == 1 {
			close(started)
		}
		<-ctx.Done()
		time.Sleep(20 * time.Millisecond)
		finished.Store(true)
		return ctx.Err()
	}})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	r.Start(context.Background())
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		r.Stop()
		t.Fatalf("job did not start")
	}
	r.Stop()
	if !finished.Load() {
		t.Fatalf("expected Stop to wait for the running job")
	}
}

type stubImportRunner struct {
	calls []string
	fail  string
}

func (s *stubImportRunner) RunImporter(_ context.Context, imp importer.Importer, _ importer.Options) ([]importer.Result, error) {
	s.calls = append(s.calls, imp.Name())
	if imp.Name() == s.fail {
		return nil, errors.New("source unavailable")
	}
	return []importer.Result{{DataSource: imp.Name()}}, nil
}

type namedImporter string

func (n namedImporter) Name() string { return string(n) }

func (namedImporter) Fetch(context.Context) ([]importer.Batch, error) { return nil, nil }

func TestImportJob(t *testing.T) {
	t.Parallel()

	registry := importer.NewRegistry()
	for _, name := range []string{"tprek", "kirkanta", "libraries"} {
		if err := registry.Register(namedImporter(name)); err != nil {
			t.Fatalf("Register failed: %v", err)
		}
	}
	runner := &stubImportRunner{fail: "kirkanta"}
	job := ImportJob("@hourly", runner, registry)

	err := job.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "importer kirkanta") {
		t.Fatalf("expected the failing importer to be reported, got %v", err)
	}
	if !reflect.DeepEqual(runner.calls, []string{"kirkanta", "libraries", "tprek"}) {
		t.Fatalf("expected every importer to run, got %v", runner.calls)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := job.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

type stubRecomputer struct {
	changed int
	err     error
}

func (s stubRecomputer) RecomputeAll(context.Context, ...string) (int, error) {
	return s.changed, s.err
}

func TestRecomputeJob(t *testing.T) {
	t.Parallel()

	if err := RecomputeJob("@daily", stubRecomputer{changed: 3}).Run(context.Background()); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	boom := errors.New("boom")
	if err := RecomputeJob("@daily", stubRecomputer{err: boom}).Run(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected recompute error, got %v", err)
	}
}

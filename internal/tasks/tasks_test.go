package tasks

import (
	"context"
	"testing"
	"time"
)

func TestNewDefaults(t *testing.T) {
	task := New("t1", "chat", "hi")

	if task.ID != "t1" {
		t.Errorf("ID = %q, want t1", task.ID)
	}
	if task.Status != StatusPending {
		t.Errorf("Status = %q, want pending", task.Status)
	}
	if task.Priority != 1 {
		t.Errorf("Priority = %d, want 1", task.Priority)
	}
	if task.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
}

func TestNewGeneratesID(t *testing.T) {
	a := New("", "chat", "x")
	b := New("", "chat", "x")

	if a.ID == "" {
		t.Fatal("expected generated ID")
	}
	if a.ID == b.ID {
		t.Errorf("generated IDs collide: %q", a.ID)
	}
}

func TestAdvanceForwardOnly(t *testing.T) {
	task := New("t1", "work", "x")

	if err := task.Advance(StatusProcessing); err != nil {
		t.Fatalf("pending->processing: %v", err)
	}
	if task.StartedAt.IsZero() {
		t.Error("StartedAt not set on processing")
	}
	if err := task.Advance(StatusCompleted); err != nil {
		t.Fatalf("processing->completed: %v", err)
	}
	if task.CompletedAt.IsZero() {
		t.Error("CompletedAt not set on completed")
	}
	if !task.IsTerminal() {
		t.Error("completed task should be terminal")
	}
}

func TestAdvanceRejectsSkipsAndRegressions(t *testing.T) {
	cases := []struct {
		name string
		from Status
		to   Status
	}{
		{"skip processing", StatusPending, StatusCompleted},
		{"fail from pending", StatusPending, StatusFailed},
		{"regress to pending", StatusProcessing, StatusPending},
		{"reopen completed", StatusCompleted, StatusProcessing},
		{"complete failed", StatusFailed, StatusCompleted},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			task := New("t1", "work", "x")
			task.Status = tc.from
			if err := task.Advance(tc.to); err == nil {
				t.Errorf("Advance(%s -> %s) succeeded, want error", tc.from, tc.to)
			}
		})
	}
}

func TestQueueFIFO(t *testing.T) {
	q := NewQueue()

	// Higher priority on the later task must not reorder anything; the
	// priority field is vestigial for ordering purposes.
	first := New("t1", "work", "a")
	second := New("t2", "work", "b")
	second.Priority = 99
	q.Add(first)
	q.Add(second)

	if q.Len() != 2 {
		t.Fatalf("Len = %d, want 2", q.Len())
	}

	ctx := context.Background()
	if got := q.Next(ctx, 100*time.Millisecond); got == nil || got.ID != "t1" {
		t.Fatalf("first Next = %v, want t1", got)
	}
	if got := q.Next(ctx, 100*time.Millisecond); got == nil || got.ID != "t2" {
		t.Fatalf("second Next = %v, want t2", got)
	}
	if q.Len() != 0 {
		t.Errorf("Len = %d after drain, want 0", q.Len())
	}
}

func TestQueueNextTimesOut(t *testing.T) {
	q := NewQueue()

	start := time.Now()
	got := q.Next(context.Background(), 50*time.Millisecond)
	elapsed := time.Since(start)

	if got != nil {
		t.Fatalf("Next on empty queue = %v, want nil", got)
	}
	if elapsed < 40*time.Millisecond {
		t.Errorf("Next returned after %v, want ~50ms bounded wait", elapsed)
	}
}

func TestQueueNextWakesOnAdd(t *testing.T) {
	q := NewQueue()

	go func() {
		time.Sleep(20 * time.Millisecond)
		q.Add(New("t1", "chat", "hi"))
	}()

	start := time.Now()
	got := q.Next(context.Background(), 5*time.Second)
	if got == nil || got.ID != "t1" {
		t.Fatalf("Next = %v, want t1", got)
	}
	if time.Since(start) > time.Second {
		t.Error("Next did not wake on enqueue")
	}
}

func TestQueueNextHonorsContext(t *testing.T) {
	q := NewQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if got := q.Next(ctx, 5*time.Second); got != nil {
		t.Fatalf("Next with cancelled ctx = %v, want nil", got)
	}
}

func TestQueueConcurrentProducers(t *testing.T) {
	q := NewQueue()
	const n = 50

	done := make(chan struct{})
	for i := 0; i < 5; i++ {
		go func(worker int) {
			for j := 0; j < n/5; j++ {
				q.Add(New("", "work", "x"))
			}
			done <- struct{}{}
		}(i)
	}
	for i := 0; i < 5; i++ {
		<-done
	}

	if q.Len() != n {
		t.Fatalf("Len = %d, want %d", q.Len(), n)
	}

	seen := 0
	for q.TryNext() != nil {
		seen++
	}
	if seen != n {
		t.Errorf("drained %d tasks, want %d", seen, n)
	}
}

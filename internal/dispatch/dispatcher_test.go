package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/calder/relay/internal/agents"
	"github.com/calder/relay/internal/tasks"
)

// mockHandler implements agents.Handler for testing.
type mockHandler struct {
	name string
	err  error

	mu      sync.Mutex
	handled []string
}

func (m *mockHandler) Name() string { return m.name }

func (m *mockHandler) Handle(_ context.Context, task *tasks.Task) (*agents.Outcome, error) {
	m.mu.Lock()
	m.handled = append(m.handled, task.ID)
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return &agents.Outcome{Output: "handled " + task.ID}, nil
}

func (m *mockHandler) handledIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.handled))
	copy(out, m.handled)
	return out
}

// memRecorder implements Recorder in memory.
type memRecorder struct {
	mu       sync.Mutex
	recorded []*tasks.Task
}

func (r *memRecorder) Record(t *tasks.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recorded = append(r.recorded, t)
	return nil
}

func fastConfig() Config {
	return Config{PollInterval: 10 * time.Millisecond, HistoryLimit: 100}
}

// waitFor polls until cond holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestChatTaskCompletes(t *testing.T) {
	d := New(WithConfig(fastConfig()))
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	task := tasks.New("t1", "chat", "hi")
	d.Submit(task)

	// The counter is updated under the dispatcher mutex after the task
	// fields are written, so reading it synchronizes the checks below.
	waitFor(t, func() bool { return d.Status().CompletedCount == 1 })

	if task.Status != tasks.StatusCompleted {
		t.Errorf("Status = %q, want completed", task.Status)
	}
	if task.AssignedAgent != "chat_agent" {
		t.Errorf("AssignedAgent = %q, want chat_agent", task.AssignedAgent)
	}
}

func TestUnknownTypeFallsBackToWorker(t *testing.T) {
	d := New(WithConfig(fastConfig()))
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	task := tasks.New("t2", "unknown_type", "x")
	d.Submit(task)

	waitFor(t, func() bool { return d.Status().CompletedCount == 1 })

	if task.Status != tasks.StatusCompleted {
		t.Errorf("Status = %q, want completed", task.Status)
	}
	if task.AssignedAgent != "worker_agent" {
		t.Errorf("AssignedAgent = %q, want worker_agent", task.AssignedAgent)
	}
}

func TestFIFOCompletionOrder(t *testing.T) {
	handler := &mockHandler{name: agents.WorkerAgent}
	reg := agents.NewRegistry()
	reg.Register(agents.WorkerAgent, handler)

	d := New(WithConfig(fastConfig()), WithRegistry(reg))

	// All submitted before the loop starts; the late task's higher
	// priority must not promote it.
	first := tasks.New("a", "work", "x")
	second := tasks.New("b", "work", "x")
	third := tasks.New("c", "work", "x")
	third.Priority = 100
	d.Submit(first)
	d.Submit(second)
	d.Submit(third)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	waitFor(t, func() bool { return len(handler.handledIDs()) == 3 })

	got := handler.handledIDs()
	want := []string{"a", "b", "c"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("handled order = %v, want %v", got, want)
		}
	}
}

func TestDrainCountsAndEmptiesQueue(t *testing.T) {
	rec := &memRecorder{}
	d := New(WithConfig(fastConfig()), WithArchive(rec))

	const n = 10
	for i := 0; i < n; i++ {
		d.Submit(tasks.New("", "development", "x"))
	}

	processed := d.Drain(context.Background())
	if processed != n {
		t.Fatalf("Drain = %d, want %d", processed, n)
	}

	status := d.Status()
	if status.CompletedCount != n {
		t.Errorf("CompletedCount = %d, want %d", status.CompletedCount, n)
	}
	if status.QueueSize != 0 {
		t.Errorf("QueueSize = %d, want 0", status.QueueSize)
	}
	if len(rec.recorded) != n {
		t.Errorf("archived %d tasks, want %d", len(rec.recorded), n)
	}
}

func TestHandlerErrorFailsTask(t *testing.T) {
	handler := &mockHandler{name: agents.WorkerAgent, err: errors.New("disk full")}
	reg := agents.NewRegistry()
	reg.Register(agents.WorkerAgent, handler)

	d := New(WithConfig(fastConfig()), WithRegistry(reg))
	task := tasks.New("t3", "work", "x")
	d.Submit(task)
	d.Drain(context.Background())

	if task.Status != tasks.StatusFailed {
		t.Errorf("Status = %q, want failed", task.Status)
	}
	if task.Error != "disk full" {
		t.Errorf("Error = %q, want disk full", task.Error)
	}

	status := d.Status()
	if status.FailedCount != 1 || status.CompletedCount != 0 {
		t.Errorf("counts = %d completed / %d failed, want 0/1", status.CompletedCount, status.FailedCount)
	}
}

func TestNilHandlerEntryCompletesTask(t *testing.T) {
	// The default registry holds both well-known names with no handlers
	// attached; tasks pass through and still complete.
	d := New(WithConfig(fastConfig()))
	task := tasks.New("t4", "conversation", "x")
	d.Submit(task)
	d.Drain(context.Background())

	if task.Status != tasks.StatusCompleted {
		t.Errorf("Status = %q, want completed", task.Status)
	}
}

func TestStopHaltsDequeuing(t *testing.T) {
	d := New(WithConfig(fastConfig()))
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	d.Stop()

	if d.Running() {
		t.Fatal("Running after Stop")
	}

	task := tasks.New("t5", "chat", "hi")
	d.Submit(task)
	time.Sleep(50 * time.Millisecond)

	if task.Status != tasks.StatusPending {
		t.Fatalf("Status = %q after Stop, want pending", task.Status)
	}
	if d.Status().QueueSize != 1 {
		t.Fatalf("QueueSize = %d, want 1", d.Status().QueueSize)
	}

	// Restart drains the backlog.
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("restart: %v", err)
	}
	defer d.Stop()

	waitFor(t, func() bool { return d.Status().CompletedCount == 1 })
	if task.Status != tasks.StatusCompleted {
		t.Errorf("Status = %q after restart, want completed", task.Status)
	}
}

func TestStartTwiceFails(t *testing.T) {
	d := New(WithConfig(fastConfig()))
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	if err := d.Start(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Start = %v, want ErrAlreadyRunning", err)
	}
}

func TestContextCancelStopsLoop(t *testing.T) {
	d := New(WithConfig(fastConfig()))
	ctx, cancel := context.WithCancel(context.Background())
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	cancel()
	waitFor(t, func() bool { return !d.Running() })
}

func TestStatusSnapshot(t *testing.T) {
	d := New(WithConfig(fastConfig()))

	status := d.Status()
	if status.Running {
		t.Error("Running before Start")
	}
	want := []string{"chat_agent", "worker_agent"}
	if len(status.Agents) != 2 || status.Agents[0] != want[0] || status.Agents[1] != want[1] {
		t.Errorf("Agents = %v, want %v", status.Agents, want)
	}
}

func TestHistoryNewestFirst(t *testing.T) {
	d := New(WithConfig(fastConfig()))
	for _, id := range []string{"a", "b", "c"} {
		d.Submit(tasks.New(id, "work", "x"))
	}
	d.Drain(context.Background())

	hist := d.History(2)
	if len(hist) != 2 {
		t.Fatalf("History(2) returned %d entries", len(hist))
	}
	if hist[0].ID != "c" || hist[1].ID != "b" {
		t.Errorf("History order = [%s %s], want [c b]", hist[0].ID, hist[1].ID)
	}
}

func TestEventsEmitted(t *testing.T) {
	var mu sync.Mutex
	var types []EventType
	handler := func(e Event) {
		mu.Lock()
		types = append(types, e.Type)
		mu.Unlock()
	}

	d := New(WithConfig(fastConfig()), WithEventHandler(handler))
	d.Submit(tasks.New("t6", "chat", "hi"))
	d.Drain(context.Background())

	mu.Lock()
	defer mu.Unlock()

	want := map[EventType]bool{EventTaskQueued: false, EventTaskStart: false, EventTaskEnd: false}
	for _, typ := range types {
		if _, ok := want[typ]; ok {
			want[typ] = true
		}
	}
	for typ, seen := range want {
		if !seen {
			t.Errorf("event %d not emitted (got %v)", typ, types)
		}
	}
}

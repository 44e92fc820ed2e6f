// Package dispatch routes queued tasks to agents. One dispatcher runs one
// processing loop: tasks are popped in FIFO order, assigned an agent name,
// handled (or passed through when no handler is attached), and archived.
package dispatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/calder/relay/internal/agents"
	"github.com/calder/relay/internal/logging"
	"github.com/calder/relay/internal/tasks"
)

// Defaults for the processing loop.
const (
	DefaultHistoryLimit = 1000
)

// ErrAlreadyRunning is returned by Start when the loop is active.
var ErrAlreadyRunning = errors.New("dispatcher already running")

// Recorder persists terminal tasks. Implemented by the archive store.
type Recorder interface {
	Record(task *tasks.Task) error
}

// Config holds dispatcher configuration.
type Config struct {
	PollInterval time.Duration // bounded wait when the queue is empty
	HistoryLimit int           // in-memory history ring size
}

// DefaultConfig returns default dispatcher config.
func DefaultConfig() Config {
	return Config{
		PollInterval: tasks.DefaultPollInterval,
		HistoryLimit: DefaultHistoryLimit,
	}
}

// Snapshot is a point-in-time view of the dispatcher.
type Snapshot struct {
	Running        bool     `json:"running"`
	Agents         []string `json:"agents"`
	QueueSize      int      `json:"queue_size"`
	CompletedCount int      `json:"completed_count"`
	FailedCount    int      `json:"failed_count"`
}

// Dispatcher owns the queue, the registry, and the single consumer loop.
type Dispatcher struct {
	queue        *tasks.Queue
	registry     *agents.Registry
	archive      Recorder
	config       Config
	logger       *logging.Logger
	eventHandler EventHandler

	mu        sync.Mutex
	running   bool
	stop      chan struct{}
	done      chan struct{}
	history   []*tasks.Task
	completed int
	failed    int
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithQueue sets the task queue.
func WithQueue(q *tasks.Queue) Option {
	return func(d *Dispatcher) { d.queue = q }
}

// WithRegistry sets the agent registry.
func WithRegistry(r *agents.Registry) Option {
	return func(d *Dispatcher) { d.registry = r }
}

// WithArchive sets the terminal-task recorder.
func WithArchive(a Recorder) Option {
	return func(d *Dispatcher) { d.archive = a }
}

// WithConfig sets dispatcher configuration.
func WithConfig(c Config) Option {
	return func(d *Dispatcher) { d.config = c }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// WithEventHandler sets an optional callback for lifecycle events.
func WithEventHandler(h EventHandler) Option {
	return func(d *Dispatcher) { d.eventHandler = h }
}

// New creates a dispatcher with the given options.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		config: DefaultConfig(),
		logger: logging.Component("dispatch"),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.queue == nil {
		d.queue = tasks.NewQueue()
	}
	if d.registry == nil {
		d.registry = agents.DefaultRegistry()
	}
	if d.config.PollInterval <= 0 {
		d.config.PollInterval = tasks.DefaultPollInterval
	}
	if d.config.HistoryLimit <= 0 {
		d.config.HistoryLimit = DefaultHistoryLimit
	}
	return d
}

func (d *Dispatcher) emit(e Event) {
	if d.eventHandler != nil {
		e.Time = time.Now()
		d.eventHandler(e)
	}
}

// Submit enqueues a task. Safe to call from any goroutine, running or not;
// tasks submitted while stopped stay pending until the next Start.
func (d *Dispatcher) Submit(t *tasks.Task) {
	d.queue.Add(t)
	d.logger.InfoCtx("task submitted", map[string]any{"task_id": t.ID, "type": t.Type})
	d.emit(Event{Type: EventTaskQueued, TaskID: t.ID, TaskType: t.Type})
}

// Start launches the processing loop. Returns ErrAlreadyRunning if the
// loop is active. The loop exits when Stop is called or ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return ErrAlreadyRunning
	}
	d.running = true
	d.stop = make(chan struct{})
	d.done = make(chan struct{})
	stop, done := d.stop, d.done
	d.mu.Unlock()

	d.logger.Info("dispatcher starting")
	d.emit(Event{Type: EventLoopStart})

	go d.loop(ctx, stop, done)
	return nil
}

// Stop signals the loop to halt and waits for it to finish. The stop flag
// is checked between poll cycles; a task already processing is not
// interrupted. Safe to call when not running.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	stop, done := d.stop, d.done
	d.mu.Unlock()

	close(stop)
	<-done
}

// Running reports whether the processing loop is active.
func (d *Dispatcher) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// loop is the single consumer draining the queue.
func (d *Dispatcher) loop(ctx context.Context, stop, done chan struct{}) {
	defer func() {
		d.mu.Lock()
		d.running = false
		d.mu.Unlock()
		d.logger.Info("dispatcher stopped")
		d.emit(Event{Type: EventLoopStop})
		close(done)
	}()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		default:
		}

		task := d.queue.Next(ctx, d.config.PollInterval)
		if task == nil {
			// Empty queue or cancelled context; loop re-checks the stop flag.
			continue
		}

		d.process(ctx, task)
	}
}

// process runs a single task to a terminal state.
func (d *Dispatcher) process(ctx context.Context, task *tasks.Task) {
	agentName := Assign(task.Type)
	task.AssignedAgent = agentName

	if err := task.Advance(tasks.StatusProcessing); err != nil {
		d.logger.Err(err).Str("task_id", task.ID).Msg("refusing task with bad status")
		return
	}

	d.logger.InfoCtx("processing task", map[string]any{"task_id": task.ID, "agent": agentName})
	d.emit(Event{Type: EventTaskStart, TaskID: task.ID, TaskType: task.Type, Agent: agentName})

	handler, known := d.registry.Lookup(agentName)
	if !known {
		d.logger.Warnf("agent %s not registered, passing task %s through", agentName, task.ID)
	}

	var output string
	var handleErr error
	if handler != nil {
		outcome, err := handler.Handle(ctx, task)
		if err != nil {
			handleErr = err
		} else if outcome != nil {
			output = outcome.Output
		}
	}
	// A nil handler is a name-only registry entry; the task passes through
	// and completes, matching the pass-through contract.

	if handleErr != nil {
		task.Error = handleErr.Error()
		_ = task.Advance(tasks.StatusFailed)
	} else {
		_ = task.Advance(tasks.StatusCompleted)
	}

	d.finish(task)

	if handleErr != nil {
		d.logger.ErrorCtx("task failed", map[string]any{"task_id": task.ID, "error": task.Error})
	} else {
		d.logger.InfoCtx("task completed", map[string]any{"task_id": task.ID, "agent": agentName})
	}

	d.emit(Event{
		Type:     EventTaskEnd,
		TaskID:   task.ID,
		TaskType: task.Type,
		Agent:    agentName,
		Status:   task.Status,
		Output:   output,
		Error:    task.Error,
		Duration: task.Duration(),
	})
}

// finish archives the terminal task and updates counters and history.
func (d *Dispatcher) finish(task *tasks.Task) {
	d.mu.Lock()
	d.history = append(d.history, task)
	if len(d.history) > d.config.HistoryLimit {
		d.history = d.history[len(d.history)-d.config.HistoryLimit:]
	}
	if task.Status == tasks.StatusFailed {
		d.failed++
	} else {
		d.completed++
	}
	d.mu.Unlock()

	if d.archive != nil {
		if err := d.archive.Record(task); err != nil {
			d.logger.Err(err).Str("task_id", task.ID).Msg("archiving task")
		}
	}
}

// Status returns a read-only snapshot of the dispatcher.
func (d *Dispatcher) Status() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()

	return Snapshot{
		Running:        d.running,
		Agents:         d.registry.Names(),
		QueueSize:      d.queue.Len(),
		CompletedCount: d.completed,
		FailedCount:    d.failed,
	}
}

// History returns the most recent terminal tasks, newest first, up to n
// (n <= 0 returns everything retained).
func (d *Dispatcher) History(n int) []*tasks.Task {
	d.mu.Lock()
	defer d.mu.Unlock()

	if n <= 0 || n > len(d.history) {
		n = len(d.history)
	}
	out := make([]*tasks.Task, n)
	for i := 0; i < n; i++ {
		out[i] = d.history[len(d.history)-1-i]
	}
	return out
}

// Drain submits nothing and processes the queue until empty, then stops.
// Used by one-shot runs where no long-lived loop is wanted.
func (d *Dispatcher) Drain(ctx context.Context) int {
	processed := 0
	for {
		select {
		case <-ctx.Done():
			return processed
		default:
		}

		task := d.queue.TryNext()
		if task == nil {
			return processed
		}
		d.process(ctx, task)
		processed++
	}
}

package relay

import (
	"context"
	"errors"
	"sync"
	"time"

	"cora/internal/logger"
	"cora/internal/tool"
)

// ErrNotConfigured is returned by Start when the relay endpoint settings
// are missing.
var ErrNotConfigured = errors.New("relay not configured")

const (
	defaultPollInterval      = 2 * time.Second
	defaultHeartbeatInterval = 30 * time.Second
	commandBatchSize         = 5
	stopTimeout              = 5 * time.Second
)

// SystemInfoFunc supplies the snapshot published with each heartbeat.
type SystemInfoFunc func(ctx context.Context) map[string]any

// Relay keeps the desktop visible to the mobile side and executes
// remotely queued commands. One background goroutine runs the poll
// loop; Start and Stop are idempotent.
type Relay struct {
	store      *Store
	executor   *tool.Executor
	log        *logger.Logger
	anchorID   string
	systemInfo SystemInfoFunc

	pollInterval      time.Duration
	heartbeatInterval time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// Options tune the loop intervals. Zero values mean defaults.
type Options struct {
	PollInterval      time.Duration
	HeartbeatInterval time.Duration
}

func New(store *Store, executor *tool.Executor, anchorID string, systemInfo SystemInfoFunc, log *logger.Logger, opts Options) *Relay {
	if log == nil {
		log = logger.Nop()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = defaultHeartbeatInterval
	}
	return &Relay{
		store:             store,
		executor:          executor,
		log:               log,
		anchorID:          anchorID,
		systemInfo:        systemInfo,
		pollInterval:      opts.PollInterval,
		heartbeatInterval: opts.HeartbeatInterval,
	}
}

// Running reports whether the poll loop is active.
func (r *Relay) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Start launches the poll loop. Starting an already-running relay is a
// no-op; a missing configuration refuses to start.
func (r *Relay) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return nil
	}
	if !r.store.Configured() {
		return ErrNotConfigured
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.done = make(chan struct{})
	r.running = true

	go r.runLoop(ctx)

	r.log.Info("relay started (poll %s, heartbeat %s)", r.pollInterval, r.heartbeatInterval)
	return nil
}

// Stop signals the loop to exit and waits briefly for it to finish.
// Safe to call twice and safe to call without Start.
func (r *Relay) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	cancel := r.cancel
	done := r.done
	r.mu.Unlock()

	cancel()
	select {
	case <-done:
	case <-time.After(stopTimeout):
		r.log.Warn("relay did not stop within %s", stopTimeout)
	}
	r.log.Info("relay stopped")
}

func (r *Relay) runLoop(ctx context.Context) {
	defer close(r.done)

	var lastHeartbeat time.Time

	for {
		r.cycle(ctx, &lastHeartbeat)

		select {
		case <-ctx.Done():
			return
		case <-time.After(r.pollInterval):
		}
	}
}

// cycle runs one poll iteration: heartbeat if due, then fetch and
// execute pending commands. A fault anywhere is logged and the cycle
// ends; the loop never crashes on a single failure.
func (r *Relay) cycle(ctx context.Context, lastHeartbeat *time.Time) {
	if time.Since(*lastHeartbeat) >= r.heartbeatInterval {
		if err := r.heartbeat(ctx); err != nil {
			if ctx.Err() == nil {
				r.log.Warn("heartbeat failed: %v", err)
			}
			return
		}
		*lastHeartbeat = time.Now()
	}

	commands, err := r.store.PendingCommands(ctx, commandBatchSize)
	if err != nil {
		if ctx.Err() == nil {
			r.log.Warn("command fetch failed: %v", err)
		}
		return
	}

	for _, cmd := range commands {
		if ctx.Err() != nil {
			return
		}
		r.executeCommand(ctx, cmd)
	}
}

func (r *Relay) heartbeat(ctx context.Context) error {
	var info map[string]any
	if r.systemInfo != nil {
		info = r.systemInfo(ctx)
	}
	return r.store.UpsertStatus(ctx, r.anchorID, info)
}

// executeCommand runs one remote command through its full lifecycle:
// pending -> running -> done|error.
func (r *Relay) executeCommand(ctx context.Context, cmd Command) {
	r.log.Debug("remote command %s: %s", cmd.ID, cmd.Command)

	if err := r.store.MarkRunning(ctx, cmd.ID); err != nil {
		r.log.Warn("failed to mark command %s running: %v", cmd.ID, err)
		return
	}

	result := r.executor.Execute(ctx, cmd.Command, tool.Args(cmd.Params))

	status := "done"
	if result.Failed() {
		status = "error"
	}

	if err := r.store.Complete(ctx, cmd.ID, status, result.Payload()); err != nil {
		r.log.Warn("failed to post result for command %s: %v", cmd.ID, err)
	}
}

package voice

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"sync"

	"cora/internal/logger"
)

// enginePriority lists known TTS commands, most preferred first.
var enginePriority = []string{"say", "espeak-ng", "espeak", "flite"}

// Speaker speaks text through an external TTS engine. Utterances are
// queued and spoken one at a time by a single worker goroutine, so
// overlapping Speak calls never talk over each other.
type Speaker struct {
	engine string
	rate   int
	log    *logger.Logger

	queue  chan string
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	last    string
	started bool
}

// NewSpeaker creates a speaker. An empty engine means probe the PATH for
// a known TTS command.
func NewSpeaker(engine string, rate int, log *logger.Logger) *Speaker {
	if log == nil {
		log = logger.Nop()
	}
	if engine == "" {
		engine = ProbeEngine()
	}
	if rate <= 0 {
		rate = 180
	}
	return &Speaker{
		engine: engine,
		rate:   rate,
		log:    log,
		queue:  make(chan string, 32),
	}
}

// ProbeEngine returns the first known TTS command found on the PATH, or
// empty when none is installed.
func ProbeEngine() string {
	for _, name := range enginePriority {
		if _, err := exec.LookPath(name); err == nil {
			return name
		}
	}
	return ""
}

// Engine returns the TTS command in use, empty when speech is unavailable.
func (s *Speaker) Engine() string {
	return s.engine
}

// Available reports whether a TTS engine was found.
func (s *Speaker) Available() bool {
	return s.engine != ""
}

// Start launches the speech worker. Calling Start twice is a no-op.
func (s *Speaker) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return
	}
	s.started = true

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go s.worker(ctx)
}

// Stop drains nothing: it cancels the current utterance and exits the
// worker. Safe to call without Start and safe to call twice.
func (s *Speaker) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
}

// Speak queues text for speech. When the queue is full the utterance is
// dropped rather than blocking the caller.
func (s *Speaker) Speak(text string) error {
	if text == "" {
		return nil
	}
	if !s.Available() {
		return fmt.Errorf("no TTS engine available")
	}

	s.mu.Lock()
	s.last = text
	started := s.started
	s.mu.Unlock()

	if !started {
		return fmt.Errorf("speaker not started")
	}

	select {
	case s.queue <- text:
		return nil
	default:
		s.log.Warn("speech queue full, dropping utterance")
		return fmt.Errorf("speech queue full")
	}
}

// Last returns the most recently queued utterance.
func (s *Speaker) Last() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Speaker) worker(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case text := <-s.queue:
			if err := s.speakOne(ctx, text); err != nil && ctx.Err() == nil {
				s.log.Warn("speech failed: %v", err)
			}
		}
	}
}

// speakOne blocks until the engine finishes the utterance.
func (s *Speaker) speakOne(ctx context.Context, text string) error {
	var cmd *exec.Cmd

	switch s.engine {
	case "say":
		cmd = exec.CommandContext(ctx, "say", "-r", strconv.Itoa(s.rate), text)
	case "espeak", "espeak-ng":
		cmd = exec.CommandContext(ctx, s.engine, "-s", strconv.Itoa(s.rate), text)
	case "flite":
		cmd = exec.CommandContext(ctx, "flite", "-t", text)
	default:
		return fmt.Errorf("unsupported TTS engine: %s", s.engine)
	}

	return cmd.Run()
}

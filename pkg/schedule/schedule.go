// Package schedule provides the periodic-task runner shared by gossip,
// hint sweeping, and hint replay checks — one ticker-plus-stop-channel
// loop per task.
package schedule

import (
	"time"

	"github.com/rs/zerolog"
)

// Task runs a named function on a fixed interval until stopped.
type Task struct {
	name     string
	interval time.Duration
	fn       func() error
	logger   zerolog.Logger
	stopCh   chan struct{}
}

// New creates a Task. Call Start to begin its loop.
func New(name string, interval time.Duration, logger zerolog.Logger, fn func() error) *Task {
	return &Task{
		name:     name,
		interval: interval,
		fn:       fn,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the ticker loop in a goroutine.
func (t *Task) Start() {
	go t.run()
}

// Stop ends the loop. Safe to call once.
func (t *Task) Stop() {
	close(t.stopCh)
}

func (t *Task) run() {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := t.fn(); err != nil {
				t.logger.Error().Err(err).Str("task", t.name).Msg("scheduled task failed")
			}
		case <-t.stopCh:
			return
		}
	}
}

package raft

import (
	"sync"
	"time"
)

// electionTimer is a one-shot timer that can be re-armed from many goroutines.
// Every reset and stop bumps the epoch, so a callback that was already in flight
// when it got superseded sees a stale epoch and does nothing.
type electionTimer struct {
	mu      sync.Mutex
	timer   *time.Timer
	epoch   uint64
	armed   bool
	timeout func() time.Duration
	fire    func(epoch uint64)
}

func newElectionTimer(timeout func() time.Duration, fire func(epoch uint64)) *electionTimer {
	return &electionTimer{
		timeout: timeout,
		fire:    fire,
	}
}

// reset cancels any pending expiry and schedules a new one
func (t *electionTimer) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cancelLocked()

	epoch := t.epoch
	t.armed = true
	t.timer = time.AfterFunc(t.timeout(), func() {
		t.expire(epoch)
	})
}

// stop cancels any pending expiry. Safe to call when nothing is armed.
func (t *electionTimer) stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cancelLocked()
	t.armed = false
}

// current reports whether epoch is still the latest arming
func (t *electionTimer) current(epoch uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.epoch == epoch
}

// live reports whether an expiry is pending
func (t *electionTimer) live() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.armed && t.timer != nil
}

func (t *electionTimer) cancelLocked() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}

	t.epoch++
}

func (t *electionTimer) expire(epoch uint64) {
	t.mu.Lock()
	stale := !t.armed || t.epoch != epoch
	if !stale {
		t.armed = false
		t.timer = nil
	}
	t.mu.Unlock()

	if stale {
		return
	}

	t.fire(epoch)
}

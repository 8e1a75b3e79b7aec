package raft

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	mock_raft "github.com/krantius/elkd/raft/mocks"
	"github.com/krantius/elkd/replication"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

const (
	localID = "node1"
	peer1   = "127.0.0.1:9001"
	peer2   = "127.0.0.1:9002"
)

func testConfig(timeout time.Duration) Config {
	cfg := DefaultConfig()
	cfg.ID = localID
	cfg.Peers = []string{peer1, peer2}
	cfg.ElectionTimeout = timeout
	cfg.ElectionJitter = 0
	cfg.HeartbeatInterval = 20 * time.Millisecond

	return cfg
}

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)

	return logrus.NewEntry(l)
}

func newTestRaft(t *testing.T, cfg Config, m Messenger, opts ...Option) *Raft {
	t.Helper()

	base := []Option{WithLogger(quietLogger())}
	if m != nil {
		base = append(base, WithMessenger(m))
	}

	r, err := New(cfg, nil, replication.New(nil), append(base, opts...)...)
	require.NoError(t, err)

	// Switch off whatever is active so no timer outlives the test
	t.Cleanup(func() {
		r.mu.Lock()
		r.current.Off()
		r.mu.Unlock()
	})

	return r
}

// run starts the processing loop and stops it when the test ends
func run(t *testing.T, r *Raft) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		r.Start(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		<-done
	})
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (rec *recorder) observe(e Event) {
	rec.mu.Lock()
	defer rec.mu.Unlock()

	rec.events = append(rec.events, e)
}

func (rec *recorder) names() []string {
	rec.mu.Lock()
	defer rec.mu.Unlock()

	out := make([]string, len(rec.events))
	for i, e := range rec.events {
		out[i] = fmt.Sprintf("%s %s", e.Kind, e.Role)
	}

	return out
}

func (rec *recorder) waitFor(t *testing.T, n int) {
	t.Helper()

	require.Eventually(t, func() bool {
		return len(rec.names()) >= n
	}, time.Second, 5*time.Millisecond)
}

type countingSink[T any] struct {
	mu   sync.Mutex
	n    int
	last T
}

func (s *countingSink[T]) Complete(res T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.n++
	s.last = res
}

func (s *countingSink[T]) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.n
}

func (s *countingSink[T]) response() T {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.last
}

func newMockWithPeers(ctrl *gomock.Controller, peers []string) *mock_raft.MockMessenger {
	m := mock_raft.NewMockMessenger(ctrl)
	m.EXPECT().Peers().Return(peers).AnyTimes()

	return m
}

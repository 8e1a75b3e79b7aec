package raft

//go:generate mockgen -destination=mocks/messenger.go -package=mock_raft github.com/krantius/elkd/raft Messenger

import (
	"context"
	"sync"

	"github.com/krantius/elkd/proto"
)

// State is the behavior of one role. The only implementers are the follower,
// candidate and leader delegates built by the StateFactory.
//
// On and Off are called by the coordinator with its lock held. On runs after the
// active reference points at the state, Off before it is swapped away. Delegate
// methods run under the same lock and complete their sink exactly once.
type State interface {
	Role() Role

	On()
	Off()

	DelegateAppendEntries(args proto.AppendEntriesArgs, sink Sink[proto.AppendEntriesResponse])
	DelegateRequestVote(args proto.RequestVoteArgs, sink Sink[proto.RequestVoteResponse])
}

// Sink receives the single response to an inbound RPC
type Sink[T any] interface {
	Complete(res T)
}

// ReplySink is a Sink a transport can wait on. Only the first completion is kept.
type ReplySink[T any] struct {
	once sync.Once
	ch   chan T
}

func NewReplySink[T any]() *ReplySink[T] {
	return &ReplySink[T]{ch: make(chan T, 1)}
}

func (s *ReplySink[T]) Complete(res T) {
	s.once.Do(func() {
		s.ch <- res
	})
}

// Wait blocks until the sink is completed or ctx ends
func (s *ReplySink[T]) Wait(ctx context.Context) (T, error) {
	select {
	case res := <-s.ch:
		return res, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Messenger is how the candidate and leader talk to the rest of the cluster
type Messenger interface {
	Peers() []string
	AppendEntries(ctx context.Context, peer string, args proto.AppendEntriesArgs) (proto.AppendEntriesResponse, error)
	RequestVote(ctx context.Context, peer string, args proto.RequestVoteArgs) (proto.RequestVoteResponse, error)
}

// LogEngine is the replicated log the roles consult for consistency and vote checks
type LogEngine interface {
	Append(args proto.AppendEntriesArgs) bool
	Last() (index, term int)
	CommitIndex() int
	UpToDate(lastIndex, lastTerm int) bool
}

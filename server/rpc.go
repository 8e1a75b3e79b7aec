package server

import (
	"context"
	"time"

	"github.com/krantius/elkd/proto"
	"github.com/krantius/elkd/raft"
)

// Coordinator is the part of the raft node the transport talks to
type Coordinator interface {
	DelegateAppendEntries(args proto.AppendEntriesArgs, sink raft.Sink[proto.AppendEntriesResponse]) error
	DelegateRequestVote(args proto.RequestVoteArgs, sink raft.Sink[proto.RequestVoteResponse]) error
	Status() raft.Status
}

// RPCService is registered under the name "Raft" and forwards every call to the
// coordinator, waiting for the role to complete the response.
type RPCService struct {
	raft    Coordinator
	timeout time.Duration
}

func NewRPCService(c Coordinator, timeout time.Duration) *RPCService {
	return &RPCService{
		raft:    c,
		timeout: timeout,
	}
}

func (s *RPCService) AppendEntries(args proto.AppendEntriesArgs, res *proto.AppendEntriesResponse) error {
	sink := raft.NewReplySink[proto.AppendEntriesResponse]()

	if err := s.raft.DelegateAppendEntries(args, sink); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	out, err := sink.Wait(ctx)
	if err != nil {
		return err
	}

	*res = out

	return nil
}

func (s *RPCService) RequestVote(args proto.RequestVoteArgs, res *proto.RequestVoteResponse) error {
	sink := raft.NewReplySink[proto.RequestVoteResponse]()

	if err := s.raft.DelegateRequestVote(args, sink); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	out, err := sink.Wait(ctx)
	if err != nil {
		return err
	}

	*res = out

	return nil
}

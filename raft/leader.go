package raft

import (
	"context"
	"sync"
	"time"

	"github.com/krantius/elkd/proto"
	"github.com/sirupsen/logrus"
)

// leader broadcasts heartbeats for as long as it is active
type leader struct {
	raft      *Raft
	messenger Messenger
	interval  time.Duration
	logger    *logrus.Entry

	mu       sync.Mutex
	cancel   context.CancelFunc
	inflight map[string]bool
	wg       sync.WaitGroup
}

func newLeader(r *Raft, m Messenger) *leader {
	return &leader{
		raft:      r,
		messenger: m,
		interval:  r.cfg.HeartbeatInterval,
		logger:    r.logger.WithField("role", Leader.String()),
		inflight:  make(map[string]bool),
	}
}

func (l *leader) Role() Role {
	return Leader
}

func (l *leader) On() {
	r := l.raft
	r.leaderID = r.id

	term := r.term

	ctx, cancel := context.WithCancel(context.Background())

	l.mu.Lock()
	l.cancel = cancel
	l.mu.Unlock()

	l.logger.Infof("Becoming leader for term %d", term)

	l.wg.Add(1)
	go l.heartbeat(ctx, term)
}

// Off stops the heartbeat loop and waits for every send of this tenure
func (l *leader) Off() {
	l.mu.Lock()
	cancel := l.cancel
	l.cancel = nil
	l.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	l.wg.Wait()

	l.logger.Debug("leader offline")
}

// DelegateAppendEntries rejects, another leader of the same term cannot exist
func (l *leader) DelegateAppendEntries(args proto.AppendEntriesArgs, sink Sink[proto.AppendEntriesResponse]) {
	if args.Term == l.raft.term {
		l.logger.Warnf("%s claims leadership of term %d", args.LeaderID, args.Term)
	}

	sink.Complete(proto.AppendEntriesResponse{Term: l.raft.term})
}

// DelegateRequestVote rejects. A newer term would already have made this node
// a follower before the request got here.
func (l *leader) DelegateRequestVote(args proto.RequestVoteArgs, sink Sink[proto.RequestVoteResponse]) {
	sink.Complete(proto.RequestVoteResponse{Term: l.raft.term})
}

func (l *leader) heartbeat(ctx context.Context, term int) {
	defer l.wg.Done()

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		l.broadcast(ctx, term)

		select {
		case <-ticker.C:
		case <-ctx.Done():
			l.logger.Debugf("heartbeat stopping for term %d", term)
			return
		}
	}
}

func (l *leader) broadcast(ctx context.Context, term int) {
	lastIndex, lastTerm := l.raft.log.Last()

	args := proto.AppendEntriesArgs{
		Term:         term,
		LeaderID:     l.raft.id,
		PrevLogIndex: lastIndex,
		PrevLogTerm:  lastTerm,
		LeaderCommit: l.raft.log.CommitIndex(),
	}

	for _, peer := range l.messenger.Peers() {
		l.mu.Lock()
		if l.inflight[peer] {
			// Previous heartbeat to this peer has not come back yet
			l.mu.Unlock()
			continue
		}
		l.inflight[peer] = true
		l.mu.Unlock()

		l.wg.Add(1)
		go l.send(ctx, peer, args)
	}
}

func (l *leader) send(ctx context.Context, peer string, args proto.AppendEntriesArgs) {
	defer l.wg.Done()

	defer func() {
		l.mu.Lock()
		delete(l.inflight, peer)
		l.mu.Unlock()
	}()

	res, err := l.messenger.AppendEntries(ctx, peer, args)
	if err != nil {
		return
	}

	if res.Term > args.Term {
		l.logger.Infof("%s is at term %d, stepping down", peer, res.Term)
		l.raft.stepDown(res.Term)
	}
}

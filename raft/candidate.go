package raft

import (
	"context"
	"sync"

	"github.com/krantius/elkd/proto"
	"github.com/sirupsen/logrus"
)

// candidate runs one election per activation. A timeout re-enters the role,
// which starts a new term.
type candidate struct {
	raft      *Raft
	messenger Messenger
	timer     *electionTimer
	logger    *logrus.Entry

	mu     sync.Mutex
	epoch  uint64
	votes  map[string]bool
	cancel context.CancelFunc
}

func newCandidate(r *Raft, m Messenger) *candidate {
	c := &candidate{
		raft:      r,
		messenger: m,
		logger:    r.logger.WithField("role", Candidate.String()),
	}

	c.timer = newElectionTimer(r.electionTimeout, c.timeout)

	return c
}

func (c *candidate) Role() Role {
	return Candidate
}

func (c *candidate) On() {
	r := c.raft

	r.term++
	r.votedFor = r.id
	r.leaderID = ""

	lastIndex, lastTerm := r.log.Last()
	args := proto.RequestVoteArgs{
		Term:         r.term,
		CandidateID:  r.id,
		LastLogIndex: lastIndex,
		LastLogTerm:  lastTerm,
	}

	peers := c.messenger.Peers()

	c.mu.Lock()
	c.epoch++
	epoch := c.epoch
	c.votes = map[string]bool{r.id: true}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.mu.Unlock()

	c.logger.Infof("Starting election for term %d", args.Term)

	c.timer.reset()

	if quorum(len(peers)) == 1 {
		c.won(epoch)
		return
	}

	for _, peer := range peers {
		go c.solicit(ctx, epoch, peer, args, len(peers))
	}
}

func (c *candidate) Off() {
	c.timer.stop()

	c.mu.Lock()
	c.epoch++
	c.votes = nil
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.mu.Unlock()

	c.logger.Debug("offline")
}

// DelegateAppendEntries steps down for a leader of the current term and lets
// the follower handle the request
func (c *candidate) DelegateAppendEntries(args proto.AppendEntriesArgs, sink Sink[proto.AppendEntriesResponse]) {
	r := c.raft

	if args.Term < r.term {
		sink.Complete(proto.AppendEntriesResponse{Term: r.term})
		return
	}

	c.logger.Infof("%s is leader for term %d, stepping down", args.LeaderID, args.Term)

	if err := r.transitionLocked(Follower); err != nil {
		sink.Complete(proto.AppendEntriesResponse{Term: r.term})
		return
	}

	r.current.DelegateAppendEntries(args, sink)
}

// DelegateRequestVote never grants, the candidate already voted for itself.
// Requests from newer terms were turned into a step down by the coordinator.
func (c *candidate) DelegateRequestVote(args proto.RequestVoteArgs, sink Sink[proto.RequestVoteResponse]) {
	sink.Complete(proto.RequestVoteResponse{Term: c.raft.term})
}

func (c *candidate) solicit(ctx context.Context, epoch uint64, peer string, args proto.RequestVoteArgs, peers int) {
	res, err := c.messenger.RequestVote(ctx, peer, args)
	if err != nil {
		return
	}

	if res.Term > args.Term {
		c.raft.stepDown(res.Term)
		return
	}

	if !res.VoteGranted {
		return
	}

	c.mu.Lock()
	if c.epoch != epoch || c.votes == nil {
		c.mu.Unlock()
		return
	}

	c.votes[peer] = true
	won := len(c.votes) == quorum(peers)
	c.mu.Unlock()

	c.logger.Debugf("Got vote from %s", peer)

	if won {
		c.won(epoch)
	}
}

func (c *candidate) won(epoch uint64) {
	c.logger.Info("Won election")

	c.raft.requestTransition(c, Leader, func() bool {
		return c.live(epoch)
	})
}

func (c *candidate) live(epoch uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.epoch == epoch && c.votes != nil
}

func (c *candidate) timeout(epoch uint64) {
	c.logger.Info("Election timed out, starting a new one")

	c.raft.requestTransition(c, Candidate, func() bool {
		return c.timer.current(epoch)
	})
}

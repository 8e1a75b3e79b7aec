package raft

import (
	"github.com/krantius/elkd/proto"
	"github.com/sirupsen/logrus"
)

// follower waits for a leader. If nothing arrives before the election timer
// expires it asks to become a candidate.
type follower struct {
	raft   *Raft
	timer  *electionTimer
	logger *logrus.Entry
}

func newFollower(r *Raft) *follower {
	f := &follower{
		raft:   r,
		logger: r.logger.WithField("role", Follower.String()),
	}

	f.timer = newElectionTimer(r.electionTimeout, f.timeout)

	return f
}

func (f *follower) Role() Role {
	return Follower
}

func (f *follower) On() {
	f.logger.Debug("ready")
	f.timer.reset()
}

func (f *follower) Off() {
	f.logger.Debug("offline")
	f.timer.stop()
}

func (f *follower) DelegateAppendEntries(args proto.AppendEntriesArgs, sink Sink[proto.AppendEntriesResponse]) {
	r := f.raft

	res := proto.AppendEntriesResponse{Term: r.term}

	if args.Term >= r.term {
		if args.Heartbeat() {
			f.logger.Tracef("Heartbeat from %s", args.LeaderID)
		} else {
			f.logger.Debugf("Appending %d entries from %s", len(args.Entries), args.LeaderID)
		}

		r.leaderID = args.LeaderID
		res.Success = r.log.Append(args)
	}

	sink.Complete(res)

	// Hearing from the leader means it is alive
	f.timer.reset()
}

func (f *follower) DelegateRequestVote(args proto.RequestVoteArgs, sink Sink[proto.RequestVoteResponse]) {
	r := f.raft

	res := proto.RequestVoteResponse{Term: r.term}

	if args.Term == r.term &&
		(r.votedFor == "" || r.votedFor == args.CandidateID) &&
		r.log.UpToDate(args.LastLogIndex, args.LastLogTerm) {
		f.logger.Infof("Voting for %s in term %d", args.CandidateID, args.Term)

		r.votedFor = args.CandidateID
		res.VoteGranted = true
	}

	sink.Complete(res)
	f.timer.reset()
}

func (f *follower) timeout(epoch uint64) {
	f.logger.Info("Election timeout, becoming candidate")

	f.raft.requestTransition(f, Candidate, func() bool {
		return f.timer.current(epoch)
	})
}

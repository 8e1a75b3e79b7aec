package raft

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/krantius/elkd/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type heartbeatCounter struct {
	mu    sync.Mutex
	sent  map[string]int
	terms map[int]bool
}

func (h *heartbeatCounter) appendEntries(_ context.Context, peer string, args proto.AppendEntriesArgs) (proto.AppendEntriesResponse, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.sent[peer]++
	h.terms[args.Term] = true

	return proto.AppendEntriesResponse{Term: args.Term, Success: true}, nil
}

func (h *heartbeatCounter) count(peer string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.sent[peer]
}

func newLeaderRaft(t *testing.T, cfg Config) (*Raft, *heartbeatCounter) {
	m := newMessengerMock(t)
	grantVotes(m, false)

	h := &heartbeatCounter{sent: make(map[string]int), terms: make(map[int]bool)}
	m.EXPECT().AppendEntries(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(h.appendEntries).AnyTimes()

	r := newTestRaft(t, cfg, m)
	require.NoError(t, r.Transition(Candidate))
	require.NoError(t, r.Transition(Leader))

	return r, h
}

func TestLeaderSendsHeartbeats(t *testing.T) {
	r, h := newLeaderRaft(t, testConfig(time.Second))

	time.Sleep(110 * time.Millisecond)

	assert.GreaterOrEqual(t, h.count(peer1), 3)
	assert.GreaterOrEqual(t, h.count(peer2), 3)

	h.mu.Lock()
	assert.Equal(t, map[int]bool{1: true}, h.terms)
	h.mu.Unlock()

	require.NoError(t, r.Transition(Follower))

	after1, after2 := h.count(peer1), h.count(peer2)
	time.Sleep(60 * time.Millisecond)

	// Nothing is sent once the leader is off
	assert.Equal(t, after1, h.count(peer1))
	assert.Equal(t, after2, h.count(peer2))
}

func TestLeaderFirstHeartbeatIsImmediate(t *testing.T) {
	cfg := testConfig(2 * time.Second)
	cfg.HeartbeatInterval = time.Second

	_, h := newLeaderRaft(t, cfg)

	require.Eventually(t, func() bool {
		return h.count(peer1) > 0 && h.count(peer2) > 0
	}, 500*time.Millisecond, 5*time.Millisecond)
}

func TestLeaderStepsDownOnNewerTermResponse(t *testing.T) {
	m := newMessengerMock(t)
	grantVotes(m, true)
	m.EXPECT().AppendEntries(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(proto.AppendEntriesResponse{Term: 9}, nil).AnyTimes()

	r := newTestRaft(t, testConfig(time.Second), m)
	run(t, r)

	require.NoError(t, r.Transition(Leader))

	require.Eventually(t, func() bool {
		return r.Role() == Follower && r.Term() == 9
	}, time.Second, 5*time.Millisecond)
}

func TestLeaderRejectsSameTermRPCs(t *testing.T) {
	r, _ := newLeaderRaft(t, testConfig(time.Second))

	ae := &countingSink[proto.AppendEntriesResponse]{}
	require.NoError(t, r.DelegateAppendEntries(heartbeatFrom("rival", 1), ae))
	assert.Equal(t, proto.AppendEntriesResponse{Term: 1}, ae.response())

	rv := &countingSink[proto.RequestVoteResponse]{}
	require.NoError(t, r.DelegateRequestVote(proto.RequestVoteArgs{Term: 1, CandidateID: "rival"}, rv))
	assert.Equal(t, proto.RequestVoteResponse{Term: 1}, rv.response())

	assert.Equal(t, Leader, r.Role())
}

func TestLeaderStepsDownForNewerVoteRequest(t *testing.T) {
	r, _ := newLeaderRaft(t, testConfig(time.Second))

	rv := &countingSink[proto.RequestVoteResponse]{}
	require.NoError(t, r.DelegateRequestVote(proto.RequestVoteArgs{Term: 2, CandidateID: "rival"}, rv))

	assert.Equal(t, proto.RequestVoteResponse{Term: 2, VoteGranted: true}, rv.response())
	assert.Equal(t, Follower, r.Role())
	assert.Equal(t, "rival", r.Status().VotedFor)
}

func TestLeaderOffDoesNotWaitForStuckPeers(t *testing.T) {
	m := newMessengerMock(t)
	grantVotes(m, false)

	stuck := make(chan string, 2)
	m.EXPECT().AppendEntries(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, peer string, _ proto.AppendEntriesArgs) (proto.AppendEntriesResponse, error) {
			stuck <- peer
			<-ctx.Done()
			return proto.AppendEntriesResponse{}, ctx.Err()
		}).Times(2)

	r := newTestRaft(t, testConfig(time.Second), m)
	require.NoError(t, r.Transition(Candidate))
	require.NoError(t, r.Transition(Leader))

	assert.ElementsMatch(t, []string{peer1, peer2}, []string{<-stuck, <-stuck})

	start := time.Now()
	require.NoError(t, r.Transition(Follower))
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

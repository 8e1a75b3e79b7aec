package raft

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/krantius/elkd/cluster"
	"github.com/krantius/elkd/proto"
	"github.com/krantius/elkd/replication"
	"github.com/sirupsen/logrus"
)

var ErrNilSink = errors.New("nil response sink")

// Raft is the coordinator of a single node. It holds the active role and hands
// every inbound RPC to it.
type Raft struct {
	id      string
	cfg     Config
	pool    *cluster.Pool
	log     LogEngine
	factory *StateFactory
	logger  *logrus.Entry

	observers         []Observer
	messengerOverride Messenger

	// Guards the active role and the term context
	mu          sync.Mutex
	current     State
	term        int
	votedFor    string
	leaderID    string
	transitions uint64

	// Transition requests from timers and background RPCs
	qmu   sync.Mutex
	queue []transitionRequest
	wake  chan struct{}

	randMu sync.Mutex
	rand   *rand.Rand
}

type transitionRequest struct {
	from  State
	to    Role
	term  int
	valid func() bool
}

type Option func(*Raft)

// WithMessenger replaces the messenger built from the connection pool
func WithMessenger(m Messenger) Option {
	return func(r *Raft) {
		r.messengerOverride = m
	}
}

func WithObserver(o Observer) Option {
	return func(r *Raft) {
		r.observers = append(r.observers, o)
	}
}

func WithLogger(l *logrus.Entry) Option {
	return func(r *Raft) {
		r.logger = l
	}
}

// New creates a coordinator starting as a follower. A nil pool is built from
// cfg.Peers, a nil engine is an empty in-memory log.
func New(cfg Config, pool *cluster.Pool, engine LogEngine, opts ...Option) (*Raft, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if pool == nil {
		pool = cluster.NewPool(cfg.Peers, cfg.DialTimeout)
	}

	if engine == nil {
		engine = replication.New(nil)
	}

	r := &Raft{
		id:     cfg.ID,
		cfg:    cfg,
		pool:   pool,
		log:    engine,
		logger: logrus.WithField("node", cfg.ID),
		wake:   make(chan struct{}, 1),
		rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	for _, opt := range opts {
		opt(r)
	}

	factory, err := NewStateFactory(r)
	if err != nil {
		return nil, err
	}

	r.factory = factory
	r.current = factory.Initial()

	return r, nil
}

// Start switches on the initial role and processes transition requests until
// ctx is done. The active role is switched off before Start returns.
func (r *Raft) Start(ctx context.Context) {
	r.mu.Lock()
	r.current.On()
	r.emit(Entered, r.current.Role())
	r.mu.Unlock()

	for {
		select {
		case <-r.wake:
			r.drain()
		case <-ctx.Done():
			r.mu.Lock()
			r.current.Off()
			r.emit(Exited, r.current.Role())
			r.mu.Unlock()

			r.logger.Info("Raft exiting")
			return
		}
	}
}

// Transition switches the active role
func (r *Raft) Transition(role Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.transitionLocked(role)
}

// DelegateAppendEntries hands a decoded AppendEntries to the active role
func (r *Raft) DelegateAppendEntries(args proto.AppendEntriesArgs, sink Sink[proto.AppendEntriesResponse]) error {
	if sink == nil {
		return ErrNilSink
	}

	if err := args.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.observeTerm(args.Term)
	r.current.DelegateAppendEntries(args, sink)

	return nil
}

// DelegateRequestVote hands a decoded RequestVote to the active role
func (r *Raft) DelegateRequestVote(args proto.RequestVoteArgs, sink Sink[proto.RequestVoteResponse]) error {
	if sink == nil {
		return ErrNilSink
	}

	if err := args.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.observeTerm(args.Term)
	r.current.DelegateRequestVote(args, sink)

	return nil
}

// Pool is the connection pool the messenger is built from
func (r *Raft) Pool() *cluster.Pool {
	return r.pool
}

func (r *Raft) ID() string {
	return r.id
}

func (r *Raft) Role() Role {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.current.Role()
}

func (r *Raft) Term() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.term
}

type Status struct {
	ID          string `json:"id"`
	Role        string `json:"role"`
	Term        int    `json:"term"`
	VotedFor    string `json:"votedFor,omitempty"`
	Leader      string `json:"leader,omitempty"`
	Transitions uint64 `json:"transitions"`
	LastIndex   int    `json:"lastIndex"`
	LastTerm    int    `json:"lastTerm"`
	CommitIndex int    `json:"commitIndex"`
}

func (r *Raft) Status() Status {
	r.mu.Lock()
	s := Status{
		ID:          r.id,
		Role:        r.current.Role().String(),
		Term:        r.term,
		VotedFor:    r.votedFor,
		Leader:      r.leaderID,
		Transitions: r.transitions,
	}
	r.mu.Unlock()

	s.LastIndex, s.LastTerm = r.log.Last()
	s.CommitIndex = r.log.CommitIndex()

	return s
}

func (r *Raft) transitionLocked(role Role) error {
	next, err := r.factory.Delegate(role)
	if err != nil {
		r.logger.Errorf("Transition failed: %v", err)
		return err
	}

	prev := r.current

	prev.Off()
	r.emit(Exited, prev.Role())

	r.current = next
	r.transitions++

	next.On()
	r.emit(Entered, next.Role())

	return nil
}

// observeTerm adopts a newer term and steps down to follower
func (r *Raft) observeTerm(term int) {
	if term <= r.term {
		return
	}

	r.logger.Debugf("Observed newer term %d (was %d)", term, r.term)

	r.term = term
	r.votedFor = ""
	r.leaderID = ""

	if !r.current.Role().IsFollower() {
		r.transitionLocked(Follower)
	}
}

// requestTransition asks the processing loop to move from one role to another.
// The request is dropped if from is no longer active or valid reports false.
func (r *Raft) requestTransition(from State, to Role, valid func() bool) {
	r.post(transitionRequest{
		from:  from,
		to:    to,
		valid: valid,
	})
}

// stepDown asks the processing loop to adopt a newer term seen in an RPC response
func (r *Raft) stepDown(term int) {
	r.post(transitionRequest{
		to:   Follower,
		term: term,
	})
}

func (r *Raft) post(req transitionRequest) {
	r.qmu.Lock()
	r.queue = append(r.queue, req)
	r.qmu.Unlock()

	select {
	case r.wake <- struct{}{}:
	default:
	}
}

func (r *Raft) pending() []transitionRequest {
	r.qmu.Lock()
	defer r.qmu.Unlock()

	reqs := r.queue
	r.queue = nil

	return reqs
}

func (r *Raft) drain() {
	for _, req := range r.pending() {
		r.mu.Lock()
		r.apply(req)
		r.mu.Unlock()
	}
}

func (r *Raft) apply(req transitionRequest) {
	if req.term > 0 {
		r.observeTerm(req.term)
		return
	}

	if req.from != r.current {
		r.logger.Debugf("Dropping stale transition to %s", req.to)
		return
	}

	if req.valid != nil && !req.valid() {
		r.logger.Debugf("Dropping superseded transition to %s", req.to)
		return
	}

	r.transitionLocked(req.to)
}

func (r *Raft) emit(kind EventKind, role Role) {
	e := Event{
		Kind: kind,
		Role: role,
		Term: r.term,
		At:   time.Now(),
	}

	for _, o := range r.observers {
		o(e)
	}
}

func (r *Raft) messenger() Messenger {
	if r.messengerOverride != nil {
		return r.messengerOverride
	}

	return cluster.NewMessenger(r.pool, r.cfg.RPCTimeout)
}

// electionTimeout draws a fresh timeout so nodes do not keep splitting votes
func (r *Raft) electionTimeout() time.Duration {
	if r.cfg.ElectionJitter <= 0 {
		return r.cfg.ElectionTimeout
	}

	r.randMu.Lock()
	defer r.randMu.Unlock()

	return r.cfg.ElectionTimeout + time.Duration(r.rand.Int63n(int64(r.cfg.ElectionJitter)))
}

// quorum is the number of votes, own included, that wins an election
func quorum(peers int) int {
	return (peers+1)/2 + 1
}

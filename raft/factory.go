package raft

import (
	"errors"
	"fmt"
	"sync"
)

var (
	ErrUnknownRole    = errors.New("unknown raft role")
	ErrNilCoordinator = errors.New("nil raft coordinator")
)

// StateFactory owns the one delegate per role that a coordinator switches between
type StateFactory struct {
	raft *Raft

	once     sync.Once
	registry map[Role]State
}

func NewStateFactory(r *Raft) (*StateFactory, error) {
	if r == nil {
		return nil, ErrNilCoordinator
	}

	return &StateFactory{raft: r}, nil
}

// Initial returns the role every node starts in
func (f *StateFactory) Initial() State {
	s, _ := f.Delegate(Follower)
	return s
}

// Delegate returns the cached delegate for role
func (f *StateFactory) Delegate(role Role) (State, error) {
	f.once.Do(f.build)

	s, ok := f.registry[role]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRole, role)
	}

	return s, nil
}

func (f *StateFactory) build() {
	messenger := f.raft.messenger()

	f.registry = map[Role]State{
		Follower:  newFollower(f.raft),
		Candidate: newCandidate(f.raft, messenger),
		Leader:    newLeader(f.raft, messenger),
	}
}

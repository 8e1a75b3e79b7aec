package proto

import (
	"errors"
	"fmt"
)

// ErrMalformed is returned for requests that cannot be handed to a role
var ErrMalformed = errors.New("malformed request")

type AppendEntriesArgs struct {
	Term         int
	LeaderID     string
	PrevLogIndex int
	PrevLogTerm  int
	Entries      []LogEntry
	LeaderCommit int
}

// Heartbeat reports whether the request carries no entries
func (a AppendEntriesArgs) Heartbeat() bool {
	return len(a.Entries) == 0
}

func (a AppendEntriesArgs) Validate() error {
	if a.Term < 0 {
		return fmt.Errorf("%w: negative term %d", ErrMalformed, a.Term)
	}

	if a.LeaderID == "" {
		return fmt.Errorf("%w: missing leader id", ErrMalformed)
	}

	if a.PrevLogIndex < 0 || a.LeaderCommit < 0 {
		return fmt.Errorf("%w: negative index prev=%d commit=%d", ErrMalformed, a.PrevLogIndex, a.LeaderCommit)
	}

	return nil
}

type AppendEntriesResponse struct {
	Term    int
	Success bool
}

type RequestVoteArgs struct {
	Term         int
	CandidateID  string
	LastLogIndex int
	LastLogTerm  int
}

func (a RequestVoteArgs) Validate() error {
	if a.Term < 0 {
		return fmt.Errorf("%w: negative term %d", ErrMalformed, a.Term)
	}

	if a.CandidateID == "" {
		return fmt.Errorf("%w: missing candidate id", ErrMalformed)
	}

	if a.LastLogIndex < 0 {
		return fmt.Errorf("%w: negative last log index %d", ErrMalformed, a.LastLogIndex)
	}

	return nil
}

type RequestVoteResponse struct {
	Term        int
	VoteGranted bool
}

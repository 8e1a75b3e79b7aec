package raft

import "fmt"

// Role is one of the three positions a node can hold in the cluster
type Role int

const (
	Follower Role = iota
	Candidate
	Leader
)

var roleNames = []string{
	"follower",
	"candidate",
	"leader",
}

func (r Role) String() string {
	if !r.Valid() {
		return fmt.Sprintf("role(%d)", int(r))
	}

	return roleNames[r]
}

func (r Role) Valid() bool {
	return r >= Follower && r <= Leader
}

func (r Role) IsFollower() bool {
	return r == Follower
}

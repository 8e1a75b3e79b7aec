package proto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppendEntriesValidate(t *testing.T) {
	cases := []struct {
		name  string
		args  AppendEntriesArgs
		valid bool
	}{
		{"Heartbeat", AppendEntriesArgs{Term: 1, LeaderID: "a"}, true},
		{"Missing leader", AppendEntriesArgs{Term: 1}, false},
		{"Negative term", AppendEntriesArgs{Term: -1, LeaderID: "a"}, false},
		{"Negative prev index", AppendEntriesArgs{Term: 1, LeaderID: "a", PrevLogIndex: -1}, false},
		{"Negative commit", AppendEntriesArgs{Term: 1, LeaderID: "a", LeaderCommit: -2}, false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.args.Validate()
			if c.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrMalformed)
			}
		})
	}
}

func TestRequestVoteValidate(t *testing.T) {
	assert.NoError(t, RequestVoteArgs{Term: 0, CandidateID: "a"}.Validate())
	assert.ErrorIs(t, RequestVoteArgs{Term: 1}.Validate(), ErrMalformed)
	assert.ErrorIs(t, RequestVoteArgs{Term: -1, CandidateID: "a"}.Validate(), ErrMalformed)
	assert.ErrorIs(t, RequestVoteArgs{Term: 1, CandidateID: "a", LastLogIndex: -1}.Validate(), ErrMalformed)
}

func TestHeartbeat(t *testing.T) {
	assert.True(t, AppendEntriesArgs{}.Heartbeat())
	assert.False(t, AppendEntriesArgs{Entries: []LogEntry{{Term: 1, Index: 1}}}.Heartbeat())
}

package replication

import (
	"sync"

	"github.com/krantius/elkd/proto"
	log "github.com/sirupsen/logrus"
)

// Log holds the replicated entries of a single node. Index 0 means "no entry",
// so the first entry lives at index 1.
type Log struct {
	mu          sync.Mutex
	commitIndex int
	entries     []proto.LogEntry
	fsm         Store
}

func New(fsm Store) *Log {
	return &Log{fsm: fsm}
}

// Append is called when a leader requests a follower to append entries
func (l *Log) Append(args proto.AppendEntriesArgs) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	log.Tracef("term=%d prevIndex=%d prevTerm=%d commitIndex=%d entriesLen=%d",
		args.Term, args.PrevLogIndex, args.PrevLogTerm, args.LeaderCommit, len(args.Entries))

	if args.PrevLogIndex > len(l.entries) {
		return false
	}

	if args.PrevLogIndex > 0 && l.entries[args.PrevLogIndex-1].Term != args.PrevLogTerm {
		return false
	}

	for i, e := range args.Entries {
		idx := args.PrevLogIndex + i + 1

		if idx <= len(l.entries) {
			if l.entries[idx-1].Term == e.Term {
				continue
			}

			if idx <= l.commitIndex {
				log.Errorf("Leader tried to overwrite committed index %d", idx)
				return false
			}

			// Trim off the conflicting suffix
			l.entries = l.entries[:idx-1]
		}

		e.Index = idx
		l.entries = append(l.entries, e)
	}

	l.commit(min(args.LeaderCommit, args.PrevLogIndex+len(args.Entries)))

	return true
}

// AppendCommand adds a locally proposed command at the given term
func (l *Log) AppendCommand(term int, c proto.Command) proto.LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	le := proto.LogEntry{
		Term:  term,
		Index: len(l.entries) + 1,
		Cmd:   c,
	}

	l.entries = append(l.entries, le)

	return le
}

// Last returns the index and term of the newest entry, zeros for an empty log
func (l *Log) Last() (index, term int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.entries) == 0 {
		return 0, 0
	}

	last := l.entries[len(l.entries)-1]
	return last.Index, last.Term
}

// UpToDate reports whether a candidate log ending at (lastIndex, lastTerm) is at
// least as up to date as this one
func (l *Log) UpToDate(lastIndex, lastTerm int) bool {
	index, term := l.Last()

	if lastTerm != term {
		return lastTerm > term
	}

	return lastIndex >= index
}

func (l *Log) CommitIndex() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.commitIndex
}

// commit marks everything up to index as committed and applies it to the fsm
func (l *Log) commit(index int) {
	if index > len(l.entries) {
		index = len(l.entries)
	}

	if l.commitIndex >= index {
		return
	}

	for _, e := range l.entries[l.commitIndex:index] {
		apply(l.fsm, e.Cmd)
	}

	l.commitIndex = index

	log.Debugf("Committed up to index %d", index)
}

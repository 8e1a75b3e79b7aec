package raft

import (
	"time"

	"github.com/sirupsen/logrus"
)

type EventKind int

const (
	Entered EventKind = iota
	Exited
)

func (k EventKind) String() string {
	if k == Entered {
		return "entered"
	}

	return "exited"
}

// Event is emitted whenever a role is switched on or off
type Event struct {
	Kind EventKind
	Role Role
	Term int
	At   time.Time
}

// Observer receives events under the coordinator lock. It must return quickly
// and must not call back into the coordinator.
type Observer func(Event)

// LogObserver writes every role change to logger
func LogObserver(logger logrus.FieldLogger) Observer {
	return func(e Event) {
		logger.WithFields(logrus.Fields{
			"role": e.Role.String(),
			"term": e.Term,
		}).Infof("%s %s", e.Kind, e.Role)
	}
}

package cluster

import (
	"context"
	"net/rpc"
	"time"

	"github.com/krantius/elkd/proto"
	log "github.com/sirupsen/logrus"
)

const (
	appendEntriesMethod = "Raft.AppendEntries"
	requestVoteMethod   = "Raft.RequestVote"
)

// Messenger sends node to node RPCs over the pool. Delivery is best effort.
type Messenger struct {
	pool    *Pool
	timeout time.Duration
}

func NewMessenger(pool *Pool, timeout time.Duration) *Messenger {
	return &Messenger{
		pool:    pool,
		timeout: timeout,
	}
}

func (m *Messenger) Peers() []string {
	return m.pool.Peers()
}

func (m *Messenger) AppendEntries(ctx context.Context, peer string, args proto.AppendEntriesArgs) (proto.AppendEntriesResponse, error) {
	return call[proto.AppendEntriesResponse](ctx, m, peer, appendEntriesMethod, args)
}

func (m *Messenger) RequestVote(ctx context.Context, peer string, args proto.RequestVoteArgs) (proto.RequestVoteResponse, error) {
	return call[proto.RequestVoteResponse](ctx, m, peer, requestVoteMethod, args)
}

// call sends one request to peer. The reply is only read once net/rpc is done
// with it, a reply arriving after ctx ended is decoded into a value nobody reads.
func call[R any](ctx context.Context, m *Messenger, peer, method string, args interface{}) (R, error) {
	var zero R

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	client, err := m.pool.Client(ctx, peer)
	if err != nil {
		log.Debugf("node unreachable: %s: %v", peer, err)
		return zero, err
	}

	reply := new(R)
	c := client.Go(method, args, reply, make(chan *rpc.Call, 1))

	select {
	case <-c.Done:
		if c.Error != nil {
			if _, ok := c.Error.(rpc.ServerError); !ok {
				// Connection is broken, redial next time
				m.pool.Drop(peer)
			}

			log.Debugf("%s to %s failed: %v", method, peer, c.Error)
			return zero, c.Error
		}

		return *reply, nil
	case <-ctx.Done():
		log.Debugf("node unreachable: %s: %v", peer, ctx.Err())
		return zero, ctx.Err()
	}
}

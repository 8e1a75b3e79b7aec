package cluster

import (
	"context"
	"errors"
	"net"
	"net/rpc"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// ErrUnknownPeer is returned when asking for a connection to a node outside the cluster
var ErrUnknownPeer = errors.New("unknown peer")

// Pool keeps one rpc client per peer, dialed on first use. Dials run outside
// the pool lock and at most one dial per peer is in flight.
type Pool struct {
	mu      sync.Mutex
	peers   []string
	clients map[string]*rpc.Client
	dialing map[string]chan struct{}

	dial func(ctx context.Context, network, addr string) (net.Conn, error)
}

func NewPool(peers []string, dialTimeout time.Duration) *Pool {
	clean := make([]string, 0, len(peers))
	for _, p := range peers {
		if p != "" {
			clean = append(clean, p)
		}
	}

	dialing := make(map[string]chan struct{}, len(clean))
	for _, p := range clean {
		dialing[p] = make(chan struct{}, 1)
	}

	return &Pool{
		peers:   clean,
		clients: make(map[string]*rpc.Client, len(clean)),
		dialing: dialing,
		dial:    (&net.Dialer{Timeout: dialTimeout}).DialContext,
	}
}

// Peers returns the addresses of every other node in the cluster
func (p *Pool) Peers() []string {
	out := make([]string, len(p.peers))
	copy(out, p.peers)

	return out
}

// Client returns the cached client for peer, dialing if there is none. The dial
// gives up when ctx is done.
func (p *Pool) Client(ctx context.Context, peer string) (*rpc.Client, error) {
	if !p.known(peer) {
		return nil, ErrUnknownPeer
	}

	if c, ok := p.cached(peer); ok {
		return c, nil
	}

	slot := p.dialing[peer]

	select {
	case slot <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-slot }()

	// Someone else may have connected while we waited for the slot
	if c, ok := p.cached(peer); ok {
		return c, nil
	}

	conn, err := p.dial(ctx, "tcp", peer)
	if err != nil {
		return nil, err
	}

	c := rpc.NewClient(conn)

	p.mu.Lock()
	p.clients[peer] = c
	p.mu.Unlock()

	log.Debugf("Connected to %s", peer)

	return c, nil
}

func (p *Pool) cached(peer string) (*rpc.Client, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	c, ok := p.clients[peer]
	return c, ok
}

// Drop closes and forgets the client for peer so the next call redials
func (p *Pool) Drop(peer string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.clients[peer]; ok {
		c.Close()
		delete(p.clients, peer)
	}
}

func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for peer, c := range p.clients {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(p.clients, peer)
	}

	return firstErr
}

func (p *Pool) known(peer string) bool {
	for _, candidate := range p.peers {
		if candidate == peer {
			return true
		}
	}

	return false
}

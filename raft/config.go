package raft

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidConfig = errors.New("invalid raft config")

// Config contains the settings needed to start a raft node
type Config struct {
	ID    string
	Peers []string

	// Election timeouts are drawn from [ElectionTimeout, ElectionTimeout+ElectionJitter)
	ElectionTimeout time.Duration
	ElectionJitter  time.Duration

	HeartbeatInterval time.Duration

	DialTimeout time.Duration
	RPCTimeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		ElectionTimeout:   5 * time.Second,
		ElectionJitter:    5 * time.Second,
		HeartbeatInterval: 1 * time.Second,
		DialTimeout:       500 * time.Millisecond,
		RPCTimeout:        1 * time.Second,
	}
}

func (c Config) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("%w: missing node id", ErrInvalidConfig)
	}

	if c.ElectionTimeout <= 0 || c.HeartbeatInterval <= 0 {
		return fmt.Errorf("%w: election timeout and heartbeat interval must be positive", ErrInvalidConfig)
	}

	if c.ElectionJitter < 0 {
		return fmt.Errorf("%w: negative election jitter", ErrInvalidConfig)
	}

	// Followers must hear from a healthy leader before their patience runs out
	if c.HeartbeatInterval >= c.ElectionTimeout {
		return fmt.Errorf("%w: heartbeat interval %v must be shorter than election timeout %v",
			ErrInvalidConfig, c.HeartbeatInterval, c.ElectionTimeout)
	}

	if c.DialTimeout <= 0 || c.RPCTimeout <= 0 {
		return fmt.Errorf("%w: dial and rpc timeouts must be positive", ErrInvalidConfig)
	}

	return nil
}

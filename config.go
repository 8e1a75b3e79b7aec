package main

import (
	"errors"
	"strings"
	"time"

	"github.com/krantius/elkd/raft"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	ID       string   `mapstructure:"id"`
	Peers    []string `mapstructure:"peers"`
	Port     int      `mapstructure:"port"`
	HTTPPort int      `mapstructure:"http-port"`

	ElectionTimeout   time.Duration `mapstructure:"election-timeout"`
	ElectionJitter    time.Duration `mapstructure:"election-jitter"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat-interval"`
	DialTimeout       time.Duration `mapstructure:"dial-timeout"`
	RPCTimeout        time.Duration `mapstructure:"rpc-timeout"`

	LogLevel string `mapstructure:"log-level"`
	NoColor  bool   `mapstructure:"no-color"`
}

// registerFlags declares every setting as a flag and binds it to v. Each one can
// also come from the environment (NODE_ID, NODE_PEERS, NODE_PORT, ...) or a
// config file given with --config.
func registerFlags(fs *pflag.FlagSet, v *viper.Viper) {
	defaults := raft.DefaultConfig()

	fs.String("config", "", "path to a json or yaml config file")
	fs.String("id", "", "id of this node (NODE_ID)")
	fs.StringSlice("peers", []string{}, "comma separated rpc addresses of the other nodes (NODE_PEERS)")
	fs.Int("port", 8001, "rpc port (NODE_PORT)")
	fs.Int("http-port", 8000, "status api port, 0 disables it (NODE_HTTP_PORT)")
	fs.Duration("election-timeout", defaults.ElectionTimeout, "minimum time a follower waits for a leader")
	fs.Duration("election-jitter", defaults.ElectionJitter, "random extra time added to every election timeout")
	fs.Duration("heartbeat-interval", defaults.HeartbeatInterval, "time between leader heartbeats")
	fs.Duration("dial-timeout", defaults.DialTimeout, "timeout for connecting to a peer")
	fs.Duration("rpc-timeout", defaults.RPCTimeout, "timeout for a single peer rpc")
	fs.String("log-level", "info", "trace, debug, info, warning or error")
	fs.Bool("no-color", false, "disable colored log output")

	v.SetEnvPrefix("NODE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	fs.VisitAll(func(f *pflag.Flag) {
		v.BindPFlag(f.Name, f)
	})
}

func LoadConfig(v *viper.Viper) (*Config, error) {
	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)

		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, err
	}

	if c.ID == "" {
		return nil, errors.New("node id is required, set --id or NODE_ID")
	}

	peers := c.Peers[:0]
	for _, p := range c.Peers {
		if p = strings.TrimSpace(p); p != "" {
			peers = append(peers, p)
		}
	}
	c.Peers = peers

	return c, nil
}

func (c *Config) Raft() raft.Config {
	return raft.Config{
		ID:                c.ID,
		Peers:             c.Peers,
		ElectionTimeout:   c.ElectionTimeout,
		ElectionJitter:    c.ElectionJitter,
		HeartbeatInterval: c.HeartbeatInterval,
		DialTimeout:       c.DialTimeout,
		RPCTimeout:        c.RPCTimeout,
	}
}

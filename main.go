package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/krantius/elkd/cluster"
	"github.com/krantius/elkd/raft"
	"github.com/krantius/elkd/replication"
	"github.com/krantius/elkd/server"
	"github.com/krantius/elkd/shared/logging"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newRootCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "elkd",
		Short: "elkd runs a single raft node.",
		Long: `elkd runs a single raft node that takes part in leader election with its peers.

The command blocks until the process receives SIGINT or SIGTERM.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(v)
			if err != nil {
				return err
			}

			return run(cmd.Context(), cfg)
		},
	}

	registerFlags(cmd.Flags(), v)

	return cmd
}

func run(ctx context.Context, cfg *Config) error {
	if err := logging.Setup(os.Stderr, cfg.LogLevel, cfg.NoColor); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool := cluster.NewPool(cfg.Peers, cfg.DialTimeout)
	defer pool.Close()

	logger := log.WithField("node", cfg.ID)
	store := replication.NewMemoryStore()

	node, err := raft.New(cfg.Raft(), pool, replication.New(store),
		raft.WithLogger(logger),
		raft.WithObserver(raft.LogObserver(logger)))
	if err != nil {
		return err
	}

	srv, err := server.New(node, store, cfg.RPCTimeout)
	if err != nil {
		return err
	}

	httpAddr := ""
	if cfg.HTTPPort != 0 {
		httpAddr = fmt.Sprintf(":%d", cfg.HTTPPort)
	}

	if err := srv.Listen(fmt.Sprintf(":%d", cfg.Port), httpAddr); err != nil {
		return err
	}

	logger.Infof("Raft starting with peers %v", cfg.Peers)

	done := make(chan struct{})
	go func() {
		defer close(done)
		node.Start(ctx)
	}()

	err = srv.Serve(ctx)
	stop()
	<-done

	return err
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

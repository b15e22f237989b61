package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/VanshK123/bgp-prototype/common/go/logging"
	"github.com/VanshK123/bgp-prototype/common/go/xcmd"
	"github.com/VanshK123/bgp-prototype/internal/discovery/bird"
	"github.com/VanshK123/bgp-prototype/internal/fibsync"
	"github.com/VanshK123/bgp-prototype/internal/rib"
)

var serveCmdArgs struct {
	ConfigPath string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the forwarding table, fed from the daemon's export sockets",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runServe(); err != nil {
			fmt.Printf("ERROR: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	serveCmd.Flags().StringVarP(&serveCmdArgs.ConfigPath, "config", "c", "", "Path to the configuration file (required)")
	serveCmd.MarkFlagRequired("config")
}

// ServeConfig is the configuration for the serve command.
type ServeConfig struct {
	// Logging configuration.
	Logging logging.Config `yaml:"logging"`
	// RIB sizes the trie arena and the lookup cache.
	RIB rib.Config `yaml:"rib"`
	// Bird configures the daemon export feed.
	Bird bird.Config `yaml:"bird"`
	// FibSync configures the optional kernel FIB mirror.
	FibSync fibsync.Config `yaml:"fibsync"`
}

func DefaultServeConfig() *ServeConfig {
	return &ServeConfig{
		Logging: logging.Config{Level: zapcore.InfoLevel},
		RIB:     *rib.DefaultConfig(),
		Bird:    *bird.DefaultConfig(),
		FibSync: *fibsync.DefaultConfig(),
	}
}

// LoadServeConfig loads the configuration from the given path.
func LoadServeConfig(path string) (*ServeConfig, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultServeConfig()
	if err := yaml.Unmarshal(buf, cfg); err != nil {
		return nil, fmt.Errorf("failed to deserialize config: %w", err)
	}

	return cfg, nil
}

func runServe() error {
	cfg, err := LoadServeConfig(serveCmdArgs.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, _, err := logging.Init(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer log.Sync()

	log.Infow("starting forwarding table",
		"sockets", cfg.Bird.Sockets,
		"cache_capacity", cfg.RIB.CacheCapacity,
		"cache_ttl", cfg.RIB.CacheTTL,
	)

	table := rib.NewRIB(&cfg.RIB, log.Named("rib"))
	defer table.Teardown()

	export := bird.NewExportReader(&cfg.Bird, applier(table, log), log.Named("bird"))

	wg, ctx := errgroup.WithContext(context.Background())
	wg.Go(func() error {
		return export.Run(ctx)
	})
	if cfg.FibSync.Enabled {
		mirror, err := fibsync.New(&cfg.FibSync, table, log.Named("fibsync"))
		if err != nil {
			return err
		}
		wg.Go(func() error {
			return mirror.Run(ctx)
		})
	}
	wg.Go(func() error {
		return runStatsLogger(ctx, table, log)
	})
	wg.Go(func() error {
		return xcmd.WaitInterrupted(ctx)
	})

	err = wg.Wait()
	var interrupted xcmd.Interrupted
	if errors.As(err, &interrupted) {
		log.Infof("shutting down on %s", interrupted)
		return nil
	}
	return err
}

// applier feeds decoded daemon updates into the table. A withdraw for a
// route the table does not hold is logged and ignored: the daemon may
// replay withdrawals after a reconnect.
func applier(table *rib.RIB, log *zap.SugaredLogger) bird.Applier {
	return func(updates []bird.Update) error {
		for i := range updates {
			u := &updates[i]
			if u.Withdraw {
				if err := table.Delete(u.Route.Prefix); err != nil {
					if !errors.Is(err, rib.ErrRouteNotFound) {
						return err
					}
					log.Debugw("withdraw for unknown route",
						zap.Stringer("prefix", u.Route.Prefix))
				}
				continue
			}
			route := u.Route
			if err := table.Insert(&route); err != nil {
				if errors.Is(err, rib.ErrNodesExhausted) {
					log.Warnw("table full, dropping route",
						zap.Stringer("prefix", route.Prefix))
					continue
				}
				return err
			}
		}
		return nil
	}
}

func runStatsLogger(ctx context.Context, table *rib.RIB, log *zap.SugaredLogger) error {
	tick := time.NewTicker(time.Minute)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
			log.Infow("table stats",
				"routes", table.NumRoutes(),
				"nodes", table.NumNodes(),
				"updated_at", table.UpdatedAt(),
			)
		}
	}
}

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/VanshK123/bgp-prototype/common/go/logging"
	"github.com/VanshK123/bgp-prototype/internal/bench"
	"github.com/VanshK123/bgp-prototype/internal/rib"
)

var benchCmdArgs struct {
	ConfigPath string
}

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Bulk-insert synthetic routes and measure lookup throughput",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runBench(); err != nil {
			fmt.Printf("ERROR: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	benchCmd.Flags().StringVarP(&benchCmdArgs.ConfigPath, "config", "c", "", "Path to the configuration file (optional)")
}

// BenchConfig is the configuration for the bench command.
type BenchConfig struct {
	Logging logging.Config `yaml:"logging"`
	RIB     rib.Config     `yaml:"rib"`
	Bench   bench.Config   `yaml:"bench"`
}

func DefaultBenchConfig() *BenchConfig {
	return &BenchConfig{
		Logging: logging.Config{Level: zapcore.InfoLevel},
		RIB:     *rib.DefaultConfig(),
		Bench:   *bench.DefaultConfig(),
	}
}

// LoadBenchConfig loads the configuration, falling back to defaults when no
// path is given.
func LoadBenchConfig(path string) (*BenchConfig, error) {
	cfg := DefaultBenchConfig()
	if path == "" {
		return cfg, nil
	}

	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(buf, cfg); err != nil {
		return nil, fmt.Errorf("failed to deserialize config: %w", err)
	}
	return cfg, nil
}

func runBench() error {
	cfg, err := LoadBenchConfig(benchCmdArgs.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, _, err := logging.Init(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer log.Sync()

	table := rib.NewRIB(&cfg.RIB, log.Named("rib"))
	defer table.Teardown()

	report, err := bench.Run(context.Background(), &cfg.Bench, table, log.Named("bench"))
	if err != nil {
		return err
	}

	fmt.Println(report)
	return nil
}

// Command dragonfly starts the server: bind the CLI surface to viper,
// load config.Properties, construct a runtime.Runtime, and block
// serving connections until a shutdown signal arrives.
package main

import (
	"fmt"
	"os"
	goruntime "runtime"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ryanrussell/dragonfly/config"
	"github.com/ryanrussell/dragonfly/internal/runtime"
	"github.com/ryanrussell/dragonfly/lib/logger"
	"github.com/ryanrussell/dragonfly/server"
	"github.com/ryanrussell/dragonfly/server/metrics"
	"github.com/ryanrussell/dragonfly/tcp"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "dragonfly",
	Short: "an in-memory, shared-nothing sharded key-value server",
	RunE:  run,
}

func init() {
	flags := rootCmd.Flags()
	flags.String("bind", "0.0.0.0", "address to listen on")
	flags.Int("port", 6399, "port to listen on")
	flags.String("dir", ".", "directory for RDB/DFS snapshots")
	flags.String("dbfilename", "dump", "base filename for snapshots")
	flags.String("requirepass", "", "require clients to authenticate with this password")
	flags.String("save_schedule", "", "comma-separated HH:MM save schedule, '*' wildcards allowed")
	flags.Int("hz", 10, "background task frequency")
	flags.Bool("cache_mode", false, "evict instead of refusing writes under memory pressure")
	flags.Int("databases", 16, "number of logical databases per shard")
	flags.Int("maxclients", 10000, "maximum simultaneous client connections")
	flags.Uint64("maxmemory", 0, "soft memory limit in bytes, 0 disables the check")
	flags.String("replicaof", "", "host:port of a master to replicate on boot")
	flags.String("metrics_address", "", "address for the /metrics HTTP endpoint, empty disables it")
	flags.Int("shards", 0, "number of engine shards, 0 selects GOMAXPROCS")

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to a config file (yaml, json, toml)")

	if err := viper.BindPFlags(flags); err != nil {
		panic("bind flags: " + err.Error())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(_ *cobra.Command, _ []string) error {
	if _, err := config.Setup(viper.GetViper(), configFile); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger.Setup(&logger.Settings{
		Path:       "logs",
		Name:       "dragonfly",
		Ext:        "log",
		TimeFormat: "2006-01-02",
	})

	numShards := viper.GetInt("shards")
	if numShards <= 0 {
		numShards = goruntime.GOMAXPROCS(0)
	}
	rt, err := runtime.New(runtime.Config{
		NumShards:  numShards,
		Databases:  config.Properties.Databases,
		Dir:        config.Properties.Dir,
		DBFilename: config.Properties.DBFilename,
	})
	if err != nil {
		return fmt.Errorf("runtime: %w", err)
	}

	srv := server.NewServer(rt)
	if err := srv.Boot(); err != nil {
		return fmt.Errorf("boot: %w", err)
	}

	if addr := config.Properties.MetricsAddress; addr != "" {
		go metrics.Serve(addr, rt)
	}

	addr := fmt.Sprintf("%s:%d", config.Properties.Bind, config.Properties.Port)
	return tcp.ListenAndServeWithSignal(&tcp.Config{Address: addr}, srv)
}

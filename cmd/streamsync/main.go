package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	clientcmd "github.com/rzbill/streamsync/internal/cmd/client"
	serverrun "github.com/rzbill/streamsync/internal/cmd/server"
	cfgpkg "github.com/rzbill/streamsync/internal/config"
	logpkg "github.com/rzbill/streamsync/pkg/log"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "streamsync",
		Short: "streamsync runtime CLI",
		Long:  "streamsync mirrors the notification streams a collector advertises into a persistent datastore. This CLI runs the server and queries it.",
	}

	serverCmd := &cobra.Command{Use: "server", Short: "Server commands"}
	serverStartCmd := &cobra.Command{
		Use:     "start",
		Short:   "Start streamsync server (gRPC and HTTP)",
		Aliases: []string{"run"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadServerConfig(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			if err := serverrun.Run(ctx, serverrun.Options{Config: cfg}); err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		},
	}
	f := serverStartCmd.Flags()
	f.String("config", os.Getenv("STREAMSYNC_CONFIG"), "Config file (JSON or YAML)")
	f.String("data-dir", "", "Data directory (if not specified, uses OS-specific application data directory)")
	f.String("grpc", ":50051", "gRPC listen address")
	f.String("http", ":8080", "HTTP listen address")
	f.String("fsync", "always", "Fsync mode: always|interval|never")
	f.Int("fsync-interval-ms", 5, "When --fsync=interval, group-commit window in ms")
	f.String("backend", cfgpkg.BackendPebble, "Datastore backend: pebble|redis")
	f.String("redis-addr", "127.0.0.1:6379", "Redis address for --backend=redis")
	f.String("root", "/netconf", "Datastore subtree owned by the synchronizer")
	f.String("streams-dir", "", "Directory of YAML stream definitions to watch")
	f.Bool("base-stream", true, "Announce the NETCONF base stream at startup")
	f.String("log-level", "", "Log level: debug|info|warn|error")
	f.String("log-format", "", "Log format: text|json (default text)")
	serverCmd.AddCommand(serverStartCmd)
	rootCmd.AddCommand(serverCmd)

	rootCmd.AddCommand(clientcmd.NewStreamsCommand(clientcmd.APIURLFromEnv))
	rootCmd.AddCommand(clientcmd.NewHealthCommand())

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "streamsync", version)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadServerConfig layers defaults, the config file, STREAMSYNC_* variables
// and explicitly set flags, in that order.
func loadServerConfig(cmd *cobra.Command) (cfgpkg.Config, error) {
	f := cmd.Flags()
	path, _ := f.GetString("config")
	cfg, err := cfgpkg.Load(path)
	if err != nil {
		return cfgpkg.Config{}, err
	}
	cfgpkg.FromEnv(&cfg)

	str := func(name string, dst *string) {
		if f.Changed(name) {
			*dst, _ = f.GetString(name)
		}
	}
	str("data-dir", &cfg.DataDir)
	str("grpc", &cfg.GRPCAddr)
	str("http", &cfg.HTTPAddr)
	str("fsync", &cfg.Fsync)
	str("backend", &cfg.Backend)
	str("redis-addr", &cfg.Redis.Addr)
	str("root", &cfg.Root)
	str("streams-dir", &cfg.StreamsDir)
	str("log-level", &cfg.Log.Level)
	str("log-format", &cfg.Log.Format)
	if f.Changed("fsync-interval-ms") {
		cfg.FsyncIntervalMs, _ = f.GetInt("fsync-interval-ms")
	}
	if f.Changed("base-stream") {
		cfg.BaseStream.Enabled, _ = f.GetBool("base-stream")
	}
	if _, err := logpkg.ParseLevel(cfg.Log.Level); err != nil {
		return cfgpkg.Config{}, err
	}
	return cfg, cfg.Validate()
}

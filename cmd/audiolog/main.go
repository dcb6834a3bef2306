package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	clientcmd "github.com/gauthamkulal77/audio-pipeline/internal/cmd/client"
	serverrun "github.com/gauthamkulal77/audio-pipeline/internal/cmd/server"
	"github.com/gauthamkulal77/audio-pipeline/internal/runtime"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "audiolog",
		Short:         "Bounded audio chunk log",
		Long:          "audiolog ingests audio chunks over WebSocket into a bounded stream and serves them over HTTP.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	serverCmd := &cobra.Command{Use: "server", Short: "Server commands"}
	serverStartCmd := &cobra.Command{
		Use:     "start",
		Short:   "Start the HTTP and WebSocket server",
		Aliases: []string{"run"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := serverrun.LoadConfig(serverOptions(cmd))
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			return serverrun.Run(cmd.Context(), cfg, serverrun.NewLogger(cfg.Log))
		},
	}
	addConfigFlags(serverStartCmd)
	serverStartCmd.Flags().Int("port", 0, "HTTP port (env PORT, default 8081)")
	serverCmd.AddCommand(serverStartCmd)
	rootCmd.AddCommand(serverCmd)

	storeCmd := &cobra.Command{Use: "store", Short: "Embedded store commands"}
	storeServeCmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose the embedded store over the Redis protocol",
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := serverOptions(cmd)
			opts.Backend = "embedded"
			cfg, err := serverrun.LoadConfig(opts)
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				cfg.Server.RESPAddr = addr
			}
			return serverrun.ServeStore(cmd.Context(), cfg, serverrun.NewLogger(cfg.Log))
		},
	}
	addConfigFlags(storeServeCmd)
	storeServeCmd.Flags().String("addr", "", "RESP listen address (env RESP_ADDR, default :6380)")
	storeCompactCmd := &cobra.Command{
		Use:   "compact",
		Short: "Compact the embedded store (server must be stopped)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := serverOptions(cmd)
			opts.Backend = "embedded"
			cfg, err := serverrun.LoadConfig(opts)
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			return serverrun.CompactStore(cfg, serverrun.NewLogger(cfg.Log))
		},
	}
	addConfigFlags(storeCompactCmd)
	storeCmd.AddCommand(storeServeCmd, storeCompactCmd)
	rootCmd.AddCommand(storeCmd)

	rootCmd.AddCommand(clientcmd.NewRecordsCommand(apiURL))
	rootCmd.AddCommand(clientcmd.NewIngestCommand(apiURL))

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		if errors.Is(err, runtime.ErrStartup) {
			fmt.Fprintln(os.Stderr, "the backing store could not be reached; check REDIS_URL or --backend")
		}
		os.Exit(1)
	}
}

func addConfigFlags(cmd *cobra.Command) {
	cmd.Flags().String("config", os.Getenv("AUDIOLOG_CONFIG"), "Config file (.json or .yaml)")
	cmd.Flags().StringSlice("env-file", []string{".env"}, "Dotenv files loaded before the environment")
	cmd.Flags().String("backend", "", "Store backend: redis|embedded (env STORE_BACKEND)")
	cmd.Flags().String("redis-url", "", "Redis URL (env REDIS_URL)")
	cmd.Flags().String("data-dir", "", "Embedded store directory (env DATA_DIR)")
	cmd.Flags().Bool("in-memory", false, "Keep the embedded store in memory")
	cmd.Flags().String("log-level", "", "Log level: debug|info|warn|error (env AUDIO_LOG_LEVEL)")
	cmd.Flags().String("log-format", "", "Log format: text|json (env AUDIO_LOG_FORMAT)")
}

func serverOptions(cmd *cobra.Command) serverrun.Options {
	opts := serverrun.Options{}
	opts.ConfigPath, _ = cmd.Flags().GetString("config")
	opts.DotenvFiles, _ = cmd.Flags().GetStringSlice("env-file")
	opts.Backend, _ = cmd.Flags().GetString("backend")
	opts.RedisURL, _ = cmd.Flags().GetString("redis-url")
	opts.DataDir, _ = cmd.Flags().GetString("data-dir")
	opts.InMemory, _ = cmd.Flags().GetBool("in-memory")
	opts.LogLevel, _ = cmd.Flags().GetString("log-level")
	opts.LogFormat, _ = cmd.Flags().GetString("log-format")
	if cmd.Flags().Lookup("port") != nil {
		opts.Port, _ = cmd.Flags().GetInt("port")
	}
	return opts
}

func apiURL() string {
	if v := os.Getenv("AUDIOLOG_HTTP"); v != "" {
		return v
	}
	return "http://127.0.0.1:8081"
}

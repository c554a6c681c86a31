package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	mcp "github.com/MegaGrindStone/go-mcp-streamable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	flagConfig    = "config"
	flagURL       = "url"
	flagLogLevel  = "log-level"
	flagTimeout   = "timeout"
	flagMaxEvent  = "max-event-size"
	envPrefix     = "MCP"
	clientName    = "streamable-example"
	clientVersion = "1.0.0"
)

// rootCmd is the root Cobra command that gets called from the main func.
// All other sub-commands should be registered here.
func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "streamable",
		Short:        "streamable runs and talks to MCP servers over streamable HTTP.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfgFile, err := cmd.Flags().GetString(flagConfig)
			if err != nil {
				return fmt.Errorf("error reading config: %s", err)
			}
			if err := loadConfig(cfgFile); err != nil {
				return err
			}
			configureLogging(viper.GetString(flagLogLevel))
			return nil
		},
	}

	cmd.PersistentFlags().String(flagConfig, "", "config file (yaml, json or toml)")
	cmd.PersistentFlags().String(flagURL, "http://localhost:8080/mcp", "MCP endpoint url")
	cmd.PersistentFlags().String(flagLogLevel, "info", "log level: debug, info, warn or error")
	cmd.PersistentFlags().Duration(flagTimeout, 30*time.Second, "bound on the wait for each request")
	cmd.PersistentFlags().Int(flagMaxEvent, 0, "maximum size of a single streamed event, 0 for the default")
	for _, name := range []string{flagURL, flagLogLevel, flagTimeout, flagMaxEvent} {
		_ = viper.BindPFlag(name, cmd.PersistentFlags().Lookup(name))
	}

	cmd.AddCommand(
		serveCmd(),
		toolsCmd(),
		callCmd(),
		resourcesCmd(),
		pingCmd(),
		watchCmd(),
		sampleCmd(),
	)

	return cmd
}

func loadConfig(cfgFile string) error {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if cfgFile == "" {
		return nil
	}

	viper.SetConfigFile(cfgFile)
	if err := viper.MergeInConfig(); err != nil {
		return fmt.Errorf("error reading config file %s: %s", viper.ConfigFileUsed(), err)
	}
	return nil
}

func configureLogging(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

// connect creates a client for the configured endpoint and performs the handshake.
func connect(ctx context.Context, options ...mcp.ClientOption) (*mcp.Client, error) {
	options = append([]mcp.ClientOption{
		mcp.WithClientLogger(slog.Default()),
		mcp.WithClientRequestTimeout(viper.GetDuration(flagTimeout)),
		mcp.WithClientMaxEventSize(viper.GetInt(flagMaxEvent)),
		mcp.WithClientMetrics(clientMetrics()),
	}, options...)

	client := mcp.NewClient(mcp.Info{Name: clientName, Version: clientVersion}, viper.GetString(flagURL), options...)
	res, err := client.Initialize(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize: %w", err)
	}

	slog.Info("connected",
		slog.String("server", res.ServerInfo.Name),
		slog.String("version", res.ServerInfo.Version),
		slog.String("sessionID", client.SessionID()))

	return client, nil
}

func disconnect(client *mcp.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Close(ctx); err != nil {
		slog.Warn("failed to close session", slog.String("err", err.Error()))
	}
}

var metrics *mcp.ClientMetrics

// clientMetrics registers the client collectors with the default registry once per process.
func clientMetrics() *mcp.ClientMetrics {
	if metrics == nil {
		metrics = mcp.NewClientMetrics(prometheus.DefaultRegisterer)
	}
	return metrics
}

// reconnectable reports whether err means the session has to be set up again.
func reconnectable(err error) bool {
	return errors.Is(err, mcp.ErrTransport) || errors.Is(err, mcp.ErrSessionExpired)
}

// Package servecmder provides the serve command that runs the chatrelay
// gateway.
package servecmder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/chatrelay/cmd/chatrelay/wire"
	"github.com/papercomputeco/chatrelay/gateway"
	"github.com/papercomputeco/chatrelay/pkg/config"
)

type serveCommander struct {
	flags flagValues

	logFile string
	debug   bool

	config *config.Config
	logger *slog.Logger
}

// flagValues holds the registry-backed flags. They are read through viper
// after binding, never directly.
type flagValues struct {
	listen          string
	region          string
	profile         string
	bedrockEndpoint string
	hostedEndpoint  string
	relayProvider   string
	flushThreshold  int
	maxMessageBytes int
	eventsProvider  string
	brokers         string
	topic           string
	workers         uint
}

var serveFlags = []string{
	config.FlagListen,
	config.FlagRegion,
	config.FlagProfile,
	config.FlagBedrockEndpoint,
	config.FlagHostedEndpoint,
	config.FlagRelayProvider,
	config.FlagFlushThreshold,
	config.FlagMaxMessageBytes,
	config.FlagEventsProvider,
	config.FlagBrokers,
	config.FlagTopic,
	config.FlagWorkers,
}

const serveLongDesc string = `Run the chatrelay gateway.

The gateway serves:
  POST /v1/chat/completions    OpenAI-style chat completions (streaming or not)
  POST /v1/relay/completions   Stream a completion into a messaging target
  GET  /v1/models              Model family resolution table
  GET  /healthz                Liveness

Models are resolved to a family by identifier. Bedrock models are invoked
through the Bedrock runtime; hosted endpoints (names containing "sagemaker",
"-endpoint" or "jumpstart") through the SageMaker runtime. AWS credentials
come from the default credential chain.

Examples:
  chatrelay serve
  chatrelay serve --listen :9000 --region eu-west-1
  chatrelay serve --relay lark --events kafka --brokers kafka:9092`

const serveShortDesc string = "Run the chatrelay gateway"

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return err
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, serveFlags)

			cmder.config, err = config.FromViper(v)
			return err
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			return cmder.run(cmd.Context())
		},
	}

	f := &cmder.flags
	config.AddStringFlag(cmd, config.Flags, config.FlagListen, &f.listen)
	config.AddStringFlag(cmd, config.Flags, config.FlagRegion, &f.region)
	config.AddStringFlag(cmd, config.Flags, config.FlagProfile, &f.profile)
	config.AddStringFlag(cmd, config.Flags, config.FlagBedrockEndpoint, &f.bedrockEndpoint)
	config.AddStringFlag(cmd, config.Flags, config.FlagHostedEndpoint, &f.hostedEndpoint)
	config.AddStringFlag(cmd, config.Flags, config.FlagRelayProvider, &f.relayProvider)
	config.AddIntFlag(cmd, config.Flags, config.FlagFlushThreshold, &f.flushThreshold)
	config.AddIntFlag(cmd, config.Flags, config.FlagMaxMessageBytes, &f.maxMessageBytes)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventsProvider, &f.eventsProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagBrokers, &f.brokers)
	config.AddStringFlag(cmd, config.Flags, config.FlagTopic, &f.topic)
	config.AddUintFlag(cmd, config.Flags, config.FlagWorkers, &f.workers)
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also write JSON logs to this file")

	return cmd
}

func (c *serveCommander) run(ctx context.Context) error {
	var (
		closeLog func()
		err      error
	)
	c.logger, closeLog, err = wire.Logger(c.config.Log.Level, c.debug, c.logFile)
	if err != nil {
		return err
	}
	defer closeLog()

	g, err := c.newGateway(ctx)
	if err != nil {
		return err
	}

	errChan := make(chan error, 1)
	go func() {
		if err := g.Run(); err != nil {
			errChan <- fmt.Errorf("gateway error: %w", err)
		}
	}()

	// Wait for interrupt signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		_ = g.Close()
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", "signal", sig.String())
		return g.Close()
	}
}

func (c *serveCommander) newGateway(ctx context.Context) (*gateway.Gateway, error) {
	cfg := c.config

	svc, err := wire.ChatService(ctx, cfg, c.logger)
	if err != nil {
		return nil, err
	}

	sender, err := wire.Sender(cfg, os.Stdout, c.logger)
	if err != nil {
		return nil, err
	}

	publisher, err := wire.Publisher(cfg, c.logger)
	if err != nil {
		return nil, err
	}

	opts, err := wire.RelayOptions(cfg)
	if err != nil {
		return nil, err
	}

	heartbeat, err := cfg.Server.HeartbeatDuration()
	if err != nil {
		return nil, err
	}

	g, err := gateway.New(gateway.Config{
		ListenAddr: cfg.Server.Listen,
		Relay: gateway.RelayConfig{
			FlushThreshold:  opts.FlushThreshold,
			MaxMessageBytes: opts.MaxMessageBytes,
			SendTimeout:     opts.SendTimeout,
		},
		Heartbeat:  heartbeat,
		NumWorkers: cfg.Events.Workers,
		QueueSize:  cfg.Events.QueueSize,
	}, svc, sender, publisher, c.logger)
	if err != nil {
		_ = publisher.Close()
		return nil, fmt.Errorf("creating gateway: %w", err)
	}

	c.logger.Info("gateway configured",
		"listen", cfg.Server.Listen,
		"region", cfg.Backend.Region,
		"relay", cfg.Relay.Provider,
		"events", cfg.Events.Provider,
		"flush_threshold", opts.FlushThreshold,
	)
	return g, nil
}

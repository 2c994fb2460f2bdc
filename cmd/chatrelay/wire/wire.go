// Package wire assembles chatrelay components from a resolved config.Config.
// Both the serve command and the one-shot relay command build through it.
package wire

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/papercomputeco/chatrelay/pkg/backend"
	"github.com/papercomputeco/chatrelay/pkg/backend/bedrock"
	"github.com/papercomputeco/chatrelay/pkg/backend/sagemaker"
	"github.com/papercomputeco/chatrelay/pkg/chat"
	"github.com/papercomputeco/chatrelay/pkg/cliui"
	"github.com/papercomputeco/chatrelay/pkg/config"
	"github.com/papercomputeco/chatrelay/pkg/eventstream"
	"github.com/papercomputeco/chatrelay/pkg/eventstream/kafka"
	"github.com/papercomputeco/chatrelay/pkg/eventstream/nop"
	"github.com/papercomputeco/chatrelay/pkg/logger"
	"github.com/papercomputeco/chatrelay/pkg/relay"
	"github.com/papercomputeco/chatrelay/pkg/relay/lark"
)

// Logger builds the process logger at the configured level (debug forces
// Debug): pretty output on a terminal, JSON otherwise, and additionally JSON
// to logFile when one is given. The returned func closes the log file.
func Logger(level string, debug bool, logFile string) (*slog.Logger, func(), error) {
	console := logger.New(
		logger.WithLevel(level),
		logger.WithDebug(debug),
		logger.WithTerminal(cliui.IsTerminal(os.Stderr)),
		logger.WithWriter(os.Stderr),
	)
	if logFile == "" {
		return console, func() {}, nil
	}

	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	file := logger.New(
		logger.WithLevel(level),
		logger.WithDebug(debug),
		logger.WithFormat(logger.FormatJSON),
		logger.WithSource(true),
		logger.WithWriter(f),
	)
	return logger.Multi(console, file), func() { _ = f.Close() }, nil
}

// ChatService builds the Bedrock and hosted endpoint backends from the
// default AWS credential chain.
func ChatService(ctx context.Context, cfg *config.Config, log *slog.Logger) (*chat.Service, error) {
	awsCfg, err := backend.LoadAWSConfig(ctx, backend.AWSOptions{
		Region:  cfg.Backend.Region,
		Profile: cfg.Backend.Profile,
	})
	if err != nil {
		return nil, err
	}

	return chat.NewService(
		bedrock.NewFromConfig(awsCfg, cfg.Backend.BedrockEndpoint, log),
		sagemaker.NewFromConfig(awsCfg, cfg.Backend.HostedEndpoint, log),
		log,
	), nil
}

// Sender builds the configured relay transport. The "none" provider
// returns a nil Sender. The "stdout" provider writes to out.
func Sender(cfg *config.Config, out io.Writer, log *slog.Logger) (relay.Sender, error) {
	switch cfg.Relay.Provider {
	case config.RelayLark:
		timeout, err := cfg.Relay.TimeoutDuration()
		if err != nil {
			return nil, err
		}
		return lark.New(lark.Config{
			BaseURL:       cfg.Relay.BaseURL,
			AppID:         cfg.Relay.AppID,
			AppSecret:     cfg.Relay.AppSecret,
			ReceiveIDType: cfg.Relay.ReceiveIDType,
			Timeout:       timeout,
		}, log), nil

	case config.RelayStdout:
		return &relay.WriterSender{W: out}, nil

	case config.RelayNone:
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown relay provider %q", cfg.Relay.Provider)
	}
}

// Publisher builds the configured completion event publisher.
func Publisher(cfg *config.Config, log *slog.Logger) (eventstream.Publisher, error) {
	switch cfg.Events.Provider {
	case config.EventsKafka:
		return kafka.NewPublisher(kafka.Config{
			Brokers: cfg.Events.BrokerList(),
			Topic:   cfg.Events.Topic,
		}, log)

	case config.EventsNop:
		return nop.NewPublisher(), nil

	default:
		return nil, fmt.Errorf("unknown events provider %q", cfg.Events.Provider)
	}
}

// RelayOptions converts the relay section into segmenter options.
func RelayOptions(cfg *config.Config) (relay.Options, error) {
	timeout, err := cfg.Relay.TimeoutDuration()
	if err != nil {
		return relay.Options{}, err
	}
	return relay.Options{
		FlushThreshold:  cfg.Relay.FlushThreshold,
		MaxMessageBytes: cfg.Relay.MaxMessageBytes,
		SendTimeout:     timeout,
	}, nil
}

package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --region
// on both "chatrelay serve" and "chatrelay relay send").
type Flag struct {
	// Name is the long flag name (e.g. "region").
	Name string

	// Shorthand is the one-letter short flag (e.g. "l"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "backend.region").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddIntFlag, AddUintFlag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagListen          = "listen"
	FlagRegion          = "region"
	FlagProfile         = "profile"
	FlagBedrockEndpoint = "bedrock-endpoint"
	FlagHostedEndpoint  = "hosted-endpoint"
	FlagRelayProvider   = "relay"
	FlagFlushThreshold  = "flush-threshold"
	FlagMaxMessageBytes = "max-message-bytes"
	FlagEventsProvider  = "events"
	FlagBrokers         = "brokers"
	FlagTopic           = "topic"
	FlagWorkers         = "workers"
	FlagGatewayTarget   = "gateway"
)

// Flags is the registry shared by all chatrelay commands.
var Flags = FlagSet{
	FlagListen: {
		Name:        "listen",
		Shorthand:   "l",
		ViperKey:    "server.listen",
		Description: "Address for the gateway to listen on",
	},
	FlagRegion: {
		Name:        "region",
		ViperKey:    "backend.region",
		Description: "AWS region of the model backends",
	},
	FlagProfile: {
		Name:        "profile",
		ViperKey:    "backend.profile",
		Description: "AWS shared config profile",
	},
	FlagBedrockEndpoint: {
		Name:        "bedrock-endpoint",
		ViperKey:    "backend.bedrock_endpoint",
		Description: "Override the Bedrock runtime endpoint URL",
	},
	FlagHostedEndpoint: {
		Name:        "hosted-endpoint",
		ViperKey:    "backend.hosted_endpoint",
		Description: "Override the hosted (SageMaker) runtime endpoint URL",
	},
	FlagRelayProvider: {
		Name:        "relay",
		ViperKey:    "relay.provider",
		Description: "Relay transport (lark, stdout, none)",
	},
	FlagFlushThreshold: {
		Name:        "flush-threshold",
		ViperKey:    "relay.flush_threshold",
		Description: "Undelivered runes that force a relay message",
	},
	FlagMaxMessageBytes: {
		Name:        "max-message-bytes",
		ViperKey:    "relay.max_message_bytes",
		Description: "Hard size limit of one relay message in bytes",
	},
	FlagEventsProvider: {
		Name:        "events",
		ViperKey:    "events.provider",
		Description: "Completion event publisher (kafka, nop)",
	},
	FlagBrokers: {
		Name:        "brokers",
		ViperKey:    "events.brokers",
		Description: "Comma-separated Kafka bootstrap brokers",
	},
	FlagTopic: {
		Name:        "topic",
		ViperKey:    "events.topic",
		Description: "Kafka topic for completion events",
	},
	FlagWorkers: {
		Name:        "workers",
		ViperKey:    "events.workers",
		Description: "Number of event publishing workers",
	},
	FlagGatewayTarget: {
		Name:        "gateway",
		Shorthand:   "g",
		ViperKey:    "client.gateway_target",
		Description: "Gateway URL used by client commands",
	},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaults().GetString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddIntFlag registers an int flag on cmd from the given FlagSet.
func AddIntFlag(cmd *cobra.Command, fs FlagSet, key string, target *int) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaults().GetInt(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().IntVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().IntVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, key string, target *uint) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaults().GetUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, keys []string) {
	for _, key := range keys {
		def, ok := fs[key]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaults returns a viper instance holding only the registered defaults.
func defaults() *viper.Viper {
	v := viper.New()
	setViperDefaults(v)
	return v
}

// Package configcmder provides the config command for managing persistent
// chatrelay configuration stored in the .chatrelay/ directory.
package configcmder

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/chatrelay/pkg/config"
)

const configLongDesc string = `Manage persistent chatrelay configuration.

Configuration is stored as config.toml in the .chatrelay/ directory and
provides default values for command flags. CLI flags and CHATRELAY_*
environment variables take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  server.listen, server.heartbeat,
  backend.region, backend.profile, backend.bedrock_endpoint, backend.hosted_endpoint,
  relay.provider, relay.base_url, relay.app_id, relay.app_secret,
  relay.receive_id_type, relay.flush_threshold, relay.max_message_bytes, relay.timeout,
  events.provider, events.brokers, events.topic, events.workers, events.queue_size,
  client.gateway_target,
  log.level

Use subcommands to get, set, or list configuration values:
  chatrelay config set <key> <value>    Set a configuration value
  chatrelay config get <key>            Get a configuration value
  chatrelay config list                 List all configuration values

Examples:
  chatrelay config set relay.provider lark
  chatrelay config set relay.flush_threshold 2000
  chatrelay config get backend.region
  chatrelay config list`

const configShortDesc string = "Manage persistent chatrelay configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

// secretKeys are shown masked by get and list.
var secretKeys = map[string]bool{
	"relay.app_secret": true,
}

func displayValue(key, value string) string {
	if secretKeys[key] && value != "" {
		return "********"
	}
	return value
}

func validateKey(key string) error {
	if !config.IsValidConfigKey(key) {
		return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
			key, strings.Join(config.ValidConfigKeys(), ", "))
	}
	return nil
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

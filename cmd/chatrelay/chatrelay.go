// Package chatrelaycmder
package chatrelaycmder

import (
	"github.com/spf13/cobra"

	chatcmder "github.com/papercomputeco/chatrelay/cmd/chatrelay/chat"
	configcmder "github.com/papercomputeco/chatrelay/cmd/chatrelay/config"
	modelscmder "github.com/papercomputeco/chatrelay/cmd/chatrelay/models"
	relaycmder "github.com/papercomputeco/chatrelay/cmd/chatrelay/relay"
	servecmder "github.com/papercomputeco/chatrelay/cmd/chatrelay/serve"
	versioncmder "github.com/papercomputeco/chatrelay/cmd/version"
)

const chatrelayLongDesc string = `chatrelay puts an OpenAI-style chat completion API in front of
Bedrock and SageMaker models, and relays streamed replies into chat apps.

Run services using:
  chatrelay serve          Run the gateway
  chatrelay chat           Chat through a running gateway
  chatrelay relay send     Deliver one completion to a messaging target`

const chatrelayShortDesc string = "chatrelay - LLM gateway and chat relay"

func NewChatrelayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "chatrelay",
		Short:        chatrelayShortDesc,
		Long:         chatrelayLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .chatrelay directory")

	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(relaycmder.NewRelayCmd())
	cmd.AddCommand(modelscmder.NewModelsCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}

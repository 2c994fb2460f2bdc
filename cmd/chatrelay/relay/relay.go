// Package relaycmder provides the relay command, which runs one completion
// directly against the model backends and delivers it through the relay
// transport without a running gateway.
package relaycmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/chatrelay/cmd/chatrelay/wire"
	"github.com/papercomputeco/chatrelay/pkg/chat"
	"github.com/papercomputeco/chatrelay/pkg/cliui"
	"github.com/papercomputeco/chatrelay/pkg/config"
	"github.com/papercomputeco/chatrelay/pkg/llm"
	"github.com/papercomputeco/chatrelay/pkg/relay"
)

const relayLongDesc string = `Relay model output into a messaging target.

Use subcommands to deliver completions:
  chatrelay relay send    Run a prompt and deliver the reply`

const relayShortDesc string = "Relay model output into a messaging target"

func NewRelayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "relay",
		Short: relayShortDesc,
		Long:  relayLongDesc,
	}

	cmd.AddCommand(NewSendCmd())

	return cmd
}

type sendCommander struct {
	model     string
	target    string
	system    string
	maxTokens int
	dryRun    bool
	debug     bool

	region         string
	profile        string
	relayProvider  string
	flushThreshold int

	config *config.Config
	logger *slog.Logger

	// newService is replaced in tests.
	newService func(ctx context.Context, cfg *config.Config, log *slog.Logger) (*chat.Service, error)
}

var sendFlags = []string{
	config.FlagRegion,
	config.FlagProfile,
	config.FlagRelayProvider,
	config.FlagFlushThreshold,
}

const sendLongDesc string = `Run a prompt and deliver the reply through the relay.

The reply is streamed from the model and cut into messages at paragraph
breaks ("\n\n") or whenever the undelivered text reaches the flush
threshold. The prompt is read from the arguments, or from stdin when no
arguments are given.

With --dry-run messages are printed instead of delivered.

Examples:
  chatrelay relay send -m anthropic.claude-3-haiku-20240307-v1:0 -t oc_123 "Summarise today's incidents"
  echo "Write a haiku" | chatrelay relay send -m meta.llama3-8b-instruct-v1:0 -t oc_123 --dry-run`

const sendShortDesc string = "Run a prompt and deliver the reply"

func NewSendCmd() *cobra.Command {
	cmder := &sendCommander{newService: wire.ChatService}

	cmd := &cobra.Command{
		Use:   "send [prompt]",
		Short: sendShortDesc,
		Long:  sendLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return err
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, sendFlags)

			cmder.config, err = config.FromViper(v)
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.debug, _ = cmd.Flags().GetBool("debug")

			prompt, err := readPrompt(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			return cmder.run(cmd.Context(), cmd.OutOrStdout(), prompt)
		},
	}

	cmd.Flags().StringVarP(&cmder.model, "model", "m", "", "Model identifier (Bedrock model id or hosted endpoint name)")
	cmd.Flags().StringVarP(&cmder.target, "target", "t", "", "Relay target id (e.g. a chat id)")
	cmd.Flags().StringVar(&cmder.system, "system", "", "Optional system prompt")
	cmd.Flags().IntVar(&cmder.maxTokens, "max-tokens", 0, "Generation limit (clamped to the model family ceiling)")
	cmd.Flags().BoolVar(&cmder.dryRun, "dry-run", false, "Print messages instead of delivering them")
	config.AddStringFlag(cmd, config.Flags, config.FlagRegion, &cmder.region)
	config.AddStringFlag(cmd, config.Flags, config.FlagProfile, &cmder.profile)
	config.AddStringFlag(cmd, config.Flags, config.FlagRelayProvider, &cmder.relayProvider)
	config.AddIntFlag(cmd, config.Flags, config.FlagFlushThreshold, &cmder.flushThreshold)
	_ = cmd.MarkFlagRequired("model")
	_ = cmd.MarkFlagRequired("target")

	return cmd
}

func readPrompt(args []string, stdin io.Reader) (string, error) {
	prompt := strings.Join(args, " ")
	if prompt == "" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("reading prompt: %w", err)
		}
		prompt = string(data)
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt is empty")
	}
	return prompt, nil
}

func (c *sendCommander) run(ctx context.Context, out io.Writer, prompt string) error {
	log, closeLog, err := wire.Logger(c.config.Log.Level, c.debug, "")
	if err != nil {
		return err
	}
	defer closeLog()
	c.logger = log

	sender, err := c.sender(out)
	if err != nil {
		return err
	}

	opts, err := wire.RelayOptions(c.config)
	if err != nil {
		return err
	}

	svc, err := c.newService(ctx, c.config, c.logger)
	if err != nil {
		return err
	}

	st, err := svc.Stream(ctx, c.request(prompt))
	if err != nil {
		return err
	}
	defer st.Close()

	var res relay.Result
	deliver := func() error {
		res = relay.NewSegmenter(sender, opts, c.logger).Run(ctx, c.target, st)
		if res.Err != nil {
			return res.Err
		}
		if res.Failed > 0 {
			return fmt.Errorf("%d of %d messages failed", res.Failed, res.Delivered+res.Failed)
		}
		return nil
	}

	// Only the lark transport keeps stdout free for a spinner.
	if !c.dryRun && c.config.Relay.Provider == config.RelayLark && cliui.IsTerminal(os.Stdout) {
		err = cliui.Step(out, fmt.Sprintf("Relaying %s to %s", c.model, c.target), deliver)
	} else {
		err = deliver()
	}

	fmt.Fprintf(out, "%s %d delivered, %d failed (%s)\n",
		cliui.Mark(err), res.Delivered, res.Failed, res.FinishReason)
	return err
}

func (c *sendCommander) sender(out io.Writer) (relay.Sender, error) {
	if c.dryRun {
		return &relay.WriterSender{W: out}, nil
	}

	sender, err := wire.Sender(c.config, out, c.logger)
	if err != nil {
		return nil, err
	}
	if sender == nil {
		return nil, errors.New("relay provider is \"none\"; set relay.provider or use --dry-run")
	}
	return sender, nil
}

func (c *sendCommander) request(prompt string) *llm.ChatRequest {
	req := &llm.ChatRequest{Model: c.model}
	if c.system != "" {
		req.Messages = append(req.Messages, llm.NewTextMessage(llm.RoleSystem, c.system))
	}
	req.Messages = append(req.Messages, llm.NewTextMessage(llm.RoleUser, prompt))
	if c.maxTokens > 0 {
		req.MaxTokens = &c.maxTokens
	}
	return req
}

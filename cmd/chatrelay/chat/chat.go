// Package chatcmder provides the chat command for interactive chat through
// a running chatrelay gateway.
package chatcmder

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/chatrelay/cmd/chatrelay/wire"
	"github.com/papercomputeco/chatrelay/pkg/cliui"
	"github.com/papercomputeco/chatrelay/pkg/config"
	"github.com/papercomputeco/chatrelay/pkg/dotdir"
	"github.com/papercomputeco/chatrelay/pkg/llm"
	"github.com/papercomputeco/chatrelay/pkg/sse"
	"github.com/papercomputeco/chatrelay/pkg/stream"
)

var (
	userPrompt      = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")
	assistantPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("assistant> ")
)

type chatCommander struct {
	gatewayTarget string
	model         string
	system        string
	configDir     string
	newConv       bool
	raw           bool
	render        bool
	debug         bool
	logLevel      string

	in     io.Reader
	out    io.Writer
	errOut io.Writer

	dotdir     *dotdir.Manager
	httpClient *http.Client
	logger     *slog.Logger
}

// chatRequest is the OpenAI-style body sent to the gateway.
type chatRequest struct {
	Model    string                       `json:"model"`
	Messages []dotdir.ConversationMessage `json:"messages"`
	Stream   bool                         `json:"stream"`
}

var chatFlags = []string{
	config.FlagGatewayTarget,
}

const chatLongDesc string = `Start an interactive chat session through the chatrelay gateway.

Each turn is sent to the gateway's /v1/chat/completions endpoint with
streaming enabled, and the reply is printed as it arrives. The running
conversation is kept in the .chatrelay directory and resumed on the next
"chatrelay chat" with the same model. Use --new to start over.

Commands inside the session:
  /new     Clear the conversation
  /exit    Quit (Ctrl+D also works)

Examples:
  chatrelay chat --model anthropic.claude-3-haiku-20240307-v1:0
  chatrelay chat --model meta.llama3-8b-instruct-v1:0 --gateway http://localhost:9000
  chatrelay chat --model mistral.mistral-large-2402-v1:0 --raw 2>frames.log`

const chatShortDesc string = "Interactive chat through the chatrelay gateway"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{
		dotdir:     dotdir.NewManager(),
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return err
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, chatFlags)

			cfg, err := config.FromViper(v)
			if err != nil {
				return err
			}
			cmder.gatewayTarget = strings.TrimSuffix(cfg.Client.GatewayTarget, "/")
			cmder.logLevel = cfg.Log.Level
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			cmder.in = cmd.InOrStdin()
			cmder.out = cmd.OutOrStdout()
			cmder.errOut = cmd.ErrOrStderr()
			return cmder.run(cmd.Context())
		},
	}

	var gatewayTarget string
	config.AddStringFlag(cmd, config.Flags, config.FlagGatewayTarget, &gatewayTarget)
	cmd.Flags().StringVarP(&cmder.model, "model", "m", "", "Model identifier")
	cmd.Flags().StringVar(&cmder.system, "system", "", "System prompt for a new conversation")
	cmd.Flags().BoolVar(&cmder.newConv, "new", false, "Discard the saved conversation")
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Copy raw SSE frames to stderr")
	cmd.Flags().BoolVar(&cmder.render, "render", false, "Render replies as markdown once complete")
	_ = cmd.MarkFlagRequired("model")

	return cmd
}

func (c *chatCommander) run(ctx context.Context) error {
	log, closeLog, err := wire.Logger(c.logLevel, c.debug, "")
	if err != nil {
		return err
	}
	defer closeLog()
	c.logger = log

	conv, err := c.loadConversation()
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "  %s %s\n\n",
		cliui.KeyStyle.Render("Model:"),
		cliui.ValueStyle.Render(c.model),
	)
	fmt.Fprintf(c.out, "  %s\n\n", cliui.DimStyle.Render("Type your message and press Enter. /new to start over, /exit or Ctrl+D to quit."))

	scanner := bufio.NewScanner(c.in)
	for {
		fmt.Fprint(c.out, userPrompt)
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		switch input {
		case "":
			continue
		case "/exit":
			fmt.Fprintln(c.out)
			return nil
		case "/new":
			conv = c.freshConversation()
			if err := c.dotdir.ClearConversation(c.configDir); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "  %s New conversation\n\n", cliui.DimStyle.Render("●"))
			continue
		}

		conv.Messages = append(conv.Messages, dotdir.ConversationMessage{Role: llm.RoleUser, Content: input})

		reply, err := c.turn(ctx, conv.Messages)
		if err != nil {
			fmt.Fprintf(c.errOut, "  %s %v\n", cliui.FailMark, err)
			// Drop the failed turn so it can be retried.
			conv.Messages = conv.Messages[:len(conv.Messages)-1]
			continue
		}

		conv.Messages = append(conv.Messages, dotdir.ConversationMessage{Role: llm.RoleAssistant, Content: reply})
		if err := c.dotdir.SaveConversation(conv, c.configDir); err != nil {
			c.logger.Warn("could not save conversation", "error", err)
		}
		fmt.Fprint(c.out, "\n\n")
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Fprintln(c.out)
	return nil
}

func (c *chatCommander) loadConversation() (*dotdir.Conversation, error) {
	if c.newConv {
		if err := c.dotdir.ClearConversation(c.configDir); err != nil {
			return nil, err
		}
		return c.freshConversation(), nil
	}

	conv, err := c.dotdir.LoadConversation(c.configDir)
	if err != nil {
		return nil, fmt.Errorf("loading conversation: %w", err)
	}
	if conv == nil || conv.Model != c.model {
		fmt.Fprintf(c.out, "\n  %s New conversation\n", cliui.DimStyle.Render("●"))
		return c.freshConversation(), nil
	}

	fmt.Fprintf(c.out, "\n  %s Resuming conversation %s\n",
		cliui.SuccessMark,
		cliui.DimStyle.Render(fmt.Sprintf("(%d messages)", len(conv.Messages))),
	)
	return conv, nil
}

func (c *chatCommander) freshConversation() *dotdir.Conversation {
	conv := &dotdir.Conversation{Model: c.model}
	if c.system != "" {
		conv.Messages = append(conv.Messages, dotdir.ConversationMessage{Role: llm.RoleSystem, Content: c.system})
	}
	return conv
}

// turn sends one request and returns the assistant's reply.
func (c *chatCommander) turn(ctx context.Context, messages []dotdir.ConversationMessage) (string, error) {
	if !c.render {
		fmt.Fprint(c.out, assistantPrompt)
		return c.sendAndStream(ctx, messages, c.out)
	}

	var reply string
	err := cliui.Step(c.out, "Waiting for "+c.model, func() error {
		var err error
		reply, err = c.sendAndStream(ctx, messages, io.Discard)
		return err
	})
	if err != nil {
		return "", err
	}

	rendered, err := cliui.RenderMarkdown(reply)
	if err != nil {
		c.logger.Debug("markdown render failed", "error", err)
		rendered = reply
	}
	fmt.Fprint(c.out, rendered)
	return reply, nil
}

// sendAndStream posts the conversation and copies content deltas to w as
// they arrive. Returns the full reply text.
func (c *chatCommander) sendAndStream(ctx context.Context, messages []dotdir.ConversationMessage, w io.Writer) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   true,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	c.logger.Debug("sending chat request",
		"gateway_target", c.gatewayTarget,
		"model", c.model,
		"message_count", len(messages),
	)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.gatewayTarget+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("sending request to gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", gatewayError(resp)
	}

	var rawDest io.Writer
	if c.raw {
		rawDest = c.errOut
	}
	reader := sse.NewTeeReader(resp.Body, rawDest)

	var content strings.Builder
	for {
		ev, err := reader.Next()
		if err != nil {
			return content.String(), fmt.Errorf("reading stream: %w", err)
		}
		if ev == nil || ev.IsDone() {
			return content.String(), nil
		}

		var frame stream.Frame
		if err := json.Unmarshal([]byte(ev.Data), &frame); err != nil {
			c.logger.Debug("failed to parse stream frame", "error", err, "data", ev.Data)
			continue
		}
		if frame.Error != nil {
			return content.String(), fmt.Errorf("%s: %s", frame.Error.Type, frame.Error.Message)
		}

		for _, choice := range frame.Choices {
			if choice.Delta.Content == "" {
				continue
			}
			fmt.Fprint(w, choice.Delta.Content)
			content.WriteString(choice.Delta.Content)
		}
	}
}

func gatewayError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var errResp llm.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		return fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, errResp.Error.Message)
	}
	if len(body) == 0 {
		return errors.New(resp.Status)
	}
	return fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}

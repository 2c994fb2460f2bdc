// Package lark delivers relay messages through the Lark/Feishu open
// platform messaging API.
package lark

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/papercomputeco/chatrelay/pkg/relay"
	"github.com/papercomputeco/chatrelay/pkg/utils"
)

const (
	// DefaultBaseURL is the Feishu open platform. Lark international
	// tenants use https://open.larksuite.com.
	DefaultBaseURL = "https://open.feishu.cn"

	tokenPath   = "/open-apis/auth/v3/tenant_access_token/internal"
	messagePath = "/open-apis/im/v1/messages"
)

// Error codes reporting an invalid or expired tenant access token.
var tokenInvalidCodes = []int{99991661, 99991663, 99991668}

// Config holds the application credentials and delivery settings.
type Config struct {
	BaseURL       string
	AppID         string
	AppSecret     string
	ReceiveIDType string // "chat_id", "open_id", "user_id", "union_id" or "email"
	Timeout       time.Duration
}

// Client sends text messages. It implements relay.Sender.
type Client struct {
	baseURL       string
	appID         string
	appSecret     string
	receiveIDType string
	httpClient    *http.Client
	tokens        *TokenCache
	logger        *slog.Logger
}

var _ relay.Sender = (*Client)(nil)

// APIError is a non-zero code in an open platform response.
type APIError struct {
	Code int
	Msg  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("lark api error %d: %s", e.Code, e.Msg)
}

// New creates a Client.
func New(cfg Config, logger *slog.Logger) *Client {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	receiveIDType := cfg.ReceiveIDType
	if receiveIDType == "" {
		receiveIDType = "chat_id"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	c := &Client{
		baseURL:       baseURL,
		appID:         cfg.AppID,
		appSecret:     cfg.AppSecret,
		receiveIDType: receiveIDType,
		httpClient:    &http.Client{Timeout: timeout},
		logger:        logger,
	}
	c.tokens = NewTokenCache(c.fetchToken)
	return c
}

type tokenRequest struct {
	AppID     string `json:"app_id"`
	AppSecret string `json:"app_secret"`
}

type tokenResponse struct {
	Code              int    `json:"code"`
	Msg               string `json:"msg"`
	TenantAccessToken string `json:"tenant_access_token"`
	Expire            int    `json:"expire"` // seconds
}

type messageRequest struct {
	ReceiveID string `json:"receive_id"`
	MsgType   string `json:"msg_type"`
	Content   string `json:"content"`
}

type textContent struct {
	Text string `json:"text"`
}

type apiResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func (c *Client) fetchToken(ctx context.Context) (string, time.Duration, error) {
	var resp tokenResponse
	if err := c.post(ctx, tokenPath, "", tokenRequest{AppID: c.appID, AppSecret: c.appSecret}, &resp); err != nil {
		return "", 0, fmt.Errorf("fetching tenant access token: %w", err)
	}
	if resp.Code != 0 {
		return "", 0, &APIError{Code: resp.Code, Msg: resp.Msg}
	}
	if resp.TenantAccessToken == "" {
		return "", 0, fmt.Errorf("fetching tenant access token: empty token")
	}

	c.logger.Debug("refreshed lark tenant token", "expire", resp.Expire)
	return resp.TenantAccessToken, time.Duration(resp.Expire) * time.Second, nil
}

// Send delivers msg as a text message to msg.TargetID.
func (c *Client) Send(ctx context.Context, msg relay.Message) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	content, err := json.Marshal(textContent{Text: msg.Text})
	if err != nil {
		return fmt.Errorf("encoding message content: %w", err)
	}

	path := messagePath + "?" + url.Values{"receive_id_type": {c.receiveIDType}}.Encode()
	body := messageRequest{
		ReceiveID: msg.TargetID,
		MsgType:   "text",
		Content:   string(content),
	}

	var resp apiResponse
	if err := c.post(ctx, path, token, body, &resp); err != nil {
		return err
	}
	if resp.Code != 0 {
		if slices.Contains(tokenInvalidCodes, resp.Code) {
			c.tokens.Invalidate()
		}
		return &APIError{Code: resp.Code, Msg: resp.Msg}
	}
	return nil
}

func (c *Client) post(ctx context.Context, path, token string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json; charset=utf-8")
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	// The open platform reports most failures in the JSON body, with a
	// 4xx status as well; prefer the body when it parses.
	var envelope apiResponse
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return fmt.Errorf("unexpected response (status %d): %s", httpResp.StatusCode, utils.Truncate(string(respBody), 200))
	}
	if httpResp.StatusCode >= http.StatusBadRequest && envelope.Code == 0 {
		return fmt.Errorf("unexpected status %d: %s", httpResp.StatusCode, utils.Truncate(string(respBody), 200))
	}
	return json.Unmarshal(respBody, out)
}

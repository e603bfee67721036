// Package api implements the RemoteAPI transport: signed HTTP requests
// against the mobile-chat backend, wire-shape parsing, and typed failures.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/ipchi/fcrm-chat-go/internal/signature"
	"github.com/ipchi/fcrm-chat-go/pkg/chaterr"
	"github.com/ipchi/fcrm-chat-go/pkg/logger"
)

// DefaultTimeout is the per-request timeout applied when Config.Timeout is
// unset.
const DefaultTimeout = 20 * time.Second

// Config is the base configuration shared by every RemoteAPI request.
type Config struct {
	BaseURL      string
	CompanyToken string
	AppKey       string
	AppSecret    string
	Timeout      time.Duration
}

// Client is a stateless request wrapper around the mobile-chat HTTP API.
type Client struct {
	cfg  Config
	http *http.Client
}

// New creates a RemoteAPI client.
func New(cfg Config) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *Client) base() string {
	return fmt.Sprintf("%s/api/v1/mobile-chat/%s", c.cfg.BaseURL, c.cfg.CompanyToken)
}

// FetchConfig retrieves the remote chat configuration. Authentication is
// carried as key/sig query parameters rather than headers on this endpoint.
func (c *Client) FetchConfig(ctx context.Context) (ChatConfig, error) {
	values := url.Values{}
	values.Set("key", c.cfg.AppKey)
	values.Set("sig", signature.Sign(c.cfg.AppKey, c.cfg.AppSecret))

	body, err := c.doRequest(ctx, http.MethodGet, "/config?"+values.Encode(), nil, false)
	if err != nil {
		return ChatConfig{}, err
	}

	var wire configWire
	if err := json.Unmarshal(body, &wire); err != nil {
		return ChatConfig{}, &chaterr.APIError{Message: fmt.Sprintf("parse config response: %v", err)}
	}
	cfg := ChatConfig{
		Name:             wire.Name,
		IsActive:         wire.IsActive,
		Settings:         wire.Settings,
		RequiredFields:   wire.RequiredFields,
		RealtimeEndpoint: wire.SocketEndpoint,
		RealtimeKey:      wire.SocketKey,
	}
	if cfg.RequiredFields == nil {
		cfg.RequiredFields = RequiredFields{}
	}
	return cfg, nil
}

// RegisterBrowser creates a new device identity from the submitted profile
// fields. channel optionally routes the registration (empty means default).
func (c *Client) RegisterBrowser(ctx context.Context, fields map[string]string, channel string) (RegisterResult, error) {
	payload := map[string]any{"fields": fields}
	if channel != "" {
		payload["channel"] = channel
	}
	return c.postRegister(ctx, "/register-browser", payload)
}

// UpdateBrowser re-registers an existing identity with a fresh profile. The
// response shape matches RegisterBrowser.
func (c *Client) UpdateBrowser(ctx context.Context, browserKey string, fields map[string]string) (RegisterResult, error) {
	payload := map[string]any{
		"browser_key": browserKey,
		"fields":      fields,
	}
	return c.postRegister(ctx, "/browser/update", payload)
}

func (c *Client) postRegister(ctx context.Context, path string, payload map[string]any) (RegisterResult, error) {
	body, err := c.doRequest(ctx, http.MethodPost, path, payload, true)
	if err != nil {
		return RegisterResult{}, err
	}
	var wire registerWire
	if err := json.Unmarshal(body, &wire); err != nil {
		return RegisterResult{}, &chaterr.APIError{Message: fmt.Sprintf("parse register response: %v", err)}
	}
	if wire.BrowserKey == "" {
		return RegisterResult{}, &chaterr.APIError{Message: "register response missing browser key"}
	}
	return RegisterResult{
		BrowserKey:   wire.BrowserKey,
		ChatID:       wire.ChatID,
		LastMessages: wire.LastMessages,
	}, nil
}

// UpdateBrowserData patches profile fields and returns the merged
// server-side profile snapshot.
func (c *Client) UpdateBrowserData(ctx context.Context, browserKey string, partial map[string]any) (map[string]any, error) {
	payload := map[string]any{
		"browser_key": browserKey,
		"data":        partial,
	}
	body, err := c.doRequest(ctx, http.MethodPost, "/browser/update-data", payload, true)
	if err != nil {
		return nil, err
	}
	var wire struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, &chaterr.APIError{Message: fmt.Sprintf("parse profile response: %v", err)}
	}
	if wire.Data == nil {
		wire.Data = map[string]any{}
	}
	return wire.Data, nil
}

// SendMessage posts a chat message. metadata is omitted from the request body
// when empty.
func (c *Client) SendMessage(ctx context.Context, browserKey, text, channel string, metadata map[string]any) (SendResult, error) {
	payload := map[string]any{
		"browser_key": browserKey,
		"message":     text,
	}
	if channel != "" {
		payload["channel"] = channel
	}
	if len(metadata) > 0 {
		payload["metadata"] = metadata
	}
	body, err := c.doRequest(ctx, http.MethodPost, "/send-message", payload, true)
	if err != nil {
		return SendResult{}, err
	}
	var wire sendWire
	if err := json.Unmarshal(body, &wire); err != nil {
		return SendResult{}, &chaterr.APIError{Message: fmt.Sprintf("parse send response: %v", err)}
	}
	result := SendResult{
		MessageID:  wire.MessageID,
		ChatID:     wire.ChatID,
		BotEnabled: wire.BotEnabled,
	}
	if len(wire.BotReply) > 0 && string(wire.BotReply) != "null" {
		if reply, err := ParseMessage(wire.BotReply); err == nil {
			result.BotReply = &reply
		}
	}
	return result, nil
}

// EditMessage replaces the content of a previously sent message. The 24-hour
// editability window is advisory UI logic; it is not enforced here.
func (c *Client) EditMessage(ctx context.Context, browserKey string, messageID int64, content string) (EditResult, error) {
	payload := map[string]any{
		"browser_key": browserKey,
		"message_id":  messageID,
		"message":     content,
	}
	body, err := c.doRequest(ctx, http.MethodPost, "/edit-message", payload, true)
	if err != nil {
		return EditResult{}, err
	}
	var wire editWire
	if err := json.Unmarshal(body, &wire); err != nil {
		return EditResult{}, &chaterr.APIError{Message: fmt.Sprintf("parse edit response: %v", err)}
	}
	return EditResult{
		Success:  wire.Success,
		Message:  wire.Message,
		IsEdited: wire.IsEdited,
		EditedAt: parseTime(wire.EditedAt),
	}, nil
}

// GetMessages fetches one page of the conversation history. Malformed
// entries in the page are skipped rather than failing the whole call.
func (c *Client) GetMessages(ctx context.Context, browserKey string, page, perPage int) (MessagePage, error) {
	payload := map[string]any{
		"browser_key": browserKey,
		"page":        page,
		"per_page":    perPage,
	}
	body, err := c.doRequest(ctx, http.MethodPost, "/messages", payload, true)
	if err != nil {
		return MessagePage{}, err
	}
	var wire messagesWire
	if err := json.Unmarshal(body, &wire); err != nil {
		return MessagePage{}, &chaterr.APIError{Message: fmt.Sprintf("parse messages response: %v", err)}
	}
	result := MessagePage{
		Total:       wire.Total,
		CurrentPage: wire.CurrentPage,
		PerPage:     wire.PerPage,
		LastPage:    wire.LastPage,
	}
	for _, raw := range wire.Messages {
		msg, err := ParseMessage(raw)
		if err != nil {
			logger.Debugf("api: skipping malformed message entry: %v", err)
			continue
		}
		result.Messages = append(result.Messages, msg)
	}
	return result, nil
}

// doRequest performs one signed request and returns the response body.
// Failures are always *chaterr.APIError; StatusCode 0 means no HTTP response
// was obtained.
func (c *Client) doRequest(ctx context.Context, method, path string, payload any, signed bool) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, &chaterr.APIError{Message: fmt.Sprintf("encode request: %v", err)}
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base()+path, reader)
	if err != nil {
		return nil, &chaterr.APIError{Message: fmt.Sprintf("build request: %v", err)}
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if signed {
		req.Header.Set("X-Chat-App-Key", c.cfg.AppKey)
		req.Header.Set("X-Chat-Signature", signature.Sign(c.cfg.AppKey, c.cfg.AppSecret))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &chaterr.APIError{Message: fmt.Sprintf("request failed: %v", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &chaterr.APIError{Message: fmt.Sprintf("read response: %v", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, parseAPIError(resp.StatusCode, body)
	}
	return body, nil
}

// parseAPIError extracts the most specific failure message from an error
// response body. Precedence: top-level "error", then a flattened "errors"
// field map, then "message", then a generic fallback.
func parseAPIError(status int, body []byte) *chaterr.APIError {
	var decoded struct {
		Error   string              `json:"error"`
		Errors  map[string][]string `json:"errors"`
		Message string              `json:"message"`
	}
	if err := json.Unmarshal(body, &decoded); err == nil {
		switch {
		case decoded.Error != "":
			return &chaterr.APIError{Message: decoded.Error, StatusCode: status}
		case len(decoded.Errors) > 0:
			return &chaterr.APIError{Message: flattenFieldErrors(decoded.Errors), StatusCode: status}
		case decoded.Message != "":
			return &chaterr.APIError{Message: decoded.Message, StatusCode: status}
		}
	}
	return &chaterr.APIError{Message: fmt.Sprintf("request failed with status %d", status), StatusCode: status}
}

func flattenFieldErrors(fields map[string][]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var parts []string
	for _, k := range keys {
		parts = append(parts, fields[k]...)
	}
	return strings.Join(parts, ", ")
}

package sdk

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/ipchi/fcrm-chat-go/internal/api"
	"github.com/ipchi/fcrm-chat-go/pkg/chaterr"
	"github.com/ipchi/fcrm-chat-go/pkg/logger"
)

// Initialize fetches the remote configuration, restores any persisted device
// identity and opens the realtime channel. Calling it on an already
// initialized session is a no-op.
//
// Any failure in the sequence, the realtime connect included, is recorded
// in the published state, returned to the caller, and leaves the session
// uninitialized. An inactive application fails with chaterr.ErrInactiveApp.
func (c *Client) Initialize(ctx context.Context) error {
	_, err := c.dispatch.call(func() (interface{}, error) {
		if c.State().Initialized {
			return nil, nil
		}

		cfg, err := c.api.FetchConfig(ctx)
		if err != nil {
			c.recordError(err)
			return nil, err
		}
		if !cfg.IsActive {
			c.recordError(chaterr.ErrInactiveApp)
			return nil, chaterr.ErrInactiveApp
		}

		key, err := c.store.BrowserKey()
		if err != nil {
			c.recordError(err)
			return nil, err
		}

		ch := c.newChannel()
		ch.OnBrowserKeyUpdated(c.handleBrowserKeyUpdated)
		ch.OnConnectionChange(c.handleConnectionChange)
		if err := ch.Connect(c.realtimeEndpoint(cfg), cfg.RealtimeKey, key); err != nil {
			ch.Dispose()
			c.recordError(err)
			return nil, err
		}

		c.mu.Lock()
		c.channel = ch
		c.mu.Unlock()

		c.publishState(SessionState{
			Initialized: true,
			Registered:  key != "",
			BrowserKey:  key,
			Config:      &cfg,
		})
		return nil, nil
	})
	return err
}

// realtimeEndpoint resolves the socket endpoint: an explicit option wins
// over the server-provided one.
func (c *Client) realtimeEndpoint(cfg api.ChatConfig) string {
	if c.opts.RealtimeEndpoint != "" {
		return c.opts.RealtimeEndpoint
	}
	return cfg.RealtimeEndpoint
}

// Register submits the visitor profile and obtains a device identity. The
// server's required fields are checked first, in declaration order, and the
// first missing one fails the call without any network traffic. On success
// the identity and profile are persisted, the realtime channel switches to
// the new private room, and the server's recent message history is returned.
func (c *Client) Register(ctx context.Context, fields map[string]string, channel string) ([]api.Message, error) {
	v, err := c.dispatch.call(func() (interface{}, error) {
		state := c.State()
		if !state.Initialized {
			return nil, chaterr.ErrNotInitialized
		}
		if state.Config != nil {
			for _, rf := range state.Config.RequiredFields {
				if strings.TrimSpace(fields[rf.Name]) == "" {
					return nil, &chaterr.MissingRequiredFieldError{Field: rf.Name, Label: rf.Label}
				}
			}
		}

		res, err := c.api.RegisterBrowser(ctx, fields, channel)
		if err != nil {
			c.recordError(err)
			return nil, err
		}

		if err := c.store.SaveBrowserKey(res.BrowserKey); err != nil {
			c.recordError(err)
			return nil, err
		}
		if err := c.store.SaveUserData(profileBlob(fields)); err != nil {
			c.recordError(err)
			return nil, err
		}

		c.mu.Lock()
		ch := c.channel
		c.mu.Unlock()
		if ch != nil {
			ch.UpdateBrowserKey(res.BrowserKey)
		}

		state = c.State()
		state.Registered = true
		state.BrowserKey = res.BrowserKey
		state.ChatID = res.ChatID
		state.Err = nil
		c.publishState(state)

		return parseRawMessages(res.LastMessages), nil
	})
	if err != nil {
		return nil, err
	}
	msgs, _ := v.([]api.Message)
	return msgs, nil
}

// Reset wipes the device identity and profile and tears down the realtime
// channel. The session stays initialized; a subsequent Register starts a
// fresh conversation. Reset on an unregistered session is a no-op that still
// succeeds.
func (c *Client) Reset() error {
	_, err := c.dispatch.call(func() (interface{}, error) {
		if err := c.store.ClearAll(); err != nil {
			c.recordError(err)
			return nil, err
		}

		c.mu.Lock()
		ch := c.channel
		c.channel = nil
		c.mu.Unlock()
		if ch != nil {
			ch.Dispose()
		}

		state := c.State()
		state.Registered = false
		state.BrowserKey = ""
		state.ChatID = 0
		state.Connected = false
		state.Err = nil
		c.publishState(state)
		return nil, nil
	})
	return err
}

// Reconnect tears down the current realtime channel and opens a fresh one
// against the configuration fetched at Initialize. A no-op before
// initialization.
func (c *Client) Reconnect() error {
	_, err := c.dispatch.call(func() (interface{}, error) {
		state := c.State()
		if state.Config == nil {
			return nil, nil
		}

		c.mu.Lock()
		old := c.channel
		c.mu.Unlock()
		if old != nil {
			old.Dispose()
		}

		ch := c.newChannel()
		ch.OnBrowserKeyUpdated(c.handleBrowserKeyUpdated)
		ch.OnConnectionChange(c.handleConnectionChange)
		if err := ch.Connect(c.realtimeEndpoint(*state.Config), state.Config.RealtimeKey, state.BrowserKey); err != nil {
			c.recordError(err)
			return nil, err
		}

		c.mu.Lock()
		c.channel = ch
		c.mu.Unlock()
		return nil, nil
	})
	return err
}

// handleBrowserKeyUpdated reacts to a server-pushed identity rotation: the
// channel has already moved rooms, so the session persists the new key and
// publishes the updated snapshot.
func (c *Client) handleBrowserKeyUpdated(key string) {
	_ = c.dispatch.do(func() {
		if err := c.store.SaveBrowserKey(key); err != nil {
			logger.Errorf("persist rotated browser key: %v", err)
		}
		state := c.State()
		state.BrowserKey = key
		state.Registered = key != ""
		c.publishState(state)
	})
}

func (c *Client) handleConnectionChange(connected bool) {
	_ = c.dispatch.do(func() {
		state := c.State()
		if state.Connected == connected {
			return
		}
		state.Connected = connected
		c.publishState(state)
	})
}

// requireRegistered returns the current device identity or the guard error
// for operations that need one. Guard failures are returned to the caller
// without touching the published state.
func (c *Client) requireRegistered() (string, error) {
	state := c.State()
	if !state.Initialized {
		return "", chaterr.ErrNotInitialized
	}
	if !state.Registered || state.BrowserKey == "" {
		return "", chaterr.ErrNotRegistered
	}
	return state.BrowserKey, nil
}

// profileBlob serializes the registration fields plus registration markers
// for local persistence.
func profileBlob(fields map[string]string) string {
	blob := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		blob[k] = v
	}
	blob["registered"] = true
	blob["registered_at"] = time.Now().UTC().Format(time.RFC3339)
	out, err := json.Marshal(blob)
	if err != nil {
		return "{}"
	}
	return string(out)
}

// parseRawMessages decodes server message payloads, skipping entries that do
// not parse.
func parseRawMessages(raw []json.RawMessage) []api.Message {
	msgs := make([]api.Message, 0, len(raw))
	for _, entry := range raw {
		msg, err := api.ParseMessage(entry)
		if err != nil {
			logger.Debugf("skipping malformed message in history: %v", err)
			continue
		}
		msgs = append(msgs, msg)
	}
	return msgs
}

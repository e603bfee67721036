package sdk

import (
	"context"
	"time"

	"github.com/ipchi/fcrm-chat-go/internal/api"
	"github.com/ipchi/fcrm-chat-go/pkg/logger"
)

// editWindow is how long after creation a message remains editable. The
// backend enforces the real cutoff; CanEdit only predicts it so UIs can hide
// the edit affordance.
const editWindow = 24 * time.Hour

// SendMessage delivers a text message on the active conversation.
func (c *Client) SendMessage(ctx context.Context, text, channel string, metadata map[string]any) (api.SendResult, error) {
	v, err := c.dispatch.call(func() (interface{}, error) {
		key, err := c.requireRegistered()
		if err != nil {
			return nil, err
		}
		res, err := c.api.SendMessage(ctx, key, text, channel, metadata)
		if err != nil {
			c.recordError(err)
			return nil, err
		}
		return res, nil
	})
	if err != nil {
		return api.SendResult{}, err
	}
	return v.(api.SendResult), nil
}

// EditMessage replaces the content of a previously sent message.
func (c *Client) EditMessage(ctx context.Context, messageID int64, content string) (api.EditResult, error) {
	v, err := c.dispatch.call(func() (interface{}, error) {
		key, err := c.requireRegistered()
		if err != nil {
			return nil, err
		}
		res, err := c.api.EditMessage(ctx, key, messageID, content)
		if err != nil {
			c.recordError(err)
			return nil, err
		}
		return res, nil
	})
	if err != nil {
		return api.EditResult{}, err
	}
	return v.(api.EditResult), nil
}

// GetMessages fetches one page of conversation history, newest page first.
func (c *Client) GetMessages(ctx context.Context, page, perPage int) (api.MessagePage, error) {
	v, err := c.dispatch.call(func() (interface{}, error) {
		key, err := c.requireRegistered()
		if err != nil {
			return nil, err
		}
		res, err := c.api.GetMessages(ctx, key, page, perPage)
		if err != nil {
			c.recordError(err)
			return nil, err
		}
		return res, nil
	})
	if err != nil {
		return api.MessagePage{}, err
	}
	return v.(api.MessagePage), nil
}

// LoadMessages is the forgiving history fetch used on session start: it
// never returns an error. When the session is uninitialized, the device
// identity or persisted profile cannot be recovered, or the fetch fails, it
// returns an empty page so the conversation view renders empty instead of
// broken.
func (c *Client) LoadMessages(ctx context.Context, page, perPage int) api.MessagePage {
	v, _ := c.dispatch.call(func() (interface{}, error) {
		if !c.State().Initialized {
			return api.EmptyPage(perPage), nil
		}
		key := c.State().BrowserKey
		if key == "" {
			// The state may predate a process restart; fall back to the
			// persisted identity.
			stored, err := c.store.BrowserKey()
			if err != nil || stored == "" {
				return api.EmptyPage(perPage), nil
			}
			key = stored
		}
		// A key without a profile blob means registration never completed
		// here; treat the conversation as empty rather than guessing.
		if blob, err := c.store.UserData(); err != nil || blob == "" {
			return api.EmptyPage(perPage), nil
		}
		res, err := c.api.GetMessages(ctx, key, page, perPage)
		if err != nil {
			logger.Debugf("history load failed, rendering empty: %v", err)
			return api.EmptyPage(perPage), nil
		}
		return res, nil
	})
	return v.(api.MessagePage)
}

// SendImage uploads an image file as a chat message. The returned handle can
// cancel an in-flight upload; onProgress may be nil.
func (c *Client) SendImage(ctx context.Context, localPath, channel string, onProgress api.ProgressFunc) (*api.UploadHandle, <-chan UploadOutcome) {
	return c.startUpload(ctx, localPath, channel, onProgress)
}

// SendFile uploads an arbitrary file. The backend treats every upload as an
// image attachment, so this shares SendImage's transport.
func (c *Client) SendFile(ctx context.Context, localPath, channel string, onProgress api.ProgressFunc) (*api.UploadHandle, <-chan UploadOutcome) {
	return c.startUpload(ctx, localPath, channel, onProgress)
}

// UploadOutcome is the terminal result of an asynchronous upload.
type UploadOutcome struct {
	Result api.SendResult
	Err    error
}

// startUpload validates the session synchronously, then runs the transfer
// off the dispatch queue so a slow upload cannot stall other operations.
func (c *Client) startUpload(ctx context.Context, localPath, channel string, onProgress api.ProgressFunc) (*api.UploadHandle, <-chan UploadOutcome) {
	handle := api.NewUploadHandle()
	done := make(chan UploadOutcome, 1)

	key, err := c.requireRegistered()
	if err != nil {
		done <- UploadOutcome{Err: err}
		return handle, done
	}

	go func() {
		res, err := c.api.UploadImage(ctx, key, localPath, channel, onProgress, handle)
		if err != nil {
			// Snapshot writes stay on the dispatch queue; the transfer
			// goroutine must not interleave with a queued operation.
			_ = c.dispatch.do(func() { c.recordError(err) })
			done <- UploadOutcome{Err: err}
			return
		}
		done <- UploadOutcome{Result: res}
	}()
	return handle, done
}

// SendTyping forwards a typing signal over the realtime channel. A no-op
// when the session has no identity or no open channel.
func (c *Client) SendTyping(isTyping bool) {
	state := c.State()
	if state.BrowserKey == "" {
		return
	}
	c.mu.Lock()
	ch := c.channel
	c.mu.Unlock()
	if ch == nil {
		return
	}
	ch.SendTyping(state.BrowserKey, isTyping)
}

// UpdateBrowser re-submits the visitor profile for an existing identity. The
// server may rotate the identity; when it does the new key is persisted and
// the realtime channel moves rooms. Returns the server's recent message
// history.
func (c *Client) UpdateBrowser(ctx context.Context, fields map[string]string) ([]api.Message, error) {
	v, err := c.dispatch.call(func() (interface{}, error) {
		key, err := c.requireRegistered()
		if err != nil {
			return nil, err
		}
		res, err := c.api.UpdateBrowser(ctx, key, fields)
		if err != nil {
			c.recordError(err)
			return nil, err
		}

		if err := c.store.SaveUserData(profileBlob(fields)); err != nil {
			c.recordError(err)
			return nil, err
		}

		if res.BrowserKey != "" && res.BrowserKey != key {
			if err := c.store.SaveBrowserKey(res.BrowserKey); err != nil {
				c.recordError(err)
				return nil, err
			}
			c.mu.Lock()
			ch := c.channel
			c.mu.Unlock()
			if ch != nil {
				ch.UpdateBrowserKey(res.BrowserKey)
			}
			state := c.State()
			state.BrowserKey = res.BrowserKey
			state.ChatID = res.ChatID
			state.Err = nil
			c.publishState(state)
		}

		return parseRawMessages(res.LastMessages), nil
	})
	if err != nil {
		return nil, err
	}
	msgs, _ := v.([]api.Message)
	return msgs, nil
}

// UpdateProfile merges a partial profile update into the server-side browser
// data and returns the merged result.
func (c *Client) UpdateProfile(ctx context.Context, partial map[string]any) (map[string]any, error) {
	v, err := c.dispatch.call(func() (interface{}, error) {
		key, err := c.requireRegistered()
		if err != nil {
			return nil, err
		}
		merged, err := c.api.UpdateBrowserData(ctx, key, partial)
		if err != nil {
			c.recordError(err)
			return nil, err
		}
		return merged, nil
	})
	if err != nil {
		return nil, err
	}
	merged, _ := v.(map[string]any)
	return merged, nil
}

// SetName updates the visitor's display name.
func (c *Client) SetName(ctx context.Context, name string) error {
	_, err := c.UpdateProfile(ctx, map[string]any{"name": name})
	return err
}

// SetPhone updates the visitor's phone number.
func (c *Client) SetPhone(ctx context.Context, phone string) error {
	_, err := c.UpdateProfile(ctx, map[string]any{"phone": phone})
	return err
}

// SetEmail updates the visitor's email address.
func (c *Client) SetEmail(ctx context.Context, email string) error {
	_, err := c.UpdateProfile(ctx, map[string]any{"email": email})
	return err
}

// CanEdit reports whether a client message is still inside the edit window.
func CanEdit(m api.Message, now time.Time) bool {
	if m.SenderType != api.SenderClient {
		return false
	}
	if m.CreatedAt.IsZero() {
		return false
	}
	return now.Sub(m.CreatedAt) < editWindow
}

// Package sdk implements the chat session core: it owns the device
// identity, coordinates REST registration with realtime room membership,
// reconciles persisted state against the server, and broadcasts a consistent
// session snapshot to observers.
package sdk

import (
	"context"
	"fmt"
	"sync"

	"github.com/ipchi/fcrm-chat-go/internal/api"
	"github.com/ipchi/fcrm-chat-go/internal/realtime"
	"github.com/ipchi/fcrm-chat-go/internal/store"
)

// remoteAPI is the request/response surface the session consumes. See
// internal/api for the production implementation.
type remoteAPI interface {
	FetchConfig(ctx context.Context) (api.ChatConfig, error)
	RegisterBrowser(ctx context.Context, fields map[string]string, channel string) (api.RegisterResult, error)
	UpdateBrowser(ctx context.Context, browserKey string, fields map[string]string) (api.RegisterResult, error)
	UpdateBrowserData(ctx context.Context, browserKey string, partial map[string]any) (map[string]any, error)
	SendMessage(ctx context.Context, browserKey, text, channel string, metadata map[string]any) (api.SendResult, error)
	EditMessage(ctx context.Context, browserKey string, messageID int64, content string) (api.EditResult, error)
	GetMessages(ctx context.Context, browserKey string, page, perPage int) (api.MessagePage, error)
	UploadImage(ctx context.Context, browserKey, localPath, channel string, onProgress api.ProgressFunc, handle *api.UploadHandle) (api.SendResult, error)
}

// realtimeChannel is the push-event surface the session consumes.
type realtimeChannel interface {
	Connect(endpoint, accessKey, browserKey string) error
	UpdateBrowserKey(newKey string)
	SendTyping(browserKey string, isTyping bool)
	OnMessage(fn func(api.Message)) func()
	OnConnectionChange(fn func(bool)) func()
	OnTyping(fn func(bool)) func()
	OnBrowserKeyUpdated(fn func(string)) func()
	Dispose()
}

// localStore is the persistence surface the session consumes.
type localStore interface {
	SaveBrowserKey(key string) error
	BrowserKey() (string, error)
	SaveUserData(blob string) error
	UserData() (string, error)
	IsRegistered() (bool, error)
	ClearAll() error
	Close() error
}

// Client is the session core. One Client owns one RemoteAPI, one
// RealtimeChannel and one LocalStore for its lifetime; all mutating work is
// serialized on an internal dispatch queue, so methods are safe to call from
// any goroutine.
type Client struct {
	opts  Options
	api   remoteAPI
	store localStore

	mu        sync.Mutex
	channel   realtimeChannel
	state     SessionState
	stateSubs map[int]func(SessionState)
	nextSubID int

	// newChannel constructs the realtime channel; swapped in tests.
	newChannel func() realtimeChannel

	dispatch  *dispatcher
	callbacks *dispatcher
}

// New creates a session client. The local store is opened immediately;
// nothing touches the network until Initialize.
func New(opts Options) (*Client, error) {
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	opts.normalize()

	path := opts.StoragePath
	if path == "" {
		var err error
		path, err = store.DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	st, err := store.Open(path, opts.AppKey)
	if err != nil {
		return nil, err
	}

	remote := api.New(api.Config{
		BaseURL:      opts.BaseURL,
		CompanyToken: opts.CompanyToken,
		AppKey:       opts.AppKey,
		AppSecret:    opts.AppSecret,
		Timeout:      opts.Timeout,
	})

	return newClientWith(opts, remote, st), nil
}

// newClientWith wires a client around explicit collaborators. Tests install
// fakes through here.
func newClientWith(opts Options, remote remoteAPI, st localStore) *Client {
	return &Client{
		opts:      opts,
		api:       remote,
		store:     st,
		stateSubs: make(map[int]func(SessionState)),
		newChannel: func() realtimeChannel {
			return realtime.New()
		},
		dispatch:  newDispatcher(defaultDispatcherQueueSize),
		callbacks: newDispatcher(defaultDispatcherQueueSize),
	}
}

// OnMessage registers a message subscriber. Subscribing before Initialize
// returns a no-op unsubscribe and yields no events; re-subscribe after
// Initialize to receive them.
func (c *Client) OnMessage(fn func(api.Message)) func() {
	c.mu.Lock()
	ch := c.channel
	c.mu.Unlock()
	if ch == nil {
		return func() {}
	}
	return ch.OnMessage(fn)
}

// OnConnectionChange registers a connection-state subscriber. Same
// pre-Initialize behavior as OnMessage.
func (c *Client) OnConnectionChange(fn func(bool)) func() {
	c.mu.Lock()
	ch := c.channel
	c.mu.Unlock()
	if ch == nil {
		return func() {}
	}
	return ch.OnConnectionChange(fn)
}

// OnTyping registers a typing subscriber. Same pre-Initialize behavior as
// OnMessage.
func (c *Client) OnTyping(fn func(bool)) func() {
	c.mu.Lock()
	ch := c.channel
	c.mu.Unlock()
	if ch == nil {
		return func() {}
	}
	return ch.OnTyping(fn)
}

// Dispose disconnects the realtime channel and closes the local store. The
// client must not be used afterwards.
func (c *Client) Dispose() {
	_, _ = c.dispatch.call(func() (interface{}, error) {
		c.mu.Lock()
		ch := c.channel
		c.channel = nil
		c.mu.Unlock()
		if ch != nil {
			ch.Dispose()
		}
		return nil, c.store.Close()
	})
}

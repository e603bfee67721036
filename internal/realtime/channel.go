// Package realtime manages the persistent socket.io connection to the chat
// backend: connect/reconnect, room membership, and a typed publish/subscribe
// surface for message, connection, typing, and browser-key events.
package realtime

import (
	"fmt"
	"sync"
	"time"

	socket "github.com/zishang520/socket.io/clients/socket/v3"
	"github.com/zishang520/socket.io/v3/pkg/types"

	"github.com/ipchi/fcrm-chat-go/internal/api"
	"github.com/ipchi/fcrm-chat-go/pkg/logger"
)

// State is the connection lifecycle state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
)

const (
	// reconnectAttempts bounds the automatic reconnection loop. After the cap
	// is exhausted the channel stays disconnected until Connect is called
	// again.
	reconnectAttempts = 5
	// reconnectDelay is the fixed inter-attempt delay (no jitter).
	reconnectDelay = 3 * time.Second
)

// RoomName derives the private room for a browser key.
func RoomName(browserKey string) string {
	return "private-chat_" + browserKey
}

// Channel owns one socket.io connection. All public methods are safe for
// concurrent use; inbound events are dispatched synchronously per event in
// the socket client's delivery order.
type Channel struct {
	mu         sync.Mutex
	state      State
	socket     *socket.Socket
	endpoint   string
	accessKey  string
	browserKey string
	failures   int
	disposed   bool

	nextSubID      int
	messageSubs    map[int]func(api.Message)
	connectionSubs map[int]func(bool)
	typingSubs     map[int]func(bool)
	browserKeySubs map[int]func(string)
}

// New creates a disconnected channel.
func New() *Channel {
	return &Channel{
		state:          StateDisconnected,
		messageSubs:    make(map[int]func(api.Message)),
		connectionSubs: make(map[int]func(bool)),
		typingSubs:     make(map[int]func(bool)),
		browserKeySubs: make(map[int]func(string)),
	}
}

// State returns the current lifecycle state.
func (ch *Channel) State() State {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.state
}

// Connected reports whether the socket is currently connected.
func (ch *Channel) Connected() bool {
	return ch.State() == StateConnected
}

// Connect opens the connection. The auth payload carries the access key and,
// when known, the browser key; on a successful connect the browser key's
// private room is joined automatically. Calling Connect while a connection
// is open is a no-op.
func (ch *Channel) Connect(endpoint, accessKey, browserKey string) error {
	prior, proceed, err := ch.beginConnect(endpoint, accessKey, browserKey)
	if err != nil || !proceed {
		return err
	}

	// A socket left over from an exhausted reconnect loop still holds live
	// handlers; release it before dialing again.
	if prior != nil {
		prior.Disconnect()
	}

	sock, err := socket.Connect(endpoint, connectOptions(accessKey, browserKey))
	if err != nil {
		ch.mu.Lock()
		ch.state = StateDisconnected
		ch.mu.Unlock()
		return fmt.Errorf("realtime connect: %w", err)
	}

	ch.mu.Lock()
	ch.socket = sock
	ch.mu.Unlock()

	sock.On(types.EventName("connect"), func(args ...any) {
		ch.handleConnect()
	})
	sock.On(types.EventName("disconnect"), func(args ...any) {
		reason := ""
		if len(args) > 0 {
			reason, _ = args[0].(string)
		}
		ch.handleDisconnect(reason)
	})
	sock.On(types.EventName("connect_error"), func(args ...any) {
		ch.handleConnectError(args...)
	})
	sock.On(types.EventName("auth-error"), func(args ...any) {
		logger.Errorf("realtime: auth error: %v", args)
		ch.dispatchConnection(false)
	})

	for _, name := range messageEventNames {
		name := name
		sock.On(types.EventName(name), func(args ...any) {
			ch.handleMessageEvent(name, args...)
		})
	}
	sock.On(types.EventName("typing"), func(args ...any) {
		ch.handleTypingEvent(args...)
	})
	sock.On(types.EventName("browser-key-updated"), func(args ...any) {
		ch.handleBrowserKeyEvent(args...)
	})
	sock.On(types.EventName("user-joined"), func(args ...any) {
		logger.Debugf("realtime: user joined")
	})
	sock.On(types.EventName("user-left"), func(args ...any) {
		logger.Debugf("realtime: user left")
	})

	return nil
}

// beginConnect transitions the channel into StateConnecting and takes
// ownership of any stale socket so the caller can release it. proceed is
// false when a connection is already open.
func (ch *Channel) beginConnect(endpoint, accessKey, browserKey string) (prior *socket.Socket, proceed bool, err error) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.disposed {
		return nil, false, fmt.Errorf("channel disposed")
	}
	if ch.socket != nil && (ch.state == StateConnected || ch.state == StateConnecting || ch.state == StateReconnecting) {
		return nil, false, nil
	}
	prior = ch.socket
	ch.socket = nil
	ch.endpoint = endpoint
	ch.accessKey = accessKey
	ch.browserKey = browserKey
	ch.state = StateConnecting
	ch.failures = 0
	return prior, true, nil
}

// connectOptions builds the client options: polling and websocket
// transports, a bounded reconnection loop with a fixed inter-attempt delay,
// and the auth payload. The library takes delays in milliseconds.
func connectOptions(accessKey, browserKey string) *socket.Options {
	opts := socket.DefaultOptions()
	opts.SetTransports(types.NewSet(socket.Polling, socket.WebSocket))
	opts.SetReconnection(true)
	opts.SetReconnectionAttempts(reconnectAttempts)
	opts.SetReconnectionDelay(float64(reconnectDelay.Milliseconds()))
	opts.SetReconnectionDelayMax(float64(reconnectDelay.Milliseconds()))
	opts.SetRandomizationFactor(0)

	auth := map[string]any{"key": accessKey}
	if browserKey != "" {
		auth["browser_key"] = browserKey
	}
	opts.SetAuth(auth)
	return opts
}

func (ch *Channel) handleConnect() {
	ch.mu.Lock()
	ch.state = StateConnected
	ch.failures = 0
	key := ch.browserKey
	ch.mu.Unlock()

	logger.Debugf("realtime: connected")
	if key != "" {
		ch.JoinRoom(key)
	}
	ch.dispatchConnection(true)
}

func (ch *Channel) handleDisconnect(reason string) {
	ch.mu.Lock()
	if ch.state == StateConnected || ch.state == StateConnecting {
		ch.state = StateReconnecting
	}
	ch.mu.Unlock()

	logger.Debugf("realtime: disconnected: %s", reason)
	ch.dispatchConnection(false)
}

func (ch *Channel) handleConnectError(args ...any) {
	ch.mu.Lock()
	ch.failures++
	exhausted := ch.failures >= reconnectAttempts
	if exhausted {
		ch.state = StateDisconnected
	}
	ch.mu.Unlock()

	if len(args) > 0 {
		logger.Warnf("realtime: connect error: %v", args[0])
	}
	if exhausted {
		logger.Warnf("realtime: reconnect attempts exhausted")
	}
	ch.dispatchConnection(false)
}

// JoinRoom joins the private room for a browser key. No-op when not
// connected.
func (ch *Channel) JoinRoom(browserKey string) {
	ch.emit("join", map[string]any{"room": RoomName(browserKey)})
}

// LeaveRoom leaves the private room for a browser key. No-op when not
// connected.
func (ch *Channel) LeaveRoom(browserKey string) {
	ch.emit("leave", map[string]any{"room": RoomName(browserKey)})
}

// UpdateBrowserKey switches the tracked browser key: when the key changed
// and the channel is connected, the old room is left and the new one joined.
func (ch *Channel) UpdateBrowserKey(newKey string) {
	ch.mu.Lock()
	old := ch.browserKey
	if old == newKey {
		ch.mu.Unlock()
		return
	}
	ch.browserKey = newKey
	connected := ch.state == StateConnected
	ch.mu.Unlock()

	if !connected {
		return
	}
	if old != "" {
		ch.LeaveRoom(old)
	}
	if newKey != "" {
		ch.JoinRoom(newKey)
	}
}

// SendTyping emits a fire-and-forget typing event. No-op when disconnected.
func (ch *Channel) SendTyping(browserKey string, isTyping bool) {
	ch.emit("typing", map[string]any{
		"room":   RoomName(browserKey),
		"typing": isTyping,
	})
}

func (ch *Channel) emit(event string, payload map[string]any) {
	ch.mu.Lock()
	sock := ch.socket
	connected := ch.state == StateConnected
	ch.mu.Unlock()

	if sock == nil || !connected {
		return
	}
	logger.Debugf("realtime: emit %s", event)
	sock.Emit(event, payload)
}

// Dispose disconnects and clears all subscriber sets. Safe to call multiple
// times.
func (ch *Channel) Dispose() {
	ch.mu.Lock()
	sock := ch.socket
	ch.socket = nil
	ch.state = StateDisconnected
	ch.disposed = true
	ch.messageSubs = make(map[int]func(api.Message))
	ch.connectionSubs = make(map[int]func(bool))
	ch.typingSubs = make(map[int]func(bool))
	ch.browserKeySubs = make(map[int]func(string))
	ch.mu.Unlock()

	if sock != nil {
		sock.Disconnect()
	}
}

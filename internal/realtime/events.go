package realtime

import (
	"encoding/json"
	"fmt"

	"github.com/ipchi/fcrm-chat-go/internal/api"
	"github.com/ipchi/fcrm-chat-go/pkg/logger"
)

// messageEventNames lists every wire spelling the backend has used for
// message events: colon- and backslash-delimited namespacing, a chat and a
// telegram source variant, plus the edited-message variants. All of them are
// treated as equivalent; no deduplication happens at this layer (downstream
// consumers dedupe by message id).
var messageEventNames = []string{
	"chat:new-message",
	`App\Events\NewChatMessage`,
	"telegram:new-message",
	`App\Events\NewTelegramMessage`,
	"chat:message-edited",
	`App\Events\ChatMessageEdited`,
}

// OnMessage registers a message subscriber and returns its unsubscribe
// closure. Callback order across subscribers is unspecified.
func (ch *Channel) OnMessage(fn func(api.Message)) func() {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	id := ch.nextSubID
	ch.nextSubID++
	ch.messageSubs[id] = fn
	return func() {
		ch.mu.Lock()
		defer ch.mu.Unlock()
		delete(ch.messageSubs, id)
	}
}

// OnConnectionChange registers a connection-state subscriber.
func (ch *Channel) OnConnectionChange(fn func(bool)) func() {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	id := ch.nextSubID
	ch.nextSubID++
	ch.connectionSubs[id] = fn
	return func() {
		ch.mu.Lock()
		defer ch.mu.Unlock()
		delete(ch.connectionSubs, id)
	}
}

// OnTyping registers a typing subscriber.
func (ch *Channel) OnTyping(fn func(bool)) func() {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	id := ch.nextSubID
	ch.nextSubID++
	ch.typingSubs[id] = fn
	return func() {
		ch.mu.Lock()
		defer ch.mu.Unlock()
		delete(ch.typingSubs, id)
	}
}

// OnBrowserKeyUpdated registers a subscriber for server-initiated browser
// key rotations.
func (ch *Channel) OnBrowserKeyUpdated(fn func(string)) func() {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	id := ch.nextSubID
	ch.nextSubID++
	ch.browserKeySubs[id] = fn
	return func() {
		ch.mu.Lock()
		defer ch.mu.Unlock()
		delete(ch.browserKeySubs, id)
	}
}

func (ch *Channel) handleMessageEvent(event string, args ...any) {
	msg, err := parseMessagePayload(args)
	if err != nil {
		logger.Warnf("realtime: drop %s: %v", event, err)
		return
	}
	logger.Debugf("realtime: %s -> message %d", event, msg.ID)
	ch.dispatchMessage(msg)
}

// parseMessagePayload extracts a chat message from an inbound event payload.
// Both the bare message object and a {"message": {...}} wrapper are accepted.
func parseMessagePayload(args []any) (api.Message, error) {
	if len(args) == 0 {
		return api.Message{}, fmt.Errorf("empty payload")
	}
	payload, ok := args[0].(map[string]any)
	if !ok {
		return api.Message{}, fmt.Errorf("unexpected payload type %T", args[0])
	}
	if inner, ok := payload["message"].(map[string]any); ok {
		payload = inner
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return api.Message{}, fmt.Errorf("re-encode payload: %w", err)
	}
	return api.ParseMessage(raw)
}

func (ch *Channel) handleTypingEvent(args ...any) {
	typing := parseTypingPayload(args)
	ch.dispatchTyping(typing)
}

func parseTypingPayload(args []any) bool {
	if len(args) == 0 {
		return false
	}
	switch v := args[0].(type) {
	case bool:
		return v
	case map[string]any:
		typing, _ := v["typing"].(bool)
		return typing
	default:
		return false
	}
}

func (ch *Channel) handleBrowserKeyEvent(args ...any) {
	key := parseBrowserKeyPayload(args)
	if key == "" {
		logger.Warnf("realtime: browser-key-updated without key")
		return
	}
	// Track the rotated key so room membership follows it.
	ch.UpdateBrowserKey(key)
	ch.dispatchBrowserKey(key)
}

func parseBrowserKeyPayload(args []any) string {
	if len(args) == 0 {
		return ""
	}
	switch v := args[0].(type) {
	case string:
		return v
	case map[string]any:
		key, _ := v["browser_key"].(string)
		return key
	default:
		return ""
	}
}

func (ch *Channel) dispatchMessage(msg api.Message) {
	for _, fn := range ch.messageSnapshot() {
		safeCall(func() { fn(msg) })
	}
}

func (ch *Channel) dispatchConnection(connected bool) {
	ch.mu.Lock()
	subs := make([]func(bool), 0, len(ch.connectionSubs))
	for _, fn := range ch.connectionSubs {
		subs = append(subs, fn)
	}
	ch.mu.Unlock()
	for _, fn := range subs {
		safeCall(func() { fn(connected) })
	}
}

func (ch *Channel) dispatchTyping(typing bool) {
	ch.mu.Lock()
	subs := make([]func(bool), 0, len(ch.typingSubs))
	for _, fn := range ch.typingSubs {
		subs = append(subs, fn)
	}
	ch.mu.Unlock()
	for _, fn := range subs {
		safeCall(func() { fn(typing) })
	}
}

func (ch *Channel) dispatchBrowserKey(key string) {
	ch.mu.Lock()
	subs := make([]func(string), 0, len(ch.browserKeySubs))
	for _, fn := range ch.browserKeySubs {
		subs = append(subs, fn)
	}
	ch.mu.Unlock()
	for _, fn := range subs {
		safeCall(func() { fn(key) })
	}
}

func (ch *Channel) messageSnapshot() []func(api.Message) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	subs := make([]func(api.Message), 0, len(ch.messageSubs))
	for _, fn := range ch.messageSubs {
		subs = append(subs, fn)
	}
	return subs
}

// safeCall isolates subscriber failures: one panicking callback must not
// prevent the rest of a dispatch from running.
func safeCall(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("realtime: subscriber panic: %v", r)
		}
	}()
	fn()
}

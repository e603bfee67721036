package sdk

import (
	"sort"
	"sync"
	"time"

	"github.com/ipchi/fcrm-chat-go/internal/api"
)

// MessageList is a view adapter that maintains a deduplicated, ordered
// message collection fed by history pages and realtime events. It is safe
// for concurrent use.
type MessageList struct {
	mu       sync.Mutex
	byID     map[int64]int
	messages []api.Message
	onChange func([]api.Message)
	unsub    func()
}

// NewMessageList creates a message list subscribed to the client's realtime
// messages. Close releases the subscription.
func NewMessageList(c *Client) *MessageList {
	l := &MessageList{byID: make(map[int64]int)}
	l.unsub = c.OnMessage(l.Append)
	return l
}

// Seed replaces the list contents with a history page. History pages arrive
// newest-first; the list keeps chronological order.
func (l *MessageList) Seed(page api.MessagePage) {
	l.mu.Lock()
	l.byID = make(map[int64]int, len(page.Messages))
	l.messages = append([]api.Message(nil), page.Messages...)
	sort.SliceStable(l.messages, func(i, j int) bool {
		return l.messages[i].CreatedAt.Before(l.messages[j].CreatedAt)
	})
	for i, m := range l.messages {
		l.byID[m.ID] = i
	}
	snapshot := l.snapshotLocked()
	fn := l.onChange
	l.mu.Unlock()

	if fn != nil {
		fn(snapshot)
	}
}

// Append adds a message, replacing any existing entry with the same ID so
// edits update in place rather than duplicating.
func (l *MessageList) Append(m api.Message) {
	l.mu.Lock()
	if i, ok := l.byID[m.ID]; ok {
		l.messages[i] = m
	} else {
		l.byID[m.ID] = len(l.messages)
		l.messages = append(l.messages, m)
	}
	snapshot := l.snapshotLocked()
	fn := l.onChange
	l.mu.Unlock()

	if fn != nil {
		fn(snapshot)
	}
}

// Messages returns a copy of the current contents in chronological order.
func (l *MessageList) Messages() []api.Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

func (l *MessageList) snapshotLocked() []api.Message {
	return append([]api.Message(nil), l.messages...)
}

// OnChange installs the change callback. Only one callback is held; passing
// nil clears it.
func (l *MessageList) OnChange(fn func([]api.Message)) {
	l.mu.Lock()
	l.onChange = fn
	l.mu.Unlock()
}

// Close unsubscribes from the client. The list contents stay readable.
func (l *MessageList) Close() {
	if l.unsub != nil {
		l.unsub()
		l.unsub = nil
	}
}

// ConnectionStatus mirrors the realtime connection state for UI binding.
type ConnectionStatus struct {
	mu        sync.Mutex
	connected bool
	onChange  func(bool)
	unsub     func()
}

// NewConnectionStatus creates a status adapter subscribed to the client.
func NewConnectionStatus(c *Client) *ConnectionStatus {
	s := &ConnectionStatus{}
	s.unsub = c.OnConnectionChange(s.set)
	return s
}

func (s *ConnectionStatus) set(connected bool) {
	s.mu.Lock()
	changed := s.connected != connected
	s.connected = connected
	fn := s.onChange
	s.mu.Unlock()

	if changed && fn != nil {
		fn(connected)
	}
}

// Connected reports the last observed connection state.
func (s *ConnectionStatus) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// OnChange installs the change callback; it fires only on transitions.
func (s *ConnectionStatus) OnChange(fn func(bool)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Close unsubscribes from the client.
func (s *ConnectionStatus) Close() {
	if s.unsub != nil {
		s.unsub()
		s.unsub = nil
	}
}

// typingIdleAfter is how long after the last remote keystroke the indicator
// falls back to idle.
const typingIdleAfter = 5 * time.Second

// TypingIndicator debounces remote typing signals into a stable two-state
// indicator: each keystroke restarts the idle timer instead of flickering
// the UI.
type TypingIndicator struct {
	mu       sync.Mutex
	typing   bool
	timer    *time.Timer
	onChange func(bool)
	unsub    func()
	stopped  bool
}

// NewTypingIndicator creates an indicator subscribed to the client's typing
// events.
func NewTypingIndicator(c *Client) *TypingIndicator {
	t := &TypingIndicator{}
	t.unsub = c.OnTyping(func(isTyping bool) {
		if isTyping {
			t.Keystroke()
		} else {
			t.idle()
		}
	})
	return t
}

// Keystroke records typing activity, entering the typing state and
// rescheduling the idle fallback.
func (t *TypingIndicator) Keystroke() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	wasTyping := t.typing
	t.typing = true
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(typingIdleAfter, t.idle)
	fn := t.onChange
	t.mu.Unlock()

	if !wasTyping && fn != nil {
		fn(true)
	}
}

func (t *TypingIndicator) idle() {
	t.mu.Lock()
	wasTyping := t.typing
	t.typing = false
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	fn := t.onChange
	t.mu.Unlock()

	if wasTyping && fn != nil {
		fn(false)
	}
}

// Typing reports whether the remote side is currently typing.
func (t *TypingIndicator) Typing() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.typing
}

// OnChange installs the transition callback.
func (t *TypingIndicator) OnChange(fn func(bool)) {
	t.mu.Lock()
	t.onChange = fn
	t.mu.Unlock()
}

// Stop unsubscribes and cancels any pending idle timer. Further keystrokes
// are ignored.
func (t *TypingIndicator) Stop() {
	t.mu.Lock()
	t.stopped = true
	t.typing = false
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.mu.Unlock()

	if t.unsub != nil {
		t.unsub()
		t.unsub = nil
	}
}

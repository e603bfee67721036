package sdk

import (
	"github.com/ipchi/fcrm-chat-go/internal/api"
)

// SessionState is the single consistent view of the session exposed to
// observers. Snapshots are immutable values: every mutating operation
// produces exactly one new snapshot, and partial states are never published
// mid-operation.
//
// Invariant: Registered implies BrowserKey is non-empty. Initialized never
// reverts to false within one lifecycle (only a new client starts over).
type SessionState struct {
	Initialized bool
	Connected   bool
	Registered  bool
	// Config is the remote configuration fetched during Initialize, nil
	// before that. Treated as immutable for the session.
	Config *api.ChatConfig
	// BrowserKey is the device identity, empty when unregistered.
	BrowserKey string
	// ChatID is the active conversation id, zero when unknown.
	ChatID int64
	// Err is the most recent operation failure, nil after a success.
	Err error
}

// State returns the current session snapshot.
func (c *Client) State() SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// OnStateChange registers a state observer and returns its unsubscribe
// closure. Observers see snapshots in the order their producing operations
// completed.
func (c *Client) OnStateChange(fn func(SessionState)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSubID
	c.nextSubID++
	c.stateSubs[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.stateSubs, id)
	}
}

// publishState installs a new snapshot and notifies observers on the
// callbacks queue so a slow observer cannot block session operations.
func (c *Client) publishState(next SessionState) {
	c.mu.Lock()
	c.state = next
	subs := make([]func(SessionState), 0, len(c.stateSubs))
	for _, fn := range c.stateSubs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn := fn
		_ = c.callbacks.do(func() { fn(next) })
	}
}

// recordError publishes the current snapshot with Err set. Guard
// precondition failures are reported to the caller only and do not go
// through here.
func (c *Client) recordError(err error) {
	next := c.State()
	next.Err = err
	c.publishState(next)
}

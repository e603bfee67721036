package sdk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ipchi/fcrm-chat-go/internal/api"
	"github.com/ipchi/fcrm-chat-go/pkg/chaterr"
)

type connectArgs struct {
	endpoint   string
	accessKey  string
	browserKey string
}

type fakeChannel struct {
	mu           sync.Mutex
	connects     []connectArgs
	connectErr   error
	currentKey   string
	typing       []bool
	disposed     bool
	onBrowserKey func(string)
	onConn       func(bool)
	onMsg        func(api.Message)
	onTyping     func(bool)
}

func (f *fakeChannel) Connect(endpoint, accessKey, browserKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects = append(f.connects, connectArgs{endpoint, accessKey, browserKey})
	f.currentKey = browserKey
	return f.connectErr
}

func (f *fakeChannel) UpdateBrowserKey(newKey string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.currentKey = newKey
}

func (f *fakeChannel) SendTyping(_ string, isTyping bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.typing = append(f.typing, isTyping)
}

func (f *fakeChannel) OnMessage(fn func(api.Message)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onMsg = fn
	return func() {}
}

func (f *fakeChannel) OnConnectionChange(fn func(bool)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onConn = fn
	return func() {}
}

func (f *fakeChannel) OnTyping(fn func(bool)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onTyping = fn
	return func() {}
}

func (f *fakeChannel) OnBrowserKeyUpdated(fn func(string)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onBrowserKey = fn
	return func() {}
}

func (f *fakeChannel) Dispose() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disposed = true
}

func (f *fakeChannel) key() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.currentKey
}

type fakeAPI struct {
	mu sync.Mutex

	cfg    api.ChatConfig
	cfgErr error

	registerRes   api.RegisterResult
	registerErr   error
	registerCalls int

	updateRes api.RegisterResult

	sendErr error
	sent    []api.Message
	nextID  int64

	getErr   error
	getCalls int

	dataRes   map[string]any
	editRes   api.EditResult
	uploadErr error
}

func (f *fakeAPI) FetchConfig(context.Context) (api.ChatConfig, error) {
	if f.cfgErr != nil {
		return api.ChatConfig{}, f.cfgErr
	}
	return f.cfg, nil
}

func (f *fakeAPI) RegisterBrowser(_ context.Context, _ map[string]string, _ string) (api.RegisterResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registerCalls++
	if f.registerErr != nil {
		return api.RegisterResult{}, f.registerErr
	}
	return f.registerRes, nil
}

func (f *fakeAPI) UpdateBrowser(context.Context, string, map[string]string) (api.RegisterResult, error) {
	return f.updateRes, nil
}

func (f *fakeAPI) UpdateBrowserData(_ context.Context, _ string, partial map[string]any) (map[string]any, error) {
	if f.dataRes != nil {
		return f.dataRes, nil
	}
	return partial, nil
}

func (f *fakeAPI) SendMessage(_ context.Context, _, text, _ string, _ map[string]any) (api.SendResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return api.SendResult{}, f.sendErr
	}
	f.nextID++
	f.sent = append(f.sent, api.Message{
		ID:         f.nextID,
		Message:    text,
		SenderType: api.SenderClient,
		CreatedAt:  time.Now(),
	})
	return api.SendResult{MessageID: f.nextID, ChatID: 7}, nil
}

func (f *fakeAPI) EditMessage(context.Context, string, int64, string) (api.EditResult, error) {
	return f.editRes, nil
}

func (f *fakeAPI) GetMessages(_ context.Context, _ string, _, perPage int) (api.MessagePage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if f.getErr != nil {
		return api.MessagePage{}, f.getErr
	}
	return api.MessagePage{
		Messages:    append([]api.Message(nil), f.sent...),
		Total:       len(f.sent),
		CurrentPage: 1,
		PerPage:     perPage,
		LastPage:    1,
	}, nil
}

func (f *fakeAPI) UploadImage(context.Context, string, string, string, api.ProgressFunc, *api.UploadHandle) (api.SendResult, error) {
	if f.uploadErr != nil {
		return api.SendResult{}, f.uploadErr
	}
	return api.SendResult{MessageID: 99}, nil
}

type fakeStore struct {
	mu       sync.Mutex
	key      string
	userData string
	clears   int
}

func (f *fakeStore) SaveBrowserKey(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.key = key
	return nil
}

func (f *fakeStore) BrowserKey() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.key, nil
}

func (f *fakeStore) SaveUserData(blob string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userData = blob
	return nil
}

func (f *fakeStore) UserData() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.userData, nil
}

func (f *fakeStore) IsRegistered() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.key != "", nil
}

func (f *fakeStore) ClearAll() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.key = ""
	f.userData = ""
	f.clears++
	return nil
}

func (f *fakeStore) Close() error { return nil }

func (f *fakeStore) storedKey() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.key
}

func activeConfig() api.ChatConfig {
	return api.ChatConfig{
		Name:             "Support",
		IsActive:         true,
		RealtimeEndpoint: "wss://realtime.example.com",
		RealtimeKey:      "rk_test",
	}
}

func testOptions() Options {
	return Options{
		BaseURL:      "https://chat.example.com",
		CompanyToken: "tok",
		AppKey:       "app-key",
		AppSecret:    "app-secret",
	}
}

func newTestClient(t *testing.T, remote *fakeAPI, st *fakeStore) (*Client, *fakeChannel) {
	t.Helper()
	ch := &fakeChannel{}
	c := newClientWith(testOptions(), remote, st)
	c.newChannel = func() realtimeChannel { return ch }
	return c, ch
}

func TestInitializeInactiveApp(t *testing.T) {
	t.Parallel()

	remote := &fakeAPI{cfg: api.ChatConfig{IsActive: false}}
	c, ch := newTestClient(t, remote, &fakeStore{})

	err := c.Initialize(context.Background())
	require.ErrorIs(t, err, chaterr.ErrInactiveApp)

	state := c.State()
	require.False(t, state.Initialized)
	require.ErrorIs(t, state.Err, chaterr.ErrInactiveApp)
	require.Empty(t, ch.connects)
}

func TestInitializeRestoresPersistedIdentity(t *testing.T) {
	t.Parallel()

	remote := &fakeAPI{cfg: activeConfig()}
	st := &fakeStore{key: "abc123"}
	c, ch := newTestClient(t, remote, st)

	require.NoError(t, c.Initialize(context.Background()))

	state := c.State()
	require.True(t, state.Initialized)
	require.True(t, state.Registered)
	require.Equal(t, "abc123", state.BrowserKey)
	require.NotNil(t, state.Config)
	require.Nil(t, state.Err)

	require.Len(t, ch.connects, 1)
	require.Equal(t, connectArgs{
		endpoint:   "wss://realtime.example.com",
		accessKey:  "rk_test",
		browserKey: "abc123",
	}, ch.connects[0])
}

func TestInitializeIsReentrant(t *testing.T) {
	t.Parallel()

	remote := &fakeAPI{cfg: activeConfig()}
	c, ch := newTestClient(t, remote, &fakeStore{})

	require.NoError(t, c.Initialize(context.Background()))
	require.NoError(t, c.Initialize(context.Background()))
	require.Len(t, ch.connects, 1)
}

func TestInitializeEndpointOverride(t *testing.T) {
	t.Parallel()

	remote := &fakeAPI{cfg: activeConfig()}
	ch := &fakeChannel{}
	opts := testOptions()
	opts.RealtimeEndpoint = "wss://override.example.com"
	c := newClientWith(opts, remote, &fakeStore{})
	c.newChannel = func() realtimeChannel { return ch }

	require.NoError(t, c.Initialize(context.Background()))
	require.Equal(t, "wss://override.example.com", ch.connects[0].endpoint)
}

func TestInitializeConnectFailure(t *testing.T) {
	t.Parallel()

	remote := &fakeAPI{cfg: activeConfig()}
	ch := &fakeChannel{connectErr: errors.New("dial refused")}
	c := newClientWith(testOptions(), remote, &fakeStore{})
	c.newChannel = func() realtimeChannel { return ch }

	err := c.Initialize(context.Background())
	require.Error(t, err)

	state := c.State()
	require.False(t, state.Initialized)
	require.Error(t, state.Err)
	require.True(t, ch.disposed)

	// A later attempt with a reachable channel still succeeds.
	good := &fakeChannel{}
	c.newChannel = func() realtimeChannel { return good }
	require.NoError(t, c.Initialize(context.Background()))
	require.True(t, c.State().Initialized)
	require.Nil(t, c.State().Err)
}

func TestRegisterBeforeInitialize(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, &fakeAPI{}, &fakeStore{})

	_, err := c.Register(context.Background(), map[string]string{"name": "Ada"}, "")
	require.ErrorIs(t, err, chaterr.ErrNotInitialized)
	// Guard failures are reported to the caller only.
	require.Nil(t, c.State().Err)
}

func TestRegisterMissingRequiredField(t *testing.T) {
	t.Parallel()

	cfg := activeConfig()
	cfg.RequiredFields = api.RequiredFields{
		{Name: "name", Label: "Full name"},
		{Name: "email", Label: "E-mail"},
	}
	remote := &fakeAPI{cfg: cfg}
	c, _ := newTestClient(t, remote, &fakeStore{})
	require.NoError(t, c.Initialize(context.Background()))

	tests := []struct {
		name      string
		fields    map[string]string
		wantField string
	}{
		{"all missing reports first", map[string]string{}, "name"},
		{"whitespace counts as missing", map[string]string{"name": "  "}, "name"},
		{"second missing reported after first provided", map[string]string{"name": "Ada"}, "email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Register(context.Background(), tt.fields, "")
			var missing *chaterr.MissingRequiredFieldError
			require.ErrorAs(t, err, &missing)
			require.Equal(t, tt.wantField, missing.Field)
		})
	}
	require.Zero(t, remote.registerCalls)
}

func TestRegisterPersistsIdentityAndSwitchesRoom(t *testing.T) {
	t.Parallel()

	history, err := json.Marshal(map[string]any{"id": 41, "message": "welcome", "sender_type": "bot"})
	require.NoError(t, err)

	remote := &fakeAPI{
		cfg: activeConfig(),
		registerRes: api.RegisterResult{
			BrowserKey:   "bk_new",
			ChatID:       12,
			LastMessages: []json.RawMessage{history, json.RawMessage(`{"broken":`)},
		},
	}
	st := &fakeStore{}
	c, ch := newTestClient(t, remote, st)
	require.NoError(t, c.Initialize(context.Background()))

	msgs, err := c.Register(context.Background(), map[string]string{"name": "Ada"}, "")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, int64(41), msgs[0].ID)

	require.Equal(t, "bk_new", st.storedKey())
	require.Equal(t, "bk_new", ch.key())

	state := c.State()
	require.True(t, state.Registered)
	require.Equal(t, "bk_new", state.BrowserKey)
	require.Equal(t, int64(12), state.ChatID)
	require.Nil(t, state.Err)

	var blob map[string]any
	require.NoError(t, json.Unmarshal([]byte(st.userData), &blob))
	require.Equal(t, "Ada", blob["name"])
	require.Equal(t, true, blob["registered"])
}

func TestSendBeforeRegister(t *testing.T) {
	t.Parallel()

	remote := &fakeAPI{cfg: activeConfig()}
	c, _ := newTestClient(t, remote, &fakeStore{})
	require.NoError(t, c.Initialize(context.Background()))

	_, err := c.SendMessage(context.Background(), "hello", "", nil)
	require.ErrorIs(t, err, chaterr.ErrNotRegistered)
}

func TestRegisterSendLoadRoundTrip(t *testing.T) {
	t.Parallel()

	remote := &fakeAPI{
		cfg:         activeConfig(),
		registerRes: api.RegisterResult{BrowserKey: "bk_rt", ChatID: 3},
	}
	c, _ := newTestClient(t, remote, &fakeStore{})
	require.NoError(t, c.Initialize(context.Background()))

	_, err := c.Register(context.Background(), map[string]string{"name": "Ada"}, "")
	require.NoError(t, err)

	res, err := c.SendMessage(context.Background(), "first", "", nil)
	require.NoError(t, err)
	require.Equal(t, int64(1), res.MessageID)

	page := c.LoadMessages(context.Background(), 1, 50)
	require.Len(t, page.Messages, 1)
	require.Equal(t, "first", page.Messages[0].Message)
	require.False(t, page.HasMore())
}

func TestLoadMessagesNeverFails(t *testing.T) {
	t.Parallel()

	t.Run("unregistered session", func(t *testing.T) {
		t.Parallel()
		remote := &fakeAPI{cfg: activeConfig()}
		c, _ := newTestClient(t, remote, &fakeStore{})
		require.NoError(t, c.Initialize(context.Background()))

		page := c.LoadMessages(context.Background(), 1, 25)
		require.Equal(t, api.EmptyPage(25), page)
		require.Zero(t, remote.getCalls)
	})

	t.Run("fetch failure renders empty", func(t *testing.T) {
		t.Parallel()
		remote := &fakeAPI{
			cfg:    activeConfig(),
			getErr: &chaterr.APIError{Message: "boom", StatusCode: 500},
		}
		c, _ := newTestClient(t, remote, &fakeStore{key: "bk", userData: `{"registered":true}`})
		require.NoError(t, c.Initialize(context.Background()))

		page := c.LoadMessages(context.Background(), 1, 25)
		require.Equal(t, api.EmptyPage(25), page)
		require.Equal(t, 1, remote.getCalls)
	})

	t.Run("identity recovered from store", func(t *testing.T) {
		t.Parallel()
		remote := &fakeAPI{cfg: activeConfig()}
		st := &fakeStore{userData: `{"registered":true}`}
		c, _ := newTestClient(t, remote, st)
		require.NoError(t, c.Initialize(context.Background()))

		// Identity written out-of-band, state not yet aware of it.
		require.NoError(t, st.SaveBrowserKey("bk_disk"))
		_ = c.LoadMessages(context.Background(), 1, 25)
		require.Equal(t, 1, remote.getCalls)
	})

	t.Run("uninitialized session skips the network", func(t *testing.T) {
		t.Parallel()
		remote := &fakeAPI{cfg: activeConfig()}
		c, _ := newTestClient(t, remote, &fakeStore{key: "bk", userData: `{"registered":true}`})

		page := c.LoadMessages(context.Background(), 1, 25)
		require.Equal(t, api.EmptyPage(25), page)
		require.Zero(t, remote.getCalls)
	})

	t.Run("identity without profile blob renders empty", func(t *testing.T) {
		t.Parallel()
		remote := &fakeAPI{cfg: activeConfig()}
		c, _ := newTestClient(t, remote, &fakeStore{key: "bk"})
		require.NoError(t, c.Initialize(context.Background()))

		page := c.LoadMessages(context.Background(), 1, 25)
		require.Equal(t, api.EmptyPage(25), page)
		require.Zero(t, remote.getCalls)
	})
}

func TestResetClearsIdentity(t *testing.T) {
	t.Parallel()

	remote := &fakeAPI{cfg: activeConfig()}
	st := &fakeStore{key: "bk_old", userData: `{"name":"Ada"}`}
	c, ch := newTestClient(t, remote, st)
	require.NoError(t, c.Initialize(context.Background()))

	require.NoError(t, c.Reset())

	state := c.State()
	require.True(t, state.Initialized)
	require.False(t, state.Registered)
	require.Empty(t, state.BrowserKey)
	require.Zero(t, state.ChatID)
	require.Empty(t, st.storedKey())
	require.True(t, ch.disposed)

	// Reset on an already clean session still succeeds.
	require.NoError(t, c.Reset())
	require.Equal(t, 2, st.clears)
}

func TestBrowserKeyRotationPersists(t *testing.T) {
	t.Parallel()

	remote := &fakeAPI{cfg: activeConfig()}
	st := &fakeStore{key: "bk_old"}
	c, ch := newTestClient(t, remote, st)
	require.NoError(t, c.Initialize(context.Background()))

	var states []SessionState
	var mu sync.Mutex
	c.OnStateChange(func(s SessionState) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	})

	require.NotNil(t, ch.onBrowserKey)
	ch.onBrowserKey("bk_rotated")

	require.Eventually(t, func() bool {
		return c.State().BrowserKey == "bk_rotated"
	}, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, "bk_rotated", st.storedKey())

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, s := range states {
			if s.BrowserKey == "bk_rotated" && s.Registered {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
}

func TestConnectionChangePublishes(t *testing.T) {
	t.Parallel()

	remote := &fakeAPI{cfg: activeConfig()}
	c, ch := newTestClient(t, remote, &fakeStore{})
	require.NoError(t, c.Initialize(context.Background()))

	require.NotNil(t, ch.onConn)
	ch.onConn(true)
	require.Eventually(t, func() bool {
		return c.State().Connected
	}, 2*time.Second, 10*time.Millisecond)

	ch.onConn(false)
	require.Eventually(t, func() bool {
		return !c.State().Connected
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSubscribeBeforeInitializeIsNoop(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, &fakeAPI{}, &fakeStore{})

	unsub := c.OnMessage(func(api.Message) { t.Error("should never fire") })
	require.NotNil(t, unsub)
	unsub()

	unsub = c.OnConnectionChange(func(bool) {})
	require.NotNil(t, unsub)
	unsub()
}

func TestUpdateBrowserRotation(t *testing.T) {
	t.Parallel()

	remote := &fakeAPI{
		cfg:         activeConfig(),
		registerRes: api.RegisterResult{BrowserKey: "bk_1", ChatID: 5},
		updateRes:   api.RegisterResult{BrowserKey: "bk_2", ChatID: 5},
	}
	st := &fakeStore{}
	c, ch := newTestClient(t, remote, st)
	require.NoError(t, c.Initialize(context.Background()))
	_, err := c.Register(context.Background(), map[string]string{"name": "Ada"}, "")
	require.NoError(t, err)

	_, err = c.UpdateBrowser(context.Background(), map[string]string{"name": "Ada L."})
	require.NoError(t, err)

	require.Equal(t, "bk_2", st.storedKey())
	require.Equal(t, "bk_2", ch.key())
	require.Equal(t, "bk_2", c.State().BrowserKey)
}

func TestRecordedErrorClearsOnSuccess(t *testing.T) {
	t.Parallel()

	remote := &fakeAPI{
		cfg:         activeConfig(),
		registerRes: api.RegisterResult{BrowserKey: "bk"},
		sendErr:     errors.New("transient"),
	}
	c, _ := newTestClient(t, remote, &fakeStore{})
	require.NoError(t, c.Initialize(context.Background()))
	_, err := c.Register(context.Background(), map[string]string{"name": "Ada"}, "")
	require.NoError(t, err)

	_, err = c.SendMessage(context.Background(), "hi", "", nil)
	require.Error(t, err)
	require.Error(t, c.State().Err)

	// The next state-producing operation publishes with Err cleared.
	require.NoError(t, c.Reset())
	require.Nil(t, c.State().Err)
}

func TestCanEdit(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		msg  api.Message
		want bool
	}{
		{"fresh client message", api.Message{SenderType: api.SenderClient, CreatedAt: now.Add(-time.Hour)}, true},
		{"just inside the window", api.Message{SenderType: api.SenderClient, CreatedAt: now.Add(-editWindow + time.Second)}, true},
		{"expired", api.Message{SenderType: api.SenderClient, CreatedAt: now.Add(-editWindow - time.Second)}, false},
		{"agent message", api.Message{SenderType: api.SenderUser, CreatedAt: now.Add(-time.Minute)}, false},
		{"missing timestamp", api.Message{SenderType: api.SenderClient}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, CanEdit(tt.msg, now))
		})
	}
}

func TestSendTypingRequiresIdentity(t *testing.T) {
	t.Parallel()

	remote := &fakeAPI{cfg: activeConfig()}
	st := &fakeStore{key: "bk"}
	c, ch := newTestClient(t, remote, st)
	require.NoError(t, c.Initialize(context.Background()))

	c.SendTyping(true)
	c.SendTyping(false)

	ch.mu.Lock()
	got := append([]bool(nil), ch.typing...)
	ch.mu.Unlock()
	require.Equal(t, []bool{true, false}, got)
}

func TestUploadOutcomeGuard(t *testing.T) {
	t.Parallel()

	remote := &fakeAPI{cfg: activeConfig()}
	c, _ := newTestClient(t, remote, &fakeStore{})
	require.NoError(t, c.Initialize(context.Background()))

	handle, done := c.SendImage(context.Background(), "/tmp/pic.jpg", "", nil)
	require.NotNil(t, handle)
	out := <-done
	require.ErrorIs(t, out.Err, chaterr.ErrNotRegistered)
}

func TestUploadFailureRecordsError(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("upload exploded")
	remote := &fakeAPI{
		cfg:         activeConfig(),
		registerRes: api.RegisterResult{BrowserKey: "bk"},
		uploadErr:   wantErr,
	}
	c, _ := newTestClient(t, remote, &fakeStore{})
	require.NoError(t, c.Initialize(context.Background()))
	_, err := c.Register(context.Background(), map[string]string{"name": "Ada"}, "")
	require.NoError(t, err)

	_, done := c.SendImage(context.Background(), "/tmp/pic.jpg", "", nil)
	out := <-done
	require.ErrorIs(t, out.Err, wantErr)

	// Error recording rides the dispatch queue, so it lands shortly after
	// the outcome and never clobbers the registered snapshot.
	require.Eventually(t, func() bool {
		return errors.Is(c.State().Err, wantErr)
	}, 2*time.Second, 10*time.Millisecond)
	require.True(t, c.State().Registered)
}

func TestNewRejectsIncompleteOptions(t *testing.T) {
	t.Parallel()

	opts := testOptions()
	opts.AppSecret = ""
	_, err := New(opts)
	require.Error(t, err)

	var base *chaterr.ChatError
	require.ErrorAs(t, err, &base)
}

func TestProfileBlobRoundTrips(t *testing.T) {
	t.Parallel()

	blob := profileBlob(map[string]string{"name": "Ada", "email": "ada@example.com"})
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(blob), &decoded))
	require.Equal(t, "Ada", decoded["name"])
	require.Equal(t, true, decoded["registered"])
	_, err := time.Parse(time.RFC3339, fmt.Sprint(decoded["registered_at"]))
	require.NoError(t, err)
}

package sdk

import (
	"time"

	"github.com/ipchi/fcrm-chat-go/pkg/chaterr"
	"github.com/ipchi/fcrm-chat-go/pkg/logger"
)

const (
	// DefaultTimeout is the per-request HTTP timeout.
	DefaultTimeout = 20 * time.Second
	// defaultDispatcherQueueSize is the mailbox size used by the session
	// dispatchers.
	defaultDispatcherQueueSize = 256
)

// Options configures a chat session client.
type Options struct {
	// BaseURL is the backend root, without a trailing slash.
	BaseURL string
	// CompanyToken identifies the tenant.
	CompanyToken string
	// AppKey and AppSecret are the application credentials used for request
	// signing.
	AppKey    string
	AppSecret string
	// RealtimeEndpoint overrides the socket endpoint from the remote
	// configuration when set.
	RealtimeEndpoint string
	// Timeout is the per-request HTTP timeout. Zero means DefaultTimeout.
	Timeout time.Duration
	// StoragePath is the local database location. Empty means the default
	// under the user's home directory.
	StoragePath string
	// Logging enables debug logging.
	Logging bool
}

func (o *Options) validate() error {
	if o.BaseURL == "" {
		return chaterr.New("missing base URL")
	}
	if o.CompanyToken == "" {
		return chaterr.New("missing company token")
	}
	if o.AppKey == "" || o.AppSecret == "" {
		return chaterr.New("missing app credentials")
	}
	return nil
}

func (o *Options) normalize() {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Logging {
		logger.SetLevel(logger.LevelDebug)
	}
}

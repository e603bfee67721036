package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/ipchi/fcrm-chat-go/internal/signature"
	"github.com/ipchi/fcrm-chat-go/pkg/chaterr"
)

// ProgressFunc reports upload progress in bytes of encoded request body.
type ProgressFunc func(sent, total int64)

// UploadHandle allows aborting one in-flight upload. Cancel is idempotent:
// the second and later calls are no-ops.
type UploadHandle struct {
	id string

	mu        sync.Mutex
	cancelled bool
	cancel    context.CancelFunc
}

// NewUploadHandle creates an unbound cancel handle.
func NewUploadHandle() *UploadHandle {
	return &UploadHandle{id: uuid.NewString()}
}

// ID identifies this handle (one handle per upload).
func (h *UploadHandle) ID() string { return h.id }

// Cancel aborts the associated upload. Cancelling before the upload starts
// prevents the request from being issued at all; cancelling after completion
// is a no-op.
func (h *UploadHandle) Cancel() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancelled {
		return
	}
	h.cancelled = true
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// Cancelled reports whether Cancel has been called.
func (h *UploadHandle) Cancelled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cancelled
}

// bind attaches the in-flight request's cancel func. If the handle was
// cancelled before binding, the request is aborted immediately.
func (h *UploadHandle) bind(cancel context.CancelFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancelled {
		cancel()
		return
	}
	h.cancel = cancel
}

func (h *UploadHandle) unbind() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cancel = nil
}

// imageMIMETypes maps file extensions to upload MIME types. Unknown
// extensions fall back to image/jpeg.
var imageMIMETypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".bmp":  "image/bmp",
	".heic": "image/heic",
	".svg":  "image/svg+xml",
}

func mimeTypeFor(path string) string {
	if mime, ok := imageMIMETypes[strings.ToLower(filepath.Ext(path))]; ok {
		return mime
	}
	return "image/jpeg"
}

type progressReader struct {
	r     io.Reader
	total int64
	sent  int64
	fn    ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		if p.fn != nil {
			p.fn(p.sent, p.total)
		}
	}
	return n, err
}

// UploadImage posts a local file as a multipart upload. onProgress, when
// non-nil, receives byte-level progress. handle, when non-nil, can abort the
// transfer: a handle cancelled before the call starts fails with
// chaterr.ErrUploadCancelled without issuing a request, and a mid-transfer
// cancel aborts the in-flight request with the same error.
func (c *Client) UploadImage(ctx context.Context, browserKey, localPath, channel string, onProgress ProgressFunc, handle *UploadHandle) (SendResult, error) {
	if handle != nil && handle.Cancelled() {
		return SendResult{}, chaterr.ErrUploadCancelled
	}

	file, err := os.Open(localPath)
	if err != nil {
		return SendResult{}, &chaterr.APIError{Message: fmt.Sprintf("open upload file: %v", err)}
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("browser_key", browserKey); err != nil {
		return SendResult{}, &chaterr.APIError{Message: fmt.Sprintf("encode upload: %v", err)}
	}
	if channel != "" {
		if err := writer.WriteField("channel", channel); err != nil {
			return SendResult{}, &chaterr.APIError{Message: fmt.Sprintf("encode upload: %v", err)}
		}
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="%s"`, filepath.Base(localPath)))
	header.Set("Content-Type", mimeTypeFor(localPath))
	part, err := writer.CreatePart(header)
	if err != nil {
		return SendResult{}, &chaterr.APIError{Message: fmt.Sprintf("encode upload: %v", err)}
	}
	if _, err := io.Copy(part, file); err != nil {
		return SendResult{}, &chaterr.APIError{Message: fmt.Sprintf("read upload file: %v", err)}
	}
	if err := writer.Close(); err != nil {
		return SendResult{}, &chaterr.APIError{Message: fmt.Sprintf("encode upload: %v", err)}
	}

	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if handle != nil {
		handle.bind(cancel)
		defer handle.unbind()
	}

	total := int64(body.Len())
	reader := &progressReader{r: &body, total: total, fn: onProgress}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.base()+"/upload-image", reader)
	if err != nil {
		return SendResult{}, &chaterr.APIError{Message: fmt.Sprintf("build upload request: %v", err)}
	}
	req.ContentLength = total
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Chat-App-Key", c.cfg.AppKey)
	req.Header.Set("X-Chat-Signature", signature.Sign(c.cfg.AppKey, c.cfg.AppSecret))

	resp, err := c.http.Do(req)
	if err != nil {
		if handle != nil && handle.Cancelled() {
			return SendResult{}, chaterr.ErrUploadCancelled
		}
		return SendResult{}, &chaterr.APIError{Message: fmt.Sprintf("upload failed: %v", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		if handle != nil && handle.Cancelled() {
			return SendResult{}, chaterr.ErrUploadCancelled
		}
		return SendResult{}, &chaterr.APIError{Message: fmt.Sprintf("read upload response: %v", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return SendResult{}, parseAPIError(resp.StatusCode, respBody)
	}

	var wire sendWire
	if err := json.Unmarshal(respBody, &wire); err != nil {
		return SendResult{}, &chaterr.APIError{Message: fmt.Sprintf("parse upload response: %v", err)}
	}
	return SendResult{
		MessageID:  wire.MessageID,
		ChatID:     wire.ChatID,
		BotEnabled: wire.BotEnabled,
	}, nil
}

package registrar

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// DefaultTimeout bounds a single registrar call.
const DefaultTimeout = 5 * time.Second

// Registrar updates the remote allow-list. Calls are best effort: failures
// are logged inside the implementation and never returned.
type Registrar interface {
	Add(ctx context.Context, uid string)
	Remove(ctx context.Context, uid string)
}

// Observer is notified of failed calls. op is "add" or "remove".
type Observer interface {
	RegistrarFailed(op string)
}

// Settings identifies the remote service.
type Settings struct {
	BaseURL string
	Key     string
	Timeout time.Duration
}

// Client calls GET {base}/add/{uid}?key={key} and GET {base}/remove/{uid}?key={key}.
// Each call is a single attempt with no retry.
type Client struct {
	mu       sync.RWMutex
	settings Settings

	http     *http.Client
	observer Observer
}

// New creates a Client. obs may be nil.
func New(s Settings, obs Observer) *Client {
	c := &Client{http: &http.Client{}, observer: obs}
	c.Configure(s)
	return c
}

// Configure replaces the settings used by subsequent calls. It is safe to call
// while other goroutines are calling Add or Remove.
func (c *Client) Configure(s Settings) {
	if s.Timeout <= 0 {
		s.Timeout = DefaultTimeout
	}
	s.BaseURL = strings.TrimRight(s.BaseURL, "/")
	c.mu.Lock()
	c.settings = s
	c.mu.Unlock()
}

// Settings returns the active settings.
func (c *Client) Settings() Settings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.settings
}

// Add registers uid with the remote allow-list.
func (c *Client) Add(ctx context.Context, uid string) {
	c.call(ctx, "add", uid)
}

// Remove drops uid from the remote allow-list.
func (c *Client) Remove(ctx context.Context, uid string) {
	c.call(ctx, "remove", uid)
}

func (c *Client) call(ctx context.Context, op, uid string) {
	s := c.Settings()
	if err := c.get(ctx, s, op, uid); err != nil {
		slog.Error("registrar: call failed", "op", op, "uid", uid, "err", err)
		if c.observer != nil {
			c.observer.RegistrarFailed(op)
		}
		return
	}
	slog.Debug("registrar: call succeeded", "op", op, "uid", uid)
}

func (c *Client) get(ctx context.Context, s Settings, op, uid string) error {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	target := fmt.Sprintf("%s/%s/%s?key=%s", s.BaseURL, op, url.PathEscape(uid), url.QueryEscape(s.Key))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("registrar returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// Nop is a Registrar that does nothing. It is used when no remote service is
// configured.
type Nop struct{}

func (Nop) Add(context.Context, string)    {}
func (Nop) Remove(context.Context, string) {}

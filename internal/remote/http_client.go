package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client is a Store implementation over the mealquest progress API.
type Client struct {
	baseURL string
	http    *http.Client
	dialer  *websocket.Dialer
}

// NewClient builds a client for the given base URL (e.g. http://localhost:8787).
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		dialer:  websocket.DefaultDialer,
	}
}

func (c *Client) progressURL(userID string) string {
	return fmt.Sprintf("%s/v1/users/%s/progress", c.baseURL, url.PathEscape(userID))
}

func (c *Client) Read(ctx context.Context, userID string) (Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.progressURL(userID), nil)
	if err != nil {
		return Record{}, fmt.Errorf("build read request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Record{}, fmt.Errorf("%w: read: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Record{}, &StatusError{Code: resp.StatusCode, Op: "read"}
	}

	var rec Record
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return Record{}, fmt.Errorf("decode record: %w", err)
	}
	return rec, nil
}

func (c *Client) WriteMerge(ctx context.Context, userID string, patch Patch) error {
	body, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("encode patch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, c.progressURL(userID), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build merge request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: merge: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return &StatusError{Code: resp.StatusCode, Op: "merge"}
	}
	return nil
}

// Subscribe opens a websocket to the watch endpoint and forwards pushed
// records until unsubscribed or the context ends.
func (c *Client) Subscribe(ctx context.Context, userID string, onChange func(Record), onError func(error)) (func(), error) {
	wsURL := strings.Replace(c.baseURL, "http", "ws", 1) +
		fmt.Sprintf("/v1/users/%s/watch", url.PathEscape(userID))

	conn, _, err := c.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: subscribe: %v", ErrUnavailable, err)
	}

	done := make(chan struct{})
	go func() {
		defer conn.Close()
		for {
			var rec Record
			if err := conn.ReadJSON(&rec); err != nil {
				select {
				case <-done:
					// Unsubscribed; the read error is just the closed conn.
				case <-ctx.Done():
				default:
					if onError != nil {
						onError(fmt.Errorf("%w: watch: %v", ErrUnavailable, err))
					}
				}
				return
			}
			onChange(rec)
		}
	}()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			close(done)
			_ = conn.Close()
		})
	}
	return unsubscribe, nil
}

package sessions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const defaultRequestTimeout = 10 * time.Second

// Client is a Supervisor backed by the shell's HTTP supervisor endpoint.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient builds a supervisor client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client:  &http.Client{Timeout: defaultRequestTimeout},
	}
}

func (c *Client) ListSessions(ctx context.Context) ([]Session, error) {
	resp, err := c.send(ctx, http.MethodGet, c.baseURL+"/sessions", nil)
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)
	if !successStatus(resp.StatusCode) {
		return nil, fmt.Errorf("sessions: list returned status %d", resp.StatusCode)
	}
	var list []Session
	if errDecode := json.NewDecoder(resp.Body).Decode(&list); errDecode != nil {
		return nil, fmt.Errorf("sessions: decode session list: %w", errDecode)
	}
	return list, nil
}

func (c *Client) StopSession(ctx context.Context, id string) (bool, error) {
	stopURL := fmt.Sprintf("%s/sessions/%s/stop", c.baseURL, url.PathEscape(id))
	resp, err := c.send(ctx, http.MethodPost, stopURL, nil)
	if err != nil {
		return false, err
	}
	defer closeBody(resp)
	if !successStatus(resp.StatusCode) {
		return false, fmt.Errorf("sessions: stop returned status %d", resp.StatusCode)
	}
	var result struct {
		Stopped bool `json:"stopped"`
	}
	if errDecode := json.NewDecoder(resp.Body).Decode(&result); errDecode != nil {
		return false, fmt.Errorf("sessions: decode stop result: %w", errDecode)
	}
	return result.Stopped, nil
}

func (c *Client) ForceStopSession(ctx context.Context, id string, pid int) error {
	killURL := fmt.Sprintf("%s/sessions/%s/kill", c.baseURL, url.PathEscape(id))
	resp, err := c.send(ctx, http.MethodPost, killURL, map[string]any{"pid": pid})
	if err != nil {
		return err
	}
	defer closeBody(resp)
	if !successStatus(resp.StatusCode) {
		return fmt.Errorf("sessions: kill returned status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, requestURL string, body any) (*http.Response, error) {
	if c == nil || c.baseURL == "" {
		return nil, fmt.Errorf("sessions: client not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	var reader io.Reader
	if body != nil {
		payload, errEncode := json.Marshal(body)
		if errEncode != nil {
			return nil, fmt.Errorf("sessions: encode request: %w", errEncode)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, requestURL, reader)
	if err != nil {
		return nil, fmt.Errorf("sessions: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	client := c.client
	if client == nil {
		client = &http.Client{Timeout: defaultRequestTimeout}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sessions: request failed: %w", err)
	}
	return resp, nil
}

func successStatus(code int) bool {
	return code >= http.StatusOK && code < http.StatusMultipleChoices
}

func closeBody(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	if errClose := resp.Body.Close(); errClose != nil {
		log.WithError(errClose).Warn("sessions: close response body")
	}
}

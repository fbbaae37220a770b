package notewell

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/notewell/notewell.go/notepad"
)

// Client provides typed access to the Notewell notebook REST API.
//
// Client handles JSON serialization, session-cookie authentication and
// consistent error handling for all endpoints. Non-2xx responses are
// returned as [*APIError]. Client instances are safe for concurrent use by
// multiple goroutines.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	sessionCookie *http.Cookie
	log           zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client (30-second timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger used for request tracing. The default is a
// no-op logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithSessionCookie attaches the backend's session cookie to every request.
func WithSessionCookie(name, value string) Option {
	return func(c *Client) {
		c.sessionCookie = &http.Cookie{Name: name, Value: value}
	}
}

// NewClient creates a Notewell API client.
//
// The baseURL should include the protocol and host (e.g.
// "https://app.example.com") without a trailing slash or path prefix.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// doRequest performs an HTTP request with proper headers.
func (c *Client) doRequest(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.sessionCookie != nil {
		req.AddCookie(c.sessionCookie)
	}

	c.log.Debug().Str("method", method).Str("path", path).Msg("api request")
	return c.httpClient.Do(req)
}

// decodeResponse decodes the JSON response into the target struct, turning
// non-2xx statuses into an *APIError carrying the response body.
func decodeResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if target != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

type draftEnvelope struct {
	Content notepad.Content `json:"content"`
}

type itemEnvelope struct {
	Item *Item `json:"item"`
}

type itemsEnvelope struct {
	Items []*Item `json:"items"`
}

// Notepad draft

// GetNotepadDraft fetches the current notepad draft of a notebook. A nil
// content means the notebook has no draft.
func (c *Client) GetNotepadDraft(ctx context.Context, notebookID notepad.NotebookID) (notepad.Content, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/notebooks/%d/notepad_draft", notebookID), nil)
	if err != nil {
		return nil, err
	}

	var result draftEnvelope
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}

	return result.Content, nil
}

// PutNotepadDraft overwrites the notepad draft wholesale and returns the
// content the server stored. Pass nil content to persist an absent draft;
// callers normalize emptied drafts with [notepad.Content.Normalize].
func (c *Client) PutNotepadDraft(ctx context.Context, notebookID notepad.NotebookID, content notepad.Content) (notepad.Content, error) {
	body := draftEnvelope{Content: content}
	resp, err := c.doRequest(ctx, http.MethodPut, fmt.Sprintf("/notebooks/%d/notepad_draft", notebookID), body)
	if err != nil {
		return nil, err
	}

	var result draftEnvelope
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}

	return result.Content, nil
}

// DeleteNotepadDraft removes the notepad draft server-side.
func (c *Client) DeleteNotepadDraft(ctx context.Context, notebookID notepad.NotebookID) error {
	resp, err := c.doRequest(ctx, http.MethodDelete, fmt.Sprintf("/notebooks/%d/notepad_draft", notebookID), nil)
	if err != nil {
		return err
	}

	return decodeResponse(resp, nil)
}

// Items

// AddItem creates a notebook item and returns the server's record,
// including its assigned ID.
func (c *Client) AddItem(ctx context.Context, notebookID notepad.NotebookID, req AddItemRequest) (*Item, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, fmt.Sprintf("/notebooks/%d/items", notebookID), req)
	if err != nil {
		return nil, err
	}

	var result itemEnvelope
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}

	return result.Item, nil
}

// RemoveItem deletes a notebook item.
func (c *Client) RemoveItem(ctx context.Context, notebookID notepad.NotebookID, itemID notepad.ItemID) error {
	resp, err := c.doRequest(ctx, http.MethodDelete, fmt.Sprintf("/notebooks/%d/items/%d", notebookID, itemID), nil)
	if err != nil {
		return err
	}

	return decodeResponse(resp, nil)
}

// ListItems lists a notebook's items.
func (c *Client) ListItems(ctx context.Context, notebookID notepad.NotebookID) ([]*Item, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/notebooks/%d/items", notebookID), nil)
	if err != nil {
		return nil, err
	}

	var result itemsEnvelope
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}

	return result.Items, nil
}
